package session

import "testing"

// FuzzEnvelopeDecode feeds arbitrary bytes to the envelope decoder.
// Goal: no panics, graceful error handling.
func FuzzEnvelopeDecode(f *testing.F) {
	plain, err := Encode("token-fuzz", DefaultKey, nil)
	if err == nil {
		f.Add(plain)
	}
	sealer, err := NewSealer("fuzz", testKDF)
	if err == nil {
		if sealed, err := Encode("token-fuzz", DefaultKey, sealer); err == nil {
			f.Add(sealed)
			f.Add(sealed[:len(sealed)/2])
		}
	}

	f.Add([]byte{})
	f.Add([]byte{1})
	f.Add([]byte{1, 0, 0, 0, 0, 0})
	f.Add([]byte{1, 1, 255, 255, 255, 255})
	f.Add([]byte{9, 9, 9})

	f.Fuzz(func(t *testing.T, data []byte) {
		token, err := Decode(data, DefaultKey, sealer)
		if err == nil && token == "" {
			t.Fatalf("decode returned empty token without error")
		}
	})
}
