package session

import (
	"bytes"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"io"
	"sync"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

const (
	envelopeFormatVersionCurrent = 1

	envelopePlain  byte = 0
	envelopeSealed byte = 1

	saltSize = 16
	keySize  = chacha20poly1305.KeySize

	maxTokenSize = 64 * 1024

	minKDFMemoryKB uint32 = 8 * 1024
	maxKDFMemoryKB uint32 = 1024 * 1024
	maxKDFTime     uint32 = 10
	maxKDFThreads  uint8  = 16
)

// KDFParams are the Argon2id parameters used to derive the sealing key.
type KDFParams struct {
	Memory  uint32 // in KB
	Time    uint32
	Threads uint8
}

// DefaultKDFParams follows the RFC 9106 second recommended option.
var DefaultKDFParams = KDFParams{
	Memory:  64 * 1024,
	Time:    3,
	Threads: 4,
}

// Sealer encrypts tokens at rest with a passphrase-derived key. The key for the
// most recent salt is kept in memory, so reading the same envelope repeatedly
// runs Argon2id once. It is safe for concurrent use.
type Sealer struct {
	passphrase []byte
	params     KDFParams

	mu          sync.Mutex
	cached      derivedKey
	derivations uint64
}

type derivedKey struct {
	salt   [saltSize]byte
	params KDFParams
	key    []byte
}

// NewSealer returns a Sealer for passphrase. Zero params select [DefaultKDFParams].
func NewSealer(passphrase string, params KDFParams) (*Sealer, error) {
	if passphrase == "" {
		return nil, errors.New("sealer passphrase must not be empty")
	}
	if params == (KDFParams{}) {
		params = DefaultKDFParams
	}
	if err := validateKDFParams(params); err != nil {
		return nil, err
	}
	return &Sealer{passphrase: []byte(passphrase), params: params}, nil
}

func validateKDFParams(p KDFParams) error {
	if p.Memory < minKDFMemoryKB || p.Memory > maxKDFMemoryKB {
		return errors.New("kdf memory out of range")
	}
	if p.Time < 1 || p.Time > maxKDFTime {
		return errors.New("kdf time out of range")
	}
	if p.Threads < 1 || p.Threads > maxKDFThreads {
		return errors.New("kdf threads out of range")
	}
	return nil
}

func (s *Sealer) deriveKey(salt []byte, p KDFParams) []byte {
	var id [saltSize]byte
	copy(id[:], salt)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cached.key != nil && s.cached.salt == id && s.cached.params == p {
		return s.cached.key
	}
	key := argon2.IDKey(s.passphrase, salt, p.Time, p.Memory, p.Threads, keySize)
	s.cached = derivedKey{salt: id, params: p, key: key}
	s.derivations++
	return key
}

// Encode builds the on-disk envelope for token. name is bound into the sealed
// payload as associated data, so an envelope copied to another key fails to open.
// A nil sealer writes the token unencrypted.
func Encode(token, name string, sealer *Sealer) ([]byte, error) {
	if token == "" {
		return nil, ErrEmptyToken
	}
	if len(token) > maxTokenSize {
		return nil, errors.New("token too large")
	}

	var buf bytes.Buffer
	buf.WriteByte(envelopeFormatVersionCurrent)

	if sealer == nil {
		buf.WriteByte(envelopePlain)
		if err := binary.Write(&buf, binary.BigEndian, uint32(len(token))); err != nil {
			return nil, err
		}
		buf.WriteString(token)
		return buf.Bytes(), nil
	}

	buf.WriteByte(envelopeSealed)
	p := sealer.params
	if err := binary.Write(&buf, binary.BigEndian, p.Memory); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, p.Time); err != nil {
		return nil, err
	}
	buf.WriteByte(p.Threads)

	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.NewX(sealer.deriveKey(salt, p))
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	buf.Write(salt)
	buf.Write(nonce)
	buf.Write(aead.Seal(nil, nonce, []byte(token), []byte(name)))

	return buf.Bytes(), nil
}

// Decode reverses [Encode]. Plain envelopes are accepted even when a sealer is
// configured, so sealing can be turned on without losing an existing session.
func Decode(data []byte, name string, sealer *Sealer) (string, error) {
	if len(data) < 2 {
		return "", errors.New("envelope too short")
	}
	if data[0] != envelopeFormatVersionCurrent {
		return "", errors.New("unsupported envelope version")
	}

	r := bytes.NewReader(data[2:])
	switch data[1] {
	case envelopePlain:
		var n uint32
		if err := binary.Read(r, binary.BigEndian, &n); err != nil {
			return "", err
		}
		if n == 0 || n > maxTokenSize || int(n) != r.Len() {
			return "", errors.New("invalid token length")
		}
		token := make([]byte, n)
		if _, err := io.ReadFull(r, token); err != nil {
			return "", err
		}
		return string(token), nil

	case envelopeSealed:
		if sealer == nil {
			return "", errors.New("sealed token requires a passphrase")
		}
		var p KDFParams
		if err := binary.Read(r, binary.BigEndian, &p.Memory); err != nil {
			return "", err
		}
		if err := binary.Read(r, binary.BigEndian, &p.Time); err != nil {
			return "", err
		}
		threads, err := r.ReadByte()
		if err != nil {
			return "", err
		}
		p.Threads = threads
		if err := validateKDFParams(p); err != nil {
			return "", err
		}

		salt := make([]byte, saltSize)
		if _, err := io.ReadFull(r, salt); err != nil {
			return "", err
		}
		nonce := make([]byte, chacha20poly1305.NonceSizeX)
		if _, err := io.ReadFull(r, nonce); err != nil {
			return "", err
		}
		ciphertext := make([]byte, r.Len())
		if _, err := io.ReadFull(r, ciphertext); err != nil {
			return "", err
		}
		if len(ciphertext) <= chacha20poly1305.Overhead {
			return "", errors.New("sealed payload too short")
		}

		aead, err := chacha20poly1305.NewX(sealer.deriveKey(salt, p))
		if err != nil {
			return "", err
		}
		plain, err := aead.Open(nil, nonce, ciphertext, []byte(name))
		if err != nil {
			return "", err
		}
		return string(plain), nil

	default:
		return "", errors.New("unknown envelope mode")
	}
}
