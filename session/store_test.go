package session

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

var testKDF = KDFParams{Memory: 8 * 1024, Time: 1, Threads: 1}

func newRedisStoreTest(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})
	return NewRedisStore(rdb, "ledger", "", ttl), mr, rdb
}

func storesUnderTest(t *testing.T) map[string]Store {
	t.Helper()
	file, err := NewFileStore(t.TempDir(), "")
	if err != nil {
		t.Fatalf("file store: %v", err)
	}
	redisStore, _, _ := newRedisStoreTest(t, 0)
	return map[string]Store{
		"memory": NewMemoryStore(),
		"file":   file,
		"redis":  redisStore,
	}
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			if _, ok, err := store.Get(ctx); err != nil || ok {
				t.Fatalf("expected empty store, got ok=%v err=%v", ok, err)
			}
			if err := store.Set(ctx, "abc"); err != nil {
				t.Fatalf("set: %v", err)
			}
			if err := store.Set(ctx, "xyz"); err != nil {
				t.Fatalf("overwrite: %v", err)
			}
			token, ok, err := store.Get(ctx)
			if err != nil || !ok || token != "xyz" {
				t.Fatalf("expected xyz, got %q ok=%v err=%v", token, ok, err)
			}
		})
	}
}

func TestStoreClearIdempotent(t *testing.T) {
	ctx := context.Background()
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			if err := store.Set(ctx, "abc"); err != nil {
				t.Fatalf("set: %v", err)
			}
			if err := store.Clear(ctx); err != nil {
				t.Fatalf("first clear: %v", err)
			}
			if err := store.Clear(ctx); err != nil {
				t.Fatalf("second clear: %v", err)
			}
			if _, ok, err := store.Get(ctx); err != nil || ok {
				t.Fatalf("expected no token after clear, got ok=%v err=%v", ok, err)
			}
		})
	}
}

func TestStoreRejectsEmptyToken(t *testing.T) {
	ctx := context.Background()
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			if err := store.Set(ctx, ""); !errors.Is(err, ErrEmptyToken) {
				t.Fatalf("expected ErrEmptyToken, got %v", err)
			}
		})
	}
}

func TestFileStorePermissionsAndLocation(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	store, err := NewFileStore(dir, "auth")
	if err != nil {
		t.Fatalf("file store: %v", err)
	}
	if err := store.Set(context.Background(), "abc"); err != nil {
		t.Fatalf("set: %v", err)
	}

	info, err := os.Stat(filepath.Join(dir, "auth"))
	if err != nil {
		t.Fatalf("stat token file: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("expected 0600, got %o", perm)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the token file, got %d entries", len(entries))
	}
}

func TestFileStoreRejectsPathKeys(t *testing.T) {
	for _, key := range []string{"../auth", "a/b", ".."} {
		if _, err := NewFileStore(t.TempDir(), key); err == nil {
			t.Fatalf("expected error for key %q", key)
		}
	}
}

func TestFileStoreCorruptFile(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir, "")
	if err != nil {
		t.Fatalf("file store: %v", err)
	}
	if err := os.WriteFile(store.Path(), []byte("garbage"), 0o600); err != nil {
		t.Fatalf("seed corrupt file: %v", err)
	}

	token, ok, err := store.Get(context.Background())
	if !errors.Is(err, ErrTokenCorrupt) {
		t.Fatalf("expected ErrTokenCorrupt, got %v", err)
	}
	if ok || token != "" {
		t.Fatalf("corrupt file must read as absent, got %q ok=%v", token, ok)
	}
	if err := store.Clear(context.Background()); err != nil {
		t.Fatalf("clear corrupt file: %v", err)
	}
}

func TestFileStoreSealed(t *testing.T) {
	dir := t.TempDir()
	sealer, err := NewSealer("correct horse", testKDF)
	if err != nil {
		t.Fatalf("sealer: %v", err)
	}
	store, err := NewFileStore(dir, "", WithSealer(sealer))
	if err != nil {
		t.Fatalf("file store: %v", err)
	}
	ctx := context.Background()
	if err := store.Set(ctx, "secret-token"); err != nil {
		t.Fatalf("set: %v", err)
	}

	raw, err := os.ReadFile(store.Path())
	if err != nil {
		t.Fatalf("read raw: %v", err)
	}
	if bytes.Contains(raw, []byte("secret-token")) {
		t.Fatalf("sealed file must not contain the plaintext token")
	}

	token, ok, err := store.Get(ctx)
	if err != nil || !ok || token != "secret-token" {
		t.Fatalf("expected unsealed token, got %q ok=%v err=%v", token, ok, err)
	}

	wrong, err := NewSealer("battery staple", testKDF)
	if err != nil {
		t.Fatalf("sealer: %v", err)
	}
	other, err := NewFileStore(dir, "", WithSealer(wrong))
	if err != nil {
		t.Fatalf("file store: %v", err)
	}
	if _, ok, err := other.Get(ctx); !errors.Is(err, ErrTokenCorrupt) || ok {
		t.Fatalf("expected ErrTokenCorrupt with wrong passphrase, got ok=%v err=%v", ok, err)
	}

	plain, err := NewFileStore(dir, "")
	if err != nil {
		t.Fatalf("file store: %v", err)
	}
	if _, _, err := plain.Get(ctx); !errors.Is(err, ErrTokenCorrupt) {
		t.Fatalf("expected ErrTokenCorrupt without passphrase, got %v", err)
	}
}

func (s *Sealer) derivationCount() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.derivations
}

func TestFileStoreSealedDerivesKeyOncePerSalt(t *testing.T) {
	dir := t.TempDir()
	sealer, err := NewSealer("correct horse", testKDF)
	if err != nil {
		t.Fatalf("sealer: %v", err)
	}
	store, err := NewFileStore(dir, "", WithSealer(sealer))
	if err != nil {
		t.Fatalf("file store: %v", err)
	}
	ctx := context.Background()
	if err := store.Set(ctx, "first-token"); err != nil {
		t.Fatalf("set: %v", err)
	}
	for i := 0; i < 5; i++ {
		if token, ok, err := store.Get(ctx); err != nil || !ok || token != "first-token" {
			t.Fatalf("get %d: %q ok=%v err=%v", i, token, ok, err)
		}
	}
	if n := sealer.derivationCount(); n != 1 {
		t.Fatalf("expected one key derivation for set+5 gets, got %d", n)
	}

	if err := store.Set(ctx, "second-token"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if token, _, err := store.Get(ctx); err != nil || token != "second-token" {
		t.Fatalf("get after rewrite: %q err=%v", token, err)
	}
	if n := sealer.derivationCount(); n != 2 {
		t.Fatalf("expected a fresh derivation after rewrite, got %d", n)
	}

	reader, err := NewSealer("correct horse", testKDF)
	if err != nil {
		t.Fatalf("sealer: %v", err)
	}
	other, err := NewFileStore(dir, "", WithSealer(reader))
	if err != nil {
		t.Fatalf("file store: %v", err)
	}
	for i := 0; i < 3; i++ {
		if token, _, err := other.Get(ctx); err != nil || token != "second-token" {
			t.Fatalf("second reader get %d: %q err=%v", i, token, err)
		}
	}
	if n := reader.derivationCount(); n != 1 {
		t.Fatalf("expected one derivation for a new reader, got %d", n)
	}
}

func TestSealedEnvelopeBoundToKey(t *testing.T) {
	sealer, err := NewSealer("pw", testKDF)
	if err != nil {
		t.Fatalf("sealer: %v", err)
	}
	data, err := Encode("tok", "auth", sealer)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := Decode(data, "other", sealer); err == nil {
		t.Fatalf("expected decode under another key to fail")
	}
	got, err := Decode(data, "auth", sealer)
	if err != nil || got != "tok" {
		t.Fatalf("expected tok, got %q err=%v", got, err)
	}
}

func TestPlainEnvelopeReadableWithSealer(t *testing.T) {
	data, err := Encode("tok", "auth", nil)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	sealer, err := NewSealer("pw", testKDF)
	if err != nil {
		t.Fatalf("sealer: %v", err)
	}
	got, err := Decode(data, "auth", sealer)
	if err != nil || got != "tok" {
		t.Fatalf("expected tok, got %q err=%v", got, err)
	}
}

func TestNewSealerValidation(t *testing.T) {
	if _, err := NewSealer("", testKDF); err == nil {
		t.Fatalf("expected error for empty passphrase")
	}
	if _, err := NewSealer("pw", KDFParams{Memory: 1, Time: 1, Threads: 1}); err == nil {
		t.Fatalf("expected error for tiny memory")
	}
	if _, err := NewSealer("pw", KDFParams{Memory: 8 * 1024, Time: 0, Threads: 1}); err == nil {
		t.Fatalf("expected error for zero time")
	}
}

func TestRedisStoreTTL(t *testing.T) {
	store, mr, _ := newRedisStoreTest(t, time.Minute)
	ctx := context.Background()
	if err := store.Set(ctx, "abc"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if ttl := mr.TTL("ledger:auth"); ttl != time.Minute {
		t.Fatalf("expected 1m ttl, got %v", ttl)
	}
	mr.FastForward(2 * time.Minute)
	if _, ok, err := store.Get(ctx); err != nil || ok {
		t.Fatalf("expected expired token to read absent, got ok=%v err=%v", ok, err)
	}
}

func TestRedisStoreUnavailable(t *testing.T) {
	store, mr, _ := newRedisStoreTest(t, 0)
	mr.Close()
	ctx := context.Background()

	if _, _, err := store.Get(ctx); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("get: expected ErrStoreUnavailable, got %v", err)
	}
	if err := store.Set(ctx, "abc"); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("set: expected ErrStoreUnavailable, got %v", err)
	}
	if err := store.Clear(ctx); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("clear: expected ErrStoreUnavailable, got %v", err)
	}
}
