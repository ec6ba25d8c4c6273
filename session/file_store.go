package session

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// FileStore keeps the token in a single file named after the key.
//
// Writes go to a temporary file in the same directory and are renamed into
// place, so a crash never leaves a half-written token behind.
type FileStore struct {
	mu     sync.Mutex
	dir    string
	name   string
	sealer *Sealer
}

// FileOption configures a [FileStore].
type FileOption func(*FileStore)

// WithSealer encrypts the token at rest.
func WithSealer(s *Sealer) FileOption {
	return func(f *FileStore) {
		f.sealer = s
	}
}

// NewFileStore creates a FileStore under dir. An empty key selects [DefaultKey].
// The directory is created lazily on the first Set.
func NewFileStore(dir, key string, opts ...FileOption) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("session directory required")
	}
	if key == "" {
		key = DefaultKey
	}
	if key != filepath.Base(key) || key == "." || key == ".." {
		return nil, fmt.Errorf("invalid session key %q", key)
	}
	f := &FileStore{dir: dir, name: key}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Path returns the file the token is stored in.
func (f *FileStore) Path() string {
	return filepath.Join(f.dir, f.name)
}

// Get reads the stored token. A missing file is not an error; an unreadable
// envelope reports ok=false together with [ErrTokenCorrupt].
func (f *FileStore) Get(context.Context) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.Path())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	token, err := Decode(data, f.name, f.sealer)
	if err != nil {
		return "", false, fmt.Errorf("%w: %v", ErrTokenCorrupt, err)
	}
	return token, true, nil
}

// Set replaces the stored token.
func (f *FileStore) Set(_ context.Context, token string) error {
	data, err := Encode(token, f.name, f.sealer)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(f.dir, 0o700); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	tmp, err := os.CreateTemp(f.dir, "."+f.name+".*")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if err := os.Rename(tmpName, f.Path()); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Clear removes the token file. A missing file is not an error.
func (f *FileStore) Clear(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.Path()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}
