package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const fileFormatVersion = 1

type fileImage struct {
	Version uint8             `cbor:"1,keyasint"`
	Entries map[string][]byte `cbor:"2,keyasint"`
}

// FileBackend stores all entries in one CBOR file that is rewritten
// atomically on every Apply. Reads go to disk each time so separate
// processes sharing the file observe each other's writes.
type FileBackend struct {
	path string
	mu   sync.Mutex
}

// NewFileBackend returns a FileBackend at path, creating the parent
// directory with mode 0700.
func NewFileBackend(path string) (*FileBackend, error) {
	if path == "" {
		return nil, errors.New("file backend path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return &FileBackend{path: path}, nil
}

// Path returns the backing file path.
func (f *FileBackend) Path() string { return f.path }

func (f *FileBackend) Get(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	img, err := f.load()
	if err != nil {
		return nil, err
	}
	v, ok := img.Entries[key]
	if !ok {
		return nil, ErrNotFound
	}
	return v, nil
}

func (f *FileBackend) Apply(_ context.Context, batch Batch) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	img, err := f.load()
	if err != nil {
		return err
	}
	for k, v := range batch.Set {
		img.Entries[k] = append([]byte(nil), v...)
	}
	for _, k := range batch.Delete {
		delete(img.Entries, k)
	}

	data, err := encMode.Marshal(img)
	if err != nil {
		return fmt.Errorf("encoding session file: %w", err)
	}
	if err := writeFileAtomic(f.path, data, 0o600); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (f *FileBackend) Close() error { return nil }

func (f *FileBackend) load() (*fileImage, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &fileImage{Version: fileFormatVersion, Entries: map[string][]byte{}}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	img := &fileImage{}
	if err := decMode.Unmarshal(data, img); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if img.Version != fileFormatVersion {
		return nil, fmt.Errorf("%w: unsupported file version %d", ErrCorrupt, img.Version)
	}
	if img.Entries == nil {
		img.Entries = map[string][]byte{}
	}
	return img, nil
}
