package receipt

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// DiskStore keeps receipts as files in a single directory.
type DiskStore struct {
	dir string
}

func NewDiskStore(dir string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskStore{dir: dir}, nil
}

func (s *DiskStore) Save(ctx context.Context, filename string, r io.Reader) (string, error) {
	ext, err := Ext(filename)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	handle := newName() + ext
	f, err := os.OpenFile(filepath.Join(s.dir, handle), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		_ = os.Remove(f.Name())
		return "", err
	}
	return handle, f.Close()
}

// Open returns the stored file. Handles that are not plain file names are rejected.
func (s *DiskStore) Open(handle string) (*os.File, error) {
	if handle == "" || filepath.Base(handle) != handle || handle == "." || handle == ".." {
		return nil, ErrNotFound
	}
	f, err := os.Open(filepath.Join(s.dir, handle))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	return f, err
}

// Remove deletes a stored receipt; a missing file is not an error.
func (s *DiskStore) Remove(handle string) error {
	if filepath.Base(handle) != handle {
		return ErrNotFound
	}
	err := os.Remove(filepath.Join(s.dir, handle))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
