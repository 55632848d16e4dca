package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	apperrors "jobtracker/internal/errors"
)

// LocalStore keeps files in a directory on local disk.
type LocalStore struct {
	dir string
}

var _ FileStore = (*LocalStore)(nil)

// NewLocalStore creates dir if needed.
func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create uploads dir: %w", err)
	}
	return &LocalStore{dir: dir}, nil
}

func (s *LocalStore) Save(_ context.Context, name string, r io.Reader, size int64, _ string) (string, error) {
	if !validName(name) {
		return "", fmt.Errorf("%w: bad file name", apperrors.ErrInvalidFile)
	}
	full := filepath.Join(s.dir, name)
	f, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", name, err)
	}
	n, err := io.Copy(f, io.LimitReader(r, size+1))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && n != size {
		err = fmt.Errorf("wrote %d bytes, expected %d", n, size)
	}
	if err != nil {
		_ = os.Remove(full)
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	return PublicPrefix + name, nil
}

func (s *LocalStore) Open(_ context.Context, name string) (io.ReadCloser, error) {
	if !validName(name) {
		return nil, apperrors.ErrNotFound
	}
	f, err := os.Open(filepath.Join(s.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, apperrors.ErrNotFound
	}
	return f, err
}

// Delete removes a stored file. Missing files are not an error.
func (s *LocalStore) Delete(_ context.Context, publicPath string) error {
	name, ok := NameFromPublicPath(publicPath)
	if !ok {
		return fmt.Errorf("%w: bad file path %q", apperrors.ErrInvalidFile, publicPath)
	}
	err := os.Remove(filepath.Join(s.dir, name))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
