package storagesvc

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/coachboard/core"
)

var errInvalidKey = errors.New("invalid object key")

// FileSystemStorage stores objects under a local directory, served by the API under BaseURL.
type FileSystemStorage struct {
	dir     string
	baseURL string
}

var _ core.ObjectStorage = (*FileSystemStorage)(nil) // interface compliance check

func NewFileSystemStorage(dir, baseURL string) *FileSystemStorage {
	return &FileSystemStorage{dir: dir, baseURL: strings.TrimSuffix(baseURL, "/")}
}

func (s *FileSystemStorage) Dir() string {
	return s.dir
}

// path resolves key inside the storage directory, rejecting keys escaping it.
func (s *FileSystemStorage) path(key string) (string, error) {
	clean := path.Clean("/" + key)[1:]
	if clean == "" || clean != key {
		return "", errors.Wrap(errInvalidKey, key)
	}
	return filepath.Join(s.dir, filepath.FromSlash(clean)), nil
}

func (s *FileSystemStorage) Put(_ context.Context, key string, data []byte, _ string) (string, error) {
	p, err := s.path(key)
	if err != nil {
		return "", err
	}
	if err = os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", errors.Wrap(err, "creating object directory")
	}
	if err = os.WriteFile(p, data, 0o644); err != nil {
		return "", errors.Wrap(err, "writing object")
	}
	return s.baseURL + "/" + key, nil
}

func (s *FileSystemStorage) Delete(_ context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err = os.Remove(p); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "removing object")
	}
	return nil
}
