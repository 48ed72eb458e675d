package storagesvc

import (
	"context"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/trezcool/coachboard/core"
)

// Backends
const (
	BackendFS    = "fs"
	BackendMinio = "minio"
)

// New returns the object storage configured by conf.Storage.Backend.
func New(ctx context.Context, conf *core.Config) (core.ObjectStorage, error) {
	switch conf.Storage.Backend {
	case BackendFS, "":
		dir := conf.Storage.Dir
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(conf.WorkDir, dir)
		}
		return NewFileSystemStorage(dir, conf.Storage.BaseURL), nil
	case BackendMinio:
		s, err := NewMinioStorage(conf.Storage)
		if err != nil {
			return nil, err
		}
		if err = s.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, errors.Errorf("unknown storage backend %q", conf.Storage.Backend)
	}
}
