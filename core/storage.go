package core

import "context"

// ObjectStorage stores binary objects (rendered previews) and hands out their retrievable address.
type ObjectStorage interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (url string, err error)
	Delete(ctx context.Context, key string) error
}
