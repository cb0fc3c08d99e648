package storage

import (
	"context"
	"errors"
	"io"
)

var ErrObjectNotFound = errors.New("object not found")

type Object struct {
	Key  string
	Size int64
}

// ObjectStore is a flat key space of blobs. Keys use forward slashes.
type ObjectStore interface {
	PutObject(ctx context.Context, key string, data io.Reader) error

	GetObject(ctx context.Context, key string) (io.ReadCloser, error)

	ListObjects(ctx context.Context, prefix string) ([]Object, error)
}
