package repository

import (
	"context"
	"io"
)

// ObjectStore saves and serves uploaded files by key.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
	URLFor(key string) string
	Delete(ctx context.Context, key string) error
}
