package object

import (
	"context"
	"io"
)

// Object describes a stored blob.
type Object struct {
	Key         string
	Size        int64
	ContentType string
}

// Store saves and retrieves uploaded plan documents.
type Store interface {
	Put(ctx context.Context, key string, contentType string, r io.Reader) (Object, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}
