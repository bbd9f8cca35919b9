package storage

import (
	"context"
	"errors"
)

var (
	ErrNotFound = errors.New("key not found")
	ErrBadKey   = errors.New("invalid storage key")
)

// Entry is one raw key/value pair written to a backend.
type Entry struct {
	Key   string
	Value []byte
}

// Store is a durable key/value backend.
// Put must apply all entries or none of them.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, entries ...Entry) error
	Close() error
}
