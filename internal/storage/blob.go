package storage

import (
	"errors"
	"io"
)

// ErrNotFound is returned by Get and Stat for keys that were never stored.
var ErrNotFound = errors.New("blob not found")

type BlobStore interface {
	Put(key string, r io.Reader) (string, error) // returns canonical key
	Get(key string) (io.ReadCloser, error)
	Stat(key string) (int64, error) // size in bytes
	Delete(key string) error
}
