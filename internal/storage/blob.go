package storage

import "io"

// BlobStore holds course manifest exports keyed by course id.
type BlobStore interface {
	Put(key string, r io.Reader) (string, error) // returns canonical key
	Get(key string) (io.ReadCloser, error)
}
