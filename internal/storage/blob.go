package storage

import "io"

// BlobStore holds question media (listening-section audio, reading images).
// Keys are slash-separated paths, e.g. "questions/q17/prompt.mp3".
type BlobStore interface {
	Put(key string, r io.Reader) (string, error) // returns canonical key
	Get(key string) (io.ReadCloser, error)
}
