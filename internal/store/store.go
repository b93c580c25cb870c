package store

import "errors"

// Store is the opaque blob persistence service. Values are saved
// verbatim under a caller-chosen key; their contents are private to the
// caller. Keys are independent: there is no transactional guarantee
// across two writes.
type Store interface {
	Write(key string, blob []byte) error
	Read(key string) ([]byte, error)
	Delete(key string) error
	Close() error
}

// ErrNotFound is returned by Read when no blob exists under the key.
var ErrNotFound = errors.New("store: key not found")
