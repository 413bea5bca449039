// Package archive discovers and fetches compressed log objects from the
// time-partitioned archive bucket.
package archive

import (
	"context"
	"fmt"
)

// ObjectStore is the capability the archive layer needs from an object
// store. Implementations must be safe for concurrent use.
type ObjectStore interface {
	// List returns the names of all objects under prefix. An empty listing
	// is not an error.
	List(ctx context.Context, bucket, prefix string) ([]string, error)
	// Get returns the raw bytes of one object.
	Get(ctx context.Context, bucket, key string) ([]byte, error)
}

// StoreError wraps a transport-level object store failure. Callers skip the
// affected prefix or object and degrade the result instead of aborting.
type StoreError struct {
	Op     string // "list" or "get"
	Bucket string
	Key    string // prefix for list, object name for get
	Err    error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("object store unavailable: %s %s/%s: %v", e.Op, e.Bucket, e.Key, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }
