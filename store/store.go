// Package store defines the durable document storage contract.
//
// Persistence is whole-document: each named document (user history, example
// cache, metrics) is read and replaced as a single blob. Components that own
// a document serialize their load-mutate-save cycle; the driver only has to
// make individual reads and writes atomic.
package store

import (
	"context"

	"github.com/pkg/errors"
)

// Document names used by the core components.
const (
	DocUserHistory  = "user_history"
	DocExampleCache = "example_cache"
	DocMetrics      = "metrics"
)

// ErrNotFound is returned by LoadDocument when the named document does not exist.
var ErrNotFound = errors.New("document not found")

// Driver is the contract implemented by the storage backends.
type Driver interface {
	// LoadDocument returns the stored blob for name, or ErrNotFound.
	LoadDocument(ctx context.Context, name string) ([]byte, error)

	// SaveDocument atomically replaces the stored blob for name.
	SaveDocument(ctx context.Context, name string, data []byte) error

	// Close releases the backing resources.
	Close() error
}
