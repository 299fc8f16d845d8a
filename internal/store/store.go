// Package store persists resolved URLs across process restarts. The storage
// medium is opaque to the resolver: a JSON file for single-node deployments,
// Redis or PostgreSQL when the resolver runs replicated.
package store

import "context"

// Store is the durable map from normalized organization name to canonical
// URL. Writes for different keys must be independent: a crash mid-write may
// lose the key being written but never corrupts other entries.
type Store interface {
	// Get returns the URL for key, or ok=false on a miss.
	Get(ctx context.Context, key string) (url string, ok bool, err error)

	// Put writes one entry, atomically with respect to other keys.
	Put(ctx context.Context, key, url string) error

	// Delete removes one entry. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// ReadAll returns a snapshot of every entry.
	ReadAll(ctx context.Context) (map[string]string, error)

	// Close releases underlying resources.
	Close() error
}
