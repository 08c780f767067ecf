// Package storage provides the photo blob store consumed by the
// submission workflow. Exactly one adapter is wired at a time.
package storage

import "context"

// Store persists raw photo bytes and returns a URL the stored object can
// be served from
type Store interface {
	Upload(ctx context.Context, path string, data []byte) (string, error)
}
