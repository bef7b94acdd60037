// Package cache implements the pluggable BytesCache backends the fetcher
// (internal/duka.Fetcher) reads through and writes through when a request
// sets UseCache: an in-memory TTL cache, a file-backed cache with atomic
// writes, and a Redis-backed cache for sharing fetched .bi5 blobs across
// worker processes.
package cache

import "context"

// BytesCache mirrors internal/duka.BytesCache; restated here so this
// package doesn't need to import the domain package to document its
// contract. Any of the three implementations below satisfies both.
type BytesCache interface {
	GetBytes(ctx context.Context, key string) ([]byte, bool, error)
	SetBytes(ctx context.Context, key string, value []byte) error
}
