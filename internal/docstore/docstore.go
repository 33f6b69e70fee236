// Package docstore defines the document store contract the back-office core
// is written against. A store holds JSON documents at slash-separated paths
// ("customers/12", "orders/2024-00000007/orderItems/1") and offers point
// reads, point writes, and an optimistic transactional read-modify-write.
//
// Implementations live in the subpackages: memory (tests, local dev),
// postgres (jsonb documents) and firestore (the hosted store).
package docstore

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrNotFound is returned by Get when no document exists at the path.
	ErrNotFound = errors.New("docstore: document not found")

	// ErrAborted is returned by Transact when the commit lost a race:
	// another writer changed one of the read paths after the snapshot.
	// The transaction had no effect and may be retried from scratch.
	ErrAborted = errors.New("docstore: transaction aborted")
)

// Store is the minimal contract over a hosted document database.
type Store interface {
	// Get reads the document at path into out (a JSON-unmarshal target).
	// Returns ErrNotFound if the document does not exist.
	Get(ctx context.Context, path string, out any) error

	// Put unconditionally writes doc at path, creating or replacing it.
	Put(ctx context.Context, path string, doc any) error

	// Transact runs fn against a consistent snapshot. Reads issued through
	// the Tx are tracked; buffered writes commit only if none of the read
	// paths changed since the snapshot, otherwise Transact returns
	// ErrAborted. The store itself never retries: retry policy belongs to
	// the caller.
	Transact(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	// List visits the direct children of a collection path in ascending
	// path order. fn receives each child path and its raw JSON document.
	List(ctx context.Context, prefix string, fn func(path string, data []byte) error) error

	// Close releases any underlying connections.
	Close() error
}

// Tx is the view fn receives inside Transact.
type Tx interface {
	// Get reads a document within the transaction snapshot and records the
	// path in the read set. Returns ErrNotFound if absent (absence is part
	// of the snapshot: the commit aborts if the document appears later).
	Get(path string, out any) error

	// Set buffers a write to be committed with the transaction.
	Set(path string, doc any) error
}

// ValidPath reports whether p is a usable document path: non-empty
// slash-separated segments, at least two (collection/id).
func ValidPath(p string) bool {
	segs := strings.Split(p, "/")
	if len(segs) < 2 {
		return false
	}
	for _, s := range segs {
		if s == "" {
			return false
		}
	}
	return true
}

// Join builds a path from segments.
func Join(segs ...string) string {
	return strings.Join(segs, "/")
}
