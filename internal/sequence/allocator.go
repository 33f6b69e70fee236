// Package sequence hands out unique, human-readable, monotonically
// increasing identifiers backed by counter documents in the store.
//
// Counters are the only point of unavoidable serialization in the system:
// every other write goes to a caller-unique path. Centralizing the increment
// in one optimistic critical section is what prevents two concurrent order
// submissions from ever receiving the same number.
package sequence

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/Masaki-Miyazawa/erp/internal/core/apperror"
	"github.com/Masaki-Miyazawa/erp/internal/docstore"
	"github.com/Masaki-Miyazawa/erp/pkg/logger"
)

// DefaultMaxAttempts bounds the read-modify-write retry loop. The store
// resolves each race by aborting exactly one writer, so a handful of
// attempts is enough outside of pathological contention.
const DefaultMaxAttempts = 5

// padWidth is the zero-padding of scoped identifiers (2024-00000007).
const padWidth = 8

// counterDoc is the persistent shape of a sequence counter.
// Count strictly increases by 1 per successful allocation within a scope;
// a scope change resets the count to 1.
type counterDoc struct {
	Count int64  `json:"count"`
	Scope string `json:"scope,omitempty"`
}

// Allocator allocates identifiers from named sequences.
type Allocator struct {
	store       docstore.Store
	maxAttempts int
}

// New creates an allocator over the given store. maxAttempts <= 0 selects
// DefaultMaxAttempts.
func New(store docstore.Store, maxAttempts int) *Allocator {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Allocator{store: store, maxAttempts: maxAttempts}
}

// Next atomically increments the counter named by key and returns the
// formatted identifier. scope, when non-empty, partitions the sequence:
// the stored count resets to 1 whenever the stored scope differs from the
// supplied one. Unscoped sequences format as the decimal count, scoped as
// "<scope>-<count zero-padded to 8 digits>".
//
// On commit conflict the whole read-modify-write is retried from scratch,
// up to the configured number of attempts; after that Next fails with an
// ALLOCATION_CONTENTION error and no identifier has been consumed.
func (a *Allocator) Next(ctx context.Context, key, scope string) (string, error) {
	if key == "" {
		return "", apperror.NewInvalidInput("sequence key is required")
	}

	path := docstore.Join("counters", key)
	var issued int64

	for attempt := 1; attempt <= a.maxAttempts; attempt++ {
		err := a.store.Transact(ctx, func(ctx context.Context, tx docstore.Tx) error {
			var c counterDoc
			if err := tx.Get(path, &c); err != nil {
				if !errors.Is(err, docstore.ErrNotFound) {
					return err
				}
				c = counterDoc{}
			}
			if c.Scope != scope {
				// New scope (or lazily created counter): restart at 1.
				c.Count = 0
			}
			c.Count++
			c.Scope = scope
			issued = c.Count
			return tx.Set(path, c)
		})
		if err == nil {
			return Format(scope, issued), nil
		}
		if !errors.Is(err, docstore.ErrAborted) {
			return "", fmt.Errorf("increment %s: %w", path, err)
		}
		logger.Debug(ctx, "sequence commit conflict, retrying",
			"sequence", key,
			"attempt", attempt)
	}

	return "", apperror.NewAllocationContention(key, a.maxAttempts)
}

// Format renders an identifier the way Next would for the given scope and
// count. Exposed so callers and tests can compute expected identifiers.
func Format(scope string, count int64) string {
	if scope == "" {
		return strconv.FormatInt(count, 10)
	}
	return fmt.Sprintf("%s-%0*d", scope, padWidth, count)
}

// YearScope renders t's calendar year as a sequence scope.
func YearScope(t time.Time) string {
	return strconv.Itoa(t.Year())
}
