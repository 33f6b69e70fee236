package sequence

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Masaki-Miyazawa/erp/internal/core/apperror"
	"github.com/Masaki-Miyazawa/erp/internal/docstore"
	"github.com/Masaki-Miyazawa/erp/internal/docstore/memory"
)

// abortStore always loses the commit race. Get/Put/List are never reached
// by the allocator.
type abortStore struct{}

func (abortStore) Get(ctx context.Context, path string, out any) error { return docstore.ErrNotFound }
func (abortStore) Put(ctx context.Context, path string, doc any) error { return nil }
func (abortStore) Transact(ctx context.Context, fn func(ctx context.Context, tx docstore.Tx) error) error {
	return docstore.ErrAborted
}
func (abortStore) List(ctx context.Context, prefix string, fn func(path string, data []byte) error) error {
	return nil
}
func (abortStore) Close() error { return nil }

func TestNextScopedSequence(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	if err := store.Put(ctx, "counters/orders", counterDoc{Count: 5, Scope: "2024"}); err != nil {
		t.Fatalf("seed counter: %v", err)
	}

	a := New(store, 0)
	for i, want := range []string{"2024-00000006", "2024-00000007", "2024-00000008"} {
		got, err := a.Next(ctx, "orders", "2024")
		if err != nil {
			t.Fatalf("allocation %d: %v", i, err)
		}
		if got != want {
			t.Errorf("allocation %d: expected %s, got %s", i, want, got)
		}
	}
}

func TestNextCreatesCounterLazily(t *testing.T) {
	a := New(memory.New(), 0)

	got, err := a.Next(context.Background(), "orders", "2024")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "2024-00000001" {
		t.Errorf("expected 2024-00000001, got %s", got)
	}
}

func TestNextUnscopedSequence(t *testing.T) {
	a := New(memory.New(), 0)
	ctx := context.Background()

	for i, want := range []string{"1", "2", "3"} {
		got, err := a.Next(ctx, "customers", "")
		if err != nil {
			t.Fatalf("allocation %d: %v", i, err)
		}
		if got != want {
			t.Errorf("allocation %d: expected %s, got %s", i, want, got)
		}
	}
}

func TestNextScopeRolloverResetsCount(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	if err := store.Put(ctx, "counters/orders", counterDoc{Count: 42, Scope: "2023"}); err != nil {
		t.Fatalf("seed counter: %v", err)
	}

	a := New(store, 0)
	got, err := a.Next(ctx, "orders", "2024")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "2024-00000001" {
		t.Errorf("expected rollover to 2024-00000001, got %s", got)
	}

	// The old scope is gone: counts never interleave across scopes.
	got, err = a.Next(ctx, "orders", "2024")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "2024-00000002" {
		t.Errorf("expected 2024-00000002, got %s", got)
	}
}

func TestNextConcurrentAllocationsAreUnique(t *testing.T) {
	const workers = 20

	store := memory.New()
	// Generous budget: with 20 racing goroutines a 5-attempt budget can
	// legitimately exhaust, which is not what this test is about.
	a := New(store, 1000)
	ctx := context.Background()

	var mu sync.Mutex
	issued := make(map[string]bool)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := a.Next(ctx, "orders", "2024")
			if err != nil {
				t.Errorf("allocation failed: %v", err)
				return
			}
			mu.Lock()
			if issued[id] {
				t.Errorf("duplicate identifier %s", id)
			}
			issued[id] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(issued) != workers {
		t.Fatalf("expected %d identifiers, got %d", workers, len(issued))
	}
	for n := int64(1); n <= workers; n++ {
		if !issued[Format("2024", n)] {
			t.Errorf("missing identifier %s: sequence has a gap", Format("2024", n))
		}
	}
}

func TestNextContentionExhaustsRetryBudget(t *testing.T) {
	a := New(abortStore{}, 3)

	_, err := a.Next(context.Background(), "orders", "2024")
	if !apperror.IsAllocationContention(err) {
		t.Fatalf("expected allocation contention, got %v", err)
	}

	appErr, _ := apperror.AsAppError(err)
	if appErr.Details["attempts"] != 3 {
		t.Errorf("expected attempts=3 in details, got %v", appErr.Details["attempts"])
	}
}

func TestNextRejectsEmptyKey(t *testing.T) {
	a := New(memory.New(), 0)

	_, err := a.Next(context.Background(), "", "2024")
	if !apperror.IsInvalidInput(err) {
		t.Errorf("expected invalid input, got %v", err)
	}
}

// errStore fails transactions with a non-conflict error.
type errStore struct {
	abortStore
	err error
}

func (s errStore) Transact(ctx context.Context, fn func(ctx context.Context, tx docstore.Tx) error) error {
	return s.err
}

func TestNextDoesNotRetryNonConflictErrors(t *testing.T) {
	boom := errors.New("connection reset")
	a := New(errStore{err: boom}, 5)

	_, err := a.Next(context.Background(), "orders", "2024")
	if !errors.Is(err, boom) {
		t.Fatalf("expected underlying error, got %v", err)
	}
	if apperror.IsAllocationContention(err) {
		t.Error("a non-conflict failure must not be reported as contention")
	}
}

func TestFormat(t *testing.T) {
	cases := []struct {
		scope string
		count int64
		want  string
	}{
		{"", 1, "1"},
		{"", 1234, "1234"},
		{"2024", 1, "2024-00000001"},
		{"2024", 99999999, "2024-99999999"},
		{"2024", 100000000, "2024-100000000"}, // padding never truncates
	}
	for _, c := range cases {
		t.Run(fmt.Sprintf("%s/%d", c.scope, c.count), func(t *testing.T) {
			if got := Format(c.scope, c.count); got != c.want {
				t.Errorf("Format(%q, %d) = %s, want %s", c.scope, c.count, got, c.want)
			}
		})
	}
}

func TestYearScope(t *testing.T) {
	ts := time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)
	if got := YearScope(ts); got != "2024" {
		t.Errorf("expected 2024, got %s", got)
	}
}
