package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/Masaki-Miyazawa/erp/internal/docstore"
)

type testDoc struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

func TestPutGetRoundtrip(t *testing.T) {
	s := New()
	ctx := context.Background()

	in := testDoc{Name: "widget", Count: 3}
	if err := s.Put(ctx, "products/p-1", in); err != nil {
		t.Fatalf("put: %v", err)
	}

	var out testDoc
	if err := s.Get(ctx, "products/p-1", &out); err != nil {
		t.Fatalf("get: %v", err)
	}
	if out != in {
		t.Errorf("roundtrip mismatch: got %+v, want %+v", out, in)
	}
}

func TestGetMissing(t *testing.T) {
	s := New()

	var out testDoc
	err := s.Get(context.Background(), "products/nope", &out)
	if !errors.Is(err, docstore.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestPutRejectsInvalidPath(t *testing.T) {
	s := New()

	for _, path := range []string{"", "/leading", "trailing/", "a//b"} {
		if err := s.Put(context.Background(), path, testDoc{}); err == nil {
			t.Errorf("expected error for path %q", path)
		}
	}
}

func TestTransactGetReportsMissing(t *testing.T) {
	s := New()

	err := s.Transact(context.Background(), func(ctx context.Context, tx docstore.Tx) error {
		var out testDoc
		return tx.Get("counters/orders", &out)
	})
	if !errors.Is(err, docstore.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestTransactAbortsWhenReadDocChanges(t *testing.T) {
	s := New()
	ctx := context.Background()

	if err := s.Put(ctx, "counters/orders", testDoc{Count: 1}); err != nil {
		t.Fatalf("put: %v", err)
	}

	err := s.Transact(ctx, func(_ context.Context, tx docstore.Tx) error {
		var c testDoc
		if err := tx.Get("counters/orders", &c); err != nil {
			return err
		}
		// Another writer commits between our snapshot and our commit.
		if err := s.Put(ctx, "counters/orders", testDoc{Count: 99}); err != nil {
			return err
		}
		c.Count++
		return tx.Set("counters/orders", c)
	})
	if !errors.Is(err, docstore.ErrAborted) {
		t.Fatalf("expected ErrAborted, got %v", err)
	}

	// The losing transaction must leave no trace.
	var c testDoc
	if err := s.Get(ctx, "counters/orders", &c); err != nil {
		t.Fatalf("get: %v", err)
	}
	if c.Count != 99 {
		t.Errorf("expected interfering write to survive, got count=%d", c.Count)
	}
}

func TestTransactAbortsWhenReadAbsentDocAppears(t *testing.T) {
	s := New()
	ctx := context.Background()

	err := s.Transact(ctx, func(_ context.Context, tx docstore.Tx) error {
		var c testDoc
		if err := tx.Get("counters/orders", &c); !errors.Is(err, docstore.ErrNotFound) {
			return err
		}
		// Absence is part of the read set: a concurrent create conflicts.
		if err := s.Put(ctx, "counters/orders", testDoc{Count: 1}); err != nil {
			return err
		}
		return tx.Set("counters/orders", testDoc{Count: 1})
	})
	if !errors.Is(err, docstore.ErrAborted) {
		t.Fatalf("expected ErrAborted, got %v", err)
	}
}

func TestTransactAppliesAllWritesAtomically(t *testing.T) {
	s := New()
	ctx := context.Background()

	err := s.Transact(ctx, func(_ context.Context, tx docstore.Tx) error {
		if err := tx.Set("orders/2024-00000001", testDoc{Name: "header"}); err != nil {
			return err
		}
		return tx.Set("orders/2024-00000001/orderItems/1", testDoc{Name: "line"})
	})
	if err != nil {
		t.Fatalf("transact: %v", err)
	}

	var d testDoc
	if err := s.Get(ctx, "orders/2024-00000001", &d); err != nil {
		t.Errorf("header missing after commit: %v", err)
	}
	if err := s.Get(ctx, "orders/2024-00000001/orderItems/1", &d); err != nil {
		t.Errorf("item missing after commit: %v", err)
	}
}

func TestTransactCallbackErrorDiscardsWrites(t *testing.T) {
	s := New()
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.Transact(ctx, func(_ context.Context, tx docstore.Tx) error {
		if err := tx.Set("orders/2024-00000001", testDoc{}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected callback error, got %v", err)
	}

	var d testDoc
	if err := s.Get(ctx, "orders/2024-00000001", &d); !errors.Is(err, docstore.ErrNotFound) {
		t.Errorf("expected no write after failed callback, got %v", err)
	}
}

func TestListReturnsDirectChildrenOnly(t *testing.T) {
	s := New()
	ctx := context.Background()

	puts := map[string]testDoc{
		"orders/2024-00000001":              {Name: "a"},
		"orders/2024-00000002":              {Name: "b"},
		"orders/2024-00000001/orderItems/1": {Name: "line"},
		"customers/1":                       {Name: "c"},
	}
	for path, doc := range puts {
		if err := s.Put(ctx, path, doc); err != nil {
			t.Fatalf("put %s: %v", path, err)
		}
	}

	var got []string
	err := s.List(ctx, "orders", func(path string, _ []byte) error {
		got = append(got, path)
		return nil
	})
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	want := []string{"orders/2024-00000001", "orders/2024-00000002"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}
