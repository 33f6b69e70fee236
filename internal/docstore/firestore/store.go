// Package firestore implements docstore.Store over Cloud Firestore, the
// hosted document database the back office runs against in production.
//
// Firestore's RunTransaction retries aborted commits internally by default.
// That built-in retry is unbounded under contention, so the adapter pins
// MaxAttempts(1) and surfaces docstore.ErrAborted instead: the bounded
// retry loop lives in the sequence allocator, not in the store.
package firestore

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/firestore"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Masaki-Miyazawa/erp/internal/docstore"
)

var tracer = otel.Tracer("erp/docstore/firestore")

// Store implements docstore.Store over a Firestore client.
type Store struct {
	client *firestore.Client
}

var _ docstore.Store = (*Store)(nil)

// New creates a store for the given project.
func New(ctx context.Context, projectID string) (*Store, error) {
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("firestore client: %w", err)
	}
	return &Store{client: client}, nil
}

// NewWithClient wraps an existing client (tests against the emulator).
func NewWithClient(client *firestore.Client) *Store {
	return &Store{client: client}
}

func (s *Store) doc(path string) (*firestore.DocumentRef, error) {
	if !docstore.ValidPath(path) {
		return nil, fmt.Errorf("docstore: invalid path %q", path)
	}
	ref := s.client.Doc(path)
	if ref == nil {
		return nil, fmt.Errorf("docstore: invalid firestore document path %q", path)
	}
	return ref, nil
}

func (s *Store) Get(ctx context.Context, path string, out any) error {
	ref, err := s.doc(path)
	if err != nil {
		return err
	}
	snap, err := ref.Get(ctx)
	if status.Code(err) == codes.NotFound {
		return fmt.Errorf("%w: %s", docstore.ErrNotFound, path)
	}
	if err != nil {
		return fmt.Errorf("get %s: %w", path, err)
	}
	return decodeSnapshot(snap, out)
}

func (s *Store) Put(ctx context.Context, path string, doc any) error {
	ref, err := s.doc(path)
	if err != nil {
		return err
	}
	fields, err := encodeDoc(doc)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	if _, err := ref.Set(ctx, fields); err != nil {
		return fmt.Errorf("put %s: %w", path, err)
	}
	return nil
}

func (s *Store) Transact(ctx context.Context, fn func(ctx context.Context, tx docstore.Tx) error) error {
	ctx, span := tracer.Start(ctx, "docstore.Transact")
	defer span.End()

	err := s.client.RunTransaction(ctx, func(ctx context.Context, ftx *firestore.Transaction) error {
		return fn(ctx, &fsTx{store: s, tx: ftx})
	}, firestore.MaxAttempts(1))

	if status.Code(err) == codes.Aborted {
		span.SetAttributes(attribute.Bool("tx.aborted", true))
		return fmt.Errorf("%w: %v", docstore.ErrAborted, err)
	}
	return err
}

func (s *Store) List(ctx context.Context, prefix string, fn func(path string, data []byte) error) error {
	col := s.client.Collection(prefix)
	if col == nil {
		return fmt.Errorf("docstore: invalid firestore collection path %q", prefix)
	}

	iter := col.Documents(ctx)
	defer iter.Stop()
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			return nil
		}
		if err != nil {
			return fmt.Errorf("list %s: %w", prefix, err)
		}
		data, err := json.Marshal(snap.Data())
		if err != nil {
			return fmt.Errorf("encode %s: %w", snap.Ref.Path, err)
		}
		if err := fn(docstore.Join(prefix, snap.Ref.ID), data); err != nil {
			return err
		}
	}
}

func (s *Store) Close() error {
	return s.client.Close()
}

// fsTx adapts firestore.Transaction to docstore.Tx. Firestore tracks the
// read set itself and aborts the commit when a read document changed.
type fsTx struct {
	store *Store
	tx    *firestore.Transaction
}

func (t *fsTx) Get(path string, out any) error {
	ref, err := t.store.doc(path)
	if err != nil {
		return err
	}
	snap, err := t.tx.Get(ref)
	if status.Code(err) == codes.NotFound {
		return fmt.Errorf("%w: %s", docstore.ErrNotFound, path)
	}
	if err != nil {
		return fmt.Errorf("get %s: %w", path, err)
	}
	return decodeSnapshot(snap, out)
}

func (t *fsTx) Set(path string, doc any) error {
	ref, err := t.store.doc(path)
	if err != nil {
		return err
	}
	fields, err := encodeDoc(doc)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	return t.tx.Set(ref, fields)
}

// encodeDoc converts a document to Firestore fields through its JSON form,
// so json tags govern the stored shape in every adapter.
func encodeDoc(doc any) (map[string]any, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

func decodeSnapshot(snap *firestore.DocumentSnapshot, out any) error {
	raw, err := json.Marshal(snap.Data())
	if err != nil {
		return fmt.Errorf("encode %s: %w", snap.Ref.Path, err)
	}
	return json.Unmarshal(raw, out)
}
