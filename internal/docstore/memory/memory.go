// Package memory provides an in-process docstore.Store with the same
// optimistic-commit semantics as the hosted backends. Used by unit tests
// and local development.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/Masaki-Miyazawa/erp/internal/docstore"
)

type entry struct {
	data    []byte
	version int64
}

// Store keeps documents in a map guarded by a mutex. Every committed write
// bumps the document's version; transactions validate their read set against
// those versions at commit time, so concurrent transactions conflict exactly
// the way they would against the hosted store.
type Store struct {
	mu   sync.Mutex
	docs map[string]entry
}

var _ docstore.Store = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{docs: make(map[string]entry)}
}

func (s *Store) Get(ctx context.Context, path string, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	e, ok := s.docs[path]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", docstore.ErrNotFound, path)
	}
	return json.Unmarshal(e.data, out)
}

func (s *Store) Put(ctx context.Context, path string, doc any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !docstore.ValidPath(path) {
		return fmt.Errorf("docstore: invalid path %q", path)
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[path] = entry{data: data, version: s.docs[path].version + 1}
	return nil
}

func (s *Store) Transact(ctx context.Context, fn func(ctx context.Context, tx docstore.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &memTx{
		store:  s,
		reads:  make(map[string]int64),
		writes: make(map[string][]byte),
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	return s.commit(tx)
}

// commit validates the read set and applies buffered writes atomically.
func (s *Store) commit(tx *memTx) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for path, version := range tx.reads {
		if s.docs[path].version != version {
			return fmt.Errorf("%w: %s changed since snapshot", docstore.ErrAborted, path)
		}
	}
	for _, path := range tx.order {
		s.docs[path] = entry{data: tx.writes[path], version: s.docs[path].version + 1}
	}
	return nil
}

func (s *Store) List(ctx context.Context, prefix string, fn func(path string, data []byte) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	children := make([]string, 0)
	for path := range s.docs {
		rest, ok := strings.CutPrefix(path, prefix+"/")
		if !ok || strings.Contains(rest, "/") {
			continue
		}
		children = append(children, path)
	}
	sort.Strings(children)
	snapshot := make([][]byte, len(children))
	for i, path := range children {
		snapshot[i] = s.docs[path].data
	}
	s.mu.Unlock()

	for i, path := range children {
		if err := fn(path, snapshot[i]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Close() error { return nil }

// memTx tracks the read set (path -> version at read time; 0 means the
// document did not exist) and buffers writes until commit.
type memTx struct {
	store  *Store
	reads  map[string]int64
	writes map[string][]byte
	order  []string
}

func (t *memTx) Get(path string, out any) error {
	t.store.mu.Lock()
	e, ok := t.store.docs[path]
	t.store.mu.Unlock()
	if _, seen := t.reads[path]; !seen {
		t.reads[path] = e.version
	}
	if !ok {
		return fmt.Errorf("%w: %s", docstore.ErrNotFound, path)
	}
	return json.Unmarshal(e.data, out)
}

func (t *memTx) Set(path string, doc any) error {
	if !docstore.ValidPath(path) {
		return fmt.Errorf("docstore: invalid path %q", path)
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	if _, exists := t.writes[path]; !exists {
		t.order = append(t.order, path)
	}
	t.writes[path] = data
	return nil
}
