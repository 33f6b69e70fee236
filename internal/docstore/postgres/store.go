package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Masaki-Miyazawa/erp/internal/docstore"
)

var tracer = otel.Tracer("erp/docstore/postgres")

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Store implements docstore.Store over the documents table.
type Store struct {
	pool *pgxpool.Pool
}

var _ docstore.Store = (*Store)(nil)

// New creates a store over an existing pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Migrate creates the documents table if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS documents (
			path    text PRIMARY KEY,
			data    jsonb NOT NULL,
			version bigint NOT NULL DEFAULT 1
		)`)
	if err != nil {
		return fmt.Errorf("migrate documents table: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, path string, out any) error {
	query, args, err := psql.Select("data").From("documents").Where(sq.Eq{"path": path}).ToSql()
	if err != nil {
		return fmt.Errorf("build select: %w", err)
	}

	var data []byte
	if err := pgxscan.Get(ctx, s.pool, &data, query, args...); err != nil {
		if pgxscan.NotFound(err) {
			return fmt.Errorf("%w: %s", docstore.ErrNotFound, path)
		}
		return fmt.Errorf("get %s: %w", path, err)
	}
	return json.Unmarshal(data, out)
}

func (s *Store) Put(ctx context.Context, path string, doc any) error {
	if !docstore.ValidPath(path) {
		return fmt.Errorf("docstore: invalid path %q", path)
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}

	query, args, err := psql.Insert("documents").
		Columns("path", "data").
		Values(path, data).
		Suffix("ON CONFLICT (path) DO UPDATE SET data = EXCLUDED.data, version = documents.version + 1").
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("put %s: %w", path, err)
	}
	return nil
}

// Transact runs fn inside a serializable transaction. Writes additionally
// carry version guards from the read set, so a lost race surfaces as
// docstore.ErrAborted whether Postgres reports it as a serialization
// failure or as zero guarded rows.
func (s *Store) Transact(ctx context.Context, fn func(ctx context.Context, tx docstore.Tx) error) error {
	ctx, span := tracer.Start(ctx, "docstore.Transact")
	defer span.End()

	pgtx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = pgtx.Rollback(ctx) }()

	tx := &pgTx{ctx: ctx, tx: pgtx, reads: make(map[string]int64)}
	if err := fn(ctx, tx); err != nil {
		return mapConflict(err)
	}

	if err := tx.flush(); err != nil {
		span.SetAttributes(attribute.Bool("tx.aborted", errors.Is(mapConflict(err), docstore.ErrAborted)))
		return mapConflict(err)
	}

	span.SetAttributes(
		attribute.Int("tx.reads", len(tx.reads)),
		attribute.Int("tx.writes", len(tx.writes)),
	)

	if err := pgtx.Commit(ctx); err != nil {
		return mapConflict(fmt.Errorf("commit: %w", err))
	}
	return nil
}

func (s *Store) List(ctx context.Context, prefix string, fn func(path string, data []byte) error) error {
	// Paths are internal identifiers, no LIKE metacharacters expected.
	query, args, err := psql.Select("path", "data").From("documents").
		Where("path LIKE ?", prefix+"/%").
		Where("path NOT LIKE ?", prefix+"/%/%").
		OrderBy("path").
		ToSql()
	if err != nil {
		return fmt.Errorf("build list: %w", err)
	}

	var rows []struct {
		Path string `db:"path"`
		Data []byte `db:"data"`
	}
	if err := pgxscan.Select(ctx, s.pool, &rows, query, args...); err != nil {
		return fmt.Errorf("list %s: %w", prefix, err)
	}
	for _, row := range rows {
		if err := fn(row.Path, row.Data); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// pgTx tracks the read set (version at read time, 0 for absent documents)
// and buffers writes until flush.
type pgTx struct {
	ctx    context.Context
	tx     pgx.Tx
	reads  map[string]int64
	writes []write
}

type write struct {
	path string
	data []byte
}

func (t *pgTx) Get(path string, out any) error {
	query, args, err := psql.Select("data", "version").From("documents").Where(sq.Eq{"path": path}).ToSql()
	if err != nil {
		return fmt.Errorf("build select: %w", err)
	}

	var row struct {
		Data    []byte `db:"data"`
		Version int64  `db:"version"`
	}
	err = pgxscan.Get(t.ctx, t.tx, &row, query, args...)
	if pgxscan.NotFound(err) {
		if _, seen := t.reads[path]; !seen {
			t.reads[path] = 0
		}
		return fmt.Errorf("%w: %s", docstore.ErrNotFound, path)
	}
	if err != nil {
		return fmt.Errorf("get %s: %w", path, err)
	}
	if _, seen := t.reads[path]; !seen {
		t.reads[path] = row.Version
	}
	return json.Unmarshal(row.Data, out)
}

func (t *pgTx) Set(path string, doc any) error {
	if !docstore.ValidPath(path) {
		return fmt.Errorf("docstore: invalid path %q", path)
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	t.writes = append(t.writes, write{path: path, data: data})
	return nil
}

// flush applies buffered writes with version guards. A guard miss means
// another writer moved a read document since the snapshot.
func (t *pgTx) flush() error {
	for _, w := range t.writes {
		readVersion, wasRead := t.reads[w.path]

		var tag pgconn.CommandTag
		var err error
		switch {
		case wasRead && readVersion > 0:
			tag, err = t.tx.Exec(t.ctx,
				`UPDATE documents SET data = $2, version = version + 1 WHERE path = $1 AND version = $3`,
				w.path, w.data, readVersion)
		case wasRead:
			// Read observed absence: the insert must still win the race.
			tag, err = t.tx.Exec(t.ctx,
				`INSERT INTO documents (path, data) VALUES ($1, $2) ON CONFLICT (path) DO NOTHING`,
				w.path, w.data)
		default:
			// Blind write within the batch (caller-unique path).
			tag, err = t.tx.Exec(t.ctx,
				`INSERT INTO documents (path, data) VALUES ($1, $2)
				 ON CONFLICT (path) DO UPDATE SET data = EXCLUDED.data, version = documents.version + 1`,
				w.path, w.data)
		}
		if err != nil {
			return fmt.Errorf("write %s: %w", w.path, err)
		}
		if wasRead && tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: %s changed since snapshot", docstore.ErrAborted, w.path)
		}
	}
	return nil
}

// mapConflict converts Postgres concurrency failures to docstore.ErrAborted.
func mapConflict(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, docstore.ErrAborted) {
		return err
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 40001 serialization_failure, 40P01 deadlock_detected
		if pgErr.Code == "40001" || pgErr.Code == "40P01" {
			return fmt.Errorf("%w: %v", docstore.ErrAborted, err)
		}
	}
	return err
}
