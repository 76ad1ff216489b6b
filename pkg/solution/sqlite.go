package solution

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/matzehuels/formulascope/pkg/errors"
	"github.com/matzehuels/formulascope/pkg/observability"

	_ "modernc.org/sqlite"
)

const solutionSQLiteSchema = `
CREATE TABLE IF NOT EXISTS solutions (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT '',
	document BLOB NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS entities (
	kind TEXT NOT NULL,
	id TEXT NOT NULL,
	source TEXT NOT NULL DEFAULT '',
	document BLOB NOT NULL,
	PRIMARY KEY (kind, id)
);

CREATE TABLE IF NOT EXISTS imports (
	id TEXT PRIMARY KEY,
	solutions INTEGER NOT NULL,
	entities INTEGER NOT NULL,
	started_at TEXT NOT NULL,
	duration_ms INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_solutions_updated
ON solutions(updated_at DESC);`

// sqliteTimeLayout has fixed width so stored timestamps sort as text.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

// SQLiteStoreConfig configures the SQLite solution store.
type SQLiteStoreConfig struct {
	DSN string
}

// SQLiteStore keeps an offline copy of solutions in SQLite. Documents are
// stored as JSON next to the columns used for listing.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite-backed solution store.
func NewSQLiteStore(cfg SQLiteStoreConfig) (*SQLiteStore, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, apperrors.New(apperrors.ErrCodeInvalidConfig, "solution store sqlite dsn is required")
	}

	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeStore, err, "solution sqlite store open")
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, apperrors.Wrap(apperrors.ErrCodeStore, err, "solution sqlite store set WAL mode")
	}
	if _, err := db.Exec(solutionSQLiteSchema); err != nil {
		_ = db.Close()
		return nil, apperrors.Wrap(apperrors.ErrCodeStore, err, "solution sqlite store create schema")
	}
	return &SQLiteStore{db: db}, nil
}

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context, id string) (sol *Solution, err error) {
	done := observability.TrackQuery(ctx, "sqlite", "get")
	defer func() { done(err) }()

	if err := apperrors.ValidateObjectID(id); err != nil {
		return nil, err
	}
	var doc []byte
	err = s.db.QueryRowContext(ctx, `SELECT document FROM solutions WHERE id = ?`, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errSolutionNotFound(id)
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeStore, err, "solution sqlite store get %s", id)
	}
	return decodeSolution(doc)
}

// List implements Store.
func (s *SQLiteStore) List(ctx context.Context) (sols []*Solution, err error) {
	done := observability.TrackQuery(ctx, "sqlite", "list")
	defer func() { done(err) }()

	rows, err := s.db.QueryContext(ctx, `
SELECT document
FROM solutions
ORDER BY updated_at DESC, id ASC`)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeStore, err, "solution sqlite store list")
	}
	defer rows.Close()

	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrCodeStore, err, "solution sqlite store list")
		}
		sol, err := decodeSolution(doc)
		if err != nil {
			return nil, err
		}
		sols = append(sols, sol)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeStore, err, "solution sqlite store list")
	}
	return sols, nil
}

// Entity implements Store.
func (s *SQLiteStore) Entity(ctx context.Context, kind EntityKind, id string) (e Entity, err error) {
	done := observability.TrackQuery(ctx, "sqlite", "entity")
	defer func() { done(err) }()

	if err := apperrors.ValidateObjectID(id); err != nil {
		return Entity{}, err
	}
	var (
		doc    []byte
		source string
	)
	err = s.db.QueryRowContext(ctx,
		`SELECT document, source FROM entities WHERE kind = ? AND id = ?`, string(kind), id,
	).Scan(&doc, &source)
	if errors.Is(err, sql.ErrNoRows) {
		return Entity{}, errNotFound(kind, id)
	}
	if err != nil {
		return Entity{}, apperrors.Wrap(apperrors.ErrCodeStore, err, "solution sqlite store entity %s %s", kind, id)
	}
	if err := json.Unmarshal(doc, &e); err != nil {
		return Entity{}, apperrors.Wrap(apperrors.ErrCodeStore, err, "decode %s %s", kind, id)
	}
	e.Kind = kind
	e.Source = source
	return e, nil
}

// PutSolution implements Writer. Solutions without an id get a fresh one,
// and zero timestamps are set to now.
func (s *SQLiteStore) PutSolution(ctx context.Context, sol *Solution) error {
	if sol.ID == "" {
		sol.ID = newObjectID()
	}
	if err := apperrors.ValidateObjectID(sol.ID); err != nil {
		return err
	}
	now := time.Now().UTC()
	if sol.CreatedAt.IsZero() {
		sol.CreatedAt = now
	}
	if sol.UpdatedAt.IsZero() {
		sol.UpdatedAt = sol.CreatedAt
	}

	doc, err := json.Marshal(sol)
	if err != nil {
		return fmt.Errorf("encode solution %s: %w", sol.ID, err)
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO solutions (id, name, status, document, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	name = excluded.name,
	status = excluded.status,
	document = excluded.document,
	created_at = excluded.created_at,
	updated_at = excluded.updated_at`,
		sol.ID, sol.Name, sol.Status, doc,
		sol.CreatedAt.UTC().Format(sqliteTimeLayout),
		sol.UpdatedAt.UTC().Format(sqliteTimeLayout),
	)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrCodeStore, err, "solution sqlite store put %s", sol.ID)
	}
	return nil
}

// PutEntity implements Writer.
func (s *SQLiteStore) PutEntity(ctx context.Context, e Entity) error {
	if _, err := ParseEntityKind(string(e.Kind)); err != nil {
		return apperrors.Wrap(apperrors.ErrCodeInvalidInput, err, "entity %s", e.ID)
	}
	if err := apperrors.ValidateObjectID(e.ID); err != nil {
		return err
	}
	doc, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode entity %s: %w", e.ID, err)
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO entities (kind, id, source, document)
VALUES (?, ?, ?, ?)
ON CONFLICT(kind, id) DO UPDATE SET
	source = excluded.source,
	document = excluded.document`,
		string(e.Kind), e.ID, e.Source, doc,
	)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrCodeStore, err, "solution sqlite store put %s %s", e.Kind, e.ID)
	}
	return nil
}

// Imports returns the recorded import runs, newest first.
func (s *SQLiteStore) Imports(ctx context.Context) ([]ImportReport, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, solutions, entities, started_at, duration_ms
FROM imports
ORDER BY started_at DESC`)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeStore, err, "solution sqlite store imports")
	}
	defer rows.Close()

	var out []ImportReport
	for rows.Next() {
		var (
			rep     ImportReport
			started string
			ms      int64
		)
		if err := rows.Scan(&rep.ID, &rep.Solutions, &rep.Entities, &started, &ms); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrCodeStore, err, "solution sqlite store imports")
		}
		if rep.StartedAt, err = time.Parse(sqliteTimeLayout, started); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrCodeStore, err, "parse import time %q", started)
		}
		rep.Duration = time.Duration(ms) * time.Millisecond
		out = append(out, rep)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) recordImport(ctx context.Context, rep ImportReport) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO imports (id, solutions, entities, started_at, duration_ms)
VALUES (?, ?, ?, ?, ?)`,
		rep.ID, rep.Solutions, rep.Entities,
		rep.StartedAt.UTC().Format(sqliteTimeLayout), rep.Duration.Milliseconds(),
	)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrCodeStore, err, "solution sqlite store record import %s", rep.ID)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error { return s.db.Close() }

func decodeSolution(doc []byte) (*Solution, error) {
	var sol Solution
	if err := json.Unmarshal(doc, &sol); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeStore, err, "decode solution")
	}
	return &sol, nil
}

var (
	_ Store  = (*SQLiteStore)(nil)
	_ Writer = (*SQLiteStore)(nil)
)
