// Package store keeps a SQLite catalog of converted documents and their
// structural records. Documents are identified by a BLAKE3 hash of the
// source bytes and grouped into runs with ULID identifiers, so a corpus can
// be regenerated from the catalog without reconverting anything.
package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/zeebo/blake3"
	_ "modernc.org/sqlite"

	"github.com/gaurav-prasanna/structmark/core"
)

// Document statuses.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// ErrNotFound is returned when a lookup matches nothing.
var ErrNotFound = errors.New("not found")

// Document is one catalog entry.
type Document struct {
	ID        int64
	RunID     string
	Source    string
	Hash      string
	Format    string
	Landscape bool
	Status    string
	Error     string
	Records   int
	CreatedAt time.Time
}

// Store is a SQLite-backed catalog. It is safe for concurrent use.
type Store struct {
	db *sql.DB

	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// Open opens (creating if needed) the catalog at path with WAL mode enabled.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening catalog %s: %w", path, err)
	}
	// One connection serializes writers; per-connection pragmas then hold.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return &Store{db: db, entropy: ulid.Monotonic(rand.Reader, 0)}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// initSchema creates tables if they don't exist
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS documents (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL,
	source TEXT NOT NULL,
	hash TEXT NOT NULL,
	format TEXT NOT NULL,
	landscape INTEGER NOT NULL DEFAULT 0,
	status TEXT NOT NULL,
	error TEXT NOT NULL DEFAULT '',
	record_count INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL,
	UNIQUE(run_id, source)
);

CREATE INDEX IF NOT EXISTS documents_hash ON documents(hash, status);

CREATE TABLE IF NOT EXISTS records (
	doc_id INTEGER NOT NULL,
	seq INTEGER NOT NULL,
	type TEXT NOT NULL,
	content TEXT NOT NULL,
	PRIMARY KEY(doc_id, seq),
	FOREIGN KEY(doc_id) REFERENCES documents(id) ON DELETE CASCADE
);
`
	_, err := db.ExecContext(ctx, schema)
	return err
}

// NewRunID returns a fresh, time-ordered run identifier.
func (s *Store) NewRunID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ulid.MustNew(ulid.Now(), s.entropy).String()
}

// HashFile returns the hex BLAKE3 digest of a file's contents.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	h := blake3.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Save records a document and replaces its records. A document is unique per
// run and source; saving it again overwrites the earlier entry.
func (s *Store) Save(ctx context.Context, d Document, records []core.Record) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now()
	}
	const stmt = `
INSERT INTO documents (run_id, source, hash, format, landscape, status, error, record_count, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(run_id, source) DO UPDATE SET
	hash=excluded.hash,
	format=excluded.format,
	landscape=excluded.landscape,
	status=excluded.status,
	error=excluded.error,
	record_count=excluded.record_count,
	created_at=excluded.created_at
RETURNING id;
`
	var id int64
	err = tx.QueryRowContext(ctx, stmt,
		d.RunID, d.Source, d.Hash, d.Format, d.Landscape, d.Status, d.Error, len(records),
		d.CreatedAt.UTC().Format(time.RFC3339Nano),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("saving document %s: %w", d.Source, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM records WHERE doc_id = ?`, id); err != nil {
		return 0, fmt.Errorf("clearing records: %w", err)
	}
	ins, err := tx.PrepareContext(ctx, `INSERT INTO records (doc_id, seq, type, content) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer ins.Close()
	for i, r := range records {
		if _, err := ins.ExecContext(ctx, id, i, r.TypeName(), r.Content); err != nil {
			return 0, fmt.Errorf("saving record %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

const documentColumns = `id, run_id, source, hash, format, landscape, status, error, record_count, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(row scanner) (Document, error) {
	var (
		d       Document
		created string
	)
	err := row.Scan(&d.ID, &d.RunID, &d.Source, &d.Hash, &d.Format, &d.Landscape, &d.Status, &d.Error, &d.Records, &created)
	if err != nil {
		return Document{}, err
	}
	d.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	return d, nil
}

// LatestByHash returns the most recent successful conversion of content with
// the given hash.
func (s *Store) LatestByHash(ctx context.Context, hash string) (Document, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE hash = ? AND status = ? ORDER BY id DESC LIMIT 1`,
		hash, StatusOK)
	d, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	return d, err
}

// Documents lists the documents of a run in insertion order.
func (s *Store) Documents(ctx context.Context, runID string) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// LatestRun returns the id of the most recent run.
func (s *Store) LatestRun(ctx context.Context) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `SELECT run_id FROM documents ORDER BY run_id DESC LIMIT 1`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return id, err
}

// Records returns a document's records in source order.
func (s *Store) Records(ctx context.Context, docID int64) ([]core.Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT type, content FROM records WHERE doc_id = ? ORDER BY seq`, docID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []core.Record
	for rows.Next() {
		var typ, content string
		if err := rows.Scan(&typ, &content); err != nil {
			return nil, err
		}
		l := core.ParseLabel(typ)
		records = append(records, core.Record{Kind: l.Kind, Level: l.Level, Content: content})
	}
	return records, rows.Err()
}

// RunRecords returns the records of every successful document of a run,
// documents in insertion order.
func (s *Store) RunRecords(ctx context.Context, runID string) ([]core.Record, error) {
	docs, err := s.Documents(ctx, runID)
	if err != nil {
		return nil, err
	}
	var all []core.Record
	for _, d := range docs {
		if d.Status != StatusOK {
			continue
		}
		recs, err := s.Records(ctx, d.ID)
		if err != nil {
			return nil, fmt.Errorf("loading records of %s: %w", d.Source, err)
		}
		all = append(all, recs...)
	}
	return all, nil
}
