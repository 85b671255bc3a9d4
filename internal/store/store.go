// Package store persists extracted question banks in SQLite or Postgres.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
	_ "modernc.org/sqlite"             // driver: sqlite

	"github.com/dgallion1/qbank/internal/extract"
)

type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

var (
	// ErrNotFound is returned when no extraction matches the lookup.
	ErrNotFound = errors.New("extraction not found")
	// ErrDuplicateID is returned when an ID is reused for a different
	// document.
	ErrDuplicateID = errors.New("extraction ID already used by another document")
)

// Extraction is one stored question bank: the questions produced from a
// single document together with where they came from.
type Extraction struct {
	ID          string             `json:"id" yaml:"id"`
	UserID      string             `json:"user_id" yaml:"user_id"`
	Filename    string             `json:"filename" yaml:"filename"`
	Subject     string             `json:"subject" yaml:"subject"`
	ContentHash string             `json:"content_hash" yaml:"content_hash"`
	Strategy    extract.Strategy   `json:"strategy" yaml:"strategy"`
	Dropped     int                `json:"dropped" yaml:"dropped"`
	Questions   []extract.Question `json:"questions" yaml:"questions"`
	CreatedAt   time.Time          `json:"created_at" yaml:"created_at"`
}

// Store is a question-bank repository over database/sql.
type Store struct {
	db     *sql.DB
	driver Driver
}

// Open opens a DB and ensures schema exists.
func Open(ctx context.Context, driver Driver, dsn string) (*Store, error) {
	var drvName string
	switch driver {
	case DriverSQLite:
		drvName = "sqlite" // modernc driver
		if dsn == "" {
			dsn = "file:qbank.db?mode=rwc&_pragma=busy_timeout(5000)"
		}
	case DriverPostgres:
		drvName = "pgx" // pgx stdlib driver
		if dsn == "" {
			dsn = "postgres://localhost:5432/qbank?sslmode=disable"
		}
	default:
		return nil, fmt.Errorf("unsupported driver: %q", driver)
	}

	db, err := sql.Open(drvName, dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	if driver == DriverSQLite {
		// One writer; also keeps ":memory:" databases on a single connection.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}

	if err := ensureSchema(ctx, db, driver); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: schema: %w", err)
	}
	return &Store{db: db, driver: driver}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// SaveExtraction inserts e, assigning an ID and creation time when unset.
func (s *Store) SaveExtraction(ctx context.Context, e *Extraction) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	qs := e.Questions
	if qs == nil {
		qs = []extract.Question{}
	}
	qj, err := json.Marshal(qs)
	if err != nil {
		return fmt.Errorf("marshal questions: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `INSERT INTO extractions
		(id,user_id,filename,subject,content_hash,strategy,dropped,question_count,questions_json,created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (id) DO NOTHING`,
		e.ID, e.UserID, e.Filename, e.Subject, e.ContentHash, string(e.Strategy), e.Dropped,
		len(qs), string(qj), e.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("insert extraction %s: %w", e.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert extraction %s: %w", e.ID, err)
	}
	if n > 0 {
		return nil
	}

	// The ID already exists. Replaying the same document is a no-op.
	var userID, hash string
	err = s.db.QueryRowContext(ctx, `SELECT user_id,content_hash FROM extractions WHERE id=$1`, e.ID).
		Scan(&userID, &hash)
	if err != nil {
		return fmt.Errorf("check extraction %s: %w", e.ID, err)
	}
	if userID != e.UserID || hash != e.ContentHash {
		return fmt.Errorf("extraction %s: %w", e.ID, ErrDuplicateID)
	}
	return nil
}

const selectColumns = `SELECT id,user_id,filename,subject,content_hash,strategy,dropped,questions_json,created_at FROM extractions`

// GetExtraction returns the extraction with the given ID.
func (s *Store) GetExtraction(ctx context.Context, id string) (*Extraction, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+` WHERE id=$1`, id)
	return scanExtraction(row)
}

// FindByHash returns the most recent extraction of identical content for a
// user, or ErrNotFound.
func (s *Store) FindByHash(ctx context.Context, userID, contentHash string) (*Extraction, error) {
	row := s.db.QueryRowContext(ctx,
		selectColumns+` WHERE user_id=$1 AND content_hash=$2 ORDER BY created_at DESC LIMIT 1`,
		userID, contentHash)
	return scanExtraction(row)
}

// ListExtractions returns a user's extractions, newest first.
func (s *Store) ListExtractions(ctx context.Context, userID string) ([]Extraction, error) {
	rows, err := s.db.QueryContext(ctx,
		selectColumns+` WHERE user_id=$1 ORDER BY created_at DESC, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list extractions: %w", err)
	}
	defer rows.Close()

	out := []Extraction{}
	for rows.Next() {
		e, err := scanExtraction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list extractions: %w", err)
	}
	return out, nil
}

// DeleteExtraction removes an extraction. Deleting a missing ID returns
// ErrNotFound.
func (s *Store) DeleteExtraction(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM extractions WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete extraction %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete extraction %s: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanExtraction(row scanner) (*Extraction, error) {
	var (
		e        Extraction
		strategy string
		qjson    string
		created  int64
	)
	err := row.Scan(&e.ID, &e.UserID, &e.Filename, &e.Subject, &e.ContentHash,
		&strategy, &e.Dropped, &qjson, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan extraction: %w", err)
	}
	if err := json.Unmarshal([]byte(qjson), &e.Questions); err != nil {
		return nil, fmt.Errorf("decode questions of %s: %w", e.ID, err)
	}
	e.Strategy = extract.Strategy(strategy)
	e.CreatedAt = time.UnixMilli(created).UTC()
	return &e, nil
}

func ensureSchema(ctx context.Context, db *sql.DB, driver Driver) error {
	var schema string
	switch driver {
	case DriverSQLite:
		schema = schemaSQLite
	case DriverPostgres:
		schema = schemaPostgres
	}
	_, err := db.ExecContext(ctx, schema)
	return err
}

const schemaSQLite = `
CREATE TABLE IF NOT EXISTS extractions (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  filename TEXT NOT NULL DEFAULT '',
  subject TEXT NOT NULL DEFAULT '',
  content_hash TEXT NOT NULL DEFAULT '',
  strategy TEXT NOT NULL DEFAULT '',
  dropped INTEGER NOT NULL DEFAULT 0,
  question_count INTEGER NOT NULL DEFAULT 0,
  questions_json TEXT NOT NULL,
  created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_extractions_user_hash ON extractions (user_id, content_hash);
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS extractions (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  filename TEXT NOT NULL DEFAULT '',
  subject TEXT NOT NULL DEFAULT '',
  content_hash TEXT NOT NULL DEFAULT '',
  strategy TEXT NOT NULL DEFAULT '',
  dropped INTEGER NOT NULL DEFAULT 0,
  question_count INTEGER NOT NULL DEFAULT 0,
  questions_json TEXT NOT NULL,
  created_at BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_extractions_user_hash ON extractions (user_id, content_hash);
`
