package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/nikah/internal/models"
	"github.com/hyperjump/nikah/pkg/apperrors"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every pooled connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db, path: dbPath, now: time.Now}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS rsvp_responses (
		row_index INTEGER PRIMARY KEY,
		english_name TEXT NOT NULL DEFAULT '',
		arabic_name TEXT NOT NULL DEFAULT '',
		family_group TEXT NOT NULL DEFAULT '',
		table_number TEXT NOT NULL DEFAULT '',
		attending INTEGER NOT NULL,
		language TEXT NOT NULL,
		submission_id TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_responses_updated_at ON rsvp_responses(updated_at);
	CREATE INDEX IF NOT EXISTS idx_responses_submission ON rsvp_responses(submission_id);

	CREATE TABLE IF NOT EXISTS search_quota (
		client_id TEXT PRIMARY KEY,
		window_start TIMESTAMP NOT NULL,
		search_count INTEGER NOT NULL
	);
	`
	_, err := db.Exec(schema)
	return err
}

// Path returns the database file path.
func (s *SQLiteStorage) Path() string {
	return s.path
}

// UpsertResponses writes every response in one transaction. An existing response for the same
// row is overwritten; its created_at is kept.
func (s *SQLiteStorage) UpsertResponses(ctx context.Context, responses []*models.Response) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.NewStorage("begin transaction", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO rsvp_responses
		 (row_index, english_name, arabic_name, family_group, table_number, attending, language, submission_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(row_index) DO UPDATE SET
		   english_name = excluded.english_name,
		   arabic_name = excluded.arabic_name,
		   family_group = excluded.family_group,
		   table_number = excluded.table_number,
		   attending = excluded.attending,
		   language = excluded.language,
		   submission_id = excluded.submission_id,
		   updated_at = excluded.updated_at`,
	)
	if err != nil {
		return apperrors.NewStorage("prepare upsert", err)
	}
	defer stmt.Close()

	now := s.now().UTC()
	for _, r := range responses {
		r.UpdatedAt = now
		if r.CreatedAt.IsZero() {
			r.CreatedAt = now
		}
		if _, err := stmt.ExecContext(ctx,
			r.RowIndex, r.EnglishName, r.ArabicName, r.FamilyGroup, r.TableNumber,
			r.Attending, string(r.Language), r.SubmissionID, r.CreatedAt, r.UpdatedAt,
		); err != nil {
			return apperrors.NewStorage(fmt.Sprintf("save response for row %d", r.RowIndex), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return apperrors.NewStorage("commit responses", err)
	}
	return nil
}

const responseColumns = `row_index, english_name, arabic_name, family_group, table_number,
	attending, language, submission_id, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanResponse(row scanner) (*models.Response, error) {
	var r models.Response
	var lang string
	if err := row.Scan(&r.RowIndex, &r.EnglishName, &r.ArabicName, &r.FamilyGroup, &r.TableNumber,
		&r.Attending, &lang, &r.SubmissionID, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	r.Language = models.Language(lang)
	return &r, nil
}

// GetResponse returns the stored response for a row.
func (s *SQLiteStorage) GetResponse(ctx context.Context, rowIndex int) (*models.Response, error) {
	r, err := scanResponse(s.db.QueryRowContext(ctx,
		`SELECT `+responseColumns+` FROM rsvp_responses WHERE row_index = ?`, rowIndex,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFound(fmt.Sprintf("no response for row %d", rowIndex))
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// ListResponses returns responses ordered by row index with offset and limit.
func (s *SQLiteStorage) ListResponses(ctx context.Context, offset, limit int) ([]*models.Response, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+responseColumns+` FROM rsvp_responses ORDER BY row_index LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Response
	for rows.Next() {
		r, err := scanResponse(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// SummarizeResponses counts responses by attendance.
func (s *SQLiteStorage) SummarizeResponses(ctx context.Context) (*models.ResponseSummary, error) {
	var sum models.ResponseSummary
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(attending), 0) FROM rsvp_responses`,
	).Scan(&sum.Total, &sum.Attending)
	if err != nil {
		return nil, err
	}
	sum.Declining = sum.Total - sum.Attending
	return &sum, nil
}

// UpdateQuota reads, applies fn and writes the quota window of clientID in one immediate
// transaction, which serializes concurrent updates.
func (s *SQLiteStorage) UpdateQuota(ctx context.Context, clientID string, fn func(w models.QuotaWindow, found bool) models.QuotaWindow) (models.QuotaWindow, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.QuotaWindow{}, err
	}
	defer tx.Rollback()

	var w models.QuotaWindow
	found := true
	err = tx.QueryRowContext(ctx,
		`SELECT window_start, search_count FROM search_quota WHERE client_id = ?`, clientID,
	).Scan(&w.Start, &w.Count)
	if errors.Is(err, sql.ErrNoRows) {
		found = false
	} else if err != nil {
		return models.QuotaWindow{}, err
	}

	next := fn(w, found)
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO search_quota (client_id, window_start, search_count) VALUES (?, ?, ?)
		 ON CONFLICT(client_id) DO UPDATE SET window_start = excluded.window_start, search_count = excluded.search_count`,
		clientID, next.Start.UTC(), next.Count,
	); err != nil {
		return models.QuotaWindow{}, err
	}
	if err := tx.Commit(); err != nil {
		return models.QuotaWindow{}, err
	}
	return next, nil
}

// GetQuota returns the stored quota window of clientID.
func (s *SQLiteStorage) GetQuota(ctx context.Context, clientID string) (models.QuotaWindow, bool, error) {
	var w models.QuotaWindow
	err := s.db.QueryRowContext(ctx,
		`SELECT window_start, search_count FROM search_quota WHERE client_id = ?`, clientID,
	).Scan(&w.Start, &w.Count)
	if errors.Is(err, sql.ErrNoRows) {
		return models.QuotaWindow{}, false, nil
	}
	if err != nil {
		return models.QuotaWindow{}, false, err
	}
	return w, true, nil
}

// PurgeQuotas deletes quota windows that started before cutoff.
func (s *SQLiteStorage) PurgeQuotas(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM search_quota WHERE window_start < ?`, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
