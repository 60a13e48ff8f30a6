package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schema string

// CredentialName is the secrets row holding the classifier credential
const CredentialName = "classifier-api-key"

// DB holds the application's local state that does not belong in the
// hand-editable documents: the classifier credential, notice history and a
// log of classification runs.
type DB struct {
	db *sql.DB
}

// Notice is a stored user-visible notice
type Notice struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// Run is one recorded classification attempt
type Run struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Status    string    `json:"status"`
	Category  string    `json:"category,omitempty"`
	Summary   string    `json:"summary,omitempty"`
	ErrorKind string    `json:"error_kind,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Open opens (and initializes) the database at dbPath
func Open(dbPath string) (*DB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &DB{db: db}, nil
}

// Close closes the database connection
func (s *DB) Close() error {
	return s.db.Close()
}

// GetSecret returns the named secret; ok is false when it is not set
func (s *DB) GetSecret(ctx context.Context, name string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM secrets WHERE name = ?", name).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get secret: %w", err)
	}
	return value, true, nil
}

// SetSecret stores or replaces the named secret
func (s *DB) SetSecret(ctx context.Context, name, value string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO secrets (name, value, updated_at) VALUES (?, ?, ?)",
		name, value, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("set secret: %w", err)
	}
	return nil
}

// DeleteSecret removes the named secret; deleting a missing secret is fine
func (s *DB) DeleteSecret(ctx context.Context, name string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM secrets WHERE name = ?", name); err != nil {
		return fmt.Errorf("delete secret: %w", err)
	}
	return nil
}

// AddNotice records a notice and returns it
func (s *DB) AddNotice(ctx context.Context, kind, title, body string) (*Notice, error) {
	n := &Notice{
		ID:        uuid.New().String(),
		Kind:      kind,
		Title:     title,
		Body:      body,
		CreatedAt: time.Now(),
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO notices (id, kind, title, body, created_at) VALUES (?, ?, ?, ?, ?)",
		n.ID, n.Kind, n.Title, n.Body, n.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert notice: %w", err)
	}
	return n, nil
}

// ListNotices returns the most recent notices first
func (s *DB) ListNotices(ctx context.Context, limit int) ([]Notice, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, kind, title, body, created_at FROM notices ORDER BY created_at DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list notices: %w", err)
	}
	defer rows.Close()

	var notices []Notice
	for rows.Next() {
		var n Notice
		if err := rows.Scan(&n.ID, &n.Kind, &n.Title, &n.Body, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notice: %w", err)
		}
		notices = append(notices, n)
	}

	return notices, rows.Err()
}

// RecordRun logs a classification attempt
func (s *DB) RecordRun(ctx context.Context, r Run) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO classifications (id, url, status, category, summary, error_kind, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.URL, r.Status, r.Category, r.Summary, r.ErrorKind, r.Error, r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// ListRuns returns recent classification attempts, optionally for one url
func (s *DB) ListRuns(ctx context.Context, url string, limit int) ([]Run, error) {
	query := "SELECT id, url, status, category, summary, error_kind, error, created_at FROM classifications"
	args := []interface{}{}
	if url != "" {
		query += " WHERE url = ?"
		args = append(args, url)
	}
	query += " ORDER BY created_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.URL, &r.Status, &r.Category, &r.Summary, &r.ErrorKind, &r.Error, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}

	return runs, rows.Err()
}
