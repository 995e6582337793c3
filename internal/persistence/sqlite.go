package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

const schema = `
CREATE TABLE IF NOT EXISTS annotation_revisions (
    seq           INTEGER PRIMARY KEY AUTOINCREMENT,
    request_id    TEXT NOT NULL UNIQUE,
    artifact_name TEXT NOT NULL,
    document_path TEXT NOT NULL,
    content       TEXT NOT NULL,
    category      TEXT NOT NULL DEFAULT '',
    text          TEXT NOT NULL DEFAULT '',
    project_id    INTEGER NOT NULL DEFAULT 0,
    revision_id   INTEGER NOT NULL DEFAULT 0,
    revision_no   INTEGER NOT NULL DEFAULT 0,
    created_at    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_annotation_revisions_artifact
    ON annotation_revisions (artifact_name, seq);
`

// Revision is one stored save.
type Revision struct {
	Seq       int64     `json:"seq" yaml:"seq"`
	RequestID string    `json:"requestId" yaml:"requestId"`
	Category  string    `json:"category" yaml:"category"`
	Text      string    `json:"text" yaml:"text"`
	CreatedAt time.Time `json:"createdAt" yaml:"createdAt"`
	Bytes     int       `json:"bytes" yaml:"bytes"`
}

// SQLiteBackend keeps every save as a revision; Fetch returns the newest.
type SQLiteBackend struct {
	db *sql.DB
}

// OpenSQLite opens (and creates) the database at dbPath.
func OpenSQLite(dbPath string) (*SQLiteBackend, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create db dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?mode=rwc&_pragma=busy_timeout(5000)", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &SQLiteBackend{db: db}, nil
}

// Close closes the database.
func (s *SQLiteBackend) Close() error {
	return s.db.Close()
}

// Store appends a revision. Requests without an id get a fresh one.
func (s *SQLiteBackend) Store(ctx context.Context, req SaveRequest) error {
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO annotation_revisions
            (request_id, artifact_name, document_path, content, category, text, project_id, revision_id, revision_no, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `,
		req.RequestID, req.ArtifactName, req.DocumentPath, req.Content,
		req.Category, req.Text, req.ProjectID, req.RevisionID, req.RevisionNo,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to insert revision: %w", err)
	}
	return nil
}

// Fetch returns the newest revision's content.
func (s *SQLiteBackend) Fetch(ctx context.Context, artifactName string) (string, error) {
	row := s.db.QueryRowContext(ctx, `
        SELECT content FROM annotation_revisions
        WHERE artifact_name = ?
        ORDER BY seq DESC LIMIT 1
    `, artifactName)

	var content string
	if err := row.Scan(&content); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to read revision: %w", err)
	}
	return content, nil
}

// History lists an artifact's revisions, oldest first.
func (s *SQLiteBackend) History(ctx context.Context, artifactName string) ([]Revision, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT seq, request_id, category, text, created_at, length(content)
        FROM annotation_revisions
        WHERE artifact_name = ?
        ORDER BY seq
    `, artifactName)
	if err != nil {
		return nil, fmt.Errorf("failed to query revisions: %w", err)
	}
	defer rows.Close()

	var out []Revision
	for rows.Next() {
		var r Revision
		var created string
		if err := rows.Scan(&r.Seq, &r.RequestID, &r.Category, &r.Text, &created, &r.Bytes); err != nil {
			return nil, fmt.Errorf("failed to scan revision: %w", err)
		}
		r.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, r)
	}
	return out, rows.Err()
}
