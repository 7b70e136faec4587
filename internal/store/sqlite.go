package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS inputs (
	id          TEXT PRIMARY KEY,
	user_id     TEXT NOT NULL,
	ec2         INTEGER NOT NULL,
	ec2_type    TEXT NOT NULL,
	s3          INTEGER NOT NULL,
	rds         INTEGER NOT NULL,
	top3_region TEXT NOT NULL,
	created_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS inputs_user ON inputs (user_id, created_at);
CREATE TABLE IF NOT EXISTS selections (
	id              TEXT PRIMARY KEY,
	user_id         TEXT NOT NULL,
	selected_region TEXT NOT NULL,
	repo_url        TEXT NOT NULL,
	access_key      TEXT NOT NULL,
	created_at      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS selections_user ON selections (user_id, created_at);
`

// SQLiteStore keeps records in a SQLite database.
type SQLiteStore struct {
	db  *sql.DB
	q   *Querier
	now func() time.Time
}

// OpenSQLite opens or creates the database at path and applies the schema.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// sqlite allows one writer at a time.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db, q: NewQuerier(db), now: time.Now}
	if err := s.q.Exec(context.Background(), schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return s, nil
}

// SaveInput inserts an input record and returns its UUID.
func (s *SQLiteStore) SaveInput(ctx context.Context, rec InputRecord) (string, error) {
	if rec.Top3Region == nil {
		rec.Top3Region = []string{}
	}
	top3, err := json.Marshal(rec.Top3Region)
	if err != nil {
		return "", fmt.Errorf("encode top regions: %w", err)
	}

	id := uuid.NewString()
	err = s.q.Exec(ctx,
		`INSERT INTO inputs (id, user_id, ec2, ec2_type, s3, rds, top3_region, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, normalizeID(rec.ID), rec.EC2, rec.EC2Type, rec.S3, rec.RDS, string(top3), s.timestamp(),
	)
	if err != nil {
		return "", fmt.Errorf("save input: %w", err)
	}
	return id, nil
}

// SaveSelection validates and inserts a selection, returning its UUID.
func (s *SQLiteStore) SaveSelection(ctx context.Context, rec SelectionRecord) (string, error) {
	if err := rec.Validate(); err != nil {
		return "", err
	}

	id := uuid.NewString()
	err := s.q.Exec(ctx,
		`INSERT INTO selections (id, user_id, selected_region, repo_url, access_key, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, strings.TrimSpace(rec.ID), rec.SelectedRegion, rec.RepoURL, rec.AccessKey, s.timestamp(),
	)
	if err != nil {
		return "", fmt.Errorf("save selection: %w", err)
	}
	return id, nil
}

// Inputs lists input records oldest first.
func (s *SQLiteStore) Inputs(ctx context.Context, userID string) ([]InputRecord, error) {
	var out []InputRecord
	err := s.q.QueryRows(ctx,
		`SELECT user_id, ec2, ec2_type, s3, rds, top3_region, created_at FROM inputs
		 WHERE ? = '' OR user_id = ? ORDER BY created_at, rowid`,
		func(rows *sql.Rows) error {
			var (
				rec       InputRecord
				top3      string
				createdAt string
			)
			if err := rows.Scan(&rec.ID, &rec.EC2, &rec.EC2Type, &rec.S3, &rec.RDS, &top3, &createdAt); err != nil {
				return err
			}
			if err := json.Unmarshal([]byte(top3), &rec.Top3Region); err != nil {
				return fmt.Errorf("decode top regions: %w", err)
			}
			rec.SavedAt = parseTimestamp(createdAt)
			out = append(out, rec)
			return nil
		},
		userID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list inputs: %w", err)
	}
	return out, nil
}

// Selections lists selection records oldest first.
func (s *SQLiteStore) Selections(ctx context.Context, userID string) ([]SelectionRecord, error) {
	var out []SelectionRecord
	err := s.q.QueryRows(ctx,
		`SELECT user_id, selected_region, repo_url, access_key, created_at FROM selections
		 WHERE ? = '' OR user_id = ? ORDER BY created_at, rowid`,
		func(rows *sql.Rows) error {
			var (
				rec       SelectionRecord
				createdAt string
			)
			if err := rows.Scan(&rec.ID, &rec.SelectedRegion, &rec.RepoURL, &rec.AccessKey, &createdAt); err != nil {
				return err
			}
			rec.SavedAt = parseTimestamp(createdAt)
			out = append(out, rec)
			return nil
		},
		userID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list selections: %w", err)
	}
	return out, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Fixed width so that text order is chronological.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func (s *SQLiteStore) timestamp() string {
	return s.now().UTC().Format(timeLayout)
}

func parseTimestamp(v string) time.Time {
	t, err := time.Parse(timeLayout, v)
	if err != nil {
		return time.Time{}
	}
	return t
}
