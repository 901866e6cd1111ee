package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"

	"github.com/kurihiro0119/bugfix-pairs/internal/domain"
	"github.com/kurihiro0119/bugfix-pairs/internal/storage"
)

// postgresStorage implements the Storage interface for PostgreSQL
type postgresStorage struct {
	db *sql.DB
}

// NewPostgresStorage creates a new PostgreSQL storage instance
func NewPostgresStorage(connStr string) (storage.Storage, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	s := &postgresStorage{db: db}
	if err := s.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Migrate runs database migrations
func (s *postgresStorage) Migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS bug_records (
		seq BIGSERIAL UNIQUE,
		id TEXT PRIMARY KEY,
		dataset TEXT NOT NULL,
		project TEXT NOT NULL,
		bug TEXT NOT NULL,
		status TEXT NOT NULL,
		files JSONB NOT NULL,
		error TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_bug_records_dataset_project ON bug_records(dataset, project);
	CREATE INDEX IF NOT EXISTS idx_bug_records_created_at ON bug_records(created_at);

	CREATE TABLE IF NOT EXISTS file_stats (
		dataset TEXT NOT NULL,
		filename TEXT NOT NULL,
		inserted INTEGER NOT NULL,
		deleted INTEGER NOT NULL,
		modified INTEGER NOT NULL,
		PRIMARY KEY (dataset, filename)
	);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// SaveBugRecord saves a ledger row
func (s *postgresStorage) SaveBugRecord(ctx context.Context, rec *domain.BugRecord) error {
	files, err := json.Marshal(rec.Files)
	if err != nil {
		return fmt.Errorf("failed to marshal files: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO bug_records (id, dataset, project, bug, status, files, error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING
	`, rec.ID, string(rec.Dataset), string(rec.Project), string(rec.Bug), string(rec.Status), files, rec.Error, rec.CreatedAt)
	return err
}

// GetBugRecords returns ledger rows oldest first
func (s *postgresStorage) GetBugRecords(ctx context.Context, dataset domain.Dataset, project domain.Project) ([]*domain.BugRecord, error) {
	query := `
		SELECT id, dataset, project, bug, status, files, error, created_at
		FROM bug_records
		WHERE dataset = $1`
	args := []interface{}{string(dataset)}
	if project != "" {
		query += ` AND project = $2`
		args = append(args, string(project))
	}
	query += ` ORDER BY created_at, seq`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*domain.BugRecord
	for rows.Next() {
		var rec domain.BugRecord
		var ds, proj, bug, status string
		var files []byte
		if err := rows.Scan(&rec.ID, &ds, &proj, &bug, &status, &files, &rec.Error, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.Dataset = domain.Dataset(ds)
		rec.Project = domain.Project(proj)
		rec.Bug = domain.BugID(bug)
		rec.Status = domain.BugStatus(status)
		if err := json.Unmarshal(files, &rec.Files); err != nil {
			return nil, fmt.Errorf("failed to unmarshal files of %s: %w", rec.ID, err)
		}
		records = append(records, &rec)
	}

	return records, rows.Err()
}

// SaveFileStats replaces the statistics of a dataset using COPY
func (s *postgresStorage) SaveFileStats(ctx context.Context, dataset domain.Dataset, stats []domain.FileStat) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM file_stats WHERE dataset = $1`, string(dataset)); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("file_stats", "dataset", "filename", "inserted", "deleted", "modified"))
	if err != nil {
		return err
	}
	for _, st := range dedupeStats(stats) {
		if _, err := stmt.ExecContext(ctx, string(dataset), st.Filename, st.Inserted, st.Deleted, st.Modified); err != nil {
			stmt.Close()
			return err
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		stmt.Close()
		return err
	}
	if err := stmt.Close(); err != nil {
		return err
	}

	return tx.Commit()
}

// GetFileStats returns the statistics of a dataset ordered by file name
func (s *postgresStorage) GetFileStats(ctx context.Context, dataset domain.Dataset) ([]domain.FileStat, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT filename, inserted, deleted, modified
		FROM file_stats
		WHERE dataset = $1
		ORDER BY filename
	`, string(dataset))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []domain.FileStat
	for rows.Next() {
		var st domain.FileStat
		if err := rows.Scan(&st.Filename, &st.Inserted, &st.Deleted, &st.Modified); err != nil {
			return nil, err
		}
		stats = append(stats, st)
	}

	return stats, rows.Err()
}

// Close closes the database connection
func (s *postgresStorage) Close() error {
	return s.db.Close()
}

// dedupeStats keeps the last row per file name, matching the
// INSERT OR REPLACE behaviour of the SQLite adapter.
func dedupeStats(stats []domain.FileStat) []domain.FileStat {
	index := make(map[string]int, len(stats))
	var out []domain.FileStat
	for _, st := range stats {
		if i, ok := index[st.Filename]; ok {
			out[i] = st
			continue
		}
		index[st.Filename] = len(out)
		out = append(out, st)
	}
	return out
}
