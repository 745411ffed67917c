package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/meetmemo/meetmemo/internal/job"
)

const exportColumns = `id, job_id, export_type, status_code,
       progress_percentage, file_path, error_message, created_at`

// CreateExport inserts a new export job row. CreatedAt is filled from the
// database clock.
func (s *PostgresStore) CreateExport(ctx context.Context, e *job.ExportJob) error {
	const query = `
		INSERT INTO export_jobs (id, job_id, export_type, status_code)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`

	err := s.db.QueryRow(ctx, query,
		e.ID, e.JobID, string(e.Type), e.StatusCode,
	).Scan(&e.CreatedAt)
	if err != nil {
		return fmt.Errorf("store: create export: %w", err)
	}
	return nil
}

// GetExport retrieves an export job by ID. Returns (nil, nil) when absent.
func (s *PostgresStore) GetExport(ctx context.Context, id string) (*job.ExportJob, error) {
	query := `SELECT ` + exportColumns + ` FROM export_jobs WHERE id = $1`

	e, err := scanExport(s.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("store: get export %q: %w", id, err)
	}
	return e, nil
}

// ListExportsByJob returns all export jobs owned by jobID, newest first.
func (s *PostgresStore) ListExportsByJob(ctx context.Context, jobID string) ([]job.ExportJob, error) {
	query := `SELECT ` + exportColumns + ` FROM export_jobs WHERE job_id = $1 ORDER BY created_at DESC`

	rows, err := s.db.Query(ctx, query, jobID)
	if err != nil {
		return nil, fmt.Errorf("store: list exports for job %q: %w", jobID, err)
	}
	defer rows.Close()

	var exports []job.ExportJob
	for rows.Next() {
		e, err := scanExport(rows)
		if err != nil {
			return nil, fmt.Errorf("store: list exports scan: %w", err)
		}
		exports = append(exports, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list exports for job %q: %w", jobID, err)
	}
	return exports, nil
}

// UpdateExportProgress sets the progress percentage.
func (s *PostgresStore) UpdateExportProgress(ctx context.Context, id string, progress int) error {
	const query = `UPDATE export_jobs SET progress_percentage = $2 WHERE id = $1`
	if _, err := s.db.Exec(ctx, query, id, progress); err != nil {
		return fmt.Errorf("store: update export progress: %w", err)
	}
	return nil
}

// CompleteExport records the rendered artifact path and terminal success.
func (s *PostgresStore) CompleteExport(ctx context.Context, id, filePath string) error {
	const query = `
		UPDATE export_jobs
		SET status_code = $2, progress_percentage = 100, file_path = $3
		WHERE id = $1`

	tag, err := s.db.Exec(ctx, query, id, job.StatusDone, filePath)
	if err != nil {
		return fmt.Errorf("store: complete export: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("store: export %q not found", id)
	}
	return nil
}

// SetExportError moves the export job to terminal failure.
func (s *PostgresStore) SetExportError(ctx context.Context, id, message string) error {
	const query = `
		UPDATE export_jobs
		SET status_code = $2, error_message = $3
		WHERE id = $1`

	if _, err := s.db.Exec(ctx, query, id, job.StatusFailed, message); err != nil {
		return fmt.Errorf("store: set export error: %w", err)
	}
	return nil
}

// DeleteExportsOlderThan bulk-deletes export jobs created before cutoff,
// returning the deleted rows so the caller can reclaim files.
func (s *PostgresStore) DeleteExportsOlderThan(ctx context.Context, cutoff time.Time) ([]job.ExportJob, error) {
	query := `DELETE FROM export_jobs WHERE created_at < $1 RETURNING ` + exportColumns

	rows, err := s.db.Query(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("store: delete expired exports: %w", err)
	}
	defer rows.Close()

	var deleted []job.ExportJob
	for rows.Next() {
		e, err := scanExport(rows)
		if err != nil {
			return nil, fmt.Errorf("store: delete expired exports scan: %w", err)
		}
		deleted = append(deleted, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: delete expired exports: %w", err)
	}
	return deleted, nil
}

// scanExport reads one export job row. Works for both pgx.Row and pgx.Rows.
func scanExport(row pgx.Row) (*job.ExportJob, error) {
	var (
		e   job.ExportJob
		typ string
	)
	err := row.Scan(
		&e.ID, &e.JobID, &typ, &e.StatusCode,
		&e.Progress, &e.FilePath, &e.ErrorMessage, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	e.Type = job.ExportType(typ)
	return &e, nil
}
