package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/meetmemo/meetmemo/internal/job"
)

const jobColumns = `id, file_name, file_hash, workflow_state, status_code,
       current_step_progress, error_message, transcription_data,
       diarization_data, created_at`

// CreateJob inserts a new job row. The job keeps its caller-assigned ID;
// CreatedAt is filled from the database clock.
func (s *PostgresStore) CreateJob(ctx context.Context, j *job.Job) error {
	const query = `
		INSERT INTO jobs (id, file_name, file_hash, workflow_state, status_code)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`

	err := s.db.QueryRow(ctx, query,
		j.ID, j.FileName, j.FileHash, string(j.WorkflowState), j.StatusCode,
	).Scan(&j.CreatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("store: job with id %q already exists", j.ID)
		}
		return fmt.Errorf("store: create job: %w", err)
	}
	return nil
}

// GetJob retrieves a job by ID. Returns (nil, nil) when no row exists.
func (s *PostgresStore) GetJob(ctx context.Context, id string) (*job.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE id = $1`

	j, err := scanJob(s.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("store: get job %q: %w", id, err)
	}
	return j, nil
}

// GetJobByHash retrieves the most recently created job with the given file
// hash. Returns (nil, nil) when no row exists.
func (s *PostgresStore) GetJobByHash(ctx context.Context, hash string) (*job.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs
		WHERE file_hash = $1
		ORDER BY created_at DESC
		LIMIT 1`

	j, err := scanJob(s.db.QueryRow(ctx, query, hash))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("store: get job by hash: %w", err)
	}
	return j, nil
}

// ListJobs returns a page of jobs ordered by created_at descending, plus the
// total number of jobs.
func (s *PostgresStore) ListJobs(ctx context.Context, limit, offset int) ([]job.Job, int, error) {
	var total int
	if err := s.db.QueryRow(ctx, `SELECT count(*) FROM jobs`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("store: count jobs: %w", err)
	}

	query := `SELECT ` + jobColumns + ` FROM jobs
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`

	rows, err := s.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("store: list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []job.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("store: list jobs scan: %w", err)
		}
		jobs = append(jobs, *j)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("store: list jobs: %w", err)
	}
	return jobs, total, nil
}

// UpdateWorkflowState atomically sets workflow state, status code, and step
// progress in one row update.
func (s *PostgresStore) UpdateWorkflowState(ctx context.Context, id string, state job.WorkflowState, statusCode, progress int) error {
	const query = `
		UPDATE jobs
		SET workflow_state = $2, status_code = $3, current_step_progress = $4
		WHERE id = $1`

	tag, err := s.db.Exec(ctx, query, id, string(state), statusCode, progress)
	if err != nil {
		return fmt.Errorf("store: update workflow state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("store: job %q not found", id)
	}
	return nil
}

// TransitionWorkflowState performs a compare-and-set state change: the row
// is updated only when it is still in the from state. Returns false without
// error when the guard does not match (or the job is gone).
func (s *PostgresStore) TransitionWorkflowState(ctx context.Context, id string, from, to job.WorkflowState, statusCode, progress int) (bool, error) {
	const query = `
		UPDATE jobs
		SET workflow_state = $3, status_code = $4, current_step_progress = $5
		WHERE id = $1 AND workflow_state = $2`

	tag, err := s.db.Exec(ctx, query, id, string(from), string(to), statusCode, progress)
	if err != nil {
		return false, fmt.Errorf("store: transition workflow state: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// UpdateProgress sets the current step progress.
func (s *PostgresStore) UpdateProgress(ctx context.Context, id string, progress int) error {
	const query = `UPDATE jobs SET current_step_progress = $2 WHERE id = $1`
	if _, err := s.db.Exec(ctx, query, id, progress); err != nil {
		return fmt.Errorf("store: update progress: %w", err)
	}
	return nil
}

// UpdateFileName renames the job's audio artifact reference.
func (s *PostgresStore) UpdateFileName(ctx context.Context, id, fileName string) error {
	const query = `UPDATE jobs SET file_name = $2 WHERE id = $1`
	tag, err := s.db.Exec(ctx, query, id, fileName)
	if err != nil {
		return fmt.Errorf("store: update file name: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("store: job %q not found", id)
	}
	return nil
}

// SaveTranscription persists the ASR output as JSONB.
func (s *PostgresStore) SaveTranscription(ctx context.Context, id string, data *job.TranscriptionData) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("store: marshal transcription: %w", err)
	}
	const query = `UPDATE jobs SET transcription_data = $2 WHERE id = $1`
	if _, err := s.db.Exec(ctx, query, id, payload); err != nil {
		return fmt.Errorf("store: save transcription: %w", err)
	}
	return nil
}

// SaveDiarization persists the diarization output as JSONB.
func (s *PostgresStore) SaveDiarization(ctx context.Context, id string, data *job.DiarizationData) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("store: marshal diarization: %w", err)
	}
	const query = `UPDATE jobs SET diarization_data = $2 WHERE id = $1`
	if _, err := s.db.Exec(ctx, query, id, payload); err != nil {
		return fmt.Errorf("store: save diarization: %w", err)
	}
	return nil
}

// SetJobError moves the job to the error state with terminal failure status.
func (s *PostgresStore) SetJobError(ctx context.Context, id, message string) error {
	const query = `
		UPDATE jobs
		SET workflow_state = $2, status_code = $3, error_message = $4
		WHERE id = $1`

	_, err := s.db.Exec(ctx, query, id, string(job.StateError), job.StatusFailed, message)
	if err != nil {
		return fmt.Errorf("store: set job error: %w", err)
	}
	return nil
}

// DeleteJob removes a job. Export jobs cascade via the foreign key. Reports
// whether a row was deleted.
func (s *PostgresStore) DeleteJob(ctx context.Context, id string) (bool, error) {
	const query = `DELETE FROM jobs WHERE id = $1`
	tag, err := s.db.Exec(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("store: delete job %q: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

// DeleteJobsOlderThan bulk-deletes jobs created before cutoff, returning the
// deleted rows so the caller can reclaim their artifacts.
func (s *PostgresStore) DeleteJobsOlderThan(ctx context.Context, cutoff time.Time) ([]job.Job, error) {
	query := `DELETE FROM jobs WHERE created_at < $1 RETURNING ` + jobColumns

	rows, err := s.db.Query(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("store: delete expired jobs: %w", err)
	}
	defer rows.Close()

	var deleted []job.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("store: delete expired jobs scan: %w", err)
		}
		deleted = append(deleted, *j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: delete expired jobs: %w", err)
	}
	return deleted, nil
}

// MarkStaleInProgress flags jobs left in an -ing state as errored. Used at
// startup to surface work lost to a crash.
func (s *PostgresStore) MarkStaleInProgress(ctx context.Context, message string) (int64, error) {
	const query = `
		UPDATE jobs
		SET workflow_state = $1, status_code = $2, error_message = $3
		WHERE workflow_state IN ('transcribing', 'diarizing', 'aligning')`

	tag, err := s.db.Exec(ctx, query, string(job.StateError), job.StatusFailed, message)
	if err != nil {
		return 0, fmt.Errorf("store: mark stale jobs: %w", err)
	}
	return tag.RowsAffected(), nil
}

// scanJob reads one job row. Works for both pgx.Row and pgx.Rows.
func scanJob(row pgx.Row) (*job.Job, error) {
	var (
		j           job.Job
		state       string
		transcrJSON []byte
		diarizeJSON []byte
	)

	err := row.Scan(
		&j.ID, &j.FileName, &j.FileHash, &state, &j.StatusCode,
		&j.CurrentStepProgress, &j.ErrorMessage, &transcrJSON,
		&diarizeJSON, &j.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	j.WorkflowState = job.WorkflowState(state)

	if len(transcrJSON) > 0 {
		j.Transcription = &job.TranscriptionData{}
		if err := json.Unmarshal(transcrJSON, j.Transcription); err != nil {
			return nil, fmt.Errorf("unmarshal transcription_data: %w", err)
		}
	}
	if len(diarizeJSON) > 0 {
		j.Diarization = &job.DiarizationData{}
		if err := json.Unmarshal(diarizeJSON, j.Diarization); err != nil {
			return nil, fmt.Errorf("unmarshal diarization_data: %w", err)
		}
	}
	return &j, nil
}
