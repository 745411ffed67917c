// Package store persists Job and ExportJob records.
//
// The [JobStore] and [ExportStore] interfaces describe the persistence
// surface; [PostgresStore] implements both on PostgreSQL. Missing rows are
// reported as (nil, nil) so callers decide how absence maps to their error
// model.
package store

import (
	"context"
	"time"

	"github.com/meetmemo/meetmemo/internal/job"
)

// JobStore is the persistence surface for jobs.
type JobStore interface {
	// CreateJob inserts a new job and fills in CreatedAt.
	CreateJob(ctx context.Context, j *job.Job) error

	// GetJob fetches a job by ID. Returns (nil, nil) when absent.
	GetJob(ctx context.Context, id string) (*job.Job, error)

	// GetJobByHash fetches the most recently created job with the given file
	// hash. Returns (nil, nil) when absent.
	GetJobByHash(ctx context.Context, hash string) (*job.Job, error)

	// ListJobs returns a page ordered by created_at descending plus the total
	// job count.
	ListJobs(ctx context.Context, limit, offset int) ([]job.Job, int, error)

	// UpdateWorkflowState atomically sets state, status code, and step progress.
	UpdateWorkflowState(ctx context.Context, id string, state job.WorkflowState, statusCode, progress int) error

	// TransitionWorkflowState sets state, status code, and step progress only
	// when the job is currently in the from state. Reports whether the row was
	// updated, so concurrent starts of the same stage race on the database
	// instead of on a read-then-write gap.
	TransitionWorkflowState(ctx context.Context, id string, from, to job.WorkflowState, statusCode, progress int) (bool, error)

	// UpdateProgress sets the current step progress.
	UpdateProgress(ctx context.Context, id string, progress int) error

	// UpdateFileName renames the job's audio artifact reference.
	UpdateFileName(ctx context.Context, id, fileName string) error

	// SaveTranscription persists ASR output.
	SaveTranscription(ctx context.Context, id string, data *job.TranscriptionData) error

	// SaveDiarization persists diarization output.
	SaveDiarization(ctx context.Context, id string, data *job.DiarizationData) error

	// SetJobError moves the job to the error state with the given message.
	SetJobError(ctx context.Context, id, message string) error

	// DeleteJob removes a job, cascading to its export jobs. Reports whether a
	// row was deleted.
	DeleteJob(ctx context.Context, id string) (bool, error)

	// DeleteJobsOlderThan bulk-deletes jobs created before cutoff and returns
	// the deleted rows so the caller can reclaim artifacts.
	DeleteJobsOlderThan(ctx context.Context, cutoff time.Time) ([]job.Job, error)

	// MarkStaleInProgress flags jobs stuck in an -ing state (typically after a
	// crash) as errored. Returns the number of jobs updated.
	MarkStaleInProgress(ctx context.Context, message string) (int64, error)
}

// ExportStore is the persistence surface for export jobs.
type ExportStore interface {
	// CreateExport inserts a new export job and fills in CreatedAt.
	CreateExport(ctx context.Context, e *job.ExportJob) error

	// GetExport fetches an export job by ID. Returns (nil, nil) when absent.
	GetExport(ctx context.Context, id string) (*job.ExportJob, error)

	// ListExportsByJob returns all export jobs owned by the given job, so a
	// job delete can reclaim the rendered files alongside the cascading rows.
	ListExportsByJob(ctx context.Context, jobID string) ([]job.ExportJob, error)

	// UpdateExportProgress sets the progress percentage.
	UpdateExportProgress(ctx context.Context, id string, progress int) error

	// CompleteExport records the rendered artifact path and terminal success.
	CompleteExport(ctx context.Context, id, filePath string) error

	// SetExportError moves the export job to terminal failure.
	SetExportError(ctx context.Context, id, message string) error

	// DeleteExportsOlderThan bulk-deletes export jobs created before cutoff
	// and returns the deleted rows so the caller can reclaim files.
	DeleteExportsOlderThan(ctx context.Context, cutoff time.Time) ([]job.ExportJob, error)
}

// Store combines both persistence surfaces.
type Store interface {
	JobStore
	ExportStore
}
