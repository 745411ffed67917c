// Package orchestrator drives jobs through the processing workflow. It gates
// stage starts on the state machine, runs stages as detached background tasks
// with progress checkpoints, and owns the rename/delete lifecycle operations
// that touch both the database and the artifact tree.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/meetmemo/meetmemo/internal/apperr"
	"github.com/meetmemo/meetmemo/internal/artifact"
	"github.com/meetmemo/meetmemo/internal/job"
	"github.com/meetmemo/meetmemo/internal/observe"
	"github.com/meetmemo/meetmemo/internal/store"
	"github.com/meetmemo/meetmemo/pkg/provider/asr"
	"github.com/meetmemo/meetmemo/pkg/provider/diarize"
)

// Service coordinates stage execution and job lifecycle operations.
type Service struct {
	jobs      store.Store
	artifacts *artifact.Store
	asr       asr.Provider
	diarizer  diarize.Provider
	tasks     *TaskSet
	metrics   *observe.Metrics
	log       *slog.Logger
}

// Config bundles the orchestrator construction parameters.
type Config struct {
	Jobs      store.Store
	Artifacts *artifact.Store
	ASR       asr.Provider
	Diarizer  diarize.Provider
	Tasks     *TaskSet

	// Metrics is optional; a nil value disables instrumentation.
	Metrics *observe.Metrics

	Log *slog.Logger
}

// NewService creates an orchestrator.
func NewService(cfg Config) *Service {
	return &Service{
		jobs:      cfg.Jobs,
		artifacts: cfg.Artifacts,
		asr:       cfg.ASR,
		diarizer:  cfg.Diarizer,
		tasks:     cfg.Tasks,
		metrics:   cfg.Metrics,
		log:       cfg.Log,
	}
}

// StartStage validates the workflow precondition for stage, moves the job
// into the stage's active state, and schedules the stage body as a detached
// background task. The returned job reflects the active state.
func (s *Service) StartStage(ctx context.Context, jobID string, stage job.Stage) (*job.Job, error) {
	j, err := s.lookup(ctx, jobID)
	if err != nil {
		return nil, err
	}

	// Compare-and-set on the required state so two concurrent starts of the
	// same stage cannot both pass the gate.
	active := stage.ActiveState()
	ok, err := s.jobs.TransitionWorkflowState(ctx, jobID, stage.RequiredState(), active, job.StatusInProgress, 0)
	if err != nil {
		return nil, err
	}
	if !ok {
		if cur, err := s.jobs.GetJob(ctx, jobID); err == nil && cur != nil {
			j = cur
		}
		return nil, apperr.Validation(
			"invalid workflow state transition: cannot %s a job in state %q",
			stage, j.WorkflowState)
	}
	j.WorkflowState = active
	j.StatusCode = job.StatusInProgress
	j.CurrentStepProgress = 0

	s.log.Info("stage started", "job_id", jobID, "stage", stage)
	s.tasks.Go(func() {
		// The request context dies with the HTTP response; the stage runs on
		// its own lifetime.
		s.runStage(context.Background(), jobID, stage)
	})
	return j, nil
}

// RenameJob renames the job's audio file and moves the transcript artifacts
// with it. The new name must already carry an extension and survive
// sanitization unchanged in intent.
func (s *Service) RenameJob(ctx context.Context, jobID, newName string) (*job.Job, error) {
	j, err := s.lookup(ctx, jobID)
	if err != nil {
		return nil, err
	}

	clean, err := artifact.SanitizeFilename(newName)
	if err != nil {
		return nil, apperr.Validation("invalid file name: %v", err)
	}
	if clean == j.FileName {
		return j, nil
	}
	clean = artifact.UniqueFilename(s.artifacts.UploadDir(), clean)

	if err := s.artifacts.RenameUpload(j.FileName, clean); err != nil {
		return nil, err
	}
	oldBase := j.Basename()
	if err := s.jobs.UpdateFileName(ctx, jobID, clean); err != nil {
		// Best effort: put the audio back so disk and database stay in step.
		if rbErr := s.artifacts.RenameUpload(clean, j.FileName); rbErr != nil {
			s.log.Error("rename rollback failed", "job_id", jobID, "error", rbErr)
		}
		return nil, err
	}
	j.FileName = clean
	if err := s.artifacts.RenameTranscripts(oldBase, j.Basename()); err != nil {
		s.log.Warn("transcript rename failed", "job_id", jobID, "error", err)
	}

	s.log.Info("job renamed", "job_id", jobID, "file", clean)
	return j, nil
}

// DeleteJob removes the job row (cascading to export rows) and reclaims the
// job's files, including any rendered exports. Missing files are tolerated
// so a delete always converges.
func (s *Service) DeleteJob(ctx context.Context, jobID string) error {
	j, err := s.lookup(ctx, jobID)
	if err != nil {
		return err
	}

	// Snapshot the export rows before the cascade erases them; their files
	// can only be found through the recorded paths.
	exports, err := s.jobs.ListExportsByJob(ctx, jobID)
	if err != nil {
		return err
	}

	deleted, err := s.jobs.DeleteJob(ctx, jobID)
	if err != nil {
		return err
	}
	if !deleted {
		return apperr.NotFound("job not found")
	}

	if err := s.artifacts.RemoveUpload(j.FileName); err != nil {
		s.log.Warn("upload cleanup failed", "job_id", jobID, "error", err)
	}
	if err := s.artifacts.RemoveJobArtifacts(j.Basename(), jobID); err != nil {
		s.log.Warn("artifact cleanup failed", "job_id", jobID, "error", err)
	}
	for _, e := range exports {
		if e.FilePath == "" {
			continue
		}
		if err := s.artifacts.RemoveExport(e.FilePath); err != nil {
			s.log.Warn("export cleanup failed", "job_id", jobID, "export_id", e.ID, "error", err)
		}
	}

	s.log.Info("job deleted", "job_id", jobID)
	return nil
}

// lookup fetches a job and maps absence to a not-found error.
func (s *Service) lookup(ctx context.Context, jobID string) (*job.Job, error) {
	j, err := s.jobs.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if j == nil {
		return nil, apperr.NotFound("job not found")
	}
	return j, nil
}

// fail moves the job to the error state. It runs outside the failed
// operation's context so a cancelled stage can still record its failure.
func (s *Service) fail(jobID string, stage job.Stage, err error) {
	s.log.Error("stage failed", "job_id", jobID, "stage", stage, "error", err)
	msg := fmt.Sprintf("%s failed: %v", stage, err)
	if dbErr := s.jobs.SetJobError(context.Background(), jobID, msg); dbErr != nil {
		s.log.Error("recording stage failure failed", "job_id", jobID, "error", dbErr)
	}
}
