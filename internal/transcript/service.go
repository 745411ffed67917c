package transcript

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/meetmemo/meetmemo/internal/apperr"
	"github.com/meetmemo/meetmemo/internal/artifact"
	"github.com/meetmemo/meetmemo/internal/job"
	"github.com/meetmemo/meetmemo/internal/store"
)

// Service reads and mutates transcript artifacts. Any mutation that could
// change summarization input evicts the cached summary before the next read.
type Service struct {
	jobs      store.JobStore
	artifacts *artifact.Store
	log       *slog.Logger
}

// NewService creates a transcript service.
func NewService(jobs store.JobStore, artifacts *artifact.Store, log *slog.Logger) *Service {
	return &Service{jobs: jobs, artifacts: artifacts, log: log}
}

// Get returns the attributed transcript for a job, preferring the edited
// copy. The bool reports whether the edited copy was served.
func (s *Service) Get(ctx context.Context, jobID string) ([]job.TranscriptSegment, bool, error) {
	j, err := s.lookup(ctx, jobID)
	if err != nil {
		return nil, false, err
	}

	data, edited, err := s.artifacts.ReadTranscript(j.Basename())
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return nil, false, apperr.NotFound("transcript not found")
		}
		return nil, false, err
	}

	var segments []job.TranscriptSegment
	if err := json.Unmarshal(data, &segments); err != nil {
		return nil, false, fmt.Errorf("transcript: parse %s: %w", j.Basename(), err)
	}
	return segments, edited, nil
}

// PutEdited validates and stores an edited transcript, then invalidates the
// cached summary so the next summary read reflects the edit.
func (s *Service) PutEdited(ctx context.Context, jobID string, segments []job.TranscriptSegment) error {
	if segments == nil {
		return apperr.Validation("transcript must be an array of segments")
	}
	for i, seg := range segments {
		if seg.Speaker == "" {
			return apperr.Validation("segment %d: missing speaker", i)
		}
		if seg.Start == "" || seg.End == "" {
			return apperr.Validation("segment %d: missing timestamps", i)
		}
	}

	j, err := s.lookup(ctx, jobID)
	if err != nil {
		return err
	}

	data, err := json.Marshal(segments)
	if err != nil {
		return fmt.Errorf("transcript: marshal: %w", err)
	}
	if err := s.artifacts.WriteEditedTranscript(j.Basename(), data); err != nil {
		return err
	}
	s.invalidateSummary(jobID)
	return nil
}

// RenameSpeakers substitutes speaker labels per mapping (old label -> new
// label), writes the result as the edited transcript, and invalidates the
// cached summary.
func (s *Service) RenameSpeakers(ctx context.Context, jobID string, mapping map[string]string) error {
	if len(mapping) == 0 {
		return apperr.Validation("speaker mapping must not be empty")
	}

	j, err := s.lookup(ctx, jobID)
	if err != nil {
		return err
	}

	data, _, err := s.artifacts.ReadTranscript(j.Basename())
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return apperr.NotFound("transcript not found")
		}
		return err
	}
	var segments []job.TranscriptSegment
	if err := json.Unmarshal(data, &segments); err != nil {
		return fmt.Errorf("transcript: parse %s: %w", j.Basename(), err)
	}

	for i := range segments {
		if renamed, ok := mapping[segments[i].Speaker]; ok {
			segments[i].Speaker = renamed
		}
	}

	out, err := json.Marshal(segments)
	if err != nil {
		return fmt.Errorf("transcript: marshal: %w", err)
	}
	if err := s.artifacts.WriteEditedTranscript(j.Basename(), out); err != nil {
		return err
	}
	s.invalidateSummary(jobID)
	return nil
}

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

// invalidateSummary is best-effort: a stale summary is worse than a missing
// one, but a failed delete must not fail the edit itself.
func (s *Service) invalidateSummary(jobID string) {
	if err := s.artifacts.RemoveSummary(jobID); err != nil {
		s.log.Warn("summary invalidation failed", "job_id", jobID, "error", err)
	}
}
