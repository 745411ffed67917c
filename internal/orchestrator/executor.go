package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/meetmemo/meetmemo/internal/align"
	"github.com/meetmemo/meetmemo/internal/artifact"
	"github.com/meetmemo/meetmemo/internal/job"
)

// runStage executes one stage body and writes the terminal state. Progress
// checkpoints are advisory; a failed checkpoint update never fails the stage.
func (s *Service) runStage(ctx context.Context, jobID string, stage job.Stage) {
	start := time.Now()
	if s.metrics != nil {
		s.metrics.ActiveStageTasks.Add(ctx, 1)
		defer s.metrics.ActiveStageTasks.Add(ctx, -1)
	}
	var err error
	switch stage {
	case job.StageTranscribe:
		err = s.transcribe(ctx, jobID)
	case job.StageDiarize:
		err = s.diarize(ctx, jobID)
	case job.StageAlign:
		err = s.align(ctx, jobID)
	default:
		err = fmt.Errorf("orchestrator: unknown stage %q", stage)
	}

	status := "ok"
	if err != nil {
		status = "error"
	}
	if s.metrics != nil {
		s.metrics.RecordStage(ctx, string(stage), status, time.Since(start).Seconds())
	}
	if err != nil {
		s.fail(jobID, stage, err)
		return
	}
	s.log.Info("stage completed", "job_id", jobID, "stage", stage, "duration", time.Since(start))
}

func (s *Service) transcribe(ctx context.Context, jobID string) error {
	j, err := s.lookup(ctx, jobID)
	if err != nil {
		return err
	}
	s.progress(ctx, jobID, 10)

	audioPath, err := artifact.ResolveWithin(s.artifacts.UploadDir(), j.FileName)
	if err != nil {
		return err
	}
	result, err := s.asr.Transcribe(ctx, audioPath)
	if err != nil {
		s.recordProviderError(ctx, "whisper")
		return fmt.Errorf("transcription: %w", err)
	}
	s.progress(ctx, jobID, 90)

	data := &job.TranscriptionData{
		Text:     result.Text,
		Language: result.Language,
		Segments: make([]job.Segment, len(result.Segments)),
	}
	for i, seg := range result.Segments {
		data.Segments[i] = job.Segment{ID: seg.ID, Start: seg.Start, End: seg.End, Text: seg.Text}
	}
	if err := s.jobs.SaveTranscription(ctx, jobID, data); err != nil {
		return err
	}
	return s.jobs.UpdateWorkflowState(ctx, jobID, job.StateTranscribed, job.StatusInProgress, 100)
}

func (s *Service) diarize(ctx context.Context, jobID string) error {
	j, err := s.lookup(ctx, jobID)
	if err != nil {
		return err
	}
	s.progress(ctx, jobID, 10)

	audioPath, err := artifact.ResolveWithin(s.artifacts.UploadDir(), j.FileName)
	if err != nil {
		return err
	}
	result, err := s.diarizer.Diarize(ctx, audioPath)
	if err != nil {
		s.recordProviderError(ctx, "diarization")
		return fmt.Errorf("diarization: %w", err)
	}
	s.progress(ctx, jobID, 90)

	data := &job.DiarizationData{Turns: make([]job.Turn, len(result.Turns))}
	for i, turn := range result.Turns {
		data.Turns[i] = job.Turn{Start: turn.Start, End: turn.End, Speaker: turn.Speaker}
	}
	if err := s.jobs.SaveDiarization(ctx, jobID, data); err != nil {
		return err
	}
	return s.jobs.UpdateWorkflowState(ctx, jobID, job.StateDiarized, job.StatusInProgress, 100)
}

func (s *Service) align(ctx context.Context, jobID string) error {
	j, err := s.lookup(ctx, jobID)
	if err != nil {
		return err
	}
	s.progress(ctx, jobID, 10)

	if j.Transcription == nil {
		return fmt.Errorf("alignment: job has no transcription data")
	}
	if j.Diarization == nil {
		return fmt.Errorf("alignment: job has no diarization data")
	}
	s.progress(ctx, jobID, 30)

	segments := align.Align(j.Transcription.Segments, j.Diarization.Turns)
	s.progress(ctx, jobID, 50)

	data, err := json.MarshalIndent(segments, "", "  ")
	if err != nil {
		return fmt.Errorf("alignment: encode transcript: %w", err)
	}
	if err := s.artifacts.WriteTranscript(j.Basename(), data); err != nil {
		return err
	}
	s.progress(ctx, jobID, 80)

	return s.jobs.UpdateWorkflowState(ctx, jobID, job.StateCompleted, job.StatusDone, 100)
}

func (s *Service) recordProviderError(ctx context.Context, provider string) {
	if s.metrics != nil {
		s.metrics.RecordProviderError(ctx, provider)
	}
}

func (s *Service) progress(ctx context.Context, jobID string, pct int) {
	if err := s.jobs.UpdateProgress(ctx, jobID, pct); err != nil {
		s.log.Warn("progress update failed", "job_id", jobID, "progress", pct, "error", err)
	}
}
