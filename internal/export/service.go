// Package export renders downloadable meeting documents (PDF or Markdown,
// with or without the generated summary) through a background job with its
// own progress record.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/meetmemo/meetmemo/internal/apperr"
	"github.com/meetmemo/meetmemo/internal/artifact"
	"github.com/meetmemo/meetmemo/internal/job"
	"github.com/meetmemo/meetmemo/internal/observe"
	"github.com/meetmemo/meetmemo/internal/orchestrator"
	"github.com/meetmemo/meetmemo/internal/store"
	"github.com/meetmemo/meetmemo/internal/summary"
	"github.com/meetmemo/meetmemo/internal/transcript"
)

// Service creates, renders, and serves export jobs.
type Service struct {
	db          store.Store
	artifacts   *artifact.Store
	transcripts *transcript.Service
	summaries   *summary.Service
	tasks       *orchestrator.TaskSet
	loc         *time.Location
	now         func() time.Time
	metrics     *observe.Metrics
	log         *slog.Logger
}

// Config bundles the export construction parameters.
type Config struct {
	DB          store.Store
	Artifacts   *artifact.Store
	Transcripts *transcript.Service
	Summaries   *summary.Service
	Tasks       *orchestrator.TaskSet

	// Location controls the "Generated on" timestamp shown in documents.
	// Defaults to time.Local.
	Location *time.Location

	// Metrics is optional; a nil value disables instrumentation.
	Metrics *observe.Metrics

	Log *slog.Logger
}

// NewService creates an export service.
func NewService(cfg Config) *Service {
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	return &Service{
		db:          cfg.DB,
		artifacts:   cfg.Artifacts,
		transcripts: cfg.Transcripts,
		summaries:   cfg.Summaries,
		tasks:       cfg.Tasks,
		loc:         loc,
		now:         time.Now,
		metrics:     cfg.Metrics,
		log:         cfg.Log,
	}
}

// Create validates the parent job and enqueues a render task. The returned
// record is in the in-progress state; clients poll Get until it is ready.
func (s *Service) Create(ctx context.Context, jobID, format string) (*job.ExportJob, error) {
	exportType, err := job.ParseExportType(format)
	if err != nil {
		return nil, apperr.Validation("unsupported export format %q", format)
	}

	parent, err := s.db.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if parent == nil {
		return nil, apperr.NotFound("job not found")
	}
	if parent.WorkflowState != job.StateCompleted {
		return nil, apperr.Validation(
			"cannot export a job in state %q: job must be completed", parent.WorkflowState)
	}

	e := &job.ExportJob{
		ID:         uuid.NewString(),
		JobID:      jobID,
		Type:       exportType,
		StatusCode: job.StatusInProgress,
	}
	if err := s.db.CreateExport(ctx, e); err != nil {
		return nil, err
	}

	s.log.Info("export started", "export_id", e.ID, "job_id", jobID, "format", exportType)
	s.tasks.Go(func() {
		s.render(context.Background(), e.ID)
	})
	return e, nil
}

// Get returns the export record, scoped to its parent job.
func (s *Service) Get(ctx context.Context, jobID, exportID string) (*job.ExportJob, error) {
	e, err := s.db.GetExport(ctx, exportID)
	if err != nil {
		return nil, err
	}
	if e == nil || e.JobID != jobID {
		return nil, apperr.NotFound("export job not found")
	}
	return e, nil
}

// Download opens the rendered artifact and returns it with the
// client-facing filename and content type. The caller closes the file.
func (s *Service) Download(ctx context.Context, jobID, exportID string) (*os.File, os.FileInfo, string, string, error) {
	e, err := s.Get(ctx, jobID, exportID)
	if err != nil {
		return nil, nil, "", "", err
	}
	if !e.Ready() {
		return nil, nil, "", "", apperr.NotFound("export file not ready")
	}

	parent, err := s.db.GetJob(ctx, jobID)
	if err != nil {
		return nil, nil, "", "", err
	}
	if parent == nil {
		return nil, nil, "", "", apperr.NotFound("job not found")
	}

	f, info, err := s.artifacts.OpenExport(filepath.Base(e.FilePath))
	if err != nil {
		return nil, nil, "", "", err
	}
	name := downloadFilename(parent.Title(), e.Type, s.now().In(s.loc))
	return f, info, name, contentType(e.Type), nil
}

// render is the background task body. Failures never propagate: they are
// written to the export record and the task terminates.
func (s *Service) render(ctx context.Context, exportID string) {
	if err := s.renderOnce(ctx, exportID); err != nil {
		s.log.Error("export failed", "export_id", exportID, "error", err)
		if dbErr := s.db.SetExportError(ctx, exportID, err.Error()); dbErr != nil {
			s.log.Error("recording export failure failed", "export_id", exportID, "error", dbErr)
		}
		return
	}
	s.log.Info("export completed", "export_id", exportID)
}

func (s *Service) renderOnce(ctx context.Context, exportID string) (err error) {
	e, err := s.db.GetExport(ctx, exportID)
	if err != nil {
		return err
	}
	if e == nil {
		return fmt.Errorf("export: record %s disappeared", exportID)
	}
	if s.metrics != nil {
		s.metrics.ActiveStageTasks.Add(ctx, 1)
		defer func() {
			s.metrics.ActiveStageTasks.Add(ctx, -1)
			status := "ok"
			if err != nil {
				status = "error"
			}
			s.metrics.RecordExport(ctx, string(e.Type), status)
		}()
	}
	parent, err := s.db.GetJob(ctx, e.JobID)
	if err != nil {
		return err
	}
	if parent == nil {
		return fmt.Errorf("export: parent job %s disappeared", e.JobID)
	}
	s.progress(ctx, exportID, 10)

	segments, _, err := s.transcripts.Get(ctx, e.JobID)
	if err != nil {
		return err
	}
	s.progress(ctx, exportID, 30)

	doc := &document{
		Title:       parent.Title(),
		GeneratedAt: s.now().In(s.loc),
		Segments:    segments,
	}
	if e.Type.IncludesSummary() {
		text, _, err := s.summaries.GetOrGenerate(ctx, e.JobID, transcript.FormatForLLM(segments))
		if err != nil {
			return err
		}
		doc.Summary = text
	}
	s.progress(ctx, exportID, 50)

	var data []byte
	switch e.Type.Ext() {
	case "pdf":
		data, err = renderPDF(doc)
		if err != nil {
			return err
		}
	default:
		data = renderMarkdown(doc)
	}
	s.progress(ctx, exportID, 80)

	path, err := s.artifacts.WriteExport(e.ID+"."+e.Type.Ext(), data)
	if err != nil {
		return err
	}
	return s.db.CompleteExport(ctx, exportID, path)
}

func (s *Service) progress(ctx context.Context, exportID string, pct int) {
	if err := s.db.UpdateExportProgress(ctx, exportID, pct); err != nil {
		s.log.Warn("export progress update failed", "export_id", exportID, "error", err)
	}
}

func contentType(t job.ExportType) string {
	if t.Ext() == "pdf" {
		return "application/pdf"
	}
	return "text/markdown"
}

// downloadFilename builds the client-facing attachment name from the meeting
// title, like "team-meeting_summary_2025-01-05.pdf".
func downloadFilename(title string, t job.ExportType, now time.Time) string {
	clean := strings.ToLower(strings.TrimSpace(title))
	if clean == "" {
		clean = "meeting"
	}
	var b strings.Builder
	for _, r := range clean {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		case r == ' ' || r == '\t':
			b.WriteByte('-')
		}
	}
	clean = strings.Trim(b.String(), "-")
	if len(clean) > 50 {
		clean = clean[:50]
	}
	if clean == "" {
		clean = "meeting"
	}

	kind := "transcript"
	if t.IncludesSummary() {
		kind = "summary"
	}
	return fmt.Sprintf("%s_%s_%s.%s", clean, kind, now.Format("2006-01-02"), t.Ext())
}
