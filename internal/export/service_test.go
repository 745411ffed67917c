package export

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/meetmemo/meetmemo/internal/apperr"
	"github.com/meetmemo/meetmemo/internal/artifact"
	"github.com/meetmemo/meetmemo/internal/job"
	"github.com/meetmemo/meetmemo/internal/orchestrator"
	"github.com/meetmemo/meetmemo/internal/resilience"
	"github.com/meetmemo/meetmemo/internal/store/storemock"
	"github.com/meetmemo/meetmemo/internal/summary"
	"github.com/meetmemo/meetmemo/internal/transcript"
	llmmock "github.com/meetmemo/meetmemo/pkg/provider/llm/mock"
)

type testEnv struct {
	svc       *Service
	db        *storemock.Store
	artifacts *artifact.Store
	llm       *llmmock.Provider
	tasks     *orchestrator.TaskSet
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	root := t.TempDir()
	dirs := artifact.Dirs{
		Uploads:           filepath.Join(root, "uploads"),
		Transcripts:       filepath.Join(root, "transcripts"),
		TranscriptsEdited: filepath.Join(root, "transcripts_edited"),
		Summaries:         filepath.Join(root, "summaries"),
		Exports:           filepath.Join(root, "exports"),
	}
	for _, d := range []string{dirs.Uploads, dirs.Transcripts, dirs.TranscriptsEdited, dirs.Summaries, dirs.Exports} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	env := &testEnv{
		db:        storemock.New(),
		artifacts: artifact.NewStore(dirs),
		llm:       &llmmock.Provider{Response: "## Key Points\n\nLaunch moves to **October**."},
		tasks:     orchestrator.NewTaskSet(2),
	}
	breaker := resilience.NewBreaker(resilience.BreakerConfig{Name: "llm", ResetTimeout: time.Hour})
	env.svc = NewService(Config{
		DB:          env.db,
		Artifacts:   env.artifacts,
		Transcripts: transcript.NewService(env.db, env.artifacts, log),
		Summaries:   summary.NewService(summary.Config{LLM: env.llm, Artifacts: env.artifacts, Breaker: breaker, Log: log}),
		Tasks:       env.tasks,
		Location:    time.UTC,
		Log:         log,
	})
	env.svc.now = func() time.Time {
		return time.Date(2025, 1, 5, 14, 30, 0, 0, time.UTC)
	}
	return env
}

func (e *testEnv) seedCompleted(t *testing.T) {
	t.Helper()
	e.db.Seed(&job.Job{
		ID:            "job-1",
		FileName:      "Team Meeting.wav",
		WorkflowState: job.StateCompleted,
		StatusCode:    job.StatusDone,
	})
	segments := []job.TranscriptSegment{
		{Speaker: "SPEAKER_00", Text: "We reviewed the quarterly roadmap together today.", Start: "0.00", End: "2.00"},
		{Speaker: "SPEAKER_01", Text: "Marketing will prepare the updated launch messaging.", Start: "2.00", End: "5.50"},
	}
	data, err := json.Marshal(segments)
	if err != nil {
		t.Fatal(err)
	}
	if err := e.artifacts.WriteTranscript("Team Meeting", data); err != nil {
		t.Fatal(err)
	}
}

func TestService_Create_RendersMarkdown(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.seedCompleted(t)

	e, err := env.svc.Create(context.Background(), "job-1", "markdown")
	if err != nil {
		t.Fatalf("Create() unexpected error: %v", err)
	}
	if e.StatusCode != job.StatusInProgress {
		t.Errorf("status = %d", e.StatusCode)
	}
	env.tasks.Wait()

	got, _ := env.db.GetExport(context.Background(), e.ID)
	if !got.Ready() || got.Progress != 100 {
		t.Fatalf("export = %+v", got)
	}

	data, err := os.ReadFile(got.FilePath)
	if err != nil {
		t.Fatalf("rendered file missing: %v", err)
	}
	text := string(data)
	for _, want := range []string{
		"# Team Meeting",
		"*Generated on January 5, 2025 at 2:30 PM*",
		"## Summary",
		"## Key Points",
		"## Transcript",
		"**Speaker 1** *(0:00 - 0:02)*: We reviewed the quarterly roadmap together today.",
		"**Speaker 2** *(0:02 - 0:05)*: Marketing will prepare the updated launch messaging.",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("document missing %q", want)
		}
	}

	// The generated summary is cached for later summary reads.
	if _, err := env.artifacts.ReadSummary("job-1"); err != nil {
		t.Errorf("summary not cached: %v", err)
	}
}

func TestService_Create_TranscriptOnlySkipsLLM(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.seedCompleted(t)

	e, err := env.svc.Create(context.Background(), "job-1", "transcript_markdown")
	if err != nil {
		t.Fatal(err)
	}
	env.tasks.Wait()

	got, _ := env.db.GetExport(context.Background(), e.ID)
	data, err := os.ReadFile(got.FilePath)
	if err != nil {
		t.Fatalf("rendered file missing: %v", err)
	}
	if strings.Contains(string(data), "## Summary") {
		t.Error("transcript-only export contains a summary section")
	}
	if len(env.llm.Requests()) != 0 {
		t.Error("transcript-only export called the LLM")
	}
}

func TestService_Create_RendersPDF(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.seedCompleted(t)

	e, err := env.svc.Create(context.Background(), "job-1", "pdf")
	if err != nil {
		t.Fatal(err)
	}
	env.tasks.Wait()

	got, _ := env.db.GetExport(context.Background(), e.ID)
	if !got.Ready() {
		t.Fatalf("export = %+v", got)
	}
	data, err := os.ReadFile(got.FilePath)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Errorf("file does not start with a PDF header: %q", data[:min(8, len(data))])
	}
	if filepath.Ext(got.FilePath) != ".pdf" {
		t.Errorf("file path = %q", got.FilePath)
	}
}

func TestService_Create_Preconditions(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.db.Seed(&job.Job{ID: "job-2", FileName: "draft.wav", WorkflowState: job.StateTranscribed})

	if _, err := env.svc.Create(context.Background(), "job-2", "pdf"); !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("incomplete parent: error = %v, want validation", err)
	}
	if _, err := env.svc.Create(context.Background(), "missing", "pdf"); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Errorf("missing parent: error = %v, want not-found", err)
	}
	if _, err := env.svc.Create(context.Background(), "job-2", "docx"); !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("bad format: error = %v, want validation", err)
	}
}

func TestService_Create_RenderFailureRecorded(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	// Completed job but no transcript artifact on disk.
	env.db.Seed(&job.Job{ID: "job-1", FileName: "meeting.wav", WorkflowState: job.StateCompleted})

	e, err := env.svc.Create(context.Background(), "job-1", "markdown")
	if err != nil {
		t.Fatal(err)
	}
	env.tasks.Wait()

	got, _ := env.db.GetExport(context.Background(), e.ID)
	if got.StatusCode != job.StatusFailed || got.ErrorMessage == "" {
		t.Fatalf("export = %+v", got)
	}
}

func TestService_Get_ScopedToParent(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.db.SeedExports(&job.ExportJob{ID: "exp-1", JobID: "job-1", Type: job.ExportPDF})

	if _, err := env.svc.Get(context.Background(), "job-1", "exp-1"); err != nil {
		t.Errorf("matching parent: %v", err)
	}
	if _, err := env.svc.Get(context.Background(), "other-job", "exp-1"); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Errorf("wrong parent: error = %v, want not-found", err)
	}
}

func TestService_Download(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.seedCompleted(t)

	e, err := env.svc.Create(context.Background(), "job-1", "markdown")
	if err != nil {
		t.Fatal(err)
	}
	env.tasks.Wait()

	f, info, name, ct, err := env.svc.Download(context.Background(), "job-1", e.ID)
	if err != nil {
		t.Fatalf("Download() unexpected error: %v", err)
	}
	defer f.Close()

	if name != "team-meeting_summary_2025-01-05.md" {
		t.Errorf("download name = %q", name)
	}
	if ct != "text/markdown" {
		t.Errorf("content type = %q", ct)
	}
	if info.Size() == 0 {
		t.Error("empty download")
	}
}

func TestService_Download_NotReady(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.db.SeedExports(&job.ExportJob{
		ID: "exp-1", JobID: "job-1", Type: job.ExportPDF, StatusCode: job.StatusInProgress,
	})

	if _, _, _, _, err := env.svc.Download(context.Background(), "job-1", "exp-1"); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("error = %v, want not-found", err)
	}
}

func TestDownloadFilename(t *testing.T) {
	t.Parallel()
	now := time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		title string
		typ   job.ExportType
		want  string
	}{
		{"summary pdf", "Team Meeting", job.ExportPDF, "team-meeting_summary_2025-01-05.pdf"},
		{"transcript markdown", "Team Meeting", job.ExportTranscriptMarkdown, "team-meeting_transcript_2025-01-05.md"},
		{"strips odd characters", `Q3 <Plan>: "Review"`, job.ExportMarkdown, "q3-plan-review_summary_2025-01-05.md"},
		{"empty title", "   ", job.ExportPDF, "meeting_summary_2025-01-05.pdf"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := downloadFilename(tt.title, tt.typ, now); got != tt.want {
				t.Errorf("downloadFilename() = %q, want %q", got, tt.want)
			}
		})
	}
}
