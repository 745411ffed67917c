package ingest

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/meetmemo/meetmemo/internal/apperr"
	"github.com/meetmemo/meetmemo/internal/artifact"
	"github.com/meetmemo/meetmemo/internal/job"
	"github.com/meetmemo/meetmemo/internal/store/storemock"
)

// fakeConverter simulates ffmpeg by writing a WAV stub at dst.
type fakeConverter struct {
	fail  bool
	calls int
}

func (c *fakeConverter) Convert(_ context.Context, src, dst string) error {
	c.calls++
	if c.fail {
		return os.ErrInvalid
	}
	return os.WriteFile(dst, []byte("RIFFconverted"), 0o644)
}

func newTestService(t *testing.T, conv *fakeConverter) (*Service, *storemock.Store, *artifact.Store) {
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
	artifacts := artifact.NewStore(dirs)
	jobs := storemock.New()
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	svc := NewService(Config{
		Jobs:        jobs,
		Artifacts:   artifacts,
		Converter:   conv,
		MaxFileSize: 1 << 20,
		Log:         log,
	})
	return svc, jobs, artifacts
}

func TestService_CreateJob_WAV(t *testing.T) {
	t.Parallel()
	conv := &fakeConverter{}
	svc, _, artifacts := newTestService(t, conv)

	j, duplicate, err := svc.CreateJob(context.Background(), "meeting.wav", "audio/wav", strings.NewReader("RIFFdata"))
	if err != nil {
		t.Fatalf("CreateJob() unexpected error: %v", err)
	}
	if duplicate {
		t.Error("fresh upload reported as duplicate")
	}
	if j.WorkflowState != job.StateUploaded || j.StatusCode != job.StatusInProgress {
		t.Errorf("job = %+v", j)
	}
	if j.FileName != "meeting.wav" {
		t.Errorf("file name = %q", j.FileName)
	}
	if j.FileHash == "" {
		t.Error("hash not computed")
	}
	if conv.calls != 0 {
		t.Error("WAV upload should not be transcoded")
	}
	f, _, err := artifacts.OpenUpload("meeting.wav")
	if err != nil {
		t.Fatalf("upload missing: %v", err)
	}
	f.Close()
}

func TestService_CreateJob_Dedup(t *testing.T) {
	t.Parallel()
	svc, _, artifacts := newTestService(t, &fakeConverter{})

	first, _, err := svc.CreateJob(context.Background(), "meeting.wav", "", strings.NewReader("RIFFsame"))
	if err != nil {
		t.Fatal(err)
	}

	second, duplicate, err := svc.CreateJob(context.Background(), "other name.wav", "", strings.NewReader("RIFFsame"))
	if err != nil {
		t.Fatalf("CreateJob() unexpected error: %v", err)
	}
	if !duplicate {
		t.Fatal("same content not reported as duplicate")
	}
	if second.ID != first.ID {
		t.Errorf("duplicate returned job %s, want %s", second.ID, first.ID)
	}
	// The duplicate's bytes are discarded.
	if _, _, err := artifacts.OpenUpload("other name.wav"); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Error("duplicate upload bytes were kept")
	}
}

func TestService_CreateJob_Transcodes(t *testing.T) {
	t.Parallel()
	conv := &fakeConverter{}
	svc, _, artifacts := newTestService(t, conv)

	j, _, err := svc.CreateJob(context.Background(), "recording.mp3", "audio/mpeg", strings.NewReader("ID3data"))
	if err != nil {
		t.Fatalf("CreateJob() unexpected error: %v", err)
	}
	if conv.calls != 1 {
		t.Errorf("converter calls = %d", conv.calls)
	}
	if j.FileName != "recording.wav" {
		t.Errorf("file name = %q", j.FileName)
	}
	// Original mp3 is gone, converted wav remains.
	if _, _, err := artifacts.OpenUpload("recording.mp3"); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Error("original file survived transcode")
	}
	f, _, err := artifacts.OpenUpload("recording.wav")
	if err != nil {
		t.Fatalf("converted file missing: %v", err)
	}
	f.Close()
}

func TestService_CreateJob_TranscodeFailure(t *testing.T) {
	t.Parallel()
	conv := &fakeConverter{fail: true}
	svc, jobs, artifacts := newTestService(t, conv)

	_, _, err := svc.CreateJob(context.Background(), "recording.mp3", "", strings.NewReader("ID3data"))
	if !apperr.IsKind(err, apperr.KindExternal) {
		t.Fatalf("error = %v, want external", err)
	}
	// Both files are reclaimed and no job exists.
	if _, _, err := artifacts.OpenUpload("recording.mp3"); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Error("original file not reclaimed")
	}
	if _, total, _ := jobs.ListJobs(context.Background(), 10, 0); total != 0 {
		t.Errorf("jobs created = %d", total)
	}
}

func TestService_CreateJob_Oversize(t *testing.T) {
	t.Parallel()
	svc, jobs, _ := newTestService(t, &fakeConverter{})

	_, _, err := svc.CreateJob(context.Background(), "big.wav", "", strings.NewReader(strings.Repeat("x", 2<<20)))
	if !apperr.IsKind(err, apperr.KindTooLarge) {
		t.Fatalf("error = %v, want too-large", err)
	}
	if _, total, _ := jobs.ListJobs(context.Background(), 10, 0); total != 0 {
		t.Errorf("jobs created = %d", total)
	}
}

func TestService_CreateJob_ContentType(t *testing.T) {
	t.Parallel()
	conv := &fakeConverter{}
	svc, _, _ := newTestService(t, conv)
	svc.allowedTypes = []string{"audio/wav", "audio/mpeg"}

	if _, _, err := svc.CreateJob(context.Background(), "m.wav", "video/x-matroska", strings.NewReader("x")); !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("disallowed type: %v", err)
	}
	if _, _, err := svc.CreateJob(context.Background(), "m.wav", "audio/wav; codec=1", strings.NewReader("x")); err != nil {
		t.Errorf("allowed type with params: %v", err)
	}
}

func TestService_CreateJob_Extension(t *testing.T) {
	t.Parallel()
	conv := &fakeConverter{}
	svc, jobs, _ := newTestService(t, conv)
	svc.allowExt = func(ext string) bool { return strings.EqualFold(ext, ".wav") }

	if _, _, err := svc.CreateJob(context.Background(), "notes.txt", "", strings.NewReader("x")); !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("disallowed extension: %v", err)
	}
	if got, _, _ := jobs.ListJobs(context.Background(), 10, 0); len(got) != 0 {
		t.Errorf("rejected upload created %d jobs", len(got))
	}
	if _, _, err := svc.CreateJob(context.Background(), "meeting.WAV", "", strings.NewReader("RIFFx")); err != nil {
		t.Errorf("allowed extension: %v", err)
	}
}

func TestService_CreateJob_CollisionGetsCopySuffix(t *testing.T) {
	t.Parallel()
	svc, _, _ := newTestService(t, &fakeConverter{})

	if _, _, err := svc.CreateJob(context.Background(), "meeting.wav", "", strings.NewReader("RIFFone")); err != nil {
		t.Fatal(err)
	}
	j, duplicate, err := svc.CreateJob(context.Background(), "meeting.wav", "", strings.NewReader("RIFFtwo"))
	if err != nil || duplicate {
		t.Fatalf("second upload: dup=%v err=%v", duplicate, err)
	}
	if j.FileName != "meeting (Copy).wav" {
		t.Errorf("file name = %q", j.FileName)
	}
}

func TestService_CreateJob_UnsafeFilenameFallsBack(t *testing.T) {
	t.Parallel()
	svc, _, _ := newTestService(t, &fakeConverter{})

	j, _, err := svc.CreateJob(context.Background(), "###", "", strings.NewReader("RIFFdata"))
	if err != nil {
		t.Fatalf("CreateJob() unexpected error: %v", err)
	}
	if j.FileName == "###" || j.FileName == "" {
		t.Errorf("file name = %q, want fallback", j.FileName)
	}
}
