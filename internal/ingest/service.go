// Package ingest turns uploaded recordings into jobs: it streams and hashes
// the upload, normalizes the audio format, and suppresses duplicates by
// content hash.
package ingest

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/meetmemo/meetmemo/internal/apperr"
	"github.com/meetmemo/meetmemo/internal/artifact"
	"github.com/meetmemo/meetmemo/internal/job"
	"github.com/meetmemo/meetmemo/internal/observe"
	"github.com/meetmemo/meetmemo/internal/store"
	"github.com/meetmemo/meetmemo/pkg/audio"
)

// Service implements upload ingestion.
type Service struct {
	jobs         store.JobStore
	artifacts    *artifact.Store
	converter    audio.Converter
	maxFileSize  int64
	allowedTypes []string
	allowExt     func(ext string) bool
	metrics      *observe.Metrics
	log          *slog.Logger
}

// Config bundles the ingest construction parameters.
type Config struct {
	Jobs      store.JobStore
	Artifacts *artifact.Store
	Converter audio.Converter

	// MaxFileSize caps upload bytes; zero disables the cap.
	MaxFileSize int64

	// AllowedTypes lists acceptable upload content types. Empty allows all.
	AllowedTypes []string

	// AllowExt, when set, gates uploads by file extension. Browsers do not
	// always send a usable content type, so the extension is checked too.
	AllowExt func(ext string) bool

	// Metrics is optional; a nil value disables instrumentation.
	Metrics *observe.Metrics

	Log *slog.Logger
}

// NewService creates an ingest service.
func NewService(cfg Config) *Service {
	return &Service{
		jobs:         cfg.Jobs,
		artifacts:    cfg.Artifacts,
		converter:    cfg.Converter,
		maxFileSize:  cfg.MaxFileSize,
		allowedTypes: cfg.AllowedTypes,
		allowExt:     cfg.AllowExt,
		metrics:      cfg.Metrics,
		log:          cfg.Log,
	}
}

// CreateJob streams an upload to disk and creates a job for it. When the
// content hash matches an existing job, no new job is created: the saved
// bytes are discarded and the existing job is returned with duplicate=true.
//
// The hash always covers the originally uploaded bytes, never the
// transcoded WAV, so a pre-transcoded copy of the same source still dedupes.
func (s *Service) CreateJob(ctx context.Context, fileName, contentType string, r io.Reader) (j *job.Job, duplicate bool, err error) {
	if err := s.checkContentType(contentType); err != nil {
		return nil, false, err
	}
	if ext := filepath.Ext(fileName); s.allowExt != nil && !s.allowExt(ext) {
		return nil, false, apperr.Validation("unsupported audio format %q", ext)
	}

	name := artifact.SafeFilename(fileName)
	name = artifact.UniqueFilename(s.artifacts.UploadDir(), name)

	hash, size, err := s.artifacts.SaveUpload(name, r, s.maxFileSize)
	if err != nil {
		return nil, false, err
	}

	existing, err := s.jobs.GetJobByHash(ctx, hash)
	if err != nil {
		s.artifacts.RemoveUpload(name)
		return nil, false, err
	}
	if existing != nil {
		// Deduplication contract: discard the new bytes, return the existing
		// job verbatim.
		if err := s.artifacts.RemoveUpload(name); err != nil {
			s.log.Warn("duplicate upload cleanup failed", "file", name, "error", err)
		}
		s.log.Info("duplicate upload suppressed",
			"job_id", existing.ID, "file", name, "hash", hash)
		s.recordUpload(ctx, "duplicate")
		return existing, true, nil
	}

	finalName, err := s.normalize(ctx, name)
	if err != nil {
		return nil, false, err
	}

	j = &job.Job{
		ID:            uuid.NewString(),
		FileName:      finalName,
		FileHash:      hash,
		WorkflowState: job.StateUploaded,
		StatusCode:    job.StatusInProgress,
	}
	if err := s.jobs.CreateJob(ctx, j); err != nil {
		s.artifacts.RemoveUpload(finalName)
		return nil, false, err
	}

	s.log.Info("job created",
		"job_id", j.ID, "file", finalName, "bytes", size, "hash", hash)
	s.recordUpload(ctx, "created")
	return j, false, nil
}

func (s *Service) recordUpload(ctx context.Context, outcome string) {
	if s.metrics != nil {
		s.metrics.RecordUpload(ctx, outcome)
	}
}

// normalize transcodes non-WAV uploads to 16 kHz mono WAV, replacing the
// original file. Returns the final filename inside the upload directory.
func (s *Service) normalize(ctx context.Context, name string) (string, error) {
	if strings.EqualFold(filepath.Ext(name), ".wav") {
		return name, nil
	}

	base := strings.TrimSuffix(name, filepath.Ext(name))
	wavName := artifact.UniqueFilename(s.artifacts.UploadDir(), base+".wav")

	srcPath, err := artifact.ResolveWithin(s.artifacts.UploadDir(), name)
	if err != nil {
		return "", err
	}
	dstPath, err := artifact.ResolveWithin(s.artifacts.UploadDir(), wavName)
	if err != nil {
		return "", err
	}

	if err := s.converter.Convert(ctx, srcPath, dstPath); err != nil {
		if s.metrics != nil {
			s.metrics.RecordProviderError(ctx, "ffmpeg")
		}
		s.artifacts.RemoveUpload(name)
		s.artifacts.RemoveUpload(wavName)
		return "", apperr.External(err, "audio conversion failed")
	}
	if err := s.artifacts.RemoveUpload(name); err != nil {
		s.log.Warn("original upload cleanup failed", "file", name, "error", err)
	}
	return wavName, nil
}

func (s *Service) checkContentType(contentType string) error {
	if len(s.allowedTypes) == 0 || contentType == "" {
		return nil
	}
	// Strip any media-type parameters.
	mediaType := strings.TrimSpace(strings.Split(contentType, ";")[0])
	for _, allowed := range s.allowedTypes {
		if strings.EqualFold(mediaType, allowed) {
			return nil
		}
	}
	return apperr.Validation("unsupported content type %q", mediaType)
}
