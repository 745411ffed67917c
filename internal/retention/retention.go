// Package retention garbage-collects expired jobs, expired exports, and
// orphaned upload files on a periodic schedule.
package retention

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/meetmemo/meetmemo/internal/artifact"
	"github.com/meetmemo/meetmemo/internal/store"
)

const (
	defaultInterval        = time.Hour
	defaultJobRetention    = 12 * time.Hour
	defaultExportRetention = 24 * time.Hour
	defaultOrphanAge       = time.Hour
	defaultErrorBackoff    = 10 * time.Minute
)

// Scheduler runs the periodic cleanup sweep.
type Scheduler struct {
	db        store.Store
	artifacts *artifact.Store

	interval        time.Duration
	jobRetention    time.Duration
	exportRetention time.Duration
	orphanAge       time.Duration
	errorBackoff    time.Duration

	now func() time.Time
	log *slog.Logger
}

// Config bundles the scheduler construction parameters. Zero durations take
// the documented defaults (sweep hourly, jobs kept 12h, exports 24h).
type Config struct {
	DB        store.Store
	Artifacts *artifact.Store

	Interval        time.Duration
	JobRetention    time.Duration
	ExportRetention time.Duration

	Log *slog.Logger
}

// NewScheduler creates a retention scheduler.
func NewScheduler(cfg Config) *Scheduler {
	s := &Scheduler{
		db:              cfg.DB,
		artifacts:       cfg.Artifacts,
		interval:        cfg.Interval,
		jobRetention:    cfg.JobRetention,
		exportRetention: cfg.ExportRetention,
		orphanAge:       defaultOrphanAge,
		errorBackoff:    defaultErrorBackoff,
		now:             time.Now,
		log:             cfg.Log,
	}
	if s.interval <= 0 {
		s.interval = defaultInterval
	}
	if s.jobRetention <= 0 {
		s.jobRetention = defaultJobRetention
	}
	if s.exportRetention <= 0 {
		s.exportRetention = defaultExportRetention
	}
	return s
}

// Run sweeps until ctx is cancelled. A failed sweep is logged and retried
// after a backoff; one failure never silences the scheduler.
func (s *Scheduler) Run(ctx context.Context) {
	s.log.Info("retention scheduler started",
		"interval", s.interval, "job_retention", s.jobRetention, "export_retention", s.exportRetention)
	for {
		wait := s.interval
		if err := s.Sweep(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			s.log.Error("retention sweep failed", "error", err)
			wait = s.errorBackoff
		}
		if !sleep(ctx, wait) {
			s.log.Info("retention scheduler stopped")
			return
		}
	}
}

// Sweep performs one full cleanup pass.
func (s *Scheduler) Sweep(ctx context.Context) error {
	if err := s.sweepOrphans(); err != nil {
		return err
	}
	if err := s.sweepJobs(ctx); err != nil {
		return err
	}
	return s.sweepExports(ctx)
}

// sweepOrphans removes non-WAV upload files older than orphanAge. These are
// leftovers of transcodes that died between save and convert.
func (s *Scheduler) sweepOrphans() error {
	entries, err := s.artifacts.ListUploads()
	if err != nil {
		return err
	}
	cutoff := s.now().Add(-s.orphanAge)
	for _, entry := range entries {
		if entry.IsDir() || strings.EqualFold(filepath.Ext(entry.Name()), ".wav") {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := s.artifacts.RemoveUpload(entry.Name()); err != nil {
			s.log.Warn("orphan cleanup failed", "file", entry.Name(), "error", err)
			continue
		}
		s.log.Info("orphaned upload removed", "file", entry.Name())
	}
	return nil
}

func (s *Scheduler) sweepJobs(ctx context.Context) error {
	deleted, err := s.db.DeleteJobsOlderThan(ctx, s.now().Add(-s.jobRetention))
	if err != nil {
		return err
	}
	for _, j := range deleted {
		if err := s.artifacts.RemoveUpload(j.FileName); err != nil {
			s.log.Warn("expired upload cleanup failed", "job_id", j.ID, "error", err)
		}
		if err := s.artifacts.RemoveJobArtifacts(j.Basename(), j.ID); err != nil {
			s.log.Warn("expired artifact cleanup failed", "job_id", j.ID, "error", err)
		}
	}
	if len(deleted) > 0 {
		s.log.Info("expired jobs removed", "count", len(deleted))
	}
	return nil
}

func (s *Scheduler) sweepExports(ctx context.Context) error {
	deleted, err := s.db.DeleteExportsOlderThan(ctx, s.now().Add(-s.exportRetention))
	if err != nil {
		return err
	}
	for _, e := range deleted {
		if e.FilePath == "" {
			continue
		}
		if err := s.artifacts.RemoveExport(e.FilePath); err != nil {
			s.log.Warn("expired export cleanup failed", "export_id", e.ID, "error", err)
		}
	}
	if len(deleted) > 0 {
		s.log.Info("expired exports removed", "count", len(deleted))
	}
	return nil
}

// sleep waits for d, returning false when ctx is cancelled first.
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
