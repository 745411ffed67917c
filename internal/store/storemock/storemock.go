// Package storemock provides an in-memory store.Store for tests.
package storemock

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/meetmemo/meetmemo/internal/job"
	"github.com/meetmemo/meetmemo/internal/store"
)

// Store keeps jobs and export jobs in memory. All methods are safe for
// concurrent use. The optional Err field, when set, is returned by every
// method to simulate a failing database.
type Store struct {
	mu      sync.Mutex
	jobs    map[string]*job.Job
	exports map[string]*job.ExportJob
	clock   func() time.Time

	// Err, when non-nil, is returned by every method.
	Err error
}

var _ store.Store = (*Store)(nil)

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		jobs:    make(map[string]*job.Job),
		exports: make(map[string]*job.ExportJob),
		clock:   time.Now,
	}
}

// SetClock overrides the time source used for CreatedAt stamps.
func (s *Store) SetClock(clock func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clock = clock
}

// Seed inserts jobs directly, bypassing CreatedAt stamping.
func (s *Store) Seed(jobs ...*job.Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, j := range jobs {
		cp := *j
		s.jobs[j.ID] = &cp
	}
}

// SeedExports inserts export jobs directly.
func (s *Store) SeedExports(exports ...*job.ExportJob) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range exports {
		cp := *e
		s.exports[e.ID] = &cp
	}
}

func (s *Store) CreateJob(_ context.Context, j *job.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if _, ok := s.jobs[j.ID]; ok {
		return fmt.Errorf("store: job with id %q already exists", j.ID)
	}
	j.CreatedAt = s.clock()
	cp := *j
	s.jobs[j.ID] = &cp
	return nil
}

func (s *Store) GetJob(_ context.Context, id string) (*job.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	j, ok := s.jobs[id]
	if !ok {
		return nil, nil
	}
	cp := *j
	return &cp, nil
}

func (s *Store) GetJobByHash(_ context.Context, hash string) (*job.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	var latest *job.Job
	for _, j := range s.jobs {
		if j.FileHash != hash {
			continue
		}
		if latest == nil || j.CreatedAt.After(latest.CreatedAt) {
			latest = j
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (s *Store) ListJobs(_ context.Context, limit, offset int) ([]job.Job, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, 0, s.Err
	}
	all := make([]job.Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		all = append(all, *j)
	}
	sort.Slice(all, func(i, k int) bool { return all[i].CreatedAt.After(all[k].CreatedAt) })

	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	all = all[offset:]
	if limit < len(all) {
		all = all[:limit]
	}
	return all, total, nil
}

func (s *Store) UpdateWorkflowState(_ context.Context, id string, state job.WorkflowState, statusCode, progress int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	j, ok := s.jobs[id]
	if !ok {
		return fmt.Errorf("store: job %q not found", id)
	}
	j.WorkflowState = state
	j.StatusCode = statusCode
	j.CurrentStepProgress = progress
	return nil
}

func (s *Store) TransitionWorkflowState(_ context.Context, id string, from, to job.WorkflowState, statusCode, progress int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return false, s.Err
	}
	j, ok := s.jobs[id]
	if !ok || j.WorkflowState != from {
		return false, nil
	}
	j.WorkflowState = to
	j.StatusCode = statusCode
	j.CurrentStepProgress = progress
	return true, nil
}

func (s *Store) UpdateProgress(_ context.Context, id string, progress int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if j, ok := s.jobs[id]; ok {
		j.CurrentStepProgress = progress
	}
	return nil
}

func (s *Store) UpdateFileName(_ context.Context, id, fileName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	j, ok := s.jobs[id]
	if !ok {
		return fmt.Errorf("store: job %q not found", id)
	}
	j.FileName = fileName
	return nil
}

func (s *Store) SaveTranscription(_ context.Context, id string, data *job.TranscriptionData) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if j, ok := s.jobs[id]; ok {
		j.Transcription = data
	}
	return nil
}

func (s *Store) SaveDiarization(_ context.Context, id string, data *job.DiarizationData) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if j, ok := s.jobs[id]; ok {
		j.Diarization = data
	}
	return nil
}

func (s *Store) SetJobError(_ context.Context, id, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if j, ok := s.jobs[id]; ok {
		j.WorkflowState = job.StateError
		j.StatusCode = job.StatusFailed
		j.ErrorMessage = message
	}
	return nil
}

func (s *Store) DeleteJob(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return false, s.Err
	}
	if _, ok := s.jobs[id]; !ok {
		return false, nil
	}
	delete(s.jobs, id)
	for eid, e := range s.exports {
		if e.JobID == id {
			delete(s.exports, eid)
		}
	}
	return true, nil
}

func (s *Store) DeleteJobsOlderThan(_ context.Context, cutoff time.Time) ([]job.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	var deleted []job.Job
	for id, j := range s.jobs {
		if j.CreatedAt.Before(cutoff) {
			deleted = append(deleted, *j)
			delete(s.jobs, id)
			for eid, e := range s.exports {
				if e.JobID == id {
					delete(s.exports, eid)
				}
			}
		}
	}
	return deleted, nil
}

func (s *Store) MarkStaleInProgress(_ context.Context, message string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return 0, s.Err
	}
	var n int64
	for _, j := range s.jobs {
		if j.WorkflowState.InProgress() {
			j.WorkflowState = job.StateError
			j.StatusCode = job.StatusFailed
			j.ErrorMessage = message
			n++
		}
	}
	return n, nil
}

func (s *Store) CreateExport(_ context.Context, e *job.ExportJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if _, ok := s.exports[e.ID]; ok {
		return fmt.Errorf("store: export with id %q already exists", e.ID)
	}
	e.CreatedAt = s.clock()
	cp := *e
	s.exports[e.ID] = &cp
	return nil
}

func (s *Store) GetExport(_ context.Context, id string) (*job.ExportJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	e, ok := s.exports[id]
	if !ok {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

func (s *Store) ListExportsByJob(_ context.Context, jobID string) ([]job.ExportJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	var exports []job.ExportJob
	for _, e := range s.exports {
		if e.JobID == jobID {
			exports = append(exports, *e)
		}
	}
	sort.Slice(exports, func(i, j int) bool {
		return exports[i].CreatedAt.After(exports[j].CreatedAt)
	})
	return exports, nil
}

func (s *Store) UpdateExportProgress(_ context.Context, id string, progress int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if e, ok := s.exports[id]; ok {
		e.Progress = progress
	}
	return nil
}

func (s *Store) CompleteExport(_ context.Context, id, filePath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	e, ok := s.exports[id]
	if !ok {
		return fmt.Errorf("store: export %q not found", id)
	}
	e.StatusCode = job.StatusDone
	e.Progress = 100
	e.FilePath = filePath
	return nil
}

func (s *Store) SetExportError(_ context.Context, id, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if e, ok := s.exports[id]; ok {
		e.StatusCode = job.StatusFailed
		e.ErrorMessage = message
	}
	return nil
}

func (s *Store) DeleteExportsOlderThan(_ context.Context, cutoff time.Time) ([]job.ExportJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	var deleted []job.ExportJob
	for id, e := range s.exports {
		if e.CreatedAt.Before(cutoff) {
			deleted = append(deleted, *e)
			delete(s.exports, id)
		}
	}
	return deleted, nil
}
