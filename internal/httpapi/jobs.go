package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/meetmemo/meetmemo/internal/apperr"
	"github.com/meetmemo/meetmemo/internal/job"
)

// jobView is the wire shape of a job.
type jobView struct {
	ID                  string `json:"id"`
	FileName            string `json:"file_name"`
	WorkflowState       string `json:"workflow_state"`
	StatusCode          int    `json:"status_code"`
	CurrentStepProgress int    `json:"current_step_progress"`
	ErrorMessage        string `json:"error_message,omitempty"`
	CreatedAt           string `json:"created_at"`

	AvailableActions []string `json:"available_actions"`
}

func viewOf(j *job.Job) jobView {
	return jobView{
		ID:                  j.ID,
		FileName:            j.FileName,
		WorkflowState:       string(j.WorkflowState),
		StatusCode:          j.StatusCode,
		CurrentStepProgress: j.CurrentStepProgress,
		ErrorMessage:        j.ErrorMessage,
		CreatedAt:           j.CreatedAt.UTC().Format(time.RFC3339),
		AvailableActions:    job.AvailableActions(j.WorkflowState),
	}
}

const defaultListLimit = 50

// uploadEnvelopeSlack leaves room for multipart boundaries and part headers
// around the capped file payload.
const uploadEnvelopeSlack = 1 << 20

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if s.maxUploadBytes > 0 {
		// Cap the body before any of it is read so an oversized upload is cut
		// off at the wire instead of being buffered by the form parser.
		r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes+uploadEnvelopeSlack)
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, s.log, apperr.New(apperr.KindTooLarge,
				"file exceeds the %d byte limit", s.maxUploadBytes))
			return
		}
		writeError(w, s.log, apperr.Validation("multipart field 'file' is required"))
		return
	}
	defer file.Close()

	j, duplicate, err := s.ingest.CreateJob(r.Context(), header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	status := http.StatusAccepted
	if duplicate {
		// Same content, same job: report success rather than creation.
		status = http.StatusOK
	}
	writeJSON(w, status, viewOf(j))
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", defaultListLimit)
	offset := queryInt(r, "offset", 0)
	if limit < 1 || limit > 500 || offset < 0 {
		writeError(w, s.log, apperr.Validation("limit must be in [1,500] and offset non-negative"))
		return
	}

	jobs, total, err := s.jobs.ListJobs(r.Context(), limit, offset)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	views := make([]jobView, len(jobs))
	for i := range jobs {
		views[i] = viewOf(&jobs[i])
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"jobs":   views,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	j, err := s.lookupJob(r)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(j))
}

func (s *Server) handleRenameJob(w http.ResponseWriter, r *http.Request) {
	var body struct {
		FileName string `json:"file_name"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, s.log, err)
		return
	}
	j, err := s.stages.RenameJob(r.Context(), r.PathValue("id"), body.FileName)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(j))
}

func (s *Server) handleDeleteJob(w http.ResponseWriter, r *http.Request) {
	if err := s.stages.DeleteJob(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// lookupJob resolves the {id} path parameter to a job.
func (s *Server) lookupJob(r *http.Request) (*job.Job, error) {
	j, err := s.jobs.GetJob(r.Context(), r.PathValue("id"))
	if err != nil {
		return nil, err
	}
	if j == nil {
		return nil, apperr.NotFound("job not found")
	}
	return j, nil
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return -1
	}
	return n
}
