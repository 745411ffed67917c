package httpapi

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/meetmemo/meetmemo/internal/job"
)

// exportView is the wire shape of an export job.
type exportView struct {
	ID           string `json:"id"`
	JobID        string `json:"job_id"`
	ExportType   string `json:"export_type"`
	StatusCode   int    `json:"status_code"`
	Progress     int    `json:"progress"`
	ErrorMessage string `json:"error_message,omitempty"`
	CreatedAt    string `json:"created_at"`
	DownloadURL  string `json:"download_url,omitempty"`
}

func exportViewOf(e *job.ExportJob) exportView {
	v := exportView{
		ID:           e.ID,
		JobID:        e.JobID,
		ExportType:   string(e.Type),
		StatusCode:   e.StatusCode,
		Progress:     e.Progress,
		ErrorMessage: e.ErrorMessage,
		CreatedAt:    e.CreatedAt.UTC().Format(time.RFC3339),
	}
	if e.Ready() {
		v.DownloadURL = fmt.Sprintf("/api/v1/jobs/%s/export-jobs/%s/download", e.JobID, e.ID)
	}
	return v
}

func (s *Server) handleCreateExport(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Format string `json:"format"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, s.log, err)
		return
	}
	e, err := s.exports.Create(r.Context(), r.PathValue("id"), body.Format)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusAccepted, exportViewOf(e))
}

func (s *Server) handleGetExport(w http.ResponseWriter, r *http.Request) {
	e, err := s.exports.Get(r.Context(), r.PathValue("id"), r.PathValue("eid"))
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, exportViewOf(e))
}

func (s *Server) handleDownloadExport(w http.ResponseWriter, r *http.Request) {
	f, info, name, contentType, err := s.exports.Download(r.Context(), r.PathValue("id"), r.PathValue("eid"))
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", fmt.Sprintf("%d", info.Size()))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, f); err != nil {
		s.log.Debug("export download interrupted", "error", err)
	}
}
