package httpapi

import (
	"net/http"

	"github.com/meetmemo/meetmemo/internal/apperr"
	"github.com/meetmemo/meetmemo/internal/transcript"
)

func (s *Server) handleGetSummary(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	segments, _, err := s.transcripts.Get(r.Context(), jobID)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	text, cached, err := s.summaries.GetOrGenerate(r.Context(), jobID, transcript.FormatForLLM(segments))
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"job_id":  jobID,
		"summary": text,
		"cached":  cached,
	})
}

func (s *Server) handleRegenerateSummary(w http.ResponseWriter, r *http.Request) {
	var body struct {
		CustomPrompt string `json:"custom_prompt"`
		SystemPrompt string `json:"system_prompt"`
	}
	// Body is optional; absent prompts fall back to the defaults.
	_ = decodeJSON(r, &body)

	jobID := r.PathValue("id")
	segments, _, err := s.transcripts.Get(r.Context(), jobID)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	text, err := s.summaries.Regenerate(r.Context(), jobID,
		transcript.FormatForLLM(segments), body.SystemPrompt, body.CustomPrompt)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"job_id":  jobID,
		"summary": text,
		"cached":  false,
	})
}

func (s *Server) handlePutSummary(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Summary string `json:"summary"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, s.log, err)
		return
	}
	if body.Summary == "" {
		writeError(w, s.log, apperr.Validation("summary must not be empty"))
		return
	}

	j, err := s.lookupJob(r)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	if err := s.summaries.Put(j.ID, body.Summary); err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

func (s *Server) handleDeleteSummary(w http.ResponseWriter, r *http.Request) {
	j, err := s.lookupJob(r)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	if err := s.summaries.Invalidate(j.ID); err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
