package httpapi

import (
	"net/http"

	"github.com/meetmemo/meetmemo/internal/job"
	"github.com/meetmemo/meetmemo/internal/transcript"
)

func (s *Server) handleGetTranscript(w http.ResponseWriter, r *http.Request) {
	segments, edited, err := s.transcripts.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"transcript": segments,
		"edited":     edited,
	})
}

func (s *Server) handlePutTranscript(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Transcript []job.TranscriptSegment `json:"transcript"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, s.log, err)
		return
	}
	if err := s.transcripts.PutEdited(r.Context(), r.PathValue("id"), body.Transcript); err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

func (s *Server) handleRenameSpeakers(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Mapping map[string]string `json:"mapping"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, s.log, err)
		return
	}
	if err := s.transcripts.RenameSpeakers(r.Context(), r.PathValue("id"), body.Mapping); err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

func (s *Server) handleIdentifySpeakers(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Context string `json:"context"`
	}
	// Body is optional for this endpoint.
	_ = decodeJSON(r, &body)

	segments, _, err := s.transcripts.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	suggestions, err := s.summaries.IdentifySpeakers(r.Context(), transcript.FormatForLLM(segments), body.Context)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, suggestions)
}
