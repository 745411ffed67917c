package httpapi

import (
	"net/http"

	"github.com/meetmemo/meetmemo/internal/apperr"
	"github.com/meetmemo/meetmemo/internal/job"
)

func (s *Server) handleStartTranscribe(w http.ResponseWriter, r *http.Request) {
	s.startStage(w, r, job.StageTranscribe)
}

func (s *Server) handleStartDiarize(w http.ResponseWriter, r *http.Request) {
	s.startStage(w, r, job.StageDiarize)
}

func (s *Server) handleStartAlign(w http.ResponseWriter, r *http.Request) {
	s.startStage(w, r, job.StageAlign)
}

func (s *Server) startStage(w http.ResponseWriter, r *http.Request, stage job.Stage) {
	j, err := s.stages.StartStage(r.Context(), r.PathValue("id"), stage)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusAccepted, viewOf(j))
}

func (s *Server) handleGetTranscription(w http.ResponseWriter, r *http.Request) {
	j, err := s.lookupJob(r)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	if j.Transcription == nil {
		writeError(w, s.log, apperr.NotFound("no transcription data for job"))
		return
	}
	writeJSON(w, http.StatusOK, j.Transcription)
}

func (s *Server) handleGetDiarization(w http.ResponseWriter, r *http.Request) {
	j, err := s.lookupJob(r)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	if j.Diarization == nil {
		writeError(w, s.log, apperr.NotFound("no diarization data for job"))
		return
	}
	writeJSON(w, http.StatusOK, j.Diarization)
}
