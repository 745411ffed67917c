// Package httpapi exposes the versioned REST surface under /api/v1: job
// ingest and lifecycle, stage control, transcripts, summaries, range-aware
// audio streaming, export jobs, and the live transcription socket.
package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/meetmemo/meetmemo/internal/artifact"
	"github.com/meetmemo/meetmemo/internal/export"
	"github.com/meetmemo/meetmemo/internal/ingest"
	"github.com/meetmemo/meetmemo/internal/orchestrator"
	"github.com/meetmemo/meetmemo/internal/store"
	"github.com/meetmemo/meetmemo/internal/summary"
	"github.com/meetmemo/meetmemo/internal/transcript"
	"github.com/meetmemo/meetmemo/pkg/provider/asr"
)

// Server holds the handler dependencies and builds the route table.
type Server struct {
	jobs           store.JobStore
	artifacts      *artifact.Store
	ingest         *ingest.Service
	stages         *orchestrator.Service
	transcripts    *transcript.Service
	summaries      *summary.Service
	exports        *export.Service
	live           asr.Provider
	maxUploadBytes int64
	log            *slog.Logger
}

// Config bundles the server construction parameters.
type Config struct {
	Jobs        store.JobStore
	Artifacts   *artifact.Store
	Ingest      *ingest.Service
	Stages      *orchestrator.Service
	Transcripts *transcript.Service
	Summaries   *summary.Service
	Exports     *export.Service

	// Live, when set, enables the live transcription websocket.
	Live asr.Provider

	// MaxUploadBytes caps the upload request body. Zero means no cap.
	MaxUploadBytes int64

	Log *slog.Logger
}

// NewServer creates the API server.
func NewServer(cfg Config) *Server {
	return &Server{
		jobs:           cfg.Jobs,
		artifacts:      cfg.Artifacts,
		ingest:         cfg.Ingest,
		stages:         cfg.Stages,
		transcripts:    cfg.Transcripts,
		summaries:      cfg.Summaries,
		exports:        cfg.Exports,
		live:           cfg.Live,
		maxUploadBytes: cfg.MaxUploadBytes,
		log:            cfg.Log,
	}
}

// Handler builds the route table. Middleware (metrics, CORS) wraps the
// returned handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/jobs", s.handleUpload)
	mux.HandleFunc("GET /api/v1/jobs", s.handleListJobs)
	mux.HandleFunc("GET /api/v1/jobs/{id}", s.handleGetJob)
	mux.HandleFunc("PATCH /api/v1/jobs/{id}", s.handleRenameJob)
	mux.HandleFunc("DELETE /api/v1/jobs/{id}", s.handleDeleteJob)

	mux.HandleFunc("POST /api/v1/jobs/{id}/transcriptions", s.handleStartTranscribe)
	mux.HandleFunc("GET /api/v1/jobs/{id}/transcriptions", s.handleGetTranscription)
	mux.HandleFunc("POST /api/v1/jobs/{id}/diarizations", s.handleStartDiarize)
	mux.HandleFunc("GET /api/v1/jobs/{id}/diarizations", s.handleGetDiarization)
	mux.HandleFunc("POST /api/v1/jobs/{id}/alignments", s.handleStartAlign)

	mux.HandleFunc("GET /api/v1/jobs/{id}/transcripts", s.handleGetTranscript)
	mux.HandleFunc("PATCH /api/v1/jobs/{id}/transcripts", s.handlePutTranscript)
	mux.HandleFunc("PATCH /api/v1/jobs/{id}/speakers", s.handleRenameSpeakers)
	mux.HandleFunc("POST /api/v1/jobs/{id}/speaker-identifications", s.handleIdentifySpeakers)

	mux.HandleFunc("GET /api/v1/jobs/{id}/summaries", s.handleGetSummary)
	mux.HandleFunc("POST /api/v1/jobs/{id}/summaries", s.handleRegenerateSummary)
	mux.HandleFunc("PATCH /api/v1/jobs/{id}/summaries", s.handlePutSummary)
	mux.HandleFunc("DELETE /api/v1/jobs/{id}/summaries", s.handleDeleteSummary)

	mux.HandleFunc("GET /api/v1/jobs/{id}/audio", s.handleStreamAudio)

	mux.HandleFunc("POST /api/v1/jobs/{id}/export-jobs", s.handleCreateExport)
	mux.HandleFunc("GET /api/v1/jobs/{id}/export-jobs/{eid}", s.handleGetExport)
	mux.HandleFunc("GET /api/v1/jobs/{id}/export-jobs/{eid}/download", s.handleDownloadExport)

	if s.live != nil {
		mux.HandleFunc("GET /api/v1/live", s.handleLive)
	}

	return mux
}

// CORS wraps h with cross-origin headers so browser front ends on other
// origins can call the API directly. An empty origin allows any.
func CORS(origin string, h http.Handler) http.Handler {
	if origin == "" {
		origin = "*"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Range")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		h.ServeHTTP(w, r)
	})
}
