// Package app wires all meetmemo subsystems into a running service.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems, Run serves HTTP and the retention loop until the context is
// cancelled, and Shutdown tears everything down in order.
//
// For testing, inject doubles via functional options (WithStore,
// WithMetrics). When an option is not provided, New creates real
// implementations from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/meetmemo/meetmemo/internal/artifact"
	"github.com/meetmemo/meetmemo/internal/config"
	"github.com/meetmemo/meetmemo/internal/export"
	"github.com/meetmemo/meetmemo/internal/health"
	"github.com/meetmemo/meetmemo/internal/httpapi"
	"github.com/meetmemo/meetmemo/internal/ingest"
	"github.com/meetmemo/meetmemo/internal/observe"
	"github.com/meetmemo/meetmemo/internal/orchestrator"
	"github.com/meetmemo/meetmemo/internal/resilience"
	"github.com/meetmemo/meetmemo/internal/retention"
	"github.com/meetmemo/meetmemo/internal/store"
	"github.com/meetmemo/meetmemo/internal/summary"
	"github.com/meetmemo/meetmemo/internal/transcript"
	"github.com/meetmemo/meetmemo/pkg/audio"
	"github.com/meetmemo/meetmemo/pkg/provider/asr"
	"github.com/meetmemo/meetmemo/pkg/provider/diarize"
	"github.com/meetmemo/meetmemo/pkg/provider/llm"
)

// backgroundTaskLimit bounds concurrently running stage and export tasks.
const backgroundTaskLimit = 4

// staleJobMessage is recorded on jobs found mid-stage at startup.
const staleJobMessage = "processing interrupted by server restart"

// Providers holds one interface value per external collaborator. Populated
// by main.go from the config; tests supply mocks.
type Providers struct {
	ASR       asr.Provider
	Diarizer  diarize.Provider
	LLM       llm.Provider
	Converter audio.Converter
}

// App owns all subsystem lifetimes.
type App struct {
	cfg       *config.Config
	providers *Providers
	log       *slog.Logger

	pool      *pgxpool.Pool
	db        store.Store
	artifacts *artifact.Store
	tasks     *orchestrator.TaskSet
	metrics   *observe.Metrics
	retention *retention.Scheduler

	handler http.Handler
	server  *http.Server

	// closers are called in order during Shutdown.
	closers []func() error

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithStore injects a job store instead of opening a PostgreSQL pool.
func WithStore(s store.Store) Option {
	return func(a *App) { a.db = s }
}

// WithMetrics injects a metrics set instead of using the global provider.
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// New creates an App by wiring all subsystems together. The providers struct
// comes from main.go. Initialisation is synchronous: artifact directories are
// created, the database is migrated, and jobs left mid-stage by a previous
// run are flagged as errored before the first request can observe them.
func New(ctx context.Context, cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	a := &App{
		cfg:       cfg,
		providers: providers,
		log:       slog.Default(),
	}
	for _, o := range opts {
		o(a)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}

	if err := a.initStore(ctx); err != nil {
		return nil, fmt.Errorf("app: init store: %w", err)
	}

	n, err := a.db.MarkStaleInProgress(ctx, staleJobMessage)
	if err != nil {
		return nil, fmt.Errorf("app: stale job sweep: %w", err)
	}
	if n > 0 {
		a.log.Warn("flagged jobs interrupted by restart", "count", n)
	}

	a.artifacts = artifact.NewStore(artifact.Dirs{
		Uploads:           cfg.UploadDir,
		Transcripts:       cfg.TranscriptDir,
		TranscriptsEdited: cfg.TranscriptEditedDir,
		Summaries:         cfg.SummaryDir,
		Exports:           cfg.ExportDir,
	})

	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}
	a.tasks = orchestrator.NewTaskSet(backgroundTaskLimit)

	a.initServices()

	a.server = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return a, nil
}

// initStore opens the PostgreSQL pool and migrates the schema, unless a
// store was injected.
func (a *App) initStore(ctx context.Context) error {
	if a.db != nil {
		return nil
	}

	pool, err := store.NewPool(ctx, a.cfg)
	if err != nil {
		return err
	}
	pg := store.NewPostgresStore(pool)
	if err := pg.Migrate(ctx); err != nil {
		pool.Close()
		return err
	}

	a.pool = pool
	a.db = pg
	a.closers = append(a.closers, func() error {
		pool.Close()
		return nil
	})
	return nil
}

// initServices constructs the domain services and the retention scheduler.
func (a *App) initServices() {
	cfg := a.cfg

	transcripts := transcript.NewService(a.db, a.artifacts, a.log)

	summaries := summary.NewService(summary.Config{
		LLM:       a.providers.LLM,
		Artifacts: a.artifacts,
		Breaker:   resilience.NewBreaker(resilience.BreakerConfig{Name: "llm"}),
		Metrics:   a.metrics,
		Log:       a.log,
	})

	ingestSvc := ingest.NewService(ingest.Config{
		Jobs:         a.db,
		Artifacts:    a.artifacts,
		Converter:    a.providers.Converter,
		MaxFileSize:  cfg.MaxFileSize,
		AllowedTypes: contentTypesFor(cfg.AllowedAudioTypes),
		AllowExt:     cfg.AllowsAudioType,
		Metrics:      a.metrics,
		Log:          a.log,
	})

	stages := orchestrator.NewService(orchestrator.Config{
		Jobs:      a.db,
		Artifacts: a.artifacts,
		ASR:       a.providers.ASR,
		Diarizer:  a.providers.Diarizer,
		Tasks:     a.tasks,
		Metrics:   a.metrics,
		Log:       a.log,
	})

	exports := export.NewService(export.Config{
		DB:          a.db,
		Artifacts:   a.artifacts,
		Transcripts: transcripts,
		Summaries:   summaries,
		Tasks:       a.tasks,
		Location:    cfg.Timezone(),
		Metrics:     a.metrics,
		Log:         a.log,
	})

	a.retention = retention.NewScheduler(retention.Config{
		DB:              a.db,
		Artifacts:       a.artifacts,
		Interval:        cfg.CleanupInterval,
		JobRetention:    cfg.JobRetention,
		ExportRetention: cfg.ExportRetention,
		Log:             a.log,
	})

	api := httpapi.NewServer(httpapi.Config{
		Jobs:           a.db,
		Artifacts:      a.artifacts,
		Ingest:         ingestSvc,
		Stages:         stages,
		Transcripts:    transcripts,
		Summaries:      summaries,
		Exports:        exports,
		Live:           a.providers.ASR,
		MaxUploadBytes: cfg.MaxFileSize,
		Log:            a.log,
	})

	root := http.NewServeMux()
	root.Handle("/", api.Handler())
	root.Handle("GET /metrics", promhttp.Handler())
	health.NewEndpoints(a.probes()...).Register(root)

	a.handler = observe.Middleware(a.metrics)(httpapi.CORS(cfg.FrontendOrigin, root))
}

// probes builds the readiness probes for the subsystems that are actually
// wired. An injected store has no pool to ping, so the database probe is
// skipped under test.
func (a *App) probes() []health.Probe {
	var probes []health.Probe
	if a.pool != nil {
		pool := a.pool
		probes = append(probes, health.Probe{
			Name: "database",
			Run:  pool.Ping,
		})
	}
	client := &http.Client{}
	if a.cfg.WhisperServerURL != "" {
		probes = append(probes, reachabilityProbe(client, "whisper", a.cfg.WhisperServerURL))
	}
	if a.cfg.DiarizationURL != "" {
		probes = append(probes, reachabilityProbe(client, "diarization", a.cfg.DiarizationURL))
	}
	return probes
}

// reachabilityProbe hits url and treats any HTTP response below 500 as
// healthy. The inference servers answer their root path with 200 or 404
// depending on build; both mean the process is up.
func reachabilityProbe(client *http.Client, name, url string) health.Probe {
	return health.Probe{
		Name: name,
		Run: func(ctx context.Context) error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
			if err != nil {
				return err
			}
			resp, err := client.Do(req)
			if err != nil {
				return err
			}
			resp.Body.Close()
			if resp.StatusCode >= http.StatusInternalServerError {
				return fmt.Errorf("status %d", resp.StatusCode)
			}
			return nil
		},
	}
}

// Handler returns the fully composed HTTP handler. Exposed for tests that
// serve the App through httptest instead of a listening socket.
func (a *App) Handler() http.Handler {
	return a.handler
}

// Run starts the retention loop and the HTTP server, blocking until ctx is
// cancelled or the server fails. A cancelled context returns ctx.Err(); call
// Shutdown afterwards for a graceful stop.
func (a *App) Run(ctx context.Context) error {
	go a.retention.Run(ctx)

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.server.ListenAndServe()
	}()

	a.log.Info("server listening", "addr", a.cfg.ListenAddr)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("app: http server: %w", err)
	}
}

// Shutdown stops the HTTP server, waits for in-flight background tasks, and
// runs the closers in order. It respects the context deadline: if ctx expires
// before all closers finish, remaining closers are skipped and the context
// error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		a.log.Info("shutting down")

		if err := a.server.Shutdown(ctx); err != nil {
			a.log.Warn("http shutdown error", "error", err)
		}

		// Let running stages and exports record their terminal state.
		a.tasks.Wait()

		for i, closer := range a.closers {
			select {
			case <-ctx.Done():
				a.log.Warn("shutdown deadline exceeded", "remaining", len(a.closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(); err != nil {
				a.log.Warn("closer error", "index", i, "error", err)
			}
		}

		a.log.Info("shutdown complete")
	})
	return shutdownErr
}

// audioContentTypes maps accepted upload extensions to the media types
// browsers send for them.
var audioContentTypes = map[string][]string{
	"wav":  {"audio/wav", "audio/x-wav", "audio/wave"},
	"mp3":  {"audio/mpeg", "audio/mp3"},
	"mp4":  {"audio/mp4", "video/mp4"},
	"m4a":  {"audio/mp4", "audio/x-m4a"},
	"webm": {"audio/webm", "video/webm"},
	"flac": {"audio/flac", "audio/x-flac"},
	"ogg":  {"audio/ogg", "application/ogg"},
}

// contentTypesFor expands configured extensions into the media types the
// ingest service accepts. Unknown extensions contribute "audio/<ext>".
func contentTypesFor(exts []string) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(ct string) {
		if !seen[ct] {
			seen[ct] = true
			out = append(out, ct)
		}
	}
	for _, ext := range exts {
		if types, ok := audioContentTypes[ext]; ok {
			for _, ct := range types {
				add(ct)
			}
			continue
		}
		add("audio/" + ext)
	}
	return out
}
