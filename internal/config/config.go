// Package config loads and validates the service configuration.
//
// Configuration comes from the process environment, optionally seeded from a
// .env file. [Load] reads everything once at startup into a frozen [Config]
// record; nothing re-reads the environment afterwards.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// LogLevel controls log verbosity for the server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Default limits and windows.
const (
	DefaultMaxFileSize     = 100 << 20 // 100 MiB
	DefaultLLMTimeout      = 60 * time.Second
	DefaultCleanupInterval = time.Hour
	DefaultJobRetention    = 12 * time.Hour
	DefaultExportRetention = 24 * time.Hour
)

// Config is the frozen root configuration record for the service.
type Config struct {
	// ListenAddr is the TCP address the HTTP server listens on (e.g., ":8000").
	ListenAddr string

	// DatabaseURL is the PostgreSQL connection string.
	DatabaseURL string

	// DBPoolMin and DBPoolMax bound the pgx connection pool.
	DBPoolMin int32
	DBPoolMax int32

	// LLM endpoint used for summaries and speaker identification.
	LLMAPIURL    string
	LLMModelName string
	LLMAPIKey    string
	LLMTimeout   time.Duration

	// WhisperServerURL is the whisper-server REST endpoint; ASRModelName is an
	// optional model hint forwarded with each inference request.
	WhisperServerURL string
	ASRModelName     string

	// Diarization service endpoint, model hint, and bearer credential.
	DiarizationURL       string
	DiarizationModelName string
	MLCredentialsToken   string

	// Artifact directories, one per artifact class.
	UploadDir           string
	TranscriptDir       string
	TranscriptEditedDir string
	SummaryDir          string
	ExportDir           string
	LogsDir             string

	// MaxFileSize caps accepted upload bytes.
	MaxFileSize int64

	// AllowedAudioTypes lists accepted upload extensions (without dot).
	AllowedAudioTypes []string

	// Retention windows and sweep cadence.
	CleanupInterval time.Duration
	JobRetention    time.Duration
	ExportRetention time.Duration

	// TimezoneOffsetHours shifts timestamps rendered on exported artifacts.
	// Database timestamps stay in UTC.
	TimezoneOffsetHours int

	// FrontendOrigin is the allowed CORS origin. "*" permits any.
	FrontendOrigin string

	// LogLevel controls verbosity.
	LogLevel LogLevel
}

// Load builds a [Config] from the environment. If envFile is non-empty and
// exists it is loaded first; variables already present in the environment win.
// A missing .env file is not an error.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("config: load %s: %w", envFile, err)
		}
	}

	cfg := &Config{
		ListenAddr:  envStr("LISTEN_ADDR", ":8000"),
		DatabaseURL: envStr("DATABASE_URL", ""),
		DBPoolMin:   int32(envInt("DB_POOL_MIN", 2)),
		DBPoolMax:   int32(envInt("DB_POOL_MAX", 10)),

		LLMAPIURL:    envStr("LLM_API_URL", ""),
		LLMModelName: envStr("LLM_MODEL_NAME", ""),
		LLMAPIKey:    envStr("LLM_API_KEY", ""),
		LLMTimeout:   envSeconds("LLM_TIMEOUT_SECONDS", DefaultLLMTimeout),

		WhisperServerURL: envStr("WHISPER_SERVER_URL", "http://localhost:8080"),
		ASRModelName:     envStr("ASR_MODEL_NAME", ""),

		DiarizationURL:       envStr("DIARIZATION_API_URL", "http://localhost:8001"),
		DiarizationModelName: envStr("DIARIZATION_MODEL_NAME", ""),
		MLCredentialsToken:   envStr("ML_CREDENTIALS_TOKEN", ""),

		UploadDir:           envStr("UPLOAD_DIR", "uploads"),
		TranscriptDir:       envStr("TRANSCRIPT_DIR", "transcripts"),
		TranscriptEditedDir: envStr("TRANSCRIPT_EDITED_DIR", "transcripts_edited"),
		SummaryDir:          envStr("SUMMARY_DIR", "summaries"),
		ExportDir:           envStr("EXPORT_DIR", "exports"),
		LogsDir:             envStr("LOGS_DIR", "logs"),

		MaxFileSize: envInt64("MAX_FILE_SIZE", DefaultMaxFileSize),
		AllowedAudioTypes: envList("ALLOWED_AUDIO_TYPES",
			[]string{"wav", "mp3", "mp4", "m4a", "webm", "flac", "ogg"}),

		CleanupInterval: envHours("CLEANUP_INTERVAL_HOURS", DefaultCleanupInterval),
		JobRetention:    envHours("JOB_RETENTION_HOURS", DefaultJobRetention),
		ExportRetention: envHours("EXPORT_RETENTION_HOURS", DefaultExportRetention),

		TimezoneOffsetHours: envInt("TIMEZONE_OFFSET", 0),
		FrontendOrigin:      envStr("FRONTEND_ORIGIN", "*"),
		LogLevel:            LogLevel(strings.ToLower(envStr("LOG_LEVEL", "info"))),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required fields and value ranges.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("config: DATABASE_URL is required")
	}
	if !c.LogLevel.IsValid() {
		return fmt.Errorf("config: invalid LOG_LEVEL %q", c.LogLevel)
	}
	if c.DBPoolMin < 0 || c.DBPoolMax <= 0 || c.DBPoolMin > c.DBPoolMax {
		return fmt.Errorf("config: invalid pool bounds min=%d max=%d", c.DBPoolMin, c.DBPoolMax)
	}
	if c.MaxFileSize <= 0 {
		return fmt.Errorf("config: MAX_FILE_SIZE must be positive")
	}
	if c.CleanupInterval <= 0 || c.JobRetention <= 0 || c.ExportRetention <= 0 {
		return fmt.Errorf("config: retention windows must be positive")
	}
	return nil
}

// Timezone returns the fixed zone used for timestamps rendered on artifacts.
func (c *Config) Timezone() *time.Location {
	if c.TimezoneOffsetHours == 0 {
		return time.UTC
	}
	return time.FixedZone(fmt.Sprintf("UTC%+d", c.TimezoneOffsetHours), c.TimezoneOffsetHours*3600)
}

// Directories returns all artifact directories managed by the service.
func (c *Config) Directories() []string {
	return []string{
		c.UploadDir, c.TranscriptDir, c.TranscriptEditedDir,
		c.SummaryDir, c.ExportDir, c.LogsDir,
	}
}

// EnsureDirectories creates all artifact directories if absent.
func (c *Config) EnsureDirectories() error {
	for _, dir := range c.Directories() {
		if err := os.MkdirAll(filepath.Clean(dir), 0o755); err != nil {
			return fmt.Errorf("config: create directory %s: %w", dir, err)
		}
	}
	return nil
}

// AllowsAudioType reports whether ext (with or without dot, any case) is an
// accepted upload extension.
func (c *Config) AllowsAudioType(ext string) bool {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	for _, t := range c.AllowedAudioTypes {
		if t == ext {
			return true
		}
	}
	return false
}

// ---- env helpers ------------------------------------------------------------

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func envSeconds(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 {
		return fallback
	}
	return time.Duration(f * float64(time.Second))
}

// envHours parses a fractional hour count. Fractions are allowed so tests can
// run sub-minute retention windows.
func envHours(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 {
		return fallback
	}
	return time.Duration(f * float64(time.Hour))
}

func envList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			out = append(out, strings.TrimPrefix(p, "."))
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
