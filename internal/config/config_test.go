package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/meetmemo")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.ListenAddr != ":8000" {
		t.Errorf("ListenAddr = %q, want :8000", cfg.ListenAddr)
	}
	if cfg.MaxFileSize != DefaultMaxFileSize {
		t.Errorf("MaxFileSize = %d, want %d", cfg.MaxFileSize, DefaultMaxFileSize)
	}
	if cfg.JobRetention != DefaultJobRetention {
		t.Errorf("JobRetention = %v, want %v", cfg.JobRetention, DefaultJobRetention)
	}
	if cfg.LLMTimeout != DefaultLLMTimeout {
		t.Errorf("LLMTimeout = %v, want %v", cfg.LLMTimeout, DefaultLLMTimeout)
	}
	if cfg.LogLevel != LogInfo {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/meetmemo")
	t.Setenv("CLEANUP_INTERVAL_HOURS", "0.5")
	t.Setenv("LLM_TIMEOUT_SECONDS", "90")
	t.Setenv("DB_POOL_MAX", "25")
	t.Setenv("ALLOWED_AUDIO_TYPES", "wav, MP3,.flac")
	t.Setenv("TIMEZONE_OFFSET", "-5")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.CleanupInterval != 30*time.Minute {
		t.Errorf("CleanupInterval = %v, want 30m", cfg.CleanupInterval)
	}
	if cfg.LLMTimeout != 90*time.Second {
		t.Errorf("LLMTimeout = %v, want 90s", cfg.LLMTimeout)
	}
	if cfg.DBPoolMax != 25 {
		t.Errorf("DBPoolMax = %d, want 25", cfg.DBPoolMax)
	}
	if len(cfg.AllowedAudioTypes) != 3 || cfg.AllowedAudioTypes[1] != "mp3" || cfg.AllowedAudioTypes[2] != "flac" {
		t.Errorf("AllowedAudioTypes = %v", cfg.AllowedAudioTypes)
	}
	_, offset := time.Now().In(cfg.Timezone()).Zone()
	if offset != -5*3600 {
		t.Errorf("timezone offset = %d, want %d", offset, -5*3600)
	}
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	if _, err := Load(""); err == nil {
		t.Fatal("expected error without DATABASE_URL")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	base := func() *Config {
		return &Config{
			DatabaseURL:     "postgres://localhost/x",
			DBPoolMin:       1,
			DBPoolMax:       4,
			MaxFileSize:     10,
			CleanupInterval: time.Hour,
			JobRetention:    time.Hour,
			ExportRetention: time.Hour,
			LogLevel:        LogInfo,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, true},
		{"inverted pool bounds", func(c *Config) { c.DBPoolMin = 9 }, true},
		{"zero max size", func(c *Config) { c.MaxFileSize = 0 }, true},
		{"zero retention", func(c *Config) { c.JobRetention = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := base()
			tt.mutate(cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestAllowsAudioType(t *testing.T) {
	t.Parallel()

	cfg := &Config{AllowedAudioTypes: []string{"wav", "mp3"}}
	for ext, want := range map[string]bool{".WAV": true, "mp3": true, ".txt": false, "": false} {
		if got := cfg.AllowsAudioType(ext); got != want {
			t.Errorf("AllowsAudioType(%q) = %v, want %v", ext, got, want)
		}
	}
}
