package artifact

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/meetmemo/meetmemo/internal/apperr"
)

func TestSanitizeFilename(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "plain", input: "meeting.wav", want: "meeting.wav"},
		{name: "spaces and dashes", input: "Team Sync - 2026.mp3", want: "Team Sync - 2026.mp3"},
		{name: "strips unix path", input: "/etc/passwd.wav", want: "passwd.wav"},
		{name: "strips windows path", input: `C:\tmp\audio.wav`, want: "audio.wav"},
		{name: "removes odd characters", input: "a<b>|c.wav", want: "abc.wav"},
		{name: "traversal rejected", input: "../../secret.wav", wantErr: true},
		{name: "no extension", input: "noext", wantErr: true},
		{name: "dotfile only", input: ".wav", wantErr: true},
		{name: "empty after cleaning", input: "###", wantErr: true},
		{name: "too long", input: strings.Repeat("a", 300) + ".wav", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := SanitizeFilename(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("SanitizeFilename(%q) = %q, want error", tt.input, got)
				}
				if !apperr.IsKind(err, apperr.KindValidation) {
					t.Errorf("error kind = %v, want validation", apperr.KindOf(err))
				}
				return
			}
			if err != nil {
				t.Fatalf("SanitizeFilename(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitizeFilename_Idempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{"meeting.wav", "Team Sync - 2026.mp3", "a<b>c.flac"}
	for _, in := range inputs {
		first, err := SanitizeFilename(in)
		if err != nil {
			t.Fatalf("first pass on %q: %v", in, err)
		}
		second, err := SanitizeFilename(first)
		if err != nil {
			t.Fatalf("second pass on %q: %v", first, err)
		}
		if first != second {
			t.Errorf("sanitize not idempotent: %q -> %q -> %q", in, first, second)
		}
	}
}

func TestFallbackFilename(t *testing.T) {
	t.Parallel()

	got := FallbackFilename("###.wav")
	if len(got) != len("xxxxxxxx.wav") || !strings.HasSuffix(got, ".wav") {
		t.Errorf("FallbackFilename kept wrong shape: %q", got)
	}

	got = FallbackFilename("no-usable-ext.")
	if !strings.HasSuffix(got, ".bin") {
		t.Errorf("FallbackFilename without extension = %q, want .bin suffix", got)
	}
}

func TestSafeFilename(t *testing.T) {
	t.Parallel()

	if got := SafeFilename("meeting.wav"); got != "meeting.wav" {
		t.Errorf("SafeFilename(valid) = %q", got)
	}
	if got := SafeFilename("###"); got == "###" || got == "" {
		t.Errorf("SafeFilename(invalid) = %q, want fallback", got)
	}
}

func TestUniqueFilename(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	if got := UniqueFilename(dir, "meeting.wav"); got != "meeting.wav" {
		t.Fatalf("no collision: got %q", got)
	}

	mustTouch(t, filepath.Join(dir, "meeting.wav"))
	if got := UniqueFilename(dir, "meeting.wav"); got != "meeting (Copy).wav" {
		t.Fatalf("first collision: got %q", got)
	}

	mustTouch(t, filepath.Join(dir, "meeting (Copy).wav"))
	if got := UniqueFilename(dir, "meeting.wav"); got != "meeting (Copy 2).wav" {
		t.Fatalf("second collision: got %q", got)
	}
}

func TestResolveWithin(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	path, err := ResolveWithin(dir, "meeting.wav")
	if err != nil {
		t.Fatalf("ResolveWithin() unexpected error: %v", err)
	}
	if !strings.HasPrefix(path, dir) {
		t.Errorf("resolved path %q escapes %q", path, dir)
	}

	_, err = ResolveWithin(dir, "../outside.wav")
	if err == nil {
		t.Fatal("ResolveWithin() accepted an escaping path")
	}
	if !apperr.IsKind(err, apperr.KindNotFound) {
		t.Errorf("escape reported as %v, want not-found", apperr.KindOf(err))
	}
}

func mustTouch(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
}
