package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	t.Parallel()

	cause := errors.New("connection refused")

	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"validation", Validation("bad id %q", "x"), KindValidation},
		{"not found", NotFound("job %s", "abc"), KindNotFound},
		{"external", External(cause, "llm call"), KindExternal},
		{"wrapped once more", fmt.Errorf("handler: %w", NotFound("gone")), KindNotFound},
		{"plain error", cause, KindInternal},
		{"nil cause kept", New(KindConflict, "already running"), KindConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestErrorMessage(t *testing.T) {
	t.Parallel()

	cause := errors.New("boom")
	err := External(cause, "transcode %s", "a.mp3")
	if got, want := err.Error(), "transcode a.mp3: boom"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, cause) {
		t.Error("expected wrapped cause to satisfy errors.Is")
	}
}

func TestIsKind(t *testing.T) {
	t.Parallel()

	if !IsKind(NotFound("x"), KindNotFound) {
		t.Error("IsKind should match")
	}
	if IsKind(nil, KindInternal) {
		t.Error("nil error must not match any kind")
	}
}
