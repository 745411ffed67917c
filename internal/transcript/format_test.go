package transcript

import (
	"testing"

	"github.com/meetmemo/meetmemo/internal/job"
)

func TestFormatSpeakerName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		label string
		want  string
	}{
		{"SPEAKER_00", "Speaker 1"},
		{"SPEAKER_01", "Speaker 2"},
		{"SPEAKER_12", "Speaker 13"},
		{"Alice", "Alice"},
		{"SPEAKER_", "SPEAKER_"},
		{"SPEAKER_xx", "SPEAKER_xx"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := FormatSpeakerName(tt.label); got != tt.want {
			t.Errorf("FormatSpeakerName(%q) = %q, want %q", tt.label, got, tt.want)
		}
	}
}

func TestFormatForLLM(t *testing.T) {
	t.Parallel()

	segments := []job.TranscriptSegment{
		{Speaker: "SPEAKER_00", Text: "Good morning."},
		{Speaker: "SPEAKER_01", Text: "   "},
		{Speaker: "Alice", Text: "Let's start."},
	}

	got := FormatForLLM(segments)
	want := "Speaker 1: Good morning.\n\nAlice: Let's start."
	if got != want {
		t.Errorf("FormatForLLM = %q, want %q", got, want)
	}
}

func TestFormatForLLM_Empty(t *testing.T) {
	t.Parallel()

	if got := FormatForLLM(nil); got != "" {
		t.Errorf("FormatForLLM(nil) = %q", got)
	}
}
