// Package transcript serves attributed transcripts: edited-preferred reads,
// user edits with summary-cache invalidation, speaker renames, and the
// formatting helpers shared by the summary and export layers.
package transcript

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/meetmemo/meetmemo/internal/job"
)

// FormatSpeakerName maps a diarizer label "SPEAKER_<nn>" to the display form
// "Speaker <nn+1>". Other labels (user renames included) pass through as-is.
func FormatSpeakerName(label string) string {
	suffix, ok := strings.CutPrefix(label, "SPEAKER_")
	if !ok {
		return label
	}
	n, err := strconv.Atoi(suffix)
	if err != nil {
		return label
	}
	return fmt.Sprintf("Speaker %d", n+1)
}

// FormatTimestamp renders a seconds value like "65.50" as "1:05". Unparsable
// input renders as "0:00".
func FormatTimestamp(seconds string) string {
	f, err := strconv.ParseFloat(strings.TrimSpace(seconds), 64)
	if err != nil || f < 0 {
		f = 0
	}
	total := int(f)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

// FormatForLLM projects segments to "<display_speaker>: <text>" lines joined
// by blank lines, skipping empty-text segments. This is the canonical
// transcript rendering fed to the summarizer.
func FormatForLLM(segments []job.TranscriptSegment) string {
	var lines []string
	for _, seg := range segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		lines = append(lines, FormatSpeakerName(seg.Speaker)+": "+text)
	}
	return strings.Join(lines, "\n\n")
}
