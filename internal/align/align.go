// Package align attributes ASR segments to diarized speaker turns.
package align

import (
	"fmt"
	"strings"

	"github.com/meetmemo/meetmemo/internal/job"
)

// SentinelSpeaker is assigned when no diarization turn overlaps a segment.
const SentinelSpeaker = "SPEAKER_00"

// Align assigns each ASR segment the label of the speaker turn with maximum
// overlap duration, ties broken by earliest turn start. Output order is the
// ASR order; turns are a label source only, never a reordering source.
func Align(segments []job.Segment, turns []job.Turn) []job.TranscriptSegment {
	out := make([]job.TranscriptSegment, 0, len(segments))
	for _, seg := range segments {
		out = append(out, job.TranscriptSegment{
			Speaker: bestSpeaker(seg, turns),
			Text:    strings.TrimSpace(seg.Text),
			Start:   fmt.Sprintf("%.2f", seg.Start),
			End:     fmt.Sprintf("%.2f", seg.End),
		})
	}
	return out
}

// bestSpeaker picks the label of the turn maximising overlap with seg.
// Because turns are time-ordered, the first turn seen wins ties on overlap.
func bestSpeaker(seg job.Segment, turns []job.Turn) string {
	best := SentinelSpeaker
	bestOverlap := 0.0
	for _, turn := range turns {
		overlap := min(seg.End, turn.End) - max(seg.Start, turn.Start)
		if overlap > bestOverlap {
			bestOverlap = overlap
			best = turn.Speaker
		}
	}
	return best
}
