package align

import (
	"testing"

	"github.com/meetmemo/meetmemo/internal/job"
)

func TestAlign(t *testing.T) {
	t.Parallel()

	segments := []job.Segment{
		{ID: 0, Start: 0.0, End: 2.0, Text: "  hello everyone  "},
		{ID: 1, Start: 2.0, End: 5.0, Text: "thanks for joining"},
		{ID: 2, Start: 5.0, End: 6.0, Text: "let's begin"},
	}
	turns := []job.Turn{
		{Start: 0.0, End: 2.5, Speaker: "SPEAKER_01"},
		{Start: 2.5, End: 6.5, Speaker: "SPEAKER_02"},
	}

	got := Align(segments, turns)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}

	// Segment 0 overlaps only SPEAKER_01; segment 1 overlaps SPEAKER_02 for
	// 2.5s vs 0.5s; segment 2 only SPEAKER_02.
	wantSpeakers := []string{"SPEAKER_01", "SPEAKER_02", "SPEAKER_02"}
	for i, want := range wantSpeakers {
		if got[i].Speaker != want {
			t.Errorf("segment %d speaker = %q, want %q", i, got[i].Speaker, want)
		}
	}

	if got[0].Text != "hello everyone" {
		t.Errorf("text not trimmed: %q", got[0].Text)
	}
	if got[0].Start != "0.00" || got[1].End != "5.00" {
		t.Errorf("timestamps = %q-%q, %q-%q", got[0].Start, got[0].End, got[1].Start, got[1].End)
	}
}

func TestAlign_EmptyDiarization(t *testing.T) {
	t.Parallel()

	segments := []job.Segment{
		{Start: 0, End: 1, Text: "a"},
		{Start: 1, End: 2, Text: "b"},
	}

	got := Align(segments, nil)
	for i, seg := range got {
		if seg.Speaker != SentinelSpeaker {
			t.Errorf("segment %d speaker = %q, want sentinel", i, seg.Speaker)
		}
	}
}

func TestAlign_SegmentBeforeAnyTurn(t *testing.T) {
	t.Parallel()

	segments := []job.Segment{{Start: 0.0, End: 1.0, Text: "intro"}}
	turns := []job.Turn{{Start: 5.0, End: 10.0, Speaker: "SPEAKER_01"}}

	got := Align(segments, turns)
	if got[0].Speaker != SentinelSpeaker {
		t.Errorf("speaker = %q, want sentinel", got[0].Speaker)
	}
}

func TestAlign_TieBreaksEarliestTurn(t *testing.T) {
	t.Parallel()

	// Both turns overlap the segment for exactly 1s; the earlier turn wins.
	segments := []job.Segment{{Start: 1.0, End: 3.0, Text: "tied"}}
	turns := []job.Turn{
		{Start: 0.0, End: 2.0, Speaker: "SPEAKER_01"},
		{Start: 2.0, End: 4.0, Speaker: "SPEAKER_02"},
	}

	got := Align(segments, turns)
	if got[0].Speaker != "SPEAKER_01" {
		t.Errorf("speaker = %q, want SPEAKER_01 (earliest on tie)", got[0].Speaker)
	}
}

func TestAlign_TouchingBoundaryIsNoOverlap(t *testing.T) {
	t.Parallel()

	// Zero-width contact at the boundary must not count as overlap.
	segments := []job.Segment{{Start: 2.0, End: 3.0, Text: "x"}}
	turns := []job.Turn{{Start: 0.0, End: 2.0, Speaker: "SPEAKER_01"}}

	got := Align(segments, turns)
	if got[0].Speaker != SentinelSpeaker {
		t.Errorf("speaker = %q, want sentinel", got[0].Speaker)
	}
}

func TestAlign_EmptySegments(t *testing.T) {
	t.Parallel()

	got := Align(nil, []job.Turn{{Start: 0, End: 1, Speaker: "SPEAKER_01"}})
	if len(got) != 0 {
		t.Errorf("len = %d, want 0", len(got))
	}
}

func TestAlign_OrderFollowsASR(t *testing.T) {
	t.Parallel()

	segments := []job.Segment{
		{Start: 0, End: 1, Text: "first"},
		{Start: 1, End: 2, Text: "second"},
		{Start: 2, End: 3, Text: "third"},
	}
	turns := []job.Turn{{Start: 0, End: 3, Speaker: "SPEAKER_01"}}

	got := Align(segments, turns)
	for i, want := range []string{"first", "second", "third"} {
		if got[i].Text != want {
			t.Errorf("segment %d text = %q, want %q", i, got[i].Text, want)
		}
	}
}
