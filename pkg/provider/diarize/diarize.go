// Package diarize defines the speaker-diarization provider interface.
package diarize

import "context"

// Turn is one contiguous span of speech attributed to a single speaker.
// Labels are opaque diarizer output, conventionally "SPEAKER_<nn>".
type Turn struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Speaker string  `json:"speaker"`
}

// Result is the full output of a diarization run, ordered by turn start.
type Result struct {
	Turns []Turn `json:"turns"`
}

// Provider partitions an audio file into speaker turns.
type Provider interface {
	Diarize(ctx context.Context, audioPath string) (*Result, error)
}
