// Package asr defines the speech-to-text provider interface used by the
// transcription pipeline.
package asr

import "context"

// Segment is one timestamped span of transcribed text, in ASR output order.
type Segment struct {
	ID    int     `json:"id"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Result is the full output of a batch transcription.
type Result struct {
	Text     string    `json:"text"`
	Language string    `json:"language"`
	Segments []Segment `json:"segments"`
}

// Provider transcribes audio. Implementations must be safe for concurrent
// use; serializing inference internally is acceptable when the backing
// engine is not re-entrant.
type Provider interface {
	// Transcribe runs batch transcription on an audio file.
	Transcribe(ctx context.Context, audioPath string) (*Result, error)

	// TranscribeChunk transcribes a short in-memory WAV clip and returns the
	// raw text. Used for live partial transcription.
	TranscribeChunk(ctx context.Context, wav []byte) (string, error)
}
