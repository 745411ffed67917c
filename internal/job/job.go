// Package job defines the recording-processing domain types and the workflow
// state machine that gates stage execution.
package job

import (
	"path/filepath"
	"strings"
	"time"
)

// Status codes persisted on jobs, mirroring HTTP semantics.
const (
	StatusInProgress = 202
	StatusDone       = 200
	StatusFailed     = 500
)

// Segment is a single timestamped ASR output span.
type Segment struct {
	ID    int     `json:"id"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// TranscriptionData is the full ASR output persisted after the transcribe stage.
type TranscriptionData struct {
	Text     string    `json:"text"`
	Language string    `json:"language,omitempty"`
	Segments []Segment `json:"segments"`
}

// Turn is one diarization speaker turn.
type Turn struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Speaker string  `json:"speaker"`
}

// DiarizationData is the speaker-turn list persisted after the diarize stage.
type DiarizationData struct {
	Turns []Turn `json:"turns"`
}

// TranscriptSegment is one entry of the canonical speaker-attributed
// transcript. Start and End are seconds rendered with two decimals.
type TranscriptSegment struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
	Start   string `json:"start"`
	End     string `json:"end"`
}

// Job represents one uploaded recording's processing lifecycle.
type Job struct {
	ID                  string
	FileName            string
	FileHash            string
	WorkflowState       WorkflowState
	StatusCode          int
	CurrentStepProgress int
	ErrorMessage        string
	Transcription       *TranscriptionData
	Diarization         *DiarizationData
	CreatedAt           time.Time
}

// Basename returns the job's file name without its extension. Artifact paths
// for transcripts derive from it.
func (j *Job) Basename() string {
	return strings.TrimSuffix(j.FileName, filepath.Ext(j.FileName))
}

// Title returns the human-facing meeting title used on exports.
func (j *Job) Title() string {
	return j.Basename()
}
