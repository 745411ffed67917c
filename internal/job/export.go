package job

import (
	"fmt"
	"time"
)

// ExportType selects the rendered artifact format for an export job.
type ExportType string

const (
	// ExportPDF renders summary + transcript as PDF.
	ExportPDF ExportType = "pdf"

	// ExportMarkdown renders summary + transcript as Markdown.
	ExportMarkdown ExportType = "markdown"

	// ExportTranscriptPDF renders the transcript only, as PDF.
	ExportTranscriptPDF ExportType = "transcript_pdf"

	// ExportTranscriptMarkdown renders the transcript only, as Markdown.
	ExportTranscriptMarkdown ExportType = "transcript_markdown"
)

// ParseExportType converts a string into an [ExportType].
func ParseExportType(s string) (ExportType, error) {
	switch ExportType(s) {
	case ExportPDF, ExportMarkdown, ExportTranscriptPDF, ExportTranscriptMarkdown:
		return ExportType(s), nil
	}
	return "", fmt.Errorf("job: unknown export type %q", s)
}

// Ext returns the file extension (without dot) for the rendered artifact.
func (t ExportType) Ext() string {
	switch t {
	case ExportPDF, ExportTranscriptPDF:
		return "pdf"
	default:
		return "md"
	}
}

// IncludesSummary reports whether the format embeds the meeting summary.
func (t ExportType) IncludesSummary() bool {
	return t == ExportPDF || t == ExportMarkdown
}

// ExportJob is the parallel workflow record for rendering a downloadable
// artifact from a completed [Job].
type ExportJob struct {
	ID           string
	JobID        string
	Type         ExportType
	StatusCode   int
	Progress     int
	FilePath     string
	ErrorMessage string
	CreatedAt    time.Time
}

// Ready reports whether the rendered artifact is available for download.
func (e *ExportJob) Ready() bool {
	return e.StatusCode == StatusDone && e.FilePath != ""
}
