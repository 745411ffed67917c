package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/meetmemo/meetmemo/internal/job"
	"github.com/meetmemo/meetmemo/internal/transcript"
)

// document is the render input shared by both output formats. Summary is
// empty for transcript-only exports.
type document struct {
	Title       string
	GeneratedAt time.Time
	Summary     string
	Segments    []job.TranscriptSegment
}

func (d *document) generatedOn() string {
	return d.GeneratedAt.Format("January 2, 2006 at 3:04 PM")
}

// renderMarkdown produces the Markdown export document.
func renderMarkdown(doc *document) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", doc.Title)
	fmt.Fprintf(&b, "*Generated on %s*\n\n", doc.generatedOn())

	if doc.Summary != "" {
		fmt.Fprintf(&b, "## Summary\n\n%s\n\n", doc.Summary)
	}

	if len(doc.Segments) > 0 {
		b.WriteString("## Transcript\n\n")
		for _, seg := range doc.Segments {
			fmt.Fprintf(&b, "**%s** *(%s - %s)*: %s\n\n",
				transcript.FormatSpeakerName(seg.Speaker),
				transcript.FormatTimestamp(seg.Start),
				transcript.FormatTimestamp(seg.End),
				seg.Text)
		}
	}
	return []byte(b.String())
}
