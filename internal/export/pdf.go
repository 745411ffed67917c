package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"

	"github.com/meetmemo/meetmemo/internal/transcript"
)

// renderPDF produces the PDF export document. The summary keeps its markdown
// heading structure rendered as styled paragraphs; the transcript is one
// paragraph per speaker turn.
func renderPDF(doc *document) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(doc.Title, true)
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 25)
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(127, 140, 141)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	pdf.SetTextColor(44, 62, 80)
	pdf.SetFont("Helvetica", "B", 22)
	pdf.MultiCell(0, 10, doc.Title, "", "C", false)
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "I", 10)
	pdf.SetTextColor(127, 140, 141)
	pdf.MultiCell(0, 6, "Generated on "+doc.generatedOn(), "", "C", false)
	pdf.Ln(6)

	if doc.Summary != "" {
		writeHeading(pdf, "Summary")
		writeMarkdownBody(pdf, doc.Summary)
		pdf.Ln(4)
	}

	if len(doc.Segments) > 0 {
		writeHeading(pdf, "Transcript")
		for _, seg := range doc.Segments {
			pdf.SetFont("Helvetica", "B", 10)
			pdf.SetTextColor(44, 62, 80)
			header := fmt.Sprintf("%s (%s - %s)",
				transcript.FormatSpeakerName(seg.Speaker),
				transcript.FormatTimestamp(seg.Start),
				transcript.FormatTimestamp(seg.End))
			pdf.MultiCell(0, 5, header, "", "L", false)

			pdf.SetFont("Helvetica", "", 10)
			pdf.SetTextColor(60, 60, 60)
			pdf.MultiCell(0, 5, seg.Text, "", "L", false)
			pdf.Ln(3)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("export: render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func writeHeading(pdf *fpdf.Fpdf, title string) {
	pdf.SetFont("Helvetica", "B", 16)
	pdf.SetTextColor(44, 62, 80)
	pdf.MultiCell(0, 8, title, "", "L", false)
	pdf.Ln(2)
}

// writeMarkdownBody renders markdown line by line: headings become bold
// lines, everything else is body text with the emphasis markers stripped.
func writeMarkdownBody(pdf *fpdf.Fpdf, md string) {
	for _, line := range strings.Split(md, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			pdf.Ln(3)
		case strings.HasPrefix(trimmed, "#"):
			pdf.SetFont("Helvetica", "B", 12)
			pdf.SetTextColor(44, 62, 80)
			pdf.MultiCell(0, 6, strings.TrimSpace(strings.TrimLeft(trimmed, "#")), "", "L", false)
		default:
			pdf.SetFont("Helvetica", "", 10)
			pdf.SetTextColor(60, 60, 60)
			pdf.MultiCell(0, 5, stripEmphasis(trimmed), "", "L", false)
		}
	}
}

func stripEmphasis(s string) string {
	s = strings.ReplaceAll(s, "**", "")
	return strings.ReplaceAll(s, "*", "")
}
