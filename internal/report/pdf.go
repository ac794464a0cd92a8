package report

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/signintech/gopdf"
)

var ErrNoFont = errors.New("no usable TTF font for PDF rendering")

// DefaultFontPaths are tried in order when no font path is configured.
var DefaultFontPaths = []string{
	"/usr/share/fonts/ttf-dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
}

const (
	fontName  = "DejaVu"
	textWidth = 500.0
)

// PDFRenderer lays a report out on A4 pages.
type PDFRenderer struct {
	fontPaths []string
}

func NewPDFRenderer(fontPaths ...string) *PDFRenderer {
	if len(fontPaths) == 0 {
		fontPaths = DefaultFontPaths
	}
	return &PDFRenderer{fontPaths: fontPaths}
}

func (p *PDFRenderer) Render(r *Report) ([]byte, error) {
	pdf := gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})
	pdf.AddPage()

	var fontErr error
	loaded := false
	for _, path := range p.fontPaths {
		if path == "" {
			continue
		}
		if err := pdf.AddTTFFont(fontName, path); err != nil {
			fontErr = err
			continue
		}
		loaded = true
		break
	}
	if !loaded {
		return nil, fmt.Errorf("%w: %v", ErrNoFont, fontErr)
	}

	w := &pdfWriter{pdf: &pdf}
	w.heading(20, "Medical Self-Assessment Report")
	w.br(30)

	w.font(12)
	w.line(fmt.Sprintf("Report: %s", r.ReportID))
	w.line(fmt.Sprintf("Date: %s", r.GeneratedAt.Format("02.01.2006 15:04")))
	w.line(fmt.Sprintf("Topic: %s", r.AssessmentTopic))
	w.line(fmt.Sprintf("Patient: %s, %d, %s", orDash(r.PatientInfo.Name), r.PatientInfo.Age, orDash(r.PatientInfo.Gender)))
	w.line(fmt.Sprintf("Urgency: %s", urgencyLabel(r.UrgencyLevel)))
	w.br(10)

	w.section("Summary")
	for _, s := range r.Summary {
		w.paragraph("- " + s)
	}

	w.section("Possible causes")
	if len(r.PossibleCauses) == 0 {
		w.paragraph("- None identified.")
	}
	for _, c := range r.PossibleCauses {
		w.paragraph(fmt.Sprintf("- %s (%s, %.0f%%): %s", c.Title, c.Severity, c.Probability*100, c.ShortDescription))
		if c.Detail.Warning != "" {
			w.paragraph("  Warning: " + c.Detail.Warning)
		}
	}

	w.section("Advice")
	for _, a := range r.Advice {
		w.paragraph("- " + a)
	}

	if w.err != nil {
		return nil, w.err
	}
	var buf bytes.Buffer
	if _, err := pdf.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write PDF: %w", err)
	}
	return buf.Bytes(), nil
}

// pdfWriter keeps the first error so layout code reads top to bottom.
type pdfWriter struct {
	pdf *gopdf.GoPdf
	err error
}

func (w *pdfWriter) font(size float64) {
	if w.err == nil {
		w.err = w.pdf.SetFont(fontName, "", size)
	}
}

func (w *pdfWriter) heading(size float64, text string) {
	w.font(size)
	w.cell(text)
}

func (w *pdfWriter) section(title string) {
	w.br(10)
	w.font(14)
	w.cell(title)
	w.br(18)
	w.font(11)
}

func (w *pdfWriter) cell(text string) {
	if w.err == nil {
		w.err = w.pdf.Cell(nil, text)
	}
}

func (w *pdfWriter) br(h float64) {
	if w.pdf.GetY()+h > gopdf.PageSizeA4.H-40 {
		w.pdf.AddPage()
		return
	}
	w.pdf.Br(h)
}

func (w *pdfWriter) line(text string) {
	w.cell(text)
	w.br(15)
}

func (w *pdfWriter) paragraph(text string) {
	if w.err != nil {
		return
	}
	lines, err := w.pdf.SplitText(text, textWidth)
	if err != nil {
		w.err = err
		return
	}
	for _, l := range lines {
		w.cell(l)
		w.br(13)
	}
	w.br(4)
}

func urgencyLabel(level string) string {
	switch level {
	case "red_emergency":
		return "Emergency - seek care now"
	case "yellow_doctor_visit":
		return "See a doctor"
	case "green_self_care":
		return "Self care"
	default:
		return strings.ReplaceAll(level, "_", " ")
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
