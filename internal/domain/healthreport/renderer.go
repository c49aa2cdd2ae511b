package healthreport

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/ehr/healthreport/internal/domain/healthrecord"
)

// Page geometry in millimetres, A4 portrait.
const (
	marginX      = 15.0
	marginTop    = 20.0
	marginBottom = 15.0
	font         = "Helvetica"

	// GeneratedLayout matches the en-US locale string, e.g. 5/1/2024, 10:00:00 AM.
	GeneratedLayout = "1/2/2006, 3:04:05 PM"
)

var (
	colorTitle   = [3]int{41, 98, 255}
	colorSubtle  = [3]int{100, 100, 100}
	colorRule    = [3]int{200, 200, 200}
	colorHeading = [3]int{0, 0, 0}
	colorBody    = [3]int{60, 60, 60}
	colorFooter  = [3]int{150, 150, 150}
)

var footerLines = [2]string{
	"This report is generated for informational purposes only.",
	"Please consult with a healthcare professional for medical advice.",
}

// Document is a rendered report. Lines holds every text line in drawing
// order, wrapped as it appears on the page.
type Document struct {
	PDF   []byte
	Lines []string
	Pages int
}

// Renderer lays out health records as PDF reports. It keeps no state between
// calls and is safe for concurrent use.
type Renderer struct {
	now      func() time.Time
	compress bool
}

type Option func(*Renderer)

// WithClock replaces the clock used for the "Generated:" line.
func WithClock(now func() time.Time) Option {
	return func(r *Renderer) { r.now = now }
}

// WithoutCompression leaves content streams uncompressed.
func WithoutCompression() Option {
	return func(r *Renderer) { r.compress = false }
}

func NewRenderer(opts ...Option) *Renderer {
	r := &Renderer{now: time.Now, compress: true}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// layout tracks the vertical cursor of one document.
type layout struct {
	pdf    *fpdf.Fpdf
	tr     func(string) string
	width  float64
	height float64
	y      float64
	lines  []string
}

// Render lays out rec on a fresh document. It stops with ctx.Err() once ctx
// is done.
func (r *Renderer) Render(ctx context.Context, rec *healthrecord.HealthRecord) (*Document, error) {
	now := r.now()

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(r.compress)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(marginX, marginTop, marginX)
	pdf.SetCreationDate(now)
	pdf.SetModificationDate(now)
	pdf.SetTitle("Health Report", true)
	pdf.SetSubject("Health Report "+rec.ID, true)
	pdf.SetCreator("healthreport", true)
	pdf.AddPage()

	w, h := pdf.GetPageSize()
	l := &layout{
		pdf:    pdf,
		tr:     pdf.UnicodeTranslatorFromDescriptor(""),
		width:  w,
		height: h,
		y:      marginTop,
	}

	l.style("", 24, colorTitle)
	l.centered("HEALTH REPORT")
	l.y += 15
	l.style("", 10, colorSubtle)
	l.centered("Generated: " + now.Format(GeneratedLayout))
	l.y += 15
	l.rule()

	l.y += 10
	l.heading("PATIENT INFORMATION")
	l.y += 8
	l.style("", 11, colorBody)
	for i, line := range PatientLines(rec) {
		if i > 0 {
			l.y += 7
		}
		l.text(line)
	}
	l.y += 12
	l.rule()

	l.y += 10
	l.heading("VITAL SIGNS")
	l.y += 8
	l.style("", 11, colorBody)
	for _, line := range VitalLines(rec) {
		l.text(line)
		l.y += 7
	}
	l.y += 5
	l.rule()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.y += 10
	l.heading("MEDICAL DETAILS")
	l.y += 8
	for _, s := range MedicalSections(rec) {
		l.style("B", 11, colorBody)
		l.text(s.Label)
		l.y += 6
		l.style("", 11, colorBody)
		wrapped := l.wrap(s.Text, l.width-2*marginX)
		for i, line := range wrapped {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if i > 0 {
				l.y += 5
			}
			l.text(line)
		}
		// the cursor ends one line below the block plus a gap
		l.y += 5 + 5
	}

	l.y += 10
	l.style("", 8, colorFooter)
	l.centered(footerLines[0])
	l.y += 4
	l.centered(footerLines[1])

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("lay out report: %w", err)
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("serialize report: %w", err)
	}
	return &Document{PDF: buf.Bytes(), Lines: l.lines, Pages: pdf.PageCount()}, nil
}

func (l *layout) style(weight string, size float64, color [3]int) {
	l.pdf.SetFont(font, weight, size)
	l.pdf.SetTextColor(color[0], color[1], color[2])
}

func (l *layout) heading(s string) {
	l.style("", 16, colorHeading)
	l.text(s)
}

// fit starts a new page when the cursor has run past the bottom margin.
func (l *layout) fit() {
	if l.y > l.height-marginBottom {
		l.pdf.AddPage()
		l.y = marginTop
	}
}

func (l *layout) text(s string) {
	l.fit()
	l.pdf.Text(marginX, l.y, l.tr(s))
	l.lines = append(l.lines, s)
}

func (l *layout) centered(s string) {
	l.fit()
	enc := l.tr(s)
	l.pdf.Text((l.width-l.pdf.GetStringWidth(enc))/2, l.y, enc)
	l.lines = append(l.lines, s)
}

func (l *layout) rule() {
	l.fit()
	l.pdf.SetDrawColor(colorRule[0], colorRule[1], colorRule[2])
	l.pdf.Line(marginX, l.y, l.width-marginX, l.y)
}

// wrap breaks s into lines no wider than max in the current font. Explicit
// newlines start a new line; words longer than max are split. Each rune is
// measured once and widths are summed, so the cost is linear in len(s).
func (l *layout) wrap(s string, max float64) []string {
	widths := make(map[rune]float64)
	measure := func(r rune) float64 {
		w, ok := widths[r]
		if !ok {
			w = l.pdf.GetStringWidth(l.tr(string(r)))
			widths[r] = w
		}
		return w
	}
	space := measure(' ')

	var out []string
	for _, para := range strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n") {
		var line strings.Builder
		lineW := 0.0
		for _, word := range strings.Fields(para) {
			wordW := 0.0
			for _, r := range word {
				wordW += measure(r)
			}
			if line.Len() > 0 && lineW+space+wordW <= max {
				line.WriteByte(' ')
				line.WriteString(word)
				lineW += space + wordW
				continue
			}
			if line.Len() > 0 {
				out = append(out, line.String())
				line.Reset()
				lineW = 0
			}
			if wordW <= max {
				line.WriteString(word)
				lineW = wordW
				continue
			}
			// split the word, at least one rune per line
			start, chunkW := 0, 0.0
			for i, r := range word {
				rw := measure(r)
				if i > start && chunkW+rw > max {
					out = append(out, word[start:i])
					start, chunkW = i, 0
				}
				chunkW += rw
			}
			line.WriteString(word[start:])
			lineW = chunkW
		}
		out = append(out, line.String())
	}
	// drop trailing blank lines
	for len(out) > 1 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return out
}
