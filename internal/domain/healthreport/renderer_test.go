package healthreport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/ehr/healthreport/internal/domain/healthrecord"
)

var fixedNow = time.Date(2024, 5, 1, 14, 3, 9, 0, time.UTC)

func testRenderer() *Renderer {
	return NewRenderer(WithClock(func() time.Time { return fixedNow }), WithoutCompression())
}

func fullRecord() *healthrecord.HealthRecord {
	r := requiredOnly()
	r.BloodPressureSystolic = intp(120)
	r.BloodPressureDiastolic = intp(80)
	r.HeartRate = intp(72)
	r.Temperature = floatp(98.6)
	r.Weight = floatp(150)
	r.Height = floatp(68)
	r.MedicalHistory = strp("Childhood asthma, resolved.")
	r.CurrentMedications = strp("Loratadine 10mg daily")
	r.Symptoms = strp("Sneezing and itchy eyes in the morning")
	r.Diagnosis = strp("Seasonal allergic rhinitis")
	return r
}

// between returns the lines after start and before end.
func between(lines []string, start, end string) []string {
	var out []string
	in := false
	for _, l := range lines {
		switch {
		case l == start:
			in = true
		case l == end:
			return out
		case in:
			out = append(out, l)
		}
	}
	return out
}

func contains(lines []string, s string) bool {
	for _, l := range lines {
		if l == s {
			return true
		}
	}
	return false
}

func TestRender_FullRecord(t *testing.T) {
	doc, err := testRenderer().Render(context.Background(), fullRecord())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.HasPrefix(doc.PDF, []byte("%PDF-")) {
		t.Fatal("output is not a PDF")
	}
	if doc.Pages != 1 {
		t.Errorf("expected 1 page, got %d", doc.Pages)
	}

	want := []string{
		"HEALTH REPORT",
		"Generated: 5/1/2024, 2:03:09 PM",
		"PATIENT INFORMATION",
		"Name: Jane Doe",
		"Age: 34 years",
		"Gender: Female",
		"Record ID: 4b0e5c34-1f1a-4c84-9a0e-2d2f6f1d8a10",
		"VITAL SIGNS",
		"Blood Pressure: 120/80 mmHg",
		"Heart Rate: 72 BPM",
		"Temperature: 98.6°F",
		"Weight: 150 lbs",
		`Height: 5'8" (68 inches)`,
		"BMI: 22.8",
		"MEDICAL DETAILS",
		"Medical History:",
		"Childhood asthma, resolved.",
		"Current Medications:",
		"Loratadine 10mg daily",
		"Current Symptoms:",
		"Sneezing and itchy eyes in the morning",
		"Diagnosis / Notes:",
		"Seasonal allergic rhinitis",
		"This report is generated for informational purposes only.",
		"Please consult with a healthcare professional for medical advice.",
	}
	if strings.Join(doc.Lines, "\n") != strings.Join(want, "\n") {
		t.Errorf("unexpected lines:\n%s", strings.Join(doc.Lines, "\n"))
	}

	for _, s := range []string{"(HEALTH REPORT) Tj", "(BMI: 22.8) Tj", "(Weight: 150 lbs) Tj"} {
		if !bytes.Contains(doc.PDF, []byte(s)) {
			t.Errorf("expected content stream to contain %q", s)
		}
	}
}

func TestRender_RequiredOnly(t *testing.T) {
	doc, err := testRenderer().Render(context.Background(), requiredOnly())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if vitals := between(doc.Lines, "VITAL SIGNS", "MEDICAL DETAILS"); len(vitals) != 0 {
		t.Errorf("expected no vital lines, got %q", vitals)
	}
	details := between(doc.Lines, "MEDICAL DETAILS", footerLines[0])
	if len(details) != 0 {
		t.Errorf("expected no medical details, got %q", details)
	}
	for _, l := range doc.Lines {
		if strings.Contains(l, "0 BPM") || strings.HasPrefix(l, "BMI") || strings.HasSuffix(l, ": ") {
			t.Errorf("unexpected placeholder line %q", l)
		}
	}
}

func TestRender_PartialBloodPressure(t *testing.T) {
	r := requiredOnly()
	r.BloodPressureSystolic = intp(120)
	doc, err := testRenderer().Render(context.Background(), r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, l := range doc.Lines {
		if strings.HasPrefix(l, "Blood Pressure") {
			t.Fatalf("blood pressure must be omitted without diastolic, got %q", l)
		}
	}
}

func TestRender_WrapsLongText(t *testing.T) {
	r := requiredOnly()
	r.Symptoms = strp(strings.Repeat("persistent dry cough with mild fever ", 20) + strings.Repeat("x", 300))
	doc, err := testRenderer().Render(context.Background(), r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wrapped := between(doc.Lines, "Current Symptoms:", footerLines[0])
	if len(wrapped) < 4 {
		t.Fatalf("expected text to wrap onto several lines, got %d", len(wrapped))
	}
	joined := strings.Join(wrapped, "")
	if strings.Count(joined, "x") != 300 {
		t.Error("long word lost characters while splitting")
	}
}

func TestRender_KeepsExplicitLineBreaks(t *testing.T) {
	r := requiredOnly()
	r.CurrentMedications = strp("Ibuprofen\nVitamin D")
	doc, err := testRenderer().Render(context.Background(), r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := between(doc.Lines, "Current Medications:", footerLines[0])
	if len(got) != 2 || got[0] != "Ibuprofen" || got[1] != "Vitamin D" {
		t.Errorf("unexpected lines %q", got)
	}
}

func TestRender_Paginates(t *testing.T) {
	r := requiredOnly()
	var b strings.Builder
	for i := 0; i < 120; i++ {
		fmt.Fprintf(&b, "Visit %d: follow-up appointment\n", i)
	}
	r.MedicalHistory = strp(b.String())

	doc, err := testRenderer().Render(context.Background(), r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Pages < 2 {
		t.Fatalf("expected the report to span several pages, got %d", doc.Pages)
	}
	if doc.Lines[len(doc.Lines)-1] != footerLines[1] {
		t.Error("expected the footer after the paginated content")
	}
	if !contains(doc.Lines, "Visit 119: follow-up appointment") {
		t.Error("expected the last history line to be rendered")
	}
}

func TestRender_Compressed(t *testing.T) {
	doc, err := NewRenderer().Render(context.Background(), fullRecord())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.HasPrefix(doc.PDF, []byte("%PDF-")) {
		t.Fatal("output is not a PDF")
	}
	if bytes.Contains(doc.PDF, []byte("(BMI: 22.8) Tj")) {
		t.Error("expected compressed content streams")
	}
}

func TestRender_ConcurrentRecordsStayIndependent(t *testing.T) {
	renderer := testRenderer()
	a := fullRecord()
	a.ID = "aaaaaaaa-0000-4000-8000-000000000001"
	a.PatientName = "Alice Alpha"
	b := requiredOnly()
	b.ID = "bbbbbbbb-0000-4000-8000-000000000002"
	b.PatientName = "Bob Beta"
	b.Gender = "male"

	var wg sync.WaitGroup
	errs := make(chan error, 40)
	for i := 0; i < 20; i++ {
		for _, rec := range []*healthrecord.HealthRecord{a, b} {
			wg.Add(1)
			go func(rec *healthrecord.HealthRecord) {
				defer wg.Done()
				doc, err := renderer.Render(context.Background(), rec)
				if err != nil {
					errs <- err
					return
				}
				other := "Name: Alice Alpha"
				if rec == a {
					other = "Name: Bob Beta"
				}
				if !contains(doc.Lines, "Name: "+rec.PatientName) || contains(doc.Lines, other) {
					errs <- fmt.Errorf("report for %s has foreign content", rec.ID)
				}
				if !contains(doc.Lines, "Record ID: "+rec.ID) {
					errs <- fmt.Errorf("report for %s is missing its id", rec.ID)
				}
				if rec == b && contains(doc.Lines, "BMI: 22.8") {
					errs <- fmt.Errorf("report for %s picked up another record's vitals", rec.ID)
				}
			}(rec)
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestRender_LongWordIsLinear(t *testing.T) {
	r := requiredOnly()
	r.Diagnosis = strp(strings.Repeat("x", 1<<20))

	start := time.Now()
	doc, err := testRenderer().Render(context.Background(), r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 10*time.Second {
		t.Fatalf("rendering a 1 MB word took %s", elapsed)
	}
	wrapped := between(doc.Lines, "Diagnosis / Notes:", footerLines[0])
	if got := len(strings.Join(wrapped, "")); got != 1<<20 {
		t.Errorf("expected every character to be kept, got %d", got)
	}
	if doc.Pages < 2 {
		t.Errorf("expected several pages, got %d", doc.Pages)
	}
}

func TestWrap_ChunksFitWidth(t *testing.T) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetFont(font, "", 11)
	l := &layout{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}

	const max = 40.0
	lines := l.wrap("short words first "+strings.Repeat("W", 205)+" tail", max)
	if len(lines) < 3 {
		t.Fatalf("expected the long word to be split, got %q", lines)
	}
	for _, line := range lines {
		if w := pdf.GetStringWidth(line); w > max+1e-9 {
			t.Errorf("line %q is %.2fmm wide, max %.0f", line, w, max)
		}
	}
	if lines[0] != "short words first" {
		t.Errorf("expected words before the long one on their own line, got %q", lines[0])
	}
	if !strings.HasSuffix(lines[len(lines)-1], " tail") {
		t.Errorf("expected the tail to follow the last chunk, got %q", lines[len(lines)-1])
	}
}

func TestRender_StopsWhenContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := testRenderer().Render(ctx, fullRecord())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
