package healthreport

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ehr/healthreport/internal/domain/healthrecord"
)

// ErrRecordIDRequired is returned when Generate is called without an id.
var ErrRecordIDRequired = errors.New("record id is required")

// RenderError wraps a failure to lay out or serialize a report.
type RenderError struct {
	RecordID string
	Err      error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render report for %s: %v", e.RecordID, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// RecordSource loads stored records. healthrecord.Service satisfies it.
type RecordSource interface {
	GetRecord(ctx context.Context, id string) (*healthrecord.HealthRecord, error)
}

// Report is a finished PDF ready to send.
type Report struct {
	RecordID string
	Filename string
	Content  []byte
	Pages    int
}

type Service struct {
	records  RecordSource
	renderer *Renderer
}

func NewService(records RecordSource, renderer *Renderer) *Service {
	if renderer == nil {
		renderer = NewRenderer()
	}
	return &Service{records: records, renderer: renderer}
}

// Generate fetches the record and renders its report. A missing record
// yields healthrecord.ErrNotFound.
func (s *Service) Generate(ctx context.Context, recordID string) (*Report, error) {
	recordID = strings.TrimSpace(recordID)
	if recordID == "" {
		return nil, ErrRecordIDRequired
	}

	rec, err := s.records.GetRecord(ctx, recordID)
	if err != nil {
		if errors.Is(err, healthrecord.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load record %s: %w", recordID, err)
	}

	start := time.Now()
	doc, err := s.renderer.Render(ctx, rec)
	if err != nil {
		return nil, &RenderError{RecordID: recordID, Err: err}
	}

	zerolog.Ctx(ctx).Info().
		Str("record_id", recordID).
		Int("pages", doc.Pages).
		Int("bytes", len(doc.PDF)).
		Dur("render_time", time.Since(start)).
		Msg("health report generated")

	return &Report{
		RecordID: rec.ID,
		Filename: Filename(rec.ID),
		Content:  doc.PDF,
		Pages:    doc.Pages,
	}, nil
}
