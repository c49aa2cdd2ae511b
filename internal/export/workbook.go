// Package export writes stored health records to an Excel workbook.
package export

import (
	"context"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"github.com/ehr/healthreport/internal/domain/healthrecord"
	"github.com/ehr/healthreport/internal/domain/healthreport"
)

const (
	SheetName = "Health Records"
	pageSize  = 200
)

// Headers are the workbook columns in order.
var Headers = []string{
	"Record ID",
	"Patient Name",
	"Age",
	"Gender",
	"BP Systolic",
	"BP Diastolic",
	"Heart Rate (BPM)",
	"Temperature (°F)",
	"Weight (lbs)",
	"Height (inches)",
	"BMI",
	"Medical History",
	"Current Medications",
	"Current Symptoms",
	"Diagnosis / Notes",
	"Created At",
}

var columnWidths = []float64{38, 24, 8, 10, 12, 12, 16, 16, 12, 14, 8, 40, 40, 40, 40, 22}

// Lister pages through stored records, newest first.
type Lister interface {
	ListRecords(ctx context.Context, limit, offset int) ([]*healthrecord.HealthRecord, int, error)
}

// Write exports up to maxRows records (all when maxRows <= 0) and returns the number
// of rows written.
func Write(ctx context.Context, records Lister, w io.Writer, maxRows int) (int, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(SheetName)
	if err != nil {
		return 0, fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return 0, fmt.Errorf("delete default sheet: %w", err)
	}

	if err := writeHeader(f); err != nil {
		return 0, err
	}

	written := 0
	for maxRows <= 0 || written < maxRows {
		limit := pageSize
		if maxRows > 0 && maxRows-written < limit {
			limit = maxRows - written
		}
		page, total, err := records.ListRecords(ctx, limit, written)
		if err != nil {
			return written, fmt.Errorf("list health records: %w", err)
		}
		for _, rec := range page {
			cell, err := excelize.CoordinatesToCellName(1, written+2)
			if err != nil {
				return written, err
			}
			values := row(rec)
			if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
				return written, fmt.Errorf("write row %d: %w", written+2, err)
			}
			written++
		}
		if len(page) == 0 || written >= total {
			break
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return written, fmt.Errorf("write workbook: %w", err)
	}
	zerolog.Ctx(ctx).Info().Int("rows", written).Msg("health records exported")
	return written, nil
}

func writeHeader(f *excelize.File) error {
	style, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#2962FF"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	header := make([]interface{}, len(Headers))
	for i, h := range Headers {
		header[i] = h
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	last, err := excelize.ColumnNumberToName(len(Headers))
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetName, "A1", last+"1", style); err != nil {
		return fmt.Errorf("set header style: %w", err)
	}
	for i, width := range columnWidths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(SheetName, col, col, width); err != nil {
			return fmt.Errorf("set column width: %w", err)
		}
	}
	return f.SetPanes(SheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

// row renders absent optional values as empty cells.
func row(r *healthrecord.HealthRecord) []interface{} {
	var bmi interface{}
	if r.Weight != nil && r.Height != nil {
		bmi = math.Round(healthreport.BMI(*r.Weight, *r.Height)*10) / 10
	}
	return []interface{}{
		r.ID,
		r.PatientName,
		r.Age,
		r.Gender,
		value(r.BloodPressureSystolic),
		value(r.BloodPressureDiastolic),
		value(r.HeartRate),
		value(r.Temperature),
		value(r.Weight),
		value(r.Height),
		bmi,
		value(r.MedicalHistory),
		value(r.CurrentMedications),
		value(r.Symptoms),
		value(r.Diagnosis),
		r.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func value[T any](p *T) interface{} {
	if p == nil {
		return nil
	}
	return *p
}
