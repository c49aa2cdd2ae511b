package healthreport

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ehr/healthreport/internal/domain/healthrecord"
)

const (
	kgPerPound = 0.453592
	cmPerInch  = 2.54
)

// Section is one labelled free-text block of the medical details.
type Section struct {
	Label string
	Text  string
}

// FormatNumber prints v in its shortest form: 68, 98.6, 150.25.
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// BMI computes the body mass index from pounds and inches.
func BMI(weightLbs, heightIn float64) float64 {
	m := heightIn * cmPerInch / 100
	return weightLbs * kgPerPound / (m * m)
}

// FormatHeight renders inches as feet and inches, e.g. 5'8" (68 inches).
func FormatHeight(heightIn float64) string {
	feet := math.Floor(heightIn / 12)
	inches := math.Mod(heightIn, 12)
	return fmt.Sprintf(`%s'%s" (%s inches)`, FormatNumber(feet), FormatNumber(inches), FormatNumber(heightIn))
}

func capitalize(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if n == 0 {
		return s
	}
	return string(unicode.ToUpper(r)) + s[n:]
}

// PatientLines are always present.
func PatientLines(r *healthrecord.HealthRecord) []string {
	return []string{
		"Name: " + r.PatientName,
		fmt.Sprintf("Age: %d years", r.Age),
		"Gender: " + capitalize(r.Gender),
		"Record ID: " + r.ID,
	}
}

// VitalLines lists only the measurements that were recorded. Blood pressure
// needs both readings and BMI needs both weight and height.
func VitalLines(r *healthrecord.HealthRecord) []string {
	var lines []string
	if r.BloodPressureSystolic != nil && r.BloodPressureDiastolic != nil {
		lines = append(lines, fmt.Sprintf("Blood Pressure: %d/%d mmHg", *r.BloodPressureSystolic, *r.BloodPressureDiastolic))
	}
	if r.HeartRate != nil {
		lines = append(lines, fmt.Sprintf("Heart Rate: %d BPM", *r.HeartRate))
	}
	if r.Temperature != nil {
		lines = append(lines, "Temperature: "+FormatNumber(*r.Temperature)+"°F")
	}
	if r.Weight != nil {
		lines = append(lines, "Weight: "+FormatNumber(*r.Weight)+" lbs")
	}
	if r.Height != nil {
		lines = append(lines, "Height: "+FormatHeight(*r.Height))
	}
	if r.Weight != nil && r.Height != nil {
		lines = append(lines, fmt.Sprintf("BMI: %.1f", BMI(*r.Weight, *r.Height)))
	}
	return lines
}

// MedicalSections returns the non-empty free-text fields in report order.
func MedicalSections(r *healthrecord.HealthRecord) []Section {
	var out []Section
	add := func(label string, v *string) {
		if v != nil && strings.TrimSpace(*v) != "" {
			out = append(out, Section{Label: label, Text: *v})
		}
	}
	add("Medical History:", r.MedicalHistory)
	add("Current Medications:", r.CurrentMedications)
	add("Current Symptoms:", r.Symptoms)
	add("Diagnosis / Notes:", r.Diagnosis)
	return out
}

// Filename is the download name of the report for record id.
func Filename(id string) string {
	return "health-report-" + id + ".pdf"
}
