package healthrecord

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// ErrNotFound is returned by every Repository when no record has the
// requested id, including ids that are not well-formed.
var ErrNotFound = errors.New("health record not found")

const (
	GenderMale   = "male"
	GenderFemale = "female"
	GenderOther  = "other"
)

const (
	MinAge = 0
	MaxAge = 150
)

// Fields are the values captured at intake. Optional values are nil when
// absent, never zero or empty.
type Fields struct {
	PatientName            string   `json:"patient_name"`
	Age                    int      `json:"age"`
	Gender                 string   `json:"gender"`
	BloodPressureSystolic  *int     `json:"blood_pressure_systolic,omitempty"`
	BloodPressureDiastolic *int     `json:"blood_pressure_diastolic,omitempty"`
	HeartRate              *int     `json:"heart_rate,omitempty"`
	Temperature            *float64 `json:"temperature,omitempty"`
	Weight                 *float64 `json:"weight,omitempty"`
	Height                 *float64 `json:"height,omitempty"`
	MedicalHistory         *string  `json:"medical_history,omitempty"`
	CurrentMedications     *string  `json:"current_medications,omitempty"`
	Symptoms               *string  `json:"symptoms,omitempty"`
	Diagnosis              *string  `json:"diagnosis,omitempty"`
}

// HealthRecord maps to the health_records table. Records are immutable once
// stored.
type HealthRecord struct {
	ID string `json:"id"`
	Fields
	CreatedAt time.Time `json:"created_at"`
}

// Input is the creation payload. Age is a pointer so a missing age can be
// told apart from age 0.
type Input struct {
	PatientName            string   `json:"patient_name"`
	Age                    *int     `json:"age"`
	Gender                 string   `json:"gender"`
	BloodPressureSystolic  *int     `json:"blood_pressure_systolic"`
	BloodPressureDiastolic *int     `json:"blood_pressure_diastolic"`
	HeartRate              *int     `json:"heart_rate"`
	Temperature            *float64 `json:"temperature"`
	Weight                 *float64 `json:"weight"`
	Height                 *float64 `json:"height"`
	MedicalHistory         *string  `json:"medical_history"`
	CurrentMedications     *string  `json:"current_medications"`
	Symptoms               *string  `json:"symptoms"`
	Diagnosis              *string  `json:"diagnosis"`
}

// ValidationError lists every rejected field with a message.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Fields[k]
	}
	return "invalid health record: " + strings.Join(parts, "; ")
}

// Normalize validates the input and returns the fields to store: the name
// trimmed, gender lower-cased, blank texts dropped.
func (in Input) Normalize() (Fields, error) {
	verr := &ValidationError{Fields: map[string]string{}}
	f := Fields{
		PatientName: strings.TrimSpace(in.PatientName),
		Gender:      strings.ToLower(strings.TrimSpace(in.Gender)),
	}

	if f.PatientName == "" {
		verr.Fields["patient_name"] = "is required"
	}

	switch {
	case in.Age == nil:
		verr.Fields["age"] = "is required"
	case *in.Age < MinAge || *in.Age > MaxAge:
		verr.Fields["age"] = fmt.Sprintf("must be between %d and %d", MinAge, MaxAge)
	default:
		f.Age = *in.Age
	}

	switch f.Gender {
	case "":
		verr.Fields["gender"] = "is required"
	case GenderMale, GenderFemale, GenderOther:
	default:
		verr.Fields["gender"] = "must be one of male, female, other"
	}

	f.BloodPressureSystolic = positiveInt(verr, "blood_pressure_systolic", in.BloodPressureSystolic)
	f.BloodPressureDiastolic = positiveInt(verr, "blood_pressure_diastolic", in.BloodPressureDiastolic)
	f.HeartRate = positiveInt(verr, "heart_rate", in.HeartRate)
	f.Temperature = positiveFloat(verr, "temperature", in.Temperature)
	f.Weight = positiveFloat(verr, "weight", in.Weight)
	f.Height = positiveFloat(verr, "height", in.Height)

	f.MedicalHistory = text(in.MedicalHistory)
	f.CurrentMedications = text(in.CurrentMedications)
	f.Symptoms = text(in.Symptoms)
	f.Diagnosis = text(in.Diagnosis)

	if len(verr.Fields) > 0 {
		return Fields{}, verr
	}
	return f, nil
}

func positiveInt(verr *ValidationError, name string, v *int) *int {
	if v == nil {
		return nil
	}
	if *v <= 0 {
		verr.Fields[name] = "must be greater than 0"
		return nil
	}
	n := *v
	return &n
}

func positiveFloat(verr *ValidationError, name string, v *float64) *float64 {
	if v == nil {
		return nil
	}
	if *v <= 0 || math.IsInf(*v, 0) || math.IsNaN(*v) {
		verr.Fields[name] = "must be greater than 0"
		return nil
	}
	n := *v
	return &n
}

func text(v *string) *string {
	if v == nil || strings.TrimSpace(*v) == "" {
		return nil
	}
	s := *v
	return &s
}
