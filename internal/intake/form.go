package intake

import (
	"sort"
	"strings"

	"github.com/ehr/healthreport/internal/domain/healthrecord"
)

// Form is what the intake front ends submit. It serializes exactly like the
// creation payload of the records API.
type Form struct {
	healthrecord.Input
}

// MissingFieldsError names the required fields left blank.
type MissingFieldsError struct {
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	return "please fill in the required fields: " + strings.Join(e.Fields, ", ")
}

// Validate checks the required fields only. Range and enum checks are left
// to the server so both front ends show the same messages.
func (f Form) Validate() error {
	var missing []string
	if strings.TrimSpace(f.PatientName) == "" {
		missing = append(missing, "patient_name")
	}
	if f.Age == nil {
		missing = append(missing, "age")
	}
	if strings.TrimSpace(f.Gender) == "" {
		missing = append(missing, "gender")
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return &MissingFieldsError{Fields: missing}
}
