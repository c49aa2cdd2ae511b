package healthrecord

import (
	"errors"
	"strings"
	"testing"
)

func intp(v int) *int { return &v }
func floatp(v float64) *float64 { return &v }
func strp(v string) *string { return &v }

func TestNormalize_RequiredOnly(t *testing.T) {
	f, err := Input{PatientName: "  Jane Doe ", Age: intp(0), Gender: "Female"}.Normalize()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.PatientName != "Jane Doe" {
		t.Errorf("expected trimmed name, got %q", f.PatientName)
	}
	if f.Age != 0 {
		t.Errorf("expected age 0, got %d", f.Age)
	}
	if f.Gender != GenderFemale {
		t.Errorf("expected gender female, got %q", f.Gender)
	}
	if f.HeartRate != nil || f.Weight != nil || f.Diagnosis != nil {
		t.Error("expected optional fields to stay absent")
	}
}

func TestNormalize_MissingRequired(t *testing.T) {
	_, err := Input{}.Normalize()
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	for _, field := range []string{"patient_name", "age", "gender"} {
		if verr.Fields[field] != "is required" {
			t.Errorf("expected %s to be required, got %q", field, verr.Fields[field])
		}
	}
}

func TestNormalize_Rejects(t *testing.T) {
	base := func() Input {
		return Input{PatientName: "A", Age: intp(30), Gender: "male"}
	}
	tests := []struct {
		name  string
		mut   func(*Input)
		field string
	}{
		{"age above range", func(in *Input) { in.Age = intp(151) }, "age"},
		{"negative age", func(in *Input) { in.Age = intp(-1) }, "age"},
		{"unknown gender", func(in *Input) { in.Gender = "unknown" }, "gender"},
		{"whitespace name", func(in *Input) { in.PatientName = "   " }, "patient_name"},
		{"zero heart rate", func(in *Input) { in.HeartRate = intp(0) }, "heart_rate"},
		{"negative systolic", func(in *Input) { in.BloodPressureSystolic = intp(-120) }, "blood_pressure_systolic"},
		{"zero weight", func(in *Input) { in.Weight = floatp(0) }, "weight"},
		{"negative height", func(in *Input) { in.Height = floatp(-3) }, "height"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := base()
			tt.mut(&in)
			_, err := in.Normalize()
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if _, ok := verr.Fields[tt.field]; !ok {
				t.Errorf("expected %s to be rejected, got %v", tt.field, verr.Fields)
			}
		})
	}
}

func TestNormalize_BlankTextBecomesAbsent(t *testing.T) {
	f, err := Input{
		PatientName:    "A",
		Age:            intp(40),
		Gender:         "OTHER",
		MedicalHistory: strp("  \n "),
		Symptoms:       strp("headache"),
		Diagnosis:      strp(""),
	}.Normalize()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.MedicalHistory != nil || f.Diagnosis != nil {
		t.Error("expected blank texts to be dropped")
	}
	if f.Symptoms == nil || *f.Symptoms != "headache" {
		t.Errorf("expected symptoms to be kept, got %v", f.Symptoms)
	}
	if f.Gender != GenderOther {
		t.Errorf("expected gender other, got %q", f.Gender)
	}
}

func TestNormalize_CopiesOptionalValues(t *testing.T) {
	hr := intp(72)
	f, err := Input{PatientName: "A", Age: intp(40), Gender: "male", HeartRate: hr}.Normalize()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	*hr = 1
	if *f.HeartRate != 72 {
		t.Errorf("expected stored heart rate to be independent of input, got %d", *f.HeartRate)
	}
}

func TestValidationError_Message(t *testing.T) {
	err := &ValidationError{Fields: map[string]string{"gender": "is required", "age": "is required"}}
	msg := err.Error()
	if !strings.HasPrefix(msg, "invalid health record: age: is required; gender") {
		t.Errorf("unexpected message %q", msg)
	}
}
