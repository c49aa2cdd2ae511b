package healthrecord

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type recordRepoPG struct{ db queryable }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &recordRepoPG{db: pool}
}

const recordCols = `id::text, patient_name, age, gender,
	blood_pressure_systolic, blood_pressure_diastolic, heart_rate,
	temperature, weight, height,
	medical_history, current_medications, symptoms, diagnosis,
	created_at`

func (r *recordRepoPG) scanRow(row pgx.Row) (*HealthRecord, error) {
	var h HealthRecord
	err := row.Scan(&h.ID, &h.PatientName, &h.Age, &h.Gender,
		&h.BloodPressureSystolic, &h.BloodPressureDiastolic, &h.HeartRate,
		&h.Temperature, &h.Weight, &h.Height,
		&h.MedicalHistory, &h.CurrentMedications, &h.Symptoms, &h.Diagnosis,
		&h.CreatedAt)
	return &h, err
}

func (r *recordRepoPG) Create(ctx context.Context, h *HealthRecord) error {
	id := uuid.New()
	err := r.db.QueryRow(ctx, `
		INSERT INTO health_records (id, patient_name, age, gender,
			blood_pressure_systolic, blood_pressure_diastolic, heart_rate,
			temperature, weight, height,
			medical_history, current_medications, symptoms, diagnosis)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		RETURNING created_at`,
		id, h.PatientName, h.Age, h.Gender,
		h.BloodPressureSystolic, h.BloodPressureDiastolic, h.HeartRate,
		h.Temperature, h.Weight, h.Height,
		h.MedicalHistory, h.CurrentMedications, h.Symptoms, h.Diagnosis,
	).Scan(&h.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert health record: %w", err)
	}
	h.ID = id.String()
	return nil
}

func (r *recordRepoPG) GetByID(ctx context.Context, id string) (*HealthRecord, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrNotFound
	}
	h, err := r.scanRow(r.db.QueryRow(ctx, `SELECT `+recordCols+` FROM health_records WHERE id = $1`, uid))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select health record: %w", err)
	}
	return h, nil
}

func (r *recordRepoPG) List(ctx context.Context, limit, offset int) ([]*HealthRecord, int, error) {
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM health_records`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count health records: %w", err)
	}
	rows, err := r.db.Query(ctx, `SELECT `+recordCols+` FROM health_records ORDER BY created_at DESC, id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list health records: %w", err)
	}
	defer rows.Close()
	var items []*HealthRecord
	for rows.Next() {
		h, err := r.scanRow(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, h)
	}
	return items, total, rows.Err()
}
