package healthrecord

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepo keeps records in process. Used with STORE_BACKEND=memory and
// in tests.
type MemoryRepo struct {
	mu      sync.RWMutex
	records map[string]HealthRecord
	order   []string
	now     func() time.Time
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		records: make(map[string]HealthRecord),
		now:     time.Now,
	}
}

func (m *MemoryRepo) Create(_ context.Context, h *HealthRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	h.ID = uuid.NewString()
	h.CreatedAt = m.now().UTC()
	m.records[h.ID] = clone(*h)
	m.order = append(m.order, h.ID)
	return nil
}

func (m *MemoryRepo) GetByID(_ context.Context, id string) (*HealthRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, ok := m.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := clone(h)
	return &out, nil
}

// List returns records newest first.
func (m *MemoryRepo) List(_ context.Context, limit, offset int) ([]*HealthRecord, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	total := len(m.order)
	var items []*HealthRecord
	for i := total - 1 - offset; i >= 0 && len(items) < limit; i-- {
		h := clone(m.records[m.order[i]])
		items = append(items, &h)
	}
	return items, total, nil
}

// clone copies the optional values so callers cannot mutate stored records.
func clone(h HealthRecord) HealthRecord {
	h.BloodPressureSystolic = copyPtr(h.BloodPressureSystolic)
	h.BloodPressureDiastolic = copyPtr(h.BloodPressureDiastolic)
	h.HeartRate = copyPtr(h.HeartRate)
	h.Temperature = copyPtr(h.Temperature)
	h.Weight = copyPtr(h.Weight)
	h.Height = copyPtr(h.Height)
	h.MedicalHistory = copyPtr(h.MedicalHistory)
	h.CurrentMedications = copyPtr(h.CurrentMedications)
	h.Symptoms = copyPtr(h.Symptoms)
	h.Diagnosis = copyPtr(h.Diagnosis)
	return h
}

func copyPtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
