package healthrecord

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CreateRecord validates in and stores it as a new record.
func (s *Service) CreateRecord(ctx context.Context, in Input) (*HealthRecord, error) {
	fields, err := in.Normalize()
	if err != nil {
		return nil, err
	}
	h := &HealthRecord{Fields: fields}
	if err := s.repo.Create(ctx, h); err != nil {
		return nil, err
	}
	zerolog.Ctx(ctx).Info().Str("record_id", h.ID).Msg("health record created")
	return h, nil
}

func (s *Service) GetRecord(ctx context.Context, id string) (*HealthRecord, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrNotFound
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListRecords(ctx context.Context, limit, offset int) ([]*HealthRecord, int, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, limit, offset)
}
