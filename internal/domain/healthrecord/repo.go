package healthrecord

import "context"

// Repository persists health records. Create assigns ID and CreatedAt.
// GetByID returns ErrNotFound when no record matches.
type Repository interface {
	Create(ctx context.Context, r *HealthRecord) error
	GetByID(ctx context.Context, id string) (*HealthRecord, error)
	List(ctx context.Context, limit, offset int) ([]*HealthRecord, int, error)
}
