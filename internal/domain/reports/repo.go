package reports

import (
	"context"

	"github.com/google/uuid"
)

type Filter struct {
	PatientUserID uuid.UUID
	CreatedBy     uuid.UUID
	Limit         int
	Offset        int
}

type Repository interface {
	Create(ctx context.Context, r *Report) error
	Get(ctx context.Context, id uuid.UUID) (*Report, error)
	Update(ctx context.Context, r *Report) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, f Filter) ([]*Report, int, error)

	Stats(ctx context.Context) (*DashboardStats, error)
}
