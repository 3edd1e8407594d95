package labresults

import (
	"context"

	"github.com/google/uuid"
)

type OrderFilter struct {
	PatientUserID uuid.UUID
	OrderedBy     uuid.UUID
	Status        OrderStatus
	Limit         int
	Offset        int
}

type Repository interface {
	CreateTestType(ctx context.Context, tt *LabTestType) error
	GetTestType(ctx context.Context, id uuid.UUID) (*LabTestType, error)
	ListTestTypes(ctx context.Context, activeOnly bool) ([]*LabTestType, error)
	SetTestTypeActive(ctx context.Context, id uuid.UUID, active bool) error

	CreateOrder(ctx context.Context, o *LabOrder) error
	GetOrder(ctx context.Context, id uuid.UUID) (*LabOrder, error)
	UpdateOrder(ctx context.Context, o *LabOrder) error
	ListOrders(ctx context.Context, f OrderFilter) ([]*LabOrder, int, error)

	CreateResult(ctx context.Context, r *LabResult) error
	ListResults(ctx context.Context, orderID uuid.UUID) ([]*LabResult, error)
}
