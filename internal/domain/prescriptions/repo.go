package prescriptions

import (
	"context"

	"github.com/google/uuid"
)

type Filter struct {
	PatientUserID uuid.UUID
	PrescribedBy  uuid.UUID
	Status        Status
	Limit         int
	Offset        int
}

type Repository interface {
	CreateMedication(ctx context.Context, m *Medication) error
	GetMedication(ctx context.Context, id uuid.UUID) (*Medication, error)
	ListMedications(ctx context.Context, search string, limit, offset int) ([]*Medication, int, error)

	Create(ctx context.Context, p *Prescription) error
	Get(ctx context.Context, id uuid.UUID) (*Prescription, error)
	// GetForUpdate locks the prescription row so concurrent dispensations
	// compute the cumulative total serially.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*Prescription, error)
	Update(ctx context.Context, p *Prescription) error
	List(ctx context.Context, f Filter) ([]*Prescription, int, error)

	CreateDispensation(ctx context.Context, d *Dispensation) error
	ListDispensations(ctx context.Context, prescriptionID uuid.UUID) ([]*Dispensation, error)
	// DispensedTotal sums the quantity handed over so far.
	DispensedTotal(ctx context.Context, prescriptionID uuid.UUID) (int, error)
}
