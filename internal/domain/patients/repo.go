package patients

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	CreatePatient(ctx context.Context, p *Patient) error
	GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetPatientByUser(ctx context.Context, userID uuid.UUID) (*Patient, error)
	UpdatePatient(ctx context.Context, p *Patient) error
	ListPatients(ctx context.Context, limit, offset int) ([]*Patient, int, error)

	CreateNote(ctx context.Context, n *ClinicalNote) error
	ListNotes(ctx context.Context, patientID uuid.UUID) ([]*ClinicalNote, error)

	CreateAllergy(ctx context.Context, a *Allergy) error
	ListAllergies(ctx context.Context, patientID uuid.UUID) ([]*Allergy, error)
	DeleteAllergy(ctx context.Context, id uuid.UUID) error

	CreateMedication(ctx context.Context, m *PatientMedication) error
	ListMedications(ctx context.Context, patientID uuid.UUID) ([]*PatientMedication, error)
	SetMedicationActive(ctx context.Context, id uuid.UUID, active bool) error
}
