package patients

import (
	"context"

	"github.com/google/uuid"

	"github.com/medrec/medrec/internal/platform/apperror"
	"github.com/medrec/medrec/internal/platform/auth"
	"github.com/medrec/medrec/internal/platform/authz"
	"github.com/medrec/medrec/internal/platform/rbac"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CreateProfile creates the actor's own demographic profile. One per user;
// the storage unique constraint turns a second attempt into a conflict.
func (s *Service) CreateProfile(ctx context.Context, actor auth.Actor, in ProfileInput) (*Patient, error) {
	if actor.Role != rbac.RolePatient {
		return nil, apperror.Authorization("only patients may create a patient profile")
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	p := &Patient{
		UserID:                actor.ID,
		Gender:                in.Gender,
		DateOfBirth:           in.DateOfBirth,
		Phone:                 in.Phone,
		Address:               in.Address,
		EmergencyContactName:  in.EmergencyContactName,
		EmergencyContactPhone: in.EmergencyContactPhone,
	}
	if err := s.repo.CreatePatient(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// MyProfile returns the actor's own profile.
func (s *Service) MyProfile(ctx context.Context, actor auth.Actor) (*Patient, error) {
	return s.repo.GetPatientByUser(ctx, actor.ID)
}

// UpdateProfile edits a profile. Patients edit their own; the write roles of
// the patients resource may edit anyone's.
func (s *Service) UpdateProfile(ctx context.Context, actor auth.Actor, patientID uuid.UUID, in ProfileInput) (*Patient, error) {
	p, err := s.repo.GetPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if p.UserID != actor.ID && !authz.CanWrite(actor.Role, authz.Patients) {
		return nil, apperror.Authorization("role %s may not edit this patient profile", actor.Role)
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	p.Gender = in.Gender
	p.DateOfBirth = in.DateOfBirth
	p.Phone = in.Phone
	p.Address = in.Address
	p.EmergencyContactName = in.EmergencyContactName
	p.EmergencyContactPhone = in.EmergencyContactPhone
	if err := s.repo.UpdatePatient(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Get fetches one profile with the object-level ownership re-check.
func (s *Service) Get(ctx context.Context, actor auth.Actor, patientID uuid.UUID) (*Patient, error) {
	p, err := s.repo.GetPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if err := authz.CheckRead(actor.Role, actor.ID, p.UserID, authz.Patients); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) List(ctx context.Context, actor auth.Actor, limit, offset int) ([]*Patient, int, error) {
	if !authz.CanReadAll(actor.Role, authz.Patients) {
		return nil, 0, apperror.Authorization("role %s may not list patients", actor.Role)
	}
	return s.repo.ListPatients(ctx, limit, offset)
}

// resolveForRead loads a patient and applies the read check for res. Child
// records inherit the parent patient's ownership path.
func (s *Service) resolveForRead(ctx context.Context, actor auth.Actor, patientID uuid.UUID, res authz.Resource) (*Patient, error) {
	p, err := s.repo.GetPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if err := authz.CheckRead(actor.Role, actor.ID, p.UserID, res); err != nil {
		return nil, err
	}
	return p, nil
}

// -- Clinical notes --

func (s *Service) AddNote(ctx context.Context, actor auth.Actor, patientID uuid.UUID, in NoteInput) (*ClinicalNote, error) {
	if err := authz.RequireWrite(actor.Role, authz.ClinicalNotes); err != nil {
		return nil, err
	}
	if in.Subjective == "" && in.Objective == "" && in.Assessment == "" && in.Plan == "" {
		return nil, apperror.Validation("a clinical note needs at least one SOAP section")
	}
	p, err := s.repo.GetPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}

	n := &ClinicalNote{
		PatientID:  p.ID,
		AuthorID:   actor.ID,
		Subjective: in.Subjective,
		Objective:  in.Objective,
		Assessment: in.Assessment,
		Plan:       in.Plan,
	}
	if err := s.repo.CreateNote(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

func (s *Service) ListNotes(ctx context.Context, actor auth.Actor, patientID uuid.UUID) ([]*ClinicalNote, error) {
	p, err := s.resolveForRead(ctx, actor, patientID, authz.ClinicalNotes)
	if err != nil {
		return nil, err
	}
	return s.repo.ListNotes(ctx, p.ID)
}

// -- Allergies --

func (s *Service) AddAllergy(ctx context.Context, actor auth.Actor, patientID uuid.UUID, in AllergyInput) (*Allergy, error) {
	if err := authz.RequireWrite(actor.Role, authz.Allergies); err != nil {
		return nil, err
	}
	if in.Allergen == "" {
		return nil, apperror.Validation("allergen is required")
	}
	if !validSeverity(in.Severity) {
		return nil, apperror.Validation("severity must be one of mild, moderate, severe")
	}
	p, err := s.repo.GetPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}

	a := &Allergy{
		PatientID:  p.ID,
		Allergen:   in.Allergen,
		Reaction:   in.Reaction,
		Severity:   in.Severity,
		RecordedBy: actor.ID,
	}
	if err := s.repo.CreateAllergy(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Service) ListAllergies(ctx context.Context, actor auth.Actor, patientID uuid.UUID) ([]*Allergy, error) {
	p, err := s.resolveForRead(ctx, actor, patientID, authz.Allergies)
	if err != nil {
		return nil, err
	}
	return s.repo.ListAllergies(ctx, p.ID)
}

func (s *Service) RemoveAllergy(ctx context.Context, actor auth.Actor, id uuid.UUID) error {
	if err := authz.RequireWrite(actor.Role, authz.Allergies); err != nil {
		return err
	}
	return s.repo.DeleteAllergy(ctx, id)
}

// -- Medications --

func (s *Service) AddMedication(ctx context.Context, actor auth.Actor, patientID uuid.UUID, in MedicationInput) (*PatientMedication, error) {
	if err := authz.RequireWrite(actor.Role, authz.Medications); err != nil {
		return nil, err
	}
	if in.Name == "" {
		return nil, apperror.Validation("medication name is required")
	}
	p, err := s.repo.GetPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}

	m := &PatientMedication{
		PatientID:  p.ID,
		Name:       in.Name,
		Dosage:     in.Dosage,
		Frequency:  in.Frequency,
		IsActive:   true,
		RecordedBy: actor.ID,
	}
	if err := s.repo.CreateMedication(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *Service) ListMedications(ctx context.Context, actor auth.Actor, patientID uuid.UUID) ([]*PatientMedication, error) {
	p, err := s.resolveForRead(ctx, actor, patientID, authz.Medications)
	if err != nil {
		return nil, err
	}
	return s.repo.ListMedications(ctx, p.ID)
}

func (s *Service) SetMedicationActive(ctx context.Context, actor auth.Actor, id uuid.UUID, active bool) error {
	if err := authz.RequireWrite(actor.Role, authz.Medications); err != nil {
		return err
	}
	return s.repo.SetMedicationActive(ctx, id, active)
}
