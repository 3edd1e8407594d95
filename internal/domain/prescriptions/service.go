package prescriptions

import (
	"context"

	"github.com/google/uuid"

	"github.com/medrec/medrec/internal/platform/apperror"
	"github.com/medrec/medrec/internal/platform/auth"
	"github.com/medrec/medrec/internal/platform/authz"
	"github.com/medrec/medrec/internal/platform/db"
	"github.com/medrec/medrec/internal/platform/rbac"
)

type Service struct {
	repo Repository
	tx   db.TxRunner
}

func NewService(repo Repository, tx db.TxRunner) *Service {
	return &Service{repo: repo, tx: tx}
}

// -- Formulary --

func (s *Service) CreateMedication(ctx context.Context, actor auth.Actor, in MedicationInput) (*Medication, error) {
	if !rbac.CanManageRoles(actor.Role) && actor.Role != rbac.RolePharmacist {
		return nil, apperror.Authorization("role %s may not manage the formulary", actor.Role)
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	m := &Medication{
		Name:         in.Name,
		GenericName:  in.GenericName,
		Manufacturer: in.Manufacturer,
		Strength:     in.Strength,
		Form:         in.Form,
		IsControlled: in.IsControlled,
	}
	if err := s.repo.CreateMedication(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *Service) ListMedications(ctx context.Context, search string, limit, offset int) ([]*Medication, int, error) {
	return s.repo.ListMedications(ctx, search, limit, offset)
}

// -- Prescriptions --

// Create writes a prescription. Only prescribers (doctors) may.
func (s *Service) Create(ctx context.Context, actor auth.Actor, in PrescriptionInput) (*Prescription, error) {
	if !rbac.CanPrescribe(actor.Role) {
		return nil, apperror.Authorization("role %s may not prescribe", actor.Role)
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	med, err := s.repo.GetMedication(ctx, in.MedicationID)
	if err != nil {
		return nil, err
	}

	p := &Prescription{
		PatientID:      in.PatientID,
		MedicationID:   med.ID,
		PrescribedBy:   actor.ID,
		Dosage:         in.Dosage,
		Frequency:      in.Frequency,
		Route:          in.Route,
		DurationDays:   in.DurationDays,
		Quantity:       in.Quantity,
		Refills:        in.Refills,
		Instructions:   in.Instructions,
		StartDate:      in.StartDate,
		EndDate:        in.EndDate,
		Status:         StatusActive,
		MedicationName: med.Name,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) Get(ctx context.Context, actor auth.Actor, id uuid.UUID) (*Prescription, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authz.CheckRead(actor.Role, actor.ID, p.PatientUserID, authz.Prescriptions); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) List(ctx context.Context, actor auth.Actor, status Status, limit, offset int) ([]*Prescription, int, error) {
	f := Filter{Status: status, Limit: limit, Offset: offset}
	switch {
	case authz.CanReadAll(actor.Role, authz.Prescriptions):
		// unrestricted
	case actor.Role == rbac.RolePatient:
		f.PatientUserID = actor.ID
	default:
		f.PrescribedBy = actor.ID
	}
	return s.repo.List(ctx, f)
}

// Cancel voids an active or partially dispensed prescription. The prescriber
// or an admin role may cancel.
func (s *Service) Cancel(ctx context.Context, actor auth.Actor, id uuid.UUID) (*Prescription, error) {
	var p *Prescription
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		p, err = s.repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if actor.ID != p.PrescribedBy && !rbac.CanManageRoles(actor.Role) {
			return apperror.Authorization("only the prescriber or an administrator may cancel")
		}
		if p.Status != StatusActive && p.Status != StatusPartial {
			return apperror.State("cannot cancel a prescription in state %s", p.Status)
		}
		p.Status = StatusCancelled
		return s.repo.Update(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Dispense records a hand-over and recomputes the status from the cumulative
// total. Over-dispensing beyond quantity times (1 + refills) is refused. The
// row lock keeps two concurrent dispensations from both passing the ceiling
// check.
func (s *Service) Dispense(ctx context.Context, actor auth.Actor, id uuid.UUID, in DispenseInput) (*Dispensation, error) {
	if actor.Role != rbac.RolePharmacist {
		return nil, apperror.Authorization("only pharmacists may dispense")
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	var d *Dispensation
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		p, err := s.repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if p.Status != StatusActive && p.Status != StatusPartial {
			return apperror.State("cannot dispense a prescription in state %s", p.Status)
		}

		already, err := s.repo.DispensedTotal(ctx, p.ID)
		if err != nil {
			return err
		}
		ceiling := p.Quantity * (1 + p.Refills)
		if already+in.Quantity > ceiling {
			return apperror.Validation("dispensing %d exceeds the remaining %d units",
				in.Quantity, ceiling-already)
		}

		d = &Dispensation{
			PrescriptionID: p.ID,
			PharmacistID:   actor.ID,
			Quantity:       in.Quantity,
			Notes:          in.Notes,
		}
		if err := s.repo.CreateDispensation(ctx, d); err != nil {
			return err
		}

		if already+in.Quantity >= ceiling {
			p.Status = StatusDispensed
		} else {
			p.Status = StatusPartial
		}
		return s.repo.Update(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Service) ListDispensations(ctx context.Context, actor auth.Actor, id uuid.UUID) ([]*Dispensation, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authz.CheckRead(actor.Role, actor.ID, p.PatientUserID, authz.Prescriptions); err != nil {
		return nil, err
	}
	return s.repo.ListDispensations(ctx, p.ID)
}
