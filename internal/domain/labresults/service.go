package labresults

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/medrec/medrec/internal/platform/apperror"
	"github.com/medrec/medrec/internal/platform/auth"
	"github.com/medrec/medrec/internal/platform/authz"
	"github.com/medrec/medrec/internal/platform/rbac"
)

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// -- Catalog --

func (s *Service) CreateTestType(ctx context.Context, actor auth.Actor, in TestTypeInput) (*LabTestType, error) {
	if !rbac.CanManageRoles(actor.Role) {
		return nil, apperror.Authorization("role %s may not manage the test catalog", actor.Role)
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	if in.ReferenceLow != nil && in.ReferenceHigh != nil && *in.ReferenceLow > *in.ReferenceHigh {
		return nil, apperror.Validation("reference range is inverted")
	}

	tt := &LabTestType{
		Name:          in.Name,
		Category:      in.Category,
		Unit:          in.Unit,
		ReferenceLow:  in.ReferenceLow,
		ReferenceHigh: in.ReferenceHigh,
		IsActive:      true,
	}
	if err := s.repo.CreateTestType(ctx, tt); err != nil {
		return nil, err
	}
	return tt, nil
}

func (s *Service) ListTestTypes(ctx context.Context, activeOnly bool) ([]*LabTestType, error) {
	return s.repo.ListTestTypes(ctx, activeOnly)
}

func (s *Service) RetireTestType(ctx context.Context, actor auth.Actor, id uuid.UUID) error {
	if !rbac.CanManageRoles(actor.Role) {
		return apperror.Authorization("role %s may not manage the test catalog", actor.Role)
	}
	return s.repo.SetTestTypeActive(ctx, id, false)
}

// -- Orders --

// CreateOrder places a lab order. Only prescribing providers order tests.
func (s *Service) CreateOrder(ctx context.Context, actor auth.Actor, in OrderInput) (*LabOrder, error) {
	if err := authz.RequireWrite(actor.Role, authz.LabOrders); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	tt, err := s.repo.GetTestType(ctx, in.TestTypeID)
	if err != nil {
		return nil, err
	}
	if !tt.IsActive {
		return nil, apperror.Validation("test type %s is retired", tt.Name)
	}

	priority := in.Priority
	if priority == "" {
		priority = PriorityRoutine
	}

	o := &LabOrder{
		PatientID:     in.PatientID,
		TestTypeID:    tt.ID,
		OrderedBy:     actor.ID,
		Status:        OrderOrdered,
		Priority:      priority,
		ClinicalNotes: in.ClinicalNotes,
		TestName:      tt.Name,
	}
	if err := s.repo.CreateOrder(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *Service) GetOrder(ctx context.Context, actor auth.Actor, id uuid.UUID) (*LabOrder, error) {
	o, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authz.CheckRead(actor.Role, actor.ID, o.PatientUserID, authz.LabOrders); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *Service) ListOrders(ctx context.Context, actor auth.Actor, status OrderStatus, limit, offset int) ([]*LabOrder, int, error) {
	f := OrderFilter{Status: status, Limit: limit, Offset: offset}
	switch {
	case authz.CanReadAll(actor.Role, authz.LabOrders):
		// unrestricted
	case actor.Role == rbac.RolePatient:
		f.PatientUserID = actor.ID
	default:
		f.OrderedBy = actor.ID
	}
	return s.repo.ListOrders(ctx, f)
}

// AdvanceOrder moves an order along its pipeline. Lab staff drive the
// pipeline; the ordering provider may additionally cancel.
func (s *Service) AdvanceOrder(ctx context.Context, actor auth.Actor, id uuid.UUID, to OrderStatus) (*LabOrder, error) {
	o, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	allowed := rbac.CanUploadLabResults(actor.Role)
	if to == OrderCancelled && actor.ID == o.OrderedBy {
		allowed = true
	}
	if !allowed {
		return nil, apperror.Authorization("role %s may not move lab orders", actor.Role)
	}
	if err := checkOrderTransition(o.Status, to); err != nil {
		return nil, err
	}

	o.Status = to
	if to == OrderCollected {
		now := s.now()
		o.CollectedAt = &now
		o.CollectedBy = &actor.ID
	}
	if err := s.repo.UpdateOrder(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// -- Results --

// UploadResult attaches one measured parameter to an in-flight order. The
// abnormal flag is derived from the test type's reference range for numeric
// values.
func (s *Service) UploadResult(ctx context.Context, actor auth.Actor, orderID uuid.UUID, in ResultInput) (*LabResult, error) {
	if !rbac.CanUploadLabResults(actor.Role) {
		return nil, apperror.Authorization("role %s may not upload lab results", actor.Role)
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	o, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.Status != OrderCollected && o.Status != OrderProcessing {
		return nil, apperror.State("cannot upload results to an order in state %s", o.Status)
	}

	tt, err := s.repo.GetTestType(ctx, o.TestTypeID)
	if err != nil {
		return nil, err
	}

	unit := in.Unit
	if unit == "" {
		unit = tt.Unit
	}
	res := &LabResult{
		OrderID:       o.ID,
		Parameter:     in.Parameter,
		Value:         in.Value,
		Unit:          unit,
		ReferenceLow:  tt.ReferenceLow,
		ReferenceHigh: tt.ReferenceHigh,
		IsAbnormal:    deriveAbnormal(in.Value, tt.ReferenceLow, tt.ReferenceHigh),
		UploadedBy:    actor.ID,
	}
	if err := s.repo.CreateResult(ctx, res); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *Service) ListResults(ctx context.Context, actor auth.Actor, orderID uuid.UUID) ([]*LabResult, error) {
	o, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := authz.CheckRead(actor.Role, actor.ID, o.PatientUserID, authz.LabResults); err != nil {
		return nil, err
	}
	return s.repo.ListResults(ctx, o.ID)
}
