package reports

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

func (s *Service) Create(ctx context.Context, actor auth.Actor, in ReportInput) (*Report, error) {
	if err := authz.RequireWrite(actor.Role, authz.Reports); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	r := &Report{
		PatientID:  in.PatientID,
		CreatedBy:  actor.ID,
		Title:      in.Title,
		Content:    in.Content,
		ReportType: in.ReportType,
	}
	if err := s.repo.Create(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// Get re-checks ownership on the object itself, not just the list filter: a
// patient-role requester only receives the report when its patient link
// resolves to them.
func (s *Service) Get(ctx context.Context, actor auth.Actor, id uuid.UUID) (*Report, error) {
	r, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authz.CheckRead(actor.Role, actor.ID, r.PatientUserID, authz.Reports); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Service) Update(ctx context.Context, actor auth.Actor, id uuid.UUID, in ReportInput) (*Report, error) {
	r, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.ID != r.CreatedBy && !rbac.CanManageRoles(actor.Role) {
		return nil, apperror.Authorization("only the author or an administrator may edit this report")
	}
	if in.Title == "" || in.Content == "" {
		return nil, apperror.Validation("title and content are required")
	}

	r.Title = in.Title
	r.Content = in.Content
	r.ReportType = in.ReportType
	if err := s.repo.Update(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Service) Delete(ctx context.Context, actor auth.Actor, id uuid.UUID) error {
	r, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if actor.ID != r.CreatedBy && !rbac.CanManageRoles(actor.Role) {
		return apperror.Authorization("only the author or an administrator may delete this report")
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) List(ctx context.Context, actor auth.Actor, limit, offset int) ([]*Report, int, error) {
	f := Filter{Limit: limit, Offset: offset}
	switch {
	case authz.CanReadAll(actor.Role, authz.Reports):
		// unrestricted
	case actor.Role == rbac.RolePatient:
		f.PatientUserID = actor.ID
	default:
		f.CreatedBy = actor.ID
	}
	return s.repo.List(ctx, f)
}

// Stats is the admin dashboard overview.
func (s *Service) Stats(ctx context.Context, actor auth.Actor) (*DashboardStats, error) {
	if !rbac.CanViewAllUsers(actor.Role) {
		return nil, apperror.Authorization("role %s may not view dashboard statistics", actor.Role)
	}
	return s.repo.Stats(ctx)
}
