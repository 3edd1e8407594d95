package accounts

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/medrec/medrec/internal/platform/apperror"
	"github.com/medrec/medrec/internal/platform/auth"
	"github.com/medrec/medrec/internal/platform/rbac"
)

type Service struct {
	users Repository
}

func NewService(users Repository) *Service {
	return &Service{users: users}
}

// RegisterPatient creates a patient account. Patients are auto-verified and
// active immediately.
func (s *Service) RegisterPatient(ctx context.Context, in PatientRegistration) (*User, error) {
	if in.Username == "" {
		return nil, apperror.Validation("username is required")
	}
	if err := validatePassword(in.Password, in.PasswordConfirm); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	u := &User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: string(hash),
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Role:         rbac.RolePatient,
		Phone:        optional(in.Phone),
		Address:      optional(in.Address),
		DateOfBirth:  in.DateOfBirth,
		IsVerified:   true,
		IsActive:     true,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// RegisterStaff creates a staff account pending administrator verification.
// work_id uniqueness is enforced by the storage layer's unique constraint,
// surfaced here as a validation error.
func (s *Service) RegisterStaff(ctx context.Context, in StaffRegistration) (*User, error) {
	if in.Username == "" {
		return nil, apperror.Validation("username is required")
	}
	role, ok := rbac.Parse(in.Role)
	if !ok || !role.IsStaff() {
		return nil, apperror.Validation("invalid staff role: %s", in.Role)
	}
	if in.WorkID == "" {
		return nil, apperror.Validation("work_id is required for staff accounts")
	}
	if err := validatePassword(in.Password, in.PasswordConfirm); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	u := &User{
		Username:       in.Username,
		Email:          in.Email,
		PasswordHash:   string(hash),
		FirstName:      in.FirstName,
		LastName:       in.LastName,
		Role:           role,
		WorkID:         &in.WorkID,
		LicenseNumber:  optional(in.LicenseNumber),
		Specialization: optional(in.Specialization),
		Phone:          optional(in.Phone),
		IsVerified:     false,
		IsActive:       true,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Login checks credentials and returns the user. The caller mints the token.
func (s *Service) Login(ctx context.Context, username, password string) (*User, error) {
	u, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if apperror.IsKind(err, apperror.KindNotFound) {
			return nil, apperror.Validation("invalid credentials")
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, apperror.Validation("invalid credentials")
	}
	if !u.IsActive {
		return nil, apperror.Authorization("account is deactivated")
	}
	return u, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.users.GetByID(ctx, id)
}

// UpdateProfile applies the self-editable fields to the actor's own account.
func (s *Service) UpdateProfile(ctx context.Context, actor auth.Actor, in ProfileUpdate) (*User, error) {
	u, err := s.users.GetByID(ctx, actor.ID)
	if err != nil {
		return nil, err
	}

	if in.FirstName != nil {
		u.FirstName = *in.FirstName
	}
	if in.LastName != nil {
		u.LastName = *in.LastName
	}
	if in.Email != nil {
		u.Email = *in.Email
	}
	if in.Phone != nil {
		u.Phone = in.Phone
	}
	if in.Address != nil {
		u.Address = in.Address
	}
	if in.LicenseNumber != nil {
		u.LicenseNumber = in.LicenseNumber
	}
	if in.Specialization != nil {
		u.Specialization = in.Specialization
	}
	if in.DateOfBirth != nil {
		u.DateOfBirth = in.DateOfBirth
	}

	if err := s.users.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Verify marks a pending account as verified and records who did it.
func (s *Service) Verify(ctx context.Context, actor auth.Actor, targetID uuid.UUID) (*User, error) {
	if !rbac.CanVerifyUsers(actor.Role) {
		return nil, apperror.Authorization("role %s may not verify users", actor.Role)
	}

	u, err := s.users.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if u.IsVerified {
		return nil, apperror.Conflict("user is already verified")
	}

	now := time.Now()
	u.IsVerified = true
	u.VerifiedBy = &actor.ID
	u.VerifiedAt = &now
	if err := s.users.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// ChangeRole moves a user to a new role. Any change touching master_admin,
// on either side, requires the caller to be master_admin.
func (s *Service) ChangeRole(ctx context.Context, actor auth.Actor, targetID uuid.UUID, newRole string) (*User, error) {
	if !rbac.CanManageRoles(actor.Role) {
		return nil, apperror.Authorization("role %s may not manage roles", actor.Role)
	}

	role, ok := rbac.Parse(newRole)
	if !ok {
		return nil, apperror.Validation("invalid role: %s", newRole)
	}

	u, err := s.users.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}

	if (u.Role == rbac.RoleMasterAdmin || role == rbac.RoleMasterAdmin) && actor.Role != rbac.RoleMasterAdmin {
		return nil, apperror.Authorization("only a master admin may grant or revoke the master_admin role")
	}

	u.Role = role
	u.RoleUpdatedBy = &actor.ID
	// Granting master_admin implies verification; the role invariant holds
	// that a master admin is always verified.
	if role == rbac.RoleMasterAdmin && !u.IsVerified {
		now := time.Now()
		u.IsVerified = true
		u.VerifiedBy = &actor.ID
		u.VerifiedAt = &now
	}
	if err := s.users.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Deactivate disables an account. The master admin can never be deactivated.
func (s *Service) Deactivate(ctx context.Context, actor auth.Actor, targetID uuid.UUID) (*User, error) {
	if !rbac.CanManageRoles(actor.Role) {
		return nil, apperror.Authorization("role %s may not deactivate users", actor.Role)
	}

	u, err := s.users.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if u.IsMasterAdmin() {
		return nil, apperror.Authorization("the master admin account cannot be deactivated")
	}

	now := time.Now()
	u.IsActive = false
	u.DeactivatedBy = &actor.ID
	u.DeactivatedAt = &now
	if err := s.users.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Reactivate re-enables a deactivated account and clears the audit fields.
func (s *Service) Reactivate(ctx context.Context, actor auth.Actor, targetID uuid.UUID) (*User, error) {
	if !rbac.CanManageRoles(actor.Role) {
		return nil, apperror.Authorization("role %s may not reactivate users", actor.Role)
	}

	u, err := s.users.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}

	u.IsActive = true
	u.DeactivatedBy = nil
	u.DeactivatedAt = nil
	if err := s.users.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) List(ctx context.Context, actor auth.Actor, limit, offset int) ([]*User, int, error) {
	if !rbac.CanViewAllUsers(actor.Role) {
		return nil, 0, apperror.Authorization("role %s may not list users", actor.Role)
	}
	return s.users.List(ctx, limit, offset)
}

func (s *Service) Stats(ctx context.Context, actor auth.Actor) (*Stats, error) {
	if !rbac.CanViewAllUsers(actor.Role) {
		return nil, apperror.Authorization("role %s may not view user statistics", actor.Role)
	}
	return s.users.Stats(ctx)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
