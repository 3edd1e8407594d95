package accounts

import (
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/medrec/medrec/internal/platform/apperror"
	"github.com/medrec/medrec/internal/platform/rbac"
)

// User maps to the users table. Accounts are never physically deleted:
// deactivation is the terminal negative state and reactivation reverses it.
type User struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	Username       string     `db:"username" json:"username"`
	Email          string     `db:"email" json:"email"`
	PasswordHash   string     `db:"password_hash" json:"-"`
	FirstName      string     `db:"first_name" json:"first_name"`
	LastName       string     `db:"last_name" json:"last_name"`
	Role           rbac.Role  `db:"role" json:"role"`
	WorkID         *string    `db:"work_id" json:"work_id,omitempty"`
	LicenseNumber  *string    `db:"license_number" json:"license_number,omitempty"`
	Specialization *string    `db:"specialization" json:"specialization,omitempty"`
	Phone          *string    `db:"phone" json:"phone,omitempty"`
	Address        *string    `db:"address" json:"address,omitempty"`
	DateOfBirth    *time.Time `db:"date_of_birth" json:"date_of_birth,omitempty"`
	IsVerified     bool       `db:"is_verified" json:"is_verified"`
	IsActive       bool       `db:"is_active" json:"is_active"`
	VerifiedBy     *uuid.UUID `db:"verified_by" json:"verified_by,omitempty"`
	VerifiedAt     *time.Time `db:"verified_at" json:"verified_at,omitempty"`
	DeactivatedBy  *uuid.UUID `db:"deactivated_by" json:"deactivated_by,omitempty"`
	DeactivatedAt  *time.Time `db:"deactivated_at" json:"deactivated_at,omitempty"`
	RoleUpdatedBy  *uuid.UUID `db:"role_updated_by" json:"role_updated_by,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

func (u *User) IsMasterAdmin() bool {
	return u.Role == rbac.RoleMasterAdmin
}

// PatientRegistration is the self-service patient signup payload.
type PatientRegistration struct {
	Username        string     `json:"username"`
	Email           string     `json:"email"`
	Password        string     `json:"password"`
	PasswordConfirm string     `json:"password_confirm"`
	FirstName       string     `json:"first_name"`
	LastName        string     `json:"last_name"`
	Phone           string     `json:"phone"`
	Address         string     `json:"address"`
	DateOfBirth     *time.Time `json:"date_of_birth"`
}

// StaffRegistration is the staff signup payload. Staff accounts start
// unverified and wait for an administrator.
type StaffRegistration struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Role            string `json:"role"`
	WorkID          string `json:"work_id"`
	LicenseNumber   string `json:"license_number"`
	Specialization  string `json:"specialization"`
	Phone           string `json:"phone"`
}

// ProfileUpdate carries the self-editable profile fields.
type ProfileUpdate struct {
	FirstName      *string    `json:"first_name"`
	LastName       *string    `json:"last_name"`
	Email          *string    `json:"email"`
	Phone          *string    `json:"phone"`
	Address        *string    `json:"address"`
	LicenseNumber  *string    `json:"license_number"`
	Specialization *string    `json:"specialization"`
	DateOfBirth    *time.Time `json:"date_of_birth"`
}

// Stats summarizes the user base for the admin dashboard.
type Stats struct {
	TotalUsers          int            `json:"total_users"`
	VerifiedUsers       int            `json:"verified_users"`
	PendingVerification int            `json:"pending_verification"`
	ActiveUsers         int            `json:"active_users"`
	DeactivatedUsers    int            `json:"deactivated_users"`
	ByRole              map[string]int `json:"by_role"`
}

// validatePassword enforces the strength policy: at least 8 characters
// containing both a letter and a digit.
func validatePassword(password, confirm string) error {
	if password != confirm {
		return apperror.Validation("password confirmation does not match")
	}
	if len(password) < 8 {
		return apperror.Validation("password must be at least 8 characters")
	}
	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter || !hasDigit {
		return apperror.Validation("password must contain both letters and digits")
	}
	return nil
}
