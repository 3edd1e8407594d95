// Package authz is the single declarative access table consulted by every
// resource handler. Each protected resource declares which roles may read
// all rows and which may write; everyone else is scoped to rows they own
// through their patient profile or a participant relation. Object-level
// ownership is re-checked on detail reads, not just filtered on lists.
package authz

import (
	"github.com/google/uuid"

	"github.com/medrec/medrec/internal/platform/apperror"
	"github.com/medrec/medrec/internal/platform/rbac"
)

// Resource identifies a protected resource type.
type Resource string

const (
	Patients      Resource = "patients"
	ClinicalNotes Resource = "clinical_notes"
	Allergies     Resource = "allergies"
	Medications   Resource = "medications"
	Appointments  Resource = "appointments"
	LabOrders     Resource = "lab_orders"
	LabResults    Resource = "lab_results"
	Prescriptions Resource = "prescriptions"
	Reports       Resource = "reports"
)

// Rule declares who may read every row and who may write.
type Rule struct {
	ReadAll []rbac.Role
	Write   []rbac.Role
}

var table = map[Resource]Rule{
	Patients: {
		ReadAll: []rbac.Role{rbac.RoleDoctor, rbac.RoleAdmin, rbac.RoleMasterAdmin, rbac.RoleNurse},
		Write:   []rbac.Role{rbac.RoleAdmin, rbac.RoleMasterAdmin},
	},
	ClinicalNotes: {
		ReadAll: []rbac.Role{rbac.RoleDoctor, rbac.RoleAdmin, rbac.RoleMasterAdmin, rbac.RoleNurse},
		Write:   []rbac.Role{rbac.RoleDoctor, rbac.RoleNurse},
	},
	Allergies: {
		ReadAll: []rbac.Role{rbac.RoleDoctor, rbac.RoleAdmin, rbac.RoleMasterAdmin, rbac.RoleNurse, rbac.RolePharmacist},
		Write:   []rbac.Role{rbac.RoleDoctor, rbac.RoleNurse},
	},
	Medications: {
		ReadAll: []rbac.Role{rbac.RoleDoctor, rbac.RoleAdmin, rbac.RoleMasterAdmin, rbac.RoleNurse, rbac.RolePharmacist},
		Write:   []rbac.Role{rbac.RoleDoctor, rbac.RoleNurse},
	},
	Appointments: {
		ReadAll: []rbac.Role{rbac.RoleAdmin, rbac.RoleMasterAdmin},
		Write:   nil, // transitions carry their own participant rules
	},
	LabOrders: {
		ReadAll: []rbac.Role{rbac.RoleDoctor, rbac.RoleAdmin, rbac.RoleMasterAdmin, rbac.RoleLabScientist, rbac.RoleNurse},
		Write:   []rbac.Role{rbac.RoleDoctor},
	},
	LabResults: {
		ReadAll: []rbac.Role{rbac.RoleDoctor, rbac.RoleAdmin, rbac.RoleMasterAdmin, rbac.RoleLabScientist, rbac.RoleNurse},
		Write:   []rbac.Role{rbac.RoleLabScientist, rbac.RoleDoctor},
	},
	Prescriptions: {
		ReadAll: []rbac.Role{rbac.RoleDoctor, rbac.RoleAdmin, rbac.RoleMasterAdmin, rbac.RolePharmacist},
		Write:   []rbac.Role{rbac.RoleDoctor},
	},
	Reports: {
		ReadAll: []rbac.Role{rbac.RoleDoctor, rbac.RoleAdmin, rbac.RoleMasterAdmin},
		Write:   []rbac.Role{rbac.RoleDoctor, rbac.RoleNurse, rbac.RoleRadiologist, rbac.RoleLabScientist},
	},
}

// CanReadAll reports whether role may read every row of res.
func CanReadAll(role rbac.Role, res Resource) bool {
	for _, r := range table[res].ReadAll {
		if role == r {
			return true
		}
	}
	return false
}

// CanWrite reports whether role may create or update rows of res.
func CanWrite(role rbac.Role, res Resource) bool {
	for _, r := range table[res].Write {
		if role == r {
			return true
		}
	}
	return false
}

// RequireWrite returns an authorization error unless role may write res.
func RequireWrite(role rbac.Role, res Resource) error {
	if !CanWrite(role, res) {
		return apperror.Authorization("role %s may not write %s", role, res)
	}
	return nil
}

// CheckRead authorizes a read of one object. Roles in the read-all set pass;
// everyone else must own the object, i.e. the object's owner-path user must
// be the requester. This re-check guards detail endpoints that bypass list
// filtering.
func CheckRead(role rbac.Role, requester, ownerUserID uuid.UUID, res Resource) error {
	if CanReadAll(role, res) {
		return nil
	}
	if requester == ownerUserID {
		return nil
	}
	return apperror.Authorization("role %s may only access its own %s", role, res)
}
