// Package rbac defines the closed role enumeration and the capability
// predicates derived from it. Predicates are pure functions of the role and
// carry no state, so handlers and services can share one source of truth
// instead of scattering string comparisons.
package rbac

// Role is one of the closed set of identity categories.
type Role string

const (
	RoleMasterAdmin  Role = "master_admin"
	RoleAdmin        Role = "admin"
	RoleDoctor       Role = "doctor"
	RoleNurse        Role = "nurse"
	RolePharmacist   Role = "pharmacist"
	RoleRadiologist  Role = "radiologist"
	RoleLabScientist Role = "labscientist"
	RolePatient      Role = "patient"
)

// AllRoles lists every recognized role.
var AllRoles = []Role{
	RoleMasterAdmin, RoleAdmin, RoleDoctor, RoleNurse,
	RolePharmacist, RoleRadiologist, RoleLabScientist, RolePatient,
}

// StaffRoles lists the roles eligible for staff registration. master_admin
// is excluded: that role is only ever granted by another master_admin.
var StaffRoles = []Role{
	RoleAdmin, RoleDoctor, RoleNurse,
	RolePharmacist, RoleRadiologist, RoleLabScientist,
}

// Parse returns the Role for s, or false if s is not a recognized role.
func Parse(s string) (Role, bool) {
	r := Role(s)
	for _, known := range AllRoles {
		if r == known {
			return r, true
		}
	}
	return "", false
}

// Valid reports whether r is a recognized role.
func (r Role) Valid() bool {
	_, ok := Parse(string(r))
	return ok
}

// IsStaff reports whether r is a registrable staff role.
func (r Role) IsStaff() bool {
	for _, s := range StaffRoles {
		if r == s {
			return true
		}
	}
	return false
}

// IsMedicalStaff reports whether r is a clinical role.
func IsMedicalStaff(r Role) bool {
	switch r {
	case RoleDoctor, RoleNurse, RolePharmacist, RoleRadiologist, RoleLabScientist:
		return true
	}
	return false
}

// CanPrescribe reports whether r may write prescriptions.
func CanPrescribe(r Role) bool {
	return r == RoleDoctor
}

// CanAccessAllPatientData reports whether r may read every patient's records.
func CanAccessAllPatientData(r Role) bool {
	switch r {
	case RoleDoctor, RoleAdmin, RoleMasterAdmin:
		return true
	}
	return false
}

// CanUploadLabResults reports whether r may record lab results.
func CanUploadLabResults(r Role) bool {
	return r == RoleLabScientist || r == RoleDoctor
}

// CanUploadRadiology reports whether r may record radiology results.
func CanUploadRadiology(r Role) bool {
	return r == RoleRadiologist || r == RoleDoctor
}

// CanManageRoles reports whether r may change other users' roles.
func CanManageRoles(r Role) bool {
	return r == RoleAdmin || r == RoleMasterAdmin
}

// CanVerifyUsers reports whether r may verify pending staff accounts.
func CanVerifyUsers(r Role) bool {
	return CanManageRoles(r)
}

// CanViewAllUsers reports whether r may list every user account.
func CanViewAllUsers(r Role) bool {
	return CanManageRoles(r)
}
