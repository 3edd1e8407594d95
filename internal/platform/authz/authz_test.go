package authz

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/medrec/medrec/internal/platform/apperror"
	"github.com/medrec/medrec/internal/platform/rbac"
)

func TestReadAllScope(t *testing.T) {
	assert.True(t, CanReadAll(rbac.RoleDoctor, Patients))
	assert.True(t, CanReadAll(rbac.RoleMasterAdmin, Reports))
	assert.False(t, CanReadAll(rbac.RolePatient, Patients))
	assert.False(t, CanReadAll(rbac.RolePatient, Appointments))
	assert.False(t, CanReadAll(rbac.RolePharmacist, ClinicalNotes))
	// Providers are participant-scoped on appointments, not read-all.
	assert.False(t, CanReadAll(rbac.RoleDoctor, Appointments))
}

func TestWriteGates(t *testing.T) {
	assert.True(t, CanWrite(rbac.RoleDoctor, Prescriptions))
	assert.False(t, CanWrite(rbac.RolePharmacist, Prescriptions))
	assert.False(t, CanWrite(rbac.RoleNurse, Prescriptions))

	assert.True(t, CanWrite(rbac.RoleLabScientist, LabResults))
	assert.True(t, CanWrite(rbac.RoleDoctor, LabResults))
	assert.False(t, CanWrite(rbac.RoleRadiologist, LabResults))

	err := RequireWrite(rbac.RolePatient, LabOrders)
	assert.True(t, apperror.IsKind(err, apperror.KindAuthorization))
}

func TestCheckReadOwnership(t *testing.T) {
	owner := uuid.New()
	stranger := uuid.New()

	// Read-all roles pass regardless of ownership.
	assert.NoError(t, CheckRead(rbac.RoleAdmin, stranger, owner, Reports))

	// Owner passes.
	assert.NoError(t, CheckRead(rbac.RolePatient, owner, owner, Reports))

	// Non-owner patient is rejected even on a direct object fetch.
	err := CheckRead(rbac.RolePatient, stranger, owner, Reports)
	assert.True(t, apperror.IsKind(err, apperror.KindAuthorization))
}
