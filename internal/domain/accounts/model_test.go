package accounts

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/medrec/medrec/internal/platform/apperror"
	"github.com/medrec/medrec/internal/platform/rbac"
)

func TestValidatePassword(t *testing.T) {
	cases := []struct {
		name     string
		password string
		confirm  string
		ok       bool
	}{
		{"valid", "abcdef12", "abcdef12", true},
		{"valid long", "a1b2c3d4e5f6", "a1b2c3d4e5f6", true},
		{"mismatch", "abcdef12", "abcdef13", false},
		{"short", "ab1", "ab1", false},
		{"exactly seven", "abcdef1", "abcdef1", false},
		{"letters only", "abcdefgh", "abcdefgh", false},
		{"digits only", "12345678", "12345678", false},
		{"unicode letter counts", "pässwort1", "pässwort1", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := validatePassword(tc.password, tc.confirm)
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.True(t, apperror.IsKind(err, apperror.KindValidation))
			}
		})
	}
}

func TestUserFullName(t *testing.T) {
	u := &User{FirstName: "Jane", LastName: "Doe"}
	assert.Equal(t, "Jane Doe", u.FullName())

	u = &User{FirstName: "Jane"}
	assert.Equal(t, "Jane", u.FullName())

	u = &User{}
	assert.Equal(t, "", u.FullName())
}

func TestIsMasterAdmin(t *testing.T) {
	assert.True(t, (&User{Role: rbac.RoleMasterAdmin}).IsMasterAdmin())
	assert.False(t, (&User{Role: rbac.RoleAdmin}).IsMasterAdmin())
}
