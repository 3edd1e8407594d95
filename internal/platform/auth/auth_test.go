package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medrec/medrec/internal/platform/apperror"
	"github.com/medrec/medrec/internal/platform/rbac"
)

var testCfg = Config{
	Secret: []byte("test-secret-at-least-32-characters!!"),
	Issuer: "medrec-test",
	TTL:    time.Hour,
}

func TestMintAndVerifyRoundtrip(t *testing.T) {
	issuer := NewIssuer(testCfg)
	userID := uuid.New()

	token, expiresAt, err := issuer.Mint(userID, rbac.RoleDoctor)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	e := echo.New()
	e.Use(Middleware(testCfg))
	e.GET("/whoami", func(c echo.Context) error {
		actor := MustActor(c)
		return c.JSON(http.StatusOK, map[string]string{
			"id":   actor.ID.String(),
			"role": string(actor.Role),
		})
	})

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), userID.String())
	assert.Contains(t, rec.Body.String(), "doctor")
}

func TestMiddlewareRejects(t *testing.T) {
	e := echo.New()
	e.Use(Middleware(testCfg))
	e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	cases := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not bearer", "Basic abc"},
		{"garbage token", "Bearer not.a.jwt"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestMiddlewareRejectsWrongSecret(t *testing.T) {
	other := NewIssuer(Config{Secret: []byte("a-completely-different-signing-key!!"), Issuer: "medrec-test", TTL: time.Hour})
	token, _, err := other.Mint(uuid.New(), rbac.RoleAdmin)
	require.NoError(t, err)

	e := echo.New()
	e.Use(Middleware(testCfg))
	e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRole(t *testing.T) {
	e := echo.New()
	e.HTTPErrorHandler = apperror.HTTPErrorHandler(zerolog.Nop())
	e.GET("/admin-only",
		func(c echo.Context) error { return c.NoContent(http.StatusOK) },
		fakeActor(rbac.RoleNurse), RequireRole(rbac.RoleAdmin, rbac.RoleMasterAdmin))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin-only", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	e2 := echo.New()
	e2.GET("/admin-only",
		func(c echo.Context) error { return c.NoContent(http.StatusOK) },
		fakeActor(rbac.RoleMasterAdmin), RequireRole(rbac.RoleAdmin, rbac.RoleMasterAdmin))
	rec = httptest.NewRecorder()
	e2.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin-only", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireCapability(t *testing.T) {
	e := echo.New()
	e.HTTPErrorHandler = apperror.HTTPErrorHandler(zerolog.Nop())
	e.POST("/prescriptions",
		func(c echo.Context) error { return c.NoContent(http.StatusCreated) },
		fakeActor(rbac.RolePharmacist), RequireCapability("prescribe", rbac.CanPrescribe))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/prescriptions", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

// fakeActor injects an actor directly, standing in for Middleware.
func fakeActor(role rbac.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := WithActor(c.Request().Context(), Actor{ID: uuid.New(), Role: role})
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}
