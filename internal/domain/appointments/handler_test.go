package appointments

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medrec/medrec/internal/platform/apperror"
	"github.com/medrec/medrec/internal/platform/auth"
	"github.com/medrec/medrec/internal/platform/rbac"
)

func newTestServer(t *testing.T) (*echo.Echo, *fixture) {
	t.Helper()
	f := newFixture(t)

	e := echo.New()
	e.HTTPErrorHandler = apperror.HTTPErrorHandler(zerolog.Nop())
	api := e.Group("/api/v1", func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if v := c.Request().Header.Get("X-Test-Actor"); v != "" {
				parts := strings.SplitN(v, "|", 2)
				id, err := uuid.Parse(parts[0])
				require.NoError(t, err)
				role, _ := rbac.Parse(parts[1])
				c.SetRequest(c.Request().WithContext(
					auth.WithActor(c.Request().Context(), auth.Actor{ID: id, Role: role})))
			}
			return next(c)
		}
	})
	NewHandler(f.svc).RegisterRoutes(api)
	return e, f
}

func do(e *echo.Echo, method, path, body string, actor auth.Actor) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set("X-Test-Actor", actor.ID.String()+"|"+string(actor.Role))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestNegotiationOverHTTP(t *testing.T) {
	e, f := newTestServer(t)

	rec := do(e, http.MethodPost, "/api/v1/appointments", `{
		"provider_id": "`+f.provider.ID.String()+`",
		"title": "annual checkup",
		"appointment_type": "checkup",
		"patient_suggested_time": "2025-01-10T09:00:00Z"
	}`, f.patient)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var a Appointment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &a))
	assert.Equal(t, StatusRequested, a.Status)

	base := "/api/v1/appointments/" + a.ID.String()

	rec = do(e, http.MethodPost, base+"/propose", `{"proposed_time":"2025-01-10T10:00:00Z"}`, f.provider)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"status":"proposed"`)

	rec = do(e, http.MethodPost, base+"/confirm", `{}`, f.patient)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"status":"confirmed"`)
	assert.Contains(t, rec.Body.String(), `"confirmed_time":"2025-01-10T10:00:00Z"`)

	// Completing as the patient is forbidden; out-of-order propose is a 422.
	rec = do(e, http.MethodPost, base+"/complete", "", f.patient)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(e, http.MethodPost, base+"/propose", `{"proposed_time":"2025-01-12T10:00:00Z"}`, f.provider)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), `"kind":"state"`)

	rec = do(e, http.MethodPost, base+"/complete", "", f.provider)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(e, http.MethodPost, base+"/feedback", `{"rating":5,"comment":"on time"}`, f.patient)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(e, http.MethodPost, base+"/feedback", `{"rating":1}`, f.patient)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(e, http.MethodGet, base+"/messages", "", f.patient)
	require.Equal(t, http.StatusOK, rec.Code)
	var msgs []Message
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msgs))
	assert.Len(t, msgs, 4, "request, propose, confirm, complete")
}

func TestRescheduleOverHTTP(t *testing.T) {
	e, f := newTestServer(t)
	a := f.request(t, "2025-01-10T09:00:00Z")
	base := "/api/v1/appointments/" + a.ID.String()

	rec := do(e, http.MethodPost, base+"/confirm", `{}`, f.provider)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(e, http.MethodPost, base+"/reschedule", `{"new_time":"2025-02-01T09:00:00Z"}`, f.patient)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var fresh Appointment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fresh))
	assert.Equal(t, StatusRequested, fresh.Status)
	require.NotNil(t, fresh.RescheduledFrom)
	assert.Equal(t, a.ID, *fresh.RescheduledFrom)
}
