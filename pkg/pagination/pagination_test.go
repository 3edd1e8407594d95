package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func params(t *testing.T, query string) Params {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/?"+query, nil)
	c := e.NewContext(req, httptest.NewRecorder())
	return FromContext(c)
}

func TestFromContext(t *testing.T) {
	assert.Equal(t, Params{Limit: DefaultLimit, Offset: 0}, params(t, ""))
	assert.Equal(t, Params{Limit: 10, Offset: 40}, params(t, "limit=10&offset=40"))
	assert.Equal(t, Params{Limit: MaxLimit, Offset: 0}, params(t, "limit=5000"))
	assert.Equal(t, Params{Limit: DefaultLimit, Offset: 0}, params(t, "limit=-1&offset=-5"))
}

func TestNewResponse(t *testing.T) {
	r := NewResponse([]int{1, 2, 3}, 10, 3, 0)
	assert.True(t, r.HasMore)

	r = NewResponse([]int{1}, 10, 3, 9)
	assert.False(t, r.HasMore)
}
