package apimiddleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newContext(headers map[string]string) echo.Context {
	req := httptest.NewRequest(http.MethodGet, "/api/builds", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	return echo.New().NewContext(req, rec)
}

func TestClientIP_PrefersXRealIP(t *testing.T) {
	c := newContext(map[string]string{"X-Real-IP": "1.2.3.4", "X-Forwarded-For": "5.6.7.8"})
	ip, ok := ClientIP(c)
	require.True(t, ok)
	assert.Equal(t, "1.2.3.4", ip.String())
}

func TestClientIP_FallsBackToForwardedFor(t *testing.T) {
	c := newContext(map[string]string{"X-Forwarded-For": "5.6.7.8, 9.9.9.9"})
	ip, ok := ClientIP(c)
	require.True(t, ok)
	assert.Equal(t, "5.6.7.8", ip.String())
}

func TestClientIP_UnparsableIsNotOK(t *testing.T) {
	c := newContext(map[string]string{"X-Real-IP": "not-an-ip", "X-Forwarded-For": "also-not-an-ip"})
	_, ok := ClientIP(c)
	assert.False(t, ok)
}

func TestClientIPOrLoopback_FallsBackWhenMissing(t *testing.T) {
	c := newContext(nil)
	assert.Equal(t, "127.0.0.1", ClientIPOrLoopback(c).String())
}
