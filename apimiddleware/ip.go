// Package apimiddleware is the middleware chain (C5): panic capture, CORS,
// access logging, cookie parsing, the /api auth+rate-limit+telemetry gate,
// and response post-processing. Grounded on the teacher's
// http/server.go (NewEchoServer's middleware stacking, APIKeyMiddleware,
// SecurityHeadersMiddleware) and spec.md section 4.5.
package apimiddleware

import (
	"net"
	"strings"

	"github.com/labstack/echo/v4"
)

// ClientIP extracts the caller's address the way spec.md 4.5 requires:
// X-Real-IP first, then the first comma-delimited token of
// X-Forwarded-For. It returns nil, false if neither header parses as an
// IP address.
func ClientIP(c echo.Context) (net.IP, bool) {
	if raw := c.Request().Header.Get("X-Real-IP"); raw != "" {
		if ip := net.ParseIP(strings.TrimSpace(raw)); ip != nil {
			return ip, true
		}
	}

	if raw := c.Request().Header.Get("X-Forwarded-For"); raw != "" {
		first := strings.TrimSpace(strings.SplitN(raw, ",", 2)[0])
		if ip := net.ParseIP(first); ip != nil {
			return ip, true
		}
	}

	return nil, false
}

// ClientIPOrLoopback is used outside the API gate, where an unparseable
// client IP is logged as loopback rather than rejected.
func ClientIPOrLoopback(c echo.Context) net.IP {
	if ip, ok := ClientIP(c); ok {
		return ip
	}
	return net.ParseIP("127.0.0.1")
}
