package apimiddleware

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/mcjars/registry/apiresponse"
	"github.com/mcjars/registry/telemetry"
)

// dataKey/sessionKey/orgKey are the echo.Context storage keys used to
// pass the per-request data slot, parsed session cookie, and resolved
// organization down to handlers, matching the request-extension slots
// spec.md 4.5 describes.
const (
	dataKey    = "mcjars_request_data"
	sessionKey = "mcjars_session_cookie"
	orgKey     = "mcjars_org_context"
)

// Base installs the outer, always-on middleware stack (panic capture,
// permissive CORS, access logging, cookie parsing), matching
// spec.md 4.5 steps 1-4 and generalizing the teacher's NewEchoServer
// stacking order.
func Base(e *echo.Echo, log zerolog.Logger, reporter apiresponse.ErrorReporter) {
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			log.Error().Err(err).Bytes("stack", stack).Msg("panic recovered")
			resp := apiresponse.FromError(fmt.Errorf("panic: %v", err), reporter)
			return writeResponse(c, resp)
		},
	}))

	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost},
	}))

	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			log.Info().
				Str("method", c.Request().Method).
				Str("path", c.Request().URL.Path).
				Str("query", c.Request().URL.RawQuery).
				Str("ip", ClientIPOrLoopback(c).String()).
				Dur("latency", time.Since(start)).
				Msg("request")
			return err
		}
	})

	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cookie, err := c.Cookie("mcjars_session"); err == nil {
				c.Set(sessionKey, cookie.Value)
			}
			return next(c)
		}
	})
}

// SessionCookie returns the parsed session cookie value, if any.
func SessionCookie(c echo.Context) (string, bool) {
	v, ok := c.Get(sessionKey).(string)
	return v, ok && v != ""
}

// DataSlot returns the per-request mutable analytics-tagging map handlers
// populate (e.g. {"type": "lookup", "build": ...}), matching spec.md
// 4.5.6.c. Always non-nil inside the API gate.
func DataSlot(c echo.Context) map[string]any {
	if m, ok := c.Get(dataKey).(map[string]any); ok {
		return m
	}
	return nil
}

// OrgLookup resolves a 64-character API key into organization context,
// normally backed by C1 (cache) + C7 (models.Organization.ByKey).
type OrgLookup func(c echo.Context, key string) (*telemetry.OrgContext, error)

// Org returns the organization resolved by the API gate for this
// request, if the caller presented a valid key.
func Org(c echo.Context) (*telemetry.OrgContext, bool) {
	org, ok := c.Get(orgKey).(*telemetry.OrgContext)
	return org, ok && org != nil
}

// Gate wraps a route group (normally "/api") with C5 step 6: key lookup,
// rate limiting via C4, the mutable data slot, handler dispatch, finish,
// and response header merging. serverName, if non-empty, is echoed as
// X-Server-Name.
func Gate(logger *telemetry.Logger, lookup OrgLookup, reporter apiresponse.ErrorReporter, serverName string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip, ok := ClientIP(c)
			if !ok {
				resp := apiresponse.PostProcess(
					apiresponse.FromError(apiresponse.BadRequest("broken request, likely invalid IP"), reporter),
					c.Request().Header.Get("If-None-Match"),
				)
				return writeResponse(c, resp)
			}

			var org *telemetry.OrgContext
			if key := c.Request().Header.Get("Authorization"); len(key) == 64 {
				resolved, err := lookup(c, key)
				if err != nil {
					log := c.Logger()
					log.Error(fmt.Errorf("org lookup: %w", err))
				} else {
					org = resolved
				}
			}
			if org != nil {
				c.Set(orgKey, org)
			}

			start := time.Now()
			requestID, rl, err := logger.Log(c.Request().Context(), c.Request().Method, c.Request().URL.Path, c.Request().Referer(), c.Request().UserAgent(), ip, org)

			var rle *telemetry.RateLimitExceeded
			if errors.As(err, &rle) {
				resp := apiresponse.PostProcess(
					apiresponse.FromError(apiresponse.TooManyRequests("rate limit exceeded"), reporter),
					c.Request().Header.Get("If-None-Match"),
				)
				applyRateLimitHeaders(resp, &rle.Data)
				return writeResponse(c, resp)
			}
			if err != nil {
				resp := apiresponse.PostProcess(apiresponse.FromError(apiresponse.BadRequest(err.Error()), reporter), "")
				return writeResponse(c, resp)
			}

			c.Set(dataKey, map[string]any{})

			// Registered before next(c) runs: a handler may commit the
			// response (WriteHeader) from inside next(c), after which
			// Echo ignores any further header mutation. Before runs at
			// commit time, so it still lands even then.
			c.Response().Before(func() {
				if requestID != "" {
					c.Response().Header().Set("X-Request-ID", requestID)
				}
				if serverName != "" {
					c.Response().Header().Set("X-Server-Name", serverName)
				}
				if rl != nil {
					c.Response().Header().Set("X-RateLimit-Limit", strconv.FormatInt(rl.Limit, 10))
					c.Response().Header().Set("X-RateLimit-Remaining", strconv.FormatInt(max64(rl.Limit-rl.Hits, 0), 10))
				}
			})

			handlerErr := next(c)

			data := DataSlot(c)
			status := c.Response().Status
			if status == 0 {
				status = http.StatusOK
			}
			logger.Finish(requestID, int16(status), int32(time.Since(start).Milliseconds()), data, nil)

			return handlerErr
		}
	}
}

func applyRateLimitHeaders(resp apiresponse.Response, data *telemetry.RateLimitData) {
	resp.Headers.Set("X-RateLimit-Limit", strconv.FormatInt(data.Limit, 10))
	resp.Headers.Set("X-RateLimit-Remaining", "0")
	resp.Headers.Set("X-RateLimit-Reset", "60")
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

// APIHandler is the handler shape used under the API gate: it returns a
// shaped Response rather than writing to echo directly, so PostProcess
// always runs.
type APIHandler func(c echo.Context) (apiresponse.Response, error)

// Wrap adapts an APIHandler into an echo.HandlerFunc, converting any
// returned error via FromError and always running PostProcess.
func Wrap(h APIHandler, reporter apiresponse.ErrorReporter) echo.HandlerFunc {
	return func(c echo.Context) error {
		resp, err := h(c)
		if err != nil {
			resp = apiresponse.FromError(err, reporter)
		}
		resp = apiresponse.PostProcess(resp, c.Request().Header.Get("If-None-Match"))
		return writeResponse(c, resp)
	}
}

func writeResponse(c echo.Context, resp apiresponse.Response) error {
	w := c.Response()
	for key, values := range resp.Headers {
		for _, v := range values {
			w.Header().Add(key, v)
		}
	}
	status := resp.Status
	if status == 0 {
		status = http.StatusOK
	}
	return c.Blob(status, w.Header().Get("Content-Type"), resp.Body)
}
