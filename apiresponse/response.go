// Package apiresponse is the response shaping layer (C6): the
// ApiResponse envelope every handler returns, the DisplayError taxonomy,
// and the text-error-coercion/ETag post-processing every response passes
// through before it reaches the client. Grounded on
// original_source/backend/src/response.rs.
package apiresponse

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
)

// Response is the uniform envelope every API handler returns, mirroring
// response.rs's ApiResponse{body, status, headers}.
type Response struct {
	Body    []byte
	Status  int
	Headers http.Header
}

// JSON builds a 200 response with a JSON-encoded body and
// Content-Type: application/json, matching ApiResponse::json.
func JSON(body any) Response {
	raw, err := json.Marshal(body)
	if err != nil {
		return Error("internal server error").WithStatus(http.StatusInternalServerError)
	}

	return Response{
		Body:    raw,
		Status:  http.StatusOK,
		Headers: http.Header{"Content-Type": []string{"application/json"}},
	}
}

// Error builds a JSON error envelope {success:false, errors:[msg]},
// matching ApiResponse::error. The status stays 200 until the caller
// sets one with WithStatus.
func Error(message string) Response {
	return JSON(errorBody{Success: false, Errors: []string{message}})
}

type errorBody struct {
	Success bool     `json:"success"`
	Errors  []string `json:"errors"`
}

// WithStatus sets the response status and returns the response for
// chaining, matching ApiResponse::with_status.
func (r Response) WithStatus(status int) Response {
	r.Status = status
	return r
}

// WithHeader sets a single header and returns the response for chaining.
func (r Response) WithHeader(key, value string) Response {
	if r.Headers == nil {
		r.Headers = http.Header{}
	}
	r.Headers.Set(key, value)
	return r
}

// DisplayError is the distinguished error kind that can be thrown from
// anywhere and is preserved verbatim by FromError, matching
// response.rs's DisplayError.
type DisplayError struct {
	Status  int
	Message string
}

func (e *DisplayError) Error() string { return e.Message }

// NewDisplayError builds a DisplayError defaulting to 400, the way
// DisplayError::new does.
func NewDisplayError(message string) *DisplayError {
	return &DisplayError{Status: http.StatusBadRequest, Message: message}
}

// WithStatus overrides the status on a DisplayError.
func (e *DisplayError) WithStatus(status int) *DisplayError {
	e.Status = status
	return e
}

// Common error-taxonomy constructors (spec.md 4.6's error taxonomy).
func BadRequest(message string) *DisplayError { return NewDisplayError(message) }
func Unauthorized(message string) *DisplayError {
	return NewDisplayError(message).WithStatus(http.StatusUnauthorized)
}
func Forbidden(message string) *DisplayError {
	return NewDisplayError(message).WithStatus(http.StatusForbidden)
}
func NotFound(message string) *DisplayError {
	return NewDisplayError(message).WithStatus(http.StatusNotFound)
}
func Conflict(message string) *DisplayError {
	return NewDisplayError(message).WithStatus(http.StatusConflict)
}
func PayloadTooLarge(message string) *DisplayError {
	return NewDisplayError(message).WithStatus(http.StatusRequestEntityTooLarge)
}
func TooManyRequests(message string) *DisplayError {
	return NewDisplayError(message).WithStatus(http.StatusTooManyRequests)
}

// ErrorReporter captures an unclassified error for the error tracker
// (e.g. Sentry), matching response.rs's sentry_anyhow::capture_anyhow
// call. Kept as an interface so apiresponse doesn't depend on a
// particular SDK; nil is a valid no-op reporter.
type ErrorReporter interface {
	Capture(err error)
}

// FromError converts any error into a Response: a *DisplayError is
// preserved verbatim (status + message), anything else is reported via
// reporter (if non-nil) and surfaces as a 500, matching response.rs's
// blanket `impl<T> From<T> for ApiResponse`.
func FromError(err error, reporter ErrorReporter) Response {
	if err == nil {
		return JSON(errorBody{Success: true})
	}

	if de, ok := err.(*DisplayError); ok {
		return Error(de.Message).WithStatus(de.Status)
	}

	if reporter != nil {
		reporter.Capture(err)
	}

	return Error("internal server error").WithStatus(http.StatusInternalServerError)
}

// PostProcess applies the two response-shaping transformations every
// response passes through: text-error coercion, then ETag/304 handling.
// ifNoneMatch is the request's If-None-Match header value, if any.
func PostProcess(r Response, ifNoneMatch string) Response {
	r = coerceTextError(r)
	r = applyETag(r, ifNoneMatch)
	return r
}

// coerceTextError rewrites a text/plain 4xx-other-than-404 body into the
// structured JSON error envelope, matching spec.md 4.6's text-error
// coercion rule.
func coerceTextError(r Response) Response {
	contentType := r.Headers.Get("Content-Type")
	if !strings.HasPrefix(contentType, "text/plain") {
		return r
	}
	if r.Status < 400 || r.Status >= 500 || r.Status == http.StatusNotFound {
		return r
	}

	r.Body, _ = json.Marshal(errorBody{Success: false, Errors: []string{string(r.Body)}})
	r.Headers.Set("Content-Type", "application/json")
	return r
}

// applyETag computes and sets an ETag if absent, and short-circuits to
// 304 when it matches If-None-Match.
func applyETag(r Response, ifNoneMatch string) Response {
	if r.Headers == nil {
		r.Headers = http.Header{}
	}

	etag := r.Headers.Get("ETag")
	if etag == "" {
		sum := sha256.Sum256(r.Body)
		etag = hex.EncodeToString(sum[:])
		r.Headers.Set("ETag", etag)
	}

	if ifNoneMatch != "" && ifNoneMatch == etag {
		r.Body = nil
		r.Status = http.StatusNotModified
	}

	return r
}
