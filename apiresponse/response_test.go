package apiresponse

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSON_SetsContentType(t *testing.T) {
	r := JSON(map[string]string{"hello": "world"})
	assert.Equal(t, http.StatusOK, r.Status)
	assert.Equal(t, "application/json", r.Headers.Get("Content-Type"))

	var decoded map[string]string
	require.NoError(t, json.Unmarshal(r.Body, &decoded))
	assert.Equal(t, "world", decoded["hello"])
}

func TestError_BuildsStructuredEnvelope(t *testing.T) {
	r := Error("bad input")
	assert.Equal(t, http.StatusOK, r.Status) // Error() itself doesn't set status; caller chains WithStatus

	var decoded errorBody
	require.NoError(t, json.Unmarshal(r.Body, &decoded))
	assert.False(t, decoded.Success)
	assert.Equal(t, []string{"bad input"}, decoded.Errors)
}

func TestFromError_DisplayErrorPreservedVerbatim(t *testing.T) {
	err := NotFound("build not found")
	r := FromError(err, nil)

	assert.Equal(t, http.StatusNotFound, r.Status)

	var decoded errorBody
	require.NoError(t, json.Unmarshal(r.Body, &decoded))
	assert.Equal(t, []string{"build not found"}, decoded.Errors)
}

type captureReporter struct{ captured error }

func (c *captureReporter) Capture(err error) { c.captured = err }

func TestFromError_UnclassifiedReportsAndSurfaces500(t *testing.T) {
	reporter := &captureReporter{}
	r := FromError(assertErr, reporter)

	assert.Equal(t, http.StatusInternalServerError, r.Status)
	assert.Equal(t, assertErr, reporter.captured)

	var decoded errorBody
	require.NoError(t, json.Unmarshal(r.Body, &decoded))
	assert.Equal(t, []string{"internal server error"}, decoded.Errors)
}

var assertErr = plainError("boom")

type plainError string

func (e plainError) Error() string { return string(e) }

func TestPostProcess_TextErrorCoercion(t *testing.T) {
	r := Response{
		Body:    []byte("broken request, likely invalid IP"),
		Status:  http.StatusBadRequest,
		Headers: http.Header{"Content-Type": []string{"text/plain"}},
	}

	out := PostProcess(r, "")
	assert.Equal(t, "application/json", out.Headers.Get("Content-Type"))

	var decoded errorBody
	require.NoError(t, json.Unmarshal(out.Body, &decoded))
	assert.Equal(t, []string{"broken request, likely invalid IP"}, decoded.Errors)
}

func TestPostProcess_TextNotCoercedFor404(t *testing.T) {
	r := Response{
		Body:    []byte("not found"),
		Status:  http.StatusNotFound,
		Headers: http.Header{"Content-Type": []string{"text/plain"}},
	}

	out := PostProcess(r, "")
	assert.Equal(t, "text/plain", out.Headers.Get("Content-Type"))
	assert.Equal(t, "not found", string(out.Body))
}

func TestPostProcess_SetsETagWhenAbsent(t *testing.T) {
	r := Response{Body: []byte("hello"), Status: http.StatusOK, Headers: http.Header{}}
	out := PostProcess(r, "")
	assert.NotEmpty(t, out.Headers.Get("ETag"))
	assert.Equal(t, "hello", string(out.Body))
}

func TestPostProcess_MatchingIfNoneMatchReturns304(t *testing.T) {
	r := Response{Body: []byte("hello"), Status: http.StatusOK, Headers: http.Header{}}
	first := PostProcess(r, "")
	etag := first.Headers.Get("ETag")

	r2 := Response{Body: []byte("hello"), Status: http.StatusOK, Headers: http.Header{}}
	out := PostProcess(r2, etag)

	assert.Equal(t, http.StatusNotModified, out.Status)
	assert.Empty(t, out.Body)
	assert.Equal(t, etag, out.Headers.Get("ETag"))
}

func TestPostProcess_ExistingETagNotRecomputed(t *testing.T) {
	r := Response{
		Body:    []byte("hello"),
		Status:  http.StatusOK,
		Headers: http.Header{"ETag": []string{`"custom"`}},
	}
	out := PostProcess(r, "")
	assert.Equal(t, `"custom"`, out.Headers.Get("ETag"))
}
