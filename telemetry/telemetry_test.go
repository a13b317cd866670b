package telemetry

import (
	"context"
	"net"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcjars/registry/cache"
)

func newTestLogger(t *testing.T) *Logger {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	c := cache.NewForTest(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	return New(nil, nil, c, zerolog.Nop())
}

func TestLog_UnderLimitQueuesPendingRecord(t *testing.T) {
	l := newTestLogger(t)

	id, rl, err := l.Log(context.Background(), "GET", "/api/builds/paper", "", "curl/8", net.ParseIP("1.2.3.4"), nil)
	require.NoError(t, err)
	require.NotEmpty(t, id)
	require.NotNil(t, rl)
	assert.EqualValues(t, 1, rl.Hits)
	assert.EqualValues(t, 120, rl.Limit)

	l.pendingMu.Lock()
	defer l.pendingMu.Unlock()
	require.Len(t, l.pending, 1)
	assert.Equal(t, id, l.pending[0].ID)
}

func TestLog_NonAPIPathNotQueued(t *testing.T) {
	l := newTestLogger(t)

	id, _, err := l.Log(context.Background(), "GET", "/healthz", "", "curl/8", net.ParseIP("1.2.3.4"), nil)
	require.NoError(t, err)
	assert.Empty(t, id)

	l.pendingMu.Lock()
	defer l.pendingMu.Unlock()
	assert.Len(t, l.pending, 0)
}

func TestLog_GithubCallbackSuppressed(t *testing.T) {
	l := newTestLogger(t)

	id, _, err := l.Log(context.Background(), "GET", "/api/github/callback", "", "curl/8", net.ParseIP("1.2.3.4"), nil)
	require.NoError(t, err)
	assert.Empty(t, id)
}

func TestLog_FilesPathUsesFilesBucket(t *testing.T) {
	l := newTestLogger(t)

	_, rl, err := l.Log(context.Background(), "GET", "/api/files/download", "", "curl/8", net.ParseIP("5.6.7.8"), nil)
	require.NoError(t, err)
	require.NotNil(t, rl)
	assert.EqualValues(t, 30, rl.Limit)
}

func TestLog_VerifiedOrganizationExempt(t *testing.T) {
	l := newTestLogger(t)

	_, rl, err := l.Log(context.Background(), "GET", "/api/builds", "", "curl/8", net.ParseIP("9.9.9.9"), &OrgContext{ID: "org-1", Verified: true})
	require.NoError(t, err)
	assert.Nil(t, rl)
}

func TestLog_OverLimitReturnsRateLimitExceeded(t *testing.T) {
	l := newTestLogger(t)
	ctx := context.Background()
	ip := net.ParseIP("1.1.1.1")

	var lastErr error
	for i := 0; i < 125; i++ {
		_, _, lastErr = l.Log(ctx, "GET", "/api/builds", "", "curl/8", ip, nil)
	}

	require.Error(t, lastErr)
	var rle *RateLimitExceeded
	require.ErrorAs(t, lastErr, &rle)
	assert.Greater(t, rle.Data.Hits, rle.Data.Limit)
}

func TestFinish_MovesMatchingRecordToProcessing(t *testing.T) {
	l := newTestLogger(t)

	id, _, err := l.Log(context.Background(), "POST", "/api/builds/paper", "", "curl/8", net.ParseIP("2.2.2.2"), nil)
	require.NoError(t, err)

	l.Finish(id, 200, 15, map[string]any{"type": "lookup"}, nil)

	l.pendingMu.Lock()
	assert.Len(t, l.pending, 0)
	l.pendingMu.Unlock()

	l.processingMu.Lock()
	defer l.processingMu.Unlock()
	require.Len(t, l.processing, 1)
	assert.True(t, l.processing[0].End)
	assert.EqualValues(t, 200, l.processing[0].Status)
}

func TestFinish_UnknownIDIsNoop(t *testing.T) {
	l := newTestLogger(t)
	l.Finish("does-not-exist", 200, 1, nil, nil)

	l.processingMu.Lock()
	defer l.processingMu.Unlock()
	assert.Len(t, l.processing, 0)
}

func TestProcess_EmptyBatchIsNoop(t *testing.T) {
	l := newTestLogger(t)
	assert.NoError(t, l.Process(context.Background()))
}

func TestMethodCode(t *testing.T) {
	assert.EqualValues(t, 1, methodCode("GET"))
	assert.EqualValues(t, 2, methodCode("POST"))
	assert.EqualValues(t, 7, methodCode("HEAD"))
	assert.EqualValues(t, 1, methodCode("TRACE"))
}
