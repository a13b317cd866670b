package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	return &Client{rdb: redis.NewClient(&redis.Options{Addr: mr.Addr()})}, mr
}

type widget struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestGetSet_RoundTrip(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	_, found, err := Get[widget](ctx, c, "missing")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, Set(ctx, c, "w1", widget{Name: "paper", Count: 3}, time.Minute))

	got, found, err := Get[widget](ctx, c, "w1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, widget{Name: "paper", Count: 3}, got)
}

func TestGet_MalformedPayloadFailsLoud(t *testing.T) {
	c, mr := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, mr.Set(keyPrefix+"broken", "not-json"))

	_, _, err := Get[widget](ctx, c, "broken")
	assert.Error(t, err)
}

func TestCached_MissThenHit(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	calls := 0
	compute := func(context.Context) (widget, error) {
		calls++
		return widget{Name: "velocity", Count: 1}, nil
	}

	v, err := Cached(ctx, c, "velocity", time.Minute, compute)
	require.NoError(t, err)
	assert.Equal(t, widget{Name: "velocity", Count: 1}, v)
	assert.Equal(t, 1, calls)
	assert.EqualValues(t, 1, c.Misses())

	v, err = Cached(ctx, c, "velocity", time.Minute, compute)
	require.NoError(t, err)
	assert.Equal(t, widget{Name: "velocity", Count: 1}, v)
	assert.Equal(t, 1, calls, "second call should hit cache, not recompute")
	assert.EqualValues(t, 1, c.Hits())
}

func TestCached_ComputeErrorNotCached(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	calls := 0
	failing := func(context.Context) (widget, error) {
		calls++
		return widget{}, assertErr
	}

	_, err := Cached(ctx, c, "fails", time.Minute, failing)
	assert.Error(t, err)

	_, err = Cached(ctx, c, "fails", time.Minute, failing)
	assert.Error(t, err)
	assert.Equal(t, 2, calls, "failed compute must not be cached")
}

func TestDeletePrefix(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, Set(ctx, c, "organization::org-1::profile", widget{Name: "a"}, time.Minute))
	require.NoError(t, Set(ctx, c, "organization::org-1::keys", widget{Name: "b"}, time.Minute))
	require.NoError(t, Set(ctx, c, "organization::org-2::profile", widget{Name: "c"}, time.Minute))

	require.NoError(t, c.ClearOrganization(ctx, "org-1"))

	_, found, err := Get[widget](ctx, c, "organization::org-1::profile")
	require.NoError(t, err)
	assert.False(t, found)

	_, found, err = Get[widget](ctx, c, "organization::org-2::profile")
	require.NoError(t, err)
	assert.True(t, found, "other organizations must be unaffected")
}

func TestDeletePrefix_NoMatchesIsNoop(t *testing.T) {
	c, _ := newTestClient(t)
	assert.NoError(t, c.DeletePrefix(context.Background(), "organization::none"))
}

var assertErr = errComputeFailed{}

type errComputeFailed struct{}

func (errComputeFailed) Error() string { return "compute failed" }
