// Package telemetry is the request logger (C4): per-request rate
// limiting on top of C1, a pending→processing request record lifecycle,
// and a periodic batch drain that enriches records with geo-IP data and
// bulk-inserts them into ClickHouse. Grounded directly on
// original_source/backend/src/requests.rs.
package telemetry

import (
	"context"
	"crypto/rand"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/mcjars/registry/cache"
	"github.com/mcjars/registry/db"
	"github.com/mcjars/registry/queue/redis"
)

const alnum = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// randomID returns a 12-character random alphanumeric string, used as the
// opaque request id echoed back as X-Request-ID.
func randomID() string {
	buf := make([]byte, 12)
	_, _ = rand.Read(buf)
	out := make([]byte, 12)
	for i, b := range buf {
		out[i] = alnum[int(b)%len(alnum)]
	}
	return string(out)
}

// acceptedMethods mirrors requests.rs's ACCEPTED_METHODS.
var acceptedMethods = map[string]bool{
	http.MethodGet:    true,
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodDelete: true,
	http.MethodPatch:  true,
}

// OrgContext is the minimal organization info the logger needs: its id
// for association and whether it's exempt from rate limiting. Kept
// separate from models.Organization so this package doesn't need to
// import the domain model package.
type OrgContext struct {
	ID       string
	Verified bool
}

// RateLimitData is returned whenever a rate limit decision was made,
// whether or not the caller is over the limit.
type RateLimitData struct {
	Limit int64
	Hits  int64
}

// RateLimitExceeded is returned by Log when the caller is over their
// bucket's limit; the middleware translates this into a 429.
type RateLimitExceeded struct {
	Data RateLimitData
}

func (e *RateLimitExceeded) Error() string {
	return fmt.Sprintf("rate limit exceeded: %d/%d", e.Data.Hits, e.Data.Limit)
}

// Request is one in-flight API request record, from entry until finish.
type Request struct {
	ID             string
	OrganizationID string // empty if none
	End            bool

	Origin string
	Method string
	Path   string
	Time   int32
	Status int16
	Body   any

	IP        net.IP
	Continent string
	Country   string

	Data      any
	UserAgent string
	Created   time.Time
}

// Logger is the request logger: C4's pending/processing lifecycle plus
// the drain loop. Build one with New and call Process on a 5s ticker.
type Logger struct {
	pendingMu sync.Mutex
	pending   []*Request

	processingMu sync.Mutex
	processing   []*Request

	uncounted atomic.Int64

	pool       *db.Pool
	clickhouse *ClickhouseStore
	cache      *cache.Client
	httpClient *http.Client
	logger     zerolog.Logger

	// tracker mirrors in-flight request ids into a Redis sorted set so
	// every registryd replica can see cross-replica staleness. Optional:
	// nil unless WithTracker is called.
	tracker *redis.Tracker
}

// WithTracker attaches a distributed staleness tracker to l, returning l
// for chaining.
func (l *Logger) WithTracker(t *redis.Tracker) *Logger {
	l.tracker = t
	return l
}

// New builds a Logger. The HTTP client carries the same identifying
// User-Agent the Rust source sets on its reqwest client.
func New(pool *db.Pool, ch *ClickhouseStore, c *cache.Client, logger zerolog.Logger) *Logger {
	return &Logger{
		pool:       pool,
		clickhouse: ch,
		cache:      c,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

// Log is called at request entry. It applies rate limiting (unless the
// organization is verified), and — for accepted methods under /api
// (excluding /api/github) — appends a pending record and returns its id.
// A non-nil RateLimitData is always returned when a limit check ran,
// even when the caller is within bounds, so middleware can set
// X-RateLimit-* headers either way.
func (l *Logger) Log(ctx context.Context, method, path, origin, userAgent string, ip net.IP, org *OrgContext) (requestID string, rl *RateLimitData, err error) {
	if ip == nil {
		ip = net.IPv4(127, 0, 0, 1)
	}

	if org == nil || !org.Verified {
		bucket := "regular"
		if strings.Contains(path, "files") {
			bucket = "files"
		}
		key := fmt.Sprintf("mcjars_api::ratelimit::%s::%s", ip.String(), bucket)

		limit := int64(120)
		if bucket == "files" {
			limit = 30
		} else if org != nil {
			limit = 240
		}

		data, rerr := l.rateLimit(ctx, key, limit)
		if rerr != nil {
			return "", nil, rerr
		}
		rl = &data

		if data.Hits > data.Limit {
			return "", rl, &RateLimitExceeded{Data: data}
		}
	}

	l.uncounted.Add(1)

	if !acceptedMethods[method] || !strings.HasPrefix(path, "/api") || strings.HasPrefix(path, "/api/github") {
		return "", rl, nil
	}

	orgID := ""
	if org != nil {
		orgID = org.ID
	}

	req := &Request{
		ID:             randomID(),
		OrganizationID: orgID,
		Origin:         sliceUpTo(origin, 255),
		Method:         method,
		Path:           sliceUpTo(path, 255),
		IP:             ip,
		UserAgent:      sliceUpTo(orDefault(userAgent, "unknown"), 255),
		Created:        time.Now(),
	}

	l.pendingMu.Lock()
	l.pending = append(l.pending, req)
	l.pendingMu.Unlock()

	return req.ID, rl, nil
}

// rateLimit implements the read-expiry/reuse-or-reset-window/increment
// sequence from requests.rs's log().
func (l *Logger) rateLimit(ctx context.Context, key string, limit int64) (RateLimitData, error) {
	now := time.Now()

	expiry, err := l.cache.ExpireTime(ctx, key)
	if err != nil {
		return RateLimitData{}, err
	}

	var expireAt time.Time
	if !expiry.IsZero() && expiry.After(now.Add(2*time.Second)) {
		expireAt = expiry
	} else {
		expireAt = now.Add(60 * time.Second)
	}

	count, err := l.cache.GetInt64(ctx, key)
	if err != nil {
		return RateLimitData{}, err
	}

	count++
	if err := l.cache.SetExpireAt(ctx, key, count, expireAt); err != nil {
		return RateLimitData{}, err
	}

	return RateLimitData{Limit: limit, Hits: count}, nil
}

// Finish is called when a handler returns. It moves the matching pending
// record (if any — unmatched ids are silently ignored, just as
// requests.rs's finish() does) into processing with the final outcome
// filled in.
func (l *Logger) Finish(id string, status int16, elapsedMS int32, data, body any) {
	if id == "" {
		return
	}

	l.pendingMu.Lock()
	var req *Request
	for i, r := range l.pending {
		if r.ID == id {
			req = r
			l.pending = append(l.pending[:i], l.pending[i+1:]...)
			break
		}
	}
	l.pendingMu.Unlock()

	if req == nil {
		return
	}

	req.End = true
	req.Status = status
	req.Time = elapsedMS
	req.Data = data
	req.Body = body

	l.processingMu.Lock()
	l.processing = append(l.processing, req)
	l.processingMu.Unlock()

	if l.tracker != nil {
		if err := l.tracker.MarkProcessing(context.Background(), req.ID, time.Now().Add(300*time.Second)); err != nil {
			l.logger.Warn().Err(err).Str("request_id", req.ID).Msg("failed to mark request processing")
		}
	}
}

// Process is the 5s drain: prune stale pending entries, splice up to 30
// processing entries into a batch, enrich with geo-IP, bulk-insert into
// ClickHouse, and flush the uncounted-request accumulator into the
// relational "counts" table.
func (l *Logger) Process(ctx context.Context) error {
	now := time.Now()

	l.pendingMu.Lock()
	l.pending = filterRequests(l.pending, func(r *Request) bool {
		return r.Created.After(now.Add(-60 * time.Second))
	})
	l.pendingMu.Unlock()

	l.processingMu.Lock()
	batchLen := len(l.processing)
	if batchLen > 30 {
		batchLen = 30
	}
	batch := append([]*Request(nil), l.processing[:batchLen]...)
	l.processing = append(l.processing[:0], l.processing[batchLen:]...)
	l.processing = filterRequests(l.processing, func(r *Request) bool {
		return r.Created.After(now.Add(-300 * time.Second))
	})
	l.processingMu.Unlock()

	if l.tracker != nil {
		for _, r := range batch {
			if err := l.tracker.CompleteJob(ctx, r.ID); err != nil {
				l.logger.Warn().Err(err).Str("request_id", r.ID).Msg("failed to clear processing tracker entry")
			}
		}
	}

	if len(batch) == 0 {
		return nil
	}

	geo, err := l.lookupIPs(ctx, batch)
	if err != nil {
		l.logger.Error().Err(err).Msg("geo-ip lookup failed, continuing without enrichment")
		geo = nil
	}
	for _, r := range batch {
		if loc, ok := geo[r.IP.String()]; ok {
			r.Continent = loc.ContinentCode
			r.Country = loc.CountryCode
		}
	}

	if l.clickhouse != nil {
		if err := l.clickhouse.InsertRequests(ctx, batch); err != nil {
			return fmt.Errorf("clickhouse insert: %w", err)
		}
	}

	if count := l.uncounted.Swap(0); count > 0 && l.pool != nil {
		if err := l.pool.UpdateCount(ctx, "requests", count); err != nil {
			l.logger.Error().Err(err).Msg("failed to update request count")
		}
	}

	l.logger.Info().Int("count", len(batch)).Msg("processed requests")
	return nil
}

func filterRequests(in []*Request, keep func(*Request) bool) []*Request {
	out := in[:0]
	for _, r := range in {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

func sliceUpTo(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
