package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/patrickwarner/adkit/internal/analytics"
	"github.com/patrickwarner/adkit/internal/config"
	"github.com/patrickwarner/adkit/internal/db"
	"github.com/patrickwarner/adkit/internal/geoip"
	"github.com/patrickwarner/adkit/internal/logic"
	"github.com/patrickwarner/adkit/internal/logic/ratelimit"
	"github.com/patrickwarner/adkit/internal/observability"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const safariUA = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/15.0 Safari/605.1.15"

type testServer struct {
	*Server
	metrics *observability.MockMetricsRegistry
	events  *analytics.RecordingProvider
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	cfg := config.Load()
	cfg.AllowForwardedVisitor = true

	geo, err := geoip.Init(filepath.Join("..", "geoip", "testdata", "fallback.json"))
	require.NoError(t, err)

	metrics := observability.NewMockMetricsRegistry()
	rec := &analytics.RecordingProvider{}
	dispatcher := analytics.NewDispatcher(analytics.Options{TrackingID: "FAKE-XXXXX-1"}, rec, metrics, zap.NewNop())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = dispatcher.Close(ctx)
	})

	srv := NewServer(zap.NewNop(), metrics, cfg,
		ratelimit.NewLimiter(ratelimit.NewMemoryStore(), metrics),
		ratelimit.MustParseRates("1/s", "1/m"),
		geoip.NewResolver(geo, metrics),
		dispatcher,
	)
	return &testServer{Server: srv, metrics: metrics, events: rec}
}

func (ts *testServer) flush(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, ts.Analytics.Close(ctx))
}

func TestHealthHandler(t *testing.T) {
	ts := newTestServer(t)
	rec := httptest.NewRecorder()
	ts.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","checks":{"ratelimit_store":"ok","geoip":"ok","analytics":"enabled"}}`, rec.Body.String())
	assert.Equal(t, 1, ts.metrics.Count("requests:health:200"))
}

func TestHealthHandlerReportsStoreOutage(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store := ratelimit.NewRedisStore(&db.RedisStore{Client: client, Ctx: context.Background()})

	srv := NewServer(nil, nil, config.Config{}, ratelimit.NewLimiter(store, nil), nil, nil, nil)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.JSONEq(t, `{"status":"ok","checks":{"ratelimit_store":"ok","geoip":"disabled","analytics":"disabled"}}`, rec.Body.String())

	mr.Close()
	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, "error", resp.Checks["ratelimit_store"])
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	rec := httptest.NewRecorder()
	ts.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestVisitorHandler(t *testing.T) {
	ts := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/visitor", nil)
	req.RemoteAddr = "8.8.8.8:5000"
	req.Header.Set("User-Agent", safariUA)
	rec := httptest.NewRecorder()

	ts.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp VisitorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "8.8.8.0", resp.IP)
	assert.Equal(t, safariUA, resp.UserAgent)
	assert.Len(t, resp.ClientID, 64)
	assert.False(t, resp.Blacklisted)
	assert.Equal(t, "desktop", resp.Profile.DeviceType)
	require.NotNil(t, resp.Geo)
	assert.Equal(t, "US", resp.Geo.CountryCode)
	assert.Equal(t, uint(807), resp.Geo.DMACode)
	assert.Equal(t, logic.GetAdDay(time.UTC).Format(logic.DateLayout), resp.AdDay)
}

func TestVisitorHandlerForwardedVisitor(t *testing.T) {
	ts := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/visitor?user_ip=81.2.69.160&user_ua=Some+rare+user+agent", nil)
	req.RemoteAddr = "192.0.2.10:5000"
	req.Header.Set("X-Advertising-Client-ID", "publisher-cid")
	rec := httptest.NewRecorder()

	ts.Router().ServeHTTP(rec, req)

	var resp VisitorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "publisher-cid", resp.ClientID)
	assert.Equal(t, "81.2.69.0", resp.IP)
	assert.Equal(t, logic.RareUserAgent, resp.UserAgent)
	require.NotNil(t, resp.Geo)
	assert.Equal(t, "GB", resp.Geo.CountryCode)
}

func postClick(t *testing.T, h http.Handler, ua string) ClickResponse {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/clicks?ad=ad-7", nil)
	req.RemoteAddr = "203.0.113.5:1234"
	req.Header.Set("User-Agent", ua)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ClickResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestClickHandlerRatelimits(t *testing.T) {
	ts := newTestServer(t)
	h := ts.Router()

	first := postClick(t, h, safariUA)
	second := postClick(t, h, safariUA)
	ts.flush(t)

	assert.True(t, first.Counted)
	assert.False(t, second.Counted)
	assert.Equal(t, ReasonRatelimited, second.Reason)

	events := ts.events.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "203.0.113.0", events[0].IP)
	assert.Equal(t, "click", events[0].Params["ea"])
	assert.Equal(t, "ad-7", events[0].Params["el"])
	assert.Len(t, events[0].ClientID, 64)
}

func TestClickHandlerBlacklisted(t *testing.T) {
	ts := newTestServer(t)
	ts.Blacklist = []*regexp.Regexp{regexp.MustCompile(`^curl/`)}

	resp := postClick(t, ts.Router(), "curl/8.4.0")
	ts.flush(t)

	assert.False(t, resp.Counted)
	assert.Equal(t, ReasonBlacklisted, resp.Reason)
	assert.Equal(t, 1, ts.metrics.Count("blacklisted_user_agents"))
	assert.Empty(t, ts.events.Events())
	assert.Zero(t, ts.metrics.Count("ratelimit_requests:click"))
}

func TestClickHandlerRejectsGet(t *testing.T) {
	ts := newTestServer(t)
	rec := httptest.NewRecorder()
	ts.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/clicks", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestClickHandlerWithoutOptionalDeps(t *testing.T) {
	srv := NewServer(nil, nil, config.Config{}, nil, nil, nil, nil)
	resp := postClick(t, srv.Router(), safariUA)
	assert.True(t, resp.Counted)
}
