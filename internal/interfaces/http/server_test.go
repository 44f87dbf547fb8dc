package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/im-Prabhasha/VolumeTracker/internal/config"
	"github.com/im-Prabhasha/VolumeTracker/internal/domain"
	"github.com/im-Prabhasha/VolumeTracker/internal/interfaces/ws"
	"github.com/im-Prabhasha/VolumeTracker/internal/scheduler"
	"github.com/im-Prabhasha/VolumeTracker/internal/telemetry"
)

type sourceFunc func(ctx context.Context) (domain.FetchBatch, error)

func (f sourceFunc) FetchMarkets(ctx context.Context) (domain.FetchBatch, error) {
	return f(ctx)
}

func marketBatch() domain.FetchBatch {
	return domain.FetchBatch{
		ID:        "batch-1",
		FetchedAt: time.Now().UTC(),
		Records: []domain.AssetRecord{
			{ID: "a", Name: "Alpha", Symbol: "alp", Price: 10, MarketCap: 1000, Volume24h: 100},  // ratio 0.1
			{ID: "b", Name: "Beta", Symbol: "bet", Price: 20, MarketCap: 500, Volume24h: 500},    // ratio 1.0
			{ID: "c", Name: "Gamma", Symbol: "gam", Price: 30, MarketCap: 100, Volume24h: 1500},  // ratio 15
			{ID: "z", Name: "Zombie", Symbol: "zmb", Price: 0.01, MarketCap: 0, Volume24h: 9999}, // undefined ratio
		},
	}
}

func newTestServer(t *testing.T, source scheduler.Source) (*Server, *scheduler.Refresher) {
	t.Helper()
	metrics := telemetry.NewMetrics()
	refresher := scheduler.New(source, time.Minute, metrics)
	hub := ws.NewHub(metrics)

	cfg := config.ServerConfig{
		Host: "127.0.0.1", Port: 0,
		ReadTimeoutSeconds: 10, WriteTimeoutSeconds: 10, IdleTimeoutSeconds: 60,
	}
	return NewServer(cfg, refresher, hub, metrics), refresher
}

func doRequest(t *testing.T, s *Server, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decodeAssets(t *testing.T, rec *httptest.ResponseRecorder) assetsResponse {
	t.Helper()
	var resp assetsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestAssets_NoBatchYet(t *testing.T) {
	server, _ := newTestServer(t, sourceFunc(func(ctx context.Context) (domain.FetchBatch, error) {
		return domain.FetchBatch{}, errors.New("never called")
	}))

	rec := doRequest(t, server, http.MethodGet, "/api/assets")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestAssets_DefaultSortRatioDescending(t *testing.T) {
	server, refresher := newTestServer(t, sourceFunc(func(ctx context.Context) (domain.FetchBatch, error) {
		return marketBatch(), nil
	}))
	_, err := refresher.Refresh(context.Background())
	require.NoError(t, err)

	rec := doRequest(t, server, http.MethodGet, "/api/assets")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeAssets(t, rec)
	assert.Equal(t, "batch-1", resp.BatchID)
	require.Equal(t, 4, resp.Count)
	assert.Equal(t, "c", resp.Assets[0].ID)
	assert.Equal(t, "b", resp.Assets[1].ID)
	assert.Equal(t, "a", resp.Assets[2].ID)
	assert.Equal(t, "z", resp.Assets[3].ID, "undefined ratio sorts last")
	assert.Equal(t, "n/a", resp.Assets[3].Display.Ratio)
	assert.Equal(t, "1500.00%", resp.Assets[0].Display.Ratio)
}

func TestAssets_FilterAndLimit(t *testing.T) {
	server, refresher := newTestServer(t, sourceFunc(func(ctx context.Context) (domain.FetchBatch, error) {
		return marketBatch(), nil
	}))
	_, err := refresher.Refresh(context.Background())
	require.NoError(t, err)

	rec := doRequest(t, server, http.MethodGet, "/api/assets?min_ratio=0.2&limit=1")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeAssets(t, rec)
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, "c", resp.Assets[0].ID)

	rec = doRequest(t, server, http.MethodGet, "/api/assets?high_volume=true")
	resp = decodeAssets(t, rec)
	require.Equal(t, 2, resp.Count, "high_volume keeps ratio >= 1 only")
}

func TestAssets_BadParams(t *testing.T) {
	server, _ := newTestServer(t, sourceFunc(func(ctx context.Context) (domain.FetchBatch, error) {
		return marketBatch(), nil
	}))

	for _, target := range []string{
		"/api/assets?sort=price",
		"/api/assets?dir=sideways",
		"/api/assets?min_ratio=abc",
		"/api/assets?min_volume=-5",
		"/api/assets?limit=x",
	} {
		rec := doRequest(t, server, http.MethodGet, target)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "target %s", target)
	}
}

func TestSummary(t *testing.T) {
	server, refresher := newTestServer(t, sourceFunc(func(ctx context.Context) (domain.FetchBatch, error) {
		return marketBatch(), nil
	}))
	_, err := refresher.Refresh(context.Background())
	require.NoError(t, err)

	rec := doRequest(t, server, http.MethodGet, "/api/summary")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp summaryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 4, resp.Summary.TotalAssets)
	assert.Equal(t, 1, resp.Summary.HighVolumeCount, "only 'c' has ratio > 1")
}

func TestRefresh_ManualTrigger(t *testing.T) {
	var fail bool
	server, _ := newTestServer(t, sourceFunc(func(ctx context.Context) (domain.FetchBatch, error) {
		if fail {
			return domain.FetchBatch{}, errors.New("upstream down")
		}
		return marketBatch(), nil
	}))

	rec := doRequest(t, server, http.MethodPost, "/api/refresh")
	assert.Equal(t, http.StatusOK, rec.Code)

	fail = true
	rec = doRequest(t, server, http.MethodPost, "/api/refresh")
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	// Prior batch still served with the error surfaced.
	rec = doRequest(t, server, http.MethodGet, "/api/assets")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeAssets(t, rec)
	assert.Equal(t, "batch-1", resp.BatchID)
	assert.True(t, resp.Stale)
	assert.NotEmpty(t, resp.LastError)
}

func TestRefresh_InFlightReturnsAccepted(t *testing.T) {
	release := make(chan struct{})
	server, refresher := newTestServer(t, sourceFunc(func(ctx context.Context) (domain.FetchBatch, error) {
		<-release
		return marketBatch(), nil
	}))

	done := make(chan struct{})
	go func() {
		defer close(done)
		refresher.Refresh(context.Background())
	}()

	require.Eventually(t, func() bool {
		rec := doRequest(t, server, http.MethodPost, "/api/refresh")
		return rec.Code == http.StatusAccepted
	}, time.Second, time.Millisecond)

	close(release)
	<-done
}

func TestHealthAndNotFound(t *testing.T) {
	server, refresher := newTestServer(t, sourceFunc(func(ctx context.Context) (domain.FetchBatch, error) {
		return marketBatch(), nil
	}))
	_, err := refresher.Refresh(context.Background())
	require.NoError(t, err)

	rec := doRequest(t, server, http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	var health map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "ok", health["status"])
	assert.Equal(t, true, health["has_batch"])

	rec = doRequest(t, server, http.MethodGet, "/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	server, refresher := newTestServer(t, sourceFunc(func(ctx context.Context) (domain.FetchBatch, error) {
		return marketBatch(), nil
	}))
	_, err := refresher.Refresh(context.Background())
	require.NoError(t, err)

	rec := doRequest(t, server, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `voltracker_refresh_total{result="success"} 1`)
	assert.Contains(t, rec.Body.String(), "voltracker_batch_size 4")
}
