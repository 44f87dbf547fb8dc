package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/im-Prabhasha/VolumeTracker/internal/domain"
	"github.com/im-Prabhasha/VolumeTracker/internal/render"
	"github.com/im-Prabhasha/VolumeTracker/internal/scheduler"
)

// Handlers implements the dashboard JSON API over the refresher's
// published snapshot.
type Handlers struct {
	refresher *scheduler.Refresher
}

// NewHandlers creates the handler set.
func NewHandlers(refresher *scheduler.Refresher) *Handlers {
	return &Handlers{refresher: refresher}
}

// snapshotMeta is the metadata block shared by every response.
type snapshotMeta struct {
	BatchID     string    `json:"batch_id,omitempty"`
	FetchedAt   time.Time `json:"fetched_at,omitempty"`
	Stale       bool      `json:"stale"`
	LastError   string    `json:"last_error,omitempty"`
	LastAttempt time.Time `json:"last_attempt,omitempty"`
}

func meta(snap scheduler.Snapshot) snapshotMeta {
	m := snapshotMeta{
		Stale:       snap.Stale,
		LastError:   snap.LastError,
		LastAttempt: snap.LastAttempt,
	}
	if snap.HasBatch {
		m.BatchID = snap.Batch.ID
		m.FetchedAt = snap.Batch.FetchedAt
	}
	return m
}

// assetView pairs the raw record with its display strings.
type assetView struct {
	domain.AssetRecord
	Display render.FormattedAsset `json:"display"`
}

type assetsResponse struct {
	snapshotMeta
	Count  int         `json:"count"`
	Assets []assetView `json:"assets"`
}

// Assets serves the filtered, sorted listing.
//
// Query parameters: min_ratio, min_volume, min_dominance (floats,
// default 0), sort (ratio|volume|dominance|market_cap, default ratio),
// dir (asc|desc, default desc), limit (int), and high_volume=true as
// shorthand for min_ratio=1.
func (h *Handlers) Assets(w http.ResponseWriter, r *http.Request) {
	criteria, spec, limit, err := parseQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	snap := h.refresher.Snapshot()
	if !snap.HasBatch {
		writeError(w, http.StatusServiceUnavailable, noBatchMessage(snap))
		return
	}

	records := domain.Apply(snap.Batch.Records, criteria, spec)
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}

	views := make([]assetView, len(records))
	for i, rec := range records {
		views[i] = assetView{AssetRecord: rec, Display: render.Format(rec)}
	}

	writeJSON(w, http.StatusOK, assetsResponse{
		snapshotMeta: meta(snap),
		Count:        len(views),
		Assets:       views,
	})
}

type summaryResponse struct {
	snapshotMeta
	Summary domain.BatchSummary `json:"summary"`
}

// Summary serves the market-overview stats for the displayed batch.
func (h *Handlers) Summary(w http.ResponseWriter, r *http.Request) {
	snap := h.refresher.Snapshot()
	if !snap.HasBatch {
		writeError(w, http.StatusServiceUnavailable, noBatchMessage(snap))
		return
	}

	writeJSON(w, http.StatusOK, summaryResponse{
		snapshotMeta: meta(snap),
		Summary:      snap.Summary,
	})
}

// Refresh triggers a manual refresh. Returns 202 when one is already in
// flight and 502 when the upstream fetch fails.
func (h *Handlers) Refresh(w http.ResponseWriter, r *http.Request) {
	snap, err := h.refresher.Refresh(r.Context())
	switch {
	case errors.Is(err, scheduler.ErrRefreshInFlight):
		writeJSON(w, http.StatusAccepted, map[string]any{
			"status": "in_flight",
		})
	case err != nil:
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"status": "failed",
			"error":  err.Error(),
			"meta":   meta(snap),
		})
	default:
		writeJSON(w, http.StatusOK, map[string]any{
			"status": "refreshed",
			"meta":   meta(snap),
		})
	}
}

// Health reports process liveness and the age of the displayed batch.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	snap := h.refresher.Snapshot()

	resp := map[string]any{
		"status":    "ok",
		"has_batch": snap.HasBatch,
	}
	if snap.HasBatch {
		resp["records"] = len(snap.Batch.Records)
		resp["batch_age_seconds"] = int(time.Since(snap.Batch.FetchedAt).Seconds())
	}
	if snap.LastError != "" {
		resp["last_error"] = snap.LastError
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, http.StatusOK, resp)
}

// NotFound serves a JSON 404.
func (h *Handlers) NotFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeError(w, http.StatusNotFound, fmt.Sprintf("no route for %s %s", r.Method, r.URL.Path))
}

func parseQuery(r *http.Request) (domain.FilterCriteria, domain.SortSpec, int, error) {
	q := r.URL.Query()

	var criteria domain.FilterCriteria
	var err error
	if criteria.MinRatio, err = floatParam(q.Get("min_ratio")); err != nil {
		return criteria, domain.SortSpec{}, 0, fmt.Errorf("invalid min_ratio: %w", err)
	}
	if criteria.MinVolume, err = floatParam(q.Get("min_volume")); err != nil {
		return criteria, domain.SortSpec{}, 0, fmt.Errorf("invalid min_volume: %w", err)
	}
	if criteria.MinDominance, err = floatParam(q.Get("min_dominance")); err != nil {
		return criteria, domain.SortSpec{}, 0, fmt.Errorf("invalid min_dominance: %w", err)
	}

	// Quick filter from the original dashboard: volume > market cap.
	if q.Get("high_volume") == "true" && criteria.MinRatio < 1 {
		criteria.MinRatio = 1
	}

	spec := domain.SortSpec{Key: domain.SortByRatio, Descending: true}
	if s := q.Get("sort"); s != "" {
		if spec.Key, err = domain.ParseSortKey(s); err != nil {
			return criteria, spec, 0, err
		}
	}
	switch dir := q.Get("dir"); dir {
	case "", "desc":
		spec.Descending = true
	case "asc":
		spec.Descending = false
	default:
		return criteria, spec, 0, fmt.Errorf("invalid dir %q (want asc or desc)", dir)
	}

	limit := 0
	if l := q.Get("limit"); l != "" {
		if limit, err = strconv.Atoi(l); err != nil || limit < 0 {
			return criteria, spec, 0, fmt.Errorf("invalid limit %q", l)
		}
	}

	return criteria, spec, limit, nil
}

func floatParam(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, fmt.Errorf("must be non-negative")
	}
	return v, nil
}

func noBatchMessage(snap scheduler.Snapshot) string {
	if snap.LastError != "" {
		return "no batch available: " + snap.LastError
	}
	return "no batch available yet"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
