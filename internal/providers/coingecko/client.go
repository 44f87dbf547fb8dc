package coingecko

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/im-Prabhasha/VolumeTracker/internal/domain"
	"github.com/im-Prabhasha/VolumeTracker/internal/telemetry"
)

// Config holds upstream adapter settings.
type Config struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
	PerPage int           `yaml:"per_page"`
	Page    int           `yaml:"page"`
	APIKey  string        `yaml:"-"` // from COINGECKO_API_KEY, never from file
	RPS     float64       `yaml:"rps"`
	Burst   int           `yaml:"burst"`
}

// DefaultConfig returns settings for the CoinGecko public tier.
func DefaultConfig() Config {
	return Config{
		BaseURL: "https://api.coingecko.com/api/v3",
		Timeout: 10 * time.Second,
		PerPage: 250,
		Page:    1,
		RPS:     10,
		Burst:   20,
	}
}

// Client fetches the /coins/markets listing. It performs exactly one
// round trip per call with a bounded timeout; retry policy belongs to the
// refresh scheduler, not here. Calls are gated by a client-side token
// bucket and a circuit breaker.
type Client struct {
	cfg        Config
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
	metrics    *telemetry.Metrics
}

// NewClient creates a CoinGecko client.
func NewClient(cfg Config, metrics *telemetry.Metrics) *Client {
	def := DefaultConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.PerPage <= 0 {
		cfg.PerPage = def.PerPage
	}
	if cfg.Page <= 0 {
		cfg.Page = def.Page
	}
	if cfg.RPS <= 0 {
		cfg.RPS = def.RPS
	}
	if cfg.Burst <= 0 {
		cfg.Burst = def.Burst
	}

	settings := gobreaker.Settings{Name: "coingecko"}
	settings.Interval = 60 * time.Second
	settings.Timeout = 60 * time.Second
	settings.ReadyToTrip = func(counts gobreaker.Counts) bool {
		if counts.ConsecutiveFailures >= 3 {
			return true
		}
		if counts.Requests < 20 {
			return false
		}
		return float64(counts.TotalFailures)/float64(counts.Requests) > 0.05
	}

	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst),
		breaker:    gobreaker.NewCircuitBreaker(settings),
		metrics:    metrics,
	}
}

// marketRow mirrors one /coins/markets element. Pointer fields
// distinguish missing or null required fields from zero values.
type marketRow struct {
	ID             *string  `json:"id"`
	Name           *string  `json:"name"`
	Symbol         *string  `json:"symbol"`
	CurrentPrice   *float64 `json:"current_price"`
	MarketCap      *float64 `json:"market_cap"`
	TotalVolume    *float64 `json:"total_volume"`
	PriceChange24h *float64 `json:"price_change_percentage_24h"`
}

// FetchMarkets performs one GET against /coins/markets and returns the
// parsed batch. Records missing a required field are skipped with a
// warning; if every record is skipped the fetch fails as a whole.
func (c *Client) FetchMarkets(ctx context.Context) (domain.FetchBatch, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return domain.FetchBatch{}, c.fail(KindNetwork, 0, fmt.Errorf("rate limiter: %w", err))
	}

	body, err := c.breaker.Execute(func() (any, error) {
		return c.roundTrip(ctx)
	})
	if err != nil {
		var fe *FetchError
		if errors.As(err, &fe) {
			c.metrics.UpstreamErrors.WithLabelValues(string(fe.Kind)).Inc()
			return domain.FetchBatch{}, fe
		}
		// gobreaker short-circuits with ErrOpenState / ErrTooManyRequests.
		return domain.FetchBatch{}, c.fail(KindNetwork, 0, fmt.Errorf("circuit breaker: %w", err))
	}

	return c.parseBatch(body.([]byte))
}

// roundTrip issues the single HTTP request. Non-2xx and transport errors
// both count as breaker failures.
func (c *Client) roundTrip(ctx context.Context) ([]byte, error) {
	endpoint := fmt.Sprintf("%s/coins/markets", c.cfg.BaseURL)

	params := url.Values{}
	params.Set("vs_currency", "usd")
	params.Set("order", "market_cap_desc")
	params.Set("per_page", strconv.Itoa(c.cfg.PerPage))
	params.Set("page", strconv.Itoa(c.cfg.Page))
	params.Set("sparkline", "false")
	params.Set("price_change_percentage", "24h")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, &FetchError{Kind: KindNetwork, Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "voltracker market analysis")
	if c.cfg.APIKey != "" {
		req.Header.Set("x-cg-demo-api-key", c.cfg.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{Kind: KindNetwork, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{Kind: KindNetwork, Err: fmt.Errorf("read body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{
			Kind:       KindStatus,
			HTTPStatus: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status %s", resp.Status),
		}
	}

	return raw, nil
}

// parseBatch decodes the JSON array leniently: a record missing any
// required field is dropped, not the whole payload.
func (c *Client) parseBatch(raw []byte) (domain.FetchBatch, error) {
	var elements []json.RawMessage
	if err := json.Unmarshal(raw, &elements); err != nil {
		return domain.FetchBatch{}, c.fail(KindParse, 0, fmt.Errorf("payload is not a JSON array: %w", err))
	}

	records := make([]domain.AssetRecord, 0, len(elements))
	skipped := 0
	for i, element := range elements {
		record, err := parseRecord(element)
		if err != nil {
			skipped++
			c.metrics.RecordsSkipped.Inc()
			log.Warn().Int("index", i).Err(err).Msg("Skipping unparsable market record")
			continue
		}
		records = append(records, record)
	}

	if len(elements) > 0 && len(records) == 0 {
		return domain.FetchBatch{}, c.fail(KindParse, 0,
			fmt.Errorf("all %d records failed to parse", len(elements)))
	}

	batch := domain.FetchBatch{
		ID:        uuid.NewString(),
		FetchedAt: time.Now().UTC(),
		Records:   records,
	}

	log.Debug().
		Str("batch", batch.ID).
		Int("records", len(records)).
		Int("skipped", skipped).
		Msg("Market batch fetched")

	return batch, nil
}

func parseRecord(element json.RawMessage) (domain.AssetRecord, error) {
	var row marketRow
	if err := json.Unmarshal(element, &row); err != nil {
		return domain.AssetRecord{}, fmt.Errorf("decode record: %w", err)
	}

	switch {
	case row.ID == nil || *row.ID == "":
		return domain.AssetRecord{}, fmt.Errorf("missing required field id")
	case row.Name == nil:
		return domain.AssetRecord{}, fmt.Errorf("record %s: missing required field name", *row.ID)
	case row.Symbol == nil:
		return domain.AssetRecord{}, fmt.Errorf("record %s: missing required field symbol", *row.ID)
	case row.CurrentPrice == nil:
		return domain.AssetRecord{}, fmt.Errorf("record %s: missing required field current_price", *row.ID)
	case row.MarketCap == nil:
		return domain.AssetRecord{}, fmt.Errorf("record %s: missing required field market_cap", *row.ID)
	case row.TotalVolume == nil:
		return domain.AssetRecord{}, fmt.Errorf("record %s: missing required field total_volume", *row.ID)
	case *row.CurrentPrice < 0 || *row.MarketCap < 0 || *row.TotalVolume < 0:
		return domain.AssetRecord{}, fmt.Errorf("record %s: negative market values", *row.ID)
	}

	record := domain.AssetRecord{
		ID:        *row.ID,
		Name:      *row.Name,
		Symbol:    *row.Symbol,
		Price:     *row.CurrentPrice,
		MarketCap: *row.MarketCap,
		Volume24h: *row.TotalVolume,
	}
	if row.PriceChange24h != nil {
		record.PriceChange24h = *row.PriceChange24h
	}
	return record, nil
}

func (c *Client) fail(kind ErrorKind, status int, err error) error {
	c.metrics.UpstreamErrors.WithLabelValues(string(kind)).Inc()
	return &FetchError{Kind: kind, HTTPStatus: status, Err: err}
}
