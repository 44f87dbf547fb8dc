package domain

import (
	"time"
)

// AssetRecord is an immutable snapshot of one listed asset at fetch time.
// Ratio and Dominance are derived fields populated by Enrich; Ratio stays
// nil when the reported market cap is zero.
type AssetRecord struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Symbol         string  `json:"symbol"`
	Price          float64 `json:"current_price"`
	MarketCap      float64 `json:"market_cap"`
	Volume24h      float64 `json:"total_volume"`
	PriceChange24h float64 `json:"price_change_percentage_24h"`

	Ratio     *float64 `json:"volume_to_mcap_ratio,omitempty"`
	Dominance float64  `json:"market_dominance"`
}

// HasRatio reports whether the volume/mcap ratio is defined for the record.
func (r AssetRecord) HasRatio() bool {
	return r.Ratio != nil
}

// FetchBatch is an ordered sequence of records sharing one fetch timestamp.
// Batches are replaced wholesale on refresh, never merged.
type FetchBatch struct {
	ID        string        `json:"batch_id"`
	FetchedAt time.Time     `json:"fetched_at"`
	Records   []AssetRecord `json:"records"`
}

// BatchSummary holds the market-overview stats for one batch.
type BatchSummary struct {
	TotalAssets     int     `json:"total_assets"`
	HighVolumeCount int     `json:"high_volume_count"` // records with ratio > 1
	MedianRatio     float64 `json:"median_ratio"`
	TotalMarketCap  float64 `json:"total_market_cap"`
}
