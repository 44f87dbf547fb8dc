package domain

import "sort"

// Enrich returns a copy of the batch with volume/mcap ratio and market
// dominance populated on every record. The input batch is not mutated, so
// both metrics are always computed against the same batch-wide total.
//
// Records with a zero market cap keep a nil ratio rather than dividing by
// zero; their dominance is zero by construction. When the whole batch sums
// to zero market cap, dominance is zero everywhere.
func Enrich(batch FetchBatch) FetchBatch {
	out := batch
	out.Records = make([]AssetRecord, len(batch.Records))
	copy(out.Records, batch.Records)

	var totalMarketCap float64
	for _, r := range out.Records {
		totalMarketCap += r.MarketCap
	}

	for i := range out.Records {
		r := &out.Records[i]
		if r.MarketCap > 0 {
			ratio := r.Volume24h / r.MarketCap
			r.Ratio = &ratio
		} else {
			r.Ratio = nil
		}
		if totalMarketCap > 0 {
			r.Dominance = r.MarketCap / totalMarketCap
		} else {
			r.Dominance = 0
		}
	}

	return out
}

// Summarize computes the market-overview stats for an enriched batch.
// Records with an undefined ratio are excluded from the median.
func Summarize(batch FetchBatch) BatchSummary {
	summary := BatchSummary{TotalAssets: len(batch.Records)}

	ratios := make([]float64, 0, len(batch.Records))
	for _, r := range batch.Records {
		summary.TotalMarketCap += r.MarketCap
		if !r.HasRatio() {
			continue
		}
		ratios = append(ratios, *r.Ratio)
		if *r.Ratio > 1 {
			summary.HighVolumeCount++
		}
	}

	summary.MedianRatio = median(ratios)
	return summary
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
