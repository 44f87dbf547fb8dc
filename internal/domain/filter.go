package domain

import (
	"fmt"
	"math"
	"sort"
)

// FilterCriteria is a conjunctive predicate over derived metrics. Zero
// values are permissive. A positive MinRatio excludes records whose ratio
// is undefined.
type FilterCriteria struct {
	MinRatio     float64 `json:"min_ratio"`
	MinVolume    float64 `json:"min_volume"`
	MinDominance float64 `json:"min_dominance"`
}

// Match reports whether a record satisfies every active criterion.
func (c FilterCriteria) Match(r AssetRecord) bool {
	if c.MinRatio > 0 {
		if !r.HasRatio() || *r.Ratio < c.MinRatio {
			return false
		}
	}
	if r.Volume24h < c.MinVolume {
		return false
	}
	if r.Dominance < c.MinDominance {
		return false
	}
	return true
}

// SortKey selects the numeric column an asset listing is ordered by.
type SortKey string

const (
	SortByRatio     SortKey = "ratio"
	SortByVolume    SortKey = "volume"
	SortByDominance SortKey = "dominance"
	SortByMarketCap SortKey = "market_cap"
)

// ParseSortKey validates a user-supplied sort column name.
func ParseSortKey(s string) (SortKey, error) {
	switch SortKey(s) {
	case SortByRatio, SortByVolume, SortByDominance, SortByMarketCap:
		return SortKey(s), nil
	}
	return "", fmt.Errorf("unknown sort key %q (want ratio, volume, dominance, or market_cap)", s)
}

// SortSpec pairs a sort key with a direction.
type SortSpec struct {
	Key        SortKey `json:"key"`
	Descending bool    `json:"descending"`
}

// Apply filters the records through the criteria and returns them ordered
// by the sort spec. The result is a new slice; the input is untouched.
//
// Ordering is a stable total order: ties on the sort key break by ID
// ascending regardless of direction, so repeated renders of identical
// input produce identical output. An undefined ratio compares as -Inf,
// which puts such records last under the default descending ratio order.
func Apply(records []AssetRecord, criteria FilterCriteria, spec SortSpec) []AssetRecord {
	out := make([]AssetRecord, 0, len(records))
	for _, r := range records {
		if criteria.Match(r) {
			out = append(out, r)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		vi := sortValue(out[i], spec.Key)
		vj := sortValue(out[j], spec.Key)
		if vi != vj {
			if spec.Descending {
				return vi > vj
			}
			return vi < vj
		}
		return out[i].ID < out[j].ID
	})

	return out
}

func sortValue(r AssetRecord, key SortKey) float64 {
	switch key {
	case SortByVolume:
		return r.Volume24h
	case SortByDominance:
		return r.Dominance
	case SortByMarketCap:
		return r.MarketCap
	default: // SortByRatio
		if !r.HasRatio() {
			return math.Inf(-1)
		}
		return *r.Ratio
	}
}
