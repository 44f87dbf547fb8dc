package render

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/im-Prabhasha/VolumeTracker/internal/domain"
)

// Display precisions: price to cents, mcap/volume to whole dollars,
// ratio as percentage to 2 decimals, dominance to 4.

// USD formats a non-negative dollar amount with grouping separators.
func USD(v float64, decimals int) string {
	s := strconv.FormatFloat(v, 'f', decimals, 64)

	intPart := s
	fracPart := ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, fracPart = s[:i], s[i:]
	}

	var b strings.Builder
	b.WriteByte('$')
	lead := len(intPart) % 3
	if lead > 0 {
		b.WriteString(intPart[:lead])
		if len(intPart) > lead {
			b.WriteByte(',')
		}
	}
	for i := lead; i < len(intPart); i += 3 {
		b.WriteString(intPart[i : i+3])
		if i+3 < len(intPart) {
			b.WriteByte(',')
		}
	}
	b.WriteString(fracPart)
	return b.String()
}

// Ratio formats a volume/mcap ratio as a percentage to 2 decimals, or a
// dash when the ratio is undefined.
func Ratio(r *float64) string {
	if r == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.2f%%", *r*100)
}

// Dominance formats a market-dominance fraction as a percentage to 4
// decimals.
func Dominance(d float64) string {
	return fmt.Sprintf("%.4f%%", d*100)
}

// Change formats a signed 24h percentage change.
func Change(pct float64) string {
	return fmt.Sprintf("%+.2f%%", pct)
}

// FormattedAsset pairs each displayed column with its display string.
// The JSON API serves these alongside the raw values so the presentation
// layer never re-implements precision rules.
type FormattedAsset struct {
	Price     string `json:"price"`
	MarketCap string `json:"market_cap"`
	Volume24h string `json:"volume_24h"`
	Ratio     string `json:"ratio"`
	Dominance string `json:"dominance"`
	Change24h string `json:"change_24h"`
}

// Format produces the display strings for one record.
func Format(r domain.AssetRecord) FormattedAsset {
	return FormattedAsset{
		Price:     USD(r.Price, 2),
		MarketCap: USD(r.MarketCap, 0),
		Volume24h: USD(r.Volume24h, 0),
		Ratio:     Ratio(r.Ratio),
		Dominance: Dominance(r.Dominance),
		Change24h: Change(r.PriceChange24h),
	}
}
