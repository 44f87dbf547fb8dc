package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/im-Prabhasha/VolumeTracker/internal/domain"
)

const minNameWidth = 12

// Table writes the asset listing as a fixed-width text table. width is
// the terminal width in columns; the NAME column absorbs the slack and
// long names are truncated when the terminal is narrow.
func Table(w io.Writer, records []domain.AssetRecord, width int) {
	// SYMBOL(8) PRICE(14) MCAP(18) VOLUME(18) RATIO(10) DOM(10) 24H(9)
	fixed := 8 + 14 + 18 + 18 + 10 + 10 + 9 + 7 // 7 column gaps
	nameWidth := width - fixed
	if nameWidth < minNameWidth {
		nameWidth = minNameWidth
	}

	fmt.Fprintf(w, "%-*s %-8s %14s %18s %18s %10s %10s %9s\n",
		nameWidth, "NAME", "SYMBOL", "PRICE", "MARKET CAP", "VOLUME (24H)", "VOL/MCAP", "DOMINANCE", "24H")
	fmt.Fprintln(w, strings.Repeat("-", nameWidth+fixed))

	for _, r := range records {
		f := Format(r)
		fmt.Fprintf(w, "%-*s %-8s %14s %18s %18s %10s %10s %9s\n",
			nameWidth, truncate(r.Name, nameWidth),
			strings.ToUpper(r.Symbol),
			f.Price, f.MarketCap, f.Volume24h, f.Ratio, f.Dominance, f.Change24h)
	}
}

// Summary writes the market-overview block above the table.
func Summary(w io.Writer, s domain.BatchSummary) {
	fmt.Fprintf(w, "Assets analyzed: %d\n", s.TotalAssets)
	fmt.Fprintf(w, "Volume > market cap: %d\n", s.HighVolumeCount)
	fmt.Fprintf(w, "Median vol/mcap ratio: %.2f%%\n", s.MedianRatio*100)
	fmt.Fprintf(w, "Total market cap: %s\n", USD(s.TotalMarketCap, 0))
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
