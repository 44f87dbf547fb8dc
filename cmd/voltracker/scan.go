package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/im-Prabhasha/VolumeTracker/internal/config"
	"github.com/im-Prabhasha/VolumeTracker/internal/domain"
	"github.com/im-Prabhasha/VolumeTracker/internal/providers/coingecko"
	"github.com/im-Prabhasha/VolumeTracker/internal/render"
	"github.com/im-Prabhasha/VolumeTracker/internal/telemetry"
)

const fallbackTableWidth = 120

func newScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "One-shot market scan printed as a table",
		Long:  "Fetches the market listing once, derives the volume/mcap metrics, applies the filters, and prints the result to stdout.",
		RunE:  runScan,
	}

	cmd.Flags().String("config", "", "Path to YAML config file")
	cmd.Flags().Float64("min-ratio", 0, "Minimum volume/mcap ratio (1 means volume equals market cap)")
	cmd.Flags().Float64("min-volume", 0, "Minimum 24h volume in USD")
	cmd.Flags().Float64("min-dominance", 0, "Minimum market dominance as a fraction")
	cmd.Flags().Bool("high-volume", false, "Only assets with volume greater than market cap")
	cmd.Flags().String("sort", "ratio", "Sort column (ratio|volume|dominance|market_cap)")
	cmd.Flags().Bool("asc", false, "Sort ascending instead of descending")
	cmd.Flags().Int("limit", 0, "Show at most this many rows (0 = all)")
	return cmd
}

func runScan(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	setLogLevel(cfg.Log.Level)

	criteria := domain.FilterCriteria{}
	criteria.MinRatio, _ = cmd.Flags().GetFloat64("min-ratio")
	criteria.MinVolume, _ = cmd.Flags().GetFloat64("min-volume")
	criteria.MinDominance, _ = cmd.Flags().GetFloat64("min-dominance")
	if highVolume, _ := cmd.Flags().GetBool("high-volume"); highVolume && criteria.MinRatio < 1 {
		criteria.MinRatio = 1
	}

	sortFlag, _ := cmd.Flags().GetString("sort")
	key, err := domain.ParseSortKey(sortFlag)
	if err != nil {
		return err
	}
	asc, _ := cmd.Flags().GetBool("asc")
	spec := domain.SortSpec{Key: key, Descending: !asc}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client := coingecko.NewClient(cfg.Provider(), telemetry.NewMetrics())
	batch, err := client.FetchMarkets(ctx)
	if err != nil {
		return err
	}

	enriched := domain.Enrich(batch)
	records := domain.Apply(enriched.Records, criteria, spec)
	if limit, _ := cmd.Flags().GetInt("limit"); limit > 0 && len(records) > limit {
		records = records[:limit]
	}

	render.Summary(os.Stdout, domain.Summarize(enriched))
	fmt.Fprintf(os.Stdout, "Showing %d of %d assets (fetched %s)\n\n",
		len(records), len(enriched.Records), enriched.FetchedAt.Format(time.RFC3339))
	render.Table(os.Stdout, records, tableWidth())
	return nil
}

func tableWidth() int {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return fallbackTableWidth
	}
	width, _, err := term.GetSize(fd)
	if err != nil || width <= 0 {
		return fallbackTableWidth
	}
	return width
}
