package main

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const (
	appName = "voltracker"
	version = "v1.2.0"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	// .env is optional; it carries COINGECKO_API_KEY for the demo tier.
	if err := godotenv.Load(); err == nil {
		log.Debug().Msg("Loaded environment from .env")
	}

	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Crypto volume/market-cap ratio tracker",
		Version: version,
		Long: `voltracker tracks cryptocurrency volume-to-market-cap ratios.

It fetches the CoinGecko market listing on a timer, derives volume/mcap
ratio and market dominance per asset, and serves a filterable, sortable
view over HTTP/JSON. Use 'serve' for the dashboard backend or 'scan' for
a one-shot table in the terminal.`,
	}

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newScanCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setLogLevel(level string) {
	parsed, err := zerolog.ParseLevel(level)
	if err != nil {
		log.Warn().Str("level", level).Msg("Unknown log level, keeping info")
		parsed = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(parsed)
}
