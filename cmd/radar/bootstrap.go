package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"insider-radar/internal/disclosure"
	"insider-radar/internal/fundamentals"
	"insider-radar/internal/fundamentals/datasource"
	"insider-radar/internal/interfaces"
	"insider-radar/internal/logger"
	"insider-radar/internal/metrics"
	"insider-radar/internal/nse"
	"insider-radar/internal/radar"
	"insider-radar/internal/store"
)

// initializeSystem loads .env and sets up the logger
func initializeSystem() error {
	_ = godotenv.Load()

	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// loadConfig loads, validates and returns the configuration
func loadConfig(ctx context.Context, path string) (*store.Config, error) {
	cfg, err := store.LoadConfig(path)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to load config", err, "path", path)
		return nil, err
	}
	for _, w := range cfg.Warnings() {
		logger.Warn(ctx, w)
	}
	return cfg, nil
}

func kiteCredentials() fundamentals.KiteCredentials {
	return fundamentals.KiteCredentials{
		APIKey:      os.Getenv("KITE_API_KEY"),
		AccessToken: os.Getenv("KITE_ACCESS_TOKEN"),
	}
}

// buildScanner wires the quote provider, enricher and scanner. reg may be nil.
// The provider is returned for health reporting.
func buildScanner(cfg *store.Config, reg *metrics.Registry) (*radar.Scanner, interfaces.QuoteProvider, error) {
	var observer datasource.Observer
	if reg != nil {
		observer = reg
	}

	provider, err := fundamentals.CreateQuoteProvider(cfg, kiteCredentials(), observer)
	if err != nil {
		return nil, nil, err
	}

	enricher := fundamentals.NewEnricher(provider, cfg.MarketSuffix, cfg.Scan.Concurrency)
	scanner := radar.NewScanner(enricher)
	if reg != nil {
		scanner.WithRecorder(reg)
	}
	return scanner, provider, nil
}

// disclosureSource picks a local file or the NSE download
func disclosureSource(cfg *store.Config, file string, fromNSE bool) (interfaces.DisclosureSource, error) {
	switch {
	case fromNSE && file != "":
		return nil, errors.New("use either --file or --nse, not both")
	case fromNSE:
		return nse.NewClient(
			cfg.NSE.BaseURL,
			cfg.NSE.InsiderPath,
			cfg.NSE.Period,
			time.Duration(cfg.NSE.TimeoutSec)*time.Second,
		), nil
	case file != "":
		return disclosure.FileSource{Path: file}, nil
	default:
		return nil, errors.New("no input: pass --file <csv> or --nse")
	}
}
