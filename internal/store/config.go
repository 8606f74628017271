package store

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"insider-radar/internal/types"
)

const (
	SourceMock = "MOCK"
	SourceLive = "LIVE"

	ProviderYahoo    = "YAHOO"
	ProviderScreener = "SCREENER"
)

type Config struct {
	// MarketSuffix is appended to NSE symbols before a Yahoo lookup
	MarketSuffix string           `yaml:"market_suffix"`
	Thresholds   types.Thresholds `yaml:"thresholds"`
	Scan         struct {
		TopN        int `yaml:"top_n"`
		Concurrency int `yaml:"concurrency"`
	} `yaml:"scan"`
	Fundamentals struct {
		Source               string   `yaml:"source"`  // MOCK or LIVE
		Sources              []string `yaml:"sources"` // fallback order for LIVE
		RateLimitRPS         float64  `yaml:"rate_limit_rps"`
		Burst                int      `yaml:"burst"`
		LookupTimeoutSeconds int      `yaml:"lookup_timeout_seconds"`
		CacheTTLMinutes      int      `yaml:"cache_ttl_minutes"`
		Breaker              struct {
			MaxFailures     uint32 `yaml:"max_failures"`
			OpenSeconds     int    `yaml:"open_seconds"`
			IntervalSeconds int    `yaml:"interval_seconds"`
		} `yaml:"breaker"`
		Kite struct {
			Enabled  bool   `yaml:"enabled"`
			Exchange string `yaml:"exchange"`
		} `yaml:"kite"`
		Screener struct {
			BaseURL string `yaml:"base_url"`
		} `yaml:"screener"`
	} `yaml:"fundamentals"`
	NSE struct {
		BaseURL     string `yaml:"base_url"`
		InsiderPath string `yaml:"insider_path"`
		Period      string `yaml:"period"`
		TimeoutSec  int    `yaml:"timeout_seconds"`
	} `yaml:"nse"`
	Server struct {
		Addr              string `yaml:"addr"`
		SessionTTLMinutes int    `yaml:"session_ttl_minutes"`
		MaxUploadMB       int    `yaml:"max_upload_mb"`
	} `yaml:"server"`
	Report struct {
		Format    string `yaml:"format"` // text, json or csv
		OutputDir string `yaml:"output_dir"`
		Save      bool   `yaml:"save"`
	} `yaml:"report"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	c := &Config{Thresholds: types.DefaultThresholds()}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.MarketSuffix == "" {
		c.MarketSuffix = ".NS"
	}
	if c.Scan.TopN == 0 {
		c.Scan.TopN = 15
	}
	if c.Scan.Concurrency == 0 {
		c.Scan.Concurrency = 4
	}

	f := &c.Fundamentals
	if f.Source == "" {
		f.Source = SourceLive
	}
	if len(f.Sources) == 0 {
		f.Sources = []string{ProviderYahoo}
	}
	if f.RateLimitRPS == 0 {
		f.RateLimitRPS = 2
	}
	if f.Burst == 0 {
		f.Burst = 1
	}
	if f.LookupTimeoutSeconds == 0 {
		f.LookupTimeoutSeconds = 15
	}
	if f.CacheTTLMinutes == 0 {
		f.CacheTTLMinutes = 30
	}
	if f.Breaker.MaxFailures == 0 {
		f.Breaker.MaxFailures = 5
	}
	if f.Breaker.OpenSeconds == 0 {
		f.Breaker.OpenSeconds = 60
	}
	if f.Breaker.IntervalSeconds == 0 {
		f.Breaker.IntervalSeconds = 120
	}
	if f.Kite.Exchange == "" {
		f.Kite.Exchange = "NSE"
	}
	if f.Screener.BaseURL == "" {
		f.Screener.BaseURL = "https://www.screener.in"
	}

	if c.NSE.BaseURL == "" {
		c.NSE.BaseURL = "https://www.nseindia.com"
	}
	if c.NSE.InsiderPath == "" {
		c.NSE.InsiderPath = "/api/corporates-pit"
	}
	if c.NSE.Period == "" {
		c.NSE.Period = "3M"
	}
	if c.NSE.TimeoutSec == 0 {
		c.NSE.TimeoutSec = 30
	}

	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.SessionTTLMinutes == 0 {
		c.Server.SessionTTLMinutes = 60
	}
	if c.Server.MaxUploadMB == 0 {
		c.Server.MaxUploadMB = 32
	}

	if c.Report.Format == "" {
		c.Report.Format = "text"
	}
	if c.Report.OutputDir == "" {
		c.Report.OutputDir = "reports"
	}
}

func (c *Config) Validate() error {
	if c.Scan.TopN < 1 {
		return fmt.Errorf("scan.top_n must be at least 1, got %d", c.Scan.TopN)
	}
	if c.Scan.Concurrency < 1 {
		return fmt.Errorf("scan.concurrency must be at least 1, got %d", c.Scan.Concurrency)
	}

	f := c.Fundamentals
	if f.Source != SourceMock && f.Source != SourceLive {
		return fmt.Errorf("invalid fundamentals.source '%s': must be 'MOCK' or 'LIVE'", f.Source)
	}
	for _, s := range f.Sources {
		if s != ProviderYahoo && s != ProviderScreener {
			return fmt.Errorf("invalid fundamentals.sources entry '%s': must be 'YAHOO' or 'SCREENER'", s)
		}
	}
	if f.RateLimitRPS < 0 {
		return fmt.Errorf("fundamentals.rate_limit_rps cannot be negative, got %.2f", f.RateLimitRPS)
	}
	if f.LookupTimeoutSeconds < 0 {
		return errors.New("fundamentals.lookup_timeout_seconds cannot be negative")
	}

	switch strings.ToLower(c.Report.Format) {
	case "text", "json", "csv":
	default:
		return fmt.Errorf("report.format must be 'text', 'json' or 'csv', got '%s'", c.Report.Format)
	}
	return nil
}

// Warnings lists settings that are accepted but likely unintended
func (c *Config) Warnings() []string {
	var w []string
	if !c.Thresholds.InRange() {
		w = append(w, fmt.Sprintf(
			"thresholds outside recognized ranges (P/E %.2f in [10,100], ROE %.2f in [0,30], D/E %.2f in [0,5]); partition may be degenerate",
			c.Thresholds.PECeiling, c.Thresholds.ROEFloor, c.Thresholds.DebtCeiling))
	}
	if c.Scan.TopN < 5 || c.Scan.TopN > 50 {
		w = append(w, fmt.Sprintf("scan.top_n %d is outside the usual 5-50 range", c.Scan.TopN))
	}
	return w
}

// LoadConfig reads a YAML config file. An empty path or a missing file
// yields the defaults.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}

	// thresholds keys are individually optional; explicit zeros are kept
	c := Config{Thresholds: types.DefaultThresholds()}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	c.applyDefaults()
	c.Fundamentals.Source = strings.ToUpper(c.Fundamentals.Source)
	for i, s := range c.Fundamentals.Sources {
		c.Fundamentals.Sources[i] = strings.ToUpper(strings.TrimSpace(s))
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &c, nil
}
