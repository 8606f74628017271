package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"insider-radar/internal/types"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	for _, path := range []string{"", filepath.Join(t.TempDir(), "absent.yaml")} {
		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, Default(), cfg)
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, ".NS", cfg.MarketSuffix)
	assert.Equal(t, types.DefaultThresholds(), cfg.Thresholds)
	assert.Equal(t, 15, cfg.Scan.TopN)
	assert.Equal(t, 4, cfg.Scan.Concurrency)
	assert.Equal(t, SourceLive, cfg.Fundamentals.Source)
	assert.Equal(t, []string{ProviderYahoo}, cfg.Fundamentals.Sources)
	assert.Equal(t, "3M", cfg.NSE.Period)
	assert.NoError(t, cfg.Validate())
	assert.Empty(t, cfg.Warnings())
}

func TestLoadConfig_PartialThresholdsKeepDefaults(t *testing.T) {
	path := writeConfig(t, `
thresholds:
  roe_floor: 0
scan:
  top_n: 25
fundamentals:
  source: mock
  sources: [yahoo, screener]
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 60.0, cfg.Thresholds.PECeiling)
	assert.Equal(t, 0.0, cfg.Thresholds.ROEFloor, "explicit zero kept")
	assert.Equal(t, 2.0, cfg.Thresholds.DebtCeiling)
	assert.Equal(t, 25, cfg.Scan.TopN)
	assert.Equal(t, SourceMock, cfg.Fundamentals.Source)
	assert.Equal(t, []string{ProviderYahoo, ProviderScreener}, cfg.Fundamentals.Sources)
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "scan: [unclosed"))
	assert.Error(t, err)
}

func TestLoadConfig_RejectsUnknownSource(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "fundamentals:\n  source: csv\n"))
	assert.Error(t, err)

	_, err = LoadConfig(writeConfig(t, "fundamentals:\n  sources: [bloomberg]\n"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Scan.Concurrency = 0
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Report.Format = "pdf"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Fundamentals.RateLimitRPS = -1
	assert.Error(t, cfg.Validate())
}

func TestWarnings_OutOfRangeThresholdsOnlyWarn(t *testing.T) {
	cfg := Default()
	cfg.Thresholds = types.Thresholds{PECeiling: 500, ROEFloor: -5, DebtCeiling: 9}

	assert.NoError(t, cfg.Validate())
	require.Len(t, cfg.Warnings(), 1)
	assert.Contains(t, cfg.Warnings()[0], "thresholds outside recognized ranges")
}
