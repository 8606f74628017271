package radar

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"insider-radar/internal/types"
)

func sampleReport() *types.ScanReport {
	signals := []types.AggregatedSignal{
		{Symbol: "ABC", NormalizedValue: 8, Filings: 1},
		{Symbol: "XYZ", NormalizedValue: 5, Filings: 2},
		{Symbol: "LMN", NormalizedValue: 2, Filings: 1},
	}
	abc := candidate("ABC", 25, 15, 80)
	abc.AggregatedSignal = signals[0]
	abc.Rank = 1
	abc.Price = 410
	xyz := types.EnrichedCandidate{AggregatedSignal: signals[1], Rank: 2, LookupError: "timeout"}
	candidates := []types.EnrichedCandidate{abc, xyz}

	return &types.ScanReport{
		ID:         "scan-1",
		Source:     "insider.csv",
		Timestamp:  time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
		TotalRows:  12,
		BuyRows:    4,
		Signals:    signals,
		TopN:       2,
		Candidates: candidates,
		Partition:  Partition(candidates, types.DefaultThresholds()),
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize(sampleReport())

	assert.Equal(t, 3, s.Companies)
	assert.Equal(t, 15.0, s.TotalValueCr)
	assert.Equal(t, 5.0, s.MeanValueCr)
	assert.Equal(t, 5.0, s.MedianValueCr)
	assert.Equal(t, 2, s.Screened)
	assert.Equal(t, 1, s.Degraded)
	assert.Equal(t, 1, s.Accepted)
	assert.Equal(t, 1, s.Rejected)
	assert.Equal(t, 25.0, s.MeanAcceptedPE)
	assert.Equal(t, 15.0, s.MeanAcceptedROE)
}

func TestSummarize_MedianOfEvenCount(t *testing.T) {
	report := &types.ScanReport{Signals: []types.AggregatedSignal{
		{Symbol: "A", NormalizedValue: 4},
		{Symbol: "B", NormalizedValue: 2},
	}}
	assert.Equal(t, 3.0, Summarize(report).MedianValueCr)

	report.Signals = append(report.Signals,
		types.AggregatedSignal{Symbol: "C", NormalizedValue: 10},
		types.AggregatedSignal{Symbol: "D", NormalizedValue: 1})
	assert.Equal(t, 3.0, Summarize(report).MedianValueCr)

	report.Signals = report.Signals[:1]
	assert.Equal(t, 4.0, Summarize(report).MedianValueCr)
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(&types.ScanReport{})
	assert.Equal(t, Summary{}, s)
}

func TestGenerateReport_Text(t *testing.T) {
	out, err := NewReporter(t.TempDir()).GenerateReport(sampleReport(), FormatText)
	require.NoError(t, err)

	assert.Contains(t, out, "INSIDER RADAR REPORT")
	assert.Contains(t, out, "STEP 1: PROMOTER BUYING (3 companies)")
	assert.Contains(t, out, "ACCEPTED: 1")
	assert.Contains(t, out, "REJECTED: 1")
	assert.Contains(t, out, "2. XYZ ⚠ data unavailable")
	assert.Contains(t, out, "P/E unavailable")
	assert.Contains(t, out, "DISCLAIMER")
	assert.True(t, strings.HasSuffix(out, "END OF REPORT\n"))
}

func TestGenerateReport_TextNoSignals(t *testing.T) {
	report := &types.ScanReport{Timestamp: time.Now(), Source: "empty.csv"}
	out, err := NewReporter("").GenerateReport(report, FormatText)
	require.NoError(t, err)

	assert.Contains(t, out, "0 companies found")
	assert.NotContains(t, out, "STEP 2")
	assert.Contains(t, out, "DISCLAIMER")
}

func TestGenerateReport_TextNoneAccepted(t *testing.T) {
	report := sampleReport()
	report.Partition = Partition(report.Candidates, types.Thresholds{PECeiling: 60, ROEFloor: 10, DebtCeiling: 0.5})
	out, err := NewReporter("").GenerateReport(report, FormatText)
	require.NoError(t, err)

	assert.Contains(t, out, "No candidate passed the quality gate.")
	assert.Contains(t, out, "D/E 80.00 ≥ 50 (0.5x)")
}

func TestGenerateReport_JSON(t *testing.T) {
	out, err := NewReporter("").GenerateReport(sampleReport(), FormatJSON)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "scan-1", doc["id"])
	assert.Contains(t, doc, "partition")
	summary, ok := doc["summary"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 1.0, summary["accepted"])
}

func TestGenerateReport_CSV(t *testing.T) {
	out, err := NewReporter("").GenerateReport(sampleReport(), FormatCSV)
	require.NoError(t, err)

	rows, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "verdict", rows[0][9])
	assert.Equal(t, []string{"1", "ABC"}, rows[1][:2])
	assert.Equal(t, "ACCEPTED", rows[1][9])
	assert.Equal(t, "XYZ", rows[2][1])
	assert.Equal(t, "REJECTED", rows[2][9])
	assert.Contains(t, rows[2][10], "P/E unavailable; ROE 0.00% ≤ 10%")
}

func TestGenerateReport_CSVSignalsOnly(t *testing.T) {
	report := sampleReport()
	report.Candidates = nil
	report.Partition = types.Partition{}

	out, err := NewReporter("").GenerateReport(report, FormatCSV)
	require.NoError(t, err)
	rows, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"rank", "symbol", "value_cr", "filings"}, rows[0])
	assert.Equal(t, []string{"2", "XYZ", "5.00", "2"}, rows[2])
}

func TestGenerateReport_UnsupportedFormat(t *testing.T) {
	_, err := NewReporter("").GenerateReport(sampleReport(), "xml")
	assert.Error(t, err)
}

func TestSaveReport(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	path, err := NewReporter(dir).SaveReport(sampleReport(), FormatJSON)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "insider_radar_2026-03-14_09-30-00.json"), path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"scan-1"`)
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]ReportFormat{"": FormatText, "TEXT": FormatText, " json ": FormatJSON, "csv": FormatCSV} {
		got, err := ParseFormat(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("pdf")
	assert.Error(t, err)
}
