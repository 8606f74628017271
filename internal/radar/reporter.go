package radar

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"insider-radar/internal/types"
)

// ReportFormat specifies the output format for scan reports
type ReportFormat string

const (
	FormatJSON ReportFormat = "json"
	FormatText ReportFormat = "text"
	FormatCSV  ReportFormat = "csv"
)

// signalPreview is how many aggregated companies the text report lists
const signalPreview = 10

const disclaimer = `DISCLAIMER: This tool is for educational and informational purposes only.
The author is not a SEBI registered Research Analyst or Investment Advisor.
The stocks listed above are not buy/sell recommendations. Market data may be
delayed or inaccurate. Consult a certified financial advisor before making
any investment decision.`

// Summary holds aggregate statistics over a scan report
type Summary struct {
	Companies       int     `json:"companies"`
	TotalValueCr    float64 `json:"total_value_cr"`
	MeanValueCr     float64 `json:"mean_value_cr"`
	MedianValueCr   float64 `json:"median_value_cr"`
	Screened        int     `json:"screened"`
	Degraded        int     `json:"degraded"`
	Accepted        int     `json:"accepted"`
	Rejected        int     `json:"rejected"`
	MeanAcceptedPE  float64 `json:"mean_accepted_pe"`
	MeanAcceptedROE float64 `json:"mean_accepted_roe_pct"`
}

// Summarize computes report statistics. Means over an empty set are zero.
func Summarize(report *types.ScanReport) Summary {
	s := Summary{
		Companies: len(report.Signals),
		Screened:  len(report.Candidates),
		Accepted:  len(report.Partition.Accepted),
		Rejected:  len(report.Partition.Rejected),
	}

	if len(report.Signals) > 0 {
		values := make([]float64, len(report.Signals))
		for i, sig := range report.Signals {
			values[i] = sig.NormalizedValue
		}
		s.TotalValueCr = round2(floats.Sum(values))
		s.MeanValueCr = round2(stat.Mean(values, nil))
		sort.Float64s(values)
		s.MedianValueCr = round2(median(values))
	}

	for _, c := range report.Candidates {
		if c.Degraded() {
			s.Degraded++
		}
	}

	if n := len(report.Partition.Accepted); n > 0 {
		pe := make([]float64, n)
		roe := make([]float64, n)
		for i, r := range report.Partition.Accepted {
			pe[i] = r.Candidate.PERatio
			roe[i] = r.Candidate.ROEPercent
		}
		s.MeanAcceptedPE = round2(stat.Mean(pe, nil))
		s.MeanAcceptedROE = round2(stat.Mean(roe, nil))
	}
	return s
}

// median of sorted values; the two middle values are averaged when n is even
func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// Reporter handles generation and storage of scan reports
type Reporter struct {
	outputDir string
}

// NewReporter creates a new reporter
func NewReporter(outputDir string) *Reporter {
	return &Reporter{
		outputDir: outputDir,
	}
}

// ParseFormat maps a user supplied name to a ReportFormat
func ParseFormat(name string) (ReportFormat, error) {
	switch f := ReportFormat(strings.ToLower(strings.TrimSpace(name))); f {
	case FormatJSON, FormatText, FormatCSV:
		return f, nil
	case "":
		return FormatText, nil
	default:
		return "", fmt.Errorf("unsupported format: %s", name)
	}
}

// GenerateReport renders a report in the specified format
func (r *Reporter) GenerateReport(report *types.ScanReport, format ReportFormat) (string, error) {
	switch format {
	case FormatJSON:
		return r.generateJSONReport(report)
	case FormatText:
		return r.generateTextReport(report), nil
	case FormatCSV:
		return r.generateCSVReport(report)
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

// SaveReport writes the report to the output directory and returns its path
func (r *Reporter) SaveReport(report *types.ScanReport, format ReportFormat) (string, error) {
	content, err := r.GenerateReport(report, format)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(r.outputDir, 0755); err != nil {
		return "", err
	}

	timestamp := report.Timestamp.Format("2006-01-02_15-04-05")
	name := fmt.Sprintf("insider_radar_%s.%s", timestamp, format)
	path := filepath.Join(r.outputDir, name)

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", err
	}
	return path, nil
}

func (r *Reporter) generateJSONReport(report *types.ScanReport) (string, error) {
	doc := struct {
		*types.ScanReport
		Summary Summary `json:"summary"`
	}{report, Summarize(report)}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (r *Reporter) generateTextReport(report *types.ScanReport) string {
	var sb strings.Builder
	rule := strings.Repeat("=", 80) + "\n"
	thin := strings.Repeat("-", 80) + "\n"

	sb.WriteString(rule)
	sb.WriteString("INSIDER RADAR REPORT\n")
	sb.WriteString(rule)
	sb.WriteString(fmt.Sprintf("Generated: %s\n", report.Timestamp.Format("2006-01-02 15:04:05")))
	sb.WriteString(fmt.Sprintf("Source: %s\n", report.Source))
	sb.WriteString(fmt.Sprintf("Rows: %d, promoter market buys: %d\n", report.TotalRows, report.BuyRows))
	sb.WriteString("\n")

	// Step 1
	sb.WriteString(fmt.Sprintf("STEP 1: PROMOTER BUYING (%d companies)\n", len(report.Signals)))
	sb.WriteString(thin)
	if report.NoSignals() {
		sb.WriteString("0 companies found with promoter market buying in this file.\n")
		sb.WriteString("\n" + disclaimer + "\n")
		sb.WriteString("\n" + rule)
		sb.WriteString("END OF REPORT\n")
		return sb.String()
	}

	sb.WriteString(fmt.Sprintf("%-4s %-16s %12s %8s\n", "#", "SYMBOL", "VALUE (CR)", "FILINGS"))
	for i, sig := range report.Signals {
		if i == signalPreview {
			sb.WriteString(fmt.Sprintf("... and %d more\n", len(report.Signals)-signalPreview))
			break
		}
		sb.WriteString(fmt.Sprintf("%-4d %-16s %12.2f %8d\n", i+1, sig.Symbol, sig.NormalizedValue, sig.Filings))
	}
	sb.WriteString("\n")

	// Step 2
	if len(report.Candidates) > 0 {
		th := report.Partition.Thresholds
		sb.WriteString(fmt.Sprintf("STEP 2: QUALITY CHECK (top %d, P/E < %s, ROE > %s%%, D/E < %sx)\n",
			len(report.Candidates), num(th.PECeiling), num(th.ROEFloor), num(th.DebtCeiling)))
		sb.WriteString(thin)

		if len(report.Partition.Accepted) == 0 {
			sb.WriteString("No candidate passed the quality gate.\n")
		} else {
			sb.WriteString(fmt.Sprintf("ACCEPTED: %d\n", len(report.Partition.Accepted)))
			writeCandidateHeader(&sb)
			for _, res := range report.Partition.Accepted {
				writeCandidateRow(&sb, res.Candidate)
			}
		}

		if len(report.Partition.Rejected) > 0 {
			sb.WriteString(fmt.Sprintf("\nREJECTED: %d\n", len(report.Partition.Rejected)))
			for _, res := range report.Partition.Rejected {
				c := res.Candidate
				marker := ""
				if c.Degraded() {
					marker = " ⚠ data unavailable"
				}
				sb.WriteString(fmt.Sprintf("• %d. %s%s\n", c.Rank, c.Symbol, marker))
				for _, reason := range res.Reasons {
					sb.WriteString(fmt.Sprintf("    - %s\n", reason))
				}
			}
		}
		sb.WriteString("\n")
	}

	s := Summarize(report)
	sb.WriteString("SUMMARY\n")
	sb.WriteString(thin)
	sb.WriteString(fmt.Sprintf("Companies: %d (total %.2f cr, mean %.2f cr, median %.2f cr)\n",
		s.Companies, s.TotalValueCr, s.MeanValueCr, s.MedianValueCr))
	if s.Screened > 0 {
		sb.WriteString(fmt.Sprintf("Screened: %d, accepted: %d, rejected: %d, data unavailable: %d\n",
			s.Screened, s.Accepted, s.Rejected, s.Degraded))
	}
	if s.Accepted > 0 {
		sb.WriteString(fmt.Sprintf("Accepted mean P/E: %.2f, mean ROE: %.2f%%\n", s.MeanAcceptedPE, s.MeanAcceptedROE))
	}

	sb.WriteString("\n" + disclaimer + "\n")
	sb.WriteString("\n" + rule)
	sb.WriteString("END OF REPORT\n")
	return sb.String()
}

func writeCandidateHeader(sb *strings.Builder) {
	sb.WriteString(fmt.Sprintf("%-4s %-16s %10s %10s %8s %8s %8s\n",
		"RANK", "SYMBOL", "VALUE (CR)", "PRICE", "P/E", "ROE %", "D/E"))
}

func writeCandidateRow(sb *strings.Builder, c types.EnrichedCandidate) {
	sb.WriteString(fmt.Sprintf("%-4d %-16s %10.2f %10.2f %8.2f %8.2f %8.2f\n",
		c.Rank, c.Symbol, c.NormalizedValue, c.Price, c.PERatio, c.ROEPercent, c.DebtToEquity))
}

// generateCSVReport emits one row per screened candidate, or per signal when
// the scan stopped before enrichment
func (r *Reporter) generateCSVReport(report *types.ScanReport) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if len(report.Candidates) == 0 {
		if err := w.Write([]string{"rank", "symbol", "value_cr", "filings"}); err != nil {
			return "", err
		}
		for i, sig := range report.Signals {
			if err := w.Write([]string{
				strconv.Itoa(i + 1),
				sig.Symbol,
				ftoa(sig.NormalizedValue),
				strconv.Itoa(sig.Filings),
			}); err != nil {
				return "", err
			}
		}
		w.Flush()
		return buf.String(), w.Error()
	}

	header := []string{"rank", "symbol", "value_cr", "filings", "price", "pe_ratio", "roe_pct", "debt_to_equity", "source", "verdict", "reasons"}
	if err := w.Write(header); err != nil {
		return "", err
	}

	results := make([]types.GateResult, 0, len(report.Candidates))
	results = append(results, report.Partition.Accepted...)
	results = append(results, report.Partition.Rejected...)
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Candidate.Rank < results[j].Candidate.Rank
	})

	for _, res := range results {
		c := res.Candidate
		if err := w.Write([]string{
			strconv.Itoa(c.Rank),
			c.Symbol,
			ftoa(c.NormalizedValue),
			strconv.Itoa(c.Filings),
			ftoa(c.Price),
			ftoa(c.PERatio),
			ftoa(c.ROEPercent),
			ftoa(c.DebtToEquity),
			c.Source,
			string(res.Verdict),
			strings.Join(res.Reasons, "; "),
		}); err != nil {
			return "", err
		}
	}
	w.Flush()
	return buf.String(), w.Error()
}

func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
