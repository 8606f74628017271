package radar

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"insider-radar/internal/disclosure"
	"insider-radar/internal/fundamentals"
	"insider-radar/internal/fundamentals/datasource"
	"insider-radar/internal/interfaces"
	"insider-radar/internal/types"
)

const nseHeader = "\"SYMBOL \n\",\"CATEGORY OF PERSON \n\",\"VALUE OF SECURITY (ACQUIRED/DISPLOSED) \n\",\"ACQUISITION/DISPOSAL TRANSACTION TYPE \n\",\"MODE OF ACQUISITION \n\"\n"

const nseRows = `"ABC","Promoter Group","80,000,000","Buy","Market Purchase"
"XYZ","Promoters","30,000,000","Acquisition","Market Purchase"
"XYZ","Promoters","20,000,000","Buy","Market Purchase"
"OFF","Promoters","90,000,000","Buy","Off Market"
"EMP","Employees","70,000,000","Buy","Market Purchase"
"BAD","Promoter","10,000,000","Sell","Market Sale"
`

type recorder struct {
	mu       sync.Mutex
	outcomes []string
	accepted int
	rejected int
}

func (r *recorder) ObserveScan(outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

func (r *recorder) ObserveVerdicts(accepted, rejected int) {
	r.accepted += accepted
	r.rejected += rejected
}

func f64(v float64) *float64 { return &v }

func source(text string) interfaces.DisclosureSource {
	return disclosure.ReaderSource{Name: "test.csv", Reader: strings.NewReader(text)}
}

func newScanner(mock *datasource.MockClient) (*Scanner, *recorder) {
	rec := &recorder{}
	return NewScanner(fundamentals.NewEnricher(mock, ".NS", 2)).WithRecorder(rec), rec
}

func TestScan_EndToEnd(t *testing.T) {
	mock := datasource.NewMockClient()
	mock.SetQuote("ABC.NS", types.Quote{Price: f64(410), TrailingPE: f64(25), ReturnOnEquity: f64(0.15), DebtToEquity: f64(80)})
	mock.Fail("XYZ.NS", errors.New("timeout"))

	s, rec := newScanner(mock)

	var progress []types.Progress
	var mu sync.Mutex
	sink := interfaces.ProgressFunc(func(p types.Progress) {
		mu.Lock()
		progress = append(progress, p)
		mu.Unlock()
	})

	report, err := s.Scan(context.Background(), source(nseHeader+nseRows), ScanOptions{
		TopN:       10,
		Thresholds: types.DefaultThresholds(),
		Progress:   sink,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, report.ID)
	assert.Equal(t, "test.csv", report.Source)
	assert.Equal(t, 6, report.TotalRows)
	assert.Equal(t, 3, report.BuyRows)

	require.Len(t, report.Signals, 2)
	assert.Equal(t, "ABC", report.Signals[0].Symbol)
	assert.Equal(t, 8.0, report.Signals[0].NormalizedValue)
	assert.Equal(t, "XYZ", report.Signals[1].Symbol)
	assert.Equal(t, 5.0, report.Signals[1].NormalizedValue)
	assert.Equal(t, 2, report.Signals[1].Filings)

	require.Len(t, report.Candidates, 2)
	assert.Equal(t, 1, report.Candidates[0].Rank)
	assert.Equal(t, 15.0, report.Candidates[0].ROEPercent)
	assert.True(t, report.Candidates[1].Degraded())

	require.Len(t, report.Partition.Accepted, 1)
	assert.Equal(t, "ABC", report.Partition.Accepted[0].Candidate.Symbol)
	require.Len(t, report.Partition.Rejected, 1)
	assert.Equal(t, "XYZ", report.Partition.Rejected[0].Candidate.Symbol)

	assert.Len(t, progress, 2)
	assert.Equal(t, []string{OutcomeCompleted}, rec.outcomes)
	assert.Equal(t, 1, rec.accepted)
	assert.Equal(t, 1, rec.rejected)

	// tighter debt ceiling flips ABC without another lookup
	calls := mock.Calls("ABC.NS")
	p := Partition(report.Candidates, types.Thresholds{PECeiling: 60, ROEFloor: 10, DebtCeiling: 0.5})
	assert.Empty(t, p.Accepted)
	assert.Equal(t, calls, mock.Calls("ABC.NS"))
}

func TestScan_TopNLimitsLookups(t *testing.T) {
	mock := datasource.NewMockClient()
	s, _ := newScanner(mock)

	report, err := s.Scan(context.Background(), source(nseHeader+nseRows), ScanOptions{TopN: 1, Thresholds: types.DefaultThresholds()})
	require.NoError(t, err)
	assert.Len(t, report.Signals, 2)
	require.Len(t, report.Candidates, 1)
	assert.Equal(t, "ABC", report.Candidates[0].Symbol)
	assert.Zero(t, mock.Calls("XYZ.NS"))
}

func TestScan_NoSignals(t *testing.T) {
	mock := datasource.NewMockClient()
	s, rec := newScanner(mock)

	text := nseHeader + `"OFF","Promoters","90,000,000","Buy","Off Market"` + "\n"
	report, err := s.Scan(context.Background(), source(text), ScanOptions{TopN: 15, Thresholds: types.DefaultThresholds()})
	require.NoError(t, err)

	assert.True(t, report.NoSignals())
	assert.False(t, report.NoneAccepted())
	assert.Empty(t, report.Candidates)
	assert.Equal(t, []string{OutcomeNoSignals}, rec.outcomes)
	assert.Zero(t, mock.Calls("OFF.NS"))
}

func TestScan_NoneAccepted(t *testing.T) {
	mock := datasource.NewMockClient()
	mock.SetQuote("ABC.NS", types.Quote{TrailingPE: f64(90), ReturnOnEquity: f64(0.2), DebtToEquity: f64(10)})
	mock.SetQuote("XYZ.NS", types.Quote{TrailingPE: f64(20), ReturnOnEquity: f64(0.02), DebtToEquity: f64(10)})
	s, rec := newScanner(mock)

	report, err := s.Scan(context.Background(), source(nseHeader+nseRows), ScanOptions{TopN: 15, Thresholds: types.DefaultThresholds()})
	require.NoError(t, err)
	assert.True(t, report.NoneAccepted())
	assert.Equal(t, []string{OutcomeNoneAccepted}, rec.outcomes)
}

func TestScan_SchemaMismatch(t *testing.T) {
	s, rec := newScanner(datasource.NewMockClient())

	_, err := s.Scan(context.Background(), source("SYMBOL,CATEGORY OF PERSON\nABC,Promoter\n"), ScanOptions{TopN: 15})
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrSchemaMismatch)

	var mismatch *types.SchemaMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.ElementsMatch(t, []types.Role{types.RoleType, types.RoleValue, types.RoleMode}, mismatch.Missing)
	assert.Equal(t, []string{OutcomeSchemaMismatch}, rec.outcomes)
}

func TestScan_UnreadableFile(t *testing.T) {
	s, rec := newScanner(datasource.NewMockClient())

	_, err := s.Scan(context.Background(), disclosure.FileSource{Path: "/nonexistent/insider.csv"}, ScanOptions{TopN: 15})
	require.Error(t, err)
	assert.NotErrorIs(t, err, types.ErrSchemaMismatch)
	assert.Equal(t, []string{OutcomeFailed}, rec.outcomes)
}

func TestScan_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s, rec := newScanner(datasource.NewMockClient())

	_, err := s.Scan(ctx, source(nseHeader+nseRows), ScanOptions{TopN: 15, Thresholds: types.DefaultThresholds()})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{OutcomeCancelled}, rec.outcomes)
}

func TestSignals_SkipsEnrichment(t *testing.T) {
	mock := datasource.NewMockClient()
	s, _ := newScanner(mock)

	report, err := s.Signals(context.Background(), source(nseHeader+nseRows))
	require.NoError(t, err)
	assert.Len(t, report.Signals, 2)
	assert.Empty(t, report.Candidates)
	assert.Zero(t, mock.Calls("ABC.NS"))
}
