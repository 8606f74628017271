package radar

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"insider-radar/internal/disclosure"
	"insider-radar/internal/fundamentals"
	"insider-radar/internal/interfaces"
	"insider-radar/internal/logger"
	"insider-radar/internal/types"
)

// Scan outcomes, as reported to the Recorder
const (
	OutcomeCompleted      = "completed"
	OutcomeNoSignals      = "no_signals"
	OutcomeNoneAccepted   = "none_accepted"
	OutcomeSchemaMismatch = "schema_mismatch"
	OutcomeCancelled      = "cancelled"
	OutcomeFailed         = "failed"
)

// Recorder receives per-scan counters. internal/metrics implements it.
type Recorder interface {
	ObserveScan(outcome string, d time.Duration)
	ObserveVerdicts(accepted, rejected int)
}

// ScanOptions are the per-run knobs
type ScanOptions struct {
	TopN       int
	Thresholds types.Thresholds
	Progress   interfaces.ProgressSink // optional
}

// Scanner runs the full pipeline: load, resolve, classify, aggregate,
// enrich and gate
type Scanner struct {
	enricher *fundamentals.Enricher
	recorder Recorder
	now      func() time.Time
}

// NewScanner creates a scanner over the given enricher
func NewScanner(enricher *fundamentals.Enricher) *Scanner {
	return &Scanner{
		enricher: enricher,
		now:      time.Now,
	}
}

// WithRecorder attaches a metrics recorder
func (s *Scanner) WithRecorder(r Recorder) *Scanner {
	s.recorder = r
	return s
}

// Signals runs the synchronous stages only and returns a report whose
// Candidates and Partition are empty
func (s *Scanner) Signals(ctx context.Context, src interfaces.DisclosureSource) (*types.ScanReport, error) {
	start := s.now()
	report, err := s.signals(ctx, src)
	if err != nil {
		s.observe(outcomeFor(err), start)
		return nil, err
	}
	outcome := OutcomeCompleted
	if report.NoSignals() {
		outcome = OutcomeNoSignals
	}
	s.observe(outcome, start)
	return report, nil
}

// Scan runs the whole pipeline. An empty signal list or an empty accepted set
// is a valid result, not an error; only unreadable input, a schema mismatch
// and cancellation are returned as errors.
func (s *Scanner) Scan(ctx context.Context, src interfaces.DisclosureSource, opts ScanOptions) (*types.ScanReport, error) {
	start := s.now()

	op := logger.StartOperation(ctx, "radar.scan", "top_n", opts.TopN)
	ctx = op.GetContext()

	report, err := s.signals(ctx, src)
	if err != nil {
		op.EndWithError(err)
		s.observe(outcomeFor(err), start)
		return nil, err
	}
	report.TopN = opts.TopN

	if report.NoSignals() {
		report.Candidates = []types.EnrichedCandidate{}
		report.Partition = Partition(nil, opts.Thresholds)
		logger.Info(ctx, "0 companies found with promoter market buying", "rows", report.TotalRows)
		op.End("outcome", OutcomeNoSignals)
		s.observe(OutcomeNoSignals, start)
		return report, nil
	}

	candidates, err := s.enricher.Enrich(ctx, report.Signals, opts.TopN, opts.Progress)
	if err != nil {
		op.EndWithError(err)
		s.observe(outcomeFor(err), start)
		return nil, fmt.Errorf("enrichment aborted: %w", err)
	}
	report.Candidates = candidates
	report.Partition = Partition(candidates, opts.Thresholds)

	for _, r := range report.Partition.Accepted {
		logger.Verdict(ctx, r.Candidate.Symbol, string(r.Verdict), nil, "rank", r.Candidate.Rank)
	}
	for _, r := range report.Partition.Rejected {
		logger.Verdict(ctx, r.Candidate.Symbol, string(r.Verdict), r.Reasons, "rank", r.Candidate.Rank)
	}

	outcome := OutcomeCompleted
	if report.NoneAccepted() {
		outcome = OutcomeNoneAccepted
	}
	if s.recorder != nil {
		s.recorder.ObserveVerdicts(len(report.Partition.Accepted), len(report.Partition.Rejected))
	}
	op.End("outcome", outcome,
		"accepted", len(report.Partition.Accepted),
		"rejected", len(report.Partition.Rejected))
	s.observe(outcome, start)
	return report, nil
}

func (s *Scanner) signals(ctx context.Context, src interfaces.DisclosureSource) (*types.ScanReport, error) {
	rc, name, err := src.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("open disclosures: %w", err)
	}
	defer rc.Close()

	table, err := disclosure.LoadCSV(rc)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}

	binding, err := disclosure.ResolveColumns(table.Columns)
	if err != nil {
		logger.ErrorWithErr(ctx, "Disclosure schema not recognized", err, "source", name)
		return nil, err
	}
	logger.Debug(ctx, "Columns resolved",
		"actor", binding.Actor,
		"type", binding.Type,
		"value", binding.Value,
		"mode", binding.Mode,
		"symbol", binding.Symbol)

	records := disclosure.ParseRecords(table, binding)
	buys := disclosure.Classify(records)
	signals := disclosure.Aggregate(buys)

	logger.Info(ctx, "Disclosures classified",
		"source", name,
		"rows", len(records),
		"promoter_buys", len(buys),
		"companies", len(signals))

	return &types.ScanReport{
		ID:         uuid.NewString(),
		Source:     name,
		Timestamp:  s.now(),
		Binding:    binding,
		TotalRows:  len(records),
		BuyRows:    len(buys),
		Signals:    signals,
		Candidates: []types.EnrichedCandidate{},
	}, nil
}

func (s *Scanner) observe(outcome string, start time.Time) {
	if s.recorder != nil {
		s.recorder.ObserveScan(outcome, s.now().Sub(start))
	}
}

func outcomeFor(err error) string {
	switch {
	case errors.Is(err, types.ErrSchemaMismatch):
		return OutcomeSchemaMismatch
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return OutcomeCancelled
	default:
		return OutcomeFailed
	}
}
