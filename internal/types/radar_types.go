package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Role identifies a semantic column in a disclosure table
type Role string

const (
	RoleActor  Role = "actor_category"
	RoleType   Role = "transaction_type"
	RoleValue  Role = "transaction_value"
	RoleMode   Role = "acquisition_mode"
	RoleSymbol Role = "symbol"
)

// DisclosureRecord is one parsed row of an insider-trading disclosure file.
// Value is invalid (not Valid) when the raw text could not be parsed as a number.
type DisclosureRecord struct {
	Row             int                 `json:"row"`
	ActorCategory   string              `json:"actor_category"`
	TransactionType string              `json:"transaction_type"`
	AcquisitionMode string              `json:"acquisition_mode"`
	RawValue        string              `json:"raw_value"`
	Value           decimal.NullDecimal `json:"value"`
	Symbol          string              `json:"symbol"`
}

// ColumnBinding maps each semantic role to the column name found in a table
type ColumnBinding struct {
	Actor  string `json:"actor"`
	Type   string `json:"type"`
	Value  string `json:"value"`
	Mode   string `json:"mode"`
	Symbol string `json:"symbol"`
}

// AggregatedSignal is the promoter-buying total for one company
type AggregatedSignal struct {
	Symbol          string  `json:"symbol"`
	TotalValue      float64 `json:"total_value"`
	NormalizedValue float64 `json:"value_cr"` // crore, 2 decimals
	Filings         int     `json:"filings"`
}

// Availability records which quote fields the provider actually supplied.
// The numeric fields on EnrichedCandidate stay zero when a field is absent,
// so zero alone cannot tell "unknown" from a real zero.
type Availability struct {
	Price        bool `json:"price"`
	PE           bool `json:"pe"`
	ROE          bool `json:"roe"`
	DebtToEquity bool `json:"debt_to_equity"`
}

// EnrichedCandidate is an AggregatedSignal with fundamentals merged in
type EnrichedCandidate struct {
	AggregatedSignal
	Rank         int          `json:"rank"`
	Price        float64      `json:"price"`
	PERatio      float64      `json:"pe_ratio"`
	ROEPercent   float64      `json:"roe_pct"`
	DebtToEquity float64      `json:"debt_to_equity"`
	Available    Availability `json:"available"`
	Source       string       `json:"source,omitempty"`
	LookupError  string       `json:"lookup_error,omitempty"`
}

// Degraded reports whether the lookup for this candidate failed entirely
func (c EnrichedCandidate) Degraded() bool {
	return c.LookupError != ""
}

// Quote is the loosely populated fundamentals record a provider returns.
// DebtToEquity is in hundredths (80 means 0.8x), ReturnOnEquity is a fraction.
type Quote struct {
	Symbol         string   `json:"symbol"`
	Price          *float64 `json:"price,omitempty"`
	TrailingPE     *float64 `json:"trailing_pe,omitempty"`
	ReturnOnEquity *float64 `json:"return_on_equity,omitempty"`
	DebtToEquity   *float64 `json:"debt_to_equity,omitempty"`
	Source         string   `json:"source,omitempty"`
}

// Empty reports whether the quote carries no usable field
func (q *Quote) Empty() bool {
	return q == nil || (q.Price == nil && q.TrailingPE == nil && q.ReturnOnEquity == nil && q.DebtToEquity == nil)
}

// Thresholds are the user-tunable quality gate bounds
type Thresholds struct {
	PECeiling   float64 `json:"pe_ceiling" yaml:"pe_ceiling"`     // exclusive upper bound
	ROEFloor    float64 `json:"roe_floor" yaml:"roe_floor"`       // exclusive lower bound, percent
	DebtCeiling float64 `json:"debt_ceiling" yaml:"debt_ceiling"` // ratio, compared after x100
}

// DefaultThresholds mirrors the stock screener defaults (P/E 60, ROE 10%, D/E 2.0)
func DefaultThresholds() Thresholds {
	return Thresholds{PECeiling: 60, ROEFloor: 10, DebtCeiling: 2.0}
}

// InRange reports whether every threshold sits within its recognized range.
// Out-of-range values are still usable; they only produce degenerate partitions.
func (t Thresholds) InRange() bool {
	return t.PECeiling >= 10 && t.PECeiling <= 100 &&
		t.ROEFloor >= 0 && t.ROEFloor <= 30 &&
		t.DebtCeiling >= 0 && t.DebtCeiling <= 5
}

// Verdict is the quality gate outcome for one candidate
type Verdict string

const (
	Accepted Verdict = "ACCEPTED"
	Rejected Verdict = "REJECTED"
)

// GateResult pairs a candidate with its verdict and the conditions it failed
type GateResult struct {
	Candidate EnrichedCandidate `json:"candidate"`
	Verdict   Verdict           `json:"verdict"`
	Reasons   []string          `json:"reasons,omitempty"`
}

// Partition is the accepted/rejected split of an enriched list, both in rank order
type Partition struct {
	Thresholds Thresholds   `json:"thresholds"`
	Accepted   []GateResult `json:"accepted"`
	Rejected   []GateResult `json:"rejected"`
}

// Progress is emitted after each candidate finishes enrichment
type Progress struct {
	Index    int    `json:"index"` // 1-based count of completed lookups
	Total    int    `json:"total"`
	Symbol   string `json:"symbol"`
	Rank     int    `json:"rank"`
	Degraded bool   `json:"degraded"`
}

// ScanReport is the full result of one pipeline run
type ScanReport struct {
	ID         string              `json:"id"`
	Source     string              `json:"source"` // file name or NSE url
	Timestamp  time.Time           `json:"timestamp"`
	Binding    ColumnBinding       `json:"binding"`
	TotalRows  int                 `json:"total_rows"`
	BuyRows    int                 `json:"buy_rows"`
	Signals    []AggregatedSignal  `json:"signals"`
	TopN       int                 `json:"top_n"`
	Candidates []EnrichedCandidate `json:"candidates"`
	Partition  Partition           `json:"partition"`
}

// NoSignals reports the "0 companies found" terminal state
func (r *ScanReport) NoSignals() bool {
	return len(r.Signals) == 0
}

// NoneAccepted reports that candidates were screened but none passed the gate
func (r *ScanReport) NoneAccepted() bool {
	return len(r.Candidates) > 0 && len(r.Partition.Accepted) == 0
}
