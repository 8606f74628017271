// Package radar runs the insider radar pipeline: disclosure parsing,
// fundamentals enrichment and the quality gate
package radar

import (
	"fmt"
	"math"
	"strconv"

	"insider-radar/internal/types"
)

// Evaluate applies the quality gate to one candidate. A candidate is accepted
// iff pe > 0, pe < PECeiling, roe > ROEFloor and d/e < DebtCeiling*100.
// Debt/equity arrives in hundredths, hence the scaling of the ceiling.
// Evaluate never modifies c.
func Evaluate(c types.EnrichedCandidate, t types.Thresholds) types.GateResult {
	pe, roe, de := c.PERatio, c.ROEPercent, c.DebtToEquity
	debtLimit := t.DebtCeiling * 100

	verdict := types.Rejected
	if pe > 0 && pe < t.PECeiling && roe > t.ROEFloor && de < debtLimit {
		verdict = types.Accepted
	}

	var reasons []string
	switch {
	case math.IsNaN(pe):
		reasons = append(reasons, "P/E is not a number")
	case pe == 0:
		reasons = append(reasons, "P/E unavailable")
	case pe < 0:
		reasons = append(reasons, fmt.Sprintf("P/E %.2f is negative", pe))
	case pe >= t.PECeiling:
		reasons = append(reasons, fmt.Sprintf("P/E %.2f ≥ %s", pe, num(t.PECeiling)))
	}

	switch {
	case math.IsNaN(roe):
		reasons = append(reasons, "ROE is not a number")
	case roe <= t.ROEFloor:
		reasons = append(reasons, fmt.Sprintf("ROE %.2f%% ≤ %s%%", roe, num(t.ROEFloor)))
	}

	switch {
	case math.IsNaN(de):
		reasons = append(reasons, "D/E is not a number")
	case de >= debtLimit:
		reasons = append(reasons, fmt.Sprintf("D/E %.2f ≥ %s (%sx)", de, num(debtLimit), num(t.DebtCeiling)))
	}

	// NaN thresholds fail every comparison without naming a field
	if verdict == types.Rejected && len(reasons) == 0 {
		reasons = append(reasons, "thresholds are not comparable")
	}
	return types.GateResult{Candidate: c, Verdict: verdict, Reasons: reasons}
}

// Partition splits candidates into accepted and rejected, both keeping the
// input order. The input slice is not modified.
func Partition(candidates []types.EnrichedCandidate, t types.Thresholds) types.Partition {
	p := types.Partition{
		Thresholds: t,
		Accepted:   []types.GateResult{},
		Rejected:   []types.GateResult{},
	}
	for _, c := range candidates {
		r := Evaluate(c, t)
		if r.Verdict == types.Accepted {
			p.Accepted = append(p.Accepted, r)
		} else {
			p.Rejected = append(p.Rejected, r)
		}
	}
	return p
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
