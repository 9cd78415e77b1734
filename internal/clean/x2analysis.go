package clean

import (
	"fmt"
	"math"

	"github.com/atlas-clean/atclean/internal/lightcurve"
)

// ChiSquareCutStats summarize one candidate chi-square ceiling over the
// baseline sample: how much contamination a cut at that ceiling would
// keep and how much good data it would lose.
type ChiSquareCutStats struct {
	Cut              int     // candidate chi-square ceiling
	Ngood            int     // baseline points classified good (|flux/flux_err| <= stn_bound)
	Nbad             int     // baseline points classified bad
	Nkept            int     // points passing the candidate ceiling
	Ncut             int     // points failing the candidate ceiling
	ContaminationPct float64 // percentage of kept points that are bad
	LossPct          float64 // percentage of good points that are cut
}

// AnalyzeChiSquareCuts evaluates every candidate chi-square ceiling in
// [MinCut, MaxCut] step CutStep against the baseline sample. With
// UsePreMJD0 set and a known reference epoch the baseline is the
// pre-epoch curve only, since post-epoch variability is expected and
// would bias the statistic; otherwise the full curve is used. The table
// informs the configured ceiling, it never changes it.
func AnalyzeChiSquareCuts(t *lightcurve.Transient, cut *Cut) ([]ChiSquareCutStats, error) {
	if cut.Kind != KindChiSquare {
		return nil, fmt.Errorf("cut is not a chi-square cut")
	}
	p := cut.ChiSquare
	if p.MinCut <= 0 || p.MaxCut < p.MinCut {
		return nil, fmt.Errorf("chi-square analysis: invalid candidate range [%d, %d]", p.MinCut, p.MaxCut)
	}

	baseline := t.LC.Points
	if p.UsePreMJD0 && t.HasMJD0() {
		baseline = t.PreMJD0()
	}

	// Classify the baseline once: a point is good when its flux is
	// consistent with zero at the stn boundary.
	good := make([]bool, 0, len(baseline))
	chi2 := make([]float64, 0, len(baseline))
	nGood, nBad := 0, 0
	for i := range baseline {
		m := &baseline[i]
		if math.IsNaN(m.Chi2) || math.IsNaN(m.FluxUJy) || math.IsNaN(m.FluxErr) || m.FluxErr <= 0 {
			continue
		}
		g := math.Abs(m.FluxUJy/m.FluxErr) <= p.StnBound
		good = append(good, g)
		chi2 = append(chi2, m.Chi2)
		if g {
			nGood++
		} else {
			nBad++
		}
	}

	var table []ChiSquareCutStats
	for c := p.MinCut; c <= p.MaxCut; c += p.CutStep {
		row := ChiSquareCutStats{Cut: c, Ngood: nGood, Nbad: nBad}
		keptBad, cutGood := 0, 0
		for i, x2 := range chi2 {
			if x2 <= float64(c) {
				row.Nkept++
				if !good[i] {
					keptBad++
				}
			} else {
				row.Ncut++
				if good[i] {
					cutGood++
				}
			}
		}
		if row.Nkept > 0 {
			row.ContaminationPct = 100 * float64(keptBad) / float64(row.Nkept)
		}
		if nGood > 0 {
			row.LossPct = 100 * float64(cutGood) / float64(nGood)
		}
		table = append(table, row)
	}
	return table, nil
}
