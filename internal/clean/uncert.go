package clean

import (
	"fmt"
	"math"
	"sort"

	"github.com/atlas-clean/atclean/internal/lightcurve"
)

// minUncertEstSample is the smallest baseline sample from which the
// uncertainty comparison is meaningful.
const minUncertEstSample = 4

// uncertEstMarginPct is how far (in percent) the observed scatter must
// exceed the typical reported uncertainty before a rescale is warranted.
const uncertEstMarginPct = 10.0

// UncertEstResult reports what the uncertainty-estimation pre-pass found.
type UncertEstResult struct {
	Required     bool    // whether the reported uncertainties are underestimated
	Applied      bool    // whether the rescale was actually applied
	Factor       float64 // multiplicative correction for every flux_err
	SigmaTypical float64 // median reported uncertainty of the baseline sample
	SigmaTrue    float64 // sigma-clipped flux scatter of the baseline sample
	SampleSize   int     // baseline sample size
}

// EstimateUncertainties decides, before any other cut runs, whether the
// reported per-point uncertainties are underestimated. The baseline
// sample is every measurement passing a temporary chi-square ceiling
// (and observed before the reference epoch, when one is known, since
// post-epoch scatter is real signal). The rescale is required when the
// sigma-clipped flux scatter of that sample exceeds the median reported
// uncertainty by more than the margin.
//
// Nothing is mutated and no flag bit is set; callers that want the
// rescale follow up with ApplyRescale.
func EstimateUncertainties(t *lightcurve.Transient, cut *Cut) (UncertEstResult, error) {
	if cut.Kind != KindUncertEst {
		return UncertEstResult{}, fmt.Errorf("cut is not the uncertainty-estimation pre-pass")
	}
	p := cut.UncertEst

	var flux, fluxErr []float64
	for i := range t.LC.Points {
		m := &t.LC.Points[i]
		if math.IsNaN(m.Chi2) || m.Chi2 > p.TempX2Max {
			continue
		}
		if t.HasMJD0() && m.MJD >= t.MJD0 {
			continue
		}
		flux = append(flux, m.FluxUJy)
		fluxErr = append(fluxErr, m.FluxErr)
	}

	result := UncertEstResult{Factor: 1.0, SampleSize: len(flux)}
	if len(flux) < minUncertEstSample {
		return result, nil
	}

	sortedErr := append([]float64(nil), fluxErr...)
	sort.Float64s(sortedErr)
	result.SigmaTypical = Median(sortedErr)

	stats := SigmaClip(flux, fluxErr, p.Clip)
	result.SigmaTrue = stats.Stdev

	if result.SigmaTypical <= 0 || result.SigmaTrue <= 0 {
		return result, nil
	}
	if result.SigmaTrue <= result.SigmaTypical*(1+uncertEstMarginPct/100) {
		return result, nil
	}

	result.Required = true
	result.Factor = result.SigmaTrue / result.SigmaTypical
	return result, nil
}

// ApplyRescale multiplies every flux uncertainty in the unit, controls
// included, by the correction factor.
func ApplyRescale(t *lightcurve.Transient, factor float64) {
	rescale(t.LC, factor)
	for _, control := range t.Controls {
		rescale(control, factor)
	}
}

func rescale(lc *lightcurve.LightCurve, factor float64) {
	for i := range lc.Points {
		lc.Points[i].FluxErr *= factor
	}
}
