package clean

import (
	"fmt"

	"github.com/atlas-clean/atclean/internal/lightcurve"
)

// ApplyControlCut evaluates the control light curves at every epoch and
// flags the corresponding primary measurement when the controls expose
// a systematic problem. The controls observe empty sky, so their
// clipped statistics at a healthy epoch should be consistent with zero
// flux; a primary point can look fine in isolation yet be exposed as a
// template or detector artifact here.
//
// An epoch fails when any of these hold for the clipped control sample:
// reduced chi-square about zero above X2Max, signal-to-noise of the
// weighted mean above StnMax, more than NclipMax points clipped, fewer
// than NgoodMin points retained, or a questionable bit already set on
// any contributing control point. Every failure sets the cut's single
// bad bit on the primary measurement; the matching diagnostic sub-flag
// is recorded alongside it. Returns the number of epochs flagged bad.
func ApplyControlCut(t *lightcurve.Transient, cut *Cut) (int, error) {
	if cut.Kind != KindControls {
		return 0, fmt.Errorf("cut is not a control cut")
	}
	if len(t.Controls) == 0 {
		return 0, fmt.Errorf("control cut requires at least one control light curve")
	}
	for i, control := range t.Controls {
		if control.Len() != t.LC.Len() {
			return 0, fmt.Errorf("control %d has %d epochs, primary has %d", i+1, control.Len(), t.LC.Len())
		}
	}

	p := cut.Controls
	flagged := 0
	nControls := len(t.Controls)

	flux := make([]float64, nControls)
	fluxErr := make([]float64, nControls)

	for epoch := range t.LC.Points {
		questionable := false
		for j, control := range t.Controls {
			m := &control.Points[epoch]
			flux[j] = m.FluxUJy
			fluxErr[j] = m.FluxErr
			if m.Flag.Has(p.QuestionableFlag) {
				questionable = true
			}
		}

		stats := SigmaClip(flux, fluxErr, p.Clip)
		x2 := ReducedChiSquareAboutZero(flux, fluxErr, stats.Kept)
		stn := stats.WMean / stats.WMeanErr

		var bits lightcurve.Flag
		if x2 > p.X2Max {
			bits |= p.X2Flag
		}
		if stn > p.StnMax {
			bits |= p.StnFlag
		}
		if stats.Nclip > p.NclipMax {
			bits |= p.NclipFlag
		}
		if stats.Ngood < p.NgoodMin {
			bits |= p.NgoodFlag
		}
		if bits != 0 || questionable {
			t.LC.Points[epoch].Flag = t.LC.Points[epoch].Flag.Set(bits | cut.Flag)
			flagged++
		}
	}
	return flagged, nil
}
