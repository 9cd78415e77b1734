package clean

import (
	"fmt"

	"github.com/atlas-clean/atclean/internal/lightcurve"
)

// Options select the optional stages of a cleaning run.
type Options struct {
	// ApplyUncertEst applies the uncertainty-estimation rescale when
	// the pre-pass is configured. The check itself always runs so the
	// summary reports what it would have done.
	ApplyUncertEst bool
}

// CutCount records how many measurements one cut flagged.
type CutCount struct {
	Name    string
	Flagged int
}

// Summary reports the outcome of cleaning one (transient, filter) unit.
// Data-quality issues are silent at the data level, encoded only in
// the flag bitmasks, so the summary is where they become visible.
type Summary struct {
	TNSName string
	Filter  string
	Points  int

	UncertEst  UncertEstResult
	CutCounts  []CutCount
	X2Analysis []ChiSquareCutStats
}

// Run cleans one unit: the optional uncertainty-estimation pre-pass,
// the point cuts in configured order (applied to the control curves as
// well, so the control evaluator can see questionable control points),
// the control-statistics cut when controls are present, and bad-day
// averaging when configured. The cut list is validated before any data
// is touched; a nil averaged curve is returned when averaging is not
// configured.
//
// Stages only ever accumulate flag bits; nothing is cleared mid-run.
func Run(t *lightcurve.Transient, cuts *CutList, opts Options) (*Summary, *lightcurve.AveragedLightCurve, error) {
	if err := cuts.Validate(); err != nil {
		return nil, nil, err
	}
	if t.LC == nil || t.LC.Len() == 0 {
		return nil, nil, fmt.Errorf("%s %s: no measurements survived loading", t.TNSName, t.Filter)
	}

	summary := &Summary{TNSName: t.TNSName, Filter: t.Filter, Points: t.LC.Len()}

	if uncertEst := cuts.Get(CutNameUncertEst); uncertEst != nil {
		result, err := EstimateUncertainties(t, uncertEst)
		if err != nil {
			return nil, nil, err
		}
		if opts.ApplyUncertEst && result.Required {
			ApplyRescale(t, result.Factor)
			result.Applied = true
		}
		summary.UncertEst = result
	}

	var pointCutMask lightcurve.Flag
	for _, name := range cuts.Names() {
		cut := cuts.Get(name)
		if cut.Kind != KindPoint && cut.Kind != KindChiSquare {
			continue
		}
		flagged, err := ApplyPointCut(t.LC.Points, cut)
		if err != nil {
			return nil, nil, fmt.Errorf("%s %s: cut %q: %w", t.TNSName, t.Filter, name, err)
		}
		for i, control := range t.Controls {
			if _, err := ApplyPointCut(control.Points, cut); err != nil {
				return nil, nil, fmt.Errorf("%s %s: cut %q on control %03d: %w", t.TNSName, t.Filter, name, i+1, err)
			}
		}
		summary.CutCounts = append(summary.CutCounts, CutCount{Name: name, Flagged: flagged})

		if cut.Kind == KindChiSquare {
			table, err := AnalyzeChiSquareCuts(t, cut)
			if err != nil {
				return nil, nil, fmt.Errorf("%s %s: %w", t.TNSName, t.Filter, err)
			}
			summary.X2Analysis = table
		}
		pointCutMask |= cut.Flag
	}

	if controlsCut := cuts.Get(CutNameControls); controlsCut != nil && len(t.Controls) > 0 {
		// A control point rejected by any point cut is questionable:
		// the evaluator propagates that suspicion to the primary curve.
		if q := controlsCut.Controls.QuestionableFlag; q != 0 {
			for _, control := range t.Controls {
				for i := range control.Points {
					if control.Points[i].Flag.Has(pointCutMask) {
						control.Points[i].Flag = control.Points[i].Flag.Set(q)
					}
				}
			}
		}
		flagged, err := ApplyControlCut(t, controlsCut)
		if err != nil {
			return nil, nil, fmt.Errorf("%s %s: %w", t.TNSName, t.Filter, err)
		}
		summary.CutCounts = append(summary.CutCounts, CutCount{Name: CutNameControls, Flagged: flagged})
	}

	var avg *lightcurve.AveragedLightCurve
	if baddayCut := cuts.Get(CutNameBadDay); baddayCut != nil {
		badFlags := baddayCut.Averaging.BadFlags
		if badFlags == 0 {
			badFlags = cuts.ExclusionMask()
		}
		var err error
		avg, err = Average(t.LC, baddayCut, badFlags)
		if err != nil {
			return nil, nil, fmt.Errorf("%s %s: %w", t.TNSName, t.Filter, err)
		}
		flagged := 0
		for _, bin := range avg.Bins {
			if bin.Flag.Has(baddayCut.Flag) {
				flagged++
			}
		}
		summary.CutCounts = append(summary.CutCounts, CutCount{Name: CutNameBadDay, Flagged: flagged})
	}

	return summary, avg, nil
}
