package clean

import (
	"fmt"
	"math"

	"github.com/atlas-clean/atclean/internal/lightcurve"
)

// EvaluatePointCut computes the rejection mask for a min/max cut over a
// measurement sequence without mutating anything. A value is rejected
// when it is NaN, below min_value, or above max_value. An unknown
// column is an error so a misconfigured cut aborts the unit instead of
// rejecting every point.
func EvaluatePointCut(points []lightcurve.Measurement, cut *Cut) ([]bool, error) {
	if cut.Kind != KindPoint && cut.Kind != KindChiSquare {
		return nil, fmt.Errorf("cut is not a point cut")
	}
	reject := make([]bool, len(points))
	for i := range points {
		v, err := points[i].Value(cut.Column)
		if err != nil {
			return nil, err
		}
		switch {
		case math.IsNaN(v):
			reject[i] = true
		case cut.MinValue != nil && v < *cut.MinValue:
			reject[i] = true
		case cut.MaxValue != nil && v > *cut.MaxValue:
			reject[i] = true
		}
	}
	return reject, nil
}

// ApplyPointCut ORs the cut's flag into every rejected measurement and
// returns the number of points that failed the cut. Application is
// idempotent: re-applying sets the same bit with no further effect.
func ApplyPointCut(points []lightcurve.Measurement, cut *Cut) (int, error) {
	reject, err := EvaluatePointCut(points, cut)
	if err != nil {
		return 0, err
	}
	flagged := 0
	for i, r := range reject {
		if r {
			points[i].Flag = points[i].Flag.Set(cut.Flag)
			flagged++
		}
	}
	return flagged, nil
}
