// Package clean implements the light-curve quality-control engine:
// configurable cuts that flag bad photometric measurements, a registry
// that keeps flag bits disjoint, robust clipped statistics over control
// curves, and bad-day averaging of flagged curves.
package clean

import (
	"fmt"

	"github.com/atlas-clean/atclean/internal/lightcurve"
)

// CutKind identifies the evaluation strategy of a cut.
type CutKind int

const (
	// KindPoint is a min/max comparison against one measurement column.
	KindPoint CutKind = iota
	// KindChiSquare is a point cut on chi/N that additionally carries
	// parameters for the chi-square cut analysis table.
	KindChiSquare
	// KindControls aggregates control-curve statistics per epoch.
	KindControls
	// KindAveraging bins the curve and flags bad days.
	KindAveraging
	// KindUncertEst is the uncertainty-estimation pre-pass. It never
	// sets a persistent bit itself.
	KindUncertEst
)

// Cut is an immutable predicate definition with an associated flag bit.
// The Kind selects which parameter struct is meaningful; construct cuts
// through the New*Cut builders, which validate required fields up front.
type Cut struct {
	Kind   CutKind
	Column string
	Flag   lightcurve.Flag

	// MinValue/MaxValue bound the column for point cuts; nil means
	// unbounded on that side.
	MinValue *float64
	MaxValue *float64

	ChiSquare ChiSquareParams
	Controls  ControlCutParams
	Averaging AveragingParams
	UncertEst UncertEstParams
}

// ChiSquareParams drive the chi-square cut analysis table, which
// reports contamination and loss for a range of candidate ceilings.
type ChiSquareParams struct {
	StnBound float64 // |flux/flux_err| boundary between good and bad baseline points
	MinCut   int     // lowest candidate chi-square ceiling
	MaxCut   int     // highest candidate chi-square ceiling
	CutStep  int     // step between candidates
	// UsePreMJD0 restricts the baseline sample to measurements before
	// the reference epoch. Post-epoch variability is real signal and
	// must not bias the statistic, so this is the default.
	UsePreMJD0 bool
}

// ControlCutParams configure the per-epoch control-statistics
// evaluator. The cut's primary Flag is the single bad bit set on the
// primary curve whenever any sub-condition fails; the sub-flags record
// which condition fired.
type ControlCutParams struct {
	X2Max    float64
	StnMax   float64
	NclipMax int
	NgoodMin int

	QuestionableFlag lightcurve.Flag
	X2Flag           lightcurve.Flag
	StnFlag          lightcurve.Flag
	NclipFlag        lightcurve.Flag
	NgoodFlag        lightcurve.Flag

	Clip ClipParams
}

// AveragingParams configure bad-day averaging. The cut's primary Flag
// is the bad-day bit; SmallnumFlag marks bins with too few retained
// points and IxclipFlag marks bins where clipping removed anything.
type AveragingParams struct {
	MJDBinSize float64
	X2Max      float64
	NclipMax   int
	NgoodMin   int

	IxclipFlag   lightcurve.Flag
	SmallnumFlag lightcurve.Flag

	// BadFlags is the mask of bits that exclude a measurement from the
	// bin population. The driver builds it from the configured cuts.
	BadFlags lightcurve.Flag

	Clip ClipParams
}

// UncertEstParams configure the uncertainty-estimation pre-pass.
type UncertEstParams struct {
	TempX2Max float64
	// UncertFlag is reserved so callers can identify points whose
	// uncertainty was rescaled; the pre-pass never applies it.
	UncertFlag lightcurve.Flag

	Clip ClipParams
}

// NewPointCut builds a min/max cut on one measurement column. The flag
// must be a single bit.
func NewPointCut(column string, minValue, maxValue *float64, flag lightcurve.Flag) (*Cut, error) {
	if column == "" {
		return nil, fmt.Errorf("point cut: column is required")
	}
	if minValue == nil && maxValue == nil {
		return nil, fmt.Errorf("point cut on %q: at least one of min_value and max_value is required", column)
	}
	if err := validateSingleBit(flag); err != nil {
		return nil, fmt.Errorf("point cut on %q: %w", column, err)
	}
	return &Cut{
		Kind:     KindPoint,
		Column:   column,
		MinValue: minValue,
		MaxValue: maxValue,
		Flag:     flag,
	}, nil
}

// NewChiSquareCut builds the chi/N point cut with its analysis parameters.
func NewChiSquareCut(maxValue float64, flag lightcurve.Flag, params ChiSquareParams) (*Cut, error) {
	if err := validateSingleBit(flag); err != nil {
		return nil, fmt.Errorf("chi-square cut: %w", err)
	}
	if params.CutStep <= 0 {
		params.CutStep = 1
	}
	max := maxValue
	return &Cut{
		Kind:      KindChiSquare,
		Column:    lightcurve.ColChi2,
		MaxValue:  &max,
		Flag:      flag,
		ChiSquare: params,
	}, nil
}

// NewControlCut builds the control-statistics cut. badFlag is the
// single bit set on the primary curve for every failing epoch.
func NewControlCut(badFlag lightcurve.Flag, params ControlCutParams) (*Cut, error) {
	if err := validateSingleBit(badFlag); err != nil {
		return nil, fmt.Errorf("control cut: %w", err)
	}
	if params.Clip.Nsigma == 0 {
		params.Clip = DefaultClipParams()
	}
	return &Cut{
		Kind:     KindControls,
		Flag:     badFlag,
		Controls: params,
	}, nil
}

// NewAveragingCut builds the bad-day averaging cut. baddayFlag is the
// single bit marking statistically suspect bins.
func NewAveragingCut(baddayFlag lightcurve.Flag, params AveragingParams) (*Cut, error) {
	if err := validateSingleBit(baddayFlag); err != nil {
		return nil, fmt.Errorf("averaging cut: %w", err)
	}
	if params.MJDBinSize <= 0 {
		return nil, fmt.Errorf("averaging cut: mjd_bin_size must be positive, got %g", params.MJDBinSize)
	}
	if params.Clip.Nsigma == 0 {
		params.Clip = DefaultClipParams()
	}
	return &Cut{
		Kind:      KindAveraging,
		Flag:      baddayFlag,
		Averaging: params,
	}, nil
}

// NewUncertEstCut builds the uncertainty-estimation pre-pass. Its Flag
// is zero: the pre-pass conditions later stages but never flags.
func NewUncertEstCut(params UncertEstParams) (*Cut, error) {
	if params.TempX2Max <= 0 {
		return nil, fmt.Errorf("uncertainty estimation: temp_x2_max_value must be positive, got %g", params.TempX2Max)
	}
	if params.Clip.Nsigma == 0 {
		params.Clip = DefaultClipParams()
	}
	return &Cut{
		Kind:      KindUncertEst,
		UncertEst: params,
	}, nil
}

func validateSingleBit(flag lightcurve.Flag) error {
	if flag == 0 {
		return fmt.Errorf("flag must be nonzero")
	}
	if flag&(flag-1) != 0 {
		return fmt.Errorf("flag %s is not a single bit", flag)
	}
	return nil
}

// Float64 returns a pointer to v, for optional min/max bounds.
func Float64(v float64) *float64 {
	return &v
}

func (c *Cut) String() string {
	switch c.Kind {
	case KindPoint, KindChiSquare:
		s := fmt.Sprintf("column %s, flag %s", c.Column, c.Flag)
		if c.MinValue != nil {
			s += fmt.Sprintf(", min %g", *c.MinValue)
		}
		if c.MaxValue != nil {
			s += fmt.Sprintf(", max %g", *c.MaxValue)
		}
		return s
	case KindControls:
		return fmt.Sprintf("control statistics, bad flag %s", c.Flag)
	case KindAveraging:
		return fmt.Sprintf("bad-day averaging, bin size %g days, flag %s", c.Averaging.MJDBinSize, c.Flag)
	case KindUncertEst:
		return fmt.Sprintf("uncertainty estimation, temporary chi-square ceiling %g", c.UncertEst.TempX2Max)
	}
	return "unknown cut"
}
