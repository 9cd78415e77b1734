package clean

import (
	"math"
	"testing"

	"github.com/atlas-clean/atclean/internal/lightcurve"
)

func newAveragingCut(t *testing.T, params AveragingParams) *Cut {
	t.Helper()
	cut, err := NewAveragingCut(0x800000, params)
	if err != nil {
		t.Fatalf("NewAveragingCut: %v", err)
	}
	return cut
}

func TestAverageClipsOutlier(t *testing.T) {
	// A day with three consistent points and one extreme outlier: the
	// outlier is clipped and the bin reports the clean mean.
	lc := &lightcurve.LightCurve{Points: []lightcurve.Measurement{
		{MJD: 57000.1, FluxUJy: 10.0, FluxErr: 2.0},
		{MJD: 57000.3, FluxUJy: 10.0, FluxErr: 2.0},
		{MJD: 57000.5, FluxUJy: 10.0, FluxErr: 2.0},
		{MJD: 57000.7, FluxUJy: 1000.0, FluxErr: 2.0},
	}}
	cut := newAveragingCut(t, AveragingParams{
		MJDBinSize: 1.0, X2Max: 100.0, NclipMax: 2, NgoodMin: 2,
		IxclipFlag: 0x1000000, SmallnumFlag: 0x2000000,
	})

	avg, err := Average(lc, cut, 0x6)
	if err != nil {
		t.Fatalf("Average: %v", err)
	}
	if len(avg.Bins) != 1 {
		t.Fatalf("bins = %d, expected 1", len(avg.Bins))
	}
	bin := avg.Bins[0]
	if math.Abs(bin.FluxUJy-10.0) > 1e-12 {
		t.Errorf("bin flux = %v, expected 10.0", bin.FluxUJy)
	}
	if bin.Nclip != 1 || bin.Ngood != 3 {
		t.Errorf("Nclip = %d, Ngood = %d, expected 1, 3", bin.Nclip, bin.Ngood)
	}
	if math.Abs(bin.MJDCenter-57000.5) > 1e-9 {
		t.Errorf("MJDCenter = %v, expected 57000.5", bin.MJDCenter)
	}
	if !bin.Flag.Has(0x1000000) {
		t.Error("ixclip bit not set although clipping removed a point")
	}
	if bin.Flag.Has(0x800000) {
		t.Error("bad-day bit set although Nclip within limit and chi2 clean")
	}
	if bin.Flag.Has(0x2000000) {
		t.Error("smallnum bit set although three points survived")
	}
}

func TestAverageBadDayOnExcessClipping(t *testing.T) {
	lc := &lightcurve.LightCurve{Points: []lightcurve.Measurement{
		{MJD: 57000.1, FluxUJy: 10.0, FluxErr: 2.0},
		{MJD: 57000.3, FluxUJy: 10.0, FluxErr: 2.0},
		{MJD: 57000.5, FluxUJy: 10.0, FluxErr: 2.0},
		{MJD: 57000.7, FluxUJy: 1000.0, FluxErr: 2.0},
	}}
	cut := newAveragingCut(t, AveragingParams{
		MJDBinSize: 1.0, X2Max: 100.0, NclipMax: 0, NgoodMin: 2,
		IxclipFlag: 0x1000000, SmallnumFlag: 0x2000000,
	})

	avg, err := Average(lc, cut, 0x6)
	if err != nil {
		t.Fatalf("Average: %v", err)
	}
	if !avg.Bins[0].Flag.Has(0x800000) {
		t.Error("bad-day bit not set although Nclip exceeded the limit")
	}
}

func TestAverageSmallnumIndependentOfBadDay(t *testing.T) {
	// A single-point bin has no computable chi-square: it gets the
	// smallnum bit but is never marked bad-day on chi-square grounds,
	// even with an absurdly tight ceiling.
	lc := &lightcurve.LightCurve{Points: []lightcurve.Measurement{
		{MJD: 57003.4, FluxUJy: 25.0, FluxErr: 5.0},
	}}
	cut := newAveragingCut(t, AveragingParams{
		MJDBinSize: 1.0, X2Max: 1e-6, NclipMax: 2, NgoodMin: 4,
		IxclipFlag: 0x1000000, SmallnumFlag: 0x2000000,
	})

	avg, err := Average(lc, cut, 0x6)
	if err != nil {
		t.Fatalf("Average: %v", err)
	}
	if len(avg.Bins) != 1 {
		t.Fatalf("bins = %d, expected 1", len(avg.Bins))
	}
	bin := avg.Bins[0]
	if !bin.Flag.Has(0x2000000) {
		t.Error("smallnum bit not set for a one-point bin")
	}
	if bin.Flag.Has(0x800000) {
		t.Error("bad-day bit set although chi-square is uncomputable")
	}
	if !math.IsNaN(bin.X2) {
		t.Errorf("X2 = %v, expected NaN for a one-point bin", bin.X2)
	}
	if math.Abs(bin.FluxUJy-25.0) > 1e-12 {
		t.Errorf("bin flux = %v, expected 25.0", bin.FluxUJy)
	}
}

func TestAverageExcludesFlaggedPoints(t *testing.T) {
	lc := &lightcurve.LightCurve{Points: []lightcurve.Measurement{
		{MJD: 57000.1, FluxUJy: 10.0, FluxErr: 2.0},
		{MJD: 57000.3, FluxUJy: 500.0, FluxErr: 2.0, Flag: 0x2},
		{MJD: 57000.5, FluxUJy: 10.0, FluxErr: 2.0},
		{MJD: 57001.2, FluxUJy: 7.0, FluxErr: 2.0, Flag: 0x4},
	}}
	cut := newAveragingCut(t, AveragingParams{
		MJDBinSize: 1.0, X2Max: 100.0, NclipMax: 2, NgoodMin: 2,
		IxclipFlag: 0x1000000, SmallnumFlag: 0x2000000,
	})

	avg, err := Average(lc, cut, 0x6)
	if err != nil {
		t.Fatalf("Average: %v", err)
	}
	// The second day held only a flagged point, so no bin is emitted for it.
	if len(avg.Bins) != 1 {
		t.Fatalf("bins = %d, expected 1", len(avg.Bins))
	}
	bin := avg.Bins[0]
	if bin.Ngood != 2 || bin.Nclip != 0 {
		t.Errorf("Ngood = %d, Nclip = %d, expected 2, 0", bin.Ngood, bin.Nclip)
	}
	if math.Abs(bin.FluxUJy-10.0) > 1e-12 {
		t.Errorf("bin flux = %v, expected 10.0", bin.FluxUJy)
	}
}

func TestAverageBinEdges(t *testing.T) {
	// Bins are half-open windows anchored at MJD 0: a measurement on
	// the exact boundary belongs to the later bin.
	lc := &lightcurve.LightCurve{Points: []lightcurve.Measurement{
		{MJD: 57000.0, FluxUJy: 1.0, FluxErr: 1.0},
		{MJD: 57000.999, FluxUJy: 2.0, FluxErr: 1.0},
		{MJD: 57001.0, FluxUJy: 3.0, FluxErr: 1.0},
	}}
	cut := newAveragingCut(t, AveragingParams{
		MJDBinSize: 1.0, X2Max: 100.0, NclipMax: 2, NgoodMin: 1,
		IxclipFlag: 0x1000000, SmallnumFlag: 0x2000000,
	})

	avg, err := Average(lc, cut, 0x6)
	if err != nil {
		t.Fatalf("Average: %v", err)
	}
	if len(avg.Bins) != 2 {
		t.Fatalf("bins = %d, expected 2", len(avg.Bins))
	}
	if avg.Bins[0].Ngood != 2 {
		t.Errorf("first bin Ngood = %d, expected 2", avg.Bins[0].Ngood)
	}
	if avg.Bins[1].Ngood != 1 {
		t.Errorf("second bin Ngood = %d, expected 1", avg.Bins[1].Ngood)
	}
	if math.Abs(avg.Bins[0].MJDCenter-57000.5) > 1e-9 {
		t.Errorf("first bin center = %v, expected 57000.5", avg.Bins[0].MJDCenter)
	}
	if math.Abs(avg.Bins[1].MJDCenter-57001.5) > 1e-9 {
		t.Errorf("second bin center = %v, expected 57001.5", avg.Bins[1].MJDCenter)
	}
	if avg.Bins[0].MJDCenter >= avg.Bins[1].MJDCenter {
		t.Error("bins not ordered by MJD")
	}
}

func TestAverageRejectsWrongCutKind(t *testing.T) {
	lc := &lightcurve.LightCurve{}
	cut, err := NewPointCut(lightcurve.ColFluxErr, nil, Float64(160), 0x2)
	if err != nil {
		t.Fatalf("NewPointCut: %v", err)
	}
	if _, err := Average(lc, cut, 0); err == nil {
		t.Error("point cut accepted as averaging cut")
	}
}
