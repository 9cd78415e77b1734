// Package lightcurve defines the data model for transient light curves:
// individual flux measurements, per-filter curves with optional control
// curves, and the averaged output produced by bad-day binning.
package lightcurve

import (
	"fmt"
	"math"
	"sort"
)

// Flag is a bitmask recording the reasons a measurement or averaged bin
// is considered unreliable. Bits only ever accumulate during a cleaning
// run; they are never cleared once set.
type Flag uint32

// Set returns f with the given bits OR'd in.
func (f Flag) Set(bits Flag) Flag {
	return f | bits
}

// Has reports whether any of the given bits are set.
func (f Flag) Has(bits Flag) bool {
	return f&bits != 0
}

// String formats the flag as a hexadecimal literal, matching the flag
// column representation in light curve files.
func (f Flag) String() string {
	return fmt.Sprintf("%#x", uint32(f))
}

// Column names recognized in light curve tables.
const (
	ColMJD     = "MJD"
	ColFlux    = "uJy"
	ColFluxErr = "duJy"
	ColChi2    = "chi/N"
	ColFlag    = "flag"
)

// Measurement is a single photometric data point.
type Measurement struct {
	MJD     float64 // Modified Julian Date of the observation
	FluxUJy float64 // flux in microjanskys
	FluxErr float64 // reported flux uncertainty in microjanskys
	Chi2    float64 // reduced chi-square of the PSF fit (chi/N column)
	Flag    Flag
}

// Value returns the named column of the measurement. It returns an
// error for columns that are not numeric measurement columns, so cut
// configuration errors surface as unit failures rather than silently
// rejecting every point.
func (m *Measurement) Value(column string) (float64, error) {
	switch column {
	case ColMJD:
		return m.MJD, nil
	case ColFlux:
		return m.FluxUJy, nil
	case ColFluxErr:
		return m.FluxErr, nil
	case ColChi2:
		return m.Chi2, nil
	}
	return 0, fmt.Errorf("unknown measurement column %q", column)
}

// LightCurve is an ordered sequence of measurements for one transient
// and one photometric filter.
type LightCurve struct {
	Points []Measurement
}

// SortByMJD orders the points by observation time. Loading always
// sorts, so the rest of the pipeline can assume time order.
func (lc *LightCurve) SortByMJD() {
	sort.Slice(lc.Points, func(i, j int) bool {
		return lc.Points[i].MJD < lc.Points[j].MJD
	})
}

// Len returns the number of measurements.
func (lc *LightCurve) Len() int {
	return len(lc.Points)
}

// CountFlagged returns the number of points with any of the given bits set.
func (lc *LightCurve) CountFlagged(bits Flag) int {
	n := 0
	for i := range lc.Points {
		if lc.Points[i].Flag.Has(bits) {
			n++
		}
	}
	return n
}

// AveragedBin is one robust summary point produced by bad-day
// averaging: the clipped statistics of all eligible measurements in
// one MJD window.
type AveragedBin struct {
	MJDCenter float64
	FluxUJy   float64
	FluxErr   float64 // standard error of the clipped sample
	Stdev     float64 // standard deviation of the clipped sample
	X2        float64 // reduced chi-square of retained points about the clipped mean
	Nclip     int     // points removed by sigma clipping
	Ngood     int     // points retained
	Flag      Flag
}

// AveragedLightCurve holds the binned output of one averaging pass.
// Re-running averaging recomputes the bins from scratch.
type AveragedLightCurve struct {
	BinSize float64 // MJD bin width in days
	Bins    []AveragedBin
}

// Transient is the unit of work for cleaning: one transient in one
// filter, with zero or more epoch-aligned control light curves. The
// controls observe nearby reference sky positions with no expected
// signal and are index-aligned with the primary curve; no
// interpolation is performed.
type Transient struct {
	TNSName  string
	Filter   string
	MJD0     float64 // reference epoch of the transient; NaN when unknown
	LC       *LightCurve
	Controls []*LightCurve
}

// HasMJD0 reports whether a reference epoch is known for the transient.
func (t *Transient) HasMJD0() bool {
	return !math.IsNaN(t.MJD0)
}
