package clean

import (
	"fmt"
	"math"
	"sort"

	"github.com/atlas-clean/atclean/internal/lightcurve"
)

// Average bins a cleaned light curve by MJD window and reduces each
// bin to one robust summary point. Bin edges are anchored at MJD 0 so
// bin k covers [k*binSize, (k+1)*binSize) and results are reproducible
// across runs. Measurements carrying any BadFlags bit are excluded
// from the bin population; empty bins emit nothing.
//
// badFlags overrides the cut's exclusion mask when nonzero; the cut
// itself is never mutated, so cut lists stay safe to share between
// concurrently processed units.
//
// Per bin, the flux values are iteratively sigma-clipped, then:
//   - the bad-day bit (the cut's flag) is set when the reduced
//     chi-square of the retained points exceeds X2Max or clipping
//     removed more than NclipMax points;
//   - SmallnumFlag is set when fewer than NgoodMin points survive;
//   - IxclipFlag is set whenever clipping removed anything.
//
// The bad-day and smallnum bits are independent and may co-occur, but
// a bin whose chi-square could not be computed is never marked bad-day
// on chi-square grounds.
func Average(lc *lightcurve.LightCurve, cut *Cut, badFlags lightcurve.Flag) (*lightcurve.AveragedLightCurve, error) {
	if cut.Kind != KindAveraging {
		return nil, fmt.Errorf("cut is not an averaging cut")
	}
	p := cut.Averaging
	if badFlags == 0 {
		badFlags = p.BadFlags
	}

	bins := make(map[int64][]int)
	for i := range lc.Points {
		m := &lc.Points[i]
		if m.Flag.Has(badFlags) || math.IsNaN(m.MJD) {
			continue
		}
		k := int64(math.Floor(m.MJD / p.MJDBinSize))
		bins[k] = append(bins[k], i)
	}

	keys := make([]int64, 0, len(bins))
	for k := range bins {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	avg := &lightcurve.AveragedLightCurve{BinSize: p.MJDBinSize}
	for _, k := range keys {
		idx := bins[k]
		flux := make([]float64, len(idx))
		fluxErr := make([]float64, len(idx))
		for j, i := range idx {
			flux[j] = lc.Points[i].FluxUJy
			fluxErr[j] = lc.Points[i].FluxErr
		}

		stats := SigmaClip(flux, fluxErr, p.Clip)

		bin := lightcurve.AveragedBin{
			MJDCenter: (float64(k) + 0.5) * p.MJDBinSize,
			FluxUJy:   stats.Mean,
			FluxErr:   stats.MeanErr,
			Stdev:     stats.Stdev,
			X2:        stats.X2,
			Nclip:     stats.Nclip,
			Ngood:     stats.Ngood,
		}
		if stats.Nclip > 0 {
			bin.Flag = bin.Flag.Set(p.IxclipFlag)
		}
		if stats.Ngood < p.NgoodMin {
			bin.Flag = bin.Flag.Set(p.SmallnumFlag)
		}
		if (!math.IsNaN(stats.X2) && stats.X2 > p.X2Max) || stats.Nclip > p.NclipMax {
			bin.Flag = bin.Flag.Set(cut.Flag)
		}
		avg.Bins = append(avg.Bins, bin)
	}
	return avg, nil
}
