package clean

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// ClipParams control iterative sigma clipping.
type ClipParams struct {
	Nsigma  float64 // rejection distance from the mean, in standard deviations
	MaxIter int     // iteration cap; clipping also stops when an iteration rejects nothing
}

// DefaultClipParams returns the standard 3-sigma clip with an iteration cap.
func DefaultClipParams() ClipParams {
	return ClipParams{Nsigma: 3.0, MaxIter: 10}
}

// ClippedStats are the robust statistics of one sigma-clipped sample.
type ClippedStats struct {
	Mean     float64 // unweighted mean of retained values
	Stdev    float64 // sample standard deviation of retained values; 0 when Ngood < 2
	MeanErr  float64 // standard error of the mean, Stdev/sqrt(Ngood)
	X2       float64 // reduced chi-square of retained values about Mean; NaN when Ngood < 2
	WMean    float64 // inverse-variance weighted mean of retained values
	WMeanErr float64 // uncertainty of the weighted mean, sqrt(1/sum(1/err^2))
	Nclip    int     // values removed (NaN values plus clipped outliers)
	Ngood    int     // values retained
	Kept     []bool  // per-input retention mask
}

// madToSigma converts a median absolute deviation to the standard
// deviation of an equivalent normal distribution.
const madToSigma = 1.4826

// SigmaClip iteratively rejects values farther than Nsigma deviations
// from the sample center until an iteration rejects nothing or the
// iteration cap is reached, then returns the statistics of the
// surviving sample. The first iteration centers on the median with a
// MAD-derived scale, so a single extreme outlier in a small sample
// cannot mask itself by inflating the standard deviation; subsequent
// iterations use the clipped mean and standard deviation. NaN values
// are rejected up front. errs supplies the per-value uncertainties used
// for X2 and the weighted mean; it may be nil, in which case those
// fields are NaN.
func SigmaClip(values, errs []float64, params ClipParams) ClippedStats {
	n := len(values)
	kept := make([]bool, n)
	for i, v := range values {
		kept[i] = !math.IsNaN(v)
	}

	for iter := 0; iter < params.MaxIter; iter++ {
		var center, scale float64
		if iter == 0 {
			center, scale = keptMedianMAD(values, kept)
		} else {
			center, scale = keptMeanStdev(values, kept)
			if scale <= 0 {
				break
			}
		}
		if math.IsNaN(center) {
			break
		}
		rejected := false
		for i, v := range values {
			if kept[i] && math.Abs(v-center) > params.Nsigma*scale {
				kept[i] = false
				rejected = true
			}
		}
		if !rejected {
			break
		}
	}

	return clippedStats(values, errs, kept)
}

func keptSample(values []float64, kept []bool) []float64 {
	var sample []float64
	for i, v := range values {
		if kept[i] {
			sample = append(sample, v)
		}
	}
	return sample
}

func keptMeanStdev(values []float64, kept []bool) (mean, stdev float64) {
	sample := keptSample(values, kept)
	if len(sample) == 0 {
		return math.NaN(), 0
	}
	mean = stat.Mean(sample, nil)
	if len(sample) < 2 {
		return mean, 0
	}
	return mean, stat.StdDev(sample, nil)
}

func keptMedianMAD(values []float64, kept []bool) (center, scale float64) {
	sample := keptSample(values, kept)
	if len(sample) == 0 {
		return math.NaN(), 0
	}
	sort.Float64s(sample)
	center = Median(sample)

	devs := make([]float64, len(sample))
	for i, v := range sample {
		devs[i] = math.Abs(v - center)
	}
	sort.Float64s(devs)
	return center, madToSigma * Median(devs)
}

// Median returns the median of an ascending-sorted sample, averaging
// the two middle values for even sizes.
func Median(sorted []float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func clippedStats(values, errs []float64, kept []bool) ClippedStats {
	stats := ClippedStats{
		X2:       math.NaN(),
		WMean:    math.NaN(),
		WMeanErr: math.NaN(),
		Kept:     kept,
	}

	var sample []float64
	for i, v := range values {
		if kept[i] {
			sample = append(sample, v)
		}
	}
	stats.Ngood = len(sample)
	stats.Nclip = len(values) - len(sample)

	if stats.Ngood == 0 {
		stats.Mean = math.NaN()
		return stats
	}

	stats.Mean = stat.Mean(sample, nil)
	if stats.Ngood >= 2 {
		stats.Stdev = stat.StdDev(sample, nil)
	}
	stats.MeanErr = stats.Stdev / math.Sqrt(float64(stats.Ngood))

	if errs == nil {
		return stats
	}

	// Chi-square about the mean and the inverse-variance weighted mean
	// both need finite positive uncertainties.
	var chi2 float64
	var sumW, sumWV float64
	nChi := 0
	for i, v := range values {
		if !kept[i] {
			continue
		}
		e := errs[i]
		if math.IsNaN(e) || e <= 0 {
			continue
		}
		r := (v - stats.Mean) / e
		chi2 += r * r
		w := 1 / (e * e)
		sumW += w
		sumWV += w * v
		nChi++
	}
	if nChi >= 2 {
		stats.X2 = chi2 / float64(nChi-1)
	}
	if sumW > 0 {
		stats.WMean = sumWV / sumW
		stats.WMeanErr = math.Sqrt(1 / sumW)
	}
	return stats
}

// ReducedChiSquareAboutZero returns the reduced chi-square of the
// retained values about zero, the statistic used for control epochs
// where no real signal is expected. NaN when no value has a usable
// uncertainty.
func ReducedChiSquareAboutZero(values, errs []float64, kept []bool) float64 {
	var chi2 float64
	n := 0
	for i, v := range values {
		if !kept[i] {
			continue
		}
		e := errs[i]
		if math.IsNaN(e) || e <= 0 {
			continue
		}
		r := v / e
		chi2 += r * r
		n++
	}
	if n == 0 {
		return math.NaN()
	}
	return chi2 / float64(n)
}
