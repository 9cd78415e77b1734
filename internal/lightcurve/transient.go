package lightcurve

import (
	"fmt"
	"os"
	"path/filepath"
)

// File naming follows the ATLAS forced-photometry conventions: the
// primary curve for transient T in filter f lives in T.f.lc.txt, the
// Nth control curve in T_iNNN.f.lc.txt, the cleaned curve in
// T.f.clean.lc.txt, and the averaged curve in T.f.<binsize>days.lc.txt.

// InputPath returns the raw light curve file for a transient and filter.
func InputPath(dir, tnsname, filter string) string {
	return filepath.Join(dir, fmt.Sprintf("%s.%s.lc.txt", tnsname, filter))
}

// ControlInputPath returns the raw light curve file for control index i
// (1-based) of a transient and filter.
func ControlInputPath(dir, tnsname, filter string, i int) string {
	return filepath.Join(dir, "controls", fmt.Sprintf("%s_i%03d.%s.lc.txt", tnsname, i, filter))
}

// CleanedPath returns the output file for a cleaned light curve.
func CleanedPath(dir, tnsname, filter string) string {
	return filepath.Join(dir, tnsname, fmt.Sprintf("%s.%s.clean.lc.txt", tnsname, filter))
}

// AveragedPath returns the output file for an averaged light curve.
func AveragedPath(dir, tnsname, filter string, binSize float64) string {
	return filepath.Join(dir, tnsname, fmt.Sprintf("%s.%s.%0.2fdays.lc.txt", tnsname, filter, binSize))
}

// NewTransient constructs an empty unit of work. Pass NaN for mjd0 when
// the reference epoch is unknown.
func NewTransient(tnsname, filter string, mjd0 float64) *Transient {
	return &Transient{
		TNSName: tnsname,
		Filter:  filter,
		MJD0:    mjd0,
	}
}

// Load reads the primary light curve and up to numControls control
// curves from inputDir. A missing primary curve is an error; a missing
// control file is an error too, since the control evaluator assumes the
// full index-aligned set.
func (t *Transient) Load(inputDir string, numControls int) error {
	lc, err := ReadTable(InputPath(inputDir, t.TNSName, t.Filter))
	if err != nil {
		return fmt.Errorf("loading %s %s: %w", t.TNSName, t.Filter, err)
	}
	t.LC = lc

	t.Controls = nil
	for i := 1; i <= numControls; i++ {
		control, err := ReadTable(ControlInputPath(inputDir, t.TNSName, t.Filter, i))
		if err != nil {
			return fmt.Errorf("loading %s %s control %03d: %w", t.TNSName, t.Filter, i, err)
		}
		if control.Len() != lc.Len() {
			return fmt.Errorf("%s %s control %03d: %d epochs, primary has %d (controls must be epoch-aligned)",
				t.TNSName, t.Filter, i, control.Len(), lc.Len())
		}
		t.Controls = append(t.Controls, control)
	}
	return nil
}

// Save writes the cleaned primary curve (and controls, when present)
// under outputDir/<tnsname>/.
func (t *Transient) Save(outputDir string, overwrite bool) error {
	if err := os.MkdirAll(filepath.Join(outputDir, t.TNSName), 0o755); err != nil {
		return err
	}
	if err := WriteTable(CleanedPath(outputDir, t.TNSName, t.Filter), t.LC, overwrite); err != nil {
		return fmt.Errorf("saving %s %s: %w", t.TNSName, t.Filter, err)
	}
	if len(t.Controls) > 0 {
		controlsDir := filepath.Join(outputDir, t.TNSName, "controls")
		if err := os.MkdirAll(controlsDir, 0o755); err != nil {
			return err
		}
		for i, control := range t.Controls {
			path := filepath.Join(controlsDir, fmt.Sprintf("%s_i%03d.%s.clean.lc.txt", t.TNSName, i+1, t.Filter))
			if err := WriteTable(path, control, overwrite); err != nil {
				return fmt.Errorf("saving %s %s control %03d: %w", t.TNSName, t.Filter, i+1, err)
			}
		}
	}
	return nil
}

// SaveAveraged writes the averaged light curve under outputDir/<tnsname>/.
func (t *Transient) SaveAveraged(outputDir string, avg *AveragedLightCurve, overwrite bool) error {
	if err := os.MkdirAll(filepath.Join(outputDir, t.TNSName), 0o755); err != nil {
		return err
	}
	path := AveragedPath(outputDir, t.TNSName, t.Filter, avg.BinSize)
	if err := WriteAveragedTable(path, avg, overwrite); err != nil {
		return fmt.Errorf("saving %s %s averaged: %w", t.TNSName, t.Filter, err)
	}
	return nil
}

// PreMJD0 returns the measurements observed before the reference epoch,
// or all measurements when no epoch is known.
func (t *Transient) PreMJD0() []Measurement {
	if !t.HasMJD0() {
		return t.LC.Points
	}
	var out []Measurement
	for _, m := range t.LC.Points {
		if m.MJD < t.MJD0 {
			out = append(out, m)
		}
	}
	return out
}
