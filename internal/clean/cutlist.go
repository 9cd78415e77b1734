package clean

import (
	"fmt"

	"github.com/atlas-clean/atclean/internal/lightcurve"
)

// Names of the reserved default cuts. Config sections ending in _cut
// that are not in this set are treated as custom cuts.
const (
	CutNameUncertEst = "uncert_est"
	CutNameUncert    = "uncert_cut"
	CutNameChiSquare = "x2_cut"
	CutNameControls  = "controls_cut"
	CutNameBadDay    = "badday_cut"
)

// DefaultCutNames lists the reserved cut names.
var DefaultCutNames = []string{
	CutNameUncertEst,
	CutNameUncert,
	CutNameChiSquare,
	CutNameControls,
	CutNameBadDay,
}

// IsDefaultCutName reports whether name is one of the reserved cut names.
func IsDefaultCutName(name string) bool {
	for _, n := range DefaultCutNames {
		if n == name {
			return true
		}
	}
	return false
}

// DuplicateNameError is returned by CutList.Add when the name is taken.
type DuplicateNameError struct {
	Name string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("cut %q already present in cut list", e.Name)
}

// CutList is an ordered, named registry of cuts. Flag bits across
// member cuts must be pairwise disjoint; Validate enforces that before
// any cut touches data.
type CutList struct {
	order []string
	cuts  map[string]*Cut
}

// NewCutList returns an empty registry.
func NewCutList() *CutList {
	return &CutList{cuts: make(map[string]*Cut)}
}

// Add inserts a named cut, preserving insertion order.
func (cl *CutList) Add(cut *Cut, name string) error {
	if _, exists := cl.cuts[name]; exists {
		return &DuplicateNameError{Name: name}
	}
	cl.order = append(cl.order, name)
	cl.cuts[name] = cut
	return nil
}

// Get returns the named cut, or nil when it is not configured. Callers
// branch on nil to skip optional cuts.
func (cl *CutList) Get(name string) *Cut {
	return cl.cuts[name]
}

// Has reports whether the named cut is configured.
func (cl *CutList) Has(name string) bool {
	_, ok := cl.cuts[name]
	return ok
}

// Names returns the cut names in insertion order.
func (cl *CutList) Names() []string {
	out := make([]string, len(cl.order))
	copy(out, cl.order)
	return out
}

// Len returns the number of cuts.
func (cl *CutList) Len() int {
	return len(cl.order)
}

// CheckForFlagDuplicates reports whether any two member cuts share a
// flag bit, and the offending bit values. Cuts without a primary flag
// (the uncertainty-estimation pre-pass) are skipped.
func (cl *CutList) CheckForFlagDuplicates() (bool, []lightcurve.Flag) {
	var dupes []lightcurve.Flag
	seen := lightcurve.Flag(0)
	for _, name := range cl.order {
		flag := cl.cuts[name].Flag
		if flag == 0 {
			continue
		}
		if overlap := seen & flag; overlap != 0 {
			dupes = append(dupes, overlap)
		}
		seen |= flag
	}
	return len(dupes) > 0, dupes
}

// Validate fails fast on flag collisions, naming the offending cuts. A
// collision would make two distinct failure reasons indistinguishable
// downstream, so it is a configuration error, not a data condition.
func (cl *CutList) Validate() error {
	has, dupes := cl.CheckForFlagDuplicates()
	if !has {
		return nil
	}
	var names []string
	for _, dup := range dupes {
		for _, name := range cl.order {
			if cl.cuts[name].Flag.Has(dup) {
				names = append(names, name)
			}
		}
	}
	return fmt.Errorf("cut list contains duplicate flag bits %v across cuts %v", dupes, names)
}

// ExclusionMask returns the OR of every flag bit that marks a
// measurement ineligible for averaging: all point-cut and control-cut
// bits, plus the control questionable bit.
func (cl *CutList) ExclusionMask() lightcurve.Flag {
	var mask lightcurve.Flag
	for _, name := range cl.order {
		cut := cl.cuts[name]
		switch cut.Kind {
		case KindPoint, KindChiSquare:
			mask |= cut.Flag
		case KindControls:
			mask |= cut.Flag | cut.Controls.QuestionableFlag
		}
	}
	return mask
}
