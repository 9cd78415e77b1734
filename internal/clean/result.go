package clean

import (
	"github.com/atlas-clean/atclean/internal/lightcurve"
)

// Result is one completed (transient, filter) cleaning unit, handed to
// the storage backends once the engine has finished with it. A unit
// either completes or fails atomically; no partial result is ever sent.
type Result struct {
	RunID     string
	Transient *lightcurve.Transient
	Averaged  *lightcurve.AveragedLightCurve // nil when averaging was not requested
	Summary   *Summary
	Overwrite bool
}
