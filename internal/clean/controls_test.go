package clean

import (
	"math"
	"testing"

	"github.com/atlas-clean/atclean/internal/lightcurve"
)

func nan() float64 { return math.NaN() }

const (
	testBadFlag          = lightcurve.Flag(0x400)
	testQuestionableFlag = lightcurve.Flag(0x80)
	testX2Flag           = lightcurve.Flag(0x100)
	testStnFlag          = lightcurve.Flag(0x200)
	testNclipFlag        = lightcurve.Flag(0x800)
	testNgoodFlag        = lightcurve.Flag(0x1000)
)

func newControlCut(t *testing.T, params ControlCutParams) *Cut {
	t.Helper()
	params.QuestionableFlag = testQuestionableFlag
	params.X2Flag = testX2Flag
	params.StnFlag = testStnFlag
	params.NclipFlag = testNclipFlag
	params.NgoodFlag = testNgoodFlag
	cut, err := NewControlCut(testBadFlag, params)
	if err != nil {
		t.Fatalf("NewControlCut: %v", err)
	}
	return cut
}

// controlTransient builds a unit with nControls control curves whose
// epoch j fluxes come from fluxes[j], all with the given uncertainty.
func controlTransient(primaryFlux []float64, controlFlux [][]float64, fluxErr float64) *lightcurve.Transient {
	nEpochs := len(primaryFlux)
	primary := &lightcurve.LightCurve{}
	for i := 0; i < nEpochs; i++ {
		primary.Points = append(primary.Points, lightcurve.Measurement{
			MJD: 57000.0 + float64(i), FluxUJy: primaryFlux[i], FluxErr: fluxErr,
		})
	}
	var controls []*lightcurve.LightCurve
	for c := 0; c < len(controlFlux[0]); c++ {
		control := &lightcurve.LightCurve{}
		for i := 0; i < nEpochs; i++ {
			control.Points = append(control.Points, lightcurve.Measurement{
				MJD: 57000.0 + float64(i), FluxUJy: controlFlux[i][c], FluxErr: fluxErr,
			})
		}
		controls = append(controls, control)
	}
	return &lightcurve.Transient{TNSName: "2023abc", Filter: "o", LC: primary, Controls: controls}
}

func TestApplyControlCut(t *testing.T) {
	tests := []struct {
		name          string
		controlFlux   [][]float64 // per epoch, one value per control
		params        ControlCutParams
		expectedFlags []lightcurve.Flag
	}{
		{
			name: "healthy epochs stay unflagged",
			controlFlux: [][]float64{
				{0.5, -0.5, 0.2, -0.2, 0.1},
				{-0.3, 0.4, 0.0, 0.2, -0.1},
			},
			params:        ControlCutParams{X2Max: 2.5, StnMax: 3.0, NclipMax: 2, NgoodMin: 3},
			expectedFlags: []lightcurve.Flag{0, 0},
		},
		{
			name: "chi-square excess marks the epoch",
			controlFlux: [][]float64{
				{0.5, -0.5, 0.2, -0.2, 0.1},
				{2.0, -2.0, 1.5, -1.5, 1.0},
			},
			params:        ControlCutParams{X2Max: 2.5, StnMax: 3.0, NclipMax: 5, NgoodMin: 3},
			expectedFlags: []lightcurve.Flag{0, testBadFlag | testX2Flag},
		},
		{
			name: "coherent control signal trips the stn bound",
			controlFlux: [][]float64{
				{0.5, -0.5, 0.2, -0.2, 0.1},
				{3.0, 3.0, 3.0, 3.0, 3.0},
			},
			params:        ControlCutParams{X2Max: 100.0, StnMax: 3.0, NclipMax: 5, NgoodMin: 3},
			expectedFlags: []lightcurve.Flag{0, testBadFlag | testStnFlag},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			primaryFlux := make([]float64, len(tt.controlFlux))
			tr := controlTransient(primaryFlux, tt.controlFlux, 1.0)
			cut := newControlCut(t, tt.params)

			flagged, err := ApplyControlCut(tr, cut)
			if err != nil {
				t.Fatalf("ApplyControlCut: %v", err)
			}
			wantFlagged := 0
			for epoch, want := range tt.expectedFlags {
				if want != 0 {
					wantFlagged++
				}
				if got := tr.LC.Points[epoch].Flag; got != want {
					t.Errorf("epoch %d: flag = %s, expected %s", epoch, got, want)
				}
			}
			if flagged != wantFlagged {
				t.Errorf("flagged = %d, expected %d", flagged, wantFlagged)
			}
		})
	}
}

func TestApplyControlCutQuestionablePropagates(t *testing.T) {
	controlFlux := [][]float64{
		{0.5, -0.5, 0.2, -0.2, 0.1},
	}
	tr := controlTransient([]float64{0}, controlFlux, 1.0)
	// One contributing control point is already questionable; the
	// epoch statistics alone are clean.
	tr.Controls[2].Points[0].Flag = testQuestionableFlag

	cut := newControlCut(t, ControlCutParams{X2Max: 100.0, StnMax: 100.0, NclipMax: 5, NgoodMin: 1})
	flagged, err := ApplyControlCut(tr, cut)
	if err != nil {
		t.Fatalf("ApplyControlCut: %v", err)
	}
	if flagged != 1 {
		t.Errorf("flagged = %d, expected 1", flagged)
	}
	if got := tr.LC.Points[0].Flag; got != testBadFlag {
		t.Errorf("epoch flag = %s, expected %s", got, testBadFlag)
	}
}

func TestApplyControlCutSmallSample(t *testing.T) {
	// Three of five controls unusable at the epoch: the retained
	// sample is too small and the epoch is flagged.
	controlFlux := [][]float64{
		{0.5, nan(), nan(), nan(), 0.1},
	}
	tr := controlTransient([]float64{0}, controlFlux, 1.0)

	cut := newControlCut(t, ControlCutParams{X2Max: 100.0, StnMax: 100.0, NclipMax: 5, NgoodMin: 3})
	if _, err := ApplyControlCut(tr, cut); err != nil {
		t.Fatalf("ApplyControlCut: %v", err)
	}
	got := tr.LC.Points[0].Flag
	if !got.Has(testBadFlag) || !got.Has(testNgoodFlag) {
		t.Errorf("epoch flag = %s, expected bad and Ngood bits", got)
	}
}

func TestApplyControlCutValidation(t *testing.T) {
	tr := controlTransient([]float64{0, 0}, [][]float64{{0.1}, {0.2}}, 1.0)
	cut := newControlCut(t, ControlCutParams{X2Max: 2.5, StnMax: 3.0, NclipMax: 2, NgoodMin: 1})

	tr.Controls = nil
	if _, err := ApplyControlCut(tr, cut); err == nil {
		t.Error("missing controls did not error")
	}

	tr = controlTransient([]float64{0, 0}, [][]float64{{0.1}, {0.2}}, 1.0)
	tr.Controls[0].Points = tr.Controls[0].Points[:1]
	if _, err := ApplyControlCut(tr, cut); err == nil {
		t.Error("epoch-misaligned control did not error")
	}
}
