package config

import (
	"os"
	"strings"
	"testing"

	"github.com/atlas-clean/atclean/internal/clean"
	"github.com/atlas-clean/atclean/internal/lightcurve"
	"github.com/atlas-clean/atclean/internal/log"
)

func TestMain(m *testing.M) {
	log.Init(true)
	os.Exit(m.Run())
}

func TestParseFlag(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected lightcurve.Flag
		wantErr  bool
	}{
		{name: "prefixed hex", input: "0x1A", expected: 0x1A},
		{name: "prefixed hex uppercase", input: "0X400", expected: 0x400},
		{name: "bare hex", input: "1A", expected: 0x1A},
		{name: "bare digits are hex", input: "10", expected: 0x10},
		{name: "surrounding whitespace", input: " 0x2 ", expected: 0x2},
		{name: "empty", input: "", wantErr: true},
		{name: "not hex", input: "0xzz", wantErr: true},
		{name: "too wide", input: "0x1ffffffff", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFlag(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseFlag(%q) succeeded with %s, expected error", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseFlag(%q): %v", tt.input, err)
			}
			if got != tt.expected {
				t.Errorf("ParseFlag(%q) = %s, expected %s", tt.input, got, tt.expected)
			}
		})
	}
}

// fullConfig returns a configuration with every reserved cut section
// populated with the standard flag layout.
func fullConfig() *ConfigData {
	return &ConfigData{
		Filters:     []string{"o", "c"},
		NumControls: 8,
		UncertEst:   &UncertEstData{TempX2MaxValue: 20},
		UncertCut:   &UncertCutData{MaxValue: 160, Flag: "0x2"},
		X2Cut: &X2CutData{
			MaxValue: 5, Flag: "0x4", StnBound: 3,
			MinCut: 3, MaxCut: 50, CutStep: 1, UsePreMJD0LC: true,
		},
		ControlsCut: &ControlsCutData{
			BadFlag: "0x400", QuestionableFlag: "0x80",
			X2Max: 2.5, X2Flag: "0x100",
			StnMax: 3.0, StnFlag: "0x200",
			NclipMax: 2, NclipFlag: "0x800",
			NgoodMin: 4, NgoodFlag: "0x1000",
		},
		Averaging: &AveragingData{
			Flag: "0x800000", MJDBinSize: 1.0, X2Max: 4.0,
			NclipMax: 1, NgoodMin: 2,
			IxclipFlag: "0x1000000", SmallnumFlag: "0x2000000",
		},
	}
}

func allCuts() CutSelection {
	return CutSelection{UncertCut: true, X2Cut: true, ControlsCut: true, Averaging: true, CustomCuts: true}
}

func TestBuildCutListFull(t *testing.T) {
	cuts, err := BuildCutList(fullConfig(), allCuts())
	if err != nil {
		t.Fatalf("BuildCutList: %v", err)
	}

	expectedOrder := []string{
		clean.CutNameUncertEst,
		clean.CutNameUncert,
		clean.CutNameChiSquare,
		clean.CutNameControls,
		clean.CutNameBadDay,
	}
	names := cuts.Names()
	if len(names) != len(expectedOrder) {
		t.Fatalf("names = %v, expected %v", names, expectedOrder)
	}
	for i, want := range expectedOrder {
		if names[i] != want {
			t.Errorf("cut %d: %q, expected %q", i, names[i], want)
		}
	}

	uncert := cuts.Get(clean.CutNameUncert)
	if uncert.Flag != 0x2 || uncert.Column != lightcurve.ColFluxErr {
		t.Errorf("uncertainty cut = %+v, expected 0x2 on duJy", uncert)
	}
	if uncert.MaxValue == nil || *uncert.MaxValue != 160 {
		t.Errorf("uncertainty ceiling = %v, expected 160", uncert.MaxValue)
	}

	chi := cuts.Get(clean.CutNameChiSquare)
	if chi.Flag != 0x4 || chi.Column != lightcurve.ColChi2 {
		t.Errorf("chi-square cut = %+v, expected 0x4 on chi/N", chi)
	}
	if !chi.ChiSquare.UsePreMJD0 || chi.ChiSquare.MaxCut != 50 {
		t.Errorf("chi-square analysis params = %+v", chi.ChiSquare)
	}

	controls := cuts.Get(clean.CutNameControls)
	if controls.Flag != 0x400 || controls.Controls.QuestionableFlag != 0x80 {
		t.Errorf("control cut flags = %+v", controls.Controls)
	}

	badday := cuts.Get(clean.CutNameBadDay)
	if badday.Flag != 0x800000 || badday.Averaging.MJDBinSize != 1.0 {
		t.Errorf("averaging cut = %+v", badday.Averaging)
	}
	if badday.Averaging.IxclipFlag != 0x1000000 || badday.Averaging.SmallnumFlag != 0x2000000 {
		t.Errorf("averaging sub-flags = %+v", badday.Averaging)
	}
}

func TestBuildCutListSelections(t *testing.T) {
	cfg := fullConfig()
	cfg.UncertEst = nil

	cuts, err := BuildCutList(cfg, CutSelection{X2Cut: true})
	if err != nil {
		t.Fatalf("BuildCutList: %v", err)
	}
	if cuts.Len() != 1 || !cuts.Has(clean.CutNameChiSquare) {
		t.Errorf("names = %v, expected only the chi-square cut", cuts.Names())
	}
}

func TestBuildCutListBinSizeOverride(t *testing.T) {
	override := 2.5
	cuts, err := BuildCutList(fullConfig(), CutSelection{Averaging: true, MJDBinSize: &override})
	if err != nil {
		t.Fatalf("BuildCutList: %v", err)
	}
	if got := cuts.Get(clean.CutNameBadDay).Averaging.MJDBinSize; got != 2.5 {
		t.Errorf("bin size = %v, expected the 2.5 override", got)
	}
}

func TestBuildCutListFatalErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ConfigData)
		sel    CutSelection
		want   string
	}{
		{
			name:   "invalid hex flag",
			mutate: func(c *ConfigData) { c.UncertCut.Flag = "0xzz" },
			sel:    allCuts(),
			want:   "invalid hexadecimal flag",
		},
		{
			name:   "missing section",
			mutate: func(c *ConfigData) { c.X2Cut = nil },
			sel:    allCuts(),
			want:   "no x2_cut section",
		},
		{
			name:   "pre-pass without uncertainty section",
			mutate: func(c *ConfigData) { c.UncertCut = nil },
			sel:    CutSelection{X2Cut: true},
			want:   "uncert_est requires",
		},
		{
			name: "duplicate flag bits",
			mutate: func(c *ConfigData) {
				c.X2Cut.Flag = "0x2" // collides with uncert_cut
			},
			sel:  allCuts(),
			want: "duplicate flag bits",
		},
		{
			name: "custom cut with bad flag",
			mutate: func(c *ConfigData) {
				c.CustomCuts = map[string]CustomCutData{
					"flux_cut": {Column: "uJy", Flag: "bogus", MinValue: "-100"},
				}
			},
			sel:  allCuts(),
			want: "invalid hexadecimal flag",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := fullConfig()
			tt.mutate(cfg)
			_, err := BuildCutList(cfg, tt.sel)
			if err == nil {
				t.Fatal("BuildCutList succeeded, expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestBuildCutListCustomCuts(t *testing.T) {
	cfg := fullConfig()
	cfg.CustomCuts = map[string]CustomCutData{
		"flux_cut": {Column: "uJy", Flag: "0x10", MinValue: "-100", MaxValue: "None"},
		// missing column: skipped with a warning, not fatal
		"broken_cut": {Flag: "0x20"},
		"psf_cut":    {Column: "chi/N", Flag: "0x40", MaxValue: "8"},
	}

	cuts, err := BuildCutList(cfg, allCuts())
	if err != nil {
		t.Fatalf("BuildCutList: %v", err)
	}

	if !cuts.Has("flux_cut") || !cuts.Has("psf_cut") {
		t.Errorf("custom cuts missing from %v", cuts.Names())
	}
	if cuts.Has("broken_cut") {
		t.Error("custom cut without a column was not skipped")
	}

	flux := cuts.Get("flux_cut")
	if flux.MinValue == nil || *flux.MinValue != -100 {
		t.Errorf("flux_cut min = %v, expected -100", flux.MinValue)
	}
	if flux.MaxValue != nil {
		t.Errorf("flux_cut max = %v, expected nil for the literal None", *flux.MaxValue)
	}

	// Custom cuts come after the reserved cuts in name order.
	names := cuts.Names()
	if names[len(names)-2] != "flux_cut" || names[len(names)-1] != "psf_cut" {
		t.Errorf("custom cut order = %v", names)
	}
}
