package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/atlas-clean/atclean/internal/clean"
	"github.com/atlas-clean/atclean/internal/lightcurve"
	"github.com/atlas-clean/atclean/internal/log"
)

// CutSelection chooses which configured cuts are active for a run.
// The uncertainty-estimation check is always included when configured;
// whether its rescale is applied is a separate runtime option.
type CutSelection struct {
	UncertCut   bool
	X2Cut       bool
	ControlsCut bool
	Averaging   bool
	CustomCuts  bool

	// MJDBinSize overrides the configured averaging bin size when non-nil.
	MJDBinSize *float64
}

// ParseFlag parses a hexadecimal flag string ("0x1A" or "1A") into a
// flag bitmask. An unparsable string is a fatal configuration error.
func ParseFlag(s string) (lightcurve.Flag, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty flag value")
	}
	var v uint64
	var err error
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		v, err = strconv.ParseUint(s[2:], 16, 32)
	} else {
		v, err = strconv.ParseUint(s, 16, 32)
	}
	if err != nil {
		return 0, fmt.Errorf("invalid hexadecimal flag %q: %w", s, err)
	}
	return lightcurve.Flag(v), nil
}

// BuildCutList turns the configured cut sections into a validated cut
// list. Configuration problems that would corrupt data (duplicate flag
// bits, unparsable hex flags, missing required sections) are fatal; a
// custom cut section missing required keys is skipped with a warning
// since the remaining cuts can still proceed.
func BuildCutList(cfg *ConfigData, sel CutSelection) (*clean.CutList, error) {
	cutList := clean.NewCutList()

	// The uncertainty-estimation check always runs when configured; it
	// borrows the uncertainty cut's flag so rescaled points remain
	// identifiable by callers.
	if cfg.UncertEst != nil {
		if cfg.UncertCut == nil {
			return nil, fmt.Errorf("uncert_est requires an uncert_cut section for its reserved flag")
		}
		uncertFlag, err := ParseFlag(cfg.UncertCut.Flag)
		if err != nil {
			return nil, fmt.Errorf("uncert_cut: %w", err)
		}
		cut, err := clean.NewUncertEstCut(clean.UncertEstParams{
			TempX2Max:  cfg.UncertEst.TempX2MaxValue,
			UncertFlag: uncertFlag,
		})
		if err != nil {
			return nil, err
		}
		if err := cutList.Add(cut, clean.CutNameUncertEst); err != nil {
			return nil, err
		}
	}

	if sel.UncertCut {
		if cfg.UncertCut == nil {
			return nil, fmt.Errorf("uncertainty cut requested but no uncert_cut section configured")
		}
		flag, err := ParseFlag(cfg.UncertCut.Flag)
		if err != nil {
			return nil, fmt.Errorf("uncert_cut: %w", err)
		}
		cut, err := clean.NewPointCut(lightcurve.ColFluxErr, nil, clean.Float64(cfg.UncertCut.MaxValue), flag)
		if err != nil {
			return nil, fmt.Errorf("uncert_cut: %w", err)
		}
		if err := cutList.Add(cut, clean.CutNameUncert); err != nil {
			return nil, err
		}
	}

	if sel.X2Cut {
		if cfg.X2Cut == nil {
			return nil, fmt.Errorf("chi-square cut requested but no x2_cut section configured")
		}
		flag, err := ParseFlag(cfg.X2Cut.Flag)
		if err != nil {
			return nil, fmt.Errorf("x2_cut: %w", err)
		}
		cut, err := clean.NewChiSquareCut(cfg.X2Cut.MaxValue, flag, clean.ChiSquareParams{
			StnBound:   cfg.X2Cut.StnBound,
			MinCut:     cfg.X2Cut.MinCut,
			MaxCut:     cfg.X2Cut.MaxCut,
			CutStep:    cfg.X2Cut.CutStep,
			UsePreMJD0: cfg.X2Cut.UsePreMJD0LC,
		})
		if err != nil {
			return nil, fmt.Errorf("x2_cut: %w", err)
		}
		if err := cutList.Add(cut, clean.CutNameChiSquare); err != nil {
			return nil, err
		}
	}

	if sel.ControlsCut {
		if cfg.ControlsCut == nil {
			return nil, fmt.Errorf("control cut requested but no controls_cut section configured")
		}
		cut, err := buildControlCut(cfg.ControlsCut)
		if err != nil {
			return nil, err
		}
		if err := cutList.Add(cut, clean.CutNameControls); err != nil {
			return nil, err
		}
	}

	if sel.Averaging {
		if cfg.Averaging == nil {
			return nil, fmt.Errorf("averaging requested but no averaging section configured")
		}
		cut, err := buildAveragingCut(cfg.Averaging, sel.MJDBinSize)
		if err != nil {
			return nil, err
		}
		if err := cutList.Add(cut, clean.CutNameBadDay); err != nil {
			return nil, err
		}
	}

	if sel.CustomCuts {
		// Sort section names so cut order is deterministic across runs.
		names := make([]string, 0, len(cfg.CustomCuts))
		for name := range cfg.CustomCuts {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			section := cfg.CustomCuts[name]
			if section.Column == "" || section.Flag == "" {
				log.Warnf("skipping custom cut %q: column and flag are required", name)
				continue
			}
			flag, err := ParseFlag(section.Flag)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			minValue, err := parseOptionalBound(name, "min_value", section.MinValue)
			if err != nil {
				return nil, err
			}
			maxValue, err := parseOptionalBound(name, "max_value", section.MaxValue)
			if err != nil {
				return nil, err
			}
			cut, err := clean.NewPointCut(section.Column, minValue, maxValue, flag)
			if err != nil {
				log.Warnf("skipping custom cut %q: %v", name, err)
				continue
			}
			if err := cutList.Add(cut, name); err != nil {
				return nil, err
			}
		}
	}

	if err := cutList.Validate(); err != nil {
		return nil, err
	}
	return cutList, nil
}

func buildControlCut(data *ControlsCutData) (*clean.Cut, error) {
	badFlag, err := ParseFlag(data.BadFlag)
	if err != nil {
		return nil, fmt.Errorf("controls_cut bad_flag: %w", err)
	}
	params := clean.ControlCutParams{
		X2Max:    data.X2Max,
		StnMax:   data.StnMax,
		NclipMax: data.NclipMax,
		NgoodMin: data.NgoodMin,
	}
	for _, f := range []struct {
		name  string
		raw   string
		field *lightcurve.Flag
	}{
		{"questionable_flag", data.QuestionableFlag, &params.QuestionableFlag},
		{"x2_flag", data.X2Flag, &params.X2Flag},
		{"stn_flag", data.StnFlag, &params.StnFlag},
		{"Nclip_flag", data.NclipFlag, &params.NclipFlag},
		{"Ngood_flag", data.NgoodFlag, &params.NgoodFlag},
	} {
		if *f.field, err = ParseFlag(f.raw); err != nil {
			return nil, fmt.Errorf("controls_cut %s: %w", f.name, err)
		}
	}
	cut, err := clean.NewControlCut(badFlag, params)
	if err != nil {
		return nil, fmt.Errorf("controls_cut: %w", err)
	}
	return cut, nil
}

func buildAveragingCut(data *AveragingData, binSizeOverride *float64) (*clean.Cut, error) {
	baddayFlag, err := ParseFlag(data.Flag)
	if err != nil {
		return nil, fmt.Errorf("averaging flag: %w", err)
	}
	ixclipFlag, err := ParseFlag(data.IxclipFlag)
	if err != nil {
		return nil, fmt.Errorf("averaging ixclip_flag: %w", err)
	}
	smallnumFlag, err := ParseFlag(data.SmallnumFlag)
	if err != nil {
		return nil, fmt.Errorf("averaging smallnum_flag: %w", err)
	}
	binSize := data.MJDBinSize
	if binSizeOverride != nil {
		binSize = *binSizeOverride
	}
	cut, err := clean.NewAveragingCut(baddayFlag, clean.AveragingParams{
		MJDBinSize:   binSize,
		X2Max:        data.X2Max,
		NclipMax:     data.NclipMax,
		NgoodMin:     data.NgoodMin,
		IxclipFlag:   ixclipFlag,
		SmallnumFlag: smallnumFlag,
	})
	if err != nil {
		return nil, fmt.Errorf("averaging: %w", err)
	}
	return cut, nil
}

// parseOptionalBound parses a custom cut bound; empty and the literal
// "None" both mean unset.
func parseOptionalBound(section, key, raw string) (*float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "None" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", section, key, err)
	}
	return &v, nil
}
