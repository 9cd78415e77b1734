package config

import (
	"strconv"
	"strings"
)

// SectionsFromConfig flattens a configuration into (section, key,
// value) string triples, the layout used by the SQLite backend. It is
// the inverse of configFromSections.
func SectionsFromConfig(cfg *ConfigData) map[string]map[string]string {
	sections := make(map[string]map[string]string)

	main := map[string]string{}
	if len(cfg.Filters) > 0 {
		main["filters"] = strings.Join(cfg.Filters, ",")
	}
	if cfg.NumControls != 0 {
		main["num_controls"] = strconv.Itoa(cfg.NumControls)
	}
	if len(main) > 0 {
		sections["main"] = main
	}

	if cfg.Dirs.Input != "" || cfg.Dirs.Output != "" {
		sections["dirs"] = map[string]string{
			"input":  cfg.Dirs.Input,
			"output": cfg.Dirs.Output,
		}
	}

	if cfg.UncertEst != nil {
		sections["uncert_est"] = map[string]string{
			"temp_x2_max_value": formatFloat(cfg.UncertEst.TempX2MaxValue),
		}
	}
	if cfg.UncertCut != nil {
		sections["uncert_cut"] = map[string]string{
			"max_value": formatFloat(cfg.UncertCut.MaxValue),
			"flag":      cfg.UncertCut.Flag,
		}
	}
	if cfg.X2Cut != nil {
		sections["x2_cut"] = map[string]string{
			"max_value":       formatFloat(cfg.X2Cut.MaxValue),
			"flag":            cfg.X2Cut.Flag,
			"stn_bound":       formatFloat(cfg.X2Cut.StnBound),
			"min_cut":         strconv.Itoa(cfg.X2Cut.MinCut),
			"max_cut":         strconv.Itoa(cfg.X2Cut.MaxCut),
			"cut_step":        strconv.Itoa(cfg.X2Cut.CutStep),
			"use_pre_mjd0_lc": strconv.FormatBool(cfg.X2Cut.UsePreMJD0LC),
		}
	}
	if cfg.ControlsCut != nil {
		sections["controls_cut"] = map[string]string{
			"bad_flag":          cfg.ControlsCut.BadFlag,
			"questionable_flag": cfg.ControlsCut.QuestionableFlag,
			"x2_max":            formatFloat(cfg.ControlsCut.X2Max),
			"x2_flag":           cfg.ControlsCut.X2Flag,
			"stn_max":           formatFloat(cfg.ControlsCut.StnMax),
			"stn_flag":          cfg.ControlsCut.StnFlag,
			"Nclip_max":         strconv.Itoa(cfg.ControlsCut.NclipMax),
			"Nclip_flag":        cfg.ControlsCut.NclipFlag,
			"Ngood_min":         strconv.Itoa(cfg.ControlsCut.NgoodMin),
			"Ngood_flag":        cfg.ControlsCut.NgoodFlag,
		}
	}
	if cfg.Averaging != nil {
		sections["averaging"] = map[string]string{
			"flag":          cfg.Averaging.Flag,
			"mjd_bin_size":  formatFloat(cfg.Averaging.MJDBinSize),
			"x2_max":        formatFloat(cfg.Averaging.X2Max),
			"Nclip_max":     strconv.Itoa(cfg.Averaging.NclipMax),
			"Ngood_min":     strconv.Itoa(cfg.Averaging.NgoodMin),
			"ixclip_flag":   cfg.Averaging.IxclipFlag,
			"smallnum_flag": cfg.Averaging.SmallnumFlag,
		}
	}

	if cfg.Storage.TimescaleDB != nil {
		sections["storage.timescaledb"] = map[string]string{
			"connection_string": cfg.Storage.TimescaleDB.ConnectionString,
		}
	}
	if cfg.Storage.SnInfo != nil {
		sections["storage.sninfo"] = map[string]string{
			"path": cfg.Storage.SnInfo.Path,
		}
	}

	for name, custom := range cfg.CustomCuts {
		sec := map[string]string{
			"column": custom.Column,
			"flag":   custom.Flag,
		}
		if custom.MinValue != "" {
			sec["min_value"] = custom.MinValue
		}
		if custom.MaxValue != "" {
			sec["max_value"] = custom.MaxValue
		}
		sections[name] = sec
	}

	return sections
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
