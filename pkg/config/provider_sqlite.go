package config

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "modernc.org/sqlite"
)

// SQLiteProvider implements ConfigProvider for SQLite database
// configuration. The database holds one config table of
// (section, key, value) rows; sections and keys mirror the YAML layout,
// with top-level scalars under the "main" section and storage backends
// under "storage.<backend>".
type SQLiteProvider struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteProvider creates a new SQLite configuration provider
func NewSQLiteProvider(dbPath string) (*SQLiteProvider, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to SQLite database: %w", err)
	}
	return &SQLiteProvider{db: db, dbPath: dbPath}, nil
}

// Close closes the database connection.
func (s *SQLiteProvider) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// LoadConfig loads the complete configuration from the database.
func (s *SQLiteProvider) LoadConfig() (*ConfigData, error) {
	rows, err := s.db.Query(`SELECT section, key, value FROM config`)
	if err != nil {
		return nil, fmt.Errorf("failed to read config table: %w", err)
	}
	defer rows.Close()

	sections := make(map[string]map[string]string)
	for rows.Next() {
		var section, key, value string
		if err := rows.Scan(&section, &key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan config row: %w", err)
		}
		if sections[section] == nil {
			sections[section] = make(map[string]string)
		}
		sections[section][key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return configFromSections(sections)
}

// InitSchema creates the config table. Used by the config-convert tool.
func InitSchema(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS config (
		section TEXT NOT NULL,
		key     TEXT NOT NULL,
		value   TEXT NOT NULL,
		PRIMARY KEY (section, key)
	)`)
	return err
}

// configFromSections builds a ConfigData from string-typed sections.
func configFromSections(sections map[string]map[string]string) (*ConfigData, error) {
	cfg := &ConfigData{}

	if main, ok := sections["main"]; ok {
		if v, ok := main["filters"]; ok && v != "" {
			cfg.Filters = strings.Split(v, ",")
			for i := range cfg.Filters {
				cfg.Filters[i] = strings.TrimSpace(cfg.Filters[i])
			}
		}
		if v, ok := main["num_controls"]; ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				return nil, fmt.Errorf("main.num_controls: %w", err)
			}
			cfg.NumControls = n
		}
	}
	if dirs, ok := sections["dirs"]; ok {
		cfg.Dirs.Input = dirs["input"]
		cfg.Dirs.Output = dirs["output"]
	}

	if sec, ok := sections["uncert_est"]; ok {
		v, err := sectionFloat(sec, "uncert_est", "temp_x2_max_value")
		if err != nil {
			return nil, err
		}
		cfg.UncertEst = &UncertEstData{TempX2MaxValue: v}
	}
	if sec, ok := sections["uncert_cut"]; ok {
		v, err := sectionFloat(sec, "uncert_cut", "max_value")
		if err != nil {
			return nil, err
		}
		cfg.UncertCut = &UncertCutData{MaxValue: v, Flag: sec["flag"]}
	}
	if sec, ok := sections["x2_cut"]; ok {
		data := &X2CutData{Flag: sec["flag"]}
		var err error
		if data.MaxValue, err = sectionFloat(sec, "x2_cut", "max_value"); err != nil {
			return nil, err
		}
		if data.StnBound, err = sectionFloat(sec, "x2_cut", "stn_bound"); err != nil {
			return nil, err
		}
		if data.MinCut, err = sectionInt(sec, "x2_cut", "min_cut"); err != nil {
			return nil, err
		}
		if data.MaxCut, err = sectionInt(sec, "x2_cut", "max_cut"); err != nil {
			return nil, err
		}
		if data.CutStep, err = sectionInt(sec, "x2_cut", "cut_step"); err != nil {
			return nil, err
		}
		data.UsePreMJD0LC = sec["use_pre_mjd0_lc"] == "true" || sec["use_pre_mjd0_lc"] == "True"
		cfg.X2Cut = data
	}
	if sec, ok := sections["controls_cut"]; ok {
		data := &ControlsCutData{
			BadFlag:          sec["bad_flag"],
			QuestionableFlag: sec["questionable_flag"],
			X2Flag:           sec["x2_flag"],
			StnFlag:          sec["stn_flag"],
			NclipFlag:        sec["Nclip_flag"],
			NgoodFlag:        sec["Ngood_flag"],
		}
		var err error
		if data.X2Max, err = sectionFloat(sec, "controls_cut", "x2_max"); err != nil {
			return nil, err
		}
		if data.StnMax, err = sectionFloat(sec, "controls_cut", "stn_max"); err != nil {
			return nil, err
		}
		if data.NclipMax, err = sectionInt(sec, "controls_cut", "Nclip_max"); err != nil {
			return nil, err
		}
		if data.NgoodMin, err = sectionInt(sec, "controls_cut", "Ngood_min"); err != nil {
			return nil, err
		}
		cfg.ControlsCut = data
	}
	if sec, ok := sections["averaging"]; ok {
		data := &AveragingData{
			Flag:         sec["flag"],
			IxclipFlag:   sec["ixclip_flag"],
			SmallnumFlag: sec["smallnum_flag"],
		}
		var err error
		if data.MJDBinSize, err = sectionFloat(sec, "averaging", "mjd_bin_size"); err != nil {
			return nil, err
		}
		if data.X2Max, err = sectionFloat(sec, "averaging", "x2_max"); err != nil {
			return nil, err
		}
		if data.NclipMax, err = sectionInt(sec, "averaging", "Nclip_max"); err != nil {
			return nil, err
		}
		if data.NgoodMin, err = sectionInt(sec, "averaging", "Ngood_min"); err != nil {
			return nil, err
		}
		cfg.Averaging = data
	}

	if sec, ok := sections["storage.timescaledb"]; ok {
		cfg.Storage.TimescaleDB = &TimescaleDBData{ConnectionString: sec["connection_string"]}
	}
	if sec, ok := sections["storage.sninfo"]; ok {
		cfg.Storage.SnInfo = &SnInfoData{Path: sec["path"]}
	}

	for section, sec := range sections {
		if !strings.HasSuffix(section, "_cut") || reservedSections[section] {
			continue
		}
		if cfg.CustomCuts == nil {
			cfg.CustomCuts = make(map[string]CustomCutData)
		}
		cfg.CustomCuts[section] = CustomCutData{
			Column:   sec["column"],
			Flag:     sec["flag"],
			MinValue: sec["min_value"],
			MaxValue: sec["max_value"],
		}
	}

	return cfg, nil
}

func sectionFloat(sec map[string]string, section, key string) (float64, error) {
	raw, ok := sec[key]
	if !ok {
		return 0, fmt.Errorf("%s.%s: missing required key", section, key)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s.%s: %w", section, key, err)
	}
	return v, nil
}

func sectionInt(sec map[string]string, section, key string) (int, error) {
	raw, ok := sec[key]
	if !ok {
		return 0, fmt.Errorf("%s.%s: missing required key", section, key)
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s.%s: %w", section, key, err)
	}
	return v, nil
}
