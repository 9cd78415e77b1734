package config

import (
	"database/sql"
	"path/filepath"
	"reflect"
	"testing"
)

// seedConfigDB writes the flattened sections into a fresh SQLite
// database and returns its path.
func seedConfigDB(t *testing.T, sections map[string]map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	defer db.Close()

	if err := InitSchema(db); err != nil {
		t.Fatalf("InitSchema: %v", err)
	}
	for section, keys := range sections {
		for key, value := range keys {
			if _, err := db.Exec(
				`INSERT INTO config (section, key, value) VALUES (?, ?, ?)`,
				section, key, value); err != nil {
				t.Fatalf("insert %s.%s: %v", section, key, err)
			}
		}
	}
	return path
}

func TestSQLiteProviderRoundTrip(t *testing.T) {
	// Flattening a configuration to sections and loading it back
	// through the SQLite provider must reproduce the original.
	original := fullConfig()
	original.Dirs = DirsData{Input: "/data/raw", Output: "/data/clean"}
	original.Storage.TimescaleDB = &TimescaleDBData{ConnectionString: "postgres://localhost/atclean"}
	original.Storage.SnInfo = &SnInfoData{Path: "/data/sninfo.db"}
	original.CustomCuts = map[string]CustomCutData{
		"flux_cut": {Column: "uJy", Flag: "0x10", MinValue: "-100"},
	}

	path := seedConfigDB(t, SectionsFromConfig(original))
	provider, err := NewSQLiteProvider(path)
	if err != nil {
		t.Fatalf("NewSQLiteProvider: %v", err)
	}
	defer provider.Close()

	loaded, err := provider.LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if !reflect.DeepEqual(loaded.Filters, original.Filters) {
		t.Errorf("filters = %v, expected %v", loaded.Filters, original.Filters)
	}
	if loaded.NumControls != original.NumControls {
		t.Errorf("num_controls = %d, expected %d", loaded.NumControls, original.NumControls)
	}
	if loaded.Dirs != original.Dirs {
		t.Errorf("dirs = %+v, expected %+v", loaded.Dirs, original.Dirs)
	}
	if !reflect.DeepEqual(loaded.UncertEst, original.UncertEst) {
		t.Errorf("uncert_est = %+v, expected %+v", loaded.UncertEst, original.UncertEst)
	}
	if !reflect.DeepEqual(loaded.UncertCut, original.UncertCut) {
		t.Errorf("uncert_cut = %+v, expected %+v", loaded.UncertCut, original.UncertCut)
	}
	if !reflect.DeepEqual(loaded.X2Cut, original.X2Cut) {
		t.Errorf("x2_cut = %+v, expected %+v", loaded.X2Cut, original.X2Cut)
	}
	if !reflect.DeepEqual(loaded.ControlsCut, original.ControlsCut) {
		t.Errorf("controls_cut = %+v, expected %+v", loaded.ControlsCut, original.ControlsCut)
	}
	if !reflect.DeepEqual(loaded.Averaging, original.Averaging) {
		t.Errorf("averaging = %+v, expected %+v", loaded.Averaging, original.Averaging)
	}
	if !reflect.DeepEqual(loaded.Storage, original.Storage) {
		t.Errorf("storage = %+v, expected %+v", loaded.Storage, original.Storage)
	}
	if !reflect.DeepEqual(loaded.CustomCuts, original.CustomCuts) {
		t.Errorf("custom cuts = %+v, expected %+v", loaded.CustomCuts, original.CustomCuts)
	}
}

func TestSQLiteProviderMissingRequiredKey(t *testing.T) {
	sections := SectionsFromConfig(fullConfig())
	delete(sections["x2_cut"], "stn_bound")

	provider, err := NewSQLiteProvider(seedConfigDB(t, sections))
	if err != nil {
		t.Fatalf("NewSQLiteProvider: %v", err)
	}
	defer provider.Close()

	if _, err := provider.LoadConfig(); err == nil {
		t.Error("missing x2_cut.stn_bound did not error")
	}
}

func TestSQLiteProviderFeedsCutList(t *testing.T) {
	provider, err := NewSQLiteProvider(seedConfigDB(t, SectionsFromConfig(fullConfig())))
	if err != nil {
		t.Fatalf("NewSQLiteProvider: %v", err)
	}
	defer provider.Close()

	cfg, err := provider.LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	cuts, err := BuildCutList(cfg, allCuts())
	if err != nil {
		t.Fatalf("BuildCutList: %v", err)
	}
	if cuts.Len() != 5 {
		t.Errorf("cuts = %v, expected the five reserved cuts", cuts.Names())
	}
}
