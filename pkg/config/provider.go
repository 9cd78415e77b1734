// Package config loads cleaning configuration from YAML files or
// SQLite databases and turns cut sections into a validated cut list.
package config

// ConfigProvider defines the interface for configuration data sources
type ConfigProvider interface {
	// Load complete configuration
	LoadConfig() (*ConfigData, error)

	Close() error
}

// ConfigData represents the complete configuration structure. Flag
// values are hexadecimal strings (e.g. "0x1A") and are parsed when the
// cut list is built.
type ConfigData struct {
	Dirs        DirsData         `yaml:"dirs"`
	Filters     []string         `yaml:"filters,omitempty"`
	NumControls int              `yaml:"num_controls,omitempty"`
	UncertEst   *UncertEstData   `yaml:"uncert_est,omitempty"`
	UncertCut   *UncertCutData   `yaml:"uncert_cut,omitempty"`
	X2Cut       *X2CutData       `yaml:"x2_cut,omitempty"`
	ControlsCut *ControlsCutData `yaml:"controls_cut,omitempty"`
	Averaging   *AveragingData   `yaml:"averaging,omitempty"`
	Storage     StorageData      `yaml:"storage,omitempty"`

	// CustomCuts holds additional sections whose key ends in _cut and
	// is not one of the reserved default cut names.
	CustomCuts map[string]CustomCutData `yaml:"-"`
}

// DirsData holds the input and output directories for light curve files.
type DirsData struct {
	Input  string `yaml:"input"`
	Output string `yaml:"output"`
}

// UncertEstData configures the uncertainty-estimation pre-pass.
type UncertEstData struct {
	TempX2MaxValue float64 `yaml:"temp_x2_max_value"`
}

// UncertCutData configures the flux-uncertainty ceiling cut.
type UncertCutData struct {
	MaxValue float64 `yaml:"max_value"`
	Flag     string  `yaml:"flag"`
}

// X2CutData configures the chi-square cut and its analysis table.
type X2CutData struct {
	MaxValue     float64 `yaml:"max_value"`
	Flag         string  `yaml:"flag"`
	StnBound     float64 `yaml:"stn_bound"`
	MinCut       int     `yaml:"min_cut"`
	MaxCut       int     `yaml:"max_cut"`
	CutStep      int     `yaml:"cut_step"`
	UsePreMJD0LC bool    `yaml:"use_pre_mjd0_lc"`
}

// ControlsCutData configures the control-statistics cut.
type ControlsCutData struct {
	BadFlag          string  `yaml:"bad_flag"`
	QuestionableFlag string  `yaml:"questionable_flag"`
	X2Max            float64 `yaml:"x2_max"`
	X2Flag           string  `yaml:"x2_flag"`
	StnMax           float64 `yaml:"stn_max"`
	StnFlag          string  `yaml:"stn_flag"`
	NclipMax         int     `yaml:"Nclip_max"`
	NclipFlag        string  `yaml:"Nclip_flag"`
	NgoodMin         int     `yaml:"Ngood_min"`
	NgoodFlag        string  `yaml:"Ngood_flag"`
}

// AveragingData configures bad-day averaging.
type AveragingData struct {
	Flag         string  `yaml:"flag"`
	MJDBinSize   float64 `yaml:"mjd_bin_size"`
	X2Max        float64 `yaml:"x2_max"`
	NclipMax     int     `yaml:"Nclip_max"`
	NgoodMin     int     `yaml:"Ngood_min"`
	IxclipFlag   string  `yaml:"ixclip_flag"`
	SmallnumFlag string  `yaml:"smallnum_flag"`
}

// CustomCutData is a user-defined point cut section. MinValue and
// MaxValue are kept as strings because the literal "None" means unset.
type CustomCutData struct {
	Column   string `yaml:"column"`
	Flag     string `yaml:"flag"`
	MinValue string `yaml:"min_value,omitempty"`
	MaxValue string `yaml:"max_value,omitempty"`
}

// StorageData holds the configuration for optional storage backends.
type StorageData struct {
	TimescaleDB *TimescaleDBData `yaml:"timescaledb,omitempty"`
	SnInfo      *SnInfoData      `yaml:"sninfo,omitempty"`
}

// TimescaleDBData configures the TimescaleDB measurement sink.
type TimescaleDBData struct {
	ConnectionString string `yaml:"connection_string"`
}

// SnInfoData configures the SQLite transient-info store.
type SnInfoData struct {
	Path string `yaml:"path"`
}
