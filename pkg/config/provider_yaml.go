package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v2"
)

// YAMLProvider implements ConfigProvider for YAML configuration files
type YAMLProvider struct {
	filename string
}

// NewYAMLProvider creates a new YAML configuration provider
func NewYAMLProvider(filename string) *YAMLProvider {
	return &YAMLProvider{filename: filename}
}

// LoadConfig loads the complete configuration from the YAML file,
// including any custom sections whose key ends in _cut.
func (y *YAMLProvider) LoadConfig() (*ConfigData, error) {
	raw, err := os.ReadFile(y.filename)
	if err != nil {
		return nil, err
	}

	var cfg ConfigData
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", y.filename, err)
	}

	customCuts, err := extractCustomCuts(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", y.filename, err)
	}
	cfg.CustomCuts = customCuts
	return &cfg, nil
}

// Close is a no-op for file-based configuration.
func (y *YAMLProvider) Close() error {
	return nil
}

// reservedSections are the top-level keys that are never custom cuts.
var reservedSections = map[string]bool{
	"uncert_est":   true,
	"uncert_cut":   true,
	"x2_cut":       true,
	"controls_cut": true,
	"badday_cut":   true,
}

// extractCustomCuts scans the raw document for sections ending in _cut
// outside the reserved set. Custom sections are free-form, so they are
// decoded from a generic map rather than the typed struct.
func extractCustomCuts(raw []byte) (map[string]CustomCutData, error) {
	var doc map[string]map[interface{}]interface{}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}

	custom := make(map[string]CustomCutData)
	for section, body := range doc {
		if !strings.HasSuffix(section, "_cut") || reservedSections[section] {
			continue
		}
		var cut CustomCutData
		for k, v := range body {
			key, ok := k.(string)
			if !ok {
				continue
			}
			value := fmt.Sprintf("%v", v)
			switch key {
			case "column":
				cut.Column = value
			case "flag":
				cut.Flag = value
			case "min_value":
				cut.MinValue = value
			case "max_value":
				cut.MaxValue = value
			}
		}
		custom[section] = cut
	}
	if len(custom) == 0 {
		return nil, nil
	}
	return custom, nil
}
