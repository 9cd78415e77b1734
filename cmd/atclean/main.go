package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/atlas-clean/atclean/internal/app"
	"github.com/atlas-clean/atclean/internal/log"
	"github.com/atlas-clean/atclean/pkg/config"
)

const version = "1.0-" + runtime.GOOS + "/" + runtime.GOARCH

func main() {
	cfgFile := flag.String("config", "config.yaml", "Path to configuration source (YAML file or SQLite database)")
	cfgBackend := flag.String("config-backend", "yaml", "Configuration backend type: 'yaml' or 'sqlite'")
	overwrite := flag.Bool("overwrite", false, "Overwrite existing output files")
	filters := flag.String("filters", "", "Comma-separated list of filters to clean (default from config, else o,c)")
	mjd0 := flag.Float64("mjd0", 0, "Transient reference epoch in MJD (single transient only)")
	numControls := flag.Int("num-controls", -1, "Number of control light curves to load and clean (default from config)")
	uncertEst := flag.Bool("uncert-est", false, "Apply the true-uncertainty rescale when the pre-pass requires it")
	uncertCut := flag.Bool("uncert-cut", false, "Apply the flux-uncertainty cut")
	x2Cut := flag.Bool("x2-cut", false, "Apply the chi-square cut")
	controlsCut := flag.Bool("controls-cut", false, "Apply the control light curve cut")
	averaging := flag.Bool("averaging", false, "Average light curves and flag bad days")
	mjdBinSize := flag.Float64("mjd-bin-size", 0, "MJD bin size in days for averaging (overrides config)")
	customCuts := flag.Bool("custom-cuts", false, "Apply custom cuts found in the config")
	workers := flag.Int("workers", 4, "Number of concurrent cleaning workers")
	debug := flag.Bool("debug", false, "Turn on debugging output")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("atclean %s\n", version)
		os.Exit(0)
	}

	// Set up logging
	if err := log.Init(*debug); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	tnsnames := flag.Args()
	if len(tnsnames) < 1 {
		log.Fatal("specify at least one TNS name to clean")
	}
	mjd0Set := flagWasSet("mjd0")
	if len(tnsnames) > 1 && mjd0Set {
		log.Fatalf("cannot specify one MJD0 %g for a batch of transients", *mjd0)
	}

	cfg, err := loadConfig(*cfgFile, *cfgBackend)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	if cfg.Dirs.Input == "" || cfg.Dirs.Output == "" {
		log.Fatal("configuration must set dirs.input and dirs.output")
	}

	selection := config.CutSelection{
		UncertCut:   *uncertCut,
		X2Cut:       *x2Cut,
		ControlsCut: *controlsCut,
		Averaging:   *averaging,
		CustomCuts:  *customCuts,
	}
	if flagWasSet("mjd-bin-size") {
		selection.MJDBinSize = mjdBinSize
	}

	// Configuration errors are fatal before any unit runs.
	cutList, err := config.BuildCutList(cfg, selection)
	if err != nil {
		log.Fatalf("invalid cut configuration: %v", err)
	}
	for _, name := range cutList.Names() {
		log.Infof("configured cut %s: %s", name, cutList.Get(name))
	}

	opts := app.Options{
		TNSNames:       tnsnames,
		Filters:        resolveFilters(*filters, cfg),
		MJD0:           app.ResolveMJD0(mjd0Set, *mjd0),
		NumControls:    resolveNumControls(*numControls, cfg),
		Overwrite:      *overwrite,
		ApplyUncertEst: *uncertEst,
		Workers:        *workers,
	}

	application := app.New(cfg, cutList, opts, log.GetSugaredLogger())
	if err := application.Run(context.Background()); err != nil {
		log.Errorf("application error: %v", err)
		os.Exit(1)
	}
}

func loadConfig(cfgFile, cfgBackend string) (*config.ConfigData, error) {
	filename, _ := filepath.Abs(cfgFile)

	var provider config.ConfigProvider
	var err error

	switch cfgBackend {
	case "yaml":
		provider = config.NewYAMLProvider(filename)
	case "sqlite":
		provider, err = config.NewSQLiteProvider(filename)
		if err != nil {
			return nil, fmt.Errorf("error creating SQLite provider: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported configuration backend: %s. Use 'yaml' or 'sqlite'", cfgBackend)
	}
	defer provider.Close()

	cfgData, err := provider.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("error reading config. Did you pass the -config flag? Run with -h for help: %w", err)
	}

	return cfgData, nil
}

func resolveFilters(flagValue string, cfg *config.ConfigData) []string {
	if flagValue != "" {
		parts := strings.Split(flagValue, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	if len(cfg.Filters) > 0 {
		return cfg.Filters
	}
	// ATLAS observes in orange and cyan.
	return []string{"o", "c"}
}

func resolveNumControls(flagValue int, cfg *config.ConfigData) int {
	if flagValue >= 0 {
		return flagValue
	}
	return cfg.NumControls
}

func flagWasSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}
