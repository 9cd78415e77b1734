// Command config-convert converts a YAML cleaning configuration into
// the SQLite configuration backend.
package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"

	_ "modernc.org/sqlite"

	"github.com/atlas-clean/atclean/pkg/config"
)

func main() {
	in := flag.String("in", "config.yaml", "YAML configuration file to convert")
	out := flag.String("out", "config.db", "SQLite database to write")
	overwrite := flag.Bool("overwrite", false, "Overwrite an existing database")
	flag.Parse()

	if err := run(*in, *out, *overwrite); err != nil {
		fmt.Fprintf(os.Stderr, "config-convert: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("converted %s -> %s\n", *in, *out)
}

func run(in, out string, overwrite bool) error {
	if _, err := os.Stat(out); err == nil {
		if !overwrite {
			return fmt.Errorf("%s already exists (use -overwrite to replace)", out)
		}
		if err := os.Remove(out); err != nil {
			return err
		}
	}

	cfg, err := config.NewYAMLProvider(in).LoadConfig()
	if err != nil {
		return fmt.Errorf("loading %s: %w", in, err)
	}

	db, err := sql.Open("sqlite", out)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := config.InitSchema(db); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for section, keys := range config.SectionsFromConfig(cfg) {
		for key, value := range keys {
			if _, err := tx.Exec(
				`INSERT INTO config (section, key, value) VALUES (?, ?, ?)`,
				section, key, value); err != nil {
				return fmt.Errorf("writing %s.%s: %w", section, key, err)
			}
		}
	}
	return tx.Commit()
}
