// Package timescaledb is the storage engine that writes cleaned
// measurements and averaged bins to a TimescaleDB database.
package timescaledb

import (
	"context"
	"sync"

	"github.com/atlas-clean/atclean/internal/clean"
	"github.com/atlas-clean/atclean/internal/database"
	"github.com/atlas-clean/atclean/internal/lightcurve"
	"github.com/atlas-clean/atclean/internal/log"
)

// Storage holds the configuration for a TimescaleDB storage backend
type Storage struct {
	client *database.Client
}

// New connects the TimescaleDB measurement sink.
func New(connectionString string) (*Storage, error) {
	client := database.NewClient(connectionString, log.GetSugaredLogger())
	if err := client.Connect(); err != nil {
		return nil, err
	}
	return &Storage{client: client}, nil
}

// StartStorageEngine creates a goroutine loop to receive results and
// send them off to TimescaleDB
func (t *Storage) StartStorageEngine(ctx context.Context, wg *sync.WaitGroup) chan<- clean.Result {
	log.Info("starting TimescaleDB storage engine...")
	resultChan := make(chan clean.Result, 10)
	wg.Add(1)
	go t.processResults(ctx, wg, resultChan)
	return resultChan
}

// processResults consumes the result channel until it is closed, so
// every completed unit is stored before shutdown.
func (t *Storage) processResults(ctx context.Context, wg *sync.WaitGroup, rchan <-chan clean.Result) {
	defer wg.Done()

	for r := range rchan {
		if err := t.StoreResult(r); err != nil {
			log.Errorf("could not store %s %s in TimescaleDB: %v",
				r.Transient.TNSName, r.Transient.Filter, err)
		}
	}
}

// StoreResult inserts one unit's cleaned measurements (primary and
// controls) and averaged bins in a single transaction.
func (t *Storage) StoreResult(r clean.Result) error {
	rows := measurementRows(r, 0, r.Transient.LC)
	for i, control := range r.Transient.Controls {
		rows = append(rows, measurementRows(r, i+1, control)...)
	}

	tx := t.client.DB.Begin()
	if tx.Error != nil {
		return tx.Error
	}
	if len(rows) > 0 {
		if err := tx.CreateInBatches(rows, 500).Error; err != nil {
			tx.Rollback()
			return err
		}
	}
	if r.Averaged != nil {
		binRows := make([]database.AveragedBinRow, 0, len(r.Averaged.Bins))
		for _, b := range r.Averaged.Bins {
			binRows = append(binRows, database.AveragedBinRow{
				RunID:     r.RunID,
				TNSName:   r.Transient.TNSName,
				Filter:    r.Transient.Filter,
				BinSize:   r.Averaged.BinSize,
				MJDCenter: b.MJDCenter,
				FluxUJy:   b.FluxUJy,
				FluxErr:   b.FluxErr,
				Stdev:     b.Stdev,
				X2:        b.X2,
				Nclip:     b.Nclip,
				Ngood:     b.Ngood,
				Flag:      int64(b.Flag),
			})
		}
		if len(binRows) > 0 {
			if err := tx.CreateInBatches(binRows, 500).Error; err != nil {
				tx.Rollback()
				return err
			}
		}
	}
	return tx.Commit().Error
}

func measurementRows(r clean.Result, controlIndex int, lc *lightcurve.LightCurve) []database.CleanedMeasurement {
	rows := make([]database.CleanedMeasurement, 0, lc.Len())
	for i := range lc.Points {
		m := &lc.Points[i]
		rows = append(rows, database.CleanedMeasurement{
			RunID:        r.RunID,
			TNSName:      r.Transient.TNSName,
			Filter:       r.Transient.Filter,
			ControlIndex: controlIndex,
			MJD:          m.MJD,
			FluxUJy:      m.FluxUJy,
			FluxErr:      m.FluxErr,
			Chi2:         m.Chi2,
			Flag:         int64(m.Flag),
		})
	}
	return rows
}
