// Package app wires configuration, the cleaning engine, and the
// storage backends into the batch cleaning application.
package app

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/atlas-clean/atclean/internal/clean"
	"github.com/atlas-clean/atclean/internal/lightcurve"
	"github.com/atlas-clean/atclean/internal/storage"
	"github.com/atlas-clean/atclean/pkg/config"
)

// Options hold the fully resolved runtime selections for one batch.
type Options struct {
	TNSNames       []string
	Filters        []string
	MJD0           float64 // NaN when unknown
	NumControls    int
	Overwrite      bool
	ApplyUncertEst bool
	Workers        int
}

// App is the batch cleaning application.
type App struct {
	cfg    *config.ConfigData
	cuts   *clean.CutList
	opts   Options
	logger *zap.SugaredLogger
}

// New creates the application. The cut list must already be validated.
func New(cfg *config.ConfigData, cuts *clean.CutList, opts Options, logger *zap.SugaredLogger) *App {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	return &App{cfg: cfg, cuts: cuts, opts: opts, logger: logger}
}

// unit is one (transient, filter) pair. Units share no mutable state
// and are processed concurrently by independent workers.
type unit struct {
	tnsname string
	filter  string
}

// Run processes every (transient, filter) unit in the batch. A unit
// failure is logged and does not abort the batch; Run returns an error
// only when every unit failed or the storage backends could not start.
func (a *App) Run(ctx context.Context) error {
	wg := &sync.WaitGroup{}
	manager, err := storage.NewManager(ctx, wg, a.cfg)
	if err != nil {
		return err
	}

	runID := uuid.New().String()
	a.logger.Infof("starting cleaning run %s: %d transient(s), filters %v",
		runID, len(a.opts.TNSNames), a.opts.Filters)

	var units []unit
	for _, tnsname := range a.opts.TNSNames {
		for _, filter := range a.opts.Filters {
			units = append(units, unit{tnsname: tnsname, filter: filter})
		}
	}

	jobs := make(chan unit)

	var mu sync.Mutex
	failures := 0

	var workers sync.WaitGroup
	nWorkers := a.opts.Workers
	if nWorkers > len(units) {
		nWorkers = len(units)
	}
	for w := 0; w < nWorkers; w++ {
		workers.Add(1)
		go func() {
			defer workers.Done()
			for u := range jobs {
				if err := a.processUnit(runID, u, manager); err != nil {
					a.logger.Errorf("cleaning %s %s failed: %v", u.tnsname, u.filter, err)
					mu.Lock()
					failures++
					mu.Unlock()
				}
			}
		}()
	}

	for _, u := range units {
		select {
		case jobs <- u:
		case <-ctx.Done():
			close(jobs)
			workers.Wait()
			manager.Close()
			wg.Wait()
			return ctx.Err()
		}
	}
	close(jobs)
	workers.Wait()

	manager.Close()
	wg.Wait()

	a.logger.Infof("cleaning run %s finished: %d unit(s) processed, %d failed",
		runID, len(units), failures)
	if failures == len(units) {
		return fmt.Errorf("all %d cleaning units failed", len(units))
	}
	return nil
}

// processUnit cleans one (transient, filter) pair end to end: load,
// clean, save, then hand the result to the storage backends. The unit
// completes or fails atomically.
func (a *App) processUnit(runID string, u unit, manager *storage.Manager) error {
	t := lightcurve.NewTransient(u.tnsname, u.filter, a.opts.MJD0)
	if err := t.Load(a.cfg.Dirs.Input, a.opts.NumControls); err != nil {
		return err
	}

	summary, avg, err := clean.Run(t, a.cuts, clean.Options{ApplyUncertEst: a.opts.ApplyUncertEst})
	if err != nil {
		return err
	}

	if err := t.Save(a.cfg.Dirs.Output, a.opts.Overwrite); err != nil {
		return err
	}
	if avg != nil {
		if err := t.SaveAveraged(a.cfg.Dirs.Output, avg, a.opts.Overwrite); err != nil {
			return err
		}
	}

	manager.Submit(clean.Result{
		RunID:     runID,
		Transient: t,
		Averaged:  avg,
		Summary:   summary,
		Overwrite: a.opts.Overwrite,
	})

	a.logSummary(summary)
	return nil
}

func (a *App) logSummary(s *clean.Summary) {
	a.logger.Infof("%s %s: %d measurements", s.TNSName, s.Filter, s.Points)
	if s.UncertEst.SampleSize > 0 {
		a.logger.Infof("%s %s: uncertainty estimation: typical %.2f uJy, true %.2f uJy, rescale required=%v applied=%v (factor %.3f)",
			s.TNSName, s.Filter, s.UncertEst.SigmaTypical, s.UncertEst.SigmaTrue,
			s.UncertEst.Required, s.UncertEst.Applied, s.UncertEst.Factor)
	}
	for _, count := range s.CutCounts {
		a.logger.Infof("%s %s: %d point(s) flagged by cut %s", s.TNSName, s.Filter, count.Flagged, count.Name)
	}
	for _, row := range s.X2Analysis {
		a.logger.Debugf("%s %s: chi-square ceiling %d: contamination %.2f%%, loss %.2f%%",
			s.TNSName, s.Filter, row.Cut, row.ContaminationPct, row.LossPct)
	}
}

// ResolveMJD0 converts the driver's optional flag value into the
// engine's NaN-when-unknown convention.
func ResolveMJD0(set bool, value float64) float64 {
	if !set {
		return math.NaN()
	}
	return value
}
