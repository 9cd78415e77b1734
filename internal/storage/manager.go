package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/atlas-clean/atclean/internal/clean"
	"github.com/atlas-clean/atclean/internal/log"
	"github.com/atlas-clean/atclean/internal/storage/sninfodb"
	"github.com/atlas-clean/atclean/internal/storage/timescaledb"
	"github.com/atlas-clean/atclean/pkg/config"
)

// Manager holds our active storage backends
type Manager struct {
	Engines           []Engine
	ResultDistributor chan clean.Result
}

// Engine holds a backend storage engine's interface as well as a
// channel for passing results to the engine
type Engine struct {
	Engine StorageEngineInterface
	C      chan<- clean.Result
}

// NewManager creates a Manager object, populated with all configured
// storage engines.
func NewManager(ctx context.Context, wg *sync.WaitGroup, cfg *config.ConfigData) (*Manager, error) {
	m := &Manager{}

	// Initialize our channel for passing results to the distributor
	m.ResultDistributor = make(chan clean.Result, 20)

	// Start our result distributor to distribute received results to
	// storage backends
	wg.Add(1)
	go m.startResultDistributor(ctx, wg)

	// Check the configuration for supported storage backends and
	// enable them if found

	if cfg.Storage.TimescaleDB != nil && cfg.Storage.TimescaleDB.ConnectionString != "" {
		if err := m.AddEngine(ctx, wg, "timescaledb", cfg); err != nil {
			return m, fmt.Errorf("could not add TimescaleDB storage backend: %v", err)
		}
	}

	if cfg.Storage.SnInfo != nil && cfg.Storage.SnInfo.Path != "" {
		if err := m.AddEngine(ctx, wg, "sninfo", cfg); err != nil {
			return m, fmt.Errorf("could not add sninfo storage backend: %v", err)
		}
	}

	return m, nil
}

// AddEngine adds a new storage engine of name engineName to the Manager
func (m *Manager) AddEngine(ctx context.Context, wg *sync.WaitGroup, engineName string, cfg *config.ConfigData) error {
	var engine Engine
	switch engineName {
	case "timescaledb":
		se, err := timescaledb.New(cfg.Storage.TimescaleDB.ConnectionString)
		if err != nil {
			return err
		}
		engine.Engine = se
	case "sninfo":
		se, err := sninfodb.New(cfg.Storage.SnInfo.Path)
		if err != nil {
			return err
		}
		engine.Engine = se
	default:
		return fmt.Errorf("unknown storage engine %q", engineName)
	}
	engine.C = engine.Engine.StartStorageEngine(ctx, wg)
	m.Engines = append(m.Engines, engine)
	return nil
}

// Submit hands one completed unit to every configured backend.
func (m *Manager) Submit(r clean.Result) {
	m.ResultDistributor <- r
}

// Close signals that no further results will arrive. Queued results
// still drain to every backend before the engines shut down.
func (m *Manager) Close() {
	close(m.ResultDistributor)
}

// startResultDistributor receives results from the cleaning workers
// and fans them out to all configured storage backends. It drains the
// queue on Close so a completed unit is never dropped.
func (m *Manager) startResultDistributor(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	for r := range m.ResultDistributor {
		for _, e := range m.Engines {
			e.C <- r
		}
	}
	for _, e := range m.Engines {
		close(e.C)
	}
	log.Debug("result distributor finished")
}
