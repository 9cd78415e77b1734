// Package sninfodb is the storage engine that records cleaning
// summaries in the SQLite transient-info database.
package sninfodb

import (
	"context"
	"sync"

	"github.com/atlas-clean/atclean/internal/clean"
	"github.com/atlas-clean/atclean/internal/log"
	"github.com/atlas-clean/atclean/internal/sninfo"
)

// Storage holds the open sninfo store.
type Storage struct {
	store *sninfo.Store
}

// New opens the sninfo database at path.
func New(path string) (*Storage, error) {
	store, err := sninfo.Open(path)
	if err != nil {
		return nil, err
	}
	return &Storage{store: store}, nil
}

// StartStorageEngine creates a goroutine loop to receive results and
// record them in the sninfo database
func (s *Storage) StartStorageEngine(ctx context.Context, wg *sync.WaitGroup) chan<- clean.Result {
	log.Info("starting sninfo storage engine...")
	resultChan := make(chan clean.Result, 10)
	wg.Add(1)
	go s.processResults(ctx, wg, resultChan)
	return resultChan
}

// processResults consumes the result channel until it is closed, so
// every completed unit is recorded before shutdown.
func (s *Storage) processResults(ctx context.Context, wg *sync.WaitGroup, rchan <-chan clean.Result) {
	defer wg.Done()
	defer s.store.Close()

	for r := range rchan {
		if err := s.store.RecordSummary(r.RunID, r.Transient, r.Summary); err != nil {
			log.Errorf("could not record %s %s in sninfo database: %v",
				r.Transient.TNSName, r.Transient.Filter, err)
		}
	}
}
