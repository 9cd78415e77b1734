// Package storage defines interfaces and implementations for cleaned
// light curve storage backends. The cleaned text tables are written
// synchronously by the cleaning workers; the engines here are the
// additional sinks (TimescaleDB, the sninfo database).
package storage

import (
	"context"
	"sync"

	"github.com/atlas-clean/atclean/internal/clean"
)

// StorageEngineInterface is an interface that provides a few
// standardized methods for various storage backends
type StorageEngineInterface interface {
	StartStorageEngine(context.Context, *sync.WaitGroup) chan<- clean.Result
}
