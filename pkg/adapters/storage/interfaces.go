// Package storage defines the persistence boundary of the reconciliation
// engine. Each backend lives in its own subpackage and registers itself here
// from init().
package storage

import (
	"context"
	"time"

	"github.com/ekaya-inc/plantsync/pkg/catalog"
	"github.com/ekaya-inc/plantsync/pkg/models"
)

// Store is an open connection to a catalog database.
// Each implementation owns its connection pool and must be closed when done.
type Store interface {
	// RunInTx runs fn in one transaction while holding the run-level lock.
	// The lock is taken before fn runs and released when the transaction
	// ends, so a snapshot read through tx already reflects every earlier run.
	// fn's error rolls everything back. Failing to get the lock within
	// lock.Timeout returns apperrors.ErrLockNotAcquired.
	RunInTx(ctx context.Context, lock Lock, fn func(ctx context.Context, tx WriteTx) error) error

	// Ping verifies the database is reachable with valid credentials.
	Ping(ctx context.Context) error

	// Close releases the connection pool.
	Close() error
}

// Lock names the run-level lock. Runs sharing a key are serialized.
type Lock struct {
	Key     string
	Timeout time.Duration
}

// SnapshotReader reads every reference table once. The number of queries
// does not depend on the batch size.
type SnapshotReader interface {
	LoadSnapshot(ctx context.Context) (*catalog.Snapshot, error)
}

// WriteTx is the locked run transaction. It reads the catalog snapshot and
// writes one entity type per call, in a single bulk statement where
// the backend allows it. Rows passed in never carry pending ids in foreign
// key columns; the batch writer resolves those first.
//
// Insert methods that create rows with database-assigned ids return those ids
// keyed by the natural key of each inserted row.
type WriteTx interface {
	SnapshotReader

	InsertRegions(ctx context.Context, rows []models.Region) (map[string]models.ID, error)
	InsertLocations(ctx context.Context, rows []models.Location) (map[models.Coordinate]models.ID, error)
	InsertSpecies(ctx context.Context, rows []models.Species) (map[string]models.ID, error)
	InsertBotanists(ctx context.Context, rows []models.Botanist) (map[models.BotanistKey]models.ID, error)
	InsertPlants(ctx context.Context, rows []models.Plant) (int64, error)
	InsertRecordings(ctx context.Context, rows []models.Recording) (int64, error)
	UpdatePlantWatering(ctx context.Context, rows []models.PlantUpdate) (int64, error)
}
