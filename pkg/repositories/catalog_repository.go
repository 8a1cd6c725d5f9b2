package repositories

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ekaya-inc/plantsync/pkg/adapters/storage"
	"github.com/ekaya-inc/plantsync/pkg/catalog"
)

// CatalogRepository builds the run-scoped catalog from persisted state.
type CatalogRepository interface {
	// Load reads one snapshot through reader and indexes it. Runs pass their
	// locked transaction so the snapshot cannot go stale before the write.
	// A snapshot that maps one natural key to two ids fails with
	// apperrors.ErrCatalogInvariant.
	Load(ctx context.Context, reader storage.SnapshotReader) (*catalog.Catalog, error)
}

type catalogRepository struct {
	logger *zap.Logger
}

// NewCatalogRepository creates a catalog repository.
func NewCatalogRepository(logger *zap.Logger) CatalogRepository {
	return &catalogRepository{
		logger: logger.Named("catalog-repository"),
	}
}

func (r *catalogRepository) Load(ctx context.Context, reader storage.SnapshotReader) (*catalog.Catalog, error) {
	snapshot, err := reader.LoadSnapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	r.logger.Info("Loaded catalog snapshot",
		zap.Int("species", len(snapshot.Species)),
		zap.Int("botanists", len(snapshot.Botanists)),
		zap.Int("regions", len(snapshot.Regions)),
		zap.Int("locations", len(snapshot.Locations)),
		zap.Int("plants", len(snapshot.Plants)),
		zap.Int("countries", len(snapshot.Countries)),
		zap.Int("continents", len(snapshot.Continents)),
		zap.Int("recent_botanists", len(snapshot.RecentBotanists)))

	cat, err := catalog.New(snapshot)
	if err != nil {
		return nil, err
	}
	return cat, nil
}
