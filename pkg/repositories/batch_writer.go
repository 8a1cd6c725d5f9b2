package repositories

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ekaya-inc/plantsync/pkg/adapters/storage"
	"github.com/ekaya-inc/plantsync/pkg/apperrors"
	"github.com/ekaya-inc/plantsync/pkg/models"
)

// BatchWriter persists a reconciled batch through a storage transaction.
type BatchWriter interface {
	// Write runs every stage in dependency order: regions, locations, species,
	// botanists, plants, recordings, then the last_watering updates. Pending
	// ids are replaced by the ids each stage returns before the next stage
	// runs. batch itself is not modified, so Write can be retried.
	Write(ctx context.Context, tx storage.WriteTx, batch *models.Batch) (models.BatchCounts, error)
}

type batchWriter struct {
	logger *zap.Logger
}

// NewBatchWriter creates a new batch writer.
func NewBatchWriter(logger *zap.Logger) BatchWriter {
	return &batchWriter{
		logger: logger.Named("batch-writer"),
	}
}

// idMap maps pending ids of one entity type to database ids.
type idMap map[models.ID]models.ID

// resolve returns id unchanged when it is already persisted.
func (m idMap) resolve(id models.ID, what string) (models.ID, error) {
	if !id.IsPending() {
		return id, nil
	}
	dbID, ok := m[id]
	if !ok {
		return 0, fmt.Errorf("%w: %s %d", apperrors.ErrUnresolvedReference, what, id)
	}
	return dbID, nil
}

// bind records pending → real for one inserted row, failing when the insert
// did not report the row's natural key back.
func bind[K comparable](m idMap, pending models.ID, returned map[K]models.ID, key K, what string) error {
	dbID, ok := returned[key]
	if !ok {
		return fmt.Errorf("%w: no id returned for %s %v", apperrors.ErrUnresolvedReference, what, key)
	}
	m[pending] = dbID
	return nil
}

func (w *batchWriter) Write(ctx context.Context, tx storage.WriteTx, batch *models.Batch) (models.BatchCounts, error) {
	var written models.BatchCounts
	towns, locations, species, botanists := idMap{}, idMap{}, idMap{}, idMap{}

	if len(batch.Regions) > 0 {
		ids, err := tx.InsertRegions(ctx, batch.Regions)
		if err != nil {
			return written, fmt.Errorf("insert regions: %w", err)
		}
		for _, r := range batch.Regions {
			if err := bind(towns, r.ID, ids, r.TownName, "region"); err != nil {
				return written, err
			}
		}
		written.Regions = len(batch.Regions)
	}

	if len(batch.Locations) > 0 {
		rows := make([]models.Location, len(batch.Locations))
		for i, l := range batch.Locations {
			townID, err := towns.resolve(l.TownID, "region")
			if err != nil {
				return written, err
			}
			l.TownID = townID
			rows[i] = l
		}
		ids, err := tx.InsertLocations(ctx, rows)
		if err != nil {
			return written, fmt.Errorf("insert locations: %w", err)
		}
		for _, l := range batch.Locations {
			if err := bind(locations, l.ID, ids, l.Key(), "location"); err != nil {
				return written, err
			}
		}
		written.Locations = len(rows)
	}

	if len(batch.Species) > 0 {
		ids, err := tx.InsertSpecies(ctx, batch.Species)
		if err != nil {
			return written, fmt.Errorf("insert species: %w", err)
		}
		for _, s := range batch.Species {
			if err := bind(species, s.ID, ids, s.CommonName, "species"); err != nil {
				return written, err
			}
		}
		written.Species = len(batch.Species)
	}

	if len(batch.Botanists) > 0 {
		ids, err := tx.InsertBotanists(ctx, batch.Botanists)
		if err != nil {
			return written, fmt.Errorf("insert botanists: %w", err)
		}
		for _, b := range batch.Botanists {
			if err := bind(botanists, b.ID, ids, b.Key(), "botanist"); err != nil {
				return written, err
			}
		}
		written.Botanists = len(batch.Botanists)
	}

	if len(batch.Plants) > 0 {
		rows := make([]models.Plant, len(batch.Plants))
		for i, p := range batch.Plants {
			var err error
			if p.LocationID, err = locations.resolve(p.LocationID, "location"); err != nil {
				return written, err
			}
			if p.SpeciesID, err = species.resolve(p.SpeciesID, "species"); err != nil {
				return written, err
			}
			rows[i] = p
		}
		n, err := tx.InsertPlants(ctx, rows)
		if err != nil {
			return written, fmt.Errorf("insert plants: %w", err)
		}
		written.Plants = int(n)
	}

	if len(batch.Recordings) > 0 {
		rows := make([]models.Recording, len(batch.Recordings))
		for i, r := range batch.Recordings {
			var err error
			if r.BotanistID, err = botanists.resolve(r.BotanistID, "botanist"); err != nil {
				return written, err
			}
			rows[i] = r
		}
		n, err := tx.InsertRecordings(ctx, rows)
		if err != nil {
			return written, fmt.Errorf("insert recordings: %w", err)
		}
		written.Recordings = int(n)
	}

	if len(batch.PlantUpdates) > 0 {
		n, err := tx.UpdatePlantWatering(ctx, batch.PlantUpdates)
		if err != nil {
			return written, fmt.Errorf("update plant watering: %w", err)
		}
		// The store skips rows whose stored last_watering is already as late,
		// so fewer affected rows is not an error.
		if int(n) < len(batch.PlantUpdates) {
			w.logger.Warn("Some last_watering updates were not applied",
				zap.Int("queued", len(batch.PlantUpdates)),
				zap.Int64("applied", n))
		}
		written.PlantUpdates = int(n)
	}

	w.logger.Info("Batch written",
		zap.Int("regions", written.Regions),
		zap.Int("locations", written.Locations),
		zap.Int("species", written.Species),
		zap.Int("botanists", written.Botanists),
		zap.Int("plants", written.Plants),
		zap.Int("recordings", written.Recordings),
		zap.Int("plant_updates", written.PlantUpdates))

	return written, nil
}
