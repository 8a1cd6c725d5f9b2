package services

import (
	"go.uber.org/zap"

	"github.com/ekaya-inc/plantsync/pkg/catalog"
	"github.com/ekaya-inc/plantsync/pkg/models"
)

// EntityResolver turns a validated record into resolved foreign keys, queuing
// reference rows in the batch for every natural key the catalog has not seen.
// All deduplication goes through the catalog's Register calls.
type EntityResolver struct {
	catalog *catalog.Catalog
	batch   *models.Batch
	logger  *zap.Logger
}

// NewEntityResolver creates a resolver that queues creations into batch.
func NewEntityResolver(cat *catalog.Catalog, batch *models.Batch, logger *zap.Logger) *EntityResolver {
	return &EntityResolver{
		catalog: cat,
		batch:   batch,
		logger:  logger.Named("entity-resolver"),
	}
}

// geographyPlan is the outcome of checking an origin before anything is queued.
type geographyPlan struct {
	locationID  models.ID
	found       bool
	townID      models.ID
	townFound   bool
	continentID models.ID
	countryID   models.ID
}

// ResolveNewPlant resolves species and location for a plant the catalog does
// not know and queues the plant. Everything is checked before anything is
// queued, so a record that cannot produce a plant leaves no orphaned
// reference rows behind. Returns the reason when the plant is not created.
func (r *EntityResolver) ResolveNewPlant(rec *models.TelemetryRecord) (models.Reason, bool) {
	if rec.Origin == nil {
		return models.ReasonInvalidGeography, false
	}
	if rec.CommonName == "" && len(rec.ScientificNames) == 0 {
		return models.ReasonUnresolvedSpecies, false
	}
	geo, ok := r.planGeography(rec.Origin)
	if !ok {
		return models.ReasonUnresolvedGeography, false
	}

	speciesID := r.resolveSpecies(rec)
	locationID := r.resolveLocation(rec.Origin, geo)

	plant := models.Plant{
		ID:           rec.PlantID,
		LocationID:   locationID,
		SpeciesID:    speciesID,
		LastWatering: rec.LastWatered,
	}
	r.catalog.RegisterPlant(plant.ID, plant.LastWatering)
	r.batch.AddPlant(plant)

	r.logger.Debug("Queued plant creation",
		zap.Int64("plant_id", int64(plant.ID)),
		zap.Int64("species_id", int64(speciesID)),
		zap.Int64("location_id", int64(locationID)))
	return "", true
}

// planGeography decides whether a location can be resolved for origin without
// queuing anything.
func (r *EntityResolver) planGeography(origin *models.Origin) (geographyPlan, bool) {
	var plan geographyPlan
	if id, ok := r.catalog.LookupLocation(origin.Longitude, origin.Latitude); ok {
		plan.locationID, plan.found = id, true
		return plan, true
	}
	if id, ok := r.catalog.LookupTown(origin.Town); ok {
		plan.townID, plan.townFound = id, true
		return plan, true
	}

	countryID, hasCountry := r.catalog.LookupCountry(origin.CountryCode)
	continentID, hasContinent := r.catalog.LookupContinent(origin.Continent)
	if !hasCountry || !hasContinent {
		r.logger.Info("Cannot create region: unknown country or continent",
			zap.String("town", origin.Town),
			zap.String("country_code", origin.CountryCode),
			zap.String("continent", origin.Continent),
			zap.Bool("country_found", hasCountry),
			zap.Bool("continent_found", hasContinent))
		return plan, false
	}
	plan.countryID, plan.continentID = countryID, continentID
	return plan, true
}

// resolveSpecies tries the common name, then each scientific alias; the first
// hit wins. Without a hit one species is queued, using the first scientific
// alias (or the common name when there is none) as its scientific name.
func (r *EntityResolver) resolveSpecies(rec *models.TelemetryRecord) models.ID {
	if id, ok := r.catalog.LookupSpecies(rec.CommonName); ok {
		return id
	}
	for _, alias := range rec.ScientificNames {
		if id, ok := r.catalog.LookupSpecies(alias); ok {
			return id
		}
	}

	common := rec.CommonName
	scientific := common
	if len(rec.ScientificNames) > 0 {
		scientific = rec.ScientificNames[0]
	}
	if common == "" {
		common = scientific
	}

	id, created := r.catalog.RegisterSpecies(common, rec.ScientificNames)
	if created {
		r.batch.Species = append(r.batch.Species, models.Species{
			ID:             id,
			CommonName:     common,
			ScientificName: scientific,
		})
		r.logger.Debug("Queued species creation",
			zap.String("common_name", common),
			zap.String("scientific_name", scientific))
	}
	return id
}

func (r *EntityResolver) resolveLocation(origin *models.Origin, plan geographyPlan) models.ID {
	if plan.found {
		return plan.locationID
	}

	townID := plan.townID
	if !plan.townFound {
		id, created := r.catalog.RegisterTown(origin.Town)
		if created {
			r.batch.Regions = append(r.batch.Regions, models.Region{
				ID:          id,
				TownName:    origin.Town,
				ContinentID: plan.continentID,
				CountryID:   plan.countryID,
			})
			r.logger.Debug("Queued region creation", zap.String("town", origin.Town))
		}
		townID = id
	}

	id, created := r.catalog.RegisterLocation(origin.Coordinate())
	if created {
		r.batch.Locations = append(r.batch.Locations, models.Location{
			ID:        id,
			Longitude: origin.Longitude,
			Latitude:  origin.Latitude,
			TownID:    townID,
		})
		r.logger.Debug("Queued location creation",
			zap.Float64("longitude", origin.Longitude),
			zap.Float64("latitude", origin.Latitude))
	}
	return id
}
