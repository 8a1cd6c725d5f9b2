package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/ekaya-inc/plantsync/pkg/catalog"
	"github.com/ekaya-inc/plantsync/pkg/models"
)

// LoadSnapshot reads every reference table with one query each. It runs
// after the run lock is taken, so it sees every run committed before this one.
func (w *writeTx) LoadSnapshot(ctx context.Context) (*catalog.Snapshot, error) {
	var snap catalog.Snapshot
	var err error

	if snap.Species, err = collect(ctx, w,
		"SELECT plant_species_id, common_name, scientific_name FROM %s", "plant_species",
		func(row pgx.CollectableRow) (models.Species, error) {
			var sp models.Species
			var common, scientific *string
			err := row.Scan(&sp.ID, &common, &scientific)
			sp.CommonName, sp.ScientificName = deref(common), deref(scientific)
			return sp, err
		}); err != nil {
		return nil, fmt.Errorf("load species: %w", err)
	}

	if snap.Botanists, err = collect(ctx, w,
		"SELECT botanist_id, first_name, last_name, email, phone FROM %s", "botanists",
		func(row pgx.CollectableRow) (models.Botanist, error) {
			var b models.Botanist
			var first, last, email, phone *string
			err := row.Scan(&b.ID, &first, &last, &email, &phone)
			b.FirstName, b.LastName, b.Email, b.Phone = deref(first), deref(last), deref(email), deref(phone)
			return b, err
		}); err != nil {
		return nil, fmt.Errorf("load botanists: %w", err)
	}

	if snap.Regions, err = collect(ctx, w,
		"SELECT town_id, town_name, continent_id, country_id FROM %s", "regions",
		func(row pgx.CollectableRow) (models.Region, error) {
			var r models.Region
			err := row.Scan(&r.ID, &r.TownName, &r.ContinentID, &r.CountryID)
			return r, err
		}); err != nil {
		return nil, fmt.Errorf("load regions: %w", err)
	}

	if snap.Locations, err = collect(ctx, w,
		"SELECT location_id, longitude, latitude, town_id FROM %s", "origins",
		func(row pgx.CollectableRow) (models.Location, error) {
			var l models.Location
			err := row.Scan(&l.ID, &l.Longitude, &l.Latitude, &l.TownID)
			return l, err
		}); err != nil {
		return nil, fmt.Errorf("load origins: %w", err)
	}

	if snap.Plants, err = collect(ctx, w,
		"SELECT plant_id, location_id, plant_species_id, last_watering FROM %s", "plants",
		func(row pgx.CollectableRow) (models.Plant, error) {
			var p models.Plant
			var watered *time.Time
			if err := row.Scan(&p.ID, &p.LocationID, &p.SpeciesID, &watered); err != nil {
				return p, err
			}
			if watered != nil {
				t := watered.UTC()
				p.LastWatering = &t
			}
			return p, nil
		}); err != nil {
		return nil, fmt.Errorf("load plants: %w", err)
	}

	if snap.Countries, err = collect(ctx, w,
		"SELECT country_id, country_code FROM %s", "countries",
		func(row pgx.CollectableRow) (models.Country, error) {
			var c models.Country
			err := row.Scan(&c.ID, &c.Code)
			return c, err
		}); err != nil {
		return nil, fmt.Errorf("load countries: %w", err)
	}

	if snap.Continents, err = collect(ctx, w,
		"SELECT continent_id, continent_name FROM %s", "continents",
		func(row pgx.CollectableRow) (models.Continent, error) {
			var c models.Continent
			err := row.Scan(&c.ID, &c.Name)
			return c, err
		}); err != nil {
		return nil, fmt.Errorf("load continents: %w", err)
	}

	// Latest recording per plant; ties on time_taken go to the newest row.
	if snap.RecentBotanists, err = collect(ctx, w,
		`SELECT DISTINCT ON (plant_id) plant_id, botanist_id
FROM %s
ORDER BY plant_id, time_taken DESC, recording_id DESC`, "recordings",
		func(row pgx.CollectableRow) (models.PlantBotanist, error) {
			var pb models.PlantBotanist
			err := row.Scan(&pb.PlantID, &pb.BotanistID)
			return pb, err
		}); err != nil {
		return nil, fmt.Errorf("load recent botanists: %w", err)
	}

	w.store.logger.Debug("Loaded snapshot",
		zap.Int("species", len(snap.Species)),
		zap.Int("botanists", len(snap.Botanists)),
		zap.Int("regions", len(snap.Regions)),
		zap.Int("origins", len(snap.Locations)),
		zap.Int("plants", len(snap.Plants)))
	return &snap, nil
}

// collect runs a single-table query whose %s is replaced by the qualified
// table name.
func collect[T any](ctx context.Context, w *writeTx, query, table string, scan pgx.RowToFunc[T]) ([]T, error) {
	rows, err := w.tx.Query(ctx, fmt.Sprintf(query, w.store.table(table)))
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scan)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
