package mssql

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/ekaya-inc/plantsync/pkg/catalog"
	"github.com/ekaya-inc/plantsync/pkg/models"
)

// LoadSnapshot reads every reference table with one query each. It runs
// after the run lock is taken, so it sees every run committed before this one.
func (w *writeTx) LoadSnapshot(ctx context.Context) (*catalog.Snapshot, error) {
	var snap catalog.Snapshot
	var err error

	if snap.Species, err = queryRows(ctx, w.tx,
		fmt.Sprintf("SELECT plant_species_id, common_name, scientific_name FROM %s", w.store.table("plant_species")),
		scanSpecies); err != nil {
		return nil, fmt.Errorf("load species: %w", err)
	}
	if snap.Botanists, err = queryRows(ctx, w.tx,
		fmt.Sprintf("SELECT botanist_id, first_name, last_name, email, phone FROM %s", w.store.table("botanists")),
		scanBotanist); err != nil {
		return nil, fmt.Errorf("load botanists: %w", err)
	}
	if snap.Regions, err = queryRows(ctx, w.tx,
		fmt.Sprintf("SELECT town_id, town_name, continent_id, country_id FROM %s", w.store.table("regions")),
		scanRegion); err != nil {
		return nil, fmt.Errorf("load regions: %w", err)
	}
	if snap.Locations, err = queryRows(ctx, w.tx,
		fmt.Sprintf("SELECT location_id, longitude, latitude, town_id FROM %s", w.store.table("origins")),
		scanLocation); err != nil {
		return nil, fmt.Errorf("load origins: %w", err)
	}
	if snap.Plants, err = queryRows(ctx, w.tx,
		fmt.Sprintf("SELECT plant_id, location_id, plant_species_id, last_watering FROM %s", w.store.table("plants")),
		scanPlant); err != nil {
		return nil, fmt.Errorf("load plants: %w", err)
	}
	if snap.Countries, err = queryRows(ctx, w.tx,
		fmt.Sprintf("SELECT country_id, country_code FROM %s", w.store.table("countries")),
		scanCountry); err != nil {
		return nil, fmt.Errorf("load countries: %w", err)
	}
	if snap.Continents, err = queryRows(ctx, w.tx,
		fmt.Sprintf("SELECT continent_id, continent_name FROM %s", w.store.table("continents")),
		scanContinent); err != nil {
		return nil, fmt.Errorf("load continents: %w", err)
	}
	if snap.RecentBotanists, err = queryRows(ctx, w.tx, w.store.recentBotanistsQuery(), scanPlantBotanist); err != nil {
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

// recentBotanistsQuery picks the botanist of each plant's latest recording.
// Ties on time_taken go to the most recently inserted recording.
func (s *Store) recentBotanistsQuery() string {
	return fmt.Sprintf(`SELECT plant_id, botanist_id
FROM (
	SELECT plant_id, botanist_id,
		ROW_NUMBER() OVER (PARTITION BY plant_id ORDER BY time_taken DESC, recording_id DESC) AS rn
	FROM %s
) AS ranked
WHERE rn = 1`, s.table("recordings"))
}

type rowScanner interface {
	Scan(dest ...any) error
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func queryRows[T any](ctx context.Context, q queryer, query string, scan func(rowScanner) (T, error), args ...any) ([]T, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func scanSpecies(row rowScanner) (models.Species, error) {
	var sp models.Species
	var common, scientific sql.NullString
	if err := row.Scan(&sp.ID, &common, &scientific); err != nil {
		return sp, err
	}
	sp.CommonName, sp.ScientificName = common.String, scientific.String
	return sp, nil
}

func scanBotanist(row rowScanner) (models.Botanist, error) {
	var b models.Botanist
	var first, last, email, phone sql.NullString
	if err := row.Scan(&b.ID, &first, &last, &email, &phone); err != nil {
		return b, err
	}
	b.FirstName, b.LastName, b.Email, b.Phone = first.String, last.String, email.String, phone.String
	return b, nil
}

func scanRegion(row rowScanner) (models.Region, error) {
	var r models.Region
	err := row.Scan(&r.ID, &r.TownName, &r.ContinentID, &r.CountryID)
	return r, err
}

func scanLocation(row rowScanner) (models.Location, error) {
	var l models.Location
	err := row.Scan(&l.ID, &l.Longitude, &l.Latitude, &l.TownID)
	return l, err
}

func scanPlant(row rowScanner) (models.Plant, error) {
	var p models.Plant
	var watered sql.NullTime
	if err := row.Scan(&p.ID, &p.LocationID, &p.SpeciesID, &watered); err != nil {
		return p, err
	}
	if watered.Valid {
		t := watered.Time.UTC()
		p.LastWatering = &t
	}
	return p, nil
}

func scanCountry(row rowScanner) (models.Country, error) {
	var c models.Country
	err := row.Scan(&c.ID, &c.Code)
	return c, err
}

func scanContinent(row rowScanner) (models.Continent, error) {
	var c models.Continent
	err := row.Scan(&c.ID, &c.Name)
	return c, err
}

func scanPlantBotanist(row rowScanner) (models.PlantBotanist, error) {
	var pb models.PlantBotanist
	err := row.Scan(&pb.PlantID, &pb.BotanistID)
	return pb, err
}
