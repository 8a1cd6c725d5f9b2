package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/ekaya-inc/plantsync/pkg/adapters/storage"
	"github.com/ekaya-inc/plantsync/pkg/logging"
	"github.com/ekaya-inc/plantsync/pkg/models"
)

// writeTx issues one INSERT ... SELECT FROM unnest(...) per entity type, so
// each stage is a single round trip regardless of batch size.
type writeTx struct {
	store *Store
	tx    pgx.Tx
}

func (w *writeTx) InsertRegions(ctx context.Context, rows []models.Region) (map[string]models.ID, error) {
	names := make([]string, len(rows))
	continents := make([]int64, len(rows))
	countries := make([]int64, len(rows))
	for i, r := range rows {
		names[i], continents[i], countries[i] = r.TownName, int64(r.ContinentID), int64(r.CountryID)
	}

	query := fmt.Sprintf(`INSERT INTO %s (town_name, continent_id, country_id)
SELECT * FROM unnest($1::text[], $2::bigint[], $3::bigint[])
RETURNING town_id, town_name`, w.store.table("regions"))

	ids := make(map[string]models.ID, len(rows))
	err := w.returning(ctx, "insert regions", query, []any{names, continents, countries}, func(row pgx.Row) error {
		var id models.ID
		var town string
		if err := row.Scan(&id, &town); err != nil {
			return err
		}
		ids[town] = id
		return nil
	})
	return ids, err
}

func (w *writeTx) InsertLocations(ctx context.Context, rows []models.Location) (map[models.Coordinate]models.ID, error) {
	lons := make([]float64, len(rows))
	lats := make([]float64, len(rows))
	towns := make([]int64, len(rows))
	for i, l := range rows {
		lons[i], lats[i], towns[i] = l.Longitude, l.Latitude, int64(l.TownID)
	}

	query := fmt.Sprintf(`INSERT INTO %s (longitude, latitude, town_id)
SELECT * FROM unnest($1::float8[], $2::float8[], $3::bigint[])
RETURNING location_id, longitude, latitude`, w.store.table("origins"))

	ids := make(map[models.Coordinate]models.ID, len(rows))
	err := w.returning(ctx, "insert origins", query, []any{lons, lats, towns}, func(row pgx.Row) error {
		var id models.ID
		var c models.Coordinate
		if err := row.Scan(&id, &c.Longitude, &c.Latitude); err != nil {
			return err
		}
		ids[c] = id
		return nil
	})
	return ids, err
}

func (w *writeTx) InsertSpecies(ctx context.Context, rows []models.Species) (map[string]models.ID, error) {
	common := make([]string, len(rows))
	scientific := make([]string, len(rows))
	for i, s := range rows {
		common[i], scientific[i] = s.CommonName, s.ScientificName
	}

	query := fmt.Sprintf(`INSERT INTO %s (common_name, scientific_name)
SELECT * FROM unnest($1::text[], $2::text[])
RETURNING plant_species_id, common_name`, w.store.table("plant_species"))

	ids := make(map[string]models.ID, len(rows))
	err := w.returning(ctx, "insert species", query, []any{common, scientific}, func(row pgx.Row) error {
		var id models.ID
		var name string
		if err := row.Scan(&id, &name); err != nil {
			return err
		}
		ids[name] = id
		return nil
	})
	return ids, err
}

func (w *writeTx) InsertBotanists(ctx context.Context, rows []models.Botanist) (map[models.BotanistKey]models.ID, error) {
	first := make([]string, len(rows))
	last := make([]string, len(rows))
	emails := make([]string, len(rows))
	phones := make([]*string, len(rows))
	for i, b := range rows {
		first[i], last[i], emails[i] = b.FirstName, b.LastName, b.Email
		if b.Phone != "" {
			phone := b.Phone
			phones[i] = &phone
		}
	}

	query := fmt.Sprintf(`INSERT INTO %s (first_name, last_name, email, phone)
SELECT * FROM unnest($1::text[], $2::text[], $3::text[], $4::text[])
RETURNING botanist_id, email, first_name, last_name`, w.store.table("botanists"))

	ids := make(map[models.BotanistKey]models.ID, len(rows))
	err := w.returning(ctx, "insert botanists", query, []any{first, last, emails, phones}, func(row pgx.Row) error {
		var id models.ID
		var key models.BotanistKey
		if err := row.Scan(&id, &key.Email, &key.FirstName, &key.LastName); err != nil {
			return err
		}
		ids[key] = id
		return nil
	})
	return ids, err
}

func (w *writeTx) InsertPlants(ctx context.Context, rows []models.Plant) (int64, error) {
	ids := make([]int64, len(rows))
	locations := make([]int64, len(rows))
	species := make([]int64, len(rows))
	watered := make([]*time.Time, len(rows))
	for i, p := range rows {
		ids[i], locations[i], species[i], watered[i] = int64(p.ID), int64(p.LocationID), int64(p.SpeciesID), p.LastWatering
	}

	query := fmt.Sprintf(`INSERT INTO %s (plant_id, location_id, plant_species_id, last_watering)
SELECT * FROM unnest($1::bigint[], $2::bigint[], $3::bigint[], $4::timestamp[])`, w.store.table("plants"))

	return w.exec(ctx, "insert plants", query, ids, locations, species, watered)
}

func (w *writeTx) InsertRecordings(ctx context.Context, rows []models.Recording) (int64, error) {
	taken := make([]time.Time, len(rows))
	moisture := make([]*float64, len(rows))
	temperature := make([]*float64, len(rows))
	plants := make([]int64, len(rows))
	botanists := make([]int64, len(rows))
	for i, r := range rows {
		taken[i], moisture[i], temperature[i] = r.TakenAt, r.SoilMoisture, r.Temperature
		plants[i], botanists[i] = int64(r.PlantID), int64(r.BotanistID)
	}

	query := fmt.Sprintf(`INSERT INTO %s (time_taken, soil_moisture, temperature, plant_id, botanist_id)
SELECT * FROM unnest($1::timestamp[], $2::float8[], $3::float8[], $4::bigint[], $5::bigint[])`, w.store.table("recordings"))

	return w.exec(ctx, "insert recordings", query, taken, moisture, temperature, plants, botanists)
}

func (w *writeTx) UpdatePlantWatering(ctx context.Context, rows []models.PlantUpdate) (int64, error) {
	ids := make([]int64, len(rows))
	watered := make([]time.Time, len(rows))
	for i, u := range rows {
		ids[i], watered[i] = int64(u.PlantID), u.LastWatering
	}

	// last_watering only moves forward, whatever the caller decided.
	query := fmt.Sprintf(`UPDATE %s AS p
SET last_watering = v.last_watering
FROM unnest($1::bigint[], $2::timestamp[]) AS v (plant_id, last_watering)
WHERE p.plant_id = v.plant_id
	AND (p.last_watering IS NULL OR p.last_watering < v.last_watering)`, w.store.table("plants"))

	return w.exec(ctx, "update plants", query, ids, watered)
}

func (w *writeTx) returning(ctx context.Context, op, query string, args []any, scan func(pgx.Row) error) error {
	rows, err := w.tx.Query(ctx, query, args...)
	if err != nil {
		return w.fail(op, query, err)
	}
	defer rows.Close()

	for rows.Next() {
		if err := scan(rows); err != nil {
			return fmt.Errorf("%s: scan returning: %w", op, err)
		}
	}
	if err := rows.Err(); err != nil {
		return w.fail(op, query, err)
	}
	return nil
}

func (w *writeTx) exec(ctx context.Context, op, query string, args ...any) (int64, error) {
	tag, err := w.tx.Exec(ctx, query, args...)
	if err != nil {
		return 0, w.fail(op, query, err)
	}
	return tag.RowsAffected(), nil
}

func (w *writeTx) fail(op, query string, err error) error {
	w.store.logger.Error("Write statement failed",
		zap.String("op", op),
		zap.String("query", logging.SanitizeQuery(query)),
		zap.Error(err))
	return wrapWriteError(op, err)
}

// Ensure writeTx implements storage.WriteTx at compile time.
var _ storage.WriteTx = (*writeTx)(nil)
