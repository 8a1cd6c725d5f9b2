package mssql

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/ekaya-inc/plantsync/pkg/adapters/storage"
	"github.com/ekaya-inc/plantsync/pkg/logging"
	"github.com/ekaya-inc/plantsync/pkg/models"
)

// writeTx issues multi-row INSERT ... OUTPUT statements inside one
// transaction, split into chunks that respect the parameter limit.
type writeTx struct {
	store *Store
	tx    *sql.Tx
}

var (
	regionCols   = []string{"town_name", "continent_id", "country_id"}
	locationCols = []string{"longitude", "latitude", "town_id"}
	speciesCols  = []string{"common_name", "scientific_name"}
	botanistCols = []string{"first_name", "last_name", "email", "phone"}
	plantCols    = []string{"plant_id", "location_id", "plant_species_id", "last_watering"}
	recordCols   = []string{"time_taken", "soil_moisture", "temperature", "plant_id", "botanist_id"}
)

func (w *writeTx) InsertRegions(ctx context.Context, rows []models.Region) (map[string]models.ID, error) {
	ids := make(map[string]models.ID, len(rows))
	err := chunks(len(rows), rowsPerChunk(len(regionCols)), func(start, end int) error {
		args := make([]any, 0, (end-start)*len(regionCols))
		for _, r := range rows[start:end] {
			args = append(args, r.TownName, r.ContinentID, r.CountryID)
		}
		query := buildInsert(w.store.table("regions"), regionCols, []string{"town_id", "town_name"}, end-start)
		return w.collect(ctx, "insert regions", query, args, func(row rowScanner) error {
			var id models.ID
			var town string
			if err := row.Scan(&id, &town); err != nil {
				return err
			}
			ids[town] = id
			return nil
		})
	})
	return ids, err
}

func (w *writeTx) InsertLocations(ctx context.Context, rows []models.Location) (map[models.Coordinate]models.ID, error) {
	ids := make(map[models.Coordinate]models.ID, len(rows))
	err := chunks(len(rows), rowsPerChunk(len(locationCols)), func(start, end int) error {
		args := make([]any, 0, (end-start)*len(locationCols))
		for _, l := range rows[start:end] {
			args = append(args, l.Longitude, l.Latitude, l.TownID)
		}
		query := buildInsert(w.store.table("origins"), locationCols, []string{"location_id", "longitude", "latitude"}, end-start)
		return w.collect(ctx, "insert origins", query, args, func(row rowScanner) error {
			var id models.ID
			var c models.Coordinate
			if err := row.Scan(&id, &c.Longitude, &c.Latitude); err != nil {
				return err
			}
			ids[c] = id
			return nil
		})
	})
	return ids, err
}

func (w *writeTx) InsertSpecies(ctx context.Context, rows []models.Species) (map[string]models.ID, error) {
	ids := make(map[string]models.ID, len(rows))
	err := chunks(len(rows), rowsPerChunk(len(speciesCols)), func(start, end int) error {
		args := make([]any, 0, (end-start)*len(speciesCols))
		for _, s := range rows[start:end] {
			args = append(args, s.CommonName, s.ScientificName)
		}
		query := buildInsert(w.store.table("plant_species"), speciesCols, []string{"plant_species_id", "common_name"}, end-start)
		return w.collect(ctx, "insert species", query, args, func(row rowScanner) error {
			var id models.ID
			var common string
			if err := row.Scan(&id, &common); err != nil {
				return err
			}
			ids[common] = id
			return nil
		})
	})
	return ids, err
}

func (w *writeTx) InsertBotanists(ctx context.Context, rows []models.Botanist) (map[models.BotanistKey]models.ID, error) {
	ids := make(map[models.BotanistKey]models.ID, len(rows))
	err := chunks(len(rows), rowsPerChunk(len(botanistCols)), func(start, end int) error {
		args := make([]any, 0, (end-start)*len(botanistCols))
		for _, b := range rows[start:end] {
			args = append(args, b.FirstName, b.LastName, b.Email, nullString(b.Phone))
		}
		query := buildInsert(w.store.table("botanists"), botanistCols,
			[]string{"botanist_id", "email", "first_name", "last_name"}, end-start)
		return w.collect(ctx, "insert botanists", query, args, func(row rowScanner) error {
			var id models.ID
			var key models.BotanistKey
			if err := row.Scan(&id, &key.Email, &key.FirstName, &key.LastName); err != nil {
				return err
			}
			ids[key] = id
			return nil
		})
	})
	return ids, err
}

func (w *writeTx) InsertPlants(ctx context.Context, rows []models.Plant) (int64, error) {
	var total int64
	err := chunks(len(rows), rowsPerChunk(len(plantCols)), func(start, end int) error {
		args := make([]any, 0, (end-start)*len(plantCols))
		for _, p := range rows[start:end] {
			args = append(args, p.ID, p.LocationID, p.SpeciesID, p.LastWatering)
		}
		n, err := w.exec(ctx, "insert plants", buildInsert(w.store.table("plants"), plantCols, nil, end-start), args)
		total += n
		return err
	})
	return total, err
}

func (w *writeTx) InsertRecordings(ctx context.Context, rows []models.Recording) (int64, error) {
	var total int64
	err := chunks(len(rows), rowsPerChunk(len(recordCols)), func(start, end int) error {
		args := make([]any, 0, (end-start)*len(recordCols))
		for _, r := range rows[start:end] {
			args = append(args, r.TakenAt, r.SoilMoisture, r.Temperature, r.PlantID, r.BotanistID)
		}
		n, err := w.exec(ctx, "insert recordings", buildInsert(w.store.table("recordings"), recordCols, nil, end-start), args)
		total += n
		return err
	})
	return total, err
}

func (w *writeTx) UpdatePlantWatering(ctx context.Context, rows []models.PlantUpdate) (int64, error) {
	var total int64
	err := chunks(len(rows), rowsPerChunk(2), func(start, end int) error {
		args := make([]any, 0, (end-start)*2)
		for _, u := range rows[start:end] {
			args = append(args, u.PlantID, u.LastWatering)
		}
		n, err := w.exec(ctx, "update plants", buildWateringUpdate(w.store.table("plants"), end-start), args)
		total += n
		return err
	})
	return total, err
}

// collect runs an INSERT ... OUTPUT and hands every returned row to scan.
func (w *writeTx) collect(ctx context.Context, op, query string, args []any, scan func(rowScanner) error) error {
	rows, err := w.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return w.fail(op, query, err)
	}
	defer rows.Close()

	for rows.Next() {
		if err := scan(rows); err != nil {
			return fmt.Errorf("%s: scan output: %w", op, err)
		}
	}
	if err := rows.Err(); err != nil {
		return w.fail(op, query, err)
	}
	return nil
}

func (w *writeTx) exec(ctx context.Context, op, query string, args []any) (int64, error) {
	res, err := w.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, w.fail(op, query, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: rows affected: %w", op, err)
	}
	return n, nil
}

func (w *writeTx) fail(op, query string, err error) error {
	w.store.logger.Error("Write statement failed",
		zap.String("op", op),
		zap.String("query", logging.SanitizeQuery(query)),
		zap.Error(err))
	return wrapWriteError(op, err)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Ensure writeTx implements storage.WriteTx at compile time.
var _ storage.WriteTx = (*writeTx)(nil)
