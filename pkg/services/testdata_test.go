package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/plantsync/pkg/catalog"
	"github.com/ekaya-inc/plantsync/pkg/models"
	"github.com/ekaya-inc/plantsync/pkg/validation"
)

var testNow = time.Date(2024, 10, 25, 15, 0, 0, 0, time.UTC)

// lookupSnapshot has only the static lookup tables, as on a first run.
func lookupSnapshot() *catalog.Snapshot {
	return &catalog.Snapshot{
		Countries:  []models.Country{{ID: 1, Code: "GB"}, {ID: 2, Code: "US"}},
		Continents: []models.Continent{{ID: 1, Name: "Europe"}, {ID: 2, Name: "America"}},
	}
}

func newCatalog(t *testing.T, s *catalog.Snapshot) *catalog.Catalog {
	t.Helper()
	c, err := catalog.New(s)
	require.NoError(t, err)
	return c
}

func roseRecord(plantID int) models.RawRecord {
	return models.RawRecord{
		"plant_id":        float64(plantID),
		"name":            "Rose",
		"scientific_name": []any{"Rosa"},
		"botanist": map[string]any{
			"name":  "Jane Doe",
			"email": "jane@x.com",
			"phone": "1",
		},
		"soil_moisture":   float64(40),
		"temperature":     float64(21),
		"origin_location": []any{"10", "20", "Oxford", "GB", "Europe/UK"},
	}
}

func validated(t *testing.T, raw models.RawRecord) *models.TelemetryRecord {
	t.Helper()
	result := validation.Validate(raw)
	require.False(t, result.Rejected, "record rejected: %s", result.Reason)
	return result.Record
}

func timePtr(t time.Time) *time.Time { return &t }

func floatPtr(v float64) *float64 { return &v }
