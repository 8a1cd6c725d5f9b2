package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/plantsync/pkg/catalog"
	"github.com/ekaya-inc/plantsync/pkg/models"
)

func reconcile(t *testing.T, s *catalog.Snapshot, records ...models.RawRecord) (*models.Batch, *models.RunReport) {
	t.Helper()
	report := &models.RunReport{}
	batch := NewReconciler(newCatalog(t, s), testNow, zap.NewNop()).Reconcile(records, report)
	return batch, report
}

// Example 1: a new plant against empty catalogs queues one row of everything.
func TestReconcile_NewPlantWithEmptyCatalog(t *testing.T) {
	batch, report := reconcile(t, lookupSnapshot(), roseRecord(7))

	assert.Equal(t, models.BatchCounts{
		Regions: 1, Locations: 1, Species: 1, Botanists: 1, Plants: 1, Recordings: 1,
	}, batch.Counts())
	assert.Equal(t, batch.Counts(), report.Queued)

	assert.Equal(t, models.Species{ID: -1, CommonName: "Rose", ScientificName: "Rosa"}, batch.Species[0])
	assert.Equal(t, "Oxford", batch.Regions[0].TownName)
	assert.Equal(t, models.Coordinate{Longitude: 10, Latitude: 20}, batch.Locations[0].Key())
	assert.Equal(t, models.Botanist{ID: -1, FirstName: "Jane", LastName: "Doe", Email: "jane@x.com", Phone: "1"}, batch.Botanists[0])
	assert.Equal(t, models.Plant{ID: 7, LocationID: -1, SpeciesID: -1}, batch.Plants[0])

	rec := batch.Recordings[0]
	assert.Equal(t, models.ID(7), rec.PlantID)
	assert.Equal(t, models.ID(-1), rec.BotanistID)
	assert.Equal(t, 40.0, *rec.SoilMoisture)
	assert.Equal(t, 21.0, *rec.Temperature)
	assert.Equal(t, testNow, rec.TakenAt, "missing recording_taken uses the run clock")

	assert.Equal(t, 1, report.Records)
	assert.Equal(t, 1, report.Accepted)
	assert.Empty(t, report.Reasons)
}

// Example 2: the same plant next run with an unchanged last_watered.
func TestReconcile_KnownPlantUnchangedWatering(t *testing.T) {
	watered := time.Date(2024, 10, 25, 13, 54, 32, 0, time.UTC)
	s := lookupSnapshot()
	s.Species = []models.Species{{ID: 1, CommonName: "Rose", ScientificName: "Rosa"}}
	s.Regions = []models.Region{{ID: 1, TownName: "Oxford", ContinentID: 1, CountryID: 1}}
	s.Locations = []models.Location{{ID: 1, Longitude: 10, Latitude: 20, TownID: 1}}
	s.Botanists = []models.Botanist{{ID: 3, FirstName: "Jane", LastName: "Doe", Email: "jane@x.com", Phone: "1"}}
	s.Plants = []models.Plant{{ID: 7, LocationID: 1, SpeciesID: 1, LastWatering: &watered}}
	s.RecentBotanists = []models.PlantBotanist{{PlantID: 7, BotanistID: 3}}

	raw := roseRecord(7)
	raw["last_watered"] = "Fri, 25 Oct 2024 13:54:32 GMT"
	batch, report := reconcile(t, s, raw)

	assert.Equal(t, models.BatchCounts{Recordings: 1}, batch.Counts())
	assert.Equal(t, models.ID(3), batch.Recordings[0].BotanistID)
	assert.Empty(t, report.Reasons)
}

// Example 3: an invalid longitude blocks creation of a new plant and its recording.
func TestReconcile_InvalidGeographyForNewPlant(t *testing.T) {
	raw := roseRecord(7)
	raw["origin_location"] = []any{"200", "20", "Oxford", "GB", "Europe/UK"}

	batch, report := reconcile(t, lookupSnapshot(), raw)

	assert.True(t, batch.Empty())
	assert.Equal(t, 1, report.Accepted)
	assert.Equal(t, map[models.Reason]int{
		models.ReasonInvalidGeography: 1,
		models.ReasonPlantNotCreated:  1,
	}, report.Reasons)
}

// Example 4: no email, but the plant has a prior recording by botanist 3.
func TestReconcile_InheritsRecentBotanist(t *testing.T) {
	s := lookupSnapshot()
	s.Plants = []models.Plant{{ID: 7, LocationID: 1, SpeciesID: 1}}
	s.RecentBotanists = []models.PlantBotanist{{PlantID: 7, BotanistID: 3}}

	raw := roseRecord(7)
	raw["botanist"] = map[string]any{"name": "Jane Doe"}
	batch, _ := reconcile(t, s, raw)

	assert.Empty(t, batch.Botanists)
	require.Len(t, batch.Recordings, 1)
	assert.Equal(t, models.ID(3), batch.Recordings[0].BotanistID)
}

// Example 5: two records introduce the same species through different names.
func TestReconcile_SpeciesQueuedOnceAcrossAliases(t *testing.T) {
	first := roseRecord(7)

	viaCommon := roseRecord(8)
	delete(viaCommon, "scientific_name")

	viaScientific := roseRecord(9)
	delete(viaScientific, "name")
	viaScientific["scientific_name"] = "rosa"

	batch, _ := reconcile(t, lookupSnapshot(), first, viaCommon, viaScientific)

	require.Len(t, batch.Species, 1)
	require.Len(t, batch.Plants, 3)
	for _, p := range batch.Plants {
		assert.Equal(t, batch.Species[0].ID, p.SpeciesID)
	}
}

func TestReconcile_KnownPlantCreatesNoReferenceRows(t *testing.T) {
	s := lookupSnapshot()
	s.Plants = []models.Plant{{ID: 7, LocationID: 1, SpeciesID: 1}}

	raw := roseRecord(7)
	raw["name"] = "Brand New Species"
	raw["origin_location"] = []any{"55", "44", "Nowhere", "US", "America/North"}
	batch, _ := reconcile(t, s, raw)

	assert.Empty(t, batch.Species)
	assert.Empty(t, batch.Regions)
	assert.Empty(t, batch.Locations)
	assert.Empty(t, batch.Plants)
	assert.Len(t, batch.Botanists, 1)
	assert.Len(t, batch.Recordings, 1)
}

func TestReconcile_WateringMovesForwardOnly(t *testing.T) {
	persisted := time.Date(2024, 10, 20, 8, 0, 0, 0, time.UTC)
	s := lookupSnapshot()
	s.Plants = []models.Plant{{ID: 7, LocationID: 1, SpeciesID: 1, LastWatering: &persisted}}

	later := roseRecord(7)
	later["last_watered"] = "Fri, 25 Oct 2024 13:54:32 GMT"
	stale := roseRecord(7)
	stale["last_watered"] = "Mon, 21 Oct 2024 10:00:00 GMT"
	latest := roseRecord(7)
	latest["last_watered"] = "Sat, 26 Oct 2024 07:00:00 GMT"

	batch, report := reconcile(t, s, later, stale, latest)

	require.Len(t, batch.PlantUpdates, 1, "one update row per plant")
	assert.Equal(t, time.Date(2024, 10, 26, 7, 0, 0, 0, time.UTC), batch.PlantUpdates[0].LastWatering)
	assert.Equal(t, 1, report.Reasons[models.ReasonStaleWatering])
	assert.Len(t, batch.Recordings, 3)
}

func TestReconcile_WateringAmendsPendingPlant(t *testing.T) {
	first := roseRecord(7)
	first["last_watered"] = "Fri, 25 Oct 2024 13:54:32 GMT"
	second := roseRecord(7)
	second["last_watered"] = "Sat, 26 Oct 2024 07:00:00 GMT"

	batch, _ := reconcile(t, lookupSnapshot(), first, second)

	require.Len(t, batch.Plants, 1)
	assert.Empty(t, batch.PlantUpdates)
	require.NotNil(t, batch.Plants[0].LastWatering)
	assert.Equal(t, time.Date(2024, 10, 26, 7, 0, 0, 0, time.UTC), *batch.Plants[0].LastWatering)
}

func TestReconcile_RecordLevelReasons(t *testing.T) {
	missingID := roseRecord(1)
	delete(missingID, "plant_id")

	noReadings := roseRecord(2)
	delete(noReadings, "soil_moisture")
	delete(noReadings, "temperature")

	badTimestamp := roseRecord(3)
	badTimestamp["recording_taken"] = "yesterday"

	unknownCountry := roseRecord(4)
	unknownCountry["origin_location"] = []any{"1", "2", "Lyon", "FR", "Europe/West"}

	noBotanist := roseRecord(5)
	delete(noBotanist, "botanist")

	batch, report := reconcile(t, lookupSnapshot(), missingID, noReadings, badTimestamp, unknownCountry, noBotanist)

	assert.Equal(t, 5, report.Records)
	assert.Equal(t, 4, report.Accepted)
	assert.Equal(t, 1, report.Rejected)
	assert.Equal(t, map[models.Reason]int{
		models.ReasonMissingPlantID:      1,
		models.ReasonMissingReadings:     1,
		models.ReasonInvalidTimestamp:    1,
		models.ReasonUnresolvedGeography: 1,
		models.ReasonPlantNotCreated:     1,
		models.ReasonUnresolvedBotanist:  1,
	}, report.Reasons)

	// plants 2, 3 and 5 are created; only plant 3 gets a recording
	assert.Len(t, batch.Plants, 3)
	require.Len(t, batch.Recordings, 1)
	assert.Equal(t, models.ID(3), batch.Recordings[0].PlantID)
	assert.Equal(t, testNow, batch.Recordings[0].TakenAt)
}

func TestReconcile_NewBotanistInheritedByLaterRecord(t *testing.T) {
	withEmail := roseRecord(7)
	withoutEmail := roseRecord(7)
	withoutEmail["botanist"] = map[string]any{"name": "Someone Else"}

	batch, report := reconcile(t, lookupSnapshot(), withEmail, withoutEmail)

	require.Len(t, batch.Botanists, 1)
	require.Len(t, batch.Recordings, 2)
	assert.Equal(t, batch.Botanists[0].ID, batch.Recordings[1].BotanistID)
	assert.Empty(t, report.Reasons)
}

func TestReconcile_NoDuplicateNaturalKeys(t *testing.T) {
	var records []models.RawRecord
	for i := 0; i < 20; i++ {
		raw := roseRecord(i)
		if i%2 == 0 {
			raw["origin_location"] = []any{"11", "21", "Oxford", "GB", "Europe/UK"}
		}
		records = append(records, raw)
	}

	batch, _ := reconcile(t, lookupSnapshot(), records...)

	assert.Len(t, batch.Species, 1)
	assert.Len(t, batch.Regions, 1)
	assert.Len(t, batch.Locations, 2)
	assert.Len(t, batch.Botanists, 1)
	assert.Len(t, batch.Plants, 20)
	assert.Len(t, batch.Recordings, 20)

	seen := map[models.Coordinate]bool{}
	for _, l := range batch.Locations {
		assert.False(t, seen[l.Key()])
		seen[l.Key()] = true
	}
}
