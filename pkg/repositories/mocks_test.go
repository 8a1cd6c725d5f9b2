package repositories

import (
	"context"

	"github.com/ekaya-inc/plantsync/pkg/adapters/storage"
	"github.com/ekaya-inc/plantsync/pkg/catalog"
	"github.com/ekaya-inc/plantsync/pkg/models"
)

// fakeWriteTx serves a fixed snapshot, assigns ids from 100 upward and
// records every row it receives, in call order.
type fakeWriteTx struct {
	calls []string

	regions    []models.Region
	locations  []models.Location
	species    []models.Species
	botanists  []models.Botanist
	plants     []models.Plant
	recordings []models.Recording
	updates    []models.PlantUpdate

	nextID models.ID

	// dropKeys makes the fake omit returned ids, simulating a driver that lost rows.
	dropKeys bool
	// updateShortfall makes UpdatePlantWatering report fewer affected rows.
	updateShortfall int64
	failOn          string
	failErr         error

	snapshot *catalog.Snapshot
	loadErr  error
	loads    int
}

var _ storage.WriteTx = (*fakeWriteTx)(nil)

func newFakeWriteTx() *fakeWriteTx {
	return &fakeWriteTx{nextID: 100}
}

func (f *fakeWriteTx) id() models.ID {
	f.nextID++
	return f.nextID
}

func (f *fakeWriteTx) enter(name string) error {
	f.calls = append(f.calls, name)
	if f.failOn == name {
		return f.failErr
	}
	return nil
}

func (f *fakeWriteTx) LoadSnapshot(context.Context) (*catalog.Snapshot, error) {
	f.loads++
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.snapshot, nil
}

func (f *fakeWriteTx) InsertRegions(_ context.Context, rows []models.Region) (map[string]models.ID, error) {
	if err := f.enter("regions"); err != nil {
		return nil, err
	}
	f.regions = append(f.regions, rows...)
	out := make(map[string]models.ID)
	for _, r := range rows {
		if !f.dropKeys {
			out[r.TownName] = f.id()
		}
	}
	return out, nil
}

func (f *fakeWriteTx) InsertLocations(_ context.Context, rows []models.Location) (map[models.Coordinate]models.ID, error) {
	if err := f.enter("locations"); err != nil {
		return nil, err
	}
	f.locations = append(f.locations, rows...)
	out := make(map[models.Coordinate]models.ID)
	for _, l := range rows {
		out[l.Key()] = f.id()
	}
	return out, nil
}

func (f *fakeWriteTx) InsertSpecies(_ context.Context, rows []models.Species) (map[string]models.ID, error) {
	if err := f.enter("species"); err != nil {
		return nil, err
	}
	f.species = append(f.species, rows...)
	out := make(map[string]models.ID)
	for _, s := range rows {
		out[s.CommonName] = f.id()
	}
	return out, nil
}

func (f *fakeWriteTx) InsertBotanists(_ context.Context, rows []models.Botanist) (map[models.BotanistKey]models.ID, error) {
	if err := f.enter("botanists"); err != nil {
		return nil, err
	}
	f.botanists = append(f.botanists, rows...)
	out := make(map[models.BotanistKey]models.ID)
	for _, b := range rows {
		out[b.Key()] = f.id()
	}
	return out, nil
}

func (f *fakeWriteTx) InsertPlants(_ context.Context, rows []models.Plant) (int64, error) {
	if err := f.enter("plants"); err != nil {
		return 0, err
	}
	f.plants = append(f.plants, rows...)
	return int64(len(rows)), nil
}

func (f *fakeWriteTx) InsertRecordings(_ context.Context, rows []models.Recording) (int64, error) {
	if err := f.enter("recordings"); err != nil {
		return 0, err
	}
	f.recordings = append(f.recordings, rows...)
	return int64(len(rows)), nil
}

func (f *fakeWriteTx) UpdatePlantWatering(_ context.Context, rows []models.PlantUpdate) (int64, error) {
	if err := f.enter("plant_updates"); err != nil {
		return 0, err
	}
	f.updates = append(f.updates, rows...)
	return int64(len(rows)) - f.updateShortfall, nil
}
