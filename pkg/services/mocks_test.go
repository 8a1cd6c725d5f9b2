package services

import (
	"context"
	"sync"

	"github.com/ekaya-inc/plantsync/pkg/adapters/storage"
	"github.com/ekaya-inc/plantsync/pkg/catalog"
	"github.com/ekaya-inc/plantsync/pkg/models"
)

// fakeStore serves a fixed snapshot through every transaction and records
// what each committed transaction wrote. loadErrs and txErrs are consumed one
// per call before the call succeeds.
type fakeStore struct {
	mu sync.Mutex

	snapshot *catalog.Snapshot
	loadErrs []error
	txErrs   []error
	// locked runs once the lock is held, before fn. It stands in for a run
	// that committed while this one waited for the lock.
	locked func(s *fakeStore)

	inTx      bool
	loads     int
	outsideTx int
	txs       int
	locks     []storage.Lock
	commits   []*fakeWriteTx
}

var _ storage.Store = (*fakeStore)(nil)

func (s *fakeStore) loadSnapshot() (*catalog.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loads++
	if !s.inTx {
		s.outsideTx++
	}
	if len(s.loadErrs) > 0 {
		err := s.loadErrs[0]
		s.loadErrs = s.loadErrs[1:]
		return nil, err
	}
	return s.snapshot, nil
}

func (s *fakeStore) RunInTx(ctx context.Context, lock storage.Lock, fn func(context.Context, storage.WriteTx) error) error {
	s.mu.Lock()
	s.txs++
	s.locks = append(s.locks, lock)
	var injected error
	if len(s.txErrs) > 0 {
		injected = s.txErrs[0]
		s.txErrs = s.txErrs[1:]
	}
	s.inTx = true
	locked := s.locked
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.inTx = false
		s.mu.Unlock()
	}()
	if locked != nil {
		locked(s)
	}

	tx := &fakeWriteTx{store: s, nextID: 1000}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	// A failure at commit time discards everything fn wrote.
	if injected != nil {
		return injected
	}

	s.mu.Lock()
	s.commits = append(s.commits, tx)
	s.mu.Unlock()
	return nil
}

func (s *fakeStore) Ping(context.Context) error { return nil }
func (s *fakeStore) Close() error               { return nil }

// fakeWriteTx reads its store's snapshot, keeps every row it is given and
// hands out sequential ids.
type fakeWriteTx struct {
	store  *fakeStore
	nextID models.ID

	regions    []models.Region
	locations  []models.Location
	species    []models.Species
	botanists  []models.Botanist
	plants     []models.Plant
	recordings []models.Recording
	updates    []models.PlantUpdate
}

var _ storage.WriteTx = (*fakeWriteTx)(nil)

func (f *fakeWriteTx) id() models.ID {
	f.nextID++
	return f.nextID
}

func (f *fakeWriteTx) LoadSnapshot(context.Context) (*catalog.Snapshot, error) {
	return f.store.loadSnapshot()
}

func (f *fakeWriteTx) InsertRegions(_ context.Context, rows []models.Region) (map[string]models.ID, error) {
	f.regions = append(f.regions, rows...)
	out := make(map[string]models.ID, len(rows))
	for _, r := range rows {
		out[r.TownName] = f.id()
	}
	return out, nil
}

func (f *fakeWriteTx) InsertLocations(_ context.Context, rows []models.Location) (map[models.Coordinate]models.ID, error) {
	f.locations = append(f.locations, rows...)
	out := make(map[models.Coordinate]models.ID, len(rows))
	for _, l := range rows {
		out[l.Key()] = f.id()
	}
	return out, nil
}

func (f *fakeWriteTx) InsertSpecies(_ context.Context, rows []models.Species) (map[string]models.ID, error) {
	f.species = append(f.species, rows...)
	out := make(map[string]models.ID, len(rows))
	for _, s := range rows {
		out[s.CommonName] = f.id()
	}
	return out, nil
}

func (f *fakeWriteTx) InsertBotanists(_ context.Context, rows []models.Botanist) (map[models.BotanistKey]models.ID, error) {
	f.botanists = append(f.botanists, rows...)
	out := make(map[models.BotanistKey]models.ID, len(rows))
	for _, b := range rows {
		out[b.Key()] = f.id()
	}
	return out, nil
}

func (f *fakeWriteTx) InsertPlants(_ context.Context, rows []models.Plant) (int64, error) {
	f.plants = append(f.plants, rows...)
	return int64(len(rows)), nil
}

func (f *fakeWriteTx) InsertRecordings(_ context.Context, rows []models.Recording) (int64, error) {
	f.recordings = append(f.recordings, rows...)
	return int64(len(rows)), nil
}

func (f *fakeWriteTx) UpdatePlantWatering(_ context.Context, rows []models.PlantUpdate) (int64, error) {
	f.updates = append(f.updates, rows...)
	return int64(len(rows)), nil
}
