package models

import "time"

// Batch accumulates every write decided during one run. Rows may reference
// pending ids of rows queued earlier in the same batch.
type Batch struct {
	Regions      []Region
	Locations    []Location
	Species      []Species
	Botanists    []Botanist
	Plants       []Plant
	Recordings   []Recording
	PlantUpdates []PlantUpdate

	plantIndex  map[ID]int
	updateIndex map[ID]int
}

// NewBatch returns an empty batch.
func NewBatch() *Batch {
	return &Batch{
		plantIndex:  make(map[ID]int),
		updateIndex: make(map[ID]int),
	}
}

// AddPlant queues a plant creation. A plant id is only ever queued once.
func (b *Batch) AddPlant(p Plant) {
	if _, ok := b.plantIndex[p.ID]; ok {
		return
	}
	b.plantIndex[p.ID] = len(b.Plants)
	b.Plants = append(b.Plants, p)
}

// HasPlant reports whether a creation for the plant id is queued.
func (b *Batch) HasPlant(id ID) bool {
	_, ok := b.plantIndex[id]
	return ok
}

// SetWatering records a new last_watering for a plant. If the plant is being
// created in this batch its creation row is amended, otherwise a single update
// row per plant is kept.
func (b *Batch) SetWatering(id ID, at time.Time) {
	if i, ok := b.plantIndex[id]; ok {
		t := at
		b.Plants[i].LastWatering = &t
		return
	}
	if i, ok := b.updateIndex[id]; ok {
		b.PlantUpdates[i].LastWatering = at
		return
	}
	b.updateIndex[id] = len(b.PlantUpdates)
	b.PlantUpdates = append(b.PlantUpdates, PlantUpdate{PlantID: id, LastWatering: at})
}

// Empty reports whether the batch has nothing to write.
func (b *Batch) Empty() bool {
	return len(b.Regions) == 0 &&
		len(b.Locations) == 0 &&
		len(b.Species) == 0 &&
		len(b.Botanists) == 0 &&
		len(b.Plants) == 0 &&
		len(b.Recordings) == 0 &&
		len(b.PlantUpdates) == 0
}

// Counts summarizes the queued rows per table.
func (b *Batch) Counts() BatchCounts {
	return BatchCounts{
		Regions:      len(b.Regions),
		Locations:    len(b.Locations),
		Species:      len(b.Species),
		Botanists:    len(b.Botanists),
		Plants:       len(b.Plants),
		Recordings:   len(b.Recordings),
		PlantUpdates: len(b.PlantUpdates),
	}
}

// BatchCounts is the number of rows queued per table.
type BatchCounts struct {
	Regions      int `json:"regions"`
	Locations    int `json:"locations"`
	Species      int `json:"species"`
	Botanists    int `json:"botanists"`
	Plants       int `json:"plants"`
	Recordings   int `json:"recordings"`
	PlantUpdates int `json:"plant_updates"`
}
