// Package models contains domain types for plantsync.
package models

import "time"

// ID identifies a row in one of the catalog tables.
// Negative values are pending ids handed out by the catalog for rows that are
// queued for creation but not yet written; the batch writer replaces them with
// database-assigned ids.
type ID int64

// IsPending reports whether the id was allocated in memory for a queued row.
func (id ID) IsPending() bool {
	return id < 0
}

// Plant is a row of the plants table. ID is the external plant identifier
// reported by the sensor API and never changes once written.
type Plant struct {
	ID           ID
	LocationID   ID
	SpeciesID    ID
	LastWatering *time.Time
}

// PlantUpdate moves a known plant's last_watering forward.
type PlantUpdate struct {
	PlantID      ID
	LastWatering time.Time
}

// Species is a row of the plant_species table.
type Species struct {
	ID             ID
	CommonName     string
	ScientificName string
}

// Region is a row of the regions table (one per town).
type Region struct {
	ID          ID
	TownName    string
	ContinentID ID
	CountryID   ID
}

// Location is a row of the origins table, keyed by its exact coordinates.
type Location struct {
	ID        ID
	Longitude float64
	Latitude  float64
	TownID    ID
}

// Coordinate is the natural key of a Location.
type Coordinate struct {
	Longitude float64
	Latitude  float64
}

// Key returns the location's coordinate pair.
func (l Location) Key() Coordinate {
	return Coordinate{Longitude: l.Longitude, Latitude: l.Latitude}
}

// Botanist is a row of the botanists table.
type Botanist struct {
	ID        ID
	FirstName string
	LastName  string
	Email     string
	Phone     string
}

// BotanistKey is the natural key of a Botanist.
type BotanistKey struct {
	Email     string
	FirstName string
	LastName  string
}

// Key returns the botanist's (email, first, last) identity.
func (b Botanist) Key() BotanistKey {
	return BotanistKey{Email: b.Email, FirstName: b.FirstName, LastName: b.LastName}
}

// Recording is one append-only sensor reading. At least one of SoilMoisture and
// Temperature is set.
type Recording struct {
	TakenAt      time.Time
	SoilMoisture *float64
	Temperature  *float64
	PlantID      ID
	BotanistID   ID
}

// Country is a row of the static countries lookup table.
type Country struct {
	ID   ID
	Code string
}

// Continent is a row of the static continents lookup table.
type Continent struct {
	ID   ID
	Name string
}

// PlantBotanist links a plant to the botanist of its most recent recording.
type PlantBotanist struct {
	PlantID    ID
	BotanistID ID
}
