package catalog

import (
	"time"

	"github.com/ekaya-inc/plantsync/pkg/models"
	"github.com/ekaya-inc/plantsync/pkg/validation"
)

// LookupSpecies finds a species by any of its names. The scientific-name map
// is checked before the common-name map.
func (c *Catalog) LookupSpecies(name string) (models.ID, bool) {
	key := validation.NormalizeName(name)
	if key == "" {
		return 0, false
	}
	if id, ok := c.speciesByScientific[key]; ok {
		return id, true
	}
	id, ok := c.speciesByCommon[key]
	return id, ok
}

// LookupBotanist finds a botanist by exact (email, first, last) identity.
func (c *Catalog) LookupBotanist(email, first, last string) (models.ID, bool) {
	if email == "" {
		return 0, false
	}
	id, ok := c.botanists[models.BotanistKey{Email: email, FirstName: first, LastName: last}]
	return id, ok
}

// LookupTown finds a region by town name.
func (c *Catalog) LookupTown(name string) (models.ID, bool) {
	key := validation.NormalizeName(name)
	if key == "" {
		return 0, false
	}
	id, ok := c.towns[key]
	return id, ok
}

// LookupLocation finds a location by exact coordinates. There is no distance
// tolerance.
func (c *Catalog) LookupLocation(lon, lat float64) (models.ID, bool) {
	id, ok := c.locations[models.Coordinate{Longitude: lon, Latitude: lat}]
	return id, ok
}

// LookupCountry resolves an ISO country code to its id.
func (c *Catalog) LookupCountry(code string) (models.ID, bool) {
	key := validation.NormalizeCountryCode(code)
	if key == "" {
		return 0, false
	}
	id, ok := c.countries[key]
	return id, ok
}

// LookupContinent resolves a continent name to its id.
func (c *Catalog) LookupContinent(name string) (models.ID, bool) {
	key := validation.NormalizeName(name)
	if key == "" {
		return 0, false
	}
	id, ok := c.continents[key]
	return id, ok
}

// KnownPlant reports whether the plant exists or is queued for creation.
func (c *Catalog) KnownPlant(id models.ID) bool {
	_, ok := c.plants[id]
	return ok
}

// LastWatering returns the plant's current last_watering, including changes
// queued earlier in the run. Nil when unknown or never watered.
func (c *Catalog) LastWatering(id models.ID) *time.Time {
	return copyTime(c.plants[id])
}

// RecentBotanist returns the botanist of the plant's latest recording.
func (c *Catalog) RecentBotanist(plantID models.ID) (models.ID, bool) {
	id, ok := c.recentBotanists[plantID]
	return id, ok
}
