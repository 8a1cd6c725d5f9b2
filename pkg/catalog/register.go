package catalog

import (
	"time"

	"github.com/ekaya-inc/plantsync/pkg/models"
	"github.com/ekaya-inc/plantsync/pkg/validation"
)

// Each Register call returns the id already bound to the natural key when
// there is one (created=false). Otherwise it allocates a pending id, binds the
// key to it, and returns created=true; the caller must then queue exactly one
// creation row carrying that id.

// RegisterSpecies binds the common name and every scientific alias to one
// species. If any of the names is already known, that species wins and no
// new names are bound.
func (c *Catalog) RegisterSpecies(common string, scientific []string) (models.ID, bool) {
	if id, ok := c.LookupSpecies(common); ok {
		return id, false
	}
	for _, name := range scientific {
		if id, ok := c.LookupSpecies(name); ok {
			return id, false
		}
	}

	id := c.nextSpecies
	c.nextSpecies--
	if key := validation.NormalizeName(common); key != "" {
		c.speciesByCommon[key] = id
	}
	for _, name := range scientific {
		if key := validation.NormalizeName(name); key != "" {
			c.speciesByScientific[key] = id
		}
	}
	return id, true
}

// RegisterBotanist binds a botanist identity.
func (c *Catalog) RegisterBotanist(key models.BotanistKey) (models.ID, bool) {
	if id, ok := c.botanists[key]; ok {
		return id, false
	}
	id := c.nextBotanist
	c.nextBotanist--
	c.botanists[key] = id
	return id, true
}

// RegisterTown binds a town name to a region.
func (c *Catalog) RegisterTown(name string) (models.ID, bool) {
	key := validation.NormalizeName(name)
	if id, ok := c.towns[key]; ok {
		return id, false
	}
	id := c.nextTown
	c.nextTown--
	c.towns[key] = id
	return id, true
}

// RegisterLocation binds a coordinate pair to a location.
func (c *Catalog) RegisterLocation(coord models.Coordinate) (models.ID, bool) {
	if id, ok := c.locations[coord]; ok {
		return id, false
	}
	id := c.nextLocation
	c.nextLocation--
	c.locations[coord] = id
	return id, true
}

// RegisterPlant marks an external plant id as known. Plant ids are never
// allocated by the catalog.
func (c *Catalog) RegisterPlant(id models.ID, lastWatering *time.Time) bool {
	if _, ok := c.plants[id]; ok {
		return false
	}
	c.plants[id] = copyTime(lastWatering)
	return true
}

// SetLastWatering records a queued last_watering change for a known plant.
func (c *Catalog) SetLastWatering(id models.ID, at time.Time) {
	if _, ok := c.plants[id]; !ok {
		return
	}
	c.plants[id] = &at
}

// SetRecentBotanist records the botanist of a recording queued in this run,
// so later records for the same plant inherit it.
func (c *Catalog) SetRecentBotanist(plantID, botanistID models.ID) {
	c.recentBotanists[plantID] = botanistID
}
