// Package catalog holds the reference data a reconciliation run resolves
// against. A Catalog is built from one snapshot of the database at the start of
// a run, is updated in memory as creations are queued, and is discarded when
// the run ends. It is not safe for concurrent use.
package catalog

import (
	"fmt"
	"time"

	"github.com/ekaya-inc/plantsync/pkg/apperrors"
	"github.com/ekaya-inc/plantsync/pkg/models"
	"github.com/ekaya-inc/plantsync/pkg/validation"
)

// Snapshot is the persisted state read once per run.
type Snapshot struct {
	Species    []models.Species
	Botanists  []models.Botanist
	Regions    []models.Region
	Locations  []models.Location
	Plants     []models.Plant
	Countries  []models.Country
	Continents []models.Continent

	// RecentBotanists has one entry per plant: the botanist of the plant's
	// latest recording.
	RecentBotanists []models.PlantBotanist
}

// Catalog answers natural-key lookups and hands out pending ids.
type Catalog struct {
	speciesByScientific map[string]models.ID
	speciesByCommon     map[string]models.ID
	botanists           map[models.BotanistKey]models.ID
	towns               map[string]models.ID
	locations           map[models.Coordinate]models.ID
	plants              map[models.ID]*time.Time
	countries           map[string]models.ID
	continents          map[string]models.ID
	recentBotanists     map[models.ID]models.ID

	nextSpecies  models.ID
	nextBotanist models.ID
	nextTown     models.ID
	nextLocation models.ID
}

// New builds a catalog from a snapshot. It fails with
// apperrors.ErrCatalogInvariant when one natural key maps to two ids.
func New(s *Snapshot) (*Catalog, error) {
	if s == nil {
		s = &Snapshot{}
	}
	c := &Catalog{
		speciesByScientific: make(map[string]models.ID, len(s.Species)),
		speciesByCommon:     make(map[string]models.ID, len(s.Species)),
		botanists:           make(map[models.BotanistKey]models.ID, len(s.Botanists)),
		towns:               make(map[string]models.ID, len(s.Regions)),
		locations:           make(map[models.Coordinate]models.ID, len(s.Locations)),
		plants:              make(map[models.ID]*time.Time, len(s.Plants)),
		countries:           make(map[string]models.ID, len(s.Countries)),
		continents:          make(map[string]models.ID, len(s.Continents)),
		recentBotanists:     make(map[models.ID]models.ID, len(s.RecentBotanists)),
		nextSpecies:         -1,
		nextBotanist:        -1,
		nextTown:            -1,
		nextLocation:        -1,
	}

	for _, sp := range s.Species {
		if err := putName(c.speciesByScientific, validation.NormalizeName(sp.ScientificName), sp.ID, "species scientific name"); err != nil {
			return nil, err
		}
		if err := putName(c.speciesByCommon, validation.NormalizeName(sp.CommonName), sp.ID, "species common name"); err != nil {
			return nil, err
		}
	}
	for _, b := range s.Botanists {
		// Botanists without an email can never be matched by identity.
		if b.Email == "" {
			continue
		}
		if err := put(c.botanists, b.Key(), b.ID, "botanist"); err != nil {
			return nil, err
		}
	}
	for _, r := range s.Regions {
		if err := putName(c.towns, validation.NormalizeName(r.TownName), r.ID, "town"); err != nil {
			return nil, err
		}
	}
	for _, l := range s.Locations {
		if err := put(c.locations, l.Key(), l.ID, "location"); err != nil {
			return nil, err
		}
	}
	for _, p := range s.Plants {
		if _, dup := c.plants[p.ID]; dup {
			return nil, fmt.Errorf("%w: plant %d listed twice", apperrors.ErrCatalogInvariant, p.ID)
		}
		c.plants[p.ID] = copyTime(p.LastWatering)
	}
	for _, co := range s.Countries {
		if err := putName(c.countries, validation.NormalizeCountryCode(co.Code), co.ID, "country"); err != nil {
			return nil, err
		}
	}
	for _, co := range s.Continents {
		if err := putName(c.continents, validation.NormalizeName(co.Name), co.ID, "continent"); err != nil {
			return nil, err
		}
	}
	for _, pb := range s.RecentBotanists {
		if err := put(c.recentBotanists, pb.PlantID, pb.BotanistID, "recent botanist"); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// put adds key→id, rejecting a key that is already bound to a different id.
func put[K comparable](m map[K]models.ID, key K, id models.ID, what string) error {
	if existing, ok := m[key]; ok && existing != id {
		return fmt.Errorf("%w: %s %v maps to both %d and %d",
			apperrors.ErrCatalogInvariant, what, key, existing, id)
	}
	m[key] = id
	return nil
}

// putName is put for normalized names; blank names are not indexed.
func putName(m map[string]models.ID, key string, id models.ID, what string) error {
	if key == "" {
		return nil
	}
	return put(m, key, id, what)
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
