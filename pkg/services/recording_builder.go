package services

import (
	"time"

	"github.com/ekaya-inc/plantsync/pkg/catalog"
	"github.com/ekaya-inc/plantsync/pkg/models"
)

// BotanistSource says how a recording's botanist was resolved.
type BotanistSource int

const (
	BotanistUnresolved BotanistSource = iota
	// BotanistFound is an exact (email, first, last) match in the catalog,
	// including botanists queued earlier in the run.
	BotanistFound
	// BotanistToCreate is a new botanist queued by this record.
	BotanistToCreate
	// BotanistInherited is the botanist of the plant's latest recording.
	BotanistInherited
)

func (s BotanistSource) String() string {
	switch s {
	case BotanistFound:
		return "found"
	case BotanistToCreate:
		return "to_create"
	case BotanistInherited:
		return "inherited"
	default:
		return "unresolved"
	}
}

// BotanistResolution is the tagged result of ResolveBotanist.
type BotanistResolution struct {
	Source BotanistSource
	ID     models.ID
}

// Resolved reports whether a botanist id is available.
func (b BotanistResolution) Resolved() bool {
	return b.Source != BotanistUnresolved
}

// ResolveBotanist picks the botanist for a recording in priority order:
// exact identity match, creation of a new botanist (only possible with a
// usable email), then the plant's most recent botanist. A ToCreate result
// has already been queued in batch.
func ResolveBotanist(cat *catalog.Catalog, batch *models.Batch, plantID models.ID, identity *models.BotanistIdentity) BotanistResolution {
	if identity.HasEmail() {
		id, created := cat.RegisterBotanist(identity.Key())
		if !created {
			return BotanistResolution{Source: BotanistFound, ID: id}
		}
		batch.Botanists = append(batch.Botanists, models.Botanist{
			ID:        id,
			FirstName: identity.FirstName,
			LastName:  identity.LastName,
			Email:     identity.Email,
			Phone:     identity.Phone,
		})
		return BotanistResolution{Source: BotanistToCreate, ID: id}
	}
	if id, ok := cat.RecentBotanist(plantID); ok {
		return BotanistResolution{Source: BotanistInherited, ID: id}
	}
	return BotanistResolution{Source: BotanistUnresolved}
}

// BuildRecording produces the recording row for a record, or false with the
// reason it was skipped. now is used when the record has no recording_taken.
func BuildRecording(plantID models.ID, rec *models.TelemetryRecord, botanist BotanistResolution, now time.Time) (models.Recording, models.Reason, bool) {
	if !rec.HasReading() {
		return models.Recording{}, models.ReasonMissingReadings, false
	}
	if !botanist.Resolved() {
		return models.Recording{}, models.ReasonUnresolvedBotanist, false
	}

	takenAt := now
	if rec.RecordingTaken != nil {
		takenAt = *rec.RecordingTaken
	}
	return models.Recording{
		TakenAt:      takenAt,
		SoilMoisture: rec.SoilMoisture,
		Temperature:  rec.Temperature,
		PlantID:      plantID,
		BotanistID:   botanist.ID,
	}, "", true
}
