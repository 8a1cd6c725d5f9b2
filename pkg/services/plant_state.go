package services

import (
	"time"

	"github.com/ekaya-inc/plantsync/pkg/models"
)

// PlantAction is what a run does to the plants table for one record.
type PlantAction int

const (
	// PlantNoop leaves the plant row untouched.
	PlantNoop PlantAction = iota
	// PlantInsert creates a plant that has never been seen.
	PlantInsert
	// PlantUpdate moves a known plant's last_watering forward.
	PlantUpdate
)

func (a PlantAction) String() string {
	switch a {
	case PlantInsert:
		return "insert"
	case PlantUpdate:
		return "update"
	default:
		return "noop"
	}
}

// PlantDecision is the outcome of DecidePlant. Reason is set when an incoming
// watering time was ignored.
type PlantDecision struct {
	Action       PlantAction
	LastWatering *time.Time
	Reason       models.Reason
}

// DecidePlant applies the plant lifecycle: an unknown plant is inserted, a
// known plant is updated only when the incoming watering time is later than
// the persisted one (or none is persisted). last_watering never moves back
// and is never cleared.
func DecidePlant(known bool, persisted, incoming *time.Time) PlantDecision {
	if !known {
		return PlantDecision{Action: PlantInsert, LastWatering: incoming}
	}
	if incoming == nil {
		return PlantDecision{Action: PlantNoop, LastWatering: persisted}
	}
	if persisted == nil || incoming.After(*persisted) {
		return PlantDecision{Action: PlantUpdate, LastWatering: incoming}
	}
	if incoming.Before(*persisted) {
		return PlantDecision{Action: PlantNoop, LastWatering: persisted, Reason: models.ReasonStaleWatering}
	}
	return PlantDecision{Action: PlantNoop, LastWatering: persisted}
}
