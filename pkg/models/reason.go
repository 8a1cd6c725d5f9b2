package models

// Reason explains why a record, or one decision for it, was dropped.
type Reason string

const (
	ReasonMissingPlantID      Reason = "MISSING_PLANT_ID"
	ReasonMissingReadings     Reason = "MISSING_READINGS"
	ReasonInvalidGeography    Reason = "INVALID_GEOGRAPHY"
	ReasonInvalidTimestamp    Reason = "INVALID_TIMESTAMP"
	ReasonUnresolvedSpecies   Reason = "UNRESOLVED_SPECIES"
	ReasonUnresolvedGeography Reason = "UNRESOLVED_GEOGRAPHY"
	ReasonUnresolvedBotanist  Reason = "UNRESOLVED_BOTANIST"
	ReasonStaleWatering       Reason = "STALE_WATERING"
	ReasonPlantNotCreated     Reason = "PLANT_NOT_CREATED"
)
