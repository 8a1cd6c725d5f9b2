package models

import "time"

// RawRecord is one loosely-structured telemetry payload as delivered by the
// extractor. Values follow encoding/json (or yaml.v3) decoding of the API body.
type RawRecord map[string]any

// Raw record keys.
const (
	FieldPlantID        = "plant_id"
	FieldName           = "name"
	FieldScientificName = "scientific_name"
	FieldBotanist       = "botanist"
	FieldSoilMoisture   = "soil_moisture"
	FieldTemperature    = "temperature"
	FieldLastWatered    = "last_watered"
	FieldRecordingTaken = "recording_taken"
	FieldOriginLocation = "origin_location"
)

// Timestamp layouts used by the sensor API.
const (
	LastWateredLayout    = "Mon, 02 Jan 2006 15:04:05 MST"
	RecordingTakenLayout = "2006-01-02 15:04:05"
)

// TelemetryRecord is a validated record with every field parsed into its typed
// form. Optional parts that failed validation are nil.
type TelemetryRecord struct {
	PlantID         ID
	CommonName      string
	ScientificNames []string
	Botanist        *BotanistIdentity
	SoilMoisture    *float64
	Temperature     *float64
	LastWatered     *time.Time
	RecordingTaken  *time.Time
	Origin          *Origin
}

// HasReading reports whether at least one numeric reading is present.
func (r *TelemetryRecord) HasReading() bool {
	return r.SoilMoisture != nil || r.Temperature != nil
}

// BotanistIdentity is the botanist block of a record. Email is empty when the
// payload carried no usable address.
type BotanistIdentity struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
}

// HasEmail reports whether the identity can be matched or created by key.
func (b *BotanistIdentity) HasEmail() bool {
	return b != nil && b.Email != ""
}

// Key returns the natural key used by the catalog.
func (b *BotanistIdentity) Key() BotanistKey {
	return BotanistKey{Email: b.Email, FirstName: b.FirstName, LastName: b.LastName}
}

// Origin is the parsed origin_location tuple.
type Origin struct {
	Longitude   float64
	Latitude    float64
	Town        string
	CountryCode string
	Continent   string
}

// Coordinate returns the location key of the origin.
func (o *Origin) Coordinate() Coordinate {
	return Coordinate{Longitude: o.Longitude, Latitude: o.Latitude}
}

// ValidationResult is the outcome of validating a RawRecord. A rejected result
// has a nil Record and a Reason; a usable one may still carry Issues describing
// parts that were dropped.
type ValidationResult struct {
	Record   *TelemetryRecord
	Rejected bool
	Reason   Reason
	Issues   []Reason
}
