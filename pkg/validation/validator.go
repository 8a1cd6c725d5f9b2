// Package validation turns raw telemetry payloads into typed records and
// decides which parts of a record are usable.
package validation

import (
	"strings"
	"time"

	"github.com/ekaya-inc/plantsync/pkg/jsonutil"
	"github.com/ekaya-inc/plantsync/pkg/models"
)

// originFields is the arity of the origin_location tuple:
// longitude, latitude, town, country code, continent/country qualifier.
const originFields = 5

// Validate checks a raw record. Only a missing or unusable plant id rejects
// the record; every other problem drops the affected part and is reported as
// an issue so that the rest of the record can still be reconciled.
func Validate(raw models.RawRecord) models.ValidationResult {
	plantID, ok := parsePlantID(raw[models.FieldPlantID])
	if !ok {
		return models.ValidationResult{
			Rejected: true,
			Reason:   models.ReasonMissingPlantID,
		}
	}

	rec := &models.TelemetryRecord{
		PlantID:         plantID,
		ScientificNames: parseScientificNames(raw[models.FieldScientificName]),
		Botanist:        parseBotanist(raw[models.FieldBotanist]),
	}
	var issues []models.Reason

	if name, ok := jsonutil.FlexibleString(raw[models.FieldName]); ok {
		rec.CommonName = NormalizeName(name)
	}

	if v, ok := jsonutil.FlexibleFloat(raw[models.FieldSoilMoisture]); ok {
		rec.SoilMoisture = &v
	}
	if v, ok := jsonutil.FlexibleFloat(raw[models.FieldTemperature]); ok {
		rec.Temperature = &v
	}
	if !rec.HasReading() {
		issues = append(issues, models.ReasonMissingReadings)
	}

	badTimestamp := false
	if v, present := raw[models.FieldLastWatered]; present && v != nil {
		if t, ok := parseTimestamp(v, models.LastWateredLayout); ok {
			rec.LastWatered = &t
		} else {
			badTimestamp = true
		}
	}
	if v, present := raw[models.FieldRecordingTaken]; present && v != nil {
		if t, ok := parseTimestamp(v, models.RecordingTakenLayout); ok {
			rec.RecordingTaken = &t
		} else {
			badTimestamp = true
		}
	}
	if badTimestamp {
		issues = append(issues, models.ReasonInvalidTimestamp)
	}

	origin, ok := parseOrigin(raw[models.FieldOriginLocation])
	if ok {
		rec.Origin = origin
	} else {
		issues = append(issues, models.ReasonInvalidGeography)
	}

	return models.ValidationResult{Record: rec, Issues: issues}
}

func parsePlantID(v any) (models.ID, bool) {
	id, ok := jsonutil.FlexibleInt(v)
	if !ok || id < 0 {
		return 0, false
	}
	return models.ID(id), true
}

func parseScientificNames(v any) []string {
	names := jsonutil.FlexibleStrings(v)
	out := make([]string, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		n = NormalizeName(n)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

// parseBotanist returns nil when the block is missing or has no name.
func parseBotanist(v any) *models.BotanistIdentity {
	block, ok := jsonutil.FlexibleMap(v)
	if !ok {
		return nil
	}
	fullName, ok := jsonutil.FlexibleString(block["name"])
	if !ok {
		return nil
	}
	first, last := SplitName(fullName)

	b := &models.BotanistIdentity{FirstName: first, LastName: last}
	if IsValidEmail(block["email"]) {
		b.Email = strings.TrimSpace(block["email"].(string))
	}
	if phone, ok := jsonutil.FlexibleString(block["phone"]); ok {
		b.Phone = phone
	}
	return b
}

func parseTimestamp(v any, layout string) (time.Time, bool) {
	s, ok := v.(string)
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse(layout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}

// parseOrigin validates the origin tuple. Country code and continent may be
// blank here; whether they resolve is decided against the lookup tables.
func parseOrigin(v any) (*models.Origin, bool) {
	fields, ok := jsonutil.FlexibleList(v)
	if !ok || len(fields) != originFields {
		return nil, false
	}

	lon, ok := jsonutil.FlexibleFloat(fields[0])
	if !ok || lon < -180 || lon > 180 {
		return nil, false
	}
	lat, ok := jsonutil.FlexibleFloat(fields[1])
	if !ok || lat < -90 || lat > 90 {
		return nil, false
	}
	town, ok := jsonutil.FlexibleString(fields[2])
	if !ok {
		return nil, false
	}

	origin := &models.Origin{
		Longitude: lon,
		Latitude:  lat,
		Town:      CollapseSpaces(town),
	}
	if code, ok := jsonutil.FlexibleString(fields[3]); ok {
		origin.CountryCode = NormalizeCountryCode(code)
	}
	if qualifier, ok := jsonutil.FlexibleString(fields[4]); ok {
		continent, _, _ := strings.Cut(qualifier, "/")
		origin.Continent = NormalizeName(continent)
	}
	return origin, true
}
