package normalize

import (
	"github.com/UnknownOlympus/branchmap/internal/models"
)

// ResourceATMs names the ATM dataset in errors, logs and metrics.
const ResourceATMs = "atms"

var atmRecognizers = []recognizer{
	openBanking("ATM", flattenOpenBankingATM),
	arrayAt("atms"),
	topLevelArray,
	flatData,
	arrayAt("data", "items"),
	arrayAt("data", "atms"),
	emptyOpenBanking,
}

// ATMs turns a raw ATM payload into ATM records. Candidates without an id or
// usable coordinates are dropped; for duplicate ids the first occurrence wins.
func ATMs(payload any) ([]models.ATM, Report, error) {
	candidates, ok := recognize(payload, atmRecognizers)
	if !ok {
		return nil, Report{}, &ShapeError{Resource: ResourceATMs, Keys: topLevelKeys(payload)}
	}

	report := Report{Total: len(candidates)}
	atms := make([]models.ATM, 0, len(candidates))
	seen := make(map[string]struct{}, len(candidates))

	for _, candidate := range candidates {
		atm, valid := screenATM(candidate)
		if !valid {
			report.Dropped++
			continue
		}
		if _, dup := seen[atm.ID]; dup {
			report.Duplicates++
			continue
		}
		if err := validate.Struct(atm); err != nil {
			return nil, report, &ValidationError{Resource: ResourceATMs, ID: atm.ID, Err: err}
		}

		seen[atm.ID] = struct{}{}
		atms = append(atms, atm)
	}
	report.Kept = len(atms)

	return atms, report, nil
}

func screenATM(candidate any) (models.ATM, bool) {
	obj, ok := asObject(candidate)
	if !ok {
		return models.ATM{}, false
	}

	id, _ := stringValue(obj["id"])
	lat, latOK := toNumber(obj["lat"])
	lon, lonOK := toNumber(obj["lon"])
	if id == "" || !latOK || !lonOK || !validLatLon(lat, lon) {
		return models.ATM{}, false
	}

	atm := models.ATM{ID: id, Lat: lat, Lon: lon}
	atm.Label, _ = stringValue(obj["label"])

	return atm, true
}

func flattenOpenBankingATM(item any) map[string]any {
	flat := map[string]any{}
	if id, ok := identifier(lookup(item, "Identification")); ok {
		flat["id"] = id
	}
	if label, ok := stringValue(lookup(item, "Name")); ok {
		flat["label"] = label
	}

	geo := lookup(item, "Location", "PostalAddress", "GeoLocation", "GeographicCoordinates")
	if lat := lookup(geo, "Latitude"); lat != nil {
		flat["lat"] = lat
	}
	if lon := lookup(geo, "Longitude"); lon != nil {
		flat["lon"] = lon
	}

	return flat
}
