package normalize

import (
	"strings"

	"github.com/UnknownOlympus/branchmap/internal/models"
)

// ResourceBranches names the branch list in errors, logs and metrics.
const ResourceBranches = "branches"

// Report summarizes a normalization pass.
type Report struct {
	Total      int // candidates found in the payload
	Kept       int // records returned
	Dropped    int // candidates rejected by screening
	Duplicates int // candidates rejected because their id was already seen
}

var branchRecognizers = []recognizer{
	openBanking("Branch", flattenOpenBankingBranch),
	flatData,
	arrayAt("branches"),
	arrayAt("data", "branches"),
	arrayAt("data", "items"),
	topLevelArray,
	emptyOpenBanking,
}

// Branches turns a raw branch payload into branch records. Candidates missing an id,
// a name or usable coordinates are dropped; for duplicate ids the first occurrence wins.
func Branches(payload any) ([]models.Branch, Report, error) {
	candidates, ok := recognize(payload, branchRecognizers)
	if !ok {
		return nil, Report{}, &ShapeError{Resource: ResourceBranches, Keys: topLevelKeys(payload)}
	}

	report := Report{Total: len(candidates)}
	branches := make([]models.Branch, 0, len(candidates))
	seen := make(map[string]struct{}, len(candidates))

	for _, candidate := range candidates {
		branch, valid := screenBranch(candidate)
		if !valid {
			report.Dropped++
			continue
		}
		if _, dup := seen[branch.ID]; dup {
			report.Duplicates++
			continue
		}
		if err := validate.Struct(branch); err != nil {
			return nil, report, &ValidationError{Resource: ResourceBranches, ID: branch.ID, Err: err}
		}

		seen[branch.ID] = struct{}{}
		branches = append(branches, branch)
	}
	report.Kept = len(branches)

	return branches, report, nil
}

func screenBranch(candidate any) (models.Branch, bool) {
	obj, ok := asObject(candidate)
	if !ok {
		return models.Branch{}, false
	}

	id, _ := stringValue(obj["id"])
	name, _ := stringValue(obj["name"])
	lat, latOK := toNumber(obj["lat"])
	lon, lonOK := toNumber(obj["lon"])
	if id == "" || name == "" || !latOK || !lonOK || !validLatLon(lat, lon) {
		return models.Branch{}, false
	}

	branch := models.Branch{ID: id, Name: name, Lat: lat, Lon: lon}
	branch.Address, _ = stringValue(obj["address"])
	branch.City, _ = stringValue(obj["city"])
	branch.WorkingHours, _ = stringValue(obj["workingHours"])

	return branch, true
}

// flattenOpenBankingBranch maps one Open Banking Branch object onto the flat shape.
// Fields that are absent in the source stay absent in the result.
func flattenOpenBankingBranch(item any) map[string]any {
	flat := map[string]any{}
	if id, ok := identifier(lookup(item, "Identification")); ok {
		flat["id"] = id
	}
	if name, ok := identifier(lookup(item, "Name")); ok {
		flat["name"] = name
	}

	postal := lookup(item, "PostalAddress")
	if address := joinAddress(lookup(postal, "BuildingNumber"), lookup(postal, "StreetName")); address != "" {
		flat["address"] = address
	}
	if city, ok := stringValue(lookup(postal, "TownName")); ok {
		flat["city"] = city
	}
	if hours := formatHours(lookup(item, "Availability", "StandardAvailability", "Day")); hours != "" {
		flat["workingHours"] = hours
	}

	geo := lookup(postal, "GeoLocation", "GeographicCoordinates")
	if lat := lookup(geo, "Latitude"); lat != nil {
		flat["lat"] = lat
	}
	if lon := lookup(geo, "Longitude"); lon != nil {
		flat["lon"] = lon
	}

	return flat
}

func joinAddress(parts ...any) string {
	var present []string
	for _, part := range parts {
		if s, ok := stringValue(part); ok {
			if s = strings.TrimSpace(s); s != "" {
				present = append(present, s)
			}
		}
	}
	return strings.Join(present, " ")
}

// formatHours renders "Name: Open-Close" for every day that has all three parts.
func formatHours(days any) string {
	list, ok := asArray(days)
	if !ok {
		return ""
	}

	var lines []string
	for _, day := range list {
		name, _ := stringValue(lookup(day, "Name"))
		windows, _ := asArray(lookup(day, "OpeningHours"))
		if name == "" || len(windows) == 0 {
			continue
		}
		open, _ := stringValue(lookup(windows[0], "OpeningTime"))
		closing, _ := stringValue(lookup(windows[0], "ClosingTime"))
		if open == "" || closing == "" {
			continue
		}
		lines = append(lines, name+": "+open+"-"+closing)
	}

	return strings.Join(lines, "; ")
}
