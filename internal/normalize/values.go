package normalize

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

func asObject(v any) (map[string]any, bool) {
	obj, ok := v.(map[string]any)
	return obj, ok
}

func asArray(v any) ([]any, bool) {
	switch arr := v.(type) {
	case []any:
		return arr, true
	case []map[string]any:
		out := make([]any, len(arr))
		for i, item := range arr {
			out[i] = item
		}
		return out, true
	default:
		return nil, false
	}
}

// lookup walks nested objects along path and returns nil when any step is missing.
func lookup(v any, path ...string) any {
	for _, key := range path {
		obj, ok := asObject(v)
		if !ok {
			return nil
		}
		v = obj[key]
	}
	return v
}

func stringValue(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

// identifier accepts strings and numbers, rendering numbers without a trailing ".0".
func identifier(v any) (string, bool) {
	switch id := v.(type) {
	case string:
		return id, true
	case json.Number:
		return id.String(), true
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64), true
	case int:
		return strconv.Itoa(id), true
	case int64:
		return strconv.FormatInt(id, 10), true
	default:
		return "", false
	}
}

// toNumber converts JSON numbers and decimal strings into a finite float64.
func toNumber(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		return parseDecimal(n.String())
	case string:
		return parseDecimal(n)
	default:
		return 0, false
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}

	return f, true
}

func parseDecimal(s string) (float64, bool) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, false
	}

	f, _ := d.Float64()
	if math.IsInf(f, 0) {
		return 0, false
	}

	return f, true
}

func validLatLon(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

func topLevelKeys(v any) []string {
	obj, ok := asObject(v)
	if !ok {
		return []string{}
	}

	keys := make([]string, 0, len(obj))
	for key := range obj {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	return keys
}
