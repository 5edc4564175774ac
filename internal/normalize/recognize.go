package normalize

// recognizer inspects a payload and, when it understands the shape, returns
// the list of candidate records it contains.
type recognizer func(payload any) ([]any, bool)

// recognize returns the candidates of the first recognizer that matches.
func recognize(payload any, recognizers []recognizer) ([]any, bool) {
	for _, rec := range recognizers {
		if candidates, ok := rec(payload); ok {
			return candidates, true
		}
	}
	return nil, false
}

// openBanking flattens data[].Brand[].<kind>[] into flat candidate objects.
// It only matches when at least one record comes out of the traversal.
func openBanking(kind string, flatten func(item any) map[string]any) recognizer {
	return func(payload any) ([]any, bool) {
		data, ok := asArray(lookup(payload, "data"))
		if !ok || !carriesBrand(data) {
			return nil, false
		}

		var flat []any
		for _, element := range data {
			brands, _ := asArray(lookup(element, "Brand"))
			for _, brand := range brands {
				items, _ := asArray(lookup(brand, kind))
				for _, item := range items {
					flat = append(flat, flatten(item))
				}
			}
		}

		return flat, len(flat) > 0
	}
}

// emptyOpenBanking accepts a well-formed document that simply has nothing in it.
func emptyOpenBanking(payload any) ([]any, bool) {
	data, ok := asArray(lookup(payload, "data"))
	if !ok || (len(data) > 0 && !carriesBrand(data)) {
		return nil, false
	}
	return []any{}, true
}

// flatData matches a data array whose elements are already flat records.
func flatData(payload any) ([]any, bool) {
	data, ok := asArray(lookup(payload, "data"))
	if !ok {
		return nil, false
	}

	for _, element := range data {
		if obj, isObj := asObject(element); isObj && looksFlat(obj) {
			return data, true
		}
	}

	return nil, false
}

// arrayAt matches when the value at path is an array.
func arrayAt(path ...string) recognizer {
	return func(payload any) ([]any, bool) {
		if _, ok := asObject(payload); !ok {
			return nil, false
		}
		return asArray(lookup(payload, path...))
	}
}

func topLevelArray(payload any) ([]any, bool) {
	return asArray(payload)
}

func carriesBrand(data []any) bool {
	for _, element := range data {
		if obj, ok := asObject(element); ok {
			if _, has := obj["Brand"]; has {
				return true
			}
		}
	}
	return false
}

func looksFlat(obj map[string]any) bool {
	_, hasID := obj["id"]
	_, hasLat := obj["lat"]
	_, hasLon := obj["lon"]
	return hasID || (hasLat && hasLon)
}
