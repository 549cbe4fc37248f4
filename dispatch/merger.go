package dispatch

import "encoding/json"

// MergeArguments implements C2: combine a JSON request body and URL query
// parameters into an ArgumentForm (spec §4.2). query uses net/url.Values'
// representation (ordered multi-value lists) so callers can pass a
// *url.URL's Query() result directly.
func MergeArguments(body []byte, query map[string][]string, overrides map[string]any) (*ArgumentForm, error) {
	items, err := seedItems(body)
	if err != nil {
		return nil, err
	}

	for _, it := range items {
		if it.Bundle == nil {
			continue
		}
		applyQuery(it.Bundle, query)
		applyOverrides(it.Bundle, overrides)
	}

	return &ArgumentForm{Items: items}, nil
}

// seedItems implements the ArgumentForm construction rule of spec §3: a JSON
// object seeds one bundle; a JSON array whose elements are all objects or
// null seeds a bulk list (nulls pass through as FormItem.Null); a JSON array
// containing any other element, or any other JSON value, seeds one bundle
// whose positional sequence holds the raw value; an absent body seeds one
// empty bundle.
func seedItems(body []byte) ([]FormItem, error) {
	if len(body) == 0 {
		b := NewArgumentBundle()
		return []FormItem{{Bundle: &b}}, nil
	}

	var parsed any
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, err
	}

	switch v := parsed.(type) {
	case map[string]any:
		b := bundleFromMap(v)
		return []FormItem{{Bundle: &b}}, nil
	case []any:
		if allObjectsOrNull(v) {
			items := make([]FormItem, len(v))
			for i, el := range v {
				if el == nil {
					items[i] = FormItem{Null: true}
					continue
				}
				b := bundleFromMap(el.(map[string]any))
				items[i] = FormItem{Bundle: &b}
			}
			return items, nil
		}
		b := NewArgumentBundle()
		b.Positional = v
		return []FormItem{{Bundle: &b}}, nil
	default:
		b := NewArgumentBundle()
		b.Positional = []any{v}
		return []FormItem{{Bundle: &b}}, nil
	}
}

func allObjectsOrNull(v []any) bool {
	for _, el := range v {
		if el == nil {
			continue
		}
		if _, ok := el.(map[string]any); !ok {
			return false
		}
	}
	return true
}

// bundleFromMap builds a bundle from a decoded JSON object. A literal ""
// key, if present, supplies the positional sequence directly.
func bundleFromMap(m map[string]any) ArgumentBundle {
	b := NewArgumentBundle()
	for k, v := range m {
		if k == "" {
			if seq, ok := v.([]any); ok {
				b.Positional = seq
			}
			continue
		}
		b.Named[k] = v
	}
	return b
}

// applyQuery fills bundle per §4.2 step 2-3.
func applyQuery(b *ArgumentBundle, query map[string][]string) {
	for k, values := range query {
		if len(values) == 0 {
			continue
		}
		if k == "" {
			for _, s := range values {
				b.Positional = append(b.Positional, s)
			}
			continue
		}

		var newVal any
		if len(values) == 1 {
			newVal = values[0]
		} else {
			seq := make([]any, len(values))
			for i, s := range values {
				seq[i] = s
			}
			newVal = seq
		}

		existing, present := b.Named[k]
		if !present {
			b.Named[k] = newVal
			continue
		}
		switch ev := existing.(type) {
		case []any:
			if seq, ok := newVal.([]any); ok {
				b.Named[k] = append(ev, seq...)
			} else {
				b.Named[k] = append(ev, newVal)
			}
		default:
			if isFalsy(existing) && isTruthy(newVal) {
				b.Named[k] = newVal
			} else if existing == nil && newVal != nil {
				b.Named[k] = newVal
			}
			// otherwise: body value dominates, keep existing.
		}
	}
}

// applyOverrides sets every override key unconditionally (the empty key is
// not overridable: it does not belong to Named).
func applyOverrides(b *ArgumentBundle, overrides map[string]any) {
	for k, v := range overrides {
		if k == "" {
			continue
		}
		b.Named[k] = v
	}
}

func isFalsy(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case bool:
		return !x
	case string:
		return x == ""
	case float64:
		return x == 0
	case []any:
		return len(x) == 0
	case map[string]any:
		return len(x) == 0
	default:
		return false
	}
}

func isTruthy(v any) bool { return !isFalsy(v) }
