package dispatch

import (
	"strings"

	"github.com/DataBooster/pywebapi-go/dispatcherr"
)

// BoundArguments is the result of binding a ParameterDescriptor sequence to
// one ArgumentBundle. A handler reads its parameters by declared name
// regardless of kind: a variadic-positional parameter's value is a []any
// tuple, a variadic-named parameter's value is a map[string]any.
type BoundArguments struct {
	values map[string]any
}

// Get returns the bound value for a declared parameter name.
func (b *BoundArguments) Get(name string) (any, bool) {
	v, ok := b.values[name]
	return v, ok
}

// Bind implements C3 (spec §4.3): bind params, in declaration order, against
// bundle's positional sequence and named map.
func Bind(params []ParameterDescriptor, bundle ArgumentBundle) (*BoundArguments, error) {
	pos := append([]any{}, bundle.Positional...)
	named := make(map[string]any, len(bundle.Named))
	for k, v := range bundle.Named {
		named[k] = v
	}

	values := make(map[string]any, len(params))
	bound := make(map[string]bool, len(params))
	var missing []string

	for _, p := range params {
		switch p.Kind {
		case PositionalOnly, PositionalOrNamed:
			switch {
			case len(pos) > 0:
				values[p.Name] = pos[0]
				pos = pos[1:]
				bound[p.Name] = true
			default:
				if v, ok := named[p.Name]; ok {
					values[p.Name] = v
					delete(named, p.Name)
					bound[p.Name] = true
				} else if p.HasDefault {
					values[p.Name] = p.Default
					bound[p.Name] = true
				} else {
					missing = append(missing, p.Name)
				}
			}

		case VariadicPositional:
			tuple := append([]any{}, pos...)
			pos = nil
			if v, ok := named[p.Name]; ok {
				delete(named, p.Name)
				if seq, ok := asSequence(v); ok {
					tuple = append(tuple, seq...)
				}
			}
			values[p.Name] = tuple
			bound[p.Name] = true

		case VariadicNamed:
			kwMap := map[string]any{}
			self, hasSelf := named[p.Name]
			for k, v := range named {
				if k == p.Name {
					continue
				}
				kwMap[k] = v
			}
			if hasSelf {
				if pairs, ok := self.(map[string]any); ok {
					for k, v := range pairs {
						if bound[k] {
							kwMap[k] = v
						} else if _, exists := kwMap[k]; !exists {
							kwMap[k] = v
						}
					}
				}
			}
			named = map[string]any{}
			values[p.Name] = kwMap
			bound[p.Name] = true

		case NamedOnly:
			if v, ok := named[p.Name]; ok {
				values[p.Name] = v
				delete(named, p.Name)
				bound[p.Name] = true
			} else if p.HasDefault {
				values[p.Name] = p.Default
				bound[p.Name] = true
			} else {
				missing = append(missing, p.Name)
			}
		}
	}

	if len(missing) > 0 {
		return nil, dispatcherr.New(dispatcherr.KindMissingArguments,
			"missing required arguments: %s", strings.Join(missing, ", "))
	}

	return &BoundArguments{values: values}, nil
}

// asSequence returns v as a []any if it is iterable JSON (an array), else
// false.
func asSequence(v any) ([]any, bool) {
	seq, ok := v.([]any)
	return seq, ok
}
