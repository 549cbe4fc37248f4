// Package format implements the response formatter registry (C6, spec
// §4.6): selection of a Formatter by the client's Accept header. Concrete
// formatters beyond the bundled JSON one are out of scope; callers register
// their own for additional media types.
package format

import (
	"mime"
	"strings"

	"github.com/DataBooster/pywebapi-go/dispatcherr"
)

// Formatter converts a result object into its wire representation for one
// of its declared media types.
type Formatter interface {
	MediaTypes() []string
	Format(obj any, mediaType string) ([]byte, error)
}

// Registry holds registered formatters and selects among them by Accept
// header (spec §4.6).
type Registry struct {
	formatters []Formatter
	def        Formatter
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds f. If f's media-type set is a superset of an already
// registered formatter's set, it replaces that entry in place; otherwise it
// is appended (spec §4.6 "Registration rule").
func (r *Registry) Register(f Formatter) {
	for i, existing := range r.formatters {
		if isSuperset(f.MediaTypes(), existing.MediaTypes()) {
			r.formatters[i] = f
			return
		}
	}
	r.formatters = append(r.formatters, f)
}

// SetDefault registers f (if not already registered) and marks it the
// default formatter returned when no Accept type matches.
func (r *Registry) SetDefault(f Formatter) {
	r.Register(f)
	r.def = f
}

// Select returns the first registered formatter whose media types intersect
// the Accept header's requested set, and the chosen media type. On empty
// intersection, the default formatter is returned with its first media
// type. Fails with format-unavailable if no default is registered.
func (r *Registry) Select(acceptHeader string) (Formatter, string, error) {
	requested := parseAccept(acceptHeader)

	for _, f := range r.formatters {
		for _, want := range requested {
			for _, have := range f.MediaTypes() {
				if matches(want, have) {
					return f, have, nil
				}
			}
		}
	}

	if r.def == nil {
		return nil, "", dispatcherr.New(dispatcherr.KindFormatUnavailable, "no formatter available and no default registered")
	}
	types := r.def.MediaTypes()
	if len(types) == 0 {
		return nil, "", dispatcherr.New(dispatcherr.KindFormatUnavailable, "default formatter declares no media types")
	}
	return r.def, types[0], nil
}

func isSuperset(a, b []string) bool {
	set := make(map[string]bool, len(a))
	for _, t := range a {
		set[t] = true
	}
	for _, t := range b {
		if !set[t] {
			return false
		}
	}
	return true
}

// parseAccept splits an Accept header into media types in preference order,
// ignoring quality parameters beyond ordering (this is a minimal parser;
// full content negotiation is out of scope per spec §1).
func parseAccept(header string) []string {
	if strings.TrimSpace(header) == "" {
		return []string{"*/*"}
	}
	parts := strings.Split(header, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if mt, _, err := mime.ParseMediaType(strings.TrimSpace(p)); err == nil {
			out = append(out, mt)
		}
	}
	if len(out) == 0 {
		out = append(out, "*/*")
	}
	return out
}

func matches(want, have string) bool {
	if want == "*/*" || want == have {
		return true
	}
	wantType, wantSub, ok1 := splitType(want)
	haveType, haveSub, ok2 := splitType(have)
	if !ok1 || !ok2 {
		return false
	}
	if wantSub == "*" {
		return wantType == haveType
	}
	return wantType == haveType && wantSub == haveSub
}

func splitType(mt string) (typ, sub string, ok bool) {
	i := strings.IndexByte(mt, '/')
	if i < 0 {
		return "", "", false
	}
	return mt[:i], mt[i+1:], true
}
