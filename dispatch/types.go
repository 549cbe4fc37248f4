// Package dispatch implements the argument-dispatch engine (spec §4.1-§4.5):
// URL-path resolution, body/query merging, signature binding, the scoped
// handler loader, and single/bulk invocation.
package dispatch

// RequestFunctionPath is the triple (directory, handler_set_name,
// procedure_name) extracted from a request URL by the path resolver (C1).
type RequestFunctionPath struct {
	Directory   string
	HandlerSet  string
	Procedure   string
}

// ArgumentBundle is an ordered mapping from parameter name to value, plus a
// distinguished positional sequence (I3: never nil, absence is an empty
// slice).
type ArgumentBundle struct {
	Positional []any
	Named      map[string]any
}

// NewArgumentBundle returns an empty, well-formed bundle.
func NewArgumentBundle() ArgumentBundle {
	return ArgumentBundle{Positional: []any{}, Named: map[string]any{}}
}

// FormItem is one element of the internal bundle list a merged ArgumentForm
// carries. Null marks a JSON null element of a bulk body. In a form of more
// than one item, C5 yields a bare nil result for these without invoking
// anything; a form whose only item is null is invoked with an empty bundle.
type FormItem struct {
	Bundle *ArgumentBundle
	Null   bool
}

// ArgumentForm is the closed sum type from spec §3: either a single bundle
// or an ordered sequence of bundles. Per §4.2's return rule, the merger
// always collapses a length-1 internal list to a single call, regardless of
// whether the request body was originally an object or a one-element array.
type ArgumentForm struct {
	Items []FormItem
}

// IsSingle reports whether this form collapses to exactly one call.
func (f *ArgumentForm) IsSingle() bool { return len(f.Items) == 1 }

// ParameterKind enumerates the parameter binding modes of §3/§4.3.
type ParameterKind int

const (
	PositionalOnly ParameterKind = iota
	PositionalOrNamed
	VariadicPositional
	VariadicNamed
	NamedOnly
)

// ParameterDescriptor describes one parameter of a registered procedure.
// Required iff HasDefault is false.
type ParameterDescriptor struct {
	Name       string
	Kind       ParameterKind
	Default    any
	HasDefault bool
}
