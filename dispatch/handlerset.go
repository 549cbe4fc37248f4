package dispatch

import (
	"context"
	"sync"

	"github.com/DataBooster/pywebapi-go/dispatcherr"
)

// HandlerFunc is the shape every registered procedure implements. Go has no
// runtime introspection over arbitrary callables, so procedures register
// themselves with an explicit descriptor table (spec §9 "reflection over
// callables") rather than being discovered by reflection.
type HandlerFunc func(ctx context.Context, args *BoundArguments) (any, error)

// Procedure pairs one HandlerFunc with the parameter descriptors C3 binds
// against.
type Procedure struct {
	Name   string
	Params []ParameterDescriptor
	Fn     HandlerFunc
}

// HandlerSet is a named collection of procedures resolved by
// (directory, handler_set_name) (spec §3 HandlerSet).
type HandlerSet struct {
	Name       string
	Procedures map[string]*Procedure
}

// Lookup resolves procedureName, failing with not-a-procedure if absent
// (spec §4.5, §7).
func (hs *HandlerSet) Lookup(procedureName string) (*Procedure, error) {
	p, ok := hs.Procedures[procedureName]
	if !ok {
		return nil, dispatcherr.New(dispatcherr.KindNotAProcedure,
			"%q is not a procedure in handler set %q", procedureName, hs.Name)
	}
	return p, nil
}

// Registry is the explicit, process-wide table of handler sets keyed by the
// directory that scopes them and their name. It stands in for the dynamic
// module namespace the scoped loader (C4) would otherwise import from.
type Registry struct {
	mu   sync.RWMutex
	sets map[string]map[string]*HandlerSet
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{sets: map[string]map[string]*HandlerSet{}}
}

// Register adds hs under (directory, hs.Name), replacing any prior
// registration for the same pair.
func (r *Registry) Register(directory string, hs *HandlerSet) {
	r.mu.Lock()
	defer r.mu.Unlock()
	byName, ok := r.sets[directory]
	if !ok {
		byName = map[string]*HandlerSet{}
		r.sets[directory] = byName
	}
	byName[hs.Name] = hs
}

// Resolve looks up the handler set registered for (directory, name).
func (r *Registry) Resolve(directory, name string) (*HandlerSet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	byName, ok := r.sets[directory]
	if !ok {
		return nil, dispatcherr.New(dispatcherr.KindNotFound, "no handler sets registered under %q", directory)
	}
	hs, ok := byName[name]
	if !ok {
		return nil, dispatcherr.New(dispatcherr.KindNotFound, "handler set %q not found under %q", name, directory)
	}
	return hs, nil
}
