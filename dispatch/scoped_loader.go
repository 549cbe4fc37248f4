package dispatch

import (
	"os"
	"sync"

	"github.com/DataBooster/pywebapi-go/dispatcherr"
)

// ScopedLoader implements C4: it resolves a handler set with the process
// working directory and an internal lookup path temporarily rerooted to the
// target directory, and guarantees both are restored on release (spec
// §4.4, I2). Because this mutates process-wide state, only one scope may be
// active at a time (§5) — Acquire blocks on a single mutex held from enter
// to release.
type ScopedLoader struct {
	resolver Resolver

	mu         sync.Mutex
	lookupPath []string
}

// NewScopedLoader returns a loader backed by resolver (typically a
// *Registry, or a *CachedResolver wrapping one). The lookup path starts
// with the sentinel entries the spec's insertion rule is defined relative
// to.
func NewScopedLoader(resolver Resolver) *ScopedLoader {
	return &ScopedLoader{resolver: resolver, lookupPath: []string{"", "."}}
}

// Scope is the handle returned by Acquire. Release must be called exactly
// once, on every exit path, to restore process state (I2).
type Scope struct {
	loader *ScopedLoader

	HandlerSet *HandlerSet

	directory   string
	prevCwd     string
	cwdChanged  bool
	pathChanged bool
	released    bool
}

// Acquire resolves handlerSetName under directory, rerooting cwd and the
// lookup path as needed (spec §4.4 steps 1-4). The returned Scope's Release
// must run on every exit path; if acquisition fails partway, the
// already-applied steps are unwound before returning.
func (l *ScopedLoader) Acquire(directory, handlerSetName string) (*Scope, error) {
	l.mu.Lock()

	prevCwd, err := os.Getwd()
	if err != nil {
		l.mu.Unlock()
		return nil, dispatcherr.Wrap(dispatcherr.KindNotFound, err, "cannot read working directory")
	}

	scope := &Scope{loader: l, directory: directory, prevCwd: prevCwd}

	if directory != prevCwd {
		if err := os.Chdir(directory); err != nil {
			l.mu.Unlock()
			return nil, dispatcherr.Wrap(dispatcherr.KindNotFound, err, "directory not found: %q", directory)
		}
		scope.cwdChanged = true
	}

	if !containsPath(l.lookupPath, directory) {
		l.lookupPath = insertAfterSentinels(l.lookupPath, directory)
		scope.pathChanged = true
	}

	hs, err := l.resolver.Resolve(directory, handlerSetName)
	if err != nil {
		scope.release()
		return nil, err
	}
	scope.HandlerSet = hs
	return scope, nil
}

// Release restores process state unwound by this scope and releases the
// exclusion mutex (spec §4.4 "Release", I2). Safe to call more than once.
func (s *Scope) Release() {
	if s.released {
		return
	}
	s.release()
}

// release performs the unwind without the idempotency guard, so Acquire can
// reuse it on a failed resolution without double-marking released (the
// caller never sees a *Scope in that case).
func (s *Scope) release() {
	s.released = true
	defer s.loader.mu.Unlock()

	if s.cwdChanged {
		if cur, err := os.Getwd(); err == nil && cur == s.directory {
			_ = os.Chdir(s.prevCwd)
		}
	}
	if s.pathChanged {
		s.loader.lookupPath = removePath(s.loader.lookupPath, s.directory)
	}
}

func containsPath(paths []string, target string) bool {
	for _, p := range paths {
		if p == target {
			return true
		}
	}
	return false
}

// insertAfterSentinels inserts target immediately after any leading
// sentinel entries ("" or "."), else at position 0 (spec §4.4 step 3).
func insertAfterSentinels(paths []string, target string) []string {
	idx := 0
	for idx < len(paths) && (paths[idx] == "" || paths[idx] == ".") {
		idx++
	}
	out := make([]string, 0, len(paths)+1)
	out = append(out, paths[:idx]...)
	out = append(out, target)
	out = append(out, paths[idx:]...)
	return out
}

func removePath(paths []string, target string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if p == target {
			continue
		}
		out = append(out, p)
	}
	return out
}
