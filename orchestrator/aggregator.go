package orchestrator

import (
	"fmt"
	"strings"
	"sync"

	"github.com/DataBooster/pywebapi-go/dispatcherr"
)

// ErrorAggregator collects (error, target) pairs from a fan-out operation
// and, on Close, surfaces a single combined failure (spec §4.9 / C9). It
// never discards the individual classifications: Errors() returns every
// collected error for callers that want to introspect further.
type ErrorAggregator struct {
	mu      sync.Mutex
	entries []aggregatorEntry
}

type aggregatorEntry struct {
	err    error
	target string
}

// NewErrorAggregator returns an empty aggregator.
func NewErrorAggregator() *ErrorAggregator {
	return &ErrorAggregator{}
}

// Add records a failure for the named target. Add is safe for concurrent use
// so it can be called directly from parallel-group worker goroutines.
func (a *ErrorAggregator) Add(err error, target string) {
	if err == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, aggregatorEntry{err: err, target: target})
}

// Errors returns every collected error, in insertion order. The targets
// recorded with them are not included.
func (a *ErrorAggregator) Errors() []error {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]error, len(a.entries))
	for i, e := range a.entries {
		out[i] = e.err
	}
	return out
}

// Close finalizes the aggregator: nil if nothing was added; a single error
// enumerating affected targets if every collected error is equal (same kind
// and message); otherwise a combined error listing targets grouped by their
// distinct error.
func (a *ErrorAggregator) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.entries) == 0 {
		return nil
	}

	order := make([]string, 0, len(a.entries))
	targetsByKey := make(map[string][]string)
	for _, e := range a.entries {
		key := e.err.Error()
		if _, seen := targetsByKey[key]; !seen {
			order = append(order, key)
		}
		targetsByKey[key] = append(targetsByKey[key], e.target)
	}

	if len(order) == 1 {
		key := order[0]
		targets := targetsByKey[key]
		return dispatcherr.New(dispatcherr.KindAggregatedFailure,
			"%d target(s) failed with the same error (%s): %s", len(targets), key, strings.Join(targets, ", "))
	}

	var sb strings.Builder
	for i, key := range order {
		if i > 0 {
			sb.WriteString("; ")
		}
		fmt.Fprintf(&sb, "targets [%s]: %s", strings.Join(targetsByKey[key], ", "), key)
	}
	return dispatcherr.New(dispatcherr.KindAggregatedFailure, "multiple distinct errors: %s", sb.String())
}
