package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DataBooster/pywebapi-go/dispatcherr"
)

// fakeInvoker records every call it receives and returns a scripted result
// (or sleeps, or fails) keyed by target URL.
type fakeInvoker struct {
	mu    sync.Mutex
	calls []fakeCall

	results map[string]any
	errors  map[string]error
	delays  map[string]time.Duration
}

type fakeCall struct {
	url     string
	payload map[string]any
}

func newFakeInvoker() *fakeInvoker {
	return &fakeInvoker{
		results: map[string]any{},
		errors:  map[string]error{},
		delays:  map[string]time.Duration{},
	}
}

func (f *fakeInvoker) Call(ctx context.Context, targetURL string, payload map[string]any, headers map[string]string) (any, error) {
	f.mu.Lock()
	f.calls = append(f.calls, fakeCall{url: targetURL, payload: payload})
	delay := f.delays[targetURL]
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.errors[targetURL]; ok {
		return nil, err
	}
	return f.results[targetURL], nil
}

func (f *fakeInvoker) callsFor(url string) []fakeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []fakeCall
	for _, c := range f.calls {
		if c.url == url {
			out = append(out, c)
		}
	}
	return out
}

// P7 (serial pipe): L2 invoked with merged payload; user-provided dominates.
func TestSerialPipe_FillMissing(t *testing.T) {
	inv := newFakeInvoker()
	inv.results["/a"] = map[string]any{"token": "T"}
	inv.results["/b"] = map[string]any{"ok": true}

	tree := &Node{Kind: KindSerial, Children: []*Node{
		{Kind: KindLeaf, TargetURL: "/a", Payload: map[string]any{}},
		{Kind: KindLeaf, TargetURL: "/b", WithPipe: true, Payload: map[string]any{"b": 2}},
	}}

	r := NewRunner(inv, nil)
	result, err := r.Run(context.Background(), tree)
	require.NoError(t, err)
	require.IsType(t, []any{}, result)

	calls := inv.callsFor("/b")
	require.Len(t, calls, 1)
	assert.Equal(t, map[string]any{"token": "T", "b": 2}, calls[0].payload)
}

func TestSerialPipe_UserValueDominates(t *testing.T) {
	inv := newFakeInvoker()
	inv.results["/a"] = map[string]any{"a": 1}

	tree := &Node{Kind: KindSerial, Children: []*Node{
		{Kind: KindLeaf, TargetURL: "/a", Payload: map[string]any{}},
		{Kind: KindLeaf, TargetURL: "/b", WithPipe: true, Payload: map[string]any{"a": 9, "b": 2}},
	}}

	r := NewRunner(inv, nil)
	_, err := r.Run(context.Background(), tree)
	require.NoError(t, err)

	calls := inv.callsFor("/b")
	require.Len(t, calls, 1)
	assert.Equal(t, map[string]any{"a": 9, "b": 2}, calls[0].payload)
}

// P8 (parallel timeout): children sleeping longer than the group timeout
// surface group-timeout.
func TestParallelGroupTimeout(t *testing.T) {
	inv := newFakeInvoker()
	inv.delays["/a"] = 2 * time.Second
	inv.delays["/b"] = 2 * time.Second
	inv.results["/a"] = "done-a"
	inv.results["/b"] = "done-b"

	tree := &Node{Kind: KindParallel, Timeout: 100 * time.Millisecond, Children: []*Node{
		{Kind: KindLeaf, TargetURL: "/a"},
		{Kind: KindLeaf, TargetURL: "/b"},
	}}

	r := NewRunner(inv, nil)
	_, err := r.Run(context.Background(), tree)
	require.Error(t, err)
	de, ok := dispatcherr.As(err)
	require.True(t, ok)
	assert.Equal(t, dispatcherr.KindGroupTimeout, de.Kind)
}

// P9 (single-child parallel degrades to serial, I5).
func TestSingleChildParallelDegradesToSerial(t *testing.T) {
	inv := newFakeInvoker()
	inv.results["/solo"] = "result"

	parallel := &Node{Kind: KindParallel, Children: []*Node{{Kind: KindLeaf, TargetURL: "/solo"}}}
	serial := &Node{Kind: KindSerial, Children: []*Node{{Kind: KindLeaf, TargetURL: "/solo"}}}

	r := NewRunner(inv, nil)
	parallelResult, err := r.Run(context.Background(), parallel)
	require.NoError(t, err)
	serialResult, err := r.Run(context.Background(), serial)
	require.NoError(t, err)

	assert.Equal(t, serialResult, parallelResult)
}

// P10 (aggregator equality): N identical failures collapse to one message.
func TestParallelAggregatesIdenticalErrors(t *testing.T) {
	inv := newFakeInvoker()
	sameErr := fmt.Errorf("boom")
	inv.errors["/a"] = sameErr
	inv.errors["/b"] = sameErr
	inv.errors["/c"] = sameErr

	tree := &Node{Kind: KindParallel, Children: []*Node{
		{Kind: KindLeaf, TargetURL: "/a"},
		{Kind: KindLeaf, TargetURL: "/b"},
		{Kind: KindLeaf, TargetURL: "/c"},
	}}

	r := NewRunner(inv, nil)
	_, err := r.Run(context.Background(), tree)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "/a")
	assert.Contains(t, err.Error(), "/b")
	assert.Contains(t, err.Error(), "/c")
	assert.Contains(t, err.Error(), "3 target(s) failed")
}

func TestParallelCompletionOrderNotInputOrder(t *testing.T) {
	inv := newFakeInvoker()
	inv.delays["/slow"] = 60 * time.Millisecond
	inv.results["/slow"] = "slow"
	inv.results["/fast"] = "fast"

	tree := &Node{Kind: KindParallel, Children: []*Node{
		{Kind: KindLeaf, TargetURL: "/slow"},
		{Kind: KindLeaf, TargetURL: "/fast"},
	}}

	r := NewRunner(inv, nil)
	result, err := r.Run(context.Background(), tree)
	require.NoError(t, err)
	results := result.([]any)
	require.Len(t, results, 2)
	assert.Equal(t, "fast", results[0])
	assert.Equal(t, "slow", results[1])
}

func TestSerialAbortsOnFirstError(t *testing.T) {
	inv := newFakeInvoker()
	boom := fmt.Errorf("boom")
	inv.errors["/a"] = boom

	calledB := atomic.Bool{}
	_ = calledB

	tree := &Node{Kind: KindSerial, Children: []*Node{
		{Kind: KindLeaf, TargetURL: "/a"},
		{Kind: KindLeaf, TargetURL: "/b"},
	}}

	r := NewRunner(inv, nil)
	_, err := r.Run(context.Background(), tree)
	require.Error(t, err)
	assert.Empty(t, inv.callsFor("/b"))
}

func TestPoolWidthBoundsConcurrency(t *testing.T) {
	inv := newFakeInvoker()
	for i := 0; i < 10; i++ {
		url := fmt.Sprintf("/leaf-%d", i)
		inv.delays[url] = 20 * time.Millisecond
		inv.results[url] = "ok"
	}

	children := make([]*Node, 10)
	for i := range children {
		children[i] = &Node{Kind: KindLeaf, TargetURL: fmt.Sprintf("/leaf-%d", i)}
	}
	tree := &Node{Kind: KindParallel, Children: children}

	r := &Runner{Invoker: inv, PoolWidth: 2}
	start := time.Now()
	_, err := r.Run(context.Background(), tree)
	require.NoError(t, err)
	elapsed := time.Since(start)
	// 10 leaves at width 2 with 20ms each must take at least ~5 batches.
	assert.GreaterOrEqual(t, elapsed, 90*time.Millisecond)
}
