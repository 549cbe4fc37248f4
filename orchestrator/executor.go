package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/DataBooster/pywebapi-go/dispatcherr"
)

// Runner executes a task tree built by LoadTree (spec §4.8 Task Container /
// Executor). A Runner is safe to reuse across independent Run calls; each
// Run provisions its own worker pool scoped to that single execution.
type Runner struct {
	Invoker   RESTInvoker
	PoolWidth int
	Logger    *slog.Logger
}

// NewRunner builds a Runner around the given invoker. A nil logger defaults
// to slog.Default(), matching orchestration.NewCoordinator in the teacher repo.
func NewRunner(invoker RESTInvoker, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{Invoker: invoker, Logger: logger}
}

// Run executes root and returns its aggregated result. The worker pool
// provisioned here is shared by every parallel group in the tree and lives
// only for the duration of this call. Each run is tagged with a generated
// run ID for log correlation across the (possibly many) leaf calls it makes.
func (r *Runner) Run(ctx context.Context, root *Node) (any, error) {
	runID := uuid.NewString()
	logger := r.Logger
	if logger != nil {
		logger = logger.With("run_id", runID)
		logger.Debug("orchestrator: run started")
	}

	p := newPool(r.PoolWidth)
	run := &Runner{Invoker: r.Invoker, PoolWidth: r.PoolWidth, Logger: logger}
	result, err := run.runNode(ctx, p, root, nil)

	if logger != nil {
		if err != nil {
			logger.Debug("orchestrator: run failed", "error", err)
		} else {
			logger.Debug("orchestrator: run completed")
		}
	}
	return result, err
}

func (r *Runner) runNode(ctx context.Context, p *pool, node *Node, pipe any) (any, error) {
	switch node.effectiveKind() {
	case KindLeaf:
		return r.runLeaf(ctx, node, pipe)
	case KindSerial:
		return r.runSerial(ctx, p, node, pipe)
	case KindParallel:
		return r.runParallel(ctx, p, node, pipe)
	default:
		return nil, fmt.Errorf("orchestrator: unknown node kind %d", node.Kind)
	}
}

// runLeaf applies the fill-missing pipe merge (I6) and issues the single
// outbound call for this leaf.
func (r *Runner) runLeaf(ctx context.Context, node *Node, pipe any) (any, error) {
	payload := node.Payload
	if payload == nil {
		payload = map[string]any{}
	}

	effective := payload
	if node.WithPipe {
		if pm := normalizePipe(pipe); len(pm) > 0 {
			effective = mergeFillMissing(payload, pm)
		}
	}

	callCtx := ctx
	if node.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, node.Timeout)
		defer cancel()
	}

	if r.Logger != nil {
		r.Logger.Debug("orchestrator: invoking leaf", "url", node.TargetURL, "with_pipe", node.WithPipe)
	}
	return r.Invoker.Call(callCtx, node.TargetURL, effective, node.Headers)
}

// runSerial executes children strictly left-to-right, feeding each child's
// result forward as the next child's pipe (spec §4.8 Serial). The first
// child error aborts the group and propagates immediately.
func (r *Runner) runSerial(ctx context.Context, p *pool, node *Node, pipe any) (any, error) {
	acc := pipe
	results := make([]any, 0, len(node.Children))
	for _, child := range node.Children {
		res, err := r.runNode(ctx, p, child, acc)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
		acc = res
	}
	return results, nil
}

// runParallel fans children out onto the shared pool and collects results in
// completion order (spec §4.8 Parallel). A group timeout elapsing before all
// children finish surfaces group-timeout; children already in flight are not
// cancelled and keep running to completion with their results discarded,
// matching the documented observable behavior (§4.8, §9).
func (r *Runner) runParallel(ctx context.Context, p *pool, node *Node, pipe any) (any, error) {
	children := node.Children
	type item struct {
		result any
		err    error
		target string
	}
	resultsCh := make(chan item, len(children))

	var g errgroup.Group
	for _, child := range children {
		child := child
		g.Go(func() error {
			return p.run(ctx, func() {
				res, err := r.runNode(ctx, p, child, pipe)
				resultsCh <- item{result: res, err: err, target: leafLabel(child)}
			})
		})
	}
	// Spawning is fire-and-forget: we do not wait on g here because the
	// collection loop below must be able to time out independently while
	// in-flight children keep running and feeding the buffered channel.

	var timeoutCh <-chan time.Time
	if node.Timeout > 0 {
		timer := time.NewTimer(node.Timeout)
		defer timer.Stop()
		timeoutCh = timer.C
	}

	results := make([]any, 0, len(children))
	agg := NewErrorAggregator()
	for received := 0; received < len(children); received++ {
		select {
		case it := <-resultsCh:
			if it.err != nil {
				agg.Add(it.err, it.target)
			} else {
				results = append(results, it.result)
			}
		case <-timeoutCh:
			return nil, dispatcherr.New(dispatcherr.KindGroupTimeout,
				"parallel group timed out after %s with %d/%d children complete", node.Timeout, received, len(children))
		case <-ctx.Done():
			return nil, dispatcherr.Wrap(dispatcherr.KindGroupTimeout, ctx.Err(), "parallel group cancelled")
		}
	}

	if err := agg.Close(); err != nil {
		return nil, err
	}
	return results, nil
}

// normalizePipe reduces an incoming pipe value to a plain map for merging
// (spec §4.8 Pipe normalization). A list pipe is reduced by merging its
// non-empty element maps left-to-right; anything else that isn't already a
// map degrades to "no pipe".
func normalizePipe(pipe any) map[string]any {
	switch v := pipe.(type) {
	case map[string]any:
		return v
	case []any:
		merged := map[string]any{}
		for _, el := range v {
			if m, ok := el.(map[string]any); ok {
				for k, val := range m {
					merged[k] = val
				}
			}
		}
		return merged
	default:
		return nil
	}
}

// mergeFillMissing returns a fresh map containing payload plus every pipe
// key payload does not already bind (I6: user input dominates pipeline
// data). payload itself is never mutated.
func mergeFillMissing(payload, pipe map[string]any) map[string]any {
	out := make(map[string]any, len(payload)+len(pipe))
	for k, v := range payload {
		out[k] = v
	}
	for k, v := range pipe {
		if _, exists := out[k]; !exists {
			out[k] = v
		}
	}
	return out
}

func leafLabel(n *Node) string {
	if n.Kind == KindLeaf {
		return n.TargetURL
	}
	if n.Kind == KindParallel {
		return "<parallel-group>"
	}
	return "<serial-group>"
}
