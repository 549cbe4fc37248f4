// Package orchestrator implements the task-grouping orchestrator: a
// recursive task tree of leaf REST calls, serial groups and parallel groups,
// executed with a bounded worker pool and result->argument pipelining
// between serial stages.
package orchestrator

import "time"

// Reserved tag keys from spec §4.7. These must not collide with user payload
// keys; a user payload key equal to one of these is treated as a structural
// tag rather than data.
const (
	tagLeafURL      = "(://)"
	tagLeafPayload  = "(...)"
	tagLeafPipe     = "(.|.)"
	tagLeafHeaders  = "(:^:)"
	tagTimeout      = "(:!!)"
	tagSerialGroup  = "[+++]"
	tagParallelGroup = "[###]"
)

// Kind discriminates the three TaskNode variants.
type Kind int

const (
	KindLeaf Kind = iota
	KindSerial
	KindParallel
)

// Node is a tagged-variant task tree node (spec §3 TaskNode).
//
// Leaf carries a remote call target. Serial and Parallel carry children and
// are executed in the obvious order, with Parallel additionally downgraded
// to Serial execution whenever it has exactly one child (invariant I5).
type Node struct {
	Kind Kind

	// Leaf fields.
	TargetURL string
	Payload   map[string]any
	WithPipe  bool
	Headers   map[string]string

	// Group fields.
	Children []*Node

	// Optional timeout, zero means "no timeout enforced here". It is
	// enforced for leaves (per-call) and for parallel groups (group-timeout);
	// a serial group carries the value but its execution does not enforce it.
	Timeout time.Duration
}

// effectiveKind returns the Kind this node should execute as, applying I5:
// a parallel group with exactly one child degrades to serial execution.
func (n *Node) effectiveKind() Kind {
	if n.Kind == KindParallel && len(n.Children) == 1 {
		return KindSerial
	}
	return n.Kind
}
