// Package graph implements the product graph: a memoizing, lazily
// constructed DAG of nodes keyed by (subject, product, variants,
// selector-shape), advanced one demand walk at a time under the caller's
// lock (package scheduler owns that lock; Graph itself assumes
// single-writer access, following the "only the scheduler loop writes"
// resource rule).
//
// The node table is modeled as an arena — nodes are indices into a slice,
// edges are id pairs — per the "graph ownership" design note: this
// replaces reference-counted back-edges and lets Invalidate work by
// resetting a node in place and bumping its generation counter, rather
// than by freeing and reallocating.
package graph

import (
	"fmt"

	"github.com/productgraph/pgsched/types"
)

// NodeID is a dense arena index identifying a node.
type NodeID int

func (id NodeID) String() string {
	return fmt.Sprintf("n%d", int(id))
}

// selectorPhase tracks how far a single selector in the currently-chosen
// rule's selector list has progressed toward producing its argument value.
type selectorPhase int

const (
	phasePending          selectorPhase = iota // not yet started
	phaseAwaitingElements                      // SelectDependencies: per-element nodes outstanding
	phaseAwaitingProjected                     // SelectProjection: projected-subject node outstanding
	phaseSettled                                // value, noop or throw captured
)

// selectorState is the live evaluation state of one selector belonging to
// the node's currently-chosen candidate rule.
type selectorState struct {
	selector types.Selector

	phase selectorPhase

	elementIDs  []NodeID // SelectDependencies only
	projectedID NodeID   // SelectProjection only

	value any // argument value once phase == phaseSettled and noop/throw are nil
	noop  *types.NoopReason
	throw *types.Failure
}

// node is a single product-graph node. Not exported: all interaction goes
// through Graph's methods so that edges and the byKey index stay
// consistent.
type node struct {
	id  NodeID
	key types.NodeKey

	subject     any
	subjectType types.SubjectType
	product     types.ProductType
	variants    types.Variants

	state      types.State
	generation uint64

	rule          *types.Rule
	candidateIdx  int
	selectors     []selectorState
	runnableArgs  []any
	cacheable     bool

	result  any
	failure *types.Failure
	noop    *types.NoopReason

	// parents holds the reverse edges used by Invalidate's ancestor walk:
	// every node that currently depends on this one.
	parents map[NodeID]struct{}
}
