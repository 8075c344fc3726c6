package graph

import (
	"fmt"

	"github.com/productgraph/pgsched/intern"
	"github.com/productgraph/pgsched/registry"
	"github.com/productgraph/pgsched/types"
)

// Graph is the live product-graph node table. The zero value is not
// usable; use New. Graph is not safe for concurrent use: callers (in
// practice, package scheduler) must serialize every method call.
type Graph struct {
	store *intern.Store
	reg   *registry.Registry

	nodes []*node
	byKey map[types.NodeKey]NodeID
}

// New returns an empty Graph backed by store for interning and reg for
// rule lookup.
func New(store *intern.Store, reg *registry.Registry) *Graph {
	return &Graph{
		store: store,
		reg:   reg,
		byKey: make(map[types.NodeKey]NodeID),
	}
}

// nodeKeyFor computes the NodeKey for a demand. shape is always a plain
// Select(product): every concrete selector kind that creates a dependency
// demand (Select, SelectVariant once narrowed, SelectLiteral, and the two
// intermediate/per-element/projected demands inside SelectDependencies and
// SelectProjection) is, at the point a node is created, indistinguishable
// from "give me product for this subject" — so collapsing the shape
// component to a canonical Select(product) is what makes two selectors of
// different kinds that happen to ask for the same (subject, product,
// variants) memoize onto one node, as the data model's "same key, same
// node" invariant requires.
func (g *Graph) nodeKeyFor(subject any, product types.ProductType, variants types.Variants) types.NodeKey {
	shape := types.Select(product)
	return types.NodeKey{
		Subject:  g.store.PutTyped(subject),
		Product:  product,
		Variants: g.store.Put(variants),
		Selector: g.store.PutTyped(shape),
	}
}

// getOrCreate returns the node for key, creating it in Waiting if absent.
func (g *Graph) getOrCreate(key types.NodeKey, subject any, product types.ProductType, variants types.Variants) NodeID {
	if id, ok := g.byKey[key]; ok {
		return id
	}
	id := NodeID(len(g.nodes))
	g.nodes = append(g.nodes, &node{
		id:          id,
		key:         key,
		subject:     subject,
		subjectType: types.SubjectTypeOf(subject),
		product:     product,
		variants:    variants,
		state:       types.Waiting,
		generation:  1,
		parents:     make(map[NodeID]struct{}),
	})
	g.byKey[key] = id
	return id
}

func (g *Graph) addParentEdge(childID, parentID NodeID) {
	g.nodes[childID].parents[parentID] = struct{}{}
}

// Demand returns the node for (subject, product, variants), creating it in
// Waiting if absent. Idempotent: repeated calls with structurally equal
// arguments return the same NodeID.
func (g *Graph) Demand(subject any, product types.ProductType, variants types.Variants) NodeID {
	key := g.nodeKeyFor(subject, product, variants)
	return g.getOrCreate(key, subject, product, variants)
}

// Walk advances root and everything reachable from it, appending the ids
// of nodes that transitioned into Runnable during this call to out and
// returning the updated slice. Call once per root per scheduler iteration.
func (g *Graph) Walk(root NodeID, out []NodeID) []NodeID {
	path := make(map[types.NodeKey]bool)
	g.ensureAdvanced(root, path, &out)
	return out
}

// Complete transitions a Runnable node to Return or Throw. generation must
// match the value observed when the node became Runnable (Generation);
// a mismatch means the node was invalidated while its runnable was in
// flight, and Complete silently discards the stale result, per the
// cancellation/invalidation semantics in the concurrency model.
func (g *Graph) Complete(id NodeID, generation uint64, result any, runErr error) error {
	n := g.nodes[id]
	if n.generation != generation {
		return nil
	}
	if n.state != types.Runnable {
		return fmt.Errorf("graph: Complete called on %s in state %s, want Runnable", id, n.state)
	}
	if runErr != nil {
		n.state = types.Throw
		n.failure = types.NewFailure("rule function failed", runErr).Propagate(id.String())
		return nil
	}
	n.state = types.Return
	n.result = result
	return nil
}

// Invalidate resets every node matching predicate (applied to the node's
// subject) and every ancestor transitively depending on it back to
// Waiting, bumping each one's generation so that a Runnable already
// yielded for it is rejected by a later, stale Complete call. It returns
// the ids reset.
func (g *Graph) Invalidate(predicate func(subject any) bool) []NodeID {
	toReset := map[NodeID]bool{}
	var queue []NodeID

	for i, n := range g.nodes {
		if n != nil && predicate(n.subject) {
			id := NodeID(i)
			toReset[id] = true
			queue = append(queue, id)
		}
	}

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		n := g.nodes[id]
		for parentID := range n.parents {
			if !toReset[parentID] {
				toReset[parentID] = true
				queue = append(queue, parentID)
			}
		}
	}

	ids := make([]NodeID, 0, len(toReset))
	for id := range toReset {
		n := g.nodes[id]
		n.state = types.Waiting
		n.generation++
		n.rule = nil
		n.candidateIdx = 0
		n.selectors = nil
		n.runnableArgs = nil
		n.result = nil
		n.failure = nil
		n.noop = nil
		ids = append(ids, id)
	}
	return ids
}

// Accessors used by package scheduler to build batch elements and read
// root_entries.

func (g *Graph) State(id NodeID) types.State          { return g.nodes[id].state }
func (g *Graph) Generation(id NodeID) uint64          { return g.nodes[id].generation }
func (g *Graph) Rule(id NodeID) *types.Rule           { return g.nodes[id].rule }
func (g *Graph) RunnableArgs(id NodeID) []any         { return g.nodes[id].runnableArgs }
func (g *Graph) Result(id NodeID) any                 { return g.nodes[id].result }
func (g *Graph) Failure(id NodeID) *types.Failure     { return g.nodes[id].failure }
func (g *Graph) NoopReason(id NodeID) *types.NoopReason { return g.nodes[id].noop }
func (g *Graph) Subject(id NodeID) any                { return g.nodes[id].subject }
func (g *Graph) Product(id NodeID) types.ProductType  { return g.nodes[id].product }
func (g *Graph) Cacheable(id NodeID) bool             { return g.nodes[id].cacheable }
func (g *Graph) NodeCount() int                       { return len(g.nodes) }

// Nodes iterates every live node id, for diagnostics (visualize).
func (g *Graph) Nodes(fn func(id NodeID)) {
	for i := range g.nodes {
		fn(NodeID(i))
	}
}
