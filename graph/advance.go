package graph

import "github.com/productgraph/pgsched/types"

// ensureAdvanced drives n (and, recursively, whatever it demands) forward
// as far as it can go in one pass. path carries the set of node keys
// currently on this demand walk's call stack: a demand whose key is
// already in path would close a cycle, and is settled as Noop(cycle) at
// the point of demand rather than recursed into, satisfying "any attempt
// to create a back-edge to an ancestor produces Noop('cycle') at the
// descendant, not a panic."
func (g *Graph) ensureAdvanced(id NodeID, path map[types.NodeKey]bool, out *[]NodeID) {
	n := g.nodes[id]
	if n.state != types.Waiting {
		return
	}
	if path[n.key] {
		return
	}
	path[n.key] = true
	defer delete(path, n.key)

	for {
		if n.rule == nil {
			if !g.installCandidate(n, 0) {
				return
			}
			if n.state != types.Runnable && len(n.selectors) == 0 {
				// a zero-selector rule has nothing left to wait on.
				g.makeRunnable(n, out)
				return
			}
		}

		var firstThrow *types.Failure
		var firstNoop *types.NoopReason
		allSettled := true

		for i := range n.selectors {
			ss := &n.selectors[i]
			if ss.phase != phaseSettled {
				g.advanceSelector(n, ss, path, out)
			}
			if ss.phase != phaseSettled {
				allSettled = false
				continue
			}
			if ss.throw != nil && firstThrow == nil {
				firstThrow = ss.throw
			}
			if ss.noop != nil && firstNoop == nil {
				firstNoop = ss.noop
			}
		}

		if firstThrow != nil {
			n.state = types.Throw
			n.failure = firstThrow.Propagate(n.id.String())
			return
		}
		if firstNoop != nil {
			if g.installCandidate(n, n.candidateIdx+1) {
				if len(n.selectors) == 0 {
					g.makeRunnable(n, out)
					return
				}
				continue
			}
			// installCandidate settled n as Noop("no rule") on running off
			// the candidate list; prefer the more specific reason a tried
			// candidate's selector actually reported, e.g. a cycle, over
			// that generic fallback.
			n.noop = firstNoop
			return
		}
		if !allSettled {
			return
		}
		g.makeRunnable(n, out)
		return
	}
}

// installCandidate picks the candidate rule at idx from the registry for
// n's (subjectType, product) demand, resetting n's selector states for
// it. It returns false and settles n as Noop("no rule") once idx runs off
// the end of the candidate list.
func (g *Graph) installCandidate(n *node, idx int) bool {
	candidates := g.reg.Candidates(n.subjectType, n.product)
	if idx >= len(candidates) {
		n.state = types.Noop
		reason := types.NoopNoRule()
		n.noop = &reason
		return false
	}
	n.candidateIdx = idx
	n.rule = candidates[idx]
	n.cacheable = n.rule.Cacheable()
	n.selectors = make([]selectorState, len(n.rule.Selectors))
	for i, sel := range n.rule.Selectors {
		n.selectors[i] = selectorState{selector: sel, projectedID: -1}
	}
	return true
}

func (g *Graph) makeRunnable(n *node, out *[]NodeID) {
	args := make([]any, len(n.selectors))
	for i, ss := range n.selectors {
		args[i] = ss.value
	}
	n.runnableArgs = args
	n.state = types.Runnable
	*out = append(*out, n.id)
}

func (g *Graph) advanceSelector(n *node, ss *selectorState, path map[types.NodeKey]bool, out *[]NodeID) {
	switch ss.selector.Kind {
	case types.KindSelect:
		g.advanceSimple(n, ss, n.variants, path, out)
	case types.KindSelectVariant:
		narrowed := types.Variants{ss.selector.VariantKey: n.variants[ss.selector.VariantKey]}
		g.advanceSimple(n, ss, narrowed, path, out)
	case types.KindSelectLiteral:
		g.advanceLiteral(n, ss, path, out)
	case types.KindSelectDependencies:
		g.advanceDependencies(n, ss, path, out)
	case types.KindSelectProjection:
		g.advanceProjection(n, ss, path, out)
	}
}

// demandFollow resolves one dependency demand: checks for a cycle against
// path, creates/reuses the dependency node, wires the reverse edge,
// advances it, and settles ss directly when the dependency is Throw or
// Noop. It returns the dependency node and true when the dependency is
// Return and ready for the caller to consume.
func (g *Graph) demandFollow(n *node, ss *selectorState, subject any, product types.ProductType, variants types.Variants, path map[types.NodeKey]bool, out *[]NodeID) (*node, bool) {
	key := g.nodeKeyFor(subject, product, variants)
	if path[key] {
		reason := types.NoopCycle()
		ss.noop = &reason
		ss.phase = phaseSettled
		return nil, false
	}

	id := g.getOrCreate(key, subject, product, variants)
	g.addParentEdge(id, n.id)
	g.ensureAdvanced(id, path, out)

	dep := g.nodes[id]
	switch dep.state {
	case types.Return:
		return dep, true
	case types.Throw:
		ss.throw = dep.failure
		ss.phase = phaseSettled
	case types.Noop:
		ss.noop = dep.noop
		ss.phase = phaseSettled
	}
	return dep, false
}

func (g *Graph) advanceSimple(n *node, ss *selectorState, variants types.Variants, path map[types.NodeKey]bool, out *[]NodeID) {
	dep, ready := g.demandFollow(n, ss, n.subject, ss.selector.Product, variants, path, out)
	if ready {
		ss.value = dep.result
		ss.phase = phaseSettled
	}
}

func (g *Graph) advanceLiteral(n *node, ss *selectorState, path map[types.NodeKey]bool, out *[]NodeID) {
	dep, ready := g.demandFollow(n, ss, ss.selector.LiteralSubject, ss.selector.Product, types.Variants{}, path, out)
	if ready {
		ss.value = dep.result
		ss.phase = phaseSettled
	}
}

// advanceDependencies implements SelectDependencies: first request
// DepProduct for the current subject, then one child demand of Product per
// element of its named Field, gathered into a slice in field order. An
// empty field is Return([]), not Noop, per the error-propagation policy
// pinned down for this design.
func (g *Graph) advanceDependencies(n *node, ss *selectorState, path map[types.NodeKey]bool, out *[]NodeID) {
	if ss.phase == phasePending {
		dep, ready := g.demandFollow(n, ss, n.subject, ss.selector.DepProduct, n.variants, path, out)
		if ss.phase == phaseSettled {
			return
		}
		if !ready {
			return
		}

		elements, err := types.ProjectSlice(dep.result, ss.selector.Field)
		if err != nil {
			reason := types.NoopMissingField(err.Error())
			ss.noop = &reason
			ss.phase = phaseSettled
			return
		}
		if len(elements) == 0 {
			ss.value = []any{}
			ss.phase = phaseSettled
			return
		}

		ss.elementIDs = make([]NodeID, len(elements))
		for i, el := range elements {
			key := g.nodeKeyFor(el, ss.selector.Product, n.variants)
			if path[key] {
				reason := types.NoopCycle()
				ss.noop = &reason
				ss.phase = phaseSettled
				return
			}
			id := g.getOrCreate(key, el, ss.selector.Product, n.variants)
			g.addParentEdge(id, n.id)
			ss.elementIDs[i] = id
		}
		ss.phase = phaseAwaitingElements
	}

	if ss.phase == phaseAwaitingElements {
		allReturned := true
		for _, id := range ss.elementIDs {
			g.ensureAdvanced(id, path, out)
			el := g.nodes[id]
			switch el.state {
			case types.Throw:
				ss.throw = el.failure
				ss.phase = phaseSettled
				return
			case types.Noop:
				ss.noop = el.noop
				ss.phase = phaseSettled
				return
			case types.Return:
				// keep checking the rest
			default:
				allReturned = false
			}
		}
		if allReturned {
			vals := make([]any, len(ss.elementIDs))
			for i, id := range ss.elementIDs {
				vals[i] = g.nodes[id].result
			}
			ss.value = vals
			ss.phase = phaseSettled
		}
	}
}

// advanceProjection implements SelectProjection: first request
// InputProduct for the current subject, project Field off the result as a
// new subject (coerced to ProjectedType), then request Product against it.
func (g *Graph) advanceProjection(n *node, ss *selectorState, path map[types.NodeKey]bool, out *[]NodeID) {
	if ss.phase == phasePending {
		dep, ready := g.demandFollow(n, ss, n.subject, ss.selector.InputProduct, n.variants, path, out)
		if ss.phase == phaseSettled {
			return
		}
		if !ready {
			return
		}

		raw, err := types.ProjectField(dep.result, ss.selector.Field)
		if err != nil {
			reason := types.NoopMissingField(err.Error())
			ss.noop = &reason
			ss.phase = phaseSettled
			return
		}
		projected, err := types.Coerce(raw, ss.selector.ProjectedType)
		if err != nil {
			reason := types.NoopTypeMismatch(err.Error())
			ss.noop = &reason
			ss.phase = phaseSettled
			return
		}

		key := g.nodeKeyFor(projected, ss.selector.Product, n.variants)
		if path[key] {
			reason := types.NoopCycle()
			ss.noop = &reason
			ss.phase = phaseSettled
			return
		}
		id := g.getOrCreate(key, projected, ss.selector.Product, n.variants)
		g.addParentEdge(id, n.id)
		ss.projectedID = id
		ss.phase = phaseAwaitingProjected
	}

	if ss.phase == phaseAwaitingProjected {
		g.ensureAdvanced(ss.projectedID, path, out)
		dep := g.nodes[ss.projectedID]
		switch dep.state {
		case types.Return:
			ss.value = dep.result
			ss.phase = phaseSettled
		case types.Throw:
			ss.throw = dep.failure
			ss.phase = phaseSettled
		case types.Noop:
			ss.noop = dep.noop
			ss.phase = phaseSettled
		}
	}
}
