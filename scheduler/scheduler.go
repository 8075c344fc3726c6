// Package scheduler drives the product graph to completion: it owns the
// single-threaded Walk/dispatch/Complete loop, the re-entrancy guard that
// rejects overlapping execution requests, and the prometheus counters a
// long-running scheduler process exposes.
//
// Grounded on bittoy-rule's ChainEngine (engine/chain_engine.go): the
// before/after timing wrapper around OnMsg, one engine instance owning its
// own atomic initialized flag, becomes Scheduler's execMu guard around
// Schedule and its own request-duration histogram observation.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/productgraph/pgsched/graph"
	"github.com/productgraph/pgsched/intern"
	"github.com/productgraph/pgsched/process"
	"github.com/productgraph/pgsched/registry"
	"github.com/productgraph/pgsched/types"
)

// Root is one subject/product/variants triple the caller wants resolved.
type Root struct {
	Subject  any
	Product  types.ProductType
	Variants types.Variants
}

// ExecutionRequest names the roots to resolve in a single Schedule call,
// all sharing one demand walk so memoization applies across them.
type ExecutionRequest struct {
	Roots []Root
}

// RootResult is one root's settled outcome after Schedule returns.
type RootResult struct {
	Root  Root
	State types.State
	Value any
	Noop  *types.NoopReason
	Err   *types.Failure
}

// Scheduler owns one Graph and drives it to completion for one
// ExecutionRequest at a time. Not safe for concurrent Schedule calls on
// the same instance — a second call while one is active returns
// types.ErrConcurrentExecution, mirroring the teacher's one-engine,
// one-definition-at-a-time discipline.
type Scheduler struct {
	id     string
	graph  *graph.Graph
	reg    *registry.Registry
	pool   process.Pool
	config types.Config

	execMu sync.Mutex
}

// New returns a Scheduler over a fresh Graph backed by reg, running
// Runnable batches on pool.
func New(reg *registry.Registry, pool process.Pool, config types.Config) *Scheduler {
	id, err := uuid.NewV4()
	idStr := "scheduler"
	if err == nil {
		idStr = id.String()
	}
	return &Scheduler{
		id:     idStr,
		graph:  graph.New(intern.New(), reg),
		reg:    reg,
		pool:   pool,
		config: config,
	}
}

// ID identifies this scheduler instance; it is the "scheduler" label on
// the scheduler's prometheus metrics.
func (s *Scheduler) ID() string { return s.id }

// Schedule demands every root in req, then loops Walk/dispatch/Complete
// until every root has settled (Return, Throw, or Noop), returning one
// RootResult per root in request order.
func (s *Scheduler) Schedule(ctx context.Context, req ExecutionRequest) ([]RootResult, error) {
	if !s.execMu.TryLock() {
		return nil, types.ErrConcurrentExecution
	}
	defer s.execMu.Unlock()

	start := time.Now()
	defer func() {
		schedulerRequestDuration.WithLabelValues(s.id).Observe(time.Since(start).Seconds())
	}()

	roots := make([]graph.NodeID, len(req.Roots))
	for i, r := range req.Roots {
		roots[i] = s.graph.Demand(r.Subject, r.Product, r.Variants)
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var batch []graph.NodeID
		for _, root := range roots {
			batch = s.graph.Walk(root, batch)
		}

		if settled := s.allSettled(roots); settled {
			break
		}
		if len(batch) == 0 {
			// Nothing Runnable and not every root settled: every
			// remaining Waiting node is blocked on a dependency that is
			// itself still Waiting behind a cycle guard releasing next
			// iteration, or the graph has genuinely stalled. Re-walking
			// with an empty batch forever would spin, so treat this as
			// a stall and surface it rather than looping silently.
			return nil, fmt.Errorf("scheduler: stalled with %d node(s) still waiting", s.countWaiting(roots))
		}

		schedulerBatchesTotal.WithLabelValues(s.id).Inc()
		tasks := make([]process.Task, len(batch))
		for i, id := range batch {
			tasks[i] = process.Task{
				Token:   int(id),
				Rule:    s.graph.Rule(id),
				Subject: s.graph.Subject(id),
				Args:    s.graph.RunnableArgs(id),
			}
		}

		results := s.pool.Run(ctx, tasks)
		for _, r := range results {
			id := graph.NodeID(r.Token)
			generation := s.graph.Generation(id)
			if err := s.graph.Complete(id, generation, r.Value, r.Err); err != nil {
				return nil, err
			}
			s.recordTerminal(id)
		}
	}

	out := make([]RootResult, len(req.Roots))
	for i, root := range roots {
		out[i] = RootResult{
			Root:  req.Roots[i],
			State: s.graph.State(root),
			Value: s.graph.Result(root),
			Noop:  s.graph.NoopReason(root),
			Err:   s.graph.Failure(root),
		}
	}
	return out, nil
}

func (s *Scheduler) recordTerminal(id graph.NodeID) {
	state := s.graph.State(id)
	if state == types.Return || state == types.Throw || state == types.Noop {
		schedulerNodesTotal.WithLabelValues(s.id, state.String()).Inc()
	}
}

func (s *Scheduler) allSettled(roots []graph.NodeID) bool {
	for _, id := range roots {
		switch s.graph.State(id) {
		case types.Return, types.Throw, types.Noop:
		default:
			return false
		}
	}
	return true
}

func (s *Scheduler) countWaiting(roots []graph.NodeID) int {
	n := 0
	s.graph.Nodes(func(id graph.NodeID) {
		if s.graph.State(id) == types.Waiting {
			n++
		}
	})
	return n
}

// InvalidateFiles resets every node whose subject matches predicate (and
// its ancestors) back to Waiting, ready for the next Schedule call to
// re-derive them. Wraps graph.Invalidate with the scheduler's own
// diagnostics.
func (s *Scheduler) InvalidateFiles(predicate func(subject any) bool) []graph.NodeID {
	reset := s.graph.Invalidate(predicate)
	s.config.Logger.Infof("scheduler: invalidated %d node(s)", len(reset))
	return reset
}

// Graph exposes the underlying Graph for read-only diagnostics such as
// Visualize; Schedule is the only method permitted to mutate it.
func (s *Scheduler) Graph() *graph.Graph { return s.graph }
