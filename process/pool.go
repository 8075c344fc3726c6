// Package process runs a scheduler batch's Runnable work, decoupled from
// the graph's NodeID so a batch can be dispatched either to in-process
// goroutines (LocalPool) or to remote workers over MQTT (MQTTPool).
package process

import (
	"context"
	"runtime"
	"sync"

	"github.com/productgraph/pgsched/types"
)

// Task is one Runnable node's unit of work, addressed by an opaque Token
// the caller assigns (in practice, graph.NodeID boxed as an int) rather
// than a graph type, so this package stays independent of package graph.
type Task struct {
	Token   int
	Rule    *types.Rule
	Subject any
	Args    []any
}

// Result is Task's outcome: exactly one of Value or Err is meaningful,
// following Func's own (any, error) contract.
type Result struct {
	Token int
	Value any
	Err   error
}

// Pool runs a batch of Tasks to completion and returns their Results, in
// no particular order. Implementations may run tasks concurrently; Run
// itself is a barrier; it returns once every Task has a Result.
type Pool interface {
	Run(ctx context.Context, tasks []Task) []Result
}

// LocalPool runs tasks on a bounded goroutine pool in the same process: a
// buffered channel as a counting semaphore plus a sync.WaitGroup fan-out,
// the same shape the teacher's engine package uses for its own concurrent
// node callbacks (see graph.go's advance loop for the analogous single
// -threaded discipline this pool's caller, package scheduler, keeps on
// the graph itself).
type LocalPool struct {
	size int
}

// NewLocalPool returns a LocalPool bounded to size concurrent goroutines.
// size <= 0 defaults to GOMAXPROCS.
func NewLocalPool(size int) *LocalPool {
	if size <= 0 {
		size = runtime.GOMAXPROCS(0)
	}
	return &LocalPool{size: size}
}

func (p *LocalPool) Run(ctx context.Context, tasks []Task) []Result {
	results := make([]Result, len(tasks))
	sem := make(chan struct{}, p.size)
	var wg sync.WaitGroup

	for i, task := range tasks {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, task Task) {
			defer wg.Done()
			defer func() { <-sem }()

			if err := ctx.Err(); err != nil {
				results[i] = Result{Token: task.Token, Err: err}
				return
			}
			value, err := task.Rule.Func(ctx, task.Subject, task.Args)
			results[i] = Result{Token: task.Token, Value: value, Err: err}
		}(i, task)
	}

	wg.Wait()
	return results
}

var _ Pool = (*LocalPool)(nil)
