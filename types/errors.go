package types

import "errors"

// Sentinel errors for the synchronous failure kinds: validation gaps and
// overlapping execution requests are raised directly, not surfaced through
// a node's Throw state.
var (
	// ErrValidation is wrapped by validate.Validate when the ruleset has
	// an unreachable demand; use errors.Is to detect it across the
	// aggregated multierr list.
	ErrValidation = errors.New("ruleset validation failed")

	// ErrConcurrentExecution is returned by Scheduler.Schedule when a
	// second execution request is submitted while one is still active.
	ErrConcurrentExecution = errors.New("an execution request is already active on this scheduler")
)
