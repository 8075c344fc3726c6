package types

import "context"

// RuleFunc is a rule's pure function body: given the subject and the
// already-resolved argument vector (one value per Selector, in order), it
// produces the rule's declared Product or an error.
//
// Implementations must be referentially transparent: the scheduler may
// invoke RuleFunc zero or more times for logically equal (subject, args)
// and is free to memoize any call it does make.
type RuleFunc func(ctx context.Context, subject any, args []any) (any, error)

// Rule is a triple of (output product, ordered selector list, pure
// function). A Rule registered as the default for a (SubjectType,
// ProductType) pair is Intrinsic; intrinsic results are never cacheable,
// since intrinsics typically wrap I/O (filesystem stats, process results).
type Rule struct {
	// Name identifies the rule for diagnostics and DOT visualization. It
	// plays no role in dispatch.
	Name string

	// SubjectType restricts which subjects this rule applies to. Empty
	// matches any subject type.
	SubjectType SubjectType

	// Output is the product type this rule produces.
	Output ProductType

	// Selectors is the ordered list of inputs this rule's Func consumes.
	Selectors []Selector

	// Func is invoked once the node reaches Runnable.
	Func RuleFunc

	// Intrinsic marks this rule as a built-in default rather than a
	// user-declared one. Intrinsic rules are tried before user rules for
	// the same (SubjectType, Output) pair and are always non-cacheable.
	Intrinsic bool
}

// Cacheable reports whether a Return produced by this rule may be retained
// across invalidations. Intrinsic rules typically observe mutable external
// state (the filesystem, a subprocess) and are never cacheable.
func (r *Rule) Cacheable() bool {
	return !r.Intrinsic
}
