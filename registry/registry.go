// Package registry holds the scheduler's rule registry: for each
// (subject type, product type) pair, an ordered list of candidate rules,
// intrinsics preceding user rules, registration order breaking remaining
// ties.
//
// It is a direct generalization of bittoy-rule's RuleComponentRegistry
// (engine/registry.go) from "one component per NodeType" to "an ordered
// list of candidate rules per demand key", guarded the same way with a
// single sync.RWMutex.
package registry

import (
	"fmt"
	"sync"

	"github.com/productgraph/pgsched/types"
)

// demandKey identifies a (subject type, product type) pair. An empty
// SubjectType in a registered Rule is stored under the wildcard subject
// type and is appended to every concrete lookup's candidate list, after
// that subject type's own rules.
type demandKey struct {
	subject types.SubjectType
	product types.ProductType
}

const wildcardSubject = types.SubjectType("")

// Registry indexes rules by output product and subject type. The zero
// value is not usable; use New.
type Registry struct {
	mu         sync.RWMutex
	candidates map[demandKey][]*types.Rule
	seq        int
}

// ordered pairs a rule with its registration sequence number, used only
// while sorting a demandKey's candidate list.
type ordered struct {
	rule *types.Rule
	seq  int
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{candidates: make(map[demandKey][]*types.Rule)}
}

// Register adds rule to the registry. Rules are returned from Candidates
// in an order where, among rules of equal SubjectType match, intrinsics
// precede user rules and ties break by registration order.
func (r *Registry) Register(rule *types.Rule) error {
	if rule == nil {
		return fmt.Errorf("registry: cannot register a nil rule")
	}
	if rule.Output == "" {
		return fmt.Errorf("registry: rule %q has no output product", rule.Name)
	}
	if rule.Func == nil {
		return fmt.Errorf("registry: rule %q has no function", rule.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := demandKey{subject: rule.SubjectType, product: rule.Output}
	r.seq++
	r.insertSorted(key, rule, r.seq)
	return nil
}

func (r *Registry) insertSorted(key demandKey, rule *types.Rule, seq int) {
	existing := r.candidates[key]
	list := make([]ordered, 0, len(existing)+1)
	for i, c := range existing {
		list = append(list, ordered{rule: c, seq: i})
	}
	list = append(list, ordered{rule: rule, seq: seq})

	// Stable partition: intrinsics first, each group in registration
	// order. seq values from pre-existing entries are their original
	// index, which preserves their relative order since intrinsics were
	// already sorted ahead of user rules on the previous insert.
	intrinsics := make([]ordered, 0, len(list))
	userRules := make([]ordered, 0, len(list))
	for _, o := range list {
		if o.rule.Intrinsic {
			intrinsics = append(intrinsics, o)
		} else {
			userRules = append(userRules, o)
		}
	}
	merged := append(intrinsics, userRules...)

	out := make([]*types.Rule, len(merged))
	for i, o := range merged {
		out[i] = o.rule
	}
	r.candidates[key] = out
}

// RegisterScriptRule builds and registers a Rule whose Func was produced by
// package script (an expr-lang or goja script compiled to a types.RuleFunc),
// mirroring how bittoy-rule's Config.RegisterUdf lets users plug scripted
// functions into the engine without writing a Go-native component.
func (r *Registry) RegisterScriptRule(name string, subjectType types.SubjectType, output types.ProductType, selectors []types.Selector, fn types.RuleFunc) error {
	return r.Register(&types.Rule{
		Name:        name,
		SubjectType: subjectType,
		Output:      output,
		Selectors:   selectors,
		Func:        fn,
	})
}

// Unregister removes rule from the registry. It is a no-op if rule was
// never registered.
func (r *Registry) Unregister(rule *types.Rule) {
	if rule == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	key := demandKey{subject: rule.SubjectType, product: rule.Output}
	list := r.candidates[key]
	for i, c := range list {
		if c == rule {
			r.candidates[key] = append(list[:i:i], list[i+1:]...)
			return
		}
	}
}

// Candidates returns the ordered candidate rules for a demand of product
// for a subject of subjectType: subjectType-specific rules first (in their
// own intrinsic-then-user, registration order), then wildcard rules
// (SubjectType == "") in the same internal order.
func (r *Registry) Candidates(subjectType types.SubjectType, product types.ProductType) []*types.Rule {
	r.mu.RLock()
	defer r.mu.RUnlock()

	specific := r.candidates[demandKey{subject: subjectType, product: product}]
	out := make([]*types.Rule, 0, len(specific))
	out = append(out, specific...)
	if subjectType != wildcardSubject {
		out = append(out, r.candidates[demandKey{subject: wildcardSubject, product: product}]...)
	}
	return out
}

// Products returns every distinct ProductType with at least one registered
// rule, used by the validator to enumerate the reachable set.
func (r *Registry) Products() map[types.ProductType]struct{} {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := map[types.ProductType]struct{}{}
	for k := range r.candidates {
		out[k.product] = struct{}{}
	}
	return out
}

// RulesFor returns every rule registered for exactly demandKey{subject,
// product}, without the wildcard fallback Candidates applies — used by the
// validator, which needs to reason about a specific subject type's own
// rules plus the wildcard set separately.
func (r *Registry) RulesFor(subjectType types.SubjectType, product types.ProductType) []*types.Rule {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := r.candidates[demandKey{subject: subjectType, product: product}]
	out := make([]*types.Rule, len(list))
	copy(out, list)
	return out
}

// AllRules returns every registered rule, in no particular order. Used by
// package validate to discover the finite universe of subject types and
// products a ruleset can possibly reach.
func (r *Registry) AllRules() []*types.Rule {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*types.Rule
	for _, list := range r.candidates {
		out = append(out, list...)
	}
	return out
}

// AllDemandKeys returns every (subject type, product type) pair with at
// least one registered rule.
func (r *Registry) AllDemandKeys() []struct {
	Subject types.SubjectType
	Product types.ProductType
} {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]struct {
		Subject types.SubjectType
		Product types.ProductType
	}, 0, len(r.candidates))
	for k := range r.candidates {
		out = append(out, struct {
			Subject types.SubjectType
			Product types.ProductType
		}{Subject: k.subject, Product: k.product})
	}
	return out
}
