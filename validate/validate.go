// Package validate runs the ruleset validator once, after all rules are
// registered and before any execution request is admitted: a static
// bipartite-reachability proof that every declared goal is producible from
// its legal root subject types.
//
// It is grounded on builtin/aspect/chain_validator_aspect.go's pattern of
// an ordered list of validation rules run once before a chain is
// initialized (there, ChainRules; here, the two checks below), generalized
// from "before chain init" to "before scheduler admits roots".
package validate

import (
	"fmt"

	"go.uber.org/multierr"

	"github.com/productgraph/pgsched/registry"
	"github.com/productgraph/pgsched/types"
)

// demand identifies a (subject type, product type) pair during the
// reachability walk.
type demand struct {
	subject types.SubjectType
	product types.ProductType
}

// Validate proves that every product in goals is producible, by some chain
// of registered rules, from at least one of legalRoots. It returns an
// aggregated error (via go.uber.org/multierr) wrapping types.ErrValidation
// for every unreachable (subject type, goal) pair, or nil if the ruleset is
// sound.
func Validate(reg *registry.Registry, legalRoots []types.SubjectType, goals []types.ProductType) error {
	universe := discoverUniverse(reg, legalRoots, goals)
	satisfiable := fixpoint(reg, universe)

	var errs error
	for _, root := range legalRoots {
		for _, goal := range goals {
			if !satisfiable[demand{subject: root, product: goal}] {
				errs = multierr.Append(errs, fmt.Errorf("%w: product %q is not producible from subject type %q", types.ErrValidation, goal, root))
			}
		}
	}
	return errs
}

// universe is the finite set of subject types and products a ruleset can
// possibly reach, discovered by scanning every registered rule's selectors
// once. Reachability is then computed as a fixpoint restricted to this
// finite grid.
type universe struct {
	subjects []types.SubjectType
	products []types.ProductType
}

func discoverUniverse(reg *registry.Registry, legalRoots []types.SubjectType, goals []types.ProductType) universe {
	subjectSet := map[types.SubjectType]struct{}{}
	productSet := map[types.ProductType]struct{}{}

	for _, s := range legalRoots {
		subjectSet[s] = struct{}{}
	}
	for _, p := range goals {
		productSet[p] = struct{}{}
	}

	for _, rule := range reg.AllRules() {
		subjectSet[rule.SubjectType] = struct{}{}
		productSet[rule.Output] = struct{}{}
		for _, sel := range rule.Selectors {
			productSet[sel.Product] = struct{}{}
			switch sel.Kind {
			case types.KindSelectLiteral:
				subjectSet[types.SubjectTypeOf(sel.LiteralSubject)] = struct{}{}
			case types.KindSelectDependencies:
				productSet[sel.DepProduct] = struct{}{}
				subjectSet[sel.ElementType] = struct{}{}
			case types.KindSelectProjection:
				productSet[sel.InputProduct] = struct{}{}
				subjectSet[sel.ProjectedType] = struct{}{}
			}
		}
	}

	u := universe{}
	for s := range subjectSet {
		u.subjects = append(u.subjects, s)
	}
	for p := range productSet {
		u.products = append(u.products, p)
	}
	return u
}

// fixpoint marks a demand satisfiable once some candidate rule for it has
// every one of its own selector-demands already satisfiable, iterating
// until a pass adds nothing new. Since the demand grid is finite this
// always terminates.
func fixpoint(reg *registry.Registry, u universe) map[demand]bool {
	satisfiable := map[demand]bool{}

	for changed := true; changed; {
		changed = false
		for _, subject := range u.subjects {
			for _, product := range u.products {
				d := demand{subject: subject, product: product}
				if satisfiable[d] {
					continue
				}
				for _, rule := range reg.Candidates(subject, product) {
					if selectorsSatisfiable(rule, subject, satisfiable) {
						satisfiable[d] = true
						changed = true
						break
					}
				}
			}
		}
	}
	return satisfiable
}

func selectorsSatisfiable(rule *types.Rule, subject types.SubjectType, satisfiable map[demand]bool) bool {
	for _, sel := range rule.Selectors {
		switch sel.Kind {
		case types.KindSelect, types.KindSelectVariant:
			if !satisfiable[demand{subject: subject, product: sel.Product}] {
				return false
			}
		case types.KindSelectLiteral:
			litType := types.SubjectTypeOf(sel.LiteralSubject)
			if !satisfiable[demand{subject: litType, product: sel.Product}] {
				return false
			}
		case types.KindSelectDependencies:
			if !satisfiable[demand{subject: subject, product: sel.DepProduct}] {
				return false
			}
			if !satisfiable[demand{subject: sel.ElementType, product: sel.Product}] {
				return false
			}
		case types.KindSelectProjection:
			if !satisfiable[demand{subject: subject, product: sel.InputProduct}] {
				return false
			}
			if !satisfiable[demand{subject: sel.ProjectedType, product: sel.Product}] {
				return false
			}
		}
	}
	return true
}
