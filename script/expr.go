// Package script lets a rule's body be declared as source text instead of
// compiled Go: an expr-lang boolean/value expression or a goja-hosted
// JavaScript function, compiled once at registration and invoked as an
// ordinary types.RuleFunc from then on.
//
// Grounded on bittoy-rule's ExprFilterNode (components/transform/expr_filter_node.go,
// compile-once-in-Init, run-per-message) and its GojaJsEngine
// (utils/js/js_engine.go).
package script

import (
	"context"
	"fmt"
	"regexp"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/mitchellh/mapstructure"
)

var propertyPlaceholder = regexp.MustCompile(`\$\{([^}]+)\}`)

// ExpandProperties substitutes every "${key}" placeholder in source with
// fmt.Sprint(properties[key]), the ${global.buildRoot}-style substitution
// types.Config.Properties documents. A placeholder with no matching key is
// left untouched rather than erroring, so a rule's source can reference a
// property a particular caller hasn't set. NewExprRule and NewJSRule call
// this once, at compile time, before handing source to their respective
// engines.
func ExpandProperties(source string, properties map[string]any) string {
	if len(properties) == 0 {
		return source
	}
	return propertyPlaceholder.ReplaceAllStringFunc(source, func(match string) string {
		key := match[2 : len(match)-1]
		if v, ok := properties[key]; ok {
			return fmt.Sprint(v)
		}
		return match
	})
}

// ExprConfig is the user-facing declaration of an expr-lang rule,
// decoded from a rule chain's untyped configuration map the same way
// ExprFilterNodeConfiguration is decoded via maps.Map2Struct.
type ExprConfig struct {
	// Expression is evaluated against an env built from Subject and Args;
	// see BuildEnv.
	Expression string `mapstructure:"expression"`
}

// DecodeConfig decodes a raw configuration map (as carried in a rule
// chain's JSON/YAML definition) into an ExprConfig, mirroring
// maps.Map2Struct's mapstructure.Decode call.
func DecodeConfig(raw map[string]any) (ExprConfig, error) {
	var cfg ExprConfig
	if err := mapstructure.Decode(raw, &cfg); err != nil {
		return ExprConfig{}, fmt.Errorf("script: decoding expr config: %w", err)
	}
	return cfg, nil
}

// BuildEnv assembles the expr-lang evaluation environment for one rule
// invocation: "subject" is the node's own subject, "args" is its ordered
// selector results, matching the fixed variable set
// ExprFilterNodeConfiguration documents (id/ts/data/msg/metadata) adapted
// from "a rule-engine message" to "a product-graph node".
func BuildEnv(subject any, args []any) map[string]any {
	return map[string]any{
		"subject": subject,
		"args":    args,
	}
}

// CompileExpr compiles source once, the way ExprFilterNode.Init compiles
// its Config.Script into a *vm.Program during rule registration rather
// than on every invocation.
func CompileExpr(source string) (*vm.Program, error) {
	program, err := expr.Compile(source, expr.AllowUndefinedVariables())
	if err != nil {
		return nil, fmt.Errorf("script: compiling expression %q: %w", source, err)
	}
	return program, nil
}

// RunExpr evaluates a compiled expression against subject and args, the
// per-invocation counterpart to ExprFilterNode.OnMsg's vm.Run call.
func RunExpr(_ context.Context, program *vm.Program, subject any, args []any) (any, error) {
	out, err := vm.Run(program, BuildEnv(subject, args))
	if err != nil {
		return nil, fmt.Errorf("script: running expression: %w", err)
	}
	return out, nil
}

// ExprFunc returns a types.RuleFunc wrapping a compiled expr-lang program,
// ready to install on a types.Rule.
func ExprFunc(program *vm.Program) func(ctx context.Context, subject any, args []any) (any, error) {
	return func(ctx context.Context, subject any, args []any) (any, error) {
		return RunExpr(ctx, program, subject, args)
	}
}
