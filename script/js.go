package script

import (
	"context"
	"fmt"

	"github.com/dop251/goja"
)

// JSConfig is the user-facing declaration of a goja-hosted JavaScript
// rule: Source defines at least one top-level function, FuncName is the
// one this rule calls with (subject, args...) on each invocation.
type JSConfig struct {
	Source   string `mapstructure:"source"`
	FuncName string `mapstructure:"funcName"`
}

// CompileJS parses source once, following GojaJsEngine.NewGojaJsEngine's
// "compile the top-level script once at construction" step, so no
// invocation re-parses source; RunJS still runs the compiled top level in
// a fresh goja.Runtime on every call before invoking the function.
func CompileJS(source string) (*goja.Program, error) {
	program, err := goja.Compile("", source, false)
	if err != nil {
		return nil, fmt.Errorf("script: compiling javascript: %w", err)
	}
	return program, nil
}

// RunJS runs program in a fresh goja.Runtime, then calls funcName with
// subject and args converted to goja values, the same two-step shape as
// GojaJsEngine.Execute (vm.ToValue each argument, goja.AssertFunction,
// call). A fresh Runtime per call avoids sharing JS global state across
// concurrent rule invocations from process.LocalPool's worker goroutines;
// goja.Runtime is not safe for concurrent use.
func RunJS(_ context.Context, program *goja.Program, funcName string, subject any, args []any) (any, error) {
	vm := goja.New()
	if _, err := vm.RunProgram(program); err != nil {
		return nil, fmt.Errorf("script: running javascript source: %w", err)
	}

	fn, ok := goja.AssertFunction(vm.Get(funcName))
	if !ok {
		return nil, fmt.Errorf("script: %q is not a function", funcName)
	}

	params := make([]goja.Value, 0, len(args)+1)
	params = append(params, vm.ToValue(subject))
	for _, a := range args {
		params = append(params, vm.ToValue(a))
	}

	result, err := fn(goja.Undefined(), params...)
	if err != nil {
		return nil, fmt.Errorf("script: calling %q: %w", funcName, err)
	}
	return result.Export(), nil
}

// JSFunc returns a types.RuleFunc calling funcName in program for every
// invocation.
func JSFunc(program *goja.Program, funcName string) func(ctx context.Context, subject any, args []any) (any, error) {
	return func(ctx context.Context, subject any, args []any) (any, error) {
		return RunJS(ctx, program, funcName, subject, args)
	}
}
