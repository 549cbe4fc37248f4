// Package samplehandlers is a tiny, self-registering handler set used by the
// demo server and integration tests. It stands in for the directory-scoped
// user handler modules the real system loads from USER_SCRIPT_ROOT (spec §6);
// domain-specific handlers (MDX readers, dataset pushers, ETL drivers) are
// explicitly out of scope (spec §1) and are not reproduced here.
package samplehandlers

import (
	"context"
	"fmt"
	"time"

	"github.com/DataBooster/pywebapi-go/dispatch"
)

// Register builds the "handlers" set mirroring the original sample's
// test_module.module_level_function signature: a positional-or-named
// required parameter, one with a default, a named-only parameter with a
// default, and a variadic-named catch-all.
func Register(registry *dispatch.Registry, directory string) {
	registry.Register(directory, &dispatch.HandlerSet{
		Name: "handlers",
		Procedures: map[string]*dispatch.Procedure{
			"echo":    echoProcedure(),
			"compute": computeProcedure(),
		},
	})
}

func echoProcedure() *dispatch.Procedure {
	return &dispatch.Procedure{
		Name: "echo",
		Params: []dispatch.ParameterDescriptor{
			{Name: "value", Kind: dispatch.PositionalOrNamed},
		},
		Fn: func(_ context.Context, args *dispatch.BoundArguments) (any, error) {
			value, _ := args.Get("value")
			return map[string]any{"value": value}, nil
		},
	}
}

// computeProcedure mirrors module_level_function(arg1, arg2="default", *,
// arg3=3.14, **kwargs): arg1 is required, arg2 defaults, arg3 is named-only
// with a default, and any extra named arguments are captured in kwargs.
func computeProcedure() *dispatch.Procedure {
	return &dispatch.Procedure{
		Name: "compute",
		Params: []dispatch.ParameterDescriptor{
			{Name: "arg1", Kind: dispatch.PositionalOrNamed},
			{Name: "arg2", Kind: dispatch.PositionalOrNamed, Default: "default", HasDefault: true},
			{Name: "arg3", Kind: dispatch.NamedOnly, Default: 3.14, HasDefault: true},
			{Name: "kwargs", Kind: dispatch.VariadicNamed},
		},
		Fn: func(_ context.Context, args *dispatch.BoundArguments) (any, error) {
			arg1, _ := args.Get("arg1")
			arg2, _ := args.Get("arg2")
			arg3, _ := args.Get("arg3")
			kwargs, _ := args.Get("kwargs")

			n, ok := asFloat(arg1)
			if !ok {
				return nil, fmt.Errorf("compute: arg1 must be numeric, got %T", arg1)
			}
			factor, _ := asFloat(arg3)

			return map[string]any{
				"result":      n * factor,
				"arg2":        arg2,
				"kwargs":      kwargs,
				"computed_at": time.Now().UTC().Format(time.RFC3339),
			}, nil
		},
	}
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}
