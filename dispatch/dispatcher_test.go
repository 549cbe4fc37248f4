package dispatch

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DataBooster/pywebapi-go/dispatcherr"
)

func echoXProcedure() *Procedure {
	return &Procedure{
		Name:   "fn",
		Params: []ParameterDescriptor{{Name: "x", Kind: PositionalOrNamed}},
		Fn: func(_ context.Context, args *BoundArguments) (any, error) {
			x, _ := args.Get("x")
			return x, nil
		},
	}
}

func handlerSetWith(procs ...*Procedure) *HandlerSet {
	hs := &HandlerSet{Name: "handlers", Procedures: map[string]*Procedure{}}
	for _, p := range procs {
		hs.Procedures[p.Name] = p
	}
	return hs
}

// P6 (bulk order): for a bulk form [b1..bn], the result list has length n
// and index i corresponds to bi. Also end-to-end scenario 2.
func TestInvoke_BulkPreservesOrderAndNulls(t *testing.T) {
	hs := handlerSetWith(echoXProcedure())
	form, err := MergeArguments([]byte(`[{"x":1},{"x":2},null]`), nil, nil)
	require.NoError(t, err)

	res, err := Invoke(context.Background(), hs, "fn", form)
	require.NoError(t, err)

	results := res.([]any)
	require.Len(t, results, 3)
	assert.Equal(t, float64(1), results[0])
	assert.Equal(t, float64(2), results[1])
	assert.Nil(t, results[2])
}

func TestInvoke_SingleCallReturnsVerbatim(t *testing.T) {
	hs := handlerSetWith(echoXProcedure())
	form, err := MergeArguments([]byte(`{"x":7}`), nil, nil)
	require.NoError(t, err)

	res, err := Invoke(context.Background(), hs, "fn", form)
	require.NoError(t, err)
	assert.Equal(t, float64(7), res)
}

func TestInvoke_NotAProcedure(t *testing.T) {
	hs := handlerSetWith(echoXProcedure())
	form, _ := MergeArguments(nil, nil, nil)

	_, err := Invoke(context.Background(), hs, "missing", form)
	require.Error(t, err)
	de, ok := dispatcherr.As(err)
	require.True(t, ok)
	assert.Equal(t, dispatcherr.KindNotAProcedure, de.Kind)
}

func TestInvoke_BulkAbortsOnFirstError(t *testing.T) {
	calls := 0
	boom := &Procedure{
		Name:   "fn",
		Params: []ParameterDescriptor{{Name: "x", Kind: PositionalOrNamed}},
		Fn: func(_ context.Context, args *BoundArguments) (any, error) {
			calls++
			x, _ := args.Get("x")
			if x == float64(2) {
				return nil, fmt.Errorf("boom")
			}
			return x, nil
		},
	}
	hs := handlerSetWith(boom)
	form, err := MergeArguments([]byte(`[{"x":1},{"x":2},{"x":3}]`), nil, nil)
	require.NoError(t, err)

	_, err = Invoke(context.Background(), hs, "fn", form)
	require.Error(t, err)
	assert.Equal(t, 2, calls)
}

// End-to-end scenario 3: fn(x, y) called with {} fails listing both names.
func TestInvoke_MissingArgumentsPropagates(t *testing.T) {
	fn := &Procedure{
		Name: "fn",
		Params: []ParameterDescriptor{
			{Name: "x", Kind: PositionalOrNamed},
			{Name: "y", Kind: PositionalOrNamed},
		},
		Fn: func(_ context.Context, args *BoundArguments) (any, error) { return nil, nil },
	}
	hs := handlerSetWith(fn)
	form, _ := MergeArguments([]byte(`{}`), nil, nil)

	_, err := Invoke(context.Background(), hs, "fn", form)
	require.Error(t, err)
	de, ok := dispatcherr.As(err)
	require.True(t, ok)
	assert.Equal(t, dispatcherr.KindMissingArguments, de.Kind)
	assert.Contains(t, de.Message, "x")
	assert.Contains(t, de.Message, "y")
}
