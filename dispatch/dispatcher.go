package dispatch

import (
	"context"

	"github.com/DataBooster/pywebapi-go/dispatcherr"
)

// Invoke implements C5: resolve procedureName on hs and perform a single
// call or a bulk loop depending on form (spec §4.5). Bulk results preserve
// input order (I4); any call error aborts the remaining loop and
// propagates.
func Invoke(ctx context.Context, hs *HandlerSet, procedureName string, form *ArgumentForm) (any, error) {
	proc, err := hs.Lookup(procedureName)
	if err != nil {
		return nil, err
	}

	if form.IsSingle() {
		item := form.Items[0]
		if item.Null || item.Bundle == nil {
			bound, err := Bind(proc.Params, NewArgumentBundle())
			if err != nil {
				return nil, err
			}
			return proc.Fn(ctx, bound)
		}
		bound, err := Bind(proc.Params, *item.Bundle)
		if err != nil {
			return nil, err
		}
		return proc.Fn(ctx, bound)
	}

	results := make([]any, 0, len(form.Items))
	for _, item := range form.Items {
		switch {
		case item.Null:
			results = append(results, nil)
		case item.Bundle != nil:
			bound, err := Bind(proc.Params, *item.Bundle)
			if err != nil {
				return nil, err
			}
			res, err := proc.Fn(ctx, bound)
			if err != nil {
				return nil, err
			}
			results = append(results, res)
		default:
			return nil, dispatcherr.New(dispatcherr.KindBadBulkElement,
				"bulk element is neither an object nor null")
		}
	}
	return results, nil
}
