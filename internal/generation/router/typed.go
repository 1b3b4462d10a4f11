package router

import (
	"context"

	"hearth/internal/generation/schema"
	dErrors "hearth/pkg/domain-errors"
)

// RunAs runs task with an output schema reflected from T and decodes the
// result. The returned Usage is what the ledger recorded, also on error.
func RunAs[T any](ctx context.Context, r *Router, task Task) (*T, Usage, error) {
	s, err := schema.Of[T]()
	if err != nil {
		return nil, Usage{}, dErrors.Wrap(err, dErrors.CodeValidation, "invalid output type")
	}
	task.Schema = s

	switch out := r.Run(ctx, task).(type) {
	case Succeeded:
		v, err := schema.Decode[T](out.Data)
		if err != nil {
			return nil, out.Usage, dErrors.Wrap(err, dErrors.CodeInternal, "decode generated output")
		}
		return v, out.Usage, nil
	case Failed:
		return nil, out.Usage, out.Err
	default:
		return nil, Usage{}, dErrors.New(dErrors.CodeInternal, "unknown generation outcome")
	}
}
