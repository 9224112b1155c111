package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

type actionSpec struct {
	name   string
	params map[string]any
	// fields lists what a successful commit changes.
	fields []string
}

// runAction is the shared action protocol: busy on, one call, one commit on
// success, busy off on every exit path, error returned as is. A panic in call
// is reported to hooks as a failure and then re-raised.
func runAction[S, T any](ctx context.Context, b *base[S], spec actionSpec, call func(context.Context) (T, error), commit func(*S, T)) (result T, err error) {
	ev := ActionEvent{
		ID:      uuid.NewString(),
		Store:   b.name,
		Action:  spec.name,
		Params:  spec.params,
		Started: b.opts.now(),
	}
	b.setBusy(true)
	defer func() {
		rec := recover()
		b.setBusy(false)
		ev.Duration = b.opts.now().Sub(ev.Started)
		ev.Err = err
		if rec != nil {
			ev.Err = fmt.Errorf("%w: %v", ErrActionPanicked, rec)
		}
		b.emit(ev)
		if rec != nil {
			panic(rec)
		}
	}()

	result, err = call(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	b.update(spec.fields, func(s *S) { commit(s, result) })
	return result, nil
}
