package alerts

import (
	"context"
	"errors"

	"github.com/sudo-init-do/hirfa/internal/order"
)

// Fanout delivers each event to every dispatcher and joins their failures.
type Fanout []order.EventDispatcher

func (f Fanout) Dispatch(ctx context.Context, e order.Event) error {
	var errs []error
	for _, d := range f {
		if err := d.Dispatch(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
