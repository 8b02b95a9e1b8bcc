package jena

import "context"

// Session runs fn with remote control enabled and always returns the
// device to manual control afterwards, on every exit path including
// errors and panics inside fn.
//
// Note that the device resets to the position it held before remote
// control was switched on once manual control is restored.
func (c *Controller) Session(ctx context.Context, fn func(context.Context) error) (err error) {
	if err := c.SetRemoteControl(ctx, true); err != nil {
		return err
	}

	defer func() {
		// Restore manual control even when ctx was canceled inside fn.
		relErr := c.SetRemoteControl(context.WithoutCancel(ctx), false)
		if err == nil {
			err = relErr
		}
	}()

	return fn(ctx)
}
