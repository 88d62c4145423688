package shutdown

import (
	"context"
	"os/signal"
)

// Context returns a context cancelled when the process is asked to stop.
func Context(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, signals...)
}
