package gosync

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Go launches task on its own goroutine and recovers any panic it raises,
// logging it instead of crashing the process. Used for the one goroutine
// this module owns outside the caller's tick: the wire codec's frame reader.
func Go(ctx context.Context, task func(ctx context.Context)) {
	go func(ctx context.Context, f func(ctx context.Context)) {
		defer func() {
			if err := recover(); err != nil {
				logrus.Errorf("[gosync] recovered panic: %v", err)
			}
		}()
		f(ctx)
	}(ctx, task)
}
