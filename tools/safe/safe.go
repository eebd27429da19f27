package safe

import (
	"context"
	"fmt"
	"runtime/debug"

	"DogiCord/logger"

	"go.uber.org/zap"
)

// SafeGo starts a new goroutine that recovers from panic,
// so that panics don't crash the entire program.
func SafeGo(name string, f func()) {
	go func() {
		defer Recover(name)
		f()
	}()
}

// SafeGoCtx is SafeGo for loops that stop with ctx.
func SafeGoCtx(ctx context.Context, name string, f func(ctx context.Context)) {
	go func() {
		defer Recover(name)
		f(ctx)
	}()
}

// Recover logs a recovered panic with its stack. Must be deferred directly.
func Recover(name string) {
	if r := recover(); r != nil {
		logger.Error("[SafeGo] panic recovered",
			zap.String("task", name),
			zap.String("panic", fmt.Sprint(r)),
			zap.ByteString("stack", debug.Stack()),
		)
	}
}

// Call runs f and turns a panic into a returned error.
func Call(f func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return f()
}
