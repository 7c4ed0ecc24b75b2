// Package safego launches goroutines that convert a panic into a logged
// error instead of a crashed process.
package safego

import (
	"go.uber.org/zap"
)

// Go launches fn in a new goroutine. A panic inside fn is recovered and
// logged under name along with the supplied fields; it never reaches the
// runtime's default handler.
//
//	safego.Go(logger, "tool-worker", func() { ... }, zap.String("tool", name))
func Go(logger *zap.Logger, name string, fn func(), fields ...zap.Field) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("goroutine panicked",
					append([]zap.Field{
						zap.String("goroutine", name),
						zap.Any("panic", r),
						zap.Stack("stack"),
					}, fields...)...,
				)
			}
		}()
		fn()
	}()
}
