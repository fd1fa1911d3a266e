package log

import (
	"context"
	"log/slog"
)

// Err logs an error with structured logging, including the error's
// own attributes when it exposes them.
func (l *Logger) Err(ctx context.Context, err error) {
	if a, ok := err.(Attrs); ok {
		l.log(ctx, slog.LevelError, err.Error(), a.Attrs())
	} else {
		l.log(ctx, slog.LevelError, err.Error(), nil)
	}
}
