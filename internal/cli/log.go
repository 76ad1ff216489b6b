package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger creates a logger writing to w at the given level.
// Timestamps are formatted as "HH:MM:SS.ms" (e.g., "14:32:01.45").
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress times one analysis stage for a root formula.
type progress struct {
	logger *log.Logger
	stage  string
	root   string
	start  time.Time
}

func newProgress(l *log.Logger, stage, root string) *progress {
	return &progress{logger: l, stage: stage, root: root, start: time.Now()}
}

// done logs the stage with its root, whether the result came from the
// cache, and the elapsed time rounded to the millisecond. Cache hits log at
// debug level.
func (p *progress) done(cached bool, keyvals ...any) {
	keyvals = append([]any{"root", p.root, "cached", cached}, keyvals...)
	keyvals = append(keyvals, "elapsed", time.Since(p.start).Round(time.Millisecond))
	if cached {
		p.logger.Debug(p.stage, keyvals...)
		return
	}
	p.logger.Info(p.stage, keyvals...)
}

type ctxKey int

const loggerKey ctxKey = 0

// withLogger returns a new context with the given logger attached.
func withLogger(ctx context.Context, l *log.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, loggerKey, l)
}

// loggerFromContext retrieves the logger from ctx, or log.Default() when
// none is attached.
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey).(*log.Logger); ok {
		return l
	}
	return log.Default()
}
