package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestNewLoggerLevels(t *testing.T) {
	tests := []struct {
		name    string
		level   log.Level
		logFunc func(*log.Logger)
		wantLog bool
	}{
		{"info at info level", log.InfoLevel, func(l *log.Logger) { l.Info("loaded formulas") }, true},
		{"debug at info level", log.InfoLevel, func(l *log.Logger) { l.Debug("cache hit") }, false},
		{"debug at debug level", log.DebugLevel, func(l *log.Logger) { l.Debug("cache hit") }, true},
		{"warn at error level", log.ErrorLevel, func(l *log.Logger) { l.Warn("fallback scan") }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.logFunc(newLogger(&buf, tt.level))
			if got := buf.Len() > 0; got != tt.wantLog {
				t.Errorf("got log output = %v, want %v", got, tt.wantLog)
			}
		})
	}
}

func TestProgress(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, log.InfoLevel)

	newProgress(logger, "Built dependency tree", "Total_Cost").done(false, "max_depth", 10)
	got := buf.String()
	for _, want := range []string{"Built dependency tree", "root=Total_Cost", "cached=false", "max_depth=10", "elapsed="} {
		if !strings.Contains(got, want) {
			t.Errorf("progress output %q missing %q", got, want)
		}
	}
}

func TestProgressCacheHitIsDebug(t *testing.T) {
	var buf bytes.Buffer
	newProgress(newLogger(&buf, log.InfoLevel), "Laid out graph", "Total_Cost").done(true)
	if buf.Len() != 0 {
		t.Errorf("cache hit logged at info level: %q", buf.String())
	}

	buf.Reset()
	newProgress(newLogger(&buf, log.DebugLevel), "Laid out graph", "Total_Cost").done(true)
	if !strings.Contains(buf.String(), "cached=true") {
		t.Errorf("debug output = %q, want cached=true", buf.String())
	}
}

func TestLoggerContext(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, log.InfoLevel)

	ctx := withLogger(context.Background(), logger)
	if got := loggerFromContext(ctx); got != logger {
		t.Error("loggerFromContext did not return the attached logger")
	}
	loggerFromContext(ctx).Info("resolved root", "root", "Subtotal")
	if !strings.Contains(buf.String(), "root=Subtotal") {
		t.Errorf("attached logger output = %q", buf.String())
	}

	if loggerFromContext(context.Background()) == nil {
		t.Error("loggerFromContext without a logger returned nil")
	}
}
