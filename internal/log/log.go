// Package log carries a logrus entry through contexts so every component
// logs with the fields (run id, profile, component) of the call that
// reached it.
package log

import (
	"context"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
)

// L is the fallback entry used when a context carries none.
var L = logrus.NewEntry(logrus.StandardLogger())

type loggerKey struct{}

// WithLogger returns a context carrying entry.
func WithLogger(ctx context.Context, entry *logrus.Entry) context.Context {
	return context.WithValue(ctx, loggerKey{}, entry)
}

// G returns the entry stored in ctx, or L.
func G(ctx context.Context) *logrus.Entry {
	if e, ok := ctx.Value(loggerKey{}).(*logrus.Entry); ok {
		return e
	}
	return L
}

// Configure sets level and format ("text" or "json") on the standard
// logger and points it at out.
func Configure(level, format string, out io.Writer) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	logrus.SetLevel(lvl)

	switch format {
	case "", "text":
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	default:
		return fmt.Errorf("log format %q: want text or json", format)
	}

	if out != nil {
		logrus.SetOutput(out)
	}
	return nil
}
