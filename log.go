// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta

package x4vfs

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// Logger is the minimal structured-logging dependency every component
// constructor accepts. It wraps zerolog.Logger rather than exposing it
// directly, so call sites depend on an interface, not a concrete global.
type Logger interface {
	Debug() *zerolog.Event
	Info() *zerolog.Event
	Warn() *zerolog.Event
	Error() *zerolog.Event
}

// zlogAdapter is the default Logger backed by a zerolog.Logger.
type zlogAdapter struct {
	zerolog.Logger
}

// NewLogger builds a Logger writing to w. Developer mode lowers the minimum
// level to debug and adds caller file:line to every event.
func NewLogger(w io.Writer, developerMode bool) Logger {
	if w == nil {
		w = os.Stderr
	}

	level := zerolog.InfoLevel
	ctx := zerolog.New(w).With().Timestamp()
	if developerMode {
		level = zerolog.DebugLevel
		ctx = ctx.Caller()
	}

	logger := ctx.Logger().Level(level)
	return &zlogAdapter{Logger: logger}
}

// logDiagnostic emits one structured warn event for a soft-mode Diagnostic,
// tagged with the kind, component, and extension it came from.
func logDiagnostic(log Logger, component string, d Diagnostic) {
	log.Warn().
		Str("kind", diagnosticKindLabel(d.Kind)).
		Str("component", component).
		Str("extension", d.ExtensionID).
		Msg(d.Message)
}

func diagnosticKindLabel(err error) string {
	if err == nil {
		return "unknown"
	}

	return err.Error()
}
