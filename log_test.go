// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta

package x4vfs

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewLoggerDefaultLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewLogger(&buf, false)

	log.Debug().Msg("should not appear")
	log.Info().Msg("should appear")

	out := buf.String()
	if strings.Contains(out, "should not appear") {
		t.Error("debug event logged at default level, want it suppressed")
	}
	if !strings.Contains(out, "should appear") {
		t.Error("info event missing from output")
	}
}

func TestNewLoggerDeveloperModeEnablesDebug(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewLogger(&buf, true)

	log.Debug().Msg("debug visible")

	if !strings.Contains(buf.String(), "debug visible") {
		t.Error("debug event suppressed in developer mode")
	}
}

func TestNewLoggerNilWriterDefaultsToStderr(t *testing.T) {
	t.Parallel()

	log := NewLogger(nil, false)
	if log == nil {
		t.Fatal("NewLogger(nil, false) returned nil")
	}
}

func TestLogDiagnosticIncludesKindAndExtension(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewLogger(&buf, false)

	d := Diagnostic{ExtensionID: "my_ext", Message: "patch failed", Kind: ErrInvalidSelector}
	logDiagnostic(log, "checker", d)

	out := buf.String()
	if !strings.Contains(out, "my_ext") {
		t.Errorf("log output missing extension id: %s", out)
	}
	if !strings.Contains(out, "patch failed") {
		t.Errorf("log output missing message: %s", out)
	}
}

func TestDiagnosticKindLabelNil(t *testing.T) {
	t.Parallel()

	if got := diagnosticKindLabel(nil); got != "unknown" {
		t.Errorf("diagnosticKindLabel(nil) = %q, want %q", got, "unknown")
	}
}
