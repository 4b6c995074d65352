// Copyright 2026 The Stratum Authors.
//
// Use of this software is governed by the Apache License, Version 2.0
// included in the /LICENSE file.

// Package log provides leveled, context-tagged logging for stratum. Messages
// are formatted through redact so that unsafe values can be scrubbed from
// exported logs, and context tags installed via logtags (query IDs, stage
// IDs) are rendered as a bracketed prefix.
package log

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/cockroachdb/logtags"
	"github.com/cockroachdb/redact"
	"github.com/stratumdb/stratum/pkg/util/syncutil"
)

// Severity is the importance class of a log entry.
type Severity int

const (
	// SeverityInfo is for informational messages.
	SeverityInfo Severity = iota
	// SeverityWarning is for messages that describe a suspicious but
	// survivable condition.
	SeverityWarning
	// SeverityError is for messages that describe an error condition.
	SeverityError
	// SeverityFatal is for messages that precede a process exit.
	SeverityFatal
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "I"
	case SeverityWarning:
		return "W"
	case SeverityError:
		return "E"
	case SeverityFatal:
		return "F"
	default:
		return "?"
	}
}

var verbosity atomic.Int32

// SetVerbosity sets the global verbosity level used by V and VEventf.
// Messages logged with VEventf at a level at or below the configured
// verbosity are emitted.
func SetVerbosity(level int) {
	verbosity.Store(int32(level))
}

// V returns whether the given verbosity level is enabled.
func V(level int) bool {
	return int32(level) <= verbosity.Load()
}

var output struct {
	syncutil.Mutex
	w io.Writer
}

// SetOutput redirects log output, returning the previous writer. Used by
// tests; the default sink is stderr.
func SetOutput(w io.Writer) io.Writer {
	output.Lock()
	defer output.Unlock()
	prev := output.w
	output.w = w
	return prev
}

func init() {
	output.w = os.Stderr
}

func logf(ctx context.Context, sev Severity, format string, args ...interface{}) {
	msg := redact.Sprintf(format, args...)
	var prefix string
	if tags := logtags.FromContext(ctx); tags != nil {
		prefix = "[" + tags.String() + "] "
	}
	output.Lock()
	defer output.Unlock()
	fmt.Fprintf(output.w, "%s %s%s\n", sev, prefix, msg.StripMarkers())
	if sev == SeverityFatal {
		os.Exit(2)
	}
}

// Infof logs an informational message.
func Infof(ctx context.Context, format string, args ...interface{}) {
	logf(ctx, SeverityInfo, format, args...)
}

// Warningf logs a warning message.
func Warningf(ctx context.Context, format string, args ...interface{}) {
	logf(ctx, SeverityWarning, format, args...)
}

// Errorf logs an error message.
func Errorf(ctx context.Context, format string, args ...interface{}) {
	logf(ctx, SeverityError, format, args...)
}

// Fatalf logs a message and terminates the process.
func Fatalf(ctx context.Context, format string, args ...interface{}) {
	logf(ctx, SeverityFatal, format, args...)
}

// VEventf logs an informational message if the given verbosity level is
// enabled.
func VEventf(ctx context.Context, level int, format string, args ...interface{}) {
	if V(level) {
		logf(ctx, SeverityInfo, format, args...)
	}
}
