// Copyright 2026 The Stratum Authors.
//
// Use of this software is governed by the Apache License, Version 2.0
// included in the /LICENSE file.

package execution

import (
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/redact"
)

// ErrorCode classifies a query failure.
type ErrorCode int

const (
	// ErrorInternal is the default classification for failures that carry no
	// explicit code.
	ErrorInternal ErrorCode = iota
	// ErrorUserCanceled means the user canceled the query.
	ErrorUserCanceled
	// ErrorNotFound means a referenced object does not exist.
	ErrorNotFound
	// ErrorExceededMemoryLimit means the query was killed by the memory
	// manager.
	ErrorExceededMemoryLimit
)

func (c ErrorCode) String() string {
	switch c {
	case ErrorInternal:
		return "INTERNAL"
	case ErrorUserCanceled:
		return "USER_CANCELED"
	case ErrorNotFound:
		return "NOT_FOUND"
	case ErrorExceededMemoryLimit:
		return "EXCEEDED_MEMORY_LIMIT"
	default:
		return "UNKNOWN"
	}
}

// queryError attaches an ErrorCode to an error chain.
type queryError struct {
	code  ErrorCode
	cause error
}

var _ error = (*queryError)(nil)

func (e *queryError) Error() string { return e.cause.Error() }

func (e *queryError) Unwrap() error { return e.cause }

// NewQueryError creates an error carrying the given code.
func NewQueryError(code ErrorCode, format string, args ...interface{}) error {
	return &queryError{code: code, cause: errors.Newf(format, args...)}
}

// MarkQueryError attaches a code to an existing error.
func MarkQueryError(code ErrorCode, err error) error {
	if err == nil {
		return nil
	}
	return &queryError{code: code, cause: err}
}

// ErrorCodeOf extracts the ErrorCode from an error chain, defaulting to
// ErrorInternal.
func ErrorCodeOf(err error) ErrorCode {
	var qe *queryError
	if errors.As(err, &qe) {
		return qe.code
	}
	return ErrorInternal
}

// Failure is the immutable record of a query failure. The first failure
// reported to a query state machine wins; all later failures are dropped.
type Failure struct {
	Code    ErrorCode
	Message string
	// Cause retains the original error chain for errors.Is / errors.As on
	// the consumer side.
	Cause error
}

// SafeFormat implements redact.SafeFormatter. The message may contain user
// data; the code never does.
func (f *Failure) SafeFormat(p redact.SafePrinter, _ rune) {
	p.Printf("%v: %s", redact.Safe(f.Code), f.Message)
}

func (f *Failure) String() string {
	return redact.StringWithoutMarkers(f)
}

// toFailure converts an arbitrary error into a Failure record.
func toFailure(err error) *Failure {
	if err == nil {
		return nil
	}
	return &Failure{
		Code:    ErrorCodeOf(err),
		Message: err.Error(),
		Cause:   err,
	}
}
