// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package driver

import (
	"fmt"
	"strings"

	pkgerrors "github.com/pkg/errors"
)

// Error labels the executor and the error classification layer recognize.
// The taxonomy itself is owned by the database's error specification; the
// executor only treats these as opaque strings.
const (
	// NetworkError marks an error that occurred below the wire protocol,
	// e.g. a dropped connection. It distinguishes the load-balanced cursor
	// unpin rule in the retry controller.
	NetworkError = "NetworkError"
	// RetryableWriteError marks a server error that may be safely retried
	// under the transaction-number deduplication mechanism.
	RetryableWriteError = "RetryableWriteError"
)

// mmapv1IllegalOperationCode is the legacy server error code returned by
// MMAPv1 storage engines for unsupported retryable-write operations.
const mmapv1IllegalOperationCode int32 = 20

// InvalidOperationError is returned from Operation.Validate and indicates a
// required field is missing from an instance of Operation, or, for Aspects,
// that the read and write aspects were both set.
type InvalidOperationError struct{ MissingField string }

func (err InvalidOperationError) Error() string {
	return "the " + err.MissingField + " field must be set on Operation"
}

// RuntimeViolation wraps a programmer error detected while validating an
// operation descriptor. It is never retryable.
type RuntimeViolation struct {
	Err error
}

func (e RuntimeViolation) Error() string { return "invalid operation: " + e.Err.Error() }
func (e RuntimeViolation) Unwrap() error { return e.Err }

// ExpiredSessionError is returned when the caller supplied a session that
// has already been ended.
type ExpiredSessionError struct{}

func (ExpiredSessionError) Error() string { return "session has already ended" }

// CompatibilityError is returned when a session and the selected deployment
// disagree about a feature: sessions aren't supported but one was supplied,
// or snapshot reads were requested but the deployment can't serve them.
type CompatibilityError struct {
	Message string
}

func (e CompatibilityError) Error() string { return e.Message }

// TransactionError is returned when the effective read preference is
// incompatible with an active transaction.
type TransactionError struct{}

func (TransactionError) Error() string {
	return "read preference in a transaction must be primary"
}

// Error is a server-observed failure: an integer code, a message, and a set
// of labels. HasErrorLabel drives both write-retry eligibility
// (RetryableWriteError) and the load-balanced cursor unpin rule
// (NetworkError).
type Error struct {
	Code    int32
	Message string
	Labels  []string
	Wrapped error
}

func (e Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Wrapped != nil {
		return e.Wrapped.Error()
	}
	return fmt.Sprintf("server error %d", e.Code)
}

// Unwrap exposes the wrapped error to errors.Is/errors.As.
func (e Error) Unwrap() error { return e.Wrapped }

// HasErrorLabel reports whether label is attached to this error.
func (e Error) HasErrorLabel(label string) bool {
	for _, l := range e.Labels {
		if l == label {
			return true
		}
	}
	return false
}

// labeledError is satisfied by any error that can report attached labels,
// independent of its concrete type. The write-retry eligibility check in
// the retry controller is written against this interface rather than the
// concrete Error type, so alternate error taxonomies can plug in.
type labeledError interface {
	error
	HasErrorLabel(string) bool
}

// RetryableReadClassifier decides whether an error observed on a read
// operation should be retried. It is supplied by the caller's error
// taxonomy and treated as opaque by the executor.
type RetryableReadClassifier func(error) bool

// DefaultRetryableRead is a minimal RetryableReadClassifier: network errors
// are retryable for reads, plus any error that already carries the
// RetryableWriteError label (most server codes that make a write safe to
// retry also make a read safe to retry).
func DefaultRetryableRead(err error) bool {
	if err == nil {
		return false
	}
	if lerr, ok := err.(labeledError); ok {
		return lerr.HasErrorLabel(NetworkError) || lerr.HasErrorLabel(RetryableWriteError)
	}
	return false
}

// isMMAPv1RetryableWriteMisconfiguration reports whether err is the legacy
// illegal-operation error a pre-4.0 MMAPv1 storage engine returns when a
// driver sends a transaction number it cannot understand.
func isMMAPv1RetryableWriteMisconfiguration(err error) bool {
	serr, ok := err.(Error)
	if !ok {
		return false
	}
	return serr.Code == mmapv1IllegalOperationCode && strings.Contains(serr.Message, "Transaction numbers")
}

// mmapv1RetryDiagnostic synthesizes the canned diagnostic returned in place
// of a retryable write error that is actually an MMAPv1 misconfiguration. It
// wraps the original error so callers can still unwrap to it.
func mmapv1RetryDiagnostic(original error) error {
	return pkgerrors.Wrap(original,
		"this MongoDB deployment does not support retryable writes. Please "+
			"add retryWrites=false to your connection string")
}
