// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package driver

import (
	"context"

	"github.com/docbase/go-driver/driver/description"
	"github.com/docbase/go-driver/driver/session"
	"github.com/docbase/go-driver/readpref"
)

// Aspect tags an operation with a cross-cutting property that the executor
// needs to route, retry, or pin correctly.
type Aspect uint8

// The aspects the executor recognizes. An operation may carry more than one.
const (
	AspectRead Aspect = 1 << iota
	AspectWrite
	AspectRetryable
	AspectCursorCreating
	AspectCursorIterating
)

// Has reports whether the aspect set includes a.
func (a Aspect) Has(b Aspect) bool { return a&b != 0 }

// ExecuteOptions carries per-attempt information the executor computes and
// the operation's own execute function consumes. Rather than mutating the
// operation descriptor to signal retry intent (a smell the teacher's own
// design notes flag), retry intent is passed as an argument here, which
// keeps Operation itself immutable across both attempts.
type ExecuteOptions struct {
	// WillRetryWrite is true when this attempt is a retryable write that is
	// eligible to be retried if it fails; the wire encoder uses this to add
	// the retry transaction number to the command, on both the first
	// attempt and the retry.
	WillRetryWrite bool
}

// ExecuteFunc is how an operation actually talks to a server. It returns
// exactly once, with either a result or a classified error. It may also
// panic synchronously; the executor then ends any implicit session it
// created before re-raising the panic.
type ExecuteFunc func(ctx context.Context, server Server, sess *session.Client, opts ExecuteOptions) (any, error)

// Operation is an immutable value describing what to run. It is constructed
// by the CRUD layer (out of scope here) and consumed at most twice by the
// executor: once for the initial attempt, and once more for a retry.
type Operation struct {
	// Aspects declares the operation's cross-cutting properties.
	Aspects Aspect

	// ReadPreference is nil to mean "default to primary".
	ReadPreference *readpref.ReadPref

	// Session is the caller-supplied explicit session, or nil if the
	// executor should synthesize an implicit one.
	Session *session.Client

	// PriorServer is the last-used server description for a cursor
	// continuation (CURSOR_ITERATING). It is nil for an operation that is
	// not continuing a cursor.
	PriorServer *description.Server

	// TrySecondaryWrite requests the SecondaryWritable selector instead of
	// plain read-preference selection.
	TrySecondaryWrite bool

	// BypassPinningCheck skips the "unpin a committed transaction's
	// session" maintenance step.
	BypassPinningCheck bool

	// CanRetryRead/CanRetryWrite are the operation's own opt-in flags; even
	// when every other condition allows a retry, the operation itself must
	// request it.
	CanRetryRead  bool
	CanRetryWrite bool

	// Execute is the operation's entry point into the wire protocol layer.
	Execute ExecuteFunc
}

// Validate ensures the descriptor is well-formed. A failure here is a
// programmer-error class (RuntimeViolation), never a retryable one.
func (op Operation) Validate() error {
	if op.Execute == nil {
		return InvalidOperationError{MissingField: "Execute"}
	}
	if op.Aspects.Has(AspectRead) && op.Aspects.Has(AspectWrite) {
		return InvalidOperationError{MissingField: "Aspects (an operation cannot be both a read and a write)"}
	}
	if op.Aspects.Has(AspectCursorIterating) && op.PriorServer == nil {
		return InvalidOperationError{MissingField: "PriorServer"}
	}
	return nil
}

// effectiveReadPreference returns the operation's read preference, or the
// primary default when none was specified.
func (op Operation) effectiveReadPreference() *readpref.ReadPref {
	if op.ReadPreference == nil {
		return readpref.Primary()
	}
	return op.ReadPreference
}
