// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package driver

import (
	"context"

	"github.com/docbase/go-driver/driver/session"
)

// minRetryableWireVersion is the lowest wire version a server must report to
// be eligible for either retryable reads or retryable writes. Reporting a
// finer-grained capability per retry class is the topology monitor's job;
// the executor only consumes the single threshold it's specified against
// for reads and treats writes the same way in the absence of a richer
// capability signal.
const minRetryableWireVersion int32 = 6

// RetryServerUnsupportedError is returned when the server selected for a
// retry no longer supports the retryable class the operation needs. This
// error, not the original failure, is what the caller sees.
type RetryServerUnsupportedError struct{}

func (RetryServerUnsupportedError) Error() string {
	return "server selected for retry does not support the required retryable class"
}

func serverSupportsRetryClass(server Server) bool {
	wv := server.Description().WireVersion
	return wv != nil && wv.Includes(minRetryableWireVersion)
}

// retryEligible decides whether a second attempt is permitted at all, given
// the operation, the deployment's settings, the session, and the server
// selected for the first attempt.
func retryEligible(op Operation, topo Topology, sess *session.Client, server Server) bool {
	if !op.Aspects.Has(AspectRetryable) {
		return false
	}
	if sess != nil && sess.Transaction().InTransaction() {
		return false
	}
	switch {
	case op.Aspects.Has(AspectRead):
		return topo.RetryReads() && op.CanRetryRead && serverSupportsRetryClass(server)
	case op.Aspects.Has(AspectWrite):
		return topo.RetryWrites() && op.CanRetryWrite && serverSupportsRetryClass(server)
	default:
		return false
	}
}

func isNetworkError(err error) bool {
	lerr, ok := err.(labeledError)
	return ok && lerr.HasErrorLabel(NetworkError)
}

// runWithRetry drives a single attempt through selection and execution and,
// for eligible operations, a second attempt on a classified-retryable
// failure: Selecting -> Executing -> {Succeeded | Classifying -> {Done |
// Retrying -> Selecting' -> Executing' -> Done}}. There is no retry beyond
// Executing'.
func runWithRetry(
	ctx context.Context,
	topo Topology,
	op Operation,
	sess *session.Client,
	classifyRead RetryableReadClassifier,
	logSink LogSink,
) (any, error) {
	if classifyRead == nil {
		classifyRead = DefaultRetryableRead
	}

	selector := computeSelector(op, topo)

	if err := checkTransactionReadPreference(op, sess); err != nil {
		return nil, err
	}
	maintainPinning(op, sess)
	// Redundant with the check above: the session may have entered a
	// transaction concurrently with the maintenance step. Preserved until
	// proven dead code.
	if err := checkTransactionReadPreference(op, sess); err != nil {
		return nil, err
	}

	// Selecting: no retry on a first-selection failure.
	server, err := topo.SelectServer(ctx, selector)
	if err != nil {
		return nil, err
	}

	eligible := retryEligible(op, topo, sess, server)

	var execOpts ExecuteOptions
	if eligible && op.Aspects.Has(AspectWrite) {
		execOpts.WillRetryWrite = true
		if sess != nil {
			sess.IncrementTransactionNumber()
		}
	}

	// Executing.
	result, err := op.Execute(ctx, server, sess, execOpts)
	if err == nil {
		return result, nil
	}
	if !eligible {
		return nil, err
	}

	// Classifying.
	shouldRetry, classified := classify(op, err, classifyRead)
	if classified != nil {
		logError(logSink, classified, "retry aborted in favor of a synthesized diagnostic", nil)
		return nil, classified
	}
	if !shouldRetry {
		return nil, err
	}
	logInfo(logSink, "retrying after a classified-retryable failure", map[string]any{"error": err.Error()})

	// Retrying: reselect using the same selector value computed above.
	newServer, selErr := topo.SelectServer(ctx, selector)
	if selErr != nil {
		logError(logSink, selErr, "retry reselection failed", nil)
		return nil, selErr
	}
	// Note: the teacher's x/mongo/driver/insert.go returns the *original*
	// first-attempt error here ("Return original error if server selection
	// fails or new server does not support retryable writes"). This module
	// instead surfaces a distinct RetryServerUnsupportedError; see DESIGN.md
	// for why the observed behavior was not preserved on this branch.
	if !serverSupportsRetryClass(newServer) {
		return nil, RetryServerUnsupportedError{}
	}

	// Load-balanced cursor network-error recovery: release the pin that
	// never saw a successfully opened cursor, before the fresh attempt.
	if isNetworkError(err) &&
		server.LoadBalanced() &&
		sess != nil &&
		sess.IsPinned() &&
		!sess.Transaction().InTransaction() &&
		op.Aspects.Has(AspectCursorCreating) {
		sess.Unpin(session.UnpinOptions{Force: true, ForceClear: true})
	}

	// Executing': final, whether it succeeds or fails.
	return op.Execute(ctx, newServer, sess, execOpts)
}

// classify implements the retry error-classification decision. It returns
// shouldRetry=true when the first error should be superseded by a second
// attempt, or a non-nil classified error when the retry path itself must be
// aborted in favor of a synthesized diagnostic (the MMAPv1 case).
func classify(op Operation, err error, classifyRead RetryableReadClassifier) (shouldRetry bool, classified error) {
	if op.Aspects.Has(AspectRead) {
		return classifyRead(err), nil
	}
	if op.Aspects.Has(AspectWrite) {
		if isMMAPv1RetryableWriteMisconfiguration(err) {
			return false, mmapv1RetryDiagnostic(err)
		}
		lerr, ok := err.(labeledError)
		return ok && lerr.HasErrorLabel(RetryableWriteError), nil
	}
	return false, nil
}
