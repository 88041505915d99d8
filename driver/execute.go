// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package driver

import (
	"context"

	"github.com/docbase/go-driver/driver/serverselector"
	"github.com/docbase/go-driver/driver/session"
	"github.com/docbase/go-driver/readpref"
)

// ExecuteParams carries the pluggable pieces of Execute that don't belong on
// Operation itself: the read-retry classifier (owned by the caller's error
// taxonomy, not the executor) and the ambient log sink.
type ExecuteParams struct {
	Classifier RetryableReadClassifier
	LogSink    LogSink
}

// Execute is the single public entry point: it sequences pre-flight
// validation, implicit-session creation, the transaction/read-preference
// compatibility checks, and delegation to the retry controller, then
// normalizes completion by always ending any implicit session it created.
func Execute(ctx context.Context, topo Topology, op Operation, params ExecuteParams) (any, error) {
	if verr := op.Validate(); verr != nil {
		return nil, RuntimeViolation{Err: verr}
	}

	if topo.ShouldCheckForSessionSupport() {
		// Force discovery and re-enter; this resolves the bootstrap race
		// where the first operation on a fresh deployment handle races the
		// initial round of server discovery. The probe's own selection
		// result is discarded, it exists only to trigger monitoring.
		_, _ = topo.SelectServer(ctx, &serverselector.ByReadPreference{ReadPref: readpref.PrimaryPreferred()})
		logInfo(params.LogSink, "forced server selection to resolve session-support bootstrap race", nil)
		return Execute(ctx, topo, op, params)
	}

	sess := op.Session
	var implicitOwner session.Owner
	createdImplicit := false

	switch {
	case topo.HasSessionSupport():
		switch {
		case sess == nil:
			implicitOwner = session.NewOwner()
			sess = topo.StartSession(implicitOwner)
			createdImplicit = true
		case sess.HasEnded():
			return nil, ExpiredSessionError{}
		case sess.SnapshotEnabled() && !topo.SupportsSnapshotReads():
			return nil, CompatibilityError{Message: "snapshot reads are not supported by this deployment"}
		}
	case sess != nil:
		return nil, CompatibilityError{Message: "sessions are not supported by this deployment"}
	}

	defer func() {
		if createdImplicit {
			if owner, ok := sess.Owner(); ok && owner.Equal(implicitOwner) {
				sess.End()
				logInfo(params.LogSink, "ended implicit session", nil)
			}
		}
		// Re-panic after the implicit session has been ended, so a
		// synchronous throw from the operation's execute function still
		// leaves no implicit session dangling.
		if r := recover(); r != nil {
			panic(r)
		}
	}()

	return runWithRetry(ctx, topo, op, sess, params.Classifier, params.LogSink)
}
