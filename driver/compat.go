// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package driver

import "github.com/docbase/go-driver/driver/session"

// checkTransactionReadPreference enforces that a session inside an active
// transaction only ever sees a primary read preference. It is deliberately
// called twice along the execution path (both times after the selector has
// been computed and before server selection, once on each side of
// maintainPinning), because the session can enter a transaction
// concurrently with setup. This redundancy is preserved even
// though it may be dead code in practice.
func checkTransactionReadPreference(op Operation, sess *session.Client) error {
	if sess == nil {
		return nil
	}
	if !sess.Transaction().InTransaction() {
		return nil
	}
	if !op.effectiveReadPreference().IsPrimary() {
		return TransactionError{}
	}
	return nil
}

// maintainPinning unpins a session whose transaction has committed, unless
// the operation explicitly asked to bypass this check. Pinning discipline
// on load-balanced topologies beyond this single maintenance step is owned
// by the session layer, not the executor.
func maintainPinning(op Operation, sess *session.Client) {
	if sess == nil || op.BypassPinningCheck {
		return
	}
	if sess.IsPinned() && sess.Transaction().IsCommitted() {
		sess.Unpin(session.UnpinOptions{})
	}
}
