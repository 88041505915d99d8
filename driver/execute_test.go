// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package driver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docbase/go-driver/driver/session"
	"github.com/docbase/go-driver/readpref"
)

// Happy read, non-retryable path.
func TestExecute_HappyReadNonRetryable(t *testing.T) {
	srv := serverWithWireVersion("s0", 17)
	topo := &fakeTopology{
		hasSessionSupport: true,
		selectResults:     []selectResult{{server: srv}},
	}

	executeCalls := 0
	op := Operation{
		Aspects: AspectRead,
		Execute: func(ctx context.Context, server Server, sess *session.Client, opts ExecuteOptions) (any, error) {
			executeCalls++
			assert.Same(t, srv, server)
			assert.False(t, opts.WillRetryWrite)
			return map[string]int{"ok": 1}, nil
		},
	}

	result, err := Execute(context.Background(), topo, op, ExecuteParams{})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"ok": 1}, result)
	assert.Equal(t, 1, executeCalls)
	assert.Equal(t, 1, topo.selectCalls)
}

// Implicit session is ended on success.
func TestExecute_ImplicitSessionEndedOnSuccess(t *testing.T) {
	srv := serverWithWireVersion("s0", 17)
	topo := &fakeTopology{
		hasSessionSupport: true,
		selectResults:     []selectResult{{server: srv}},
	}

	var observedSession *session.Client
	op := Operation{
		Aspects: AspectRead,
		Execute: func(ctx context.Context, server Server, sess *session.Client, opts ExecuteOptions) (any, error) {
			observedSession = sess
			return "ok", nil
		},
	}

	_, err := Execute(context.Background(), topo, op, ExecuteParams{})
	require.NoError(t, err)
	require.Equal(t, 1, topo.startSessionCalls)
	require.NotNil(t, observedSession)
	assert.True(t, observedSession.HasEnded())
}

// Boundary: implicit session is ended even when execute fails.
func TestExecute_ImplicitSessionEndedOnError(t *testing.T) {
	srv := serverWithWireVersion("s0", 17)
	topo := &fakeTopology{
		hasSessionSupport: true,
		selectResults:     []selectResult{{server: srv}},
	}

	var observedSession *session.Client
	op := Operation{
		Aspects: AspectRead,
		Execute: func(ctx context.Context, server Server, sess *session.Client, opts ExecuteOptions) (any, error) {
			observedSession = sess
			return nil, assertErr{"boom"}
		},
	}

	_, err := Execute(context.Background(), topo, op, ExecuteParams{})
	require.Error(t, err)
	assert.True(t, observedSession.HasEnded())
}

// Boundary: implicit session is ended even if execute panics synchronously.
func TestExecute_ImplicitSessionEndedOnPanic(t *testing.T) {
	srv := serverWithWireVersion("s0", 17)
	topo := &fakeTopology{
		hasSessionSupport: true,
		selectResults:     []selectResult{{server: srv}},
	}

	var observedSession *session.Client
	op := Operation{
		Aspects: AspectRead,
		Execute: func(ctx context.Context, server Server, sess *session.Client, opts ExecuteOptions) (any, error) {
			observedSession = sess
			panic("synchronous throw")
		},
	}

	assert.Panics(t, func() {
		_, _ = Execute(context.Background(), topo, op, ExecuteParams{})
	})
	require.NotNil(t, observedSession)
	assert.True(t, observedSession.HasEnded())
}

// Explicit session: not ended by the executor, even on error.
func TestExecute_ExplicitSessionNotEnded(t *testing.T) {
	srv := serverWithWireVersion("s0", 17)
	topo := &fakeTopology{
		hasSessionSupport: true,
		selectResults:     []selectResult{{server: srv}},
	}

	explicit := session.NewExplicit(false)
	op := Operation{
		Aspects: AspectRead,
		Session: explicit,
		Execute: func(ctx context.Context, server Server, sess *session.Client, opts ExecuteOptions) (any, error) {
			return "ok", nil
		},
	}

	_, err := Execute(context.Background(), topo, op, ExecuteParams{})
	require.NoError(t, err)
	assert.False(t, explicit.HasEnded())
	assert.Equal(t, 0, topo.startSessionCalls)
}

// Boundary: supplying an ended session fails with ExpiredSessionError.
func TestExecute_ExpiredSession(t *testing.T) {
	topo := &fakeTopology{hasSessionSupport: true}
	expired := session.NewExplicit(false)
	expired.End()

	op := Operation{
		Aspects: AspectRead,
		Session: expired,
		Execute: func(ctx context.Context, server Server, sess *session.Client, opts ExecuteOptions) (any, error) {
			t.Fatal("execute should not be called for an expired session")
			return nil, nil
		},
	}

	_, err := Execute(context.Background(), topo, op, ExecuteParams{})
	assert.ErrorIs(t, err, ExpiredSessionError{})
}

// Boundary: snapshot session against a topology that can't serve snapshots.
func TestExecute_SnapshotCompatibilityError(t *testing.T) {
	topo := &fakeTopology{hasSessionSupport: true, supportsSnapshot: false}
	snap := session.NewExplicit(true)

	op := Operation{
		Aspects: AspectRead,
		Session: snap,
		Execute: func(ctx context.Context, server Server, sess *session.Client, opts ExecuteOptions) (any, error) {
			t.Fatal("execute should not be called before the compatibility check")
			return nil, nil
		},
	}

	_, err := Execute(context.Background(), topo, op, ExecuteParams{})
	var compatErr CompatibilityError
	require.ErrorAs(t, err, &compatErr)
	assert.Equal(t, 0, topo.selectCalls)
}

// Boundary: session supplied to a topology without session support.
func TestExecute_SessionUnsupportedByTopology(t *testing.T) {
	topo := &fakeTopology{hasSessionSupport: false}
	explicit := session.NewExplicit(false)

	op := Operation{
		Aspects: AspectRead,
		Session: explicit,
		Execute: func(ctx context.Context, server Server, sess *session.Client, opts ExecuteOptions) (any, error) {
			t.Fatal("execute should not be called")
			return nil, nil
		},
	}

	_, err := Execute(context.Background(), topo, op, ExecuteParams{})
	var compatErr CompatibilityError
	require.ErrorAs(t, err, &compatErr)
}

// The session-support bootstrap race probe forces a selection, then re-enters.
func TestExecute_SessionSupportBootstrapRace(t *testing.T) {
	srv := serverWithWireVersion("s0", 17)
	topo := &fakeTopology{
		shouldCheckSessionSupport: true,
		hasSessionSupport:         true,
		selectResults: []selectResult{
			{server: srv}, // the forced probe selection
			{server: srv}, // the real selection after re-entry
		},
	}

	calls := 0
	op := Operation{
		Aspects: AspectRead,
		Execute: func(ctx context.Context, server Server, sess *session.Client, opts ExecuteOptions) (any, error) {
			calls++
			return "ok", nil
		},
	}

	result, err := Execute(context.Background(), topo, op, ExecuteParams{})
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 1, calls)
}

// assertErr is a plain error used where no label-carrying behavior matters.
type assertErr struct{ msg string }

func (e assertErr) Error() string { return e.msg }

// Boundary: non-primary read preference inside a transaction fails fast.
func TestExecute_TransactionReadPreference(t *testing.T) {
	topo := &fakeTopology{hasSessionSupport: true}
	sess := session.NewExplicit(false)
	sess.SetTransactionState(session.TransactionInProgress)

	op := Operation{
		Aspects:        AspectRead,
		Session:        sess,
		ReadPreference: readpref.New(readpref.SecondaryMode),
		Execute: func(ctx context.Context, server Server, s *session.Client, opts ExecuteOptions) (any, error) {
			t.Fatal("execute must not be called")
			return nil, nil
		},
	}

	_, err := Execute(context.Background(), topo, op, ExecuteParams{})
	assert.ErrorIs(t, err, TransactionError{})
	assert.Equal(t, 0, topo.selectCalls)
}
