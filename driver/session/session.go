// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package session implements the logical session lifecycle: causal
// consistency bookkeeping, transaction state, and pinning for load-balanced
// deployments. The session pool that issues and reclaims sessions is an
// external collaborator and is not implemented here; this package only
// models the session value itself.
package session

import "sync"

// Owner identifies the executor invocation that created an implicit
// session, so that invocation (and only that invocation) knows it is
// responsible for ending the session. A nil Owner means the session was
// supplied explicitly by the caller and outlives any single operation.
type Owner struct {
	token any
}

// NewOwner returns a fresh Owner token unique to one executor invocation.
// Any comparable value unique to the call works; a pointer to a
// locally-scoped value is the simplest choice and avoids a global registry.
func NewOwner() Owner {
	return Owner{token: new(byte)}
}

// Equal reports whether two Owner tokens were created by the same call to
// NewOwner.
func (o Owner) Equal(other Owner) bool {
	return o.token == other.token
}

// TransactionState describes where a session's transaction currently sits.
type TransactionState uint8

// Transaction lifecycle states.
const (
	TransactionNone TransactionState = iota
	TransactionStarting
	TransactionInProgress
	TransactionCommitted
	TransactionAborted
)

// Transaction carries the subset of transaction state the executor needs
// to enforce read-preference compatibility and to decide retry eligibility.
type Transaction struct {
	State TransactionState
}

// InTransaction reports whether a transaction is currently open (starting or
// in progress).
func (t Transaction) InTransaction() bool {
	return t.State == TransactionStarting || t.State == TransactionInProgress
}

// IsCommitted reports whether the transaction has committed.
func (t Transaction) IsCommitted() bool {
	return t.State == TransactionCommitted
}

// Client is a logical session: either supplied explicitly by the caller, in
// which case it outlives any single operation, or created implicitly by the
// executor, in which case the executor owns ending it.
type Client struct {
	mu sync.Mutex

	hasEnded          bool
	snapshotEnabled   bool
	isPinned          bool
	owner             *Owner
	transaction       Transaction
	transactionNumber int64
}

// NewImplicit constructs a session owned by the given executor invocation.
func NewImplicit(owner Owner) *Client {
	return &Client{owner: &owner}
}

// NewExplicit constructs a session with no owner, as supplied by a caller.
func NewExplicit(snapshotEnabled bool) *Client {
	return &Client{snapshotEnabled: snapshotEnabled}
}

// HasEnded reports whether End has already been called on this session.
func (c *Client) HasEnded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hasEnded
}

// SnapshotEnabled reports whether this session requested snapshot reads.
func (c *Client) SnapshotEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotEnabled
}

// IsPinned reports whether the session is currently pinned to a server.
func (c *Client) IsPinned() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isPinned
}

// Pin marks the session as pinned. Pinning discipline beyond this flag
// (which connection, transaction vs. cursor pin) belongs to the session
// pool / load-balanced connection layer and is out of scope here.
func (c *Client) Pin() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.isPinned = true
}

// UnpinOptions controls how a session is released from its pinned server.
type UnpinOptions struct {
	// Force marks an unpin that is not tied to the usual preconditions
	// (e.g. committed transaction). Unpin itself checks no preconditions,
	// so the pin is cleared whether or not Force is set.
	Force bool
	// ForceClear additionally signals that the connection pool behind the
	// pinned server should evict its connections, because the pin is being
	// released due to a failure rather than a clean handoff.
	ForceClear bool
}

// Unpin releases the session's pin. The connection-pool-clearing side
// effect implied by ForceClear is the caller's responsibility (it requires
// the connection pool, which is out of scope for this package); Unpin only
// records that the session is no longer pinned.
func (c *Client) Unpin(_ UnpinOptions) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.isPinned = false
}

// Owner returns the owning token and whether the session is implicit.
func (c *Client) Owner() (Owner, bool) {
	if c.owner == nil {
		return Owner{}, false
	}
	return *c.owner, true
}

// Transaction returns a snapshot of the session's transaction state.
func (c *Client) Transaction() Transaction {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transaction
}

// SetTransactionState updates the transaction's lifecycle state. Exposed for
// the (out of scope) transaction management layer and for tests.
func (c *Client) SetTransactionState(state TransactionState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transaction.State = state
}

// TransactionNumber returns the current transaction number.
func (c *Client) TransactionNumber() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transactionNumber
}

// IncrementTransactionNumber bumps the monotonic transaction number used to
// tag retryable writes so the server can deduplicate a retried attempt.
func (c *Client) IncrementTransactionNumber() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transactionNumber++
}

// End marks the session as ended. End is idempotent: calling it more than
// once (which should not happen under the executor's invariants, but is
// cheap to guard against) has no further effect after the first call.
func (c *Client) End() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hasEnded = true
}

// ClusterClock tracks the highest cluster time this client has observed,
// independent of any particular session's clock. The executor does not
// advance it directly; it is threaded through for parity with the
// production driver's session.ClusterClock and is updated by the (out of
// scope) wire response processing layer.
type ClusterClock struct {
	mu   sync.Mutex
	time int64
}

// AdvanceClusterTime moves the clock forward if t is newer than what has
// already been observed.
func (cc *ClusterClock) AdvanceClusterTime(t int64) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	if t > cc.time {
		cc.time = t
	}
}

// ClusterTime returns the highest cluster time observed so far.
func (cc *ClusterClock) ClusterTime() int64 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.time
}
