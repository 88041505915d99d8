// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package driver implements the operation execution core: it takes a single
// logical operation and dispatches it against one server in a deployment,
// selecting the server, attaching a session, honoring transaction rules,
// and retrying once when the failure is recoverable.
//
// The wire protocol encoder, the connection pool, the topology monitor, and
// the session pool are external collaborators; this package only consumes
// the narrow interfaces below.
package driver

import (
	"context"

	"github.com/docbase/go-driver/driver/description"
	"github.com/docbase/go-driver/driver/session"
)

// Topology is the subset of a deployment handle the executor depends on.
// A production implementation backs this with server discovery, heartbeat
// monitoring, and a session pool; the executor never reaches past this
// interface to get at them.
type Topology interface {
	// ShouldCheckForSessionSupport reports whether session support hasn't
	// been determined yet, which happens when the very first operation
	// races the initial round of server discovery.
	ShouldCheckForSessionSupport() bool
	// HasSessionSupport reports whether the deployment supports sessions at
	// all, once that has been determined.
	HasSessionSupport() bool
	// SupportsSnapshotReads reports whether the deployment can serve
	// snapshot reads.
	SupportsSnapshotReads() bool
	// CommonWireVersion is the lowest wire version supported by every
	// server currently known to the deployment.
	CommonWireVersion() int32
	// RetryReads reports the deployment-level retryable-reads setting.
	// Defaults to true.
	RetryReads() bool
	// RetryWrites reports the deployment-level retryable-writes setting.
	// Defaults to false.
	RetryWrites() bool
	// SelectServer runs selector against the deployment's current servers
	// and returns a handle to one of the results.
	SelectServer(ctx context.Context, selector description.ServerSelector) (Server, error)
	// StartSession creates a new implicit session owned by owner.
	StartSession(owner session.Owner) *session.Client
}

// Server is a single, already-selected member of a deployment.
type Server interface {
	// Description is the server's observed description, used as the
	// identity a cursor's subsequent getMore is pinned to.
	Description() description.Server
	// LoadBalanced reports whether this server is reached through a load
	// balancer, which governs the session and cursor pinning rules.
	LoadBalanced() bool
}
