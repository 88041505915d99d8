// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package topology is a single-process stand-in for the real server
// discovery and monitoring subsystem. It satisfies driver.Topology so the
// executor can be exercised end-to-end without a live deployment; it does
// not implement heartbeats, RTT tracking, or health checks, all of which
// belong to a real SDAM monitor.
package topology

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/docbase/go-driver/driver"
	"github.com/docbase/go-driver/driver/description"
	"github.com/docbase/go-driver/driver/session"
)

// Config configures a Topology. It mirrors, at a much smaller scale, the
// teacher's topology.Config/ClientOptions pattern of plain struct fields
// rather than a bespoke file format.
type Config struct {
	Kind description.TopologyKind

	// RetryReads/RetryWrites mirror options.ClientOptions.Retry{Reads,Writes};
	// a nil RetryReads is reported as true by Topology.RetryReads, matching
	// the driver's documented default.
	RetryReads  *bool
	RetryWrites bool

	// SupportsSnapshotReads reports whether every server in the deployment
	// is new enough to serve snapshot reads.
	SupportsSnapshotReads bool

	// SessionSupportKnown false simulates the bootstrap race on a fresh
	// deployment handle: the first call to ShouldCheckForSessionSupport
	// returns true until a selection has been forced.
	SessionSupportKnown bool
	HasSessions         bool
}

// Topology is an in-memory deployment handle.
type Topology struct {
	mu      sync.RWMutex
	cfg     Config
	probed  bool
	servers []boundServer
}

type boundServer struct {
	desc         description.Server
	loadBalanced bool
}

// server adapts a boundServer to driver.Server.
type server struct {
	desc         description.Server
	loadBalanced bool
}

func (s *server) Description() description.Server { return s.desc }
func (s *server) LoadBalanced() bool               { return s.loadBalanced }

// New constructs a Topology with the given servers.
func New(cfg Config, servers ...description.Server) *Topology {
	bound := make([]boundServer, len(servers))
	for i, s := range servers {
		bound[i] = boundServer{desc: s, loadBalanced: cfg.Kind == description.TopologyKindLoadBalanced}
	}
	return &Topology{cfg: cfg, servers: bound}
}

// ShouldCheckForSessionSupport reports the bootstrap race on a fresh
// deployment handle: true until the first forced selection resolves it.
func (t *Topology) ShouldCheckForSessionSupport() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return !t.cfg.SessionSupportKnown && !t.probed
}

// HasSessionSupport reports whether the deployment supports sessions.
func (t *Topology) HasSessionSupport() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.cfg.HasSessions
}

// SupportsSnapshotReads reports whether the deployment can serve snapshot
// reads.
func (t *Topology) SupportsSnapshotReads() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.cfg.SupportsSnapshotReads
}

// CommonWireVersion returns the lowest of the Max wire versions reported by
// every known server, which is what "common" means across a deployment.
func (t *Topology) CommonWireVersion() int32 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var common int32 = -1
	for _, s := range t.servers {
		if s.desc.WireVersion == nil {
			continue
		}
		if common == -1 || s.desc.WireVersion.Max < common {
			common = s.desc.WireVersion.Max
		}
	}
	if common == -1 {
		return 0
	}
	return common
}

// RetryReads reports the deployment-level retryable-reads setting,
// defaulting to true, matching the driver's documented default.
func (t *Topology) RetryReads() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.cfg.RetryReads == nil {
		return true
	}
	return *t.cfg.RetryReads
}

// RetryWrites reports the deployment-level retryable-writes setting,
// defaulting to false.
func (t *Topology) RetryWrites() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.cfg.RetryWrites
}

// ErrNoServerFound is returned by SelectServer when no candidate survives
// the selector.
var ErrNoServerFound = errors.New("no server found matching the selector")

// SelectServer applies selector to the topology's current server list and
// returns one of the results. Resolving the session-support bootstrap race
// is a side effect of any call to SelectServer, matching the real driver's
// behavior of treating the probing selection as ordinary discovery traffic.
func (t *Topology) SelectServer(_ context.Context, selector description.ServerSelector) (driver.Server, error) {
	t.mu.Lock()
	t.probed = true
	desc := description.Topology{Kind: t.cfg.Kind}
	candidates := make([]description.Server, len(t.servers))
	loadBalanced := make(map[string]bool, len(t.servers))
	for i, s := range t.servers {
		candidates[i] = s.desc
		loadBalanced[s.desc.Addr] = s.loadBalanced
	}
	t.mu.Unlock()

	selected, err := selector.SelectServer(desc, candidates)
	if err != nil {
		return nil, fmt.Errorf("server selection failed: %w", err)
	}
	if len(selected) == 0 {
		return nil, ErrNoServerFound
	}
	return &server{desc: selected[0], loadBalanced: loadBalanced[selected[0].Addr]}, nil
}

// StartSession creates a new implicit session owned by owner.
func (t *Topology) StartSession(owner session.Owner) *session.Client {
	return session.NewImplicit(owner)
}

var _ driver.Topology = (*Topology)(nil)
