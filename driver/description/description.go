// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package description holds the read-only server and topology data model
// that server selectors consume. It carries no behavior beyond what a
// selector needs to filter candidates.
package description

import "fmt"

// ServerKind represents the kind of a single server.
type ServerKind uint32

// The kinds of servers that can appear in a topology.
const (
	ServerKindStandalone ServerKind = iota
	ServerKindRSPrimary
	ServerKindRSSecondary
	ServerKindMongos
	ServerKindLoadBalancer
	ServerKindUnknown
)

// TopologyKind represents the shape of a deployment.
type TopologyKind uint32

// The kinds of topology a deployment can report.
const (
	TopologyKindSingle                TopologyKind = 1
	TopologyKindReplicaSet            TopologyKind = 2
	TopologyKindReplicaSetNoPrimary   TopologyKind = 4 + TopologyKindReplicaSet
	TopologyKindReplicaSetWithPrimary TopologyKind = 8 + TopologyKindReplicaSet
	TopologyKindSharded               TopologyKind = 256
	TopologyKindLoadBalanced          TopologyKind = 512
)

func (k TopologyKind) String() string {
	switch k {
	case TopologyKindSingle:
		return "Single"
	case TopologyKindReplicaSet:
		return "ReplicaSet"
	case TopologyKindReplicaSetNoPrimary:
		return "ReplicaSetNoPrimary"
	case TopologyKindReplicaSetWithPrimary:
		return "ReplicaSetWithPrimary"
	case TopologyKindSharded:
		return "Sharded"
	case TopologyKindLoadBalanced:
		return "LoadBalanced"
	default:
		return "Unknown"
	}
}

// VersionRange represents a range of wire protocol versions supported by a
// server, end-points inclusive.
type VersionRange struct {
	Min int32
	Max int32
}

// Includes reports whether v falls within the range.
func (vr VersionRange) Includes(v int32) bool {
	return v >= vr.Min && v <= vr.Max
}

// Server is the read-only description of a single member of a deployment, as
// observed by the (out of scope) topology monitor.
type Server struct {
	Addr          string
	Kind          ServerKind
	WireVersion   *VersionRange
	LoadBalanced  bool
	AverageRTTSet bool
	AverageRTT    int64 // nanoseconds; avoids importing time in this leaf package

	// Identity is an opaque value used by the SameServer selector to
	// recognize "the server that is currently holding my cursor", without
	// this package needing to know anything about addresses or pooling.
	Identity any
}

func (s Server) String() string {
	return fmt.Sprintf("Addr: %s, Kind: %d", s.Addr, s.Kind)
}

// Topology is the read-only description of a deployment as a whole.
type Topology struct {
	Servers []Server
	Kind    TopologyKind
}

// ServerSelector is implemented by types that can filter a candidate list of
// servers down to the ones that are eligible for a given operation.
type ServerSelector interface {
	SelectServer(Topology, []Server) ([]Server, error)
}

// ServerSelectorFunc adapts a function to the ServerSelector interface.
type ServerSelectorFunc func(Topology, []Server) ([]Server, error)

// SelectServer implements ServerSelector.
func (f ServerSelectorFunc) SelectServer(t Topology, c []Server) ([]Server, error) {
	return f(t, c)
}
