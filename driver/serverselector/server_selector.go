// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package serverselector provides the concrete ServerSelector variants the
// executor chooses from: by read preference, pinned to a prior server, or
// restricted to secondaries capable of accepting a write.
package serverselector

import (
	"fmt"

	"github.com/docbase/go-driver/driver/description"
	"github.com/docbase/go-driver/readpref"
)

// ByReadPreference selects servers eligible to serve reads (or, for
// PrimaryMode, writes) under the given read preference.
type ByReadPreference struct {
	ReadPref *readpref.ReadPref
}

var _ description.ServerSelector = &ByReadPreference{}

// SelectServer filters candidates by read preference mode.
func (s *ByReadPreference) SelectServer(topo description.Topology, candidates []description.Server) ([]description.Server, error) {
	if topo.Kind == description.TopologyKindLoadBalanced {
		// There is at most one server behind a load balancer and it must be
		// selected regardless of read preference.
		return candidates, nil
	}

	mode := readpref.PrimaryMode
	if s.ReadPref != nil {
		mode = s.ReadPref.Mode()
	}

	switch mode {
	case readpref.PrimaryMode:
		return filterByKind(candidates, description.ServerKindRSPrimary, description.ServerKindStandalone, description.ServerKindMongos), nil
	case readpref.PrimaryPreferredMode:
		primaries := filterByKind(candidates, description.ServerKindRSPrimary)
		if len(primaries) > 0 {
			return primaries, nil
		}
		return filterByKind(candidates, description.ServerKindRSSecondary, description.ServerKindStandalone, description.ServerKindMongos), nil
	case readpref.SecondaryMode:
		return filterByKind(candidates, description.ServerKindRSSecondary), nil
	case readpref.SecondaryPreferredMode:
		secondaries := filterByKind(candidates, description.ServerKindRSSecondary)
		if len(secondaries) > 0 {
			return secondaries, nil
		}
		return filterByKind(candidates, description.ServerKindRSPrimary, description.ServerKindStandalone, description.ServerKindMongos), nil
	case readpref.NearestMode:
		return filterByKind(candidates, description.ServerKindRSPrimary, description.ServerKindRSSecondary, description.ServerKindStandalone, description.ServerKindMongos), nil
	default:
		return nil, fmt.Errorf("unsupported read preference mode: %v", mode)
	}
}

func filterByKind(candidates []description.Server, kinds ...description.ServerKind) []description.Server {
	allowed := make(map[description.ServerKind]bool, len(kinds))
	for _, k := range kinds {
		allowed[k] = true
	}
	result := make([]description.Server, 0, len(candidates))
	for _, c := range candidates {
		if allowed[c.Kind] {
			result = append(result, c)
		}
	}
	return result
}

// SameServer anchors selection to the single server that currently holds an
// open cursor. It still traverses normal selection so an unhealthy server
// triggers a monitor check, rather than being trusted blindly.
type SameServer struct {
	Identity any
}

var _ description.ServerSelector = &SameServer{}

// SelectServer returns the candidate whose Identity matches, if any.
func (s *SameServer) SelectServer(_ description.Topology, candidates []description.Server) ([]description.Server, error) {
	for _, c := range candidates {
		if c.Identity == s.Identity {
			return []description.Server{c}, nil
		}
	}
	return nil, nil
}

// SecondaryWritable selects secondaries that are capable of accepting a
// write attempted with trySecondaryWrite semantics, gated by the topology's
// common wire version.
type SecondaryWritable struct {
	CommonWireVersion int32
	ReadPref          *readpref.ReadPref
}

var _ description.ServerSelector = &SecondaryWritable{}

// minSecondaryWritableWireVersion is the lowest wire version known to
// support directing an acknowledged write at a secondary.
const minSecondaryWritableWireVersion int32 = 13

// SelectServer filters to secondaries when the deployment's common wire
// version supports it; otherwise it falls back to ordinary read-preference
// selection so the write still lands on a viable server.
func (s *SecondaryWritable) SelectServer(topo description.Topology, candidates []description.Server) ([]description.Server, error) {
	if s.CommonWireVersion < minSecondaryWritableWireVersion {
		return (&ByReadPreference{ReadPref: s.ReadPref}).SelectServer(topo, candidates)
	}
	secondaries := filterByKind(candidates, description.ServerKindRSSecondary)
	if len(secondaries) > 0 {
		return secondaries, nil
	}
	return (&ByReadPreference{ReadPref: s.ReadPref}).SelectServer(topo, candidates)
}

// Composite applies a chain of selectors in order, narrowing candidates at
// each step.
type Composite struct {
	Selectors []description.ServerSelector
}

var _ description.ServerSelector = &Composite{}

// SelectServer runs each selector over the output of the previous one.
func (c *Composite) SelectServer(topo description.Topology, candidates []description.Server) ([]description.Server, error) {
	var err error
	for _, sel := range c.Selectors {
		candidates, err = sel.SelectServer(topo, candidates)
		if err != nil {
			return nil, err
		}
	}
	return candidates, nil
}
