// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package driver

import (
	"context"
	"errors"

	"github.com/docbase/go-driver/driver/description"
	"github.com/docbase/go-driver/driver/session"
)

// fakeServer is a minimal Server for tests.
type fakeServer struct {
	desc         description.Server
	loadBalanced bool
}

func (s *fakeServer) Description() description.Server { return s.desc }
func (s *fakeServer) LoadBalanced() bool               { return s.loadBalanced }

func serverWithWireVersion(addr string, max int32) *fakeServer {
	return &fakeServer{desc: description.Server{
		Addr:        addr,
		Kind:        description.ServerKindRSPrimary,
		WireVersion: &description.VersionRange{Min: 0, Max: max},
	}}
}

// fakeTopology is a scriptable driver.Topology for tests. Each field that
// drives a decision can be set directly; selectResults is consumed in
// order, one result per call to SelectServer, so tests can hand back a
// different server (or error) on the retry's reselection.
type fakeTopology struct {
	shouldCheckSessionSupport bool
	hasSessionSupport         bool
	supportsSnapshot          bool
	commonWireVersion         int32
	retryReads                bool
	retryWrites               bool

	selectResults []selectResult
	selectCalls   int

	startSessionCalls int
}

type selectResult struct {
	server Server
	err    error
}

func (t *fakeTopology) ShouldCheckForSessionSupport() bool { return t.shouldCheckSessionSupport }
func (t *fakeTopology) HasSessionSupport() bool            { return t.hasSessionSupport }
func (t *fakeTopology) SupportsSnapshotReads() bool         { return t.supportsSnapshot }
func (t *fakeTopology) CommonWireVersion() int32            { return t.commonWireVersion }
func (t *fakeTopology) RetryReads() bool                    { return t.retryReads }
func (t *fakeTopology) RetryWrites() bool                   { return t.retryWrites }

func (t *fakeTopology) SelectServer(context.Context, description.ServerSelector) (Server, error) {
	if t.selectCalls >= len(t.selectResults) {
		return nil, errors.New("fakeTopology: no more scripted select results")
	}
	res := t.selectResults[t.selectCalls]
	t.selectCalls++
	// Mirrors topology.Topology: any selection resolves the bootstrap race,
	// since it means discovery has run at least once.
	t.shouldCheckSessionSupport = false
	return res.server, res.err
}

func (t *fakeTopology) StartSession(owner session.Owner) *session.Client {
	t.startSessionCalls++
	return session.NewImplicit(owner)
}
