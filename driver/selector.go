// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package driver

import (
	"github.com/docbase/go-driver/driver/description"
	"github.com/docbase/go-driver/driver/serverselector"
)

// computeSelector picks the server selector an operation should run with. It
// depends only on the operation and, for TrySecondaryWrite, the topology's
// common wire version, and is called exactly once per
// execution; the same returned value is reused for both the initial
// selection and the retry's reselection, so the retry obeys the same
// routing policy.
func computeSelector(op Operation, topo Topology) description.ServerSelector {
	switch {
	case op.Aspects.Has(AspectCursorIterating):
		var identity any
		if op.PriorServer != nil {
			identity = op.PriorServer.Identity
		}
		return &serverselector.SameServer{Identity: identity}
	case op.TrySecondaryWrite:
		return &serverselector.SecondaryWritable{
			CommonWireVersion: topo.CommonWireVersion(),
			ReadPref:          op.effectiveReadPreference(),
		}
	default:
		return &serverselector.ByReadPreference{ReadPref: op.effectiveReadPreference()}
	}
}
