// Package compose drives recomposition of the supergraph schema from the
// leader's registry (spec §4.D) against a pluggable Composer collaborator.
// Composer itself is named by interface only: it is the "GraphQL
// composition engine" spec §1 treats as an out-of-scope external
// collaborator (in production this shells out to the real supergraph
// composition binary; Local below is a best-effort default for offline
// development).
package compose

import (
	"fmt"
	"os"

	"github.com/n9te9/supergraph-dev/internal/dev/config"
	"github.com/n9te9/supergraph-dev/internal/dev/protocol"
)

// Input is the composer's input document: a stable ordering of the
// registry's current entries stamped with the resolved FederationVersion
// (spec §4.D).
type Input struct {
	FederationVersion config.FederationVersion
	Subgraphs         []protocol.SubgraphEntry
}

// Composer invokes the out-of-scope composition engine. It returns the new
// composed supergraph SDL, or an empty string if composition considers its
// output unchanged from the previous call (the composer, not the driver,
// owns that bytes-identical judgement in the real binary; Local below
// instead lets the Driver do the comparison, which is equivalent per
// spec §4.D outcome 2).
type Composer interface {
	Compose(Input) (schema string, err error)
}

// Router is the subset of the router supervisor (spec §4.E) the driver
// needs: (re)spawn after the driver has written a new schema, and kill.
type Router interface {
	Spawn() error
	Kill() error
}

// Driver ties the registry, a Composer, and a Router together, implementing
// spec §4.D's recompose() and its three outcomes.
type Driver struct {
	Composer Composer
	Router   Router

	// SchemaPath is where the composed supergraph schema is written; the
	// router watches this file, so writing it is composition's commit
	// point (spec §4.D rationale).
	SchemaPath string

	lastSchema string
}

// Outcome classifies what Recompose did, for logging/metrics callers.
type Outcome int

const (
	// OutcomeError means composition failed; the router was killed
	// best-effort and its error swallowed (logged by the caller).
	OutcomeError Outcome = iota
	// OutcomeUnchanged means composition produced the same schema as last
	// time (or an empty string); the router was left alone.
	OutcomeUnchanged
	// OutcomeNewSchema means a new schema was written and the router was
	// asked to (re)start.
	OutcomeNewSchema
)

// Recompose runs the composer against subgraphs stamped with fedVersion and
// acts on the result per spec §4.D's three outcomes. routerErr is non-nil
// only when OutcomeNewSchema's router respawn itself failed (spec §7's
// "Router" error class: composition succeeded but the router did not come
// up).
func (d *Driver) Recompose(fedVersion config.FederationVersion, subgraphs []protocol.SubgraphEntry) (outcome Outcome, composeErr, routerErr error) {
	schema, err := d.Composer.Compose(Input{FederationVersion: fedVersion, Subgraphs: subgraphs})
	if err != nil {
		_ = d.Router.Kill()
		return OutcomeError, err, nil
	}

	if schema == "" || schema == d.lastSchema {
		return OutcomeUnchanged, nil, nil
	}

	if err := os.WriteFile(d.SchemaPath, []byte(schema), 0o644); err != nil {
		_ = d.Router.Kill()
		return OutcomeError, fmt.Errorf("failed to write supergraph schema: %w", err), nil
	}
	d.lastSchema = schema

	if err := d.Router.Spawn(); err != nil {
		return OutcomeNewSchema, nil, err
	}
	return OutcomeNewSchema, nil, nil
}
