// Package registryclient is the out-of-scope "registry fetch client"
// collaborator (spec §1): it talks to the schema registry (GraphOS-style)
// to pull a subgraph's published SDL (the watcher's Registry source) or to
// publish a persisted-query manifest (the sibling persisted-queries publish
// command).
package registryclient

import "fmt"

// SubgraphFetchInput names what to fetch.
type SubgraphFetchInput struct {
	GraphRef     string
	SubgraphName string
}

// SubgraphFetchResult is what the registry returns for a fetch.
type SubgraphFetchResult struct {
	SDL string
	// RoutingURL is present when the registry has one on file for this
	// subgraph; callers fall back to it only if the caller didn't supply
	// an explicit routing URL of their own (spec §4.H: Registry source).
	RoutingURL string
}

// Client is the registry collaborator.
type Client interface {
	FetchSubgraph(SubgraphFetchInput) (SubgraphFetchResult, error)
	PublishPersistedQueries(graphRef, manifestPath string) error
}

// Unconfigured is returned by callers that have no registry endpoint wired
// up; every method fails with a descriptive error rather than panicking,
// so a `supergraph dev` run using only File/Once/Introspect sources never
// needs a registry client at all.
type Unconfigured struct{}

// FetchSubgraph implements Client.
func (Unconfigured) FetchSubgraph(in SubgraphFetchInput) (SubgraphFetchResult, error) {
	return SubgraphFetchResult{}, fmt.Errorf("no registry client configured: cannot fetch subgraph %q from graph %q", in.SubgraphName, in.GraphRef)
}

// PublishPersistedQueries implements Client.
func (Unconfigured) PublishPersistedQueries(graphRef, _ string) error {
	return fmt.Errorf("no registry client configured: cannot publish persisted queries for graph %q", graphRef)
}
