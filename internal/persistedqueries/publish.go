// Package persistedqueries is the sibling CLI command spec §1 names as
// coexisting with, but unrelated to, the leader/follower dev core: it
// publishes a persisted-query manifest to the registry. It is grounded on
// original_source/src/command/persisted_queries/publish.rs, trimmed to the
// one collaborator this module actually defines an interface for
// (registryclient.Client) rather than Studio's full authenticated-client
// stack.
package persistedqueries

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/n9te9/supergraph-dev/internal/dev/registryclient"
)

// Manifest mirrors the original's PersistedQueryManifest: a flat list of
// named operations to publish.
type Manifest struct {
	Operations []Operation `json:"operations"`
}

// Operation is one persisted query entry.
type Operation struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Body string `json:"body"`
}

// Input names what to publish and where, mirroring publish.rs's Publish
// struct minus the Studio-specific profile/auth flags this module doesn't
// model.
type Input struct {
	GraphRef     string
	ManifestPath string
}

// Run reads the manifest file, validates it decodes, and publishes it
// through client. It returns the number of operations published.
func Run(in Input, client registryclient.Client, logger *slog.Logger) (int, error) {
	if in.GraphRef == "" {
		return 0, fmt.Errorf("you must specify a graph ref to publish persisted queries to")
	}
	if in.ManifestPath == "" {
		return 0, fmt.Errorf("you must specify --manifest <path to operation manifest>")
	}

	raw, err := os.ReadFile(in.ManifestPath)
	if err != nil {
		return 0, fmt.Errorf("failed to read operation manifest %q: %w", in.ManifestPath, err)
	}

	var manifest Manifest
	if err := json.Unmarshal(raw, &manifest); err != nil {
		return 0, fmt.Errorf("JSON in %s was invalid: %w", in.ManifestPath, err)
	}

	if logger != nil {
		logger.Info("publishing persisted query operations", "graph_ref", in.GraphRef, "count", len(manifest.Operations))
	}

	if err := client.PublishPersistedQueries(in.GraphRef, in.ManifestPath); err != nil {
		return 0, fmt.Errorf("failed to publish persisted queries for %s: %w", in.GraphRef, err)
	}
	return len(manifest.Operations), nil
}
