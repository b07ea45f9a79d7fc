package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeYAML(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadSupergraphConfig(t *testing.T) {
	dir := t.TempDir()
	path := writeYAML(t, dir, "supergraph.yaml", `
federation_version: "2.7.0"
subgraphs:
  accounts:
    routing_url: http://localhost:4001
    schema: accounts.graphql
  products:
    routing_url: http://localhost:4002
    introspection_url: http://localhost:4002/graphql
    introspection_poll_seconds: 5
`)

	cfg, err := LoadSupergraphConfig(path)
	if err != nil {
		t.Fatalf("LoadSupergraphConfig: %v", err)
	}
	if len(cfg.Subgraphs) != 2 {
		t.Fatalf("expected 2 subgraphs, got %d", len(cfg.Subgraphs))
	}
	accounts, ok := cfg.Subgraphs["accounts"]
	if !ok || accounts.SchemaPath != "accounts.graphql" {
		t.Fatalf("unexpected accounts entry: %+v", accounts)
	}
	products, ok := cfg.Subgraphs["products"]
	if !ok || products.PollIntervalS != 5 {
		t.Fatalf("unexpected products entry: %+v", products)
	}

	v := cfg.ParsedFederationVersion()
	if v == nil || v.Kind != FedExactTwo || v.Version != "2.7.0" {
		t.Fatalf("unexpected parsed federation version: %+v", v)
	}
}

func TestLoadSupergraphConfigMissingFile(t *testing.T) {
	if _, err := LoadSupergraphConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected an error for a missing supergraph config file")
	}
}

func TestLoadRouterConfigEmptyPathIsNotAnError(t *testing.T) {
	cfg, err := LoadRouterConfig("")
	if err != nil {
		t.Fatalf("LoadRouterConfig(\"\"): %v", err)
	}
	if cfg.ListenAddr != "" {
		t.Fatalf("expected a zero-value config, got %+v", cfg)
	}
}

func TestLoadRouterConfig(t *testing.T) {
	dir := t.TempDir()
	path := writeYAML(t, dir, "router.yaml", "supergraph:\n  listen: 127.0.0.1:4500\n")

	cfg, err := LoadRouterConfig(path)
	if err != nil {
		t.Fatalf("LoadRouterConfig: %v", err)
	}
	if cfg.ListenAddr != "127.0.0.1:4500" {
		t.Fatalf("unexpected listen addr: %q", cfg.ListenAddr)
	}
	if cfg.ConfigPath != path {
		t.Fatalf("expected ConfigPath to be stamped with the loaded path, got %q", cfg.ConfigPath)
	}
}

func TestParsedFederationVersionNilWhenUnset(t *testing.T) {
	cfg := &SupergraphConfig{}
	if v := cfg.ParsedFederationVersion(); v != nil {
		t.Fatalf("expected nil for an unset federation version, got %+v", v)
	}
}
