package config

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

// SupergraphConfig is the document a caller may supply naming subgraph
// sources and a pinned FederationVersion (spec §3, §6). It mirrors the
// teacher's GatewayOption loading style (server/gateway.go:loadGatewaySetting):
// a tagged struct unmarshaled from YAML with goccy/go-yaml.
type SupergraphConfig struct {
	FederationVersion string                    `yaml:"federation_version,omitempty"`
	Subgraphs         map[string]SubgraphSource `yaml:"subgraphs"`
}

// SubgraphSource names exactly one of the four watcher kinds from spec §4.H.
type SubgraphSource struct {
	RoutingURL string `yaml:"routing_url"`

	SchemaPath string `yaml:"schema"`

	SchemaURL      string            `yaml:"introspection_url"`
	PollIntervalS  uint64            `yaml:"introspection_poll_seconds" default:"10"`
	Headers        map[string]string `yaml:"introspection_headers,omitempty"`

	InlineSDL string `yaml:"inline_sdl"`

	GraphRef      string `yaml:"graph_ref"`
	SubgraphName  string `yaml:"subgraph_name"`
}

// LoadSupergraphConfig reads and parses a supergraph config document.
func LoadSupergraphConfig(path string) (*SupergraphConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open supergraph config file: %w", err)
	}

	var cfg SupergraphConfig
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal supergraph config: %w", err)
	}
	return &cfg, nil
}

// ParsedFederationVersion converts the document's raw string field (if any)
// into a *FederationVersion suitable for ResolveFederationVersion.
func (c *SupergraphConfig) ParsedFederationVersion() *FederationVersion {
	if c == nil || c.FederationVersion == "" {
		return nil
	}
	v, ok := parseEnvVersion(c.FederationVersion)
	if !ok {
		return nil
	}
	return &v
}

// RouterConfig is the router runtime's own configuration document, passed
// through unread by the core beyond the fields it needs to gate the bind
// preflight and spawn (spec §4.E, §6).
type RouterConfig struct {
	ListenAddr string `yaml:"supergraph.listen" default:"127.0.0.1:4000"`
	ConfigPath string `yaml:"-"`
}

// LoadRouterConfig reads a router config document, if one is supplied. A
// missing path is not an error: the caller falls back to CLI defaults.
func LoadRouterConfig(path string) (*RouterConfig, error) {
	if path == "" {
		return &RouterConfig{}, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open router config file: %w", err)
	}

	var doc struct {
		Supergraph struct {
			Listen string `yaml:"listen"`
		} `yaml:"supergraph"`
	}
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal router config: %w", err)
	}
	return &RouterConfig{ListenAddr: doc.Supergraph.Listen, ConfigPath: path}, nil
}
