package config

import (
	"fmt"
	"log/slog"
	"strings"
)

// FederationVersionKind tags the three shapes a FederationVersion can take
// (spec §3).
type FederationVersionKind string

const (
	FedExactOne FederationVersionKind = "ExactOne"
	FedExactTwo FederationVersionKind = "ExactTwo"
	FedLatest   FederationVersionKind = "LatestTwo"
)

// FederationVersion pins the federation spec version composition runs
// against. Version is empty for FedLatest.
type FederationVersion struct {
	Kind    FederationVersionKind
	Version string
}

func (v FederationVersion) String() string {
	switch v.Kind {
	case FedExactOne:
		return fmt.Sprintf("=%s (federation 1)", v.Version)
	case FedExactTwo:
		return fmt.Sprintf("=%s (federation 2)", v.Version)
	default:
		return "latest federation 2"
	}
}

// LatestTwo is the fallback FederationVersion used when neither the
// environment nor the supergraph config names one.
func LatestTwo() FederationVersion {
	return FederationVersion{Kind: FedLatest}
}

// ExactOne pins an explicit federation-1 version.
func ExactOne(version string) FederationVersion {
	return FederationVersion{Kind: FedExactOne, Version: version}
}

// ExactTwo pins an explicit federation-2 version.
func ExactTwo(version string) FederationVersion {
	return FederationVersion{Kind: FedExactTwo, Version: version}
}

// parseEnvVersion parses the raw string from the environment override into
// a FederationVersion. Per spec §3, this is always federation-2 unless the
// string begins with "0." (rover's historical federation-1 range); a value
// that doesn't parse as a dotted version is rejected.
func parseEnvVersion(raw string) (FederationVersion, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return FederationVersion{}, false
	}
	parts := strings.Split(raw, ".")
	if len(parts) < 2 {
		return FederationVersion{}, false
	}
	for _, p := range parts {
		if p == "" {
			return FederationVersion{}, false
		}
		for _, r := range p {
			if r < '0' || r > '9' {
				return FederationVersion{}, false
			}
		}
	}

	if parts[0] == "0" {
		return ExactOne(raw), true
	}
	return ExactTwo(raw), true
}

// ResolveFederationVersion implements the precedence order from spec §3/§4.F:
// environment override -> value read from a supplied supergraph config ->
// LatestTwo (with a warning). envOverride is the raw string read from the
// environment, already retrieved by the caller (see APOLLO_ROVER_DEV_COMPOSITION_VERSION
// in the CLI layer); configVersion is whatever the supergraph config document
// carried, if any.
func ResolveFederationVersion(envOverride string, configVersion *FederationVersion, logger *slog.Logger) FederationVersion {
	if envOverride != "" {
		if v, ok := parseEnvVersion(envOverride); ok {
			return v
		}
		if logger != nil {
			logger.Warn("could not parse federation version from environment override", "value", envOverride)
			logger.Info("will check supergraph config next")
		}
	}

	if configVersion != nil {
		return *configVersion
	}

	if logger != nil {
		logger.Warn("federation version not found in supergraph config")
		logger.Info("using latest federation 2 instead")
	}
	return LatestTwo()
}
