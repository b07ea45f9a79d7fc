// Package plugins is the out-of-scope "plugin installation" collaborator
// named in spec §1: it fetches/verifies the router and composition binaries
// before the leader spawns them. Only the interface is specified here; a
// real implementation downloads and checksums release artifacts.
package plugins

import "github.com/n9te9/supergraph-dev/internal/dev/config"

// Installer installs whatever binaries the router supervisor and
// composition driver need before the leader can enter Running.
type Installer interface {
	// InstallRouter ensures the router runtime binary is present, returning
	// its path.
	InstallRouter() (path string, err error)
	// InstallComposer ensures a composition binary matching fedVersion is
	// present, returning its path. The leader calls it on every start,
	// whichever Composer is configured; NoopInstaller does nothing here.
	InstallComposer(fedVersion config.FederationVersion) (path string, err error)
}

// NoopInstaller is used when `supergraph dev` is configured to run fully
// local (compose.Local plus a caller-supplied router binary path): there is
// nothing to fetch, so both calls are no-ops.
type NoopInstaller struct {
	RouterPath string
}

// InstallRouter implements Installer.
func (n NoopInstaller) InstallRouter() (string, error) {
	return n.RouterPath, nil
}

// InstallComposer implements Installer.
func (n NoopInstaller) InstallComposer(config.FederationVersion) (string, error) {
	return "", nil
}
