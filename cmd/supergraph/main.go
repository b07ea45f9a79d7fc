// Command supergraph is the local development orchestrator's CLI surface:
// `supergraph dev` runs the leader/follower coordination core (spec §1),
// `supergraph version` reports the build version used by the GetVersion
// handshake, and `supergraph publish` is the unrelated sibling
// persisted-queries command spec §1 names as coexisting with, but not part
// of, the dev core.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is compared against a follower's FollowerVersion during the
// GetVersion handshake (spec §4.G); a mismatch only warns.
const Version = "0.1.0-dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of supergraph-dev",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("supergraph-dev " + Version)
	},
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "supergraph",
		Short: "Run and coordinate a local federated supergraph development session",
	}

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(newDevCmd())
	rootCmd.AddCommand(newPublishCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
