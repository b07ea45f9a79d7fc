package main

import (
	"github.com/spf13/cobra"

	"github.com/n9te9/supergraph-dev/internal/dev/registryclient"
	"github.com/n9te9/supergraph-dev/internal/devlog"
	"github.com/n9te9/supergraph-dev/internal/persistedqueries"
)

func newPublishCmd() *cobra.Command {
	var graphRef, manifestPath string

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish a persisted query manifest to the registry",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := devlog.Setup(false, 0)

			n, err := persistedqueries.Run(persistedqueries.Input{
				GraphRef:     graphRef,
				ManifestPath: manifestPath,
			}, registryclient.Unconfigured{}, logger)
			if err != nil {
				return err
			}
			logger.Info("published persisted query operations", "count", n, "graph_ref", graphRef)
			return nil
		},
	}

	cmd.Flags().StringVar(&graphRef, "graph-ref", "", "the graph ref to publish operations to, e.g. my-graph@prod")
	cmd.Flags().StringVar(&manifestPath, "manifest", "", "path to the persisted query operation manifest")
	return cmd
}
