package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/n9te9/supergraph-dev/internal/dev/compose"
	"github.com/n9te9/supergraph-dev/internal/dev/config"
	"github.com/n9te9/supergraph-dev/internal/dev/follower"
	"github.com/n9te9/supergraph-dev/internal/dev/introspect"
	"github.com/n9te9/supergraph-dev/internal/dev/leader"
	"github.com/n9te9/supergraph-dev/internal/dev/metrics"
	"github.com/n9te9/supergraph-dev/internal/dev/plugins"
	"github.com/n9te9/supergraph-dev/internal/dev/protocol"
	"github.com/n9te9/supergraph-dev/internal/dev/registryclient"
	"github.com/n9te9/supergraph-dev/internal/dev/router"
	"github.com/n9te9/supergraph-dev/internal/dev/tracing"
	"github.com/n9te9/supergraph-dev/internal/dev/watcher"
	"github.com/n9te9/supergraph-dev/internal/devlog"
)

type devFlags struct {
	supergraphConfig string
	routerConfig     string
	routerAddr       string
	routerPath       string
	rawSocketName    string
	subgraphRetries  uint64
	metricsAddr      string
	jsonLogs         bool
	enableTracing    bool
	otlpEndpoint     string
}

func newDevCmd() *cobra.Command {
	var f devFlags

	cmd := &cobra.Command{
		Use:   "dev",
		Short: "Run a continuously-recomposed local supergraph, electing a leader or joining one as a follower",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDev(cmd.Context(), f)
		},
	}

	cmd.Flags().StringVar(&f.supergraphConfig, "supergraph-config", "", "path to the supergraph config document naming subgraph sources")
	cmd.Flags().StringVar(&f.routerConfig, "router-config", "", "path to the router's own config document")
	cmd.Flags().StringVar(&f.routerAddr, "supergraph-port", "127.0.0.1:4000", "address the router listens on")
	cmd.Flags().StringVar(&f.routerPath, "router-path", "router", "path to the router executable")
	cmd.Flags().StringVar(&f.rawSocketName, "rendezvous-name", "supergraph-dev-session", "stable name identifying this session's rendezvous socket")
	cmd.Flags().Uint64Var(&f.subgraphRetries, "subgraph-retries", 0, "number of consecutive transport failures a subgraph watcher tolerates before detaching")
	cmd.Flags().StringVar(&f.metricsAddr, "metrics-addr", "", "if set, serve Prometheus metrics on this address")
	cmd.Flags().BoolVar(&f.jsonLogs, "json-logs", false, "emit structured JSON logs instead of text")
	cmd.Flags().BoolVar(&f.enableTracing, "tracing", false, "export OpenTelemetry traces for introspection HTTP calls")
	cmd.Flags().StringVar(&f.otlpEndpoint, "otlp-endpoint", "", "OTLP/HTTP collector endpoint (only used when --tracing is set)")
	return cmd
}

func runDev(ctx context.Context, f devFlags) error {
	logger := devlog.Setup(f.jsonLogs, slog.LevelInfo)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	supergraphCfg, err := loadOptionalSupergraphConfig(f.supergraphConfig)
	if err != nil {
		return err
	}
	routerCfg, err := config.LoadRouterConfig(f.routerConfig)
	if err != nil {
		return err
	}
	routerAddr := f.routerAddr
	if routerCfg.ListenAddr != "" {
		routerAddr = routerCfg.ListenAddr
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	if f.metricsAddr != "" {
		go serveMetrics(f.metricsAddr, reg, logger)
	}

	shutdownTracing, err := tracing.Setup(ctx, "supergraph-dev", f.otlpEndpoint, f.enableTracing)
	if err != nil {
		return fmt.Errorf("failed to set up tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Warn("failed to shut down tracing cleanly", "error", err)
		}
	}()

	schemaPath, err := os.CreateTemp("", "supergraph-*.graphql")
	if err != nil {
		return fmt.Errorf("failed to allocate a supergraph schema file: %w", err)
	}
	schemaPath.Close()
	defer os.Remove(schemaPath.Name())

	leaderCfg := leader.Config{
		RawSocketName:           f.rawSocketName,
		RouterAddr:              routerAddr,
		SchemaPath:              schemaPath.Name(),
		RouterConfig:            routerCfg.ConfigPath,
		Installer:               plugins.NoopInstaller{RouterPath: f.routerPath},
		Composer:                compose.Local{},
		Binary:                  router.ExecBinary{Path: f.routerPath},
		EnvFederationVersion:    os.Getenv("APOLLO_ROVER_DEV_COMPOSITION_VERSION"),
		ConfigFederationVersion: supergraphCfg.ParsedFederationVersion(),
		Version:                 Version,
		Logger:                  logger,
		Metrics:                 m,
	}

	session, err := leader.Start(ctx, leaderCfg)
	if err != nil {
		return fmt.Errorf("failed to start leader session: %w", err)
	}

	var messenger watcher.Messenger
	if session != nil {
		logger.Info("elected leader", "rendezvous_name", f.rawSocketName)
		ready := make(chan struct{})
		go func() {
			if err := session.Listen(ctx, ready); err != nil && ctx.Err() == nil {
				logger.Error("leader session exited", "error", err)
			}
		}()
		<-ready
		messenger = follower.NewInProcess(session.Channel())
	} else {
		logger.Info("another leader is already running this session, joining as a follower", "rendezvous_name", f.rawSocketName)
		remote := follower.NewRemote(f.rawSocketName, Version, logger)
		if err := remote.Handshake(); err != nil {
			return err
		}
		messenger = remote
	}

	var wg sync.WaitGroup
	for name, source := range supergraphCfg.Subgraphs {
		w, err := buildWatcher(name, source, messenger, f.subgraphRetries, f.enableTracing, logger)
		if err != nil {
			return err
		}
		wg.Add(1)
		go func(w *watcher.Watcher) {
			defer wg.Done()
			if err := w.Watch(ctx); err != nil && ctx.Err() == nil {
				logger.Error("watcher exited with an error", "subgraph", w.Name(), "error", err)
			}
		}(w)
	}

	<-ctx.Done()
	wg.Wait()
	return nil
}

func loadOptionalSupergraphConfig(path string) (*config.SupergraphConfig, error) {
	if path == "" {
		return &config.SupergraphConfig{Subgraphs: map[string]config.SubgraphSource{}}, nil
	}
	return config.LoadSupergraphConfig(path)
}

// buildWatcher picks one of the four watcher kinds (spec §4.H) from the
// fields actually populated on source; this mirrors the original's
// SubgraphCommand enum collapsed into one struct for YAML-friendliness.
func buildWatcher(name string, source config.SubgraphSource, messenger watcher.Messenger, retryBudget uint64, traced bool, logger *slog.Logger) (*watcher.Watcher, error) {
	key := protocol.SubgraphKey{Name: name, RoutingURL: source.RoutingURL}
	opts := []watcher.Option{
		watcher.WithRetryBudget(retryBudget),
		watcher.WithRetryPeriod(30 * time.Second),
		watcher.WithLogger(logger.With("subgraph", name)),
	}

	switch {
	case source.SchemaPath != "":
		return watcher.NewFromFile(key, source.SchemaPath, messenger, opts...), nil

	case source.SchemaURL != "":
		client := tracing.InstrumentClient(nil, traced)
		runner := introspect.NewHTTPRunner(source.SchemaURL, client, source.Headers)
		pollSeconds := source.PollIntervalS
		if pollSeconds == 0 {
			pollSeconds = 10
		}
		return watcher.NewFromIntrospection(key, runner, pollSeconds, messenger, opts...), nil

	case source.InlineSDL != "":
		return watcher.NewOnce(key, source.InlineSDL, messenger, opts...), nil

	case source.GraphRef != "":
		client := registryclient.Unconfigured{}
		result, err := client.FetchSubgraph(registryclient.SubgraphFetchInput{
			GraphRef:     source.GraphRef,
			SubgraphName: source.SubgraphName,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to resolve subgraph %q from the registry: %w", name, err)
		}
		if key.RoutingURL == "" {
			key.RoutingURL = result.RoutingURL
		}
		return watcher.NewFromRegistry(key, result.SDL, messenger, opts...), nil

	default:
		return nil, fmt.Errorf("subgraph %q names no source (schema, introspection_url, inline_sdl, or graph_ref)", name)
	}
}

func serveMetrics(addr string, reg *prometheus.Registry, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(reg))
	logger.Info("serving metrics", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("metrics server exited", "error", err)
	}
}
