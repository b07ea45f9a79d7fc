// Package leader implements the leader session (spec §4.F): the process
// that won rendezvous election, owns the registry, composition driver, and
// router supervisor, and dispatches every FollowerMessage arriving on its
// channel pair.
package leader

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"

	"github.com/google/uuid"

	"github.com/n9te9/supergraph-dev/internal/dev/compose"
	"github.com/n9te9/supergraph-dev/internal/dev/config"
	"github.com/n9te9/supergraph-dev/internal/dev/metrics"
	"github.com/n9te9/supergraph-dev/internal/dev/plugins"
	"github.com/n9te9/supergraph-dev/internal/dev/protocol"
	"github.com/n9te9/supergraph-dev/internal/dev/registry"
	"github.com/n9te9/supergraph-dev/internal/dev/rendezvous"
	"github.com/n9te9/supergraph-dev/internal/dev/router"
)

// Config names everything Start needs to decide election and, if this
// process wins, bring up a leader session.
type Config struct {
	RawSocketName string
	RouterAddr    string
	SchemaPath    string
	RouterConfig  string

	Installer plugins.Installer
	Composer  compose.Composer
	Binary    router.Binary

	EnvFederationVersion string
	ConfigFederationVersion *config.FederationVersion

	Version string
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// Session is a running leader: registry, composition driver, router
// supervisor, and the channel serving worker and dispatch loop bound
// together.
type Session struct {
	rawSocketName string
	listener      net.Listener

	channel    protocol.FollowerChannel
	registry   *registry.Registry
	driver     *compose.Driver
	supervisor *router.Supervisor

	fedVersion config.FederationVersion
	version    string

	logger  *slog.Logger
	metrics *metrics.Metrics
}

// routerAdapter narrows *router.Supervisor (whose Spawn takes a context) to
// compose.Router's zero-argument Spawn, binding one fixed context for the
// lifetime of the leader session.
type routerAdapter struct {
	ctx context.Context
	sup *router.Supervisor
}

func (a routerAdapter) Spawn() error { return a.sup.Spawn(a.ctx) }
func (a routerAdapter) Kill() error  { return a.sup.Kill() }

// Start implements spec §4.F step 1-2. A nil *Session with a nil error
// means another leader already holds rawSocketName and this process should
// become a follower instead.
func Start(ctx context.Context, cfg Config) (*Session, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ln, conn, err := rendezvous.Elect(cfg.RawSocketName)
	if err != nil {
		return nil, fmt.Errorf("leader election failed: %w", err)
	}
	if conn != nil {
		defer conn.Close()
		if err := healthCheck(conn); err != nil {
			return nil, fmt.Errorf("a rendezvous socket is already served at %q but it did not answer a health check: %w", cfg.RawSocketName, err)
		}
		return nil, nil
	}

	supervisor := router.NewSupervisor(cfg.Binary, cfg.SchemaPath, cfg.RouterConfig, cfg.RouterAddr, logger)
	if err := supervisor.PreflightBind(); err != nil {
		ln.Close()
		return nil, fmt.Errorf("%w (pick a different --supergraph-port and try again)", err)
	}

	if _, err := cfg.Installer.InstallRouter(); err != nil {
		ln.Close()
		return nil, fmt.Errorf("failed to install router: %w", err)
	}
	supervisor.MarkInstalled()

	fedVersion := config.ResolveFederationVersion(cfg.EnvFederationVersion, cfg.ConfigFederationVersion, logger)
	if _, err := cfg.Installer.InstallComposer(fedVersion); err != nil {
		ln.Close()
		return nil, fmt.Errorf("failed to install composer for federation version %s: %w", fedVersion, err)
	}

	s := &Session{
		rawSocketName: cfg.RawSocketName,
		listener:      ln,
		channel:       protocol.NewFollowerChannel(),
		registry:      registry.New(),
		driver: &compose.Driver{
			Composer:   cfg.Composer,
			Router:     routerAdapter{ctx: ctx, sup: supervisor},
			SchemaPath: cfg.SchemaPath,
		},
		supervisor: supervisor,
		fedVersion: fedVersion,
		version:    cfg.Version,
		logger:     logger,
		metrics:    cfg.Metrics,
	}

	go s.serve(ctx)
	return s, nil
}

// healthCheck performs the one-shot HealthCheck frame exchange Start uses to
// confirm a socket found by Elect's connect branch is actually a live
// leader, not a half-dead peer still holding the file open.
func healthCheck(conn net.Conn) error {
	if err := protocol.WriteFrame(conn, protocol.HealthCheck(false)); err != nil {
		return err
	}
	_, err := protocol.ReadLeaderReply(rendezvous.BufferedConn(conn))
	return err
}

// serve is the single accept worker named in spec §5: it owns the
// rendezvous listener exclusively and feeds every connection's message onto
// the zero-capacity channel, one request at a time, in the order accepted.
func (s *Session) serve(ctx context.Context) {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.Warn("rendezvous accept failed", "error", err)
			continue
		}
		s.serveConn(conn)
	}
}

func (s *Session) serveConn(conn net.Conn) {
	defer conn.Close()

	reader := bufio.NewReader(conn)
	msg, err := protocol.ReadFollowerMessage(reader)
	if err != nil {
		s.logger.Warn("failed to read follower message", "error", err)
		return
	}

	done := make(chan struct{})
	reply, ok := s.channel.Send(msg, done)
	close(done)
	if !ok {
		return
	}

	if err := protocol.WriteFrame(conn, reply); err != nil {
		s.logger.Warn("failed to write leader reply", "error", err)
	}
}

// Listen implements spec §4.F's `listen(ready_signal)`: emit ready exactly
// once, then dispatch FollowerMessages forever until ctx is cancelled.
func (s *Session) Listen(ctx context.Context, ready chan<- struct{}) error {
	if ready != nil {
		close(ready)
	}

	for {
		select {
		case <-ctx.Done():
			s.Shutdown()
			return ctx.Err()
		default:
		}

		msg, respond := s.channel.Recv()
		reply := s.dispatch(msg)
		respond(reply)

		if !msg.FromMainSession {
			s.logger.Info(reply.Print())
		}
		if msg.Kind == protocol.KindShutdown {
			s.Shutdown()
			return nil
		}
	}
}

func (s *Session) dispatch(msg protocol.FollowerMessage) protocol.LeaderReply {
	correlationID := uuid.NewString()
	logger := s.logger.With("correlation_id", correlationID, "kind", msg.Kind)

	switch msg.Kind {
	case protocol.KindAddSubgraph:
		return s.handleAdd(logger, *msg.Subgraph)
	case protocol.KindUpdateSubgraph:
		return s.handleUpdate(logger, *msg.Subgraph)
	case protocol.KindRemoveSubgraph:
		return s.handleRemove(logger, msg.SubgraphName)
	case protocol.KindGetSubgraphs:
		return protocol.LeaderSessionInfo(s.registry.List())
	case protocol.KindHealthCheck:
		return protocol.MessageReceived()
	case protocol.KindGetVersion:
		if msg.FollowerVersion != "" && msg.FollowerVersion != s.version {
			logger.Warn("follower/leader version mismatch", "follower_version", msg.FollowerVersion, "leader_version", s.version)
		}
		return protocol.GetVersionReply(msg.FollowerVersion, s.version)
	case protocol.KindShutdown:
		return protocol.MessageReceived()
	default:
		return protocol.ErrorNotificationString(fmt.Sprintf("unknown message kind %q", msg.Kind))
	}
}

// handleAdd implements spec §4.C add(). The first subgraph in an empty
// registry never yields a user-visible composition: a single subgraph can't
// produce a useful supergraph on its own, even if the local composer
// happily emits something for it.
func (s *Session) handleAdd(logger *slog.Logger, entry protocol.SubgraphEntry) protocol.LeaderReply {
	wasEmpty := s.registry.Len() == 0

	if err := s.registry.Add(entry); err != nil {
		return protocol.ErrorNotification(err)
	}
	s.recordRegistrySize()

	outcome, composeErr, routerErr := s.recompose(logger)
	if composeErr != nil {
		return protocol.ErrorNotification(composeErr)
	}
	if routerErr != nil {
		logger.Warn("router failed to start after composition", "error", routerErr)
	}
	if outcome == compose.OutcomeNewSchema && !wasEmpty {
		return protocol.CompositionSuccess(fmt.Sprintf("adding '%s'", entry.Key.Name))
	}
	return protocol.MessageReceived()
}

// handleUpdate implements spec §4.C update().
func (s *Session) handleUpdate(logger *slog.Logger, entry protocol.SubgraphEntry) protocol.LeaderReply {
	present, changed := s.registry.Update(entry)
	if !present {
		return s.handleAdd(logger, entry)
	}
	if !changed {
		return protocol.MessageReceived()
	}

	outcome, composeErr, routerErr := s.recompose(logger)
	if composeErr != nil {
		return protocol.ErrorNotification(composeErr)
	}
	if routerErr != nil {
		logger.Warn("router failed to start after composition", "error", routerErr)
	}
	if outcome == compose.OutcomeNewSchema {
		return protocol.CompositionSuccess(fmt.Sprintf("updating '%s'", entry.Key.Name))
	}
	return protocol.MessageReceived()
}

// handleRemove implements spec §4.C remove().
func (s *Session) handleRemove(logger *slog.Logger, name string) protocol.LeaderReply {
	key, found := s.registry.Remove(name)
	if !found {
		return protocol.MessageReceived()
	}
	s.recordRegistrySize()

	outcome, composeErr, routerErr := s.recompose(logger)
	if composeErr != nil {
		return protocol.ErrorNotification(composeErr)
	}
	if routerErr != nil {
		logger.Warn("router failed to start after composition", "error", routerErr)
	}
	if outcome == compose.OutcomeNewSchema {
		return protocol.CompositionSuccess(fmt.Sprintf("removing '%s'", key.Name))
	}
	return protocol.MessageReceived()
}

func (s *Session) recompose(logger *slog.Logger) (compose.Outcome, error, error) {
	outcome, composeErr, routerErr := s.driver.Recompose(s.fedVersion, s.registry.Entries())
	if s.metrics != nil {
		s.metrics.Compositions.WithLabelValues(outcomeLabel(outcome)).Inc()
		if outcome == compose.OutcomeNewSchema {
			s.metrics.RouterRestarts.Inc()
		}
	}
	if composeErr != nil {
		logger.Error("composition failed", "error", composeErr)
	}
	return outcome, composeErr, routerErr
}

func (s *Session) recordRegistrySize() {
	if s.metrics != nil {
		s.metrics.RegistrySize.Set(float64(s.registry.Len()))
	}
}

func outcomeLabel(o compose.Outcome) string {
	switch o {
	case compose.OutcomeError:
		return "error"
	case compose.OutcomeUnchanged:
		return "unchanged"
	case compose.OutcomeNewSchema:
		return "new_schema"
	default:
		return "unknown"
	}
}

// Shutdown implements spec §4.F's shutdown(): kill the router best-effort,
// remove the rendezvous endpoint best-effort, and close the listener. It is
// safe to call more than once.
func (s *Session) Shutdown() {
	if s.metrics != nil {
		s.metrics.RouterKills.Inc()
	}
	_ = s.supervisor.Kill()
	s.listener.Close()
	rendezvous.RemoveStale(s.rawSocketName)
}

// Channel exposes the session's in-process channel pair so a local
// follower messenger (spec §4.G) can push directly without a socket
// round-trip.
func (s *Session) Channel() protocol.FollowerChannel { return s.channel }

// Exit terminates the process with a non-zero status after tearing down,
// matching spec §4.F's "terminate the process with a non-zero status".
func Exit() {
	os.Exit(1)
}
