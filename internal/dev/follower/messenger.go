// Package follower implements the follower messenger (spec §4.G): the two
// ways a watcher's events reach the leader's dispatch loop, selected once at
// construction and otherwise indistinguishable to a caller.
package follower

import (
	"bufio"
	"fmt"
	"log/slog"
	"sync"

	"github.com/n9te9/supergraph-dev/internal/dev/protocol"
	"github.com/n9te9/supergraph-dev/internal/dev/rendezvous"
)

// Messenger is what a watcher (spec §4.H) needs to report events to
// whichever leader owns the registry.
type Messenger interface {
	AddSubgraph(protocol.SubgraphEntry) (protocol.LeaderReply, error)
	UpdateSubgraph(protocol.SubgraphEntry) (protocol.LeaderReply, error)
	RemoveSubgraph(name string) (protocol.LeaderReply, error)
	GetSubgraphs() (protocol.LeaderReply, error)
}

// InProcess is the messenger a leader process uses for its own watchers: it
// pushes straight onto the leader's channel pair, skipping the socket
// entirely. A mutex serializes this messenger's callers (the leader's own
// watchers); requests from remote followers reach the same channel through
// the leader session's socket worker instead.
type InProcess struct {
	channel protocol.FollowerChannel
	mu      sync.Mutex
}

// NewInProcess wraps a leader session's channel pair for its own watchers.
func NewInProcess(channel protocol.FollowerChannel) *InProcess {
	return &InProcess{channel: channel}
}

func (m *InProcess) send(msg protocol.FollowerMessage) (protocol.LeaderReply, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	reply, ok := m.channel.Send(msg, nil)
	if !ok {
		return protocol.LeaderReply{}, fmt.Errorf("leader channel closed before a reply arrived")
	}
	return reply, nil
}

// AddSubgraph implements Messenger.
func (m *InProcess) AddSubgraph(entry protocol.SubgraphEntry) (protocol.LeaderReply, error) {
	return m.send(protocol.AddSubgraph(entry, true))
}

// UpdateSubgraph implements Messenger.
func (m *InProcess) UpdateSubgraph(entry protocol.SubgraphEntry) (protocol.LeaderReply, error) {
	return m.send(protocol.UpdateSubgraph(entry, true))
}

// RemoveSubgraph implements Messenger.
func (m *InProcess) RemoveSubgraph(name string) (protocol.LeaderReply, error) {
	return m.send(protocol.RemoveSubgraph(name, true))
}

// GetSubgraphs implements Messenger.
func (m *InProcess) GetSubgraphs() (protocol.LeaderReply, error) {
	return m.send(protocol.GetSubgraphs(true))
}

// Remote is the messenger a follower process uses: every exchange opens a
// fresh connection to the rendezvous socket, writes one frame, reads one
// reply, and closes. Connections are never reused (spec §4.G), so ordering
// is guaranteed only within a single call, never across calls.
type Remote struct {
	rawSocketName string
	version       string
	logger        *slog.Logger
}

// NewRemote creates a messenger that dials rawSocketName fresh for every
// call. version is this follower's own build version, sent with the
// version handshake performed by Handshake.
func NewRemote(rawSocketName, version string, logger *slog.Logger) *Remote {
	if logger == nil {
		logger = slog.Default()
	}
	return &Remote{rawSocketName: rawSocketName, version: version, logger: logger}
}

func (m *Remote) exchange(msg protocol.FollowerMessage) (protocol.LeaderReply, error) {
	conn, err := rendezvous.Connect(m.rawSocketName)
	if err != nil {
		return protocol.LeaderReply{}, fmt.Errorf("could not reach the leader at %q: %w", m.rawSocketName, err)
	}
	defer conn.Close()

	if err := protocol.WriteFrame(conn, msg); err != nil {
		return protocol.LeaderReply{}, err
	}
	return protocol.ReadLeaderReply(bufio.NewReader(conn))
}

// AddSubgraph implements Messenger.
func (m *Remote) AddSubgraph(entry protocol.SubgraphEntry) (protocol.LeaderReply, error) {
	return m.exchange(protocol.AddSubgraph(entry, false))
}

// UpdateSubgraph implements Messenger.
func (m *Remote) UpdateSubgraph(entry protocol.SubgraphEntry) (protocol.LeaderReply, error) {
	return m.exchange(protocol.UpdateSubgraph(entry, false))
}

// RemoveSubgraph implements Messenger.
func (m *Remote) RemoveSubgraph(name string) (protocol.LeaderReply, error) {
	return m.exchange(protocol.RemoveSubgraph(name, false))
}

// GetSubgraphs implements Messenger.
func (m *Remote) GetSubgraphs() (protocol.LeaderReply, error) {
	return m.exchange(protocol.GetSubgraphs(false))
}

// Handshake performs the GetVersion exchange spec §4.G calls for "on first
// contact": a version mismatch is logged as an advisory warning, never
// treated as fatal, since the wire protocol is considered compatible within
// a major release.
func (m *Remote) Handshake() error {
	reply, err := m.exchange(protocol.GetVersion(m.version, false))
	if err != nil {
		return fmt.Errorf("version handshake with the leader failed: %w", err)
	}
	if reply.LeaderVersion != "" && reply.LeaderVersion != m.version {
		m.logger.Warn("this follower's version does not match the leader's",
			"follower_version", m.version, "leader_version", reply.LeaderVersion)
	}
	return nil
}
