package follower

import (
	"bufio"
	"testing"

	"github.com/google/uuid"

	"github.com/n9te9/supergraph-dev/internal/dev/protocol"
	"github.com/n9te9/supergraph-dev/internal/dev/rendezvous"
)

// runFakeLeader drains one request from channel and replies with reply,
// standing in for the leader's dispatch loop in these messenger-only tests.
func runFakeLeader(t *testing.T, channel protocol.FollowerChannel, reply protocol.LeaderReply) {
	t.Helper()
	go func() {
		_, respond := channel.Recv()
		respond(reply)
	}()
}

func TestInProcessRoundTrip(t *testing.T) {
	channel := protocol.NewFollowerChannel()
	runFakeLeader(t, channel, protocol.CompositionSuccess("adding 'x'"))

	m := NewInProcess(channel)
	reply, err := m.AddSubgraph(protocol.SubgraphEntry{
		Key: protocol.SubgraphKey{Name: "x", RoutingURL: "http://x/"},
		SDL: "type Query { x: ID }",
	})
	if err != nil {
		t.Fatalf("AddSubgraph: %v", err)
	}
	if reply.Kind != protocol.ReplyCompositionSuccess {
		t.Fatalf("unexpected reply: %+v", reply)
	}
}

// fakeLeaderSocket serves one rendezvous connection, reads one frame, and
// replies with a scripted LeaderReply, standing in for a leader session's
// serving worker. It returns the raw socket name Remote should dial.
func fakeLeaderSocket(t *testing.T, reply protocol.LeaderReply) string {
	t.Helper()
	rawName := "supergraph-dev-test-" + uuid.NewString()

	ln, err := rendezvous.Listen(rawName)
	if err != nil {
		t.Fatalf("rendezvous.Listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		if _, err := protocol.ReadFollowerMessage(bufio.NewReader(conn)); err != nil {
			return
		}
		_ = protocol.WriteFrame(conn, reply)
	}()

	return rawName
}

func TestRemoteRoundTrip(t *testing.T) {
	rawName := fakeLeaderSocket(t, protocol.MessageReceived())

	m := NewRemote(rawName, "1.0.0", nil)
	reply, err := m.GetSubgraphs()
	if err != nil {
		t.Fatalf("GetSubgraphs: %v", err)
	}
	if reply.Kind != protocol.ReplyMessageReceived {
		t.Fatalf("unexpected reply: %+v", reply)
	}
}

func TestHandshakeWarnsOnVersionMismatchButDoesNotFail(t *testing.T) {
	rawName := fakeLeaderSocket(t, protocol.GetVersionReply("0.9.0", "1.0.0"))
	m := NewRemote(rawName, "0.9.0", nil)

	if err := m.Handshake(); err != nil {
		t.Fatalf("Handshake should only warn on a version mismatch, got error: %v", err)
	}
}

func TestRemoteConnectFailureIsReported(t *testing.T) {
	m := NewRemote("supergraph-dev-test-no-such-leader-"+uuid.NewString(), "1.0.0", nil)
	if _, err := m.GetSubgraphs(); err == nil {
		t.Fatal("expected an error when no leader is listening")
	}
}
