package protocol

import (
	"bufio"
	"bytes"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	msg := AddSubgraph(SubgraphEntry{
		Key: SubgraphKey{Name: "users", RoutingURL: "http://u/"},
		SDL: "type Query { me: ID }",
	}, false)

	if err := WriteFrame(&buf, msg); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}

	got, err := ReadFollowerMessage(bufio.NewReader(&buf))
	if err != nil {
		t.Fatalf("ReadFollowerMessage: %v", err)
	}
	if diff := cmp.Diff(msg, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestReadFramePartialIsEOFError(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteFrame(&buf, MessageReceived()); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}

	truncated := bytes.NewReader(buf.Bytes()[:buf.Len()-2])
	var reply LeaderReply
	err := ReadFrame(bufio.NewReader(truncated), &reply)
	if !errors.Is(err, ErrEOF) {
		t.Fatalf("expected ErrEOF, got %v", err)
	}
}

func TestReadFollowerMessageUnknownKind(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteFrame(&buf, map[string]any{"kind": "DoSomethingWeird"}); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}

	_, err := ReadFollowerMessage(bufio.NewReader(&buf))
	if !errors.Is(err, ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
}

func TestFollowerChannelSendRecv(t *testing.T) {
	ch := NewFollowerChannel()
	done := make(chan struct{})

	go func() {
		msg, reply := ch.Recv()
		if msg.Kind != KindHealthCheck {
			t.Errorf("unexpected kind %v", msg.Kind)
		}
		reply(MessageReceived())
	}()

	got, ok := ch.Send(HealthCheck(false), done)
	if !ok {
		t.Fatal("Send returned ok=false")
	}
	if got.Kind != ReplyMessageReceived {
		t.Fatalf("unexpected reply kind %v", got.Kind)
	}
}
