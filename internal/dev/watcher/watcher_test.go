package watcher

import (
	"context"
	"errors"
	"testing"

	"github.com/n9te9/supergraph-dev/internal/dev/protocol"
)

type recordingMessenger struct {
	added   []protocol.SubgraphEntry
	updated []protocol.SubgraphEntry
	removed []string
}

func (m *recordingMessenger) AddSubgraph(e protocol.SubgraphEntry) (protocol.LeaderReply, error) {
	m.added = append(m.added, e)
	return protocol.MessageReceived(), nil
}

func (m *recordingMessenger) UpdateSubgraph(e protocol.SubgraphEntry) (protocol.LeaderReply, error) {
	m.updated = append(m.updated, e)
	return protocol.MessageReceived(), nil
}

func (m *recordingMessenger) RemoveSubgraph(name string) (protocol.LeaderReply, error) {
	m.removed = append(m.removed, name)
	return protocol.MessageReceived(), nil
}

// scripted builds a Watcher whose fetchFunc walks a fixed sequence of
// results, so tests can drive the real tick state machine without a
// transport.
type result struct {
	sdl string
	err error
}

func newScripted(key protocol.SubgraphKey, messenger Messenger, budget uint64, results []result) *Watcher {
	w := newWatcher(KindOnce, key, messenger, []Option{WithRetryBudget(budget)})
	i := 0
	w.fetchFunc = func(context.Context) (string, error) {
		r := results[i]
		i++
		return r.sdl, r.err
	}
	return w
}

func TestRetryHysteresisRemovesAfterBudgetExhausted(t *testing.T) {
	key := protocol.SubgraphKey{Name: "flaky", RoutingURL: "http://flaky/"}
	messenger := &recordingMessenger{}

	boom := errors.New("connection refused")
	scripted := []result{
		{sdl: "type Query { a: ID }"},
		{err: boom},
		{err: boom},
		{err: boom},
	}

	w := newScripted(key, messenger, 2, scripted)

	// first tick: success, establishes baseline
	removed, err := w.tick(context.Background())
	if err != nil || removed {
		t.Fatalf("unexpected first tick result: removed=%v err=%v", removed, err)
	}
	if len(messenger.added) != 1 {
		t.Fatalf("expected 1 add, got %d", len(messenger.added))
	}

	// two failures consume the budget without removing
	for i := 0; i < 2; i++ {
		removed, err := w.tick(context.Background())
		if err != nil || removed {
			t.Fatalf("tick %d: expected no removal yet, got removed=%v err=%v", i, removed, err)
		}
	}
	if len(messenger.removed) != 0 {
		t.Fatal("should not have removed the subgraph yet")
	}

	// third failure exhausts the budget and removes
	removed, err = w.tick(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !removed {
		t.Fatal("expected removal after budget exhausted")
	}
	if len(messenger.removed) != 1 || messenger.removed[0] != "flaky" {
		t.Fatalf("expected flaky to be removed, got %v", messenger.removed)
	}
}

func TestOnceEmitsAddExactlyOnce(t *testing.T) {
	key := protocol.SubgraphKey{Name: "once", RoutingURL: "http://once/"}
	messenger := &recordingMessenger{}
	w := NewOnce(key, "type Query { x: ID }", messenger)

	if err := w.Watch(context.Background()); err != nil {
		t.Fatalf("Watch: %v", err)
	}
	if len(messenger.added) != 1 {
		t.Fatalf("expected exactly 1 add, got %d", len(messenger.added))
	}
	if len(messenger.updated) != 0 {
		t.Fatalf("expected no updates, got %d", len(messenger.updated))
	}
}
