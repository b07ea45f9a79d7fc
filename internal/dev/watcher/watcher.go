// Package watcher implements the per-subgraph schema watcher state machine
// (spec §4.H): one of four sources (file, introspection endpoint, static
// SDL, registry fetch) producing Add/Update/Remove events for a single
// subgraph, with transport-error hysteresis for the endpoint-driven kinds.
package watcher

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/n9te9/supergraph-dev/internal/dev/fswatch"
	"github.com/n9te9/supergraph-dev/internal/dev/introspect"
	"github.com/n9te9/supergraph-dev/internal/dev/protocol"
)

// Messenger is the subset of the follower messenger (spec §4.G) a watcher
// needs to push events. Declared locally so this package never imports
// internal/dev/follower; follower.Messenger satisfies it structurally.
type Messenger interface {
	AddSubgraph(protocol.SubgraphEntry) (protocol.LeaderReply, error)
	UpdateSubgraph(protocol.SubgraphEntry) (protocol.LeaderReply, error)
	RemoveSubgraph(name string) (protocol.LeaderReply, error)
}

// Kind tags which of the four sources a Watcher is driving.
type Kind int

const (
	KindFile Kind = iota
	KindIntrospect
	KindOnce
	KindRegistry
)

// Watcher drives the state machine for a single subgraph.
type Watcher struct {
	kind Kind
	key  protocol.SubgraphKey

	path        string
	runner      *introspect.HTTPRunner
	pollSeconds uint64
	sdl         string // Once/Registry: the fixed SDL to emit

	messenger Messenger
	logger    *slog.Logger

	retryBudget    uint64
	retryRemaining uint64
	retryPeriod    time.Duration

	lastSDL *string

	// fetchFunc is the concrete source behind fetch, bound once at
	// construction time per kind. Tests construct a Watcher directly and
	// substitute this field to drive tick/Watch against a scripted
	// sequence without a real transport.
	fetchFunc func(context.Context) (string, error)
}

// Option configures optional fields on New*.
type Option func(*Watcher)

// WithRetryBudget sets the transport-error hysteresis budget (default 0:
// fail fast on the first error, spec §4.H).
func WithRetryBudget(budget uint64) Option {
	return func(w *Watcher) {
		w.retryBudget = budget
		w.retryRemaining = budget
	}
}

// WithRetryPeriod bounds a single fetch attempt's internal retry/backoff
// window (spec §5).
func WithRetryPeriod(d time.Duration) Option {
	return func(w *Watcher) { w.retryPeriod = d }
}

// WithLogger overrides the default logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

func newWatcher(kind Kind, key protocol.SubgraphKey, messenger Messenger, opts []Option) *Watcher {
	w := &Watcher{
		kind:      kind,
		key:       key,
		messenger: messenger,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// NewFromFile creates a watcher over a local SDL file (spec §4.H: File).
func NewFromFile(key protocol.SubgraphKey, path string, messenger Messenger, opts ...Option) *Watcher {
	w := newWatcher(KindFile, key, messenger, opts)
	w.path = path
	w.fetchFunc = func(context.Context) (string, error) { return readFile(w.path) }
	return w
}

// NewFromIntrospection creates a watcher that polls an endpoint (spec
// §4.H: Introspect).
func NewFromIntrospection(key protocol.SubgraphKey, runner *introspect.HTTPRunner, pollSeconds uint64, messenger Messenger, opts ...Option) *Watcher {
	w := newWatcher(KindIntrospect, key, messenger, opts)
	w.runner = runner
	w.pollSeconds = pollSeconds
	w.fetchFunc = w.fetchIntrospection
	return w
}

// NewOnce creates a watcher that emits a fixed SDL exactly once (spec
// §4.H: Once).
func NewOnce(key protocol.SubgraphKey, sdl string, messenger Messenger, opts ...Option) *Watcher {
	w := newWatcher(KindOnce, key, messenger, opts)
	w.sdl = sdl
	w.fetchFunc = func(context.Context) (string, error) { return w.sdl, nil }
	return w
}

// NewFromRegistry creates a watcher that performs one registry fetch and
// then behaves as Once (spec §4.H: Registry). The fetch itself happens
// before construction (see buildWatcher in cmd/supergraph/dev.go); this
// constructor just wraps the already-resolved SDL.
func NewFromRegistry(key protocol.SubgraphKey, sdl string, messenger Messenger, opts ...Option) *Watcher {
	w := newWatcher(KindRegistry, key, messenger, opts)
	w.sdl = sdl
	w.fetchFunc = func(context.Context) (string, error) { return w.sdl, nil }
	return w
}

// Name returns the subgraph name this watcher drives.
func (w *Watcher) Name() string { return w.key.Name }

// fetch retrieves the current SDL from this watcher's source, bounded by
// retryPeriod when the source is transport-backed. It never mutates
// hysteresis state; callers decide how to react to the result. The actual
// source is bound once at construction time via fetchFunc so tests can
// substitute a scripted sequence.
func (w *Watcher) fetch(ctx context.Context) (string, error) {
	return w.fetchFunc(ctx)
}

func (w *Watcher) fetchIntrospection(ctx context.Context) (string, error) {
	if w.retryPeriod <= 0 {
		return w.runner.Run(ctx)
	}

	op := func() (string, error) {
		sdl, err := w.runner.Run(ctx)
		if err != nil {
			return "", err
		}
		return sdl, nil
	}

	return backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(w.retryPeriod),
	)
}

// pushUpdate emits AddSubgraph (first push) or UpdateSubgraph (subsequent,
// only if the SDL actually changed) to the leader.
func (w *Watcher) pushUpdate(sdl string) error {
	entry := protocol.SubgraphEntry{Key: w.key, SDL: sdl}
	if w.lastSDL == nil {
		_, err := w.messenger.AddSubgraph(entry)
		return err
	}
	if *w.lastSDL == sdl {
		return nil
	}
	_, err := w.messenger.UpdateSubgraph(entry)
	return err
}

// tick performs one fetch-and-react cycle, implementing the hysteresis
// state machine from spec §4.H. removed reports whether the subgraph was
// detached (retry budget exhausted): callers should stop driving this
// watcher once removed is true.
func (w *Watcher) tick(ctx context.Context) (removed bool, err error) {
	sdl, fetchErr := w.fetch(ctx)
	if fetchErr == nil {
		if w.retryRemaining < w.retryBudget {
			w.logger.Info("subgraph connectivity restored", "subgraph", w.key.Name)
		}
		w.retryRemaining = w.retryBudget

		if pushErr := w.pushUpdate(sdl); pushErr != nil {
			return false, pushErr
		}
		w.lastSDL = &sdl
		return false, nil
	}

	if w.retryRemaining > 0 {
		w.retryRemaining--
		w.logger.Warn("error communicating with subgraph, schema changes will not be reflected",
			"subgraph", w.key.Name, "error", fetchErr, "retries_remaining", w.retryRemaining)
		return false, nil
	}

	w.logger.Warn("retries exhausted for subgraph, detaching it", "subgraph", w.key.Name)
	if _, err := w.messenger.RemoveSubgraph(w.key.Name); err != nil {
		return true, err
	}
	return true, nil
}

// Watch drives the state machine until ctx is cancelled, the source is
// exhausted (Once/Registry fire once and stop), or the retry budget is
// exhausted (a terminal RemoveSubgraph). It is intended to be run on its
// own goroutine (spec §5: watchers are independent and do not share
// state).
func (w *Watcher) Watch(ctx context.Context) error {
	switch w.kind {
	case KindOnce, KindRegistry:
		_, err := w.tick(ctx)
		return err

	case KindIntrospect:
		for {
			removed, err := w.tick(ctx)
			if err != nil || removed {
				return err
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(w.pollSeconds) * time.Second):
			}
		}

	case KindFile:
		if removed, err := w.tick(ctx); err != nil || removed {
			return err
		}

		fw, err := fswatch.WatchFile(w.path)
		if err != nil {
			return err
		}
		defer fw.Close()

		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case fsErr, ok := <-fw.Events():
				if !ok {
					return nil
				}
				if fsErr != nil {
					return fsErr
				}
				removed, err := w.tick(ctx)
				if err != nil || removed {
					return err
				}
			}
		}

	default:
		panic("watcher: unknown kind")
	}
}
