// Package registry holds the leader's authoritative in-memory mapping of
// SubgraphKey to SDL. It is touched only from the leader's main loop
// (spec §3 invariant 5): there is deliberately no lock here.
package registry

import (
	"fmt"
	"sort"

	"github.com/n9te9/supergraph-dev/internal/dev/protocol"
)

// ErrSubgraphConflict is returned by Add when the exact key already exists.
type ErrSubgraphConflict struct {
	Key protocol.SubgraphKey
}

func (e *ErrSubgraphConflict) Error() string {
	return fmt.Sprintf("subgraph with name '%s' and url '%s' already exists", e.Key.Name, e.Key.RoutingURL)
}

// Registry is the leader's subgraph table.
type Registry struct {
	entries map[protocol.SubgraphKey]string
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{entries: make(map[protocol.SubgraphKey]string)}
}

// Len reports the number of registered subgraphs.
func (r *Registry) Len() int {
	return len(r.entries)
}

// Get returns the current SDL for key, if present.
func (r *Registry) Get(key protocol.SubgraphKey) (string, bool) {
	sdl, ok := r.entries[key]
	return sdl, ok
}

// Add inserts a new subgraph entry. It returns ErrSubgraphConflict if the
// exact key is already present. A key with the same Name as an existing
// entry but a different RoutingURL is a distinct key: Add inserts it as a
// second entry and does not report a conflict.
func (r *Registry) Add(entry protocol.SubgraphEntry) error {
	if _, exists := r.entries[entry.Key]; exists {
		return &ErrSubgraphConflict{Key: entry.Key}
	}
	r.entries[entry.Key] = entry.SDL
	return nil
}

// Update replaces the SDL for an existing key. changed reports whether the
// stored SDL actually differed (byte-for-byte) from the new one; if the key
// was absent entirely, Update returns (false, false) and the caller
// is expected to fall back to Add (spec §4.C).
func (r *Registry) Update(entry protocol.SubgraphEntry) (present, changed bool) {
	prev, ok := r.entries[entry.Key]
	if !ok {
		return false, false
	}
	if prev == entry.SDL {
		return true, false
	}
	r.entries[entry.Key] = entry.SDL
	return true, true
}

// Remove deletes the first key matching name (URL ignored, per spec §9's
// "registry-by-name for removal"). It reports the key removed, if any.
func (r *Registry) Remove(name string) (protocol.SubgraphKey, bool) {
	keys := r.sortedKeys()
	for _, k := range keys {
		if k.Name == name {
			delete(r.entries, k)
			return k, true
		}
	}
	return protocol.SubgraphKey{}, false
}

// List returns a deterministically ordered snapshot of the current keys,
// sorted by Name then RoutingURL, so composer inputs are stable across calls.
func (r *Registry) List() protocol.SubgraphKeys {
	return r.sortedKeys()
}

// Entries returns a deterministically ordered snapshot of (key, sdl) pairs,
// the shape the composition driver feeds to the composer.
func (r *Registry) Entries() []protocol.SubgraphEntry {
	keys := r.sortedKeys()
	out := make([]protocol.SubgraphEntry, 0, len(keys))
	for _, k := range keys {
		out = append(out, protocol.SubgraphEntry{Key: k, SDL: r.entries[k]})
	}
	return out
}

func (r *Registry) sortedKeys() protocol.SubgraphKeys {
	keys := make(protocol.SubgraphKeys, 0, len(r.entries))
	for k := range r.entries {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Name != keys[j].Name {
			return keys[i].Name < keys[j].Name
		}
		return keys[i].RoutingURL < keys[j].RoutingURL
	})
	return keys
}
