// Package registry holds the process-wide latest-value store: the most
// recent TagValue per (server, tag) key, overwritten on every new sample.
package registry

import (
	"sync"

	"github.com/savushkin-dev/scada-gateway/internal/domain"
)

// Key identifies one tag of one server.
type Key struct {
	ServerID string
	TagID    string
}

// Registry maps keys to the most recent TagValue. Written only by the
// polling loops, readable by any collaborator. Entries are stored as
// pointers to immutable records, so a reader always observes either the
// old or the new snapshot, never a torn one.
type Registry struct {
	mu     sync.RWMutex
	latest map[Key]*domain.TagValue
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		latest: make(map[Key]*domain.TagValue),
	}
}

// Set records tv as the latest value for its (server, tag) key, replacing
// any previous entry. The previous record is not mutated, only unreferenced.
func (r *Registry) Set(tv *domain.TagValue) {
	if tv == nil {
		return
	}
	key := Key{ServerID: tv.ServerID, TagID: tv.TagID}

	r.mu.Lock()
	r.latest[key] = tv
	r.mu.Unlock()
}

// Latest returns the most recent value for the tag, or ErrValueNotFound if
// no read has succeeded yet.
func (r *Registry) Latest(serverID, tagID string) (*domain.TagValue, error) {
	r.mu.RLock()
	tv, ok := r.latest[Key{ServerID: serverID, TagID: tagID}]
	r.mu.RUnlock()

	if !ok {
		return nil, domain.ErrValueNotFound
	}
	return tv, nil
}

// ServerValues returns all current values for one server.
func (r *Registry) ServerValues(serverID string) []*domain.TagValue {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.TagValue, 0, len(r.latest))
	for key, tv := range r.latest {
		if key.ServerID == serverID {
			out = append(out, tv)
		}
	}
	return out
}

// All returns every current value.
func (r *Registry) All() []*domain.TagValue {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.TagValue, 0, len(r.latest))
	for _, tv := range r.latest {
		out = append(out, tv)
	}
	return out
}

// Len returns the number of tags with a recorded value.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.latest)
}
