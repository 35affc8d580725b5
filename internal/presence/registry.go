// Package presence tracks which users currently have live connections.
package presence

import (
	"sort"
	"sync"
)

// Registry is an in-memory mapping from user id to the set of live
// connection ids. A user appears in the registry if and only if it has at
// least one connection; entries never hold an empty set. All operations are
// atomic with respect to each other and cannot fail.
type Registry struct {
	mu     sync.RWMutex
	online map[string]map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		online: make(map[string]map[string]struct{}),
	}
}

// Register adds a connection for the given user. Registering the same pair
// twice has no additional effect. It reports whether this was the user's
// first live connection (a "came online" transition).
func (r *Registry) Register(userID, connID string) (cameOnline bool) {
	if userID == "" || connID == "" {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.online[userID]
	if !ok {
		set = make(map[string]struct{})
		r.online[userID] = set
	}
	set[connID] = struct{}{}
	return !ok
}

// Unregister removes one connection for the given user. If it was the last,
// the user is removed entirely and wentOffline is true so the caller can
// trigger an offline notification.
func (r *Registry) Unregister(userID, connID string) (wentOffline bool) {
	if userID == "" {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.online[userID]
	if !ok {
		return false
	}
	delete(set, connID)
	if len(set) == 0 {
		delete(r.online, userID)
		return true
	}
	return false
}

// Connections returns the connection ids of a user, or nil if offline.
func (r *Registry) Connections(userID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set, ok := r.online[userID]
	if !ok {
		return nil
	}
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	return ids
}

// IsOnline reports whether the user has at least one live connection.
func (r *Registry) IsOnline(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.online[userID]
	return ok
}

// Online returns the ids of all online users, sorted for stable output.
func (r *Registry) Online() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.online))
	for id := range r.online {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Snapshot returns a copy of the whole registry, for the debug endpoint.
func (r *Registry) Snapshot() map[string][]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string][]string, len(r.online))
	for uid, set := range r.online {
		conns := make([]string, 0, len(set))
		for id := range set {
			conns = append(conns, id)
		}
		sort.Strings(conns)
		out[uid] = conns
	}
	return out
}
