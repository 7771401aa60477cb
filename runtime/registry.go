package runtime

import (
	"sync"

	"trip-hub/contract"
)

// Registry tracks the live connections of every group. Sinks are kept in
// join order; SinksFor returns a snapshot so delivery never holds the lock.
type Registry struct {
	mu     sync.RWMutex
	groups map[string][]contract.EventSink
}

func NewRegistry() *Registry {
	return &Registry{groups: make(map[string][]contract.EventSink)}
}

// Join registers a connection with a group. Joining twice appends twice;
// callers pair every Join with a Leave on disconnect.
func (r *Registry) Join(groupID string, sink contract.EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.groups[groupID] = append(r.groups[groupID], sink)
}

// Leave removes one occurrence of the connection from the group. Empty
// groups are dropped entirely to avoid leaking entries over time.
func (r *Registry) Leave(groupID string, sink contract.EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sinks, ok := r.groups[groupID]
	if !ok {
		return
	}
	for i, s := range sinks {
		if s == sink {
			r.groups[groupID] = append(sinks[:i], sinks[i+1:]...)
			break
		}
	}
	if len(r.groups[groupID]) == 0 {
		delete(r.groups, groupID)
	}
}

// SinksFor returns the current connections of a group, in join order.
func (r *Registry) SinksFor(groupID string) []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sinks, ok := r.groups[groupID]
	if !ok {
		return nil
	}
	out := make([]contract.EventSink, len(sinks))
	copy(out, sinks)
	return out
}
