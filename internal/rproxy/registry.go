package rproxy

import "sync"

// Registry is the process-wide directory mapping worker rank to its
// WorkerEndpoint — the in-process stand-in for however a real multi-
// process deployment would resolve "worker N's network address" (the
// teacher's own cluster package keys nodes by a string address for the
// same purpose; here the transport layer is collectives.Bus, so ranks
// are addressed directly, with no separate discovery step needed).
type Registry struct {
	mu        sync.RWMutex
	endpoints map[int]*WorkerEndpoint
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{endpoints: make(map[int]*WorkerEndpoint)}
}

// Register associates rank with ep, replacing any prior registration.
func (r *Registry) Register(rank int, ep *WorkerEndpoint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.endpoints[rank] = ep
}

// Endpoint looks up the WorkerEndpoint registered for rank.
func (r *Registry) Endpoint(rank int) (*WorkerEndpoint, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ep, ok := r.endpoints[rank]
	return ep, ok
}
