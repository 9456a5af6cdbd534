package rproxy

import (
	"fmt"
	"sync"

	"github.com/dreamware/toroidal-sim/internal/geom"
)

// FieldEndpoint is the per-field dispatch target a WorkerEndpoint serves
// requests through. halofield.Field satisfies this directly with its own
// GetCell(p) method: verify p is within origPart, return the serialized
// cell, or a faults.OutOfLocal naming the true owner.
type FieldEndpoint interface {
	GetCell(p geom.Point) ([]byte, error)
}

// WorkerEndpoint is one worker's remote-read service (spec.md §4.6: "each
// worker exposes one service endpoint"): fields register themselves by
// the same small integer field_index they were constructed with, and a
// request names which field to dispatch to.
type WorkerEndpoint struct {
	mu     sync.RWMutex
	fields map[int]FieldEndpoint
}

// NewWorkerEndpoint returns an endpoint with no fields registered yet.
func NewWorkerEndpoint() *WorkerEndpoint {
	return &WorkerEndpoint{fields: make(map[int]FieldEndpoint)}
}

// Register wires f as the dispatch target for fieldIndex. Called once per
// field at worker startup, after the field itself is constructed.
func (w *WorkerEndpoint) Register(fieldIndex int, f FieldEndpoint) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.fields[fieldIndex] = f
}

// GetCell dispatches a request to the registered field at fieldIndex.
func (w *WorkerEndpoint) GetCell(fieldIndex int, p geom.Point) ([]byte, error) {
	w.mu.RLock()
	f, ok := w.fields[fieldIndex]
	w.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("rproxy: no field registered at index %d", fieldIndex)
	}
	return f.GetCell(p)
}
