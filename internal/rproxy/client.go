package rproxy

import (
	"context"
	"fmt"

	"github.com/dreamware/toroidal-sim/internal/geom"
)

// Client implements halofield.RemoteReader against a Registry: a
// blocking call straight to the owning worker's endpoint. There is no
// retry here — spec.md §4.6 describes this explicitly as a correctness
// fallback, not a performance path, and the core layer does no retries
// (spec.md §7).
type Client struct {
	registry *Registry
}

// NewClient returns a Client resolving owners against registry.
func NewClient(registry *Registry) *Client {
	return &Client{registry: registry}
}

// GetCell implements halofield.RemoteReader: dispatches to owner's
// registered endpoint for fieldIndex, returning early if ctx is canceled
// before the (in-process, effectively instantaneous) call completes.
func (c *Client) GetCell(ctx context.Context, fieldIndex int, owner int, p geom.Point) ([]byte, error) {
	ep, ok := c.registry.Endpoint(owner)
	if !ok {
		return nil, fmt.Errorf("rproxy: no endpoint registered for worker %d", owner)
	}

	type result struct {
		data []byte
		err  error
	}
	done := make(chan result, 1)
	go func() {
		data, err := ep.GetCell(fieldIndex, p)
		done <- result{data, err}
	}()

	select {
	case res := <-done:
		return res.data, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
