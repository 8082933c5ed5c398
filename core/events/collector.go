package events

import (
	"sync"

	"fracswap/core/types"
)

// Payloader is implemented by events that can render the canonical
// map-attribute payload served over RPC.
type Payloader interface {
	Event() *types.Event
}

// Collector buffers emitted events in arrival order. The RPC layer drains it
// after each operation to return the events alongside the result.
type Collector struct {
	mu     sync.Mutex
	events []*types.Event
}

// NewCollector returns an empty collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Emit implements the Emitter interface.
func (c *Collector) Emit(evt Event) {
	if c == nil || evt == nil {
		return
	}
	payloader, ok := evt.(Payloader)
	if !ok {
		return
	}
	payload := payloader.Event()
	if payload == nil {
		return
	}
	c.mu.Lock()
	c.events = append(c.events, payload)
	c.mu.Unlock()
}

// Drain returns the buffered events and resets the collector.
func (c *Collector) Drain() []*types.Event {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	drained := c.events
	c.events = nil
	return drained
}
