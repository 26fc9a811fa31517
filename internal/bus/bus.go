// Package bus implements the invalidation bus described here: a
// publisher that fans a page-frame eviction out to every registered
// listener in deterministic, top-down (closer-to-CPU-first) order.
// Grounded on the reference implementation's
// protocols/invalidation_bus.py, reshaped here as a small Go interface with
// explicit listener height rather than relying on registration order.
package bus

import (
	"sort"

	"github.com/clevi2003/memory-hierarchy-simulator/internal/result"
)

// Listener receives page-frame eviction notifications.
type Listener interface {
	// Height is the number of hops from the CPU side of the hierarchy to
	// this listener; lower height means closer to the CPU (e.g. the DTLB
	// and DC are height 0, an L2 behind the DC is height 1).
	Height() int
	OnPageEvicted(evicted result.EvictedFrame)
}

// Bus fans out page-eviction notifications to its listeners in height
// order, lowest (closest to the CPU) first.
type Bus struct {
	listeners []Listener
}

// New builds a Bus over listeners, which may be registered in any order —
// delivery order is computed from each listener's reported Height.
func New(listeners ...Listener) *Bus {
	sorted := make([]Listener, len(listeners))
	copy(sorted, listeners)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Height() < sorted[j].Height()
	})
	return &Bus{listeners: sorted}
}

// PublishPageEvicted notifies every listener, in order, that evicted has
// been reclaimed. Each listener's handling (including any writebacks it
// triggers) completes before the next listener is notified.
func (b *Bus) PublishPageEvicted(evicted result.EvictedFrame) {
	for _, l := range b.listeners {
		l.OnPageEvicted(evicted)
	}
}
