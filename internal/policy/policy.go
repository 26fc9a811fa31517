// Package policy implements the write policies and the inclusion
// policy applied by a cache-level orchestrator. Grounded on the
// reference implementation's protocols/policies.py, which keeps these as
// small, stateless strategy objects consulted by the level that owns the
// actual cache storage.
package policy

import (
	"github.com/clevi2003/memory-hierarchy-simulator/internal/cache"
	"github.com/clevi2003/memory-hierarchy-simulator/internal/result"
)

// Write decides, given a probe outcome, how a write is applied to the cache
// and what the caller must still propagate downward.
type Write interface {
	// Apply performs the write-specific cache mutation (marking dirty,
	// allocating on miss, etc.) and reports what the caller must do next.
	Apply(c *cache.Cache, addr uint32, probe result.Access) result.Access
}

// WriteThroughNoAllocate is the write-through/no-write-allocate policy:
// hits update recency only; misses never allocate. Every write is forwarded
// to the lower level.
type WriteThroughNoAllocate struct{}

func (WriteThroughNoAllocate) Apply(c *cache.Cache, addr uint32, probe result.Access) result.Access {
	if probe.Hit {
		return result.Access{Hit: true, NeedsLowerWrite: true}
	}
	return result.Access{Hit: false, NeedsLowerWrite: true}
}

// WriteBackWriteAllocate is the write-back/write-allocate policy: hits mark
// the line dirty; misses allocate a dirty line (possibly evicting a dirty
// victim the caller must write back). No write is forwarded downward by
// this policy alone.
type WriteBackWriteAllocate struct{}

func (WriteBackWriteAllocate) Apply(c *cache.Cache, addr uint32, probe result.Access) result.Access {
	if probe.Hit {
		c.MarkDirtyIfPresent(addr)
		return result.Access{Hit: true}
	}
	bf := c.BackFill(addr, true)
	return result.Access{Hit: false, Victim: bf.Victim}
}

// For returns the configured write policy: write-through/no-write-allocate
// when writeThroughNoAllocate is true, write-back/write-allocate otherwise.
func For(writeThroughNoAllocate bool) Write {
	if writeThroughNoAllocate {
		return WriteThroughNoAllocate{}
	}
	return WriteBackWriteAllocate{}
}

// InclusionResult reports what the inclusion policy found in the upper
// cache for an evicted lower-level block.
type InclusionResult struct {
	WasPresent bool
	WasDirty bool
}

// ApplyInclusive implements inclusive invalidation: on a lower-level
// eviction of addr, if the upper cache holds the block it is invalidated
// here; the caller is responsible for writing the block back to the lower
// level when WasDirty is true.
func ApplyInclusive(upper *cache.Cache, addr uint32) InclusionResult {
	present, dirty := upper.Invalidate(addr)
	return InclusionResult{WasPresent: present, WasDirty: dirty}
}
