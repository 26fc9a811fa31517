// Package cache implements the generic set-associative cache core shared by
// the data cache and the L2 cache: bit-field address decoding, per-set LRU
// order, probing, invalidation, and eviction/backfill. Grounded on the
// reference implementation's Cache class and on the design notes'
// recommendation of a hash-map-plus-intrusive-list LRU structure (see
// internal/lru).
package cache

import (
	"github.com/clevi2003/memory-hierarchy-simulator/internal/lru"
	"github.com/clevi2003/memory-hierarchy-simulator/internal/result"
)

// Geometry is the static bit-field layout of a cache keyed by tag/index on a
// block-aligned address.
type Geometry struct {
	IndexBits int
	OffsetBits int
	Sets int
}

func (g Geometry) offsetMask() uint32 {
	if g.OffsetBits == 0 {
		return 0
	}
	return (uint32(1) << uint(g.OffsetBits)) - 1
}

func (g Geometry) indexMask() uint32 {
	if g.IndexBits == 0 {
		return 0
	}
	return (uint32(1) << uint(g.IndexBits)) - 1
}

// line is one resident cache entry, keyed by tag within its set.
type line struct {
	blockBase uint32
	dirty bool
}

// Cache is a generic set-associative store with strict LRU replacement.
type Cache struct {
	geom Geometry
	associativity int
	sets []*lru.Set[uint32, *line]

	reads, writes uint64
	readHits, readMisses uint64
	writeHits, writeMisses uint64
	evictions, writeBacks uint64
}

// New builds an empty Cache with the given geometry and associativity.
func New(geom Geometry, associativity int) *Cache {
	sets := make([]*lru.Set[uint32, *line], geom.Sets)
	for i := range sets {
		sets[i] = lru.New[uint32, *line]()
	}
	return &Cache{geom: geom, associativity: associativity, sets: sets}
}

// ParseAddress splits addr into tag, index, and offset per this cache's
// geometry.
func (c *Cache) ParseAddress(addr uint32) (tag, index, offset uint32) {
	blockBase := addr &^ c.geom.offsetMask()
	offset = addr & c.geom.offsetMask()
	index = (blockBase >> uint(c.geom.OffsetBits)) & c.geom.indexMask()
	tag = blockBase >> uint(c.geom.IndexBits+c.geom.OffsetBits)
	return tag, index, offset
}

func blockBase(tag, index uint32, g Geometry) uint32 {
	return (tag<<uint(g.IndexBits) | index) << uint(g.OffsetBits)
}

// Contains reports whether addr is resident, without affecting recency.
func (c *Cache) Contains(addr uint32) bool {
	tag, index, _ := c.ParseAddress(addr)
	_, ok := c.sets[index].Get(tag)
	return ok
}

// IsDirty reports whether the resident entry for addr is dirty.
func (c *Cache) IsDirty(addr uint32) bool {
	tag, index, _ := c.ParseAddress(addr)
	l, ok := c.sets[index].Get(tag)
	return ok && l.dirty
}

// Probe performs a read or write lookup. On hit, recency is updated when
// updateMRU is true. On miss, NeedsLowerRead reports whether a read op
// requires consulting the lower level.
func (c *Cache) Probe(op result.Op, addr uint32, updateMRU bool) result.Access {
	if op == result.Read {
		c.reads++
	} else {
		c.writes++
	}

	tag, index, _ := c.ParseAddress(addr)
	_, hit := c.sets[index].Get(tag)
	if hit {
		if updateMRU {
			c.sets[index].Touch(tag)
		}
		if op == result.Read {
			c.readHits++
		} else {
			c.writeHits++
		}
		return result.Access{Hit: true}
	}

	if op == result.Read {
		c.readMisses++
		return result.Access{Hit: false, NeedsLowerRead: true}
	}
	c.writeMisses++
	return result.Access{Hit: false}
}

// Invalidate removes the entry matching addr, if any, reporting whether it
// was dirty and present.
func (c *Cache) Invalidate(addr uint32) (wasPresent, wasDirty bool) {
	tag, index, _ := c.ParseAddress(addr)
	l, ok := c.sets[index].Get(tag)
	if !ok {
		return false, false
	}
	wasDirty = l.dirty
	c.sets[index].Delete(tag)
	return true, wasDirty
}

// MarkDirtyIfPresent marks the resident entry for addr dirty and touches it
// MRU, used by the writeback protocol. Reports whether the entry was
// present.
func (c *Cache) MarkDirtyIfPresent(addr uint32) bool {
	tag, index, _ := c.ParseAddress(addr)
	l, ok := c.sets[index].Get(tag)
	if !ok {
		return false
	}
	l.dirty = true
	c.sets[index].Touch(tag)
	return true
}

// DirtyBlockAddrs returns the block addresses of every dirty entry whose
// block, reconstructed from tag/index, maps to physical page number ppn
// under the given page-offset/ppn bit split. Used by page-eviction
// invalidation.
func (c *Cache) DirtyBlockAddrs(ppn uint32, ppnShift uint) []uint32 {
	var addrs []uint32
	for index := 0; index < len(c.sets); index++ {
		for _, tag := range c.sets[index].Keys() {
			l, _ := c.sets[index].Get(tag)
			if l.dirty && l.blockBase>>ppnShift == ppn {
				addrs = append(addrs, l.blockBase)
			}
		}
	}
	return addrs
}

// InvalidateByFrame removes every entry whose block address maps to ppn
// under the given shift, regardless of dirty state. Callers must have
// already written back any dirty entries (see DirtyBlockAddrs) before
// calling this.
func (c *Cache) InvalidateByFrame(ppn uint32, ppnShift uint) {
	for index := 0; index < len(c.sets); index++ {
		for _, tag := range c.sets[index].Keys() {
			l, _ := c.sets[index].Get(tag)
			if l.blockBase>>ppnShift == ppn {
				c.sets[index].Delete(tag)
			}
		}
	}
}

// PossiblyEvict pops the LRU entry of addr's target set if it is full,
// returning the victim. Increments eviction/writeback counters.
func (c *Cache) PossiblyEvict(addr uint32) result.Victim {
	_, index, _ := c.ParseAddress(addr)
	set := c.sets[index]
	if set.Len() < c.associativity {
		return result.Victim{}
	}
	tag, l, ok := set.PopLRU()
	if !ok {
		return result.Victim{}
	}
	c.evictions++
	if l.dirty {
		c.writeBacks++
	}
	return result.Victim{Valid: true, Tag: tag, Index: index, BlockBase: l.blockBase, Dirty: l.dirty}
}

// BackFill evicts room if necessary and inserts a fresh MRU entry for addr.
// dirty marks the new entry dirty (used for write-allocate backfills).
func (c *Cache) BackFill(addr uint32, dirty bool) result.Access {
	victim := c.PossiblyEvict(addr)
	tag, index, _ := c.ParseAddress(addr)
	block := blockBase(tag, index, c.geom)
	c.sets[index].Put(tag, &line{blockBase: block, dirty: dirty})
	return result.Access{Hit: false, Victim: victim}
}

// Stats is the set of counters reportable for a cache level.
type Stats struct {
	Reads, Writes uint64
	ReadHits, ReadMisses uint64
	WriteHits, WriteMisses uint64
	Evictions, WriteBacks uint64
}

// Hits returns the total hit count (read + write).
func (s Stats) Hits() uint64 { return s.ReadHits + s.WriteHits }

// Misses returns the total miss count (read + write).
func (s Stats) Misses() uint64 { return s.ReadMisses + s.WriteMisses }

// HitRate returns Hits()/(Hits()+Misses()), or 0 when there have been no
// accesses.
func (s Stats) HitRate() float64 {
	total := s.Hits() + s.Misses()
	if total == 0 {
		return 0
	}
	return float64(s.Hits()) / float64(total)
}

// GetStats returns the current counters.
func (c *Cache) GetStats() Stats {
	return Stats{
		Reads: c.reads, Writes: c.writes,
		ReadHits: c.readHits, ReadMisses: c.readMisses,
		WriteHits: c.writeHits, WriteMisses: c.writeMisses,
		Evictions: c.evictions, WriteBacks: c.writeBacks,
	}
}
