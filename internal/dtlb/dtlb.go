// Package dtlb implements the translation cache wrapper described here:
// a generic-cache variant keyed on virtual page number rather than a
// block-aligned byte address, storing the resident physical page number and
// reconstructing the physical address on hit. Grounded on the page-table/TLB
// shape in the virtualization runtime's RISC-V MMU (internal/hv/riscv/rv64/mmu.go) and on
// the reference implementation's DTLB bit-slicing rules.
package dtlb

import (
	"github.com/clevi2003/memory-hierarchy-simulator/internal/lru"
)

// Geometry is the DTLB's static bit-field layout.
type Geometry struct {
	IndexBits int
	PageOffsetBits int
}

func (g Geometry) indexMask() uint32 {
	if g.IndexBits == 0 {
		return 0
	}
	return (uint32(1) << uint(g.IndexBits)) - 1
}

type entry struct {
	ppn uint32
}

// Cache is the DTLB: a set-associative map from VPN to PPN with LRU
// replacement per set.
type Cache struct {
	geom Geometry
	associativity int
	sets []*lru.Set[uint32, *entry]

	lookups, hits, misses uint64
}

// New builds an empty DTLB with numSets sets of the given associativity.
func New(geom Geometry, numSets, associativity int) *Cache {
	sets := make([]*lru.Set[uint32, *entry], numSets)
	for i := range sets {
		sets[i] = lru.New[uint32, *entry]()
	}
	return &Cache{geom: geom, associativity: associativity, sets: sets}
}

func (c *Cache) split(vaddr uint32) (vpn, tag, index, pageOffset uint32) {
	pageOffsetMask := (uint32(1) << uint(c.geom.PageOffsetBits)) - 1
	pageOffset = vaddr & pageOffsetMask
	vpn = vaddr >> uint(c.geom.PageOffsetBits)
	index = vpn & c.geom.indexMask()
	tag = vpn >> uint(c.geom.IndexBits)
	return vpn, tag, index, pageOffset
}

// Lookup result of a DTLB probe.
type Result struct {
	Hit bool
	Tag uint32
	Index uint32
	PageOffset uint32
	PAddr uint32
}

// Probe looks up vaddr, touching the entry MRU on hit.
func (c *Cache) Probe(vaddr uint32) Result {
	c.lookups++
	_, tag, index, pageOffset := c.split(vaddr)
	e, hit := c.sets[index].Get(tag)
	if !hit {
		c.misses++
		return Result{Hit: false, Tag: tag, Index: index, PageOffset: pageOffset}
	}
	c.hits++
	c.sets[index].Touch(tag)
	paddr := (e.ppn << uint(c.geom.PageOffsetBits)) | pageOffset
	return Result{Hit: true, Tag: tag, Index: index, PageOffset: pageOffset, PAddr: paddr}
}

// BackFill installs a translation for vaddr → paddr, evicting the LRU entry
// of the target set if full.
func (c *Cache) BackFill(vaddr, paddr uint32) {
	_, tag, index, _ := c.split(vaddr)
	set := c.sets[index]
	if set.Len() >= c.associativity {
		set.PopLRU()
	}
	ppn := paddr >> uint(c.geom.PageOffsetBits)
	set.Put(tag, &entry{ppn: ppn})
}

// InvalidateByFrame removes every entry whose stored PPN equals ppn,
// regardless of set.
func (c *Cache) InvalidateByFrame(ppn uint32) {
	for _, set := range c.sets {
		for _, tag := range set.Keys() {
			e, _ := set.Get(tag)
			if e.ppn == ppn {
				set.Delete(tag)
			}
		}
	}
}

// Stats are the DTLB's lookup counters.
type Stats struct {
	Lookups, Hits, Misses uint64
}

// HitRate returns Hits/Lookups, or 0 if there were no lookups.
func (s Stats) HitRate() float64 {
	if s.Lookups == 0 {
		return 0
	}
	return float64(s.Hits) / float64(s.Lookups)
}

// GetStats returns the current counters.
func (c *Cache) GetStats() Stats {
	return Stats{Lookups: c.lookups, Hits: c.hits, Misses: c.misses}
}
