// Package pagetable implements the paged virtual-memory translator: a
// VPN→PPN map over a fixed pool of physical frames, replaced in LRU order
// once the pool is exhausted. Grounded on the reference implementation's
// page table and on the virtualization runtime's RISC-V MMU page-walk shape
// (internal/hv/riscv/rv64/mmu.go), generalized here from a hardware walk
// to a software free-list/LRU allocator.
package pagetable

import (
	"fmt"

	"github.com/clevi2003/memory-hierarchy-simulator/internal/lru"
	"github.com/clevi2003/memory-hierarchy-simulator/internal/result"
)

// Table is the resident VPN↔PPN mapping, its free-frame list, and the LRU
// order of its resident frames.
type Table struct {
	pageOffsetBits int

	vpnToPPN map[uint32]uint32
	ppnToVPN map[uint32]uint32
	free []uint32
	resident *lru.Set[uint32, struct{}] // keyed by PPN, LRU over resident frames

	hits, misses, diskReferences uint64
}

// New builds a Table with nPhysicalPages free frames, ready for translation.
func New(pageOffsetBits, nPhysicalPages int) *Table {
	free := make([]uint32, nPhysicalPages)
	for i := range free {
		free[i] = uint32(i)
	}
	return &Table{
		pageOffsetBits: pageOffsetBits,
		vpnToPPN: make(map[uint32]uint32),
		ppnToVPN: make(map[uint32]uint32),
		free: free,
		resident: lru.New[uint32, struct{}](),
	}
}

// Translate resolves vaddr to a physical address, allocating and possibly
// evicting a physical frame on a page-table miss.
func (t *Table) Translate(vaddr uint32) result.Translation {
	pageOffsetMask := (uint32(1) << uint(t.pageOffsetBits)) - 1
	vpn := vaddr >> uint(t.pageOffsetBits)
	offset := vaddr & pageOffsetMask

	if ppn, ok := t.vpnToPPN[vpn]; ok {
		t.hits++
		t.resident.Touch(ppn)
		return result.Translation{
			Hit: true, VPN: vpn, PPN: ppn,
			PAddr: (ppn << uint(t.pageOffsetBits)) | offset, PageOffset: offset,
		}
	}

	t.misses++
	t.diskReferences++

	var evicted *result.EvictedFrame
	var ppn uint32
	if len(t.free) > 0 {
		ppn = t.free[0]
		t.free = t.free[1:]
	} else {
		victimPPN, _, ok := t.resident.PopLRU()
		if !ok {
			panic("pagetable: no free frame and no resident frame to evict")
		}
		victimVPN, ok := t.ppnToVPN[victimPPN]
		if !ok {
			panic(fmt.Sprintf("pagetable: resident ppn %d has no reverse mapping", victimPPN))
		}
		delete(t.ppnToVPN, victimPPN)
		delete(t.vpnToPPN, victimVPN)
		evicted = &result.EvictedFrame{PPN: victimPPN, VPN: victimVPN}
		ppn = victimPPN
	}

	t.vpnToPPN[vpn] = ppn
	t.ppnToVPN[ppn] = vpn
	t.resident.Put(ppn, struct{}{})

	return result.Translation{
		Hit: false, VPN: vpn, PPN: ppn,
		PAddr: (ppn << uint(t.pageOffsetBits)) | offset, PageOffset: offset,
		Evicted: evicted,
	}
}

// Stats are the page table's translation counters.
type Stats struct {
	Hits, Misses, DiskReferences uint64
}

// HitRate returns Hits/(Hits+Misses), or 0 with no translations yet.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// GetStats returns the current counters.
func (t *Table) GetStats() Stats {
	return Stats{Hits: t.hits, Misses: t.misses, DiskReferences: t.diskReferences}
}
