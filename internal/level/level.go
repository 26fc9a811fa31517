// Package level implements the memory-level orchestrators:
// the main-memory sink, the cache-level adapter shared by DC and L2, and
// the page-table-level adapter that drives translation, DTLB maintenance,
// and invalidation-bus publication ahead of descent. Grounded on the
// reference implementation's mem_levels/levels.py, adapted to Go's explicit
// error-free result-passing style and to this spec's writeback-pass
// protocol.
package level

import (
	"github.com/clevi2003/memory-hierarchy-simulator/internal/access"
	"github.com/clevi2003/memory-hierarchy-simulator/internal/bus"
	"github.com/clevi2003/memory-hierarchy-simulator/internal/cache"
	"github.com/clevi2003/memory-hierarchy-simulator/internal/dtlb"
	"github.com/clevi2003/memory-hierarchy-simulator/internal/pagetable"
	"github.com/clevi2003/memory-hierarchy-simulator/internal/policy"
	"github.com/clevi2003/memory-hierarchy-simulator/internal/result"
)

// Level is one stage of the memory hierarchy. isWriteback distinguishes a
// writeback pass from a normal CPU-driven access.
type Level interface {
	Access(op result.Op, addr uint32, line *access.Line, isWriteback bool) result.Access
}

// MainMemory is the terminal sink: every access hits, bounded only by its
// own read/write counters.
type MainMemory struct {
	reads, writes uint64
}

// NewMainMemory builds an empty MainMemory level.
func NewMainMemory() *MainMemory {
	return &MainMemory{}
}

func (m *MainMemory) Access(op result.Op, addr uint32, line *access.Line, isWriteback bool) result.Access {
	if op == result.Read {
		m.reads++
	} else {
		m.writes++
	}
	return result.Access{Hit: true}
}

// MainMemoryStats are main memory's reference counters.
type MainMemoryStats struct {
	Reads, Writes uint64
}

// GetStats returns the current counters.
func (m *MainMemory) GetStats() MainMemoryStats {
	return MainMemoryStats{Reads: m.reads, Writes: m.writes}
}

// CacheLevel adapts a generic cache core into a hierarchy level following
// the protocol here, with inclusive invalidation against its
// lower level and invalidation-bus-driven invalidation against page
// evictions.
type CacheLevel struct {
	name string // "DC" or "L2", selects which access.Line fields to set
	cache *cache.Cache
	write policy.Write
	lower Level
	height int

	// pageOffsetBits lets this level map a resident block's physical
	// address to the page frame number it belongs to, for 
	pageOffsetBits int
}

// NewCacheLevel builds a CacheLevel. height is this level's distance from
// the CPU (0 = DC with no level above it) for invalidation-bus ordering.
func NewCacheLevel(name string, c *cache.Cache, write policy.Write, lower Level, height, pageOffsetBits int) *CacheLevel {
	return &CacheLevel{name: name, cache: c, write: write, lower: lower, height: height, pageOffsetBits: pageOffsetBits}
}

func (l *CacheLevel) updateLine(line *access.Line, addr uint32, hit bool) {
	tag, index, _ := l.cache.ParseAddress(addr)
	if l.name == "DC" {
		line.SetDC(tag, index, hit)
	} else {
		line.SetL2(tag, index, hit)
	}
}

func (l *CacheLevel) readAccess(addr uint32, line *access.Line) result.Access {
	first := l.cache.Probe(result.Read, addr, true)
	l.updateLine(line, addr, first.Hit)
	if first.Hit {
		return first
	}

	if l.lower != nil {
		lowerResult := l.lower.Access(result.Read, addr, line, false)
		if lowerResult.Victim.Valid {
			l.applyInclusionAndWriteback(lowerResult.Victim.BlockBase)
		}
	}

	backfilled := l.cache.BackFill(addr, false)
	if backfilled.Victim.Valid && backfilled.Victim.Dirty && l.lower != nil {
		l.lower.Access(result.Write, backfilled.Victim.BlockBase, line, true)
	}
	return result.Access{Hit: false, Victim: backfilled.Victim}
}

// writeAccess implements this layer's two write protocols. They pre-probe
// differently (write-back/write-allocate defers the MRU touch to the
// policy's own hit handling, write-through/no-allocate touches MRU on the
// initial probe since the policy never mutates the cache itself) so they
// are kept as distinct sequences rather than forced into one shared probe.
func (l *CacheLevel) writeAccess(addr uint32, line *access.Line) result.Access {
	if l.isWriteBackAllocate() {
		preProbe := l.cache.Probe(result.Write, addr, false)
		if !preProbe.Hit && l.lower != nil {
			lowerResult := l.lower.Access(result.Read, addr, line, false)
			if lowerResult.Victim.Valid {
				l.applyInclusionAndWriteback(lowerResult.Victim.BlockBase)
			}
		}
		applied := l.write.Apply(l.cache, addr, preProbe)
		l.updateLine(line, addr, applied.Hit)
		if applied.Victim.Valid && applied.Victim.Dirty && l.lower != nil {
			l.lower.Access(result.Write, applied.Victim.BlockBase, line, true)
		}
		return applied
	}

	probe := l.cache.Probe(result.Write, addr, true)
	applied := l.write.Apply(l.cache, addr, probe)
	l.updateLine(line, addr, applied.Hit)
	if applied.NeedsLowerWrite && l.lower != nil {
		l.lower.Access(result.Write, addr, line, false)
	}
	return applied
}

func (l *CacheLevel) isWriteBackAllocate() bool {
	_, ok := l.write.(policy.WriteBackWriteAllocate)
	return ok
}

// applyInclusionAndWriteback enforces inclusive coherence for a block
// evicted by the level below: if this (upper) cache holds it, the line is
// invalidated and, if it was dirty, its block is then written to the lower
// level.
func (l *CacheLevel) applyInclusionAndWriteback(victimAddr uint32) {
	inc := policy.ApplyInclusive(l.cache, victimAddr)
	if inc.WasPresent && inc.WasDirty && l.lower != nil {
		l.lower.Access(result.Write, victimAddr, nil, true)
	}
}

// Access dispatches to the read or write protocol, or to the writeback-pass
// protocol described here when isWriteback is set.
func (l *CacheLevel) Access(op result.Op, addr uint32, line *access.Line, isWriteback bool) result.Access {
	if isWriteback {
		return l.writebackAccess(addr, line)
	}
	if op == result.Read {
		return l.readAccess(addr, line)
	}
	return l.writeAccess(addr, line)
}

// writebackAccess implements this layer's writeback-pass protocol: mark the
// resident line dirty in place if present, otherwise forward the write to
// the next lower level without allocating here.
func (l *CacheLevel) writebackAccess(addr uint32, line *access.Line) result.Access {
	if l.cache.MarkDirtyIfPresent(addr) {
		if line != nil {
			l.updateLine(line, addr, true)
		}
		return result.Access{Hit: true}
	}
	if l.lower != nil {
		l.lower.Access(result.Write, addr, line, true)
	}
	if line != nil {
		l.updateLine(line, addr, false)
	}
	return result.Access{Hit: false}
}

// Height reports this level's distance from the CPU, for bus ordering.
func (l *CacheLevel) Height() int { return l.height }

// OnPageEvicted implements bus.Listener: writes back any dirty lines
// mapping to the evicted frame, then invalidates all lines mapping to it.
func (l *CacheLevel) OnPageEvicted(evicted result.EvictedFrame) {
	shift := uint(l.pageOffsetBits)
	for _, addr := range l.cache.DirtyBlockAddrs(evicted.PPN, shift) {
		if l.lower != nil {
			l.lower.Access(result.Write, addr, nil, true)
		}
	}
	l.cache.InvalidateByFrame(evicted.PPN, shift)
}

// GetStats returns this level's cache statistics.
func (l *CacheLevel) GetStats() cache.Stats {
	return l.cache.GetStats()
}

// dtlbListener adapts a *dtlb.Cache into a bus.Listener: DTLB entries are
// invalidated by frame but DTLB itself never triggers writebacks (it holds
// no dirty data).
type dtlbListener struct {
	d *dtlb.Cache
	height int
}

func (d *dtlbListener) Height() int { return d.height }

func (d *dtlbListener) OnPageEvicted(evicted result.EvictedFrame) {
	d.d.InvalidateByFrame(evicted.PPN)
}

// NewDTLBListener wraps d as a bus.Listener at the given CPU-distance
// height.
func NewDTLBListener(d *dtlb.Cache, height int) bus.Listener {
	return &dtlbListener{d: d, height: height}
}

// PageTableLevel implements : translates addresses (optionally via a
// DTLB), publishes evicted frames on the bus ahead of descent, and forwards
// the physical address to the lower level.
type PageTableLevel struct {
	pt *pagetable.Table
	dtlb *dtlb.Cache // nil when the DTLB is disabled
	bus *bus.Bus
	lower Level
}

// NewPageTableLevel builds a PageTableLevel. d may be nil if the DTLB is
// disabled.
func NewPageTableLevel(pt *pagetable.Table, d *dtlb.Cache, b *bus.Bus, lower Level) *PageTableLevel {
	return &PageTableLevel{pt: pt, dtlb: d, bus: b, lower: lower}
}

func (p *PageTableLevel) Access(op result.Op, vaddr uint32, line *access.Line, isWriteback bool) result.Access {
	var paddr uint32
	var evicted *result.EvictedFrame

	if p.dtlb != nil {
		dres := p.dtlb.Probe(vaddr)
		tr := p.pt.Translate(vaddr)
		line.SetTranslation(tr.VPN, tr.PageOffset, tr.PPN, tr.Hit)
		line.SetDTLB(dres.Tag, dres.Index, dres.Hit)
		if !dres.Hit {
			p.dtlb.BackFill(vaddr, tr.PAddr)
		}
		paddr = tr.PAddr
		evicted = tr.Evicted
	} else {
		tr := p.pt.Translate(vaddr)
		line.SetTranslation(tr.VPN, tr.PageOffset, tr.PPN, tr.Hit)
		paddr = tr.PAddr
		evicted = tr.Evicted
	}

	if evicted != nil {
		p.bus.PublishPageEvicted(*evicted)
	}

	return p.lower.Access(op, paddr, line, isWriteback)
}

// GetStats returns the page table's translation statistics.
func (p *PageTableLevel) GetStats() pagetable.Stats {
	return p.pt.GetStats()
}
