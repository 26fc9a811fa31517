// Package simulator wires the configured levels into a hierarchy and drives
// a trace through it, producing the per-access log and aggregate
// statistics. Grounded on the reference implementation's
// MemoryHierarchySimulator, which performs the same bottom-up construction
// (main memory, then optional L2, then DC, then optional page
// table/DTLB).
package simulator

import (
	"bufio"
	"fmt"
	"io"

	"github.com/clevi2003/memory-hierarchy-simulator/internal/access"
	"github.com/clevi2003/memory-hierarchy-simulator/internal/bus"
	"github.com/clevi2003/memory-hierarchy-simulator/internal/cache"
	"github.com/clevi2003/memory-hierarchy-simulator/internal/config"
	"github.com/clevi2003/memory-hierarchy-simulator/internal/dtlb"
	"github.com/clevi2003/memory-hierarchy-simulator/internal/level"
	"github.com/clevi2003/memory-hierarchy-simulator/internal/pagetable"
	"github.com/clevi2003/memory-hierarchy-simulator/internal/policy"
	"github.com/clevi2003/memory-hierarchy-simulator/internal/result"
	"github.com/clevi2003/memory-hierarchy-simulator/internal/trace"
)

// Simulator owns the constructed level chain and the running access
// counters (distinct from any single level's own counters).
type Simulator struct {
	cfg *config.Config

	mem *level.MainMemory
	l2 *level.CacheLevel // nil if disabled
	dc *level.CacheLevel
	pt *level.PageTableLevel // nil if physical addressing
	dt *dtlb.Cache // nil if disabled

	top level.Level

	reads, writes uint64
}

// New constructs the full level chain from cfg.
func New(cfg *config.Config) *Simulator {
	s := &Simulator{cfg: cfg}

	s.mem = level.NewMainMemory()
	var lower level.Level = s.mem
	var top level.Level = s.mem

	listeners := make([]bus.Listener, 0, 3)

	if cfg.L2Enabled {
		l2Cache := cache.New(cache.Geometry{
			IndexBits: cfg.Bits.L2IndexBits, OffsetBits: cfg.Bits.L2OffsetBits, Sets: cfg.L2.NumSets,
		}, cfg.L2.Associativity)
		l2Level := level.NewCacheLevel("L2", l2Cache, policy.For(cfg.L2.WriteThroughNoAllocate), lower, 1, cfg.Bits.PageOffsetBits)
		s.l2 = l2Level
		listeners = append(listeners, l2Level)
		lower = l2Level
		top = l2Level
	}

	dcCache := cache.New(cache.Geometry{
		IndexBits: cfg.Bits.DCIndexBits, OffsetBits: cfg.Bits.DCOffsetBits, Sets: cfg.DC.NumSets,
	}, cfg.DC.Associativity)
	dcLevel := level.NewCacheLevel("DC", dcCache, policy.For(cfg.DC.WriteThroughNoAllocate), lower, 0, cfg.Bits.PageOffsetBits)
	s.dc = dcLevel
	listeners = append(listeners, dcLevel)
	lower = dcLevel
	top = dcLevel

	if cfg.VirtualAddresses {
		pt := pagetable.New(cfg.Bits.PageOffsetBits, cfg.PT.NumPhysicalPages)

		var dtlbCache *dtlb.Cache
		if cfg.DTLBEnabled {
			dtlbCache = dtlb.New(dtlb.Geometry{
				IndexBits: cfg.Bits.DTLBIndexBits, PageOffsetBits: cfg.Bits.PageOffsetBits,
			}, cfg.DTLB.NumSets, cfg.DTLB.Associativity)
			s.dt = dtlbCache
			listeners = append(listeners, level.NewDTLBListener(dtlbCache, 0))
		}

		b := bus.New(listeners...)
		ptLevel := level.NewPageTableLevel(pt, dtlbCache, b, lower)
		s.pt = ptLevel
		top = ptLevel
	}

	s.top = top
	return s
}

// Run streams trace records from r through the hierarchy, writing the
// header, one log line per record, and the final statistics block to out.
func (s *Simulator) Run(r io.Reader, out io.Writer) error {
	return s.RunWithBanner(r, out, "Simulation statistics")
}

// RunAccessLogOnly streams the header and per-access log lines to out,
// without an ending statistics block. Used by the `--stats-format yaml`
// CLI mode, which serializes GetStats()/YAMLStats() separately.
func (s *Simulator) RunAccessLogOnly(r io.Reader, out io.Writer) error {
	w := bufio.NewWriter(out)
	defer w.Flush()

	if _, err := fmt.Fprintln(w, access.Header); err != nil {
		return err
	}

	rd := trace.NewReader(r, s.cfg.AddressBits)
	for {
		rec, ok := rd.Next()
		if !ok {
			break
		}
		if rec.Op == result.Read {
			s.reads++
		} else {
			s.writes++
		}
		line := access.New(rec.Addr)
		s.top.Access(rec.Op, rec.Addr, line, false)
		if _, err := fmt.Fprintln(w, line.String()); err != nil {
			return err
		}
	}
	if err := rd.Err(); err != nil {
		return fmt.Errorf("simulator: reading trace: %w", err)
	}
	return nil
}

// RunWithBanner is like Run but lets the caller customize the banner line
// preceding the statistics block (e.g. to add ANSI styling for a terminal).
func (s *Simulator) RunWithBanner(r io.Reader, out io.Writer, banner string) error {
	w := bufio.NewWriter(out)
	defer w.Flush()

	if err := s.RunAccessLogOnly(r, w); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "\n%s\n\n", banner); err != nil {
		return err
	}
	return s.writeStats(w)
}

// Stats is the full, flattened statistics snapshot.
type Stats struct {
	DTLB *dtlb.Stats
	PageTable *pagetable.Stats
	DC cache.Stats
	L2 *cache.Stats
	Reads uint64
	Writes uint64
	ReadRatio float64
	MainMemory level.MainMemoryStats
}

// GetStats snapshots every level's counters.
func (s *Simulator) GetStats() Stats {
	st := Stats{
		DC: s.dc.GetStats(),
		Reads: s.reads,
		Writes: s.writes,
		MainMemory: s.mem.GetStats(),
	}
	if total := s.reads + s.writes; total > 0 {
		st.ReadRatio = float64(s.reads) / float64(total)
	}
	if s.dt != nil {
		dstats := s.dt.GetStats()
		st.DTLB = &dstats
	}
	if s.pt != nil {
		pstats := s.pt.GetStats()
		st.PageTable = &pstats
	}
	if s.l2 != nil {
		l2stats := s.l2.GetStats()
		st.L2 = &l2stats
	}
	return st
}

func (s *Simulator) writeStats(w io.Writer) error {
	st := s.GetStats()

	var err error
	wf := func(format string, args ...any) {
		if err != nil {
			return
		}
		_, err = fmt.Fprintf(w, format, args...)
	}

	if st.DTLB != nil {
		wf("dtlb hits : %d\n", st.DTLB.Hits)
		wf("dtlb misses : %d\n", st.DTLB.Misses)
		wf("dtlb hit rate : %.6f\n\n", st.DTLB.HitRate())
	}
	if st.PageTable != nil {
		wf("pt hits : %d\n", st.PageTable.Hits)
		wf("pt misses : %d\n", st.PageTable.Misses)
		wf("pt hit rate : %.6f\n\n", st.PageTable.HitRate())
	}
	wf("dc hits : %d\n", st.DC.Hits())
	wf("dc misses : %d\n", st.DC.Misses())
	wf("dc hit rate : %.6f\n\n", st.DC.HitRate())
	if st.L2 != nil {
		wf("L2 hits : %d\n", st.L2.Hits())
		wf("L2 misses : %d\n", st.L2.Misses())
		wf("L2 hit rate : %.6f\n\n", st.L2.HitRate())
	}
	wf("Total reads : %d\n", st.Reads)
	wf("Total writes : %d\n", st.Writes)
	wf("Ratio of reads : %.6f\n\n", st.ReadRatio)
	wf("main memory refs : %d\n", st.MainMemory.Reads+st.MainMemory.Writes)
	if st.PageTable != nil {
		wf("page table refs : %d\n", st.PageTable.Hits+st.PageTable.Misses)
		wf("disk refs : %d\n", st.PageTable.DiskReferences)
	}
	return err
}
