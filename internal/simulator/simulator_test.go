package simulator

import (
	"bytes"
	"strings"
	"testing"

	"github.com/clevi2003/memory-hierarchy-simulator/internal/config"
)

func mustConfig(t *testing.T, text string) *config.Config {
	t.Helper()
	cfg, err := config.Parse(strings.NewReader(text))
	if err != nil {
		t.Fatalf("config.Parse: %v", err)
	}
	return cfg
}

// Scenario A: direct-mapped DC, no L2, physical addressing.
func TestPhysicalDirectMappedNoL2(t *testing.T) {
	cfgText := strings.Join([]string{
		"Data TLB configuration",
		"Number of sets: 1",
		"Set size: 1",
		"",
		"Page Table configuration",
		"Number of virtual pages: 1",
		"Number of physical pages: 256",
		"Page size: 16",
		"",
		"Data Cache configuration",
		"Number of sets: 4",
		"Set size: 1",
		"Line size: 8",
		"Write through/no write allocate: n",
		"",
		"L2 Cache configuration",
		"Number of sets: 1",
		"Set size: 1",
		"Line size: 8",
		"Write through/no write allocate: n",
		"",
		"Virtual addresses: n",
		"TLB: n",
		"L2 cache: n",
	}, "\n")
	cfg := mustConfig(t, cfgText)

	sim := New(cfg)
	traceText := "R:00000000\nR:00000008\nR:00000010\nR:00000000\n"

	var out bytes.Buffer
	if err := sim.Run(strings.NewReader(traceText), &out); err != nil {
		t.Fatalf("Run: %v", err)
	}

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	// 3 header lines + 4 access lines + blank + "Simulation statistics" + stats.
	var hitMissLines []string
	for _, l := range lines[3:7] {
		hitMissLines = append(hitMissLines, l)
	}
	wantHit := []string{"miss", "miss", "miss", "hit"}
	for i, l := range hitMissLines {
		hasWant := strings.Contains(l, wantHit[i])
		if !hasWant {
			t.Fatalf("line %d: %q does not contain %q", i, l, wantHit[i])
		}
	}

	stats := sim.GetStats()
	if stats.DC.Hits() != 1 || stats.DC.Misses() != 3 {
		t.Fatalf("DC stats: got hits=%d misses=%d", stats.DC.Hits(), stats.DC.Misses())
	}
	if stats.DC.Evictions != 0 {
		t.Fatalf("expected no DC evictions, got %d", stats.DC.Evictions)
	}
}

// Scenario B: conflict eviction with writeback, no L2.
func TestWriteBackConflictEvictionWritesBackToMemory(t *testing.T) {
	cfgText := strings.Join([]string{
		"Data TLB configuration",
		"Number of sets: 1",
		"Set size: 1",
		"",
		"Page Table configuration",
		"Number of virtual pages: 1",
		"Number of physical pages: 256",
		"Page size: 16",
		"",
		"Data Cache configuration",
		"Number of sets: 1",
		"Set size: 2",
		"Line size: 16",
		"Write through/no write allocate: n",
		"",
		"L2 Cache configuration",
		"Number of sets: 1",
		"Set size: 1",
		"Line size: 16",
		"Write through/no write allocate: n",
		"",
		"Virtual addresses: n",
		"TLB: n",
		"L2 cache: n",
	}, "\n")
	cfg := mustConfig(t, cfgText)

	sim := New(cfg)
	traceText := "W:0\nW:100\nW:200\nR:0\n"

	var out bytes.Buffer
	if err := sim.Run(strings.NewReader(traceText), &out); err != nil {
		t.Fatalf("Run: %v", err)
	}

	stats := sim.GetStats()
	if stats.DC.WriteBacks != 2 {
		t.Fatalf("expected 2 writebacks, got %d", stats.DC.WriteBacks)
	}
	// main memory sees a writeback W for each of the two dirty evictions.
	if stats.MainMemory.Writes != 2 {
		t.Fatalf("expected 2 main-memory writes, got %d", stats.MainMemory.Writes)
	}
	// Each of the 3 write misses issues a read-for-ownership, plus the
	// final R:0 (itself a DC miss since its block was since evicted).
	if stats.MainMemory.Reads != 4 {
		t.Fatalf("expected 4 main-memory reads, got %d", stats.MainMemory.Reads)
	}
}

// Scenario F: write-through/no-write-allocate forwards every write and
// never allocates locally.
func TestWriteThroughNeverAllocates(t *testing.T) {
	cfgText := strings.Join([]string{
		"Data TLB configuration",
		"Number of sets: 1",
		"Set size: 1",
		"",
		"Page Table configuration",
		"Number of virtual pages: 1",
		"Number of physical pages: 256",
		"Page size: 16",
		"",
		"Data Cache configuration",
		"Number of sets: 4",
		"Set size: 1",
		"Line size: 8",
		"Write through/no write allocate: y",
		"",
		"L2 Cache configuration",
		"Number of sets: 1",
		"Set size: 1",
		"Line size: 8",
		"Write through/no write allocate: y",
		"",
		"Virtual addresses: n",
		"TLB: n",
		"L2 cache: n",
	}, "\n")
	cfg := mustConfig(t, cfgText)

	sim := New(cfg)
	var out bytes.Buffer
	if err := sim.Run(strings.NewReader("W:10\n"), &out); err != nil {
		t.Fatalf("Run: %v", err)
	}

	stats := sim.GetStats()
	if stats.DC.WriteMisses != 1 || stats.DC.WriteHits != 0 {
		t.Fatalf("expected a single write miss, got %+v", stats.DC)
	}
	if stats.MainMemory.Writes != 1 {
		t.Fatalf("expected the write to be forwarded to memory, got %d", stats.MainMemory.Writes)
	}
}

// Scenario D-ish: page eviction invalidates DC entries mapped to the old
// frame (virtual addressing, tiny physical pool).
func TestVirtualAddressingPageEvictionInvalidatesDC(t *testing.T) {
	cfgText := strings.Join([]string{
		"Data TLB configuration",
		"Number of sets: 1",
		"Set size: 1",
		"",
		"Page Table configuration",
		"Number of virtual pages: 4",
		"Number of physical pages: 1",
		"Page size: 16",
		"",
		"Data Cache configuration",
		"Number of sets: 1",
		"Set size: 4",
		"Line size: 8",
		"Write through/no write allocate: n",
		"",
		"L2 Cache configuration",
		"Number of sets: 1",
		"Set size: 1",
		"Line size: 8",
		"Write through/no write allocate: n",
		"",
		"Virtual addresses: y",
		"TLB: n",
		"L2 cache: n",
	}, "\n")
	cfg := mustConfig(t, cfgText)

	sim := New(cfg)
	// First access lives in VPN 0 (page 0); second is in VPN 1, forcing a
	// page-frame eviction since only 1 physical page is available.
	traceText := "R:00000000\nR:00000010\n"

	var out bytes.Buffer
	if err := sim.Run(strings.NewReader(traceText), &out); err != nil {
		t.Fatalf("Run: %v", err)
	}

	stats := sim.GetStats()
	if stats.PageTable == nil {
		t.Fatalf("expected page table stats to be present")
	}
	if stats.PageTable.Misses != 2 {
		t.Fatalf("expected 2 page-table misses (no reuse), got %d", stats.PageTable.Misses)
	}
	if stats.PageTable.DiskReferences != 2 {
		t.Fatalf("expected 2 disk references, got %d", stats.PageTable.DiskReferences)
	}
	// Both accesses land on physical frame 0 at offset 0, so the second one
	// misses in the DC only if the eviction dropped the first one's block.
	if stats.DC.Hits() != 0 || stats.DC.Misses() != 2 {
		t.Fatalf("expected the DC block of the evicted frame to be invalidated: hits=%d misses=%d", stats.DC.Hits(), stats.DC.Misses())
	}
}

func TestDeterministicOutputAcrossRuns(t *testing.T) {
	cfgText := strings.Join([]string{
		"Data TLB configuration",
		"Number of sets: 1",
		"Set size: 1",
		"",
		"Page Table configuration",
		"Number of virtual pages: 1",
		"Number of physical pages: 256",
		"Page size: 16",
		"",
		"Data Cache configuration",
		"Number of sets: 4",
		"Set size: 1",
		"Line size: 8",
		"Write through/no write allocate: n",
		"",
		"L2 Cache configuration",
		"Number of sets: 1",
		"Set size: 1",
		"Line size: 8",
		"Write through/no write allocate: n",
		"",
		"Virtual addresses: n",
		"TLB: n",
		"L2 cache: n",
	}, "\n")

	traceText := "R:0\nW:8\nR:10\nW:0\n"

	var firstOut, secondOut bytes.Buffer
	New(mustConfig(t, cfgText)).Run(strings.NewReader(traceText), &firstOut)
	New(mustConfig(t, cfgText)).Run(strings.NewReader(traceText), &secondOut)

	if firstOut.String() != secondOut.String() {
		t.Fatalf("expected identical output across runs")
	}
}
