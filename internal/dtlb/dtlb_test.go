package dtlb

import "testing"

func TestProbeMissThenHitAfterBackFill(t *testing.T) {
	// 4 sets, page offset 4 bits: index = vpn & 3.
	c := New(Geometry{IndexBits: 2, PageOffsetBits: 4}, 4, 1)

	res := c.Probe(0x105) // vpn = 0x10, offset = 0x5
	if res.Hit {
		t.Fatalf("expected miss on cold DTLB")
	}

	c.BackFill(0x105, 0x2005) // ppn = 0x200
	res = c.Probe(0x105)
	if !res.Hit {
		t.Fatalf("expected hit after backfill")
	}
	if res.PAddr != 0x2005 {
		t.Fatalf("PAddr: got %#x want %#x", res.PAddr, 0x2005)
	}

	stats := c.GetStats()
	if stats.Hits != 1 || stats.Misses != 1 {
		t.Fatalf("stats wrong: %+v", stats)
	}
}

func TestInvalidateByFrame(t *testing.T) {
	c := New(Geometry{IndexBits: 2, PageOffsetBits: 4}, 4, 2)
	c.BackFill(0x100, 0x5000) // ppn = 0x500
	c.BackFill(0x200, 0x5000) // same ppn via a different vpn

	c.InvalidateByFrame(0x500)

	if res := c.Probe(0x100); res.Hit {
		t.Fatalf("expected vpn 0x10 to be invalidated")
	}
	if res := c.Probe(0x200); res.Hit {
		t.Fatalf("expected vpn 0x20 to be invalidated")
	}
}

func TestBackFillEvictsLRUWhenFull(t *testing.T) {
	c := New(Geometry{IndexBits: 0, PageOffsetBits: 4}, 1, 1)
	c.BackFill(0x00, 0x1000)
	c.BackFill(0x10, 0x2000) // same index (IndexBits=0), evicts vpn 0

	if res := c.Probe(0x00); res.Hit {
		t.Fatalf("expected vpn 0 evicted")
	}
	if res := c.Probe(0x10); !res.Hit {
		t.Fatalf("expected vpn 1 resident")
	}
}
