// Package access renders the per-trace-record log line described here: a
// fixed-width row of hex/hit/miss fields accumulated as one access threads
// through the levels. Grounded on the reference implementation's AccessLine
// formatter, ported field-for-field (including the exact column widths and
// header banner), since this output must be byte-identical across runs.
package access

import "fmt"

// Header is the three-line column banner printed once before any access
// lines.
const Header = "Virtual  Virt.  Page TLB    TLB TLB  PT   Phys        DC  DC          L2  L2\n" +
	"Address  Page # Off  Tag    Ind Res. Res. Pg # DC Tag Ind Res. L2 Tag Ind Res.\n" +
	"-------- ------ ---- ------ --- ---- ---- ---- ------ --- ---- ------ --- ----"

// Line accumulates the fields of one access as it is resolved. A nil
// pointer field means "not applicable" and renders as blanks.
type Line struct {
	Address uint32

	VPN *uint32
	PageOffset *uint32
	DTLBTag *uint32
	DTLBIndex *uint32
	DTLBResult *bool
	PTResult *bool
	PPN *uint32

	DCTag *uint32
	DCIndex *uint32
	DCResult *bool

	L2Tag *uint32
	L2Index *uint32
	L2Result *bool
}

// New starts a Line for addr.
func New(addr uint32) *Line {
	return &Line{Address: addr}
}

func u32(v uint32) *uint32 { return &v }
func boolp(v bool) *bool { return &v }

func formatNumeric(v *uint32, width int, zeroPad bool) string {
	if v == nil {
		return spaces(width)
	}
	if zeroPad {
		return fmt.Sprintf("%0*x", width, *v)
	}
	return fmt.Sprintf("%*x", width, *v)
}

func formatHitMiss(v *bool, width int) string {
	if v == nil {
		return spaces(width)
	}
	if *v {
		return fmt.Sprintf("%*s", width, "hit")
	}
	return fmt.Sprintf("%*s", width, "miss")
}

func spaces(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = ' '
	}
	return string(b)
}

// String renders the line per this layer's exact column layout.
func (l *Line) String() string {
	addr := u32(l.Address)
	fields := []string{
		formatNumeric(addr, 8, true),
		formatNumeric(l.VPN, 6, false),
		formatNumeric(l.PageOffset, 4, false),
		formatNumeric(l.DTLBTag, 6, false),
		formatNumeric(l.DTLBIndex, 3, false),
		formatHitMiss(l.DTLBResult, 4),
		formatHitMiss(l.PTResult, 4),
		formatNumeric(l.PPN, 4, false),
		formatNumeric(l.DCTag, 6, false),
		formatNumeric(l.DCIndex, 3, false),
		formatHitMiss(l.DCResult, 4),
		formatNumeric(l.L2Tag, 6, false),
		formatNumeric(l.L2Index, 3, false),
		formatHitMiss(l.L2Result, 4),
	}
	out := fields[0]
	for _, f := range fields[1:] {
		out += " " + f
	}
	return out
}

// SetTranslation records the page-table VPN/offset/PPN/result fields.
func (l *Line) SetTranslation(vpn, pageOffset, ppn uint32, hit bool) {
	l.VPN = u32(vpn)
	l.PageOffset = u32(pageOffset)
	l.PPN = u32(ppn)
	l.PTResult = boolp(hit)
}

// SetDTLB records the DTLB tag/index/result fields.
func (l *Line) SetDTLB(tag, index uint32, hit bool) {
	l.DTLBTag = u32(tag)
	l.DTLBIndex = u32(index)
	l.DTLBResult = boolp(hit)
}

// SetDC records the DC tag/index/result fields.
func (l *Line) SetDC(tag, index uint32, hit bool) {
	l.DCTag = u32(tag)
	l.DCIndex = u32(index)
	l.DCResult = boolp(hit)
}

// SetL2 records the L2 tag/index/result fields.
func (l *Line) SetL2(tag, index uint32, hit bool) {
	l.L2Tag = u32(tag)
	l.L2Index = u32(index)
	l.L2Result = boolp(hit)
}
