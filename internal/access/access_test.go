package access

import (
	"strings"
	"testing"
)

func sp(n int) string { return strings.Repeat(" ", n) }

func TestStringBlanksUnsetFields(t *testing.T) {
	l := New(0x1a)
	l.SetDC(0x2, 0x1, true)

	got := l.String()
	want := strings.Join([]string{
		"0000001a", // addr, zero-padded 8
		sp(6),      // vpn
		sp(4),      // page offset
		sp(6),      // dtlb tag
		sp(3),      // dtlb index
		sp(4),      // dtlb result
		sp(4),      // pt result
		sp(4),      // ppn
		sp(5) + "2", // dc tag (width 6, value 2)
		sp(2) + "1", // dc index (width 3, value 1)
		sp(1) + "hit", // dc result (width 4)
		sp(6),      // l2 tag
		sp(3),      // l2 index
		sp(4),      // l2 result
	}, " ")
	if got != want {
		t.Fatalf("got  %q\nwant %q", got, want)
	}
}

func TestStringFullyPopulated(t *testing.T) {
	l := New(0x105)
	l.SetTranslation(0x10, 0x5, 0x2, true)
	l.SetDTLB(0x4, 0x0, true)
	l.SetDC(0x1, 0x2, false)
	l.SetL2(0x0, 0x1, true)

	got := l.String()
	want := strings.Join([]string{
		"00000105",
		sp(4) + "10",
		sp(3) + "5",
		sp(5) + "4",
		sp(2) + "0",
		sp(1) + "hit",
		sp(1) + "hit",
		sp(3) + "2",
		sp(5) + "1",
		sp(2) + "2",
		"miss",
		sp(5) + "0",
		sp(2) + "1",
		sp(1) + "hit",
	}, " ")
	if got != want {
		t.Fatalf("got  %q\nwant %q", got, want)
	}
}
