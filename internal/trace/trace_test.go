package trace

import (
	"strings"
	"testing"

	"github.com/clevi2003/memory-hierarchy-simulator/internal/result"
)

func TestReaderParsesValidRecords(t *testing.T) {
	rd := NewReader(strings.NewReader("R:1a\nW:2b\n"), 32)

	rec, ok := rd.Next()
	if !ok || rec.Op != result.Read || rec.Addr != 0x1a {
		t.Fatalf("first record: got %+v, %v", rec, ok)
	}
	rec, ok = rd.Next()
	if !ok || rec.Op != result.Write || rec.Addr != 0x2b {
		t.Fatalf("second record: got %+v, %v", rec, ok)
	}
	if _, ok := rd.Next(); ok {
		t.Fatalf("expected EOF")
	}
}

func TestReaderSkipsMalformedLines(t *testing.T) {
	rd := NewReader(strings.NewReader("garbage\nR:10\nX:20\nR:zz\nW:30\n"), 32)

	rec, ok := rd.Next()
	if !ok || rec.Addr != 0x10 {
		t.Fatalf("expected first valid record at 0x10, got %+v %v", rec, ok)
	}
	rec, ok = rd.Next()
	if !ok || rec.Addr != 0x30 {
		t.Fatalf("expected next valid record at 0x30, got %+v %v", rec, ok)
	}
}

func TestReaderMasksAddress(t *testing.T) {
	rd := NewReader(strings.NewReader("R:1FF\n"), 8)
	rec, ok := rd.Next()
	if !ok || rec.Addr != 0xFF {
		t.Fatalf("expected masked address 0xFF, got %#x ok=%v", rec.Addr, ok)
	}
}
