// Package trace parses the memory-access trace format: one "OP:HEX" record
// per line. Grounded on the reference trace parser, which splits on the
// first colon, skips malformed lines silently, and masks the parsed address
// down to the configured address width.
package trace

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/clevi2003/memory-hierarchy-simulator/internal/result"
)

// Record is one parsed trace line.
type Record struct {
	Op   result.Op
	Addr uint32
}

// Reader streams Records from an underlying text stream, masking addresses
// to addrBits and silently skipping lines that don't parse.
type Reader struct {
	scanner *bufio.Scanner
	mask    uint32
}

// NewReader wraps r, masking every parsed address to addrBits bits.
func NewReader(r io.Reader, addrBits int) *Reader {
	var mask uint32
	if addrBits >= 32 {
		mask = 0xFFFFFFFF
	} else {
		mask = (uint32(1) << uint(addrBits)) - 1
	}
	return &Reader{scanner: bufio.NewScanner(r), mask: mask}
}

// Next returns the next valid record, or ok=false at end of stream.
// Malformed lines (no colon, non-hex address) are skipped without error,
// matching the reference parser's behavior.
func (rd *Reader) Next() (Record, bool) {
	for rd.scanner.Scan() {
		line := rd.scanner.Text()
		opPart, hexPart, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		opStr := strings.TrimSpace(opPart)
		hexStr := strings.TrimSpace(hexPart)

		var op result.Op
		switch strings.ToUpper(opStr) {
		case "R":
			op = result.Read
		case "W":
			op = result.Write
		default:
			continue
		}

		addr, err := strconv.ParseUint(hexStr, 16, 64)
		if err != nil {
			continue
		}

		return Record{Op: op, Addr: uint32(addr) & rd.mask}, true
	}
	return Record{}, false
}

// Err reports any error encountered while scanning (not malformed-line
// skips, which are not errors).
func (rd *Reader) Err() error {
	return rd.scanner.Err()
}
