// Package config parses and validates the memory-hierarchy configuration
// file and derives the address bit-field widths every other package relies
// on. The file format, section names, and validation rules are grounded on
// the reference implementation's config loader.
package config

import (
	"bufio"
	"fmt"
	"io"
	"math/bits"
	"os"
	"strconv"
	"strings"
)

// Cache describes one cache level's static configuration.
type Cache struct {
	NumSets       int
	Associativity int
	LineSize      int
	// WriteThroughNoAllocate is true for write-through/no-write-allocate,
	// false for write-back/write-allocate.
	WriteThroughNoAllocate bool
	Enabled                bool
}

// PageTable describes the paging configuration.
type PageTable struct {
	NumVirtualPages  int
	NumPhysicalPages int
	PageSize         int
}

// DTLB describes the translation cache configuration.
type DTLB struct {
	NumSets       int
	Associativity int
	Enabled       bool
}

// Bits holds every derived bit-field width.
type Bits struct {
	DTLBTagBits    int
	DTLBIndexBits  int
	DCTagBits      int
	DCIndexBits    int
	DCOffsetBits   int
	L2TagBits      int
	L2IndexBits    int
	L2OffsetBits   int
	VPNBits        int
	PageOffsetBits int
	PPNBits        int
}

// Config is the fully validated, bit-derived simulator configuration.
type Config struct {
	VirtualAddresses bool
	DTLBEnabled      bool
	L2Enabled        bool

	DTLB DTLB
	PT   PageTable
	DC   Cache
	L2   Cache

	AddressBits int
	Bits        Bits
}

// Load reads and validates a configuration file from path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()
	return Parse(f)
}

var sectionHeaders = map[string]string{
	"Data TLB configuration":  "dtlb",
	"Page Table configuration": "pt",
	"Data Cache configuration": "dc",
	"L2 Cache configuration":  "l2",
}

// Parse reads the configuration text format from r.
func Parse(r io.Reader) (*Config, error) {
	sections := map[string]map[string]string{
		"dtlb":    {},
		"pt":      {},
		"dc":      {},
		"l2":      {},
		"toggles": {},
	}

	current := ""
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if section, ok := sectionHeaders[line]; ok {
			current = section
			continue
		}
		lower := strings.ToLower(line)
		if strings.HasPrefix(lower, "virtual addresses:") ||
			strings.HasPrefix(lower, "tlb:") ||
			strings.HasPrefix(lower, "l2 cache:") {
			key, val, _ := strings.Cut(line, ":")
			sections["toggles"][strings.TrimSpace(key)] = strings.TrimSpace(val)
			continue
		}
		if strings.Contains(line, ":") && current != "" {
			key, val, _ := strings.Cut(line, ":")
			sections[current][strings.TrimSpace(key)] = strings.TrimSpace(val)
			continue
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: scan: %w", err)
	}

	dtlbEnabled, err := parseEnabled(sections["toggles"], "TLB")
	if err != nil {
		return nil, err
	}
	l2Enabled, err := parseEnabled(sections["toggles"], "L2 cache")
	if err != nil {
		return nil, err
	}
	virtualEnabled, err := parseEnabled(sections["toggles"], "Virtual addresses")
	if err != nil {
		return nil, err
	}

	dtlbNumSets := parseIntDefault(sections["dtlb"], "Number of sets", 0)
	dtlbAssoc := parseIntDefault(sections["dtlb"], "Set size", 0)

	nVirtualPages := parseIntDefault(sections["pt"], "Number of virtual pages", 0)
	nPhysicalPages := parseIntDefault(sections["pt"], "Number of physical pages", 0)
	pageSize := parseIntDefault(sections["pt"], "Page size", 0)

	l2NumSets := parseIntDefault(sections["l2"], "Number of sets", 0)
	l2Assoc := parseIntDefault(sections["l2"], "Set size", 0)
	l2LineSize := parseIntDefault(sections["l2"], "Line size", 0)
	l2Policy := false
	if l2Enabled {
		l2Policy, err = parseEnabled(sections["l2"], "Write through/no write allocate")
		if err != nil {
			return nil, err
		}
	}

	dcNumSets := parseIntDefault(sections["dc"], "Number of sets", 0)
	dcAssoc := parseIntDefault(sections["dc"], "Set size", 0)
	dcLineSize := parseIntDefault(sections["dc"], "Line size", 0)
	dcPolicy, err := parseEnabled(sections["dc"], "Write through/no write allocate")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		VirtualAddresses: virtualEnabled,
		DTLBEnabled:      dtlbEnabled,
		L2Enabled:        l2Enabled,
		DTLB:             DTLB{NumSets: dtlbNumSets, Associativity: dtlbAssoc, Enabled: dtlbEnabled},
		PT:               PageTable{NumVirtualPages: nVirtualPages, NumPhysicalPages: nPhysicalPages, PageSize: pageSize},
		DC:               Cache{NumSets: dcNumSets, Associativity: dcAssoc, LineSize: dcLineSize, WriteThroughNoAllocate: dcPolicy, Enabled: true},
		L2:               Cache{NumSets: l2NumSets, Associativity: l2Assoc, LineSize: l2LineSize, WriteThroughNoAllocate: l2Policy, Enabled: l2Enabled},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if err := cfg.deriveBits(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parseEnabled(m map[string]string, key string) (bool, error) {
	raw, ok := m[key]
	if !ok {
		return false, fmt.Errorf("config: missing required switch %q", key)
	}
	raw = strings.ToLower(strings.TrimSpace(raw))
	switch raw {
	case "y":
		return true, nil
	case "n":
		return false, nil
	default:
		return false, fmt.Errorf("config: %q must be 'y' or 'n', got %q", key, raw)
	}
}

func parseIntDefault(m map[string]string, key string, def int) int {
	raw, ok := m[key]
	if !ok {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

func isPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

func safeLog2(n int) (int, error) {
	if !isPowerOfTwo(n) {
		return 0, fmt.Errorf("config: %d is not a power of two", n)
	}
	return bits.TrailingZeros(uint(n)), nil
}

func (c *Config) validate() error {
	if c.DTLBEnabled {
		if c.DTLB.NumSets < 1 || c.DTLB.NumSets > 256 {
			return fmt.Errorf("config: DTLB number of sets must be between 1 and 256")
		}
		if c.DTLB.Associativity < 1 || c.DTLB.Associativity > 8 {
			return fmt.Errorf("config: DTLB associativity must be between 1 and 8")
		}
		if !isPowerOfTwo(c.DTLB.NumSets) {
			return fmt.Errorf("config: DTLB number of sets must be a power of two")
		}
	}

	if c.DC.NumSets < 1 || c.DC.NumSets > 8192 {
		return fmt.Errorf("config: DC number of sets must be between 1 and 8192")
	}
	if c.DC.Associativity < 1 || c.DC.Associativity > 8 {
		return fmt.Errorf("config: DC associativity must be between 1 and 8")
	}
	if !isPowerOfTwo(c.DC.NumSets) {
		return fmt.Errorf("config: DC number of sets must be a power of two")
	}
	if !isPowerOfTwo(c.DC.LineSize) {
		return fmt.Errorf("config: DC line size must be a power of two")
	}
	if c.DC.LineSize < 8 {
		return fmt.Errorf("config: DC line size must be at least 8 bytes")
	}

	if c.PT.NumVirtualPages < 1 || c.PT.NumVirtualPages > 8192 {
		return fmt.Errorf("config: number of virtual pages must be between 1 and 8192")
	}
	if c.PT.NumPhysicalPages < 1 || c.PT.NumPhysicalPages > 1024 {
		return fmt.Errorf("config: number of physical pages must be between 1 and 1024")
	}
	if !isPowerOfTwo(c.PT.NumVirtualPages) {
		return fmt.Errorf("config: number of virtual pages must be a power of two")
	}
	if !isPowerOfTwo(c.PT.PageSize) {
		return fmt.Errorf("config: page size must be a power of two")
	}
	if c.VirtualAddresses && uint64(c.PT.NumVirtualPages)*uint64(c.PT.PageSize) > (1<<32) {
		return fmt.Errorf("config: maximum virtual address space exceeded (2^32)")
	}

	if c.L2Enabled {
		if c.L2.Associativity < 1 || c.L2.Associativity > 8 {
			return fmt.Errorf("config: L2 associativity must be between 1 and 8")
		}
		if c.L2.LineSize < c.DC.LineSize {
			return fmt.Errorf("config: L2 line size must be at least as large as DC line size")
		}
	}

	return nil
}

func bitSlice(addrBits, sets, lineSize int) (tag, index, offset int, err error) {
	if sets > 0 {
		index, err = safeLog2(sets)
		if err != nil {
			return 0, 0, 0, err
		}
	}
	if lineSize > 0 {
		offset, err = safeLog2(lineSize)
		if err != nil {
			return 0, 0, 0, err
		}
	}
	tag = addrBits - index - offset
	if tag < 0 {
		return 0, 0, 0, fmt.Errorf("config: negative tag bits (addr_bits=%d, index_bits=%d, offset_bits=%d)", addrBits, index, offset)
	}
	return tag, index, offset, nil
}

func (c *Config) deriveBits() error {
	if c.VirtualAddresses {
		pob, err := safeLog2(c.PT.PageSize)
		if err != nil {
			return err
		}
		vpn, err := safeLog2(c.PT.NumVirtualPages)
		if err != nil {
			return err
		}
		ppn, err := safeLog2(c.PT.NumPhysicalPages)
		if err != nil {
			return err
		}
		c.Bits.PageOffsetBits = pob
		c.Bits.VPNBits = vpn
		c.Bits.PPNBits = ppn
		c.AddressBits = vpn + pob
	} else {
		ppn, err := safeLog2(c.PT.NumPhysicalPages)
		if err != nil {
			return err
		}
		pob, err := safeLog2(c.PT.PageSize)
		if err != nil {
			return err
		}
		c.Bits.PageOffsetBits = pob
		c.Bits.VPNBits = 0
		c.Bits.PPNBits = ppn
		c.AddressBits = ppn + pob
	}

	if c.DTLBEnabled && c.VirtualAddresses {
		tag, index, _, err := bitSlice(c.Bits.VPNBits, c.DTLB.NumSets, 0)
		if err != nil {
			return err
		}
		c.Bits.DTLBTagBits = tag
		c.Bits.DTLBIndexBits = index
	}

	tag, index, offset, err := bitSlice(c.AddressBits, c.DC.NumSets, c.DC.LineSize)
	if err != nil {
		return err
	}
	c.Bits.DCTagBits = tag
	c.Bits.DCIndexBits = index
	c.Bits.DCOffsetBits = offset

	if c.L2Enabled {
		tag, index, offset, err := bitSlice(c.AddressBits, c.L2.NumSets, c.L2.LineSize)
		if err != nil {
			return err
		}
		c.Bits.L2TagBits = tag
		c.Bits.L2IndexBits = index
		c.Bits.L2OffsetBits = offset
	}

	return nil
}

// Describe renders a human-readable summary of the wired topology, restoring
// the reference implementation's configuration pretty-printer.
func (c *Config) Describe() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Data TLB contains %d sets.\n", c.DTLB.NumSets)
	fmt.Fprintf(&b, "Each set contains %d entries.\n", c.DTLB.Associativity)
	fmt.Fprintf(&b, "Number of bits used for the index is %d.\n\n", c.Bits.DTLBIndexBits)

	fmt.Fprintf(&b, "Number of virtual pages is %d.\n", c.PT.NumVirtualPages)
	fmt.Fprintf(&b, "Number of physical pages is %d.\n", c.PT.NumPhysicalPages)
	fmt.Fprintf(&b, "Each page contains %d bytes.\n", c.PT.PageSize)
	fmt.Fprintf(&b, "Number of bits used for the page table index is %d.\n", c.Bits.VPNBits)
	fmt.Fprintf(&b, "Number of bits used for the page offset is %d.\n\n", c.Bits.PageOffsetBits)

	fmt.Fprintf(&b, "D-cache contains %d sets.\n", c.DC.NumSets)
	fmt.Fprintf(&b, "Each set contains %d entries.\n", c.DC.Associativity)
	fmt.Fprintf(&b, "Each line is %d bytes.\n", c.DC.LineSize)
	fmt.Fprintf(&b, "The cache uses a %s%s policy.\n", noPrefix(c.DC.WriteThroughNoAllocate), policyName(c.DC.WriteThroughNoAllocate))
	fmt.Fprintf(&b, "Number of bits used for the index is %d.\n", c.Bits.DCIndexBits)
	fmt.Fprintf(&b, "Number of bits used for the offset is %d.\n\n", c.Bits.DCOffsetBits)

	if c.L2Enabled {
		fmt.Fprintf(&b, "L2 cache contains %d sets.\n", c.L2.NumSets)
		fmt.Fprintf(&b, "Each set contains %d entries.\n", c.L2.Associativity)
		fmt.Fprintf(&b, "Each line is %d bytes.\n", c.L2.LineSize)
		fmt.Fprintf(&b, "The cache uses a %s%s policy.\n", noPrefix(c.L2.WriteThroughNoAllocate), policyName(c.L2.WriteThroughNoAllocate))
		fmt.Fprintf(&b, "Number of bits used for the index is %d.\n", c.Bits.L2IndexBits)
		fmt.Fprintf(&b, "Number of bits used for the offset is %d.\n\n", c.Bits.L2OffsetBits)
	}

	if c.VirtualAddresses {
		b.WriteString("The addresses read in are virtual addresses.\n")
	} else {
		b.WriteString("The addresses read in are physical addresses.\n")
	}
	return b.String()
}

func noPrefix(writeThrough bool) string {
	if writeThrough {
		return "no "
	}
	return ""
}

func policyName(writeThrough bool) string {
	if writeThrough {
		return "write allocate and write-through"
	}
	return "write allocate and write-back"
}
