// segmentation.go - segment loads and the descriptor cache (§4.3)
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package main

// Control register bits consulted by segmentation and paging.
const (
	cr0PE = 1 << 0  // Protection Enable
	cr0PG = 1 << 31 // Paging

	cr4PAE = 1 << 5
	cr4PSE = 1 << 4

	eferLME = 1 << 8  // Long Mode Enable
	eferLMA = 1 << 10 // Long Mode Active
)

// SegCache is the descriptor cache attached to each segment register
// (§3): loaded when the selector is written, consulted on every access
// until the next load.
type SegCache struct {
	Selector    uint16
	Base        uint64
	Limit       uint32
	DPL         uint8
	Type        uint8
	Present     bool
	DefaultSize bool // operand/address default size implied by this segment (CS only)
	System      bool
}

// protectedMode reports whether CR0.PE is set.
func (c *CPU_X86) protectedMode() bool {
	return c.CR0&cr0PE != 0
}

// protectedOrLong reports whether segment loads consult descriptors rather
// than the flat real-mode rule.
func (c *CPU_X86) protectedOrLong() bool {
	return c.protectedMode() || c.LongMode
}

// loadSeg loads a selector into a segment register and refreshes its
// descriptor cache (§3: "Cache is loaded when the selector is written").
// Real mode uses the flat base = selector*16 rule; protected/long mode
// reads the GDT/LDT. CS loads additionally update the default operand and
// address size per the descriptor's D/B bit (§3 invariant (a)).
func (c *CPU_X86) loadSeg(idx int, selector uint16) {
	switch idx {
	case x86SegES:
		c.ES = selector
	case x86SegCS:
		c.CS = selector
	case x86SegSS:
		c.SS = selector
	case x86SegDS:
		c.DS = selector
	case x86SegFS:
		c.FS = selector
	case x86SegGS:
		c.GS = selector
	}

	if !c.protectedOrLong() {
		c.segCache[idx] = SegCache{
			Selector:    selector,
			Base:        uint64(selector) << 4,
			Limit:       0xFFFF,
			Present:     true,
			DefaultSize: false,
		}
		return
	}

	// Null selector is legal for DS/ES/FS/GS (any use faults on access);
	// SS and CS reaching here with a null selector is a caller bug we
	// don't need to defend against beyond leaving the cache empty.
	if selector&0xFFFC == 0 {
		c.segCache[idx] = SegCache{Selector: selector}
		return
	}

	desc, ok := c.readDescriptor(selector)
	if !ok {
		raiseFault(vecGP, uint32(selector)&0xFFF8)
		return
	}
	if !desc.Present {
		raiseFault(vecNP, uint32(selector)&0xFFF8)
		return
	}

	c.segCache[idx] = SegCache{
		Selector:    selector,
		Base:        uint64(desc.Base),
		Limit:       desc.Limit,
		DPL:         desc.DPL,
		Type:        desc.Type,
		Present:     desc.Present,
		DefaultSize: desc.DefaultSize,
		System:      desc.System,
	}
}

// loadCodeSegment performs a far transfer to CS, enforcing the
// conforming/non-conforming privilege rules of §4.3. rpl is the requested
// privilege level encoded in the low 2 bits of selector.
func (c *CPU_X86) loadCodeSegment(selector uint16) {
	if !c.protectedOrLong() {
		c.loadSeg(x86SegCS, selector)
		return
	}

	desc, ok := c.readDescriptor(selector)
	if !ok {
		raiseFault(vecGP, uint32(selector)&0xFFF8)
		return
	}
	if desc.System || !desc.Executable {
		raiseFault(vecGP, uint32(selector)&0xFFF8)
		return
	}
	if !desc.Present {
		raiseFault(vecNP, uint32(selector)&0xFFF8)
		return
	}

	rpl := uint8(selector & 0x3)
	conforming := desc.Type&0x4 != 0
	if conforming {
		if c.CPL < desc.DPL {
			raiseFault(vecGP, uint32(selector)&0xFFF8)
			return
		}
		// CPL is preserved for conforming segments.
	} else {
		if max8(c.CPL, rpl) > desc.DPL {
			raiseFault(vecGP, uint32(selector)&0xFFF8)
			return
		}
		c.CPL = desc.DPL
	}

	c.segCache[x86SegCS] = SegCache{
		Selector:    selector,
		Base:        uint64(desc.Base),
		Limit:       desc.Limit,
		DPL:         desc.DPL,
		Type:        desc.Type,
		Present:     desc.Present,
		DefaultSize: desc.DefaultSize,
		System:      desc.System,
	}
	c.CS = selector
}

func max8(a, b uint8) uint8 {
	if a > b {
		return a
	}
	return b
}

// addressOffsetMask returns the mask applied to a segment offset before
// adding the segment base, derived from the active address size.
func (c *CPU_X86) addressOffsetMask() uint64 {
	if c.prefixAddrSize {
		if c.segCache[x86SegCS].DefaultSize {
			return 0xFFFF // 32-bit default, 0x67 narrows to 16-bit
		}
		return 0xFFFFFFFF // 16-bit default, 0x67 widens to 32-bit
	}
	if c.segCache[x86SegCS].DefaultSize {
		return 0xFFFFFFFF
	}
	return 0xFFFF
}

// segmentOffsetLinear resolves a segment-relative offset to a linear
// address (§4.3), enforcing the segment limit in protected/long mode.
func (c *CPU_X86) segmentOffsetLinear(seg int, offset uint64) uint64 {
	sc := c.segCache[seg]
	masked := offset & c.addressOffsetMask()

	if c.protectedOrLong() && !c.LongMode {
		if masked > uint64(sc.Limit) {
			raiseFault(vecGP, uint32(sc.Selector)&0xFFF8)
		}
	}

	linear := sc.Base + masked
	return c.maskLinear(linear)
}
