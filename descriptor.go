// descriptor.go - GDT/LDT descriptor decode (§3, §4.3)
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package main

// DTReg is a descriptor table register: GDTR or IDTR.
type DTReg struct {
	Base  uint64
	Limit uint16
}

// Descriptor is a decoded 8-byte GDT/LDT segment descriptor.
type Descriptor struct {
	Base        uint32
	Limit       uint32 // already scaled by the G bit when set
	Present     bool
	Type        uint8 // low 4 bits of the access byte
	System      bool  // true = system descriptor (TSS, gate, ...), false = code/data
	Executable  bool
	DPL         uint8
	DefaultSize bool // D/B bit
	Granularity bool // G bit, informational
	LongMode    bool // L bit (64-bit code segment)
}

// decodeDescriptor unpacks the 8 raw GDT/LDT bytes per the Intel layout:
// limit[0:16), base[0:24), access byte, limit[16:20) | flags, base[24:32).
func decodeDescriptor(raw [8]byte) Descriptor {
	limitLow := uint32(raw[0]) | uint32(raw[1])<<8
	baseLow := uint32(raw[2]) | uint32(raw[3])<<8 | uint32(raw[4])<<16
	access := raw[5]
	flags := raw[6]
	baseHigh := uint32(raw[7])

	limit := limitLow | (uint32(flags&0x0F) << 16)
	granularity := flags&0x80 != 0
	if granularity {
		limit = (limit << 12) | 0xFFF
	}

	d := Descriptor{
		Base:        baseLow | (baseHigh << 24),
		Limit:       limit,
		Present:     access&0x80 != 0,
		Type:        access & 0x0F,
		System:      access&0x10 == 0,
		Executable:  access&0x08 != 0,
		DPL:         (access >> 5) & 0x3,
		DefaultSize: flags&0x40 != 0,
		Granularity: granularity,
		LongMode:    flags&0x20 != 0,
	}
	return d
}

// physRead8 reads a single byte at a linear address, translated through
// paging: descriptor tables are addressed by GDTR/IDTR, which hold linear
// addresses, and table reads in this core are treated as running with paging applied
// like any other access (§4.3 reads "from GDT or LDT", §4.2 governs all
// linear-to-physical translation uniformly).
func (c *CPU_X86) physRead8(linear uint64) byte {
	phys := c.translate(linear, false)
	return c.bus.Read(phys)
}

// readDescriptorAt reads and decodes the 8-byte descriptor at a table's
// base+offset, used for both GDT and LDT lookups.
func (c *CPU_X86) readDescriptorAt(tableBase uint64, offset uint32) Descriptor {
	var raw [8]byte
	for i := 0; i < 8; i++ {
		raw[i] = c.physRead8(tableBase + uint64(offset) + uint64(i))
	}
	return decodeDescriptor(raw)
}

// readDescriptor resolves a selector to its descriptor via the GDT or LDT
// (selector.TI bit), enforcing the table limit (§4.3). ok is false when the
// selector's index lies beyond the table's limit.
func (c *CPU_X86) readDescriptor(selector uint16) (Descriptor, bool) {
	index := uint32(selector>>3) * 8
	if selector&0x04 != 0 {
		// LDT-relative
		if index+7 > c.LDTR.Limit {
			return Descriptor{}, false
		}
		return c.readDescriptorAt(c.LDTR.Base, index), true
	}
	if index+7 > uint32(c.GDTR.Limit) {
		return Descriptor{}, false
	}
	return c.readDescriptorAt(c.GDTR.Base, index), true
}
