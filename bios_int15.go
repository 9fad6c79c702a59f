// bios_int15.go - INT 15h system services (§4.6)
//
// A20 control, the E820 memory map, and the big-real-mode block memcpy
// subfunction a lot of real-mode boot loaders lean on before switching
// to protected mode.
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package main

func (b *BIOSServices) int15(c *CPU_X86) {
	switch c.AX() {
	case 0x2400:
		c.setFlag(x86FlagCF, false)
		c.SetAH(0x00)
	case 0x2401:
		c.A20Enabled = true
		retSuccess(c)
	case 0x2402:
		c.SetAL(boolToByte(c.A20Enabled))
		retSuccess(c)
	default:
		b.int15Extended(c)
	}
}

func boolToByte(v bool) byte {
	if v {
		return 1
	}
	return 0
}

// int15Extended handles the AH-keyed subfunctions that don't fit the
// AX=24xx A20 family: E820 memory map (AX=0xE820) and the AH=87h
// protected-mode memcpy used while still executing in real mode.
func (b *BIOSServices) int15Extended(c *CPU_X86) {
	switch c.AH() {
	case 0x88: // legacy extended memory size, in KiB above 1 MiB
		extKB := uint64(0)
		if b.memTotalBytes > 1<<20 {
			extKB = (b.memTotalBytes - 1<<20) / 1024
		}
		if extKB > 0xFFFF {
			extKB = 0xFFFF
		}
		c.SetAX(uint16(extKB))
		retSuccess(c)
	case 0x87:
		b.int15MemCopy(c)
	case 0xE8:
		if c.AL() == 0x20 {
			b.int15E820(c)
			return
		}
		retFail(c, 0x86)
	default:
		retFail(c, 0x86)
	}
}

// int15MemCopy implements AH=87h: CX 16-bit word count, ES:SI points at
// a Global Descriptor Table describing the real source/destination
// segments. This core accepts the simplified form real boot loaders
// actually emit: a flat 48-byte GDT whose entries 2 and 3 carry the
// 24-bit base of the source and destination respectively.
func (b *BIOSServices) int15MemCopy(c *CPU_X86) {
	words := int(c.CX())
	gdt := uint32(c.SI())

	readBase24 := func(entry uint32) uint32 {
		off := gdt + entry*8
		b2 := c.readES8(off + 2)
		b3 := c.readES8(off + 3)
		b4 := c.readES8(off + 4)
		return uint32(b2) | uint32(b3)<<8 | uint32(b4)<<16
	}
	src := readBase24(2)
	dst := readBase24(3)

	for i := 0; i < words*2; i++ {
		phys := c.translate(uint64(src+uint32(i)), false)
		v := c.bus.Read(phys)
		dstPhys := c.translate(uint64(dst+uint32(i)), true)
		c.bus.Write(dstPhys, v)
	}
	retSuccess(c)
}

// writeE820Entry packs the 20-byte ACPI memory map entry layout: base (u64),
// length (u64), type (u32).
func writeE820Entry(c *CPU_X86, addr uint32, base, length uint64, typ uint32) {
	for i := 0; i < 8; i++ {
		c.writeES8(addr+uint32(i), byte(base>>(8*i)))
	}
	for i := 0; i < 8; i++ {
		c.writeES8(addr+8+uint32(i), byte(length>>(8*i)))
	}
	for i := 0; i < 4; i++ {
		c.writeES8(addr+16+uint32(i), byte(typ>>(8*i)))
	}
}

// int15E820 implements the single-entry-per-call E820 map: EBX is the
// continuation index (0 starts the enumeration, a guest-observed
// nonzero value resumes it), ES:DI is the destination buffer, ECX is
// the buffer size (20 minimum), EDX must echo back "SMAP".
func (b *BIOSServices) int15E820(c *CPU_X86) {
	const typeUsable = 1
	const typeReserved = 2

	switch c.EBX {
	case 0:
		writeE820Entry(c, uint32(c.DI()), 0, 0x9FC00, typeUsable) // conventional memory below 640 KiB
		c.EBX = 1
	case 1:
		top := uint64(b.memTotalBytes)
		writeE820Entry(c, uint32(c.DI()), 1<<20, top-(1<<20), typeUsable)
		c.EBX = 0 // no further entries
	default:
		writeE820Entry(c, uint32(c.DI()), 0, 0, typeReserved)
		c.EBX = 0
	}

	c.EAX = 0x534D4150 // "SMAP"
	c.ECX = 20
	retSuccess(c)
}
