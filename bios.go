// bios.go - emulated real-mode BIOS service dispatch (§4.6)
//
// Installed above ordinary IVT delivery (see AttachBIOS/handleInterrupt
// in cpu_x86.go): a software INT in real mode first checks this table
// before falling back to the guest's own IVT, the same "handler looked
// up by table, falls through when absent" idiom the instruction
// dispatcher itself uses (§4.4).
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package main

// BIOSServices bundles the state the emulated INT 10h/13h/15h/16h
// handlers need: a screen sink, the boot medium for disk reads, the
// keyboard controller's scancode queue, and the memory size BIOS
// reports through INT 15h/CMOS.
type BIOSServices struct {
	handlers map[byte]func(*CPU_X86)

	screen ScreenWriter
	boot   BootMedium
	kbc    *KBC8042

	memTotalBytes uint64

	videoMode  byte
	shiftState byte
}

// NewBIOSServices wires the four service groups spec.md §4.6 names.
// screen and kbc may be nil for a headless INT 13h-only configuration;
// boot may be nil when the guest never issues disk services.
func NewBIOSServices(screen ScreenWriter, boot BootMedium, kbc *KBC8042, memTotalBytes uint64) *BIOSServices {
	b := &BIOSServices{
		screen:        screen,
		boot:          boot,
		kbc:           kbc,
		memTotalBytes: memTotalBytes,
	}
	b.handlers = map[byte]func(*CPU_X86){
		0x10: b.int10,
		0x13: b.int13,
		0x15: b.int15,
		0x16: b.int16,
	}
	return b
}

// retSuccess clears CF, the universal BIOS "call succeeded" signal.
func retSuccess(c *CPU_X86) {
	c.setFlag(x86FlagCF, false)
}

// retFail sets CF and loads AH with the error code, the universal BIOS
// "call failed" signal.
func retFail(c *CPU_X86, errCode byte) {
	c.setFlag(x86FlagCF, true)
	c.SetAH(errCode)
}

// readDS8/16/32 mirror the CPU's own readES* helpers for the DS-relative
// addressing INT 13h's Disk Address Packet uses (DS:SI).
func (c *CPU_X86) readDS8(addr uint32) byte    { return byte(c.memRead(x86SegDS, addr, 1)) }
func (c *CPU_X86) readDS16(addr uint32) uint16 { return uint16(c.memRead(x86SegDS, addr, 2)) }
func (c *CPU_X86) readDS32(addr uint32) uint32 { return uint32(c.memRead(x86SegDS, addr, 4)) }
