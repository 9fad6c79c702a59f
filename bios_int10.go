// bios_int10.go - INT 10h video services (§4.6)
//
// Teletype output and string write forward straight to the ScreenWriter
// sink; VBE subfunctions report a fixed LFB geometry since this core
// never actually switches resolutions, matching the teacher's habit of
// returning a single fixed-capability answer where real hardware would
// enumerate a list (video_interface.go's NewVideoOutput picks exactly
// one backend rather than probing).
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package main

// vbeLFBPhysBase is the physical address INT 10h AH=4Fh AL=01h reports
// as the linear framebuffer base, matching mmio_router.go's AttachLFB
// wiring in machine.go.
const vbeLFBPhysBase = 0xE0000000

func (b *BIOSServices) int10(c *CPU_X86) {
	if b.screen == nil {
		retSuccess(c)
		return
	}
	switch c.AH() {
	case 0x00: // set video mode
		b.videoMode = c.AL()
		b.screen.Clear()
		retSuccess(c)
	case 0x0E: // teletype output
		ch := c.AL()
		if ch == '\n' || ch == '\r' {
			b.screen.Newline()
		} else {
			b.screen.Write(string(rune(ch)))
		}
		retSuccess(c)
	case 0x13: // write string
		b.int10WriteString(c)
		retSuccess(c)
	case 0x4F: // VBE
		b.int10VBE(c)
	default:
		retSuccess(c)
	}
}

// int10WriteString implements AH=13h: ES:BP points at the string, CX is
// its length, DH/DL the starting row/col, AL bit 1 selects whether the
// string carries interleaved attribute bytes.
func (b *BIOSServices) int10WriteString(c *CPU_X86) {
	count := int(c.CX())
	row, col := int(c.DH()), int(c.DL())
	withAttr := c.AL()&0x02 != 0
	b.screen.SetCursor(row, col)

	addr := uint32(c.BP())
	for i := 0; i < count; i++ {
		ch := c.readES8(addr)
		addr++
		if withAttr {
			attr := c.readES8(addr)
			addr++
			b.screen.SetAttr(attr)
		}
		if ch == '\n' {
			b.screen.Newline()
		} else {
			b.screen.Write(string(rune(ch)))
		}
	}
}

// int10VBE implements the handful of AH=4Fh subfunctions a boot loader
// that probes for a linear framebuffer actually issues.
func (b *BIOSServices) int10VBE(c *CPU_X86) {
	switch c.AL() {
	case 0x00: // return controller info (ES:DI buffer, abbreviated)
		c.writeES32(uint32(c.DI()), 0x32454256) // "VBE2" signature
		c.SetAX(0x004F)
	case 0x01: // return mode info: CX selects mode, ES:DI buffer
		base := uint32(c.DI())
		c.writeES16(base+0x00, 0x0091) // ModeAttributes: supported, graphics, LFB
		c.writeES16(base+0x12, 1024)   // XResolution
		c.writeES16(base+0x14, 768)    // YResolution
		c.writeES8(base+0x19, 32)      // BitsPerPixel
		c.writeES32(base+0x28, vbeLFBPhysBase)
		c.SetAX(0x004F)
	case 0x02: // set VBE mode: BX holds mode number, bit 14 = use LFB
		b.videoMode = byte(c.BX())
		b.screen.Clear()
		c.SetAX(0x004F)
	default:
		c.SetAX(0x014F) // function not supported
	}
	retSuccess(c)
}
