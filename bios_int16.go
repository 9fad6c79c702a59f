// bios_int16.go - INT 16h keyboard services (§4.6)
//
// Reads from the KBC8042 output buffer InputSource delivery already
// populates (§6): AH=00h dequeues a key or, with none queued, returns at
// once with ZF set (it does not block), AH=01h
// peeks without consuming, AH=02h reports a fixed (empty) shift state
// since modifier tracking lives in InputEvent.Modifiers rather than a
// BIOS-visible byte this core models separately.
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package main

func (b *BIOSServices) int16(c *CPU_X86) {
	if b.kbc == nil {
		retFail(c, 0x01)
		return
	}
	switch c.AH() {
	case 0x00, 0x10:
		b.int16Wait(c)
	case 0x01, 0x11:
		b.int16Peek(c)
	case 0x02, 0x12:
		c.SetAL(b.shiftState)
		retSuccess(c)
	default:
		retSuccess(c)
	}
}

// int16Wait implements AH=00h. This core has no concept of blocking
// inside Step, so when the queue is empty it sets ZF and returns with AX
// unchanged, leaving the caller to retry; otherwise it dequeues the
// scancode, clears ZF and returns AH=scancode, AL=ASCII.
func (b *BIOSServices) int16Wait(c *CPU_X86) {
	sc, ok := b.kbc.PeekScancode()
	if !ok {
		c.setFlag(x86FlagZF, true)
		return
	}
	b.kbc.In(0x60) // consume
	c.SetAH(sc)
	c.SetAL(scancodeToASCII(sc))
	c.setFlag(x86FlagZF, false)
}

// int16Peek implements AH=01h: sets ZF when no key is waiting, else
// clears ZF and reports the next scancode/ASCII pair without consuming
// it.
func (b *BIOSServices) int16Peek(c *CPU_X86) {
	sc, ok := b.kbc.PeekScancode()
	if !ok {
		c.setFlag(x86FlagZF, true)
		return
	}
	c.SetAH(sc)
	c.SetAL(scancodeToASCII(sc))
	c.setFlag(x86FlagZF, false)
}
