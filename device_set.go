// device_set.go - the PC chipset, wired to the CPU for IRQ draining and
// attached to the bus for port I/O (§4.7)
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package main

// DeviceSet bundles the PC chipset devices that the core interrupt path
// and the bus consult beyond the simple SetIRQ/irqPending pair: the 8259
// pair for priority arbitration, the 8254 timer feeding IRQ0, the 8042
// keyboard controller, the CMOS/RTC, and the optional LAPIC/IOAPIC pair.
// A nil *DeviceSet is legal everywhere it's consulted; cores built without
// one (the bare CPU test fixtures) keep behaving exactly as before.
type DeviceSet struct {
	PIC     *PIC8259
	PIT     *PIT8254
	CMOS    *CMOSRTC
	KBC     *KBC8042
	Speaker *PCSpeaker
	LAPIC   *LocalAPIC
	IOAPIC  *IOAPIC
}

// NewDeviceSet wires up the standard PC chipset.
func NewDeviceSet() *DeviceSet {
	pic := NewPIC8259()
	return &DeviceSet{
		PIC:     pic,
		PIT:     NewPIT8254(pic),
		CMOS:    NewCMOSRTC(),
		KBC:     NewKBC8042(),
		Speaker: NewPCSpeaker(),
		LAPIC:   NewLocalAPIC(),
		IOAPIC:  NewIOAPIC(),
	}
}

// AttachDevices wires a chipset into the CPU for IRQ draining. Passing nil
// detaches it and reverts to the plain SetIRQ/irqPending pair.
func (c *CPU_X86) AttachDevices(ds *DeviceSet) {
	c.devices = ds
}

// pendingDeviceIRQ asks the PIC for the highest-priority pending,
// unmasked vector, if a chipset is attached (§4.5 step 2).
func (c *CPU_X86) pendingDeviceIRQ() (byte, bool) {
	if c.devices == nil || c.devices.PIC == nil {
		return 0, false
	}
	return c.devices.PIC.PendingVector()
}

// TickDevices advances the PIT by the given number of CPU cycles, draining
// any newly pending IRQ into the simple irqPending/irqVector pair that
// Step already knows how to consume.
func (c *CPU_X86) TickDevices(cycles int) {
	if c.devices == nil {
		return
	}
	if c.devices.PIT != nil {
		c.devices.PIT.Tick(cycles)
	}
	if vector, ok := c.pendingDeviceIRQ(); ok {
		c.SetIRQ(true, vector)
	}
}

// PortIn routes a port read to the attached chipset, falling back to the
// plain X86Bus.In when no device claims the port or no chipset is
// attached — so code written before DeviceSet existed keeps working.
func (c *CPU_X86) PortIn(port uint16) (byte, bool) {
	if c.devices == nil {
		return 0, false
	}
	switch {
	case port == 0x20 || port == 0x21 || port == 0xA0 || port == 0xA1:
		if c.devices.PIC != nil {
			return c.devices.PIC.In(port), true
		}
	case port == 0x40 || port == 0x41 || port == 0x42 || port == 0x43:
		if c.devices.PIT != nil {
			return c.devices.PIT.In(port), true
		}
	case port == 0x60 || port == 0x64:
		if c.devices.KBC != nil {
			return c.devices.KBC.In(port), true
		}
	case port == 0x70 || port == 0x71:
		if c.devices.CMOS != nil {
			return c.devices.CMOS.In(port), true
		}
	case port == 0x61:
		if c.devices.Speaker != nil {
			return c.devices.Speaker.In(port), true
		}
	}
	return 0, false
}

// in reads a port, preferring the attached DeviceSet over the plain
// X86Bus.In fallback so IN/OUT opcodes don't need to know whether a
// chipset is attached.
func (c *CPU_X86) in(port uint16) byte {
	if v, ok := c.PortIn(port); ok {
		return v
	}
	return c.bus.In(port)
}

// out mirrors in for writes.
func (c *CPU_X86) out(port uint16, v byte) {
	if c.PortOut(port, v) {
		return
	}
	c.bus.Out(port, v)
}

// PortOut mirrors PortIn for writes.
func (c *CPU_X86) PortOut(port uint16, v byte) bool {
	if c.devices == nil {
		return false
	}
	switch {
	case port == 0x20 || port == 0x21 || port == 0xA0 || port == 0xA1:
		if c.devices.PIC != nil {
			c.devices.PIC.Out(port, v)
			return true
		}
	case port == 0x40 || port == 0x41 || port == 0x42 || port == 0x43:
		if c.devices.PIT != nil {
			c.devices.PIT.Out(port, v)
			if port == 0x42 && c.devices.Speaker != nil {
				c.devices.Speaker.SetReload(c.devices.PIT.Channel2Reload())
			}
			return true
		}
	case port == 0x60 || port == 0x64:
		if c.devices.KBC != nil {
			c.devices.KBC.Out(port, v)
			return true
		}
	case port == 0x70 || port == 0x71:
		if c.devices.CMOS != nil {
			c.devices.CMOS.Out(port, v)
			return true
		}
	case port == 0x61:
		if c.devices.Speaker != nil {
			c.devices.Speaker.Out(port, v)
			return true
		}
	}
	return false
}
