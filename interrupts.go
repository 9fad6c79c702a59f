// interrupts.go - interrupt and fault delivery (§4.5)
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package main

// IDT gate types (Type field of an interrupt/trap/task gate descriptor).
const (
	gateTypeTask16      = 0x5
	gateTypeInterrupt16 = 0x6
	gateTypeTrap16      = 0x7
	gateTypeInterrupt32 = 0xE
	gateTypeTrap32      = 0xF
)

// contributoryFault reports whether a vector belongs to the "contributory"
// exception class: #DE, #TS, #NP, #SS and #GP. deliverFault does not
// consult it; any second fault during delivery escalates to #DF there.
func contributoryFault(vector byte) bool {
	switch vector {
	case vecDE, vecTS, vecNP, vecSS, vecGP:
		return true
	default:
		return false
	}
}

// deliverInterrupt is the common entry point for both hardware IRQs
// (vector only, no error code) and software INT n.
func (c *CPU_X86) deliverInterrupt(vector byte, errCode uint32, hasErrCode bool) {
	c.deliverFault(cpuFault{Vector: vector, ErrCode: errCode, HasErrCode: hasErrCode})
}

// deliverFault dispatches a raised cpuFault to the real-mode IVT or the
// protected/long-mode IDT, applying the double/triple-fault escalation
// rule when delivery of one fault faults again (§4.5).
func (c *CPU_X86) deliverFault(f cpuFault) {
	if c.inFaultDelivery {
		if c.pendingFaultVector == vecDF {
			// A fault while delivering #DF itself is a triple fault.
			c.inFaultDelivery = false
			c.tripleFault()
			return
		}
		// A second fault while delivering the first escalates to #DF.
		c.inFaultDelivery = false
		c.deliverFault(cpuFault{Vector: vecDF, ErrCode: 0, HasErrCode: true})
		return
	}

	c.inFaultDelivery = true
	c.pendingFaultVector = f.Vector
	defer func() { c.inFaultDelivery = false }()

	if f.Vector == vecPF {
		c.CR2 = f.Linear
	}

	if !c.protectedOrLong() {
		c.deliverReal(f.Vector)
		return
	}
	c.deliverProtected(f)
}

// tripleFault halts the CPU; nothing short of a full reset recovers it.
func (c *CPU_X86) tripleFault() {
	c.Halted = true
	c.TripleFaulted = true
}

// deliverReal implements real-mode delivery: 4-byte IVT entry, push
// FLAGS/CS/IP, clear IF/TF (§4.5).
func (c *CPU_X86) deliverReal(vector byte) {
	c.push16(uint16(c.Flags))
	c.push16(c.CS)
	c.push16(c.IP())

	c.setFlag(x86FlagIF, false)
	c.setFlag(x86FlagTF, false)

	addr := uint64(vector) * 4
	lowPhys := c.translate(addr, false)
	hiPhys := c.translate(addr+2, false)
	ip := uint16(c.bus.Read(lowPhys)) | uint16(c.bus.Read(lowPhys+1))<<8
	cs := uint16(c.bus.Read(hiPhys)) | uint16(c.bus.Read(hiPhys+1))<<8

	c.SetIP(ip)
	c.loadSeg(x86SegCS, cs)
}

// idtGate is a decoded IDT entry (§4.5).
type idtGate struct {
	Offset  uint64
	Selector uint16
	Present bool
	DPL     uint8
	Type    uint8
}

func (c *CPU_X86) readIDTGate(vector byte) (idtGate, bool) {
	entrySize := uint64(8)
	if c.LongMode {
		entrySize = 16
	}
	base := c.IDTR.Base + uint64(vector)*entrySize
	if uint64(vector)*entrySize+entrySize-1 > uint64(c.IDTR.Limit) {
		return idtGate{}, false
	}

	b := func(off uint64) byte { return c.physRead8(base + off) }
	offsetLow := uint64(b(0)) | uint64(b(1))<<8
	selector := uint16(b(2)) | uint16(b(3))<<8
	typeByte := b(5)
	offsetHigh := uint64(b(6)) | uint64(b(7))<<8
	offset := offsetLow | offsetHigh<<16
	if c.LongMode {
		offset |= uint64(b(8))<<32 | uint64(b(9))<<40 | uint64(b(10))<<48 | uint64(b(11))<<56
	}

	return idtGate{
		Offset:   offset,
		Selector: selector,
		Present:  typeByte&0x80 != 0,
		DPL:      (typeByte >> 5) & 0x3,
		Type:     typeByte & 0xF,
	}, true
}

// deliverProtected implements IDT-based delivery with the privilege-change
// stack switch and interrupt/trap gate IF handling (§4.5).
func (c *CPU_X86) deliverProtected(f cpuFault) {
	gate, ok := c.readIDTGate(f.Vector)
	if !ok || !gate.Present {
		c.deliverFault(cpuFault{Vector: vecGP, ErrCode: uint32(f.Vector)*8 + 2, HasErrCode: true})
		return
	}

	targetDesc, ok := c.readDescriptor(gate.Selector)
	if !ok {
		c.deliverFault(cpuFault{Vector: vecGP, ErrCode: uint32(gate.Selector) & 0xFFF8, HasErrCode: true})
		return
	}

	savedSS, savedESP, savedCS, savedEIP, savedFlags := c.SS, c.ESP, c.CS, c.EIP, c.Flags
	privilegeChange := targetDesc.DPL < c.CPL

	if privilegeChange {
		newSS, newESP := c.readTSSStack(targetDesc.DPL)
		c.loadSeg(x86SegSS, newSS)
		c.ESP = newESP
		c.push32(uint32(savedSS))
		c.push32(savedESP)
	}

	c.push32(savedFlags)
	c.push32(uint32(savedCS))
	c.push32(savedEIP)
	if f.HasErrCode {
		c.push32(f.ErrCode)
	}

	if gate.Type == gateTypeInterrupt32 || gate.Type == gateTypeInterrupt16 {
		c.setFlag(x86FlagIF, false)
	}
	c.setFlag(x86FlagTF, false)
	c.setFlag(x86FlagNT, false)

	c.CPL = targetDesc.DPL
	if !privilegeChange {
		c.CPL = max8(c.CPL, uint8(gate.Selector&0x3))
	}
	c.loadCodeSegment(gate.Selector)
	c.EIP = uint32(gate.Offset)
}

// readTSSStack returns the SS:ESP pair for ring cpl from the current TSS
// (32-bit TSS layout: ESP0 @4, SS0 @8, ESP1 @12, SS1 @16, ESP2 @20, SS2 @24).
func (c *CPU_X86) readTSSStack(cpl uint8) (uint16, uint32) {
	off := uint32(cpl) * 8
	espAddr := uint32(c.TR.Base) + 4 + off
	ssAddr := espAddr + 4
	esp := c.readPhys32(c.translate(uint64(espAddr), false))
	ss := uint16(c.readPhys32(c.translate(uint64(ssAddr), false)))
	return ss, esp
}
