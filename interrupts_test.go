// interrupts_test.go - interrupt/fault delivery unit tests
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package main

import "testing"

func TestDeliverReal_PushesFlagsCSIPAndReadsIVT(t *testing.T) {
	bus := NewTestX86Bus()
	cpu := NewCPU_X86(bus)

	// IVT entry for vector 0x21: IP=0x4000, CS=0x0700.
	const vector = 0x21
	bus.memory[vector*4+0] = 0x00
	bus.memory[vector*4+1] = 0x40
	bus.memory[vector*4+2] = 0x00
	bus.memory[vector*4+3] = 0x07

	cpu.CS = 0x1000
	cpu.SetIP(0x1234)
	cpu.Flags = x86FlagIF | x86FlagTF
	cpu.SetSP(0xFFFE)

	cpu.deliverInterrupt(vector, 0, false)

	if cpu.CS != 0x0700 {
		t.Errorf("CS after delivery: got %#x, want 0x0700", cpu.CS)
	}
	if cpu.IP() != 0x4000 {
		t.Errorf("IP after delivery: got %#x, want 0x4000", cpu.IP())
	}
	if cpu.Flags&x86FlagIF != 0 {
		t.Error("IF should be cleared on real-mode interrupt delivery")
	}
	if cpu.Flags&x86FlagTF != 0 {
		t.Error("TF should be cleared on real-mode interrupt delivery")
	}

	poppedIP := cpu.pop16()
	poppedCS := cpu.pop16()
	poppedFlags := cpu.pop16()
	if poppedIP != 0x1234 {
		t.Errorf("pushed IP: got %#x, want 0x1234", poppedIP)
	}
	if poppedCS != 0x1000 {
		t.Errorf("pushed CS: got %#x, want 0x1000", poppedCS)
	}
	if poppedFlags != uint16(x86FlagIF|x86FlagTF) {
		t.Errorf("pushed Flags: got %#x, want %#x", poppedFlags, x86FlagIF|x86FlagTF)
	}
}

func TestDeliverProtected_InterruptGateDispatch(t *testing.T) {
	bus := NewTestX86Bus()
	cpu := NewCPU_X86(bus)
	cpu.CR0 |= cr0PE
	cpu.CPL = 0
	cpu.SetSP(0xFFF0)

	const gdtBase = 0x8000
	const idtBase = 0x9000
	cpu.GDTR = DTReg{Base: gdtBase, Limit: 0xFFF}
	cpu.IDTR = DTReg{Base: idtBase, Limit: 0xFFF}

	// A flat, present, DPL=0, non-conforming 32-bit code descriptor at selector 0x08.
	writeDescriptorAt(bus, gdtBase+8, 0, 0xFFFFF, true, 0xA, false, true, 0, true, true, false)

	// IDT gate for vector 0x0E (#PF): offset=0x5000, selector=0x08, interrupt gate, present, DPL=0.
	const vector = 0x0E
	gateOff := uint32(idtBase + vector*8)
	bus.memory[gateOff+0] = 0x00 // offset low
	bus.memory[gateOff+1] = 0x50
	bus.memory[gateOff+2] = 0x08 // selector
	bus.memory[gateOff+3] = 0x00
	bus.memory[gateOff+4] = 0x00 // reserved
	bus.memory[gateOff+5] = 0x8E // P=1, DPL=0, type=0xE (32-bit interrupt gate)
	bus.memory[gateOff+6] = 0x00
	bus.memory[gateOff+7] = 0x00

	cpu.Flags = x86FlagIF
	cpu.deliverInterrupt(vector, 0x4, true)

	if cpu.CS != 0x08 {
		t.Errorf("CS after protected delivery: got %#x, want 0x08", cpu.CS)
	}
	if cpu.EIP != 0x5000 {
		t.Errorf("EIP after protected delivery: got %#x, want 0x5000", cpu.EIP)
	}
	if cpu.Flags&x86FlagIF != 0 {
		t.Error("IF should be cleared by an interrupt gate")
	}
}

func TestDeliverFault_SecondContributoryFaultEscalatesToDoubleFault(t *testing.T) {
	bus := NewTestX86Bus()
	cpu := NewCPU_X86(bus)
	cpu.CR0 |= cr0PE
	cpu.SetSP(0xFFF0)

	const gdtBase = 0x8000
	const idtBase = 0x9000
	cpu.GDTR = DTReg{Base: gdtBase, Limit: 0xFFF}
	cpu.IDTR = DTReg{Base: idtBase, Limit: 0xFFF}

	writeDescriptorAt(bus, gdtBase+8, 0, 0xFFFFF, true, 0xA, false, true, 0, true, true, false)

	// #DF's own IDT gate (vector 8): offset=0x6000, selector=0x08, present
	// interrupt gate. A #GP arriving while another #GP is already being
	// delivered (two contributory faults) escalates to #DF rather than
	// triple-faulting.
	const dfVector = vecDF
	gateOff := uint32(idtBase + dfVector*8)
	bus.memory[gateOff+0] = 0x00
	bus.memory[gateOff+1] = 0x60
	bus.memory[gateOff+2] = 0x08
	bus.memory[gateOff+3] = 0x00
	bus.memory[gateOff+4] = 0x00
	bus.memory[gateOff+5] = 0x8E
	bus.memory[gateOff+6] = 0x00
	bus.memory[gateOff+7] = 0x00

	cpu.inFaultDelivery = true
	cpu.pendingFaultVector = vecGP

	cpu.deliverFault(cpuFault{Vector: vecGP, ErrCode: 0, HasErrCode: true})

	if cpu.CS != 0x08 {
		t.Errorf("CS after escalation: got %#x, want 0x08 (dispatched through #DF's gate)", cpu.CS)
	}
	if cpu.EIP != 0x6000 {
		t.Errorf("EIP after escalation: got %#x, want 0x6000 (the #DF handler, not #GP's)", cpu.EIP)
	}
	if cpu.inFaultDelivery {
		t.Error("inFaultDelivery should be cleared once #DF delivery completes")
	}
}

func TestDeliverFault_FaultDuringDoubleFaultDeliveryTripleFaults(t *testing.T) {
	bus := NewTestX86Bus()
	cpu := NewCPU_X86(bus)

	cpu.inFaultDelivery = true
	cpu.pendingFaultVector = vecDF

	cpu.deliverFault(cpuFault{Vector: vecGP, ErrCode: 0, HasErrCode: true})

	if !cpu.Halted {
		t.Error("Halted: want true after a triple fault")
	}
	if !cpu.TripleFaulted {
		t.Error("TripleFaulted: want true after a fault during #DF delivery")
	}
	if cpu.inFaultDelivery {
		t.Error("inFaultDelivery should be cleared once triple fault halts the CPU")
	}
}

func TestDeliverFault_PageFaultSetsCR2(t *testing.T) {
	bus := NewTestX86Bus()
	cpu := NewCPU_X86(bus)
	cpu.SetSP(0xFFFE)

	cpu.deliverFault(cpuFault{Vector: vecPF, ErrCode: pfPresent, HasErrCode: true, Linear: 0xDEADB000})

	if cpu.CR2 != 0xDEADB000 {
		t.Errorf("CR2: got %#x, want 0xDEADB000 (faulting linear address)", cpu.CR2)
	}
}

func TestContributoryFault_Classification(t *testing.T) {
	contributory := []byte{vecDE, vecTS, vecNP, vecSS, vecGP}
	for _, v := range contributory {
		if !contributoryFault(v) {
			t.Errorf("vector %#x: want contributory", v)
		}
	}
	notContributory := []byte{vecPF, vecNMI, vecDF, vecBP}
	for _, v := range notContributory {
		if contributoryFault(v) {
			t.Errorf("vector %#x: want not contributory", v)
		}
	}
}
