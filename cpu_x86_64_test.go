// cpu_x86_64_test.go - REX.W 64-bit operand and long-mode entry unit tests
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package main

import "testing"

// writeAt copies instruction bytes into the flat test bus starting at addr.
func writeAt(bus *TestX86Bus, addr uint32, b ...byte) {
	for i, v := range b {
		bus.Write(addr+uint32(i), v)
	}
}

func le32(v uint32) []byte {
	return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}

func le64(v uint64) []byte {
	out := make([]byte, 8)
	for i := range out {
		out[i] = byte(v >> (8 * i))
	}
	return out
}

// TestX86_REXIgnoredOutsideLongMode confirms the 0x40-0x4F range keeps its
// legacy INC/DEC r16 meaning until the CPU is actually in long mode, so a
// 32-bit-only configuration can never have a REX prefix silently swallow an
// opcode byte.
func TestX86_REXIgnoredOutsideLongMode(t *testing.T) {
	bus := NewTestX86Bus()
	cpu := NewCPU_X86(bus)
	cpu.SetArch64Capable(true) // capable, but not yet in long mode

	cpu.EAX = 5
	writeAt(bus, 0, 0x48) // DEC AX in real mode, not a REX prefix
	cpu.Step()

	if cpu.LongMode {
		t.Fatal("LongMode became true with no mode-transition instructions executed")
	}
	if cpu.AX() != 4 {
		t.Errorf("AX after 0x48: got %d, want 4 (legacy DEC AX, not REX.W)", cpu.AX())
	}
}

// TestX86_LongModeEntryAndREXMovImm64 drives the full IA-32e entry sequence
// through real opcodes — MOV CR4 (PAE), WRMSR (EFER.LME), MOV CR0 (PE|PG) —
// then confirms a REX.W-prefixed MOV r64, imm64 actually stores a full
// 64-bit value in RAX, the concrete scenario this core previously had no
// path to at all.
func TestX86_LongModeEntryAndREXMovImm64(t *testing.T) {
	bus := NewTestX86Bus()
	cpu := NewCPU_X86(bus)
	cpu.SetArch64Capable(true)

	addr := uint32(0)
	emit := func(b ...byte) {
		writeAt(bus, addr, b...)
		addr += uint32(len(b))
	}

	emit(append([]byte{0xB8}, le32(cr4PAE)...)...)           // MOV EAX, CR4_PAE
	emit(0x0F, 0x22, 0xE0)                                    // MOV CR4, EAX
	emit(append([]byte{0xB9}, le32(msrEFER)...)...)           // MOV ECX, IA32_EFER
	emit(append([]byte{0xB8}, le32(eferLME)...)...)           // MOV EAX, EFER_LME
	emit(append([]byte{0xBA}, le32(0)...)...)                 // MOV EDX, 0
	emit(0x0F, 0x30)                                          // WRMSR
	emit(append([]byte{0xB8}, le32(cr0PE|cr0PG)...)...)       // MOV EAX, PE|PG
	emit(0x0F, 0x22, 0xC0)                                    // MOV CR0, EAX

	const wantRAX = 0x0123456789ABCDEF
	emit(append([]byte{0x48, 0xB8}, le64(wantRAX)...)...) // REX.W + MOV RAX, imm64

	// Identity-map the low 1 GiB (PML4[0] -> PDPT at 0x2000, PDPTE[0] a
	// present 1 GiB page) so fetches keep working once paging turns on.
	writeAt(bus, 0x1000, le64(0x2003)...)
	writeAt(bus, 0x2000, le64(0x83)...)
	cpu.CR3 = 0x1000

	for i := 0; i < 9; i++ {
		cpu.Step()
	}

	if !cpu.LongMode {
		t.Fatal("LongMode never became true after CR4.PAE/EFER.LME/CR0.PG sequence")
	}
	if got := cpu.getGPR64(0); got != wantRAX {
		t.Errorf("RAX after REX.W MOV r64,imm64: got %#x, want %#x", got, wantRAX)
	}
	if cpu.EAX != uint32(wantRAX) {
		t.Errorf("EAX (low half) after 64-bit MOV: got %#x, want %#x", cpu.EAX, uint32(wantRAX))
	}
}

// TestX86_Arch64IncapableNeverEntersLongMode confirms a machine configured
// as 32-bit-only (SetArch64Capable(false), the NewMachine default for
// ArchX86) cannot be driven into long mode no matter what a guest writes to
// the control registers and EFER.
func TestX86_Arch64IncapableNeverEntersLongMode(t *testing.T) {
	bus := NewTestX86Bus()
	cpu := NewCPU_X86(bus)
	// cpu.arch64Capable defaults false; SetArch64Capable deliberately not called.

	cpu.CR4 = cr4PAE
	cpu.EFER = eferLME
	cpu.setCRValue(0, cr0PE|cr0PG)

	if cpu.LongMode {
		t.Fatal("LongMode became true on an arch64-incapable core")
	}
}

// TestX86_REXExtendedRegisters exercises R8-R15 addressing via REX.B on both
// the MOV r64,imm64 shorthand and a register-direct ModR/M operand.
func TestX86_REXExtendedRegisters(t *testing.T) {
	bus := NewTestX86Bus()
	cpu := NewCPU_X86(bus)
	cpu.SetArch64Capable(true)
	cpu.LongMode = true // bypass the control-register dance; tested separately above

	addr := uint32(0)
	emit := func(b ...byte) {
		writeAt(bus, addr, b...)
		addr += uint32(len(b))
	}

	// REX.WB + B8+0 (reg field folded with REX.B -> R8) + imm64: MOV R8, imm64
	emit(append([]byte{0x49, 0xB8}, le64(0xDEADBEEFCAFEBABE)...)...)
	cpu.Step()
	// REX.WB + 89 /r, ModRM 11 000 000 (mod=3,reg=RAX,rm=R8 via REX.B): MOV R8, RAX
	emit(0x49, 0x89, 0xC0)
	cpu.setGPR64(0, 0x1122334455667788) // RAX
	cpu.Step()

	if got := cpu.getGPR64(8); got != 0x1122334455667788 {
		t.Errorf("R8 after MOV R8,RAX via REX.B rm: got %#x, want 0x1122334455667788", got)
	}
}

// TestX86_ALU64BitWidthNotTruncated checks a REX.W ADD actually carries
// across the 32-bit boundary, which a 32-bit-only implementation could
// never do correctly.
func TestX86_ALU64BitWidthNotTruncated(t *testing.T) {
	bus := NewTestX86Bus()
	cpu := NewCPU_X86(bus)
	cpu.SetArch64Capable(true)
	cpu.LongMode = true

	cpu.setGPR64(0, 0xFFFFFFFF00000001) // RAX
	cpu.setGPR64(1, 1)                  // RCX
	// REX.W + 01 /r (ADD Ev,Gv), ModRM 11 001 000 (reg=RCX, rm=RAX): ADD RAX, RCX
	writeAt(bus, 0, 0x48, 0x01, 0xC8)
	cpu.Step()

	if got := cpu.getGPR64(0); got != 0xFFFFFFFF00000002 {
		t.Errorf("RAX after 64-bit ADD: got %#x, want 0xFFFFFFFF00000002", got)
	}
}

// TestX86_MOVSXD sign-extends a 32-bit source into a 64-bit destination
// under REX.W (opcode 0x63, previously an entirely unbound slot).
func TestX86_MOVSXD(t *testing.T) {
	bus := NewTestX86Bus()
	cpu := NewCPU_X86(bus)
	cpu.SetArch64Capable(true)
	cpu.LongMode = true

	cpu.setGPR64(1, 0xFFFFFFFFFFFFFFFF)
	cpu.ECX = 0x80000000 // negative as int32
	// REX.W + 63 /r, ModRM 11 000 001 (reg=RAX, rm=RCX): MOVSXD RAX, ECX
	writeAt(bus, 0, 0x48, 0x63, 0xC1)
	cpu.Step()

	want := uint64(0xFFFFFFFF80000000)
	if got := cpu.getGPR64(0); got != want {
		t.Errorf("RAX after MOVSXD: got %#x, want %#x", got, want)
	}
}

// TestX86_PushPopDefaultTo64InLongMode checks PUSH/POP use 64-bit operands
// once LongMode is set, regardless of REX.W (there is no 32-bit push/pop
// encoding in long mode).
func TestX86_PushPopDefaultTo64InLongMode(t *testing.T) {
	bus := NewTestX86Bus()
	cpu := NewCPU_X86(bus)
	cpu.SetArch64Capable(true)
	cpu.LongMode = true
	cpu.ESP = 0x2000

	cpu.setGPR64(0, 0x1122334455667788) // RAX
	writeAt(bus, 0, 0x50)                // PUSH RAX (no REX needed)
	cpu.Step()

	if cpu.ESP != 0x2000-8 {
		t.Errorf("ESP after PUSH in long mode: got %#x, want %#x", cpu.ESP, 0x2000-8)
	}

	writeAt(bus, 1, 0x58) // POP RAX
	cpu.setGPR64(0, 0)
	cpu.Step()
	if got := cpu.getGPR64(0); got != 0x1122334455667788 {
		t.Errorf("RAX after POP in long mode: got %#x, want 0x1122334455667788", got)
	}
}

// TestX86_Grp7_LGDTAndSGDT round-trips a GDTR value through LGDT/SGDT.
func TestX86_Grp7_LGDTAndSGDT(t *testing.T) {
	bus := NewTestX86Bus()
	cpu := NewCPU_X86(bus)

	// Operand for LGDT: a memory operand holding {limit u16, base u32}.
	// ModRM for "[disp32]" with no SIB in 32-bit addressing: mod=00 rm=101, disp32 follows.
	opAddr := uint32(0x100)
	writeAt(bus, opAddr, 0xFF, 0x00, 0x00, 0x10, 0x00, 0x00) // limit=0xFF, base=0x100000

	addr := uint32(0)
	emit := func(b ...byte) {
		writeAt(bus, addr, b...)
		addr += uint32(len(b))
	}
	emit(0x0F, 0x01, 0x15) // Grp7 /2 (LGDT), mod=00 reg=010 rm=101 -> disp32
	emit(le32(opAddr)...)
	cpu.Step()

	if cpu.GDTR.Limit != 0xFF || cpu.GDTR.Base != 0x100000 {
		t.Fatalf("GDTR after LGDT: got limit=%#x base=%#x, want limit=0xFF base=0x100000", cpu.GDTR.Limit, cpu.GDTR.Base)
	}

	sgdtAddr := uint32(0x200)
	emit(0x0F, 0x01, 0x05) // Grp7 /0 (SGDT), mod=00 reg=000 rm=101 -> disp32
	emit(le32(sgdtAddr)...)
	cpu.Step()

	if bus.Read(sgdtAddr) != 0xFF || bus.Read(sgdtAddr+1) != 0x00 {
		t.Errorf("SGDT limit bytes wrong: %02x %02x", bus.Read(sgdtAddr), bus.Read(sgdtAddr+1))
	}
	if bus.Read(sgdtAddr+2) != 0x00 || bus.Read(sgdtAddr+5) != 0x00 || bus.Read(sgdtAddr+4) != 0x10 {
		t.Errorf("SGDT base bytes wrong: %02x %02x %02x %02x", bus.Read(sgdtAddr+2), bus.Read(sgdtAddr+3), bus.Read(sgdtAddr+4), bus.Read(sgdtAddr+5))
	}
}

// TestX86_CLTSClearsTaskSwitchedBit.
func TestX86_CLTSClearsTaskSwitchedBit(t *testing.T) {
	bus := NewTestX86Bus()
	cpu := NewCPU_X86(bus)
	cpu.CR0 = cr0TS

	writeAt(bus, 0, 0x0F, 0x06) // CLTS
	cpu.Step()

	if cpu.CR0&cr0TS != 0 {
		t.Error("CR0.TS still set after CLTS")
	}
}

// TestX86_LMSWNeverClearsProtectionEnable matches real hardware: LMSW can
// set PE but never clear it once set.
func TestX86_LMSWNeverClearsProtectionEnable(t *testing.T) {
	bus := NewTestX86Bus()
	cpu := NewCPU_X86(bus)
	cpu.CR0 = cr0PE

	cpu.EAX = 0x0000 // would clear every low bit if honored literally
	writeAt(bus, 0, 0x0F, 0x01, 0xF0) // Grp7 /6 (LMSW), mod=11 reg=110 rm=000 (EAX)
	cpu.Step()

	if cpu.CR0&cr0PE == 0 {
		t.Error("LMSW cleared CR0.PE, which real hardware never allows")
	}
}

// TestX86_WRMSR_RDMSR_EFERRoundTrip confirms the one modeled MSR round-trips
// and any other index is a documented no-op rather than a fault.
func TestX86_WRMSR_RDMSR_EFERRoundTrip(t *testing.T) {
	bus := NewTestX86Bus()
	cpu := NewCPU_X86(bus)

	cpu.ECX = msrEFER
	cpu.EDX = 0
	cpu.EAX = eferLME
	writeAt(bus, 0, 0x0F, 0x30) // WRMSR
	cpu.Step()

	cpu.EAX, cpu.EDX = 0, 0
	writeAt(bus, 2, 0x0F, 0x32) // RDMSR
	cpu.Step()

	if cpu.EAX != eferLME {
		t.Errorf("RDMSR EFER: got EAX=%#x, want %#x", cpu.EAX, eferLME)
	}

	cpu.ECX = 0xDEADBEEF // unmodeled MSR
	cpu.EAX, cpu.EDX = 0x1234, 0x5678
	writeAt(bus, 4, 0x0F, 0x30) // WRMSR: must not panic or fault
	cpu.Step()
}
