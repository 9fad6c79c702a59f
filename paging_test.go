// paging_test.go - MMU linear-to-physical translation unit tests
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package main

import "testing"

// TestPaging_IdentityWhenDisabled confirms translate() is the identity
// mapping while CR0.PG is clear, matching real-mode/protected-mode-without-
// paging behavior.
func TestPaging_IdentityWhenDisabled(t *testing.T) {
	bus := NewTestX86Bus()
	cpu := NewCPU_X86(bus)

	if got := cpu.translate(0x12345, false); got != 0x12345 {
		t.Errorf("translate with PG=0: got %#x, want identity 0x12345", got)
	}
}

// TestPaging_Translate32_BasicMapping builds a minimal two-level page
// directory/table pair and confirms a 4 KiB page maps correctly.
func TestPaging_Translate32_BasicMapping(t *testing.T) {
	bus := NewTestX86Bus()
	cpu := NewCPU_X86(bus)

	const pdBase = 0x1000
	const ptBase = 0x2000
	const physPage = 0x9000

	cpu.CR3 = pdBase
	cpu.writePhys32(pdBase, ptBase|0x3)         // PDE[0]: present, writable -> ptBase
	cpu.writePhys32(ptBase, physPage|0x3)       // PTE[0]: present, writable -> physPage
	cpu.CR0 = cr0PG

	linear := uint64(0x00000ABC) // PD index 0, PT index 0, offset 0xABC
	got := cpu.translate(linear, false)
	want := uint32(physPage | 0xABC)
	if got != want {
		t.Errorf("translate32: got %#x, want %#x", got, want)
	}
}

// TestPaging_Translate32_NotPresentFaults confirms a missing PDE raises #PF
// with the not-present bit clear in the error code.
func TestPaging_Translate32_NotPresentFaults(t *testing.T) {
	bus := NewTestX86Bus()
	cpu := NewCPU_X86(bus)
	cpu.CR3 = 0x1000
	cpu.CR0 = cr0PG

	defer func() {
		r := recover()
		f, ok := r.(cpuFault)
		if !ok {
			t.Fatalf("expected a cpuFault panic, got %v", r)
		}
		if f.Vector != vecPF {
			t.Errorf("fault vector: got %#x, want #PF (%#x)", f.Vector, vecPF)
		}
		if f.ErrCode&pfPresent != 0 {
			t.Errorf("error code present bit set for a not-present PDE: %#x", f.ErrCode)
		}
	}()
	cpu.translate(0x1000, false)
}

// TestPaging_Translate32_PSELargePage exercises a CR4.PSE 4 MiB page.
func TestPaging_Translate32_PSELargePage(t *testing.T) {
	bus := NewTestX86Bus()
	cpu := NewCPU_X86(bus)

	const pdBase = 0x1000
	const physBase = 0x00400000 // 4 MiB aligned

	cpu.CR3 = pdBase
	cpu.writePhys32(pdBase, physBase|0x83) // present, writable, PS=1
	cpu.CR0 = cr0PG
	cpu.CR4 = cr4PSE

	linear := uint64(0x00001234) // PD index 0 (lin>>22 == 0), within the mapped 4 MiB page
	got := cpu.translate(linear, false)
	want := uint32(physBase | (uint32(linear) & 0x3FFFFF))
	if got != want {
		t.Errorf("PSE translate: got %#x, want %#x", got, want)
	}
}

// TestPaging_TranslatePAE_PageFault exercises the PAE 3-level walk with a
// present PDPTE but a not-present PDE, concrete scenario 3 from
// the boot-sequence catalogue: a PAE guest touching an unmapped page.
func TestPaging_TranslatePAE_PageFault(t *testing.T) {
	bus := NewTestX86Bus()
	cpu := NewCPU_X86(bus)

	const pdptBase = 0x1000
	const pdBase = 0x2000

	cpu.CR3 = pdptBase
	cpu.writePhys64(pdptBase, pdBase|0x1) // PDPTE[0]: present
	cpu.writePhys64(pdBase, 0x0)          // PDE[0]: not present
	cpu.CR0 = cr0PG
	cpu.CR4 = cr4PAE

	defer func() {
		r := recover()
		f, ok := r.(cpuFault)
		if !ok {
			t.Fatalf("expected a cpuFault panic, got %v", r)
		}
		if f.Vector != vecPF {
			t.Errorf("fault vector: got %#x, want #PF", f.Vector)
		}
		if f.Linear != 0x1000 {
			t.Errorf("fault linear address: got %#x, want 0x1000", f.Linear)
		}
	}()
	cpu.translate(0x1000, false)
}

// TestPaging_TranslatePAE_2MiBPage exercises a PAE large page at the PDE
// level.
func TestPaging_TranslatePAE_2MiBPage(t *testing.T) {
	bus := NewTestX86Bus()
	cpu := NewCPU_X86(bus)

	const pdptBase = 0x1000
	const pdBase = 0x2000
	const physBase = 0x00200000 // 2 MiB aligned

	linear := uint64(physBase + 0x1234)
	pdIndex := (linear >> 21) & 0x1FF

	cpu.CR3 = pdptBase
	cpu.writePhys64(pdptBase, pdBase|0x1)
	cpu.writePhys64(uint32(pdBase+pdIndex*8), physBase|0x83) // present, writable, PS=1
	cpu.CR0 = cr0PG
	cpu.CR4 = cr4PAE

	got := cpu.translate(linear, false)
	want := uint32(physBase + 0x1234)
	if got != want {
		t.Errorf("PAE 2MiB translate: got %#x, want %#x", got, want)
	}
}

// TestPaging_TranslateLongMode_4KPage exercises the 4-level PML4/PDPT/PD/PT
// walk used once LongMode is active.
func TestPaging_TranslateLongMode_4KPage(t *testing.T) {
	bus := NewTestX86Bus()
	cpu := NewCPU_X86(bus)
	cpu.SetArch64Capable(true)

	const pml4Base = 0x1000
	const pdptBase = 0x2000
	const pdBase = 0x3000
	const ptBase = 0x4000
	const physPage = 0x9000

	cpu.writePhys64(pml4Base, pdptBase|0x3)
	cpu.writePhys64(pdptBase, pdBase|0x3)
	cpu.writePhys64(pdBase, ptBase|0x3)
	cpu.writePhys64(ptBase, physPage|0x3)

	cpu.CR3 = pml4Base
	cpu.CR4 = cr4PAE
	cpu.EFER = eferLME
	cpu.CR0 = cr0PE | cr0PG
	cpu.updateModeFromControlRegs()
	if !cpu.LongMode {
		t.Fatal("test setup failed to reach LongMode")
	}

	got := cpu.translate(0x222, false)
	want := uint32(physPage | 0x222)
	if got != want {
		t.Errorf("long-mode translate: got %#x, want %#x", got, want)
	}
}

// TestPaging_WriteFaultOnReadOnlyPage confirms a write through a read-only
// PTE raises #PF with the write bit set in the error code.
func TestPaging_WriteFaultOnReadOnlyPage(t *testing.T) {
	bus := NewTestX86Bus()
	cpu := NewCPU_X86(bus)

	const pdBase = 0x1000
	const ptBase = 0x2000

	cpu.CR3 = pdBase
	cpu.writePhys32(pdBase, ptBase|0x3)  // PDE present+writable
	cpu.writePhys32(ptBase, 0x9000|0x1)  // PTE present, NOT writable
	cpu.CR0 = cr0PG

	defer func() {
		r := recover()
		f, ok := r.(cpuFault)
		if !ok {
			t.Fatalf("expected a cpuFault panic, got %v", r)
		}
		if f.ErrCode&pfWrite == 0 {
			t.Errorf("error code write bit not set: %#x", f.ErrCode)
		}
		if f.ErrCode&pfPresent == 0 {
			t.Errorf("error code present bit should be set (protection violation): %#x", f.ErrCode)
		}
	}()
	cpu.translate(0x0, true)
}
