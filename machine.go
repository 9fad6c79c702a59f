// machine.go - top-level orchestrator wiring CPU, memory, devices, BIOS,
// and the boot medium into a runnable machine (§4, §5, §7)
//
// Adapted from cpu_x86_runner.go's wiring role (own the CPU, own the bus,
// drive the run loop, translate host events into guest-visible state) but
// built around the x86 core instead of IE32's bank-window VM, and
// returning the structured RunOutcome enum spec.md §7 names instead of a
// bare error.
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package main

import (
	"fmt"
	"time"
)

// HaltReason distinguishes the two ways a guest can come to a permanent
// stop without the host asking for it (§7).
type HaltReason int

const (
	HaltTriple HaltReason = iota // triple fault
	HaltWait                     // HLT with IF=0 and no pending event
)

func (h HaltReason) String() string {
	if h == HaltTriple {
		return "triple fault"
	}
	return "halted waiting for an interrupt that can never arrive"
}

// RunOutcomeKind is the tag of a RunOutcome (§7).
type RunOutcomeKind int

const (
	RunCompleted RunOutcomeKind = iota
	RunHalted
	RunBudgetExhausted
	RunHostError
)

// RunOutcome is the structured status Machine.Run returns to the host;
// state is always left consistent and restartable (§5, §7).
type RunOutcome struct {
	Kind       RunOutcomeKind
	HaltReason HaltReason
	Err        error
}

func (o RunOutcome) String() string {
	switch o.Kind {
	case RunCompleted:
		return "completed"
	case RunHalted:
		return "halted: " + o.HaltReason.String()
	case RunBudgetExhausted:
		return "budget exhausted"
	case RunHostError:
		return fmt.Sprintf("host error: %v", o.Err)
	}
	return "unknown"
}

// BootPayload is the staged boot image (raw boot sector or El Torito
// image) and the real-mode segment the CPU starts executing at.
type BootPayload struct {
	Data        []byte
	LoadSegment uint16
}

// biosIVTStub is the physical address of a single IRET instruction every
// unclaimed IVT entry points at (installBIOSVectors, §C supplement):
// segment 0xF000, offset 0xFF53, the conventional BIOS ROM IRET location.
const (
	biosIVTStubSeg = 0xF000
	biosIVTStubOff = 0xFF53
)

// Machine bundles everything a single emulated PC needs: CPU, physical
// memory behind the MMIO router, the chipset, BIOS services, and the
// two host boundaries (ScreenWriter, InputSource).
type Machine struct {
	cfg MachineConfig

	mem     *PhysicalMemory
	bus     *MMIORouter
	devices *DeviceSet
	cpu     *CPU_X86
	bios    *BIOSServices

	screen ScreenWriter
	input  InputSource
	boot   BootMedium

	quit bool // set by drainInput on InputQuit; Run exits with RunCompleted
}

// NewMachine validates cfg, allocates memory, wires the chipset and BIOS
// services, installs the real-mode IVT stub table, and stages payload at
// LoadSegment:0000 ready to run (§4, §C supplement).
func NewMachine(cfg MachineConfig, screen ScreenWriter, input InputSource, bootMedium BootMedium, payload BootPayload) (*Machine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	mem := NewPhysicalMemory(uint32(cfg.MemorySize))
	devices := NewDeviceSet()
	if !cfg.EnableAPIC {
		devices.LAPIC = nil
		devices.IOAPIC = nil
	} else {
		devices.LAPIC.AttachPIC(devices.PIC)
	}
	devices.CMOS.SetMemorySizes(baseMemKB(cfg.MemorySize), extMemKB(cfg.MemorySize))

	bus := NewMMIORouter(mem, devices)
	if screen != nil {
		bus.AttachLFB(vbeLFBPhysBase, 1024, 768, 32, screen)
		bus.RegisterObserver(NewVideoMemoryObserver(0xB8000, 80*25*2, screen))
	}

	cpu := NewCPU_X86(bus)
	cpu.SetArch64Capable(cfg.Architecture == ArchX86_64)
	cpu.AttachDevices(devices)
	devices.KBC.OnA20(func(enabled bool) { cpu.A20Enabled = enabled })

	bios := NewBIOSServices(screen, bootMedium, devices.KBC, cfg.MemorySize)
	cpu.AttachBIOS(bios)

	m := &Machine{
		cfg:     cfg,
		mem:     mem,
		bus:     bus,
		devices: devices,
		cpu:     cpu,
		bios:    bios,
		screen:  screen,
		input:   input,
		boot:    bootMedium,
	}

	m.installBIOSVectors()
	m.loadPayload(payload)
	return m, nil
}

func baseMemKB(total uint64) uint16 {
	if total < 640*1024 {
		return uint16(total / 1024)
	}
	return 640
}

func extMemKB(total uint64) uint16 {
	if total <= 1<<20 {
		return 0
	}
	ext := (total - 1<<20) / 1024
	if ext > 0xFFFF {
		ext = 0xFFFF
	}
	return uint16(ext)
}

// installBIOSVectors writes a single IRET at the stub address and
// points every one of the 256 real-mode IVT entries at it, so a guest
// issuing an interrupt this core doesn't model (or a stray hardware IRQ
// with no handler) safely returns instead of jumping into uninitialized
// memory (§C supplement).
func (m *Machine) installBIOSVectors() {
	stubPhys := uint32(biosIVTStubSeg)*16 + biosIVTStubOff
	m.mem.Write(stubPhys, 0xCF) // IRET

	for v := 0; v < 256; v++ {
		addr := uint32(v) * 4
		m.mem.Write(addr+0, byte(biosIVTStubOff))
		m.mem.Write(addr+1, byte(biosIVTStubOff>>8))
		m.mem.Write(addr+2, byte(biosIVTStubSeg))
		m.mem.Write(addr+3, byte(biosIVTStubSeg>>8))
	}
}

// loadPayload copies the boot image to physical LoadSegment:0000 and
// seeds CS:IP there, the common entry point for both BootSignature and
// BootISO media (§4.8, concrete scenario 1).
func (m *Machine) loadPayload(p BootPayload) {
	base := uint32(p.LoadSegment) * 16
	for i, b := range p.Data {
		m.mem.Write(base+uint32(i), b)
	}
	m.cpu.CS = p.LoadSegment
	m.cpu.SetIP(0)
	m.cpu.SS = p.LoadSegment
	m.cpu.SetSP(0xFFFE)
}

// Run drives the guest one instruction at a time until it halts
// permanently, exhausts its budget, or the host asks it to stop via
// MaxInstructions/Debug.StopAfterSecs (0 means unbounded). Input events are
// drained into the keyboard controller at each instruction boundary,
// matching the "lock-free mailboxes sampled at instruction boundaries"
// concurrency model (§5).
func (m *Machine) Run() RunOutcome {
	start := time.Now()
	var executed uint64

	for {
		if m.quit {
			return RunOutcome{Kind: RunCompleted}
		}
		if m.cpu.Halted {
			if m.cpu.TripleFaulted {
				return RunOutcome{Kind: RunHalted, HaltReason: HaltTriple}
			}
			if !m.cpu.IF() {
				return RunOutcome{Kind: RunHalted, HaltReason: HaltWait}
			}
			// Idle but wakeable (§5 "suspension points"): keep ticking
			// devices and polling input so a timer or keyboard IRQ can
			// bring the CPU out of HLT on a later Step.
		}

		if m.cfg.MaxInstructions != 0 && executed >= m.cfg.MaxInstructions {
			return RunOutcome{Kind: RunBudgetExhausted}
		}
		if m.cfg.Debug.StopAfterSecs > 0 && time.Since(start).Seconds() >= m.cfg.Debug.StopAfterSecs {
			return RunOutcome{Kind: RunBudgetExhausted}
		}

		m.drainInput()

		cycles := m.cpu.Step()
		if cycles == 0 {
			cycles = 1 // idle tick: still let timers advance toward IRQ0
		}
		m.cpu.TickDevices(cycles)
		if m.screen != nil {
			m.screen.FlushIfNeeded()
		}

		executed++
	}
}

// drainInput pulls every currently-available host event into the
// keyboard controller's scancode queue without blocking.
func (m *Machine) drainInput() {
	if m.input == nil {
		return
	}
	for {
		ev := m.input.PollEvent()
		switch ev.Kind {
		case InputNone:
			return
		case InputQuit:
			m.quit = true
			return
		case InputKeyDown, InputKeyUp:
			m.devices.KBC.EnqueueScancode(ev.Scancode)
		}
	}
}
