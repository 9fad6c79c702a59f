// physical_memory.go - flat byte-addressed physical store (§4.1)
//
// Grounded on the deleted machine_bus.go's role as the X86Bus
// implementation; the page-bitmap fast path and sealed/mutable split are
// gone (that machine never paged the guest's own RAM, this one does via
// paging.go), but the shape — a flat byte slice behind the X86Bus
// interface, with port I/O delegated to the CPU's own DeviceSet dispatch
// — carries over directly.
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package main

import "fmt"

// PhysicalMemory is the flat byte store backing guest RAM, wrapped by an
// MMIORouter before it ever reaches the CPU's X86Bus.
type PhysicalMemory struct {
	bytes []byte
}

// NewPhysicalMemory allocates size bytes of guest RAM, zeroed.
func NewPhysicalMemory(size uint32) *PhysicalMemory {
	return &PhysicalMemory{bytes: make([]byte, size)}
}

func (m *PhysicalMemory) Size() uint32 { return uint32(len(m.bytes)) }

func (m *PhysicalMemory) Read(addr uint32) byte {
	if int(addr) >= len(m.bytes) {
		return 0
	}
	return m.bytes[addr]
}

func (m *PhysicalMemory) Write(addr uint32, v byte) {
	if int(addr) >= len(m.bytes) {
		return
	}
	m.bytes[addr] = v
}

// LoadAt copies data into physical memory starting at addr, used by the
// boot loader to stage a boot sector or El Torito image (§4.6 load/boot
// path). Bytes that would fall past the end of RAM are silently dropped,
// matching the "writes outside any window... silently dropped" rule
// applied to out-of-range physical addresses.
func (m *PhysicalMemory) LoadAt(addr uint32, data []byte) error {
	if int(addr) > len(m.bytes) {
		return fmt.Errorf("physical memory: load at %#x exceeds %d-byte store", addr, len(m.bytes))
	}
	n := copy(m.bytes[addr:], data)
	_ = n
	return nil
}
