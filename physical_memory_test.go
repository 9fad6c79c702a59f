// physical_memory_test.go - PhysicalMemory unit tests
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package main

import "testing"

func TestPhysicalMemory_ReadWrite(t *testing.T) {
	m := NewPhysicalMemory(4096)
	if m.Size() != 4096 {
		t.Fatalf("Size: got %d, want 4096", m.Size())
	}
	m.Write(10, 0xAB)
	if got := m.Read(10); got != 0xAB {
		t.Errorf("Read(10): got 0x%02X, want 0xAB", got)
	}
	if got := m.Read(11); got != 0 {
		t.Errorf("Read(11): got 0x%02X, want 0", got)
	}
}

func TestPhysicalMemory_OutOfRange(t *testing.T) {
	m := NewPhysicalMemory(16)
	if got := m.Read(1000); got != 0 {
		t.Errorf("out-of-range Read: got 0x%02X, want 0", got)
	}
	m.Write(1000, 0xFF) // must not panic
}

func TestPhysicalMemory_LoadAt(t *testing.T) {
	m := NewPhysicalMemory(64)
	data := []byte{1, 2, 3, 4}
	if err := m.LoadAt(8, data); err != nil {
		t.Fatalf("LoadAt: %v", err)
	}
	for i, b := range data {
		if got := m.Read(uint32(8 + i)); got != b {
			t.Errorf("byte %d: got 0x%02X, want 0x%02X", i, got, b)
		}
	}
}

func TestPhysicalMemory_LoadAtOverflow(t *testing.T) {
	m := NewPhysicalMemory(4)
	if err := m.LoadAt(8, []byte{1, 2, 3}); err == nil {
		t.Error("expected error loading at an address past the end of memory")
	}
}

func TestPhysicalMemory_LoadAtTruncates(t *testing.T) {
	m := NewPhysicalMemory(4)
	if err := m.LoadAt(2, []byte{0xAA, 0xBB, 0xCC}); err != nil {
		t.Fatalf("LoadAt: %v", err)
	}
	if got := m.Read(2); got != 0xAA {
		t.Errorf("byte 0: got 0x%02X, want 0xAA", got)
	}
	if got := m.Read(3); got != 0xBB {
		t.Errorf("byte 1: got 0x%02X, want 0xBB", got)
	}
}
