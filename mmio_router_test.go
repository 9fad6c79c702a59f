// mmio_router_test.go - MMIORouter unit tests
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package main

import "testing"

// fakeScreen is a minimal ScreenWriter for LFB tests, independent of any
// build-tagged backend.
type fakeScreen struct {
	dots    []PixelColor
	flushes int
}

func (s *fakeScreen) Write(string)                                  {}
func (s *fakeScreen) Newline()                                      {}
func (s *fakeScreen) Dot(x, y int, c PixelColor)                    { s.dots = append(s.dots, c) }
func (s *fakeScreen) SetCursor(row, col int)                        {}
func (s *fakeScreen) GetCursor() (int, int)                         { return 0, 0 }
func (s *fakeScreen) WriteCharAt(row, col int, ch byte, n int, a *byte) {}
func (s *fakeScreen) Clear()                                        {}
func (s *fakeScreen) FillArea(row, col, w, h int, attr byte)        {}
func (s *fakeScreen) SetAttr(attr byte)                             {}
func (s *fakeScreen) FlushIfNeeded()                                { s.flushes++ }

func TestMMIORouter_PlainMemoryPassthrough(t *testing.T) {
	mem := NewPhysicalMemory(1 << 16)
	r := NewMMIORouter(mem, nil)
	r.Write(0x1000, 0x42)
	if got := r.Read(0x1000); got != 0x42 {
		t.Errorf("Read: got 0x%02X, want 0x42", got)
	}
}

func TestMMIORouter_ObserverNotifiedOutsideWindows(t *testing.T) {
	mem := NewPhysicalMemory(1 << 16)
	r := NewMMIORouter(mem, nil)

	var gotAddr uint32
	var gotPrev, gotNext byte
	r.RegisterObserver(MemoryObserver{
		Predicate: func(addr uint32) bool { return addr == 0x2000 },
		OnAccess: func(addr uint32, prev, next byte) {
			gotAddr, gotPrev, gotNext = addr, prev, next
		},
	})

	r.Write(0x2000, 0x55)
	if gotAddr != 0x2000 || gotPrev != 0 || gotNext != 0x55 {
		t.Errorf("observer got (%#x, %#x, %#x), want (0x2000, 0x00, 0x55)", gotAddr, gotPrev, gotNext)
	}
}

func TestMMIORouter_LAPICWindow(t *testing.T) {
	mem := NewPhysicalMemory(1 << 16)
	devices := NewDeviceSet()
	devices.LAPIC.AttachPIC(devices.PIC)
	r := NewMMIORouter(mem, devices)

	// Task Priority Register lives at offset 0x80 within the LAPIC window.
	r.Write(lapicBase+0x80, 0x07)
	r.Write(lapicBase+0x81, 0x00)
	r.Write(lapicBase+0x82, 0x00)
	r.Write(lapicBase+0x83, 0x00)
	if got := devices.LAPIC.TPR(); got != 0x07 {
		t.Errorf("TPR after byte-lane writes: got %#x, want 0x07", got)
	}
}

func TestMMIORouter_LFBCoalescesPixel(t *testing.T) {
	mem := NewPhysicalMemory(1 << 16)
	r := NewMMIORouter(mem, nil)
	screen := &fakeScreen{}
	r.AttachLFB(0x100000, 4, 4, 32, screen)

	base := uint32(0x100000)
	r.Write(base+0, 0x11) // B
	r.Write(base+1, 0x22) // G
	r.Write(base+2, 0x33) // R
	if len(screen.dots) != 0 {
		t.Fatalf("pixel painted before all 4 bytes arrived: %d dots", len(screen.dots))
	}
	r.Write(base+3, 0x00) // alpha/pad lane, triggers the paint
	if len(screen.dots) != 1 {
		t.Fatalf("got %d dots, want 1", len(screen.dots))
	}
	want := PixelColor{R: 0x33, G: 0x22, B: 0x11}
	if screen.dots[0] != want {
		t.Errorf("pixel: got %+v, want %+v", screen.dots[0], want)
	}
}

func TestMMIORouter_LFBFlushesEvery4KiB(t *testing.T) {
	mem := NewPhysicalMemory(1 << 20)
	r := NewMMIORouter(mem, nil)
	screen := &fakeScreen{}
	r.AttachLFB(0x100000, 64, 64, 32, screen)

	for i := uint32(0); i < 4096; i++ {
		r.Write(0x100000+i, byte(i))
	}
	if screen.flushes != 1 {
		t.Errorf("flushes: got %d, want 1", screen.flushes)
	}
}
