// devices_test.go - 8259/8254/CMOS/8042/APIC/speaker/observer unit tests
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package main

import "testing"

func TestPIC8259_RaiseAndPendingVector(t *testing.T) {
	pic := NewPIC8259()
	pic.Raise(1)

	vec, ok := pic.PendingVector()
	if !ok {
		t.Fatal("expected a pending vector for IRQ1")
	}
	if vec != 0x08+1 {
		t.Errorf("vector: got %#x, want %#x (master base 0x08 + IRQ1)", vec, 0x08+1)
	}

	_, ok = pic.PendingVector()
	if ok {
		t.Error("IRQ1 should be latched in-service and not pending again")
	}
}

func TestPIC8259_MaskedLineNeverPends(t *testing.T) {
	pic := NewPIC8259()
	pic.Out(0x21, 0xFF) // mask all master lines
	pic.Raise(3)

	if _, ok := pic.PendingVector(); ok {
		t.Error("a masked IRQ should not produce a pending vector")
	}
}

func TestPIC8259_SlaveCascadeRequiresMasterIRQ2Unmasked(t *testing.T) {
	pic := NewPIC8259()
	pic.Out(0x21, 0x04) // mask master's cascade line (IRQ2)
	pic.Raise(8)        // slave IRQ0 (global IRQ8)

	if _, ok := pic.PendingVector(); ok {
		t.Error("slave IRQs should not surface while the cascade line is masked")
	}
}

func TestPIC8259_EOIClearsInService(t *testing.T) {
	pic := NewPIC8259()
	pic.Raise(0)
	if _, ok := pic.PendingVector(); !ok {
		t.Fatal("expected IRQ0 pending")
	}
	pic.Out(0x20, 0x20) // non-specific EOI on master
	pic.Raise(0)
	if _, ok := pic.PendingVector(); !ok {
		t.Error("IRQ0 should be re-raisable after EOI")
	}
}

func TestPIT8254_TickUnderflowRaisesIRQ0(t *testing.T) {
	pic := NewPIC8259()
	pit := NewPIT8254(pic)
	pit.Out(0x43, 0x34) // channel 0, lobyte/hibyte, mode 2
	// The lobyte/hibyte access mode only commits a clean reload into count
	// once a full low+high pair lands with the other half already settled,
	// so the pair is written twice to reach a stable count=2 before ticking.
	pit.Out(0x40, 0x02)
	pit.Out(0x40, 0x00)
	pit.Out(0x40, 0x02)
	pit.Out(0x40, 0x00)

	pit.Tick(2)
	if _, ok := pic.PendingVector(); ok {
		t.Fatal("IRQ0 should not fire before the channel underflows")
	}
	pit.Tick(1)
	if _, ok := pic.PendingVector(); !ok {
		t.Error("expected IRQ0 pending once channel 0 underflows")
	}
}

func TestPIT8254_Channel2Reload(t *testing.T) {
	pit := NewPIT8254(nil)
	pit.Out(0x43, 0xB6) // channel 2, lobyte/hibyte, mode 3
	pit.Out(0x42, 0x34)
	pit.Out(0x42, 0x12)

	if got := pit.Channel2Reload(); got != 0x1234 {
		t.Errorf("Channel2Reload: got %#x, want 0x1234", got)
	}
}

func TestPIT8254_LatchFreezesCountAcrossReads(t *testing.T) {
	pit := NewPIT8254(nil)
	pit.Out(0x43, 0x00) // channel 0, latch command
	lo := pit.In(0x40)
	hi := pit.In(0x40)
	// Default post-reset reload/count is 0xFFFF.
	if lo != 0xFF || hi != 0xFF {
		t.Errorf("latched count bytes: got lo=%#x hi=%#x, want 0xFF,0xFF", lo, hi)
	}
}

func TestCMOSRTC_IndexDataRoundTrip(t *testing.T) {
	c := NewCMOSRTC()
	c.SetTime(30, 15, 10, 3, 21, 6, 2026)

	c.Out(0x70, cmosRegSeconds)
	if got := c.In(0x71); got != 30 {
		t.Errorf("seconds: got %d, want 30", got)
	}
	c.Out(0x70, cmosRegYear)
	if got := c.In(0x71); got != 26 {
		t.Errorf("year (mod 100): got %d, want 26", got)
	}
}

func TestCMOSRTC_StatusBDefaultsToBinaryMode(t *testing.T) {
	c := NewCMOSRTC()
	c.Out(0x70, cmosRegStatusB)
	if got := c.In(0x71); got&0x02 == 0 {
		t.Errorf("status B: got %#x, want binary-mode bit (0x02) set", got)
	}
}

func TestCMOSRTC_SetMemorySizes(t *testing.T) {
	c := NewCMOSRTC()
	c.SetMemorySizes(640, 15360)

	c.Out(0x70, cmosRegBaseMemLow)
	lo := c.In(0x71)
	c.Out(0x70, cmosRegBaseMemHigh)
	hi := c.In(0x71)
	got := uint16(lo) | uint16(hi)<<8
	if got != 640 {
		t.Errorf("base memory size: got %d, want 640", got)
	}
}

func TestKBC8042_EnqueueAndReadScancode(t *testing.T) {
	k := NewKBC8042()
	if k.HasData() {
		t.Fatal("empty KBC should report no data")
	}
	k.EnqueueScancode(0x1E) // 'A' make code

	if !k.HasData() {
		t.Fatal("expected data after EnqueueScancode")
	}
	if got := k.In(0x64); got&kbcStatusOutputFull == 0 {
		t.Error("status register should show output-buffer-full")
	}
	peek, ok := k.PeekScancode()
	if !ok || peek != 0x1E {
		t.Errorf("PeekScancode: got (%#x,%v), want (0x1E,true)", peek, ok)
	}
	if got := k.In(0x60); got != 0x1E {
		t.Errorf("In(0x60): got %#x, want 0x1E", got)
	}
	if k.HasData() {
		t.Error("buffer should be empty after consuming the only scancode")
	}
}

func TestKBC8042_A20GateCallback(t *testing.T) {
	k := NewKBC8042()
	var gotEnabled bool
	var called bool
	k.OnA20(func(enabled bool) {
		called = true
		gotEnabled = enabled
	})

	k.Out(0x64, 0xD1) // Write Output Port command
	k.Out(0x60, 0x02) // bit 1 set -> A20 enabled

	if !called {
		t.Fatal("expected the A20 callback to fire")
	}
	if !gotEnabled {
		t.Error("A20 callback: want enabled=true")
	}
}

func TestLocalAPIC_TPRReadWrite(t *testing.T) {
	l := NewLocalAPIC()
	l.WriteMMIO(lapicRegTPR, 0x20)
	if got := l.TPR(); got != 0x20 {
		t.Errorf("TPR: got %#x, want 0x20", got)
	}
	if got := l.ReadMMIO(lapicRegTPR); got != 0x20 {
		t.Errorf("ReadMMIO(TPR): got %#x, want 0x20", got)
	}
}

func TestLocalAPIC_SpuriousDefaultsSoftwareEnabled(t *testing.T) {
	l := NewLocalAPIC()
	if got := l.ReadMMIO(lapicRegSpurious); got&0x100 == 0 {
		t.Errorf("spurious register: got %#x, want APIC software-enable bit set", got)
	}
}

func TestIOAPIC_RedirectionTableWriteAndRead(t *testing.T) {
	io := NewIOAPIC()
	// Redirection entry for IRQ5: low dword at 0x10+5*2=0x1A, high at 0x1B.
	io.WriteMMIO(0x00, 0x1A)
	io.WriteMMIO(0x10, 0x21) // vector 0x21, mask bit clear

	vec, masked := io.RedirectionVector(5)
	if vec != 0x21 {
		t.Errorf("vector: got %#x, want 0x21", vec)
	}
	if masked {
		t.Error("entry should be unmasked after an explicit write")
	}
}

func TestIOAPIC_DefaultsAllMasked(t *testing.T) {
	io := NewIOAPIC()
	_, masked := io.RedirectionVector(0)
	if !masked {
		t.Error("IOAPIC redirection entries should start masked")
	}
}

// TestPCSpeaker_PortLogicWithoutAudioBackend exercises the pure port 0x61
// gate/reload logic on a bare zero-value PCSpeaker, deliberately bypassing
// NewPCSpeaker (and its real oto.NewContext audio backend) since nothing
// in this register-level behavior depends on an actual audio device.
func TestPCSpeaker_PortLogicWithoutAudioBackend(t *testing.T) {
	s := &PCSpeaker{}
	s.Out(0x61, 0x03)
	if got := s.In(0x61); got != 0x03 {
		t.Errorf("In(0x61) after gate enable: got %#x, want 0x03", got)
	}

	s.SetReload(1193182 / 440) // ~440 Hz (concert A)
	if got := s.periodHz.Load(); got < 438 || got > 442 {
		t.Errorf("periodHz: got %d, want ~440", got)
	}

	s.SetReload(0)
	if got := s.periodHz.Load(); got != 0 {
		t.Errorf("periodHz after zero reload: got %d, want 0", got)
	}
}

func TestPCSpeaker_ReadProducesSquareWaveWhenGated(t *testing.T) {
	s := &PCSpeaker{}
	s.Out(0x61, 0x03)
	s.SetReload(1193182 / 1000) // 1 kHz

	buf := make([]byte, 4*8)
	n, err := s.Read(buf)
	if err != nil {
		t.Fatalf("Read: unexpected error %v", err)
	}
	if n != len(buf) {
		t.Errorf("Read: got n=%d, want %d", n, len(buf))
	}

	allZero := true
	for _, b := range buf {
		if b != 0 {
			allZero = false
			break
		}
	}
	if allZero {
		t.Error("expected non-zero samples while gated and reloaded")
	}
}

// fakeScreenWriter is a minimal local ScreenWriter fake, matching the
// package's preference for small local test helpers over the headless
// build-tagged backend.
type fakeScreenWriter struct {
	chars      [][3]int // row, col, ch
	attrs      []byte
	writes     []string
	newlines   int
	clears     int
	cursorRow  int
	cursorCol  int
}

func (f *fakeScreenWriter) Write(s string)                 { f.writes = append(f.writes, s) }
func (f *fakeScreenWriter) Newline()                       { f.newlines++ }
func (f *fakeScreenWriter) Dot(x, y int, color PixelColor) {}
func (f *fakeScreenWriter) SetCursor(row, col int)         { f.cursorRow, f.cursorCol = row, col }
func (f *fakeScreenWriter) GetCursor() (int, int)          { return f.cursorRow, f.cursorCol }
func (f *fakeScreenWriter) WriteCharAt(row, col int, ch byte, count int, attr *byte) {
	f.chars = append(f.chars, [3]int{row, col, int(ch)})
}
func (f *fakeScreenWriter) Clear()                                 { f.clears++ }
func (f *fakeScreenWriter) FillArea(row, col, w, h int, attr byte) {}
func (f *fakeScreenWriter) SetAttr(attr byte)                      { f.attrs = append(f.attrs, attr) }
func (f *fakeScreenWriter) FlushIfNeeded()                         {}

func TestVideoMemoryObserver_CharAndAttrDispatch(t *testing.T) {
	sink := &fakeScreenWriter{}
	ob := NewVideoMemoryObserver(0xB8000, 80*25*2, sink)

	if !ob.Predicate(0xB8000) {
		t.Fatal("predicate should match the start of the video window")
	}
	if ob.Predicate(0xB8000 + 80*25*2) {
		t.Error("predicate should not match past the window's size")
	}

	ob.OnAccess(0xB8000, 0, 'A') // row 0, col 0, char cell
	ob.OnAccess(0xB8001, 0, 0x1F) // row 0, col 0, attribute cell

	if len(sink.chars) != 1 || sink.chars[0] != [3]int{0, 0, int('A')} {
		t.Errorf("chars: got %v, want [[0 0 65]]", sink.chars)
	}
	if len(sink.attrs) != 1 || sink.attrs[0] != 0x1F {
		t.Errorf("attrs: got %v, want [0x1F]", sink.attrs)
	}
}

func TestVideoMemoryObserver_SecondRowIndexing(t *testing.T) {
	sink := &fakeScreenWriter{}
	ob := NewVideoMemoryObserver(0xB8000, 80*25*2, sink)

	// Cell (row=1, col=5) -> cellIndex = 85 -> byte offset 170.
	ob.OnAccess(0xB8000+170, 0, 'Z')
	if len(sink.chars) != 1 || sink.chars[0] != [3]int{1, 5, int('Z')} {
		t.Errorf("chars: got %v, want [[1 5 90]]", sink.chars)
	}
}
