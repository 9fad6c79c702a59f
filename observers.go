// observers.go - memory-access observer/watchpoint mechanism (§3, §4.1, §9)
//
// Grounded on the teacher's interface-segregation style (video_interface.go
// splits VideoOutput/VideoSource/KeyboardInput into narrow capability
// interfaces); an observer here is the same idea applied to memory: a
// predicate plus a callback, registered once at boot and consulted after
// every guest write with no back-reference into CPU state (§9: "observers
// hold no back-reference — they receive the arguments they need at call
// time").
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package main

// MemoryObserver is consulted after every guest write that isn't claimed
// by an MMIO window. Predicate and OnAccess must be pure with respect to
// CPU state (§5): they may only mutate state the observer itself captured
// at construction.
type MemoryObserver struct {
	Predicate func(addr uint32) bool
	OnAccess  func(addr uint32, prev, next byte)
}

// observerSet holds the registered observers for an MMIORouter. Reads
// never consult observers; only writes do (§4.1: "after every guest
// write").
type observerSet struct {
	observers []MemoryObserver
}

func (o *observerSet) register(ob MemoryObserver) {
	o.observers = append(o.observers, ob)
}

func (o *observerSet) notify(addr uint32, prev, next byte) {
	for _, ob := range o.observers {
		if ob.Predicate != nil && ob.Predicate(addr) {
			ob.OnAccess(addr, prev, next)
		}
	}
}

// NewVideoMemoryObserver watches a legacy VGA text-mode window (B8000h by
// convention, but parameterized here so callers can point it anywhere) and
// forwards character/attribute pairs to a ScreenWriter. Even addresses in
// the window hold the character byte; odd addresses hold the attribute.
//
// The open question in spec.md §9 (0b11110000 vs 0b01110000 background
// mask) is resolved here as the full 4-bit high nibble: blink mode is not
// modeled, so bit 7 of the attribute byte is treated as background
// intensity rather than a blink flag, matching the "latest revision"
// guidance in spec.md §9.
func NewVideoMemoryObserver(base, size uint32, sink ScreenWriter) MemoryObserver {
	return MemoryObserver{
		Predicate: func(addr uint32) bool {
			return addr >= base && addr < base+size
		},
		OnAccess: func(addr uint32, _, next byte) {
			off := addr - base
			cellIndex := off / 2
			row := int(cellIndex / 80)
			col := int(cellIndex % 80)
			if off%2 == 0 {
				sink.WriteCharAt(row, col, next, 1, nil)
				return
			}
			sink.SetAttr(next) // full 8-bit attribute, blink (bit 7) unsupported
		},
	}
}
