// screen_writer.go - ScreenWriter sink contract (§6)
//
// Adapted from video_interface.go's typed-error-struct house style
// (VideoError → ScreenError) and its interface-segregation habit, cut
// down to exactly the capability set spec.md §6 names: the core never
// knows whether the sink is an ebiten window, a headless test capture,
// or a plain terminal. Pixel color and VGA attribute are value types so
// backends never share mutable state with the core (§9: no cyclic
// ownership between CPU, memory, and observers).
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package main

import "fmt"

// ScreenError mirrors the teacher's VideoError shape for the new sink.
type ScreenError struct {
	Operation string
	Details   string
	Err       error
}

func (e *ScreenError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("screen %s failed: %s: %v", e.Operation, e.Details, e.Err)
	}
	return fmt.Sprintf("screen %s failed: %s", e.Operation, e.Details)
}

// PixelColor is an RGB triple, the unit of BIOS INT 10h VBE/graphics-mode
// pixel writes.
type PixelColor struct {
	R, G, B byte
}

// ScreenWriter is the out-of-core rendering sink (§6). The core calls it
// synchronously at instruction boundaries or from MMIO writes; it never
// blocks on user input.
type ScreenWriter interface {
	// Write emits a run of characters at the current cursor, advancing
	// the cursor and wrapping at the configured column count.
	Write(s string)
	// Newline moves the cursor to column 0 of the next row, scrolling
	// the display when it falls past the last row.
	Newline()
	// Dot paints a single framebuffer pixel (graphics modes only).
	Dot(x, y int, color PixelColor)
	// SetCursor/GetCursor manipulate the text-mode cursor position.
	SetCursor(row, col int)
	GetCursor() (row, col int)
	// WriteCharAt writes a single character `count` times starting at
	// (row, col) without moving the logical cursor (BIOS INT 10h AH=09h/
	// 0Ah semantics); attr is nil to keep the current SetAttr value.
	WriteCharAt(row, col int, ch byte, count int, attr *byte)
	// Clear blanks the entire display to the current attribute.
	Clear()
	// FillArea blanks a rectangular region to the given attribute.
	FillArea(row, col, w, h int, attr byte)
	// SetAttr sets the VGA attribute byte (low nibble fg, high nibble bg)
	// applied to subsequent Write/WriteCharAt calls.
	SetAttr(attr byte)
	// FlushIfNeeded is invoked by the MMIO router after a run of
	// sequential framebuffer writes (coalesced at 4 KiB boundaries, §4.1)
	// and at instruction boundaries; backends that batch rendering use it
	// as their repaint signal.
	FlushIfNeeded()
}

// NewScreenWriter constructs a ScreenWriter backend by name, mirroring the
// teacher's NewVideoOutput(backend int) factory.
const (
	ScreenBackendEbiten = iota
	ScreenBackendHeadless
)

func NewScreenWriter(backend int, cols, rows, fbWidth, fbHeight int) (ScreenWriter, error) {
	switch backend {
	case ScreenBackendEbiten:
		return newEbitenScreenWriter(cols, rows, fbWidth, fbHeight)
	case ScreenBackendHeadless:
		return newHeadlessScreenWriter(cols, rows, fbWidth, fbHeight), nil
	}
	return nil, &ScreenError{Operation: "backend creation", Details: fmt.Sprintf("unknown backend %d", backend)}
}
