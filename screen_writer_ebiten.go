//go:build !headless

// screen_writer_ebiten.go - ebiten-backed ScreenWriter/InputSource (§6)
//
// Adapted from video_backend_ebiten.go: the frame buffer, Update/Draw/
// Layout trio, clipboard-paste path and key-handler idiom are the same
// ones the teacher's EbitenOutput uses, generalized from a raw pixel sink
// fed by a sprite/copper compositor into the text-cell-plus-LFB sink §6
// describes, and split so the same running window also implements
// InputSource (the teacher's keyHandler callback becomes an event queue
// instead, since spec.md's InputSource is polled, not callback-driven).
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package main

import (
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"golang.design/x/clipboard"
)

// activeEbitenHost mirrors the teacher's package-level activeFrontend
// pointer: ebiten's Game callbacks are free functions invoked by the
// ebiten runtime, which has no way to thread a receiver through, so the
// single running host is kept here instead.
var activeEbitenHost *EbitenHost

// EbitenHost is a window that is simultaneously the ScreenWriter sink and
// the InputSource the BIOS keyboard/mouse services poll.
type EbitenHost struct {
	mu sync.Mutex

	cols, rows        int
	fbWidth, fbHeight int
	frameBuffer       []byte // fbWidth*fbHeight*4 RGBA, the LFB mirror
	window            *ebiten.Image
	scale             int
	dirty             bool

	cells []byte
	attrs []byte
	cursorRow, cursorCol int
	attr                 byte

	events []InputEvent

	clipboardOnce sync.Once
	clipboardOK   bool

	running bool
}

func newEbitenScreenWriter(cols, rows, fbWidth, fbHeight int) (ScreenWriter, error) {
	h := &EbitenHost{
		cols: cols, rows: rows,
		fbWidth: fbWidth, fbHeight: fbHeight,
		frameBuffer: make([]byte, fbWidth*fbHeight*4),
		cells:       make([]byte, cols*rows),
		attrs:       make([]byte, cols*rows),
		scale:       1,
	}
	activeEbitenHost = h
	return h, nil
}

// Start brings up the ebiten window and blocks the calling goroutine
// until it is closed, exactly like the teacher's EbitenOutput.Start
// (which runs ebiten.RunGame in a goroutine and waits for the first
// Draw); runMachine in main_ebiten.go calls this on its own goroutine
// after starting the machine on a background one.
func (h *EbitenHost) Start() error {
	h.mu.Lock()
	h.running = true
	h.mu.Unlock()
	ebiten.SetWindowSize(h.fbWidth*h.scale, h.fbHeight*h.scale)
	ebiten.SetWindowTitle("pcxt")
	ebiten.SetWindowResizable(true)
	ebiten.SetRunnableOnUnfocused(true)
	return ebiten.RunGame(h)
}

func (h *EbitenHost) Update() error {
	h.mu.Lock()
	running := h.running
	h.mu.Unlock()
	if !running || ebiten.IsWindowBeingClosed() {
		h.pushEvent(InputEvent{Kind: InputQuit})
		return ebiten.Termination
	}
	h.pollKeyboard()
	return nil
}

func (h *EbitenHost) Draw(screen *ebiten.Image) {
	h.mu.Lock()
	if h.window == nil {
		h.window = ebiten.NewImage(h.fbWidth, h.fbHeight)
	}
	h.window.WritePixels(h.frameBuffer)
	h.mu.Unlock()
	screen.DrawImage(h.window, nil)
}

func (h *EbitenHost) Layout(_, _ int) (int, int) {
	return h.fbWidth, h.fbHeight
}

// --- ScreenWriter ---

func (h *EbitenHost) Write(s string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if ch == '\n' {
			h.advanceLineLocked()
			continue
		}
		h.putCharLocked(ch)
		h.cursorCol++
		if h.cursorCol >= h.cols {
			h.advanceLineLocked()
		}
	}
}

func (h *EbitenHost) putCharLocked(ch byte) {
	if h.cursorRow >= h.rows {
		return
	}
	idx := h.cursorRow*h.cols + h.cursorCol
	h.cells[idx] = ch
	h.attrs[idx] = h.attr
}

func (h *EbitenHost) advanceLineLocked() {
	h.cursorCol = 0
	h.cursorRow++
	if h.cursorRow >= h.rows {
		copy(h.cells, h.cells[h.cols:])
		copy(h.attrs, h.attrs[h.cols:])
		for i := len(h.cells) - h.cols; i < len(h.cells); i++ {
			h.cells[i] = 0
			h.attrs[i] = h.attr
		}
		h.cursorRow = h.rows - 1
	}
}

func (h *EbitenHost) Newline() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.advanceLineLocked()
}

func (h *EbitenHost) Dot(x, y int, color PixelColor) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if x < 0 || y < 0 || x >= h.fbWidth || y >= h.fbHeight {
		return
	}
	off := (y*h.fbWidth + x) * 4
	h.frameBuffer[off] = color.R
	h.frameBuffer[off+1] = color.G
	h.frameBuffer[off+2] = color.B
	h.frameBuffer[off+3] = 0xFF
	h.dirty = true
}

func (h *EbitenHost) SetCursor(row, col int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cursorRow, h.cursorCol = row, col
}

func (h *EbitenHost) GetCursor() (int, int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cursorRow, h.cursorCol
}

func (h *EbitenHost) WriteCharAt(row, col int, ch byte, count int, attr *byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	a := h.attr
	if attr != nil {
		a = *attr
	}
	for i := 0; i < count; i++ {
		c := col + i
		if c >= h.cols || row >= h.rows {
			break
		}
		idx := row*h.cols + c
		h.cells[idx] = ch
		h.attrs[idx] = a
	}
}

func (h *EbitenHost) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i := range h.cells {
		h.cells[i] = 0
		h.attrs[i] = h.attr
	}
	h.cursorRow, h.cursorCol = 0, 0
}

func (h *EbitenHost) FillArea(row, col, w, hgt int, attr byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for r := row; r < row+hgt && r < h.rows; r++ {
		for c := col; c < col+w && c < h.cols; c++ {
			idx := r*h.cols + c
			h.cells[idx] = ' '
			h.attrs[idx] = attr
		}
	}
}

func (h *EbitenHost) SetAttr(attr byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.attr = attr
}

func (h *EbitenHost) FlushIfNeeded() {
	h.mu.Lock()
	h.dirty = false
	h.mu.Unlock()
}

// --- InputSource ---

func (h *EbitenHost) pushEvent(ev InputEvent) {
	h.mu.Lock()
	h.events = append(h.events, ev)
	h.mu.Unlock()
}

// PollEvent implements InputSource, draining the queue ebiten's Update
// callback filled in (§6).
func (h *EbitenHost) PollEvent() InputEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.events) == 0 {
		return InputEvent{Kind: InputNone}
	}
	ev := h.events[0]
	h.events = h.events[1:]
	return ev
}

func (h *EbitenHost) pollKeyboard() {
	ctrl := ebiten.IsKeyPressed(ebiten.KeyControlLeft) || ebiten.IsKeyPressed(ebiten.KeyControlRight)
	shift := ebiten.IsKeyPressed(ebiten.KeyShiftLeft) || ebiten.IsKeyPressed(ebiten.KeyShiftRight)

	if ctrl && shift && inpututil.IsKeyJustPressed(ebiten.KeyV) {
		h.pasteClipboard()
	}

	mods := inputModifiers(ctrl, shift)
	for _, r := range ebiten.AppendInputChars(nil) {
		if r <= 0 || r > 0xFF {
			continue
		}
		h.pushEvent(InputEvent{Kind: InputKeyDown, Scancode: asciiToScancode(byte(r)), Modifiers: mods})
	}

	for _, key := range trackedSpecialKeys {
		if inpututil.IsKeyJustPressed(key) {
			if sc, ok := specialKeyScancode(key); ok {
				h.pushEvent(InputEvent{Kind: InputKeyDown, Scancode: sc, Modifiers: mods})
			}
		}
		if inpututil.IsKeyJustReleased(key) {
			if sc, ok := specialKeyScancode(key); ok {
				h.pushEvent(InputEvent{Kind: InputKeyUp, Scancode: sc, Modifiers: mods})
			}
		}
	}
}

func (h *EbitenHost) pasteClipboard() {
	h.clipboardOnce.Do(func() {
		h.clipboardOK = clipboard.Init() == nil
	})
	if !h.clipboardOK {
		return
	}
	data := clipboard.Read(clipboard.FmtText)
	if len(data) == 0 {
		return
	}
	for _, b := range capPasteText(data, 4096) {
		h.pushEvent(InputEvent{Kind: InputKeyDown, Scancode: asciiToScancode(b)})
	}
}

func capPasteText(raw []byte, max int) []byte {
	if len(raw) <= max {
		return raw
	}
	return raw[:max]
}

var trackedSpecialKeys = []ebiten.Key{
	ebiten.KeyEnter, ebiten.KeyBackspace, ebiten.KeyTab, ebiten.KeyEscape,
	ebiten.KeyArrowUp, ebiten.KeyArrowDown, ebiten.KeyArrowLeft, ebiten.KeyArrowRight,
}

func specialKeyScancode(key ebiten.Key) (byte, bool) {
	switch key {
	case ebiten.KeyEnter:
		return scEnter, true
	case ebiten.KeyBackspace:
		return scBackspace, true
	case ebiten.KeyTab:
		return scTab, true
	case ebiten.KeyEscape:
		return scEscape, true
	case ebiten.KeyArrowUp:
		return scArrowUp, true
	case ebiten.KeyArrowDown:
		return scArrowDown, true
	case ebiten.KeyArrowLeft:
		return scArrowLeft, true
	case ebiten.KeyArrowRight:
		return scArrowRight, true
	}
	return 0, false
}
