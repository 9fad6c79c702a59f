// input_source.go - InputSource contract and scancode translation (§6)
//
// Adapted from the teacher's KeyboardInput/SetKeyHandler capability
// interface (video_interface.go), inverted from push (callback) to pull
// (poll) since spec.md's BIOS INT 16h model drains a queue on demand
// rather than reacting to every keystroke immediately.
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package main

// InputKind enumerates the InputSource event variants (§6).
type InputKind int

const (
	InputNone InputKind = iota
	InputKeyDown
	InputKeyUp
	InputMouseMove
	InputMouseButton
	InputQuit
)

// Modifier bits reported alongside InputKeyDown/Up.
const (
	ModShift = 1 << 0
	ModCtrl  = 1 << 1
	ModAlt   = 1 << 2
)

// InputEvent is the single variant type PollEvent returns (§9: tagged
// variants instead of runtime reflection).
type InputEvent struct {
	Kind      InputKind
	Scancode  byte // KeyDown/KeyUp
	Modifiers byte
	X, Y      int  // MouseMove
	Button    int  // MouseButton
	Down      bool // MouseButton
}

// InputSource is polled by Machine.drainInput at instruction boundaries
// (§6, §5: "sampled at instruction boundaries").
type InputSource interface {
	PollEvent() InputEvent
}

// Predefined input backend types, mirroring NewScreenWriter's factory.
const (
	InputBackendEbiten = iota
	InputBackendConsole
	InputBackendNone
)

// NewInputSource constructs an InputSource backend by name. The ebiten
// backend must be constructed after its matching ScreenWriter (it reuses
// the same running window, mirroring the teacher's activeFrontend
// singleton); NewInputSource returns an error if no ebiten host is active.
func NewInputSource(backend int) (InputSource, error) {
	switch backend {
	case InputBackendEbiten:
		if activeEbitenHost == nil {
			return nil, &ScreenError{Operation: "input source creation", Details: "no active ebiten screen writer"}
		}
		return activeEbitenHost, nil
	case InputBackendConsole:
		return newConsoleInputSource()
	case InputBackendNone:
		return noneInputSource{}, nil
	}
	return nil, &ScreenError{Operation: "input source creation", Details: "unknown backend"}
}

// noneInputSource never produces events; used for non-interactive runs
// (budget-bounded batch execution, tests).
type noneInputSource struct{}

func (noneInputSource) PollEvent() InputEvent { return InputEvent{Kind: InputNone} }

// Set 1 (XT) scancodes for the handful of keys both backends translate.
const (
	scEnter      = 0x1C
	scBackspace  = 0x0E
	scTab        = 0x0F
	scEscape     = 0x01
	scArrowUp    = 0x48
	scArrowDown  = 0x50
	scArrowLeft  = 0x4B
	scArrowRight = 0x4D
)

func inputModifiers(ctrl, shift bool) byte {
	var m byte
	if ctrl {
		m |= ModCtrl
	}
	if shift {
		m |= ModShift
	}
	return m
}

// asciiScancodes maps lowercase letters, digits, space and a few control
// keys to XT set-1 make codes for a US QWERTY layout, sufficient for the BIOS-era keyboard tests in §8
// scenario 1.
var asciiScancodes = map[byte]byte{
	'a': 0x1E, 'b': 0x30, 'c': 0x2E, 'd': 0x20, 'e': 0x12, 'f': 0x21, 'g': 0x22,
	'h': 0x23, 'i': 0x17, 'j': 0x24, 'k': 0x25, 'l': 0x26, 'm': 0x32, 'n': 0x31,
	'o': 0x18, 'p': 0x19, 'q': 0x10, 'r': 0x13, 's': 0x1F, 't': 0x14, 'u': 0x16,
	'v': 0x2F, 'w': 0x11, 'x': 0x2D, 'y': 0x15, 'z': 0x2C,
	'0': 0x0B, '1': 0x02, '2': 0x03, '3': 0x04, '4': 0x05,
	'5': 0x06, '6': 0x07, '7': 0x08, '8': 0x09, '9': 0x0A,
	' ': 0x39, '\n': scEnter, '\t': scTab, 0x08: scBackspace, 0x1B: scEscape,
}

// asciiToScancode resolves a host keystroke (lowercased; shift state is
// reported separately via InputEvent.Modifiers) to an XT set-1 scancode.
func asciiToScancode(b byte) byte {
	lower := b
	if lower >= 'A' && lower <= 'Z' {
		lower += 'a' - 'A'
	}
	if sc, ok := asciiScancodes[lower]; ok {
		return sc
	}
	return 0
}

// scancodeToASCII is INT 16h's reverse mapping: BIOS-scan-code||ASCII,
// unshifted US QWERTY.
func scancodeToASCII(sc byte) byte {
	for ch, code := range asciiScancodes {
		if code == sc {
			return ch
		}
	}
	return 0
}
