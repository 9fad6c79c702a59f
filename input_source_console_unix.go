//go:build !windows

// input_source_console_unix.go - raw-mode stdin InputSource (§6)
//
// Adapted from terminal_host.go's raw-mode/non-blocking stdin reader:
// same MakeRaw/SetNonblock/poll-with-sleep loop, generalized from feeding
// a software TerminalMMIO ring buffer to pushing InputEvent{KeyDown} (and
// a synthetic KeyUp right behind it, since a console has no physical
// key-release signal) into the InputSource queue the KBC device polls.
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package main

import (
	"os"
	"sync"
	"syscall"
	"time"

	"golang.org/x/term"
)

// ConsoleInputSource reads raw stdin in a background goroutine and queues
// translated InputEvents for PollEvent.
type ConsoleInputSource struct {
	mu     sync.Mutex
	events []InputEvent

	fd           int
	oldTermState *term.State
	nonblockSet  bool
	stopCh       chan struct{}
	done         chan struct{}
	stopOnce     sync.Once
}

func newConsoleInputSource() (InputSource, error) {
	c := &ConsoleInputSource{
		fd:     int(os.Stdin.Fd()),
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
	oldState, err := term.MakeRaw(c.fd)
	if err != nil {
		return nil, &ScreenError{Operation: "console input", Details: "raw mode", Err: err}
	}
	c.oldTermState = oldState

	if err := syscall.SetNonblock(c.fd, true); err != nil {
		_ = term.Restore(c.fd, c.oldTermState)
		return nil, &ScreenError{Operation: "console input", Details: "nonblocking stdin", Err: err}
	}
	c.nonblockSet = true

	go c.readLoop()
	return c, nil
}

func (c *ConsoleInputSource) readLoop() {
	defer close(c.done)
	buf := make([]byte, 1)
	for {
		select {
		case <-c.stopCh:
			return
		default:
		}
		n, err := syscall.Read(c.fd, buf)
		if n > 0 {
			c.routeByte(buf[0])
		}
		if err == syscall.EAGAIN || err == syscall.EWOULDBLOCK || n == 0 {
			time.Sleep(5 * time.Millisecond)
			continue
		}
		if err != nil {
			return
		}
	}
}

func (c *ConsoleInputSource) routeByte(b byte) {
	if b == '\r' {
		b = '\n'
	}
	if b == 0x7F {
		b = 0x08
	}
	sc := asciiToScancode(b)
	shift := b >= 'A' && b <= 'Z'
	mods := inputModifiers(false, shift)
	c.mu.Lock()
	c.events = append(c.events,
		InputEvent{Kind: InputKeyDown, Scancode: sc, Modifiers: mods},
		InputEvent{Kind: InputKeyUp, Scancode: sc, Modifiers: mods},
	)
	c.mu.Unlock()
}

// PollEvent implements InputSource.
func (c *ConsoleInputSource) PollEvent() InputEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.events) == 0 {
		return InputEvent{Kind: InputNone}
	}
	ev := c.events[0]
	c.events = c.events[1:]
	return ev
}

// Stop restores the terminal to its original state, the scoped-release
// idiom the teacher uses for side-effecting teardown (§9).
func (c *ConsoleInputSource) Stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
	<-c.done
	if c.nonblockSet {
		_ = syscall.SetNonblock(c.fd, false)
	}
	if c.oldTermState != nil {
		_ = term.Restore(c.fd, c.oldTermState)
	}
}
