//go:build headless

// main_headless.go - headless-build host I/O wiring and run-loop dispatch
//
// Adapted from video_backend_headless.go's no-window idiom: there is no
// event loop to block in, so the CPU just runs to completion on the
// calling goroutine.
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package main

// newHostIO always returns the headless capture pair in a headless
// build; the -headless flag is accepted but has nothing left to toggle.
func newHostIO(_ bool) (ScreenWriter, InputSource, error) {
	screen, err := NewScreenWriter(ScreenBackendHeadless, 80, 25, 1024, 768)
	if err != nil {
		return nil, nil, err
	}
	return screen, noneInputSource{}, nil
}

// runMachine just drives the CPU to completion: a headless build has no
// host event loop to block in.
func runMachine(m *Machine, _ ScreenWriter) RunOutcome {
	return m.Run()
}
