//go:build !headless

// main_ebiten.go - windowed host I/O wiring and run-loop dispatch
//
// Adapted from the teacher's main.go goroutine split: the CPU/machine
// runs on its own goroutine while the calling goroutine blocks in the
// ebiten event loop, the same shape as `go ie32CPU.Execute()` followed by
// `gui.Show()`.
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package main

// newHostIO constructs the windowed ebiten ScreenWriter/InputSource pair,
// or the headless capture pair when headless is requested at runtime
// without a headless build.
func newHostIO(headless bool) (ScreenWriter, InputSource, error) {
	if headless {
		screen, err := NewScreenWriter(ScreenBackendHeadless, 80, 25, 1024, 768)
		if err != nil {
			return nil, nil, err
		}
		return screen, noneInputSource{}, nil
	}

	screen, err := NewScreenWriter(ScreenBackendEbiten, 80, 25, 1024, 768)
	if err != nil {
		return nil, nil, err
	}
	input, err := NewInputSource(InputBackendEbiten)
	if err != nil {
		return nil, nil, err
	}
	return screen, input, nil
}

// runMachine drives the CPU on a background goroutine when a window is
// present, so the calling goroutine can block in the host event loop;
// otherwise it just runs to completion on the current goroutine.
func runMachine(m *Machine, screen ScreenWriter) RunOutcome {
	host, ok := screen.(*EbitenHost)
	if !ok {
		return m.Run()
	}

	outcome := make(chan RunOutcome, 1)
	go func() { outcome <- m.Run() }()
	if err := host.Start(); err != nil {
		return RunOutcome{Kind: RunHostError, Err: err}
	}
	return <-outcome
}
