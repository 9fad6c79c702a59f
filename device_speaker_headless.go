//go:build headless

// device_speaker_headless.go - no-op PC speaker for headless builds
//
// Mirrors the teacher's headless/no-op counterparts to its real backends
// (video_backend_headless.go): same type name and port/reload methods as
// device_speaker.go, but no Read method and no audio output.
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package main

import "sync/atomic"

// PCSpeaker is a no-op stand-in when built without real audio output.
type PCSpeaker struct {
	gate     byte
	periodHz atomic.Uint32
}

// NewPCSpeaker creates a speaker that tracks gate/reload state but never
// produces sound.
func NewPCSpeaker() *PCSpeaker { return &PCSpeaker{} }

func (s *PCSpeaker) In(port uint16) byte { return s.gate }

func (s *PCSpeaker) Out(port uint16, v byte) { s.gate = v }

// SetReload updates the tracked tone frequency without rendering it.
func (s *PCSpeaker) SetReload(reload uint16) {
	if reload == 0 {
		s.periodHz.Store(0)
		return
	}
	s.periodHz.Store(uint32(1193182 / uint32(reload)))
}

func (s *PCSpeaker) Close() {}
