//go:build !headless

// device_speaker.go - PC speaker (port 0x61 gate, PIT channel 2 tone; §C
// supplement)
//
// Adapted from the teacher's OtoPlayer lifecycle (audio_backend_oto.go):
// same NewContext/ready-channel setup and Read-callback-driven player,
// generalized from streaming a multi-channel synth engine's ring buffer
// to generating a single square wave whose period comes from the PIT's
// channel 2 reload value, gated on and off by port 0x61 bit 1.
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package main

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/ebitengine/oto/v3"
)

const speakerSampleRate = 44100

// PCSpeaker models port 0x61 (bit 0 = PIT gate, bit 1 = speaker enable)
// and renders the resulting square wave through oto, exactly the
// teacher's player-lifecycle idiom applied to a one-channel toy instead
// of a synth engine.
type PCSpeaker struct {
	mu      sync.Mutex
	gate    byte // last value written to 0x61
	periodHz atomic.Uint32

	ctx     *oto.Context
	player  *oto.Player
	started bool

	phase float64
}

// NewPCSpeaker creates a speaker with the oto context primed but the
// player not yet started (mirrors NewOtoPlayer/SetupPlayer/Start split).
func NewPCSpeaker() *PCSpeaker {
	s := &PCSpeaker{}
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   speakerSampleRate,
		ChannelCount: 1,
		Format:       oto.FormatFloat32LE,
		BufferSize:   4,
	})
	if err != nil {
		return s // speaker silently disabled, no guest-visible effect
	}
	<-ready
	s.ctx = ctx
	s.player = ctx.NewPlayer(s)
	return s
}

// Read implements io.Reader for oto.Player, synthesizing a square wave at
// the channel-2-derived frequency while the gate is enabled.
func (s *PCSpeaker) Read(p []byte) (int, error) {
	s.mu.Lock()
	gate := s.gate&0x03 == 0x03
	hz := s.periodHz.Load()
	phase := s.phase
	s.mu.Unlock()

	numSamples := len(p) / 4
	samples := make([]float32, numSamples)
	if gate && hz > 0 {
		step := float64(hz) / speakerSampleRate
		for i := range samples {
			if phase < 0.5 {
				samples[i] = 0.2
			} else {
				samples[i] = -0.2
			}
			phase += step
			if phase >= 1 {
				phase -= 1
			}
		}
	}
	s.mu.Lock()
	s.phase = phase
	s.mu.Unlock()

	for i, v := range samples {
		off := i * 4
		bits := math.Float32bits(v)
		p[off] = byte(bits)
		p[off+1] = byte(bits >> 8)
		p[off+2] = byte(bits >> 16)
		p[off+3] = byte(bits >> 24)
	}
	return len(p), nil
}

// In reads port 0x61's gate/status byte.
func (s *PCSpeaker) In(port uint16) byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gate
}

// Out writes port 0x61, starting/stopping the oto player as the gate
// toggles (scoped start/stop, no leaked player when the guest never
// enables the speaker).
func (s *PCSpeaker) Out(port uint16, v byte) {
	s.mu.Lock()
	s.gate = v
	enabled := v&0x03 == 0x03
	s.mu.Unlock()

	if s.player == nil {
		return
	}
	if enabled && !s.started {
		s.player.Play()
		s.started = true
	} else if !enabled && s.started {
		s.player.Pause()
		s.started = false
	}
}

// SetReload updates the tone frequency from the PIT channel 2 reload
// value (PIT clock is 1193182 Hz on real hardware).
func (s *PCSpeaker) SetReload(reload uint16) {
	if reload == 0 {
		s.periodHz.Store(0)
		return
	}
	s.periodHz.Store(uint32(1193182 / uint32(reload)))
}

// Close stops and releases the oto player.
func (s *PCSpeaker) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.player != nil {
		s.player.Close()
	}
}
