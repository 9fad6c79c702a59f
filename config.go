// config.go - construction-time configuration surface (§6)
//
// The teacher has no flag/viper-style loader: CLI args are positional
// (main.go, os.Args) and runtime behaviour is toggled by plain bool fields
// (PerfEnabled and friends). MachineConfig/DebugConfig follow that idiom:
// plain structs built programmatically by main.go, validated once at
// construction and never touched again during a run.
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package main

import "fmt"

// Architecture selects the instruction-set width the CPU resets into.
type Architecture int

const (
	ArchX86 Architecture = iota
	ArchX86_64
)

// BootType selects how the boot medium is interpreted.
type BootType int

const (
	BootSignature BootType = iota // raw boot sector, 0x55AA trailer
	BootISO                       // El Torito / ISO 9660
)

// ConfigError reports an out-of-range or contradictory configuration value,
// following the teacher's typed-error-struct house style (VideoError).
type ConfigError struct {
	Field   string
	Details string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Details)
}

// MachineConfig collects every named option the core recognizes (§6).
type MachineConfig struct {
	MemorySize    uint64
	MaxMemorySize uint64
	Architecture  Architecture
	BootType      BootType
	MaxInstructions uint64 // 0 means unlimited
	EnableAPIC    bool
	EnablePAE     bool
	PixelSize     uint32
	FrameRate     uint32
	Debug         DebugConfig
}

// DefaultMachineConfig returns the conventional PC defaults: 16MiB of RAM,
// no instruction budget, APIC and PAE both available.
func DefaultMachineConfig() MachineConfig {
	return MachineConfig{
		MemorySize:    16 * 1024 * 1024,
		MaxMemorySize: 256 * 1024 * 1024,
		Architecture:  ArchX86,
		BootType:      BootISO,
		EnableAPIC:    true,
		EnablePAE:     true,
		PixelSize:     4,
		FrameRate:     60,
	}
}

// Validate checks the configuration for constructability, returning a
// *ConfigError on the first violation (§7: host-side input errors are
// returned at construction time, never during execution).
func (m MachineConfig) Validate() error {
	if m.MemorySize == 0 {
		return &ConfigError{Field: "MemorySize", Details: "must be non-zero"}
	}
	if m.MaxMemorySize != 0 && m.MemorySize > m.MaxMemorySize {
		return &ConfigError{Field: "MemorySize", Details: "exceeds MaxMemorySize"}
	}
	if m.PixelSize != 0 && m.PixelSize != 1 && m.PixelSize != 2 && m.PixelSize != 4 {
		return &ConfigError{Field: "PixelSize", Details: "must be 1, 2 or 4 bytes"}
	}
	return nil
}

// WatchAccessConfig mirrors spec.md's watch_access block for the memory
// observer mechanism (§9 "stringly-typed debug configuration" redesign:
// enumerated fields instead of a free-form key string).
type WatchAccessConfig struct {
	Start            uint64
	End              uint64
	Reads            bool
	Writes           bool
	Limit            int
	ExcludeIPRanges  [][2]uint64
}

// DebugConfig enumerates every recognized debug key, strictly typed on the
// way out even though main.go may parse them from a loose key=value
// string (§9 "stringly-typed debug configuration").
type DebugConfig struct {
	CountInstructions bool
	IPSampleEvery     uint64
	StopAfterInsns    uint64 // 0 = disabled
	StopAfterSecs     float64
	TraceIPSet        map[uint64]bool
	StopIPSet         map[uint64]bool
	TraceCflowToSet   map[uint64]bool
	StopCflowToSet    map[uint64]bool
	StopOnRSPBelow    uint64 // 0 = disabled
	ZeroOpcodeLoopLimit int
	DumpPageFaultContext bool
	WatchAccess       *WatchAccessConfig
}

// ParseDebugKV parses a minimal "key=value,key=value" debug string into a
// DebugConfig, ignoring any key it doesn't recognize (with a warning),
// per §9's redesign guidance. It never returns an error: unknown input is
// simply inert, matching debug_conditions.go's original forgiving parser.
func ParseDebugKV(s string, warn func(key string)) DebugConfig {
	cfg := DebugConfig{
		TraceIPSet:      map[uint64]bool{},
		StopIPSet:       map[uint64]bool{},
		TraceCflowToSet: map[uint64]bool{},
		StopCflowToSet:  map[uint64]bool{},
	}
	if s == "" {
		return cfg
	}
	pairs := splitKV(s)
	for _, p := range pairs {
		switch p.key {
		case "count_instructions":
			cfg.CountInstructions = p.boolVal()
		case "ip_sample_every":
			cfg.IPSampleEvery = p.uintVal()
		case "stop_after_insns":
			cfg.StopAfterInsns = p.uintVal()
		case "stop_on_rsp_below":
			cfg.StopOnRSPBelow = p.uintVal()
		case "zero_opcode_loop_limit":
			cfg.ZeroOpcodeLoopLimit = int(p.uintVal())
		case "dump_page_fault_context":
			cfg.DumpPageFaultContext = p.boolVal()
		case "trace_ip":
			cfg.TraceIPSet[p.uintVal()] = true
		case "stop_ip":
			cfg.StopIPSet[p.uintVal()] = true
		default:
			if warn != nil {
				warn(p.key)
			}
		}
	}
	return cfg
}

type kvPair struct {
	key, val string
}

func (p kvPair) boolVal() bool {
	return p.val == "1" || p.val == "true" || p.val == ""
}

func (p kvPair) uintVal() uint64 {
	var v uint64
	for _, ch := range p.val {
		if ch < '0' || ch > '9' {
			return v
		}
		v = v*10 + uint64(ch-'0')
	}
	return v
}

func splitKV(s string) []kvPair {
	var out []kvPair
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if i > start {
				out = append(out, parseOnePair(s[start:i]))
			}
			start = i + 1
		}
	}
	return out
}

func parseOnePair(s string) kvPair {
	for i := 0; i < len(s); i++ {
		if s[i] == '=' {
			return kvPair{key: s[:i], val: s[i+1:]}
		}
	}
	return kvPair{key: s}
}
