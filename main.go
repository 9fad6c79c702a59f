// main.go - command-line driver
//
// Adapted from the teacher's main.go: positional-arg usage line, plain
// fmt.Printf error reporting with os.Exit(1), and the boilerplate-banner
// convention (trimmed to a single line; a PC boot monitor isn't a retro
// home computer and doesn't get ANSI art).
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/zaynotley/pcxt/boot"
)

func banner() {
	fmt.Println("pcxt - a PC/x86 execution engine")
	fmt.Println("(c) 2024-2026 Zayn Otley")
	fmt.Println("License: GPLv3 or later")
}

func usage() {
	fmt.Println("Usage: pcxt [-headless] [-mem MB] [-debug key=value,...] -iso|-floppy <image>")
}

func main() {
	banner()

	if len(os.Args) < 3 {
		usage()
		os.Exit(1)
	}

	var (
		imagePath string
		bootType  BootType
		haveBoot  bool
		headless  bool
		memMB     = uint64(16)
		debugStr  string
	)

	args := os.Args[1:]
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-headless":
			headless = true
		case "-mem":
			i++
			if i >= len(args) {
				fmt.Println("pcxt: -mem requires a value")
				os.Exit(1)
			}
			n, err := strconv.ParseUint(args[i], 10, 64)
			if err != nil {
				fmt.Printf("pcxt: invalid -mem value: %v\n", err)
				os.Exit(1)
			}
			memMB = n
		case "-debug":
			i++
			if i >= len(args) {
				fmt.Println("pcxt: -debug requires a value")
				os.Exit(1)
			}
			debugStr = args[i]
		case "-iso":
			i++
			if i >= len(args) {
				fmt.Println("pcxt: -iso requires a path")
				os.Exit(1)
			}
			imagePath, bootType, haveBoot = args[i], BootISO, true
		case "-floppy":
			i++
			if i >= len(args) {
				fmt.Println("pcxt: -floppy requires a path")
				os.Exit(1)
			}
			imagePath, bootType, haveBoot = args[i], BootSignature, true
		default:
			fmt.Printf("pcxt: unrecognized argument %q\n", args[i])
			usage()
			os.Exit(1)
		}
	}

	if !haveBoot {
		usage()
		os.Exit(1)
	}

	cfg := DefaultMachineConfig()
	cfg.MemorySize = memMB * 1024 * 1024
	cfg.BootType = bootType
	cfg.Debug = ParseDebugKV(debugStr, func(key string) {
		fmt.Printf("pcxt: ignoring unrecognized debug key %q\n", key)
	})
	if err := cfg.Validate(); err != nil {
		fmt.Printf("pcxt: %v\n", err)
		os.Exit(1)
	}

	var (
		bootMedium BootMedium
		payload    BootPayload
	)

	switch bootType {
	case BootISO:
		logger := boot.NewLogger(boot.LevelError)
		medium, img, err := OpenISOBootMedium(imagePath, logger)
		if err != nil {
			fmt.Printf("pcxt: %v\n", err)
			os.Exit(1)
		}
		bootMedium = medium
		payload = BootPayload{Data: img.Data, LoadSegment: img.LoadSegment}
	case BootSignature:
		medium, err := OpenFileBootMedium(imagePath, MediumFloppyImage)
		if err != nil {
			fmt.Printf("pcxt: %v\n", err)
			os.Exit(1)
		}
		sector, err := medium.ReadSectors(0, 1, 512)
		if err != nil {
			fmt.Printf("pcxt: %v\n", err)
			os.Exit(1)
		}
		if len(sector) < 512 || sector[510] != 0x55 || sector[511] != 0xAA {
			fmt.Println("pcxt: boot sector missing 0x55AA trailer")
			os.Exit(1)
		}
		bootMedium = medium
		payload = BootPayload{Data: sector, LoadSegment: 0x07C0}
	}

	screen, input, err := newHostIO(headless)
	if err != nil {
		fmt.Printf("pcxt: %v\n", err)
		os.Exit(1)
	}

	machine, err := NewMachine(cfg, screen, input, bootMedium, payload)
	if err != nil {
		fmt.Printf("pcxt: %v\n", err)
		os.Exit(1)
	}

	outcome := runMachine(machine, screen)
	fmt.Println(strings.TrimSpace("pcxt: " + outcome.String()))
	os.Exit(exitCodeFor(outcome))
}

func exitCodeFor(o RunOutcome) int {
	switch o.Kind {
	case RunCompleted, RunBudgetExhausted:
		return 0
	case RunHalted:
		if o.HaltReason == HaltTriple {
			return 1
		}
		return 0
	default:
		return 1
	}
}
