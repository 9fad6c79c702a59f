// eltorito.go - El Torito boot catalog parsing (§4.8 steps 2-3)
//
// Field layout and checksum rule grounded on
// 0c0dbab8_rstms-iso-kit__pkg-iso9660-boot-eltorito.go.go's
// parseValidationEntry/parseInitialEntry and
// 18a22d9e_vaerh-iso9660__bootcatalog.go.go's doBootCatalogChecksum.
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package boot

import (
	"encoding/binary"
	"fmt"
)

// Platform identifies an El Torito entry's target platform.
type Platform byte

const (
	PlatformBIOS Platform = 0x00
	PlatformPPC  Platform = 0x01
	PlatformMac  Platform = 0x02
	PlatformEFI  Platform = 0xEF
)

// Emulation identifies the boot media type an El Torito entry emulates.
type Emulation byte

const (
	EmulationNone    Emulation = 0x00
	Emulation12MB    Emulation = 0x01
	Emulation144MB   Emulation = 0x02
	Emulation288MB   Emulation = 0x03
	EmulationHardDisk Emulation = 0x04
)

const (
	validationHeaderID = 0x01
	bootIndicatorBootable = 0x88
)

// InitialEntry is the El Torito Initial/Default Entry (§4.8 step 3):
// whether it's bootable, the emulation type, the real-mode load segment,
// and the starting LBA/sector count of the boot image.
type InitialEntry struct {
	Bootable    bool
	Platform    Platform
	Emulation   Emulation
	LoadSegment uint16
	SectorCount uint16 // in 512-byte "virtual sectors", per the spec
	LoadRBA     uint32 // starting LBA of the boot image, in 2048-byte sectors
}

// parseValidationEntry checks the 32-byte Validation Entry at the start
// of the boot catalog sector: header_id=0x01, trailing 0x55 0xAA, and a
// checksum of all little-endian words summing to zero.
func parseValidationEntry(data []byte) error {
	if len(data) < 32 {
		return fmt.Errorf("el torito: validation entry too short")
	}
	if data[0] != validationHeaderID {
		return fmt.Errorf("el torito: invalid header id %#x", data[0])
	}
	if data[0x1E] != 0x55 || data[0x1F] != 0xAA {
		return fmt.Errorf("el torito: invalid key bytes %#x %#x", data[0x1E], data[0x1F])
	}
	var sum uint16
	for i := 0; i < 32; i += 2 {
		sum += binary.LittleEndian.Uint16(data[i : i+2])
	}
	if sum != 0 {
		return fmt.Errorf("el torito: validation checksum invalid")
	}
	return nil
}

// parseInitialEntry decodes the 32-byte Initial/Default Entry that
// follows the Validation Entry.
func parseInitialEntry(data []byte) InitialEntry {
	return InitialEntry{
		Bootable:    data[0] == bootIndicatorBootable,
		Platform:    Platform(0), // platform lives in the Validation Entry, not here
		Emulation:   Emulation(data[1]),
		LoadSegment: binary.LittleEndian.Uint16(data[2:4]),
		SectorCount: binary.LittleEndian.Uint16(data[6:8]),
		LoadRBA:     binary.LittleEndian.Uint32(data[8:12]),
	}
}

// readBootCatalog implements §4.8 steps 2-3: validate the catalog sector
// at catalogLBA and return its Initial/Default Entry.
func readBootCatalog(sr sectorReaderAt, catalogLBA uint32) (InitialEntry, error) {
	sector, err := sr.readSector(catalogLBA)
	if err != nil {
		return InitialEntry{}, err
	}
	if err := parseValidationEntry(sector[:32]); err != nil {
		return InitialEntry{}, err
	}
	entry := parseInitialEntry(sector[32:64])
	entry.Platform = Platform(sector[1])
	if !entry.Bootable {
		return InitialEntry{}, fmt.Errorf("el torito: initial entry not bootable (boot indicator %#x)", sector[32])
	}
	return entry, nil
}
