// iso9660.go - ISO 9660 volume descriptor parsing (§4.8)
//
// Grounded on the iso-kit/vaerh-iso9660 pair's sector-oriented, offset-
// keyed decoding style: every field is read at a fixed byte offset from
// a 2048-byte sector buffer rather than through a general binary.Read
// struct tag scheme, matching how both example repos approach the ECMA-
// 119 layout.
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package boot

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	SectorSize = 2048

	vdTypeBootRecord   = 0
	vdTypePrimary      = 1
	vdTypeSupplementary = 2
	vdTypeTerminator   = 255

	vdIdentifier = "CD001"

	elToritoBootSystemID = "EL TORITO SPECIFICATION"

	firstVDSector = 16
)

// VolumeDescriptor is the common 2048-byte header every ISO 9660 volume
// descriptor shares: type byte, identifier, version.
type VolumeDescriptor struct {
	Type       byte
	Identifier string
	Version    byte
	Raw        [SectorSize]byte
}

// PrimaryVolumeDescriptor carries the handful of Primary VD fields the
// loader consults: the root directory record (for ReadFile) and the
// volume space size.
type PrimaryVolumeDescriptor struct {
	VolumeSpaceSize   uint32
	RootDirExtentLBA  uint32
	RootDirExtentSize uint32
}

// BootRecordVolumeDescriptor carries the boot catalog's starting LBA, at
// offset 0x47 in a type-0 volume descriptor whose boot system identifier
// is "EL TORITO SPECIFICATION" (§4.8 step 1).
type BootRecordVolumeDescriptor struct {
	BootCatalogLBA uint32
}

// sectorReaderAt reads 2048-byte ISO sectors from an underlying
// io.ReaderAt.
type sectorReaderAt struct {
	r io.ReaderAt
}

func (s sectorReaderAt) readSector(lba uint32) ([]byte, error) {
	buf := make([]byte, SectorSize)
	n, err := s.r.ReadAt(buf, int64(lba)*SectorSize)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("iso9660: read sector %d: %w", lba, err)
	}
	if n < SectorSize {
		return nil, fmt.Errorf("iso9660: short read at sector %d: got %d bytes", lba, n)
	}
	return buf, nil
}

// ErrNotISO9660 is returned when a descriptor's identifier field isn't
// "CD001".
var ErrNotISO9660 = errors.New("iso9660: missing CD001 identifier")

// ErrNoElTorito is returned when no Boot Record volume descriptor names
// the El Torito boot system.
var ErrNoElTorito = errors.New("iso9660: no El Torito boot record found")

// volumeDescriptors walks sector 16 upward until a Terminator (type 255),
// returning the Primary VD and, if present, the El Torito Boot Record
// (§4.8 step 1).
func volumeDescriptors(sr sectorReaderAt) (*PrimaryVolumeDescriptor, *BootRecordVolumeDescriptor, error) {
	var pvd *PrimaryVolumeDescriptor
	var brvd *BootRecordVolumeDescriptor

	for lba := uint32(firstVDSector); ; lba++ {
		sector, err := sr.readSector(lba)
		if err != nil {
			return nil, nil, err
		}
		typ := sector[0]
		ident := string(sector[1:6])
		if ident != vdIdentifier {
			return nil, nil, fmt.Errorf("%w: sector %d identifier %q", ErrNotISO9660, lba, ident)
		}

		switch typ {
		case vdTypeTerminator:
			if pvd == nil {
				return nil, nil, errors.New("iso9660: no Primary Volume Descriptor found")
			}
			return pvd, brvd, nil
		case vdTypePrimary:
			pvd = parsePrimaryVD(sector)
		case vdTypeBootRecord:
			sysID := string(sector[7:39])
			if trimRight(sysID) == elToritoBootSystemID {
				brvd = &BootRecordVolumeDescriptor{
					BootCatalogLBA: binary.LittleEndian.Uint32(sector[0x47:0x4B]),
				}
			}
		}
	}
}

func parsePrimaryVD(sector []byte) *PrimaryVolumeDescriptor {
	pvd := &PrimaryVolumeDescriptor{
		VolumeSpaceSize: binary.LittleEndian.Uint32(sector[80:84]),
	}
	// Root directory record starts at offset 156, a 34-byte directory
	// record whose extent LBA/size sit at fixed offsets (ECMA-119 9.1).
	root := sector[156:190]
	pvd.RootDirExtentLBA = binary.LittleEndian.Uint32(root[2:6])
	pvd.RootDirExtentSize = binary.LittleEndian.Uint32(root[10:14])
	return pvd
}

func trimRight(s string) string {
	i := len(s)
	for i > 0 && (s[i-1] == ' ' || s[i-1] == 0) {
		i--
	}
	return s[:i]
}

// dirRecordName extracts a directory record's file identifier, stripping
// the ";1" version suffix ISO 9660 appends to file names.
func dirRecordName(rec []byte) string {
	nameLen := int(rec[32])
	name := string(rec[33 : 33+nameLen])
	if idx := indexByte(name, ';'); idx >= 0 {
		name = name[:idx]
	}
	return name
}

func indexByte(s string, b byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == b {
			return i
		}
	}
	return -1
}
