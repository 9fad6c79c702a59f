// bootimage.go - BootImage construction and the ISO9660/El Torito Loader
// (§4.8)
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package boot

import (
	"encoding/binary"
	"fmt"
	"io"
)

// BootImage is the materialized boot payload: exactly sector_count*512
// bytes read from load_rba, never the whole ISO (§9 sizing decision).
type BootImage struct {
	Data        []byte
	LoadSegment uint16
	Platform    Platform
	Emulation   Emulation
}

// Loader parses an ISO 9660 image with an El Torito boot catalog and
// exposes the three operations spec.md §4.8 names: boot_image(),
// read_sectors(lba, count), read_file(path).
type Loader struct {
	sr     sectorReaderAt
	pvd    *PrimaryVolumeDescriptor
	brvd   *BootRecordVolumeDescriptor
	entry  InitialEntry
	logger *Logger
	size   int64
}

// NewLoader parses the volume descriptors and El Torito boot catalog
// from r (size bytes total), failing if the image isn't a valid
// El Torito-bootable ISO 9660 image (§4.8 steps 1-3).
func NewLoader(r io.ReaderAt, size int64, logger *Logger) (*Loader, error) {
	sr := sectorReaderAt{r: r}
	pvd, brvd, err := volumeDescriptors(sr)
	if err != nil {
		return nil, err
	}
	if logger != nil {
		logger.Debug("parsed primary volume descriptor", "volumeSpaceSize", pvd.VolumeSpaceSize)
	}
	if brvd == nil {
		return nil, ErrNoElTorito
	}

	entry, err := readBootCatalog(sr, brvd.BootCatalogLBA)
	if err != nil {
		if logger != nil {
			logger.Error(err, "boot catalog parse failed")
		}
		return nil, err
	}
	if logger != nil {
		logger.Debug("parsed el torito initial entry", "loadRBA", entry.LoadRBA, "sectorCount", entry.SectorCount)
	}

	return &Loader{sr: sr, pvd: pvd, brvd: brvd, entry: entry, logger: logger, size: size}, nil
}

// Entry returns the parsed Initial/Default Entry.
func (l *Loader) Entry() InitialEntry { return l.entry }

// BootImage materializes the boot payload: sector_count*512 bytes
// starting at load_rba (§4.8 step 4).
func (l *Loader) BootImage() (*BootImage, error) {
	byteLen := int(l.entry.SectorCount) * 512
	if byteLen == 0 {
		return nil, fmt.Errorf("el torito: initial entry has zero sector count")
	}
	data, err := l.readBytesFrom(l.entry.LoadRBA, byteLen)
	if err != nil {
		return nil, err
	}
	return &BootImage{
		Data:        data,
		LoadSegment: l.entry.LoadSegment,
		Platform:    l.entry.Platform,
		Emulation:   l.entry.Emulation,
	}, nil
}

// readBytesFrom reads n bytes starting at the given 2048-byte-sector
// LBA, rounding up to whole sectors and trimming the tail.
func (l *Loader) readBytesFrom(lba uint32, n int) ([]byte, error) {
	sectorsNeeded := (n + SectorSize - 1) / SectorSize
	data := make([]byte, 0, sectorsNeeded*SectorSize)
	for i := 0; i < sectorsNeeded; i++ {
		sector, err := l.sr.readSector(lba + uint32(i))
		if err != nil {
			return nil, err
		}
		data = append(data, sector...)
	}
	return data[:n], nil
}

// ReadSectors reads count sectors of sectorSize bytes each starting at
// lba, generalized from the fixed 2048-byte CD sector so INT 13h's
// 512-byte requests can be served directly (§4.6/§4.8).
func (l *Loader) ReadSectors(lba uint64, count int, sectorSize int) ([]byte, error) {
	startByte := lba * uint64(sectorSize)
	wantBytes := count * sectorSize
	startSector := uint32(startByte / SectorSize)
	skip := startByte - uint64(startSector)*SectorSize

	data, err := l.readBytesFrom(startSector, int(skip)+wantBytes)
	if err != nil {
		return nil, err
	}
	return data[skip:], nil
}

// Size returns the total medium size in bytes.
func (l *Loader) Size() uint64 { return uint64(l.size) }

// ReadFile reads a top-level file from the root directory by exact
// name, a debugging utility independent of the boot path (§4.8).
func (l *Loader) ReadFile(name string) ([]byte, error) {
	dirSector, err := l.sr.readSector(l.pvd.RootDirExtentLBA)
	if err != nil {
		return nil, err
	}
	for off := 0; off < len(dirSector); {
		recLen := int(dirSector[off])
		if recLen == 0 {
			break
		}
		rec := dirSector[off : off+recLen]
		if dirRecordName(rec) == name {
			lba := binary.LittleEndian.Uint32(rec[2:6])
			size := binary.LittleEndian.Uint32(rec[10:14])
			return l.readBytesFrom(lba, int(size))
		}
		off += recLen
	}
	return nil, fmt.Errorf("iso9660: file %q not found in root directory", name)
}
