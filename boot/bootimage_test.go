// bootimage_test.go - Loader/BootImage unit tests against a synthetic
// El Torito-bootable ISO 9660 image built in memory.
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package boot

import (
	"bytes"
	"encoding/binary"
	"testing"
)

const (
	sectorPVD   = 16
	sectorBRVD  = 17
	sectorTerm  = 18
	sectorCat   = 20
	sectorImage = 21
)

// buildTestISO assembles a minimal ISO 9660 image with a single El Torito
// Initial/Default Entry pointing at imageData, stored from sectorImage.
func buildTestISO(t *testing.T, imageData []byte) []byte {
	t.Helper()

	totalSectors := sectorImage + 2
	img := make([]byte, totalSectors*SectorSize)

	put := func(lba uint32, off int, b []byte) {
		copy(img[int(lba)*SectorSize+off:], b)
	}

	// Primary Volume Descriptor.
	pvd := make([]byte, SectorSize)
	pvd[0] = vdTypePrimary
	copy(pvd[1:6], vdIdentifier)
	binary.LittleEndian.PutUint32(pvd[80:84], uint32(totalSectors))
	root := pvd[156:190]
	root[0] = 34
	binary.LittleEndian.PutUint32(root[2:6], 30) // root dir extent LBA (unused by these tests)
	binary.LittleEndian.PutUint32(root[10:14], 2048)
	put(sectorPVD, 0, pvd)

	// Boot Record Volume Descriptor naming the El Torito boot system.
	brvd := make([]byte, SectorSize)
	brvd[0] = vdTypeBootRecord
	copy(brvd[1:6], vdIdentifier)
	copy(brvd[7:39], elToritoBootSystemID)
	binary.LittleEndian.PutUint32(brvd[0x47:0x4B], sectorCat)
	put(sectorBRVD, 0, brvd)

	// Terminator.
	term := make([]byte, SectorSize)
	term[0] = vdTypeTerminator
	copy(term[1:6], vdIdentifier)
	put(sectorTerm, 0, term)

	// Boot catalog: Validation Entry + Initial/Default Entry.
	cat := make([]byte, SectorSize)
	cat[0] = validationHeaderID
	cat[1] = byte(PlatformBIOS)
	cat[0x1E] = 0x55
	cat[0x1F] = 0xAA
	var sum uint16
	for i := 0; i < 32; i += 2 {
		if i == 0x1C {
			continue // checksum field itself, patched below
		}
		sum += binary.LittleEndian.Uint16(cat[i : i+2])
	}
	binary.LittleEndian.PutUint16(cat[0x1C:0x1E], uint16(0)-sum)

	entry := cat[32:64]
	entry[0] = bootIndicatorBootable
	entry[1] = byte(EmulationNone)
	binary.LittleEndian.PutUint16(entry[2:4], 0x07C0) // load segment
	binary.LittleEndian.PutUint16(entry[6:8], uint16(len(imageData)/512))
	binary.LittleEndian.PutUint32(entry[8:12], sectorImage)
	put(sectorCat, 0, cat)

	put(sectorImage, 0, imageData)

	return img
}

func TestLoader_BootImage(t *testing.T) {
	imageData := bytes.Repeat([]byte{0xAB}, 1024) // 2 virtual 512-byte sectors
	raw := buildTestISO(t, imageData)

	loader, err := NewLoader(bytes.NewReader(raw), int64(len(raw)), nil)
	if err != nil {
		t.Fatalf("NewLoader: %v", err)
	}

	img, err := loader.BootImage()
	if err != nil {
		t.Fatalf("BootImage: %v", err)
	}
	if img.LoadSegment != 0x07C0 {
		t.Errorf("LoadSegment: got %#x, want 0x07C0", img.LoadSegment)
	}
	if !bytes.Equal(img.Data, imageData) {
		t.Errorf("Data: got %d bytes, want %d bytes matching source", len(img.Data), len(imageData))
	}
}

func TestLoader_ReadSectors512ByteGranularity(t *testing.T) {
	imageData := append(bytes.Repeat([]byte{0x11}, 512), bytes.Repeat([]byte{0x22}, 512)...)
	raw := buildTestISO(t, imageData)

	loader, err := NewLoader(bytes.NewReader(raw), int64(len(raw)), nil)
	if err != nil {
		t.Fatalf("NewLoader: %v", err)
	}

	// The boot image starts at LBA sectorImage (2048-byte sectors); in
	// 512-byte BIOS sectors that's lba=sectorImage*4. The second 512-byte
	// virtual sector (lba+1) falls inside the 0x22 half of imageData.
	data, err := loader.ReadSectors(uint64(sectorImage)*4+1, 1, 512)
	if err != nil {
		t.Fatalf("ReadSectors: %v", err)
	}
	if !bytes.Equal(data, bytes.Repeat([]byte{0x22}, 512)) {
		t.Errorf("second 512-byte sector: got %x, want all 0x22", data[:8])
	}
}

func TestLoader_NoElTorito(t *testing.T) {
	raw := buildTestISO(t, bytes.Repeat([]byte{0}, 512))
	// Blank out the boot record's system identifier so it no longer names
	// El Torito.
	off := sectorBRVD*SectorSize + 7
	copy(raw[off:off+32], bytes.Repeat([]byte{' '}, 32))

	_, err := NewLoader(bytes.NewReader(raw), int64(len(raw)), nil)
	if err == nil {
		t.Fatal("expected an error when no El Torito boot record is present")
	}
}
