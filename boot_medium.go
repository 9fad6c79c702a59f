// boot_medium.go - BootMedium sink contract and file-backed implementations
// (§6, §4.8)
//
// Adapted from video_interface.go's typed-error-struct idiom one more
// time (BootMediumError mirrors ScreenError/VideoError) and from the
// teacher's file_io.go read-only-handle-wrapping style, generalized from
// "read an Amiga disk image" to "read fixed-size sectors from a CD-ROM
// image, floppy image, or raw disk".
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/zaynotley/pcxt/boot"
)

// BootMediumKind identifies the shape of the underlying media, consulted
// by INT 13h's service handlers.
type BootMediumKind int

const (
	MediumFloppyImage BootMediumKind = iota
	MediumCDROM
	MediumRawDisk
)

// BootMediumError mirrors ScreenError's shape for boot-media failures.
type BootMediumError struct {
	Operation string
	Details   string
	Err       error
}

func (e *BootMediumError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("boot medium %s failed: %s: %v", e.Operation, e.Details, e.Err)
	}
	return fmt.Sprintf("boot medium %s failed: %s", e.Operation, e.Details)
}

// BootMedium is the boot-time read-only storage contract (§6). The ISO
// loader wraps one to materialize a BootImage; INT 13h reads sectors
// from it directly for post-boot disk service calls.
type BootMedium interface {
	// ReadSectors reads count sectors of sectorSize bytes each, starting
	// at lba. FileBootMedium returns fewer bytes at end-of-media;
	// ISOBootMedium returns the loader's error instead.
	ReadSectors(lba uint64, count int, sectorSize int) ([]byte, error)
	// Size returns the total medium size in bytes.
	Size() uint64
	Kind() BootMediumKind
}

// FileBootMedium backs a BootMedium with a local file or any ReaderAt,
// the common case for both ISO images (CD-ROM) and raw floppy/disk
// images supplied on the command line.
type FileBootMedium struct {
	r    io.ReaderAt
	size uint64
	kind BootMediumKind
}

// OpenFileBootMedium opens path read-only and wraps it as the given
// medium kind.
func OpenFileBootMedium(path string, kind BootMediumKind) (*FileBootMedium, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &BootMediumError{Operation: "open", Details: path, Err: err}
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, &BootMediumError{Operation: "stat", Details: path, Err: err}
	}
	return &FileBootMedium{r: f, size: uint64(info.Size()), kind: kind}, nil
}

// NewFileBootMedium wraps an already-open io.ReaderAt (e.g. an in-memory
// byte buffer in tests) as the given medium kind.
func NewFileBootMedium(r io.ReaderAt, size uint64, kind BootMediumKind) *FileBootMedium {
	return &FileBootMedium{r: r, size: size, kind: kind}
}

func (m *FileBootMedium) ReadSectors(lba uint64, count int, sectorSize int) ([]byte, error) {
	off := lba * uint64(sectorSize)
	want := count * sectorSize
	buf := make([]byte, want)
	n, err := m.r.ReadAt(buf, int64(off))
	if err != nil && err != io.EOF {
		return nil, &BootMediumError{Operation: "read_sectors", Details: fmt.Sprintf("lba=%d count=%d", lba, count), Err: err}
	}
	return buf[:n], nil
}

func (m *FileBootMedium) Size() uint64 { return m.size }

func (m *FileBootMedium) Kind() BootMediumKind { return m.kind }

// ISOBootMedium adapts a boot.Loader (§4.8's ISO9660/El Torito loader) to
// the BootMedium contract, so INT 13h's post-boot disk reads and the
// loader's own boot-time sector reads share one code path.
type ISOBootMedium struct {
	loader *boot.Loader
}

// OpenISOBootMedium opens path as an El Torito-bootable ISO 9660 image,
// parses its boot catalog, and materializes the initial BootImage.
func OpenISOBootMedium(path string, logger *boot.Logger) (*ISOBootMedium, *boot.BootImage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, &BootMediumError{Operation: "open", Details: path, Err: err}
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, &BootMediumError{Operation: "stat", Details: path, Err: err}
	}

	loader, err := boot.NewLoader(f, info.Size(), logger)
	if err != nil {
		f.Close()
		return nil, nil, &BootMediumError{Operation: "parse", Details: path, Err: err}
	}
	img, err := loader.BootImage()
	if err != nil {
		f.Close()
		return nil, nil, &BootMediumError{Operation: "materialize boot image", Details: path, Err: err}
	}
	return &ISOBootMedium{loader: loader}, img, nil
}

func (m *ISOBootMedium) ReadSectors(lba uint64, count int, sectorSize int) ([]byte, error) {
	data, err := m.loader.ReadSectors(lba, count, sectorSize)
	if err != nil {
		return nil, &BootMediumError{Operation: "read_sectors", Details: fmt.Sprintf("lba=%d count=%d", lba, count), Err: err}
	}
	return data, nil
}

func (m *ISOBootMedium) Size() uint64 { return m.loader.Size() }

func (m *ISOBootMedium) Kind() BootMediumKind { return MediumCDROM }
