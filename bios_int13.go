// bios_int13.go - INT 13h disk services (§4.6)
//
// CHS read (AH=02h) and LBA-extended read (AH=42h) both bottom out in
// BootMedium.ReadSectors; a CD-ROM medium's 2048-byte sectors are
// translated from the 512-byte requests the guest's real-mode loader
// issues, exactly as spec.md §4.6/§4.8 describe.
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package main

const (
	biosSectorSize = 512
	cdSectorSize   = 2048
)

func (b *BIOSServices) int13(c *CPU_X86) {
	switch c.AH() {
	case 0x00: // reset disk system
		retSuccess(c)
	case 0x02:
		b.int13CHSRead(c)
	case 0x41: // installation check for extensions
		c.SetBX(0xAA55)
		retSuccess(c)
	case 0x42:
		b.int13LBARead(c)
	default:
		retFail(c, 0x01) // invalid function
	}
}

// int13CHSRead implements AH=02h: AL=sector count, CH=cylinder low 8
// bits, CL bits 0-5=sector (1-based) bits 6-7=cylinder high 2 bits,
// DH=head, DL=drive, ES:BX=destination buffer.
func (b *BIOSServices) int13CHSRead(c *CPU_X86) {
	if b.boot == nil {
		retFail(c, 0x01)
		return
	}
	count := int(c.AL())
	sector := c.CL() & 0x3F
	cyl := uint16(c.CH()) | uint16(c.CL()&0xC0)<<2
	head := uint16(c.DH())

	const headsPerCyl, sectorsPerTrack = 2, 18
	lba := (uint64(cyl)*headsPerCyl+uint64(head))*sectorsPerTrack + uint64(sector) - 1

	b.int13ReadLBA(c, lba, count, c.ES, c.BX())
}

// int13LBARead implements AH=42h: DS:SI points to a Disk Address Packet
// {size byte, reserved byte, count u16, bufOff u16, bufSeg u16, lba u64}.
func (b *BIOSServices) int13LBARead(c *CPU_X86) {
	if b.boot == nil {
		retFail(c, 0x01)
		return
	}
	pkt := uint32(c.SI())
	count := int(c.readDS16(pkt + 2))
	bufOff := c.readDS16(pkt + 4)
	bufSeg := c.readDS16(pkt + 6)
	lba := uint64(c.readDS32(pkt + 8))

	b.int13ReadLBA(c, lba, count, bufSeg, bufOff)
}

// int13ReadLBA is the shared tail of both read forms: translate the
// 512-byte LBA/count into the medium's native sector size, read, and
// copy into guest memory at seg:off.
func (b *BIOSServices) int13ReadLBA(c *CPU_X86, lba512 uint64, count512 int, seg, off uint16) {
	sectorSize := biosSectorSize
	lba, count := lba512, count512
	if b.boot.Kind() == MediumCDROM {
		sectorSize = cdSectorSize
		startByte := lba512 * biosSectorSize
		endByte := startByte + uint64(count512)*biosSectorSize
		lba = startByte / cdSectorSize
		count = int((endByte+cdSectorSize-1)/cdSectorSize - lba)
	}

	data, err := b.boot.ReadSectors(lba, count, sectorSize)
	if err != nil {
		retFail(c, 0x04) // sector not found
		return
	}

	if b.boot.Kind() == MediumCDROM {
		skip := (lba512 * biosSectorSize) - lba*cdSectorSize
		want := uint64(count512) * biosSectorSize
		if skip+want > uint64(len(data)) {
			want = uint64(len(data)) - skip
		}
		data = data[skip : skip+want]
	}

	base := uint32(seg)*16 + uint32(off)
	for i, byteVal := range data {
		phys := c.translate(uint64(base)+uint64(i), true)
		c.bus.Write(phys, byteVal)
	}

	c.SetAL(byte(count512))
	retSuccess(c)
}
