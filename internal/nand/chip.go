// This file is part of Firebird Core.
//
// Firebird Core is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Firebird Core is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Firebird Core.  If not, see <https://www.gnu.org/licenses/>.

// Package nand implements the parallel and SPI NAND flash chip models,
// their command/address state machines, ECC, and partition layout
// (spec §3 "NAND state", §4.E).
package nand

import (
	"os"

	"golang.org/x/sys/unix"

	"github.com/nspiresim/firebirdcore/internal/curated"
	"github.com/nspiresim/firebirdcore/internal/logger"
)

// Metrics describes the chip geometry decoded from the flash image's size
// (spec §6 "Flash image format": distinguished solely by file length).
type Metrics struct {
	ManufacturerID   uint8
	DeviceID         uint8
	NumPages         uint32
	Log2PagesPerBlock uint32
	PageSize         uint32
	SpareSize        uint32
}

// smallPageMetrics and largePageMetrics correspond to the two distinguished
// flash image sizes (33 MiB / 132 MiB, spec §6).
var (
	smallPageMetrics = Metrics{ManufacturerID: 0x20, DeviceID: 0x35, PageSize: 512, SpareSize: 16, Log2PagesPerBlock: 5}
	largePageMetrics = Metrics{ManufacturerID: 0x20, DeviceID: 0xA1, PageSize: 2048, SpareSize: 64, Log2PagesPerBlock: 6}
)

const (
	smallImageSize = 33 * 1024 * 1024
	largeImageSize = 132 * 1024 * 1024
)

// MetricsForImageSize picks the chip geometry purely from file length.
func MetricsForImageSize(size int64) (Metrics, error) {
	switch size {
	case smallImageSize:
		m := smallPageMetrics
		m.NumPages = uint32(size) / (m.PageSize + m.SpareSize)
		return m, nil
	case largeImageSize:
		m := largePageMetrics
		m.NumPages = uint32(size) / (m.PageSize + m.SpareSize)
		return m, nil
	default:
		return Metrics{}, curated.Errorf(curated.FlashOpenFailed, "unrecognised flash image size")
	}
}

func (m Metrics) PagesPerBlock() uint32 { return 1 << m.Log2PagesPerBlock }
func (m Metrics) RawPageSize() uint32   { return m.PageSize + m.SpareSize }

// Chip is the host-backed memory-mapped flash image plus the classic
// parallel command/address/data state machine (spec §3, §4.E "classic
// parallel path").
type Chip struct {
	Metrics Metrics

	file *os.File
	data []byte // mmap'd, size = rawPageSize * NumPages

	Writable bool

	// state machine
	op         uint8
	row        uint32
	column     uint32
	area       uint32 // 0 = data, 1 = spare/OOB
	addrBytes  int
	pageBuffer []byte
	dirty      map[uint32]bool // block index -> modified

	// write-controller request registers (spec §4.E "write controller")
	OpWord      uint32
	AddrWord    uint32
	SizeRAMWord uint32
}

// Open mmaps path as the chip's backing store (spec §1 "Persistent storage
// for flash images ... consumed via memory-mapped file primitives").
func Open(path string) (*Chip, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, curated.Errorf(curated.FlashOpenFailed, err)
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, curated.Errorf(curated.FlashOpenFailed, err)
	}
	metrics, err := MetricsForImageSize(fi.Size())
	if err != nil {
		f.Close()
		return nil, err
	}
	data, err := unix.Mmap(int(f.Fd()), 0, int(fi.Size()), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, curated.Errorf(curated.FlashOpenFailed, err)
	}
	c := &Chip{
		Metrics:    metrics,
		file:       f,
		data:       data,
		Writable:   true,
		pageBuffer: make([]byte, metrics.RawPageSize()),
		dirty:      make(map[uint32]bool),
	}
	return c, nil
}

// Close flushes and releases the mapping.
func (c *Chip) Close() error {
	if c.data != nil {
		unix.Msync(c.data, unix.MS_SYNC)
		unix.Munmap(c.data)
		c.data = nil
	}
	if c.file != nil {
		return c.file.Close()
	}
	return nil
}

func (c *Chip) pageOffset(row uint32) uint32 {
	return row * c.Metrics.RawPageSize()
}

func (c *Chip) blockOf(row uint32) uint32 {
	return row >> c.Metrics.Log2PagesPerBlock
}

func (c *Chip) markDirty(row uint32) {
	c.dirty[c.blockOf(row)] = true
}

// IsDirty reports whether the block containing row has been written since
// the image was opened (used by filesystem round-trip checks, spec
// scenario 6).
func (c *Chip) IsDirty(row uint32) bool {
	return c.dirty[c.blockOf(row)]
}

// ReadRaw reads length bytes at a raw page-relative offset (data area
// followed by spare), used by both the parallel and SPI command paths.
func (c *Chip) ReadRaw(row uint32, offset, length uint32) []byte {
	base := c.pageOffset(row) + offset
	if base+length > uint32(len(c.data)) {
		logger.Log("nand", "read past end of image: row=%d offset=%d", row, offset)
		return make([]byte, length)
	}
	out := make([]byte, length)
	copy(out, c.data[base:base+length])
	return out
}

// ProgramRaw ANDs buf into the page at offset (NAND program semantics:
// writes flip bits low only, spec §3) and marks the block dirty.
func (c *Chip) ProgramRaw(row uint32, offset uint32, buf []byte) error {
	if !c.Writable {
		return curated.Fatalf(curated.NANDWriteProtected)
	}
	base := c.pageOffset(row) + offset
	if base+uint32(len(buf)) > uint32(len(c.data)) {
		logger.Log("nand", "program past end of image: row=%d offset=%d len=%d", row, offset, len(buf))
		return nil
	}
	for i, b := range buf {
		c.data[base+uint32(i)] &= b
	}
	c.markDirty(row)
	return nil
}

// EraseBlock sets every byte in the block containing row to 0xFF (erase can
// only set bits, never clear, mirroring real NAND) and marks it dirty. A
// non-block-aligned row is logged and clamped to the block base (spec
// boundary behavior).
func (c *Chip) EraseBlock(row uint32) error {
	if !c.Writable {
		return curated.Fatalf(curated.NANDWriteProtected)
	}
	aligned := row &^ (c.Metrics.PagesPerBlock() - 1)
	if aligned != row {
		logger.Log("nand", "erase row %d not block-aligned, clamped to %d", row, aligned)
	}
	blockBytes := c.Metrics.PagesPerBlock() * c.Metrics.RawPageSize()
	base := c.pageOffset(aligned)
	for i := uint32(0); i < blockBytes && base+i < uint32(len(c.data)); i++ {
		c.data[base+i] = 0xFF
	}
	c.markDirty(aligned)
	return nil
}
