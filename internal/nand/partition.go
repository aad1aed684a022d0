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

package nand

import "encoding/binary"

// Partitions names the logical regions of a flash image (spec §4.E
// "Partition layout").
type Partitions struct {
	Manufacturing PartitionRange
	Boot2         PartitionRange
	BootData      PartitionRange
	Diags         PartitionRange
	DevCert       PartitionRange
	OSLoader      PartitionRange
	Filesystem    PartitionRange
}

// PartitionRange is a row-addressed [Start, End) page range.
type PartitionRange struct {
	StartRow uint32
	EndRow   uint32
}

// manufacturingOffsetTable is the fixed layout of the classic/CX offset
// table within the manufacturing page: four little-endian u32 row numbers
// giving the start of Boot2, BootData, Diags, and Filesystem respectively.
const (
	offBoot2      = 0x08
	offBootData   = 0x0C
	offDiags      = 0x10
	offFilesystem = 0x14
)

// ClassicPartitions reads the small offset table out of the manufacturing
// page (row 0) to build a classic/CX partition layout.
func ClassicPartitions(chip *Chip) Partitions {
	page := chip.ReadRaw(0, 0, chip.Metrics.PageSize)
	read := func(off int) uint32 {
		if off+4 > len(page) {
			return 0
		}
		return binary.LittleEndian.Uint32(page[off:])
	}
	boot2 := read(offBoot2)
	bootdata := read(offBootData)
	diags := read(offDiags)
	fs := read(offFilesystem)

	return Partitions{
		Manufacturing: PartitionRange{0, 1},
		Boot2:         PartitionRange{boot2, bootdata},
		BootData:      PartitionRange{bootdata, diags},
		Diags:         PartitionRange{diags, fs},
		Filesystem:    PartitionRange{fs, chip.Metrics.NumPages},
	}
}

// CXIIPartitions is the newer SoC's fixed block-aligned schedule (spec
// §4.E "Newer SoC: block-aligned fixed schedule").
func CXIIPartitions(chip *Chip) Partitions {
	ppb := chip.Metrics.PagesPerBlock()
	block := func(n uint32) uint32 { return n * ppb }

	return Partitions{
		Manufacturing: PartitionRange{block(0), block(1)},
		Boot2:         PartitionRange{block(1), block(5)},
		BootData:      PartitionRange{block(5), block(7)},
		DevCert:       PartitionRange{block(7), block(8)},
		OSLoader:      PartitionRange{block(8), block(11)},
		Filesystem:    PartitionRange{block(201), chip.Metrics.NumPages},
	}
}
