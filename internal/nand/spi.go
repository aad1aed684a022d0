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

import (
	"encoding/binary"

	"github.com/nspiresim/firebirdcore/internal/logger"
)

// SPI commands recognised by the later SoC's SPI NAND path (spec §4.E "SPI
// path").
const (
	SPICmdJEDECID         = 0x9F
	SPICmdGetFeatures     = 0x0F
	SPICmdSetFeatures     = 0x1F
	SPICmdReadPage        = 0x13
	SPICmdReadFromCache   = 0x0B
	SPICmdReadFromCacheX2 = 0x6B
	SPICmdProgramLoad     = 0x02
	SPICmdProgramLoadRand = 0x84
	SPICmdProgramLoadX4   = 0x32
	SPICmdProgramLoadRandX4 = 0x34
	SPICmdProgramExecute  = 0x10
	SPICmdBlockErase      = 0xD8
	SPICmdWriteEnable     = 0x06
	SPICmdWriteDisable    = 0x04
)

// spiPhase names the SPI transaction state machine's current phase (spec
// §4.E "SPI path": `{COMMAND, ADDRESS, DUMMY, DATA}`).
type spiPhase int

const (
	spiCommand spiPhase = iota
	spiAddress
	spiDummy
	spiData
)

// SPIController drives a Chip through the later SoC's SPI NAND command
// set, marshalling chip-select-framed byte streams into page-buffer
// operations.
type SPIController struct {
	chip *Chip

	phase       spiPhase
	cmd         uint8
	addrByte    int
	addrBytes   int
	addr        uint32
	features    map[uint8]uint8
	cacheBuffer []byte
	programBuf  []byte
	col         uint32
}

// NewSPIController binds a controller to a chip. GET_FEATURES reads return
// only values stored by SET_FEATURES; the ONFI parameter page is not served
// through the feature-read path.
func NewSPIController(chip *Chip) *SPIController {
	s := &SPIController{
		chip:        chip,
		features:    map[uint8]uint8{},
		cacheBuffer: make([]byte, chip.Metrics.RawPageSize()),
		programBuf:  make([]byte, chip.Metrics.RawPageSize()),
	}
	for i := range s.programBuf {
		s.programBuf[i] = 0xFF
	}
	return s
}

// BeginTransaction resets the phase state machine for a new chip-select
// assertion.
func (s *SPIController) BeginTransaction() {
	s.phase = spiCommand
	s.addrByte = 0
	s.addr = 0
}

// Byte feeds one byte of a SPI transaction, returning the response byte (0
// for write-only phases).
func (s *SPIController) Byte(in uint8) uint8 {
	switch s.phase {
	case spiCommand:
		s.cmd = in
		s.onCommand()
		return 0
	case spiAddress:
		s.addr = (s.addr << 8) | uint32(in)
		s.addrByte++
		if s.addrByte >= s.addrBytes {
			s.phase = spiData
			s.onAddressComplete()
		}
		return 0
	case spiDummy:
		s.phase = spiData
		return 0
	case spiData:
		return s.onData(in)
	}
	return 0
}

func (s *SPIController) onCommand() {
	switch s.cmd {
	case SPICmdJEDECID:
		s.phase = spiData
		s.col = 0
	case SPICmdGetFeatures, SPICmdSetFeatures:
		s.phase = spiAddress
		s.addrBytes = 1
	case SPICmdReadPage, SPICmdBlockErase:
		s.phase = spiAddress
		s.addrBytes = 3
	case SPICmdReadFromCache, SPICmdReadFromCacheX2:
		s.phase = spiAddress
		s.addrBytes = 2
	case SPICmdProgramLoad, SPICmdProgramLoadRand, SPICmdProgramLoadX4, SPICmdProgramLoadRandX4:
		s.phase = spiAddress
		s.addrBytes = 2
	case SPICmdProgramExecute:
		s.phase = spiAddress
		s.addrBytes = 3
	case SPICmdWriteEnable:
		s.chip.Writable = true
		s.phase = spiCommand
	case SPICmdWriteDisable:
		s.chip.Writable = false
		s.phase = spiCommand
	default:
		logger.Log("nand", "unsupported spi nand command: %#02x", s.cmd)
		s.phase = spiCommand
	}
}

func (s *SPIController) onAddressComplete() {
	switch s.cmd {
	case SPICmdReadPage:
		row := s.addr
		copy(s.cacheBuffer, s.chip.ReadRaw(row, 0, s.chip.Metrics.RawPageSize()))
	case SPICmdReadFromCache, SPICmdReadFromCacheX2:
		s.col = s.addr
	case SPICmdProgramLoad, SPICmdProgramLoadX4:
		s.col = s.addr
		for i := range s.programBuf {
			s.programBuf[i] = 0xFF
		}
	case SPICmdProgramLoadRand, SPICmdProgramLoadRandX4:
		s.col = s.addr
	case SPICmdProgramExecute:
		row := s.addr
		if err := s.chip.ProgramRaw(row, 0, s.programBuf); err != nil {
			logger.Log("nand", "spi program execute failed: %v", err)
		}
		s.chip.WriteBackECC(row)
		s.phase = spiCommand
	case SPICmdBlockErase:
		if err := s.chip.EraseBlock(s.addr); err != nil {
			logger.Log("nand", "spi block erase failed: %v", err)
		}
		s.phase = spiCommand
	}
}

func (s *SPIController) onData(in uint8) uint8 {
	switch s.cmd {
	case SPICmdJEDECID:
		ids := []uint8{s.chip.Metrics.ManufacturerID, s.chip.Metrics.DeviceID}
		idx := int(s.col)
		s.col++
		if idx < len(ids) {
			return ids[idx]
		}
		return 0
	case SPICmdGetFeatures:
		return s.features[uint8(s.addr)]
	case SPICmdReadFromCache, SPICmdReadFromCacheX2:
		if int(s.col) < len(s.cacheBuffer) {
			b := s.cacheBuffer[s.col]
			s.col++
			return b
		}
		return 0xFF
	case SPICmdProgramLoad, SPICmdProgramLoadRand, SPICmdProgramLoadX4, SPICmdProgramLoadRandX4:
		if int(s.col) < len(s.programBuf) {
			s.programBuf[s.col] = in
			s.col++
		}
		return 0
	}
	return 0
}

// SetFeature implements SET_FEATURES's data phase for a feature address.
func (s *SPIController) SetFeature(addr, value uint8) {
	s.features[addr] = value
}

// ONFIParameterPage synthesizes a minimal ONFI parameter page with a proper
// CRC-16 and returns it to the caller; no SPI command reads it out.
func (s *SPIController) ONFIParameterPage() []byte {
	page := make([]byte, 256)
	copy(page[0:4], []byte("ONFI"))
	binary.LittleEndian.PutUint32(page[80:84], s.chip.Metrics.PageSize)
	binary.LittleEndian.PutUint16(page[84:86], uint16(s.chip.Metrics.SpareSize))
	binary.LittleEndian.PutUint32(page[92:96], s.chip.Metrics.PagesPerBlock())
	crc := onfiCRC16(page[0:254])
	binary.LittleEndian.PutUint16(page[254:256], crc)
	return page
}

// onfiCRC16 implements the CRC-16/ONFI variant (poly 0x8005, init 0x4F4E).
func onfiCRC16(data []byte) uint16 {
	crc := uint16(0x4F4E)
	for _, b := range data {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = (crc << 1) ^ 0x8005
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
