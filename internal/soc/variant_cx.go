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

package soc

import (
	"github.com/nspiresim/firebirdcore/internal/adc"
	"github.com/nspiresim/firebirdcore/internal/config"
	"github.com/nspiresim/firebirdcore/internal/memdispatch"
	"github.com/nspiresim/firebirdcore/internal/nand"
	"github.com/nspiresim/firebirdcore/internal/pmu"
	"github.com/nspiresim/firebirdcore/internal/timer"
)

// CX memory map: same boot ROM and APB/NAND windows as the classic SoC, a
// larger 64MB SDRAM region, and the ARM9-generation SP804 timer bank in
// place of the classic 32kHz pairs. Still the parallel NAND path (spec
// §4.E); CX II is the one that moves to SPI NAND.
const (
	cxROMBase  = classicROMBase
	cxROMSize  = classicROMSize
	cxRAMBase  = 0x10000000
	cxRAMSize  = 0x04000000
	cxAPBBase  = classicAPBBase
	cxNANDBase = classicNANDBase
)

// NewCXSoc builds the mid-generation SoC: SP804 timer bank A, the classic
// direct-read ADC, and the parallel NAND path.
func NewCXSoc(cfg config.Config, boot1 []byte, flashPath string) (*Soc, error) {
	s := &Soc{Variant: VariantCX}
	s.Ctx = newBase(cfg)

	rom := memdispatch.NewRegion(cxROMBase, cxROMSize, true)
	if err := loadROM(rom, boot1); err != nil {
		return nil, err
	}
	ram := memdispatch.NewRegion(cxRAMBase, cxRAMSize, false)

	s.Backing = memdispatch.NewBacking()
	s.Backing.Add(rom)
	s.Backing.Add(ram)

	s.Dispatch = memdispatch.NewDispatch(s.Backing)
	s.APB = memdispatch.NewAPB(memdispatch.UnmappedHandler{})
	s.Dispatch.Bind(dispatchTable, cxAPBBase>>26, s.APB)

	s.buildCommonPeripherals(s.APB, dispatchMemory{s.Dispatch})

	s.PMU = pmu.New(s.Ctx)
	s.PMU.SetClockChangeLine(LineClockChange)
	s.buildPMU(s.APB, &pmuRegsDeps{
		releaseKeys:     func() {},
		clearTimerSlots: func() {
			s.Ctx.Scheduler.EventClear(SlotSP804BankA0)
			s.Ctx.Scheduler.EventClear(SlotSP804BankA1)
		},
	})

	s.SP804A = timer.NewSP804Bank(s.Ctx, SlotSP804BankA0, SlotSP804BankA1, LineSP804BankA)
	s.APB.Bind(apbTimerA, sp804Regs{s.SP804A, 0})
	s.APB.Bind(apbTimerB, sp804Regs{s.SP804A, 1})

	sampler := &powerSampler{pmu: s.PMU, keypadType: 0x2}
	s.ADCClassic = adc.NewClassic(s.Ctx, sampler)
	s.APB.Bind(apbADC, classicADCRegs{s.ADCClassic})

	chip, parts, fs, err := openNAND(flashPath, nand.ClassicPartitions)
	if err != nil {
		return nil, err
	}
	s.NANDChip = chip
	s.Partitions = parts
	s.FS = fs
	s.NANDParallel = nand.NewParallelController(chip)
	nandHandler := memdispatch.WordOnly(nandParallelRegs{s.NANDParallel})
	s.Dispatch.Bind(dispatchTable, cxNANDBase>>26, nandHandler)

	return s, nil
}
