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
	"github.com/nspiresim/firebirdcore/internal/scheduler"
	"github.com/nspiresim/firebirdcore/internal/timer"
)

// CX II memory map: the same boot ROM base, a full 64MB SDRAM window, and
// the SPI NAND window at 0xB8000000 named explicitly by the GDB memory-map
// scenario (spec §8 scenario 4).
const (
	cx2ROMBase = classicROMBase
	cx2ROMSize = classicROMSize
	cx2RAMBase = 0x10000000
	cx2RAMSize = 0x04000000
	cx2APBBase = classicAPBBase
	cx2NANDBase = 0xB8000000
)

// NewCX2Soc builds the later, richer-peripheral SoC: three SP804 timer
// banks, the FIFO/periodic-sampling ADC, and the SPI NAND path.
func NewCX2Soc(cfg config.Config, boot1 []byte, flashPath string) (*Soc, error) {
	s := &Soc{Variant: VariantCX2}
	s.Ctx = newBase(cfg)

	rom := memdispatch.NewRegion(cx2ROMBase, cx2ROMSize, true)
	if err := loadROM(rom, boot1); err != nil {
		return nil, err
	}
	ram := memdispatch.NewRegion(cx2RAMBase, cx2RAMSize, false)

	s.Backing = memdispatch.NewBacking()
	s.Backing.Add(rom)
	s.Backing.Add(ram)

	s.Dispatch = memdispatch.NewDispatch(s.Backing)
	s.APB = memdispatch.NewAPB(memdispatch.UnmappedHandler{})
	s.Dispatch.Bind(dispatchTable, cx2APBBase>>26, s.APB)

	s.buildCommonPeripherals(s.APB, dispatchMemory{s.Dispatch})

	s.PMU = pmu.New(s.Ctx)
	s.PMU.SetClockChangeLine(LineClockChange)
	s.buildPMU(s.APB, &pmuRegsDeps{
		releaseKeys: func() {},
		clearTimerSlots: func() {
			for _, slot := range []scheduler.SlotID{
				SlotSP804BankA0, SlotSP804BankA1,
				SlotSP804BankB0, SlotSP804BankB1,
				SlotSP804BankC0, SlotSP804BankC1,
			} {
				s.Ctx.Scheduler.EventClear(slot)
			}
		},
	})

	s.SP804A = timer.NewSP804Bank(s.Ctx, SlotSP804BankA0, SlotSP804BankA1, LineSP804BankA)
	s.SP804B = timer.NewSP804Bank(s.Ctx, SlotSP804BankB0, SlotSP804BankB1, LineSP804BankB)
	s.SP804C = timer.NewSP804Bank(s.Ctx, SlotSP804BankC0, SlotSP804BankC1, LineSP804BankC)
	s.APB.Bind(apbTimerA, sp804Regs{s.SP804A, 0})
	s.APB.Bind(apbTimerB, sp804Regs{s.SP804B, 0})
	s.APB.Bind(apbTimerC, sp804Regs{s.SP804C, 0})

	sampler := &powerSampler{pmu: s.PMU, keypadType: 0x3}
	s.ADCFIFO = adc.NewFIFO(s.Ctx, sampler, SlotADCBackgroundStep, LineADC)
	s.APB.Bind(apbADC, fifoADCRegs{s.ADCFIFO})

	chip, parts, fs, err := openNAND(flashPath, nand.CXIIPartitions)
	if err != nil {
		return nil, err
	}
	s.NANDChip = chip
	s.Partitions = parts
	s.FS = fs
	s.NANDSPI = nand.NewSPIController(chip)
	nandHandler := memdispatch.WordOnly(nandSPIRegs{s.NANDSPI})
	s.Dispatch.Bind(dispatchTable, cx2NANDBase>>26, nandHandler)

	return s, nil
}
