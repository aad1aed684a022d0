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

// Classic memory map: 512KB boot ROM at 0, 32MB SDRAM at 0x10000000, the
// APB peripheral window at 0x90000000, and the parallel NAND command/
// address/data window at 0xA0000000. Each base is slot-aligned (a multiple
// of 64MB) so it occupies exactly one top-level dispatch slot (spec §4.C).
const (
	classicROMBase  = 0x00000000
	classicROMSize  = 0x00080000
	classicRAMBase  = 0x10000000
	classicRAMSize  = 0x02000000
	classicAPBBase  = 0x90000000
	classicNANDBase = 0xA0000000
)

// NewClassicSoc builds the original ARM7-class SoC: classic 32kHz timers,
// the seven-channel direct-read ADC, and the parallel NAND path (spec §4.E
// "classic parallel path").
func NewClassicSoc(cfg config.Config, boot1 []byte, flashPath string) (*Soc, error) {
	s := &Soc{Variant: VariantClassic}
	s.Ctx = newBase(cfg)

	rom := memdispatch.NewRegion(classicROMBase, classicROMSize, true)
	if err := loadROM(rom, boot1); err != nil {
		return nil, err
	}
	ram := memdispatch.NewRegion(classicRAMBase, classicRAMSize, false)

	s.Backing = memdispatch.NewBacking()
	s.Backing.Add(rom)
	s.Backing.Add(ram)

	s.Dispatch = memdispatch.NewDispatch(s.Backing)
	s.APB = memdispatch.NewAPB(memdispatch.UnmappedHandler{})
	s.Dispatch.Bind(dispatchTable, classicAPBBase>>26, s.APB)

	s.buildCommonPeripherals(s.APB, dispatchMemory{s.Dispatch})

	s.PMU = pmu.New(s.Ctx)
	s.PMU.SetClockChangeLine(LineClockChange)
	s.buildPMU(s.APB, &pmuRegsDeps{
		releaseKeys:     func() {},
		clearTimerSlots: func() { s.Ctx.Scheduler.EventClear(SlotClassicTimers) },
	})

	s.ClassicTimers = timer.NewClassicBanks(s.Ctx, SlotClassicTimers, LineClassicTimers)
	s.APB.Bind(apbTimerA, classicTimerRegs{s.ClassicTimers})

	sampler := &powerSampler{pmu: s.PMU, keypadType: 0x1}
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
	s.Dispatch.Bind(dispatchTable, classicNANDBase>>26, nandHandler)

	return s, nil
}
