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

// Package soc assembles the scheduler, interrupt controller, memory
// dispatch fabric, and every peripheral model into the three SoC variants
// (spec §2 "the three SoC variants share this skeleton and differ in which
// device handlers populate which regions of the address space"). It is the
// one package that knows every other internal package at once; everything
// else stays decoupled through internal/sysctx.
package soc

import (
	"github.com/nspiresim/firebirdcore/internal/adc"
	"github.com/nspiresim/firebirdcore/internal/clockdomain"
	"github.com/nspiresim/firebirdcore/internal/config"
	"github.com/nspiresim/firebirdcore/internal/curated"
	"github.com/nspiresim/firebirdcore/internal/intc"
	"github.com/nspiresim/firebirdcore/internal/memdispatch"
	"github.com/nspiresim/firebirdcore/internal/nand"
	"github.com/nspiresim/firebirdcore/internal/nandfs"
	"github.com/nspiresim/firebirdcore/internal/periph"
	"github.com/nspiresim/firebirdcore/internal/pmu"
	"github.com/nspiresim/firebirdcore/internal/scheduler"
	"github.com/nspiresim/firebirdcore/internal/sysctx"
	"github.com/nspiresim/firebirdcore/internal/timer"
	"github.com/nspiresim/firebirdcore/internal/usblink"
)

// Variant names one of the three SoC generations (spec §1).
type Variant int

const (
	VariantClassic Variant = iota
	VariantCX
	VariantCX2
)

func (v Variant) String() string {
	switch v {
	case VariantClassic:
		return "classic"
	case VariantCX:
		return "cx"
	case VariantCX2:
		return "cx2"
	default:
		return "unknown"
	}
}

// dispatchTable is which of Dispatch's six top-level tables this Soc's
// variant occupies. Each Soc only ever drives its own variant's table.
const dispatchTable = 0

// Scheduler slot identities, shared across variants; a variant that has no
// use for a slot (e.g. the classic SoC has no FIFO ADC) simply never arms
// it.
const (
	SlotWatchdog scheduler.SlotID = iota
	SlotClassicTimers
	SlotSP804BankA0
	SlotSP804BankA1
	SlotSP804BankB0
	SlotSP804BankB1
	SlotSP804BankC0
	SlotSP804BankC1
	SlotADCBackgroundStep
	SlotUSBLink
	numSlots
)

var slotNames = []string{
	"watchdog", "classic_timers",
	"sp804_a0", "sp804_a1", "sp804_b0", "sp804_b1", "sp804_c0", "sp804_c1",
	"adc_background_step", "usb_link_poll",
}

var slotDomains = []clockdomain.Domain{
	clockdomain.Fixed32K, clockdomain.Fixed32K,
	clockdomain.APB, clockdomain.APB, clockdomain.APB, clockdomain.APB, clockdomain.APB, clockdomain.APB,
	clockdomain.APB, clockdomain.APB,
}

// Interrupt line identities (spec §4.B "32 lines"); only the lines this
// core drives are named, the rest are left to variant-specific wiring.
const (
	LineWatchdog = iota
	LineClassicTimers
	LineSP804BankA
	LineSP804BankB
	LineSP804BankC
	LineGPIO
	LineSerial
	LineDMA
	LineClockChange
	LineADC
	LineUSBLink
)

// Soc bundles every component built for one running emulator instance.
// Fields a given variant doesn't use are left nil.
type Soc struct {
	Variant Variant
	Ctx     *sysctx.SystemContext
	Backing *memdispatch.Backing
	Dispatch *memdispatch.Dispatch
	APB     *memdispatch.APB

	PMU      *pmu.PMU
	Watchdog *periph.Watchdog
	GPIO     *periph.GPIO
	RTC      *periph.RTC
	Misc     *periph.Misc
	Keypad   *periph.Keypad
	Serial   *periph.Serial
	SDIO     *periph.SDIO
	SPIBus   *periph.SPIBus
	LED      *periph.LED
	LCD      *periph.LCD
	Backlight *periph.Backlight
	DMA      *periph.DMA
	USBLink  *usblink.Link

	ADCClassic *adc.Classic
	ADCFIFO    *adc.FIFO

	ClassicTimers *timer.ClassicBanks
	SP804A        *timer.SP804Bank
	SP804B        *timer.SP804Bank
	SP804C        *timer.SP804Bank

	NANDChip     *nand.Chip
	NANDParallel *nand.ParallelController
	NANDSPI      *nand.SPIController
	Partitions   nand.Partitions
	FS           *nandfs.Filesystem
}

// newBase constructs the scheduler/interrupt-controller/clock-rate/context
// skeleton shared by every variant.
func newBase(cfg config.Config) *sysctx.SystemContext {
	rates := clockdomain.NewRates()
	sched := scheduler.New(rates, slotNames, slotDomains)
	ic := intc.New()
	if cfg.TraceIRQ {
		ic.Log()
	}
	return sysctx.New(sched, ic, &rates, cfg)
}

// openNAND opens the flash image and recovers its partition layout and
// filesystem, common to every variant's boot path.
func openNAND(flashPath string, partitionsOf func(*nand.Chip) nand.Partitions) (*nand.Chip, nand.Partitions, *nandfs.Filesystem, error) {
	chip, err := nand.Open(flashPath)
	if err != nil {
		return nil, nand.Partitions{}, nil, err
	}
	parts := partitionsOf(chip)
	fs, err := nandfs.Parse(chip, parts.Filesystem)
	if err != nil {
		// An unrecognised filesystem is not fatal to booting (spec §9 Open
		// Questions): the NAND subsystem still functions at the raw flash
		// level.
		fs = nil
	}
	return chip, parts, fs, nil
}

// loadROM reads the boot1 image into the boot ROM region. A short image is
// zero-padded; an oversized one is a configuration error.
func loadROM(rom *memdispatch.Region, data []byte) error {
	if uint32(len(data)) > rom.Size {
		return curated.Errorf(curated.MemoryBadRegion)
	}
	copy(rom.Host, data)
	return nil
}
