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

// Package pmu models the clock-tree/power-management unit: clock-apply
// decode feeding the scheduler's clock rates, sleep/wake, and the derived
// power rails recomputed on every status read (spec §4.F).
package pmu

import (
	"github.com/nspiresim/firebirdcore/internal/logger"
	"github.com/nspiresim/firebirdcore/internal/sysctx"
)

// USBSource enumerates the power-model's USB source selector.
type USBSource int

const (
	USBDisconnected USBSource = iota
	USBComputer
	USBCharger
	USBOTG
)

// ChargerState is the derived charger indicator.
type ChargerState int

const (
	ChargerDisconnected ChargerState = iota
	ChargerConnectedIdle
	ChargerCharging
)

// Inputs holds the GUI-overridable observable inputs to the power model
// (spec §3 "Power model"). These are written by the UI thread and read by
// the CPU thread on every status-register access; the spec models them as
// relaxed atomics, but since this core is single-writer-from-the-CPU-thread
// by contract (§5), plain fields suffice as long as callers route writes
// through the Set* methods rather than racing on the struct.
type Inputs struct {
	USBSource      USBSource
	BatteryPresent bool
	DockAttached   bool
	VBUSmV         int
	DockRailmV     int
	BatterymV      int
}

// Derived is the pure function's output.
type Derived struct {
	Charger ChargerState
	VSYSmV  int
	ADC     [8]uint16 // per-rail ADC codes
}

// PMU holds the clock-tree state, sleep flag mirror, and sticky status
// registers the derived rails are blended into.
type PMU struct {
	ctx *sysctx.SystemContext

	Inputs Inputs

	// WakeupReason is PMU register +0x00. The original firmware's own name
	// for it ("wakeup reason") undersells what guest firmware actually
	// stores there: live bitfields the guest expects to read back, so
	// writes are honored (spec Open Questions).
	WakeupReason uint32

	statusSticky [4]uint32 // firmware-owned high bits, preserved across recompute

	wakeCause       uint32
	clockChangeLine int
}

// New constructs a PMU bound to the shared system context.
func New(ctx *sysctx.SystemContext) *PMU {
	return &PMU{ctx: ctx}
}

// ApplyClock decodes the PMU clock-apply register word and pushes the
// resulting CPU/AHB/APB rates into the shared clock table and scheduler
// (spec §4.F "Clock change protocol"). Bits: [0:7] multiplier against the
// crystal (or a fixed override when bit 31 is set), [8:11] CPU divider,
// [12:15] AHB divider; APB is always AHB/2.
func (p *PMU) ApplyClock(word uint32) {
	const crystalHz = 27_000_000

	var base uint32
	if word&(1<<31) != 0 {
		base = word & 0x7FFFFFFF
	} else {
		mult := (word >> 0) & 0xFF
		if mult == 0 {
			mult = 1
		}
		base = crystalHz * mult
	}

	cpuDiv := (word >> 8) & 0xF
	ahbDiv := (word >> 12) & 0xF
	if cpuDiv == 0 {
		cpuDiv = 1
	}
	if ahbDiv == 0 {
		ahbDiv = 1
	}

	cpu := base / cpuDiv
	ahb := cpu / ahbDiv
	apb := ahb / 2

	p.ctx.Rates.SetCPUTree(cpu, ahb, apb)
	p.ctx.Scheduler.SetClocks(*p.ctx.Rates)

	if p.ctx.Intc != nil {
		if err := p.ctx.Intc.SetLine(p.clockChangeLine, true); err != nil {
			logger.Log("pmu", "clock-change line %d: %v", p.clockChangeLine, err)
		}
	}
}

// SetClockChangeLine lets the SoC wiring tell the PMU which interrupt line
// to assert on clock-change completion (spec §4.F); zero is a harmless
// default for variants without this line.
func (p *PMU) SetClockChangeLine(line int) {
	p.clockChangeLine = line
}

// Sleep implements the power-control sleep-bit write (spec §4.F "Sleep"):
// releases all keys, sets the CPU-polled sleep flag, clears the fast/slow
// timer scheduler slots, and resets PMU state back to a quiescent default.
func (p *PMU) Sleep(releaseKeys func(), clearTimerSlots func()) {
	if releaseKeys != nil {
		releaseKeys()
	}
	if clearTimerSlots != nil {
		clearTimerSlots()
	}
	p.ctx.EnterSleep()
	p.statusSticky = [4]uint32{}
}

// Wake implements the wake path: latches a wake cause, clears the sleep
// flag, and lets interrupts flow again.
func (p *PMU) Wake(cause uint32) {
	p.wakeCause = cause
	p.ctx.WakeUp()
}

// WakeCause returns the most recently latched wake cause.
func (p *PMU) WakeCause() uint32 {
	return p.wakeCause
}

// Derive computes the pure function of observable inputs (spec §3 "Power
// model", §4.F "Derived rails"). It is re-run on every PMU/ADC status read.
func (p *PMU) Derive() Derived {
	in := p.Inputs

	var charger ChargerState
	switch {
	case in.USBSource == USBDisconnected && !in.DockAttached:
		charger = ChargerDisconnected
	case in.USBSource == USBComputer:
		charger = ChargerConnectedIdle
	case in.USBSource == USBCharger, in.DockAttached:
		charger = ChargerCharging
	default:
		charger = ChargerConnectedIdle
	}

	vsys := in.BatterymV
	if charger != ChargerDisconnected {
		// a charging/idle-connected source floors VSYS near the rail it is
		// drawing from, same as real hardware regulating off USB/dock.
		rail := in.VBUSmV
		if in.DockAttached && in.DockRailmV > rail {
			rail = in.DockRailmV
		}
		if rail > 0 {
			vsys = clampInt(rail-200, vsys, rail)
		}
	}
	if !in.BatteryPresent && in.VBUSmV == 0 && !in.DockAttached {
		vsys = 0
	}

	var adc [8]uint16
	adc[0] = mvToCode(vsys, 5000)
	adc[1] = mvToCode(in.BatterymV, 5000)
	adc[2] = mvToCode(in.VBUSmV, 6000)
	adc[3] = mvToCode(in.DockRailmV, 6000)
	if in.BatteryPresent {
		adc[4] = 1
	}
	if in.DockAttached {
		adc[5] = 1
	}
	adc[6] = uint16(in.USBSource)

	return Derived{Charger: charger, VSYSmV: vsys, ADC: adc}
}

// StatusWord returns register idx of the PMU status block with the derived
// bits inserted into the low portion while preserving the firmware-owned
// sticky high bits (spec §4.F "preserving firmware-owned high bits").
func (p *PMU) StatusWord(idx int) uint32 {
	if idx < 0 || idx >= len(p.statusSticky) {
		return 0
	}
	d := p.Derive()
	low := uint32(d.Charger) | uint32(d.VSYSmV&0xFFFF)<<8
	return (p.statusSticky[idx] &^ 0xFFFFFF) | low
}

// SetStatusStickyBits ORs firmware-writable high bits into a status word,
// leaving the derived low bits alone until the next recompute.
func (p *PMU) SetStatusStickyBits(idx int, bits uint32) {
	if idx < 0 || idx >= len(p.statusSticky) {
		return
	}
	p.statusSticky[idx] |= bits &^ 0xFFFFFF
}

// State is every PMU register not otherwise reachable through Inputs, for
// the snapshot package.
type State struct {
	Inputs       Inputs
	WakeupReason uint32
	StatusSticky [4]uint32
	WakeCause    uint32
}

// Snapshot captures the PMU's register state.
func (p *PMU) Snapshot() State {
	return State{
		Inputs:       p.Inputs,
		WakeupReason: p.WakeupReason,
		StatusSticky: p.statusSticky,
		WakeCause:    p.wakeCause,
	}
}

// Restore replaces the PMU's register state, used when resuming from a
// snapshot. ClockChangeLine is re-bound by the SoC constructor, not carried
// here.
func (p *PMU) Restore(st State) {
	p.Inputs = st.Inputs
	p.WakeupReason = st.WakeupReason
	p.statusSticky = st.StatusSticky
	p.wakeCause = st.WakeCause
}

func clampInt(lo, v, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func mvToCode(mv, fullScaleMv int) uint16 {
	if mv <= 0 {
		return 0
	}
	code := mv * 4095 / fullScaleMv
	if code > 4095 {
		code = 4095
	}
	return uint16(code)
}
