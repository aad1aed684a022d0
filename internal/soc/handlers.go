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
	"github.com/nspiresim/firebirdcore/internal/nand"
	"github.com/nspiresim/firebirdcore/internal/periph"
	"github.com/nspiresim/firebirdcore/internal/pmu"
	"github.com/nspiresim/firebirdcore/internal/timer"
	"github.com/nspiresim/firebirdcore/internal/usblink"
)

// Every adapter below implements memdispatch.WordHandler against a fixed
// internal register layout and is bound into an APB sub-slot via
// (*memdispatch.APB).Bind, which promotes it to the full byte/half/word
// surface (§4.C's "APB treats all accesses as word-sized"). base is the
// global address the block starts at; off is always (addr-base)&mask.

type watchdogRegs struct{ w *periph.Watchdog }

const (
	regWatchdogLoad    = 0x00
	regWatchdogControl = 0x04
	regWatchdogLock    = 0x08
)

func (r watchdogRegs) ReadWord(addr uint32) (uint32, error) {
	switch addr & 0xFF {
	case regWatchdogLoad:
		return r.w.Load, nil
	case regWatchdogControl:
		return r.w.Control, nil
	}
	return 0, nil
}

func (r watchdogRegs) WriteWord(addr uint32, v uint32) error {
	switch addr & 0xFF {
	case regWatchdogLoad:
		r.w.WriteLoad(v)
	case regWatchdogControl:
		r.w.WriteControl(v)
	case regWatchdogLock:
		r.w.WriteLock(v)
	}
	return nil
}

// gpioRegs wires one GPIO section's seven register offsets at a fixed 0x20
// stride per section.
type gpioRegs struct{ g *periph.GPIO }

const (
	gpioSectionStride   = 0x20
	regGPIODirection    = 0x00
	regGPIOOutput       = 0x04
	regGPIOData         = 0x08
	regGPIOEdge         = 0x0C
	regGPIOMask         = 0x10
	regGPIOStatus       = 0x14
	regGPIOAck          = 0x18
)

func (r gpioRegs) ReadWord(addr uint32) (uint32, error) {
	off := addr & 0xFF
	section := int(off / gpioSectionStride)
	switch off % gpioSectionStride {
	case regGPIODirection:
		return uint32(r.g.Sections[section].Direction), nil
	case regGPIOOutput:
		return uint32(r.g.Sections[section].Output), nil
	case regGPIOData:
		return uint32(r.g.Data(section)), nil
	case regGPIOEdge:
		return uint32(r.g.Sections[section].Edge), nil
	case regGPIOMask:
		return uint32(r.g.Sections[section].Mask), nil
	case regGPIOStatus, regGPIOAck:
		return uint32(r.g.Sections[section].Sticky), nil
	}
	return 0, nil
}

func (r gpioRegs) WriteWord(addr uint32, v uint32) error {
	off := addr & 0xFF
	section := int(off / gpioSectionStride)
	switch off % gpioSectionStride {
	case regGPIODirection:
		r.g.WriteDirection(section, uint8(v))
	case regGPIOOutput:
		r.g.WriteOutput(section, uint8(v))
	case regGPIOEdge:
		r.g.Sections[section].Edge = uint8(v)
	case regGPIOMask:
		r.g.Sections[section].Mask = uint8(v)
	case regGPIOAck:
		r.g.AckStatus(section, uint8(v))
	}
	return nil
}

type miscRegs struct{ m *periph.Misc }

const (
	regMiscCause      = 0x40
	regMiscSoftReset  = 0x44
)

func (r miscRegs) ReadWord(addr uint32) (uint32, error) {
	off := addr & 0xFF
	if off < fastbootRAMSizeWord {
		return uint32(r.m.ReadFastboot(off)) |
			uint32(r.m.ReadFastboot(off+1))<<8 |
			uint32(r.m.ReadFastboot(off+2))<<16 |
			uint32(r.m.ReadFastboot(off+3))<<24, nil
	}
	if off == regMiscCause {
		return uint32(r.m.Cause), nil
	}
	return 0, nil
}

const fastbootRAMSizeWord = 0x40

func (r miscRegs) WriteWord(addr uint32, v uint32) error {
	off := addr & 0xFF
	if off < fastbootRAMSizeWord {
		r.m.WriteFastboot(off, byte(v))
		r.m.WriteFastboot(off+1, byte(v>>8))
		r.m.WriteFastboot(off+2, byte(v>>16))
		r.m.WriteFastboot(off+3, byte(v>>24))
		return nil
	}
	if off == regMiscSoftReset {
		r.m.TriggerSoftReset()
	}
	return nil
}

type rtcRegs struct{ r *periph.RTC }

func (r rtcRegs) ReadWord(addr uint32) (uint32, error)  { return r.r.Value(), nil }
func (r rtcRegs) WriteWord(addr uint32, v uint32) error { r.r.WriteValue(v); return nil }

type keypadRegs struct{ k *periph.Keypad }

const (
	regKeypadRowSelect = 0x00
	regKeypadColumns   = 0x04
)

func (r keypadRegs) ReadWord(addr uint32) (uint32, error) {
	if addr&0xFF == regKeypadColumns {
		return r.k.ColumnState(), nil
	}
	return 0, nil
}

func (r keypadRegs) WriteWord(addr uint32, v uint32) error {
	if addr&0xFF == regKeypadRowSelect {
		r.k.WriteRowSelect(v)
	}
	return nil
}

type serialRegs struct{ s *periph.Serial }

const (
	regSerialData   = 0x00
	regSerialStatus = 0x04
)

func (r serialRegs) ReadWord(addr uint32) (uint32, error) {
	switch addr & 0xFF {
	case regSerialData:
		return uint32(int32(r.s.ReadData())), nil
	case regSerialStatus:
		return r.s.Status(), nil
	}
	return 0, nil
}

func (r serialRegs) WriteWord(addr uint32, v uint32) error {
	if addr&0xFF == regSerialData {
		r.s.WriteData(byte(v))
	}
	return nil
}

type sdioRegs struct{ s *periph.SDIO }

const (
	regSDIOCommand  = 0x00
	regSDIOArgument = 0x04
	regSDIOResponse = 0x08
	regSDIOStatus   = 0x18
)

func (r sdioRegs) ReadWord(addr uint32) (uint32, error) {
	off := addr & 0xFF
	switch {
	case off == regSDIOArgument:
		return r.s.Argument, nil
	case off >= regSDIOResponse && off < regSDIOStatus:
		return r.s.Response[(off-regSDIOResponse)/4], nil
	case off == regSDIOStatus:
		return r.s.Status, nil
	}
	return 0, nil
}

func (r sdioRegs) WriteWord(addr uint32, v uint32) error {
	switch addr & 0xFF {
	case regSDIOCommand:
		r.s.WriteCommand(v)
	case regSDIOArgument:
		r.s.Argument = v
	}
	return nil
}

type spiBusRegs struct{ s *periph.SPIBus }

const (
	regSPIBusControl = 0x00
	regSPIBusData    = 0x04
)

func (r spiBusRegs) ReadWord(addr uint32) (uint32, error) {
	if addr&0xFF == regSPIBusControl {
		return r.s.Control, nil
	}
	return 0, nil
}

func (r spiBusRegs) WriteWord(addr uint32, v uint32) error {
	switch addr & 0xFF {
	case regSPIBusControl:
		r.s.Control = v
	case regSPIBusData:
		r.s.Transfer(byte(v))
	}
	return nil
}

type ledRegs struct{ l *periph.LED }

func (r ledRegs) ReadWord(addr uint32) (uint32, error)  { return r.l.Control, nil }
func (r ledRegs) WriteWord(addr uint32, v uint32) error { r.l.WriteControl(v); return nil }

type lcdRegs struct {
	lcd *periph.LCD
	bl  *periph.Backlight
}

const (
	regLCDFramebuffer = 0x00
	regLCDFormat      = 0x04
	regLCDTiming      = 0x08
	regLCDContrast    = 0x0C
	regLCDBacklight   = 0x10
)

func (r lcdRegs) ReadWord(addr uint32) (uint32, error) {
	switch addr & 0xFF {
	case regLCDFramebuffer:
		return r.lcd.FramebufferAddr, nil
	case regLCDFormat:
		return r.lcd.Format, nil
	case regLCDTiming:
		return r.lcd.Timing, nil
	case regLCDContrast:
		return r.lcd.Contrast, nil
	case regLCDBacklight:
		return r.bl.Duty, nil
	}
	return 0, nil
}

func (r lcdRegs) WriteWord(addr uint32, v uint32) error {
	switch addr & 0xFF {
	case regLCDFramebuffer:
		r.lcd.WriteFramebufferAddr(v)
	case regLCDFormat:
		r.lcd.Format = v
	case regLCDTiming:
		r.lcd.Timing = v
	case regLCDBacklight:
		r.bl.WriteDuty(v)
	}
	return nil
}

type dmaRegs struct{ d *periph.DMA }

const (
	dmaChannelStride = 0x10
	regDMASrc        = 0x00
	regDMADst        = 0x04
	regDMACount      = 0x08
	regDMAControl    = 0x0C
)

func (r dmaRegs) ReadWord(addr uint32) (uint32, error) {
	off := addr & 0xFF
	ch := int(off / dmaChannelStride)
	switch off % dmaChannelStride {
	case regDMASrc:
		return r.d.Channels[ch].Src, nil
	case regDMADst:
		return r.d.Channels[ch].Dst, nil
	case regDMACount:
		return r.d.Channels[ch].Count, nil
	case regDMAControl:
		v := r.d.Channels[ch].Control
		if r.d.Channels[ch].Done {
			v |= 0x4
		}
		return v, nil
	}
	return 0, nil
}

func (r dmaRegs) WriteWord(addr uint32, v uint32) error {
	off := addr & 0xFF
	ch := int(off / dmaChannelStride)
	switch off % dmaChannelStride {
	case regDMASrc:
		r.d.Channels[ch].Src = v
	case regDMADst:
		r.d.Channels[ch].Dst = v
	case regDMACount:
		r.d.Channels[ch].Count = v
	case regDMAControl:
		if v&0x4 != 0 {
			r.d.AckChannel(ch)
		}
		r.d.WriteControl(ch, v&0x3)
	}
	return nil
}

// pmuRegs exposes the clock-apply/wakeup-reason/status/sleep surface.
type pmuRegs struct {
	p               *pmu.PMU
	releaseKeys     func()
	clearTimerSlots func()
}

const (
	regPMUApplyClock   = 0x00
	regPMUWakeupReason = 0x04
	regPMUSleep        = 0x08
	regPMUWake         = 0x0C
	regPMUStatus0      = 0x10
)

func (r pmuRegs) ReadWord(addr uint32) (uint32, error) {
	off := addr & 0xFF
	switch {
	case off == regPMUWakeupReason:
		return r.p.WakeupReason, nil
	case off >= regPMUStatus0 && off < regPMUStatus0+0x10:
		return r.p.StatusWord(int((off - regPMUStatus0) / 4)), nil
	}
	return 0, nil
}

func (r pmuRegs) WriteWord(addr uint32, v uint32) error {
	switch addr & 0xFF {
	case regPMUApplyClock:
		r.p.ApplyClock(v)
	case regPMUWakeupReason:
		r.p.WakeupReason = v
	case regPMUSleep:
		r.p.Sleep(r.releaseKeys, r.clearTimerSlots)
	case regPMUWake:
		r.p.Wake(v)
	}
	return nil
}

// classicADCRegs wires the seven-channel direct-read converter; each
// channel occupies a 0x14 stride, plus a shared status register past the
// last channel.
type classicADCRegs struct{ c *adc.Classic }

const (
	classicADCStride  = 0x14
	regADCCommand     = 0x00
	regADCValue       = 0x0C
	regADCStatus      = 0x90
)

func (r classicADCRegs) ReadWord(addr uint32) (uint32, error) {
	off := addr & 0xFF
	if off == regADCStatus {
		return r.c.Status, nil
	}
	ch := int(off / classicADCStride)
	if ch >= 7 {
		return 0, nil
	}
	switch off % classicADCStride {
	case regADCValue:
		return r.c.Channels[ch].Value, nil
	}
	return 0, nil
}

func (r classicADCRegs) WriteWord(addr uint32, v uint32) error {
	off := addr & 0xFF
	if off == regADCStatus {
		return nil
	}
	ch := int(off / classicADCStride)
	if ch >= 7 {
		return nil
	}
	if off%classicADCStride == regADCCommand {
		r.c.WriteCommand(ch)
	}
	return nil
}

// fifoADCRegs wires the later SoC's flat 4KB register window.
type fifoADCRegs struct{ f *adc.FIFO }

const (
	regFIFOSlotBase       = 0x00
	regFIFOChannelBase    = 0x100
	fifoChannelStride     = 0x20
	regFIFOReloadCounter  = 0x110
	regFIFOBackgroundStep = 0x118
)

func (r fifoADCRegs) ReadWord(addr uint32) (uint32, error) {
	off := addr & 0xFFF
	switch {
	case off < 0x20:
		r.f.RefreshBank()
		return r.f.Slots[off/4], nil
	case off == regFIFOReloadCounter:
		return r.f.ReloadCounter, nil
	case off == regFIFOBackgroundStep:
		if r.f.BackgroundStepEnable {
			return 1, nil
		}
		return 0, nil
	case off >= regFIFOChannelBase:
		idx := int((off - regFIFOChannelBase) / fifoChannelStride)
		return r.f.ChannelStatus(idx), nil
	}
	return 0, nil
}

func (r fifoADCRegs) WriteWord(addr uint32, v uint32) error {
	off := addr & 0xFFF
	switch {
	case off == regFIFOReloadCounter:
		r.f.ReloadCounter = v
	case off == regFIFOBackgroundStep:
		r.f.SetBackgroundStepEnable(v&0x1 != 0)
	case off >= regFIFOChannelBase:
		idx := int((off - regFIFOChannelBase) / fifoChannelStride)
		if v&0x2 != 0 {
			r.f.AckChannel(idx)
		} else {
			r.f.StartConversion(idx)
		}
	}
	return nil
}

type classicTimerRegs struct{ t *timer.ClassicBanks }

const (
	classicTimerBankStride = 0x40
	classicTimerPairStride = 0x20
	regCTStart             = 0x00
	regCTValue              = 0x04
	regCTDivider            = 0x08
	regCTControl            = 0x0C
	regCTBankStatus         = 0x18
	regCTBankMask           = 0x1C
)

func (r classicTimerRegs) decode(addr uint32) (bank, pair int, reg uint32) {
	off := addr & 0xFF
	bank = int(off / classicTimerBankStride)
	within := off % classicTimerBankStride
	pair = int(within / classicTimerPairStride)
	reg = within % classicTimerPairStride
	return
}

func (r classicTimerRegs) ReadWord(addr uint32) (uint32, error) {
	bank, pair, reg := r.decode(addr)
	if bank >= 3 {
		return 0, nil
	}
	if reg == regCTBankStatus {
		return r.t.Banks[bank].Status, nil
	}
	if reg == regCTBankMask {
		return r.t.Banks[bank].Mask, nil
	}
	if pair >= 2 {
		return 0, nil
	}
	tm := &r.t.Banks[bank].Timers[pair]
	switch reg {
	case regCTStart:
		return tm.Start, nil
	case regCTValue:
		return tm.Value, nil
	case regCTDivider:
		return tm.Divider, nil
	case regCTControl:
		return tm.Control, nil
	}
	return 0, nil
}

func (r classicTimerRegs) WriteWord(addr uint32, v uint32) error {
	bank, pair, reg := r.decode(addr)
	if bank >= 3 {
		return nil
	}
	if reg == regCTBankMask {
		r.t.Banks[bank].Mask = v
		return nil
	}
	if reg == regCTBankStatus {
		r.t.AckStatus(bank, v)
		return nil
	}
	if pair >= 2 {
		return nil
	}
	tm := &r.t.Banks[bank].Timers[pair]
	switch reg {
	case regCTStart:
		tm.Start = v
		tm.Value = v
	case regCTDivider:
		tm.Divider = v
	case regCTControl:
		tm.Control = v
	}
	return nil
}

type sp804Regs struct {
	b   *timer.SP804Bank
	idx int
}

const (
	regSP804Load           = 0x00
	regSP804Value          = 0x04
	regSP804Control        = 0x08
	regSP804IntClear       = 0x0C
	regSP804BackgroundLoad = 0x18
)

func (r sp804Regs) ReadWord(addr uint32) (uint32, error) {
	switch addr & 0xFF {
	case regSP804Load:
		return r.b.Timers[r.idx].Load, nil
	case regSP804Value:
		return r.b.ReadValue(r.idx), nil
	case regSP804Control:
		return r.b.Timers[r.idx].Control, nil
	}
	return 0, nil
}

func (r sp804Regs) WriteWord(addr uint32, v uint32) error {
	switch addr & 0xFF {
	case regSP804Load:
		r.b.WriteLoad(r.idx, v)
	case regSP804BackgroundLoad:
		r.b.WriteBackgroundLoad(r.idx, v)
	case regSP804Control:
		r.b.WriteControl(r.idx, v)
	case regSP804IntClear:
		r.b.AckInterrupt(r.idx)
	}
	return nil
}

// nandParallelRegs maps the classic three-register command/address/data
// window (CLE/ALE/data strobes collapsed onto one APB slot).
type nandParallelRegs struct{ p *nand.ParallelController }

const (
	regNANDCommand = 0x00
	regNANDAddress = 0x04
	regNANDData    = 0x08
)

func (r nandParallelRegs) ReadWord(addr uint32) (uint32, error) {
	if addr&0xFF == regNANDData {
		return uint32(r.p.ReadByte()), nil
	}
	return 0, nil
}

func (r nandParallelRegs) WriteWord(addr uint32, v uint32) error {
	switch addr & 0xFF {
	case regNANDCommand:
		r.p.Command(uint8(v))
	case regNANDAddress:
		r.p.Address(uint8(v))
	case regNANDData:
		r.p.WriteByte(uint8(v))
	}
	return nil
}

// nandSPIRegs frames one byte per word-sized write onto the later SoC's SPI
// NAND controller; BeginTransaction is triggered by a write to the control
// register's chip-select bit.
type nandSPIRegs struct{ s *nand.SPIController }

const (
	regNANDSPIControl = 0x00
	regNANDSPIData    = 0x04
)

func (r nandSPIRegs) ReadWord(addr uint32) (uint32, error) {
	return 0, nil
}

func (r nandSPIRegs) WriteWord(addr uint32, v uint32) error {
	switch addr & 0xFF {
	case regNANDSPIControl:
		if v&0x1 != 0 {
			r.s.BeginTransaction()
		}
	case regNANDSPIData:
		r.s.Byte(uint8(v))
	}
	return nil
}

// usbLinkRegs exposes the link at a three-register window: a control bit
// the guest driver toggles to simulate the host attaching/detaching, a
// status register whose bit 0 reports attached (no data-pending bit is
// reported), and a one-byte-per-word data
// port mirroring the serial UART's single-register framing (regSerialData).
type usbLinkRegs struct{ l *usblink.Link }

const (
	regUSBLinkControl = 0x00
	regUSBLinkStatus  = 0x04
	regUSBLinkData    = 0x08
)

func (r usbLinkRegs) ReadWord(addr uint32) (uint32, error) {
	switch addr & 0xFF {
	case regUSBLinkStatus:
		v := uint32(0)
		if r.l.Attached() {
			v |= 0x1
		}
		return v, nil
	case regUSBLinkData:
		p, ok := r.l.Recv()
		if !ok || len(p.Payload) == 0 {
			return 0, nil
		}
		return uint32(p.Payload[0]), nil
	}
	return 0, nil
}

func (r usbLinkRegs) WriteWord(addr uint32, v uint32) error {
	switch addr & 0xFF {
	case regUSBLinkControl:
		r.l.Attach(v&0x1 != 0)
	case regUSBLinkData:
		r.l.Send(usblink.Packet{Kind: usblink.PacketBulk, Payload: []byte{byte(v)}})
	}
	return nil
}

// powerSampler adapts the PMU's derived ADC rails and the keypad's type
// code to adc.Sampler (spec §4.G "channel 3 returns the keypad-type code,
// others return battery level").
type powerSampler struct {
	pmu        *pmu.PMU
	keypadType uint16
}

func (s *powerSampler) ReadChannel(n int) uint16 {
	if n == channelKeypadTypeIdx {
		return s.keypadType
	}
	d := s.pmu.Derive()
	if n < 0 || n >= len(d.ADC) {
		return 0
	}
	return d.ADC[n]
}

const channelKeypadTypeIdx = 3
