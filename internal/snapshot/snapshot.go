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

// Package snapshot implements Suspend/Resume (spec §4.J, §6): a fixed-order
// concatenation of memory sizes, backing bytes, and per-component register
// blobs, preceded by a small header naming the flash image it was taken
// against. Every component is packed by hand with encoding/binary, the same
// manual little-endian style used throughout this module (internal/nandfs,
// internal/nand, internal/memdispatch) rather than a reflection-based codec
// like encoding/gob — there is no point pulling in a general-purpose
// serializer for a format this is the only writer and reader of.
//
// Resume never deserializes a function pointer or goroutine: it rebuilds a
// fresh Soc of the recorded variant first (which re-places every
// peripheral's handler into the dispatch tables exactly as a cold start
// would), then overwrites that fresh Soc's register state from the snapshot
// body, and finally restores the scheduler's per-slot deadlines last, once
// every handler a firing slot might call is back in place.
package snapshot

import (
	"bytes"
	"encoding/binary"
	"os"

	"github.com/nspiresim/firebirdcore/internal/adc"
	"github.com/nspiresim/firebirdcore/internal/config"
	"github.com/nspiresim/firebirdcore/internal/curated"
	"github.com/nspiresim/firebirdcore/internal/intc"
	"github.com/nspiresim/firebirdcore/internal/periph"
	"github.com/nspiresim/firebirdcore/internal/pmu"
	"github.com/nspiresim/firebirdcore/internal/scheduler"
	"github.com/nspiresim/firebirdcore/internal/soc"
	"github.com/nspiresim/firebirdcore/internal/timer"
)

const (
	signature     = 0xCAFEBEE0
	formatVersion = 6
	pathFieldSize = 512
)

// numClockDomains mirrors clockdomain.Rates' fixed six entries
// (CPU, AHB, APB, Fixed27M, Fixed12M, Fixed32K); that package exports no
// count, so the six is pinned here against its doc comment instead.
const numClockDomains = 6

// encoder accumulates a snapshot body as a flat little-endian byte stream.
type encoder struct {
	buf bytes.Buffer
}

func (e *encoder) u8(v uint8) { e.buf.WriteByte(v) }

func (e *encoder) boolean(v bool) {
	if v {
		e.u8(1)
	} else {
		e.u8(0)
	}
}

func (e *encoder) u32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	e.buf.Write(b[:])
}

func (e *encoder) u64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	e.buf.Write(b[:])
}

func (e *encoder) i64(v int64) { e.u64(uint64(v)) }

func (e *encoder) rawBytes(b []byte) { e.buf.Write(b) }

func (e *encoder) fixedString(s string, size int) {
	b := make([]byte, size)
	copy(b, s)
	e.buf.Write(b)
}

// decoder walks a snapshot body in the same order it was encoded. Reads past
// the end of data silently yield zero values; the caller is expected to
// have already validated the header before trusting the body.
type decoder struct {
	data []byte
	off  int
}

func (d *decoder) u8() uint8 {
	if d.off >= len(d.data) {
		return 0
	}
	v := d.data[d.off]
	d.off++
	return v
}

func (d *decoder) boolean() bool { return d.u8() != 0 }

func (d *decoder) u32() uint32 {
	if d.off+4 > len(d.data) {
		d.off = len(d.data)
		return 0
	}
	v := binary.LittleEndian.Uint32(d.data[d.off:])
	d.off += 4
	return v
}

func (d *decoder) u64() uint64 {
	if d.off+8 > len(d.data) {
		d.off = len(d.data)
		return 0
	}
	v := binary.LittleEndian.Uint64(d.data[d.off:])
	d.off += 8
	return v
}

func (d *decoder) i64() int64 { return int64(d.u64()) }

func (d *decoder) rawBytes(n int) []byte {
	if n < 0 || d.off+n > len(d.data) {
		n = len(d.data) - d.off
	}
	if n < 0 {
		n = 0
	}
	b := append([]byte(nil), d.data[d.off:d.off+n]...)
	d.off += n
	return b
}

func (d *decoder) fixedString(size int) string {
	b := d.rawBytes(size)
	n := bytes.IndexByte(b, 0)
	if n < 0 {
		n = len(b)
	}
	return string(b[:n])
}

// Suspend writes a complete snapshot of s to path. boot1Path and flashPath
// are recorded in the header; flashPath is what Resume reopens the NAND
// mapping from, and the ROM's own bytes travel in the backing-bytes section
// below rather than by re-reading boot1Path, so a resumed core never
// depends on boot1Path still pointing at byte-identical content.
func Suspend(s *soc.Soc, boot1Path, flashPath, path string) error {
	var e encoder

	e.u8(uint8(s.Variant))

	regions := s.Backing.Regions()
	e.u32(uint32(len(regions)))
	for _, r := range regions {
		e.u32(r.Base)
		e.u32(r.Size)
		e.boolean(r.ReadOnly)
		e.rawBytes(r.Host)
	}

	encodeMisc(&e, s)
	encodeKeypad(&e, s)
	encodeLCD(&e, s)
	encodeSerial(&e, s)
	encodeIntc(&e, s)
	encodeCluster(&e, s)
	encodeScheduler(&e, s)

	f, err := os.Create(path)
	if err != nil {
		return curated.Errorf(curated.SnapshotOpenFailed, err)
	}
	defer f.Close()

	var hdr encoder
	hdr.u32(signature)
	hdr.u32(formatVersion)
	hdr.fixedString(boot1Path, pathFieldSize)
	hdr.fixedString(flashPath, pathFieldSize)

	if _, err := f.Write(hdr.buf.Bytes()); err != nil {
		return curated.Errorf(curated.SnapshotOpenFailed, err)
	}
	if _, err := f.Write(e.buf.Bytes()); err != nil {
		return curated.Errorf(curated.SnapshotOpenFailed, err)
	}
	return nil
}

const headerSize = 4 + 4 + 2*pathFieldSize

// Resume reads path, validates the header, rebuilds a fresh Soc of the
// recorded variant against the flash image named in the header, and
// overwrites its register state from the snapshot body. A bad signature,
// a version mismatch, or a region-geometry mismatch against the rebuilt
// Soc all abort resume with a curated error rather than partially applying
// state.
func Resume(path string, cfg config.Config) (*soc.Soc, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, curated.Errorf(curated.SnapshotOpenFailed, err)
	}
	if len(raw) < headerSize {
		return nil, curated.Errorf(curated.SnapshotBadHeader)
	}

	sig := binary.LittleEndian.Uint32(raw[0:4])
	ver := binary.LittleEndian.Uint32(raw[4:8])
	if sig != signature || ver != formatVersion {
		return nil, curated.Errorf(curated.SnapshotBadHeader)
	}

	hd := decoder{data: raw[8:headerSize]}
	_ = hd.fixedString(pathFieldSize) // boot1Path: provenance only, not reopened
	flashPath := hd.fixedString(pathFieldSize)

	d := &decoder{data: raw[headerSize:]}

	variant := soc.Variant(d.u8())

	numRegions := int(d.u32())
	type regionSnap struct {
		base, size uint32
		readOnly   bool
		host       []byte
	}
	regionSnaps := make([]regionSnap, numRegions)
	for i := range regionSnaps {
		base := d.u32()
		size := d.u32()
		ro := d.boolean()
		host := d.rawBytes(int(size))
		regionSnaps[i] = regionSnap{base, size, ro, host}
	}
	if len(regionSnaps) == 0 {
		return nil, curated.Errorf(curated.SnapshotBadHeader)
	}

	boot1 := make([]byte, regionSnaps[0].size)

	var s *soc.Soc
	switch variant {
	case soc.VariantClassic:
		s, err = soc.NewClassicSoc(cfg, boot1, flashPath)
	case soc.VariantCX:
		s, err = soc.NewCXSoc(cfg, boot1, flashPath)
	case soc.VariantCX2:
		s, err = soc.NewCX2Soc(cfg, boot1, flashPath)
	default:
		return nil, curated.Errorf(curated.SnapshotBadHeader)
	}
	if err != nil {
		return nil, err
	}

	liveRegions := s.Backing.Regions()
	if len(liveRegions) != len(regionSnaps) {
		return nil, curated.Errorf(curated.SnapshotBadHeader)
	}
	for i, rs := range regionSnaps {
		r := liveRegions[i]
		if r.Base != rs.base || r.Size != rs.size || r.ReadOnly != rs.readOnly {
			return nil, curated.Errorf(curated.SnapshotBadHeader)
		}
		copy(r.Host, rs.host)
	}

	decodeMisc(d, s)
	decodeKeypad(d, s)
	decodeLCD(d, s)
	decodeSerial(d, s)
	decodeIntc(d, s)
	decodeCluster(d, s)
	decodeScheduler(d, s)

	return s, nil
}

func encodeMisc(e *encoder, s *soc.Soc) {
	e.rawBytes(s.Misc.FastbootRAM[:])
	e.u32(uint32(s.Misc.Cause))
}

func decodeMisc(d *decoder, s *soc.Soc) {
	copy(s.Misc.FastbootRAM[:], d.rawBytes(len(s.Misc.FastbootRAM)))
	s.Misc.Cause = periph.ResetCause(d.u32())
}

func encodeKeypad(e *encoder, s *soc.Soc) {
	e.u32(s.Keypad.RowSelect())
	m := s.Keypad.Matrix()
	for row := range m {
		for col := range m[row] {
			e.boolean(m[row][col])
		}
	}
}

func decodeKeypad(d *decoder, s *soc.Soc) {
	rowSelect := d.u32()
	var m [11][8]bool
	for row := range m {
		for col := range m[row] {
			m[row][col] = d.boolean()
		}
	}
	s.Keypad.Restore(rowSelect, m)
}

func encodeLCD(e *encoder, s *soc.Soc) {
	e.u32(s.LCD.FramebufferAddr)
	e.u32(s.LCD.Format)
	e.u32(s.LCD.Timing)
	e.u32(s.LCD.Contrast)
	e.u32(s.Backlight.Duty)
	e.boolean(s.Backlight.OverrideSet())
}

func decodeLCD(d *decoder, s *soc.Soc) {
	s.LCD.FramebufferAddr = d.u32()
	s.LCD.Format = d.u32()
	s.LCD.Timing = d.u32()
	s.LCD.Contrast = d.u32()
	s.Backlight.Duty = d.u32()
	s.Backlight.RestoreOverride(d.boolean())
}

func encodeSerial(e *encoder, s *soc.Soc) {
	rx := s.Serial.PendingRx()
	e.u32(uint32(len(rx)))
	e.rawBytes(rx)
}

func decodeSerial(d *decoder, s *soc.Soc) {
	n := int(d.u32())
	s.Serial.RestorePendingRx(d.rawBytes(n))
}

func encodeIntcState(e *encoder, st intc.State) {
	e.u32(st.Active)
	e.u32(st.Noninverted)
	e.u32(st.Sticky)
	e.u32(st.StickyStatus)
	for _, m := range st.Mask {
		e.u32(m)
	}
	for _, l := range st.PriorityLimit {
		e.u8(l)
	}
	for _, l := range st.PrevPriLimit {
		e.u8(l)
	}
	for _, p := range st.Priority {
		e.u8(p)
	}
}

func decodeIntcState(d *decoder) intc.State {
	var st intc.State
	st.Active = d.u32()
	st.Noninverted = d.u32()
	st.Sticky = d.u32()
	st.StickyStatus = d.u32()
	for i := range st.Mask {
		st.Mask[i] = d.u32()
	}
	for i := range st.PriorityLimit {
		st.PriorityLimit[i] = d.u8()
	}
	for i := range st.PrevPriLimit {
		st.PrevPriLimit[i] = d.u8()
	}
	for i := range st.Priority {
		st.Priority[i] = d.u8()
	}
	return st
}

func encodeIntc(e *encoder, s *soc.Soc) {
	encodeIntcState(e, s.Ctx.Intc.Snapshot())
}

func decodeIntc(d *decoder, s *soc.Soc) {
	s.Ctx.Intc.Restore(decodeIntcState(d))
}

func encodePMU(e *encoder, p *pmu.PMU) {
	st := p.Snapshot()
	e.u32(uint32(st.Inputs.USBSource))
	e.boolean(st.Inputs.BatteryPresent)
	e.boolean(st.Inputs.DockAttached)
	e.u64(uint64(int64(st.Inputs.VBUSmV)))
	e.u64(uint64(int64(st.Inputs.DockRailmV)))
	e.u64(uint64(int64(st.Inputs.BatterymV)))
	e.u32(st.WakeupReason)
	for _, v := range st.StatusSticky {
		e.u32(v)
	}
	e.u32(st.WakeCause)
}

func decodePMU(d *decoder, p *pmu.PMU) {
	var st pmu.State
	st.Inputs.USBSource = pmu.USBSource(d.u32())
	st.Inputs.BatteryPresent = d.boolean()
	st.Inputs.DockAttached = d.boolean()
	st.Inputs.VBUSmV = int(int64(d.u64()))
	st.Inputs.DockRailmV = int(int64(d.u64()))
	st.Inputs.BatterymV = int(int64(d.u64()))
	st.WakeupReason = d.u32()
	for i := range st.StatusSticky {
		st.StatusSticky[i] = d.u32()
	}
	st.WakeCause = d.u32()
	p.Restore(st)
}

// encodeCluster and decodeCluster cover every peripheral whose register
// layout or presence differs by SoC variant: watchdog, GPIO, SDIO, the
// general-purpose SPI bus, the LED, DMA, and the PMU are wired identically
// across variants but still live here because their scheduler-slot peers
// (the timers) and the ADC do differ; keeping the whole cluster in one
// fixed order avoids a second per-variant branch at the top level.
func encodeCluster(e *encoder, s *soc.Soc) {
	e.u32(s.Watchdog.Load)
	e.u32(s.Watchdog.Control)
	e.boolean(s.Watchdog.Locked())
	e.boolean(s.Watchdog.Expired())

	for _, sec := range s.GPIO.Sections {
		e.u8(sec.Direction)
		e.u8(sec.Output)
		e.u8(sec.Input)
		e.u8(sec.Edge)
		e.u8(sec.Mask)
		e.u8(sec.Status)
		e.u8(sec.Sticky)
	}

	e.u32(s.SDIO.Command)
	e.u32(s.SDIO.Argument)
	for _, r := range s.SDIO.Response {
		e.u32(r)
	}
	e.u32(s.SDIO.Status)

	e.u32(s.SPIBus.Control)
	e.u32(s.LED.Control)

	for _, ch := range s.DMA.Channels {
		e.u32(ch.Src)
		e.u32(ch.Dst)
		e.u32(ch.Count)
		e.u32(ch.Control)
		e.boolean(ch.Done)
	}

	e.boolean(s.USBLink.Attached())

	encodePMU(e, s.PMU)

	switch s.Variant {
	case soc.VariantClassic:
		encodeClassicTimers(e, s)
		encodeClassicADC(e, s)
	case soc.VariantCX:
		encodeSP804(e, s.SP804A)
		encodeClassicADC(e, s)
	case soc.VariantCX2:
		encodeSP804(e, s.SP804A)
		encodeSP804(e, s.SP804B)
		encodeSP804(e, s.SP804C)
		encodeFIFOADC(e, s)
	}

	// The link's pending inbox/outbox packet queues are not persisted,
	// matching the NAND controllers' phase state below: a resumed guest
	// comes back as if no transfer was in flight mid-packet.

	// NAND command/address state machines are left at their post-
	// construction idle phase on resume (see decodeCluster); the flash
	// content itself already lives in the memory-mapped file named by
	// flashPath, not in this snapshot.
}

func decodeCluster(d *decoder, s *soc.Soc) {
	s.Watchdog.Load = d.u32()
	s.Watchdog.Control = d.u32()
	locked := d.boolean()
	expired := d.boolean()
	s.Watchdog.Restore(locked, expired)

	for i := range s.GPIO.Sections {
		sec := &s.GPIO.Sections[i]
		sec.Direction = d.u8()
		sec.Output = d.u8()
		sec.Input = d.u8()
		sec.Edge = d.u8()
		sec.Mask = d.u8()
		sec.Status = d.u8()
		sec.Sticky = d.u8()
	}

	s.SDIO.Command = d.u32()
	s.SDIO.Argument = d.u32()
	for i := range s.SDIO.Response {
		s.SDIO.Response[i] = d.u32()
	}
	s.SDIO.Status = d.u32()

	s.SPIBus.Control = d.u32()
	s.LED.Control = d.u32()

	for i := range s.DMA.Channels {
		ch := &s.DMA.Channels[i]
		ch.Src = d.u32()
		ch.Dst = d.u32()
		ch.Count = d.u32()
		ch.Control = d.u32()
		ch.Done = d.boolean()
	}

	attached := d.boolean()
	s.USBLink.RestoreAttached(attached)

	decodePMU(d, s.PMU)

	switch s.Variant {
	case soc.VariantClassic:
		decodeClassicTimers(d, s)
		decodeClassicADC(d, s)
	case soc.VariantCX:
		decodeSP804(d, s.SP804A)
		decodeClassicADC(d, s)
	case soc.VariantCX2:
		decodeSP804(d, s.SP804A)
		decodeSP804(d, s.SP804B)
		decodeSP804(d, s.SP804C)
		decodeFIFOADC(d, s)
	}
}

func encodeClassicTimers(e *encoder, s *soc.Soc) {
	for _, bank := range s.ClassicTimers.Banks {
		for _, t := range bank.Timers {
			e.u32(t.Start)
			e.u32(t.Value)
			e.u32(t.Divider)
			e.u32(t.Control)
			for _, c := range t.Complete {
				e.u32(c)
			}
		}
		e.u32(bank.Status)
		e.u32(bank.Mask)
	}
}

func decodeClassicTimers(d *decoder, s *soc.Soc) {
	for b := range s.ClassicTimers.Banks {
		bank := &s.ClassicTimers.Banks[b]
		for t := range bank.Timers {
			tm := &bank.Timers[t]
			tm.Start = d.u32()
			tm.Value = d.u32()
			tm.Divider = d.u32()
			tm.Control = d.u32()
			for c := range tm.Complete {
				tm.Complete[c] = d.u32()
			}
		}
		bank.Status = d.u32()
		bank.Mask = d.u32()
	}
}

func encodeSP804(e *encoder, b *timer.SP804Bank) {
	for idx := 0; idx < 2; idx++ {
		st := b.Snapshot(idx)
		e.u32(st.Load)
		e.u32(st.BackgroundLoad)
		e.u32(st.Control)
		e.boolean(st.InterruptPending)
		e.u32(st.ArmedLoad)
	}
}

func decodeSP804(d *decoder, b *timer.SP804Bank) {
	for idx := 0; idx < 2; idx++ {
		b.Restore(idx, timer.TimerState{
			Load:             d.u32(),
			BackgroundLoad:   d.u32(),
			Control:          d.u32(),
			InterruptPending: d.boolean(),
			ArmedLoad:        d.u32(),
		})
	}
}

func encodeClassicADC(e *encoder, s *soc.Soc) {
	for _, ch := range s.ADCClassic.Channels {
		e.u32(ch.Unknown)
		e.u32(ch.Count)
		e.u32(ch.Address)
		e.u32(ch.Value)
		e.u32(ch.Speed)
	}
	e.u32(s.ADCClassic.Status)
}

func decodeClassicADC(d *decoder, s *soc.Soc) {
	for i := range s.ADCClassic.Channels {
		ch := &s.ADCClassic.Channels[i]
		ch.Unknown = d.u32()
		ch.Count = d.u32()
		ch.Address = d.u32()
		ch.Value = d.u32()
		ch.Speed = d.u32()
	}
	s.ADCClassic.Status = d.u32()
}

func encodeFIFOADC(e *encoder, s *soc.Soc) {
	for _, v := range s.ADCFIFO.Slots {
		e.u32(v)
	}
	for i := 0; i < s.ADCFIFO.NumChannels(); i++ {
		st := s.ADCFIFO.ChannelSnapshot(i)
		e.u32(st.Control)
		e.u32(st.Status)
		e.boolean(st.Completed)
	}
	e.boolean(s.ADCFIFO.BackgroundStepEnable)
	e.u32(s.ADCFIFO.ReloadCounter)
}

func decodeFIFOADC(d *decoder, s *soc.Soc) {
	for i := range s.ADCFIFO.Slots {
		s.ADCFIFO.Slots[i] = d.u32()
	}
	for i := 0; i < s.ADCFIFO.NumChannels(); i++ {
		s.ADCFIFO.ChannelRestore(i, adc.ChannelState{
			Control:   d.u32(),
			Status:    d.u32(),
			Completed: d.boolean(),
		})
	}
	s.ADCFIFO.BackgroundStepEnable = d.boolean()
	s.ADCFIFO.ReloadCounter = d.u32()
}

func encodeScheduler(e *encoder, s *soc.Soc) {
	sched := s.Ctx.Scheduler
	n := sched.NumSlots()
	e.u32(uint32(n))
	for i := 0; i < n; i++ {
		id := scheduler.SlotID(i)
		active := sched.Active(id)
		e.boolean(active)
		if active {
			e.u64(sched.EventTicksRemaining(id))
		}
	}
	for i := range s.Ctx.Rates {
		e.u32(s.Ctx.Rates[i])
	}
	e.boolean(s.Ctx.Sleep)
}

func decodeScheduler(d *decoder, s *soc.Soc) {
	sched := s.Ctx.Scheduler
	n := int(d.u32())
	for i := 0; i < n; i++ {
		id := scheduler.SlotID(i)
		active := d.boolean()
		if active {
			ticks := d.u64()
			sched.EventSet(id, ticks)
		} else if i < sched.NumSlots() {
			sched.EventClear(id)
		}
	}
	var rates [numClockDomains]uint32
	for i := range rates {
		rates[i] = d.u32()
	}
	s.Ctx.Rates.SetCPUTree(rates[0], rates[1], rates[2])
	s.Ctx.Sleep = d.boolean()
}
