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

package memdispatch

import "github.com/nspiresim/firebirdcore/internal/curated"

// numTopEntries is the size of each top-level dispatch table, indexed by
// addr>>26 (spec §4.C "six 64-entry top-level tables").
const numTopEntries = 64

// numSubEntries is the size of the APB sub-dispatch table, indexed by
// (addr>>16)&31 (spec §4.C).
const numSubEntries = 32

// Dispatch holds the six top-level 64-entry tables, one per SoC address-
// space variant, each entry defaulting to a shared generic Backing handler
// until a specific region or peripheral claims a slot.
type Dispatch struct {
	tables [6][numTopEntries]Handler
}

// NewDispatch returns a Dispatch with every slot of every table defaulted
// to def (typically a *Backing covering unmapped/RAM space with a curated
// bad-access error).
func NewDispatch(def Handler) *Dispatch {
	d := &Dispatch{}
	for t := range d.tables {
		for i := range d.tables[t] {
			d.tables[t][i] = def
		}
	}
	return d
}

// Bind installs h at the given top-level table/slot, replacing whatever
// default or prior handler occupied it.
func (d *Dispatch) Bind(table int, slot uint32, h Handler) {
	d.tables[table][slot%numTopEntries] = h
}

func (d *Dispatch) lookup(table int, addr uint32) Handler {
	return d.tables[table][(addr>>26)&(numTopEntries-1)]
}

func (d *Dispatch) ReadByte(table int, addr uint32) (uint8, error) {
	return d.lookup(table, addr).ReadByte(addr)
}

func (d *Dispatch) ReadHalf(table int, addr uint32) (uint16, error) {
	return d.lookup(table, addr).ReadHalf(addr)
}

func (d *Dispatch) ReadWord(table int, addr uint32) (uint32, error) {
	return d.lookup(table, addr).ReadWord(addr)
}

func (d *Dispatch) WriteByte(table int, addr uint32, v uint8) error {
	return d.lookup(table, addr).WriteByte(addr, v)
}

func (d *Dispatch) WriteHalf(table int, addr uint32, v uint16) error {
	return d.lookup(table, addr).WriteHalf(addr, v)
}

func (d *Dispatch) WriteWord(table int, addr uint32, v uint32) error {
	return d.lookup(table, addr).WriteWord(addr, v)
}

// APB is the 22-entry (of a 32-entry table; the remaining slots are
// reserved) peripheral sub-dispatcher. It implements Handler itself, so it
// can be installed at a single Dispatch slot covering the whole APB
// aperture, and treats every access as word-sized per §4.C: byte/half
// access through APB is always a masked-read or broadcast-write performed
// against a registered peripheral's WordHandler.
type APB struct {
	peripherals [numSubEntries]Handler
	unmapped    Handler
}

// NewAPB returns an APB sub-dispatcher with every slot defaulted to
// unmapped, a Handler that should raise a curated bad-access error (spec
// §4.C, "unpopulated sub-slots respond as bad physical access").
func NewAPB(unmapped Handler) *APB {
	a := &APB{unmapped: unmapped}
	for i := range a.peripherals {
		a.peripherals[i] = unmapped
	}
	return a
}

// Bind installs a word-only peripheral at the given sub-slot, adapting it
// to the full Handler interface via WordOnly.
func (a *APB) Bind(slot uint32, h WordHandler) {
	a.peripherals[slot%numSubEntries] = WordOnly(h)
}

// BindHandler installs a handler that already implements the full byte/
// half/word surface itself (rare; most APB peripherals only need Bind).
func (a *APB) BindHandler(slot uint32, h Handler) {
	a.peripherals[slot%numSubEntries] = h
}

func (a *APB) sub(addr uint32) Handler {
	return a.peripherals[(addr>>16)&(numSubEntries-1)]
}

func (a *APB) ReadByte(addr uint32) (uint8, error) { return a.sub(addr).ReadByte(addr) }
func (a *APB) ReadHalf(addr uint32) (uint16, error) { return a.sub(addr).ReadHalf(addr) }
func (a *APB) ReadWord(addr uint32) (uint32, error) { return a.sub(addr).ReadWord(addr) }

func (a *APB) WriteByte(addr uint32, v uint8) error { return a.sub(addr).WriteByte(addr, v) }
func (a *APB) WriteHalf(addr uint32, v uint16) error { return a.sub(addr).WriteHalf(addr, v) }
func (a *APB) WriteWord(addr uint32, v uint32) error { return a.sub(addr).WriteWord(addr, v) }

// UnmappedHandler is a trivial Handler every bad-access default and
// unpopulated APB slot can share; every method returns a curated error
// naming the offending address and access width.
type UnmappedHandler struct{}

func (UnmappedHandler) ReadByte(addr uint32) (uint8, error) {
	return 0, curated.Errorf(curated.BadReadByte, addr)
}
func (UnmappedHandler) ReadHalf(addr uint32) (uint16, error) {
	return 0, curated.Errorf(curated.BadReadHalf, addr)
}
func (UnmappedHandler) ReadWord(addr uint32) (uint32, error) {
	return 0, curated.Errorf(curated.BadReadWord, addr)
}
func (UnmappedHandler) WriteByte(addr uint32, v uint8) error {
	return curated.Errorf(curated.BadWriteByte, addr)
}
func (UnmappedHandler) WriteHalf(addr uint32, v uint16) error {
	return curated.Errorf(curated.BadWriteHalf, addr)
}
func (UnmappedHandler) WriteWord(addr uint32, v uint32) error {
	return curated.Errorf(curated.BadWriteWord, addr)
}
