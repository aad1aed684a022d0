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

import (
	"encoding/binary"

	"github.com/nspiresim/firebirdcore/internal/curated"
)

// Region is one backed range of guest address space: boot ROM, SDRAM, SRAM,
// a VRAM aperture, or a ROM mirror. Host is the region's own contiguous host
// buffer (a single reservation of fixed maximum size, spec §3); Flags runs
// parallel to Host at word granularity, one entry per 4-byte cell.
//
// A mirror region (spec §4.D "ROM mirrors reuse the backing ROM's host
// buffer") is built by pointing Host and Flags at the same backing slices as
// the region it mirrors; Backing never allocates on behalf of a mirror.
type Region struct {
	Base     uint32
	Size     uint32
	Host     []byte
	Flags    []Flag
	ReadOnly bool
}

// NewRegion allocates a fresh, owned region: Host is Size bytes, Flags is
// Size/4 entries (word granularity; spec §3's flags are per-word).
func NewRegion(base, size uint32, readOnly bool) *Region {
	return &Region{
		Base:     base,
		Size:     size,
		Host:     make([]byte, size),
		Flags:    make([]Flag, size/4),
		ReadOnly: readOnly,
	}
}

// Mirror returns a region covering [base, base+size) that shares of's Host
// and Flags buffers, used for ROM aliasing.
func Mirror(of *Region, base, size uint32) *Region {
	return &Region{
		Base:     base,
		Size:     size,
		Host:     of.Host,
		Flags:    of.Flags,
		ReadOnly: of.ReadOnly,
	}
}

func (r *Region) contains(addr uint32, width uint32) bool {
	if addr < r.Base {
		return false
	}
	off := addr - r.Base
	return off+width <= r.Size
}

// BreakpointHook is called whenever a breakpoint flag fires on an access.
// kind is one of "exec", "read", "write", "step".
type BreakpointHook func(kind string, addr uint32)

// Backing is the generic RAM/ROM handler: an ordered sequence of up to five
// Regions (spec §3 "lookup is linear"), implementing Handler directly so it
// can be installed as the default top-level dispatch-table entry.
type Backing struct {
	regions    []*Region
	Breakpoint BreakpointHook
}

// NewBacking constructs an empty region set.
func NewBacking() *Backing {
	return &Backing{}
}

// Add appends a region to the linear scan order. The spec bounds a memory
// map to at most five backed regions per dispatch table; callers exceeding
// that are a configuration bug, not a runtime error, so Add does not check.
func (b *Backing) Add(r *Region) {
	b.regions = append(b.regions, r)
}

// Regions returns the backed regions in scan order, for the snapshot
// package to walk Host bytes without re-deriving region geometry.
func (b *Backing) Regions() []*Region {
	return b.regions
}

func (b *Backing) find(addr uint32, width uint32) (*Region, uint32, error) {
	for _, r := range b.regions {
		if r.contains(addr, width) {
			return r, addr - r.Base, nil
		}
	}
	return nil, 0, curated.Errorf(curated.MemoryBadRegion, addr)
}

func (b *Backing) checkFlags(r *Region, off uint32, kind string, addr uint32) {
	if b.Breakpoint == nil {
		return
	}
	word := r.Flags[off/4]
	var hit bool
	switch kind {
	case "exec":
		hit = word.Has(FlagBreakExec)
	case "read":
		hit = word.Has(FlagBreakRead)
	case "write":
		hit = word.Has(FlagBreakWrite)
	}
	if hit || word.Has(FlagBreakStep) {
		b.Breakpoint(kind, addr)
	}
}

func (b *Backing) ReadByte(addr uint32) (uint8, error) {
	r, off, err := b.find(addr, 1)
	if err != nil {
		return 0, err
	}
	b.checkFlags(r, off, "read", addr)
	return r.Host[off], nil
}

func (b *Backing) ReadHalf(addr uint32) (uint16, error) {
	r, off, err := b.find(addr, 2)
	if err != nil {
		return 0, err
	}
	b.checkFlags(r, off, "read", addr)
	return binary.LittleEndian.Uint16(r.Host[off:]), nil
}

func (b *Backing) ReadWord(addr uint32) (uint32, error) {
	r, off, err := b.find(addr, 4)
	if err != nil {
		return 0, err
	}
	b.checkFlags(r, off, "read", addr)
	return binary.LittleEndian.Uint32(r.Host[off:]), nil
}

func (b *Backing) WriteByte(addr uint32, v uint8) error {
	r, off, err := b.find(addr, 1)
	if err != nil {
		return err
	}
	if r.ReadOnly || r.Flags[off/4].Has(FlagReadOnly) {
		return curated.Errorf(curated.BadWriteByte, addr)
	}
	b.checkFlags(r, off, "write", addr)
	r.Host[off] = v
	b.invalidate(r, off)
	return nil
}

func (b *Backing) WriteHalf(addr uint32, v uint16) error {
	r, off, err := b.find(addr, 2)
	if err != nil {
		return err
	}
	if r.ReadOnly || r.Flags[off/4].Has(FlagReadOnly) {
		return curated.Errorf(curated.BadWriteHalf, addr)
	}
	b.checkFlags(r, off, "write", addr)
	binary.LittleEndian.PutUint16(r.Host[off:], v)
	b.invalidate(r, off)
	return nil
}

func (b *Backing) WriteWord(addr uint32, v uint32) error {
	r, off, err := b.find(addr, 4)
	if err != nil {
		return err
	}
	if r.ReadOnly || r.Flags[off/4].Has(FlagReadOnly) {
		return curated.Errorf(curated.BadWriteWord, addr)
	}
	b.checkFlags(r, off, "write", addr)
	binary.LittleEndian.PutUint32(r.Host[off:], v)
	b.invalidate(r, off)
	return nil
}

// invalidate clears a written word's code-translated and code-executed
// tags: any cached translation of this word is now stale, and self-modifying
// code must be re-fetched before it can execute again (spec §3 "translation
// tags are cleared unconditionally on write").
func (b *Backing) invalidate(r *Region, off uint32) {
	idx := off / 4
	r.Flags[idx] = r.Flags[idx].Clear(FlagCodeTranslated | FlagCodeExecuted)
}
