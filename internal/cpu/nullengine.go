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

package cpu

// NullEngine is an Engine with no instruction decoder: Run advances the
// program counter by one instruction width and leaves every other
// register untouched, always consuming exactly one tick. An ARM
// interpreter is an external collaborator this module deliberately has no
// model of (see the package doc); NullEngine exists so cmd/firebirdcore,
// the debugger, and the GDB stub can all be driven end-to-end against a
// real Soc without one, and so that its one-tick batches give the Loop's
// per-batch breakpoint hook exact, not approximate, granularity.
type NullEngine struct {
	regs [15]uint32
	pc   uint32
}

// NewNullEngine returns a NullEngine with PC at resetVector and every
// other register zeroed.
func NewNullEngine(resetVector uint32) *NullEngine {
	return &NullEngine{pc: resetVector}
}

func (e *NullEngine) Run(budget uint64) (uint64, error) {
	e.pc += 4
	return 1, nil
}

func (e *NullEngine) Reset(warm bool) {
	if !warm {
		e.regs = [15]uint32{}
	}
}

func (e *NullEngine) Registers() []uint32 { return e.regs[:] }

func (e *NullEngine) SetRegister(idx int, v uint32) {
	if idx == 15 {
		e.pc = v
		return
	}
	e.regs[idx] = v
}

func (e *NullEngine) PC() uint32 { return e.pc }
