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

package curated

// Registered message heads, one per distinguishable failure named in §7.
const (
	// Bad physical access.
	BadReadByte  = "bad read_byte: %#08x"
	BadReadHalf  = "bad read_half: %#08x"
	BadReadWord  = "bad read_word: %#08x"
	BadWriteByte = "bad write_byte: %#08x"
	BadWriteHalf = "bad write_half: %#08x"
	BadWriteWord = "bad write_word: %#08x"

	// Unsupported peripheral state.
	UnsupportedNANDOp  = "unsupported nand operation: %#02x"
	UnsupportedPMUBits = "unsupported pmu register bits: %#08x"
	DMAChannelStopped  = "dma channel %d stopped: %s"

	// Fatal programmer error.
	NANDWriteProtected  = "nand erase/program while write-protected"
	SchedulerBadSlot    = "scheduler: slot out of range: %d"
	SchedulerNoCPURate  = "scheduler: cpu rate is zero"
	InterruptBadLine    = "interrupt controller: line out of range: %d"
	MemoryBadRegion     = "memory: region table exhausted"

	// Recoverable I/O.
	FlashOpenFailed    = "could not open flash image: %v"
	SnapshotOpenFailed = "could not open snapshot: %v"
	SnapshotBadHeader  = "snapshot: bad header signature or version"

	// GDB protocol violations.
	GDBMalformedPacket = "gdb: malformed packet"

	// Filesystem.
	FSUnrecognised = "filesystem unrecognised"
)
