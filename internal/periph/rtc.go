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

package periph

// Clock supplies the host's notion of "now" in seconds, so RTC is
// deterministic and testable rather than calling time.Now() directly.
type Clock interface {
	NowSeconds() int64
}

// RTC models the real-time clock register as real time minus a settable
// offset (spec §4.I "RTC: value = real-time seconds minus stored offset").
type RTC struct {
	clock  Clock
	offset int64
}

// NewRTC binds an RTC to a clock source.
func NewRTC(clock Clock) *RTC {
	return &RTC{clock: clock}
}

// Value is the current register reading.
func (r *RTC) Value() uint32 {
	return uint32(r.clock.NowSeconds() - r.offset)
}

// WriteValue sets the register to v by adjusting the stored offset, rather
// than storing v directly, so the clock keeps advancing afterward.
func (r *RTC) WriteValue(v uint32) {
	r.offset = r.clock.NowSeconds() - int64(v)
}

// Offset returns the stored real-time offset, for snapshot.
func (r *RTC) Offset() int64 {
	return r.offset
}

// RestoreOffset replaces the stored offset directly, used when resuming
// from a snapshot (unlike WriteValue, this does not re-derive it from the
// current time).
func (r *RTC) RestoreOffset(offset int64) {
	r.offset = offset
}
