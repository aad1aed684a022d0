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

// Flag is the packed per-word flag value carried in a Region's parallel
// flags array: breakpoint bits, the read-only marker, and the two
// translation-cache tags (spec §3 "Dispatch tables").
type Flag uint32

const (
	FlagBreakExec Flag = 1 << iota
	FlagBreakRead
	FlagBreakWrite
	FlagBreakStep
	FlagReadOnly
	FlagCodeTranslated
	FlagCodeExecuted
)

// Has reports whether every bit in mask is set.
func (f Flag) Has(mask Flag) bool {
	return f&mask == mask
}

// Set returns f with mask's bits set.
func (f Flag) Set(mask Flag) Flag {
	return f | mask
}

// Clear returns f with mask's bits cleared.
func (f Flag) Clear(mask Flag) Flag {
	return f &^ mask
}
