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

// Package clockdomain defines the six named clock rates the scheduler
// converts peripheral deadlines against (spec §3 "Scheduler state").
package clockdomain

// Domain identifies one of the six clock rates.
type Domain int

const (
	CPU Domain = iota
	AHB
	APB
	Fixed27M
	Fixed12M
	Fixed32K
	numDomains
)

// Rates holds the current frequency, in Hz, of each clock domain.
type Rates [numDomains]uint32

// NewRates returns the fixed-rate domains pre-populated; CPU/AHB/APB are
// left at zero until the PMU decodes its first clock word.
func NewRates() Rates {
	var r Rates
	r[Fixed27M] = 27_000_000
	r[Fixed12M] = 12_000_000
	r[Fixed32K] = 32_768
	return r
}

// Get returns the rate for d.
func (r Rates) Get(d Domain) uint32 {
	return r[d]
}

// SetCPUTree sets the three derived rates in one step: cpu is the decoded
// core frequency, ahb and apb are derived from it by the PMU's divider
// decode (§4.F). Fixed-rate domains are untouched.
func (r *Rates) SetCPUTree(cpu, ahb, apb uint32) {
	r[CPU] = cpu
	r[AHB] = ahb
	r[APB] = apb
}
