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

// SDIO is a register-level stub sufficient for boot and card-detect
// polling: no SD card is modeled, so status always reports "no card
// present" and commands complete immediately with an error status (spec
// §4.I "register-level models sufficient for boot and the usual guest
// interactions").
type SDIO struct {
	Command  uint32
	Argument uint32
	Response [4]uint32
	Status   uint32
}

const sdioStatusNoCard = 0x1

// NewSDIO returns an SDIO block with no card inserted.
func NewSDIO() *SDIO {
	return &SDIO{Status: sdioStatusNoCard}
}

// WriteCommand latches a command; since no card is present every command
// completes with the no-card status bit set and an all-zero response.
func (s *SDIO) WriteCommand(v uint32) {
	s.Command = v
	s.Response = [4]uint32{}
	s.Status = sdioStatusNoCard
}

// SPIBus is a generic byte-shift register for the boards's general-purpose
// SPI peripheral (distinct from internal/nand's dedicated SPI NAND
// controller), used by guests to probe for optional peripherals that this
// model does not implement; every transfer echoes 0xFF.
type SPIBus struct {
	Control uint32
}

// NewSPIBus returns an idle general-purpose SPI bus.
func NewSPIBus() *SPIBus {
	return &SPIBus{}
}

// Transfer always returns 0xFF: no device is wired to this bus.
func (s *SPIBus) Transfer(out byte) byte {
	return 0xFF
}

// LED is the single-register PWM/on-off LED driver.
type LED struct {
	Control uint32
}

// NewLED returns an off LED.
func NewLED() *LED {
	return &LED{}
}

// WriteControl sets the LED's duty-cycle/on-off register.
func (l *LED) WriteControl(v uint32) {
	l.Control = v
}
