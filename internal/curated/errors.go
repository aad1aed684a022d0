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

// Package curated normalises errors raised anywhere in the SoC core so that
// the front end never has to string-match messages to know what went wrong.
// A curated error is a message template plus Values, the way §7 of the spec
// wants every "bad physical access" / "unsupported peripheral state" /
// "fatal programmer error" distinguished without resorting to sentinel
// string comparison.
package curated

import (
	"fmt"
	"strings"
)

// Values is the type used to specify arguments for a curated error.
type Values []interface{}

// curated errors let code raise a predefined error without worrying too much
// about how the message is rendered; see Errorf.
type curated struct {
	message string
	values  Values
	fatal   bool
}

// Errorf creates a new curated error. message is a registered template from
// categories.go, or an ad-hoc format string for one-off cases.
func Errorf(message string, values ...interface{}) error {
	return curated{message: message, values: values}
}

// Fatalf creates a curated error marked fatal. Fatal errors correspond to §7's
// "Fatal programmer error" category: an invariant violation in the core
// itself, never a guest mistake. The CPU main loop is expected to treat a
// fatal error as a stop-and-debug condition rather than log-and-continue.
func Fatalf(message string, values ...interface{}) error {
	return curated{message: message, values: values, fatal: true}
}

// Error implements the go language error interface. Normalisation removes
// duplicate adjacent message parts, which avoids the question of whether an
// intermediate caller should wrap an error it is merely forwarding.
func (e curated) Error() string {
	s := fmt.Errorf(e.message, e.values...).Error()

	p := strings.SplitN(s, ": ", 3)
	if len(p) > 1 && p[0] == p[1] {
		return strings.Join(p[1:], ": ")
	}
	return strings.Join(p, ": ")
}

// Head returns the leading part of the message, useful for switches that
// want to dispatch on error identity without caring about the Values.
func Head(err error) string {
	if e, ok := err.(curated); ok {
		return e.message
	}
	return err.Error()
}

// IsAny reports whether err originated from this package.
func IsAny(err error) bool {
	if err == nil {
		return false
	}
	_, ok := err.(curated)
	return ok
}

// Is reports whether err has the given head.
func Is(err error, head string) bool {
	if err == nil {
		return false
	}
	if e, ok := err.(curated); ok {
		return e.message == head
	}
	return false
}

// IsFatal reports whether err is a fatal programmer-error per §7, i.e. the
// equivalent of the original implementation's longjmp-based error().
func IsFatal(err error) bool {
	if e, ok := err.(curated); ok {
		return e.fatal
	}
	return false
}

// Has checks whether msg appears anywhere in the (possibly nested) error.
func Has(err error, msg string) bool {
	if err == nil {
		return false
	}
	if !IsAny(err) {
		return false
	}
	if Is(err, msg) {
		return true
	}
	for _, v := range err.(curated).values {
		if e, ok := v.(curated); ok {
			if Has(e, msg) {
				return true
			}
		}
	}
	return false
}
