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

// Package test collects the small assertion helpers used by every _test.go
// file in this module, in place of a third-party assertion library.
package test

import (
	"math"
	"reflect"
	"testing"
)

// Equate fails the test unless got == want.
func Equate(t *testing.T, got, want interface{}) {
	t.Helper()
	if got != want {
		t.Errorf("got %v (%T), wanted %v (%T)", got, got, want, want)
	}
}

// ExpectEquality fails the test unless want and got are deeply equal
// (reflect.DeepEqual). Unlike Equate it takes want first, and its failure
// message labels the first argument "expected".
func ExpectEquality(t *testing.T, want, got interface{}) {
	t.Helper()
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v (%T), got %v (%T)", want, want, got, got)
	}
}

// ExpectInequality fails the test if want == got.
func ExpectInequality(t *testing.T, want, got interface{}) {
	t.Helper()
	if reflect.DeepEqual(got, want) {
		t.Errorf("expected inequality, both sides are %v (%T)", got, got)
	}
}

// ExpectSuccess fails the test if v is a non-nil error or false.
func ExpectSuccess(t *testing.T, v interface{}) {
	t.Helper()
	switch x := v.(type) {
	case error:
		if x != nil {
			t.Errorf("expected success, got error: %v", x)
		}
	case bool:
		if !x {
			t.Errorf("expected success, got false")
		}
	case nil:
		// fine
	}
}

// ExpectFailure fails the test if v is a nil error or true.
func ExpectFailure(t *testing.T, v interface{}) {
	t.Helper()
	switch x := v.(type) {
	case error:
		if x == nil {
			t.Errorf("expected failure, got nil error")
		}
	case bool:
		if x {
			t.Errorf("expected failure, got true")
		}
	}
}

// ExpectApproximate fails the test unless got is within tolerance of want.
func ExpectApproximate(t *testing.T, want, got float64, tolerance float64) {
	t.Helper()
	if math.Abs(want-got) > tolerance {
		t.Errorf("expected %v to be within %v of %v", got, tolerance, want)
	}
}
