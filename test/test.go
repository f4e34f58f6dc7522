// This file is part of armv7m.
//
// armv7m is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// armv7m is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with armv7m.  If not, see <https://www.gnu.org/licenses/>.

// Package test collects the small assertion helpers used by _test.go files
// throughout the module. It is deliberately tiny: the packages under test
// favour plain comparisons of concrete values over a large assertion
// vocabulary.
package test

import (
	"math"
	"reflect"
	"testing"
)

// ExpectFailure checks that a boolean is false or that an error is
// non-nil. Useful for functions that return (bool, error) style results
// where either channel signals failure.
func ExpectFailure(t *testing.T, v interface{}) {
	t.Helper()

	switch r := v.(type) {
	case bool:
		if r {
			t.Errorf("expected failure, got success")
		}
	case error:
		if r == nil {
			t.Errorf("expected failure (error), got nil")
		}
	default:
		t.Errorf("ExpectFailure() used with unsupported type %T", v)
	}
}

// ExpectSuccess checks that a boolean is true or that an error is nil.
func ExpectSuccess(t *testing.T, v interface{}) {
	t.Helper()

	switch r := v.(type) {
	case bool:
		if !r {
			t.Errorf("expected success, got failure")
		}
	case error:
		if r != nil {
			t.Errorf("expected success, got error: %v", r)
		}
	case nil:
		// a nil error interface value with no concrete type
	default:
		t.Errorf("ExpectSuccess() used with unsupported type %T", v)
	}
}

// ExpectEquality checks that two values of the same type are equal,
// using reflect.DeepEqual for anything that isn't comparable with ==.
func ExpectEquality(t *testing.T, a, b interface{}) {
	t.Helper()

	if !equal(a, b) {
		t.Errorf("expected equality: %#v != %#v", a, b)
	}
}

// ExpectInequality checks that two values are not equal.
func ExpectInequality(t *testing.T, a, b interface{}) {
	t.Helper()

	if equal(a, b) {
		t.Errorf("expected inequality: %#v == %#v", a, b)
	}
}

// ExpectApproximate checks that two numeric values are within tolerance of
// one another.
func ExpectApproximate(t *testing.T, a, b float64, tolerance float64) {
	t.Helper()

	if math.Abs(a-b) > tolerance {
		t.Errorf("expected %v to be within %v of %v", a, tolerance, b)
	}
}

// Equate is a terser alias of ExpectEquality, matching the result/expected
// result style used by some of the older tests in this module.
func Equate(t *testing.T, result interface{}, expected interface{}) {
	t.Helper()
	ExpectEquality(t, result, expected)
}

func equal(a, b interface{}) bool {
	return reflect.DeepEqual(a, b)
}
