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

package armv7m_test

import (
	"testing"

	"github.com/jetsetilly/armv7m/armv7m"
	"github.com/jetsetilly/armv7m/test"
)

func TestAddWithCarry(t *testing.T) {
	result, carry, overflow := armv7m.AddWithCarry(0xFFFFFFFF, 1, 0)
	test.Equate(t, result, uint32(0))
	test.Equate(t, carry, true)
	test.Equate(t, overflow, false)

	result, carry, overflow = armv7m.AddWithCarry(0x7FFFFFFF, 1, 0)
	test.Equate(t, result, uint32(0x80000000))
	test.Equate(t, carry, false)
	test.Equate(t, overflow, true)
}

func TestShiftC(t *testing.T) {
	result, carry := armv7m.LSL_C(1, 31)
	test.Equate(t, result, uint32(0x80000000))
	test.Equate(t, carry, false)

	result, carry = armv7m.LSL_C(1, 32)
	test.Equate(t, result, uint32(0))
	test.Equate(t, carry, true)

	result, carry = armv7m.ASR_C(0x80000000, 4)
	test.Equate(t, result, uint32(0xF8000000))
	test.Equate(t, carry, false)

	result, carry = armv7m.RRX_C(0x00000001, true)
	test.Equate(t, result, uint32(0x80000000))
	test.Equate(t, carry, true)
}

func TestDecodeImmShift(t *testing.T) {
	st, amt := armv7m.DecodeImmShift(0b01, 0) // LSR #0 means LSR #32
	test.Equate(t, st, armv7m.SRTypeLSR)
	test.Equate(t, amt, uint(32))

	st, amt = armv7m.DecodeImmShift(0b11, 0) // ROR #0 means RRX
	test.Equate(t, st, armv7m.SRTypeRRX)
	test.Equate(t, amt, uint(1))
}

func TestThumbExpandImm(t *testing.T) {
	imm32, _, unpredictable := armv7m.ThumbExpandImm_C(0x0FF, false)
	test.Equate(t, unpredictable, false)
	test.Equate(t, imm32, uint32(0xFF))

	imm32, _, unpredictable = armv7m.ThumbExpandImm_C(0x1FF, false) // 0x00XY00XY form with XY = 0xFF
	test.Equate(t, unpredictable, false)
	test.Equate(t, imm32, uint32(0x00FF00FF))
}

func TestSignExtend(t *testing.T) {
	test.Equate(t, armv7m.SignExtend(0x1FF, 9), uint32(0xFFFFFFFF))
	test.Equate(t, armv7m.SignExtend(0x0FF, 9), uint32(0x000000FF))
}

func TestPopCount16(t *testing.T) {
	test.Equate(t, armv7m.PopCount16(0), 0)
	test.Equate(t, armv7m.PopCount16(0xFF), 8)
	test.Equate(t, armv7m.PopCount16(0x8001), 2)
}
