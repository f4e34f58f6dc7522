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

package armv7m

// ConditionPassed implements the standard 4-bit condition code table, keyed
// on bits [3:1] with bit [0] inverting the result (except cond == 0b1111,
// which is always true "AL").
func (cpu *CPU) ConditionPassed(cond uint8) bool {
	var result bool

	switch (cond >> 1) & 0x7 {
	case 0b000: // EQ/NE
		result = cpu.FlagZ()
	case 0b001: // CS/CC
		result = cpu.FlagC()
	case 0b010: // MI/PL
		result = cpu.FlagN()
	case 0b011: // VS/VC
		result = cpu.FlagV()
	case 0b100: // HI/LS
		result = cpu.FlagC() && !cpu.FlagZ()
	case 0b101: // GE/LT
		result = cpu.FlagN() == cpu.FlagV()
	case 0b110: // GT/LE
		result = cpu.FlagN() == cpu.FlagV() && !cpu.FlagZ()
	case 0b111: // AL (both encodings of bit 0)
		return true
	}

	if cond&1 != 0 && cond != 0xF {
		result = !result
	}
	return result
}

// InITBlock reports whether the core is currently executing inside an IT
// block (ITSTATE[3:0] != 0).
func (cpu *CPU) InITBlock() bool {
	return istateMask(cpu.special[Istate]) != 0
}

// LastInITBlock reports whether the current instruction is the last one
// predicated by the active IT block (ITSTATE[3:0] is a single set bit in
// the architecture's encoding, ie. 0b1000).
func (cpu *CPU) LastInITBlock() bool {
	return istateMask(cpu.special[Istate]) == 0b1000
}

// CurrentCond returns the condition code that applies to the instruction
// about to execute: the condition held in ITSTATE[7:4] while inside an IT block, or
// unconditional (0b1110 = AL) outside of one.
func (cpu *CPU) CurrentCond() uint8 {
	if cpu.InITBlock() {
		return istateFirstCond(cpu.special[Istate])
	}
	return 0b1110
}

// ITAdvance shifts ITSTATE[4:0] one bit left within its 5-bit field
// (firstcond's low bit followed by the mask nibble, so mask bit 3 becomes
// the low bit of the next instruction's condition), clearing the whole state once
// the low 3 bits of the mask reach zero — ie. after the last predicated
// instruction of the block has executed.
func (cpu *CPU) ITAdvance() {
	istate := cpu.special[Istate]
	mask := istateMask(istate)
	if mask == 0 {
		return
	}
	if mask&0x7 == 0 {
		cpu.special[Istate] = 0
		return
	}
	firstcond := (istateFirstCond(istate) &^ 1) | ((mask >> 3) & 1)
	mask = (mask << 1) & 0xF
	cpu.special[Istate] = packIstate(firstcond, mask)
}

// SetITState installs a fresh IT block: firstcond is the cached condition
// for the first (and possibly only) predicated instruction; mask is the
// ITSTATE[3:0] countdown field as decoded from the IT instruction's own
// encoding (firstcond:mask packed the usual way by the caller).
func (cpu *CPU) SetITState(firstcond, mask uint8) {
	cpu.special[Istate] = packIstate(firstcond, mask)
}

// ClearITState exits any active IT block immediately, as happens on branch
// (EPSR-reset semantics) and on exception entry.
func (cpu *CPU) ClearITState() {
	cpu.special[Istate] = 0
}
