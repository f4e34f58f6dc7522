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

import (
	"testing"

	"github.com/jetsetilly/armv7m/test"
)

// writeHalfwords stores a sequence of 16-bit encodings into RAM starting at
// addr, little-endian, so cpu.Decode (which goes through the bus) can fetch
// them directly.
func writeHalfwords(cpu *CPU, addr uint32, hws ...uint16) {
	for i, hw := range hws {
		cpu.Write16(addr+uint32(i*2), hw)
	}
}

func TestDecodeMOVImm(t *testing.T) {
	cpu := newBareTestCPU()
	writeHalfwords(cpu, testRAMBase, 0x202A) // MOVS R0, #42
	inst, err := cpu.Decode(testRAMBase)
	test.Equate(t, err, nil)
	test.Equate(t, inst.Op, OpMOVimm)
	test.Equate(t, inst.Rd, 0)
	test.Equate(t, inst.Imm, uint32(42))
	test.Equate(t, inst.Size(), uint32(2))
}

func TestDecodeSVC(t *testing.T) {
	cpu := newBareTestCPU()
	writeHalfwords(cpu, testRAMBase, 0xDF01) // SVC #1
	inst, err := cpu.Decode(testRAMBase)
	test.Equate(t, err, nil)
	test.Equate(t, inst.Op, OpSVC)
	test.Equate(t, inst.Imm, uint32(1))
}

func TestDecodeAddSub3RegisterAndImmediate(t *testing.T) {
	cpu := newBareTestCPU()
	writeHalfwords(cpu, testRAMBase, 0x1888) // ADDS R0, R1, R2
	inst, err := cpu.Decode(testRAMBase)
	test.Equate(t, err, nil)
	test.Equate(t, inst.Op, OpADDreg)
	test.Equate(t, inst.Rd, 0)
	test.Equate(t, inst.Rn, 1)
	test.Equate(t, inst.Rm, 2)

	writeHalfwords(cpu, testRAMBase, 0x1F63) // SUBS R3, R4, #5
	inst, err = cpu.Decode(testRAMBase)
	test.Equate(t, err, nil)
	test.Equate(t, inst.Op, OpSUBimm)
	test.Equate(t, inst.Rd, 3)
	test.Equate(t, inst.Rn, 4)
	test.Equate(t, inst.Imm, uint32(5))
}

func TestDecodeHiRegisterMOVAndBX(t *testing.T) {
	cpu := newBareTestCPU()
	writeHalfwords(cpu, testRAMBase, 0x46A5) // MOV SP, R4
	inst, err := cpu.Decode(testRAMBase)
	test.Equate(t, err, nil)
	test.Equate(t, inst.Op, OpMOVreg)
	test.Equate(t, inst.Rd, RegSP)
	test.Equate(t, inst.Rm, 4)

	writeHalfwords(cpu, testRAMBase, 0x4770) // BX LR
	inst, err = cpu.Decode(testRAMBase)
	test.Equate(t, err, nil)
	test.Equate(t, inst.Op, OpBX)
	test.Equate(t, inst.Rm, RegLR)
}

func TestDecodeLoadStoreImmediateAndRegisterOffset(t *testing.T) {
	cpu := newBareTestCPU()
	writeHalfwords(cpu, testRAMBase, 0x6848) // LDR R0, [R1, #4]
	inst, err := cpu.Decode(testRAMBase)
	test.Equate(t, err, nil)
	test.Equate(t, inst.Op, OpLDR)
	test.Equate(t, inst.Rt, 0)
	test.Equate(t, inst.Rn, 1)
	test.Equate(t, inst.Imm, uint32(4))
	test.Equate(t, inst.RegOffset, false)

	writeHalfwords(cpu, testRAMBase, 0x511A) // STR R2, [R3, R4]
	inst, err = cpu.Decode(testRAMBase)
	test.Equate(t, err, nil)
	test.Equate(t, inst.Op, OpSTR)
	test.Equate(t, inst.Rt, 2)
	test.Equate(t, inst.Rn, 3)
	test.Equate(t, inst.Rm, 4)
	test.Equate(t, inst.RegOffset, true)
}

func TestDecodePushPop(t *testing.T) {
	cpu := newBareTestCPU()
	writeHalfwords(cpu, testRAMBase, 0xB503) // PUSH {R0,R1,LR}
	inst, err := cpu.Decode(testRAMBase)
	test.Equate(t, err, nil)
	test.Equate(t, inst.Op, OpPUSH)
	test.Equate(t, inst.RegList, uint16(0x03|1<<RegLR))

	writeHalfwords(cpu, testRAMBase, 0xBD04) // POP {R2,PC}
	inst, err = cpu.Decode(testRAMBase)
	test.Equate(t, err, nil)
	test.Equate(t, inst.Op, OpPOP)
	test.Equate(t, inst.RegList, uint16(0x04|1<<RegPC))
}

func TestDecodeUnconditionalAndConditionalBranch(t *testing.T) {
	cpu := newBareTestCPU()
	writeHalfwords(cpu, testRAMBase, 0xE000) // B #0
	inst, err := cpu.Decode(testRAMBase)
	test.Equate(t, err, nil)
	test.Equate(t, inst.Op, OpB)
	test.Equate(t, inst.Imm, uint32(0))

	writeHalfwords(cpu, testRAMBase, 0xD000) // BEQ #0
	inst, err = cpu.Decode(testRAMBase)
	test.Equate(t, err, nil)
	test.Equate(t, inst.Op, OpBcond)
	test.Equate(t, inst.Cond, uint8(0))
}

func TestDecode32BitBL(t *testing.T) {
	cpu := newBareTestCPU()
	writeHalfwords(cpu, testRAMBase, 0xF000, 0xF802) // BL #4
	inst, err := cpu.Decode(testRAMBase)
	test.Equate(t, err, nil)
	test.Equate(t, inst.Op, OpBL)
	test.Equate(t, inst.K32Bit, true)
	test.Equate(t, inst.Size(), uint32(4))
	test.Equate(t, inst.Imm, uint32(4))
}
