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

// Op identifies an instruction's operation. The decoder produces one of
// these plus the operand fields below; the executor switches on it.
type Op int

const (
	OpUnknown Op = iota

	// move / arithmetic, register and immediate forms
	OpMOVimm
	OpMOVreg
	OpMOVT
	OpMVNreg
	OpADDimm
	OpADDreg
	OpADDspImm
	OpADDspReg
	OpADDpcImm // ADR
	OpSUBimm
	OpSUBreg
	OpSUBspImm
	OpRSBimm
	OpCMPimm
	OpCMPreg
	OpCMNreg
	OpADCreg
	OpSBCreg

	// logical
	OpANDreg
	OpORRreg
	OpEORreg
	OpBICreg
	OpTSTreg
	OpTEQreg

	// shifts (register-form Shift ops share these; immediate shift is
	// folded into the *reg variants via ShiftType/ShiftAmount)
	OpLSLreg
	OpLSRreg
	OpASRreg
	OpRORreg

	// multiply / divide
	OpMUL
	OpMLA
	OpMLS
	OpUMULL
	OpUMLAL
	OpSMULL
	OpSMLAL
	OpSDIV
	OpUDIV

	// branches
	OpB
	OpBcond
	OpBL
	OpBX
	OpBLX
	OpCBZ
	OpCBNZ
	OpTBB
	OpTBH

	// predication
	OpIT

	// load/store
	OpLDR
	OpLDRB
	OpLDRH
	OpLDRSB
	OpLDRSH
	OpLDRlit
	OpSTR
	OpSTRB
	OpSTRH
	OpPUSH
	OpPOP
	OpLDM
	OpSTM

	// special-register moves
	OpMRS
	OpMSR

	// misc
	OpNOP
	OpBKPT
	OpSVC
	OpDMB
	OpDSB
	OpISB
)

// Instruction is the decoder's output: a flat record wide enough to cover
// every opcode family above without per-family structs. Fields not used by
// a given Op are left zero; the executor reads only the fields its Op
// defines.
type Instruction struct {
	Op Op

	Rd, Rn, Rm, Rt, Rt2 int

	Imm uint32

	ShiftType   ShiftType
	ShiftAmount uint32

	Cond uint8

	RegList uint16 // PUSH/POP/LDM/STM register list, bit per register

	RegOffset bool // true: address is Rn +/- Rm; false: address is Rn +/- Imm

	FirstCond, Mask uint8 // IT

	SYSm uint32 // MRS/MSR special-register selector

	// flags, analogous to the teacher's single packed flag byte: each one
	// means something different per Op and the executor documents which
	// apply where.
	SetFlags       bool
	Add            bool // index arithmetic direction for *imm addressing
	Index          bool // pre-indexed (true) vs post-indexed (false)
	WBack          bool // write Rn back after addressing
	Tbh            bool // TBB (false) vs TBH (true)
	NonZero        bool // CBNZ (true) vs CBZ (false)
	K32Bit         bool // encoding occupied 32 bits (for PC += 2 vs 4)

	Encoding uint32 // raw bits; the decoder leaves this zero (BKPT/SVC immediates are carried in Imm)
}

// Size returns how far PC should advance past this instruction: 2 for a
// 16-bit Thumb encoding, 4 for a 32-bit Thumb-2 encoding.
func (i Instruction) Size() uint32 {
	if i.K32Bit {
		return 4
	}
	return 2
}
