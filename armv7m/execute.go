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

// BranchWritePC/BXWritePC/BLXWritePC/LoadWritePC are the four ways the
// architecture allows PC to be written, each with its own side effects
// (spec.md §4.5). Ordinary sequential advance never goes through these; it
// is handled directly in Exec.

// BranchWritePC is a plain, same-instruction-set branch: the target's low
// bit is ignored. Clears any active IT block per the architecture's branch
// rule.
func (cpu *CPU) BranchWritePC(target uint32) {
	cpu.setRawPC(target &^ 1)
	cpu.ClearITState()
}

// BXWritePC switches instruction set per the target's low bit, or performs
// an exception return if target has the EXC_RETURN pattern in its top
// nibble.
func (cpu *CPU) BXWritePC(target uint32) error {
	if IsEXCReturn(target) {
		return cpu.ExceptionReturn(target)
	}
	cpu.setThumb(target&1 != 0)
	cpu.setRawPC(target &^ 1)
	cpu.ClearITState()
	return nil
}

// BLXWritePC is BXWritePC restricted to the immediate-form BLX, which this
// architecture subset never targets ARM state (EPSR.T would need to clear,
// which is UNPREDICTABLE on this core) — so it behaves like BranchWritePC
// but keeps the call-semantics name for executor readability.
func (cpu *CPU) BLXWritePC(target uint32) {
	cpu.setRawPC(target &^ 1)
	cpu.ClearITState()
}

// LoadWritePC is what LDR/POP do when the destination register is PC: like
// BXWritePC (interworking branch) but never interpreted as an exception
// return unless the EXC_RETURN pattern is actually present, which is the
// mechanism POP {PC} uses to return from an exception handler.
func (cpu *CPU) LoadWritePC(target uint32) error {
	return cpu.BXWritePC(target)
}

// ALUWritePC is what a flag-setting data-processing instruction does when
// its destination is PC: a plain branch, T-bit unchanged (spec.md §4.5).
func (cpu *CPU) ALUWritePC(target uint32) {
	cpu.BranchWritePC(target)
}

// shiftedRm resolves Rm through any shift the instruction carries, without
// touching the carry flag (used by ops that don't set flags from the
// shift's carry-out, eg. plain ADD/SUB register forms already decoded with
// a shift amount of zero in the 16-bit encodings this decoder emits).
func (cpu *CPU) shiftedRm(i Instruction) uint32 {
	return Shift(cpu.ReadReg(i.Rm), i.ShiftType, uint(i.ShiftAmount), cpu.FlagC())
}

// Execute performs the side effects of a single decoded instruction. The
// caller (step.go) is responsible for condition checking (ConditionPassed)
// before calling this, and for whatever comes after: IT advance and the PC
// step for instructions that didn't themselves write PC.
//
// Execute reports whether it wrote PC itself (branches, BX/BLX, any
// LDR/POP targeting R15): when true the caller must not also perform the
// normal +size advance.
func (cpu *CPU) Execute(i Instruction) (wrotePC bool, err error) {
	switch i.Op {
	case OpNOP, OpDMB, OpDSB, OpISB:
		return false, nil

	case OpMOVimm:
		v := i.Imm
		cpu.SetReg(i.Rd, v)
		if i.SetFlags {
			cpu.SetNZ(v>>31 == 1, v == 0)
		}
		return false, nil

	case OpMOVreg:
		v := cpu.ReadReg(i.Rm)
		if i.Rd == RegPC {
			cpu.ALUWritePC(v)
			return true, nil
		}
		cpu.SetReg(i.Rd, v)
		if i.SetFlags {
			cpu.SetNZ(v>>31 == 1, v == 0)
		}
		return false, nil

	case OpMVNreg:
		v := ^cpu.shiftedRm(i)
		cpu.SetReg(i.Rd, v)
		if i.SetFlags {
			cpu.SetNZ(v>>31 == 1, v == 0)
		}
		return false, nil

	case OpADDimm:
		result, carry, overflow := AddWithCarry(cpu.ReadReg(i.Rn), i.Imm, 0)
		if i.Rd == RegPC {
			cpu.ALUWritePC(result)
			return true, nil
		}
		cpu.SetReg(i.Rd, result)
		if i.SetFlags {
			cpu.SetNZCV(result>>31 == 1, result == 0, carry, overflow)
		}
		return false, nil

	case OpADDreg:
		result, carry, overflow := AddWithCarry(cpu.ReadReg(i.Rn), cpu.shiftedRm(i), 0)
		if i.Rd == RegPC {
			cpu.ALUWritePC(result)
			return true, nil
		}
		cpu.SetReg(i.Rd, result)
		if i.SetFlags {
			cpu.SetNZCV(result>>31 == 1, result == 0, carry, overflow)
		}
		return false, nil

	case OpADDspImm:
		base := cpu.ReadSP()
		result, _, _ := AddWithCarry(base, i.Imm, 0)
		if i.Rd == RegSP {
			cpu.WriteSP(result)
		} else {
			cpu.SetReg(i.Rd, result)
		}
		return false, nil

	case OpADDpcImm:
		base := cpu.ReadPC() &^ 0x3
		result, _, _ := AddWithCarry(base, i.Imm, 0)
		cpu.SetReg(i.Rd, result)
		return false, nil

	case OpSUBimm:
		result, carry, overflow := AddWithCarry(cpu.ReadReg(i.Rn), ^i.Imm, 1)
		cpu.SetReg(i.Rd, result)
		if i.SetFlags {
			cpu.SetNZCV(result>>31 == 1, result == 0, carry, overflow)
		}
		return false, nil

	case OpSUBreg:
		result, carry, overflow := AddWithCarry(cpu.ReadReg(i.Rn), ^cpu.shiftedRm(i), 1)
		cpu.SetReg(i.Rd, result)
		if i.SetFlags {
			cpu.SetNZCV(result>>31 == 1, result == 0, carry, overflow)
		}
		return false, nil

	case OpSUBspImm:
		result, _, _ := AddWithCarry(cpu.ReadSP(), ^i.Imm, 1)
		cpu.WriteSP(result)
		return false, nil

	case OpRSBimm:
		result, carry, overflow := AddWithCarry(^cpu.ReadReg(i.Rn), i.Imm, 1)
		cpu.SetReg(i.Rd, result)
		if i.SetFlags {
			cpu.SetNZCV(result>>31 == 1, result == 0, carry, overflow)
		}
		return false, nil

	case OpADCreg:
		carryIn := uint32(0)
		if cpu.FlagC() {
			carryIn = 1
		}
		result, carry, overflow := AddWithCarry(cpu.ReadReg(i.Rn), cpu.shiftedRm(i), carryIn)
		cpu.SetReg(i.Rd, result)
		if i.SetFlags {
			cpu.SetNZCV(result>>31 == 1, result == 0, carry, overflow)
		}
		return false, nil

	case OpSBCreg:
		carryIn := uint32(0)
		if cpu.FlagC() {
			carryIn = 1
		}
		result, carry, overflow := AddWithCarry(cpu.ReadReg(i.Rn), ^cpu.shiftedRm(i), carryIn)
		cpu.SetReg(i.Rd, result)
		if i.SetFlags {
			cpu.SetNZCV(result>>31 == 1, result == 0, carry, overflow)
		}
		return false, nil

	case OpCMPimm:
		result, carry, overflow := AddWithCarry(cpu.ReadReg(i.Rn), ^i.Imm, 1)
		cpu.SetNZCV(result>>31 == 1, result == 0, carry, overflow)
		return false, nil

	case OpCMPreg:
		result, carry, overflow := AddWithCarry(cpu.ReadReg(i.Rn), ^cpu.shiftedRm(i), 1)
		cpu.SetNZCV(result>>31 == 1, result == 0, carry, overflow)
		return false, nil

	case OpCMNreg:
		result, carry, overflow := AddWithCarry(cpu.ReadReg(i.Rn), cpu.shiftedRm(i), 0)
		cpu.SetNZCV(result>>31 == 1, result == 0, carry, overflow)
		return false, nil

	case OpANDreg:
		v := cpu.ReadReg(i.Rn) & cpu.shiftedRm(i)
		cpu.SetReg(i.Rd, v)
		if i.SetFlags {
			cpu.SetNZC(v>>31 == 1, v == 0, cpu.FlagC())
		}
		return false, nil

	case OpORRreg:
		v := cpu.ReadReg(i.Rn) | cpu.shiftedRm(i)
		cpu.SetReg(i.Rd, v)
		if i.SetFlags {
			cpu.SetNZC(v>>31 == 1, v == 0, cpu.FlagC())
		}
		return false, nil

	case OpEORreg:
		v := cpu.ReadReg(i.Rn) ^ cpu.shiftedRm(i)
		cpu.SetReg(i.Rd, v)
		if i.SetFlags {
			cpu.SetNZC(v>>31 == 1, v == 0, cpu.FlagC())
		}
		return false, nil

	case OpBICreg:
		v := cpu.ReadReg(i.Rn) &^ cpu.shiftedRm(i)
		cpu.SetReg(i.Rd, v)
		if i.SetFlags {
			cpu.SetNZC(v>>31 == 1, v == 0, cpu.FlagC())
		}
		return false, nil

	case OpTSTreg:
		v := cpu.ReadReg(i.Rn) & cpu.shiftedRm(i)
		cpu.SetNZC(v>>31 == 1, v == 0, cpu.FlagC())
		return false, nil

	case OpTEQreg:
		v := cpu.ReadReg(i.Rn) ^ cpu.shiftedRm(i)
		cpu.SetNZC(v>>31 == 1, v == 0, cpu.FlagC())
		return false, nil

	case OpLSLreg, OpLSRreg, OpASRreg, OpRORreg:
		return cpu.executeShift(i)

	case OpMUL:
		v := cpu.ReadReg(i.Rn) * cpu.ReadReg(i.Rm)
		cpu.SetReg(i.Rd, v)
		if i.SetFlags {
			cpu.SetNZ(v>>31 == 1, v == 0)
		}
		return false, nil

	case OpMLA:
		v := cpu.ReadReg(i.Rn)*cpu.ReadReg(i.Rm) + cpu.ReadReg(i.Rt)
		cpu.SetReg(i.Rd, v)
		return false, nil

	case OpMLS:
		v := cpu.ReadReg(i.Rt) - cpu.ReadReg(i.Rn)*cpu.ReadReg(i.Rm)
		cpu.SetReg(i.Rd, v)
		return false, nil

	case OpUMULL:
		wide := uint64(cpu.ReadReg(i.Rn)) * uint64(cpu.ReadReg(i.Rm))
		cpu.SetReg(i.Rd, uint32(wide))
		cpu.SetReg(i.Rt2, uint32(wide>>32))
		return false, nil

	case OpSMULL:
		wide := int64(int32(cpu.ReadReg(i.Rn))) * int64(int32(cpu.ReadReg(i.Rm)))
		cpu.SetReg(i.Rd, uint32(wide))
		cpu.SetReg(i.Rt2, uint32(wide>>32))
		return false, nil

	case OpUMLAL:
		acc := uint64(cpu.ReadReg(i.Rt2))<<32 | uint64(cpu.ReadReg(i.Rd))
		wide := acc + uint64(cpu.ReadReg(i.Rn))*uint64(cpu.ReadReg(i.Rm))
		cpu.SetReg(i.Rd, uint32(wide))
		cpu.SetReg(i.Rt2, uint32(wide>>32))
		return false, nil

	case OpSMLAL:
		acc := int64(uint64(cpu.ReadReg(i.Rt2))<<32 | uint64(cpu.ReadReg(i.Rd)))
		wide := acc + int64(int32(cpu.ReadReg(i.Rn)))*int64(int32(cpu.ReadReg(i.Rm)))
		cpu.SetReg(i.Rd, uint32(wide))
		cpu.SetReg(i.Rt2, uint32(wide>>32))
		return false, nil

	case OpSDIV:
		return false, cpu.executeDiv(i, true)

	case OpUDIV:
		return false, cpu.executeDiv(i, false)

	case OpB:
		target := cpu.ReadPC() + i.Imm
		cpu.BranchWritePC(target)
		return true, nil

	case OpBcond:
		target := cpu.ReadPC() + i.Imm
		cpu.BranchWritePC(target)
		return true, nil

	case OpBL:
		cpu.lr = cpu.rawPC() + i.Size() | 1
		target := cpu.ReadPC() + i.Imm
		cpu.BranchWritePC(target)
		return true, nil

	case OpBLX:
		if i.K32Bit {
			cpu.lr = cpu.rawPC() + i.Size() | 1
			target := (cpu.ReadPC() &^ 0x3) + i.Imm
			cpu.BLXWritePC(target)
			return true, nil
		}
		cpu.lr = cpu.rawPC() + i.Size() | 1
		cpu.setThumb(true)
		if err := cpu.BXWritePC(cpu.ReadReg(i.Rm)); err != nil {
			return true, err
		}
		return true, nil

	case OpBX:
		if err := cpu.BXWritePC(cpu.ReadReg(i.Rm)); err != nil {
			return true, err
		}
		return true, nil

	case OpCBZ:
		v := cpu.ReadReg(i.Rn)
		taken := v == 0
		if i.NonZero {
			taken = v != 0
		}
		if taken {
			target := cpu.ReadPC() + i.Imm
			cpu.BranchWritePC(target)
			return true, nil
		}
		return false, nil

	case OpTBB:
		base := cpu.ReadReg(i.Rn)
		if i.Rn == RegPC {
			base = cpu.ReadPC()
		}
		index := cpu.ReadReg(i.Rm)
		var halfwords uint32
		if i.Tbh {
			halfwords = uint32(cpu.Read16(base + index*2))
		} else {
			halfwords = uint32(cpu.Read8(base + index))
		}
		target := cpu.ReadPC() + halfwords*2
		cpu.BranchWritePC(target)
		return true, nil

	case OpIT:
		cpu.SetITState(i.FirstCond, i.Mask)
		return false, nil

	case OpLDR, OpLDRB, OpLDRH, OpLDRSB, OpLDRSH, OpLDRlit:
		return cpu.executeLoad(i)

	case OpSTR, OpSTRB, OpSTRH:
		cpu.executeStore(i)
		return false, nil

	case OpPUSH:
		return false, cpu.executePush(i)

	case OpPOP:
		return cpu.executePop(i)

	case OpLDM:
		return cpu.executeLDM(i)

	case OpSTM:
		cpu.executeSTM(i)
		return false, nil

	case OpMRS:
		cpu.SetReg(i.Rd, cpu.readSpecialBySYSm(i.SYSm))
		return false, nil

	case OpMSR:
		cpu.writeSpecialBySYSm(i.SYSm, cpu.ReadReg(i.Rn))
		return false, nil

	case OpBKPT:
		return false, cpu.semihost(i)

	case OpSVC:
		return false, cpu.svc(i)

	default:
		return false, ErrExecutorUndefined
	}
}

func (cpu *CPU) executeShift(i Instruction) (bool, error) {
	value := cpu.ReadReg(i.Rn)
	amount := cpu.ReadReg(i.Rm) & 0xFF

	var st ShiftType
	switch i.Op {
	case OpLSLreg:
		st = SRTypeLSL
	case OpLSRreg:
		st = SRTypeLSR
	case OpASRreg:
		st = SRTypeASR
	case OpRORreg:
		st = SRTypeROR
	}

	result, carry := Shift_C(value, st, uint(amount), cpu.FlagC())
	cpu.SetReg(i.Rd, result)
	if i.SetFlags {
		cpu.SetNZC(result>>31 == 1, result == 0, carry)
	}
	return false, nil
}

func (cpu *CPU) executeDiv(i Instruction, signed bool) error {
	n := cpu.ReadReg(i.Rn)
	m := cpu.ReadReg(i.Rm)

	if m == 0 {
		if cpu.special[Ccr]&(1<<4) != 0 { // DIV_0_TRP
			cpu.raiseUsageFault(cfsrDivByZero)
			return ErrUsageFault
		}
		cpu.SetReg(i.Rd, 0)
		return nil
	}

	var result uint32
	if signed {
		result = uint32(int32(n) / int32(m))
	} else {
		result = n / m
	}
	cpu.SetReg(i.Rd, result)
	return nil
}

// addressingAddr computes the effective address for an immediate-offset
// load/store (register-offset forms are handled directly by the caller,
// since this emulator's decoder never sets both Imm and Rm on one
// instruction).
func (cpu *CPU) addressingAddr(i Instruction) (addr uint32, writeback uint32) {
	base := cpu.ReadReg(i.Rn)

	var offsetAddr uint32
	if i.Add {
		offsetAddr = base + i.Imm
	} else {
		offsetAddr = base - i.Imm
	}

	if i.Index {
		return offsetAddr, offsetAddr
	}
	return base, offsetAddr
}

func (cpu *CPU) executeLoad(i Instruction) (bool, error) {
	var addr uint32
	switch {
	case i.Op == OpLDRlit:
		addr = (cpu.ReadPC() &^ 0x3) + i.Imm
	case i.RegOffset:
		addr = cpu.ReadReg(i.Rn) + cpu.ReadReg(i.Rm)
	default:
		addr, _ = cpu.addressingAddr(i)
	}

	var value uint32
	switch i.Op {
	case OpLDR, OpLDRlit:
		value = cpu.Read32(addr)
	case OpLDRB:
		value = uint32(cpu.Read8(addr))
	case OpLDRH:
		value = uint32(cpu.Read16(addr))
	case OpLDRSB:
		value = SignExtend(uint32(cpu.Read8(addr)), 8)
	case OpLDRSH:
		value = SignExtend(uint32(cpu.Read16(addr)), 16)
	}

	if i.Rt == RegPC {
		return true, cpu.LoadWritePC(value)
	}
	cpu.SetReg(i.Rt, value)
	return false, nil
}

func (cpu *CPU) executeStore(i Instruction) {
	var addr uint32
	if i.RegOffset {
		addr = cpu.ReadReg(i.Rn) + cpu.ReadReg(i.Rm)
	} else {
		addr, _ = cpu.addressingAddr(i)
	}

	value := cpu.ReadReg(i.Rt)
	switch i.Op {
	case OpSTR:
		cpu.Write32(addr, value)
	case OpSTRB:
		cpu.Write8(addr, uint8(value))
	case OpSTRH:
		cpu.Write16(addr, uint16(value))
	}
}

// executePush stores registers in the list from R0 upward into descending
// memory, SP decrementing first (architecturally STMDB SP!).
func (cpu *CPU) executePush(i Instruction) error {
	count := PopCount16(i.RegList)
	addr := cpu.ReadSP() - uint32(count)*4
	sp := addr
	for n := 0; n < 16; n++ {
		if i.RegList&(1<<uint(n)) == 0 {
			continue
		}
		cpu.Write32(addr, cpu.ReadReg(n))
		addr += 4
	}
	cpu.WriteSP(sp)
	return nil
}

// executePop loads registers in ascending order starting at SP (LDM SP!,
// effectively), writing SP back to the post-pop address before any PC load
// so POP {PC} reads the popped stack cleanly. Popping PC anywhere but the
// last instruction of an IT block is UNPREDICTABLE (the decoder has no
// access to IT state, so this is caught here rather than at decode time).
func (cpu *CPU) executePop(i Instruction) (bool, error) {
	if i.RegList&(1<<uint(RegPC)) != 0 && cpu.InITBlock() && !cpu.LastInITBlock() {
		return false, ErrExecutorUnpredictable
	}

	count := PopCount16(i.RegList)
	addr := cpu.ReadSP()
	cpu.WriteSP(addr + uint32(count)*4)

	wrotePC := false
	var err error
	for n := 0; n < 16; n++ {
		if i.RegList&(1<<uint(n)) == 0 {
			continue
		}
		v := cpu.Read32(addr)
		addr += 4
		if n == RegPC {
			wrotePC = true
			err = cpu.LoadWritePC(v)
		} else if n == RegLR {
			cpu.lr = v
		} else {
			cpu.SetGReg(n, v)
		}
	}
	return wrotePC, err
}

func (cpu *CPU) executeLDM(i Instruction) (bool, error) {
	addr := cpu.ReadReg(i.Rn)
	count := PopCount16(i.RegList)
	wrotePC := false
	var err error
	for n := 0; n < 16; n++ {
		if i.RegList&(1<<uint(n)) == 0 {
			continue
		}
		v := cpu.Read32(addr)
		addr += 4
		if n == RegPC {
			wrotePC = true
			err = cpu.LoadWritePC(v)
		} else if n == i.Rn {
			// the address is already held in addr, so the loaded value can
			// replace Rn here; writeback below is skipped for this case
			cpu.SetGReg(n, v)
		} else {
			cpu.SetGReg(n, v)
		}
	}
	if i.WBack && i.RegList&(1<<uint(i.Rn)) == 0 {
		cpu.SetGReg(i.Rn, cpu.ReadReg(i.Rn)+uint32(count)*4)
	}
	return wrotePC, err
}

func (cpu *CPU) executeSTM(i Instruction) {
	addr := cpu.ReadReg(i.Rn)
	count := PopCount16(i.RegList)
	for n := 0; n < 16; n++ {
		if i.RegList&(1<<uint(n)) == 0 {
			continue
		}
		cpu.Write32(addr, cpu.ReadReg(n))
		addr += 4
	}
	if i.WBack {
		cpu.SetGReg(i.Rn, cpu.ReadReg(i.Rn)+uint32(count)*4)
	}
}
