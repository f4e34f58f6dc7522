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

// Package armv7m implements a functional emulator for the ARMv7-M Thumb-2
// instruction set: fetch/decode/execute loop, exception model, and the
// peripherals (SysTick, SCB) needed to run an unmodified Cortex-M ELF image
// to completion under host control.
package armv7m

import "github.com/jetsetilly/armv7m/assert"

// SpecialRegisterID identifies one of the persistent special registers.
// Reads of the synthetic registers Epsr/Xpsr/Control recompose bits from
// these backing stores; writes decompose symmetrically (see
// specialregisters.go).
type SpecialRegisterID int

// The persistent special-register set (spec.md §3).
const (
	SysCtrl SpecialRegisterID = iota
	Apsr
	Istate
	Ipsr
	Vtor
	Ccr
	Cfsr
	Bfar
	Hfsr
	Icsr
	Aircr
	Shpr1
	Shpr2
	Shpr3
	Shcsr
	Dfsr
	Mmfar
	SpMain
	SpProcess
	SysTickCsr
	SysTickRvr
	SysTickCvr
	SysTickCalib

	numSpecialRegisters
)

// SysCtrl bit positions: the internal condensation of mode, SPSEL, nPriv,
// T-bit and FPCA that the synthetic EPSR/CONTROL registers are composed
// from and decomposed into.
const (
	sysCtrlThumb   uint32 = 1 << 0 // T-bit
	sysCtrlNPriv   uint32 = 1 << 1
	sysCtrlSPSEL   uint32 = 1 << 2
	sysCtrlFPCA    uint32 = 1 << 3
	sysCtrlHandler uint32 = 1 << 4 // 1 == Handler mode, 0 == Thread mode
	sysCtrlPrimask uint32 = 1 << 5
)

// ShiftAmount / register indices.
const (
	RegSP = 13
	RegLR = 14
	RegPC = 15
)

// CPU holds the full architectural state of one ARMv7-M core: the general
// register file, persistent special registers, the exception table, and
// the bus it is wired to. It is created empty, initialised by Reset, and
// mutated only by the executor and exception subsystem.
type CPU struct {
	// general registers R0..R12. R13 (SP) is never stored here: it is
	// banked between SpMain/SpProcess and is accessed only through
	// ReadSP/WriteSP. R14 (LR) and R15 (PC) have dedicated fields because
	// writes to them go through dedicated semantics (branch, pipeline
	// bias) that make treating them as plain array slots a mistake.
	regs [13]uint32
	lr   uint32
	pc   uint32 // the raw stored value; reads must go through ReadPC

	special [numSpecialRegisters]uint32

	exceptions   [numExceptions]exceptionState
	pendingCount int
	nvicEnable   [32]bool

	// locked latches once a fault occurs while HardFault is already active
	// (a fault escalation with nowhere left to escalate to) — the
	// architectural lockup state, which Exec reports as ErrEmulatorLockup
	// instead of continuing to step a core that can no longer make
	// progress.
	locked bool

	bus *Bus

	instructionCount uint64

	// Options configures the behaviour that varies by invocation:
	// instruction tracing and interactivity.
	Options Options

	main assert.MainGoroutine
}

// Options configures a CPU at construction time. There is no persisted,
// disk-backed preferences layer (see DESIGN.md): this is a plain struct
// populated from CLI flags or test code, matching the Host API's own
// explicit-parameter style (spec.md §6).
type Options struct {
	// Interactive, when true, wires semihosting SYS_READC to the real
	// host terminal via a raw-mode term.Term. When false SYS_READC always
	// returns -1 (EOF), appropriate for CI/batch invocations.
	Interactive bool

	// Trace, when set, is called with a human-readable line for every
	// retired instruction (address, mnemonic-ish summary).
	Trace func(pc uint32, summary string)
}

// NewCPU returns an empty, unconfigured core. ConfigureFlash/RAM1/RAM2 and
// Load (or a direct Reset once spans are configured) must be called before
// Exec.
func NewCPU(opts Options) *CPU {
	cpu := &CPU{
		bus:     newBus(),
		Options: opts,
	}
	return cpu
}

// Bus returns the CPU's memory bus, for callers that want to configure
// spans directly (ConfigureFlash etc. are thin wrappers around this).
func (cpu *CPU) Bus() *Bus {
	return cpu.bus
}

// GReg reads one of R0..R12 directly. Panics if n is not in 0..12 — callers
// that also need R13/R14/R15 should use ReadReg, which handles the full
// 0..15 range including the PC pipeline bias.
func (cpu *CPU) GReg(n int) uint32 {
	return cpu.regs[n]
}

// SetGReg writes one of R0..R12 directly.
func (cpu *CPU) SetGReg(n int, v uint32) {
	cpu.regs[n] = v
}

// ReadReg reads general-purpose register n (0..15), handling the SP bank
// select and the PC pipeline bias transparently. Instruction semantics
// should always go through this rather than touching regs/lr/pc directly.
func (cpu *CPU) ReadReg(n int) uint32 {
	switch n {
	case RegSP:
		return cpu.ReadSP()
	case RegLR:
		return cpu.lr
	case RegPC:
		return cpu.ReadPC()
	default:
		return cpu.regs[n]
	}
}

// SetReg writes general-purpose register n (0..14, ie. excluding PC which
// every instruction semantic writes through BranchWritePC/BXWritePC/
// LoadWritePC/ALUWritePC instead), handling the SP bank select
// transparently. Instruction semantics that can target any register
// (hi-register data processing, in particular) should use this rather than
// SetGReg, which only covers R0..R12.
func (cpu *CPU) SetReg(n int, v uint32) {
	switch n {
	case RegSP:
		cpu.WriteSP(v)
	case RegLR:
		cpu.lr = v
	default:
		cpu.regs[n] = v
	}
}

// ReadPC returns the pipeline-biased program counter: stored_pc + 4. Direct
// writes to the raw stored value are forbidden outside of this file and
// reset.go/exceptions.go; ordinary instruction semantics must go through
// BranchWritePC/BXWritePC/BLXWritePC (see execute.go).
func (cpu *CPU) ReadPC() uint32 {
	return cpu.pc + 4
}

// rawPC returns the stored (non-biased) program counter, the value that
// will actually be fetched from next.
func (cpu *CPU) rawPC() uint32 {
	return cpu.pc
}

// setRawPC sets the stored program counter with no bias and no side
// effects (IT state, thumb bit). Used only by Reset and the few places in
// the executor that advance linearly (+2/+4) rather than branching.
func (cpu *CPU) setRawPC(v uint32) {
	cpu.pc = v
}

// Special reads a persistent special register by id.
func (cpu *CPU) Special(id SpecialRegisterID) uint32 {
	return cpu.special[id]
}

// SetSpecial writes a persistent special register by id.
func (cpu *CPU) SetSpecial(id SpecialRegisterID, v uint32) {
	cpu.special[id] = v
}

// InstructionCount returns the number of instructions retired since
// construction (or since the last Reset — Reset does not clear it, so a
// caller can track total work across multiple Exec calls and resets if it
// wants to; nothing in the architecture requires resetting this counter).
func (cpu *CPU) InstructionCount() uint64 {
	return cpu.instructionCount
}

// Snapshot is a value copy of the architecturally visible register state,
// useful for before/after comparisons in tests and for the pre/post-execute
// observer callbacks (spec.md §4.7 step 5/7).
type Snapshot struct {
	Regs      [13]uint32
	LR        uint32
	PC        uint32 // pipeline-biased
	SP        uint32
	Apsr      uint32
	Ipsr      uint32
	Istate    uint32
}

// Snapshot captures the current architecturally visible register state.
func (cpu *CPU) Snapshot() Snapshot {
	return Snapshot{
		Regs:   cpu.regs,
		LR:     cpu.lr,
		PC:     cpu.ReadPC(),
		SP:     cpu.ReadSP(),
		Apsr:   cpu.special[Apsr],
		Ipsr:   cpu.special[Ipsr],
		Istate: cpu.special[Istate],
	}
}
