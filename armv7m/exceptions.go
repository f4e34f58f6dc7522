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
	"github.com/jetsetilly/armv7m/errors"
	"github.com/jetsetilly/armv7m/logger"
)

// Exception numbers. spec.md §3 describes a fixed-size table of 16
// internal plus 32 external entries indexed 1..48; this lays that table
// out exactly, grounded on original_source's exception_type.h numbering.
const (
	ExceptionReset        = 1
	ExceptionNMI          = 2
	ExceptionHardFault    = 3
	ExceptionMemManage    = 4
	ExceptionBusFault     = 5
	ExceptionUsageFault   = 6
	// 7..10 reserved
	ExceptionSVCall       = 11
	ExceptionDebugMonitor = 12
	// 13 reserved
	ExceptionPendSV = 14
	ExceptionSysTick = 15
	// 16 reserved, completing the 16-entry internal block

	// ExternalIRQBase is exception number 17, ie. IRQ0. 32 external lines
	// follow, through exception number 48.
	ExternalIRQBase = 17
	numExternalIRQs = 32

	numExceptions = ExternalIRQBase + numExternalIRQs // array size, index 0 unused
)

// kLowestPriority is a sentinel below any real configured priority (which
// in this emulator range over -3..255); Thread mode's effective execution
// priority is kLowestPriority+1 so that any pending, unmasked exception can
// always preempt it.
const kLowestPriority = 256

type exceptionState struct {
	priority int
	pending  bool
	active   bool
}

func defaultPriority(n int) int {
	switch n {
	case ExceptionReset:
		return -3
	case ExceptionNMI:
		return -2
	case ExceptionHardFault:
		return -1
	default:
		return 0
	}
}

// resetExceptionTable restores every exception entry to its power-on
// default: configurable priority 0 (fixed -3/-2/-1 for Reset/NMI/
// HardFault), Inactive, not Pending.
func (cpu *CPU) resetExceptionTable() {
	cpu.pendingCount = 0
	for n := 1; n < numExceptions; n++ {
		cpu.exceptions[n] = exceptionState{priority: defaultPriority(n)}
	}
}

// SetExceptionPending marks an exception pending, maintaining the
// pendingCount invariant (spec.md §8: pendingCount equals the number of
// Pending entries at every step boundary).
func (cpu *CPU) SetExceptionPending(n int) {
	if n <= 0 || n >= numExceptions {
		return
	}
	if !cpu.exceptions[n].pending {
		cpu.exceptions[n].pending = true
		cpu.pendingCount++
	}
}

// ClearExceptionPending clears the pending flag.
func (cpu *CPU) ClearExceptionPending(n int) {
	if n <= 0 || n >= numExceptions {
		return
	}
	if cpu.exceptions[n].pending {
		cpu.exceptions[n].pending = false
		cpu.pendingCount--
	}
}

// SetExceptionActive / ClearExceptionActive toggle the active flag, used on
// entry and return respectively.
func (cpu *CPU) SetExceptionActive(n int) {
	if n > 0 && n < numExceptions {
		cpu.exceptions[n].active = true
	}
}

func (cpu *CPU) ClearExceptionActive(n int) {
	if n > 0 && n < numExceptions {
		cpu.exceptions[n].active = false
	}
}

// IsExceptionPending / IsExceptionActive are read-only queries, used by SCB
// register reads (ICSR, SHCSR) and by tests checking the pendingCount
// invariant.
func (cpu *CPU) IsExceptionPending(n int) bool {
	if n <= 0 || n >= numExceptions {
		return false
	}
	return cpu.exceptions[n].pending
}

func (cpu *CPU) IsExceptionActive(n int) bool {
	if n <= 0 || n >= numExceptions {
		return false
	}
	return cpu.exceptions[n].active
}

// PendingCount returns the number of exceptions currently pending.
func (cpu *CPU) PendingCount() int {
	return cpu.pendingCount
}

// ExceptionPriority returns an exception's configured priority.
func (cpu *CPU) ExceptionPriority(n int) int {
	if n <= 0 || n >= numExceptions {
		return kLowestPriority
	}
	return cpu.exceptions[n].priority
}

// SetExceptionPriority sets an exception's configured priority (Reset/NMI/
// HardFault are architecturally fixed and this is a no-op for them).
func (cpu *CPU) SetExceptionPriority(n int, priority int) {
	if n == ExceptionReset || n == ExceptionNMI || n == ExceptionHardFault {
		return
	}
	if n > 0 && n < numExceptions {
		cpu.exceptions[n].priority = priority
	}
}

// currentExecutionPriority is the priority of the exception IPSR currently
// identifies, or kLowestPriority+1 in Thread mode (IPSR == 0).
func (cpu *CPU) currentExecutionPriority() int {
	ipsr := int(cpu.special[Ipsr])
	if ipsr == 0 {
		return kLowestPriority + 1
	}
	return cpu.ExceptionPriority(ipsr)
}

// checkpointAllowed reports, for a given check point, whether exception n
// is a candidate for preemption at that instant (spec.md §4.7).
type checkpoint int

const (
	checkpointPreFetch checkpoint = iota
	checkpointPostFetch
	checkpointPostExecute
)

func checkpointAllowed(cp checkpoint, n int) bool {
	switch cp {
	case checkpointPreFetch:
		switch n {
		case ExceptionNMI, ExceptionSVCall, ExceptionPendSV, ExceptionSysTick:
			return true
		default:
			return n >= ExternalIRQBase
		}
	case checkpointPostFetch:
		switch n {
		case ExceptionMemManage, ExceptionBusFault, ExceptionUsageFault:
			return true
		}
		return false
	case checkpointPostExecute:
		switch n {
		case ExceptionHardFault, ExceptionMemManage, ExceptionBusFault, ExceptionUsageFault, ExceptionDebugMonitor:
			return true
		}
		return false
	}
	return false
}

// selectException implements the priority-arbitration rule of spec.md
// §4.6: ascending exception-number scan, skip Active, skip priority >=
// current execution priority, select smallest priority with ties broken by
// smallest number.
func (cpu *CPU) selectException(cp checkpoint) (int, bool) {
	current := cpu.currentExecutionPriority()

	best := -1
	bestPriority := kLowestPriority + 1

	for n := 1; n < numExceptions; n++ {
		st := &cpu.exceptions[n]
		if !st.pending || st.active {
			continue
		}
		if !checkpointAllowed(cp, n) {
			continue
		}
		if n >= ExternalIRQBase && !cpu.nvicEnable[n-ExternalIRQBase] {
			continue
		}
		if cpu.special[SysCtrl]&sysCtrlPrimask != 0 && n != ExceptionNMI && n != ExceptionHardFault {
			continue
		}
		p := cpu.ExceptionPriority(n)
		if p >= current {
			continue
		}
		if p < bestPriority {
			best = n
			bestPriority = p
		}
	}

	if best == -1 {
		return 0, false
	}
	return best, true
}

// CheckExceptions runs the priority-arbitration rule for checkpoint cp and,
// if an exception preempts, performs ExceptionEntry for it. returnAddress
// is the value to stack as the exception's ReturnAddress, whose meaning
// depends on the checkpoint's synchronicity (spec.md §4.6 "Return address
// function"). Reports whether an exception was taken (the caller treats
// the current step as a NOP when true).
func (cpu *CPU) CheckExceptions(cp checkpoint, returnAddress uint32) bool {
	n, ok := cpu.selectException(cp)
	if !ok {
		return false
	}
	cpu.ExceptionEntry(n, returnAddress)
	return true
}

const ccrSTKALIGN uint32 = 1 << 9

// hfsrForced is HFSR.FORCED: a configurable-priority fault escalated to
// HardFault because its own handler could not be entered.
const hfsrForced uint32 = 1 << 30

// Locked reports whether the core has hit the architectural lockup state:
// a fault occurred while HardFault itself was active, so there is no
// handler left to escalate to. A locked core makes no further progress;
// Exec reports this as ErrEmulatorLockup rather than continuing to step.
func (cpu *CPU) Locked() bool {
	return cpu.locked
}

// escalateToHardFault converts a fault that cannot be taken at its own
// priority into HardFault, setting HFSR.FORCED and pending HardFault (which,
// unlike every other exception, can always preempt). If HardFault is
// already active the escalation has nowhere left to go and the core locks
// up, per spec.md §4.6.
func (cpu *CPU) escalateToHardFault() {
	cpu.special[Hfsr] |= hfsrForced
	if cpu.exceptions[ExceptionHardFault].active {
		cpu.locked = true
		logger.Logf("exceptions", errors.EmulatorLockup)
		return
	}
	cpu.SetExceptionPending(ExceptionHardFault)
	logger.Logf("exceptions", errors.ExceptionLost, "stack access")
}

// ExceptionEntry pushes the eight architecturally preserved registers onto
// the current stack (selected by mode/CONTROL.SPSEL before the mode
// switch), computes EXC_RETURN, and hands off to exceptionTaken.
func (cpu *CPU) ExceptionEntry(n int, returnAddress uint32) {
	sp := cpu.ReadSP()
	frame := sp - 0x20

	aligned := false
	if cpu.special[Ccr]&ccrSTKALIGN != 0 && frame&4 != 0 {
		frame -= 4
		aligned = true
	}

	// Every word of the frame is pushed even if an earlier one faulted: real
	// hardware completes the stacking sequence regardless, since the frame
	// layout (and therefore the final SP) must stay architecturally fixed.
	cpu.stackWrite32(frame+0, cpu.GReg(0))
	cpu.stackWrite32(frame+4, cpu.GReg(1))
	cpu.stackWrite32(frame+8, cpu.GReg(2))
	cpu.stackWrite32(frame+12, cpu.GReg(3))
	cpu.stackWrite32(frame+16, cpu.GReg(12))
	cpu.stackWrite32(frame+20, cpu.lr)
	cpu.stackWrite32(frame+24, returnAddress)

	xpsr := cpu.ReadXPSR()
	if aligned {
		xpsr |= 1 << 9
	} else {
		xpsr &^= 1 << 9
	}
	cpu.stackWrite32(frame+28, xpsr)

	cpu.WriteSP(frame)

	var excReturn uint32
	if cpu.IsHandlerMode() {
		excReturn = 0xFFFFFFF1
	} else if cpu.spsel() {
		excReturn = 0xFFFFFFFD
	} else {
		excReturn = 0xFFFFFFF9
	}
	cpu.lr = excReturn

	cpu.exceptionTaken(n)
}

// exceptionTaken reads the vector table, branches to the handler, and
// updates mode/IPSR/EPSR per spec.md §4.6.
func (cpu *CPU) exceptionTaken(n int) {
	vtor := cpu.special[Vtor]
	target := cpu.Read32(vtor + uint32(n)*4)

	cpu.setRawPC(target &^ 1)
	cpu.setThumb(target&1 != 0)
	cpu.setHandlerMode(true)
	cpu.special[Ipsr] = uint32(n)
	cpu.ClearITState()

	cpu.ClearExceptionPending(n)
	cpu.SetExceptionActive(n)

	logger.Logf("exceptions", "taken exception %d, vector %#08x", n, target)
}

// ExceptionReturn validates an EXC_RETURN value popped into PC by a
// BXWritePC, pops the stacked frame, and restores the prior context.
func (cpu *CPU) ExceptionReturn(excReturn uint32) error {
	if excReturn>>4 != 0x0FFFFFFF {
		cpu.raiseUsageFault(cfsrInvPC)
		return ErrUsageFault
	}

	var toHandler, toProcess bool
	switch excReturn & 0xF {
	case 0b0001:
		toHandler, toProcess = true, false
	case 0b1001:
		toHandler, toProcess = false, false
	case 0b1101:
		toHandler, toProcess = false, true
	default:
		cpu.raiseUsageFault(cfsrInvPC)
		return ErrUsageFault
	}

	returning := int(cpu.special[Ipsr])
	cpu.ClearExceptionActive(returning)

	cpu.setHandlerMode(toHandler)
	if !toHandler {
		if toProcess {
			cpu.special[SysCtrl] |= sysCtrlSPSEL
		} else {
			cpu.special[SysCtrl] &^= sysCtrlSPSEL
		}
	}

	// The frame is popped from the stack EXC_RETURN selects, which is the
	// one it was pushed to on entry, so SP is read only after the mode/SPSEL
	// switch above (reading it before would always give Main).
	frame := cpu.ReadSP()

	// As with ExceptionEntry's push, every word is popped even if an
	// earlier one faulted, so SP ends up at the architecturally correct
	// post-frame address regardless.
	r0, _ := cpu.stackRead32(frame + 0)
	r1, _ := cpu.stackRead32(frame + 4)
	r2, _ := cpu.stackRead32(frame + 8)
	r3, _ := cpu.stackRead32(frame + 12)
	r12, _ := cpu.stackRead32(frame + 16)
	lr, _ := cpu.stackRead32(frame + 20)
	retAddr, _ := cpu.stackRead32(frame + 24)
	xpsr, _ := cpu.stackRead32(frame + 28)

	cpu.SetGReg(0, r0)
	cpu.SetGReg(1, r1)
	cpu.SetGReg(2, r2)
	cpu.SetGReg(3, r3)
	cpu.SetGReg(12, r12)
	cpu.lr = lr
	cpu.setRawPC(retAddr &^ 1)

	newSP := frame + 0x20
	if xpsr&(1<<9) != 0 {
		newSP += 4
	}

	cpu.WriteXPSR(xpsr)
	cpu.WriteSP(newSP)

	if toHandler && cpu.special[Ipsr] == 0 {
		cpu.raiseUsageFault(cfsrInvState)
		return ErrUsageFault
	}
	if !toHandler && cpu.special[Ipsr] != 0 {
		cpu.raiseUsageFault(cfsrInvState)
		return ErrUsageFault
	}

	logger.Logf("exceptions", "return via %#08x to pc=%#08x", excReturn, cpu.ReadPC())
	return nil
}

// IsEXCReturn reports whether a value written to PC is an EXC_RETURN
// encoding (top 4 bits all set, per spec.md §4.5's BXWritePC rule).
func IsEXCReturn(v uint32) bool {
	return v>>28 == 0xF
}
