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
	"fmt"

	"github.com/jetsetilly/armv7m/errors"
	"github.com/jetsetilly/armv7m/logger"
)

// Callback is the observer hook Exec invokes around every retired
// instruction, for tracing/disassembly/debugger front ends. pc is the
// address the instruction was fetched from and i is its decoded form.
type Callback func(pc uint32, i Instruction)

// Exec runs the fetch/decode/execute loop until maxInstructions have
// retired, the guest requests termination via semihosting, or a fatal
// decode/execute error occurs. It is resumable: calling Exec again
// continues from wherever the core stopped.
//
// The three check points of spec.md §4.7 are each represented here: a
// pre-fetch exception check, a post-fetch check (covering faults raised by
// the fetch itself), and a post-execute check (covering faults raised
// during execution). A fault that occurs while stacking or unstacking an
// exception frame escalates to HardFault, or locks up the core if
// HardFault was already active when it happened (see
// escalateToHardFault); a locked core is reported via ErrEmulatorLockup
// rather than stepped further.
func (cpu *CPU) Exec(maxInstructions uint64, pre, post Callback) ExecResult {
	if !cpu.main.Check() {
		panic("armv7m: Exec called from more than one goroutine")
	}
	logger.Logf("step", "exec starting at pc=%#08x, budget=%d", cpu.ReadPC(), maxInstructions)

	var result ExecResult

	for result.Instructions < maxInstructions {
		if cpu.locked {
			result.Err = errors.Wrapf(ErrEmulatorLockup, errors.EmulatorLockup)
			return result
		}

		pcBefore := cpu.rawPC()

		if cpu.CheckExceptions(checkpointPreFetch, pcBefore) {
			continue
		}

		if !cpu.Thumb() {
			cpu.raiseUsageFault(cfsrInvState)
			if cpu.CheckExceptions(checkpointPostFetch, pcBefore) {
				continue
			}
			result.Err = errors.Wrapf(ErrUsageFault, errors.StepFault, pcBefore, ErrUsageFault)
			return result
		}

		inst, err := cpu.Decode(pcBefore)
		if err != nil {
			if cpu.CheckExceptions(checkpointPostFetch, pcBefore) {
				continue
			}
			result.Err = errors.Wrapf(err, errors.StepFault, pcBefore, err)
			return result
		}

		if pre != nil {
			pre(pcBefore, inst)
		}

		if !cpu.conditionAllows(inst) {
			cpu.advance(pcBefore, inst)
			cpu.ITAdvance()
			cpu.Tick()
			result.Instructions++
			continue
		}

		wrotePC, err := cpu.Execute(inst)
		if err != nil {
			if exit, isExit := err.(*semihostExit); isExit {
				result.Exited = true
				result.ExitCode = exit.code
				result.Instructions++
				return result
			}

			if cpu.CheckExceptions(checkpointPostExecute, pcBefore+inst.Size()) {
				cpu.ITAdvance()
				result.Instructions++
				continue
			}

			result.Err = errors.Wrapf(err, errors.StepFault, pcBefore, err)
			return result
		}

		if !wrotePC {
			cpu.advance(pcBefore, inst)
		}

		if inst.Op != OpIT {
			cpu.ITAdvance()
		}

		if post != nil {
			post(pcBefore, inst)
		}

		if cpu.Options.Trace != nil {
			cpu.Options.Trace(pcBefore, traceSummary(inst))
		}

		cpu.CheckExceptions(checkpointPostExecute, cpu.rawPC())

		cpu.Tick()
		cpu.instructionCount++
		result.Instructions++
	}

	result.Err = errors.Wrapf(ErrMaxInstructionsReached, errors.MaxInstructionsReached, maxInstructions)
	return result
}

// conditionAllows applies IT-block / conditional-branch predication: the
// cached IT condition for instructions inside a block, or the instruction's
// own embedded condition for Bcond.
func (cpu *CPU) conditionAllows(i Instruction) bool {
	if i.Op == OpBcond {
		return cpu.ConditionPassed(i.Cond)
	}
	if cpu.InITBlock() {
		return cpu.ConditionPassed(cpu.CurrentCond())
	}
	return true
}

// advance steps the raw PC by the instruction's size, for any instruction
// that didn't itself write PC.
func (cpu *CPU) advance(pcBefore uint32, i Instruction) {
	cpu.setRawPC(pcBefore + i.Size())
}

func traceSummary(i Instruction) string {
	return fmt.Sprintf("op=%d rd=%d rn=%d rm=%d imm=%#x", i.Op, i.Rd, i.Rn, i.Rm, i.Imm)
}
