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

// TestSysTickExpiryPendsException reproduces RVR=3, CSR=0x7 (ENABLE |
// TICKINT | CLKSOURCE): the counter reloads as soon as it is counted down to
// 1, so the third tick is the one that expires, reloads from RVR, raises
// COUNTFLAG, and pends the SysTick exception.
func TestSysTickExpiryPendsException(t *testing.T) {
	cpu := newBareTestCPU()

	cpu.writeSysTick(sysTickRVR, 3)
	cpu.writeSysTick(sysTickCSR, 0x7)
	test.Equate(t, cpu.special[SysTickCvr], uint32(3)) // 0->1 ENABLE transition reloads CVR

	cpu.Tick() // 3 -> 2
	cpu.Tick() // 2 -> 1
	test.Equate(t, cpu.IsExceptionPending(ExceptionSysTick), false)

	cpu.Tick() // cvr was 1: expiry, reload, COUNTFLAG, pend
	test.Equate(t, cpu.special[SysTickCvr], uint32(3))
	test.Equate(t, cpu.IsExceptionPending(ExceptionSysTick), true)

	csr := cpu.readSysTick(sysTickCSR)
	test.Equate(t, csr&sysTickCountFlag != 0, true)
	// reading CSR clears COUNTFLAG
	test.Equate(t, cpu.special[SysTickCsr]&sysTickCountFlag, uint32(0))
}

func TestSysTickDisabledDoesNotTick(t *testing.T) {
	cpu := newBareTestCPU()
	cpu.writeSysTick(sysTickRVR, 5)
	// CSR left at zero: disabled
	cpu.Tick()
	cpu.Tick()
	test.Equate(t, cpu.special[SysTickCvr], uint32(0))
	test.Equate(t, cpu.IsExceptionPending(ExceptionSysTick), false)
}

func TestSysTickCVRWriteAlwaysZeroes(t *testing.T) {
	cpu := newBareTestCPU()
	cpu.writeSysTick(sysTickRVR, 100)
	cpu.writeSysTick(sysTickCSR, sysTickEnable)
	cpu.Tick()
	test.Equate(t, cpu.special[SysTickCvr], uint32(99))

	cpu.writeSysTick(sysTickCVR, 0xFFFFFFFF) // value written is irrelevant
	test.Equate(t, cpu.special[SysTickCvr], uint32(0))
}

func TestSysTickCalibReadOnly(t *testing.T) {
	cpu := newBareTestCPU()
	cpu.writeSysTick(sysTickCALIB, 0x12345678)
	test.Equate(t, cpu.readSysTick(sysTickCALIB), uint32(0))
}
