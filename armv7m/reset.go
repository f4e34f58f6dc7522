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

import "github.com/jetsetilly/armv7m/logger"

// Reset performs the architectural take-reset sequence (spec.md §4.6): the
// exception table, SCB and SysTick return to their power-on defaults,
// CONTROL is cleared (Thread mode, Main stack, privileged), the Main stack
// pointer loads from [VTOR], and PC loads from [VTOR+4] with its low bit
// (the Thumb indicator every reset vector is required to set) determining
// EPSR.T.
//
// Flash/RAM spans must already be configured (ConfigureFlash/RAM1/RAM2, or
// Load) since the vector table read goes through the bus.
func (cpu *CPU) Reset() {
	cpu.regs = [13]uint32{}
	cpu.lr = 0
	cpu.pendingCount = 0
	for i := range cpu.special {
		cpu.special[i] = 0
	}
	for i := range cpu.nvicEnable {
		cpu.nvicEnable[i] = false
	}

	cpu.resetExceptionTable()
	cpu.resetSCB()

	cpu.special[SysCtrl] = 0 // Thread mode, Main stack, privileged, ARM-irrelevant T-bit cleared for now

	sp := cpu.Read32(0)
	entry := cpu.Read32(4)

	cpu.special[SpMain] = sp &^ 0x3
	cpu.special[SpProcess] = 0

	cpu.setThumb(entry&1 != 0)
	cpu.setRawPC(entry &^ 1)

	logger.Logf("reset", "sp=%#08x pc=%#08x", cpu.special[SpMain], cpu.rawPC())
}

// SetEntryPoint overrides the program counter after Reset, used by the
// loader's set_entry_point option to start execution somewhere other than
// the vector table's reset handler (eg. a unit-test harness entered
// directly at a function under test).
func (cpu *CPU) SetEntryPoint(addr uint32) {
	cpu.setThumb(addr&1 != 0)
	cpu.setRawPC(addr &^ 1)
}
