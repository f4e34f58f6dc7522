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

func TestCPUIDFixed(t *testing.T) {
	cpu := newBareTestCPU()
	test.Equate(t, cpu.readSCB(scbCPUID), fixedCPUID)
	cpu.writeSCB(scbCPUID, 0) // CPUID has no corresponding write path; must stay fixed
	test.Equate(t, cpu.readSCB(scbCPUID), fixedCPUID)
}

func TestCCRResetDefault(t *testing.T) {
	cpu := newBareTestCPU()
	test.Equate(t, cpu.special[Ccr]&ccrSTKALIGNBit != 0, true)
}

func TestAIRCRVectkeyGate(t *testing.T) {
	cpu := newBareTestCPU()
	cpu.writeSCB(scbAIRCR, 0x12345678) // wrong key, must be ignored
	test.Equate(t, cpu.special[Aircr], uint32(0))

	cpu.writeSCB(scbAIRCR, 0xFA050000|aircrSYSRESETREQ)
	test.Equate(t, cpu.special[Aircr], uint32(0)) // key bits and known control bits masked back out
}

func TestCFSRWriteOneToClear(t *testing.T) {
	cpu := newBareTestCPU()
	cpu.special[Cfsr] = cfsrPrecErr | cfsrUnaligned

	cpu.writeSCB(scbCFSR, cfsrPrecErr)
	test.Equate(t, cpu.special[Cfsr], cfsrUnaligned)

	cpu.writeSCB(scbCFSR, cfsrUnaligned)
	test.Equate(t, cpu.special[Cfsr], uint32(0))
}

func TestSHPRPackUnpackRoundTrip(t *testing.T) {
	cpu := newBareTestCPU()

	cpu.SetExceptionPriority(ExceptionMemManage, 0x10)
	cpu.SetExceptionPriority(ExceptionBusFault, 0x20)
	cpu.SetExceptionPriority(ExceptionUsageFault, 0x30)

	v := cpu.readSCB(scbSHPR1)
	test.Equate(t, v, uint32(0x00302010))

	cpu.writeSCB(scbSHPR1, 0x00504030)
	test.Equate(t, cpu.ExceptionPriority(ExceptionMemManage), 0x30)
	test.Equate(t, cpu.ExceptionPriority(ExceptionBusFault), 0x40)
	test.Equate(t, cpu.ExceptionPriority(ExceptionUsageFault), 0x50)
}

func TestNVICEnablePendingWindows(t *testing.T) {
	cpu := newBareTestCPU()

	cpu.writeNVIC(nvicISER, 1<<3|1<<9)
	test.Equate(t, cpu.nvicEnable[3], true)
	test.Equate(t, cpu.nvicEnable[9], true)
	test.Equate(t, cpu.readNVIC(nvicISER), uint32(1<<3|1<<9))

	cpu.writeNVIC(nvicICER, 1<<3)
	test.Equate(t, cpu.nvicEnable[3], false)
	test.Equate(t, cpu.nvicEnable[9], true)

	cpu.writeNVIC(nvicISPR, 1<<5)
	test.Equate(t, cpu.IsExceptionPending(ExternalIRQBase+5), true)
	test.Equate(t, cpu.readNVIC(nvicISPR), uint32(1<<5))

	cpu.writeNVIC(nvicICPR, 1<<5)
	test.Equate(t, cpu.IsExceptionPending(ExternalIRQBase+5), false)

	cpu.writeNVIC(nvicIPR+2, 0x80)
	test.Equate(t, cpu.ExceptionPriority(ExternalIRQBase+2), 0x80)
	test.Equate(t, cpu.readNVIC(nvicIPR+2), uint32(0x80))
}

func TestPeripheralDispatchRouting(t *testing.T) {
	cpu := newBareTestCPU()

	cpu.Write32(PeripheralBase+sysTickRVR, 7)
	test.Equate(t, cpu.Read32(PeripheralBase+sysTickRVR), uint32(7))

	cpu.Write32(PeripheralBase+scbSHPR2, 0x01000000)
	test.Equate(t, cpu.ExceptionPriority(ExceptionSVCall), 1) // SHPR2 byte 3 is exception 11

	cpu.Write32(PeripheralBase+nvicISER, 1)
	test.Equate(t, cpu.nvicEnable[0], true)
}
