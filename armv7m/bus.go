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
	"encoding/binary"

	"github.com/jetsetilly/armv7m/logger"
)

// PeripheralBase and PeripheralSize fix the memory-mapped peripheral
// window per spec.md §6 ("Memory map defaults").
const (
	PeripheralBase = 0xE0000000
	PeripheralSize = 0x10000 // 0xE0000000..0xE000FFFF inclusive

	SysTickOffsetLo = 0x010
	SysTickOffsetHi = 0x0FF
	SCBOffsetLo     = 0xD00
	SCBOffsetHi     = 0xDFF
)

// Span is one of the (at most three) flat memory regions the bus routes
// loads and stores to: flash (read-only), ram1 (mandatory) or ram2
// (optional).
type Span struct {
	Base     uint32
	Data     []byte
	ReadOnly bool
}

func (s *Span) contains(addr uint32) bool {
	if s == nil {
		return false
	}
	return addr >= s.Base && uint64(addr) < uint64(s.Base)+uint64(len(s.Data))
}

// Bus owns the flat memory spans. Peripheral register state lives on the
// CPU itself (it is, after all, just more persistent special-register
// storage with read-modify-write side effects) — see systick.go/scb.go.
// Keeping Bus limited to span ownership avoids the cyclic bus<->exceptions
// dependency spec.md §9 calls out: the bus never calls back into the
// exception module itself, it returns a fault classification and lets the
// CPU-level read/write wrappers below do the pending.
type Bus struct {
	flash *Span
	ram1  *Span
	ram2  *Span
}

func newBus() *Bus {
	return &Bus{}
}

// ConfigureFlash installs the (mandatory, read-only) flash span at the
// given virtual base address.
func (cpu *CPU) ConfigureFlash(data []byte, base uint32) {
	cpu.bus.flash = &Span{Base: base, Data: data, ReadOnly: true}
}

// ConfigureRAM1 installs the mandatory read-write ram1 span.
func (cpu *CPU) ConfigureRAM1(data []byte, base uint32) {
	cpu.bus.ram1 = &Span{Base: base, Data: data}
}

// ConfigureRAM2 installs the optional second read-write span.
func (cpu *CPU) ConfigureRAM2(data []byte, base uint32) {
	cpu.bus.ram2 = &Span{Base: base, Data: data}
}

// span returns the first configured span containing addr, in flash/ram1/
// ram2 priority order (spans are required to be non-overlapping, so order
// only matters for which one answers an address none of them own, which
// cannot happen).
func (cpu *CPU) span(addr uint32) *Span {
	if cpu.bus.flash.contains(addr) {
		return cpu.bus.flash
	}
	if cpu.bus.ram1.contains(addr) {
		return cpu.bus.ram1
	}
	if cpu.bus.ram2.contains(addr) {
		return cpu.bus.ram2
	}
	return nil
}

func inPeripheralWindow(addr uint32) bool {
	return addr >= PeripheralBase && uint64(addr) < uint64(PeripheralBase)+PeripheralSize
}

// FaultKind selects which CFSR bit a bus fault sets and whether BFAR is
// recorded, per spec.md §4.2's table.
type FaultKind int

const (
	FaultStkerr FaultKind = iota
	FaultUnstkerr
	FaultImprecise
	FaultPrecise
	FaultIBusErr
)

// BusFault sub-register bits (CFSR[15:8], the BFSR).
const (
	cfsrIBusErr     uint32 = 1 << (8 + 0)
	cfsrPrecErr     uint32 = 1 << (8 + 1)
	cfsrImprecErr   uint32 = 1 << (8 + 2)
	cfsrUnstkErr    uint32 = 1 << (8 + 3)
	cfsrStkErr      uint32 = 1 << (8 + 4)
	cfsrBFARValid   uint32 = 1 << (8 + 7)
)

// UsageFault sub-register bits (CFSR[31:16], the UFSR).
const (
	cfsrUndefInstr uint32 = 1 << (16 + 0)
	cfsrInvState   uint32 = 1 << (16 + 1)
	cfsrInvPC      uint32 = 1 << (16 + 2)
	cfsrNoCP       uint32 = 1 << (16 + 3)
	cfsrUnaligned  uint32 = 1 << (16 + 8)
	cfsrDivByZero  uint32 = 1 << (16 + 9)
)

func (cpu *CPU) raiseBusFault(kind FaultKind, addr uint32) {
	cfsr := cpu.special[Cfsr]
	bfarValid := false

	switch kind {
	case FaultStkerr:
		cfsr |= cfsrStkErr
		bfarValid = true
	case FaultUnstkerr:
		cfsr |= cfsrUnstkErr
	case FaultImprecise:
		cfsr |= cfsrImprecErr
	case FaultPrecise:
		cfsr |= cfsrPrecErr
		bfarValid = true
	case FaultIBusErr:
		cfsr |= cfsrIBusErr
		bfarValid = true
	}

	if bfarValid {
		cfsr |= cfsrBFARValid
		cpu.special[Bfar] = addr
	}
	cpu.special[Cfsr] = cfsr

	logger.Logf("bus", "bus fault kind=%d addr=%#08x", kind, addr)
	cpu.SetExceptionPending(ExceptionBusFault)
}

func (cpu *CPU) raiseUsageFault(bit uint32) {
	cpu.special[Cfsr] |= bit
	logger.Logf("bus", "usage fault bit=%#08x", bit)
	cpu.SetExceptionPending(ExceptionUsageFault)
}

// Read8/16/32 read from flash/ram/peripheral space. An address outside
// every span is a precise data-bus fault: CFSR.PRECISERR is set, BFAR
// records the address, BusFault is pended, and the read returns zero so
// the caller can proceed toward the next check point (spec.md §4.2/§7.2).
func (cpu *CPU) Read8(addr uint32) uint8 {
	if inPeripheralWindow(addr) {
		return uint8(cpu.peripheralRead(addr, 1))
	}
	if s := cpu.span(addr); s != nil {
		return s.Data[addr-s.Base]
	}
	cpu.raiseBusFault(FaultPrecise, addr)
	return 0
}

func (cpu *CPU) Read16(addr uint32) uint16 {
	if inPeripheralWindow(addr) {
		return uint16(cpu.peripheralRead(addr, 2))
	}
	if s := cpu.span(addr); s != nil {
		off := addr - s.Base
		if int(off)+2 > len(s.Data) {
			cpu.raiseBusFault(FaultPrecise, addr)
			return 0
		}
		return binary.LittleEndian.Uint16(s.Data[off:])
	}
	cpu.raiseBusFault(FaultPrecise, addr)
	return 0
}

func (cpu *CPU) Read32(addr uint32) uint32 {
	if cpu.checkUnaligned(addr, 4) {
		return 0
	}
	if inPeripheralWindow(addr) {
		return cpu.peripheralRead(addr, 4)
	}
	if s := cpu.span(addr); s != nil {
		off := addr - s.Base
		if int(off)+4 > len(s.Data) {
			cpu.raiseBusFault(FaultPrecise, addr)
			return 0
		}
		return binary.LittleEndian.Uint32(s.Data[off:])
	}
	cpu.raiseBusFault(FaultPrecise, addr)
	return 0
}

// Write8/16/32 write to ram/peripheral space. Writes to flash fault with
// MemWriteNotAllowed semantics (a precise bus fault, the flash span is
// never writable); writes outside every span also fault precisely.
func (cpu *CPU) Write8(addr uint32, v uint8) {
	if inPeripheralWindow(addr) {
		cpu.peripheralWrite(addr, uint32(v), 1)
		return
	}
	if s := cpu.span(addr); s != nil {
		if s.ReadOnly {
			cpu.raiseBusFault(FaultPrecise, addr)
			return
		}
		s.Data[addr-s.Base] = v
		return
	}
	cpu.raiseBusFault(FaultPrecise, addr)
}

func (cpu *CPU) Write16(addr uint32, v uint16) {
	if inPeripheralWindow(addr) {
		cpu.peripheralWrite(addr, uint32(v), 2)
		return
	}
	if s := cpu.span(addr); s != nil {
		if s.ReadOnly {
			cpu.raiseBusFault(FaultPrecise, addr)
			return
		}
		off := addr - s.Base
		if int(off)+2 > len(s.Data) {
			cpu.raiseBusFault(FaultPrecise, addr)
			return
		}
		binary.LittleEndian.PutUint16(s.Data[off:], v)
		return
	}
	cpu.raiseBusFault(FaultPrecise, addr)
}

func (cpu *CPU) Write32(addr uint32, v uint32) {
	if cpu.checkUnaligned(addr, 4) {
		return
	}
	if inPeripheralWindow(addr) {
		cpu.peripheralWrite(addr, v, 4)
		return
	}
	if s := cpu.span(addr); s != nil {
		if s.ReadOnly {
			cpu.raiseBusFault(FaultPrecise, addr)
			return
		}
		off := addr - s.Base
		if int(off)+4 > len(s.Data) {
			cpu.raiseBusFault(FaultPrecise, addr)
			return
		}
		binary.LittleEndian.PutUint32(s.Data[off:], v)
		return
	}
	cpu.raiseBusFault(FaultPrecise, addr)
}

// checkUnaligned traps when CCR.UNALIGN_TRP is set and the access is not
// naturally aligned. Every encoding that can legitimately address memory at
// any byte offset (byte and halfword loads/stores) goes through Read8/Write8
// or Read16/Write16 rather than through this check at all; only the
// word-sized accesses that are genuinely required to be aligned call here.
func (cpu *CPU) checkUnaligned(addr uint32, size uint32) bool {
	if addr%size == 0 {
		return false
	}
	const ccrUnalignTrp = 1 << 3
	if cpu.special[Ccr]&ccrUnalignTrp == 0 {
		return false
	}
	cpu.raiseUsageFault(cfsrUnaligned)
	return true
}

// stackWrite32 writes one word of an exception entry's stacked frame. It
// mirrors Write32 except that a failed access raises FaultStkerr rather than
// the generic FaultPrecise, so CFSR.STKERR (not PRECISERR) records the
// cause, per spec.md §4.2's table. Reports whether the write succeeded.
func (cpu *CPU) stackWrite32(addr uint32, v uint32) bool {
	if inPeripheralWindow(addr) {
		cpu.peripheralWrite(addr, v, 4)
		return true
	}
	if s := cpu.span(addr); s != nil {
		if s.ReadOnly {
			cpu.raiseStackFault(FaultStkerr, addr)
			return false
		}
		off := addr - s.Base
		if int(off)+4 > len(s.Data) {
			cpu.raiseStackFault(FaultStkerr, addr)
			return false
		}
		binary.LittleEndian.PutUint32(s.Data[off:], v)
		return true
	}
	cpu.raiseStackFault(FaultStkerr, addr)
	return false
}

// stackRead32 reads one word of an exception return's stacked frame,
// raising FaultUnstkerr (CFSR.UNSTKERR) rather than FaultPrecise on a
// failed access. Reports whether the read succeeded.
func (cpu *CPU) stackRead32(addr uint32) (uint32, bool) {
	if inPeripheralWindow(addr) {
		return cpu.peripheralRead(addr, 4), true
	}
	if s := cpu.span(addr); s != nil {
		off := addr - s.Base
		if int(off)+4 > len(s.Data) {
			cpu.raiseStackFault(FaultUnstkerr, addr)
			return 0, false
		}
		return binary.LittleEndian.Uint32(s.Data[off:]), true
	}
	cpu.raiseStackFault(FaultUnstkerr, addr)
	return 0, false
}

// raiseStackFault raises a bus fault for a failed stacking/unstacking access
// and escalates to HardFault when BusFault cannot itself be taken — it is
// already active (the fault happened while already unwinding a bus fault)
// or its configured priority cannot preempt the priority the core is
// currently running at. This is the HardFault-escalation rule of spec.md
// §4.6.
func (cpu *CPU) raiseStackFault(kind FaultKind, addr uint32) {
	cpu.raiseBusFault(kind, addr)
	if cpu.exceptions[ExceptionBusFault].active || cpu.ExceptionPriority(ExceptionBusFault) >= cpu.currentExecutionPriority() {
		cpu.escalateToHardFault()
	}
}

// FetchHalfword reads one 16-bit halfword for the fetcher. Fetch faults are
// instruction-bus faults (FaultIBusErr), distinct from data faults.
func (cpu *CPU) FetchHalfword(addr uint32) (uint16, bool) {
	if inPeripheralWindow(addr) {
		cpu.raiseBusFault(FaultIBusErr, addr)
		return 0, false
	}
	if s := cpu.span(addr); s != nil {
		off := addr - s.Base
		if int(off)+2 > len(s.Data) {
			cpu.raiseBusFault(FaultIBusErr, addr)
			return 0, false
		}
		return binary.LittleEndian.Uint16(s.Data[off:]), true
	}
	cpu.raiseBusFault(FaultIBusErr, addr)
	return 0, false
}
