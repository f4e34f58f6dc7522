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
	"os"

	"github.com/jetsetilly/armv7m/logger"
	"github.com/pkg/term"
)

// Semihosting operation numbers, the ARM-defined subset this emulator
// supports (spec.md §6's semihosting surface, supplemented with
// SYS_READC per SPEC_FULL.md §10).
const (
	semihostWRITE0 = 0x04
	semihostWRITEC = 0x03
	semihostREADC  = 0x07
	semihostEXIT   = 0x18
)

// semihostExit is a sentinel returned as Execute's error to signal clean
// termination back up through Exec without it looking like a fault; step.go
// special-cases it rather than returning it to the caller.
type semihostExit struct {
	code uint32
}

func (e *semihostExit) Error() string { return fmt.Sprintf("semihosting exit %d", e.code) }

// semihost implements the BKPT 0xAB convention: R0 selects the operation,
// R1 carries its argument (or, for SYS_EXIT, the block address holding the
// reason/subcode pair that this emulator just reads as the exit code
// directly per the Angel "legacy" SYS_EXIT calling convention).
func (cpu *CPU) semihost(i Instruction) error {
	if i.Imm != 0xAB {
		return nil // an ordinary breakpoint; host debugging hook, nothing to do here
	}

	op := cpu.GReg(0)
	arg := cpu.GReg(1)

	switch op {
	case semihostWRITE0:
		var s []byte
		for addr := arg; ; addr++ {
			b := cpu.Read8(addr)
			if b == 0 {
				break
			}
			s = append(s, b)
		}
		fmt.Fprint(os.Stdout, string(s))
		return nil

	case semihostWRITEC:
		b := cpu.Read8(arg)
		fmt.Fprint(os.Stdout, string(rune(b)))
		return nil

	case semihostREADC:
		cpu.SetGReg(0, cpu.readConsoleByte())
		return nil

	case semihostEXIT:
		return &semihostExit{code: arg}

	default:
		logger.Logf("semihosting", "unsupported operation %#x", op)
		return nil
	}
}

// readConsoleByte implements SYS_READC: one raw byte from the host
// terminal when Options.Interactive is set, else EOF (-1), matching what a
// batch/CI invocation with no attached console should see.
func (cpu *CPU) readConsoleByte() uint32 {
	if !cpu.Options.Interactive {
		return 0xFFFFFFFF
	}

	t, err := term.Open("/dev/tty", term.RawMode)
	if err != nil {
		logger.Logf("semihosting", "readc: %v", err)
		return 0xFFFFFFFF
	}
	defer t.Close()

	buf := make([]byte, 1)
	n, err := t.Read(buf)
	if err != nil || n == 0 {
		return 0xFFFFFFFF
	}
	return uint32(buf[0])
}

// svc implements the convenience SVC 0x01 exit call this emulator's test
// images use in place of the full semihosting BKPT sequence: R0 is the
// exit code, execution halts exactly as with SYS_EXIT.
func (cpu *CPU) svc(i Instruction) error {
	if i.Imm == 0x01 {
		return &semihostExit{code: cpu.GReg(0)}
	}
	cpu.SetExceptionPending(ExceptionSVCall)
	return nil
}
