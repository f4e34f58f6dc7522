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

package errors

// error messages
const (
	// host I/O / configuration (bucket 1, see ExecResult status taxonomy)
	ElfOpenFailed  = "elf load error: cannot open file (%v)"
	ElfNotValid    = "elf load error: not a valid elf image (%v)"
	ElfWrongHeader = "elf load error: unexpected header (class=%v machine=%v)"
	SegmentTooBig  = "elf load error: segment does not fit its span (%v)"
	SpanOverlap    = "memory map error: spans overlap (%v)"
	SpanMissing    = "memory map error: %v span is not configured"

	// decoder
	DecoderUnknownOpCode = "decode error: unknown opcode (%#04x)"
	DecoderUnpredictable = "decode error: unpredictable encoding (%v)"
	DecoderUndefined     = "decode error: undefined encoding (%v)"

	// executor
	ExecutorUnpredictable = "execute error: unpredictable operation (%v)"
	ExecutorUndefined     = "execute error: undefined operation (%v)"
	ExecutorExitWithError = "execute error: exit requested with error (%v)"

	// bus and memory
	MemoryInaccessible    = "bus error: address not mapped (%#08x)"
	MemoryWriteNotAllowed = "bus error: write to read-only span (%#08x)"

	// exceptions
	UsageFault     = "usage fault: %v"
	ExceptionLost  = "exception error: priority escalated to hardfault (%v)"
	EmulatorLockup = "exception error: lockup, nested fault during fault handling"

	// step loop
	MaxInstructionsReached = "step loop: instruction budget reached (%d)"
	StepFault              = "step loop: fault at pc=%#08x (%v)"

	// generic
	Unsupported    = "unsupported: %v"
	NotImplemented = "not implemented: %v"
	Unexpected     = "unexpected error: %v"
)
