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

import "errors"

// Sentinel errors forming the status-code taxonomy external callers see.
// These are checked with errors.Is; call sites wrap them with call-site
// context using the armv7m/errors package's curated Wrapf so the wrapped
// message still satisfies errors.Is against the sentinel.
var (
	ErrBufferTooSmall        = errors.New("buffer too small")
	ErrOpenFileFailed        = errors.New("open file failed")
	ErrElfNotValid           = errors.New("elf not valid")
	ErrElfWrongHeader        = errors.New("elf wrong header")
	ErrMemInaccessible       = errors.New("memory inaccessible")
	ErrMemWriteNotAllowed    = errors.New("memory write not allowed")
	ErrDecoderUnknownOpCode  = errors.New("decoder: unknown opcode")
	ErrDecoderUnpredictable  = errors.New("decoder: unpredictable")
	ErrDecoderUndefined      = errors.New("decoder: undefined")
	ErrExecutorUnpredictable = errors.New("executor: unpredictable")
	ErrExecutorUndefined     = errors.New("executor: undefined")
	ErrExecutorExitWithError = errors.New("executor: exit with error")
	ErrUsageFault            = errors.New("usage fault")
	ErrMaxInstructionsReached = errors.New("max instructions reached")
	ErrUnsupported           = errors.New("unsupported")
	ErrNotImplemented        = errors.New("not implemented")
	ErrUnexpected            = errors.New("unexpected")
	ErrOutOfRange            = errors.New("out of range")
	ErrIteratorExhausted     = errors.New("iterator exhausted")
	ErrEmulatorLockup        = errors.New("emulator lockup")
)

// ExecResult is returned by Exec. Err is nil when the guest exits cleanly;
// budget exhaustion is reported through Err (see below). ExitCode is only
// meaningful when Err is nil and Exited is true.
type ExecResult struct {
	// Exited is true if the guest requested termination via semihosting
	// SYS_EXIT or the SVC 0x01 convenience call.
	Exited bool

	// ExitCode is the guest-supplied exit status, valid when Exited is true.
	ExitCode uint32

	// Instructions is the number of instructions retired during this call.
	Instructions uint64

	// Err is non-nil for any fatal condition: a decoder/executor
	// unpredictable or undefined encoding, or an exhausted instruction
	// budget (in which case Err wraps ErrMaxInstructionsReached and the
	// call is resumable with another Exec).
	Err error
}
