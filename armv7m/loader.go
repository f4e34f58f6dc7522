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
	"debug/elf"

	"github.com/jetsetilly/armv7m/errors"
	"github.com/jetsetilly/armv7m/logger"
)

// LoadOptions configures span placement for Load; it decides only where
// program-header flags route each segment, not what the segments contain
// (that always comes from the ELF image itself).
type LoadOptions struct {
	RAM1Base uint32
	RAM1Size uint32
	RAM2Base uint32
	RAM2Size uint32
}

// Load reads an ELF image's loadable program headers and installs them as
// flash/ram1/ram2 spans, classifying each segment by its access flags:
// executable+readable+not-writable becomes flash, everything else
// read-write becomes ram1 (falling back to ram2 once ram1 is already
// claimed by an earlier segment). SHT_NOBITS-equivalent (zero-filled, eg.
// .bss) regions are handled by allocating each segment's buffer at Memsz
// and reading only its Filesz bytes into it, leaving the rest zero.
//
// setEntryPoint, when true, overrides PC (post-Reset) with the ELF header's
// e_entry field rather than leaving it at the vector table's reset handler
// — useful for test images with no real vector table.
func (cpu *CPU) Load(path string, opts LoadOptions, setEntryPoint bool) error {
	f, err := elf.Open(path)
	if err != nil {
		return errors.Wrapf(ErrOpenFileFailed, errors.ElfOpenFailed, err)
	}
	defer f.Close()

	if f.Class != elf.ELFCLASS32 || f.Machine != elf.EM_ARM {
		return errors.Wrapf(ErrElfWrongHeader, errors.ElfWrongHeader, f.Class, f.Machine)
	}

	var flashData, ram1Data, ram2Data []byte
	var flashBase, ram1Base, ram2Base uint32
	ram1Base = opts.RAM1Base
	ram2Base = opts.RAM2Base
	ram1Used := false

	for _, prog := range f.Progs {
		if prog.Type != elf.PT_LOAD {
			continue
		}

		executable := prog.Flags&elf.PF_X != 0
		readable := prog.Flags&elf.PF_R != 0
		writable := prog.Flags&elf.PF_W != 0

		buf := make([]byte, prog.Memsz)
		n, err := prog.ReadAt(buf[:prog.Filesz], 0)
		if err != nil && uint64(n) != prog.Filesz {
			return errors.Wrapf(ErrElfNotValid, errors.ElfNotValid, err)
		}

		switch {
		case executable && readable && !writable:
			flashBase = uint32(prog.Vaddr)
			flashData = buf
		case readable && writable && !ram1Used:
			if uint32(len(buf)) > opts.RAM1Size && opts.RAM1Size != 0 {
				return errors.Wrapf(ErrBufferTooSmall, errors.SegmentTooBig, "ram1")
			}
			ram1Data = place(buf, opts.RAM1Size)
			ram1Used = true
		case readable && writable:
			if uint32(len(buf)) > opts.RAM2Size && opts.RAM2Size != 0 {
				return errors.Wrapf(ErrBufferTooSmall, errors.SegmentTooBig, "ram2")
			}
			ram2Data = place(buf, opts.RAM2Size)
		default:
			logger.Logf("loader", "skipping segment with flags %v", prog.Flags)
		}
	}

	if flashData == nil {
		return errors.Wrapf(ErrElfNotValid, errors.ElfNotValid, "no executable segment")
	}

	cpu.ConfigureFlash(flashData, flashBase)
	if ram1Data != nil {
		cpu.ConfigureRAM1(ram1Data, ram1Base)
	}
	if ram2Data != nil {
		cpu.ConfigureRAM2(ram2Data, ram2Base)
	}

	cpu.Reset()

	if setEntryPoint {
		cpu.SetEntryPoint(uint32(f.Entry))
	}

	logger.Logf("loader", "loaded %s: flash=%#08x(%d) ram1=%#08x(%d)", path, flashBase, len(flashData), ram1Base, len(ram1Data))
	return nil
}

// place grows buf up to size (a caller-declared span size), leaving it
// unchanged if size is zero (meaning "exactly as large as the segment").
func place(buf []byte, size uint32) []byte {
	if size == 0 || uint32(len(buf)) >= size {
		return buf
	}
	grown := make([]byte, size)
	copy(grown, buf)
	return grown
}
