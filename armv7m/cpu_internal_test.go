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

// newTestCPU builds a CPU with a flash span holding code (and, at its
// start, the reset vector table) plus a RAM span, and resets it. image is
// copied into flash starting at flashBase; the caller is responsible for
// placing the initial-SP and entry-PC words at offsets 0 and 4 of image.
func newTestCPU(image []byte, flashBase uint32, ramBase, ramSize uint32) *CPU {
	cpu := NewCPU(Options{})
	flash := make([]byte, len(image))
	copy(flash, image)
	cpu.ConfigureFlash(flash, flashBase)
	cpu.ConfigureRAM1(make([]byte, ramSize), ramBase)
	cpu.Reset()
	return cpu
}

// le32 appends v to buf in little-endian order, returning the extended
// slice -- a small helper for hand-assembling test images.
func le32(buf []byte, v uint32) []byte {
	return append(buf, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}

func le16(buf []byte, v uint16) []byte {
	return append(buf, byte(v), byte(v>>8))
}
