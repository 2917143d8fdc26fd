// Package emu provides the architectural state of the simulated processor:
// register files, data memory, and the ALU.
package emu

// Undefined is the 32-bit sentinel that marks a register or stage-register
// slot as holding no meaningful value.
const Undefined uint32 = 0xFFFFFFFF

// NumRegisters is the size of each architectural register file.
const NumRegisters = 32

// RegFile holds the integer and floating-point architectural register
// files. Floating-point registers are stored as raw IEEE-754 bit patterns
// so that the Undefined sentinel is representable in both files.
type RegFile struct {
	// Int holds the integer general-purpose registers R0-R31.
	Int [NumRegisters]uint32

	// FP holds the floating-point registers F0-F31 as bit patterns.
	FP [NumRegisters]uint32
}

// NewRegFile creates a register file with every register undefined.
func NewRegFile() *RegFile {
	r := &RegFile{}
	r.Reset()
	return r
}

// Reset sets every register in both files to the undefined sentinel.
func (r *RegFile) Reset() {
	for i := range r.Int {
		r.Int[i] = Undefined
		r.FP[i] = Undefined
	}
}

// ReadInt reads an integer register. Out-of-range indices read as zero.
func (r *RegFile) ReadInt(reg uint8) uint32 {
	if int(reg) >= NumRegisters {
		return 0
	}
	return r.Int[reg]
}

// WriteInt writes an integer register. Out-of-range indices are ignored.
func (r *RegFile) WriteInt(reg uint8, value uint32) {
	if int(reg) >= NumRegisters {
		return
	}
	r.Int[reg] = value
}

// ReadFP reads a floating-point register as a raw bit pattern.
// Out-of-range indices read as zero.
func (r *RegFile) ReadFP(reg uint8) uint32 {
	if int(reg) >= NumRegisters {
		return 0
	}
	return r.FP[reg]
}

// WriteFP writes a floating-point register as a raw bit pattern.
// Out-of-range indices are ignored.
func (r *RegFile) WriteFP(reg uint8, bits uint32) {
	if int(reg) >= NumRegisters {
		return
	}
	r.FP[reg] = bits
}
