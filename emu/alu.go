package emu

import (
	"math"

	"github.com/sarchlab/dlxsim/insts"
)

// FloatToBits returns the IEEE-754 bit pattern of f.
func FloatToBits(f float32) uint32 {
	return math.Float32bits(f)
}

// BitsToFloat reinterprets an IEEE-754 bit pattern as a float32.
func BitsToFloat(bits uint32) float32 {
	return math.Float32frombits(bits)
}

// ALU computes the execute-stage result for one instruction.
//
// Integer arithmetic wraps modulo 2^32, which matches sign-extended
// semantics for subtraction and negative branch offsets. Loads and stores
// produce the effective address a+imm; branches and JUMP produce the target
// npc+imm. Floating-point operations reinterpret a and b as IEEE-754
// values and return the result's bit pattern. Opcodes with no ALU result
// yield the undefined sentinel.
func ALU(op insts.Opcode, a, b, imm, npc uint32) uint32 {
	switch op {
	case insts.OpADD:
		return a + b
	case insts.OpADDI:
		return a + imm
	case insts.OpSUB:
		return a - b
	case insts.OpSUBI:
		return a - imm
	case insts.OpXOR:
		return a ^ b
	case insts.OpLW, insts.OpSW, insts.OpLWS, insts.OpSWS:
		return a + imm
	case insts.OpBEQZ, insts.OpBNEZ, insts.OpBLTZ, insts.OpBGTZ,
		insts.OpBLEZ, insts.OpBGEZ, insts.OpJUMP:
		return npc + imm
	case insts.OpADDS:
		return FloatToBits(BitsToFloat(a) + BitsToFloat(b))
	case insts.OpSUBS:
		return FloatToBits(BitsToFloat(a) - BitsToFloat(b))
	case insts.OpMULTS:
		return FloatToBits(BitsToFloat(a) * BitsToFloat(b))
	case insts.OpDIVS:
		return FloatToBits(BitsToFloat(a) / BitsToFloat(b))
	default:
		return Undefined
	}
}

// BranchTaken evaluates a conditional branch predicate on the signed value
// of operand a. JUMP is unconditionally taken; every other opcode is not
// a branch and evaluates to false.
func BranchTaken(op insts.Opcode, a uint32) bool {
	v := int32(a)
	switch op {
	case insts.OpBEQZ:
		return v == 0
	case insts.OpBNEZ:
		return v != 0
	case insts.OpBLTZ:
		return v < 0
	case insts.OpBGTZ:
		return v > 0
	case insts.OpBLEZ:
		return v <= 0
	case insts.OpBGEZ:
		return v >= 0
	case insts.OpJUMP:
		return true
	}
	return false
}
