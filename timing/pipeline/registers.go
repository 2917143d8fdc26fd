// Package pipeline implements the cycle-accurate 5-stage in-order pipeline:
// Fetch (IF) -> Decode (ID) -> Execute (EX) -> Memory (MEM) -> Writeback (WB).
package pipeline

import (
	"github.com/sarchlab/dlxsim/emu"
	"github.com/sarchlab/dlxsim/insts"
)

// IFIDRegister holds state between the Fetch and Decode stages.
type IFIDRegister struct {
	// NPC is the address of the instruction following IR.
	NPC uint32

	// IR is the fetched instruction. A NOP marks a bubble.
	IR insts.Instruction
}

// Clear resets the IF/ID register to a bubble with undefined fields.
func (r *IFIDRegister) Clear() {
	r.NPC = emu.Undefined
	r.IR = insts.Bubble()
}

// IDEXRegister holds state between the Decode and Execute stages.
type IDEXRegister struct {
	// NPC is the address of the instruction following IR.
	NPC uint32

	// IR is the decoded instruction.
	IR insts.Instruction

	// A is the first source operand value read from the register file.
	// For stores it holds the base-address register value.
	A uint32

	// B is the second source operand value. For stores it holds the
	// data to be written to memory.
	B uint32

	// Imm is the sign-extended immediate field.
	Imm uint32
}

// Clear resets the ID/EX register to a bubble with undefined fields.
func (r *IDEXRegister) Clear() {
	r.NPC = emu.Undefined
	r.IR = insts.Bubble()
	r.A = emu.Undefined
	r.B = emu.Undefined
	r.Imm = emu.Undefined
}

// EXMEMRegister holds state between the Execute and Memory stages.
type EXMEMRegister struct {
	// IR is the executed instruction.
	IR insts.Instruction

	// ALUOutput is the ALU result: the computed value for ALU ops, the
	// effective address for loads and stores, the target for branches.
	ALUOutput uint32

	// B carries the store data for SW/SWS.
	B uint32

	// Cond is 1 when a branch evaluated taken, 0 when not taken, and
	// undefined for non-branch instructions.
	Cond uint32
}

// Clear resets the EX/MEM register to a bubble with undefined fields.
func (r *EXMEMRegister) Clear() {
	r.IR = insts.Bubble()
	r.ALUOutput = emu.Undefined
	r.B = emu.Undefined
	r.Cond = emu.Undefined
}

// MEMWBRegister holds state between the Memory and Writeback stages.
type MEMWBRegister struct {
	// IR is the instruction about to commit.
	IR insts.Instruction

	// ALUOutput is the ALU result passed through the memory stage.
	ALUOutput uint32

	// LMD is the load memory data for LW/LWS.
	LMD uint32
}

// Clear resets the MEM/WB register to a bubble with undefined fields.
func (r *MEMWBRegister) Clear() {
	r.IR = insts.Bubble()
	r.ALUOutput = emu.Undefined
	r.LMD = emu.Undefined
}
