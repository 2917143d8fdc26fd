package pipeline

import "github.com/sarchlab/dlxsim/insts"

// HazardResult is the hazard unit's verdict for the instruction currently
// in IF/ID.
type HazardResult struct {
	// StallCycles is the number of decode stalls required. Zero means
	// the instruction may decode this cycle.
	StallCycles uint32

	// IsBranch marks a branch stall: the branch itself decodes while
	// fetch injects bubbles behind it, instead of the consumer being
	// held in IF/ID.
	IsBranch bool
}

// HazardUnit decides stalls for read-after-write and control hazards.
// It is a pure function of the four pipeline registers; the engine owns
// all stall bookkeeping.
type HazardUnit struct{}

// NewHazardUnit creates a new hazard detection unit.
func NewHazardUnit() *HazardUnit {
	return &HazardUnit{}
}

// Detect examines the instruction in IF/ID against the producers further
// down the pipeline and returns the required stall.
//
// The registers are read at decode time, after writeback, memory and
// execute have run this cycle: ID/EX still holds the instruction decoded
// one cycle earlier, EX/MEM holds that same instruction freshly executed,
// and MEM/WB holds the instruction decoded two cycles earlier. An
// instruction three or more cycles ahead has already committed its write
// before this decode reads the register file, so it never stalls.
//
// The nearest producer wins:
//   - one cycle ahead, ALU op or load: 2 stalls (the RAW and load-use
//     cases, and the load-for-store pattern when the consumer is a store)
//   - one cycle ahead via EX/MEM, producer not a store/BNEZ/NOP: 1 stall
//   - two cycles ahead via MEM/WB, producer not a store/BNEZ/BLTZ/NOP:
//     1 stall
//   - the consumer itself is a branch: a 2-cycle branch stall
//
// The BNEZ/BLTZ producer exclusions are asymmetric on purpose; they
// replicate the reference hazard table.
func (h *HazardUnit) Detect(
	ifid *IFIDRegister,
	idex *IDEXRegister,
	exmem *EXMEMRegister,
	memwb *MEMWBRegister,
) HazardResult {
	consumer := ifid.IR
	if consumer.Op == insts.OpNOP || consumer.Op == insts.OpEOP {
		return HazardResult{}
	}

	srcs := consumer.SourceRegs()

	if producerMatches(idex.IR, srcs) {
		return HazardResult{StallCycles: 2}
	}

	if !consumer.Op.IsStore() && excludedMatch(exmem.IR, srcs, false) {
		return HazardResult{StallCycles: 1}
	}

	if excludedMatch(memwb.IR, srcs, true) {
		return HazardResult{StallCycles: 1}
	}

	if consumer.Op.IsBranch() {
		return HazardResult{StallCycles: 2, IsBranch: true}
	}

	return HazardResult{}
}

// producerMatches reports whether an ALU or load producer's destination
// register matches one of the consumer's sources in the same register file.
func producerMatches(producer insts.Instruction, srcs []insts.RegOperand) bool {
	if !producer.Op.IsIntALU() && !producer.Op.IsFPALU() && !producer.Op.IsLoad() {
		return false
	}
	dest, ok := producer.DestReg()
	if !ok {
		return false
	}
	return anyMatch(dest, srcs)
}

// excludedMatch applies the reference hazard table's producer exclusion
// lists for the EX/MEM and MEM/WB slots and matches the remaining
// producers' destination against the consumer sources. The MEM/WB slot
// additionally excludes BLTZ.
func excludedMatch(producer insts.Instruction, srcs []insts.RegOperand, memwb bool) bool {
	switch producer.Op {
	case insts.OpNOP, insts.OpEOP, insts.OpSW, insts.OpSWS, insts.OpBNEZ:
		return false
	case insts.OpBLTZ:
		if memwb {
			return false
		}
	}
	dest, destFP := producerDest(producer)
	return anyMatch(insts.RegOperand{Reg: dest, FP: destFP}, srcs)
}

// producerDest returns the destination slot the hazard table compares
// against, including the non-writing opcodes the table does not exclude.
func producerDest(producer insts.Instruction) (uint8, bool) {
	if dest, ok := producer.DestReg(); ok {
		return dest.Reg, dest.FP
	}
	return producer.Dest, false
}

func anyMatch(dest insts.RegOperand, srcs []insts.RegOperand) bool {
	for _, s := range srcs {
		if s.Reg == dest.Reg && s.FP == dest.FP {
			return true
		}
	}
	return false
}
