package pipeline

import "github.com/sarchlab/dlxsim/emu"

// SPRegister names one stage-visible special register, mirroring the
// labels of a classic pipeline diagram.
type SPRegister int

// Stage-visible special registers.
const (
	RegPC SPRegister = iota
	RegNPC
	RegIR
	RegA
	RegB
	RegIMM
	RegCOND
	RegALUOutput
	RegLMD

	// NumSPRegisters is the number of stage-visible special registers.
	NumSPRegisters = int(RegLMD) + 1
)

var spRegisterNames = [NumSPRegisters]string{
	"PC", "NPC", "IR", "A", "B", "IMM", "COND", "ALU_OUTPUT", "LMD",
}

// String returns the diagram label of the special register.
func (r SPRegister) String() string {
	if r < 0 || int(r) >= NumSPRegisters {
		return "UNKNOWN"
	}
	return spRegisterNames[r]
}

// Stage identifies one of the five pipeline stages.
type Stage int

// Pipeline stages.
const (
	StageIF Stage = iota
	StageID
	StageEX
	StageMEM
	StageWB

	// NumStages is the number of pipeline stages.
	NumStages = int(StageWB) + 1
)

var stageNames = [NumStages]string{"IF", "ID", "EX", "MEM", "WB"}

// String returns the stage abbreviation.
func (s Stage) String() string {
	if s < 0 || int(s) >= NumStages {
		return "UNKNOWN"
	}
	return stageNames[s]
}

// GetSPRegister returns the named special register at the entrance of the
// given stage: the output of the stage's input pipeline register, or PC
// itself for the fetch stage. Registers a stage does not use read as the
// undefined sentinel; out-of-range arguments read as zero. The IR slot
// reports the opcode ordinal.
func (p *Pipeline) GetSPRegister(reg SPRegister, stage Stage) uint32 {
	if reg < 0 || int(reg) >= NumSPRegisters || stage < 0 || int(stage) >= NumStages {
		return 0
	}

	switch stage {
	case StageIF:
		if reg == RegPC {
			return p.pc
		}
	case StageID:
		switch reg {
		case RegNPC:
			return p.ifid.NPC
		case RegIR:
			return uint32(p.ifid.IR.Op)
		}
	case StageEX:
		switch reg {
		case RegNPC:
			return p.idex.NPC
		case RegIR:
			return uint32(p.idex.IR.Op)
		case RegA:
			return p.idex.A
		case RegB:
			return p.idex.B
		case RegIMM:
			return p.idex.Imm
		}
	case StageMEM:
		switch reg {
		case RegIR:
			return uint32(p.exmem.IR.Op)
		case RegB:
			return p.exmem.B
		case RegCOND:
			return p.exmem.Cond
		case RegALUOutput:
			return p.exmem.ALUOutput
		}
	case StageWB:
		switch reg {
		case RegIR:
			return uint32(p.memwb.IR.Op)
		case RegALUOutput:
			return p.memwb.ALUOutput
		case RegLMD:
			return p.memwb.LMD
		}
	}
	return emu.Undefined
}
