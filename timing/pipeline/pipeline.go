package pipeline

import (
	"fmt"

	"github.com/sarchlab/dlxsim/emu"
	"github.com/sarchlab/dlxsim/insts"
	"github.com/sarchlab/dlxsim/timing/latency"
)

// MaxProgramSize is the instruction-memory capacity.
const MaxProgramSize = 50

// Statistics holds pipeline performance statistics.
type Statistics struct {
	// Cycles is the total number of cycles simulated.
	Cycles uint64

	// Instructions is the number of instructions fetched into the
	// pipeline, excluding EOP. Fetch never runs ahead of an unresolved
	// branch, so every counted instruction also commits.
	Instructions uint64

	// Stalls is the total number of stall cycles of any cause.
	Stalls uint64

	// DataStalls counts stalls inserted for read-after-write hazards.
	DataStalls uint64

	// BranchStalls counts the bubbles injected behind branches.
	BranchStalls uint64

	// MemStalls counts cycles the whole pipeline waited on data memory.
	MemStalls uint64

	// ExecStalls counts cycles the execute stage waited on a busy or
	// unavailable execution unit.
	ExecStalls uint64
}

// IPC returns instructions per cycle.
func (s Statistics) IPC() float64 {
	if s.Cycles == 0 {
		return 0
	}
	return float64(s.Instructions) / float64(s.Cycles)
}

// CPI returns cycles per instruction.
func (s Statistics) CPI() float64 {
	if s.Instructions == 0 {
		return 0
	}
	return float64(s.Cycles) / float64(s.Instructions)
}

// Option is a functional option for configuring the Pipeline.
type Option func(*Pipeline)

// WithExecUnits registers execution units of the given kind and latency.
// Configuring any unit enables the floating-point pipeline model, in which
// every instruction occupies a unit of its class for the unit's latency.
func WithExecUnits(kind UnitKind, latencyCycles uint32, instances uint32) Option {
	return func(p *Pipeline) {
		p.InitExecUnit(kind, latencyCycles, instances)
	}
}

// Pipeline is the cycle-accurate 5-stage in-order pipeline simulator.
// It owns instruction memory, data memory, both register files, the four
// inter-stage registers and all hazard and latency state.
type Pipeline struct {
	// Instruction memory.
	program    []insts.Instruction
	labels     map[string]int
	baseAddr   uint32
	fetchIndex int
	pc         uint32

	// Pipeline registers.
	ifid  IFIDRegister
	idex  IDEXRegister
	exmem EXMEMRegister
	memwb MEMWBRegister

	// Architectural state.
	regFile *emu.RegFile
	memory  *emu.Memory

	// Hazard detection.
	hazardUnit *HazardUnit

	// Decode-stall state. pendingStall counts the remaining bubbled
	// decode cycles after the detection cycle; branchStall marks that
	// fetch, not decode, injects the bubbles.
	pendingStall   uint32
	branchStall    bool
	stallThisCycle bool

	// Branch resolution state.
	branchTarget  string
	branchPending bool

	// Data-memory latency state.
	memLatency    uint32
	memoryStall   bool
	memStallCount uint32

	// Execution units.
	units   UnitPool
	exUnit  int
	exStall bool

	// Execution state.
	stats   Statistics
	eopAtWB bool
	halted  bool
}

// New creates a pipeline with a data memory of the given size in bytes and
// access latency in cycles. Registers start undefined and data memory
// starts filled with 0xFF.
func New(memSize, memLatency uint32, opts ...Option) *Pipeline {
	p := &Pipeline{
		regFile:    emu.NewRegFile(),
		memory:     emu.NewMemory(memSize),
		hazardUnit: NewHazardUnit(),
		memLatency: memLatency,
		exUnit:     -1,
		pc:         emu.Undefined,
	}
	p.ifid.Clear()
	p.idex.Clear()
	p.exmem.Clear()
	p.memwb.Clear()

	for _, opt := range opts {
		opt(p)
	}
	return p
}

// NewFromConfig creates a pipeline from a timing configuration.
func NewFromConfig(config *latency.Config) *Pipeline {
	opts := make([]Option, 0, len(config.Units))
	for _, u := range config.Units {
		kind, ok := ParseUnitKind(u.Kind)
		if !ok {
			continue
		}
		instances := u.Instances
		if instances == 0 {
			instances = 1
		}
		opts = append(opts, WithExecUnits(kind, u.Latency, instances))
	}
	return New(config.MemorySize, config.MemoryLatency, opts...)
}

// InitExecUnit adds instances execution units of the given kind and
// latency. It must be called before LoadProgram.
func (p *Pipeline) InitExecUnit(kind UnitKind, latencyCycles uint32, instances uint32) {
	p.units.AddUnits(kind, latencyCycles, instances)
}

// LoadProgram places a parsed program in instruction memory at the given
// base byte address and points fetch at its first instruction.
func (p *Pipeline) LoadProgram(program []insts.Instruction, labels map[string]int, base uint32) error {
	if len(program) > MaxProgramSize {
		return fmt.Errorf("program has %d instructions, instruction memory holds %d",
			len(program), MaxProgramSize)
	}
	p.program = append(p.program[:0], program...)
	p.labels = make(map[string]int, len(labels))
	for name, idx := range labels {
		p.labels[name] = idx
	}
	p.baseAddr = base
	p.fetchIndex = 0
	p.pc = base
	return nil
}

// Reset returns the simulator to its post-construction state: instruction
// memory empty, every register undefined, data memory refilled with 0xFF,
// pipeline registers cleared to bubbles, counters zeroed and units freed.
func (p *Pipeline) Reset() {
	p.program = p.program[:0]
	p.labels = nil
	p.baseAddr = 0
	p.fetchIndex = 0
	p.pc = emu.Undefined

	p.ifid.Clear()
	p.idex.Clear()
	p.exmem.Clear()
	p.memwb.Clear()

	p.regFile.Reset()
	p.memory.Reset()
	p.units.Reset()

	p.pendingStall = 0
	p.branchStall = false
	p.stallThisCycle = false
	p.branchTarget = ""
	p.branchPending = false
	p.memoryStall = false
	p.memStallCount = 0
	p.exUnit = -1
	p.exStall = false

	p.stats = Statistics{}
	p.eopAtWB = false
	p.halted = false
}

// Run advances the pipeline. With cycles == 0 it runs until a committed
// EOP is observed with no branch in flight; otherwise it advances at most
// the given number of cycles. State is inspectable between calls.
func (p *Pipeline) Run(cycles uint64) {
	for i := uint64(0); (cycles == 0 || i < cycles) && !p.halted; i++ {
		p.Tick()
	}
}

// Tick executes one pipeline cycle.
//
// Stages run in reverse order (WB, MEM, EX, ID, IF) so a stage consumes
// its input register before the upstream stage overwrites it, then every
// execution-unit busy counter is decremented once. Reading the registers
// at decode time therefore sees the distance-1 producer in both ID/EX and
// EX/MEM and the distance-2 producer in MEM/WB, which is what the hazard
// unit's table expects.
func (p *Pipeline) Tick() {
	if p.halted {
		return
	}
	p.stats.Cycles++

	p.writeback()
	p.memoryStage()
	p.execute()
	p.decode()
	p.fetch()

	p.units.DecrementBusy()

	if p.eopAtWB && !p.branchPending {
		p.halted = true
	}
}

// Halted reports whether a committed EOP has terminated the run.
func (p *Pipeline) Halted() bool {
	return p.halted
}

// Stats returns the pipeline statistics.
func (p *Pipeline) Stats() Statistics {
	return p.stats
}

// RegFile returns the architectural register files.
func (p *Pipeline) RegFile() *emu.RegFile {
	return p.regFile
}

// Memory returns the data memory.
func (p *Pipeline) Memory() *emu.Memory {
	return p.memory
}

// PC returns the current program counter.
func (p *Pipeline) PC() uint32 {
	return p.pc
}

// IntRegister returns the value of an integer register.
func (p *Pipeline) IntRegister(reg uint8) int32 {
	return int32(p.regFile.ReadInt(reg))
}

// SetIntRegister seeds an integer register.
func (p *Pipeline) SetIntRegister(reg uint8, value int32) {
	p.regFile.WriteInt(reg, uint32(value))
}

// FPRegister returns the value of a floating-point register.
func (p *Pipeline) FPRegister(reg uint8) float32 {
	return emu.BitsToFloat(p.regFile.ReadFP(reg))
}

// SetFPRegister seeds a floating-point register.
func (p *Pipeline) SetFPRegister(reg uint8, value float32) {
	p.regFile.WriteFP(reg, emu.FloatToBits(value))
}

// WriteMemory writes a 32-bit little-endian word to data memory.
func (p *Pipeline) WriteMemory(addr, value uint32) {
	p.memory.Write32(addr, value)
}

// writeback commits the MEM/WB register to the architectural register
// files and records whether EOP reached writeback.
func (p *Pipeline) writeback() {
	r := p.memwb
	op := r.IR.Op
	switch {
	case op.IsIntALU():
		p.regFile.WriteInt(r.IR.Dest, r.ALUOutput)
	case op == insts.OpLW:
		p.regFile.WriteInt(r.IR.Dest, r.LMD)
	case op == insts.OpLWS:
		p.regFile.WriteFP(r.IR.Dest, r.LMD)
	case op.IsFPALU():
		p.regFile.WriteFP(r.IR.Dest, r.ALUOutput)
	}
	p.eopAtWB = op == insts.OpEOP
}

// memoryStage performs the data-memory access for the EX/MEM register,
// stalling the whole pipeline for the configured latency first.
func (p *Pipeline) memoryStage() {
	r := p.exmem

	if p.memLatency > 0 && r.IR.Op.IsMemory() {
		if p.memStallCount < p.memLatency {
			p.memoryStall = true
			p.memStallCount++
			p.stats.Stalls++
			p.stats.MemStalls++
			return
		}
		p.memoryStall = false
		p.memStallCount = 0
	}

	switch {
	case r.IR.Op.IsLoad():
		p.memwb = MEMWBRegister{
			IR:        r.IR,
			ALUOutput: emu.Undefined,
			LMD:       p.memory.Read32(r.ALUOutput),
		}
	case r.IR.Op.IsStore():
		p.memory.Write32(r.ALUOutput, r.B)
		p.memwb = MEMWBRegister{
			IR:        r.IR,
			ALUOutput: emu.Undefined,
			LMD:       emu.Undefined,
		}
	default:
		p.memwb = MEMWBRegister{
			IR:        r.IR,
			ALUOutput: r.ALUOutput,
			LMD:       emu.Undefined,
		}
	}
}

// execute runs the ALU on the ID/EX register and resolves branches. With
// execution units configured, the instruction first has to win a free unit
// of its class and then occupies the execute stage until the unit's final
// busy cycle.
func (p *Pipeline) execute() {
	if p.memoryStall {
		return
	}

	r := p.idex
	op := r.IR.Op

	if op == insts.OpNOP {
		p.writeEXBubble()
		p.exStall = false
		return
	}
	if op == insts.OpEOP {
		p.exmem = EXMEMRegister{
			IR:        r.IR,
			ALUOutput: emu.Undefined,
			B:         emu.Undefined,
			Cond:      emu.Undefined,
		}
		p.exStall = false
		return
	}

	if !p.units.Empty() {
		if p.exUnit < 0 {
			idx := p.units.FreeUnit(op)
			if idx < 0 {
				// Structural hazard: every unit of the class is busy.
				p.exStall = true
				p.writeEXBubble()
				p.stats.Stalls++
				p.stats.ExecStalls++
				return
			}
			p.units.Acquire(idx, r.IR)
			p.exUnit = idx
		}
		if p.units.Busy(p.exUnit) > 1 {
			p.exStall = true
			p.writeEXBubble()
			p.stats.Stalls++
			p.stats.ExecStalls++
			return
		}
		p.units.Release(p.exUnit)
		p.exUnit = -1
	}
	p.exStall = false

	cond := emu.Undefined
	if op.IsBranch() {
		if emu.BranchTaken(op, r.A) {
			p.branchTarget = r.IR.Label
			p.branchPending = true
			cond = 1
		} else {
			p.branchTarget = ""
			p.branchPending = false
			cond = 0
		}
	}

	p.exmem = EXMEMRegister{
		IR:        r.IR,
		ALUOutput: emu.ALU(op, r.A, r.B, r.Imm, r.NPC),
		B:         r.B,
		Cond:      cond,
	}
}

// writeEXBubble propagates a bubble into EX/MEM.
func (p *Pipeline) writeEXBubble() {
	p.exmem = EXMEMRegister{
		IR:        insts.Bubble(),
		ALUOutput: 0,
		B:         emu.Undefined,
		Cond:      emu.Undefined,
	}
}

// decode runs hazard detection and reads source registers for the IF/ID
// instruction. Memory and execute stalls freeze it entirely; pending
// hazard stalls emit one bubble per cycle and do not tick down while the
// pipeline is frozen elsewhere.
func (p *Pipeline) decode() {
	p.stallThisCycle = false
	if p.memoryStall || p.exStall {
		return
	}

	if p.pendingStall > 0 {
		p.pendingStall--
		p.stallThisCycle = true
		p.idex.Clear()
		return
	}

	res := p.hazardUnit.Detect(&p.ifid, &p.idex, &p.exmem, &p.memwb)
	if res.StallCycles > 0 {
		p.stats.Stalls += uint64(res.StallCycles)
		if res.IsBranch {
			p.stats.BranchStalls += uint64(res.StallCycles)
		} else {
			p.stats.DataStalls += uint64(res.StallCycles)
		}
		// The detection cycle consumes the first stall cycle.
		p.pendingStall = res.StallCycles - 1
		p.branchStall = res.IsBranch
		p.stallThisCycle = true
		if !res.IsBranch {
			p.idex.Clear()
			return
		}
		// A branch decodes normally while fetch bubbles behind it.
	} else {
		p.branchStall = false
	}

	ir := p.ifid.IR
	a, b := p.readOperands(ir)
	imm := emu.Undefined
	if ir.Op.HasImmediate() {
		imm = ir.Imm
	}
	p.idex = IDEXRegister{
		NPC: p.ifid.NPC,
		IR:  ir,
		A:   a,
		B:   b,
		Imm: imm,
	}
}

// readOperands reads the architectural source registers into the A and B
// operand slots. For stores the base address goes to A and the data to
// store to B, swapping the syntactic src1/src2 order.
func (p *Pipeline) readOperands(ir insts.Instruction) (uint32, uint32) {
	a, b := emu.Undefined, emu.Undefined
	switch {
	case ir.Op == insts.OpSW:
		a = p.regFile.ReadInt(ir.Src2)
		b = p.regFile.ReadInt(ir.Src1)
	case ir.Op == insts.OpSWS:
		a = p.regFile.ReadInt(ir.Src2)
		b = p.regFile.ReadFP(ir.Src1)
	case ir.Op.IsLoad():
		a = p.regFile.ReadInt(ir.Src1)
	case ir.Op == insts.OpADD, ir.Op == insts.OpSUB, ir.Op == insts.OpXOR:
		a = p.regFile.ReadInt(ir.Src1)
		b = p.regFile.ReadInt(ir.Src2)
	case ir.Op == insts.OpADDI, ir.Op == insts.OpSUBI:
		a = p.regFile.ReadInt(ir.Src1)
	case ir.Op.IsCondBranch():
		a = p.regFile.ReadInt(ir.Src1)
	case ir.Op.IsFPALU():
		a = p.regFile.ReadFP(ir.Src1)
		b = p.regFile.ReadFP(ir.Src2)
	}
	return a, b
}

// fetch copies the next instruction into IF/ID and advances PC. A branch
// stall injects bubbles instead; any other active stall holds PC and
// IF/ID. A resolved taken branch redirects the instruction index first.
func (p *Pipeline) fetch() {
	if p.memoryStall || p.exStall {
		return
	}
	if p.stallThisCycle {
		if p.branchStall {
			p.ifid.Clear()
		}
		return
	}

	if p.branchPending {
		if idx, ok := p.labels[p.branchTarget]; ok {
			p.fetchIndex = idx
		}
		p.branchPending = false
		p.branchTarget = ""
	}

	if p.fetchIndex >= len(p.program) {
		p.ifid.Clear()
		return
	}

	inst := p.program[p.fetchIndex]
	npc := p.baseAddr + 4*uint32(p.fetchIndex+1)
	p.pc = npc
	p.ifid.IR = inst
	p.ifid.NPC = npc
	if inst.Op != insts.OpEOP {
		p.fetchIndex++
		p.stats.Instructions++
	}
}
