package pipeline

import (
	"github.com/sarchlab/dlxsim/insts"
)

// MaxUnits is the capacity of the execution-unit table.
const MaxUnits = 10

// UnitKind identifies the type of an execution unit.
type UnitKind int

// Execution unit kinds. Integer ops, memory ops and branches execute on
// the INTEGER unit; ADDS/SUBS on the ADDER; MULTS on the MULTIPLIER;
// DIVS on the DIVIDER.
const (
	Integer UnitKind = iota
	Adder
	Multiplier
	Divider
)

var unitKindNames = map[UnitKind]string{
	Integer:    "integer",
	Adder:      "adder",
	Multiplier: "multiplier",
	Divider:    "divider",
}

// String returns the lower-case unit kind name.
func (k UnitKind) String() string {
	if name, ok := unitKindNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParseUnitKind converts a configuration string into a UnitKind.
func ParseUnitKind(s string) (UnitKind, bool) {
	for k, name := range unitKindNames {
		if name == s {
			return k, true
		}
	}
	return Integer, false
}

// UnitKindFor returns the execution unit kind the opcode issues to.
// NOP and EOP never occupy a unit.
func UnitKindFor(op insts.Opcode) UnitKind {
	switch op {
	case insts.OpADDS, insts.OpSUBS:
		return Adder
	case insts.OpMULTS:
		return Multiplier
	case insts.OpDIVS:
		return Divider
	default:
		return Integer
	}
}

// Unit is one execution unit.
type Unit struct {
	// Kind is the unit type.
	Kind UnitKind

	// Latency is the unit's execution latency in cycles.
	Latency uint32

	// Busy is the number of remaining cycles the unit is occupied.
	// Zero means the unit is free.
	Busy uint32

	// Inst is the instruction currently occupying the unit.
	Inst insts.Instruction
}

// UnitPool tracks the execution units of the processor. An empty pool
// models the plain integer pipeline with a single-cycle execute stage.
type UnitPool struct {
	units []Unit
}

// AddUnits registers instances execution units of the given kind and
// latency. Units beyond MaxUnits are ignored.
func (p *UnitPool) AddUnits(kind UnitKind, latency uint32, instances uint32) {
	for i := uint32(0); i < instances && len(p.units) < MaxUnits; i++ {
		p.units = append(p.units, Unit{
			Kind:    kind,
			Latency: latency,
			Inst:    insts.Bubble(),
		})
	}
}

// Empty reports whether no units are configured.
func (p *UnitPool) Empty() bool {
	return len(p.units) == 0
}

// FreeUnit returns the index of the first idle unit able to execute the
// opcode, or -1 if every matching unit is busy.
func (p *UnitPool) FreeUnit(op insts.Opcode) int {
	kind := UnitKindFor(op)
	for i := range p.units {
		if p.units[i].Kind == kind && p.units[i].Busy == 0 {
			return i
		}
	}
	return -1
}

// Acquire marks the unit busy for its full latency with the given
// instruction.
func (p *UnitPool) Acquire(idx int, inst insts.Instruction) {
	p.units[idx].Busy = p.units[idx].Latency
	p.units[idx].Inst = inst
}

// Busy returns the remaining busy cycles of the unit.
func (p *UnitPool) Busy(idx int) uint32 {
	return p.units[idx].Busy
}

// Release clears the instruction slot of a finished unit.
func (p *UnitPool) Release(idx int) {
	p.units[idx].Inst = insts.Bubble()
}

// DecrementBusy counts every busy unit down by one cycle. It must be
// called exactly once per simulated cycle.
func (p *UnitPool) DecrementBusy() {
	for i := range p.units {
		if p.units[i].Busy > 0 {
			p.units[i].Busy--
		}
	}
}

// Reset frees every unit.
func (p *UnitPool) Reset() {
	for i := range p.units {
		p.units[i].Busy = 0
		p.units[i].Inst = insts.Bubble()
	}
}
