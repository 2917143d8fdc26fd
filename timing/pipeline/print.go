package pipeline

import (
	"fmt"
	"io"

	"github.com/sarchlab/dlxsim/emu"
)

// PrintRegisters writes a human-readable dump of the stage-visible special
// registers and both architectural register files. Slots holding the
// undefined sentinel are skipped, as are the IR and COND diagnostics.
func (p *Pipeline) PrintRegisters(w io.Writer) {
	fmt.Fprintln(w, "Special purpose registers:")
	for s := 0; s < NumStages; s++ {
		fmt.Fprintf(w, "Stage: %s\n", Stage(s))
		for r := 0; r < NumSPRegisters; r++ {
			reg := SPRegister(r)
			if reg == RegIR || reg == RegCOND {
				continue
			}
			v := p.GetSPRegister(reg, Stage(s))
			if v == emu.Undefined {
				continue
			}
			fmt.Fprintf(w, "%s = %d / 0x%X\n", reg, v, v)
		}
	}

	fmt.Fprintln(w, "General purpose registers:")
	for i := uint8(0); i < emu.NumRegisters; i++ {
		v := p.regFile.ReadInt(i)
		if v == emu.Undefined {
			continue
		}
		fmt.Fprintf(w, "R%d = %d / 0x%X\n", i, int32(v), v)
	}
	for i := uint8(0); i < emu.NumRegisters; i++ {
		bits := p.regFile.ReadFP(i)
		if bits == emu.Undefined {
			continue
		}
		fmt.Fprintf(w, "F%d = %g\n", i, emu.BitsToFloat(bits))
	}
}

// PrintMemory writes the data-memory bytes in [start, end) as hex, four
// bytes per row with the word address leading each row.
func (p *Pipeline) PrintMemory(w io.Writer, start, end uint32) {
	fmt.Fprintf(w, "data_memory[0x%08x:0x%08x]\n", start, end)
	for addr := start; addr < end; addr++ {
		if addr%4 == 0 {
			fmt.Fprintf(w, "0x%08x: ", addr)
		}
		fmt.Fprintf(w, "%02x ", p.memory.Read8(addr))
		if addr%4 == 3 {
			fmt.Fprintln(w)
		}
	}
}
