package pipeline_test

import (
	"bytes"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/dlxsim/asm"
	"github.com/sarchlab/dlxsim/emu"
	"github.com/sarchlab/dlxsim/insts"
	"github.com/sarchlab/dlxsim/timing/pipeline"
)

// load assembles src and places it in the pipeline's instruction memory.
func load(p *pipeline.Pipeline, src string) {
	GinkgoHelper()
	prog, err := asm.Parse(strings.NewReader(src))
	Expect(err).NotTo(HaveOccurred())
	Expect(p.LoadProgram(prog.Insts, prog.Labels, 0)).To(Succeed())
}

var _ = Describe("Pipeline", func() {
	var pipe *pipeline.Pipeline

	BeforeEach(func() {
		pipe = pipeline.New(1024, 0)
		pipe.SetIntRegister(0, 0)
	})

	Describe("sequential ALU program with a RAW hazard", func() {
		BeforeEach(func() {
			load(pipe, `
ADDI R1 R0 5
ADDI R2 R0 7
ADD R3 R1 R2
EOP
`)
			pipe.Run(0)
		})

		It("should compute the architectural results", func() {
			Expect(pipe.IntRegister(1)).To(Equal(int32(5)))
			Expect(pipe.IntRegister(2)).To(Equal(int32(7)))
			Expect(pipe.IntRegister(3)).To(Equal(int32(12)))
		})

		It("should count 3 committed instructions", func() {
			Expect(pipe.Stats().Instructions).To(Equal(uint64(3)))
		})

		It("should insert exactly 2 stalls for the back-to-back RAW hazard", func() {
			Expect(pipe.Stats().Stalls).To(Equal(uint64(2)))
			Expect(pipe.Stats().DataStalls).To(Equal(uint64(2)))
		})

		It("should drain in 10 cycles", func() {
			Expect(pipe.Stats().Cycles).To(Equal(uint64(10)))
		})

		It("should report IPC as instructions over cycles", func() {
			Expect(pipe.Stats().IPC()).To(BeNumerically("~", 0.3, 1e-12))
		})
	})

	Describe("load-use hazard", func() {
		It("should stall 2 cycles between a load and its consumer", func() {
			pipe.WriteMemory(0, 21)
			load(pipe, `
LW R1 0(R0)
ADD R2 R1 R1
EOP
`)
			pipe.Run(0)

			Expect(pipe.IntRegister(1)).To(Equal(int32(21)))
			Expect(pipe.IntRegister(2)).To(Equal(int32(42)))
			Expect(pipe.Stats().Stalls).To(Equal(uint64(2)))
			Expect(pipe.Stats().Cycles).To(Equal(uint64(9)))
		})
	})

	Describe("store then load", func() {
		BeforeEach(func() {
			load(pipe, `
ADDI R1 R0 0x42
SW R1 0(R0)
LW R2 0(R0)
EOP
`)
			pipe.Run(0)
		})

		It("should read back the stored word", func() {
			Expect(pipe.IntRegister(2)).To(Equal(int32(0x42)))
		})

		It("should store the word little-endian", func() {
			Expect(pipe.Memory().Read8(0)).To(Equal(uint8(0x42)))
			Expect(pipe.Memory().Read8(1)).To(Equal(uint8(0)))
			Expect(pipe.Memory().Read8(2)).To(Equal(uint8(0)))
			Expect(pipe.Memory().Read8(3)).To(Equal(uint8(0)))
		})

		It("should drain in 10 cycles with zero-latency memory", func() {
			Expect(pipe.Stats().Cycles).To(Equal(uint64(10)))
			Expect(pipe.Stats().Stalls).To(Equal(uint64(2)))
		})
	})

	Describe("data-memory latency", func() {
		It("should add latency stall cycles for each memory access", func() {
			slow := pipeline.New(1024, 2)
			slow.SetIntRegister(0, 0)
			load(slow, `
ADDI R1 R0 0x42
SW R1 0(R0)
LW R2 0(R0)
EOP
`)
			slow.Run(0)

			// Two cycles extra at SW and two at LW over the
			// zero-latency run.
			Expect(slow.Stats().Cycles).To(Equal(uint64(14)))
			Expect(slow.Stats().MemStalls).To(Equal(uint64(4)))
			Expect(slow.Stats().Stalls).To(Equal(uint64(6)))
			Expect(slow.IntRegister(2)).To(Equal(int32(0x42)))
		})
	})

	Describe("taken branch", func() {
		BeforeEach(func() {
			load(pipe, `
ADDI R1 R0 1
BNEZ R1 END
ADDI R2 R0 99
END: ADDI R3 R0 7
EOP
`)
			pipe.Run(0)
		})

		It("should squash the fall-through path", func() {
			Expect(pipe.RegFile().ReadInt(2)).To(Equal(emu.Undefined))
			Expect(pipe.IntRegister(3)).To(Equal(int32(7)))
		})

		It("should commit only the executed path", func() {
			Expect(pipe.Stats().Instructions).To(Equal(uint64(3)))
		})

		It("should cost 2 branch bubbles on top of the RAW stall", func() {
			Expect(pipe.Stats().DataStalls).To(Equal(uint64(2)))
			Expect(pipe.Stats().BranchStalls).To(Equal(uint64(2)))
			Expect(pipe.Stats().Cycles).To(Equal(uint64(12)))
		})
	})

	Describe("not-taken branch", func() {
		BeforeEach(func() {
			load(pipe, `
ADDI R1 R0 0
BNEZ R1 END
ADDI R2 R0 99
END: ADDI R3 R0 7
EOP
`)
			pipe.Run(0)
		})

		It("should execute the fall-through path", func() {
			Expect(pipe.IntRegister(2)).To(Equal(int32(99)))
			Expect(pipe.IntRegister(3)).To(Equal(int32(7)))
			Expect(pipe.Stats().Instructions).To(Equal(uint64(4)))
		})

		It("should still pay the branch bubbles", func() {
			Expect(pipe.Stats().BranchStalls).To(Equal(uint64(2)))
			Expect(pipe.Stats().Cycles).To(Equal(uint64(13)))
		})
	})

	Describe("unconditional jump", func() {
		It("should always redirect fetch", func() {
			load(pipe, `
JUMP END
ADDI R2 R0 99
END: ADDI R3 R0 7
EOP
`)
			pipe.Run(0)

			Expect(pipe.RegFile().ReadInt(2)).To(Equal(emu.Undefined))
			Expect(pipe.IntRegister(3)).To(Equal(int32(7)))
		})
	})

	Describe("backward branch loop", func() {
		It("should iterate until the counter reaches zero", func() {
			load(pipe, `
ADDI R1 R0 3
ADDI R2 R0 0
LOOP: ADDI R2 R2 10
SUBI R1 R1 1
BNEZ R1 LOOP
EOP
`)
			pipe.Run(0)

			Expect(pipe.IntRegister(1)).To(Equal(int32(0)))
			Expect(pipe.IntRegister(2)).To(Equal(int32(30)))
		})
	})

	Describe("Run with a finite cycle budget", func() {
		It("should advance exactly that many cycles", func() {
			load(pipe, "ADDI R1 R0 5\nEOP\n")
			pipe.Run(3)

			Expect(pipe.Stats().Cycles).To(Equal(uint64(3)))
			Expect(pipe.Halted()).To(BeFalse())

			pipe.Run(0)
			Expect(pipe.Halted()).To(BeTrue())
			Expect(pipe.IntRegister(1)).To(Equal(int32(5)))
		})

		It("should not tick past a halt", func() {
			load(pipe, "EOP\n")
			pipe.Run(0)
			cycles := pipe.Stats().Cycles

			pipe.Run(5)
			Expect(pipe.Stats().Cycles).To(Equal(cycles))
		})
	})

	Describe("EOP draining", func() {
		It("should halt an EOP-only program after the pipeline drains", func() {
			load(pipe, "EOP\n")
			pipe.Run(0)

			Expect(pipe.Halted()).To(BeTrue())
			Expect(pipe.Stats().Cycles).To(Equal(uint64(5)))
			Expect(pipe.Stats().Instructions).To(Equal(uint64(0)))
		})
	})

	Describe("stage-register observability", func() {
		BeforeEach(func() {
			load(pipe, `
ADDI R1 R0 5
ADDI R2 R0 7
EOP
`)
		})

		It("should expose PC and IF/ID.NPC after the first fetch", func() {
			pipe.Run(1)

			Expect(pipe.GetSPRegister(pipeline.RegPC, pipeline.StageIF)).To(Equal(uint32(4)))
			Expect(pipe.GetSPRegister(pipeline.RegNPC, pipeline.StageID)).To(Equal(uint32(4)))
			Expect(pipe.GetSPRegister(pipeline.RegIR, pipeline.StageID)).
				To(Equal(uint32(insts.OpADDI)))
		})

		It("should expose the decoded operands at the EX entrance", func() {
			pipe.Run(2)

			Expect(pipe.GetSPRegister(pipeline.RegNPC, pipeline.StageEX)).To(Equal(uint32(4)))
			Expect(pipe.GetSPRegister(pipeline.RegA, pipeline.StageEX)).To(Equal(uint32(0)))
			Expect(pipe.GetSPRegister(pipeline.RegIMM, pipeline.StageEX)).To(Equal(uint32(5)))
			Expect(pipe.GetSPRegister(pipeline.RegB, pipeline.StageEX)).To(Equal(emu.Undefined))
		})

		It("should expose the ALU result at the MEM and WB entrances", func() {
			pipe.Run(3)
			Expect(pipe.GetSPRegister(pipeline.RegALUOutput, pipeline.StageMEM)).
				To(Equal(uint32(5)))

			pipe.Run(1)
			Expect(pipe.GetSPRegister(pipeline.RegALUOutput, pipeline.StageWB)).
				To(Equal(uint32(5)))
		})

		It("should read unused slots as undefined", func() {
			pipe.Run(2)

			Expect(pipe.GetSPRegister(pipeline.RegLMD, pipeline.StageID)).To(Equal(emu.Undefined))
			Expect(pipe.GetSPRegister(pipeline.RegA, pipeline.StageIF)).To(Equal(emu.Undefined))
		})

		It("should read out-of-range arguments as zero", func() {
			Expect(pipe.GetSPRegister(pipeline.SPRegister(50), pipeline.StageIF)).
				To(Equal(uint32(0)))
			Expect(pipe.GetSPRegister(pipeline.RegPC, pipeline.Stage(9))).
				To(Equal(uint32(0)))
		})
	})

	Describe("Reset", func() {
		It("should restore the post-construction state", func() {
			load(pipe, "ADDI R1 R0 5\nSW R1 0(R0)\nEOP\n")
			pipe.Run(0)
			pipe.Reset()

			for i := uint8(0); i < emu.NumRegisters; i++ {
				Expect(pipe.RegFile().ReadInt(i)).To(Equal(emu.Undefined))
				Expect(pipe.RegFile().ReadFP(i)).To(Equal(emu.Undefined))
			}
			Expect(pipe.Memory().Read8(0)).To(Equal(uint8(0xFF)))
			Expect(pipe.Stats()).To(Equal(pipeline.Statistics{}))
			Expect(pipe.Halted()).To(BeFalse())

			for s := 0; s < pipeline.NumStages; s++ {
				for r := 0; r < pipeline.NumSPRegisters; r++ {
					reg := pipeline.SPRegister(r)
					if reg == pipeline.RegIR {
						continue
					}
					Expect(pipe.GetSPRegister(reg, pipeline.Stage(s))).
						To(Equal(emu.Undefined))
				}
			}
		})
	})

	Describe("LoadProgram", func() {
		It("should reject programs beyond the instruction-memory capacity", func() {
			program := make([]insts.Instruction, pipeline.MaxProgramSize+1)
			for i := range program {
				program[i] = insts.Bubble()
			}

			err := pipe.LoadProgram(program, nil, 0)
			Expect(err).To(MatchError(ContainSubstring("instruction memory")))
		})

		It("should run a program loaded at a non-zero base address", func() {
			prog, err := asm.Parse(strings.NewReader("ADDI R1 R0 9\nEOP\n"))
			Expect(err).NotTo(HaveOccurred())
			Expect(pipe.LoadProgram(prog.Insts, prog.Labels, 0x100)).To(Succeed())

			pipe.Run(1)
			Expect(pipe.GetSPRegister(pipeline.RegPC, pipeline.StageIF)).
				To(Equal(uint32(0x104)))

			pipe.Run(0)
			Expect(pipe.IntRegister(1)).To(Equal(int32(9)))
		})
	})

	Describe("printers", func() {
		It("should dump committed registers", func() {
			load(pipe, "ADDI R1 R0 5\nEOP\n")
			pipe.Run(0)

			var buf bytes.Buffer
			pipe.PrintRegisters(&buf)
			Expect(buf.String()).To(ContainSubstring("General purpose registers:"))
			Expect(buf.String()).To(ContainSubstring("R1 = 5 / 0x5"))
		})

		It("should dump a memory window as hex words", func() {
			pipe.WriteMemory(0, 0x0000AB42)

			var buf bytes.Buffer
			pipe.PrintMemory(&buf, 0, 8)
			Expect(buf.String()).To(ContainSubstring("0x00000000: 42 ab 00 00"))
			Expect(buf.String()).To(ContainSubstring("0x00000004: ff ff ff ff"))
		})
	})
})
