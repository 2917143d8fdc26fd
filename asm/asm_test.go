package asm_test

import (
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/dlxsim/asm"
	"github.com/sarchlab/dlxsim/insts"
)

var _ = Describe("Parse", func() {
	parse := func(src string) *asm.Program {
		prog, err := asm.Parse(strings.NewReader(src))
		Expect(err).NotTo(HaveOccurred())
		return prog
	}

	It("should parse R-type instructions", func() {
		prog := parse("ADD R3 R1 R2\nEOP\n")
		Expect(prog.Insts).To(HaveLen(2))
		Expect(prog.Insts[0]).To(Equal(insts.Instruction{
			Op: insts.OpADD, Dest: 3, Src1: 1, Src2: 2,
		}))
		Expect(prog.Insts[1].Op).To(Equal(insts.OpEOP))
	})

	It("should parse I-type instructions with decimal and hex immediates", func() {
		prog := parse("ADDI R1 R0 10\nSUBI R2 R1 0x20\nEOP\n")
		Expect(prog.Insts[0]).To(Equal(insts.Instruction{
			Op: insts.OpADDI, Dest: 1, Src1: 0, Imm: 10,
		}))
		Expect(prog.Insts[1]).To(Equal(insts.Instruction{
			Op: insts.OpSUBI, Dest: 2, Src1: 1, Imm: 0x20,
		}))
	})

	It("should parse load addressing operands", func() {
		prog := parse("LW R4 8(R2)\nEOP\n")
		Expect(prog.Insts[0]).To(Equal(insts.Instruction{
			Op: insts.OpLW, Dest: 4, Src1: 2, Imm: 8,
		}))
	})

	It("should parse stores with the data register in src1", func() {
		prog := parse("SW R4 12(R2)\nEOP\n")
		Expect(prog.Insts[0]).To(Equal(insts.Instruction{
			Op: insts.OpSW, Src1: 4, Src2: 2, Imm: 12,
		}))
	})

	It("should parse floating-point loads and stores with F registers", func() {
		prog := parse("LWS F1 0(R0)\nSWS F1 4(R0)\nEOP\n")
		Expect(prog.Insts[0]).To(Equal(insts.Instruction{
			Op: insts.OpLWS, Dest: 1, Src1: 0, Imm: 0,
		}))
		Expect(prog.Insts[1]).To(Equal(insts.Instruction{
			Op: insts.OpSWS, Src1: 1, Src2: 0, Imm: 4,
		}))
	})

	It("should parse floating-point ALU instructions", func() {
		prog := parse("MULTS F3 F1 F2\nEOP\n")
		Expect(prog.Insts[0]).To(Equal(insts.Instruction{
			Op: insts.OpMULTS, Dest: 3, Src1: 1, Src2: 2,
		}))
	})

	It("should record labels at the tagged instruction index", func() {
		prog := parse("ADDI R1 R0 1\nLOOP: SUBI R1 R1 1\nBNEZ R1 LOOP\nEOP\n")
		Expect(prog.Labels).To(HaveKeyWithValue("LOOP", 1))
	})

	It("should resolve forward branch offsets to NPC-relative bytes", func() {
		prog := parse("BEQZ R1 END\nADDI R2 R0 1\nEND: EOP\n")
		// (target 2 - index 0 - 1) << 2
		Expect(prog.Insts[0].Imm).To(Equal(uint32(4)))
		Expect(prog.Insts[0].Label).To(Equal("END"))
	})

	It("should resolve backward branch offsets to negative byte counts", func() {
		prog := parse("LOOP: SUBI R1 R1 1\nBNEZ R1 LOOP\nEOP\n")
		// (target 0 - index 1 - 1) << 2
		var negEight int32 = -8
		Expect(prog.Insts[1].Imm).To(Equal(uint32(negEight)))
	})

	It("should resolve JUMP targets", func() {
		prog := parse("JUMP END\nADDI R1 R0 1\nEND: EOP\n")
		Expect(prog.Insts[0].Imm).To(Equal(uint32(4)))
	})

	It("should skip blank lines", func() {
		prog := parse("\nADDI R1 R0 1\n\nEOP\n")
		Expect(prog.Insts).To(HaveLen(2))
	})

	DescribeTable("rejecting malformed programs",
		func(src, fragment string) {
			_, err := asm.Parse(strings.NewReader(src))
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring(fragment))
		},
		Entry("unknown opcode", "MUL R1 R2 R3\n", "invalid opcode"),
		Entry("bad register", "ADD R1 X2 R3\n", "malformed register"),
		Entry("register out of range", "ADD R1 R40 R3\n", "malformed register"),
		Entry("bad immediate", "ADDI R1 R0 ten\n", "malformed immediate"),
		Entry("bad memory operand", "LW R1 8R2\n", "malformed memory operand"),
		Entry("missing operand", "ADD R1 R2\n", "expected 3 operands"),
		Entry("undefined label", "BEQZ R1 NOWHERE\nEOP\n", "undefined label"),
		Entry("dangling label", "END:\n", "without instruction"),
	)
})

var _ = Describe("LoadFile", func() {
	It("should load a program from disk", func() {
		dir := GinkgoT().TempDir()
		path := filepath.Join(dir, "prog.asm")
		src := "ADDI R1 R0 5\nEOP\n"
		Expect(os.WriteFile(path, []byte(src), 0o644)).To(Succeed())

		prog, err := asm.LoadFile(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(prog.Insts).To(HaveLen(2))
	})

	It("should report missing files", func() {
		_, err := asm.LoadFile("no/such/file.asm")
		Expect(err).To(HaveOccurred())
	})
})
