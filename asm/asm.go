// Package asm loads DLX-style assembly programs into instruction memory.
//
// The grammar is line-based with whitespace-separated tokens and an
// optional leading "label:" on any line:
//
//	R-type:   ADD|SUB|XOR Rd Rs Rt
//	I-type:   ADDI|SUBI Rd Rs imm
//	Load:     LW Rd imm(Rs)   /  LWS Fd imm(Rs)
//	Store:    SW Rs imm(Rt)   /  SWS Fs imm(Rt)
//	Branch:   BEQZ|BNEZ|BLTZ|BGTZ|BLEZ|BGEZ Rs label
//	Jump:     JUMP label
//	End:      EOP
//
// Branch and jump immediates are resolved at load time to
// (targetIndex - currentIndex - 1) << 2, the byte offset relative to the
// instruction's NPC.
package asm

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/sarchlab/dlxsim/insts"
)

// Program is a parsed assembly program: the decoded instruction sequence
// and the label table mapping label names to instruction indices.
type Program struct {
	// Insts is the decoded instruction memory image.
	Insts []insts.Instruction

	// Labels maps a label name to the index of the instruction it tags.
	Labels map[string]int
}

// LoadFile parses the assembly program in the named file.
func LoadFile(path string) (*Program, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open program %s: %w", path, err)
	}
	defer f.Close()

	prog, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return prog, nil
}

// Parse reads an assembly program and resolves its labels.
func Parse(r io.Reader) (*Program, error) {
	prog := &Program{Labels: make(map[string]int)}

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		if label, ok := strings.CutSuffix(fields[0], ":"); ok {
			prog.Labels[label] = len(prog.Insts)
			fields = fields[1:]
			if len(fields) == 0 {
				return nil, fmt.Errorf("line %d: label %q without instruction", lineNo, label)
			}
		}

		inst, err := parseInstruction(fields)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		prog.Insts = append(prog.Insts, inst)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read program: %w", err)
	}

	if err := prog.resolveLabels(); err != nil {
		return nil, err
	}
	return prog, nil
}

func parseInstruction(fields []string) (insts.Instruction, error) {
	var inst insts.Instruction

	op, ok := insts.OpcodeFromMnemonic(fields[0])
	if !ok {
		return inst, fmt.Errorf("invalid opcode: %s", fields[0])
	}
	inst.Op = op

	fpDest := op.WritesFPReg()
	fpSrc := op.IsFPALU()

	switch {
	case op == insts.OpADD, op == insts.OpSUB, op == insts.OpXOR, op.IsFPALU():
		if err := wantOperands(fields, 3); err != nil {
			return inst, err
		}
		var err error
		if inst.Dest, err = parseReg(fields[1], fpDest); err != nil {
			return inst, err
		}
		if inst.Src1, err = parseReg(fields[2], fpSrc); err != nil {
			return inst, err
		}
		if inst.Src2, err = parseReg(fields[3], fpSrc); err != nil {
			return inst, err
		}

	case op == insts.OpADDI, op == insts.OpSUBI:
		if err := wantOperands(fields, 3); err != nil {
			return inst, err
		}
		var err error
		if inst.Dest, err = parseReg(fields[1], false); err != nil {
			return inst, err
		}
		if inst.Src1, err = parseReg(fields[2], false); err != nil {
			return inst, err
		}
		if inst.Imm, err = parseImm(fields[3]); err != nil {
			return inst, err
		}

	case op.IsLoad():
		if err := wantOperands(fields, 2); err != nil {
			return inst, err
		}
		var err error
		if inst.Dest, err = parseReg(fields[1], fpDest); err != nil {
			return inst, err
		}
		if inst.Imm, inst.Src1, err = parseMemOperand(fields[2]); err != nil {
			return inst, err
		}

	case op.IsStore():
		if err := wantOperands(fields, 2); err != nil {
			return inst, err
		}
		var err error
		if inst.Src1, err = parseReg(fields[1], op == insts.OpSWS); err != nil {
			return inst, err
		}
		if inst.Imm, inst.Src2, err = parseMemOperand(fields[2]); err != nil {
			return inst, err
		}

	case op.IsCondBranch():
		if err := wantOperands(fields, 2); err != nil {
			return inst, err
		}
		var err error
		if inst.Src1, err = parseReg(fields[1], false); err != nil {
			return inst, err
		}
		inst.Label = fields[2]

	case op == insts.OpJUMP:
		if err := wantOperands(fields, 1); err != nil {
			return inst, err
		}
		inst.Label = fields[1]

	case op == insts.OpEOP, op == insts.OpNOP:
		// No operands.

	default:
		return inst, fmt.Errorf("invalid opcode: %s", fields[0])
	}

	return inst, nil
}

func wantOperands(fields []string, n int) error {
	if len(fields) != n+1 {
		return fmt.Errorf("%s: expected %d operands, got %d", fields[0], n, len(fields)-1)
	}
	return nil
}

// parseReg parses a register token such as "R4" or "F12".
func parseReg(tok string, fp bool) (uint8, error) {
	prefix := byte('R')
	if fp {
		prefix = 'F'
	}
	if len(tok) < 2 || (tok[0] != prefix && tok[0] != prefix+'a'-'A') {
		return 0, fmt.Errorf("malformed register operand: %s", tok)
	}
	n, err := strconv.ParseUint(tok[1:], 10, 8)
	if err != nil || n >= 32 {
		return 0, fmt.Errorf("malformed register operand: %s", tok)
	}
	return uint8(n), nil
}

// parseImm parses an immediate, accepting decimal and 0x-prefixed hex.
func parseImm(tok string) (uint32, error) {
	n, err := strconv.ParseUint(tok, 0, 32)
	if err != nil {
		// Negative immediates wrap to their two's-complement pattern.
		s, serr := strconv.ParseInt(tok, 0, 32)
		if serr != nil {
			return 0, fmt.Errorf("malformed immediate: %s", tok)
		}
		return uint32(s), nil
	}
	return uint32(n), nil
}

// parseMemOperand parses an "imm(Rs)" addressing operand and returns the
// offset and the base register index.
func parseMemOperand(tok string) (uint32, uint8, error) {
	open := strings.IndexByte(tok, '(')
	if open < 0 || !strings.HasSuffix(tok, ")") {
		return 0, 0, fmt.Errorf("malformed memory operand: %s", tok)
	}
	imm, err := parseImm(tok[:open])
	if err != nil {
		return 0, 0, err
	}
	base, err := parseReg(tok[open+1:len(tok)-1], false)
	if err != nil {
		return 0, 0, err
	}
	return imm, base, nil
}

// resolveLabels rewrites branch and jump immediates to NPC-relative byte
// offsets using the label table.
func (p *Program) resolveLabels() error {
	for i := range p.Insts {
		inst := &p.Insts[i]
		if !inst.Op.IsBranch() {
			continue
		}
		target, ok := p.Labels[inst.Label]
		if !ok {
			return fmt.Errorf("undefined label: %s", inst.Label)
		}
		inst.Imm = uint32((target - i - 1) << 2)
	}
	return nil
}
