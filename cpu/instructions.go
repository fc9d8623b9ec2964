// Copyright 2017-2026 Karel Mozdren. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpu

// An OperandKind classifies one textual operand of an instruction.
type OperandKind byte

// Operand kinds accepted by the assembler.
const (
	Addr16 OperandKind = iota // 16-bit address literal or label, no '#'
	Imm8                      // '#'-prefixed 8-bit immediate
	Gpr                       // R0..R7
	AnyReg                    // R0..R7, IP, SP or BP
)

type instfunc func(vm *VM, inst *Instruction)

// An Instruction describes a single Sophia8 instruction: its mnemonic,
// opcode byte, fixed encoded length, and the operand kinds in the order
// they appear in source text.
type Instruction struct {
	Name     string
	Opcode   byte
	Length   byte
	Operands []OperandKind
	fn       instfunc
}

var instructions = []Instruction{
	{"HALT", 0x00, 1, nil, (*VM).halt},
	{"LOAD", 0x01, 4, []OperandKind{Addr16, Gpr}, (*VM).load},
	{"STORE", 0x02, 4, []OperandKind{Gpr, Addr16}, (*VM).store},
	{"STORER", 0x03, 4, []OperandKind{Gpr, Gpr, Gpr}, (*VM).storer},
	{"SET", 0x04, 3, []OperandKind{Imm8, Gpr}, (*VM).set},
	{"INC", 0x05, 2, []OperandKind{Gpr}, (*VM).inc},
	{"DEC", 0x06, 2, []OperandKind{Gpr}, (*VM).dec},
	{"JMP", 0x07, 3, []OperandKind{Addr16}, (*VM).jmp},
	{"CMP", 0x08, 3, []OperandKind{Gpr, Imm8}, (*VM).cmp},
	{"CMPR", 0x09, 3, []OperandKind{Gpr, Gpr}, (*VM).cmpr},
	{"JZ", 0x0A, 4, []OperandKind{Gpr, Addr16}, (*VM).jz},
	{"JNZ", 0x0B, 4, []OperandKind{Gpr, Addr16}, (*VM).jnz},
	{"JC", 0x0C, 3, []OperandKind{Addr16}, (*VM).jc},
	{"JNC", 0x0D, 3, []OperandKind{Addr16}, (*VM).jnc},
	{"ADD", 0x0E, 3, []OperandKind{Imm8, Gpr}, (*VM).add},
	{"ADDR", 0x0F, 3, []OperandKind{Gpr, Gpr}, (*VM).addr},
	{"PUSH", 0x10, 2, []OperandKind{AnyReg}, (*VM).push},
	{"POP", 0x11, 2, []OperandKind{AnyReg}, (*VM).pop},
	{"CALL", 0x12, 3, []OperandKind{Addr16}, (*VM).call},
	{"RET", 0x13, 1, nil, (*VM).ret},
	{"SUB", 0x14, 3, []OperandKind{Imm8, Gpr}, (*VM).sub},
	{"SUBR", 0x15, 3, []OperandKind{Gpr, Gpr}, (*VM).subr},
	{"MUL", 0x16, 4, []OperandKind{Imm8, Gpr, Gpr}, (*VM).mul},
	{"MULR", 0x17, 4, []OperandKind{Gpr, Gpr, Gpr}, (*VM).mulr},
	{"DIV", 0x18, 4, []OperandKind{Imm8, Gpr, Gpr}, (*VM).div},
	{"DIVR", 0x19, 4, []OperandKind{Gpr, Gpr, Gpr}, (*VM).divr},
	{"SHL", 0x1A, 3, []OperandKind{Imm8, Gpr}, (*VM).shl},
	{"SHR", 0x1B, 3, []OperandKind{Imm8, Gpr}, (*VM).shr},
	{"LOADR", 0x1C, 4, []OperandKind{Gpr, Gpr, Gpr}, (*VM).loadr},
	{"NOP", 0xFF, 1, nil, (*VM).nop},
}

// An InstructionSet provides lookup of Sophia8 instructions by mnemonic
// (for the assembler) and by opcode byte (for the VM and disassembler).
type InstructionSet struct {
	byName   map[string]*Instruction
	byOpcode [256]*Instruction
}

var instSet *InstructionSet

func init() {
	instSet = &InstructionSet{byName: make(map[string]*Instruction, len(instructions))}
	for i := range instructions {
		inst := &instructions[i]
		instSet.byName[inst.Name] = inst
		instSet.byOpcode[inst.Opcode] = inst
	}
}

// GetInstructionSet returns the Sophia8 instruction set.
func GetInstructionSet() *InstructionSet {
	return instSet
}

// Lookup returns the instruction with the requested opcode byte, or nil if
// the opcode is undefined.
func (s *InstructionSet) Lookup(opcode byte) *Instruction {
	return s.byOpcode[opcode]
}

// ByName returns the instruction with the requested mnemonic. Mnemonics are
// case-sensitive; unknown mnemonics return nil.
func (s *InstructionSet) ByName(name string) *Instruction {
	return s.byName[name]
}

// Instructions returns all instructions in the set, ordered by the table.
func (s *InstructionSet) Instructions() []Instruction {
	return instructions
}
