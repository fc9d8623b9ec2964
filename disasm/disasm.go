// Copyright 2017-2026 Karel Mozdren. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package disasm implements a Sophia8 instruction set disassembler.
package disasm

import (
	"fmt"
	"strings"

	"github.com/mozdren/sophia8/cpu"
)

// Disassemble the machine code in memory 'm' at address 'addr'. Return a
// 'line' string representing the disassembled instruction and a 'next'
// address that starts the following line of machine code. An undefined
// opcode disassembles as a single raw byte.
func Disassemble(m *cpu.Memory, addr uint16) (line string, next uint16) {
	opcode := m.LoadByte(addr)
	inst := cpu.GetInstructionSet().Lookup(opcode)
	if inst == nil {
		return fmt.Sprintf(".byte 0x%02X", opcode), addr + 1
	}

	ops := make([]string, 0, len(inst.Operands))
	off := addr + 1
	for _, kind := range inst.Operands {
		switch kind {
		case cpu.Addr16:
			v := uint16(m.LoadByte(off))<<8 | uint16(m.LoadByte(off+1))
			ops = append(ops, fmt.Sprintf("0x%04X", v))
			off += 2
		case cpu.Imm8:
			ops = append(ops, fmt.Sprintf("#0x%02X", m.LoadByte(off)))
			off++
		case cpu.Gpr, cpu.AnyReg:
			b := m.LoadByte(off)
			if r, ok := cpu.DecodeReg(b); ok {
				ops = append(ops, r.Name())
			} else {
				ops = append(ops, fmt.Sprintf("?0x%02X", b))
			}
			off++
		}
	}

	line = inst.Name
	if len(ops) > 0 {
		line += " " + strings.Join(ops, ", ")
	}
	return line, addr + uint16(inst.Length)
}
