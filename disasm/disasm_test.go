// Copyright 2017-2026 Karel Mozdren. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package disasm_test

import (
	"testing"

	"github.com/retroenv/retrogolib/assert"

	"github.com/mozdren/sophia8/cpu"
	"github.com/mozdren/sophia8/disasm"
)

func TestDisassemble(t *testing.T) {
	tests := []struct {
		bytes []byte
		want  string
		next  uint16
	}{
		{[]byte{0x00}, "HALT", 1},
		{[]byte{0xFF}, "NOP", 1},
		{[]byte{0x04, 0x0A, 0xF2}, "SET #0x0A, R0", 3},
		{[]byte{0x02, 0xF2, 0x12, 0x34}, "STORE R0, 0x1234", 4},
		{[]byte{0x01, 0x1A, 0x2B, 0xF3}, "LOAD 0x1A2B, R1", 4},
		{[]byte{0x07, 0xAB, 0xCD}, "JMP 0xABCD", 3},
		{[]byte{0x0A, 0xF9, 0x00, 0x10}, "JZ R7, 0x0010", 4},
		{[]byte{0x10, 0xFB}, "PUSH SP", 2},
		{[]byte{0x11, 0xFC}, "POP BP", 2},
		{[]byte{0x17, 0xF2, 0xF3, 0xF4}, "MULR R0, R1, R2", 4},
		{[]byte{0xEE}, ".byte 0xEE", 1},
	}

	for _, tt := range tests {
		m := cpu.NewMemory()
		for i, b := range tt.bytes {
			m.StoreByte(uint16(0x0100+i), b)
		}
		line, next := disasm.Disassemble(m, 0x0100)
		assert.Equal(t, tt.want, line)
		assert.Equal(t, uint16(0x0100)+tt.next, next)
	}
}
