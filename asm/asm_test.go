// Copyright 2017-2026 Karel Mozdren. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"bytes"
	"strings"
	"testing"

	"github.com/retroenv/retrogolib/assert"
)

func assemble(t *testing.T, src string) *Assembly {
	t.Helper()
	a, err := Assemble(LinesFromString(src, "test.s8"), nil, 0)
	assert.NoError(t, err)
	return a
}

func assembleErr(t *testing.T, src string, want string) {
	t.Helper()
	_, err := Assemble(LinesFromString(src, "test.s8"), nil, 0)
	if err == nil {
		t.Fatalf("expected error containing %q, got none", want)
	}
	if !strings.Contains(err.Error(), want) {
		t.Fatalf("expected error containing %q, got %q", want, err.Error())
	}
}

// checkBytes verifies an exact byte sequence at an image address.
func checkBytes(t *testing.T, image []byte, addr int, want ...byte) {
	t.Helper()
	got := image[addr : addr+len(want)]
	if !bytes.Equal(got, want) {
		t.Errorf("image[%04X]: got % 02X, want % 02X", addr, got, want)
	}
}

func TestBasicProgram(t *testing.T) {
	a := assemble(t, `
.org 0x0003
SET #0x0A, R0
STORE R0, 0x1234
HALT
`)

	if len(a.Image) != 0xFFFF {
		t.Fatalf("image length %d, want %d", len(a.Image), 0xFFFF)
	}
	checkBytes(t, a.Image, 0x0000, 0x07, 0x00, 0x03)
	checkBytes(t, a.Image, 0x0003, 0x04, 0x0A, 0xF2)
	checkBytes(t, a.Image, 0x0006, 0x02, 0xF2, 0x12, 0x34)
	checkBytes(t, a.Image, 0x000A, 0x00)
	assert.Equal(t, uint16(0x0003), a.Entry)
}

func TestEntryMarker(t *testing.T) {
	a := assemble(t, `
.org 0x0003
NOP
NOP
.org
HALT
`)

	assert.Equal(t, uint16(0x0005), a.Entry)
	checkBytes(t, a.Image, 0x0000, 0x07, 0x00, 0x05)
	checkBytes(t, a.Image, 0x0003, 0xFF, 0xFF, 0x00)
}

func TestJumpToLabel(t *testing.T) {
	a := assemble(t, `
.org 0x0010
JMP target
NOP
target: HALT
`)

	// JMP is 3 bytes, NOP 1, so target sits at 0x0014.
	checkBytes(t, a.Image, 0x0010, 0x07, 0x00, 0x14)
	checkBytes(t, a.Image, 0x0014, 0x00)
}

func TestEncodings(t *testing.T) {
	a := assemble(t, `
.org 0x0003
LOAD 0x1A2B, R1
STORER R0, R1, R2
LOADR R3, R4, R5
CMP R6, #0x10
CMPR R0, R7
JZ R1, 0x2000
JNZ R2, 0x2001
JC 0x2002
JNC 0x2003
ADD #0x01, R0
ADDR R1, R2
PUSH SP
POP BP
CALL 0x3000
RET
SUB #0x02, R3
SUBR R4, R5
MUL #0x03, R0, R1
MULR R2, R3, R4
DIV #0x04, R5, R6
DIVR R7, R0, R1
SHL #0x01, R2
SHR #0x02, R3
INC R4
DEC R5
`)

	want := []byte{
		0x01, 0x1A, 0x2B, 0xF3,
		0x03, 0xF2, 0xF3, 0xF4,
		0x1C, 0xF5, 0xF6, 0xF7,
		0x08, 0xF8, 0x10,
		0x09, 0xF2, 0xF9,
		0x0A, 0xF3, 0x20, 0x00,
		0x0B, 0xF4, 0x20, 0x01,
		0x0C, 0x20, 0x02,
		0x0D, 0x20, 0x03,
		0x0E, 0x01, 0xF2,
		0x0F, 0xF3, 0xF4,
		0x10, 0xFB,
		0x11, 0xFC,
		0x12, 0x30, 0x00,
		0x13,
		0x14, 0x02, 0xF5,
		0x15, 0xF6, 0xF7,
		0x16, 0x03, 0xF2, 0xF3,
		0x17, 0xF4, 0xF5, 0xF6,
		0x18, 0x04, 0xF7, 0xF8,
		0x19, 0xF9, 0xF2, 0xF3,
		0x1A, 0x01, 0xF4,
		0x1B, 0x02, 0xF5,
		0x05, 0xF6,
		0x06, 0xF7,
	}
	checkBytes(t, a.Image, 0x0003, want...)
}

func TestDataDirectives(t *testing.T) {
	a := assemble(t, `
.org 0x0100
bytes: .byte 0x01, 0b10, 3,
words: .word 0x1234, bytes, 10
text:  .string "Hi\n"
`)

	checkBytes(t, a.Image, 0x0100, 0x01, 0x02, 0x03)
	checkBytes(t, a.Image, 0x0103, 0x12, 0x34, 0x01, 0x00, 0x00, 0x0A)
	checkBytes(t, a.Image, 0x0109, 'H', 'i', 0x0A, 0x00)
}

func TestStringEscapes(t *testing.T) {
	a := assemble(t, `
.org 0x0200
.string "a\\\"\n\r\t\0\x41"
`)

	checkBytes(t, a.Image, 0x0200, 'a', '\\', '"', 0x0A, 0x0D, 0x09, 0x00, 0x41, 0x00)
}

func TestChainedLabels(t *testing.T) {
	a := assemble(t, `
.org 0x0003
first: second: HALT
JMP first
JMP second
`)

	checkBytes(t, a.Image, 0x0004, 0x07, 0x00, 0x03, 0x07, 0x00, 0x03)
}

func TestLayoutErrors(t *testing.T) {
	assembleErr(t, ".org 0x0003\nx: HALT\nx: HALT\n", "duplicate label 'x'")
	assembleErr(t, "HALT\n", "no .org found")
	assembleErr(t, ".org 0x0002\nHALT\n", ".org must be >= 0x0003")
	assembleErr(t, ".org 0x10000\nHALT\n", ".org out of 16-bit range")
	assembleErr(t, ".org 0x0003\n.org\n.org\nHALT\n", ".org (no operand) may appear only once")
	assembleErr(t, ".org start\nstart: HALT\n", "numeric literal")
	assembleErr(t, ".org 0x0003\n.data 1\n", "unknown directive '.data'")
	assembleErr(t, ".org 0x0003\nMOV R0, R1\n", "unknown instruction 'MOV'")
	assembleErr(t, ".org 0x0003\nSET #0x01\n", "SET expects 2 operand(s)")
}

func TestEmissionErrors(t *testing.T) {
	assembleErr(t, ".org 0x0003\nJMP missing\n", "undefined label 'missing'")
	assembleErr(t, ".org 0x0003\nJMP #0x0003\n", "must not start with '#'")
	assembleErr(t, ".org 0x0003\nSET 0x01, R0\n", "immediate operand must start with '#'")
	assembleErr(t, ".org 0x0003\nSET #0x100, R0\n", "immediate out of 8-bit range")
	assembleErr(t, ".org 0x0003\nSET #0x01, SP\n", "must be R0..R7")
	assembleErr(t, ".org 0x0003\nPUSH R9\n", "invalid register 'R9'")
	assembleErr(t, ".org 0x0003\n.byte label\nlabel: HALT\n", ".byte does not allow labels")
	assembleErr(t, ".org 0x0003\n.byte #0x01\n", ".byte elements must not use '#'")
	assembleErr(t, ".org 0x0003\n.byte 0x100\n", ".byte value out of 8-bit range")
	assembleErr(t, ".org 0x0003\n.word 0x10000\n", ".word value out of 16-bit range")
	assembleErr(t, ".org 0x0003\n.string \"\\q\"\n", "unknown escape")
	assembleErr(t, ".org 0x0003\n.string \"caf\xc3\xa9\"\n", "non-ASCII")
}

func TestOverlapDetected(t *testing.T) {
	assembleErr(t, `
.org 0x0010
HALT
.org 0x0010
HALT
`, "overlap at 0x0010")
}

func TestEmissionPastMemoryEnd(t *testing.T) {
	// The stub cells 0x0000..0x0002 are reserved and .org cannot reach
	// them, so no source can overlap the stub; emission running past 0xFFFE
	// does not wrap around to it but is rejected during layout.
	assembleErr(t, `
.org 0xFFFE
.byte 1, 2
`, "exceeds MEM_SIZE")
}

func TestRecordsMatchImage(t *testing.T) {
	a := assemble(t, `
.org 0x0100
msg: .string "ok"
.org
start: SET #0x01, R0
HALT
`)

	seen := make(map[int]bool)
	for _, r := range a.Records {
		for i, b := range r.Bytes {
			addr := int(r.Addr) + i
			assert.Equal(t, a.Image[addr], b)
			if seen[addr] {
				t.Fatalf("debug records overlap at %04X", addr)
			}
			seen[addr] = true
		}
	}

	// One record must be the implicit stub.
	found := false
	for _, r := range a.Records {
		if r.File == ImplicitFile {
			found = true
			assert.Equal(t, uint16(0), r.Addr)
			assert.Equal(t, 0, r.Line)
			assert.Equal(t, "JMP <entry>", r.Text)
		}
	}
	assert.True(t, found)
}

func TestDeterministicEncoding(t *testing.T) {
	src := `
.org 0x0003
loop: ADD #0x01, R0
JNZ R0, loop
HALT
`
	a1 := assemble(t, src)
	a2 := assemble(t, src)
	if !bytes.Equal(a1.Image, a2.Image) {
		t.Fatal("assembly is not deterministic")
	}
}

// Assembling the preprocessed sidecar must reproduce the image exactly and
// the debug records modulo file name and line changes.
func TestPreprocessedRoundTrip(t *testing.T) {
	a := assemble(t, `
.org 0x0100
msg: .string "round trip"
.org 0x0003
.org
start: SET #0x2A, R0
STORE R0, 0x0180
loop: DEC R0
JNZ R0, loop
HALT
`)

	var pre bytes.Buffer
	assert.NoError(t, a.WritePreprocessed(&pre))

	b, err := Assemble(LinesFromString(pre.String(), "roundtrip.pre.s8"), nil, 0)
	assert.NoError(t, err)

	if !bytes.Equal(a.Image, b.Image) {
		t.Fatal("round-tripped image differs")
	}
	assert.Equal(t, len(a.Records), len(b.Records))
	for i := range a.Records {
		assert.Equal(t, a.Records[i].Kind, b.Records[i].Kind)
		assert.Equal(t, a.Records[i].Addr, b.Records[i].Addr)
		if !bytes.Equal(a.Records[i].Bytes, b.Records[i].Bytes) {
			t.Fatalf("record %d bytes differ", i)
		}
	}
}
