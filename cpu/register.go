// Copyright 2017-2026 Karel Mozdren. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpu

// Registers contains the state of all Sophia8 registers.
type Registers struct {
	R  [8]byte // general purpose registers R0..R7
	IP uint16  // instruction pointer
	SP uint16  // stack pointer
	BP uint16  // stack frame pointer
	C  bool    // carry flag
}

// Wire codes identifying registers in operand bytes.
const (
	CodeR0 byte = 0xF2
	CodeR1 byte = 0xF3
	CodeR2 byte = 0xF4
	CodeR3 byte = 0xF5
	CodeR4 byte = 0xF6
	CodeR5 byte = 0xF7
	CodeR6 byte = 0xF8
	CodeR7 byte = 0xF9
	CodeIP byte = 0xFA
	CodeSP byte = 0xFB
	CodeBP byte = 0xFC
)

// A RegClass distinguishes the 8-bit general purpose registers from the
// 16-bit special registers.
type RegClass byte

// Register classes returned by DecodeReg.
const (
	RegGpr RegClass = iota // R0..R7
	RegIP
	RegSP
	RegBP
)

// A RegRef is a decoded register operand byte.
type RegRef struct {
	Class RegClass
	Index int // general purpose register index, valid when Class == RegGpr
}

// DecodeReg decodes a register operand byte into a tagged register
// reference. It returns false for bytes outside the register code range.
func DecodeReg(code byte) (RegRef, bool) {
	switch {
	case code >= CodeR0 && code <= CodeR7:
		return RegRef{Class: RegGpr, Index: int(code - CodeR0)}, true
	case code == CodeIP:
		return RegRef{Class: RegIP}, true
	case code == CodeSP:
		return RegRef{Class: RegSP}, true
	case code == CodeBP:
		return RegRef{Class: RegBP}, true
	default:
		return RegRef{}, false
	}
}

// EncodeGpr returns the wire code for general purpose register index i.
func EncodeGpr(i int) byte {
	return CodeR0 + byte(i)
}

// Name returns the assembler-level name of the referenced register.
func (r RegRef) Name() string {
	switch r.Class {
	case RegIP:
		return "IP"
	case RegSP:
		return "SP"
	case RegBP:
		return "BP"
	default:
		return gprNames[r.Index]
	}
}

var gprNames = [8]string{"R0", "R1", "R2", "R3", "R4", "R5", "R6", "R7"}

func boolToByte(v bool) byte {
	if v {
		return 1
	}
	return 0
}

// Init initializes all registers to their power-on values. The stack and
// frame pointers start at the top of memory; everything else is zero.
func (r *Registers) Init() {
	for i := range r.R {
		r.R[i] = 0
	}
	r.IP = 0
	r.SP = MemSize
	r.BP = MemSize
	r.C = false
}
