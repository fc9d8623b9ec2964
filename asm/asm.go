// Copyright 2017-2026 Karel Mozdren. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package asm implements the Sophia8 two-pass assembler. The assembler
// consumes a preprocessed source line stream and produces a full memory
// image, a preprocessed source dump, and a debug map linking every emitted
// byte back to its source line.
package asm

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mozdren/sophia8/cpu"
)

const (
	// memSize is the image size; valid emission addresses are below it.
	memSize = cpu.MemSize

	// entryStart is the first address available to user code. The three
	// bytes below it hold the implicit entry stub.
	entryStart = 0x0003
)

// Option type used by the Assemble function.
type Option uint

// Options for the Assemble function.
const (
	Verbose Option = 1 << iota // verbose output during assembly
)

// An Assembly is the result of a successful assembly run.
type Assembly struct {
	Image   []byte        // full memory image, exactly 0xFFFF bytes
	Entry   uint16        // resolved entry address
	Records []DebugRecord // one debug record per emitted item
	Lines   []SourceLine  // preprocessed source, for the .pre.s8 sidecar
}

type itemKind byte

const (
	itemDirective itemKind = iota
	itemInstruction
)

// An item is one assembler-level unit of emission produced by pass 1: a
// directive or an instruction with a known size and address.
type item struct {
	kind itemKind
	name string
	ops  []string
	addr uint16
	size int
	src  SourceLine
}

// register wire codes by assembler name.
var regCodes = map[string]byte{
	"R0": cpu.CodeR0, "R1": cpu.CodeR1, "R2": cpu.CodeR2, "R3": cpu.CodeR3,
	"R4": cpu.CodeR4, "R5": cpu.CodeR5, "R6": cpu.CodeR6, "R7": cpu.CodeR7,
	"IP": cpu.CodeIP, "SP": cpu.CodeSP, "BP": cpu.CodeBP,
}

func isGprName(tok string) bool {
	return len(tok) == 2 && tok[0] == 'R' && tok[1] >= '0' && tok[1] <= '7'
}

type directiveFunc func(a *assembler, rest string, sl SourceLine) error

var directives map[string]directiveFunc

func init() {
	directives = map[string]directiveFunc{
		".org":    (*assembler).parseOrg,
		".byte":   (*assembler).parseByteDir,
		".word":   (*assembler).parseWordDir,
		".string": (*assembler).parseStringDir,
		// .include lines are consumed by the preprocessor; one surviving
		// into the assembler means the line stream was built by hand.
		".include": (*assembler).parseStrayInclude,
	}
}

// The assembler is the state object used while translating a preprocessed
// line stream into a memory image.
type assembler struct {
	lines   []SourceLine
	instSet *cpu.InstructionSet

	sym   map[string]uint16 // label -> address
	items []item            // emission units in source order

	lc            uint32 // location counter
	anyOrg        bool   // at least one .org of either form seen
	entryMarked   bool   // bare .org seen
	entryMarkAddr uint16 // LC at the bare .org
	firstOrg      uint16 // address of the first .org <lit>
	haveFirstOrg  bool

	img     []byte
	used    []bool
	records []DebugRecord

	out     io.Writer // sink for verbose output
	verbose bool
}

// Assemble translates a preprocessed line stream into a memory image and
// debug records. The first error encountered aborts the assembly.
func Assemble(lines []SourceLine, out io.Writer, options Option) (*Assembly, error) {
	if out == nil {
		out = os.Stdout
	}

	a := &assembler{
		lines:   lines,
		instSet: cpu.GetInstructionSet(),
		sym:     make(map[string]uint16),
		lc:      entryStart,
		out:     out,
		verbose: options&Verbose != 0,
	}

	steps := []func(a *assembler) error{
		(*assembler).layout,       // pass 1: labels and location counters
		(*assembler).resolveEntry, // determine the entry address
		(*assembler).generate,     // pass 2: emit bytes and debug records
	}
	for _, step := range steps {
		if err := step(a); err != nil {
			return nil, err
		}
	}

	entry := a.entryAddress()
	return &Assembly{
		Image:   a.img,
		Entry:   entry,
		Records: a.records,
		Lines:   lines,
	}, nil
}

// AssembleFile preprocesses and assembles the source file at path.
func AssembleFile(path string, out io.Writer, options Option) (*Assembly, error) {
	lines, err := Preprocess(path)
	if err != nil {
		return nil, err
	}
	return Assemble(lines, out, options)
}

// layout is pass 1: peel labels, classify each statement, assign location
// counters and item sizes.
func (a *assembler) layout() error {
	a.logSection("Laying out items")

	for _, sl := range a.lines {
		code := strings.TrimSpace(stripComment(sl.Text))
		if code == "" {
			continue
		}

		// Peel "label:" prefixes, possibly chained.
		for {
			pos := strings.IndexByte(code, ':')
			if pos < 0 {
				break
			}
			lab := strings.TrimSpace(code[:pos])
			if !isIdent(lab) {
				break
			}
			if _, dup := a.sym[lab]; dup {
				return errLine(sl, "duplicate label '%s'", lab)
			}
			a.sym[lab] = uint16(a.lc)
			a.logLine(sl, "label=%s addr=$%04X", lab, a.lc)
			code = strings.TrimSpace(code[pos+1:])
			if code == "" {
				break
			}
		}
		if code == "" {
			continue
		}

		var err error
		if code[0] == '.' {
			err = a.parseDirective(code, sl)
		} else {
			err = a.parseInstruction(code, sl)
		}
		if err != nil {
			return err
		}

		if a.lc > memSize {
			return errLine(sl, "assembly exceeds MEM_SIZE (0xFFFF bytes)")
		}
	}

	if !a.anyOrg {
		sl := SourceLine{}
		if len(a.lines) > 0 {
			sl = a.lines[0]
		}
		return errLine(sl, "no .org found (mandatory; use .org <addr> and/or .org)")
	}
	return nil
}

func (a *assembler) resolveEntry() error {
	if !a.entryMarked && !a.haveFirstOrg {
		sl := SourceLine{}
		if len(a.lines) > 0 {
			sl = a.lines[0]
		}
		return errLine(sl, "no .org <addr> found and no .org entry marker present")
	}
	a.log("entry=$%04X", a.entryAddress())
	return nil
}

func (a *assembler) entryAddress() uint16 {
	if a.entryMarked {
		return a.entryMarkAddr
	}
	return a.firstOrg
}

// parseDirective dispatches a statement beginning with '.'.
func (a *assembler) parseDirective(code string, sl SourceLine) error {
	name := code
	rest := ""
	if i := strings.IndexAny(code, " \t"); i >= 0 {
		name, rest = code[:i], strings.TrimSpace(code[i+1:])
	}
	fn, ok := directives[name]
	if !ok {
		return errLine(sl, "unknown directive '%s'", name)
	}
	return fn(a, rest, sl)
}

// parseOrg handles both forms of the .org directive: with a literal it
// moves the location counter, without one it marks the entry point.
func (a *assembler) parseOrg(rest string, sl SourceLine) error {
	ops := splitOperands(rest)
	a.anyOrg = true

	switch len(ops) {
	case 0:
		if a.entryMarked {
			return errLine(sl, ".org (no operand) may appear only once")
		}
		a.entryMarked = true
		a.entryMarkAddr = uint16(a.lc)
		a.items = append(a.items, item{kind: itemDirective, name: ".org", addr: uint16(a.lc), src: sl})
		a.logLine(sl, "entry mark at $%04X", a.lc)
		return nil

	case 1:
		op := ops[0]
		if op[0] == '#' {
			return errLine(sl, ".org operand must not use '#'")
		}
		if isIdent(op) {
			return errLine(sl, ".org operand must be a numeric literal (labels not allowed)")
		}
		addr, err := parseIntLiteral(op)
		if err != nil {
			return errLine(sl, "invalid .org address literal: %s", op)
		}
		if addr > 0xFFFF {
			return errLine(sl, ".org out of 16-bit range")
		}
		if addr < entryStart {
			return errLine(sl, ".org must be >= 0x0003")
		}
		if !a.haveFirstOrg {
			a.firstOrg = uint16(addr)
			a.haveFirstOrg = true
		}
		a.lc = addr
		a.items = append(a.items, item{kind: itemDirective, name: ".org", ops: ops, addr: uint16(a.lc), src: sl})
		a.logLine(sl, "lc=$%04X", a.lc)
		return nil

	default:
		return errLine(sl, ".org expects 0 or 1 operand")
	}
}

func (a *assembler) parseByteDir(rest string, sl SourceLine) error {
	ops := splitOperands(rest)
	if len(ops) == 0 {
		return errLine(sl, ".byte requires at least 1 operand")
	}
	a.items = append(a.items, item{kind: itemDirective, name: ".byte", ops: ops, addr: uint16(a.lc), size: len(ops), src: sl})
	a.lc += uint32(len(ops))
	return nil
}

func (a *assembler) parseWordDir(rest string, sl SourceLine) error {
	ops := splitOperands(rest)
	if len(ops) == 0 {
		return errLine(sl, ".word requires at least 1 operand")
	}
	a.items = append(a.items, item{kind: itemDirective, name: ".word", ops: ops, addr: uint16(a.lc), size: len(ops) * 2, src: sl})
	a.lc += uint32(len(ops)) * 2
	return nil
}

func (a *assembler) parseStringDir(rest string, sl SourceLine) error {
	if rest == "" {
		return errLine(sl, ".string expects a quoted string operand")
	}
	bytes, err := decodeString(rest, sl)
	if err != nil {
		return err
	}
	size := len(bytes) + 1 // implicit NUL terminator
	a.items = append(a.items, item{kind: itemDirective, name: ".string", ops: []string{rest}, addr: uint16(a.lc), size: size, src: sl})
	a.lc += uint32(size)
	return nil
}

func (a *assembler) parseStrayInclude(rest string, sl SourceLine) error {
	return errLine(sl, "unexpected .include after preprocessing")
}

// parseInstruction sizes an instruction statement using the instruction
// table; operands are validated during emission.
func (a *assembler) parseInstruction(code string, sl SourceLine) error {
	mnem := code
	rest := ""
	if i := strings.IndexAny(code, " \t"); i >= 0 {
		mnem, rest = code[:i], strings.TrimSpace(code[i+1:])
	}

	inst := a.instSet.ByName(mnem)
	if inst == nil {
		return errLine(sl, "unknown instruction '%s'", mnem)
	}

	ops := splitOperands(rest)
	if len(ops) != len(inst.Operands) {
		return errLine(sl, "%s expects %d operand(s)", mnem, len(inst.Operands))
	}

	a.items = append(a.items, item{kind: itemInstruction, name: mnem, ops: ops, addr: uint16(a.lc), size: int(inst.Length), src: sl})
	a.logLine(sl, "%04X  %s len=%d", a.lc, mnem, inst.Length)
	a.lc += uint32(inst.Length)
	return nil
}

// generate is pass 2: encode every item into the image, tracking byte
// ownership so overlapping emissions fail, and produce debug records.
func (a *assembler) generate() error {
	a.logSection("Generating code")

	a.img = make([]byte, memSize)
	a.used = make([]bool, memSize)

	// The entry stub cells are pre-reserved and exempt from the overlap
	// check applied to user emissions.
	a.used[0], a.used[1], a.used[2] = true, true, true

	for i := range a.items {
		it := &a.items[i]
		var err error
		switch {
		case it.kind == itemDirective && it.name == ".org":
			continue
		case it.kind == itemDirective:
			err = a.generateData(it)
		default:
			err = a.generateInstruction(it)
		}
		if err != nil {
			return err
		}
	}

	entry := a.entryAddress()
	stub := []byte{a.instSet.ByName("JMP").Opcode, byte(entry >> 8), byte(entry)}
	copy(a.img[0:3], stub)
	a.records = append(a.records, DebugRecord{
		Kind:  RecordCode,
		Addr:  0x0000,
		Bytes: stub,
		File:  ImplicitFile,
		Line:  0,
		Text:  "JMP <entry>",
	})
	a.logBytes(0x0000, stub)
	return nil
}

// emitByte writes one byte into the image, failing on out-of-range or
// already-owned cells.
func (a *assembler) emitByte(addr uint32, v byte, sl SourceLine) error {
	if addr >= memSize {
		return errLine(sl, "emit address out of range: 0x%04X", addr)
	}
	if a.used[addr] {
		return errLine(sl, "overlap at 0x%04X", addr)
	}
	a.img[addr] = v
	a.used[addr] = true
	return nil
}

func (a *assembler) emitSpan(it *item, span []byte, kind RecordKind) error {
	addr := uint32(it.addr)
	for _, b := range span {
		if err := a.emitByte(addr, b, it.src); err != nil {
			return err
		}
		addr++
	}
	a.records = append(a.records, DebugRecord{
		Kind:  kind,
		Addr:  it.addr,
		Bytes: span,
		File:  it.src.File,
		Line:  it.src.Line,
		Text:  it.src.Text,
	})
	a.logBytes(uint32(it.addr), span)
	return nil
}

func (a *assembler) generateData(it *item) error {
	var span []byte

	switch it.name {
	case ".byte":
		for _, op := range it.ops {
			if op[0] == '#' {
				return errLine(it.src, ".byte elements must not use '#'")
			}
			if isIdent(op) {
				return errLine(it.src, ".byte does not allow labels")
			}
			v, err := parseIntLiteral(op)
			if err != nil {
				return errLine(it.src, "invalid .byte literal: %s", op)
			}
			if v > 0xFF {
				return errLine(it.src, ".byte value out of 8-bit range: %s", op)
			}
			span = append(span, byte(v))
		}

	case ".word":
		for _, op := range it.ops {
			if op[0] == '#' {
				return errLine(it.src, ".word elements must not use '#'")
			}
			var v uint32
			if isIdent(op) {
				addr, ok := a.sym[op]
				if !ok {
					return errLine(it.src, "undefined label '%s'", op)
				}
				v = uint32(addr)
			} else {
				parsed, err := parseIntLiteral(op)
				if err != nil {
					return errLine(it.src, "invalid .word literal: %s", op)
				}
				if parsed > 0xFFFF {
					return errLine(it.src, ".word value out of 16-bit range: %s", op)
				}
				v = parsed
			}
			span = append(span, byte(v>>8), byte(v))
		}

	case ".string":
		bytes, err := decodeString(it.ops[0], it.src)
		if err != nil {
			return err
		}
		span = append(bytes, 0x00)

	default:
		return errLine(it.src, "unknown directive '%s'", it.name)
	}

	return a.emitSpan(it, span, RecordData)
}

// generateInstruction encodes one instruction. Operand bytes follow the
// textual operand order on the wire; 16-bit fields are big-endian.
func (a *assembler) generateInstruction(it *item) error {
	inst := a.instSet.ByName(it.name)
	if inst == nil {
		return errLine(it.src, "unknown instruction '%s'", it.name)
	}

	span := make([]byte, 0, inst.Length)
	span = append(span, inst.Opcode)

	for i, kind := range inst.Operands {
		op := it.ops[i]
		switch kind {
		case cpu.Addr16:
			v, err := a.resolveAddr16(op, it.src)
			if err != nil {
				return err
			}
			span = append(span, byte(v>>8), byte(v))

		case cpu.Imm8:
			v, err := resolveImm8(op, it.src)
			if err != nil {
				return err
			}
			span = append(span, v)

		case cpu.Gpr, cpu.AnyReg:
			code, err := resolveReg(op, kind, it.src)
			if err != nil {
				return err
			}
			span = append(span, code)
		}
	}

	return a.emitSpan(it, span, RecordCode)
}

// resolveAddr16 resolves an address operand: a label or a numeric literal.
func (a *assembler) resolveAddr16(tok string, sl SourceLine) (uint16, error) {
	if tok == "" {
		return 0, errLine(sl, "empty address operand")
	}
	if tok[0] == '#' {
		return 0, errLine(sl, "address operand must not start with '#'")
	}
	if isIdent(tok) {
		addr, ok := a.sym[tok]
		if !ok {
			return 0, errLine(sl, "undefined label '%s'", tok)
		}
		return addr, nil
	}
	v, err := parseIntLiteral(tok)
	if err != nil {
		return 0, errLine(sl, "invalid address literal: %s", tok)
	}
	if v > 0xFFFF {
		return 0, errLine(sl, "address literal out of 16-bit range: %s", tok)
	}
	return uint16(v), nil
}

func resolveImm8(tok string, sl SourceLine) (byte, error) {
	if tok == "" {
		return 0, errLine(sl, "empty immediate operand")
	}
	if tok[0] != '#' {
		return 0, errLine(sl, "immediate operand must start with '#'")
	}
	v, err := parseIntLiteral(tok[1:])
	if err != nil {
		return 0, errLine(sl, "invalid immediate literal: %s", tok)
	}
	if v > 0xFF {
		return 0, errLine(sl, "immediate out of 8-bit range: %s", tok)
	}
	return byte(v), nil
}

func resolveReg(tok string, kind cpu.OperandKind, sl SourceLine) (byte, error) {
	code, ok := regCodes[tok]
	if !ok {
		return 0, errLine(sl, "invalid register '%s'", tok)
	}
	if kind == cpu.Gpr && !isGprName(tok) {
		return 0, errLine(sl, "register '%s' not allowed here (must be R0..R7)", tok)
	}
	return code, nil
}

// decodeString decodes a double-quoted .string operand. Permitted escapes
// are \\ \" \n \r \t \0 and \xHH; every decoded byte must be 7-bit ASCII.
func decodeString(quoted string, sl SourceLine) ([]byte, error) {
	if len(quoted) < 2 || quoted[0] != '"' || quoted[len(quoted)-1] != '"' {
		return nil, errLine(sl, `invalid .string syntax, expected: .string "text"`)
	}
	body := quoted[1 : len(quoted)-1]

	var out []byte
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c != '\\' {
			if c > 0x7F {
				return nil, errLine(sl, "non-ASCII character in .string (only 7-bit ASCII allowed)")
			}
			out = append(out, c)
			continue
		}

		i++
		if i >= len(body) {
			return nil, errLine(sl, "invalid escape at end of string")
		}
		switch body[i] {
		case '\\':
			out = append(out, '\\')
		case '"':
			out = append(out, '"')
		case 'n':
			out = append(out, 0x0A)
		case 'r':
			out = append(out, 0x0D)
		case 't':
			out = append(out, 0x09)
		case '0':
			out = append(out, 0x00)
		case 'x':
			if i+2 >= len(body) || !hexDigit(body[i+1]) || !hexDigit(body[i+2]) {
				return nil, errLine(sl, `invalid \xNN escape (needs two hex digits)`)
			}
			out = append(out, hexVal(body[i+1])<<4|hexVal(body[i+2]))
			i += 2
		default:
			return nil, errLine(sl, `unknown escape sequence: \%c`, body[i])
		}
	}

	for _, b := range out {
		if b > 0x7F {
			return nil, errLine(sl, "non-ASCII byte in .string (value > 0x7F)")
		}
	}
	return out, nil
}

// In verbose mode, log a string to the output sink.
func (a *assembler) log(format string, args ...any) {
	if a.verbose {
		fmt.Fprintf(a.out, format, args...)
		fmt.Fprintln(a.out)
	}
}

// In verbose mode, log a string and its associated line of assembly code.
func (a *assembler) logLine(sl SourceLine, format string, args ...any) {
	if a.verbose {
		detail := fmt.Sprintf(format, args...)
		fmt.Fprintf(a.out, "%-20s | %s:%d | %s\n", detail, sl.File, sl.Line, sl.Text)
	}
}

// In verbose mode, log a series of bytes with starting address.
func (a *assembler) logBytes(addr uint32, b []byte) {
	if a.verbose {
		for i, n := 0, len(b); i < n; i += 3 {
			j := i + 3
			if j > n {
				j = n
			}
			a.log("%04X-  %s", addr+uint32(i), byteString(b[i:j]))
		}
	}
}

// In verbose mode, log a section header.
func (a *assembler) logSection(name string) {
	if a.verbose {
		fmt.Fprintln(a.out, strings.Repeat("-", len(name)+6))
		fmt.Fprintf(a.out, "-- %s --\n", name)
		fmt.Fprintln(a.out, strings.Repeat("-", len(name)+6))
	}
}
