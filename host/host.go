// Copyright 2017-2026 Karel Mozdren. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package host implements an interactive monitor for the Sophia8 machine:
// a small debug shell with program loading, register and memory
// inspection, disassembly, stepping, and source-level breakpoints.
package host

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/beevik/cmd"

	"github.com/mozdren/sophia8/asm"
	"github.com/mozdren/sophia8/cpu"
	"github.com/mozdren/sophia8/disasm"
)

type state byte

const (
	stateProcessingCommands state = iota
	stateRunning
	stateBreakpoint
)

// A Host couples a Sophia8 VM with a command-driven monitor.
type Host struct {
	input       *bufio.Scanner
	output      *bufio.Writer
	interactive bool
	vm          *cpu.VM
	debugger    *cpu.Debugger
	debugMap    *asm.DebugMap
	lastCmd     *cmd.Selection
	state       state
	settings    *settings
}

// New creates a monitor around a fresh Sophia8 machine.
func New() *Host {
	h := &Host{
		vm:       cpu.New(),
		settings: newSettings(),
	}
	h.debugger = cpu.NewDebugger(h)
	h.vm.AttachDebugger(h.debugger)
	return h
}

// VM returns the machine driven by the monitor.
func (h *Host) VM() *cpu.VM {
	return h.vm
}

// AttachIO connects an MMIO device to the monitored machine.
func (h *Host) AttachIO(dev cpu.IODevice) {
	h.vm.AttachIO(dev)
}

// RunCommands accepts monitor commands from a reader and writes results to
// a writer. When interactive, a prompt is displayed before each command,
// and an empty line repeats the previous command.
func (h *Host) RunCommands(r io.Reader, w io.Writer, interactive bool) {
	h.input = bufio.NewScanner(r)
	h.output = bufio.NewWriter(w)
	h.interactive = interactive

	if interactive {
		h.println("Sophia8 monitor. Type 'help' for a list of commands.")
	}

	for {
		h.prompt()

		line, err := h.getLine()
		if err != nil {
			break
		}

		var c cmd.Selection
		if line != "" {
			c, err = cmds.Lookup(line)
			switch {
			case err == cmd.ErrNotFound:
				h.println("Command not found.")
				continue
			case err == cmd.ErrAmbiguous:
				h.println("Command is ambiguous.")
				continue
			case err != nil:
				h.printf("ERROR: %v.\n", err)
				continue
			}
		} else if h.lastCmd != nil {
			c = *h.lastCmd
		}

		if c.Command == nil {
			continue
		}
		h.lastCmd = &c

		handler := c.Command.Data.(func(*Host, cmd.Selection) error)
		if err := handler(h, c); err != nil {
			break
		}
	}

	h.flush()
}

// Break interrupts a running machine.
func (h *Host) Break() {
	h.vm.Stopped = true
	h.state = stateProcessingCommands
}

// OnBreakpoint implements cpu.BreakpointHandler.
func (h *Host) OnBreakpoint(vm *cpu.VM, b *cpu.Breakpoint) {
	h.state = stateBreakpoint
	vm.Stopped = true
	if b.File != "" {
		h.printf("Breakpoint hit at 0x%04X (%s:%d).\n", b.Address, b.File, b.Line)
	} else {
		h.printf("Breakpoint hit at 0x%04X.\n", b.Address)
	}
}

func (h *Host) printf(format string, args ...any) {
	fmt.Fprintf(h.output, format, args...)
	h.flush()
}

func (h *Host) println(args ...any) {
	fmt.Fprintln(h.output, args...)
	h.flush()
}

func (h *Host) flush() {
	h.output.Flush()
}

func (h *Host) getLine() (string, error) {
	if h.input.Scan() {
		return h.input.Text(), nil
	}
	if h.input.Err() != nil {
		return "", h.input.Err()
	}
	return "", io.EOF
}

func (h *Host) prompt() {
	if h.interactive {
		h.printf("* ")
	}
}

func (h *Host) displayIP() {
	line, _ := disasm.Disassemble(h.vm.Mem, h.vm.Reg.IP)
	h.printf("%04X-  %s\n", h.vm.Reg.IP, line)
}

func (h *Host) cmdHelp(c cmd.Selection) error {
	h.printf("%s", helpText)
	return nil
}

// Load loads a program file into the machine: a debug map with its
// referenced binary, a snapshot, or a raw image.
func (h *Host) Load(filename string) error {
	switch {
	case cpu.IsSnapshotFile(filename):
		return h.vm.LoadSnapshotFile(filename)

	case strings.HasSuffix(filename, ".deb"):
		dm, err := asm.LoadDebugMap(filename)
		if err != nil {
			return err
		}
		image, err := os.ReadFile(dm.Binary)
		if err != nil {
			return err
		}
		if err := h.vm.LoadImage(image); err != nil {
			return err
		}
		h.debugMap = dm
		return nil

	default:
		image, err := os.ReadFile(filename)
		if err != nil {
			return err
		}
		return h.vm.LoadImage(image)
	}
}

func (h *Host) cmdLoad(c cmd.Selection) error {
	if len(c.Args) < 1 {
		h.println("Usage: load <filename>")
		return nil
	}
	if err := h.Load(c.Args[0]); err != nil {
		h.printf("%v\n", err)
		return nil
	}
	h.printf("Loaded '%s'.\n", c.Args[0])
	return nil
}

func (h *Host) cmdRegisters(c cmd.Selection) error {
	h.println(h.vm.RegisterString())
	h.displayIP()
	return nil
}

func (h *Host) cmdDisassemble(c cmd.Selection) error {
	addr := h.settings.NextDisasmAddr
	if len(c.Args) > 0 {
		a, err := parseAddr(c.Args[0])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		addr = a
	}

	lines := h.settings.DisasmLinesToDisplay
	if len(c.Args) > 1 {
		n, err := parseCount(c.Args[1])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		lines = n
	}

	for i := 0; i < lines; i++ {
		line, next := disasm.Disassemble(h.vm.Mem, addr)
		h.printf("%04X-  %s\n", addr, line)
		addr = next
	}
	h.settings.NextDisasmAddr = addr
	return nil
}

func (h *Host) cmdBreakpointList(c cmd.Selection) error {
	h.println("Breakpoints:")
	for _, b := range h.debugger.GetBreakpoints() {
		disabled := ""
		if b.Disabled {
			disabled = " (disabled)"
		}
		if b.File != "" {
			h.printf("   0x%04X %s:%d%s\n", b.Address, b.File, b.Line, disabled)
		} else {
			h.printf("   0x%04X%s\n", b.Address, disabled)
		}
	}
	return nil
}

func (h *Host) cmdBreakpointAdd(c cmd.Selection) error {
	if len(c.Args) < 1 {
		h.println("Usage: breakpoint add <address | file:line>")
		return nil
	}

	arg := c.Args[0]
	if file, line, ok := parseFileLine(arg); ok {
		if h.debugMap == nil {
			h.println("No debug map loaded.")
			return nil
		}
		addr, err := h.debugMap.FindBreakpoint(file, line)
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		b := h.debugger.AddBreakpoint(addr)
		b.File, b.Line = file, line
		h.printf("Added breakpoint at 0x%04X (%s:%d).\n", addr, file, line)
		return nil
	}

	addr, err := parseAddr(arg)
	if err != nil {
		h.printf("%v\n", err)
		return nil
	}
	h.debugger.AddBreakpoint(addr)
	h.printf("Added breakpoint at 0x%04X.\n", addr)
	return nil
}

func (h *Host) cmdBreakpointRemove(c cmd.Selection) error {
	if len(c.Args) < 1 {
		h.println("Usage: breakpoint remove <address>")
		return nil
	}
	addr, err := parseAddr(c.Args[0])
	if err != nil {
		h.printf("%v\n", err)
		return nil
	}
	if h.debugger.GetBreakpoint(addr) == nil {
		h.printf("No breakpoint was set on 0x%04X.\n", addr)
		return nil
	}
	h.debugger.RemoveBreakpoint(addr)
	h.printf("Removed breakpoint at 0x%04X.\n", addr)
	return nil
}

func (h *Host) cmdMemoryDump(c cmd.Selection) error {
	addr := h.settings.NextMemDumpAddr
	if len(c.Args) > 0 {
		a, err := parseAddr(c.Args[0])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		addr = a
	}

	bytes := h.settings.MemDumpBytes
	if len(c.Args) > 1 {
		n, err := parseCount(c.Args[1])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		bytes = n
	}

	h.dumpMemory(addr, bytes)
	h.settings.NextMemDumpAddr = addr + uint16(bytes)
	return nil
}

func (h *Host) cmdMemorySet(c cmd.Selection) error {
	if len(c.Args) < 2 {
		h.println("Usage: memory set <address> <byte> [<byte> ...]")
		return nil
	}
	addr, err := parseAddr(c.Args[0])
	if err != nil {
		h.printf("%v\n", err)
		return nil
	}
	for _, arg := range c.Args[1:] {
		v, err := parseCount(arg)
		if err != nil || v > 0xFF {
			h.printf("invalid byte value '%s'\n", arg)
			return nil
		}
		h.vm.Mem.StoreByte(addr, byte(v))
		addr++
	}
	return nil
}

func (h *Host) cmdList(c cmd.Selection) error {
	if len(c.Args) < 1 {
		h.println("Usage: list <address>")
		return nil
	}
	if h.debugMap == nil {
		h.println("No debug map loaded.")
		return nil
	}
	addr, err := parseAddr(c.Args[0])
	if err != nil {
		h.printf("%v\n", err)
		return nil
	}
	rec := h.debugMap.Search(addr)
	if rec == nil {
		h.printf("No source mapping for 0x%04X.\n", addr)
		return nil
	}
	h.printf("%s:%d: %s\n", rec.File, rec.Line, rec.Text)
	return nil
}

func (h *Host) cmdRun(c cmd.Selection) error {
	h.state = stateRunning
	h.vm.Stopped = false
	h.vm.Run(nil)
	if h.state != stateBreakpoint {
		h.println(h.vm.RegisterString())
	}
	h.state = stateProcessingCommands
	return nil
}

func (h *Host) cmdStep(c cmd.Selection) error {
	count := 1
	if len(c.Args) > 0 {
		n, err := parseCount(c.Args[0])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		count = n
	}

	h.vm.Stopped = false
	for i := 0; i < count && !h.vm.Stopped; i++ {
		h.vm.Step()
	}
	h.println(h.vm.RegisterString())
	h.displayIP()
	return nil
}

func (h *Host) cmdSnapshot(c cmd.Selection) error {
	filename := "debug.img"
	if len(c.Args) > 0 {
		filename = c.Args[0]
	}
	if err := h.vm.SaveSnapshotFile(filename); err != nil {
		h.printf("%v\n", err)
		return nil
	}
	h.printf("Wrote snapshot '%s'.\n", filename)
	return nil
}

func (h *Host) cmdSet(c cmd.Selection) error {
	switch len(c.Args) {
	case 0:
		h.println("Variables:")
		h.settings.Display(h.output)
	case 2:
		v, err := parseCount(c.Args[1])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		if err := h.settings.Set(c.Args[0], v); err != nil {
			h.printf("%v\n", err)
		}
	default:
		h.println("Usage: set [<var> <value>]")
	}
	return nil
}

func (h *Host) cmdQuit(c cmd.Selection) error {
	return io.EOF
}
