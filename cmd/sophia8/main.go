// Copyright 2017-2026 Karel Mozdren. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package main implements the Sophia8 virtual machine CLI.
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/retroenv/retrogolib/app"
	"github.com/retroenv/retrogolib/buildinfo"
	"github.com/retroenv/retrogolib/log"

	"github.com/mozdren/sophia8/asm"
	"github.com/mozdren/sophia8/console"
	"github.com/mozdren/sophia8/cpu"
	"github.com/mozdren/sophia8/host"
)

var (
	version = "dev"
	commit  = ""
	date    = ""
)

// snapshotFile is where the machine state is written when a breakpoint
// hits, and what the resume invocations read.
const snapshotFile = "debug.img"

func main() {
	os.Exit(run(os.Args[1:]))
}

// breakHost reacts to breakpoint hits: print the registers, write a debug
// snapshot, stop the machine.
type breakHost struct {
	hit     bool
	snapErr error
}

func (h *breakHost) OnBreakpoint(vm *cpu.VM, b *cpu.Breakpoint) {
	h.hit = true
	if b.File != "" {
		fmt.Printf("BREAK at 0x%04x (%s:%d)\n", b.Address, b.File, b.Line)
	} else {
		fmt.Printf("BREAK at 0x%04x\n", b.Address)
	}
	fmt.Println(vm.RegisterString())
	h.snapErr = vm.SaveSnapshotFile(snapshotFile)
	vm.Stopped = true
}

func run(args []string) int {
	logger := createLogger()

	if len(args) > 0 && (args[0] == "-h" || args[0] == "--help") {
		printHelp()
		return 0
	}
	if len(args) > 0 && args[0] == "-i" {
		return runMonitor(args[1:], logger)
	}

	vm := cpu.New()
	bh := &breakHost{}
	debugger := cpu.NewDebugger(bh)
	vm.AttachDebugger(debugger)

	var dm *asm.DebugMap

	// Load the program per invocation variant: nothing (self test), a raw
	// image, a debug map, a snapshot, or a snapshot plus a debug map.
	rest := args
	if len(rest) > 0 && cpu.IsSnapshotFile(rest[0]) {
		if err := vm.LoadSnapshotFile(rest[0]); err != nil {
			logger.Error("Loading snapshot failed", log.Err(err))
			return 1
		}
		rest = rest[1:]
		if len(rest) > 0 {
			loaded, err := loadDebugMap(vm, rest[0], false)
			if err != nil {
				logger.Error("Loading debug map failed", log.Err(err))
				return 1
			}
			dm = loaded
			rest = rest[1:]
		}
	} else if len(rest) > 0 {
		var err error
		if strings.HasSuffix(rest[0], ".deb") {
			dm, err = loadDebugMap(vm, rest[0], true)
		} else {
			err = loadImage(vm, rest[0])
		}
		if err != nil {
			logger.Error("Loading program failed", log.Err(err))
			return 1
		}
		rest = rest[1:]
	} else {
		if err := loadSelfTest(vm); err != nil {
			logger.Error("Assembling self test failed", log.Err(err))
			return 1
		}
	}

	switch len(rest) {
	case 0:
	case 2:
		if dm == nil {
			logger.Error("Breakpoints need a debug map (.deb) argument")
			return 1
		}
		line, err := strconv.Atoi(rest[1])
		if err != nil {
			logger.Error("Invalid breakpoint line number", log.String("line", rest[1]))
			return 1
		}
		addr, err := dm.FindBreakpoint(rest[0], line)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		b := debugger.AddBreakpoint(addr)
		b.File, b.Line = rest[0], line
	default:
		printHelp()
		return 1
	}

	ctx := app.Context()

	con := console.New(nil, nil)
	vm.AttachIO(con)
	guard, err := con.Setup()
	if err != nil {
		logger.Debug("Console setup failed, continuing without raw input", log.Err(err))
	}
	defer guard.Restore()

	vm.Run(func() bool { return ctx.Err() != nil })
	guard.Restore()

	if bh.snapErr != nil {
		logger.Error("Writing debug snapshot failed", log.Err(bh.snapErr))
		return 1
	}
	if !bh.hit {
		fmt.Println(vm.RegisterString())
	}
	return 0
}

// loadImage loads a raw memory image file.
func loadImage(vm *cpu.VM, path string) error {
	image, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return vm.LoadImage(image)
}

// loadDebugMap parses a .deb file and, when load is set, loads the binary
// image it references.
func loadDebugMap(vm *cpu.VM, path string, load bool) (*asm.DebugMap, error) {
	dm, err := asm.LoadDebugMap(path)
	if err != nil {
		return nil, err
	}
	if load {
		if err := loadImage(vm, dm.Binary); err != nil {
			return nil, err
		}
	}
	return dm, nil
}

// The built-in self test prints a banner through the TTY port and halts.
const selfTestSource = `
.org 0x0100
MSG: .string "Sophia8 self test OK\n"

.org 0x0003
.org
START:
    SET #0x01, R1       ; message address high byte
    SET #0x00, R2       ; message address low byte
LOOP:
    LOADR R0, R1, R2
    JZ R0, DONE
    STORE R0, 0xFF03
    INC R2
    JMP LOOP
DONE:
    HALT
`

func loadSelfTest(vm *cpu.VM) error {
	lines := asm.LinesFromString(selfTestSource, "<selftest>")
	assembly, err := asm.Assemble(lines, os.Stdout, 0)
	if err != nil {
		return err
	}
	return vm.LoadImage(assembly.Image)
}

func runMonitor(args []string, logger *log.Logger) int {
	h := host.New()
	h.AttachIO(console.New(nil, nil))

	if len(args) > 0 {
		if err := h.Load(args[0]); err != nil {
			logger.Error("Loading program failed", log.Err(err))
			return 1
		}
	}

	ctx := app.Context()
	go func() {
		<-ctx.Done()
		h.Break()
	}()

	h.RunCommands(os.Stdin, os.Stdout, true)
	return 0
}

func createLogger() *log.Logger {
	cfg := log.DefaultConfig()
	return log.NewWithConfig(cfg)
}

func printHelp() {
	fmt.Printf("Sophia8 Virtual Machine %s\n\n", buildinfo.Version(version, commit, date))
	fmt.Print(`Usage:
  sophia8                                        Run the built-in self test
  sophia8 <image.bin>                            Load a raw image and run
  sophia8 <program.deb>                          Load via debug map and run
  sophia8 <program.deb> <file> <line>            Run with a breakpoint at file:line
  sophia8 debug.img                              Resume from a debug snapshot
  sophia8 debug.img <program.deb> <file> <line>  Resume and arm a breakpoint
  sophia8 -i [<file>]                            Start the interactive monitor

On a breakpoint the machine prints its registers, writes debug.img, and
stops. Exit code 0 on a clean halt or breakpoint, 1 on load, parse, or
breakpoint errors.
`)
}
