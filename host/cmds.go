// Copyright 2017-2026 Karel Mozdren. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package host

import "github.com/beevik/cmd"

var cmds *cmd.Tree

func init() {
	root := cmd.NewTree(cmd.TreeDescriptor{Name: "sophia8"})
	root.AddCommand(cmd.CommandDescriptor{
		Name:        "help",
		Description: "Display help for the monitor commands.",
		Usage:       "help",
		Data:        (*Host).cmdHelp,
	})
	root.AddCommand(cmd.CommandDescriptor{
		Name:  "load",
		Brief: "Load a binary image, debug map or snapshot",
		Description: "Load a program into the machine. A .deb file loads the" +
			" debug map and the binary image it references; a debug snapshot" +
			" restores the full machine state; anything else is loaded as a" +
			" raw memory image.",
		Usage: "load <filename>",
		Data:  (*Host).cmdLoad,
	})
	root.AddCommand(cmd.CommandDescriptor{
		Name:        "registers",
		Brief:       "Display register contents",
		Description: "Display the registers and the instruction at IP.",
		Usage:       "registers",
		Data:        (*Host).cmdRegisters,
	})
	root.AddCommand(cmd.CommandDescriptor{
		Name:  "disassemble",
		Brief: "Disassemble code",
		Description: "Disassemble machine code starting at the requested" +
			" address. If no address is given, disassembly continues from" +
			" where the last disassembly left off.",
		Usage: "disassemble [<address>] [<lines>]",
		Data:  (*Host).cmdDisassemble,
	})

	// Breakpoint commands
	bp := root.AddSubtree(cmd.TreeDescriptor{Name: "breakpoint", Brief: "Breakpoint commands"})
	bp.AddCommand(cmd.CommandDescriptor{
		Name:        "list",
		Brief:       "List breakpoints",
		Description: "List all current breakpoints.",
		Usage:       "breakpoint list",
		Data:        (*Host).cmdBreakpointList,
	})
	bp.AddCommand(cmd.CommandDescriptor{
		Name:  "add",
		Brief: "Add a breakpoint",
		Description: "Add a breakpoint at an address or a file:line" +
			" location resolved through the loaded debug map.",
		Usage: "breakpoint add <address | file:line>",
		Data:  (*Host).cmdBreakpointAdd,
	})
	bp.AddCommand(cmd.CommandDescriptor{
		Name:        "remove",
		Brief:       "Remove a breakpoint",
		Description: "Remove the breakpoint at the specified address.",
		Usage:       "breakpoint remove <address>",
		Data:        (*Host).cmdBreakpointRemove,
	})

	// Memory commands
	me := root.AddSubtree(cmd.TreeDescriptor{Name: "memory", Brief: "Memory commands"})
	me.AddCommand(cmd.CommandDescriptor{
		Name:  "dump",
		Brief: "Dump memory at address",
		Description: "Dump the contents of memory starting from the" +
			" specified address. If no address is given, the dump continues" +
			" from where the last dump left off.",
		Usage: "memory dump [<address>] [<bytes>]",
		Data:  (*Host).cmdMemoryDump,
	})
	me.AddCommand(cmd.CommandDescriptor{
		Name:        "set",
		Brief:       "Set memory at address",
		Description: "Set memory bytes starting at the specified address.",
		Usage:       "memory set <address> <byte> [<byte> ...]",
		Data:        (*Host).cmdMemorySet,
	})

	root.AddCommand(cmd.CommandDescriptor{
		Name:        "list",
		Brief:       "Show the source line for an address",
		Description: "Show the debug-map record covering an address.",
		Usage:       "list <address>",
		Data:        (*Host).cmdList,
	})
	root.AddCommand(cmd.CommandDescriptor{
		Name:        "run",
		Brief:       "Run the machine",
		Description: "Run until HALT, an unknown opcode, or a breakpoint.",
		Usage:       "run",
		Data:        (*Host).cmdRun,
	})
	root.AddCommand(cmd.CommandDescriptor{
		Name:        "step",
		Brief:       "Step the machine",
		Description: "Execute a number of instructions, one by default.",
		Usage:       "step [<count>]",
		Data:        (*Host).cmdStep,
	})
	root.AddCommand(cmd.CommandDescriptor{
		Name:        "snapshot",
		Brief:       "Write a debug snapshot",
		Description: "Write the full machine state to a snapshot file.",
		Usage:       "snapshot [<filename>]",
		Data:        (*Host).cmdSnapshot,
	})
	root.AddCommand(cmd.CommandDescriptor{
		Name:  "set",
		Brief: "Set a configuration variable",
		Description: "Set the value of a configuration variable. To see the" +
			" current values, type set without any arguments.",
		Usage: "set [<var> <value>]",
		Data:  (*Host).cmdSet,
	})
	root.AddCommand(cmd.CommandDescriptor{
		Name:        "quit",
		Brief:       "Quit the monitor",
		Description: "Quit the monitor.",
		Usage:       "quit",
		Data:        (*Host).cmdQuit,
	})

	// Add command shortcuts.
	root.AddShortcut("b", "breakpoint")
	root.AddShortcut("ba", "breakpoint add")
	root.AddShortcut("br", "breakpoint remove")
	root.AddShortcut("bl", "breakpoint list")
	root.AddShortcut("d", "disassemble")
	root.AddShortcut("l", "list")
	root.AddShortcut("m", "memory dump")
	root.AddShortcut("ms", "memory set")
	root.AddShortcut("r", "registers")
	root.AddShortcut("s", "step")
	root.AddShortcut("?", "help")

	cmds = root
}

var helpText = `Monitor commands:
    breakpoint       Breakpoint commands (list, add, remove)
    disassemble      Disassemble code
    help             Display this help
    list             Show the source line for an address
    load             Load a binary image, debug map or snapshot
    memory           Memory commands (dump, set)
    registers        Display register contents
    run              Run the machine
    set              Set a configuration variable
    snapshot         Write a debug snapshot
    step             Step the machine
    quit             Quit the monitor
`
