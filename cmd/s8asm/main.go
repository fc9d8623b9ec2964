// Copyright 2017-2026 Karel Mozdren. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package main implements the Sophia8 assembler CLI.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/retroenv/retrogolib/buildinfo"
	"github.com/retroenv/retrogolib/log"

	"github.com/mozdren/sophia8/asm"
)

var (
	version = "dev"
	commit  = ""
	date    = ""
)

const defaultOutput = "sophia8_image.bin"

// Exit codes: 0 success, 1 assembly or I/O error, 2 argument error.
const (
	exitOK   = 0
	exitFail = 1
	exitArgs = 2
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	logger := createLogger()

	input, output, verbose, code, done := parseArgs(args)
	if done {
		return code
	}

	options := asm.Option(0)
	if verbose {
		options |= asm.Verbose
	}

	assembly, err := asm.AssembleFile(input, os.Stdout, options)
	if err != nil {
		var asmErr *asm.Error
		if errors.As(err, &asmErr) {
			fmt.Fprint(os.Stderr, asmErr.Detail())
		} else {
			logger.Error("Assembly failed", log.Err(err))
		}
		return exitFail
	}

	if err := assembly.WriteArtifacts(output); err != nil {
		logger.Error("Writing output failed", log.Err(err))
		return exitFail
	}

	fmt.Printf("OK: wrote %d bytes to %s\n", len(assembly.Image), output)
	return exitOK
}

// parseArgs handles the fixed command surface: <input> [-o <output>]. The
// returned done flag indicates run should exit with code immediately.
func parseArgs(args []string) (input, output string, verbose bool, code int, done bool) {
	output = defaultOutput

	if len(args) == 0 {
		printHelp()
		return "", "", false, exitArgs, true
	}
	if args[0] == "-h" || args[0] == "--help" {
		printHelp()
		return "", "", false, exitOK, true
	}
	input = args[0]

	for i := 1; i < len(args); i++ {
		switch args[i] {
		case "-h", "--help":
			printHelp()
			return "", "", false, exitOK, true
		case "-o", "--output":
			if i+1 >= len(args) {
				fmt.Fprintf(os.Stderr, "Missing value for %s\n", args[i])
				return "", "", false, exitArgs, true
			}
			i++
			output = args[i]
		case "-v", "--verbose":
			verbose = true
		default:
			fmt.Fprintf(os.Stderr, "Unknown argument: %s\n", args[i])
			return "", "", false, exitArgs, true
		}
	}
	return input, output, verbose, exitOK, false
}

func createLogger() *log.Logger {
	cfg := log.DefaultConfig()
	return log.NewWithConfig(cfg)
}

func printHelp() {
	fmt.Printf("Sophia8 Assembler (s8asm) %s\n\n", buildinfo.Version(version, commit, date))
	fmt.Print(`Usage:
  s8asm <input.s8> [-o <output.bin>]

Options:
  -o, --output <file>   Output image file (default: sophia8_image.bin)
  -v, --verbose         Verbose assembly output
  -h, --help            Show this help

What it produces:
  <output.bin>          Full 0xFFFF-byte memory image (0x0000..0xFFFE), zero-filled
  <output.pre.s8>       Fully preprocessed source (.include expanded) with ';@ file:line' markers
  <output.deb>          Debug map used by sophia8 for file:line breakpoints
`)
}
