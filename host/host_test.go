// Copyright 2017-2026 Karel Mozdren. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package host

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/retroenv/retrogolib/assert"

	"github.com/mozdren/sophia8/asm"
)

// buildArtifacts assembles a program and writes its artifacts to a temp
// directory, returning the .deb path.
func buildArtifacts(t *testing.T, src string) string {
	t.Helper()
	a, err := asm.Assemble(asm.LinesFromString(src, "prog.s8"), nil, 0)
	assert.NoError(t, err)

	dir := t.TempDir()
	binPath := filepath.Join(dir, "prog.bin")
	assert.NoError(t, a.WriteArtifacts(binPath))
	return asm.DebugMapPath(binPath)
}

func runSession(t *testing.T, h *Host, script string) string {
	t.Helper()
	var out bytes.Buffer
	h.RunCommands(strings.NewReader(script), &out, false)
	return out.String()
}

const testProgram = `
.org 0x0003
start: SET #0x2A, R0
STORE R0, 0x0100
HALT
`

func TestMonitorLoadAndRun(t *testing.T) {
	deb := buildArtifacts(t, testProgram)

	h := New()
	out := runSession(t, h, "load "+deb+"\nrun\nquit\n")

	assert.True(t, strings.Contains(out, "Loaded"))
	assert.True(t, strings.Contains(out, "R0 = 0x2a"))
	assert.Equal(t, byte(0x2A), h.VM().Mem.LoadByte(0x0100))
}

func TestMonitorRegistersAndStep(t *testing.T) {
	deb := buildArtifacts(t, testProgram)

	h := New()
	out := runSession(t, h, "load "+deb+"\nstep 2\nregisters\nquit\n")

	// Two steps: the entry stub jump plus the SET.
	assert.True(t, strings.Contains(out, "R0 = 0x2a"))
	assert.True(t, strings.Contains(out, "IP = 0x0006"))
}

func TestMonitorSourceBreakpoint(t *testing.T) {
	deb := buildArtifacts(t, testProgram)

	h := New()
	out := runSession(t, h, "load "+deb+"\nbreakpoint add prog.s8:4\nrun\nquit\n")

	// Line 4 is the STORE; the breakpoint stops before it executes.
	assert.True(t, strings.Contains(out, "Added breakpoint at 0x0006"))
	assert.True(t, strings.Contains(out, "Breakpoint hit at 0x0006"))
	assert.Equal(t, byte(0x00), h.VM().Mem.LoadByte(0x0100))
}

func TestMonitorMemoryCommands(t *testing.T) {
	h := New()
	out := runSession(t, h, "memory set 0x0200 0x41 0x42\nmemory dump 0x0200 2\nquit\n")

	assert.True(t, strings.Contains(out, "41 42"))
	assert.True(t, strings.Contains(out, "AB"))
	assert.Equal(t, byte(0x41), h.VM().Mem.LoadByte(0x0200))
}

func TestMonitorSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "debug.img")

	h := New()
	out := runSession(t, h, "snapshot "+path+"\nquit\n")

	assert.True(t, strings.Contains(out, "Wrote snapshot"))
	info, err := os.Stat(path)
	assert.NoError(t, err)
	assert.True(t, info.Size() > 0)
}

func TestParseFileLine(t *testing.T) {
	file, line, ok := parseFileLine("main.s8:12")
	assert.True(t, ok)
	assert.Equal(t, "main.s8", file)
	assert.Equal(t, 12, line)

	_, _, ok = parseFileLine("0x1234")
	assert.False(t, ok)

	file, line, ok = parseFileLine("dir/sub/main.s8:3")
	assert.True(t, ok)
	assert.Equal(t, "dir/sub/main.s8", file)
	assert.Equal(t, 3, line)
}
