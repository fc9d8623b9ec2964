// Copyright 2017-2026 Karel Mozdren. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpu_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/retroenv/retrogolib/assert"

	"github.com/mozdren/sophia8/cpu"
)

func TestSnapshotRoundTrip(t *testing.T) {
	vm := cpu.New()
	vm.Reg.R = [8]byte{1, 2, 3, 4, 5, 6, 7, 8}
	vm.Reg.IP = 0x1234
	vm.Reg.SP = 0xFF00
	vm.Reg.BP = 0xFF80
	vm.Reg.C = true
	vm.Mem.StoreByte(0x4000, 0xAB)

	var buf bytes.Buffer
	assert.NoError(t, vm.WriteSnapshot(&buf))

	// Magic, version, registers, carry, reserved, full memory.
	assert.Equal(t, 4+1+8+6+1+7+cpu.MemSize, buf.Len())
	assert.Equal(t, "S8DI", buf.String()[:4])

	restored := cpu.New()
	assert.NoError(t, restored.ReadSnapshot(&buf))
	assert.Equal(t, vm.Reg, restored.Reg)
	assert.Equal(t, byte(0xAB), restored.Mem.LoadByte(0x4000))
	assert.False(t, restored.Stopped)
}

func TestSnapshotBadMagic(t *testing.T) {
	vm := cpu.New()
	data := make([]byte, 4+1+8+6+1+7+cpu.MemSize)
	copy(data, "NOPE")
	err := vm.ReadSnapshot(bytes.NewReader(data))
	if err == nil || !strings.Contains(err.Error(), "magic") {
		t.Fatalf("expected magic error, got %v", err)
	}
}

func TestSnapshotBadVersion(t *testing.T) {
	vm := cpu.New()
	data := make([]byte, 4+1+8+6+1+7+cpu.MemSize)
	copy(data, "S8DI")
	data[4] = 0x7F
	err := vm.ReadSnapshot(bytes.NewReader(data))
	if err == nil || !strings.Contains(err.Error(), "version") {
		t.Fatalf("expected version error, got %v", err)
	}
}

func TestSnapshotFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "debug.img")

	vm := cpu.New()
	vm.Reg.IP = 0x0800
	assert.NoError(t, vm.SaveSnapshotFile(path))
	assert.True(t, cpu.IsSnapshotFile(path))

	restored := cpu.New()
	assert.NoError(t, restored.LoadSnapshotFile(path))
	assert.Equal(t, uint16(0x0800), restored.Reg.IP)
}

func TestIsSnapshotFileRejectsOthers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prog.bin")
	assert.NoError(t, os.WriteFile(path, make([]byte, 16), 0o644))
	assert.False(t, cpu.IsSnapshotFile(path))
	assert.False(t, cpu.IsSnapshotFile(filepath.Join(t.TempDir(), "missing")))
}
