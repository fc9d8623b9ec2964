// Copyright 2017-2026 Karel Mozdren. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpu

import "sort"

// A Debugger intercepts instruction fetches on the VM it is attached to and
// reports breakpoint hits to its handler.
type Debugger struct {
	handler     BreakpointHandler
	breakpoints map[uint16]*Breakpoint
}

// The BreakpointHandler interface is implemented by any object that wishes
// to receive breakpoint notifications. The handler decides whether the
// machine stops.
type BreakpointHandler interface {
	OnBreakpoint(vm *VM, b *Breakpoint)
}

// A Breakpoint stops execution when the instruction pointer reaches its
// address, before the opcode is decoded.
type Breakpoint struct {
	Address  uint16 // address of execution breakpoint
	Disabled bool   // this breakpoint is currently disabled

	// Source location the breakpoint was resolved from, when it was set by
	// file:line. Informational only.
	File string
	Line int
}

// NewDebugger creates a VM debugger.
func NewDebugger(handler BreakpointHandler) *Debugger {
	return &Debugger{
		handler:     handler,
		breakpoints: make(map[uint16]*Breakpoint),
	}
}

// GetBreakpoint looks up a breakpoint by address and returns it if found.
// Otherwise it returns nil.
func (d *Debugger) GetBreakpoint(addr uint16) *Breakpoint {
	if b, ok := d.breakpoints[addr]; ok {
		return b
	}
	return nil
}

// GetBreakpoints returns all breakpoints sorted by address.
func (d *Debugger) GetBreakpoints() []*Breakpoint {
	var breakpoints []*Breakpoint
	for _, b := range d.breakpoints {
		breakpoints = append(breakpoints, b)
	}
	sort.Slice(breakpoints, func(i, j int) bool {
		return breakpoints[i].Address < breakpoints[j].Address
	})
	return breakpoints
}

// AddBreakpoint adds a new breakpoint address to the debugger. If the
// breakpoint was already set, the existing breakpoint is returned.
func (d *Debugger) AddBreakpoint(addr uint16) *Breakpoint {
	if b, ok := d.breakpoints[addr]; ok {
		return b
	}
	b := &Breakpoint{Address: addr}
	d.breakpoints[addr] = b
	return b
}

// RemoveBreakpoint removes a breakpoint from the debugger.
func (d *Debugger) RemoveBreakpoint(addr uint16) {
	delete(d.breakpoints, addr)
}

func (d *Debugger) onFetch(vm *VM, addr uint16) {
	if d.handler == nil {
		return
	}
	if b, ok := d.breakpoints[addr]; ok && !b.Disabled {
		d.handler.OnBreakpoint(vm, b)
	}
}
