// Copyright 2017-2026 Karel Mozdren. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package console implements the Sophia8 terminal device behind the MMIO
// window: a non-blocking one-byte keyboard queue and a TTY output port.
package console

import (
	"os"
	"syscall"

	"github.com/beevik/term"

	"github.com/mozdren/sophia8/cpu"
)

// A Console services the Sophia8 MMIO ports using the process's standard
// input and output. Keyboard reads consume at most one buffered byte, and
// reads with nothing available return 0x00. They do not block once Setup
// has made the input non-blocking; before that, a read of an input with
// no data waits for it.
type Console struct {
	in  *os.File
	out *os.File

	key    byte // one-byte keyboard queue
	hasKey bool
}

// New creates a console bound to the given input and output files. Passing
// nil selects the process's stdin and stdout.
func New(in, out *os.File) *Console {
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stdout
	}
	return &Console{in: in, out: out}
}

// poll refills the one-byte keyboard queue without blocking. The read goes
// through syscall.Read so a non-blocking descriptor reports EAGAIN here
// instead of parking the goroutine in the runtime poller.
func (c *Console) poll() {
	if c.hasKey {
		return
	}
	var buf [1]byte
	n, err := syscall.Read(int(c.in.Fd()), buf[:])
	if err != nil || n == 0 {
		return
	}
	c.key = buf[0]
	c.hasKey = true
}

// MMIORead services the readable MMIO ports.
func (c *Console) MMIORead(addr uint16) byte {
	switch addr {
	case cpu.PortKeyStatus:
		c.poll()
		if c.hasKey {
			return 0x01
		}
		return 0x00

	case cpu.PortKeyData:
		c.poll()
		if !c.hasKey {
			return 0x00
		}
		c.hasKey = false
		return c.key & 0x7F

	case cpu.PortTTYStatus:
		return 0x01
	}
	return 0x00
}

// MMIOWrite services the writable MMIO ports. TTY data is written through
// immediately; os.File writes are unbuffered, so every byte is flushed.
func (c *Console) MMIOWrite(addr uint16, v byte) {
	if addr == cpu.PortTTYData {
		c.out.Write([]byte{v})
	}
}

// A Guard captures the terminal configuration at setup so it can be
// restored on every exit path. It is safe to restore a guard more than
// once and to restore a guard that never changed anything.
type Guard struct {
	fd       int
	oldState *term.State
	nonblock bool
}

// Setup reconfigures the console's input for machine use: raw, no-echo
// input when it is a terminal, and non-blocking reads in any case. The
// returned guard restores the original configuration.
func (c *Console) Setup() (*Guard, error) {
	g := &Guard{fd: int(c.in.Fd())}

	if term.IsTerminal(g.fd) {
		oldState, err := term.MakeRawInput(g.fd)
		if err != nil {
			return nil, err
		}
		g.oldState = oldState
	}

	if err := syscall.SetNonblock(g.fd, true); err != nil {
		g.Restore()
		return nil, err
	}
	g.nonblock = true
	return g, nil
}

// Restore puts the terminal and file descriptor flags back the way Setup
// found them.
func (g *Guard) Restore() {
	if g == nil {
		return
	}
	if g.nonblock {
		syscall.SetNonblock(g.fd, false)
		g.nonblock = false
	}
	if g.oldState != nil {
		term.Restore(g.fd, g.oldState)
		g.oldState = nil
	}
}
