// Copyright 2017-2026 Karel Mozdren. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"fmt"
	"strings"
)

// An Error describes a fatal assembly problem. Every assembler error
// carries the originating file, its 1-based line number, the offending
// source text, and the include chain from the entry file to the current
// file.
type Error struct {
	Msg   string
	File  string
	Line  int
	Text  string
	Chain []string
}

func (e *Error) Error() string {
	if e.File == "" {
		return e.Msg
	}
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Msg)
	}
	return fmt.Sprintf("%s: %s", e.File, e.Msg)
}

// Detail formats the error the way the assembler CLI reports it: message,
// location, offending line, and the include chain.
func (e *Error) Detail() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "ERROR: %s\n", e.Msg)
	if e.File != "" {
		fmt.Fprintf(&sb, "At: %s", e.File)
		if e.Line > 0 {
			fmt.Fprintf(&sb, ":%d", e.Line)
		}
		sb.WriteByte('\n')
	}
	if e.Text != "" {
		fmt.Fprintf(&sb, ">> %s\n", e.Text)
	}
	if len(e.Chain) > 0 {
		sb.WriteString("Include stack:\n")
		for i, p := range e.Chain {
			fmt.Fprintf(&sb, "  [%d] %s\n", i, p)
		}
	}
	return sb.String()
}

// errLine builds an Error positioned on a source line.
func errLine(sl SourceLine, format string, args ...any) *Error {
	return &Error{
		Msg:   fmt.Sprintf(format, args...),
		File:  sl.File,
		Line:  sl.Line,
		Text:  sl.Text,
		Chain: sl.Chain,
	}
}
