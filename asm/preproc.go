// Copyright 2017-2026 Karel Mozdren. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// A SourceLine is one line of preprocessed source text annotated with its
// provenance: the file it came from, its 1-based line number, and the
// include chain from the entry file down to that file. SourceLines are
// immutable after preprocessing.
type SourceLine struct {
	Text  string
	File  string
	Line  int
	Chain []string
}

// preprocessor state for a single compilation.
type preprocessor struct {
	entry    string          // canonical entry file path
	out      []SourceLine    // flattened line stream
	stack    []string        // canonical paths currently being included
	included map[string]bool // include-once set over canonical paths
}

// Preprocess flattens the entry file and all transitively included files
// into an ordered line stream. The .include directive lines themselves are
// replaced by the included content.
func Preprocess(entryPath string) ([]SourceLine, error) {
	entry := canonicalPath(entryPath)
	p := &preprocessor{
		entry:    entry,
		included: make(map[string]bool),
	}
	if err := p.file(entry, nil); err != nil {
		return nil, err
	}
	return p.out, nil
}

// LinesFromString builds a source line stream directly from in-memory
// source text, bypassing the preprocessor. Includes are not expanded; the
// given name is recorded as the originating file.
func LinesFromString(src, name string) []SourceLine {
	var lines []SourceLine
	for i, text := range strings.Split(src, "\n") {
		lines = append(lines, SourceLine{Text: text, File: name, Line: i + 1, Chain: []string{name}})
	}
	return lines
}

// canonicalPath returns a best-effort canonical form of a path. It must
// also work for nonexistent paths so error reports stay readable, so
// symlink resolution failures fall back to the cleaned absolute path.
func canonicalPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved
	}
	return filepath.Clean(abs)
}

// file reads one source file and appends its lines, expanding includes.
func (p *preprocessor) file(path string, chain []string) error {
	canon := canonicalPath(path)

	for _, onStack := range p.stack {
		if onStack == canon {
			return &Error{
				Msg:   cycleMessage(p.stack, canon),
				File:  canon,
				Chain: chain,
			}
		}
	}

	if p.included[canon] {
		return &Error{
			Msg:   fmt.Sprintf("multiple inclusion is forbidden (already included): %s", canon),
			File:  canon,
			Chain: chain,
		}
	}
	p.included[canon] = true

	p.stack = append(p.stack, canon)
	defer func() { p.stack = p.stack[:len(p.stack)-1] }()

	chain = append(chain[:len(chain):len(chain)], canon)

	f, err := os.Open(canon)
	if err != nil {
		return &Error{
			Msg:   fmt.Sprintf("failed to read file: %v", err),
			File:  canon,
			Chain: chain,
		}
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		sl := SourceLine{Text: scanner.Text(), File: canon, Line: lineNo, Chain: chain}

		inc, ok, err := includeOperand(sl)
		if err != nil {
			return err
		}
		if !ok {
			p.out = append(p.out, sl)
			continue
		}

		incPath, err := p.resolveInclude(canon, inc, sl)
		if err != nil {
			return err
		}
		if err := p.file(incPath, chain); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return &Error{
			Msg:   fmt.Sprintf("failed to read file: %v", err),
			File:  canon,
			Chain: chain,
		}
	}
	return nil
}

// includeOperand detects an .include statement on a line and extracts its
// quoted path. An optional leading "label:" prefix is permitted; the
// directive must otherwise be the whole statement.
func includeOperand(sl SourceLine) (string, bool, error) {
	code := strings.TrimSpace(stripComment(sl.Text))
	if code == "" {
		return "", false, nil
	}

	// Peel leading labels so "label: .include" is recognized.
	for {
		pos := strings.IndexByte(code, ':')
		if pos < 0 {
			break
		}
		if !isIdent(strings.TrimSpace(code[:pos])) {
			break
		}
		code = strings.TrimSpace(code[pos+1:])
		if code == "" {
			return "", false, nil
		}
	}

	if !strings.HasPrefix(code, ".include") {
		return "", false, nil
	}
	rest := strings.TrimSpace(code[len(".include"):])
	if len(rest) < 2 || rest[0] != '"' || rest[len(rest)-1] != '"' {
		return "", false, errLine(sl, `invalid .include syntax, expected: .include "file.s8"`)
	}
	return rest[1 : len(rest)-1], true, nil
}

// resolveInclude locates an included file. Resolution order: the path as
// given when absolute, then relative to the including file's directory,
// then relative to the entry file's directory.
func (p *preprocessor) resolveInclude(includingFile, inc string, sl SourceLine) (string, error) {
	if filepath.IsAbs(inc) {
		if fileExists(inc) {
			return inc, nil
		}
		return "", errLine(sl, "include not found: %s", inc)
	}

	c1 := filepath.Join(filepath.Dir(includingFile), inc)
	if fileExists(c1) {
		return c1, nil
	}
	c2 := filepath.Join(filepath.Dir(p.entry), inc)
	if fileExists(c2) {
		return c2, nil
	}
	return "", errLine(sl, "include not found (searched: including dir, entry dir): %s", inc)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func cycleMessage(stack []string, repeated string) string {
	var sb strings.Builder
	sb.WriteString("include cycle detected:\n")
	for _, p := range stack {
		fmt.Fprintf(&sb, "  -> %s\n", p)
	}
	fmt.Fprintf(&sb, "  -> %s", repeated)
	return sb.String()
}
