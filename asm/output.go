// Copyright 2017-2026 Karel Mozdren. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// WriteImage writes the binary memory image: exactly 0xFFFF bytes, no
// header, address 0 first.
func (a *Assembly) WriteImage(w io.Writer) error {
	_, err := w.Write(a.Image)
	return err
}

// WritePreprocessed writes the human-readable preprocessed source dump.
// Every expanded line is preceded by a ';@ file:line' marker, and a banner
// is inserted each time the originating file changes.
func (a *Assembly) WritePreprocessed(w io.Writer) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "; s8asm preprocessed output (all .include expanded)\n")
	fmt.Fprintf(bw, "; This file is generated to aid debugging.\n\n")

	lastFile := ""
	for _, sl := range a.Lines {
		if sl.File != lastFile {
			fmt.Fprintf(bw, "\n; ===== BEGIN FILE: %s =====\n", sl.File)
			lastFile = sl.File
		}
		fmt.Fprintf(bw, ";@ %s:%d\n", sl.File, sl.Line)
		fmt.Fprintln(bw, sl.Text)
	}

	return bw.Flush()
}

// PreprocessedPath derives the .pre.s8 sidecar path from the binary output
// path, replacing its extension.
func PreprocessedPath(binPath string) string {
	return strings.TrimSuffix(binPath, filepath.Ext(binPath)) + ".pre.s8"
}

// DebugMapPath derives the .deb sidecar path from the binary output path.
func DebugMapPath(binPath string) string {
	return strings.TrimSuffix(binPath, filepath.Ext(binPath)) + ".deb"
}

// WriteArtifacts writes the three output artifacts next to each other: the
// binary image at binPath, plus the .pre.s8 and .deb sidecars. Nothing is
// written until assembly has already succeeded, so a failure here leaves
// no artifact claiming to be complete.
func (a *Assembly) WriteArtifacts(binPath string) error {
	if err := writeFile(binPath, a.WriteImage); err != nil {
		return err
	}
	if err := writeFile(PreprocessedPath(binPath), a.WritePreprocessed); err != nil {
		return err
	}
	return writeFile(DebugMapPath(binPath), func(w io.Writer) error {
		return a.WriteDebugMap(w, binPath)
	})
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("cannot open output %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write failed %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("write failed %s: %w", path, err)
	}
	return nil
}
