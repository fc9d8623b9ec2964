// Copyright 2017-2026 Karel Mozdren. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package host

import (
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/beevik/prefixtree"
)

type settings struct {
	DisasmLinesToDisplay int
	MemDumpBytes         int
	NextDisasmAddr       uint16
	NextMemDumpAddr      uint16
}

func newSettings() *settings {
	return &settings{
		DisasmLinesToDisplay: 10,
		MemDumpBytes:         64,
	}
}

type settingsField struct {
	name  string
	index int
	kind  reflect.Kind
	typ   reflect.Type
}

var (
	settingsTree   = prefixtree.New()
	settingsFields []settingsField
)

func init() {
	settingsType := reflect.TypeOf(settings{})
	settingsFields = make([]settingsField, settingsType.NumField())
	for i := 0; i < len(settingsFields); i++ {
		f := settingsType.Field(i)
		settingsFields[i] = settingsField{
			name:  f.Name,
			index: i,
			kind:  f.Type.Kind(),
			typ:   f.Type,
		}
		settingsTree.Add(strings.ToLower(f.Name), &settingsFields[i])
	}
}

func (s *settings) Display(w io.Writer) {
	value := reflect.ValueOf(s).Elem()
	for i, f := range settingsFields {
		v := value.Field(i)
		switch f.kind {
		case reflect.Uint16:
			fmt.Fprintf(w, "    %-20s 0x%04X\n", f.name, uint16(v.Uint()))
		default:
			fmt.Fprintf(w, "    %-20s %v\n", f.name, v)
		}
	}
}

func (s *settings) Set(key string, value interface{}) error {
	ff, err := settingsTree.Find(strings.ToLower(key))
	if err != nil {
		return err
	}
	f := ff.(*settingsField)

	vIn := reflect.ValueOf(value)
	if !vIn.Type().ConvertibleTo(f.typ) {
		return errors.New("invalid type")
	}

	vOut := reflect.ValueOf(s).Elem().Field(f.index).Addr().Elem()
	vOut.Set(vIn.Convert(f.typ))
	return nil
}
