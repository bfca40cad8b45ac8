/*
Copyright 2025-Present Couchbase, Inc.

Use of this software is governed by the Business Source License included in
the file licenses/BSL-Couchbase.txt.  As of the Change Date specified in that
file, in accordance with the Business Source License, use of this software will
be governed by the Apache License, Version 2.0, included in the file
licenses/APL2.txt.
*/

package zkconfig

import (
	"bytes"
	"io"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/ini.v1"
)

// ErrUnsafeValue is returned for a value that cannot be written as a single
// unquoted properties line.
var ErrUnsafeValue = errors.New("value cannot be written unquoted")

// KeyValue is a single entry of a Document.
type KeyValue struct {
	Key   string
	Value string
}

// Document is an ordered set of configuration keys.
type Document struct {
	entries []KeyValue
	index   map[string]int
}

func newDocument() *Document {
	return &Document{
		index: make(map[string]int),
	}
}

func (d *Document) set(key, value string) {
	if idx, ok := d.index[key]; ok {
		d.entries[idx].Value = value
		return
	}

	d.index[key] = len(d.entries)
	d.entries = append(d.entries, KeyValue{Key: key, Value: value})
}

// Get returns the value of key.
func (d *Document) Get(key string) (string, bool) {
	idx, ok := d.index[key]
	if !ok {
		return "", false
	}
	return d.entries[idx].Value, true
}

// Entries returns the entries in rendering order.
func (d *Document) Entries() []KeyValue {
	out := make([]KeyValue, len(d.entries))
	copy(out, d.entries)
	return out
}

// Validate checks that every value is written verbatim.  zoo.cfg is read as
// a java properties file, which keeps any quoting ini would add.
func (d *Document) Validate() error {
	for _, entry := range d.entries {
		if strings.ContainsAny(entry.Value, "\r\n`") {
			return errors.Wrapf(ErrUnsafeValue, "%s contains a line break or backtick", entry.Key)
		}
		if strings.TrimSpace(entry.Value) != entry.Value {
			return errors.Wrapf(ErrUnsafeValue, "%s has leading or trailing whitespace", entry.Key)
		}
	}
	return nil
}

// WriteTo renders the document as an ini file without a section header.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	err := d.Validate()
	if err != nil {
		return 0, err
	}

	// '#' and ';' are literal in properties files, not comment markers
	file := ini.Empty(ini.LoadOptions{IgnoreInlineComment: true})
	section := file.Section(ini.DefaultSection)
	for _, entry := range d.entries {
		_, err := section.NewKey(entry.Key, entry.Value)
		if err != nil {
			return 0, err
		}
	}

	return file.WriteTo(w)
}

// Bytes renders the document into memory.
func (d *Document) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	_, err := d.WriteTo(&buf)
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
