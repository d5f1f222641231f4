// Package csvparse reads the loosely quoted CSV exported by school
// calendar systems.
//
// Quoting follows the export tools rather than RFC 4180: a double quote
// toggles quoted mode wherever it appears in a field, "" inside quotes is a
// literal quote, and an unterminated quote runs to the end of input. Blank
// lines are skipped and a final row without a trailing newline is kept.
package csvparse

import (
	"strings"
	"unicode"
)

// Record maps trimmed header names to trimmed cell values.
type Record map[string]string

// Get returns the value for the first key that is present and non-empty.
func (r Record) Get(keys ...string) string {
	for _, k := range keys {
		if v := r[k]; v != "" {
			return v
		}
	}
	return ""
}

// Parse splits text into rows of raw (untrimmed) fields.
func Parse(text string) [][]string {
	var (
		rows     [][]string
		row      []string
		field    strings.Builder
		inQuotes bool
	)

	pushField := func() {
		row = append(row, field.String())
		field.Reset()
	}
	pushRow := func() {
		if len(row) > 0 || field.Len() > 0 {
			pushField()
			rows = append(rows, row)
			row = nil
		}
	}

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		switch {
		case c == '"':
			if inQuotes && i+1 < len(runes) && runes[i+1] == '"' {
				field.WriteRune('"')
				i++
			} else {
				inQuotes = !inQuotes
			}
		case c == ',' && !inQuotes:
			pushField()
		case (c == '\n' || c == '\r') && !inQuotes:
			if c == '\r' && i+1 < len(runes) && runes[i+1] == '\n' {
				i++
			}
			pushRow()
		default:
			field.WriteRune(c)
		}
	}
	pushRow()

	return rows
}

// ParseRecords treats the first row as the header and returns one Record
// per remaining row. Missing cells become "", extra cells are dropped, and a
// repeated header name keeps its rightmost value.
func ParseRecords(text string) []Record {
	rows := Parse(strings.TrimPrefix(text, "\uFEFF"))
	if len(rows) == 0 {
		return nil
	}
	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = trim(h)
	}

	records := make([]Record, 0, len(rows)-1)
	for _, cols := range rows[1:] {
		rec := make(Record, len(header))
		for i, key := range header {
			val := ""
			if i < len(cols) {
				val = trim(cols[i])
			}
			rec[key] = val
		}
		records = append(records, rec)
	}
	return records
}

func trim(s string) string {
	return strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || r == '\uFEFF'
	})
}
