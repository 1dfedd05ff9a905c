package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Column names every log must provide.
const (
	ColumnReceivedAt = "received_at"
	ColumnProtocol   = "protocol"
	ColumnRawData    = "raw_data"
)

// Row is one record of a captured log: CSV header names mapped to values,
// in header order. A Row is never modified after construction.
type Row struct {
	names  []string
	values []string
	line   int
}

// NewRow builds a Row from a header and a record. Columns beyond the header
// are dropped; header names without a value are absent from the row.
func NewRow(header, record []string, line int) Row {
	n := len(header)
	if len(record) < n {
		n = len(record)
	}
	names := make([]string, n)
	values := make([]string, n)
	copy(names, header[:n])
	copy(values, record[:n])
	return Row{names: names, values: values, line: line}
}

// Get returns the value stored under name.
func (r Row) Get(name string) (string, bool) {
	for i, n := range r.names {
		if n == name {
			return r.values[i], true
		}
	}
	return "", false
}

// Has reports whether name is present with a non-empty value.
func (r Row) Has(name string) bool {
	v, ok := r.Get(name)
	return ok && v != ""
}

// Names returns the column names in header order.
func (r Row) Names() []string {
	return append([]string(nil), r.names...)
}

// Line is the 1-based line number of the record in the log file, 0 if unknown.
func (r Row) Line() int {
	return r.line
}

// Len returns the number of columns present.
func (r Row) Len() int {
	return len(r.names)
}

// Protocol returns the lower-cased protocol tag.
func (r Row) Protocol() string {
	v, _ := r.Get(ColumnProtocol)
	return strings.ToLower(v)
}

// ReceivedAt parses the received_at column: milliseconds since the Unix
// epoch written as a non-negative decimal number.
func (r Row) ReceivedAt() (float64, error) {
	v, ok := r.Get(ColumnReceivedAt)
	if !ok || v == "" {
		return 0, BadRow("line %d: missing %s", r.line, ColumnReceivedAt)
	}
	ms, err := ParseMillis(v)
	if err != nil {
		return 0, BadRow("line %d: %v", r.line, err)
	}
	return ms, nil
}

// ParseMillis parses a non-negative decimal number such as "1000" or
// "1718031234567.25". Signs, exponents, hex and inf/nan are rejected.
func ParseMillis(s string) (float64, error) {
	s = strings.TrimSpace(s)
	digits, dots := 0, 0
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9':
			digits++
		case c == '.':
			dots++
		default:
			return 0, fmt.Errorf("bad timestamp %q", s)
		}
	}
	if digits == 0 || dots > 1 {
		return 0, fmt.Errorf("bad timestamp %q", s)
	}
	ms, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("bad timestamp %q: %w", s, err)
	}
	return ms, nil
}

// String renders the row the way diagnostics print it.
func (r Row) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, n := range r.names {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s: %q", n, r.values[i])
	}
	b.WriteByte('}')
	return b.String()
}
