package domain

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNewRow(t *testing.T) {
	header := []string{"received_at", "protocol", "raw_data"}

	tests := []struct {
		name     string
		record   []string
		wantName []string
	}{
		{"full record", []string{"1000", "0183", "$GPRMC"}, []string{"received_at", "protocol", "raw_data"}},
		{"short record", []string{"1000", "0183"}, []string{"received_at", "protocol"}},
		{"extra columns dropped", []string{"1000", "0183", "$GPRMC", "junk"}, []string{"received_at", "protocol", "raw_data"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := NewRow(header, tt.record, 4)
			if diff := cmp.Diff(tt.wantName, row.Names()); diff != "" {
				t.Errorf("Names() mismatch (-want +got):\n%s", diff)
			}
			if row.Line() != 4 {
				t.Errorf("Line() = %d, want 4", row.Line())
			}
		})
	}
}

func TestRow_IsImmutable(t *testing.T) {
	header := []string{"received_at", "protocol"}
	record := []string{"1000", "0183"}
	row := NewRow(header, record, 1)

	record[0] = "changed"
	header[1] = "changed"
	row.Names()[0] = "changed"

	if v, _ := row.Get(ColumnReceivedAt); v != "1000" {
		t.Errorf("received_at = %q after caller mutation, want 1000", v)
	}
	if !row.Has(ColumnProtocol) {
		t.Errorf("protocol column lost after caller mutation")
	}
}

func TestRow_HasAndProtocol(t *testing.T) {
	row := NewRow([]string{"received_at", "protocol", "raw_data"}, []string{"", "PGN,0183", "x"}, 2)

	if row.Has(ColumnReceivedAt) {
		t.Errorf("Has(received_at) = true for empty value")
	}
	if _, ok := row.Get("missing"); ok {
		t.Errorf("Get(missing) reported present")
	}
	if got := row.Protocol(); got != "pgn,0183" {
		t.Errorf("Protocol() = %q, want pgn,0183", got)
	}
	if got := row.String(); got != `{received_at: "", protocol: "PGN,0183", raw_data: "x"}` {
		t.Errorf("String() = %s", got)
	}
}

func TestParseMessageKind(t *testing.T) {
	for _, s := range []string{"0183", "2000", "signalk"} {
		if _, err := ParseMessageKind(s); err != nil {
			t.Errorf("ParseMessageKind(%q) error = %v", s, err)
		}
	}
	if _, err := ParseMessageKind("0184"); Classify(err) != ErrorFatal {
		t.Errorf("ParseMessageKind(0184) error = %v, want fatal", err)
	}
}

func TestParseRole(t *testing.T) {
	for _, s := range []string{"tcp", "udp", "signalk", "serial"} {
		if _, err := ParseRole(s); err != nil {
			t.Errorf("ParseRole(%q) error = %v", s, err)
		}
	}
	if _, err := ParseRole("mqtt"); err == nil {
		t.Errorf("ParseRole(mqtt) expected error")
	}
}

func TestParseMillis(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"1000", 1000, false},
		{" 2500 ", 2500, false},
		{"1718031234567.25", 1718031234567.25, false},
		{".5", 0.5, false},
		{"0", 0, false},
		{"abc", 0, true},
		{"", 0, true},
		{"-5", 0, true},
		{"1e3", 0, true},
		{"inf", 0, true},
		{"1.2.3", 0, true},
		{".", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseMillis(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseMillis(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseMillis(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestRow_ReceivedAt(t *testing.T) {
	row := NewRow([]string{"received_at"}, []string{"abc"}, 9)
	_, err := row.ReceivedAt()
	if !IsRowError(err) {
		t.Fatalf("ReceivedAt() error = %v, want row error", err)
	}

	row = NewRow([]string{"protocol"}, []string{"0183"}, 9)
	if _, err := row.ReceivedAt(); !IsRowError(err) {
		t.Fatalf("ReceivedAt() on missing column error = %v, want row error", err)
	}
}
