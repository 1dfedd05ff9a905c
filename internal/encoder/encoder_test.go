package encoder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/vdrplayer/internal/domain"
)

var header = []string{"received_at", "protocol", "raw_data"}

func row(receivedAt, protocol, raw string) domain.Row {
	return domain.NewRow(header, []string{receivedAt, protocol, raw}, 2)
}

func TestEncodeNMEA0183(t *testing.T) {
	tests := []struct {
		name string
		row  domain.Row
		want string
	}{
		{"logged terminator", row("1", "0183", "$GPGLL,4916.45,N*2D<0D><0A>"), "$GPGLL,4916.45,N*2D\r\n"},
		{"no terminator", row("1", "0183", "$GPGLL,4916.45,N*2D"), "$GPGLL,4916.45,N*2D"},
		{"terminator not at end", row("1", "0183", "$A<0D><0A>junk"), "$A<0D><0A>junk"},
		{"every occurrence once suffix matches", row("1", "0183", "$A<0D><0A>$B<0D><0A>"), "$A\r\n$B\r\n"},
		{"missing raw_data", domain.NewRow(header[:2], []string{"1", "0183"}, 2), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Encode(tt.row, domain.KindNMEA0183)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestEncodeSignalK(t *testing.T) {
	got, err := Encode(row("1", "signalk", `{"updates":[]}`), domain.KindSignalK)
	require.NoError(t, err)
	assert.Equal(t, "{\"updates\":[]}\r\n", string(got))

	got, err = Encode(domain.NewRow(header[:2], []string{"1", "signalk"}, 2), domain.KindSignalK)
	require.NoError(t, err)
	assert.Equal(t, "\r\n", string(got))
}

func TestEncodeNMEA2000(t *testing.T) {
	tests := []struct {
		name       string
		receivedAt string
		raw        string
		want       string
	}{
		{
			name:       "PDU2 includes ps in pgn",
			receivedAt: "1718031234567",
			raw:        "00 00 00 01 F0 05 00 00 00 00 00 00 03 aa BB cc",
			want:       "A145354.567 01F01 1F001 aaBBcc\r\n",
		},
		{
			name:       "PDU1 excludes ps from pgn",
			receivedAt: "1718031234567",
			raw:        "00 00 00 7F 30 05 00 00 00 00 00 00 01 FF",
			want:       "A145354.567 7F301 13000 FF\r\n",
		},
		{
			name:       "priority and data page",
			receivedAt: "0",
			raw:        "00 00 00 10 FD 1A 00 00 00 00 00 00 02 01 02",
			want:       "A000000.000 10FD6 2FD10 0102\r\n",
		},
		{
			name:       "empty payload",
			receivedAt: "86399999",
			raw:        "00 00 00 00 EA 18 00 00 00 00 00 00 00",
			want:       "A235959.999 00EA6 EA00 \r\n",
		},
		{
			name:       "extra tokens after payload ignored",
			receivedAt: "1000.9",
			raw:        "00 00 00 01 F0 00 00 00 00 00 00 00 01 AB CD EF",
			want:       "A000001.000 01F00 F001 AB\r\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Encode(row(tt.receivedAt, "2000", tt.raw), domain.KindNMEA2000)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestEncodeNMEA2000_BadRows(t *testing.T) {
	tests := []struct {
		name string
		row  domain.Row
	}{
		{"missing raw_data", domain.NewRow(header[:2], []string{"1000", "2000"}, 2)},
		{"missing received_at", domain.NewRow(header, []string{"", "2000", "00 00 00 01 F0 05 00 00 00 00 00 00 00"}, 2)},
		{"unparsable timestamp", row("soon", "2000", "00 00 00 01 F0 05 00 00 00 00 00 00 00")},
		{"beyond year 9999", row("253402300800000", "2000", "00 00 00 01 F0 05 00 00 00 00 00 00 00")},
		{"short frame", row("1000", "2000", "00 00 00 01 F0 05")},
		{"payload shorter than size", row("1000", "2000", "00 00 00 01 F0 05 00 00 00 00 00 00 04 01 02")},
		{"bad header hex", row("1000", "2000", "00 00 00 zz F0 05 00 00 00 00 00 00 00")},
		{"bad size hex", row("1000", "2000", "00 00 00 01 F0 05 00 00 00 00 00 00 g1")},
		{"bad payload hex", row("1000", "2000", "00 00 00 01 F0 05 00 00 00 00 00 00 01 x1")},
		{"payload token not a pair", row("1000", "2000", "00 00 00 01 F0 05 00 00 00 00 00 00 01 1")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Encode(tt.row, domain.KindNMEA2000)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrBadRow)
			assert.True(t, domain.IsRowError(err))
		})
	}
}

func TestPGN(t *testing.T) {
	assert.Equal(t, uint32(0x1F001), PGN(1, 0xF0, 0x01))
	assert.Equal(t, uint32(0x13000), PGN(1, 0x30, 0x01))
	assert.Equal(t, uint32(0x13000), PGN(1, 0x30, 0xFF))
	assert.Equal(t, uint32(0x0EF00), PGN(0, 0xEF, 0x42))
}

func TestLookup_UnsupportedKind(t *testing.T) {
	_, err := Lookup(domain.MessageKind("0184"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnsupportedKind)
	assert.Equal(t, domain.ErrorFatal, domain.Classify(err))

	_, err = Encode(row("1", "0184", "x"), domain.MessageKind("0184"))
	assert.ErrorIs(t, err, domain.ErrUnsupportedKind)
}
