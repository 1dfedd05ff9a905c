// Package encoder turns log rows back into the bytes their protocol puts on
// the wire.
//
// Encoders are pure functions of a row. A row that cannot be encoded yields
// an error wrapping domain.ErrBadRow; asking for a kind that has no encoder
// yields domain.ErrUnsupportedKind.
package encoder

import (
	"fmt"

	"github.com/bft-labs/vdrplayer/internal/domain"
)

// Func encodes one row.
type Func func(row domain.Row) ([]byte, error)

var encoders = map[domain.MessageKind]Func{
	domain.KindNMEA0183: EncodeNMEA0183,
	domain.KindNMEA2000: EncodeNMEA2000,
	domain.KindSignalK:  EncodeSignalK,
}

// Lookup returns the encoder for kind.
func Lookup(kind domain.MessageKind) (Func, error) {
	fn, ok := encoders[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedKind, string(kind))
	}
	return fn, nil
}

// Encode encodes row as kind.
func Encode(row domain.Row, kind domain.MessageKind) ([]byte, error) {
	fn, err := Lookup(kind)
	if err != nil {
		return nil, err
	}
	return fn(row)
}
