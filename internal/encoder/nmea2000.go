package encoder

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/bft-labs/vdrplayer/internal/domain"
)

// Layout of a logged CAN frame, in whitespace separated hex tokens.
const (
	tokenPS          = 3
	tokenPF          = 4
	tokenFlags       = 5
	tokenPayloadSize = 12
	tokenPayload     = 13
)

// maxMillis is 9999-12-31T23:59:59.999Z.
const maxMillis = 253402300799999

// EncodeNMEA2000 renders a logged CAN frame in the Actisense ASCII format:
//
//	Ahhmmss.ddd <SS><PF><P> <PGN> <payload>\r\n
//
// The time of day comes from received_at in UTC.
func EncodeNMEA2000(row domain.Row) ([]byte, error) {
	raw, ok := row.Get(domain.ColumnRawData)
	if !ok {
		return nil, domain.BadRow("line %d: missing %s", row.Line(), domain.ColumnRawData)
	}
	ms, err := row.ReceivedAt()
	if err != nil {
		return nil, err
	}

	f, err := parseFrame(raw)
	if err != nil {
		return nil, domain.BadRow("line %d: %v", row.Line(), err)
	}
	ts, err := millisToTime(ms)
	if err != nil {
		return nil, domain.BadRow("line %d: %v", row.Line(), err)
	}

	var b strings.Builder
	b.Grow(24 + len(f.payload))
	b.WriteByte('A')
	b.WriteString(ts.Format("150405.000"))
	fmt.Fprintf(&b, " %02X%02X%1X %X ", f.ps, f.pf, f.prio, f.pgn)
	b.WriteString(f.payload)
	b.WriteString("\r\n")
	return []byte(b.String()), nil
}

// frame is the part of a CAN frame the ASCII format needs.
type frame struct {
	ps, pf  byte
	prio    byte
	pgn     uint32
	payload string
}

func parseFrame(raw string) (frame, error) {
	var f frame
	tok := strings.Fields(raw)
	if len(tok) <= tokenPayloadSize {
		return f, fmt.Errorf("short frame: %d tokens", len(tok))
	}

	var err error
	if f.ps, err = hexByte(tok[tokenPS]); err != nil {
		return f, err
	}
	if f.pf, err = hexByte(tok[tokenPF]); err != nil {
		return f, err
	}
	flags, err := hexByte(tok[tokenFlags])
	if err != nil {
		return f, err
	}
	rdp := uint32(flags & 0b011)
	f.prio = (flags & 0b011100) >> 2
	f.pgn = PGN(rdp, f.pf, f.ps)

	size, err := hexByte(tok[tokenPayloadSize])
	if err != nil {
		return f, err
	}
	end := tokenPayload + int(size)
	if end > len(tok) {
		return f, fmt.Errorf("short frame: payload of %d bytes, %d present", size, len(tok)-tokenPayload)
	}
	for _, t := range tok[tokenPayload:end] {
		if len(t) != 2 {
			return f, fmt.Errorf("bad hex byte %q", t)
		}
		if _, err := hexByte(t); err != nil {
			return f, err
		}
	}
	f.payload = strings.Join(tok[tokenPayload:end], "")
	return f, nil
}

// PGN combines the data page bits and the PDU fields. PDU1 messages
// (pf < 240) are addressed, so the PDU specific byte is not part of the PGN.
func PGN(rdp uint32, pf, ps byte) uint32 {
	pgn := rdp<<16 | uint32(pf)<<8
	if pf >= 240 {
		pgn |= uint32(ps)
	}
	return pgn
}

func hexByte(s string) (byte, error) {
	v, err := strconv.ParseUint(s, 16, 8)
	if err != nil {
		return 0, fmt.Errorf("bad hex byte %q", s)
	}
	return byte(v), nil
}

func millisToTime(ms float64) (time.Time, error) {
	if math.IsNaN(ms) || math.IsInf(ms, 0) || ms < 0 || ms > maxMillis {
		return time.Time{}, fmt.Errorf("timestamp %v out of range", ms)
	}
	return time.UnixMilli(int64(math.Floor(ms))).UTC(), nil
}
