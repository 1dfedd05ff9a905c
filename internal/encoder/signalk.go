package encoder

import "github.com/bft-labs/vdrplayer/internal/domain"

// EncodeSignalK returns the delta document followed by CR LF.
func EncodeSignalK(row domain.Row) ([]byte, error) {
	doc, _ := row.Get(domain.ColumnRawData)
	return []byte(doc + "\r\n"), nil
}
