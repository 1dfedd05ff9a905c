package encoder

import (
	"strings"

	"github.com/bft-labs/vdrplayer/internal/domain"
)

// loggedCRLF is how capture tools write the sentence terminator.
const loggedCRLF = "<0D><0A>"

// EncodeNMEA0183 returns raw_data as sent by the talker. A logged "<0D><0A>"
// terminator is turned back into CR LF; control bytes are passed through.
func EncodeNMEA0183(row domain.Row) ([]byte, error) {
	line, _ := row.Get(domain.ColumnRawData)
	if strings.HasSuffix(line, loggedCRLF) {
		line = strings.ReplaceAll(line, loggedCRLF, "\r\n")
	}
	return []byte(line), nil
}
