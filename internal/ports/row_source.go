package ports

import (
	"context"

	"github.com/bft-labs/vdrplayer/internal/domain"
)

// RowSource yields log rows in file order.
type RowSource interface {
	// Next returns the next row, or io.EOF when the pass is exhausted.
	// Errors wrapping domain.ErrBadRow concern a single record; the caller
	// may log them and call Next again.
	Next(ctx context.Context) (domain.Row, error)
}

// Rewinder restarts a RowSource from its first row without reopening it.
type Rewinder interface {
	Rewind() error
}
