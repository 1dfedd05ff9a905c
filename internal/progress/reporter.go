// Package progress prints how far a replay pass has got.
package progress

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/term"
)

// DefaultInterval is the minimum time between two progress lines.
const DefaultInterval = time.Second

// Reporter writes "Processed n/total" lines, at most one per interval.
// On a terminal the line is redrawn in place.
type Reporter struct {
	mu       sync.Mutex
	out      io.Writer
	total    int
	quiet    bool
	inPlace  bool
	interval time.Duration
	now      func() time.Time
	last     time.Time
}

// Option configures a Reporter.
type Option func(*Reporter)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Reporter) { r.now = now }
}

// WithInterval changes the rate limit.
func WithInterval(d time.Duration) Option {
	return func(r *Reporter) { r.interval = d }
}

// WithInPlace forces or disables carriage-return redraws.
func WithInPlace(inPlace bool) Option {
	return func(r *Reporter) { r.inPlace = inPlace }
}

// New creates a Reporter for a log of total data rows.
func New(out io.Writer, total int, quiet bool, opts ...Option) *Reporter {
	r := &Reporter{
		out:      out,
		total:    total,
		quiet:    quiet,
		inPlace:  isTerminal(out),
		interval: DefaultInterval,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Report prints rows processed so far unless a line was printed recently.
func (r *Reporter) Report(rows int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.quiet {
		return
	}
	now := r.now()
	if !r.last.IsZero() && now.Sub(r.last) < r.interval {
		return
	}
	r.last = now
	r.print(rows, false)
}

// Finish prints the final count of a pass regardless of the rate limit.
func (r *Reporter) Finish(rows int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.quiet {
		return
	}
	r.last = time.Time{}
	r.print(rows, true)
}

func (r *Reporter) print(rows int, final bool) {
	line := fmt.Sprintf("Processed %s/%s", humanize.Comma(int64(rows)), humanize.Comma(int64(r.total)))
	switch {
	case !r.inPlace:
		fmt.Fprintln(r.out, line)
	case final:
		fmt.Fprintf(r.out, "\r%s\n", line)
	default:
		fmt.Fprintf(r.out, "\r%s", line)
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
