package progress

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestReporter_RateLimited(t *testing.T) {
	var buf bytes.Buffer
	clock := &fakeClock{t: time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)}
	r := New(&buf, 12345, false, WithClock(clock.now), WithInPlace(false))

	r.Report(1)
	clock.advance(300 * time.Millisecond)
	r.Report(2)
	clock.advance(700 * time.Millisecond)
	r.Report(1500)

	assert.Equal(t, "Processed 1/12,345\nProcessed 1,500/12,345\n", buf.String())
}

func TestReporter_FinishForcesLine(t *testing.T) {
	var buf bytes.Buffer
	clock := &fakeClock{t: time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)}
	r := New(&buf, 3, false, WithClock(clock.now), WithInPlace(false))

	r.Report(1)
	r.Finish(3)
	// The next pass starts with a fresh rate limit.
	r.Report(1)

	assert.Equal(t, "Processed 1/3\nProcessed 3/3\nProcessed 1/3\n", buf.String())
}

func TestReporter_InPlace(t *testing.T) {
	var buf bytes.Buffer
	clock := &fakeClock{t: time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)}
	r := New(&buf, 2, false, WithClock(clock.now), WithInPlace(true))

	r.Report(1)
	r.Finish(2)

	assert.Equal(t, "\rProcessed 1/2\rProcessed 2/2\n", buf.String())
}

func TestReporter_Quiet(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf, 2, true)

	r.Report(1)
	r.Finish(2)

	assert.Empty(t, buf.String())
}

func TestReporter_BufferIsNotATerminal(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf, 1, false)
	r.Finish(1)
	assert.Equal(t, "Processed 1/1\n", buf.String())
}
