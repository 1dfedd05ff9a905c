package logsource

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bft-labs/vdrplayer/internal/domain"
	"github.com/bft-labs/vdrplayer/pkg/log"
)

// Reader implements ports.RowSource over one log file.
type Reader struct {
	path   string
	file   *os.File
	lines  *bufio.Reader
	header []string
	lineNo int
	logger log.Logger
}

// Open opens path and reads its header.
func Open(path string, logger log.Logger) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open log: %w", err)
	}
	r := &Reader{
		path:   path,
		file:   f,
		lines:  bufio.NewReaderSize(f, 64*1024),
		logger: logger,
	}
	if err := r.readHeader(); err != nil {
		f.Close()
		return nil, err
	}
	return r, nil
}

// Name returns the base name of the log file.
func (r *Reader) Name() string {
	return filepath.Base(r.path)
}

// Header returns the column names of the log.
func (r *Reader) Header() []string {
	return append([]string(nil), r.header...)
}

// Next returns the next record. A record that is not valid CSV is reported
// as domain.ErrBadRow; io.EOF ends the pass.
func (r *Reader) Next(ctx context.Context) (domain.Row, error) {
	select {
	case <-ctx.Done():
		return domain.Row{}, ctx.Err()
	default:
	}

	line, err := r.significantLine()
	if err != nil {
		return domain.Row{}, err
	}
	rec, err := parseRecord(line)
	if err != nil {
		return domain.Row{}, domain.BadRow("line %d: %v", r.lineNo, err)
	}
	return domain.NewRow(r.header, rec, r.lineNo), nil
}

// Rewind seeks back to the start of the file and re-reads the header.
func (r *Reader) Rewind() error {
	if _, err := r.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewind log: %w", err)
	}
	r.lines.Reset(r.file)
	r.lineNo = 0
	return r.readHeader()
}

// CountRows returns the number of data records (header excluded) and leaves
// the reader at the first record.
func (r *Reader) CountRows() (int, error) {
	n := 0
	for {
		_, err := r.significantLine()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, err
		}
		n++
	}
	if err := r.Rewind(); err != nil {
		return 0, err
	}
	return n, nil
}

// Close releases the file handle.
func (r *Reader) Close() error {
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

func (r *Reader) readHeader() error {
	line, err := r.significantLine()
	if errors.Is(err, io.EOF) {
		return fmt.Errorf("log %s has no header line", r.Name())
	}
	if err != nil {
		return err
	}
	header, err := parseRecord(line)
	if err != nil {
		return fmt.Errorf("parse header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	r.header = header
	return nil
}

// significantLine returns the next non-blank, non-comment line, trimmed.
func (r *Reader) significantLine() (string, error) {
	for {
		raw, err := r.lines.ReadString('\n')
		if raw == "" && err != nil {
			return "", err
		}
		r.lineNo++
		line := strings.TrimSpace(raw)
		if line != "" && !strings.HasPrefix(line, "#") {
			return line, nil
		}
		if err != nil {
			return "", err
		}
	}
}

func parseRecord(line string) ([]string, error) {
	cr := csv.NewReader(strings.NewReader(line))
	cr.FieldsPerRecord = -1
	return cr.Read()
}
