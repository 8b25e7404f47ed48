package ledger

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/yusufserdarr/predictiveMaintenance/internal/adapters/appendlog"
	"github.com/yusufserdarr/predictiveMaintenance/internal/domain"
	"github.com/yusufserdarr/predictiveMaintenance/internal/ports"
)

// ErrNotFound is returned by ReadAll when the ledger file does not exist.
var ErrNotFound = errors.New("ledger: file not found")

// File is the append-only prediction ledger backed by a CSV file.
//
// Appends are serialised within one process only. Two processes appending to
// the same file are not coordinated; run a single writer (see bus.LedgerService)
// when several consumers record predictions.
type File struct {
	mu   sync.Mutex
	path string
}

func NewFile(path string) *File {
	return &File{path: path}
}

func (l *File) Path() string { return l.path }

// Append validates rec and writes it as exactly one line followed by fsync.
// The header is written first when the file does not exist yet. A torn last
// line left by an interrupted write is cut off before appending.
func (l *File) Append(rec domain.PredictionRecord) error {
	if err := Validate(rec); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("ledger mkdir: %w", err)
	}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("ledger open: %w", err)
	}
	size, err := appendlog.RepairTail(f)
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("ledger repair tail: %w", err)
	}
	needHeader := size == 0

	var b strings.Builder
	if needHeader {
		b.WriteString(Header)
		b.WriteByte('\n')
	}
	b.WriteString(FormatRow(rec))
	b.WriteByte('\n')

	if _, err := f.WriteString(b.String()); err != nil {
		_ = f.Close()
		return fmt.Errorf("ledger write: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("ledger sync: %w", err)
	}
	return f.Close()
}

// ReadAll returns every complete data row in file order. A missing file is
// ErrNotFound; an existing file with no rows returns an empty slice.
func ReadAll(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, err
	}
	defer f.Close()

	var (
		rows   []Row
		r      = bufio.NewReader(f)
		lineNo int
	)
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				return rows, nil
			}
			return nil, err
		}
		lineNo++
		line = strings.TrimRight(line, "\r\n")
		if lineNo == 1 {
			if line != Header {
				return nil, fmt.Errorf("%w: unexpected header %q", ErrInvalidRecord, line)
			}
			continue
		}
		if line == "" {
			continue
		}
		row, err := ParseRow(line)
		if err != nil {
			return nil, fmt.Errorf("ledger line %d: %w", lineNo, err)
		}
		rows = append(rows, row)
	}
}

var _ ports.LedgerAppender = (*File)(nil)
