package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/yusufserdarr/predictiveMaintenance/internal/adapters/appendlog"
	"github.com/yusufserdarr/predictiveMaintenance/internal/domain"
)

// Mode is the startup mode chosen by OpenWriter.
type Mode int

const (
	// ModeCreate: the file did not exist; it was created with a header.
	ModeCreate Mode = iota
	// ModeAppend: the file existed and rows are added after the existing ones.
	ModeAppend
	// ModeOverwrite: the file existed and was truncated; the header is rewritten.
	ModeOverwrite
)

func (m Mode) String() string {
	switch m {
	case ModeCreate:
		return "create"
	case ModeAppend:
		return "append"
	case ModeOverwrite:
		return "overwrite"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Writer appends readings to a telemetry store file. Every Append is followed
// by fsync, so a row is either fully on disk or absent after a crash.
type Writer struct {
	mu        sync.Mutex
	path      string
	file      *os.File
	rows      int
	sizeBytes int64
	closed    bool
}

// ResolveMode picks the startup mode from file existence and the append flag.
func ResolveMode(exists, appendMode bool) Mode {
	switch {
	case !exists:
		return ModeCreate
	case appendMode:
		return ModeAppend
	default:
		return ModeOverwrite
	}
}

// OpenWriter prepares path for appending. Parent directories are created.
// In append mode a torn trailing line is cut off first; an existing but empty
// file gets its header since it never had one.
func OpenWriter(path string, appendMode bool) (*Writer, Mode, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, 0, err
	}

	_, err := os.Stat(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, 0, err
	}
	mode := ResolveMode(err == nil, appendMode)

	flags := os.O_CREATE | os.O_RDWR | os.O_APPEND
	if mode == ModeOverwrite {
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, 0, err
	}

	w := &Writer{path: path, file: f}
	if mode == ModeAppend {
		if err := w.repairTail(); err != nil {
			_ = f.Close()
			return nil, 0, err
		}
	}
	if w.sizeBytes == 0 {
		if err := w.writeLine(Header); err != nil {
			_ = f.Close()
			return nil, 0, err
		}
	}
	return w, mode, nil
}

// repairTail drops a row whose write was interrupted.
func (w *Writer) repairTail() error {
	keep, err := appendlog.RepairTail(w.file)
	if err != nil {
		return fmt.Errorf("telemetry store repair tail: %w", err)
	}
	w.sizeBytes = keep
	return nil
}

// Append writes one reading as a single line and syncs it to storage.
func (w *Writer) Append(r domain.SensorReading) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return os.ErrClosed
	}
	if err := w.writeLine(FormatRow(r)); err != nil {
		return err
	}
	w.rows++
	return nil
}

func (w *Writer) writeLine(line string) error {
	b := []byte(line + "\n")
	if _, err := w.file.Write(b); err != nil {
		return fmt.Errorf("telemetry store write: %w", err)
	}
	if err := w.file.Sync(); err != nil {
		return fmt.Errorf("telemetry store sync: %w", err)
	}
	w.sizeBytes += int64(len(b))
	return nil
}

// Rows returns the number of rows appended through this writer.
func (w *Writer) Rows() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rows
}

// SizeBytes returns the current file size as tracked by the writer.
func (w *Writer) SizeBytes() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.sizeBytes
}

func (w *Writer) Path() string { return w.path }

// Close syncs and closes the file. It is safe to call more than once.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	syncErr := w.file.Sync()
	return errors.Join(syncErr, w.file.Close())
}
