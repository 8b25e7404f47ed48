// Package appendlog holds the crash-repair shared by the append-only CSV
// files (telemetry store and prediction ledger).
package appendlog

import (
	"errors"
	"io"
	"os"
)

// RepairTail truncates f after its last newline and returns the resulting
// size. Bytes past the last newline can only be a line whose write was
// interrupted.
func RepairTail(f *os.File) (int64, error) {
	stat, err := f.Stat()
	if err != nil {
		return 0, err
	}
	size := stat.Size()
	if size == 0 {
		return 0, nil
	}
	keep, err := LastNewlineEnd(f, size)
	if err != nil {
		return 0, err
	}
	if keep != size {
		if err := f.Truncate(keep); err != nil {
			return 0, err
		}
	}
	return keep, nil
}

// LastNewlineEnd returns the offset just past the final '\n' in the first
// size bytes of r, or 0 when there is none.
func LastNewlineEnd(r io.ReaderAt, size int64) (int64, error) {
	const block = 4096
	buf := make([]byte, block)
	end := size
	for end > 0 {
		start := end - block
		if start < 0 {
			start = 0
		}
		chunk := buf[:end-start]
		if _, err := r.ReadAt(chunk, start); err != nil && !errors.Is(err, io.EOF) {
			return 0, err
		}
		for i := len(chunk) - 1; i >= 0; i-- {
			if chunk[i] == '\n' {
				return start + int64(i) + 1, nil
			}
		}
		end = start
	}
	return 0, nil
}
