package store

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/yusufserdarr/predictiveMaintenance/internal/domain"
)

var (
	// ErrNoData means the store is absent or holds no complete data row yet.
	ErrNoData = errors.New("telemetry store: no data yet")
	// ErrBadHeader means the first line is not the telemetry header.
	ErrBadHeader = errors.New("telemetry store: unexpected header")
)

// Snapshot is what one full read of the store observed.
type Snapshot struct {
	Rows   int
	Latest domain.SensorReading
}

// ReadSnapshot reads path from the start, counts complete data rows and parses
// the last one. A trailing line without a newline is still being written and
// is ignored.
func ReadSnapshot(path string) (Snapshot, error) {
	var (
		snap Snapshot
		last string
	)
	err := scanRows(path, func(line string) error {
		snap.Rows++
		last = line
		return nil
	})
	if err != nil {
		return Snapshot{}, err
	}
	if snap.Rows == 0 {
		return Snapshot{}, ErrNoData
	}
	latest, err := ParseRow(last)
	if err != nil {
		return Snapshot{}, fmt.Errorf("telemetry store row %d: %w", snap.Rows, err)
	}
	snap.Latest = latest
	return snap, nil
}

// ReadAll parses every complete data row in append order.
func ReadAll(path string) ([]domain.SensorReading, error) {
	var out []domain.SensorReading
	err := scanRows(path, func(line string) error {
		r, err := ParseRow(line)
		if err != nil {
			return fmt.Errorf("telemetry store row %d: %w", len(out)+1, err)
		}
		out = append(out, r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrNoData
	}
	return out, nil
}

func scanRows(path string, fn func(line string) error) error {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s not found", ErrNoData, path)
		}
		return err
	}
	defer f.Close()

	r := bufio.NewReader(f)
	header := true
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		line = strings.TrimRight(line, "\r\n")
		if header {
			header = false
			if line != Header {
				return fmt.Errorf("%w: %q", ErrBadHeader, line)
			}
			continue
		}
		if line == "" {
			continue
		}
		if err := fn(line); err != nil {
			return err
		}
	}
}
