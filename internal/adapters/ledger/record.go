package ledger

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/yusufserdarr/predictiveMaintenance/internal/domain"
)

// Column names in file order.
const (
	ColTimestamp   = "timestamp"
	ColTemperature = "temperature"
	ColVibration   = "vibration"
	ColTorque      = "torque"
	ColRUL         = "rul"
	ColStatus      = "status"
)

// Columns is the fixed ledger column order.
var Columns = []string{ColTimestamp, ColTemperature, ColVibration, ColTorque, ColRUL, ColStatus}

// Header is the first line of the ledger file.
var Header = strings.Join(Columns, ",")

// TimestampLayout is used when writing; ParseTimestamp accepts a few more.
const TimestampLayout = "2006-01-02T15:04:05.999999"

var timestampLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	time.RFC3339Nano,
}

var (
	// ErrMissingField rejects a record lacking one of the six columns.
	ErrMissingField = errors.New("ledger: required field missing")
	// ErrInvalidRecord rejects a record whose fields are present but unusable.
	ErrInvalidRecord = errors.New("ledger: invalid record")
)

// Validate checks a record before it is written. A non-finite or negative RUL
// is recorded, but only with status UNKNOWN, and UNKNOWN only with such a RUL.
func Validate(rec domain.PredictionRecord) error {
	if rec.Timestamp.IsZero() {
		return fmt.Errorf("%w: %s", ErrMissingField, ColTimestamp)
	}
	for _, f := range []struct {
		name string
		v    float64
	}{
		{ColTemperature, rec.Temperature},
		{ColVibration, rec.Vibration},
		{ColTorque, rec.Torque},
	} {
		if math.IsNaN(f.v) {
			return fmt.Errorf("%w: %s", ErrMissingField, f.name)
		}
		if math.IsInf(f.v, 0) {
			return fmt.Errorf("%w: %s is not finite", ErrInvalidRecord, f.name)
		}
	}
	if rec.Status == "" {
		return fmt.Errorf("%w: %s", ErrMissingField, ColStatus)
	}
	if !rec.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidRecord, rec.Status)
	}
	if invalid := math.IsNaN(rec.RUL) || math.IsInf(rec.RUL, 0) || rec.RUL < 0; invalid != (rec.Status == domain.StatusUnknown) {
		return fmt.Errorf("%w: status %s does not match rul %v", ErrInvalidRecord, rec.Status, rec.RUL)
	}
	return nil
}

// RecordFromFields builds a record from loosely typed input (CLI flags, HTTP
// forms). Every column must be present; the first missing one is reported.
func RecordFromFields(fields map[string]string) (domain.PredictionRecord, error) {
	for _, col := range Columns {
		if v, ok := fields[col]; !ok || strings.TrimSpace(v) == "" {
			return domain.PredictionRecord{}, fmt.Errorf("%w: %s", ErrMissingField, col)
		}
	}

	ts, err := ParseTimestamp(fields[ColTimestamp])
	if err != nil {
		return domain.PredictionRecord{}, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	var nums [4]float64
	for i, col := range Columns[1:5] {
		v, err := strconv.ParseFloat(strings.TrimSpace(fields[col]), 64)
		if err != nil {
			return domain.PredictionRecord{}, fmt.Errorf("%w: %s: %v", ErrInvalidRecord, col, err)
		}
		nums[i] = v
	}
	rec := domain.PredictionRecord{
		Timestamp:   ts,
		Temperature: nums[0],
		Vibration:   nums[1],
		Torque:      nums[2],
		RUL:         nums[3],
		Status:      domain.Status(strings.TrimSpace(fields[ColStatus])),
	}
	return rec, Validate(rec)
}

// ParseTimestamp accepts ISO-8601 with 'T' or space separators, with or
// without fractional seconds and offset.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	var firstErr error
	for _, layout := range timestampLayouts {
		t, err := time.ParseInLocation(layout, s, time.Local)
		if err == nil {
			return t, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, fmt.Errorf("timestamp %q: %w", s, firstErr)
}

// FormatRow renders rec as a CSV line without the trailing newline.
func FormatRow(rec domain.PredictionRecord) string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	return strings.Join([]string{
		rec.Timestamp.Local().Format(TimestampLayout),
		f(rec.Temperature),
		f(rec.Vibration),
		f(rec.Torque),
		f(rec.RUL),
		string(rec.Status),
	}, ",")
}

// Row is one ledger line: the raw cells as written plus the parsed record.
type Row struct {
	Raw    []string
	Record domain.PredictionRecord
}

// ParseRow splits and parses one data line.
func ParseRow(line string) (Row, error) {
	raw := strings.Split(strings.TrimRight(line, "\r\n"), ",")
	if len(raw) != len(Columns) {
		return Row{}, fmt.Errorf("expected %d fields, got %d", len(Columns), len(raw))
	}
	fields := make(map[string]string, len(Columns))
	for i, col := range Columns {
		fields[col] = raw[i]
	}
	ts, err := ParseTimestamp(raw[0])
	if err != nil {
		return Row{}, err
	}
	var nums [4]float64
	for i := range nums {
		v, err := strconv.ParseFloat(strings.TrimSpace(raw[i+1]), 64)
		if err != nil {
			return Row{}, fmt.Errorf("%s: %w", Columns[i+1], err)
		}
		nums[i] = v
	}
	return Row{
		Raw: raw,
		Record: domain.PredictionRecord{
			Timestamp:   ts,
			Temperature: nums[0],
			Vibration:   nums[1],
			Torque:      nums[2],
			RUL:         nums[3],
			Status:      domain.Status(strings.TrimSpace(raw[5])),
		},
	}, nil
}
