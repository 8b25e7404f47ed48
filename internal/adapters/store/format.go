package store

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/yusufserdarr/predictiveMaintenance/internal/domain"
)

// Header is the first line of every telemetry store file.
const Header = "timestamp,temperature,vibration,torque"

// TimestampLayout is the millisecond-precision, producer-local timestamp format.
const TimestampLayout = "2006-01-02 15:04:05.000"

// FormatRow renders one reading as a CSV line without the trailing newline.
func FormatRow(r domain.SensorReading) string {
	var b strings.Builder
	b.WriteString(r.Timestamp.Format(TimestampLayout))
	for _, v := range []float64{r.Temperature, r.Vibration, r.Torque} {
		b.WriteByte(',')
		b.WriteString(strconv.FormatFloat(v, 'f', -1, 64))
	}
	return b.String()
}

// ParseRow is the inverse of FormatRow.
func ParseRow(line string) (domain.SensorReading, error) {
	fields := strings.Split(strings.TrimRight(line, "\r\n"), ",")
	if len(fields) != 4 {
		return domain.SensorReading{}, fmt.Errorf("telemetry row: expected 4 fields, got %d", len(fields))
	}
	ts, err := time.ParseInLocation(TimestampLayout, fields[0], time.Local)
	if err != nil {
		return domain.SensorReading{}, fmt.Errorf("telemetry row timestamp: %w", err)
	}
	var vals [3]float64
	for i := range vals {
		v, err := strconv.ParseFloat(strings.TrimSpace(fields[i+1]), 64)
		if err != nil {
			return domain.SensorReading{}, fmt.Errorf("telemetry row column %d: %w", i+1, err)
		}
		vals[i] = v
	}
	return domain.SensorReading{
		Timestamp:   ts,
		Temperature: vals[0],
		Vibration:   vals[1],
		Torque:      vals[2],
	}, nil
}
