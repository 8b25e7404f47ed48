package domain

import "time"

// SensorReading is one telemetry row produced by a machine (or the simulator).
// It is immutable once appended to the telemetry store.
type SensorReading struct {
	Timestamp   time.Time `json:"timestamp"`
	Temperature float64   `json:"temperature"`
	Vibration   float64   `json:"vibration"`
	Torque      float64   `json:"torque"`
}
