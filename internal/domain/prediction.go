package domain

import "time"

// Status is the maintenance urgency attached to a health estimate.
type Status string

const (
	StatusCritical Status = "CRITICAL"
	StatusPlanned  Status = "PLANNED"
	StatusNormal   Status = "NORMAL"
	StatusUnknown  Status = "UNKNOWN"
)

// Statuses lists every status in report order.
var Statuses = []Status{StatusCritical, StatusPlanned, StatusNormal, StatusUnknown}

// Valid reports whether s is one of the four fixed statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusCritical, StatusPlanned, StatusNormal, StatusUnknown:
		return true
	}
	return false
}

// PredictionRecord is one row of the prediction ledger.
type PredictionRecord struct {
	Timestamp   time.Time `json:"timestamp"`
	Temperature float64   `json:"temperature"`
	Vibration   float64   `json:"vibration"`
	Torque      float64   `json:"torque"`
	RUL         float64   `json:"rul"`
	Status      Status    `json:"status"`
}
