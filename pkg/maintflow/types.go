package maintflow

import (
	"github.com/yusufserdarr/predictiveMaintenance/internal/app/predictor"
	"github.com/yusufserdarr/predictiveMaintenance/internal/decision"
	"github.com/yusufserdarr/predictiveMaintenance/internal/domain"
	"github.com/yusufserdarr/predictiveMaintenance/internal/ports"
)

// Reading is one telemetry row.
type Reading = domain.SensorReading

// Record is one prediction ledger row.
type Record = domain.PredictionRecord

// Status is the maintenance urgency.
type Status = domain.Status

const (
	StatusCritical = domain.StatusCritical
	StatusPlanned  = domain.StatusPlanned
	StatusNormal   = domain.StatusNormal
	StatusUnknown  = domain.StatusUnknown
)

// Thresholds delimit the status bands.
type Thresholds = decision.Thresholds

// Decision is a classified RUL with its message and color.
type Decision = decision.Decision

// Outcome is the result of predicting one reading.
type Outcome = predictor.Outcome

// Model is the regressor contract (scaler Transform + Predict).
type Model = ports.Model

// Sink receives batches of recorded predictions (databases, APIs, ...).
type Sink = ports.Sink

// RecordQueue buffers recorded predictions for the sink.
type RecordQueue = ports.RecordQueue

// LedgerAppender persists prediction records.
type LedgerAppender = ports.LedgerAppender

// Observability emits metrics and structured logs.
type Observability = ports.Observability

// Field is a structured log field used by Observability implementations.
type Field = ports.Field

// Classify maps rul onto a decision using th.
func Classify(rul float64, th Thresholds) Decision {
	return decision.Classify(rul, th)
}

// DefaultThresholds returns {critical: 20, planned: 50}.
func DefaultThresholds() Thresholds {
	return decision.DefaultThresholds()
}
