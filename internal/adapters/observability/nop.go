package observability

import (
	"github.com/yusufserdarr/predictiveMaintenance/internal/domain"
	"github.com/yusufserdarr/predictiveMaintenance/internal/ports"
)

// Nop discards everything. Used when a component is built without an
// Observability.
type Nop struct{}

func (Nop) LogInfo(string, ...ports.Field)             {}
func (Nop) LogError(string, error, ...ports.Field)     {}
func (Nop) LogCritical(string, error, ...ports.Field)  {}
func (Nop) IncCounter(string, float64)                 {}
func (Nop) ObserveLatency(string, float64)             {}
func (Nop) SetGauge(string, float64)                   {}
func (Nop) RecordClassification(domain.Status)         {}
func (Nop) RecordFallback(domain.SensorReading, error) {}

var _ ports.Observability = Nop{}
