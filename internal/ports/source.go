package ports

import (
	"context"

	"github.com/yusufserdarr/predictiveMaintenance/internal/domain"
)

// Source yields sensor readings for the producer (simulator, OPC UA, ...).
type Source interface {
	Next(ctx context.Context) (domain.SensorReading, error)
	Close() error
}
