package ports

import "github.com/yusufserdarr/predictiveMaintenance/internal/domain"

// Sink mirrors batches of accepted predictions into a downstream system.
type Sink interface {
	WriteBatch(records []*domain.PredictionRecord) error
	Name() string
}
