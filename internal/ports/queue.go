package ports

import "github.com/yusufserdarr/predictiveMaintenance/internal/domain"

type RecordQueue interface {
	Enqueue(rec *domain.PredictionRecord) bool
	DequeueBatch(max int) []*domain.PredictionRecord
	Len() int
}
