package ports

import "github.com/yusufserdarr/predictiveMaintenance/internal/domain"

// LedgerAppender accepts prediction records for the append-only ledger.
type LedgerAppender interface {
	Append(rec domain.PredictionRecord) error
}
