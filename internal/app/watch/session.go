package watch

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/yusufserdarr/predictiveMaintenance/internal/adapters/observability"
	"github.com/yusufserdarr/predictiveMaintenance/internal/app/poller"
	"github.com/yusufserdarr/predictiveMaintenance/internal/app/predictor"
	"github.com/yusufserdarr/predictiveMaintenance/internal/domain"
	"github.com/yusufserdarr/predictiveMaintenance/internal/ports"
)

var (
	// ErrNoReading: nothing has been observed yet, so there is nothing to record.
	ErrNoReading = errors.New("watch: no reading observed yet")
	// ErrNoLedger: the session was built without a ledger.
	ErrNoLedger = errors.New("watch: no ledger configured")
)

type Options struct {
	AutoRecord  bool
	HistorySize int
	// Mirror, when set, receives every record after it reached the ledger.
	Mirror func(ctx context.Context, rec domain.PredictionRecord)
}

// State is a point-in-time copy of the session for rendering.
type State struct {
	ID         string
	AutoRecord bool
	Latest     *domain.SensorReading
	Last       *predictor.Outcome
	// History holds the most recent outcomes, oldest first.
	History  []predictor.Outcome
	Recorded int
}

// Session owns the consumer-side state: latest reading, last outcome, a
// bounded outcome history and whether new outcomes are recorded automatically.
type Session struct {
	id     string
	pred   *predictor.Predictor
	ledger ports.LedgerAppender
	obs    ports.Observability
	mirror func(context.Context, domain.PredictionRecord)

	mu       sync.Mutex
	auto     bool
	latest   *domain.SensorReading
	last     *predictor.Outcome
	history  []predictor.Outcome
	histCap  int
	recorded int
}

func NewSession(pred *predictor.Predictor, ledger ports.LedgerAppender, opts Options, obs ports.Observability) *Session {
	if obs == nil {
		obs = observability.Nop{}
	}
	if opts.HistorySize <= 0 {
		opts.HistorySize = 20
	}
	return &Session{
		id:      uuid.NewString(),
		pred:    pred,
		ledger:  ledger,
		obs:     obs,
		mirror:  opts.Mirror,
		auto:    opts.AutoRecord,
		histCap: opts.HistorySize,
	}
}

func (s *Session) ID() string { return s.id }

func (s *Session) SetAutoRecord(on bool) {
	s.mu.Lock()
	s.auto = on
	s.mu.Unlock()
}

// HandlePoll is a poller.Run handler.
func (s *Session) HandlePoll(ctx context.Context, res poller.Result) {
	if res.State != poller.StateNewReading {
		return
	}
	if _, err := s.Observe(ctx, res.Reading); err != nil {
		s.obs.LogError("auto record failed", err, ports.Field{Key: "session", Value: s.id})
	}
}

// Observe predicts r, updates the session and, with auto-record on, appends
// the outcome to the ledger. The outcome is returned even when recording fails.
func (s *Session) Observe(ctx context.Context, r domain.SensorReading) (predictor.Outcome, error) {
	out := s.pred.Predict(r)

	s.mu.Lock()
	s.latest = &r
	s.last = &out
	s.history = append(s.history, out)
	if len(s.history) > s.histCap {
		s.history = append(s.history[:0], s.history[len(s.history)-s.histCap:]...)
	}
	auto := s.auto
	s.mu.Unlock()

	s.obs.LogInfo("prediction",
		ports.Field{Key: "session", Value: s.id},
		ports.Field{Key: "rul", Value: out.RUL},
		ports.Field{Key: "status", Value: string(out.Decision.Status)},
		ports.Field{Key: "origin", Value: string(out.Origin)},
	)
	if !auto {
		return out, nil
	}
	return out, s.record(ctx, out.Record())
}

// RecordLatest appends the last outcome to the ledger on demand.
func (s *Session) RecordLatest(ctx context.Context) (domain.PredictionRecord, error) {
	s.mu.Lock()
	last := s.last
	s.mu.Unlock()
	if last == nil {
		return domain.PredictionRecord{}, ErrNoReading
	}
	rec := last.Record()
	return rec, s.record(ctx, rec)
}

// Record appends an externally built record (manual entry) to the ledger.
func (s *Session) Record(ctx context.Context, rec domain.PredictionRecord) error {
	return s.record(ctx, rec)
}

func (s *Session) record(ctx context.Context, rec domain.PredictionRecord) error {
	if s.ledger == nil {
		return ErrNoLedger
	}
	if err := s.ledger.Append(rec); err != nil {
		return fmt.Errorf("append prediction: %w", err)
	}
	s.obs.IncCounter(observability.RecordsAppended, 1)
	s.mu.Lock()
	s.recorded++
	s.mu.Unlock()
	if s.mirror != nil {
		s.mirror(ctx, rec)
	}
	return nil
}

func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := State{
		ID:         s.id,
		AutoRecord: s.auto,
		History:    append([]predictor.Outcome(nil), s.history...),
		Recorded:   s.recorded,
	}
	if s.latest != nil {
		r := *s.latest
		st.Latest = &r
	}
	if s.last != nil {
		o := *s.last
		st.Last = &o
	}
	return st
}
