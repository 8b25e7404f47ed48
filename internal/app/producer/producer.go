package producer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yusufserdarr/predictiveMaintenance/internal/adapters/observability"
	"github.com/yusufserdarr/predictiveMaintenance/internal/adapters/store"
	"github.com/yusufserdarr/predictiveMaintenance/internal/ports"
)

// ErrInvalidInterval is returned by New for a non-positive interval.
var ErrInvalidInterval = errors.New("producer: interval must be positive")

// progressEvery is how often (in rows) progress is logged.
const progressEvery = 10

type Config struct {
	Path     string
	Interval time.Duration
	Append   bool
	// MaxRows stops the producer after that many rows; 0 runs until cancelled.
	MaxRows int
}

// Producer writes one reading from its source into the telemetry store per
// interval. The first row is written immediately.
type Producer struct {
	cfg  Config
	src  ports.Source
	obs  ports.Observability
	now  func() time.Time
	last time.Time
}

// New validates cfg before touching the filesystem.
func New(cfg Config, src ports.Source, obs ports.Observability) (*Producer, error) {
	if cfg.Interval <= 0 {
		return nil, fmt.Errorf("%w: got %s", ErrInvalidInterval, cfg.Interval)
	}
	if cfg.MaxRows < 0 {
		return nil, fmt.Errorf("producer: max rows must not be negative, got %d", cfg.MaxRows)
	}
	if src == nil {
		return nil, errors.New("producer: source is required")
	}
	if obs == nil {
		obs = observability.Nop{}
	}
	return &Producer{cfg: cfg, src: src, obs: obs, now: time.Now}, nil
}

// Run produces until ctx is cancelled or MaxRows is reached and returns the
// number of rows written by this run. Cancellation is not an error; the row
// being written when it arrives is completed and the file closed.
//
// Row k (from 0) is written at about k*Interval, so a run cancelled after
// n intervals holds n+1 rows (or n when cancelled just before a tick), and a
// MaxRows run returns right after its last row, (MaxRows-1)*Interval in.
func (p *Producer) Run(ctx context.Context) (int, error) {
	w, mode, err := store.OpenWriter(p.cfg.Path, p.cfg.Append)
	if err != nil {
		return 0, fmt.Errorf("open telemetry store: %w", err)
	}
	p.obs.LogInfo("producer started",
		ports.Field{Key: "path", Value: p.cfg.Path},
		ports.Field{Key: "mode", Value: mode.String()},
		ports.Field{Key: "interval", Value: p.cfg.Interval.String()},
	)

	runErr := p.loop(ctx, w)
	closeErr := w.Close()
	rows := w.Rows()

	p.obs.LogInfo("producer stopped",
		ports.Field{Key: "path", Value: p.cfg.Path},
		ports.Field{Key: "rows", Value: rows},
	)
	return rows, errors.Join(runErr, closeErr)
}

func (p *Producer) loop(ctx context.Context, w *store.Writer) error {
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		r, err := p.src.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read source: %w", err)
		}
		r.Timestamp = p.stamp(r.Timestamp)

		if err := w.Append(r); err != nil {
			return fmt.Errorf("append reading: %w", err)
		}
		p.obs.IncCounter(observability.RowsWritten, 1)
		rows := w.Rows()
		if rows%progressEvery == 0 {
			p.obs.LogInfo("producer progress",
				ports.Field{Key: "rows", Value: rows},
				ports.Field{Key: "temperature", Value: r.Temperature},
				ports.Field{Key: "vibration", Value: r.Vibration},
				ports.Field{Key: "torque", Value: r.Torque},
			)
		}
		if p.cfg.MaxRows > 0 && rows >= p.cfg.MaxRows {
			return nil
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// stamp truncates to the store's millisecond precision and never lets the
// timestamp go backwards, even if the wall clock does.
func (p *Producer) stamp(ts time.Time) time.Time {
	if ts.IsZero() {
		ts = p.now()
	}
	ts = ts.Truncate(time.Millisecond)
	if ts.Before(p.last) {
		ts = p.last
	}
	p.last = ts
	return ts
}
