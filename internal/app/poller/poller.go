package poller

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yusufserdarr/predictiveMaintenance/internal/adapters/observability"
	"github.com/yusufserdarr/predictiveMaintenance/internal/adapters/store"
	"github.com/yusufserdarr/predictiveMaintenance/internal/domain"
	"github.com/yusufserdarr/predictiveMaintenance/internal/ports"
)

type State int

const (
	// StateNoData: the store is absent or holds no complete data row.
	StateNoData State = iota
	// StateUnchanged: no new rows since the last poll.
	StateUnchanged
	// StateNewReading: the row count grew; Result.Reading is the tail row.
	StateNewReading
)

func (s State) String() string {
	switch s {
	case StateNoData:
		return "no_data"
	case StateUnchanged:
		return "unchanged"
	case StateNewReading:
		return "new_reading"
	}
	return "unknown"
}

type Result struct {
	State   State
	Reading domain.SensorReading
	Rows    int
}

// Poller detects new telemetry by re-reading the store and comparing row
// counts. Only the newest row is surfaced; rows added between polls are
// skipped.
type Poller struct {
	id   string
	path string
	obs  ports.Observability

	mu       sync.Mutex
	lastRows int
}

func New(path string, obs ports.Observability) *Poller {
	if obs == nil {
		obs = observability.Nop{}
	}
	return &Poller{id: uuid.NewString(), path: path, obs: obs}
}

func (p *Poller) ID() string { return p.id }

// LastRows is the row count remembered from the last new reading.
func (p *Poller) LastRows() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastRows
}

// Poll performs one bounded read of the store. Repeating Poll without new
// rows returns StateUnchanged and leaves the poller untouched.
func (p *Poller) Poll(ctx context.Context) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	start := time.Now()
	snap, err := store.ReadSnapshot(p.path)
	p.obs.ObserveLatency(observability.PollLatency, time.Since(start).Seconds())
	p.obs.IncCounter(observability.PollsTotal, 1)
	if err != nil {
		if errors.Is(err, store.ErrNoData) {
			return Result{State: StateNoData}, nil
		}
		return Result{}, err
	}
	p.obs.SetGauge(observability.StoreRows, float64(snap.Rows))

	p.mu.Lock()
	defer p.mu.Unlock()
	if snap.Rows > p.lastRows {
		p.lastRows = snap.Rows
		p.obs.IncCounter(observability.NewReadings, 1)
		return Result{State: StateNewReading, Reading: snap.Latest, Rows: snap.Rows}, nil
	}
	return Result{State: StateUnchanged, Rows: snap.Rows}, nil
}

// Run polls immediately and then every interval until ctx is cancelled,
// calling handler for each new reading. Read errors are logged and retried
// on the next tick.
func (p *Poller) Run(ctx context.Context, interval time.Duration, handler func(context.Context, Result)) error {
	if interval <= 0 {
		return errors.New("poller: interval must be positive")
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		res, err := p.Poll(ctx)
		switch {
		case ctx.Err() != nil:
			return nil
		case err != nil:
			p.obs.LogError("poll failed", err, ports.Field{Key: "poller", Value: p.id}, ports.Field{Key: "path", Value: p.path})
		case res.State == StateNewReading && handler != nil:
			handler(ctx, res)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
