package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/yusufserdarr/predictiveMaintenance/internal/adapters/observability"
	"github.com/yusufserdarr/predictiveMaintenance/internal/domain"
	"github.com/yusufserdarr/predictiveMaintenance/internal/ports"
)

const maxRetrySleep = 5 * time.Second

// Enqueue hands rec to the mirror queue, applying pol.OnQueueFull when the
// queue is at capacity. It reports whether the record was queued.
func Enqueue(ctx context.Context, q ports.RecordQueue, rec *domain.PredictionRecord, pol ports.Policy, obs ports.Observability) bool {
	sleep := pol.IdleSleep
	if sleep <= 0 {
		sleep = 5 * time.Millisecond
	}

	for {
		if ok := q.Enqueue(rec); ok {
			obs.SetGauge(observability.QueueLength, float64(q.Len()))
			return true
		}

		switch pol.OnQueueFull {
		case "block":
			select {
			case <-ctx.Done():
				obs.IncCounter(observability.QueueDropped, 1)
				return false
			case <-time.After(sleep):
			}
		case "drop", "reject":
			obs.IncCounter(observability.QueueDropped, 1)
			obs.LogError("queue_full_drop", fmt.Errorf("queue length exceeded capacity %d", pol.MaxQueueLen))
			return false
		default:
			obs.LogError("queue_policy_invalid", fmt.Errorf("policy=%s", pol.OnQueueFull))
			return false
		}
	}
}

// RunMirror copies queued predictions into sink until ctx is cancelled. A
// failed batch is retried with backoff before anything newer is taken; the
// ledger file remains the source of truth, so a batch still pending at
// shutdown gets one last attempt and is then abandoned.
func RunMirror(ctx context.Context, q ports.RecordQueue, sink ports.Sink, pol ports.Policy, obs ports.Observability) {
	idle := pol.IdleSleep
	if idle <= 0 {
		idle = 5 * time.Millisecond
	}

	var (
		pending []*domain.PredictionRecord
		backoff = idle
	)
	for {
		if len(pending) == 0 {
			pending = q.DequeueBatch(pol.MaxBatchSize)
			obs.SetGauge(observability.QueueLength, float64(q.Len()))
		}
		if len(pending) == 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(idle):
			}
			continue
		}

		if err := writeBatch(sink, pending, obs); err != nil {
			obs.LogError("sink_write_failed", err,
				ports.Field{Key: "sink", Value: sink.Name()},
				ports.Field{Key: "batch", Value: len(pending)})
			select {
			case <-ctx.Done():
				if err := writeBatch(sink, pending, obs); err != nil {
					obs.IncCounter(observability.QueueDropped, float64(len(pending)))
				}
				return
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, maxRetrySleep)
			continue
		}
		pending = nil
		backoff = idle

		if ctx.Err() != nil {
			return
		}
	}
}

func writeBatch(sink ports.Sink, batch []*domain.PredictionRecord, obs ports.Observability) error {
	start := time.Now()
	if err := sink.WriteBatch(batch); err != nil {
		return err
	}
	obs.ObserveLatency(observability.SinkLatency, time.Since(start).Seconds())
	obs.IncCounter(observability.RecordsMirrored, float64(len(batch)))
	return nil
}
