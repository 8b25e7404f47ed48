package maintflow

import (
	"errors"
	"fmt"
	"sync"

	"github.com/yusufserdarr/predictiveMaintenance/internal/domain"
)

// RecordBatchSink is invoked with ordered batches of recorded predictions.
type RecordBatchSink func([]Record) error

// ErrChannelSinkClosed is returned when a channel sink is written to after being closed.
var ErrChannelSinkClosed = errors.New("maintflow: channel sink closed")

// NewCallbackSink adapts a RecordBatchSink into a Sink so callers can plug
// arbitrary functions without defining structs.
func NewCallbackSink(name string, fn RecordBatchSink) Sink {
	if name == "" {
		name = "callback"
	}
	return &callbackSink{name: name, fn: fn}
}

// NewChannelSink exposes batches via a channel; it returns the sink, the read-only channel,
// and a close function that the caller should invoke during shutdown.
func NewChannelSink(name string, buffer int) (Sink, <-chan []Record, func()) {
	if name == "" {
		name = "channel"
	}
	if buffer < 0 {
		buffer = 0
	}
	ch := make(chan []Record, buffer)
	s := &channelSink{
		name:   name,
		ch:     ch,
		closed: make(chan struct{}),
	}
	return s, ch, func() { s.close() }
}

type callbackSink struct {
	name string
	fn   RecordBatchSink
}

func (s *callbackSink) WriteBatch(records []*domain.PredictionRecord) error {
	if s.fn == nil {
		return fmt.Errorf("callback sink %q: nil handler", s.name)
	}
	if len(records) == 0 {
		return nil
	}
	return s.fn(copyBatch(records))
}

func (s *callbackSink) Name() string { return s.name }

type channelSink struct {
	name   string
	ch     chan []Record
	closed chan struct{}
	once   sync.Once
}

func (s *channelSink) WriteBatch(records []*domain.PredictionRecord) error {
	select {
	case <-s.closed:
		return ErrChannelSinkClosed
	default:
	}
	if len(records) == 0 {
		return nil
	}

	select {
	case <-s.closed:
		return ErrChannelSinkClosed
	case s.ch <- copyBatch(records):
		return nil
	}
}

func (s *channelSink) Name() string { return s.name }

func (s *channelSink) close() {
	s.once.Do(func() {
		close(s.closed)
		close(s.ch)
	})
}

func copyBatch(records []*domain.PredictionRecord) []Record {
	out := make([]Record, len(records))
	for i, r := range records {
		out[i] = *r
	}
	return out
}
