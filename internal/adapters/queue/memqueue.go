package queue

import (
	"sync"

	"github.com/yusufserdarr/predictiveMaintenance/internal/domain"
	"github.com/yusufserdarr/predictiveMaintenance/internal/ports"
)

// MemQueue is a bounded FIFO of prediction records awaiting mirroring.
// Backed by a fixed ring so steady-state enqueue/dequeue does not allocate.
type MemQueue struct {
	mu   sync.Mutex
	buf  []*domain.PredictionRecord
	head int
	n    int
}

func NewMemQueue(capacity int) *MemQueue {
	if capacity <= 0 {
		capacity = 1
	}
	return &MemQueue{buf: make([]*domain.PredictionRecord, capacity)}
}

// Enqueue reports false when the queue is full; the record is not stored.
func (q *MemQueue) Enqueue(rec *domain.PredictionRecord) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.n == len(q.buf) {
		return false
	}
	q.buf[(q.head+q.n)%len(q.buf)] = rec
	q.n++
	return true
}

func (q *MemQueue) DequeueBatch(max int) []*domain.PredictionRecord {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.n == 0 {
		return nil
	}
	if max <= 0 || max > q.n {
		max = q.n
	}
	out := make([]*domain.PredictionRecord, max)
	for i := range out {
		idx := (q.head + i) % len(q.buf)
		out[i] = q.buf[idx]
		q.buf[idx] = nil
	}
	q.head = (q.head + max) % len(q.buf)
	q.n -= max
	return out
}

func (q *MemQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.n
}

func (q *MemQueue) Cap() int { return len(q.buf) }

var _ ports.RecordQueue = (*MemQueue)(nil)
