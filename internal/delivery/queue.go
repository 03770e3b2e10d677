package delivery

import (
	"sync"

	apperrors "smsgate/internal/errors"
	"smsgate/internal/models"
)

// Queue is a FIFO of outbound SMS awaiting the pull device. Enqueue and
// DrainAll are mutually exclusive, so every message appears in exactly one
// drained batch.
type Queue struct {
	mu       sync.Mutex
	items    []*models.OutboundSMS
	capacity int
}

// NewQueue creates a queue holding at most capacity messages; 0 means
// unbounded.
func NewQueue(capacity int) *Queue {
	if capacity < 0 {
		capacity = 0
	}
	return &Queue{capacity: capacity}
}

// Enqueue appends msg, failing with QUEUE_FULL when the queue is at capacity
func (q *Queue) Enqueue(msg *models.OutboundSMS) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.capacity > 0 && len(q.items) >= q.capacity {
		return apperrors.New(apperrors.ErrCodeQueueFull, "outbound queue full").
			WithContext("capacity", q.capacity)
	}
	q.items = append(q.items, msg)
	return nil
}

// DrainAll removes and returns the whole queue in enqueue order. The result
// is never nil.
func (q *Queue) DrainAll() []*models.OutboundSMS {
	q.mu.Lock()
	defer q.mu.Unlock()

	batch := q.items
	q.items = nil
	if batch == nil {
		batch = []*models.OutboundSMS{}
	}
	return batch
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
