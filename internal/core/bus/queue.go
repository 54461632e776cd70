package bus

import (
	"github.com/pkg/errors"
	"go.uber.org/atomic"
)

// ErrQueueSaturated reports a subscriber that cannot drain its queue as fast
// as the stream produces; the session should be torn down rather than slow
// the publisher.
var ErrQueueSaturated = errors.New("send queue saturated")

const defaultQueueLen = 4096

// SendQueue decouples broadcast fanout from socket writes. Pushes never
// block: a full queue drops the message and reports saturation. A nil entry
// terminates the drain loop, and one slot is always kept free for it so Close
// cannot block either.
type SendQueue struct {
	ch     chan []byte
	closed atomic.Bool
}

func NewSendQueue() *SendQueue {
	return &SendQueue{ch: make(chan []byte, defaultQueueLen)}
}

// Push enqueues data for the writer goroutine.
func (q *SendQueue) Push(data []byte) error {
	if q.closed.Load() {
		return errors.New("send queue closed")
	}
	if len(q.ch) >= cap(q.ch)-1 {
		return ErrQueueSaturated
	}
	q.ch <- data
	return nil
}

// Close stops the drain loop after the queued messages are written. Safe to
// call more than once.
func (q *SendQueue) Close() {
	if q.closed.CompareAndSwap(false, true) {
		q.ch <- nil
	}
}

// Drain writes queued buffers until the queue closes or a write fails. It is
// the session's single writer; run it on its own goroutine.
func (q *SendQueue) Drain(write func(data []byte) error) error {
	for data := range q.ch {
		if data == nil {
			return nil
		}
		if err := write(data); err != nil {
			q.closed.Store(true)
			return err
		}
	}
	return nil
}
