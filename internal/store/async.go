package store

import (
	"context"
	"sync"
	"time"

	"github.com/sphinxnet/recommender/internal/logging"
	"github.com/sphinxnet/recommender/obs"
)

// Async hands records to a Sink on a background goroutine. Submit never
// blocks; when the buffer is full the record is dropped.
type Async struct {
	sink    Sink
	timeout time.Duration
	queue   chan Record

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewAsync starts the writer goroutine. Each write gets its own timeout.
func NewAsync(sink Sink, buffer int, timeout time.Duration) *Async {
	if buffer <= 0 {
		buffer = 256
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	a := &Async{
		sink:    sink,
		timeout: timeout,
		queue:   make(chan Record, buffer),
		done:    make(chan struct{}),
	}
	go a.run()
	return a
}

// Submit queues rec and reports whether it was accepted.
func (a *Async) Submit(rec Record) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		obs.RecordStoreWrite("dropped")
		return false
	}
	select {
	case a.queue <- rec:
		return true
	default:
		obs.RecordStoreWrite("dropped")
		logging.Warn().Str("request_id", rec.RequestID).Msg("store queue full, dropping survey record")
		return false
	}
}

func (a *Async) run() {
	defer close(a.done)
	for rec := range a.queue {
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		err := a.sink.Save(ctx, rec)
		cancel()
		if err != nil {
			obs.RecordStoreWrite("error")
			logging.Warn().Err(err).Str("request_id", rec.RequestID).Msg("survey record not stored")
			continue
		}
		obs.RecordStoreWrite("ok")
	}
}

// Close stops accepting records and waits for the queue to drain or ctx to
// end.
func (a *Async) Close(ctx context.Context) error {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.queue)
	}
	a.mu.Unlock()

	select {
	case <-a.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
