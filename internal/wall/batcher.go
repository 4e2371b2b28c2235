package wall

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/monument-wall/wall-service/internal/domain"
	"github.com/monument-wall/wall-service/internal/metrics"
)

// FlushHandler observes one batch flush: the items just merged, in
// arrival order, and the list length after the merge.
type FlushHandler func(batch []domain.Participant, total int)

// Batcher decouples bursty insert delivery from fan-out cost: events
// accumulate in a pending buffer and merge into the list on a fixed tick,
// so N simultaneous joins cost one broadcast instead of N.
type Batcher struct {
	list     *List
	interval time.Duration

	mu       sync.Mutex
	pending  []domain.Participant
	handlers []FlushHandler
}

func NewBatcher(list *List, interval time.Duration) *Batcher {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	return &Batcher{list: list, interval: interval}
}

// OnFlush registers a handler. Register before Run; handlers run on the
// flush goroutine and must not block.
func (b *Batcher) OnFlush(h FlushHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

// Add buffers one insert event. No dedup here: the store's unique
// constraints make duplicate rows impossible upstream.
func (b *Batcher) Add(p domain.Participant) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending = append(b.pending, p)
}

// Flush drains the pending buffer into the list, if non-empty, and
// notifies handlers. Returns the number of items moved.
func (b *Batcher) Flush() int {
	b.mu.Lock()
	if len(b.pending) == 0 {
		b.mu.Unlock()
		return 0
	}
	batch := b.pending
	b.pending = nil
	handlers := b.handlers
	b.mu.Unlock()

	total := b.list.Append(batch)

	metrics.BatchFlushesTotal.Inc()
	metrics.BatchedEventsTotal.Add(float64(len(batch)))
	slog.Debug("wall flush", "batch", len(batch), "total", total)

	for _, h := range handlers {
		h(batch, total)
	}
	return len(batch)
}

// Run flushes on the interval until ctx is cancelled. A final flush on
// exit keeps late-buffered events from being dropped.
func (b *Batcher) Run(ctx context.Context) {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			b.Flush()
		case <-ctx.Done():
			b.Flush()
			return
		}
	}
}

// PendingLen reports the buffer size; used by tests and the health view.
func (b *Batcher) PendingLen() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}
