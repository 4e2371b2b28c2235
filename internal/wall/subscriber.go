package wall

import (
	"context"
	"log/slog"
	"time"

	"github.com/monument-wall/wall-service/internal/domain"
	"github.com/monument-wall/wall-service/internal/metrics"
	"github.com/monument-wall/wall-service/pkg/retry"
)

// EventSource is the store's insert subscription primitive. The ready
// channel closes once the subscription is actually established.
type EventSource interface {
	Listen(ctx context.Context) (<-chan domain.Participant, <-chan error, <-chan struct{})
}

// StatusHandler observes subscription liveness transitions so viewers can
// see a "reconnecting" indicator instead of a silently frozen wall.
type StatusHandler func(live bool)

// Subscriber keeps the insert subscription alive: it feeds events into
// the batcher and reconnects with exponential backoff when the channel
// drops. The backoff resets once a reconnected stream delivers again.
type Subscriber struct {
	source   EventSource
	batcher  *Batcher
	opts     retry.Options
	onStatus StatusHandler
}

func NewSubscriber(source EventSource, batcher *Batcher, onStatus StatusHandler) *Subscriber {
	opts := retry.DefaultOptions()
	opts.MaxAttempts = 0 // reconnect until shutdown
	return &Subscriber{
		source:   source,
		batcher:  batcher,
		opts:     opts,
		onStatus: onStatus,
	}
}

func (s *Subscriber) Run(ctx context.Context) {
	attempt := 0
	for {
		if ctx.Err() != nil {
			return
		}

		delivered, wentLive := s.consume(ctx)
		if ctx.Err() != nil {
			return
		}

		// A connection that never came up was already reported down;
		// repeating it would flicker viewers on every backoff cycle.
		if wentLive {
			metrics.SubscriptionDropsTotal.Inc()
			s.status(false)
		}

		if delivered {
			attempt = 0
		}
		attempt++
		wait := retry.Backoff(attempt, s.opts)
		slog.Warn("insert subscription dropped", "reconnect_in", wait.String(), "attempt", attempt)

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return
		}
	}
}

// consume pumps one subscription until it dies, reporting whether any
// event arrived and whether the subscription ever came up. Liveness is
// announced only once the source signals ready (or delivers), so a dead
// database does not register as a reconnect.
func (s *Subscriber) consume(ctx context.Context) (delivered, wentLive bool) {
	events, errc, ready := s.source.Listen(ctx)

	markLive := func() {
		if !wentLive {
			wentLive = true
			s.status(true)
			metrics.SubscriptionReconnectsTotal.Inc()
		}
	}

	for {
		select {
		case <-ready:
			markLive()
			ready = nil
		case p, ok := <-events:
			if !ok {
				return delivered, wentLive
			}
			markLive()
			delivered = true
			s.batcher.Add(p)
		case err, ok := <-errc:
			if !ok {
				return delivered, wentLive
			}
			if err != nil {
				slog.Warn("insert subscription error", "err", err)
			}
		case <-ctx.Done():
			return delivered, wentLive
		}
	}
}

func (s *Subscriber) status(live bool) {
	if s.onStatus != nil {
		s.onStatus(live)
	}
}
