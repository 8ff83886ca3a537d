package queue

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/iliyamo/table-reservation/internal/config"
)

// Dispatcher buffers events and hands each one to every publisher, retrying
// failures with exponential backoff. Emit never blocks: when the buffer is
// full the event is dropped and logged. A publisher that keeps failing
// only loses its own copy.
type Dispatcher struct {
	pubs        []Publisher
	maxAttempts int
	retryBase   time.Duration
	retryMax    time.Duration

	mu     sync.RWMutex
	ch     chan Event
	closed bool
	wg     sync.WaitGroup
}

func NewDispatcher(cfg config.EventsConfig, pubs ...Publisher) *Dispatcher {
	return &Dispatcher{
		pubs:        pubs,
		maxAttempts: cfg.MaxAttempts,
		retryBase:   cfg.RetryBase,
		retryMax:    cfg.RetryMax,
		ch:          make(chan Event, cfg.Buffer),
	}
}

// Start launches the delivery worker. ctx bounds retries; once it is done
// remaining deliveries are attempted once.
func (d *Dispatcher) Start(ctx context.Context) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for ev := range d.ch {
			d.deliver(ctx, ev)
		}
	}()
}

// Emit queues ev for delivery.
func (d *Dispatcher) Emit(_ context.Context, ev Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		slog.Warn("event dropped after shutdown", slog.String("event", ev.Name), slog.String("event_id", ev.ID))
		return
	}
	select {
	case d.ch <- ev:
	default:
		slog.Warn("event buffer full, dropping event",
			slog.String("event", ev.Name),
			slog.String("event_id", ev.ID),
			slog.Uint64("reservation_id", ev.ReservationID))
	}
}

// Close stops accepting events and waits until the buffered ones have been
// delivered or given up on.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.ch)
	}
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) deliver(ctx context.Context, ev Event) {
	for _, p := range d.pubs {
		var err error
		for attempt := 1; attempt <= d.maxAttempts; attempt++ {
			pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
			err = p.Publish(pctx, ev)
			cancel()
			if err == nil {
				break
			}
			if attempt == d.maxAttempts || ctx.Err() != nil {
				break
			}
			slog.Debug("event publish failed, retrying",
				slog.String("publisher", p.Name()),
				slog.String("event_id", ev.ID),
				slog.Int("attempt", attempt),
				slog.Any("err", err))
			select {
			case <-time.After(d.backoff(attempt)):
			case <-ctx.Done():
			}
		}
		if err != nil {
			slog.Error("event not delivered",
				slog.String("publisher", p.Name()),
				slog.String("event", ev.Name),
				slog.String("event_id", ev.ID),
				slog.Any("err", err))
		}
	}
}

// backoff returns the wait after the given failed attempt: base, 2*base,
// 4*base and so on, capped at retryMax.
func (d *Dispatcher) backoff(attempt int) time.Duration {
	wait := d.retryBase
	for i := 1; i < attempt; i++ {
		wait *= 2
		if wait >= d.retryMax {
			return d.retryMax
		}
	}
	if wait > d.retryMax {
		return d.retryMax
	}
	return wait
}
