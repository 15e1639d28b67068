package day

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/platewise/platewise/internal/config"
	"github.com/platewise/platewise/pkg/foodlog"
)

// Subscriber opens a change-feed subscription. Implemented by
// foodlog.Store.
type Subscriber interface {
	SubscribeChangeEvents(ctx context.Context) (*foodlog.Subscription, error)
}

// SyncEngine owns the change-feed subscription for one aggregator and
// reconnects with exponential backoff when the feed drops. An engine is
// single-use: one Start per lifetime, then Stop.
type SyncEngine struct {
	subscriber Subscriber
	agg        *Aggregator
	cfg        *config.SyncConfig

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewSyncEngine creates a SyncEngine feeding the given aggregator.
func NewSyncEngine(subscriber Subscriber, agg *Aggregator, cfg *config.SyncConfig) *SyncEngine {
	return &SyncEngine{
		subscriber: subscriber,
		agg:        agg,
		cfg:        cfg,
	}
}

// Start launches the subscription loop. Calling Start twice is an
// error, even after Stop: a stopped engine stays stopped.
func (e *SyncEngine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.started {
		return fmt.Errorf("sync engine already started")
	}
	e.started = true

	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.done = make(chan struct{})

	go e.run(runCtx)
	return nil
}

// Stop tears down the subscription and waits for the loop to exit.
// Idempotent.
func (e *SyncEngine) Stop() {
	e.mu.Lock()
	cancel := e.cancel
	done := e.done
	e.cancel = nil
	e.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// run is the subscription loop: subscribe, refresh, drain, and on any
// feed loss reconnect after a backoff delay. A full day refresh after
// every (re)connect recovers whatever the gap swallowed.
func (e *SyncEngine) run(ctx context.Context) {
	defer close(e.done)

	sched := newReconnectScheduler(e.cfg.ReconnectBase(), e.cfg.ReconnectCap())

	for {
		sub, err := e.subscriber.SubscribeChangeEvents(ctx)
		if err != nil {
			e.agg.logEvent("feed_connect_failed", map[string]interface{}{
				"attempt": sched.attempts + 1,
				"error":   err.Error(),
			})
			if !sched.wait(ctx) {
				return
			}
			continue
		}

		sched.reset()

		if err := e.agg.Refresh(ctx); err != nil {
			e.agg.logEvent("refresh_failed", map[string]interface{}{"error": err.Error()})
		}

		lost := e.consume(ctx, sub)
		_ = sub.Close()
		if !lost {
			return
		}
		if !sched.wait(ctx) {
			return
		}
	}
}

// consume drains one subscription. Returns true when the feed was lost
// and a reconnect should follow, false on shutdown.
func (e *SyncEngine) consume(ctx context.Context, sub *foodlog.Subscription) bool {
	for {
		select {
		case <-ctx.Done():
			return false

		case ev, ok := <-sub.Events():
			if !ok {
				return true
			}
			e.agg.ApplyEvent(ev)

		case err, ok := <-sub.Errors():
			if !ok {
				return true
			}
			e.agg.logEvent("feed_error", map[string]interface{}{"error": err.Error()})
			return true
		}
	}
}

// reconnectScheduler computes reconnect delays: base doubling per
// attempt up to the cap, with no jitter so the sequence is exact. The
// attempt counter resets only on a successful connect.
type reconnectScheduler struct {
	bo       *backoff.ExponentialBackOff
	attempts int
}

func newReconnectScheduler(base, cap time.Duration) *reconnectScheduler {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = base
	bo.MaxInterval = cap
	bo.Multiplier = 2
	bo.RandomizationFactor = 0
	bo.MaxElapsedTime = 0
	bo.Reset()
	return &reconnectScheduler{bo: bo}
}

// next returns the delay for the upcoming attempt.
func (r *reconnectScheduler) next() time.Duration {
	r.attempts++
	return r.bo.NextBackOff()
}

// reset rewinds to the base delay after a successful connect.
func (r *reconnectScheduler) reset() {
	r.attempts = 0
	r.bo.Reset()
}

// wait sleeps for the next delay. Returns false if ctx ended first.
func (r *reconnectScheduler) wait(ctx context.Context) bool {
	timer := time.NewTimer(r.next())
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
