// Package day maintains the client-side mirror of one calendar day's
// confirmed entries and keeps it consistent with the change feed.
package day

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/platewise/platewise/pkg/foodlog"
)

// Reader loads a day's entries from the store. Implemented by
// foodlog.Store.
type Reader interface {
	ListFoodsByDate(ctx context.Context, date string) ([]foodlog.ConfirmedLogEntry, error)
	ListHydrationByDate(ctx context.Context, date string) ([]foodlog.HydrationEntry, error)
	ListSupplementsByDate(ctx context.Context, date string) ([]foodlog.SupplementEntry, error)
}

// Listener observes aggregate changes.
type Listener func(foodlog.DailyAggregate)

// Aggregator mirrors one day's entries. Totals are recomputed from the
// full entry set on every mutation, never patched incrementally, so
// interleaved feed events and local writes cannot drift the sums.
// Safe for concurrent use.
type Aggregator struct {
	mu          sync.Mutex
	reader      Reader
	dedupWindow time.Duration
	now         func() time.Time

	date        string
	foods       []foodlog.ConfirmedLogEntry
	hydration   []foodlog.HydrationEntry
	supplements []foodlog.SupplementEntry
	totals      foodlog.Totals

	// localWrites maps recently-written ids to their dedup expiry, so
	// the change feed's echo of our own write is discarded instead of
	// double-counted.
	localWrites map[string]time.Time

	listeners []Listener
}

// NewAggregator creates an Aggregator for the given calendar day.
func NewAggregator(reader Reader, date string, dedupWindow time.Duration) *Aggregator {
	return &Aggregator{
		reader:      reader,
		dedupWindow: dedupWindow,
		now:         time.Now,
		date:        date,
		localWrites: make(map[string]time.Time),
	}
}

// AddListener registers an observer for aggregate changes.
func (a *Aggregator) AddListener(l Listener) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.listeners = append(a.listeners, l)
}

// Date returns the day this aggregator mirrors.
func (a *Aggregator) Date() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.date
}

// Aggregate returns a copy of the current day state.
func (a *Aggregator) Aggregate() foodlog.DailyAggregate {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.aggregateLocked()
}

func (a *Aggregator) aggregateLocked() foodlog.DailyAggregate {
	agg := foodlog.DailyAggregate{
		Date:        a.date,
		Foods:       make([]foodlog.ConfirmedLogEntry, len(a.foods)),
		Hydration:   make([]foodlog.HydrationEntry, len(a.hydration)),
		Supplements: make([]foodlog.SupplementEntry, len(a.supplements)),
		Totals:      a.totals,
	}
	copy(agg.Foods, a.foods)
	copy(agg.Hydration, a.hydration)
	copy(agg.Supplements, a.supplements)
	return agg
}

// Refresh reloads the full day from the store. Used at startup, on day
// switch, and after every reconnect, since events during a gap are lost.
func (a *Aggregator) Refresh(ctx context.Context) error {
	a.mu.Lock()
	date := a.date
	a.mu.Unlock()

	foods, err := a.reader.ListFoodsByDate(ctx, date)
	if err != nil {
		return fmt.Errorf("failed to load foods for %s: %w", date, err)
	}
	hydration, err := a.reader.ListHydrationByDate(ctx, date)
	if err != nil {
		return fmt.Errorf("failed to load hydration for %s: %w", date, err)
	}
	supplements, err := a.reader.ListSupplementsByDate(ctx, date)
	if err != nil {
		return fmt.Errorf("failed to load supplements for %s: %w", date, err)
	}

	a.mu.Lock()
	if a.date != date {
		// Day switched while loading; drop the stale snapshot
		a.mu.Unlock()
		return nil
	}
	a.foods = foods
	a.hydration = hydration
	a.supplements = supplements
	notify := a.recomputeLocked()
	a.mu.Unlock()
	notify()

	a.logEvent("day_refreshed", map[string]interface{}{
		"date":  date,
		"foods": len(foods),
	})

	return nil
}

// SetDate switches the mirrored day and reloads it.
func (a *Aggregator) SetDate(ctx context.Context, date string) error {
	a.mu.Lock()
	a.date = date
	a.foods = nil
	a.hydration = nil
	a.supplements = nil
	a.totals = foodlog.Totals{}
	a.mu.Unlock()

	return a.Refresh(ctx)
}

// MarkLocalWrite registers an id this client just wrote so its echo
// from the change feed is discarded. Expired marks are pruned on entry.
func (a *Aggregator) MarkLocalWrite(id string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now()
	for key, expiry := range a.localWrites {
		if now.After(expiry) {
			delete(a.localWrites, key)
		}
	}
	a.localWrites[id] = now.Add(a.dedupWindow)
}

// ApplyEvent folds a change-feed event into the aggregate. Returns
// false when the event is discarded: wrong day, recent local write, or
// an id already present.
func (a *Aggregator) ApplyEvent(ev *foodlog.ChangeEvent) bool {
	if ev == nil {
		return false
	}

	a.mu.Lock()

	if expiry, ok := a.localWrites[ev.ID]; ok && a.now().Before(expiry) {
		delete(a.localWrites, ev.ID)
		a.mu.Unlock()
		a.logEvent("echo_discarded", map[string]interface{}{"entry_id": ev.ID})
		return false
	}

	applied := false
	switch ev.Table {
	case foodlog.TableFood:
		if ev.Food != nil && foodlog.DateOf(ev.Food.CreatedAt) == a.date && !a.hasFoodLocked(ev.Food.ID) {
			a.foods = append(a.foods, *ev.Food)
			applied = true
		}
	case foodlog.TableHydration:
		if ev.Hydration != nil && foodlog.DateOf(ev.Hydration.CreatedAt) == a.date && !a.hasHydrationLocked(ev.Hydration.ID) {
			a.hydration = append(a.hydration, *ev.Hydration)
			applied = true
		}
	case foodlog.TableSupplement:
		if ev.Supplement != nil && foodlog.DateOf(ev.Supplement.CreatedAt) == a.date && !a.hasSupplementLocked(ev.Supplement.ID) {
			a.supplements = append(a.supplements, *ev.Supplement)
			applied = true
		}
	}

	if !applied {
		a.mu.Unlock()
		return false
	}

	notify := a.recomputeLocked()
	a.mu.Unlock()
	notify()
	return true
}

// AddFood applies a locally-confirmed entry without waiting for the
// feed echo. No-op if the entry belongs to another day or is already
// present.
func (a *Aggregator) AddFood(entry foodlog.ConfirmedLogEntry) {
	a.mu.Lock()

	if foodlog.DateOf(entry.CreatedAt) != a.date || a.hasFoodLocked(entry.ID) {
		a.mu.Unlock()
		return
	}

	a.foods = append(a.foods, entry)
	notify := a.recomputeLocked()
	a.mu.Unlock()
	notify()
}

// RemoveFood drops an entry from the mirror and recomputes totals.
func (a *Aggregator) RemoveFood(entryID string) {
	a.mu.Lock()

	kept := a.foods[:0]
	removed := false
	for _, f := range a.foods {
		if f.ID == entryID {
			removed = true
			continue
		}
		kept = append(kept, f)
	}
	a.foods = kept

	if !removed {
		a.mu.Unlock()
		return
	}

	notify := a.recomputeLocked()
	a.mu.Unlock()
	notify()
}

func (a *Aggregator) hasFoodLocked(id string) bool {
	for _, f := range a.foods {
		if f.ID == id {
			return true
		}
	}
	return false
}

func (a *Aggregator) hasHydrationLocked(id string) bool {
	for _, h := range a.hydration {
		if h.ID == id {
			return true
		}
	}
	return false
}

func (a *Aggregator) hasSupplementLocked(id string) bool {
	for _, s := range a.supplements {
		if s.ID == id {
			return true
		}
	}
	return false
}

// recomputeLocked rebuilds totals from the full entry set and returns
// the listener notification to run after unlocking.
func (a *Aggregator) recomputeLocked() func() {
	a.totals = foodlog.ComputeTotals(a.foods, a.hydration)

	agg := a.aggregateLocked()
	listeners := make([]Listener, len(a.listeners))
	copy(listeners, a.listeners)
	return func() {
		for _, l := range listeners {
			l(agg)
		}
	}
}

// logEvent logs a structured event in JSON format.
func (a *Aggregator) logEvent(eventType string, data map[string]interface{}) {
	if data == nil {
		data = make(map[string]interface{})
	}
	data["timestamp"] = time.Now().UTC().Format(time.RFC3339)
	data["level"] = "info"
	data["component"] = "day"
	data["event_type"] = eventType

	jsonData, err := json.Marshal(data)
	if err != nil {
		log.Printf("[Day] Failed to marshal log event: %v", err)
		return
	}

	log.Println(string(jsonData))
}
