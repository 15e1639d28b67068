// Package confirm drives the sequential, cancellable, per-item
// confirmation flow. One Machine instance owns the pending queue and
// the current state; every overlay the UI shows is derived from that
// single state value, so impossible flag combinations cannot occur.
package confirm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/platewise/platewise/internal/config"
	"github.com/platewise/platewise/pkg/foodlog"
)

// State is the confirmation flow's explicit state enum.
type State string

const (
	// StateIdle means no confirmation run is active; the queue is empty.
	StateIdle State = "idle"

	// StateAwaitingNextItem is the loading gap between items: the next
	// item is being prepared and no confirmation overlay is visible.
	StateAwaitingNextItem State = "awaiting_next_item"

	// StateConfirming means the item at the current index is displayed
	// and waiting for confirm or skip.
	StateConfirming State = "confirming"

	// StateAllComplete means every queued item was confirmed or skipped.
	StateAllComplete State = "all_complete"

	// StateCancelled is the transient state a cancel passes through
	// before the machine returns to idle.
	StateCancelled State = "cancelled"
)

// Gateway persists confirmed entries. Implemented by foodlog.Store.
type Gateway interface {
	SaveFood(ctx context.Context, e *foodlog.ConfirmedLogEntry) (string, error)
}

// Journal receives entries that failed to persist so they can be
// replayed later. Optional.
type Journal interface {
	Append(e *foodlog.ConfirmedLogEntry) error
}

// LocalWriteRecorder is notified of every id this client wrote, so the
// sync engine can discard the echo from the change feed.
type LocalWriteRecorder interface {
	MarkLocalWrite(id string)
}

// Snapshot is a read-only view of the machine for rendering.
type Snapshot struct {
	State        State
	Queue        []foodlog.NormalizedFoodEntry
	CurrentIndex int
	Generation   uint64
}

// Current returns the entry under confirmation, or nil outside of the
// confirming state.
func (s Snapshot) Current() *foodlog.NormalizedFoodEntry {
	if s.State != StateConfirming || s.CurrentIndex >= len(s.Queue) {
		return nil
	}
	entry := s.Queue[s.CurrentIndex]
	return &entry
}

// Listener observes state changes. Listeners are an explicit, injected
// observer list; the machine never publishes through ambient globals.
type Listener func(Snapshot)

// Machine walks a queue of normalized entries one at a time.
// All methods are safe for concurrent use.
type Machine struct {
	mu        sync.Mutex
	gateway   Gateway
	journal   Journal
	recorder  LocalWriteRecorder
	cfg       *config.ConfirmConfig
	userID    string
	listeners []Listener

	state        State
	queue        []foodlog.NormalizedFoodEntry
	currentIndex int
	generation   uint64
	processing   bool

	runCtx    context.Context
	cancelRun context.CancelFunc
}

// NewMachine creates a Machine in the idle state.
// journal and recorder may be nil.
func NewMachine(gateway Gateway, journal Journal, recorder LocalWriteRecorder, cfg *config.ConfirmConfig, userID string) *Machine {
	return &Machine{
		gateway:  gateway,
		journal:  journal,
		recorder: recorder,
		cfg:      cfg,
		userID:   userID,
		state:    StateIdle,
	}
}

// AddListener registers an observer for state changes.
func (m *Machine) AddListener(l Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, l)
}

// Snapshot returns a copy of the current state for rendering.
func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Machine) snapshotLocked() Snapshot {
	queue := make([]foodlog.NormalizedFoodEntry, len(m.queue))
	copy(queue, m.queue)
	return Snapshot{
		State:        m.state,
		Queue:        queue,
		CurrentIndex: m.currentIndex,
		Generation:   m.generation,
	}
}

// notifyLocked snapshots under the lock and invokes listeners after
// releasing it, so a listener can call back into the machine.
func (m *Machine) notifyLocked() func() {
	snapshot := m.snapshotLocked()
	listeners := make([]Listener, len(m.listeners))
	copy(listeners, m.listeners)
	return func() {
		for _, l := range listeners {
			l(snapshot)
		}
	}
}

// Begin starts a confirmation run over the given entries and returns
// the run's generation. Any previous run is cancelled first. The whole
// run is bounded by the pipeline timeout.
func (m *Machine) Begin(ctx context.Context, entries []foodlog.NormalizedFoodEntry) (uint64, error) {
	if len(entries) == 0 {
		return 0, fmt.Errorf("%w: cannot begin with an empty queue", foodlog.ErrValidation)
	}

	m.mu.Lock()

	if m.cancelRun != nil {
		m.cancelRun()
	}
	m.runCtx, m.cancelRun = context.WithTimeout(ctx, m.cfg.PipelineTimeout())

	m.generation++
	m.queue = make([]foodlog.NormalizedFoodEntry, len(entries))
	copy(m.queue, entries)
	m.currentIndex = 0
	m.processing = false
	m.state = StateAwaitingNextItem
	generation := m.generation

	notifyLoading := m.notifyLocked()
	m.state = StateConfirming
	notifyConfirming := m.notifyLocked()
	m.mu.Unlock()

	// The loading state is shown before, never alongside, the
	// confirmation display.
	notifyLoading()
	notifyConfirming()

	m.logEvent("confirmation_started", map[string]interface{}{
		"generation": generation,
		"items":      len(entries),
	})

	return generation, nil
}

// ApplyResolution replaces the entry at index with its enriched form.
// Used by the force-confirm flow, where skeleton entries enter the
// queue before resolution finishes. A result for a superseded
// generation is dropped.
func (m *Machine) ApplyResolution(generation uint64, index int, entry foodlog.NormalizedFoodEntry) bool {
	m.mu.Lock()

	if generation != m.generation || index >= len(m.queue) {
		m.mu.Unlock()
		m.logEvent("stale_resolution_dropped", map[string]interface{}{
			"generation": generation,
			"index":      index,
		})
		return false
	}

	m.queue[index] = entry
	notify := m.notifyLocked()
	m.mu.Unlock()

	notify()
	return true
}

// Confirm validates and persists the current item, then advances.
// A second concurrent confirm for the same item is a no-op: the
// processing flag guarantees at most one persist per item.
//
// Returns nil on success or no-op; foodlog.ErrValidation,
// foodlog.ErrTimeout, foodlog.ErrPersistence, or foodlog.ErrCancelled
// otherwise. After ErrPersistence the machine stays on the same item so
// the user can retry.
func (m *Machine) Confirm(edited *foodlog.NormalizedFoodEntry) error {
	m.mu.Lock()

	if m.state != StateConfirming {
		m.mu.Unlock()
		return fmt.Errorf("%w: nothing to confirm in state %s", foodlog.ErrValidation, m.state)
	}
	if m.processing {
		// Idempotence guard: a confirm is already in flight
		m.mu.Unlock()
		return nil
	}

	item := m.queue[m.currentIndex]
	if edited != nil {
		item = *edited
	}

	entry, err := m.buildEntry(item)
	if err != nil {
		m.mu.Unlock()
		return err
	}

	m.processing = true
	generation := m.generation
	runCtx := m.runCtx
	m.mu.Unlock()

	// Guaranteed cleanup: whatever happens below, the processing flag
	// resets so the flow can never freeze.
	defer func() {
		m.mu.Lock()
		m.processing = false
		m.mu.Unlock()
	}()

	stepCtx, cancel := context.WithTimeout(runCtx, m.cfg.StepTimeout())
	defer cancel()

	id, saveErr := m.gateway.SaveFood(stepCtx, entry)

	m.mu.Lock()
	if generation != m.generation || m.state != StateConfirming {
		// The run was cancelled or superseded while the save was in
		// flight; drop the late result.
		m.mu.Unlock()
		return foodlog.ErrCancelled
	}

	if saveErr != nil {
		m.mu.Unlock()
		return m.handleSaveFailure(entry, generation, stepCtx, runCtx, saveErr)
	}

	if m.recorder != nil {
		m.recorder.MarkLocalWrite(id)
	}

	notify := m.advanceLocked()
	m.mu.Unlock()
	notify()

	m.logEvent("item_confirmed", map[string]interface{}{
		"entry_id":   id,
		"name":       entry.Name,
		"generation": generation,
	})

	return nil
}

// handleSaveFailure maps a persistence failure to the error taxonomy
// and, when a journal is configured, falls back to a local append so
// the item is not lost.
func (m *Machine) handleSaveFailure(entry *foodlog.ConfirmedLogEntry, generation uint64, stepCtx, runCtx context.Context, saveErr error) error {
	switch {
	case errors.Is(runCtx.Err(), context.Canceled):
		return foodlog.ErrCancelled

	case errors.Is(stepCtx.Err(), context.DeadlineExceeded):
		m.logEvent("persist_timeout", map[string]interface{}{
			"name": entry.Name,
		})
		return fmt.Errorf("%w: persisting %q", foodlog.ErrTimeout, entry.Name)

	default:
		if m.journal != nil {
			if jerr := m.journal.Append(entry); jerr == nil {
				log.Printf("[Confirm] Save failed for %q, journaled locally: %v", entry.Name, saveErr)
				if m.recorder != nil {
					m.recorder.MarkLocalWrite(entry.ID)
				}
				m.mu.Lock()
				if generation != m.generation || m.state != StateConfirming {
					m.mu.Unlock()
					return foodlog.ErrCancelled
				}
				notify := m.advanceLocked()
				m.mu.Unlock()
				notify()
				return nil
			}
		}
		return fmt.Errorf("%w: %v", foodlog.ErrPersistence, saveErr)
	}
}

// Skip advances past the current item without persisting.
func (m *Machine) Skip() error {
	m.mu.Lock()

	if m.state != StateConfirming {
		m.mu.Unlock()
		return fmt.Errorf("%w: nothing to skip in state %s", foodlog.ErrValidation, m.state)
	}
	if m.processing {
		m.mu.Unlock()
		return nil
	}

	name := m.queue[m.currentIndex].DisplayName
	notify := m.advanceLocked()
	m.mu.Unlock()
	notify()

	m.logEvent("item_skipped", map[string]interface{}{"name": name})
	return nil
}

// Cancel aborts the run from any state. Idempotent: cancelling an idle
// machine is a no-op. All in-flight requests are aborted via the run
// context, the queue empties, and the index resets.
func (m *Machine) Cancel() {
	m.mu.Lock()

	if m.state == StateIdle {
		m.mu.Unlock()
		return
	}

	if m.cancelRun != nil {
		m.cancelRun()
		m.cancelRun = nil
	}

	m.queue = nil
	m.currentIndex = 0
	m.processing = false

	m.state = StateCancelled
	notifyCancelled := m.notifyLocked()
	m.state = StateIdle
	notifyIdle := m.notifyLocked()
	m.mu.Unlock()

	notifyCancelled()
	notifyIdle()

	m.logEvent("confirmation_cancelled", nil)
}

// advanceLocked moves past the current item: loop to the next one or
// finish the run. Caller holds the lock; the returned func notifies
// listeners and must be called after unlocking.
func (m *Machine) advanceLocked() func() {
	m.currentIndex++

	if m.currentIndex >= len(m.queue) {
		// Queue is empty exactly when the run is over
		m.queue = nil
		m.currentIndex = 0
		m.state = StateAllComplete
		if m.cancelRun != nil {
			m.cancelRun()
			m.cancelRun = nil
		}
		return m.notifyLocked()
	}

	m.state = StateAwaitingNextItem
	notifyLoading := m.notifyLocked()
	m.state = StateConfirming
	notifyConfirming := m.notifyLocked()
	return func() {
		notifyLoading()
		notifyConfirming()
	}
}

// buildEntry validates the item and constructs the immutable record.
func (m *Machine) buildEntry(item foodlog.NormalizedFoodEntry) (*foodlog.ConfirmedLogEntry, error) {
	name := item.DisplayName
	if name == "" {
		name = item.Candidate.Name
	}
	if name == "" {
		return nil, fmt.Errorf("%w: food name cannot be empty", foodlog.ErrValidation)
	}

	calories := item.Resolved.Calories
	if calories < 0 || calories > float64(*m.cfg.MaxCalories) {
		return nil, fmt.Errorf("%w: calories %v outside 0..%d", foodlog.ErrValidation, calories, *m.cfg.MaxCalories)
	}

	source := item.Candidate.SourceChannel
	if err := source.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", foodlog.ErrValidation, err)
	}

	return &foodlog.ConfirmedLogEntry{
		ID:            uuid.New().String(),
		UserID:        m.userID,
		Name:          name,
		Nutrition:     item.Resolved.Nutrition.Sanitize(),
		Source:        source,
		ConfidencePct: int(math.Round(item.Resolved.Confidence * 100)),
		ImageRef:      item.Candidate.ImageRef,
		CreatedAt:     time.Now(),
	}, nil
}

// logEvent logs a structured event in JSON format.
func (m *Machine) logEvent(eventType string, data map[string]interface{}) {
	if data == nil {
		data = make(map[string]interface{})
	}
	data["timestamp"] = time.Now().UTC().Format(time.RFC3339)
	data["level"] = "info"
	data["component"] = "confirm"
	data["event_type"] = eventType

	jsonData, err := json.Marshal(data)
	if err != nil {
		log.Printf("[Confirm] Failed to marshal log event: %v", err)
		return
	}

	log.Println(string(jsonData))
}
