package foodlog

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Store provides session-scoped Redis operations for the food log.
// All keys and channels are automatically namespaced with the session
// name. The store is thread-safe and can be used concurrently from
// multiple goroutines.
type Store struct {
	rdb     *redis.Client
	session string
}

// NewStore creates a new food log store for the specified session.
//
// Parameters:
//   - redisOpts: Redis connection options (address, password, DB, etc.)
//   - session: session identifier (must not be empty)
//
// Returns an error if session is empty.
func NewStore(redisOpts *redis.Options, session string) (*Store, error) {
	if session == "" {
		return nil, fmt.Errorf("session name cannot be empty")
	}

	return &Store{
		rdb:     redis.NewClient(redisOpts),
		session: session,
	}, nil
}

// Close closes the Redis connection. Implements io.Closer.
func (s *Store) Close() error {
	return s.rdb.Close()
}

// Ping verifies Redis connectivity. Useful for health checks.
func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// SaveFood writes a confirmed food entry and publishes a ChangeEvent.
// Validates the entry before writing; returns the entry ID on success.
// The entry is stored as a hash at platewise:{session}:food:{id} and
// indexed in the per-day ZSET scored by created-at milliseconds.
// Writing the same entry twice is safe (full hash replacement).
func (s *Store) SaveFood(ctx context.Context, e *ConfirmedLogEntry) (string, error) {
	if err := e.Validate(); err != nil {
		return "", fmt.Errorf("invalid food entry: %w", err)
	}

	hash, err := FoodToHash(e)
	if err != nil {
		return "", fmt.Errorf("failed to serialize food entry: %w", err)
	}

	key := FoodKey(s.session, e.ID)
	if err := s.rdb.HSet(ctx, key, hash).Err(); err != nil {
		return "", fmt.Errorf("failed to write food entry to Redis: %w", err)
	}

	dayKey := FoodDayKey(s.session, DateOf(e.CreatedAt))
	z := redis.Z{Score: float64(e.CreatedAt.UnixMilli()), Member: e.ID}
	if err := s.rdb.ZAdd(ctx, dayKey, z).Err(); err != nil {
		return "", fmt.Errorf("failed to index food entry: %w", err)
	}

	if err := s.publishEvent(ctx, &ChangeEvent{
		ID:        e.ID,
		Table:     TableFood,
		Food:      e,
		CreatedAt: e.CreatedAt,
	}); err != nil {
		return "", err
	}

	return e.ID, nil
}

// SaveHydration writes a hydration entry and publishes a ChangeEvent.
func (s *Store) SaveHydration(ctx context.Context, h *HydrationEntry) error {
	if err := h.Validate(); err != nil {
		return fmt.Errorf("invalid hydration entry: %w", err)
	}

	key := HydrationKey(s.session, h.ID)
	if err := s.rdb.HSet(ctx, key, HydrationToHash(h)).Err(); err != nil {
		return fmt.Errorf("failed to write hydration entry to Redis: %w", err)
	}

	dayKey := HydrationDayKey(s.session, DateOf(h.CreatedAt))
	z := redis.Z{Score: float64(h.CreatedAt.UnixMilli()), Member: h.ID}
	if err := s.rdb.ZAdd(ctx, dayKey, z).Err(); err != nil {
		return fmt.Errorf("failed to index hydration entry: %w", err)
	}

	return s.publishEvent(ctx, &ChangeEvent{
		ID:        h.ID,
		Table:     TableHydration,
		Hydration: h,
		CreatedAt: h.CreatedAt,
	})
}

// SaveSupplement writes a supplement entry and publishes a ChangeEvent.
func (s *Store) SaveSupplement(ctx context.Context, sup *SupplementEntry) error {
	if err := sup.Validate(); err != nil {
		return fmt.Errorf("invalid supplement entry: %w", err)
	}

	key := SupplementKey(s.session, sup.ID)
	if err := s.rdb.HSet(ctx, key, SupplementToHash(sup)).Err(); err != nil {
		return fmt.Errorf("failed to write supplement entry to Redis: %w", err)
	}

	dayKey := SupplementDayKey(s.session, DateOf(sup.CreatedAt))
	z := redis.Z{Score: float64(sup.CreatedAt.UnixMilli()), Member: sup.ID}
	if err := s.rdb.ZAdd(ctx, dayKey, z).Err(); err != nil {
		return fmt.Errorf("failed to index supplement entry: %w", err)
	}

	return s.publishEvent(ctx, &ChangeEvent{
		ID:         sup.ID,
		Table:      TableSupplement,
		Supplement: sup,
		CreatedAt:  sup.CreatedAt,
	})
}

// GetFood retrieves a confirmed food entry by ID.
// Returns (nil, redis.Nil) if the entry doesn't exist.
// Use IsNotFound() to check for not-found errors.
func (s *Store) GetFood(ctx context.Context, entryID string) (*ConfirmedLogEntry, error) {
	key := FoodKey(s.session, entryID)

	hashData, err := s.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read food entry from Redis: %w", err)
	}

	// HGetAll returns an empty map for non-existent keys
	if len(hashData) == 0 {
		return nil, redis.Nil
	}

	entry, err := HashToFood(hashData)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize food entry: %w", err)
	}

	return entry, nil
}

// RemoveFood deletes a confirmed food entry and its day-index member.
// Removing an entry that doesn't exist returns redis.Nil.
func (s *Store) RemoveFood(ctx context.Context, entryID string) error {
	entry, err := s.GetFood(ctx, entryID)
	if err != nil {
		return err
	}

	dayKey := FoodDayKey(s.session, DateOf(entry.CreatedAt))
	if err := s.rdb.ZRem(ctx, dayKey, entryID).Err(); err != nil {
		return fmt.Errorf("failed to unindex food entry: %w", err)
	}

	if err := s.rdb.Del(ctx, FoodKey(s.session, entryID)).Err(); err != nil {
		return fmt.Errorf("failed to delete food entry: %w", err)
	}

	return nil
}

// ListFoodsByDate retrieves all confirmed food entries for a calendar
// day (YYYY-MM-DD), ordered by creation time. Returns an empty slice
// when the day has no entries.
func (s *Store) ListFoodsByDate(ctx context.Context, date string) ([]ConfirmedLogEntry, error) {
	ids, err := s.rdb.ZRange(ctx, FoodDayKey(s.session, date), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read food day index: %w", err)
	}

	entries := make([]ConfirmedLogEntry, 0, len(ids))
	for _, id := range ids {
		entry, err := s.GetFood(ctx, id)
		if err != nil {
			if IsNotFound(err) {
				// Index member without a hash: entry was deleted mid-scan
				continue
			}
			return nil, err
		}
		entries = append(entries, *entry)
	}

	return entries, nil
}

// ListHydrationByDate retrieves all hydration entries for a calendar day.
func (s *Store) ListHydrationByDate(ctx context.Context, date string) ([]HydrationEntry, error) {
	ids, err := s.rdb.ZRange(ctx, HydrationDayKey(s.session, date), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read hydration day index: %w", err)
	}

	entries := make([]HydrationEntry, 0, len(ids))
	for _, id := range ids {
		hashData, err := s.rdb.HGetAll(ctx, HydrationKey(s.session, id)).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to read hydration entry: %w", err)
		}
		if len(hashData) == 0 {
			continue
		}
		entry, err := HashToHydration(hashData)
		if err != nil {
			return nil, fmt.Errorf("failed to deserialize hydration entry: %w", err)
		}
		entries = append(entries, *entry)
	}

	return entries, nil
}

// ListSupplementsByDate retrieves all supplement entries for a calendar day.
func (s *Store) ListSupplementsByDate(ctx context.Context, date string) ([]SupplementEntry, error) {
	ids, err := s.rdb.ZRange(ctx, SupplementDayKey(s.session, date), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read supplement day index: %w", err)
	}

	entries := make([]SupplementEntry, 0, len(ids))
	for _, id := range ids {
		hashData, err := s.rdb.HGetAll(ctx, SupplementKey(s.session, id)).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to read supplement entry: %w", err)
		}
		if len(hashData) == 0 {
			continue
		}
		entry, err := HashToSupplement(hashData)
		if err != nil {
			return nil, fmt.Errorf("failed to deserialize supplement entry: %w", err)
		}
		entries = append(entries, *entry)
	}

	return entries, nil
}

// publishEvent publishes a ChangeEvent JSON to the session's change feed.
func (s *Store) publishEvent(ctx context.Context, ev *ChangeEvent) error {
	eventJSON, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal change event: %w", err)
	}

	channel := ChangeEventsChannel(s.session)
	if err := s.rdb.Publish(ctx, channel, eventJSON).Err(); err != nil {
		return fmt.Errorf("failed to publish change event: %w", err)
	}

	return nil
}

// Subscription represents an active Pub/Sub subscription to change
// events. Caller must call Close() when done to clean up resources.
type Subscription struct {
	events <-chan *ChangeEvent
	errors <-chan error
	cancel func()
	once   sync.Once
}

// Events returns the channel of change events.
// The channel is closed when the subscription is closed or the context
// is cancelled.
func (s *Subscription) Events() <-chan *ChangeEvent {
	return s.events
}

// Errors returns the channel of subscription errors.
// Errors include JSON unmarshaling failures and other non-fatal issues.
// The subscription continues after errors - messages are skipped.
func (s *Subscription) Errors() <-chan error {
	return s.errors
}

// Close stops the subscription and cleans up resources. Implements
// io.Closer. Safe to call multiple times.
func (s *Subscription) Close() error {
	s.once.Do(s.cancel)
	return nil
}

// SubscribeChangeEvents subscribes to insert events for this session.
// Returns a Subscription that delivers full ChangeEvent objects.
// Caller must call subscription.Close() when done. Context cancellation
// also stops the subscription.
//
// Events are delivered on a buffered channel (size 10) to prevent
// blocking. A slow subscriber may drop events (Redis Pub/Sub is
// at-most-once); the aggregator recovers by refreshing from the store.
func (s *Store) SubscribeChangeEvents(ctx context.Context) (*Subscription, error) {
	channel := ChangeEventsChannel(s.session)
	pubsub := s.rdb.Subscribe(ctx, channel)

	eventsChan := make(chan *ChangeEvent, 10)
	errorsChan := make(chan error, 10)

	subCtx, cancelFunc := context.WithCancel(ctx)

	go func() {
		defer close(eventsChan)
		defer close(errorsChan)
		defer pubsub.Close()

		ch := pubsub.Channel()

		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}

				var ev ChangeEvent
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					select {
					case errorsChan <- fmt.Errorf("failed to unmarshal change event: %w", err):
					case <-subCtx.Done():
						return
					}
					continue
				}

				select {
				case eventsChan <- &ev:
				case <-subCtx.Done():
					return
				}
			}
		}
	}()

	return &Subscription{
		events: eventsChan,
		errors: errorsChan,
		cancel: cancelFunc,
	}, nil
}
