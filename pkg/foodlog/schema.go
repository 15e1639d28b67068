package foodlog

import "fmt"

// Redis key pattern helpers
//
// All Redis keys and Pub/Sub channels are namespaced by session name to
// enable multiple platewise sessions to safely coexist on a single
// Redis server.
//
// Key pattern: platewise:{session}:{entity}:{uuid}
// Day index pattern: platewise:{session}:{entity}_day:{date}
// Channel pattern: platewise:{session}:change_events

// FoodKey returns the Redis key for a confirmed food entry.
// Pattern: platewise:{session}:food:{entry_id}
func FoodKey(session, entryID string) string {
	return fmt.Sprintf("platewise:%s:food:%s", session, entryID)
}

// HydrationKey returns the Redis key for a hydration entry.
// Pattern: platewise:{session}:hydration:{entry_id}
func HydrationKey(session, entryID string) string {
	return fmt.Sprintf("platewise:%s:hydration:%s", session, entryID)
}

// SupplementKey returns the Redis key for a supplement entry.
// Pattern: platewise:{session}:supplement:{entry_id}
func SupplementKey(session, entryID string) string {
	return fmt.Sprintf("platewise:%s:supplement:%s", session, entryID)
}

// FoodDayKey returns the Redis key for the per-day food index ZSET.
// Members are entry IDs scored by created-at unix milliseconds.
// Pattern: platewise:{session}:food_day:{date}
func FoodDayKey(session, date string) string {
	return fmt.Sprintf("platewise:%s:food_day:%s", session, date)
}

// HydrationDayKey returns the Redis key for the per-day hydration index.
// Pattern: platewise:{session}:hydration_day:{date}
func HydrationDayKey(session, date string) string {
	return fmt.Sprintf("platewise:%s:hydration_day:%s", session, date)
}

// SupplementDayKey returns the Redis key for the per-day supplement index.
// Pattern: platewise:{session}:supplement_day:{date}
func SupplementDayKey(session, date string) string {
	return fmt.Sprintf("platewise:%s:supplement_day:%s", session, date)
}

// ChangeEventsChannel returns the Pub/Sub channel name for insert events.
// Every successful write publishes its ChangeEvent JSON here.
// Pattern: platewise:{session}:change_events
func ChangeEventsChannel(session string) string {
	return fmt.Sprintf("platewise:%s:change_events", session)
}
