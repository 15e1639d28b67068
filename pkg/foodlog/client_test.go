package foodlog

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestStore creates a test store connected to a miniredis instance
func setupTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	mr := miniredis.NewMiniRedis()
	err := mr.Start()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	store, err := NewStore(&redis.Options{Addr: mr.Addr()}, "test-session")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return store, mr
}

func TestNewStore(t *testing.T) {
	t.Run("creates store successfully", func(t *testing.T) {
		store, _ := setupTestStore(t)
		assert.NotNil(t, store)
		assert.Equal(t, "test-session", store.session)
	})

	t.Run("rejects empty session name", func(t *testing.T) {
		_, err := NewStore(&redis.Options{Addr: "localhost:6379"}, "")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "session name cannot be empty")
	})
}

func TestSaveFood(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	t.Run("saves valid entry and returns its id", func(t *testing.T) {
		entry := validFood()

		id, err := store.SaveFood(ctx, entry)
		require.NoError(t, err)
		assert.Equal(t, entry.ID, id)

		retrieved, err := store.GetFood(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, entry.Name, retrieved.Name)
		assert.Equal(t, entry.Nutrition, retrieved.Nutrition)
		assert.Equal(t, entry.Source, retrieved.Source)
	})

	t.Run("rejects invalid entry", func(t *testing.T) {
		entry := validFood()
		entry.Name = ""

		_, err := store.SaveFood(ctx, entry)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "invalid food entry")
	})

	t.Run("publishes change event after write", func(t *testing.T) {
		sub, err := store.SubscribeChangeEvents(ctx)
		require.NoError(t, err)
		defer sub.Close()

		entry := validFood()
		_, err = store.SaveFood(ctx, entry)
		require.NoError(t, err)

		select {
		case ev := <-sub.Events():
			assert.Equal(t, entry.ID, ev.ID)
			assert.Equal(t, TableFood, ev.Table)
			require.NotNil(t, ev.Food)
			assert.Equal(t, entry.Name, ev.Food.Name)
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for change event")
		}
	})
}

func TestGetFood_NotFound(t *testing.T) {
	store, _ := setupTestStore(t)

	_, err := store.GetFood(context.Background(), uuid.New().String())
	assert.True(t, IsNotFound(err))
}

func TestRemoveFood(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	entry := validFood()
	_, err := store.SaveFood(ctx, entry)
	require.NoError(t, err)

	require.NoError(t, store.RemoveFood(ctx, entry.ID))

	_, err = store.GetFood(ctx, entry.ID)
	assert.True(t, IsNotFound(err))

	// Day index no longer lists the entry
	foods, err := store.ListFoodsByDate(ctx, DateOf(entry.CreatedAt))
	require.NoError(t, err)
	assert.Empty(t, foods)
}

func TestListFoodsByDate(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 15, 8, 0, 0, 0, time.Local)

	first := validFood()
	first.Name = "Oatmeal"
	first.CreatedAt = base

	second := validFood()
	second.Name = "Banana"
	second.CreatedAt = base.Add(4 * time.Hour)

	otherDay := validFood()
	otherDay.Name = "Midnight Snack"
	otherDay.CreatedAt = base.AddDate(0, 0, 1)

	for _, e := range []*ConfirmedLogEntry{second, first, otherDay} {
		_, err := store.SaveFood(ctx, e)
		require.NoError(t, err)
	}

	foods, err := store.ListFoodsByDate(ctx, "2025-06-15")
	require.NoError(t, err)
	require.Len(t, foods, 2)

	// Ordered by creation time, not insertion order
	assert.Equal(t, "Oatmeal", foods[0].Name)
	assert.Equal(t, "Banana", foods[1].Name)
}

func TestSaveHydrationAndSupplement(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	now := time.Now()

	hydration := &HydrationEntry{
		ID: uuid.New().String(), UserID: "user-1", Name: "Water",
		VolumeML: 500, Kind: HydrationWater, CreatedAt: now,
	}
	require.NoError(t, store.SaveHydration(ctx, hydration))

	supplement := &SupplementEntry{
		ID: uuid.New().String(), UserID: "user-1", Name: "Vitamin D",
		Dosage: 1000, Unit: "IU", CreatedAt: now,
	}
	require.NoError(t, store.SaveSupplement(ctx, supplement))

	hydrationList, err := store.ListHydrationByDate(ctx, DateOf(now))
	require.NoError(t, err)
	require.Len(t, hydrationList, 1)
	assert.Equal(t, 500.0, hydrationList[0].VolumeML)

	supplementList, err := store.ListSupplementsByDate(ctx, DateOf(now))
	require.NoError(t, err)
	require.Len(t, supplementList, 1)
	assert.Equal(t, "Vitamin D", supplementList[0].Name)
}

func TestSubscriptionClose(t *testing.T) {
	store, _ := setupTestStore(t)

	sub, err := store.SubscribeChangeEvents(context.Background())
	require.NoError(t, err)

	// Close is idempotent
	assert.NoError(t, sub.Close())
	assert.NoError(t, sub.Close())

	// Events channel drains and closes
	select {
	case _, ok := <-sub.Events():
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("events channel did not close")
	}
}
