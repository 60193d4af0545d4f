// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/whodat/services/game/storage/badger"
)

// manualClock is a settable Clock for aging sessions without sleeping.
type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func newManualClock(start time.Time) *manualClock {
	return &manualClock{now: start}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// newTestStore opens an in-memory store with the given TTL and clock.
func newTestStore(t *testing.T, ttl time.Duration, clock Clock) *Store {
	t.Helper()

	db, err := badger.Open(badger.InMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return NewStore(db, StoreConfig{TTL: ttl, Clock: clock})
}

func TestStore_CreateAndLoad(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, time.Hour, nil)

	state := []byte(`{"turn_count":0}`)
	require.NoError(t, store.Create(ctx, "s1", state))

	got, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, state, got)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestStore_LoadMissing(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, time.Hour, nil)

	_, err := store.Load(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_SaveReplacesState(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, time.Hour, nil)

	require.NoError(t, store.Create(ctx, "s1", []byte(`{"turn_count":0}`)))

	updated := []byte(`{"turn_count":3}`)
	require.NoError(t, store.Save(ctx, "s1", updated))

	got, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, updated, got)
}

func TestStore_SaveMissing(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, time.Hour, nil)

	err := store.Save(ctx, "ghost", []byte(`{}`))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_DeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, time.Hour, nil)

	require.NoError(t, store.Create(ctx, "s1", []byte(`{}`)))
	require.NoError(t, store.Delete(ctx, "s1"))

	_, err := store.Load(ctx, "s1")
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting again is not an error.
	assert.NoError(t, store.Delete(ctx, "s1"))
}

func TestStore_Count(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, time.Hour, nil)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, store.Create(ctx, id, []byte(`{}`)))
	}

	count, err = store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	require.NoError(t, store.Delete(ctx, "b"))

	count, err = store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestStore_SweepIdleEvictsOnlyStale(t *testing.T) {
	ctx := context.Background()
	clock := newManualClock(time.Now())
	store := newTestStore(t, time.Hour, clock)

	require.NoError(t, store.Create(ctx, "old", []byte(`{}`)))
	clock.Advance(40 * time.Minute)
	require.NoError(t, store.Create(ctx, "fresh", []byte(`{}`)))
	clock.Advance(30 * time.Minute)

	// "old" has been idle 70 minutes, "fresh" only 30.
	evicted, err := store.SweepIdle(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"old"}, evicted)

	_, err = store.Load(ctx, "old")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.Load(ctx, "fresh")
	assert.NoError(t, err)
}

func TestStore_SaveRefreshesIdleClock(t *testing.T) {
	ctx := context.Background()
	clock := newManualClock(time.Now())
	store := newTestStore(t, time.Hour, clock)

	require.NoError(t, store.Create(ctx, "s1", []byte(`{"turn_count":0}`)))
	clock.Advance(50 * time.Minute)
	require.NoError(t, store.Save(ctx, "s1", []byte(`{"turn_count":1}`)))
	clock.Advance(30 * time.Minute)

	// Idle only 30 minutes since the save; must survive the sweep.
	evicted, err := store.SweepIdle(ctx)
	require.NoError(t, err)
	assert.Empty(t, evicted)

	_, err = store.Load(ctx, "s1")
	assert.NoError(t, err)
}

func TestStore_LoadDoesNotRefreshIdleClock(t *testing.T) {
	ctx := context.Background()
	clock := newManualClock(time.Now())
	store := newTestStore(t, time.Hour, clock)

	require.NoError(t, store.Create(ctx, "s1", []byte(`{}`)))
	clock.Advance(50 * time.Minute)

	_, err := store.Load(ctx, "s1")
	require.NoError(t, err)

	clock.Advance(20 * time.Minute)

	// 70 minutes since creation; the read did not reset the clock.
	evicted, err := store.SweepIdle(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, evicted)
}

func TestStore_SweepIdleRemovesCorruptRecords(t *testing.T) {
	ctx := context.Background()
	clock := newManualClock(time.Now())
	store := newTestStore(t, time.Hour, clock)

	require.NoError(t, store.Create(ctx, "good", []byte(`{}`)))
	require.NoError(t, store.db.Set(ctx, key("mangled"), []byte("{not json"), 0))

	evicted, err := store.SweepIdle(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"mangled"}, evicted)

	_, err = store.Load(ctx, "good")
	assert.NoError(t, err)
}

func TestStore_LockSerializesSameSession(t *testing.T) {
	store := newTestStore(t, time.Hour, nil)

	unlock := store.Lock("s1")

	acquired := make(chan struct{})
	go func() {
		u := store.Lock("s1")
		close(acquired)
		u()
	}()

	select {
	case <-acquired:
		t.Fatal("second caller acquired the lock while it was held")
	case <-time.After(50 * time.Millisecond):
	}

	unlock()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second caller never acquired the lock")
	}
}

func TestStore_LockIndependentSessions(t *testing.T) {
	store := newTestStore(t, time.Hour, nil)

	unlock := store.Lock("a")
	defer unlock()

	acquired := make(chan struct{})
	go func() {
		u := store.Lock("b")
		close(acquired)
		u()
	}()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("lock on a different session should not block")
	}
}

func TestStore_Defaults(t *testing.T) {
	store := newTestStore(t, 0, nil)

	assert.Equal(t, 1*time.Hour, store.TTL())
	assert.NotNil(t, store.clock)
}
