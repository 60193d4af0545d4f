// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package session

import "sync"

// keyedLocks provides one mutex per session ID.
//
// # Description
//
// Game turns are read-modify-write cycles over a single session record.
// Serializing them per session keeps concurrent requests for the same game
// from clobbering each other while leaving different games fully parallel.
//
// Entries are pruned when their session is deleted. After pruning, a late
// waiter and a new arrival can hold different mutexes for the same ID, but
// by then the record is gone, so both can only observe a not-found.
//
// # Thread Safety
//
// All methods are safe for concurrent use.
type keyedLocks struct {
	mus sync.Map // session ID -> *sync.Mutex
}

// acquire blocks until the session's mutex is held and returns its release
// function.
func (l *keyedLocks) acquire(sessionID string) func() {
	v, _ := l.mus.LoadOrStore(sessionID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// forget drops the mutex entry for a deleted session.
func (l *keyedLocks) forget(sessionID string) {
	l.mus.Delete(sessionID)
}

// Lock serializes access to one session.
//
// # Description
//
// Callers performing a read-modify-write turn must hold the session lock
// from Load through Save (or Delete). The returned function releases the
// lock and must always be called, typically via defer.
//
// # Inputs
//
//   - sessionID: The session identifier.
//
// # Outputs
//
//   - func(): Releases the lock.
//
// # Examples
//
//	unlock := store.Lock(id)
//	defer unlock()
//	blob, err := store.Load(ctx, id)
//	// ... mutate ...
//	err = store.Save(ctx, id, blob)
func (s *Store) Lock(sessionID string) func() {
	return s.locks.acquire(sessionID)
}
