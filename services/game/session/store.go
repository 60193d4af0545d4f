// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package session persists in-progress games as opaque state blobs keyed by
// session ID.
//
// # Description
//
// The store wraps the BadgerDB layer with a session envelope that tracks
// creation and last-access timestamps. A background sweeper evicts sessions
// that have been idle longer than the configured TTL. Reading a session does
// not refresh its idle clock; only Save does, so abandoned games expire even
// if something keeps polling them.
//
// # Eviction
//
// Two mechanisms remove idle sessions:
//   - The sweeper (primary): scans on an interval, deletes idle records,
//     logs evictions, and updates metrics.
//   - Badger's native TTL (backstop): set to twice the session TTL so
//     records vanish eventually even if the sweeper is down.
//
// # Thread Safety
//
// All methods are safe for concurrent use. Callers that read-modify-write a
// session must hold its per-session lock via Lock() for the whole operation.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/AleutianAI/whodat/services/game/storage/badger"
)

// keyPrefix namespaces session records inside the shared Badger store.
const keyPrefix = "session:"

// ErrNotFound indicates no live session exists for the given ID.
var ErrNotFound = errors.New("session not found")

// record is the stored envelope around the opaque game-state blob.
// Timestamps are Unix milliseconds.
type record struct {
	State        json.RawMessage `json:"state"`
	CreatedAt    int64           `json:"created_at"`
	LastAccessed int64           `json:"last_accessed"`
}

// StoreConfig holds configuration for the session store.
//
// # Fields
//
//   - TTL: How long an idle session survives before eviction. Default: 1 hour.
//   - Clock: Time source. Nil defaults to the system clock.
type StoreConfig struct {
	TTL   time.Duration
	Clock Clock
}

// DefaultStoreConfig returns production defaults.
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		TTL: 1 * time.Hour,
	}
}

// Store persists session envelopes in BadgerDB.
//
// # Description
//
// Provides CRUD operations on session records plus the idle scan used by the
// sweeper. Save refreshes the last-access timestamp; Load does not.
//
// # Thread Safety
//
// All methods are safe for concurrent use.
type Store struct {
	db    *badger.DB
	ttl   time.Duration
	clock Clock
	locks keyedLocks
}

// NewStore creates a session store on top of an open Badger database.
//
// # Inputs
//
//   - db: The open database. The caller owns its lifecycle.
//   - cfg: Store configuration. Zero values fall back to defaults.
//
// # Outputs
//
//   - *Store: Ready for use.
func NewStore(db *badger.DB, cfg StoreConfig) *Store {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultStoreConfig().TTL
	}
	if cfg.Clock == nil {
		cfg.Clock = NewSystemClock()
	}
	return &Store{
		db:    db,
		ttl:   cfg.TTL,
		clock: cfg.Clock,
	}
}

// TTL returns the configured idle-session lifetime.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// Create writes a fresh session envelope.
//
// # Description
//
// Sets both timestamps to now. Overwrites any existing record with the same
// ID; IDs are server-generated UUIDs, so collisions do not occur in practice.
//
// # Inputs
//
//   - ctx: Context for cancellation.
//   - sessionID: The session identifier.
//   - state: Opaque game-state blob.
//
// # Outputs
//
//   - error: Non-nil if the write fails.
func (s *Store) Create(ctx context.Context, sessionID string, state []byte) error {
	now := s.clock.Now().UnixMilli()
	rec := record{
		State:        state,
		CreatedAt:    now,
		LastAccessed: now,
	}
	return s.put(ctx, sessionID, rec)
}

// Load returns the state blob for a session.
//
// # Description
//
// Does not refresh the idle clock. A session that is only ever read will
// still be evicted once it has been idle past the TTL.
//
// # Inputs
//
//   - ctx: Context for cancellation.
//   - sessionID: The session identifier.
//
// # Outputs
//
//   - []byte: The stored state blob.
//   - error: ErrNotFound if no live record exists, otherwise the store error.
func (s *Store) Load(ctx context.Context, sessionID string) ([]byte, error) {
	rec, err := s.get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return rec.State, nil
}

// Save replaces the state blob for an existing session.
//
// # Description
//
// Refreshes the last-access timestamp and re-arms the Badger TTL backstop.
// The creation timestamp is preserved from the existing record.
//
// # Inputs
//
//   - ctx: Context for cancellation.
//   - sessionID: The session identifier.
//   - state: The replacement game-state blob.
//
// # Outputs
//
//   - error: ErrNotFound if the session no longer exists, otherwise the
//     store error.
func (s *Store) Save(ctx context.Context, sessionID string, state []byte) error {
	rec, err := s.get(ctx, sessionID)
	if err != nil {
		return err
	}
	rec.State = state
	rec.LastAccessed = s.clock.Now().UnixMilli()
	return s.put(ctx, sessionID, rec)
}

// Delete removes a session.
//
// # Description
//
// Idempotent: deleting a missing session is not an error. Also releases the
// per-session lock entry; any caller still waiting on it will observe
// ErrNotFound on its next Load.
//
// # Inputs
//
//   - ctx: Context for cancellation.
//   - sessionID: The session identifier.
//
// # Outputs
//
//   - error: Non-nil if the delete fails.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	if err := s.db.Delete(ctx, key(sessionID)); err != nil {
		return err
	}
	s.locks.forget(sessionID)
	return nil
}

// Count returns the number of live sessions.
//
// # Inputs
//
//   - ctx: Context for cancellation.
//
// # Outputs
//
//   - int: Number of session records in the store.
//   - error: Non-nil if the scan fails.
func (s *Store) Count(ctx context.Context) (int, error) {
	return s.db.CountPrefix(ctx, []byte(keyPrefix))
}

// SweepIdle removes sessions idle longer than the TTL.
//
// # Description
//
// Runs in two phases. The scan phase collects candidate IDs whose
// last-access timestamp is past the cutoff. The delete phase takes each
// candidate's session lock, re-reads the record, and deletes only if it is
// still idle; a session touched between the phases survives. Records that
// fail to decode are treated as idle and removed.
//
// # Inputs
//
//   - ctx: Context for cancellation. A cancelled context stops the sweep
//     mid-batch; already-deleted sessions stay deleted.
//
// # Outputs
//
//   - []string: IDs of the sessions that were evicted.
//   - error: Non-nil if the scan or a delete fails.
func (s *Store) SweepIdle(ctx context.Context) ([]string, error) {
	cutoff := s.clock.Now().Add(-s.ttl).UnixMilli()

	var stale []string
	err := s.db.ScanPrefix(ctx, []byte(keyPrefix), func(k, v []byte) error {
		id := strings.TrimPrefix(string(k), keyPrefix)
		var rec record
		if err := json.Unmarshal(v, &rec); err != nil || rec.LastAccessed < cutoff {
			stale = append(stale, id)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan sessions: %w", err)
	}

	evicted := make([]string, 0, len(stale))
	for _, id := range stale {
		if err := ctx.Err(); err != nil {
			return evicted, err
		}
		removed, err := s.deleteIfIdle(ctx, id, cutoff)
		if err != nil {
			return evicted, err
		}
		if removed {
			evicted = append(evicted, id)
		}
	}
	return evicted, nil
}

// deleteIfIdle deletes one session if it is still idle under its lock.
func (s *Store) deleteIfIdle(ctx context.Context, sessionID string, cutoff int64) (bool, error) {
	unlock := s.Lock(sessionID)
	defer unlock()

	rec, err := s.get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		var corrupt *corruptRecordError
		if !errors.As(err, &corrupt) {
			return false, err
		}
		// Undecodable envelopes cannot be played; fall through and remove.
	} else if rec.LastAccessed >= cutoff {
		// Touched since the scan phase.
		return false, nil
	}

	if err := s.db.Delete(ctx, key(sessionID)); err != nil {
		return false, fmt.Errorf("delete session %s: %w", sessionID, err)
	}
	s.locks.forget(sessionID)
	return true, nil
}

// corruptRecordError marks an envelope that failed to decode.
type corruptRecordError struct {
	err error
}

func (e *corruptRecordError) Error() string {
	return "corrupt session record: " + e.err.Error()
}

func (e *corruptRecordError) Unwrap() error {
	return e.err
}

// get reads and decodes one envelope.
func (s *Store) get(ctx context.Context, sessionID string) (record, error) {
	value, err := s.db.Get(ctx, key(sessionID))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return record{}, ErrNotFound
		}
		return record{}, err
	}
	var rec record
	if err := json.Unmarshal(value, &rec); err != nil {
		return record{}, &corruptRecordError{err: err}
	}
	return rec, nil
}

// put encodes and writes one envelope.
//
// Badger's native TTL is armed at twice the session TTL. The sweeper is the
// primary evictor; the native TTL only mops up if the sweeper is not running.
func (s *Store) put(ctx context.Context, sessionID string, rec record) error {
	value, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode session record: %w", err)
	}
	return s.db.Set(ctx, key(sessionID), value, 2*s.ttl)
}

// key maps a session ID to its storage key.
func key(sessionID string) []byte {
	return []byte(keyPrefix + sessionID)
}
