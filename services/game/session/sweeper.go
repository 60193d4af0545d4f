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

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/AleutianAI/whodat/services/game/observability"
)

// =============================================================================
// Idle Session Sweeper
// =============================================================================

// SweeperConfig holds configuration for the idle-session sweeper.
//
// # Description
//
// Contains the settings for running the background eviction loop. Default
// values are provided via DefaultSweeperConfig().
//
// # Fields
//
//   - Interval: How often to run sweep cycles. Default: 1 minute.
type SweeperConfig struct {
	Interval time.Duration
}

// DefaultSweeperConfig returns sensible default sweeper configuration.
//
// # Description
//
// One-minute cycles keep the active-session gauge close to reality without
// measurable load; a sweep over an empty or small store is a single prefix
// scan.
//
// # Outputs
//
//   - SweeperConfig: Default configuration values.
//
// # Examples
//
//	config := DefaultSweeperConfig()
//	config.Interval = 30 * time.Second // Override just the interval
//	sweeper := NewSweeper(store, metrics, config)
func DefaultSweeperConfig() SweeperConfig {
	return SweeperConfig{
		Interval: 1 * time.Minute,
	}
}

// SweepResult summarizes one eviction cycle.
//
// # Fields
//
//   - StartTime: When the cycle started.
//   - EndTime: When the cycle completed.
//   - Evicted: IDs of the sessions removed this cycle.
//   - Live: Number of sessions remaining after eviction.
type SweepResult struct {
	StartTime time.Time
	EndTime   time.Time
	Evicted   []string
	Live      int
}

// Duration returns the total duration of the sweep cycle.
func (r *SweepResult) Duration() time.Duration {
	return r.EndTime.Sub(r.StartTime)
}

// DurationMs returns the duration in milliseconds for logging.
func (r *SweepResult) DurationMs() int64 {
	return r.Duration().Milliseconds()
}

// Sweeper evicts idle sessions on an interval.
//
// # Description
//
// Manages the lifecycle of a background goroutine that periodically calls
// Store.SweepIdle. Uses the ticker + done channel pattern for graceful
// shutdown. Eviction counts and the live-session gauge are reported to the
// metrics instance when one is provided.
//
// # Fields
//
//   - store: The session store to sweep.
//   - metrics: Game metrics sink. May be nil (evictions are still logged).
//   - config: Sweeper configuration.
//   - done: Channel signaling shutdown request.
//   - wg: Joins the loop goroutine on Stop.
//   - mu: Mutex protecting running state.
//   - running: True if the sweeper goroutine is active.
//
// # Thread Safety
//
// All public methods are thread-safe.
type Sweeper struct {
	store   *Store
	metrics *observability.GameMetrics
	config  SweeperConfig
	done    chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

// NewSweeper creates an idle-session sweeper.
//
// # Inputs
//
//   - store: The session store to sweep.
//   - metrics: Metrics sink for eviction counters. May be nil.
//   - config: Sweeper configuration.
//
// # Outputs
//
//   - *Sweeper: Ready to Start().
//
// # Examples
//
//	sweeper := session.NewSweeper(store, metrics, session.DefaultSweeperConfig())
//	if err := sweeper.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer sweeper.Stop()
//
// # Limitations
//
//   - Only one sweeper should run per store.
func NewSweeper(store *Store, metrics *observability.GameMetrics, config SweeperConfig) *Sweeper {
	if config.Interval <= 0 {
		config.Interval = DefaultSweeperConfig().Interval
	}
	return &Sweeper{
		store:   store,
		metrics: metrics,
		config:  config,
		done:    make(chan struct{}),
	}
}

// Start begins the background sweep loop.
//
// # Description
//
// Starts a goroutine that sweeps at the configured interval, beginning with
// an immediate cycle. The sweeper runs until Stop() is called or the context
// is cancelled.
//
// # Inputs
//
//   - ctx: Context for cancellation. When cancelled, the sweeper stops.
//
// # Outputs
//
//   - error: Non-nil if the sweeper is already running.
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("sweeper is already running")
	}
	s.running = true
	s.done = make(chan struct{}) // Reset done channel for potential restart
	s.wg.Add(1)
	s.mu.Unlock()

	slog.Info("session sweeper starting",
		"interval", s.config.Interval.String(),
		"session_ttl", s.store.TTL().String(),
	)

	go s.runLoop(ctx)
	return nil
}

// Stop gracefully stops the sweeper.
//
// # Description
//
// Signals the sweep loop to exit and waits for the loop goroutine to return.
// Safe to call multiple times. A cycle already in progress runs to completion
// before Stop returns; the store may be closed immediately afterwards.
//
// # Outputs
//
//   - error: Currently always nil.
func (s *Sweeper) Stop() error {
	s.mu.Lock()
	if s.running {
		slog.Info("session sweeper stopping")
		close(s.done)
		s.running = false
	}
	s.mu.Unlock()

	// Join the loop so no sweep is in flight once Stop returns.
	s.wg.Wait()
	return nil
}

// RunNow triggers an immediate sweep cycle.
//
// # Description
//
// Performs a cycle without waiting for the next scheduled interval. Useful
// for manual invocation or testing. Does not affect scheduled timing.
//
// # Inputs
//
//   - ctx: Context for cancellation and timeout.
//
// # Outputs
//
//   - SweepResult: Summary of the cycle.
//   - error: Non-nil if the sweep fails.
func (s *Sweeper) RunNow(ctx context.Context) (SweepResult, error) {
	return s.runSweepCycle(ctx)
}

// =============================================================================
// Internal Methods
// =============================================================================

// runLoop is the main sweeper goroutine.
func (s *Sweeper) runLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	// Run an initial sweep immediately on start
	s.executeSweep(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("session sweeper stopped (context cancelled)")
			return
		case <-s.done:
			slog.Info("session sweeper stopped (stop requested)")
			return
		case <-ticker.C:
			s.executeSweep(ctx)
		}
	}
}

// executeSweep runs a single cycle with logging and error handling. Sweep
// errors are logged and counted but never crash the loop.
func (s *Sweeper) executeSweep(ctx context.Context) {
	result, err := s.runSweepCycle(ctx)
	if err != nil {
		slog.Error("session sweep cycle failed", "error", err)
		if s.metrics != nil {
			s.metrics.RecordStoreError("sweep")
		}
		return
	}

	if s.metrics != nil {
		s.metrics.RecordEvictions(len(result.Evicted))
		s.metrics.SetActiveSessions(result.Live)
	}

	// Only log at info level when something was evicted
	if len(result.Evicted) > 0 {
		slog.Info("session sweep cycle completed",
			"evicted", len(result.Evicted),
			"evicted_ids", result.Evicted,
			"live", result.Live,
			"duration_ms", result.DurationMs(),
		)
	} else {
		slog.Debug("session sweep cycle completed (no idle sessions)")
	}
}

// runSweepCycle performs a single eviction pass and live-session count.
func (s *Sweeper) runSweepCycle(ctx context.Context) (SweepResult, error) {
	result := SweepResult{StartTime: time.Now()}

	evicted, err := s.store.SweepIdle(ctx)
	if err != nil {
		return result, fmt.Errorf("sweep idle sessions: %w", err)
	}
	result.Evicted = evicted

	live, err := s.store.Count(ctx)
	if err != nil {
		return result, fmt.Errorf("count live sessions: %w", err)
	}
	result.Live = live

	result.EndTime = time.Now()
	return result, nil
}
