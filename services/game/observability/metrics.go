// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability provides metrics and instrumentation for the game
// service.
//
// # Description
//
// This package implements Prometheus metrics for monitoring guessing-game
// operations. Metrics include:
//   - Game lifecycle counters (started, finished by result)
//   - Answer and question counters (by answer grade)
//   - Guess counters (offered, confirmed, rejected)
//   - Session gauges and eviction counters
//   - Request latency histograms and store error counters
//
// # Integration
//
// Metrics are exposed via the /metrics endpoint. Use with Prometheus +
// Grafana for dashboards and alerting.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Metric Definitions
// =============================================================================

// Namespace for all metrics
const metricsNamespace = "aleutian"

// Subsystem for game metrics
const gameSubsystem = "whodat"

// GameMetrics holds all Prometheus metrics for guessing-game operations.
//
// # Description
//
// Provides counters, histograms, and gauges for monitoring game play and
// session storage. Initialize once at startup via InitMetrics().
//
// # Fields
//
//   - GamesStartedTotal: Counter of games started
//   - GamesFinishedTotal: Counter of games finished, by result
//   - AnswersTotal: Counter of answers received, by grade
//   - QuestionsAskedTotal: Counter of questions served to players
//   - GuessesTotal: Counter of guesses, by outcome
//   - ActiveSessions: Gauge of sessions currently persisted
//   - SessionsEvictedTotal: Counter of sessions removed by the idle sweeper
//   - RequestDurationSeconds: Histogram of request latency, by endpoint/status
//   - StoreErrorsTotal: Counter of session store failures, by operation
//
// # Thread Safety
//
// All operations are thread-safe.
type GameMetrics struct {
	// GamesStartedTotal counts new games created via /start_game.
	GamesStartedTotal prometheus.Counter

	// GamesFinishedTotal counts games that reached a terminal phase.
	// Labels: result (won, lost)
	GamesFinishedTotal *prometheus.CounterVec

	// AnswersTotal counts player answers by grade.
	// Labels: grade (yes, probably_yes, probably_no, no)
	AnswersTotal *prometheus.CounterVec

	// QuestionsAskedTotal counts questions served to players.
	QuestionsAskedTotal prometheus.Counter

	// GuessesTotal counts guesses by outcome.
	// Labels: outcome (offered, confirmed, rejected)
	GuessesTotal *prometheus.CounterVec

	// ActiveSessions tracks sessions currently persisted in the store.
	ActiveSessions prometheus.Gauge

	// SessionsEvictedTotal counts sessions removed by the idle sweeper.
	SessionsEvictedTotal prometheus.Counter

	// RequestDurationSeconds measures request handling latency.
	// Labels: endpoint (start_game, questions, confirm_guess), status (success, error)
	RequestDurationSeconds *prometheus.HistogramVec

	// StoreErrorsTotal counts session store failures by operation.
	// Labels: op (create, load, save, delete, count, sweep)
	StoreErrorsTotal *prometheus.CounterVec
}

// DefaultMetrics is the singleton instance of GameMetrics.
// Initialized by InitMetrics().
var DefaultMetrics *GameMetrics

// InitMetrics initializes the default metrics instance.
//
// # Description
//
// Creates and registers all Prometheus metrics against the default registry.
// Should be called once at application startup.
//
// # Outputs
//
//   - *GameMetrics: The initialized metrics instance.
//
// # Examples
//
//	func main() {
//	    observability.InitMetrics()
//	    // ... start server ...
//	}
//
// # Limitations
//
//   - Panics if called twice (duplicate registration).
func InitMetrics() *GameMetrics {
	DefaultMetrics = NewMetrics(prometheus.DefaultRegisterer)
	return DefaultMetrics
}

// NewMetrics creates a GameMetrics instance registered against reg.
//
// # Description
//
// Used by InitMetrics for the default registry and by tests that need an
// isolated registry to avoid duplicate-registration panics.
//
// # Inputs
//
//   - reg: The Prometheus registerer to attach the metrics to.
//
// # Outputs
//
//   - *GameMetrics: The initialized metrics instance.
func NewMetrics(reg prometheus.Registerer) *GameMetrics {
	factory := promauto.With(reg)

	return &GameMetrics{
		GamesStartedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: gameSubsystem,
				Name:      "games_started_total",
				Help:      "Total number of games started",
			},
		),

		GamesFinishedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: gameSubsystem,
				Name:      "games_finished_total",
				Help:      "Total number of games finished, by result",
			},
			[]string{"result"},
		),

		AnswersTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: gameSubsystem,
				Name:      "answers_total",
				Help:      "Total number of player answers, by grade",
			},
			[]string{"grade"},
		),

		QuestionsAskedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: gameSubsystem,
				Name:      "questions_asked_total",
				Help:      "Total number of questions served to players",
			},
		),

		GuessesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: gameSubsystem,
				Name:      "guesses_total",
				Help:      "Total number of guesses, by outcome",
			},
			[]string{"outcome"},
		),

		ActiveSessions: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: gameSubsystem,
				Name:      "active_sessions",
				Help:      "Number of sessions currently persisted in the store",
			},
		),

		SessionsEvictedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: gameSubsystem,
				Name:      "sessions_evicted_total",
				Help:      "Total number of sessions removed by the idle sweeper",
			},
		),

		RequestDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: gameSubsystem,
				Name:      "request_duration_seconds",
				Help:      "Request handling latency in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
			},
			[]string{"endpoint", "status"},
		),

		StoreErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: gameSubsystem,
				Name:      "store_errors_total",
				Help:      "Total session store failures, by operation",
			},
			[]string{"op"},
		),
	}
}

// =============================================================================
// Label Values
// =============================================================================

// Result labels a finished game for metrics.
type Result string

const (
	// ResultWon indicates the engine's guess was confirmed.
	ResultWon Result = "won"

	// ResultLost indicates the engine ran out of candidates or guesses.
	ResultLost Result = "lost"
)

// Outcome labels a guess event for metrics.
type Outcome string

const (
	// OutcomeOffered indicates the engine proposed a guess to the player.
	OutcomeOffered Outcome = "offered"

	// OutcomeConfirmed indicates the player accepted a guess.
	OutcomeConfirmed Outcome = "confirmed"

	// OutcomeRejected indicates the player rejected a guess.
	OutcomeRejected Outcome = "rejected"
)

// Endpoint labels a request for latency metrics.
type Endpoint string

const (
	// EndpointStartGame is the game creation endpoint.
	EndpointStartGame Endpoint = "start_game"

	// EndpointQuestions is the answer submission endpoint.
	EndpointQuestions Endpoint = "questions"

	// EndpointConfirmGuess is the guess confirmation endpoint.
	EndpointConfirmGuess Endpoint = "confirm_guess"
)

// =============================================================================
// Helper Methods
// =============================================================================

// RecordGameStarted records a newly created game.
func (m *GameMetrics) RecordGameStarted() {
	m.GamesStartedTotal.Inc()
}

// RecordGameFinished records a game reaching a terminal phase.
//
// # Inputs
//
//   - result: Whether the game was won or lost.
func (m *GameMetrics) RecordGameFinished(result Result) {
	m.GamesFinishedTotal.WithLabelValues(string(result)).Inc()
}

// RecordAnswer records a player answer.
//
// # Inputs
//
//   - grade: The answer grade label (yes, probably_yes, probably_no, no).
func (m *GameMetrics) RecordAnswer(grade string) {
	m.AnswersTotal.WithLabelValues(grade).Inc()
}

// RecordQuestionAsked records a question served to a player.
func (m *GameMetrics) RecordQuestionAsked() {
	m.QuestionsAskedTotal.Inc()
}

// RecordGuess records a guess event.
//
// # Inputs
//
//   - outcome: Whether the guess was offered, confirmed, or rejected.
func (m *GameMetrics) RecordGuess(outcome Outcome) {
	m.GuessesTotal.WithLabelValues(string(outcome)).Inc()
}

// SetActiveSessions sets the persisted session gauge.
//
// # Inputs
//
//   - n: The number of sessions currently in the store.
func (m *GameMetrics) SetActiveSessions(n int) {
	m.ActiveSessions.Set(float64(n))
}

// RecordEvictions records sessions removed by the idle sweeper.
//
// # Inputs
//
//   - n: The number of sessions evicted in this sweep cycle.
func (m *GameMetrics) RecordEvictions(n int) {
	m.SessionsEvictedTotal.Add(float64(n))
}

// RecordRequestDuration records request handling latency.
//
// # Inputs
//
//   - endpoint: The endpoint that handled the request.
//   - seconds: Handling time in seconds.
//   - success: Whether the request completed successfully.
func (m *GameMetrics) RecordRequestDuration(endpoint Endpoint, seconds float64, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	m.RequestDurationSeconds.WithLabelValues(string(endpoint), status).Observe(seconds)
}

// RecordStoreError records a session store failure.
//
// # Inputs
//
//   - op: The store operation that failed (create, load, save, delete,
//     count, sweep).
func (m *GameMetrics) RecordStoreError(op string) {
	m.StoreErrorsTotal.WithLabelValues(op).Inc()
}
