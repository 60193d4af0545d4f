// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package game provides the Who Dat Dev? HTTP service: the guessing game's
// session lifecycle over the inference engine.
//
// The service exposes endpoints for:
//   - Starting a game session
//   - Submitting graded answers to questions
//   - Confirming or rejecting the engine's guesses
//
// Game state lives in the session store as opaque engine blobs; every
// request resolves its session, replays one move, and persists the result.
package game

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/AleutianAI/whodat/services/game/engine"
	"github.com/AleutianAI/whodat/services/game/observability"
	"github.com/AleutianAI/whodat/services/game/session"
)

// ServiceVersion is the game service version.
const ServiceVersion = "0.1.0"

// ServiceConfig configures the game service.
type ServiceConfig struct {
	// FinalCandidates is how many ranked candidates accompany a won game.
	// Default: 5
	FinalCandidates int
}

// DefaultServiceConfig returns sensible defaults.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		FinalCandidates: 5,
	}
}

// Service is the game service.
//
// Thread Safety:
//
//	Service is safe for concurrent use. Requests touching the same session
//	serialize on the store's per-session lock; all other state is immutable
//	or internally synchronized.
type Service struct {
	engine  *engine.Engine
	store   *session.Store
	metrics *observability.GameMetrics
	config  ServiceConfig
}

// NewService creates a game service over a loaded engine and session store.
//
// Inputs:
//
//	eng - Engine bound to the validated catalog
//	store - Session store for game state blobs
//	metrics - Metrics sink; must be non-nil (see observability.InitMetrics)
//	config - Service configuration; zero fields fall back to defaults
func NewService(eng *engine.Engine, store *session.Store, metrics *observability.GameMetrics, config ServiceConfig) *Service {
	if config.FinalCandidates <= 0 {
		config.FinalCandidates = DefaultServiceConfig().FinalCandidates
	}
	return &Service{
		engine:  eng,
		store:   store,
		metrics: metrics,
		config:  config,
	}
}

// StartGame creates a session with a fresh game and returns its opening move.
//
// Description:
//
//	Generates a session ID, starts a new game, persists the serialized
//	state, and reports the first question (or, for degenerate catalogs, an
//	immediate guess).
//
// Outputs:
//
//	*TurnResponse - The opening move.
//	error - ErrStoreUnavailable if the session row cannot be written.
func (s *Service) StartGame(ctx context.Context) (*TurnResponse, error) {
	st, step := s.engine.NewGame()
	blob, err := s.engine.Serialize(st)
	if err != nil {
		return nil, fmt.Errorf("serialize new game: %w", err)
	}

	sessionID := uuid.NewString()
	if err := s.store.Create(ctx, sessionID, blob); err != nil {
		s.metrics.RecordStoreError("create")
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	s.metrics.RecordGameStarted()
	s.recordStep(step)
	s.refreshActiveSessions(ctx)
	return s.turnResponse(sessionID, step), nil
}

// Answer applies one graded answer to a session's game.
//
// Description:
//
//	Resolves the session, grades the answer string, folds the answer into
//	the game via the engine, and persists the updated state. The session is
//	resolved before the answer is graded, so an unknown session wins over a
//	bad answer. On any failure the stored state is unchanged.
//
// Outputs:
//
//	*TurnResponse - The next move.
//	error - session.ErrNotFound, ErrUnrecognizedAnswer, ErrStoreUnavailable,
//	  *engine.StateCorruptError, or an engine validation error.
func (s *Service) Answer(ctx context.Context, sessionID, attributeKey, answer string) (*TurnResponse, error) {
	unlock := s.store.Lock(sessionID)
	defer unlock()

	st, err := s.loadState(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	weight, grade, err := gradeAnswer(answer)
	if err != nil {
		return nil, err
	}

	step, err := s.engine.Answer(st, attributeKey, weight)
	if err != nil {
		return nil, err
	}

	if err := s.saveState(ctx, sessionID, st); err != nil {
		return nil, err
	}

	s.metrics.RecordAnswer(metricGrade(grade))
	s.recordStep(step)
	return s.turnResponse(sessionID, step), nil
}

// ConfirmGuess ends a session's game on a confirmed guess.
//
// Description:
//
//	Resolves the session and the guessed character by display name, takes
//	the final ranking, and deletes the session row. The response carries the
//	victory message, certainty 1.0, and the top candidates.
//
// Outputs:
//
//	*ConfirmGuessResponse - The finished game.
//	error - session.ErrNotFound, engine.ErrUnknownEntity,
//	  ErrStoreUnavailable, or *engine.StateCorruptError.
func (s *Service) ConfirmGuess(ctx context.Context, sessionID, guessedName string) (*ConfirmGuessResponse, error) {
	unlock := s.store.Lock(sessionID)
	defer unlock()

	st, err := s.loadState(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	entity, ok := s.engine.Catalog().EntityByName(guessedName)
	if !ok {
		return nil, fmt.Errorf("%w: %q", engine.ErrUnknownEntity, guessedName)
	}

	top, err := s.engine.ConfirmGuess(st, entity.ID)
	if err != nil {
		return nil, err
	}
	if len(top) > s.config.FinalCandidates {
		top = top[:s.config.FinalCandidates]
	}

	if err := s.store.Delete(ctx, sessionID); err != nil {
		s.metrics.RecordStoreError("delete")
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	s.metrics.RecordGuess(observability.OutcomeConfirmed)
	s.metrics.RecordGameFinished(observability.ResultWon)
	s.refreshActiveSessions(ctx)

	return &ConfirmGuessResponse{
		SessionID:     sessionID,
		Status:        engine.PhaseWon,
		Message:       fmt.Sprintf("🎉 Great! I knew it was %s!", entity.Name),
		Guess:         entity.Name,
		Certainty:     1.0,
		TopCandidates: top,
	}, nil
}

// RejectGuess eliminates a wrongly guessed character and resumes the game.
//
// Description:
//
//	Resolves the session and the guessed character by display name, excludes
//	the character, and persists the updated state. Play continues with the
//	next question or guess; when nothing remains to propose the game ends
//	lost and the session row is deleted.
//
// Outputs:
//
//	*TurnResponse - The next move, or the finished_lost closing.
//	error - session.ErrNotFound, engine.ErrUnknownEntity,
//	  engine.ErrEntityExcluded, ErrStoreUnavailable, or
//	  *engine.StateCorruptError.
func (s *Service) RejectGuess(ctx context.Context, sessionID, guessedName string) (*TurnResponse, error) {
	unlock := s.store.Lock(sessionID)
	defer unlock()

	st, err := s.loadState(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	entity, ok := s.engine.Catalog().EntityByName(guessedName)
	if !ok {
		return nil, fmt.Errorf("%w: %q", engine.ErrUnknownEntity, guessedName)
	}

	step, err := s.engine.RejectGuess(st, entity.ID)
	if err != nil {
		return nil, err
	}

	s.metrics.RecordGuess(observability.OutcomeRejected)

	if step.Phase == engine.PhaseLost {
		if err := s.store.Delete(ctx, sessionID); err != nil {
			s.metrics.RecordStoreError("delete")
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		s.metrics.RecordGameFinished(observability.ResultLost)
		s.refreshActiveSessions(ctx)
		return s.turnResponse(sessionID, step), nil
	}

	if err := s.saveState(ctx, sessionID, st); err != nil {
		return nil, err
	}

	s.recordStep(step)
	return s.turnResponse(sessionID, step), nil
}

// Welcome describes the service and its catalog.
func (s *Service) Welcome() *WelcomeResponse {
	c := s.engine.Catalog()
	return &WelcomeResponse{
		Message: "Welcome to the Who Dat Dev? Akinator API!",
		Instructions: fmt.Sprintf(
			"POST /start_game to begin. Answer each question via POST /questions with one of %q, "+
				"then settle my guess via POST /confirm_guess.", answerGrades),
		Entities:  c.EntityCount(),
		Questions: c.QuestionCount(),
	}
}

// Health reports liveness plus a session store round-trip.
func (s *Service) Health(ctx context.Context) *HealthResponse {
	resp := &HealthResponse{
		Status:  "ok",
		Version: ServiceVersion,
		Storage: "ok",
	}
	n, err := s.store.Count(ctx)
	if err != nil {
		resp.Storage = "unavailable"
		return resp
	}
	resp.ActiveSessions = n
	return resp
}

// loadState resolves a session and restores its game state. The caller must
// hold the session lock. A stored blob that cannot be decoded is deleted so
// the client can start fresh instead of being wedged on every retry.
func (s *Service) loadState(ctx context.Context, sessionID string) (*engine.State, error) {
	blob, err := s.store.Load(ctx, sessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, fmt.Errorf("session %q: %w", sessionID, err)
		}
		s.metrics.RecordStoreError("load")
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	st, err := s.engine.Deserialize(blob)
	if err != nil {
		if delErr := s.store.Delete(ctx, sessionID); delErr != nil {
			s.metrics.RecordStoreError("delete")
		}
		s.refreshActiveSessions(ctx)
		return nil, err
	}
	return st, nil
}

// saveState persists a session's game state. The caller must hold the
// session lock.
func (s *Service) saveState(ctx context.Context, sessionID string, st *engine.State) error {
	blob, err := s.engine.Serialize(st)
	if err != nil {
		return fmt.Errorf("serialize game state: %w", err)
	}
	if err := s.store.Save(ctx, sessionID, blob); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return fmt.Errorf("session %q: %w", sessionID, err)
		}
		s.metrics.RecordStoreError("save")
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// turnResponse shapes an engine step for the wire.
func (s *Service) turnResponse(sessionID string, step engine.Step) *TurnResponse {
	resp := &TurnResponse{
		SessionID: sessionID,
		Status:    step.Phase,
		Turn:      step.Turn,
	}
	switch step.Phase {
	case engine.PhaseAsking:
		resp.Question = step.Question
	case engine.PhaseGuessing:
		resp.Guess = &GuessPayload{ID: step.Guess.ID, Name: step.Guess.Name}
		resp.Certainty = step.Certainty
	case engine.PhaseLost:
		resp.Message = "You got me! I don't know who your character is."
	}
	return resp
}

// recordStep counts what the engine put in front of the player next.
func (s *Service) recordStep(step engine.Step) {
	switch step.Phase {
	case engine.PhaseAsking:
		s.metrics.RecordQuestionAsked()
	case engine.PhaseGuessing:
		s.metrics.RecordGuess(observability.OutcomeOffered)
	}
}

// refreshActiveSessions keeps the session gauge current between sweeps.
// Failures only leave the gauge stale until the next sweep, so they are
// counted and swallowed.
func (s *Service) refreshActiveSessions(ctx context.Context) {
	n, err := s.store.Count(ctx)
	if err != nil {
		s.metrics.RecordStoreError("count")
		return
	}
	s.metrics.SetActiveSessions(n)
}

// metricGrade converts a canonical answer grade to its metric label form.
func metricGrade(grade string) string {
	switch grade {
	case "probably yes":
		return "probably_yes"
	case "probably no":
		return "probably_no"
	default:
		return grade
	}
}
