// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package game

import (
	"fmt"
	"strings"

	"github.com/AleutianAI/whodat/services/game/engine"
)

// answerWeights grades the accepted answer strings onto the canonical [0,1]
// evidence scale consumed by the engine.
var answerWeights = map[string]float64{
	"no":           0.0,
	"probably no":  0.25,
	"probably yes": 0.75,
	"yes":          1.0,
}

// answerGrades lists the accepted answer strings in ascending weight order.
var answerGrades = []string{"no", "probably no", "probably yes", "yes"}

// gradeAnswer maps a player's answer onto its evidence weight. Matching is
// case-insensitive and ignores surrounding whitespace. The returned grade is
// the canonical lowercase form.
func gradeAnswer(answer string) (float64, string, error) {
	grade := strings.ToLower(strings.TrimSpace(answer))
	weight, ok := answerWeights[grade]
	if !ok {
		return 0, "", fmt.Errorf("%w: %q (expected one of %q)", ErrUnrecognizedAnswer, answer, answerGrades)
	}
	return weight, grade, nil
}

// AnswerRequest is the request body for POST /questions.
type AnswerRequest struct {
	// SessionID identifies the game session. Required.
	SessionID string `json:"session_id" binding:"required"`

	// AttributeKey is the attribute probed by the question being answered.
	// Clients echo it from the question payload of the previous turn. Required.
	AttributeKey string `json:"attribute_key" binding:"required"`

	// Answer is the graded reply: "yes", "no", "probably yes" or
	// "probably no" (case-insensitive). Required.
	Answer string `json:"answer" binding:"required"`
}

// ConfirmGuessRequest is the request body for POST /confirm_guess.
type ConfirmGuessRequest struct {
	// SessionID identifies the game session. Required.
	SessionID string `json:"session_id" binding:"required"`

	// GuessedCharacterName is the display name of the guessed character, as
	// presented in the guess payload. Required.
	GuessedCharacterName string `json:"guessed_character_name" binding:"required"`

	// UserConfirmsCorrect is true when the guess was right. Required; a
	// pointer so an explicit false survives validation.
	UserConfirmsCorrect *bool `json:"user_confirms_correct" binding:"required"`
}

// GuessPayload is the character the engine proposes in a guessing turn.
type GuessPayload struct {
	// ID is the character's catalog identifier.
	ID string `json:"id"`

	// Name is the character's display name. Clients send it back verbatim in
	// ConfirmGuessRequest.
	Name string `json:"name"`
}

// TurnResponse reports the game position after a move: the next question to
// answer, a guess to settle, or a terminal phase. It is the response for
// POST /start_game, POST /questions, and the rejected-guess path of
// POST /confirm_guess.
type TurnResponse struct {
	// SessionID identifies the game session.
	SessionID string `json:"session_id"`

	// Status is the game phase after the move: "asking", "guessing",
	// "finished_won" or "finished_lost".
	Status engine.Phase `json:"status"`

	// Question is the next question to answer. Set when Status is "asking".
	Question *engine.Question `json:"question,omitempty"`

	// Guess is the proposed character. Set when Status is "guessing".
	Guess *GuessPayload `json:"guess,omitempty"`

	// Certainty is the engine's confidence in the guess, in (0,1]. Set when
	// Status is "guessing".
	Certainty float64 `json:"certainty,omitempty"`

	// Message is a player-facing closing line. Set on terminal phases.
	Message string `json:"message,omitempty"`

	// Turn is the number of answers processed so far.
	Turn int `json:"turn"`
}

// ConfirmGuessResponse is the response for the confirmed path of
// POST /confirm_guess. The session is deleted before it is returned.
type ConfirmGuessResponse struct {
	// SessionID identifies the finished game session.
	SessionID string `json:"session_id"`

	// Status is always "finished_won".
	Status engine.Phase `json:"status"`

	// Message is the player-facing victory line.
	Message string `json:"message"`

	// Guess is the display name of the confirmed character.
	Guess string `json:"guess"`

	// Certainty is 1.0 on a confirmed guess.
	Certainty float64 `json:"certainty"`

	// TopCandidates is the final ranking at game end.
	TopCandidates []engine.Candidate `json:"top_candidates"`
}

// WelcomeResponse is the response for GET /.
type WelcomeResponse struct {
	// Message is the service greeting.
	Message string `json:"message"`

	// Instructions summarizes how to play over the API.
	Instructions string `json:"instructions"`

	// Entities is the number of guessable characters in the catalog.
	Entities int `json:"entities"`

	// Questions is the number of askable questions in the catalog.
	Questions int `json:"questions"`
}

// HealthResponse is the response for GET /healthz.
type HealthResponse struct {
	// Status is "ok" while the process is serving.
	Status string `json:"status"`

	// Version is the service version.
	Version string `json:"version"`

	// Storage is "ok" when the session store answers, "unavailable" when it
	// does not.
	Storage string `json:"storage"`

	// ActiveSessions is the number of persisted sessions. Zero when the
	// store is unavailable.
	ActiveSessions int `json:"active_sessions"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the error message.
	Error string `json:"error"`

	// Code is the error code (optional).
	Code string `json:"code,omitempty"`
}
