// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package engine implements the adaptive guessing core of Who Dat Dev: an
// immutable catalog of entities and questions, per-game running scores,
// discriminative question selection, guess/retry control, and an exact
// state codec for checkpointing a game between requests.
//
// Description:
//
//	A game is a State driven through Engine operations. Answer folds a
//	graded answer weight into every candidate's score and picks the next
//	move; RejectGuess eliminates a wrongly guessed entity and resumes
//	play; ConfirmGuess ends a game. Each operation validates its inputs
//	before touching the State, so a failed call leaves the game exactly
//	as it was.
//
// Thread Safety:
//
//	The Catalog is immutable after load and safe for unbounded concurrent
//	reads. A State is not safe for concurrent use: callers must guarantee
//	at most one in-flight operation per game, which the HTTP boundary does
//	with per-session locks.
package engine

// Phase is the boundary-visible position of a game after a move.
type Phase string

const (
	// PhaseAsking means the engine wants another answer.
	PhaseAsking Phase = "asking"

	// PhaseGuessing means the engine has committed to a guess and awaits
	// confirmation or rejection.
	PhaseGuessing Phase = "guessing"

	// PhaseWon is the terminal state after a confirmed guess.
	PhaseWon Phase = "finished_won"

	// PhaseLost is the terminal state when every entity has been excluded
	// and nothing is left to propose.
	PhaseLost Phase = "finished_lost"
)

// Step is the engine's reply to a move: the next question to ask, the guess
// to present, or a terminal phase.
type Step struct {
	Phase     Phase
	Question  *Question  // set when Phase == PhaseAsking
	Guess     *Candidate // set when Phase == PhaseGuessing
	Certainty float64    // set when Phase == PhaseGuessing
	Turn      int
}

// Engine binds a catalog to a guess policy. It is stateless beyond those two
// and safe for concurrent use; all game state lives in State values.
type Engine struct {
	catalog *Catalog
	cfg     Config
}

// New creates an engine over a loaded catalog. Zero Config fields fall back
// to DefaultConfig values.
func New(catalog *Catalog, cfg Config) *Engine {
	return &Engine{catalog: catalog, cfg: cfg.withDefaults()}
}

// Catalog returns the engine's immutable catalog.
func (e *Engine) Catalog() *Catalog { return e.catalog }

// NewGame starts a fresh game: baseline scores, nothing asked, nothing
// excluded, and the opening move already decided.
func (e *Engine) NewGame() (*State, Step) {
	st := newState(e.catalog)
	return st, e.step(st)
}

// Answer processes one graded answer for an attribute key.
//
// Description:
//
//	The answer weight must lie in [0,1]; the attribute must be probed by a
//	question that has not been asked this game. The lowest-ID unasked
//	question bound to the attribute is marked asked, every non-excluded
//	entity's score absorbs the answer, and the turn counter advances. On
//	any validation failure the State is untouched.
//
// Outputs:
//   - Step: The next move (question, guess, or terminal phase).
//   - error: ErrInvalidAnswer, ErrUnknownAttribute, ErrAttributeAnswered,
//     or ErrNoCandidates.
func (e *Engine) Answer(st *State, attributeKey string, answerWeight float64) (Step, error) {
	if !(answerWeight >= 0 && answerWeight <= 1) {
		return Step{}, ErrInvalidAnswer
	}
	bound := e.catalog.questionsByAttr[attributeKey]
	if len(bound) == 0 {
		return Step{}, ErrUnknownAttribute
	}
	questionIdx := -1
	for _, qi := range bound {
		if !st.Asked[e.catalog.questions[qi].ID] {
			questionIdx = qi
			break
		}
	}
	if questionIdx == -1 {
		return Step{}, ErrAttributeAnswered
	}
	if st.candidateCount() == 0 {
		return Step{}, ErrNoCandidates
	}

	applyAnswer(e.catalog, st.Scores, st.Excluded, attributeKey, answerWeight)
	st.Asked[e.catalog.questions[questionIdx].ID] = true
	st.Turns++
	return e.step(st), nil
}

// RejectGuess eliminates a wrongly guessed entity and resumes play. The
// entity never reappears in rankings or as a future guess. When nothing
// remains to propose the returned Step is terminal PhaseLost.
func (e *Engine) RejectGuess(st *State, entityID string) (Step, error) {
	if _, ok := e.catalog.EntityByID(entityID); !ok {
		return Step{}, ErrUnknownEntity
	}
	if st.Excluded[entityID] {
		return Step{}, ErrEntityExcluded
	}
	st.Excluded[entityID] = true
	return e.step(st), nil
}

// ConfirmGuess ends a game on a caller-asserted correct guess and returns
// the final ranking for display. The State is not mutated; disposal of the
// session row is the boundary's job.
func (e *Engine) ConfirmGuess(st *State, entityID string) ([]Candidate, error) {
	if _, ok := e.catalog.EntityByID(entityID); !ok {
		return nil, ErrUnknownEntity
	}
	return e.TopCandidates(st, e.cfg.TopN), nil
}

// TopCandidates returns the current ranking limited to n entries, excluded
// entities skipped. An n <= 0 returns the full ranking.
func (e *Engine) TopCandidates(st *State, n int) []Candidate {
	return rankCandidates(e.catalog, st.Scores, st.Excluded, n)
}

// Serialize converts a game state to its opaque blob for external storage.
func (e *Engine) Serialize(st *State) ([]byte, error) {
	return Encode(st)
}

// Deserialize restores a game state from a stored blob, validated against
// this engine's catalog.
func (e *Engine) Deserialize(blob []byte) (*State, error) {
	return Decode(blob, e.catalog)
}

// step decides the next move for the current state: terminal when no
// candidates remain, a guess when a stop condition fired or no
// discriminating question is left, otherwise the next question.
func (e *Engine) step(st *State) Step {
	ranked := rankCandidates(e.catalog, st.Scores, st.Excluded, 0)
	if len(ranked) == 0 {
		return Step{Phase: PhaseLost, Turn: st.Turns}
	}
	if shouldGuess(ranked, st.Turns, e.cfg) {
		return e.guessStep(st, ranked)
	}
	question, ok := nextQuestion(e.catalog, st, e.cfg.SelectorWindow)
	if !ok {
		return e.guessStep(st, ranked)
	}
	return Step{Phase: PhaseAsking, Question: &question, Turn: st.Turns}
}

func (e *Engine) guessStep(st *State, ranked []Candidate) Step {
	top := ranked[0]
	return Step{
		Phase:     PhaseGuessing,
		Guess:     &top,
		Certainty: certainty(ranked),
		Turn:      st.Turns,
	}
}
