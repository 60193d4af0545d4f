// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package engine

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestEngine_TwoEntityGame walks the canonical two-entity game end to end:
// ask, answer yes, guess the matching entity, survive a rejection, and win
// on the remaining candidate.
func TestEngine_TwoEntityGame(t *testing.T) {
	c := mustCatalog(t, tallCharacters, tallQuestions)
	e := New(c, Config{})

	st, step := e.NewGame()
	require.Equal(t, PhaseAsking, step.Phase)
	require.NotNil(t, step.Question)
	assert.Equal(t, "q1", step.Question.ID)
	assert.Equal(t, 0, step.Turn)

	step, err := e.Answer(st, "tall", 1.0)
	require.NoError(t, err)
	assert.Greater(t, st.Scores["a"], st.Scores["b"], "the agreeing entity must outrank the disagreeing one")
	require.Equal(t, PhaseGuessing, step.Phase)
	require.NotNil(t, step.Guess)
	assert.Equal(t, "a", step.Guess.ID)
	assert.Equal(t, "Alice", step.Guess.Name)
	assert.Greater(t, step.Certainty, 0.5)
	assert.Equal(t, 1, step.Turn)

	step, err = e.RejectGuess(st, "a")
	require.NoError(t, err)
	assert.True(t, st.Excluded["a"])
	require.Equal(t, PhaseGuessing, step.Phase)
	assert.Equal(t, "b", step.Guess.ID, "after rejection the runner-up becomes the guess")
	assert.Equal(t, 1.0, step.Certainty, "a lone candidate is certain")

	top, err := e.ConfirmGuess(st, "b")
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "b", top[0].ID)
}

func TestEngine_ExhaustionEndsLost(t *testing.T) {
	c := mustCatalog(t, tallCharacters, tallQuestions)
	e := New(c, Config{})
	st, _ := e.NewGame()

	step, err := e.RejectGuess(st, "a")
	require.NoError(t, err)
	require.Equal(t, PhaseGuessing, step.Phase)

	step, err = e.RejectGuess(st, "b")
	require.NoError(t, err)
	assert.Equal(t, PhaseLost, step.Phase, "rejecting every entity ends the game as lost")
	assert.Nil(t, step.Guess)
	assert.Nil(t, step.Question)
}

// TestEngine_Determinism replays one answer sequence from two fresh games
// and requires identical rankings: no hidden randomness anywhere.
func TestEngine_Determinism(t *testing.T) {
	moves := []struct {
		attribute string
		weight    float64
	}{
		{"compiler_author", 0.75},
		{"navy", 0.0},
		{"kernel_author", 1.0},
	}

	play := func() []Candidate {
		c := mustCatalog(t, devCharacters, devQuestions)
		e := New(c, Config{MarginThreshold: 100})
		st, _ := e.NewGame()
		for _, m := range moves {
			_, err := e.Answer(st, m.attribute, m.weight)
			require.NoError(t, err)
		}
		return e.TopCandidates(st, 0)
	}

	assert.Equal(t, play(), play())
}

// TestEngine_MonotonicExclusion rejects an entity and then checks it never
// resurfaces in rankings or guesses for the rest of the game.
func TestEngine_MonotonicExclusion(t *testing.T) {
	c := mustCatalog(t, devCharacters, devQuestions)
	e := New(c, Config{MarginThreshold: 100, MaxTurns: 100})
	st, _ := e.NewGame()

	_, err := e.RejectGuess(st, "ritchie")
	require.NoError(t, err)

	for _, attr := range []string{"compiler_author", "navy", "kernel_author", "hardware"} {
		step, err := e.Answer(st, attr, 1.0)
		require.NoError(t, err)
		for _, cand := range e.TopCandidates(st, 0) {
			assert.NotEqual(t, "ritchie", cand.ID)
		}
		if step.Guess != nil {
			assert.NotEqual(t, "ritchie", step.Guess.ID)
		}
	}
}

// TestEngine_TerminationUnderTurnCap plays perfect answers for one target
// against a question pool larger than the turn cap and requires the engine
// to commit to a guess before the pool runs dry.
func TestEngine_TerminationUnderTurnCap(t *testing.T) {
	characters := `[
		{"id": "target", "name": "Target", "attributes": {"a1": 1.0, "a2": 1.0, "a3": 1.0, "a4": 1.0, "a5": 1.0}},
		{"id": "decoy1", "name": "Decoy One", "attributes": {"a1": 1.0, "a2": 0.0, "a3": 1.0, "a4": 0.0, "a5": 1.0}},
		{"id": "decoy2", "name": "Decoy Two", "attributes": {"a1": 0.0, "a2": 1.0, "a3": 0.0, "a4": 1.0, "a5": 0.0}}
	]`
	questions := `[
		{"id": "q1", "attribute": "a1", "text": "A1?"},
		{"id": "q2", "attribute": "a2", "text": "A2?"},
		{"id": "q3", "attribute": "a3", "text": "A3?"},
		{"id": "q4", "attribute": "a4", "text": "A4?"},
		{"id": "q5", "attribute": "a5", "text": "A5?"}
	]`
	c := mustCatalog(t, characters, questions)

	// The margin is unreachable, so only the turn cap can stop the asking.
	e := New(c, Config{MarginThreshold: 1000, MaxTurns: 3})
	st, step := e.NewGame()

	turns := 0
	for step.Phase == PhaseAsking {
		require.Less(t, turns, 10, "game failed to terminate")
		var err error
		step, err = e.Answer(st, step.Question.Attribute, 1.0)
		require.NoError(t, err)
		turns++
	}

	require.Equal(t, PhaseGuessing, step.Phase)
	assert.Equal(t, "target", step.Guess.ID)
	assert.LessOrEqual(t, turns, 3)
	assert.Less(t, len(st.Asked), c.QuestionCount(), "the pool must not be exhausted")
}

func TestEngine_AnswerValidation(t *testing.T) {
	c := mustCatalog(t, devCharacters, devQuestions)
	e := New(c, Config{})
	st, _ := e.NewGame()

	snapshot := func() State {
		cp := State{
			Scores:   make(map[string]float64, len(st.Scores)),
			Asked:    make(map[string]bool, len(st.Asked)),
			Excluded: make(map[string]bool, len(st.Excluded)),
			Turns:    st.Turns,
		}
		for k, v := range st.Scores {
			cp.Scores[k] = v
		}
		for k, v := range st.Asked {
			cp.Asked[k] = v
		}
		for k, v := range st.Excluded {
			cp.Excluded[k] = v
		}
		return cp
	}

	tests := []struct {
		name      string
		attribute string
		weight    float64
		wantErr   error
	}{
		{name: "weight above one", attribute: "navy", weight: 1.5, wantErr: ErrInvalidAnswer},
		{name: "negative weight", attribute: "navy", weight: -0.25, wantErr: ErrInvalidAnswer},
		{name: "NaN weight", attribute: "navy", weight: math.NaN(), wantErr: ErrInvalidAnswer},
		{name: "unknown attribute", attribute: "wings", weight: 1.0, wantErr: ErrUnknownAttribute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := snapshot()
			_, err := e.Answer(st, tt.attribute, tt.weight)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, before.Scores, st.Scores, "a rejected answer must leave the state untouched")
			assert.Equal(t, before.Asked, st.Asked)
			assert.Equal(t, before.Turns, st.Turns)
		})
	}

	_, err := e.Answer(st, "navy", 1.0)
	require.NoError(t, err)
	_, err = e.Answer(st, "navy", 1.0)
	assert.ErrorIs(t, err, ErrAttributeAnswered, "an attribute's question is never reused within a game")
}

func TestEngine_RejectValidation(t *testing.T) {
	c := mustCatalog(t, tallCharacters, tallQuestions)
	e := New(c, Config{})
	st, _ := e.NewGame()

	_, err := e.RejectGuess(st, "ghost")
	assert.ErrorIs(t, err, ErrUnknownEntity)

	_, err = e.RejectGuess(st, "a")
	require.NoError(t, err)
	_, err = e.RejectGuess(st, "a")
	assert.ErrorIs(t, err, ErrEntityExcluded)

	_, err = e.ConfirmGuess(st, "ghost")
	assert.ErrorIs(t, err, ErrUnknownEntity)
}

func TestEngine_AnswerOnEmptyGame(t *testing.T) {
	c := mustCatalog(t, tallCharacters, tallQuestions)
	e := New(c, Config{})
	st, _ := e.NewGame()

	for _, id := range []string{"a", "b"} {
		_, err := e.RejectGuess(st, id)
		require.NoError(t, err)
	}

	_, err := e.Answer(st, "tall", 1.0)
	assert.ErrorIs(t, err, ErrNoCandidates)
}

// TestEngine_SerializeResumeEquivalence plays half a game, round-trips the
// state through the codec, and verifies the resumed game continues exactly
// like the uninterrupted one.
func TestEngine_SerializeResumeEquivalence(t *testing.T) {
	c := mustCatalog(t, devCharacters, devQuestions)
	e := New(c, Config{MarginThreshold: 100})

	st, _ := e.NewGame()
	_, err := e.Answer(st, "compiler_author", 1.0)
	require.NoError(t, err)

	blob, err := e.Serialize(st)
	require.NoError(t, err)
	resumed, err := e.Deserialize(blob)
	require.NoError(t, err)
	require.Equal(t, st, resumed)

	stepA, err := e.Answer(st, "kernel_author", 0.75)
	require.NoError(t, err)
	stepB, err := e.Answer(resumed, "kernel_author", 0.75)
	require.NoError(t, err)

	assert.Equal(t, stepA, stepB)
	assert.Equal(t, e.TopCandidates(st, 0), e.TopCandidates(resumed, 0))
}

func TestEngine_TopCandidatesLimit(t *testing.T) {
	c := mustCatalog(t, devCharacters, devQuestions)
	e := New(c, Config{})
	st, _ := e.NewGame()

	assert.Len(t, e.TopCandidates(st, 2), 2)
	assert.Len(t, e.TopCandidates(st, 0), 4)
	assert.Len(t, e.TopCandidates(st, 99), 4)
}

// Keeps the example in the package doc honest.
func ExampleEngine() {
	characters := `[
		{"id": "a", "name": "Alice", "attributes": {"tall": 1.0}},
		{"id": "b", "name": "Bob", "attributes": {"tall": 0.0}}
	]`
	questions := `[{"id": "q1", "attribute": "tall", "text": "Is your character tall?"}]`

	catalog, err := LoadCatalog([]byte(characters), []byte(questions))
	if err != nil {
		panic(err)
	}
	eng := New(catalog, DefaultConfig())

	st, step := eng.NewGame()
	fmt.Println(step.Question.Text)

	step, _ = eng.Answer(st, step.Question.Attribute, 1.0)
	fmt.Println(step.Guess.Name)
	// Output:
	// Is your character tall?
	// Alice
}
