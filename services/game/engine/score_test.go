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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyAnswer_AgreementBeatsDisagreement(t *testing.T) {
	c := mustCatalog(t, tallCharacters, tallQuestions)
	st := newState(c)

	applyAnswer(c, st.Scores, st.Excluded, "tall", 1.0)

	assert.Equal(t, 1.0, st.Scores["a"], "exact agreement contributes +1")
	assert.Equal(t, -1.0, st.Scores["b"], "maximal disagreement contributes -1")
}

// TestApplyAnswer_MonotonicInDistance checks the core scoring property: for
// any answer weight, an entity closer to the answer never gains less than
// one farther from it.
func TestApplyAnswer_MonotonicInDistance(t *testing.T) {
	characters := `[
		{"id": "w00", "name": "Zero", "attributes": {"k": 0.0}},
		{"id": "w25", "name": "Quarter", "attributes": {"k": 0.25}},
		{"id": "w75", "name": "ThreeQuarter", "attributes": {"k": 0.75}},
		{"id": "w100", "name": "Full", "attributes": {"k": 1.0}}
	]`
	questions := `[{"id": "q1", "attribute": "k", "text": "K?"}]`
	c := mustCatalog(t, characters, questions)

	for _, answer := range []float64{0.0, 0.25, 0.75, 1.0} {
		st := newState(c)
		applyAnswer(c, st.Scores, st.Excluded, "k", answer)

		ranked := rankCandidates(c, st.Scores, st.Excluded, 0)
		for i := 1; i < len(ranked); i++ {
			prev, cur := ranked[i-1], ranked[i]
			prevDist := absDiff(c, prev.ID, "k", answer)
			curDist := absDiff(c, cur.ID, "k", answer)
			assert.LessOrEqual(t, prevDist, curDist,
				"answer %v: %s (dist %v) ranked above %s (dist %v)", answer, prev.ID, prevDist, cur.ID, curDist)
		}
	}
}

func absDiff(c *Catalog, entityID, attribute string, answer float64) float64 {
	d := c.weight(c.entityIdx[entityID], attribute) - answer
	if d < 0 {
		d = -d
	}
	return d
}

func TestApplyAnswer_SkipsExcluded(t *testing.T) {
	c := mustCatalog(t, tallCharacters, tallQuestions)
	st := newState(c)
	st.Excluded["a"] = true

	applyAnswer(c, st.Scores, st.Excluded, "tall", 1.0)

	assert.Equal(t, 0.0, st.Scores["a"], "excluded entity's score must stay frozen")
	assert.Equal(t, -1.0, st.Scores["b"])
}

func TestRankCandidates_OrderAndTieBreak(t *testing.T) {
	c := mustCatalog(t, devCharacters, devQuestions)
	scores := map[string]float64{
		"hopper":  2.0,
		"linus":   2.0,
		"ritchie": 3.0,
		"wozniak": -1.0,
	}

	ranked := rankCandidates(c, scores, map[string]bool{}, 0)
	require.Len(t, ranked, 4)
	assert.Equal(t, "ritchie", ranked[0].ID)
	assert.Equal(t, "hopper", ranked[1].ID, "score ties break by entity ID ascending")
	assert.Equal(t, "linus", ranked[2].ID)
	assert.Equal(t, "wozniak", ranked[3].ID)
	assert.Equal(t, "Dennis Ritchie", ranked[0].Name)
}

func TestRankCandidates_TopNAndExclusion(t *testing.T) {
	c := mustCatalog(t, devCharacters, devQuestions)
	scores := map[string]float64{"hopper": 4, "linus": 3, "ritchie": 2, "wozniak": 1}

	ranked := rankCandidates(c, scores, map[string]bool{"hopper": true}, 2)
	require.Len(t, ranked, 2)
	assert.Equal(t, "linus", ranked[0].ID, "excluded leader must not appear")
	assert.Equal(t, "ritchie", ranked[1].ID)
}

func TestCertainty_Bounds(t *testing.T) {
	sole := []Candidate{{ID: "a", Score: 5}}
	assert.Equal(t, 1.0, certainty(sole), "a lone candidate is certain")

	even := []Candidate{{ID: "a", Score: 0}, {ID: "b", Score: 0}}
	assert.InDelta(t, 0.5, certainty(even), 1e-12, "an even pair splits the certainty")

	separated := []Candidate{{ID: "a", Score: 10}, {ID: "b", Score: -10}}
	assert.Greater(t, certainty(separated), 0.99)

	// Large magnitudes must not overflow thanks to the max shift.
	huge := []Candidate{{ID: "a", Score: 1e6}, {ID: "b", Score: 1e6 - 1}}
	got := certainty(huge)
	assert.Greater(t, got, 0.0)
	assert.LessOrEqual(t, got, 1.0)

	assert.Equal(t, 0.0, certainty(nil))
}
