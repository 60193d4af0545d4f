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

// varianceEpsilon is the spread below which an attribute counts as resolved
// for the current leaders: asking about it cannot separate them further.
const varianceEpsilon = 1e-9

// nextQuestion picks the most discriminative question still worth asking.
//
// Description:
//
//	Candidates for the answer are taken to be the top-ranked window of
//	non-excluded entities, so the search stays bounded as catalogs grow.
//	A question is eligible when it has not been asked and its attribute's
//	weights still vary across that window. Among eligible questions the one
//	with the highest weight variance wins; ties go to the lowest question
//	ID so replays are reproducible.
//
// Outputs:
//   - Question: The selected question, when one exists.
//   - bool: False when no eligible question remains; the caller must fall
//     back to guessing on whatever ranking exists.
func nextQuestion(c *Catalog, st *State, window int) (Question, bool) {
	top := rankCandidates(c, st.Scores, st.Excluded, window)
	if len(top) == 0 {
		return Question{}, false
	}

	bestIdx := -1
	bestVariance := 0.0
	for i, q := range c.questions {
		if st.Asked[q.ID] {
			continue
		}
		v := attributeVariance(c, top, q.Attribute)
		if v <= varianceEpsilon {
			continue
		}
		// Strict comparison plus ascending-ID iteration keeps the lowest
		// question ID on exact variance ties.
		if bestIdx == -1 || v > bestVariance {
			bestIdx = i
			bestVariance = v
		}
	}
	if bestIdx == -1 {
		return Question{}, false
	}
	return c.questions[bestIdx], true
}

// attributeVariance computes the population variance of an attribute's
// weights across the given candidates.
func attributeVariance(c *Catalog, candidates []Candidate, attribute string) float64 {
	var mean float64
	for _, cand := range candidates {
		mean += c.weight(c.entityIdx[cand.ID], attribute)
	}
	mean /= float64(len(candidates))

	var variance float64
	for _, cand := range candidates {
		d := c.weight(c.entityIdx[cand.ID], attribute) - mean
		variance += d * d
	}
	return variance / float64(len(candidates))
}
