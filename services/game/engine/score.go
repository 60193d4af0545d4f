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
	"math"
	"sort"
)

// Candidate pairs an entity with its running score, for ranking and display.
type Candidate struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// applyAnswer folds one graded answer into the running scores.
//
// Description:
//
//	For each non-excluded entity the increment is 1 - 2*|w - a|, where w is
//	the entity's weight for the attribute (absent keys count as 0) and a is
//	the graded answer weight. Exact agreement contributes +1, maximal
//	disagreement -1, and the increment is strictly decreasing in the
//	distance, so closer entities never gain less than farther ones.
//
//	The increment is bounded, so hundreds of sequential updates stay well
//	inside float64 range, and per-entity sums reorder across turns without
//	changing which of two entities with different cumulative evidence ranks
//	higher (addition commutes up to float association).
func applyAnswer(c *Catalog, scores map[string]float64, excluded map[string]bool, attribute string, answerWeight float64) {
	for i, e := range c.entities {
		if excluded[e.ID] {
			continue
		}
		distance := math.Abs(c.weight(i, attribute) - answerWeight)
		scores[e.ID] += 1 - 2*distance
	}
}

// rankCandidates returns the non-excluded entities in descending score order,
// ties broken by entity ID ascending so replays are reproducible. A topN <= 0
// returns the full ranking.
func rankCandidates(c *Catalog, scores map[string]float64, excluded map[string]bool, topN int) []Candidate {
	ranked := make([]Candidate, 0, len(c.entities))
	for _, e := range c.entities {
		if excluded[e.ID] {
			continue
		}
		score, ok := scores[e.ID]
		if !ok {
			// Scores must cover every non-excluded entity; Decode enforces
			// that, so a miss here is a fresh-state entity at baseline.
			score = 0
		}
		ranked = append(ranked, Candidate{ID: e.ID, Name: e.Name, Score: score})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].ID < ranked[j].ID
	})
	if topN > 0 && len(ranked) > topN {
		ranked = ranked[:topN]
	}
	return ranked
}

// certainty reports the top candidate's softmax share of the full ranking.
// The max-score shift keeps the exponentials in range for any score scale.
func certainty(ranked []Candidate) float64 {
	if len(ranked) == 0 {
		return 0
	}
	max := ranked[0].Score
	var sum float64
	for _, cand := range ranked {
		sum += math.Exp(cand.Score - max)
	}
	return 1 / sum
}
