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

// State is the full mutable state of one game: everything a session needs to
// pause and resume lives here. It carries no hidden fields and no references
// into the catalog, so Encode/Decode round-trips it exactly.
//
// Invariants:
//   - Scores contains every non-excluded catalog entity; keys are never
//     silently dropped.
//   - Asked grows monotonically; a question is never reused within a game.
//   - An excluded entity's score entry may remain for audit but is ignored
//     by ranking, selection, and guessing.
//   - Turns equals the number of answers processed, which equals len(Asked).
//
// A State is owned by exactly one logical session with at most one in-flight
// operation at a time; the boundary layer enforces that discipline.
type State struct {
	Scores   map[string]float64
	Asked    map[string]bool
	Excluded map[string]bool
	Turns    int
}

// newState creates a fresh game state at the neutral baseline: every entity
// scored 0, nothing asked, nothing excluded.
func newState(c *Catalog) *State {
	scores := make(map[string]float64, len(c.entities))
	for _, e := range c.entities {
		scores[e.ID] = 0
	}
	return &State{
		Scores:   scores,
		Asked:    make(map[string]bool),
		Excluded: make(map[string]bool),
	}
}

// candidateCount reports how many entities remain in play.
func (s *State) candidateCount() int {
	n := 0
	for id := range s.Scores {
		if !s.Excluded[id] {
			n++
		}
	}
	return n
}
