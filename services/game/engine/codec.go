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
	"encoding/json"
	"fmt"
	"sort"
)

// codecVersion guards the serialized layout. Decode rejects any other value
// instead of guessing at field meanings.
const codecVersion = 1

// stateRecord is the flat serialized form of a State. Sets are stored as
// sorted slices so equal states encode to identical blobs.
type stateRecord struct {
	Version  int                `json:"version"`
	Scores   map[string]float64 `json:"scores"`
	Asked    []string           `json:"asked"`
	Excluded []string           `json:"excluded_entities"`
	Turns    int                `json:"turn_count"`
}

// Encode converts a game state to its opaque serialized blob. Scores,
// asked questions, excluded entities, and the turn count round-trip exactly.
func Encode(st *State) ([]byte, error) {
	rec := stateRecord{
		Version:  codecVersion,
		Scores:   st.Scores,
		Asked:    sortedKeys(st.Asked),
		Excluded: sortedKeys(st.Excluded),
		Turns:    st.Turns,
	}
	blob, err := json.Marshal(rec)
	if err != nil {
		return nil, &StateCorruptError{Reason: "encode failed", Err: err}
	}
	return blob, nil
}

// Decode restores a game state from a serialized blob, validated against the
// catalog it will play over.
//
// Description:
//
//	Every identifier in the blob must exist in the catalog, every
//	non-excluded catalog entity must carry a score, required fields must be
//	present, and the turn count must match the asked set. Any violation is
//	a *StateCorruptError; Decode never patches a partial state, since a
//	silently repaired resume would misrank candidates without detection.
func Decode(blob []byte, c *Catalog) (*State, error) {
	var rec stateRecord
	if err := json.Unmarshal(blob, &rec); err != nil {
		return nil, &StateCorruptError{Reason: "invalid JSON", Err: err}
	}
	if rec.Version != codecVersion {
		return nil, &StateCorruptError{Reason: fmt.Sprintf("unsupported state version %d", rec.Version)}
	}
	if rec.Scores == nil {
		return nil, &StateCorruptError{Reason: "scores field missing"}
	}
	if rec.Turns < 0 {
		return nil, &StateCorruptError{Reason: fmt.Sprintf("negative turn count %d", rec.Turns)}
	}
	if rec.Turns != len(rec.Asked) {
		return nil, &StateCorruptError{
			Reason: fmt.Sprintf("turn count %d disagrees with %d asked questions", rec.Turns, len(rec.Asked))}
	}

	st := &State{
		Scores:   make(map[string]float64, len(rec.Scores)),
		Asked:    make(map[string]bool, len(rec.Asked)),
		Excluded: make(map[string]bool, len(rec.Excluded)),
		Turns:    rec.Turns,
	}
	for id, score := range rec.Scores {
		if _, ok := c.EntityByID(id); !ok {
			return nil, &StateCorruptError{Reason: fmt.Sprintf("score for unknown entity %q", id)}
		}
		st.Scores[id] = score
	}
	for _, id := range rec.Asked {
		if _, ok := c.QuestionByID(id); !ok {
			return nil, &StateCorruptError{Reason: fmt.Sprintf("asked references unknown question %q", id)}
		}
		if st.Asked[id] {
			return nil, &StateCorruptError{Reason: fmt.Sprintf("asked lists question %q twice", id)}
		}
		st.Asked[id] = true
	}
	for _, id := range rec.Excluded {
		if _, ok := c.EntityByID(id); !ok {
			return nil, &StateCorruptError{Reason: fmt.Sprintf("excluded references unknown entity %q", id)}
		}
		if st.Excluded[id] {
			return nil, &StateCorruptError{Reason: fmt.Sprintf("excluded lists entity %q twice", id)}
		}
		st.Excluded[id] = true
	}
	for _, e := range c.entities {
		if st.Excluded[e.ID] {
			continue
		}
		if _, ok := st.Scores[e.ID]; !ok {
			return nil, &StateCorruptError{Reason: fmt.Sprintf("no score for entity %q", e.ID)}
		}
	}
	return st, nil
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
