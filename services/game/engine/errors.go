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

import "errors"

// Sentinel errors for the inference engine.
var (
	// ErrInvalidAnswer indicates an answer weight outside the accepted [0,1] range.
	ErrInvalidAnswer = errors.New("answer weight outside accepted range")

	// ErrUnknownAttribute indicates an attribute key no question probes.
	ErrUnknownAttribute = errors.New("attribute not probed by any question")

	// ErrAttributeAnswered indicates every question bound to the attribute was already asked.
	ErrAttributeAnswered = errors.New("attribute already answered this game")

	// ErrUnknownEntity indicates an entity identifier or name absent from the catalog.
	ErrUnknownEntity = errors.New("entity not in catalog")

	// ErrEntityExcluded indicates the entity was already eliminated by a rejected guess.
	ErrEntityExcluded = errors.New("entity already excluded")

	// ErrNoCandidates indicates every entity has been excluded.
	ErrNoCandidates = errors.New("no candidate entities remain")
)

// DatasetError reports a malformed or inconsistent catalog dataset. It is
// fatal at load time: a process must refuse to start rather than run with a
// broken catalog.
type DatasetError struct {
	Dataset string
	Reason  string
	Err     error
}

func (e *DatasetError) Error() string {
	if e.Err != nil {
		return "dataset " + e.Dataset + ": " + e.Reason + ": " + e.Err.Error()
	}
	return "dataset " + e.Dataset + ": " + e.Reason
}

func (e *DatasetError) Unwrap() error { return e.Err }

// StateCorruptError reports a serialized game state that cannot be restored
// against the current catalog. Decoding never falls back to defaults: a
// silently patched resume would misrank candidates without detection.
type StateCorruptError struct {
	Reason string
	Err    error
}

func (e *StateCorruptError) Error() string {
	if e.Err != nil {
		return "game state corrupt: " + e.Reason + ": " + e.Err.Error()
	}
	return "game state corrupt: " + e.Reason
}

func (e *StateCorruptError) Unwrap() error { return e.Err }
