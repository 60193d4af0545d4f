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

// Config holds the guess-policy knobs. The three stop conditions (score
// margin, question exhaustion, turn ceiling) are independent OR-triggers.
type Config struct {
	// MarginThreshold is the minimum score gap between the leader and the
	// runner-up before the engine stops asking and guesses. Default: 2.0
	MarginThreshold float64

	// MaxTurns is the hard cap on answered questions before a guess is
	// forced regardless of margin. Default: 15
	MaxTurns int

	// TopN is how many ranked candidates accompany a finished game for
	// display. Default: 5
	TopN int

	// SelectorWindow is how many top-ranked candidates the question
	// selector considers when measuring discriminative value. Default: 10
	SelectorWindow int
}

// DefaultConfig returns the default guess policy.
func DefaultConfig() Config {
	return Config{
		MarginThreshold: 2.0,
		MaxTurns:        15,
		TopN:            5,
		SelectorWindow:  10,
	}
}

// withDefaults fills unset fields so a zero Config is usable.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.MarginThreshold <= 0 {
		c.MarginThreshold = def.MarginThreshold
	}
	if c.MaxTurns <= 0 {
		c.MaxTurns = def.MaxTurns
	}
	if c.TopN <= 0 {
		c.TopN = def.TopN
	}
	if c.SelectorWindow <= 0 {
		c.SelectorWindow = def.SelectorWindow
	}
	return c
}

// shouldGuess reports whether confidence suffices to stop asking: the leader
// clears the runner-up by the configured margin, only one candidate remains,
// or the turn ceiling is reached. Question exhaustion is the third trigger
// and is handled by the caller when the selector yields nothing.
func shouldGuess(ranked []Candidate, turns int, cfg Config) bool {
	if len(ranked) == 0 {
		return false
	}
	if len(ranked) == 1 {
		return true
	}
	if turns >= cfg.MaxTurns {
		return true
	}
	return ranked[0].Score-ranked[1].Score >= cfg.MarginThreshold
}
