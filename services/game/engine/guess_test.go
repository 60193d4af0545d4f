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
)

func TestShouldGuess(t *testing.T) {
	cfg := Config{MarginThreshold: 2.0, MaxTurns: 15, TopN: 5, SelectorWindow: 10}

	tests := []struct {
		name   string
		ranked []Candidate
		turns  int
		want   bool
	}{
		{
			name:   "no candidates",
			ranked: nil,
			turns:  0,
			want:   false,
		},
		{
			name:   "single candidate",
			ranked: []Candidate{{ID: "a", Score: -3}},
			turns:  0,
			want:   true,
		},
		{
			name:   "margin met exactly",
			ranked: []Candidate{{ID: "a", Score: 3}, {ID: "b", Score: 1}},
			turns:  2,
			want:   true,
		},
		{
			name:   "margin not met",
			ranked: []Candidate{{ID: "a", Score: 2.5}, {ID: "b", Score: 1}},
			turns:  2,
			want:   false,
		},
		{
			name:   "turn ceiling reached",
			ranked: []Candidate{{ID: "a", Score: 0.5}, {ID: "b", Score: 0.4}},
			turns:  15,
			want:   true,
		},
		{
			name:   "turn ceiling exceeded",
			ranked: []Candidate{{ID: "a", Score: 0}, {ID: "b", Score: 0}},
			turns:  40,
			want:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, shouldGuess(tt.ranked, tt.turns, cfg))
		})
	}
}

func TestConfigWithDefaults(t *testing.T) {
	def := DefaultConfig()

	filled := Config{}.withDefaults()
	assert.Equal(t, def, filled, "a zero config takes every default")

	custom := Config{MarginThreshold: 5, MaxTurns: 3}.withDefaults()
	assert.Equal(t, 5.0, custom.MarginThreshold)
	assert.Equal(t, 3, custom.MaxTurns)
	assert.Equal(t, def.TopN, custom.TopN)
	assert.Equal(t, def.SelectorWindow, custom.SelectorWindow)
}
