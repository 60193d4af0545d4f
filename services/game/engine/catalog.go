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
	"strings"
)

// -----------------------------------------------------------------------------
// Catalog Types
// -----------------------------------------------------------------------------

// Entity is one guessable candidate. Attributes maps an attribute key to a
// truth weight in [0,1]; a key absent from the map counts as weight 0.
// Entities are immutable after load.
type Entity struct {
	ID         string             `json:"id"`
	Name       string             `json:"name"`
	Attributes map[string]float64 `json:"attributes"`
}

// Question is one askable prompt, bound to exactly one attribute key.
// Questions are immutable after load.
type Question struct {
	ID        string `json:"id"`
	Attribute string `json:"attribute"`
	Text      string `json:"text"`
}

// Catalog is the immutable, process-wide load of the entity and question
// datasets. It is never mutated after LoadCatalog returns, so it is safe to
// share across unboundedly many concurrent games without locking.
type Catalog struct {
	entities  []Entity   // sorted by ID
	questions []Question // sorted by ID

	entityIdx   map[string]int // entity ID -> index into entities
	nameIdx     map[string]int // folded entity name -> index into entities
	questionIdx map[string]int // question ID -> index into questions

	// questionsByAttr holds question indices per attribute key, ascending by
	// question ID so attribute-keyed answers resolve deterministically.
	questionsByAttr map[string][]int

	attributes map[string]struct{} // union of entity attribute keys
}

// -----------------------------------------------------------------------------
// Loading & Validation
// -----------------------------------------------------------------------------

// LoadCatalog parses and validates the two datasets.
//
// Description:
//
//	Builds the immutable catalog from raw JSON. Validation is strict and
//	load is all-or-nothing: duplicate identifiers, duplicate display names,
//	weights outside [0,1], empty required fields, and questions probing an
//	attribute no entity carries all fail with a *DatasetError. A process
//	must treat that as fatal rather than start with a broken catalog.
//
// Inputs:
//   - characterData: JSON array of entities ({id, name, attributes}).
//   - questionData: JSON array of questions ({id, attribute, text}).
//
// Outputs:
//   - *Catalog: The validated catalog, entities and questions sorted by ID.
//   - error: *DatasetError on any inconsistency.
func LoadCatalog(characterData, questionData []byte) (*Catalog, error) {
	var entities []Entity
	if err := json.Unmarshal(characterData, &entities); err != nil {
		return nil, &DatasetError{Dataset: "characters", Reason: "invalid JSON", Err: err}
	}
	if len(entities) == 0 {
		return nil, &DatasetError{Dataset: "characters", Reason: "no entities defined"}
	}

	var questions []Question
	if err := json.Unmarshal(questionData, &questions); err != nil {
		return nil, &DatasetError{Dataset: "questions", Reason: "invalid JSON", Err: err}
	}

	c := &Catalog{
		entities:        entities,
		questions:       questions,
		entityIdx:       make(map[string]int, len(entities)),
		nameIdx:         make(map[string]int, len(entities)),
		questionIdx:     make(map[string]int, len(questions)),
		questionsByAttr: make(map[string][]int),
		attributes:      make(map[string]struct{}),
	}

	sort.Slice(c.entities, func(i, j int) bool { return c.entities[i].ID < c.entities[j].ID })
	for i, e := range c.entities {
		if e.ID == "" {
			return nil, &DatasetError{Dataset: "characters", Reason: fmt.Sprintf("entity %d has an empty id", i)}
		}
		if e.Name == "" {
			return nil, &DatasetError{Dataset: "characters", Reason: fmt.Sprintf("entity %q has an empty name", e.ID)}
		}
		if _, dup := c.entityIdx[e.ID]; dup {
			return nil, &DatasetError{Dataset: "characters", Reason: fmt.Sprintf("duplicate entity id %q", e.ID)}
		}
		folded := foldName(e.Name)
		if _, dup := c.nameIdx[folded]; dup {
			return nil, &DatasetError{Dataset: "characters", Reason: fmt.Sprintf("duplicate entity name %q", e.Name)}
		}
		for key, w := range e.Attributes {
			if key == "" {
				return nil, &DatasetError{Dataset: "characters", Reason: fmt.Sprintf("entity %q has an empty attribute key", e.ID)}
			}
			// NaN fails both comparisons, so it is caught here too.
			if !(w >= 0 && w <= 1) {
				return nil, &DatasetError{Dataset: "characters",
					Reason: fmt.Sprintf("entity %q attribute %q weight %v outside [0,1]", e.ID, key, w)}
			}
			c.attributes[key] = struct{}{}
		}
		c.entityIdx[e.ID] = i
		c.nameIdx[folded] = i
	}

	sort.Slice(c.questions, func(i, j int) bool { return c.questions[i].ID < c.questions[j].ID })
	for i, q := range c.questions {
		if q.ID == "" {
			return nil, &DatasetError{Dataset: "questions", Reason: fmt.Sprintf("question %d has an empty id", i)}
		}
		if q.Attribute == "" {
			return nil, &DatasetError{Dataset: "questions", Reason: fmt.Sprintf("question %q has an empty attribute key", q.ID)}
		}
		if q.Text == "" {
			return nil, &DatasetError{Dataset: "questions", Reason: fmt.Sprintf("question %q has empty text", q.ID)}
		}
		if _, dup := c.questionIdx[q.ID]; dup {
			return nil, &DatasetError{Dataset: "questions", Reason: fmt.Sprintf("duplicate question id %q", q.ID)}
		}
		if _, ok := c.attributes[q.Attribute]; !ok {
			return nil, &DatasetError{Dataset: "questions",
				Reason: fmt.Sprintf("question %q probes attribute %q carried by no entity", q.ID, q.Attribute)}
		}
		c.questionIdx[q.ID] = i
		c.questionsByAttr[q.Attribute] = append(c.questionsByAttr[q.Attribute], i)
	}

	return c, nil
}

func foldName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// -----------------------------------------------------------------------------
// Accessors
// -----------------------------------------------------------------------------

// Entities returns the entities in ID order. The returned slice is a copy;
// the shared attribute maps must be treated as read-only.
func (c *Catalog) Entities() []Entity {
	out := make([]Entity, len(c.entities))
	copy(out, c.entities)
	return out
}

// Questions returns the questions in ID order.
func (c *Catalog) Questions() []Question {
	out := make([]Question, len(c.questions))
	copy(out, c.questions)
	return out
}

// EntityByID looks up an entity by identifier.
func (c *Catalog) EntityByID(id string) (Entity, bool) {
	i, ok := c.entityIdx[id]
	if !ok {
		return Entity{}, false
	}
	return c.entities[i], true
}

// EntityByName looks up an entity by display name, ignoring case and
// surrounding whitespace. Display names are validated unique at load.
func (c *Catalog) EntityByName(name string) (Entity, bool) {
	i, ok := c.nameIdx[foldName(name)]
	if !ok {
		return Entity{}, false
	}
	return c.entities[i], true
}

// QuestionByID looks up a question by identifier.
func (c *Catalog) QuestionByID(id string) (Question, bool) {
	i, ok := c.questionIdx[id]
	if !ok {
		return Question{}, false
	}
	return c.questions[i], true
}

// EntityCount reports the number of entities.
func (c *Catalog) EntityCount() int { return len(c.entities) }

// QuestionCount reports the number of questions.
func (c *Catalog) QuestionCount() int { return len(c.questions) }

// AttributeCount reports the number of distinct attribute keys across all
// entities.
func (c *Catalog) AttributeCount() int { return len(c.attributes) }

// weight resolves an entity's truth weight for an attribute key. Absent keys
// count as 0: the attribute does not hold for the entity.
func (c *Catalog) weight(entityIdx int, attribute string) float64 {
	return c.entities[entityIdx].Attributes[attribute]
}
