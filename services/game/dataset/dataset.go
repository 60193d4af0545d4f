// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package dataset reads the character and question files and builds the
// validated engine catalog.
//
// # Description
//
// Both files are read concurrently and validated together; a process should
// treat any error as fatal rather than serve games from a broken catalog.
// Empty paths select the embedded default datasets, so a bare binary works
// out of the box.
package dataset

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/whodat/data"
	"github.com/AleutianAI/whodat/services/game/engine"
)

// MaxDatasetFileSize is the maximum allowed dataset file size (1MB).
// Prevents memory issues from misconfigured paths.
const MaxDatasetFileSize = 1024 * 1024

var datasetTracer = otel.Tracer("aleutian.whodat.dataset")

// Load reads, validates, and indexes the two datasets.
//
// # Description
//
// Reads the character and question files concurrently, then hands the raw
// bytes to the engine for strict validation. An empty path selects the
// embedded default for that dataset.
//
// # Inputs
//
//   - ctx: Context for cancellation.
//   - charactersPath: Path to the character file, or "" for the embedded set.
//   - questionsPath: Path to the question file, or "" for the embedded set.
//
// # Outputs
//
//   - *engine.Catalog: The validated catalog.
//   - error: Read failures, size-cap violations, or *engine.DatasetError on
//     invalid content.
func Load(ctx context.Context, charactersPath, questionsPath string) (*engine.Catalog, error) {
	ctx, span := datasetTracer.Start(ctx, "dataset.Load")
	defer span.End()

	var characterData, questionData []byte
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		characterData, err = readDataset(gctx, charactersPath, data.DefaultCharacters, "characters")
		return err
	})
	g.Go(func() error {
		var err error
		questionData, err = readDataset(gctx, questionsPath, data.DefaultQuestions, "questions")
		return err
	})
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "read failed")
		return nil, err
	}

	catalog, err := engine.LoadCatalog(characterData, questionData)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation failed")
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("entities", catalog.EntityCount()),
		attribute.Int("questions", catalog.QuestionCount()),
		attribute.Int("attributes", catalog.AttributeCount()),
	)
	slog.Info("datasets loaded",
		"entities", catalog.EntityCount(),
		"questions", catalog.QuestionCount(),
		"attributes", catalog.AttributeCount(),
		"characters_source", sourceName(charactersPath),
		"questions_source", sourceName(questionsPath),
	)
	return catalog, nil
}

// readDataset returns the raw bytes for one dataset.
func readDataset(ctx context.Context, path string, embedded []byte, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if path == "" {
		return embedded, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s dataset: %w", name, err)
	}
	if info.Size() > MaxDatasetFileSize {
		return nil, fmt.Errorf("%s dataset too large: %d bytes (max %d)", name, info.Size(), MaxDatasetFileSize)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s dataset: %w", name, err)
	}
	return raw, nil
}

// sourceName labels a dataset source for logging.
func sourceName(path string) string {
	if path == "" {
		return "embedded"
	}
	return path
}
