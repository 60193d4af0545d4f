// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/whodat/cmd/whodat/config"
	"github.com/AleutianAI/whodat/services/game/dataset"
	"github.com/AleutianAI/whodat/services/game/engine"
)

func runDataValidate(cmd *cobra.Command, args []string) {
	charactersPath := config.Global.Data.CharactersPath
	questionsPath := config.Global.Data.QuestionsPath

	err := validateDatasets(charactersPath, questionsPath)
	if !watchData {
		if err != nil {
			os.Exit(1)
		}
		return
	}

	watched := watchablePaths(charactersPath, questionsPath)
	if len(watched) == 0 {
		fmt.Println("Both datasets are embedded in the binary, nothing to watch.")
		if err != nil {
			os.Exit(1)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := watchDatasets(ctx, watched, charactersPath, questionsPath); err != nil {
		log.Fatalf("Error watching the dataset files: %v", err)
	}
}

// validateDatasets loads the catalog exactly the way serve does and prints
// what the engine would see.
func validateDatasets(charactersPath, questionsPath string) error {
	catalog, err := dataset.Load(context.Background(), charactersPath, questionsPath)
	if err != nil {
		var dsErr *engine.DatasetError
		if errors.As(err, &dsErr) {
			fmt.Printf("Dataset invalid: %v\n", dsErr)
		} else {
			fmt.Printf("Could not load the datasets: %v\n", err)
		}
		return err
	}

	fmt.Println("Dataset summary:")
	fmt.Printf("  Characters: %d (%s)\n", catalog.EntityCount(), sourceLabel(charactersPath))
	fmt.Printf("  Questions:  %d (%s)\n", catalog.QuestionCount(), sourceLabel(questionsPath))
	fmt.Printf("  Attributes: %d distinct keys\n", catalog.AttributeCount())

	orphans := orphanedAttributes(catalog)
	if len(orphans) == 0 {
		fmt.Println("  Orphaned attributes: none")
	} else {
		fmt.Printf("  Orphaned attributes (no question asks about them): %s\n",
			strings.Join(orphans, ", "))
	}
	return nil
}

// orphanedAttributes lists attribute keys the characters carry that no
// question can ever surface. They are legal but dead weight in the dataset.
func orphanedAttributes(catalog *engine.Catalog) []string {
	asked := make(map[string]bool)
	for _, q := range catalog.Questions() {
		asked[q.Attribute] = true
	}

	seen := make(map[string]bool)
	var orphans []string
	for _, e := range catalog.Entities() {
		for key := range e.Attributes {
			if asked[key] || seen[key] {
				continue
			}
			seen[key] = true
			orphans = append(orphans, key)
		}
	}
	sort.Strings(orphans)
	return orphans
}

func sourceLabel(path string) string {
	if path == "" {
		return "embedded"
	}
	return path
}

// watchablePaths resolves the configured file-backed dataset paths. Embedded
// datasets have no path and cannot change underfoot.
func watchablePaths(paths ...string) []string {
	var out []string
	for _, p := range paths {
		if p == "" {
			continue
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			continue
		}
		out = append(out, abs)
	}
	return out
}

// watchDatasets re-runs validation whenever one of the watched files changes.
// Editors often replace files wholesale on save, so the parent directories
// are watched and events are filtered back down to the dataset paths.
func watchDatasets(ctx context.Context, watched []string, charactersPath, questionsPath string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	dirs := make(map[string]bool)
	for _, p := range watched {
		dirs[filepath.Dir(p)] = true
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("could not watch %s: %w", dir, err)
		}
	}

	files := make(map[string]bool)
	for _, p := range watched {
		files[p] = true
	}

	fmt.Println("\nWatching for dataset changes. Press Ctrl+C to stop.")

	const debounce = 200 * time.Millisecond
	var (
		pending  *time.Timer
		pendingC <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil || !files[abs] {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			// batch bursts of editor events into one re-validation
			if pending == nil {
				pending = time.NewTimer(debounce)
				pendingC = pending.C
			} else {
				pending.Reset(debounce)
			}
		case <-pendingC:
			pending = nil
			pendingC = nil
			fmt.Println("\nDataset change detected, re-validating...")
			if err := validateDatasets(charactersPath, questionsPath); err != nil {
				fmt.Println("Still watching; fix the file and save again.")
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("dataset watcher error", "error", err)
		}
	}
}
