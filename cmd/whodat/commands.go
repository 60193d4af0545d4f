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
	"log"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/whodat/cmd/whodat/config"
)

// --- Global Command Variables ---
var (
	configPath string // --config override for ~/.aleutian/whodat.yaml
	servePort  int    // --port override for the config's server.port
	serveDebug bool   // --debug enables gin debug mode and request logging
	watchData  bool   // --watch keeps `data validate` running on file changes

	rootCmd = &cobra.Command{
		Use:   "whodat",
		Short: "Run and operate the Who Dat Dev? guessing game",
		Long: `Whodat is the server and toolbox for Who Dat Dev?, an Akinator-style
				API that asks questions until it can name the famous developer
				you are thinking of.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			config.Path = configPath
			if err := config.Load(); err != nil {
				log.Fatalf("Error loading the whodat config: %v", err)
			}
		},
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Start the Who Dat Dev? API server",
		Run:   runServe, // Defined in cmd_serve.go
	}

	// --- Datasets ---
	dataCmd = &cobra.Command{
		Use:   "data",
		Short: "Inspect the character and question datasets",
	}
	dataValidateCmd = &cobra.Command{
		Use:   "validate",
		Short: "Load the datasets and report what the engine would see",
		Run:   runDataValidate, // Defined in cmd_data.go
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Run:   runVersion, // Defined in cmd_version.go
	}
)

// init runs when the Go program starts
func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Path to the whodat config file (default ~/.aleutian/whodat.yaml)")

	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Listen port (overrides the config)")
	serveCmd.Flags().BoolVar(&serveDebug, "debug", false, "Enable gin debug mode and request logging")

	rootCmd.AddCommand(dataCmd)
	dataCmd.AddCommand(dataValidateCmd)
	dataValidateCmd.Flags().BoolVar(&watchData, "watch", false,
		"Re-validate whenever the dataset files change")

	rootCmd.AddCommand(versionCmd)
}
