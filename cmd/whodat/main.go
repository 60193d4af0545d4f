// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command whodat runs the Who Dat Dev? guessing game.
//
// Who Dat Dev? is an Akinator-style API: the caller thinks of a famous
// developer, the server asks yes/no-ish questions, and after enough answers
// it names the person it believes the caller has in mind.
//
// Usage:
//
//	go run ./cmd/whodat serve
//	go run ./cmd/whodat serve --port 9090
//	go run ./cmd/whodat data validate
//	go run ./cmd/whodat data validate --watch
//
// Example session:
//
//	# Start a game
//	curl -X POST http://localhost:8080/start_game
//
//	# Answer the current question (answers: yes / probably yes / probably no / no)
//	curl -X POST http://localhost:8080/questions \
//	  -H "Content-Type: application/json" \
//	  -d '{"session_id": "<id>", "attribute_key": "<key>", "answer": "yes"}'
//
//	# Settle a guess
//	curl -X POST http://localhost:8080/confirm_guess \
//	  -H "Content-Type: application/json" \
//	  -d '{"session_id": "<id>", "guessed_character_name": "<name>", "user_confirms_correct": true}'
package main

import (
	"log"
)

func main() {
	// Execute the root command. Cobra handles parsing the arguments.
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error executing command: %v", err)
	}
}
