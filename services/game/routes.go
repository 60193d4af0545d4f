// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package game

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/whodat/services/game/observability"
)

// RegisterRoutes registers all game routes with the router group.
//
// Description:
//
//	Registers the game endpoints with the given Gin router group and wires
//	the request latency histogram over the three game operations. The
//	router group should already have any required middleware applied
//	(CORS, tracing, recovery).
//
// Inputs:
//
//	rg - Gin router group (typically the router root)
//	handlers - The handlers instance
//
// Endpoints:
//
//	GET  / - Welcome and playing instructions
//	GET  /healthz - Health check
//	POST /start_game - Create a game session
//	POST /questions - Submit a graded answer
//	POST /confirm_guess - Confirm or reject a guess
//
// Example:
//
//	service := game.NewService(eng, store, metrics, game.DefaultServiceConfig())
//	handlers := game.NewHandlers(service)
//
//	root := router.Group("")
//	game.RegisterRoutes(root, handlers)
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	rg.Use(requestMetrics(handlers.svc.metrics))

	rg.GET("/", handlers.HandleWelcome)
	rg.GET("/healthz", handlers.HandleHealth)

	rg.POST("/start_game", handlers.HandleStartGame)
	rg.POST("/questions", handlers.HandleAnswer)
	rg.POST("/confirm_guess", handlers.HandleConfirmGuess)
}

// CORSMiddleware builds the cross-origin middleware for the given browser
// origins. Credentials are allowed, so origins must be listed explicitly
// rather than wildcarded.
func CORSMiddleware(origins []string) gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}

// requestMetrics measures handling latency for the game operations. Requests
// outside the three game endpoints pass through unrecorded.
func requestMetrics(metrics *observability.GameMetrics) gin.HandlerFunc {
	endpoints := map[string]observability.Endpoint{
		"/start_game":    observability.EndpointStartGame,
		"/questions":     observability.EndpointQuestions,
		"/confirm_guess": observability.EndpointConfirmGuess,
	}
	return func(c *gin.Context) {
		endpoint, ok := endpoints[c.FullPath()]
		if !ok {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		metrics.RecordRequestDuration(endpoint, time.Since(start).Seconds(), c.Writer.Status() < http.StatusBadRequest)
	}
}
