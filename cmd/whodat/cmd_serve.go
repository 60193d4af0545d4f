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
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/AleutianAI/whodat/cmd/whodat/config"
	"github.com/AleutianAI/whodat/services/game"
	"github.com/AleutianAI/whodat/services/game/dataset"
	"github.com/AleutianAI/whodat/services/game/engine"
	"github.com/AleutianAI/whodat/services/game/observability"
	"github.com/AleutianAI/whodat/services/game/session"
	"github.com/AleutianAI/whodat/services/game/storage/badger"

	// --- OpenTelemetry imports ---
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

// initTracer wires the OTLP gRPC exporter when an endpoint is configured.
// With no endpoint the global tracer provider stays a no-op, so handler
// spans cost nothing.
func initTracer(endpoint string) (func(context.Context), error) {
	if endpoint == "" {
		slog.Info("OTLP endpoint not configured, tracing disabled")
		return func(context.Context) {}, nil
	}
	ctx := context.Background()

	conn, err := grpc.NewClient(endpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("whodat-service")))
	if err != nil {
		return nil, err
	}
	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))
	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.
		TraceContext{}, propagation.Baggage{}))

	return func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}, nil
}

func runServe(cmd *cobra.Command, args []string) {
	cfg := config.Global

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if serveDebug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	port := cfg.Server.Port
	if servePort != 0 {
		port = servePort
	}

	// --- Init the tracer ---
	cleanup, err := initTracer(cfg.Observability.OTLPEndpoint)
	if err != nil {
		log.Fatalf("failed to setup the OTLP tracer: %v", err)
	}
	defer cleanup(context.Background())

	catalog, err := dataset.Load(context.Background(),
		cfg.Data.CharactersPath, cfg.Data.QuestionsPath)
	if err != nil {
		log.Fatalf("FATAL: could not load the game datasets: %v", err)
	}

	storageCfg := badger.DefaultConfig()
	storageCfg.Path = cfg.Storage.Path
	storageCfg.InMemory = cfg.Storage.InMemory
	storageCfg.SyncWrites = cfg.Storage.SyncWrites
	storageCfg.Logger = logger.With("component", "badger")
	db, err := badger.Open(storageCfg)
	if err != nil {
		log.Fatalf("FATAL: could not open the session store: %v", err)
	}
	defer db.Close()

	metrics := observability.InitMetrics()

	storeCfg := session.DefaultStoreConfig()
	storeCfg.TTL = cfg.Session.TTL.Std()
	store := session.NewStore(db, storeCfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sweeper := session.NewSweeper(store, metrics,
		session.SweeperConfig{Interval: cfg.Session.SweepInterval.Std()})
	if err := sweeper.Start(ctx); err != nil {
		log.Fatalf("FATAL: could not start the session sweeper: %v", err)
	}
	defer sweeper.Stop()

	eng := engine.New(catalog, engine.Config{
		MarginThreshold: cfg.Engine.MarginThreshold,
		MaxTurns:        cfg.Engine.MaxTurns,
		TopN:            cfg.Engine.TopN,
		SelectorWindow:  cfg.Engine.SelectorWindow,
	})
	svc := game.NewService(eng, store, metrics, game.ServiceConfig{
		FinalCandidates: cfg.Engine.TopN,
	})
	handlers := game.NewHandlers(svc)

	// Setup router
	router := gin.New()
	router.Use(gin.Recovery())
	if serveDebug {
		router.Use(gin.Logger())
	}
	router.Use(otelgin.Middleware("whodat-service"))
	router.Use(game.CORSMiddleware(cfg.Server.CORSOrigins))
	game.RegisterRoutes(router.Group(""), handlers)
	if cfg.Observability.Metrics {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	printBanner(port, catalog.EntityCount(), catalog.QuestionCount())
	slog.Info("Starting the whodat server",
		slog.String("address", srv.Addr),
		slog.Int("entities", catalog.EntityCount()),
		slog.Int("questions", catalog.QuestionCount()))

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	case <-ctx.Done():
		slog.Info("Shutting down the whodat server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Graceful shutdown did not complete",
				slog.String("error", err.Error()))
		}
	}
}

func printBanner(port, entities, questions int) {
	banner := `
╔═══════════════════════════════════════════════════════════════════╗
║                        WHO DAT DEV? SERVER                        ║
╠═══════════════════════════════════════════════════════════════════╣
║                                                                   ║
║  Think of a famous developer. I will figure out who.              ║
║  Roster: %d characters, %d questions                              ║
║                                                                   ║
║  Quick Start:                                                     ║
║  ┌─────────────────────────────────────────────────────────────┐  ║
║  │ # Start a game                                              │  ║
║  │ curl -X POST http://localhost:%d/start_game               │  ║
║  │                                                             │  ║
║  │ # Answer the question it returns                            │  ║
║  │ curl -X POST http://localhost:%d/questions \              │  ║
║  │   -H "Content-Type: application/json" \                     │  ║
║  │   -d '{"session_id": "...", "attribute_key": "...",         │  ║
║  │        "answer": "probably yes"}'                           │  ║
║  │                                                             │  ║
║  │ # Tell it whether the guess was right                       │  ║
║  │ curl -X POST http://localhost:%d/confirm_guess \          │  ║
║  │   -H "Content-Type: application/json" \                     │  ║
║  │   -d '{"session_id": "...",                                 │  ║
║  │        "guessed_character_name": "...",                     │  ║
║  │        "user_confirms_correct": true}'                      │  ║
║  └─────────────────────────────────────────────────────────────┘  ║
║                                                                   ║
║  Endpoints: /start_game, /questions, /confirm_guess,              ║
║             /healthz, /metrics                                    ║
║                                                                   ║
║  Press Ctrl+C to stop                                             ║
╚═══════════════════════════════════════════════════════════════════╝
`
	fmt.Printf(banner, entities, questions, port, port, port)
}
