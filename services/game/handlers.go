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
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/AleutianAI/whodat/services/game/engine"
	"github.com/AleutianAI/whodat/services/game/session"
)

var gameTracer = otel.Tracer("aleutian.whodat.handlers")

// Handlers contains the HTTP handlers for the game service.
type Handlers struct {
	svc *Service
}

// NewHandlers creates handlers for the given service.
func NewHandlers(svc *Service) *Handlers {
	return &Handlers{svc: svc}
}

// HandleWelcome handles GET /.
//
// Description:
//
//	Greets the player and summarizes how to play over the API, including
//	the catalog sizes.
//
// Response:
//
//	200 OK: WelcomeResponse
func (h *Handlers) HandleWelcome(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Welcome())
}

// HandleHealth handles GET /healthz.
//
// Description:
//
//	Returns the health status of the service, including a session store
//	round-trip. The endpoint answers 200 while the process serves; the
//	storage field reports store trouble.
//
// Response:
//
//	200 OK: HealthResponse
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Health(c.Request.Context()))
}

// HandleStartGame handles POST /start_game.
//
// Description:
//
//	Creates a new game session and returns the opening move, normally the
//	first question.
//
// Response:
//
//	200 OK: TurnResponse
//	503 Service Unavailable: Session store failure
func (h *Handlers) HandleStartGame(c *gin.Context) {
	ctx, span := gameTracer.Start(c.Request.Context(), "HandleStartGame")
	defer span.End()
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleStartGame")

	resp, err := h.svc.StartGame(ctx)
	if err != nil {
		statusCode := http.StatusInternalServerError
		errCode := "START_FAILED"

		if errors.Is(err, ErrStoreUnavailable) {
			statusCode = http.StatusServiceUnavailable
			errCode = "STORE_UNAVAILABLE"
		}

		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Error("Start game failed", "error", err)
		c.JSON(statusCode, ErrorResponse{
			Error: err.Error(),
			Code:  errCode,
		})
		return
	}

	logger.Info("Game started",
		"session_id", resp.SessionID,
		"status", resp.Status)

	c.JSON(http.StatusOK, resp)
}

// HandleAnswer handles POST /questions.
//
// Description:
//
//	Applies one graded answer to a session's game and returns the next
//	move: another question, a guess to settle, or a terminal phase.
//
// Request Body:
//
//	AnswerRequest
//
// Response:
//
//	200 OK: TurnResponse
//	400 Bad Request: Unrecognized answer or attribute problem
//	404 Not Found: Unknown session
//	500 Internal Server Error: Corrupt stored state
//	503 Service Unavailable: Session store failure
func (h *Handlers) HandleAnswer(c *gin.Context) {
	ctx, span := gameTracer.Start(c.Request.Context(), "HandleAnswer")
	defer span.End()
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleAnswer")

	var req AnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request body",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	logger.Info("Processing answer",
		"session_id", req.SessionID,
		"attribute_key", req.AttributeKey)

	resp, err := h.svc.Answer(ctx, req.SessionID, req.AttributeKey, req.Answer)
	if err != nil {
		statusCode := http.StatusInternalServerError
		errCode := "ANSWER_FAILED"
		message := err.Error()

		var corrupt *engine.StateCorruptError
		if errors.Is(err, session.ErrNotFound) {
			statusCode = http.StatusNotFound
			errCode = "SESSION_NOT_FOUND"
			message = fmt.Sprintf("Session ID '%s' not found.", req.SessionID)
		} else if errors.Is(err, ErrUnrecognizedAnswer) || errors.Is(err, engine.ErrInvalidAnswer) {
			statusCode = http.StatusBadRequest
			errCode = "INVALID_ANSWER"
		} else if errors.Is(err, engine.ErrUnknownAttribute) {
			statusCode = http.StatusBadRequest
			errCode = "UNKNOWN_ATTRIBUTE"
		} else if errors.Is(err, engine.ErrAttributeAnswered) {
			statusCode = http.StatusBadRequest
			errCode = "ATTRIBUTE_ANSWERED"
		} else if errors.Is(err, engine.ErrNoCandidates) {
			statusCode = http.StatusBadRequest
			errCode = "NO_CANDIDATES"
		} else if errors.Is(err, ErrStoreUnavailable) {
			statusCode = http.StatusServiceUnavailable
			errCode = "STORE_UNAVAILABLE"
		} else if errors.As(err, &corrupt) {
			statusCode = http.StatusInternalServerError
			errCode = "STATE_CORRUPT"
		}

		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Error("Answer failed", "session_id", req.SessionID, "error", err)
		c.JSON(statusCode, ErrorResponse{
			Error: message,
			Code:  errCode,
		})
		return
	}

	logger.Info("Answer processed",
		"session_id", resp.SessionID,
		"status", resp.Status,
		"turn", resp.Turn)

	c.JSON(http.StatusOK, resp)
}

// HandleConfirmGuess handles POST /confirm_guess.
//
// Description:
//
//	Settles a presented guess. A confirmed guess ends the game and deletes
//	the session; a rejected guess eliminates the character and play resumes
//	with the next move.
//
// Request Body:
//
//	ConfirmGuessRequest
//
// Response:
//
//	200 OK: ConfirmGuessResponse (confirmed) or TurnResponse (rejected)
//	400 Bad Request: Unknown or already-eliminated character
//	404 Not Found: Unknown session
//	500 Internal Server Error: Corrupt stored state
//	503 Service Unavailable: Session store failure
func (h *Handlers) HandleConfirmGuess(c *gin.Context) {
	ctx, span := gameTracer.Start(c.Request.Context(), "HandleConfirmGuess")
	defer span.End()
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleConfirmGuess")

	var req ConfirmGuessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request body",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	confirmed := *req.UserConfirmsCorrect
	logger.Info("Settling guess",
		"session_id", req.SessionID,
		"guessed_character_name", req.GuessedCharacterName,
		"confirmed", confirmed)

	var resp interface{}
	var err error
	if confirmed {
		resp, err = h.svc.ConfirmGuess(ctx, req.SessionID, req.GuessedCharacterName)
	} else {
		resp, err = h.svc.RejectGuess(ctx, req.SessionID, req.GuessedCharacterName)
	}
	if err != nil {
		statusCode := http.StatusInternalServerError
		errCode := "CONFIRM_FAILED"
		message := err.Error()

		var corrupt *engine.StateCorruptError
		if errors.Is(err, session.ErrNotFound) {
			statusCode = http.StatusNotFound
			errCode = "SESSION_NOT_FOUND"
			message = fmt.Sprintf("Session ID '%s' not found.", req.SessionID)
		} else if errors.Is(err, engine.ErrUnknownEntity) {
			statusCode = http.StatusBadRequest
			errCode = "UNKNOWN_ENTITY"
		} else if errors.Is(err, engine.ErrEntityExcluded) {
			statusCode = http.StatusBadRequest
			errCode = "ENTITY_EXCLUDED"
		} else if errors.Is(err, ErrStoreUnavailable) {
			statusCode = http.StatusServiceUnavailable
			errCode = "STORE_UNAVAILABLE"
		} else if errors.As(err, &corrupt) {
			statusCode = http.StatusInternalServerError
			errCode = "STATE_CORRUPT"
		}

		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Error("Guess settlement failed", "session_id", req.SessionID, "error", err)
		c.JSON(statusCode, ErrorResponse{
			Error: message,
			Code:  errCode,
		})
		return
	}

	logger.Info("Guess settled",
		"session_id", req.SessionID,
		"confirmed", confirmed)

	c.JSON(http.StatusOK, resp)
}

// getOrCreateRequestID returns the request ID from the X-Request-ID header,
// generating one if absent, and echoes it on the response.
func getOrCreateRequestID(c *gin.Context) string {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Header("X-Request-ID", requestID)
	return requestID
}
