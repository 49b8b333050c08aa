package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"coursegen-backend/internal/middleware"
	"coursegen-backend/internal/models"
	"coursegen-backend/internal/services"
)

// GenerateHandler owns the SSE generation endpoint. Everything that can be
// rejected with a plain JSON status (bad URL, missing credits) is rejected
// before the stream opens; after the first frame, failures become error
// frames inside the stream.
type GenerateHandler struct {
	coordinator *services.Coordinator
	credits     services.CreditStore
	cost        int
	maxDuration time.Duration
}

func NewGenerateHandler(coordinator *services.Coordinator, credits services.CreditStore, cost int, maxDuration time.Duration) *GenerateHandler {
	if cost <= 0 {
		cost = 1
	}
	if maxDuration <= 0 {
		maxDuration = 5 * time.Minute
	}
	return &GenerateHandler{coordinator: coordinator, credits: credits, cost: cost, maxDuration: maxDuration}
}

func (h *GenerateHandler) Stream(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req models.GenerateCourseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	if _, err := services.ResolveSourceURL(req.YoutubeURL); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("INVALID_URL", err.Error(), r))
		return
	}

	ok, err := h.credits.HasCredits(r.Context(), userID, h.cost)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "An unexpected error occurred", r))
		return
	}
	if !ok {
		writeJSON(w, http.StatusForbidden, errorResp("INSUFFICIENT_CREDITS", "Not enough credits to generate a course", r))
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Streaming not supported", r))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	// The server-wide write timeout would kill a long stream mid-generation.
	// Clearing the deadline here scopes the exemption to this response.
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil {
		log.Printf("could not clear write deadline for stream: %v", err)
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.maxDuration)
	defer cancel()

	sink := &sseWriter{w: w, flusher: flusher}
	h.coordinator.Run(ctx, services.GenerateRequest{
		RawURL:   req.YoutubeURL,
		UserID:   userID,
		IsPublic: req.IsPublic,
		Language: req.Language,
	}, sink)
}

// sseWriter frames each event as a data-only SSE message and flushes
// immediately so partials reach the client as they are produced.
type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func (s *sseWriter) Send(ev models.GenerationEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", payload); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}
