package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"prepmate/interview/internal/interview"
	"prepmate/interview/internal/middleware"
	"prepmate/interview/internal/models"
	"prepmate/interview/internal/store"
	"prepmate/interview/internal/utils"
)

// InterviewHandler exposes the turn-based interview flow over SSE.
type InterviewHandler struct {
	controller *interview.Controller
	store      *store.Store
	logger     *zap.Logger
}

func NewInterviewHandler(controller *interview.Controller, st *store.Store, logger *zap.Logger) *InterviewHandler {
	return &InterviewHandler{controller: controller, store: st, logger: logger}
}

// sseStream wraps the response writer for server-sent events. Each event is
// one `data:` line holding the JSON-encoded payload.
type sseStream struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func newSSEStream(w http.ResponseWriter) (*sseStream, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming unsupported by response writer")
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	return &sseStream{w: w, flusher: flusher}, nil
}

func (s *sseStream) Send(event interview.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	fmt.Fprintf(s.w, "data: %s\n\n", payload)
	s.flusher.Flush()
}

// errorEvent maps controller errors onto a terminal SSE error event.
func errorEvent(err error) interview.Event {
	var resp *models.ErrorResponse
	if errors.As(err, &resp) {
		return interview.Event{Type: "error", Data: resp}
	}
	if errors.Is(err, store.ErrNotFound) {
		return interview.Event{Type: "error", Data: &models.ErrorResponse{
			Code:    "session_not_found",
			Message: "session not found",
		}}
	}
	return interview.Event{Type: "error", Data: &models.ErrorResponse{
		Code:    "internal_error",
		Message: "failed to process interview turn",
	}}
}

// StartHandler creates a session and streams the opening question.
func (h *InterviewHandler) StartHandler(w http.ResponseWriter, r *http.Request) {
	req := middleware.GetValidatedRequest[*models.StartInterviewRequest](r)
	requestID := uuid.New().String()

	stream, err := newSSEStream(w)
	if err != nil {
		utils.JSON(w, http.StatusInternalServerError, models.ErrorResponse{
			Code:    "streaming_unsupported",
			Message: "response writer does not support streaming",
		})
		return
	}

	if err := h.controller.StartInterview(r.Context(), req, stream.Send); err != nil {
		h.logger.Error("interview start failed",
			zap.String("request_id", requestID),
			zap.String("session_id", req.SessionID),
			zap.Error(err))
		stream.Send(errorEvent(err))
	}
}

// TurnHandler submits a candidate answer and streams the interviewer's
// reaction.
func (h *InterviewHandler) TurnHandler(w http.ResponseWriter, r *http.Request) {
	req := middleware.GetValidatedRequest[*models.TurnRequest](r)
	requestID := uuid.New().String()

	stream, err := newSSEStream(w)
	if err != nil {
		utils.JSON(w, http.StatusInternalServerError, models.ErrorResponse{
			Code:    "streaming_unsupported",
			Message: "response writer does not support streaming",
		})
		return
	}

	if err := h.controller.ProcessTurn(r.Context(), req.SessionID, req.Message, stream.Send); err != nil {
		h.logger.Error("interview turn failed",
			zap.String("request_id", requestID),
			zap.String("session_id", req.SessionID),
			zap.Error(err))
		stream.Send(errorEvent(err))
	}
}

// SummaryHandler regenerates and streams the closing report.
func (h *InterviewHandler) SummaryHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")

	stream, err := newSSEStream(w)
	if err != nil {
		utils.JSON(w, http.StatusInternalServerError, models.ErrorResponse{
			Code:    "streaming_unsupported",
			Message: "response writer does not support streaming",
		})
		return
	}

	if err := h.controller.Summary(r.Context(), sessionID, stream.Send); err != nil {
		h.logger.Error("summary generation failed",
			zap.String("session_id", sessionID),
			zap.Error(err))
		stream.Send(errorEvent(err))
	}
}

// RollbackHandler rewinds the transcript to the given message ordinal and
// reopens the session.
func (h *InterviewHandler) RollbackHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")
	req := middleware.GetValidatedRequest[*models.RollbackRequest](r)

	session, kept, err := h.store.Rollback(sessionID, req.Index)
	if errors.Is(err, store.ErrNotFound) {
		utils.JSON(w, http.StatusNotFound, models.ErrorResponse{
			Code:    "session_not_found",
			Message: "session not found",
		})
		return
	}
	if err != nil {
		h.logger.Error("rollback failed", zap.String("session_id", sessionID), zap.Error(err))
		utils.JSON(w, http.StatusInternalServerError, models.ErrorResponse{
			Code:    "rollback_failed",
			Message: "failed to rollback session",
		})
		return
	}

	h.logger.Info("session rolled back",
		zap.String("session_id", sessionID),
		zap.Int("kept_messages", kept),
		zap.Int("question_count", session.QuestionCount))

	utils.JSON(w, http.StatusOK, models.RollbackResponse{
		SessionID:     sessionID,
		QuestionCount: session.QuestionCount,
		MessageCount:  kept,
	})
}
