package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"prepmate/interview/internal/models"
	"prepmate/interview/internal/store"
	"prepmate/interview/internal/utils"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// SessionHandler serves session metadata, transcripts and plans.
type SessionHandler struct {
	store  *store.Store
	logger *zap.Logger
}

func NewSessionHandler(st *store.Store, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{store: st, logger: logger}
}

// ListHandler returns the user's sessions, newest first.
func (h *SessionHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		userID = models.DefaultUserID
	}
	limit := queryInt(r, "limit", defaultListLimit)
	if limit < 1 || limit > maxListLimit {
		limit = defaultListLimit
	}
	offset := queryInt(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	sessions, total, err := h.store.ListSessions(userID, limit, offset)
	if err != nil {
		h.logger.Error("failed to list sessions", zap.String("user_id", userID), zap.Error(err))
		utils.JSON(w, http.StatusInternalServerError, models.ErrorResponse{
			Code:    "list_failed",
			Message: "failed to list sessions",
		})
		return
	}

	utils.JSON(w, http.StatusOK, models.SessionListResponse{Sessions: sessions, Total: total})
}

// GetHandler returns one session with its transcript.
func (h *SessionHandler) GetHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")

	session, err := h.store.GetSession(sessionID)
	if errors.Is(err, store.ErrNotFound) {
		utils.JSON(w, http.StatusNotFound, models.ErrorResponse{
			Code:    "session_not_found",
			Message: "session not found",
		})
		return
	}
	if err != nil {
		h.logger.Error("failed to load session", zap.String("session_id", sessionID), zap.Error(err))
		utils.JSON(w, http.StatusInternalServerError, models.ErrorResponse{
			Code:    "load_failed",
			Message: "failed to load session",
		})
		return
	}

	messages, err := h.store.GetMessages(sessionID)
	if err != nil {
		h.logger.Error("failed to load transcript", zap.String("session_id", sessionID), zap.Error(err))
		utils.JSON(w, http.StatusInternalServerError, models.ErrorResponse{
			Code:    "load_failed",
			Message: "failed to load transcript",
		})
		return
	}

	utils.JSON(w, http.StatusOK, models.SessionDetailResponse{Session: session, Messages: messages})
}

// PlanHandler returns the session's question list.
func (h *SessionHandler) PlanHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")

	plan, err := h.store.GetPlan(sessionID)
	if errors.Is(err, store.ErrNotFound) {
		utils.JSON(w, http.StatusNotFound, models.ErrorResponse{
			Code:    "plan_not_found",
			Message: "plan not found",
		})
		return
	}
	if err != nil {
		h.logger.Error("failed to load plan", zap.String("session_id", sessionID), zap.Error(err))
		utils.JSON(w, http.StatusInternalServerError, models.ErrorResponse{
			Code:    "load_failed",
			Message: "failed to load plan",
		})
		return
	}

	utils.JSON(w, http.StatusOK, models.PlanResponse{SessionID: sessionID, Questions: plan})
}

// DeleteHandler removes a session and everything attached to it.
func (h *SessionHandler) DeleteHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")

	err := h.store.DeleteSession(sessionID)
	if errors.Is(err, store.ErrNotFound) {
		utils.JSON(w, http.StatusNotFound, models.ErrorResponse{
			Code:    "session_not_found",
			Message: "session not found",
		})
		return
	}
	if err != nil {
		h.logger.Error("failed to delete session", zap.String("session_id", sessionID), zap.Error(err))
		utils.JSON(w, http.StatusInternalServerError, models.ErrorResponse{
			Code:    "delete_failed",
			Message: "failed to delete session",
		})
		return
	}

	utils.JSON(w, http.StatusOK, map[string]string{"session_id": sessionID, "status": "deleted"})
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
