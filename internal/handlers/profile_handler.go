package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"prepmate/interview/internal/analysis"
	"prepmate/interview/internal/models"
	"prepmate/interview/internal/store"
	"prepmate/interview/internal/utils"
)

// ProfileHandler serves per-session and aggregated candidate profiles.
type ProfileHandler struct {
	store   *store.Store
	ability *analysis.AbilityService
	logger  *zap.Logger
}

func NewProfileHandler(st *store.Store, ability *analysis.AbilityService, logger *zap.Logger) *ProfileHandler {
	return &ProfileHandler{store: st, ability: ability, logger: logger}
}

// SessionProfileHandler returns the profile extracted from one session.
func (h *ProfileHandler) SessionProfileHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")

	profile, err := h.store.GetProfile(sessionID)
	if errors.Is(err, store.ErrNotFound) {
		utils.JSON(w, http.StatusNotFound, models.ErrorResponse{
			Code:    "profile_not_found",
			Message: "profile not found; the session may still be analyzing",
		})
		return
	}
	if err != nil {
		h.logger.Error("failed to load session profile", zap.String("session_id", sessionID), zap.Error(err))
		utils.JSON(w, http.StatusInternalServerError, models.ErrorResponse{
			Code:    "load_failed",
			Message: "failed to load profile",
		})
		return
	}

	utils.JSON(w, http.StatusOK, models.ProfileResponse{Profile: profile})
}

// UserProfileHandler returns the stored overall profile without regenerating.
func (h *ProfileHandler) UserProfileHandler(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user_id")

	profile, err := h.ability.Get(userID)
	if errors.Is(err, store.ErrNotFound) {
		empty := models.EmptyProfile()
		utils.JSON(w, http.StatusOK, models.ProfileResponse{Profile: &empty})
		return
	}
	if err != nil {
		h.logger.Error("failed to load user profile", zap.String("user_id", userID), zap.Error(err))
		utils.JSON(w, http.StatusInternalServerError, models.ErrorResponse{
			Code:    "load_failed",
			Message: "failed to load profile",
		})
		return
	}

	utils.JSON(w, http.StatusOK, models.ProfileResponse{Profile: profile})
}

// GenerateProfileHandler regenerates the overall profile from recent
// sessions. Concurrent and rapid-fire requests are rejected rather than
// queued.
func (h *ProfileHandler) GenerateProfileHandler(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user_id")

	result, err := h.ability.Generate(r.Context(), userID)
	if errors.Is(err, analysis.ErrBusy) {
		utils.JSON(w, http.StatusConflict, models.ErrorResponse{
			Code:    "generation_in_progress",
			Message: "正在生成中，请稍候...",
		})
		return
	}
	if errors.Is(err, analysis.ErrCooldown) {
		utils.JSON(w, http.StatusTooManyRequests, models.ErrorResponse{
			Code:    "generation_cooldown",
			Message: "生成过于频繁，请稍后再试",
		})
		return
	}
	if err != nil {
		h.logger.Error("profile generation failed", zap.String("user_id", userID), zap.Error(err))
		utils.JSON(w, http.StatusInternalServerError, models.ErrorResponse{
			Code:    "generation_failed",
			Message: "failed to generate profile",
		})
		return
	}

	utils.JSON(w, http.StatusOK, models.ProfileResponse{Profile: result.Profile, Warning: result.Warning})
}
