package routers

import (
	"prepmate/interview/internal/handlers"
	"prepmate/interview/internal/middleware"
	"prepmate/interview/internal/models"

	"github.com/go-chi/chi/v5"
)

func InterviewRoutes(router *chi.Mux, interviewHandler *handlers.InterviewHandler) {
	router.Route("/api/v1/interview", func(r chi.Router) {
		r.With(middleware.ValidateRequest[*models.StartInterviewRequest]()).Post("/start", interviewHandler.StartHandler)
		r.With(middleware.ValidateRequest[*models.TurnRequest]()).Post("/turn", interviewHandler.TurnHandler)
		r.Post("/{session_id}/summary", interviewHandler.SummaryHandler)
		r.With(middleware.ValidateRequest[*models.RollbackRequest]()).Post("/{session_id}/rollback", interviewHandler.RollbackHandler)
	})
}

func SessionRoutes(router *chi.Mux, sessionHandler *handlers.SessionHandler) {
	router.Route("/api/v1/sessions", func(r chi.Router) {
		r.Get("/", sessionHandler.ListHandler)
		r.Get("/{session_id}", sessionHandler.GetHandler)
		r.Get("/{session_id}/plan", sessionHandler.PlanHandler)
		r.Delete("/{session_id}", sessionHandler.DeleteHandler)
	})
}

func ProfileRoutes(router *chi.Mux, profileHandler *handlers.ProfileHandler) {
	router.Route("/api/v1/profiles", func(r chi.Router) {
		r.Get("/sessions/{session_id}", profileHandler.SessionProfileHandler)
		r.Get("/users/{user_id}", profileHandler.UserProfileHandler)
		r.Post("/users/{user_id}/generate", profileHandler.GenerateProfileHandler)
	})
}
