package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bmedtech/startup-intake/internal/handler"
	mw "github.com/bmedtech/startup-intake/internal/middleware"
)

func New(intakeH *handler.IntakeHandler, dashH *handler.DashboardHandler) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.Recovery)
	r.Use(mw.Logger)
	r.Use(mw.CORS)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {
		// Wizard
		r.Post("/sessions", intakeH.CreateSession)
		r.Get("/sessions/{sessionId}", intakeH.GetSession)
		r.Post("/sessions/{sessionId}/general", intakeH.SubmitGeneral)
		r.Post("/sessions/{sessionId}/edit", intakeH.Edit)
		r.Get("/sessions/{sessionId}/questions", intakeH.Questions)
		r.Post("/sessions/{sessionId}/submit", intakeH.Submit)

		// Operator views
		r.Get("/dashboard", dashH.Dashboard)
		r.Get("/submissions", intakeH.Recent)
	})

	return r
}
