package handler

import (
	"net/http"

	"github.com/bmedtech/startup-intake/internal/service"
)

type DashboardHandler struct {
	svc      *service.IntakeService
	sessions *service.SessionManager
}

func NewDashboardHandler(svc *service.IntakeService, sessions *service.SessionManager) *DashboardHandler {
	return &DashboardHandler{svc: svc, sessions: sessions}
}

func (h *DashboardHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	total, stats, err := h.svc.Dashboard()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"submissionCount": total,
		"liveSessions":    h.sessions.Count(),
		"categories":      stats,
	})
}
