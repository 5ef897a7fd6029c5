package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/bmedtech/startup-intake/internal/models"
	"github.com/bmedtech/startup-intake/internal/service"
	"github.com/bmedtech/startup-intake/internal/taxonomy"
	"github.com/bmedtech/startup-intake/internal/wizard"
)

// IntakeHandler exposes the two-phase submission wizard over HTTP. The
// visual form is owned by the hosting frontend; this surface only moves
// validated data in and out of the state machine.
type IntakeHandler struct {
	sessions *service.SessionManager
	svc      *service.IntakeService
	tax      *taxonomy.Taxonomy
}

func NewIntakeHandler(sessions *service.SessionManager, svc *service.IntakeService, tax *taxonomy.Taxonomy) *IntakeHandler {
	return &IntakeHandler{sessions: sessions, svc: svc, tax: tax}
}

// CreateSession opens a wizard session and returns the form vocabulary.
func (h *IntakeHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	s := h.sessions.Create()
	writeJSON(w, http.StatusCreated, map[string]any{
		"sessionId":  s.ID,
		"state":      s.State(),
		"niches":     h.tax.AllNiches(),
		"categories": h.tax.CategoryNames(),
	})
}

// GetSession reports the current phase and the staged general values so an
// applicant returning from the edit transition sees their data again.
func (h *IntakeHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	general := s.General()
	writeJSON(w, http.StatusOK, map[string]any{
		"sessionId":      s.ID,
		"state":          s.State(),
		"category":       s.Category(),
		"general":        general,
		"manualCategory": general.ManualCategory,
	})
}

type generalRequest struct {
	models.GeneralInfo
	ManualCategory string `json:"manual_category"`
}

// SubmitGeneral runs the phase-1 transition. Validation failures come back
// as the complete list of violations with a 422.
func (h *IntakeHandler) SubmitGeneral(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	var req generalRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	in := req.GeneralInfo
	in.ManualCategory = req.ManualCategory

	if err := s.SubmitGeneral(in); err != nil {
		var violations wizard.ValidationErrors
		if errors.As(err, &violations) {
			writeValidation(w, violations)
			return
		}
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"state":    s.State(),
		"category": s.Category(),
	})
}

// Edit moves the session back to the general phase for corrections.
func (h *IntakeHandler) Edit(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err := s.Edit(); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"state":   s.State(),
		"general": s.General(),
	})
}

// Questions returns the resolved category's field schema.
func (h *IntakeHandler) Questions(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	specs, err := s.Questions()
	if err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"category": s.Category(),
		"fields":   specs,
	})
}

// Submit runs the final transition. The request is multipart: a "checklist"
// part and an "answers" part carry JSON, every file part is an attachment
// slot. Log success with a tabular failure is reported as partial success.
func (h *IntakeHandler) Submit(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "multipart form expected")
		return
	}

	var checklist models.TechChecklist
	if raw := r.FormValue("checklist"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &checklist); err != nil {
			writeError(w, http.StatusBadRequest, "invalid checklist JSON")
			return
		}
	}
	answers := map[string]any{}
	if raw := r.FormValue("answers"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &answers); err != nil {
			writeError(w, http.StatusBadRequest, "invalid answers JSON")
			return
		}
	}

	var uploads []models.Upload
	if r.MultipartForm != nil {
		for field, headers := range r.MultipartForm.File {
			for _, fh := range headers {
				f, err := fh.Open()
				if err != nil {
					continue
				}
				data, err := io.ReadAll(f)
				f.Close()
				if err != nil {
					continue
				}
				uploads = append(uploads, models.Upload{
					Field:    field,
					FileName: fh.Filename,
					Data:     data,
				})
			}
		}
	}

	sub, report, err := s.Submit(checklist, answers, uploads, h.svc)
	if err != nil {
		var violations wizard.ValidationErrors
		if errors.As(err, &violations) {
			writeValidation(w, violations)
			return
		}
		writeError(w, http.StatusConflict, err.Error())
		return
	}

	if report.LogErr != nil {
		// Session data survives; the applicant can retry without re-entering.
		writeError(w, http.StatusInternalServerError, "não foi possível registrar a submissão: "+report.LogErr.Error())
		return
	}

	resp := map[string]any{
		"state":          s.State(),
		"startupName":    sub.StartupName,
		"category":       sub.Category,
		"folderPath":     sub.FolderPath,
		"failedUploads":  sub.FailedUploads,
		"partialSuccess": report.Partial(),
	}
	if report.TabularErr != nil {
		resp["tabularError"] = report.TabularErr.Error()
	}
	writeJSON(w, http.StatusCreated, resp)
}

// Recent lists the latest persisted submissions from the append-only log.
func (h *IntakeHandler) Recent(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 20
	}
	subs, err := h.svc.Recent(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"submissions": subs,
		"count":       len(subs),
	})
}

func (h *IntakeHandler) session(r *http.Request) (*wizard.Session, error) {
	return h.sessions.Get(chi.URLParam(r, "sessionId"))
}
