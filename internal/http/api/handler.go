// Package api implements the planning API handlers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	httperrors "github.com/plannerhq/schedassist/internal/http/errors"
	"github.com/plannerhq/schedassist/internal/planner"
	"github.com/plannerhq/schedassist/internal/store"
)

// PlanRunner triggers planning runs.
type PlanRunner interface {
	PlanRun(ctx context.Context, req planner.RunRequest) (*planner.RunReport, error)
}

// Handler serves the planning API.
type Handler struct {
	planner  PlanRunner
	runs     store.PlanningRunRepository
	validate *validator.Validate
}

func NewHandler(p PlanRunner, runs store.PlanningRunRepository) *Handler {
	return &Handler{
		planner:  p,
		runs:     runs,
		validate: validator.New(),
	}
}

type planRunPayload struct {
	HostID      string   `json:"hostId" validate:"required"`
	Attendees   []string `json:"attendees" validate:"dive,required"`
	Timezone    string   `json:"timezone" validate:"required"`
	WindowStart string   `json:"windowStart" validate:"required,datetime=2006-01-02"`
	Days        int      `json:"days" validate:"omitempty,min=1,max=31"`
}

// CreatePlanRun triggers a run synchronously and answers 202 with the run
// report: the solver's actual answer arrives out-of-band on the callback.
func (h *Handler) CreatePlanRun(w http.ResponseWriter, r *http.Request) {
	var payload planRunPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		httperrors.BadRequestError(w, r, err, "malformed JSON body")
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		httperrors.BadRequestError(w, r, err, fmt.Sprintf("invalid request: %v", err))
		return
	}
	loc, err := time.LoadLocation(payload.Timezone)
	if err != nil {
		httperrors.BadRequestError(w, r, err, "unknown timezone")
		return
	}
	windowStart, err := time.ParseInLocation("2006-01-02", payload.WindowStart, loc)
	if err != nil {
		httperrors.BadRequestError(w, r, err, "invalid windowStart")
		return
	}
	days := payload.Days
	if days == 0 {
		days = 1
	}

	report, err := h.planner.PlanRun(r.Context(), planner.RunRequest{
		HostID:      payload.HostID,
		Attendees:   payload.Attendees,
		Timezone:    payload.Timezone,
		WindowStart: windowStart,
		Days:        days,
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httperrors.BadRequestError(w, r, err, "unknown host or missing preferences")
			return
		}
		httperrors.InternalError(w, r, err, "plan run failed")
		return
	}

	httperrors.LogInfo(r, fmt.Sprintf("planning run %s submitted=%v parts=%d droppedBreaks=%d",
		report.RunID, report.Submitted, report.EventParts, report.DroppedBreaks))
	writeJSON(w, http.StatusAccepted, report)
}

// GetPlanRun returns the stored run snapshot.
func (h *Handler) GetPlanRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	run, err := h.runs.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "run not found", http.StatusNotFound)
			return
		}
		httperrors.InternalError(w, r, err, "load planning run")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":          run.ID,
		"hostId":      run.HostID,
		"fileKey":     run.FileKey,
		"status":      run.Status,
		"submitError": run.SubmitError,
		"createdAt":   run.CreatedAt,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
