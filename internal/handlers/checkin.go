package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ahmetrasit/rubyroutines-sub003/internal/middleware"
	"github.com/ahmetrasit/rubyroutines-sub003/internal/services"
)

// CheckinHandler hosts the bulk check-in grid. Each request gets its own
// coordinator seeded by the batched read; the optimistic state machine
// lives in services.CheckinCoordinator and is also what a long-lived client
// session would hold.
type CheckinHandler struct {
	mutator services.CompletionMutator
	reader  services.BatchReader
}

func NewCheckinHandler(mutator services.CompletionMutator, reader services.BatchReader) *CheckinHandler {
	return &CheckinHandler{mutator: mutator, reader: reader}
}

// Grid returns the projection for every (subject, task) cell of the
// requested subjects, sourced from one batched read.
func (handler *CheckinHandler) Grid(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	viewer := middleware.GetViewer(ctx)

	subjectsParam := r.URL.Query().Get("subjects")
	if subjectsParam == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "subjects query parameter is required"})
		return
	}
	subjectIDs := strings.Split(subjectsParam, ",")

	coordinator := services.NewCheckinCoordinator(handler.mutator, handler.reader, viewer)
	if err := coordinator.Load(ctx, subjectIDs, time.Now()); err != nil {
		slog.Error("loading checkin grid", "error", err)
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"cells": coordinator.Cells()})
}

type checkinRequest struct {
	SubjectID string   `json:"subject_id"`
	TaskID    string   `json:"task_id"`
	Value     *float64 `json:"value,omitempty"`
}

// Complete runs one optimistic completion through the coordinator and
// returns the settled cell, or the pre-action cell plus the failure kind.
func (handler *CheckinHandler) Complete(w http.ResponseWriter, r *http.Request) {
	handler.mutate(w, r, func(coordinator *services.CheckinCoordinator, request checkinRequest, now time.Time) (services.CellView, error) {
		key := services.CellKey{SubjectID: request.SubjectID, TaskID: request.TaskID}
		return coordinator.Complete(r.Context(), key, request.Value, now)
	})
}

// Undo reverses the most recent in-window completion of a cell.
func (handler *CheckinHandler) Undo(w http.ResponseWriter, r *http.Request) {
	handler.mutate(w, r, func(coordinator *services.CheckinCoordinator, request checkinRequest, now time.Time) (services.CellView, error) {
		key := services.CellKey{SubjectID: request.SubjectID, TaskID: request.TaskID}
		return coordinator.Undo(r.Context(), key, now)
	})
}

func (handler *CheckinHandler) mutate(w http.ResponseWriter, r *http.Request, action func(*services.CheckinCoordinator, checkinRequest, time.Time) (services.CellView, error)) {
	ctx := r.Context()
	viewer := middleware.GetViewer(ctx)

	var request checkinRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if request.SubjectID == "" || request.TaskID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "subject_id and task_id are required"})
		return
	}

	now := time.Now()
	coordinator := services.NewCheckinCoordinator(handler.mutator, handler.reader, viewer)
	if err := coordinator.Load(ctx, []string{request.SubjectID}, now); err != nil {
		slog.Error("loading checkin cell", "error", err)
		writeEngineError(w, err)
		return
	}

	cell, err := action(coordinator, request, now)
	if err != nil {
		kind := services.ErrorKind(err)
		writeJSON(w, statusForKind(kind), map[string]interface{}{
			"error": kind,
			"cell":  cell,
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"cell": cell})
}
