package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/ahmetrasit/rubyroutines-sub003/internal/middleware"
	"github.com/ahmetrasit/rubyroutines-sub003/internal/models"
	"github.com/ahmetrasit/rubyroutines-sub003/internal/repository"
	"github.com/ahmetrasit/rubyroutines-sub003/internal/services"
	"github.com/go-chi/chi/v5"
)

type GoalHandler struct {
	goalRepo    repository.GoalRepository
	goalService *services.GoalService
}

func NewGoalHandler(goalRepo repository.GoalRepository, goalService *services.GoalService) *GoalHandler {
	return &GoalHandler{goalRepo: goalRepo, goalService: goalService}
}

func (handler *GoalHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	viewer := middleware.GetViewer(ctx)

	filter := repository.GoalFilter{OwnerUserID: &viewer.UserID}
	goals, err := handler.goalRepo.FindAll(ctx, filter)
	if err != nil {
		slog.Error("finding goals", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load goals"})
		return
	}
	writeJSON(w, http.StatusOK, goals)
}

func (handler *GoalHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	goal, err := handler.goalRepo.FindByID(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "goal not found"})
		return
	}
	writeJSON(w, http.StatusOK, goal)
}

// Progress computes the goal's current progress for the requesting viewer.
// Restricted tasks are filtered from the aggregation inputs by viewer role,
// not just from the display layer.
func (handler *GoalHandler) Progress(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	viewer := middleware.GetViewer(ctx)

	goal, err := handler.goalRepo.FindByID(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "goal not found"})
		return
	}

	progress, err := handler.goalService.ComputeProgress(ctx, goal, viewer, time.Now())
	if err != nil {
		slog.Error("computing goal progress", "goal", goal.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to compute progress"})
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

type goalRequest struct {
	Name          string     `json:"name"`
	Target        float64    `json:"target"`
	Unit          string     `json:"unit"`
	Period        string     `json:"period"`
	AnchorWeekday int        `json:"anchor_weekday"`
	AnchorDay     int        `json:"anchor_day"`
	CustomStart   *time.Time `json:"custom_start,omitempty"`
	Scope         string     `json:"scope"`
	SubjectIDs    []string   `json:"subject_ids"`
	TaskIDs       []string   `json:"task_ids"`
	Streak        bool       `json:"streak"`
}

func (handler *GoalHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	viewer := middleware.GetViewer(ctx)

	var request goalRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if request.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}
	if request.Target < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "target must not be negative"})
		return
	}

	scope := models.GoalScope(request.Scope)
	switch scope {
	case models.GoalScopeIndividual, models.GoalScopeGroup, models.GoalScopeRole:
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown goal scope"})
		return
	}

	period := models.Recurrence{
		Kind:          models.RecurrenceKind(request.Period),
		AnchorWeekday: request.AnchorWeekday,
		AnchorDay:     request.AnchorDay,
		CustomStart:   request.CustomStart,
	}
	if _, err := services.WindowStart(period, time.Now()); err != nil {
		writeEngineError(w, err)
		return
	}

	goal, err := handler.goalRepo.Create(ctx, models.Goal{
		OwnerUserID: viewer.UserID,
		Name:        request.Name,
		Target:      request.Target,
		Unit:        request.Unit,
		Period:      period,
		Scope:       scope,
		SubjectIDs:  request.SubjectIDs,
		TaskIDs:     request.TaskIDs,
		Streak:      request.Streak,
	})
	if err != nil {
		slog.Error("creating goal", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create goal"})
		return
	}
	writeJSON(w, http.StatusCreated, goal)
}

func (handler *GoalHandler) Archive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := handler.goalRepo.Archive(ctx, chi.URLParam(r, "id")); err != nil {
		slog.Error("archiving goal", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to archive goal"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
