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

type RoutineHandler struct {
	routineRepo repository.RoutineRepository
	taskRepo    repository.TaskRepository
}

func NewRoutineHandler(routineRepo repository.RoutineRepository, taskRepo repository.TaskRepository) *RoutineHandler {
	return &RoutineHandler{routineRepo: routineRepo, taskRepo: taskRepo}
}

func (handler *RoutineHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	viewer := middleware.GetViewer(ctx)

	filter := repository.RoutineFilter{}
	if owner := r.URL.Query().Get("owner"); owner != "" {
		filter.OwnerUserID = &owner
	}

	routines, err := handler.routineRepo.FindAll(ctx, filter)
	if err != nil {
		slog.Error("finding routines", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load routines"})
		return
	}

	writeJSON(w, http.StatusOK, services.VisibleRoutines(routines, viewer))
}

func (handler *RoutineHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	viewer := middleware.GetViewer(ctx)

	routine, err := handler.routineRepo.FindByID(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "routine not found"})
		return
	}

	// Get-by-id applies the same visibility rule as listing: a restricted
	// routine is absent for non-privileged viewers, not forbidden.
	if !services.RoutineVisibleTo(routine, viewer) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "routine not found"})
		return
	}

	tasks, err := handler.taskRepo.FindByRoutine(ctx, routine.ID)
	if err != nil {
		slog.Error("finding routine tasks", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load tasks"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"routine": routine,
		"tasks":   tasks,
	})
}

type routineRequest struct {
	Name          string     `json:"name"`
	Recurrence    string     `json:"recurrence"`
	AnchorWeekday int        `json:"anchor_weekday"`
	AnchorDay     int        `json:"anchor_day"`
	CustomStart   *time.Time `json:"custom_start,omitempty"`
	TeacherOnly   bool       `json:"teacher_only"`
	SubjectIDs    []string   `json:"subject_ids"`
}

func (handler *RoutineHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	viewer := middleware.GetViewer(ctx)

	var request routineRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if request.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	recurrence := models.Recurrence{
		Kind:          models.RecurrenceKind(request.Recurrence),
		AnchorWeekday: request.AnchorWeekday,
		AnchorDay:     request.AnchorDay,
		CustomStart:   request.CustomStart,
	}
	// Reject unresolvable policies at the boundary instead of storing them.
	if _, err := services.WindowStart(recurrence, time.Now()); err != nil {
		writeEngineError(w, err)
		return
	}

	routine, err := handler.routineRepo.Create(ctx, models.Routine{
		OwnerUserID: viewer.UserID,
		Name:        request.Name,
		Recurrence:  recurrence,
		TeacherOnly: request.TeacherOnly,
	})
	if err != nil {
		slog.Error("creating routine", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create routine"})
		return
	}

	if len(request.SubjectIDs) > 0 {
		if err := handler.routineRepo.SetAssignedSubjects(ctx, routine.ID, request.SubjectIDs); err != nil {
			slog.Error("assigning routine subjects", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to assign subjects"})
			return
		}
	}

	writeJSON(w, http.StatusCreated, routine)
}

func (handler *RoutineHandler) Archive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := handler.routineRepo.Archive(ctx, chi.URLParam(r, "id")); err != nil {
		slog.Error("archiving routine", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to archive routine"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (handler *RoutineHandler) AssignSubjects(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var request struct {
		SubjectIDs []string `json:"subject_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if err := handler.routineRepo.SetAssignedSubjects(ctx, chi.URLParam(r, "id"), request.SubjectIDs); err != nil {
		slog.Error("assigning routine subjects", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to assign subjects"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type taskRequest struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Unit     string `json:"unit"`
	Bound    int    `json:"bound"`
	Position int    `json:"position"`
}

func (handler *RoutineHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	viewer := middleware.GetViewer(ctx)
	routineID := chi.URLParam(r, "id")

	routine, err := handler.routineRepo.FindByID(ctx, routineID)
	if err != nil || !services.RoutineVisibleTo(routine, viewer) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "routine not found"})
		return
	}

	var request taskRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if request.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	taskType := models.TaskType(request.Type)
	switch taskType {
	case models.TaskOneShot, models.TaskUnboundedProgress:
	case models.TaskBoundedCounter:
		if request.Bound <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bound must be positive for bounded counter tasks"})
			return
		}
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown_task_type"})
		return
	}

	task, err := handler.taskRepo.Create(ctx, models.Task{
		RoutineID: routineID,
		Name:      request.Name,
		Type:      taskType,
		Unit:      request.Unit,
		Bound:     request.Bound,
		Position:  request.Position,
	})
	if err != nil {
		slog.Error("creating task", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create task"})
		return
	}

	writeJSON(w, http.StatusCreated, task)
}

func (handler *RoutineHandler) ArchiveTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := handler.taskRepo.Archive(ctx, chi.URLParam(r, "taskID")); err != nil {
		slog.Error("archiving task", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to archive task"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
