package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/ahmetrasit/rubyroutines-sub003/internal/models"
	"github.com/ahmetrasit/rubyroutines-sub003/internal/repository"
)

// CompletionService is the authoritative write path for completion history.
// It enforces task-type legality, role access, and window policy, then
// propagates goal recomputation and cache invalidation. Two sessions racing
// on the same cell are resolved here by re-validating against current
// state, never by client-side locking.
type CompletionService struct {
	taskRepo       repository.TaskRepository
	routineRepo    repository.RoutineRepository
	subjectRepo    repository.SubjectRepository
	completionRepo repository.CompletionRepository
	goalService    *GoalService
	sink           InvalidationSink
}

func NewCompletionService(
	taskRepo repository.TaskRepository,
	routineRepo repository.RoutineRepository,
	subjectRepo repository.SubjectRepository,
	completionRepo repository.CompletionRepository,
	goalService *GoalService,
	sink InvalidationSink,
) *CompletionService {
	return &CompletionService{
		taskRepo:       taskRepo,
		routineRepo:    routineRepo,
		subjectRepo:    subjectRepo,
		completionRepo: completionRepo,
		goalService:    goalService,
		sink:           sink,
	}
}

// Complete records one completion for subject against task. The value
// pointer is required (and must be positive and finite) for unbounded
// progress tasks and ignored for the other types, which always count one.
func (service *CompletionService) Complete(ctx context.Context, actor models.Viewer, taskID, subjectID string, value *float64, now time.Time) (models.CompletionEvent, error) {
	subject, err := service.subjectRepo.FindByID(ctx, subjectID)
	if err != nil {
		return models.CompletionEvent{}, fmt.Errorf("loading subject: %w", err)
	}
	if err := checkActorAccess(actor, subject); err != nil {
		return models.CompletionEvent{}, err
	}

	task, routine, err := service.loadVisibleTask(ctx, actor, taskID)
	if err != nil {
		return models.CompletionEvent{}, err
	}

	windowStart, err := WindowStart(routine.Recurrence, now)
	if err != nil {
		return models.CompletionEvent{}, err
	}

	events, err := service.completionRepo.FindForSubjectTask(ctx, taskID, subjectID, windowStart)
	if err != nil {
		return models.CompletionEvent{}, fmt.Errorf("loading in-window events: %w", err)
	}

	eventValue := 1.0
	switch task.Type {
	case models.TaskOneShot:
		if len(events) > 0 {
			return models.CompletionEvent{}, ErrTaskAlreadyDone
		}

	case models.TaskBoundedCounter:
		if len(events) >= task.Bound {
			return models.CompletionEvent{}, ErrCounterExhausted
		}

	case models.TaskUnboundedProgress:
		if value == nil {
			return models.CompletionEvent{}, ErrMissingValue
		}
		if *value <= 0 || math.IsNaN(*value) || math.IsInf(*value, 0) {
			return models.CompletionEvent{}, fmt.Errorf("%w: got %v", ErrInvalidValue, *value)
		}
		eventValue = *value

	default:
		return models.CompletionEvent{}, fmt.Errorf("%w: %q", ErrUnknownTaskType, task.Type)
	}

	event, err := service.completionRepo.Create(ctx, models.CompletionEvent{
		TaskID:           taskID,
		SubjectID:        subjectID,
		Value:            eventValue,
		RecordedByUserID: actor.UserID,
		CompletedAt:      now,
	})
	if err != nil {
		return models.CompletionEvent{}, fmt.Errorf("recording completion: %w", err)
	}

	service.propagate(ctx, taskID, subject, now)
	return event, nil
}

// Undo reverses a completion by deleting its event. Events that predate the
// task's current window are stale history and stay untouched: WindowClosed
// is a policy guard on the live-status path, not a storage limitation.
func (service *CompletionService) Undo(ctx context.Context, actor models.Viewer, completionEventID string, now time.Time) error {
	event, err := service.completionRepo.FindByID(ctx, completionEventID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrCompletionNotFound
		}
		return fmt.Errorf("loading completion event: %w", err)
	}

	subject, err := service.subjectRepo.FindByID(ctx, event.SubjectID)
	if err != nil {
		return fmt.Errorf("loading subject: %w", err)
	}
	if err := checkActorAccess(actor, subject); err != nil {
		return err
	}

	_, routine, err := service.loadVisibleTask(ctx, actor, event.TaskID)
	if err != nil {
		return err
	}

	windowStart, err := WindowStart(routine.Recurrence, now)
	if err != nil {
		return err
	}
	if event.CompletedAt.Before(windowStart) {
		return ErrWindowClosed
	}

	if err := service.completionRepo.Delete(ctx, completionEventID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Lost a race with another undo.
			return ErrCompletionNotFound
		}
		return fmt.Errorf("deleting completion event: %w", err)
	}

	service.propagate(ctx, event.TaskID, subject, now)
	return nil
}

func (service *CompletionService) loadVisibleTask(ctx context.Context, actor models.Viewer, taskID string) (models.Task, models.Routine, error) {
	task, err := service.taskRepo.FindByID(ctx, taskID)
	if err != nil {
		return models.Task{}, models.Routine{}, fmt.Errorf("loading task: %w", err)
	}

	routine, err := service.routineRepo.FindByID(ctx, task.RoutineID)
	if err != nil {
		return models.Task{}, models.Routine{}, fmt.Errorf("loading routine: %w", err)
	}

	// Restricted routines are unreachable for non-privileged actors even
	// by direct id, same as on the list paths.
	if !RoutineVisibleTo(routine, actor) {
		return models.Task{}, models.Routine{}, ErrAccessDenied
	}
	if task.Archived || routine.Archived {
		return models.Task{}, models.Routine{}, fmt.Errorf("task is archived: %w", ErrAccessDenied)
	}
	return task, routine, nil
}

// checkActorAccess enforces completion rights: a kiosk acts only on its own
// profile, every other role only on subjects it administers.
func checkActorAccess(actor models.Viewer, subject models.Subject) error {
	if actor.Role == models.RoleKiosk {
		if actor.SubjectID != subject.ID {
			return ErrAccessDenied
		}
		return nil
	}
	if subject.OwnerUserID != actor.UserID {
		return ErrAccessDenied
	}
	return nil
}

// propagate recomputes every goal the affected subject contributes to for
// the mutated task and emits the invalidation signal. Required consistency
// propagation; a failed recompute is logged, never allowed to fail the
// completion itself.
func (service *CompletionService) propagate(ctx context.Context, taskID string, subject models.Subject, now time.Time) {
	ownerViewer := models.Viewer{UserID: subject.OwnerUserID, Role: models.RoleTeacher}

	goals, err := service.goalService.DependentGoals(ctx, taskID, subject)
	if err != nil {
		slog.Error("finding dependent goals", "task", taskID, "subject", subject.ID, "error", err)
		goals = nil
	}

	for _, goal := range goals {
		if _, err := service.goalService.ComputeProgress(ctx, goal, ownerViewer, now); err != nil {
			slog.Error("recomputing goal progress", "goal", goal.ID, "error", err)
		}
		if err := service.sink.Publish(ctx, Invalidation{
			GoalID:     goal.ID,
			SubjectIDs: []string{subject.ID},
			OccurredAt: now,
		}); err != nil {
			slog.Error("publishing goal invalidation", "goal", goal.ID, "error", err)
		}
	}

	if err := service.sink.Publish(ctx, Invalidation{
		SubjectIDs: []string{subject.ID},
		OccurredAt: now,
	}); err != nil {
		slog.Error("publishing subject invalidation", "subject", subject.ID, "error", err)
	}
}
