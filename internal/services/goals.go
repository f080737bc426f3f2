package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ahmetrasit/rubyroutines-sub003/internal/models"
	"github.com/ahmetrasit/rubyroutines-sub003/internal/repository"
)

// DefaultStreakLookback bounds how many prior windows the streak scan
// walks before giving up.
const DefaultStreakLookback = 12

type GoalProgress struct {
	GoalID     string  `json:"goal_id"`
	Current    float64 `json:"current"`
	Target     float64 `json:"target"`
	Percentage float64 `json:"percentage"`
	Achieved   bool    `json:"achieved"`
	Streak     int     `json:"streak,omitempty"`
}

type GoalService struct {
	goalRepo       repository.GoalRepository
	subjectRepo    repository.SubjectRepository
	taskRepo       repository.TaskRepository
	routineRepo    repository.RoutineRepository
	completionRepo repository.CompletionRepository
	streakLookback int
}

func NewGoalService(
	goalRepo repository.GoalRepository,
	subjectRepo repository.SubjectRepository,
	taskRepo repository.TaskRepository,
	routineRepo repository.RoutineRepository,
	completionRepo repository.CompletionRepository,
	streakLookback int,
) *GoalService {
	if streakLookback <= 0 {
		streakLookback = DefaultStreakLookback
	}
	return &GoalService{
		goalRepo:       goalRepo,
		subjectRepo:    subjectRepo,
		taskRepo:       taskRepo,
		routineRepo:    routineRepo,
		completionRepo: completionRepo,
		streakLookback: streakLookback,
	}
}

// ComputeProgress rolls the goal's in-window completion values up into
// progress toward its target. The goal's own period decides the window,
// independent of any tracked task's recurrence. Malformed goals degrade to
// zero progress instead of failing: goal display must never block task
// completion.
func (service *GoalService) ComputeProgress(ctx context.Context, goal models.Goal, viewer models.Viewer, now time.Time) (GoalProgress, error) {
	progress := GoalProgress{
		GoalID:     goal.ID,
		Target:     goal.Target,
		Percentage: 0,
	}
	if goal.Target == 0 {
		// A zero target is trivially achieved, never a division error.
		progress.Achieved = true
		progress.Percentage = 100
	}

	windowStart, err := WindowStart(goal.Period, now)
	if err != nil {
		slog.Debug("goal window unresolvable, degrading to zero progress", "goal", goal.ID, "error", err)
		return progress, nil
	}

	subjectIDs, err := service.contributingSubjects(ctx, goal)
	if err != nil || len(subjectIDs) == 0 {
		if err != nil {
			slog.Debug("goal subjects unresolvable, degrading to zero progress", "goal", goal.ID, "error", err)
		}
		return progress, nil
	}

	taskIDs, err := service.visibleTrackedTasks(ctx, goal, viewer)
	if err != nil {
		slog.Debug("goal tasks unresolvable, degrading to zero progress", "goal", goal.ID, "error", err)
		return progress, nil
	}
	if len(taskIDs) == 0 {
		return progress, nil
	}

	current, err := service.completionRepo.SumValues(ctx, taskIDs, subjectIDs, windowStart, time.Time{})
	if err != nil {
		return GoalProgress{}, fmt.Errorf("summing goal completions: %w", err)
	}

	progress.Current = current
	progress.Achieved = goal.Target == 0 || current >= goal.Target
	if goal.Target > 0 {
		progress.Percentage = current / goal.Target * 100
		if progress.Percentage > 100 {
			progress.Percentage = 100
		}
	}

	if goal.Streak {
		streak, err := service.computeStreak(ctx, goal, taskIDs, subjectIDs, windowStart)
		if err != nil {
			slog.Debug("streak scan failed, reporting zero", "goal", goal.ID, "error", err)
		} else {
			progress.Streak = streak
		}
	}

	return progress, nil
}

// DependentGoals returns the active goals whose tracked task set includes
// taskID and whose contributing subjects include subject.
func (service *GoalService) DependentGoals(ctx context.Context, taskID string, subject models.Subject) ([]models.Goal, error) {
	tracking, err := service.goalRepo.FindByTrackedTask(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("finding goals tracking task: %w", err)
	}

	var dependent []models.Goal
	for _, goal := range tracking {
		if goalIncludesSubject(goal, subject) {
			dependent = append(dependent, goal)
		}
	}
	return dependent, nil
}

func goalIncludesSubject(goal models.Goal, subject models.Subject) bool {
	if goal.Scope == models.GoalScopeRole {
		return goal.OwnerUserID == subject.OwnerUserID
	}
	for _, subjectID := range goal.SubjectIDs {
		if subjectID == subject.ID {
			return true
		}
	}
	return false
}

func (service *GoalService) contributingSubjects(ctx context.Context, goal models.Goal) ([]string, error) {
	switch goal.Scope {
	case models.GoalScopeIndividual:
		if len(goal.SubjectIDs) == 0 {
			return nil, nil
		}
		return goal.SubjectIDs[:1], nil

	case models.GoalScopeGroup:
		return goal.SubjectIDs, nil

	case models.GoalScopeRole:
		subjects, err := service.subjectRepo.FindByOwner(ctx, goal.OwnerUserID)
		if err != nil {
			return nil, fmt.Errorf("finding role subjects: %w", err)
		}
		ids := make([]string, 0, len(subjects))
		for _, subject := range subjects {
			ids = append(ids, subject.ID)
		}
		return ids, nil

	default:
		return nil, fmt.Errorf("unknown goal scope %q", goal.Scope)
	}
}

// visibleTrackedTasks filters the goal's tracked tasks through the same
// visibility predicate as every other read path, so restricted completions
// never leak into a non-privileged viewer's aggregate.
func (service *GoalService) visibleTrackedTasks(ctx context.Context, goal models.Goal, viewer models.Viewer) ([]string, error) {
	if len(goal.TaskIDs) == 0 {
		return nil, nil
	}

	tasks, err := service.taskRepo.FindByIDs(ctx, goal.TaskIDs)
	if err != nil {
		return nil, fmt.Errorf("loading tracked tasks: %w", err)
	}

	routinesByID := make(map[string]models.Routine)
	for _, task := range tasks {
		if _, ok := routinesByID[task.RoutineID]; ok {
			continue
		}
		routine, err := service.routineRepo.FindByID(ctx, task.RoutineID)
		if err != nil {
			return nil, fmt.Errorf("loading tracked routine: %w", err)
		}
		routinesByID[task.RoutineID] = routine
	}

	visible := VisibleTasks(tasks, routinesByID, viewer)
	ids := make([]string, 0, len(visible))
	for _, task := range visible {
		ids = append(ids, task.ID)
	}
	return ids, nil
}

// computeStreak counts consecutive achieved windows scanning backward from
// the window immediately before the current one.
func (service *GoalService) computeStreak(ctx context.Context, goal models.Goal, taskIDs, subjectIDs []string, currentStart time.Time) (int, error) {
	streak := 0
	windowEnd := currentStart

	for i := 0; i < service.streakLookback; i++ {
		windowStart, err := PreviousWindowStart(goal.Period, windowEnd)
		if err != nil {
			return streak, err
		}

		sum, err := service.completionRepo.SumValues(ctx, taskIDs, subjectIDs, windowStart, windowEnd)
		if err != nil {
			return streak, fmt.Errorf("summing streak window: %w", err)
		}

		achieved := goal.Target == 0 || sum >= goal.Target
		if !achieved {
			break
		}
		streak++
		windowEnd = windowStart
	}
	return streak, nil
}
