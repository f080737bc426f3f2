package services

import (
	"fmt"
	"time"

	"github.com/ahmetrasit/rubyroutines-sub003/internal/models"
)

// Classification is the derived completion state of one task for one
// subject inside the current window.
type Classification struct {
	Status       models.TaskStatus
	DisplayValue float64
	CanComplete  bool
	CanUndo      bool

	// LatestEventID is the most recent in-window event, the one an undo
	// would reverse. Empty when there is nothing to undo.
	LatestEventID string
}

// Classify derives a task's completion status from the events recorded for
// one subject. Events at or after windowStart count; anything older is
// history and is filtered out here regardless of what the caller passed in.
// A task resets purely by window boundary, never by an explicit action.
func Classify(task models.Task, windowStart time.Time, events []models.CompletionEvent) (Classification, error) {
	inWindow := filterInWindow(events, windowStart)

	switch task.Type {
	case models.TaskOneShot:
		classification := Classification{Status: models.TaskStatusPending, CanComplete: true}
		if len(inWindow) > 0 {
			classification.Status = models.TaskStatusDone
			classification.DisplayValue = 1
			classification.CanComplete = false
			classification.CanUndo = true
			classification.LatestEventID = latestEvent(inWindow).ID
		}
		return classification, nil

	case models.TaskBoundedCounter:
		count := len(inWindow)
		classification := Classification{
			Status:       models.TaskStatusPending,
			DisplayValue: float64(count),
			CanComplete:  count < task.Bound,
			CanUndo:      count > 0,
		}
		if count >= task.Bound {
			classification.Status = models.TaskStatusDone
		}
		if count > 0 {
			classification.LatestEventID = latestEvent(inWindow).ID
		}
		return classification, nil

	case models.TaskUnboundedProgress:
		// Progress tasks never auto-close; "achieved" belongs to the
		// goal layer.
		var total float64
		for _, event := range inWindow {
			total += event.Value
		}
		classification := Classification{
			Status:       models.TaskStatusPending,
			DisplayValue: total,
			CanComplete:  true,
			CanUndo:      len(inWindow) > 0,
		}
		if len(inWindow) > 0 {
			classification.LatestEventID = latestEvent(inWindow).ID
		}
		return classification, nil

	default:
		return Classification{}, fmt.Errorf("%w: %q", ErrUnknownTaskType, task.Type)
	}
}

func filterInWindow(events []models.CompletionEvent, windowStart time.Time) []models.CompletionEvent {
	var inWindow []models.CompletionEvent
	for _, event := range events {
		if !event.CompletedAt.Before(windowStart) {
			inWindow = append(inWindow, event)
		}
	}
	return inWindow
}

func latestEvent(events []models.CompletionEvent) models.CompletionEvent {
	latest := events[0]
	for _, event := range events[1:] {
		if event.CompletedAt.After(latest.CompletedAt) {
			latest = event
		}
	}
	return latest
}
