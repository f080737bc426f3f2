package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ahmetrasit/rubyroutines-sub003/internal/models"
	"github.com/ahmetrasit/rubyroutines-sub003/internal/repository"
)

// batchLookbackDays is how far back the batched read fetches completion
// events. It must cover the longest possible window (a monthly window plus
// slack); per-routine window starts are applied precisely afterward.
const batchLookbackDays = 62

// CellKey identifies one (subject, task) pair in a bulk check-in grid.
type CellKey struct {
	SubjectID string
	TaskID    string
}

type CellPhase string

const (
	CellIdle       CellPhase = "idle"
	CellPending    CellPhase = "pending"
	CellConfirmed  CellPhase = "confirmed"
	CellRolledBack CellPhase = "rolled_back"
)

// CellView is the externally visible projection of one cell.
type CellView struct {
	SubjectID     string            `json:"subject_id"`
	TaskID        string            `json:"task_id"`
	TaskName      string            `json:"task_name"`
	TaskType      models.TaskType   `json:"task_type"`
	Unit          string            `json:"unit,omitempty"`
	Phase         CellPhase         `json:"phase"`
	Status        models.TaskStatus `json:"status"`
	DisplayValue  float64           `json:"display_value"`
	CanComplete   bool              `json:"can_complete"`
	CanUndo       bool              `json:"can_undo"`
	LatestEventID string            `json:"-"`
	LastOutcome   CellPhase         `json:"last_outcome,omitempty"`
}

// CompletionMutator is the authoritative mutation boundary the coordinator
// suspends on. CompletionService implements it.
type CompletionMutator interface {
	Complete(ctx context.Context, actor models.Viewer, taskID, subjectID string, value *float64, now time.Time) (models.CompletionEvent, error)
	Undo(ctx context.Context, actor models.Viewer, completionEventID string, now time.Time) error
}

// BatchReader is the single sanctioned entry point for multi-subject reads.
type BatchReader interface {
	FindBatchWithAssignments(ctx context.Context, ids []string, since time.Time) ([]repository.SubjectAssignments, error)
}

type checkinCell struct {
	phase       CellPhase
	lastOutcome CellPhase
	task        models.Task
	windowStart time.Time
	events      []models.CompletionEvent
	view        Classification
}

type cellSnapshot struct {
	events []models.CompletionEvent
	view   Classification
}

// CheckinCoordinator orchestrates bulk check-in for one viewer session: it
// applies an immediate local projection per cell, issues the authoritative
// mutation, then either reconciles with server truth or restores the exact
// pre-action snapshot. Cells are independent; a cell with an operation in
// flight rejects further actions until it settles.
type CheckinCoordinator struct {
	mu      sync.Mutex
	mutator CompletionMutator
	reader  BatchReader
	viewer  models.Viewer
	cells   map[CellKey]*checkinCell
}

func NewCheckinCoordinator(mutator CompletionMutator, reader BatchReader, viewer models.Viewer) *CheckinCoordinator {
	return &CheckinCoordinator{
		mutator: mutator,
		reader:  reader,
		viewer:  viewer,
		cells:   make(map[CellKey]*checkinCell),
	}
}

// Load sources the initial projection from one batched read keyed by all
// subject ids in view. It never issues per-subject queries.
func (coordinator *CheckinCoordinator) Load(ctx context.Context, subjectIDs []string, now time.Time) error {
	since := now.AddDate(0, 0, -batchLookbackDays)
	batch, err := coordinator.reader.FindBatchWithAssignments(ctx, subjectIDs, since)
	if err != nil {
		return fmt.Errorf("batch loading subjects: %w", err)
	}

	coordinator.mu.Lock()
	defer coordinator.mu.Unlock()

	for _, assignments := range batch {
		routinesByID := make(map[string]models.Routine, len(assignments.Routines))
		for _, routine := range assignments.Routines {
			routinesByID[routine.ID] = routine
		}

		eventsByTask := make(map[string][]models.CompletionEvent)
		for _, event := range assignments.Events {
			eventsByTask[event.TaskID] = append(eventsByTask[event.TaskID], event)
		}

		for _, task := range VisibleTasks(assignments.Tasks, routinesByID, coordinator.viewer) {
			routine := routinesByID[task.RoutineID]
			windowStart, err := WindowStart(routine.Recurrence, now)
			if err != nil {
				return fmt.Errorf("resolving window for routine %s: %w", routine.ID, err)
			}

			view, err := Classify(task, windowStart, eventsByTask[task.ID])
			if err != nil {
				return fmt.Errorf("classifying task %s: %w", task.ID, err)
			}

			key := CellKey{SubjectID: assignments.Subject.ID, TaskID: task.ID}
			coordinator.cells[key] = &checkinCell{
				phase:       CellIdle,
				task:        task,
				windowStart: windowStart,
				events:      filterInWindow(eventsByTask[task.ID], windowStart),
				view:        view,
			}
		}
	}
	return nil
}

// Complete runs one optimistic completion on a cell: local flip first, then
// the authoritative mutation, then reconcile or roll back.
func (coordinator *CheckinCoordinator) Complete(ctx context.Context, key CellKey, value *float64, now time.Time) (CellView, error) {
	cell, snapshot, err := coordinator.begin(key, func(cell *checkinCell) []models.CompletionEvent {
		projectedValue := 1.0
		if cell.task.Type == models.TaskUnboundedProgress && value != nil {
			projectedValue = *value
		}
		projected := models.CompletionEvent{
			ID:          "pending-" + key.TaskID,
			TaskID:      key.TaskID,
			SubjectID:   key.SubjectID,
			Value:       projectedValue,
			CompletedAt: now,
		}
		return append(append([]models.CompletionEvent{}, cell.events...), projected)
	})
	if err != nil {
		return coordinator.View(key), err
	}

	_, mutationErr := coordinator.mutator.Complete(ctx, coordinator.viewer, key.TaskID, key.SubjectID, value, now)
	return coordinator.settle(ctx, key, cell, snapshot, mutationErr, now)
}

// Undo reverses the most recent in-window completion of a cell with the
// same optimistic machinery.
func (coordinator *CheckinCoordinator) Undo(ctx context.Context, key CellKey, now time.Time) (CellView, error) {
	coordinator.mu.Lock()
	existing, ok := coordinator.cells[key]
	var eventID string
	if ok {
		eventID = existing.view.LatestEventID
	}
	coordinator.mu.Unlock()

	if !ok {
		return CellView{}, fmt.Errorf("unknown cell %s/%s", key.SubjectID, key.TaskID)
	}
	if eventID == "" {
		return coordinator.View(key), ErrCompletionNotFound
	}

	cell, snapshot, err := coordinator.begin(key, func(cell *checkinCell) []models.CompletionEvent {
		remaining := make([]models.CompletionEvent, 0, len(cell.events))
		for _, event := range cell.events {
			if event.ID != eventID {
				remaining = append(remaining, event)
			}
		}
		return remaining
	})
	if err != nil {
		return coordinator.View(key), err
	}

	mutationErr := coordinator.mutator.Undo(ctx, coordinator.viewer, eventID, now)
	return coordinator.settle(ctx, key, cell, snapshot, mutationErr, now)
}

// begin transitions a cell Idle -> Pending under the lock, records the
// pre-action snapshot, and applies the projected event rewrite.
func (coordinator *CheckinCoordinator) begin(key CellKey, project func(*checkinCell) []models.CompletionEvent) (*checkinCell, cellSnapshot, error) {
	coordinator.mu.Lock()
	defer coordinator.mu.Unlock()

	cell, ok := coordinator.cells[key]
	if !ok {
		return nil, cellSnapshot{}, fmt.Errorf("unknown cell %s/%s", key.SubjectID, key.TaskID)
	}
	if cell.phase == CellPending {
		return nil, cellSnapshot{}, ErrCellPending
	}

	snapshot := cellSnapshot{
		events: append([]models.CompletionEvent{}, cell.events...),
		view:   cell.view,
	}

	projected := project(cell)
	view, err := Classify(cell.task, cell.windowStart, projected)
	if err != nil {
		return nil, cellSnapshot{}, err
	}

	cell.events = projected
	cell.view = view
	cell.phase = CellPending
	return cell, snapshot, nil
}

// settle finishes an in-flight operation. Success reconciles the cell with
// the server's view of completion state (not merely the local flip), which
// covers concurrent edits by another actor; failure restores the snapshot
// exactly. Either way the cell returns to Idle and never stays Pending.
func (coordinator *CheckinCoordinator) settle(ctx context.Context, key CellKey, cell *checkinCell, snapshot cellSnapshot, mutationErr error, now time.Time) (CellView, error) {
	if mutationErr != nil {
		coordinator.mu.Lock()
		cell.events = snapshot.events
		cell.view = snapshot.view
		cell.lastOutcome = CellRolledBack
		cell.phase = CellIdle
		coordinator.mu.Unlock()
		return coordinator.View(key), mutationErr
	}

	if err := coordinator.reconcile(ctx, key, cell, now); err != nil {
		// The write succeeded; a failed refresh keeps the optimistic
		// projection until the next load rather than inventing a
		// rollback of a confirmed mutation.
		coordinator.mu.Lock()
		cell.lastOutcome = CellConfirmed
		cell.phase = CellIdle
		coordinator.mu.Unlock()
		return coordinator.View(key), nil
	}

	coordinator.mu.Lock()
	cell.lastOutcome = CellConfirmed
	cell.phase = CellIdle
	coordinator.mu.Unlock()
	return coordinator.View(key), nil
}

func (coordinator *CheckinCoordinator) reconcile(ctx context.Context, key CellKey, cell *checkinCell, now time.Time) error {
	since := now.AddDate(0, 0, -batchLookbackDays)
	batch, err := coordinator.reader.FindBatchWithAssignments(ctx, []string{key.SubjectID}, since)
	if err != nil {
		return err
	}

	var serverEvents []models.CompletionEvent
	for _, assignments := range batch {
		for _, event := range assignments.Events {
			if event.TaskID == key.TaskID {
				serverEvents = append(serverEvents, event)
			}
		}
	}

	inWindow := filterInWindow(serverEvents, cell.windowStart)
	view, err := Classify(cell.task, cell.windowStart, inWindow)
	if err != nil {
		return err
	}

	coordinator.mu.Lock()
	cell.events = inWindow
	cell.view = view
	coordinator.mu.Unlock()
	return nil
}

// View returns the current projection of one cell.
func (coordinator *CheckinCoordinator) View(key CellKey) CellView {
	coordinator.mu.Lock()
	defer coordinator.mu.Unlock()

	cell, ok := coordinator.cells[key]
	if !ok {
		return CellView{SubjectID: key.SubjectID, TaskID: key.TaskID}
	}
	return cellView(key, cell)
}

// Cells returns the projection of every loaded cell.
func (coordinator *CheckinCoordinator) Cells() []CellView {
	coordinator.mu.Lock()
	defer coordinator.mu.Unlock()

	views := make([]CellView, 0, len(coordinator.cells))
	for key, cell := range coordinator.cells {
		views = append(views, cellView(key, cell))
	}
	return views
}

func cellView(key CellKey, cell *checkinCell) CellView {
	return CellView{
		SubjectID:     key.SubjectID,
		TaskID:        key.TaskID,
		TaskName:      cell.task.Name,
		TaskType:      cell.task.Type,
		Unit:          cell.task.Unit,
		Phase:         cell.phase,
		Status:        cell.view.Status,
		DisplayValue:  cell.view.DisplayValue,
		CanComplete:   cell.view.CanComplete,
		CanUndo:       cell.view.CanUndo,
		LatestEventID: cell.view.LatestEventID,
		LastOutcome:   cell.lastOutcome,
	}
}
