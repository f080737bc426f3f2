package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ahmetrasit/rubyroutines-sub003/internal/models"
	"github.com/ahmetrasit/rubyroutines-sub003/internal/repository"
	"github.com/ahmetrasit/rubyroutines-sub003/internal/testutil"
)

func TestCompletionRepository_CreateAndFind(t *testing.T) {
	db := testutil.NewTestDatabase(t)
	completions := repository.NewCompletionRepository(db)
	ctx := context.Background()

	completedAt := time.Date(2025, 3, 12, 9, 30, 0, 0, time.UTC)
	created, err := completions.Create(ctx, models.CompletionEvent{
		TaskID:           "task-1",
		SubjectID:        "subject-1",
		Value:            12.5,
		RecordedByUserID: "user-1",
		CompletedAt:      completedAt,
	})
	if err != nil {
		t.Fatalf("creating event: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected generated id")
	}

	found, err := completions.FindByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("finding event: %v", err)
	}
	if found.Value != 12.5 || found.TaskID != "task-1" || found.SubjectID != "subject-1" {
		t.Errorf("unexpected event: %+v", found)
	}
	if !found.CompletedAt.Equal(completedAt) {
		t.Errorf("expected completed_at %v, got %v", completedAt, found.CompletedAt)
	}
}

func TestCompletionRepository_FindByIDNotFound(t *testing.T) {
	db := testutil.NewTestDatabase(t)
	completions := repository.NewCompletionRepository(db)

	_, err := completions.FindByID(context.Background(), "event-missing")
	if !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCompletionRepository_Delete(t *testing.T) {
	db := testutil.NewTestDatabase(t)
	completions := repository.NewCompletionRepository(db)
	ctx := context.Background()

	created, err := completions.Create(ctx, models.CompletionEvent{TaskID: "task-1", SubjectID: "subject-1", Value: 1})
	if err != nil {
		t.Fatalf("creating event: %v", err)
	}

	if err := completions.Delete(ctx, created.ID); err != nil {
		t.Fatalf("deleting event: %v", err)
	}
	if err := completions.Delete(ctx, created.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound on double delete, got %v", err)
	}
}

func TestCompletionRepository_FindForSubjectTaskSinceFilter(t *testing.T) {
	db := testutil.NewTestDatabase(t)
	completions := repository.NewCompletionRepository(db)
	ctx := context.Background()

	since := time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC)
	times := []time.Time{
		since.Add(-time.Hour), // stale
		since,                 // boundary counts as in-window
		since.Add(2 * time.Hour),
	}
	for i, completedAt := range times {
		if _, err := completions.Create(ctx, models.CompletionEvent{
			TaskID: "task-1", SubjectID: "subject-1", Value: float64(i + 1), CompletedAt: completedAt,
		}); err != nil {
			t.Fatalf("creating event %d: %v", i, err)
		}
	}
	// Different task and subject rows must not match.
	if _, err := completions.Create(ctx, models.CompletionEvent{TaskID: "task-2", SubjectID: "subject-1", Value: 1, CompletedAt: since.Add(time.Hour)}); err != nil {
		t.Fatalf("creating off-task event: %v", err)
	}
	if _, err := completions.Create(ctx, models.CompletionEvent{TaskID: "task-1", SubjectID: "subject-2", Value: 1, CompletedAt: since.Add(time.Hour)}); err != nil {
		t.Fatalf("creating off-subject event: %v", err)
	}

	events, err := completions.FindForSubjectTask(ctx, "task-1", "subject-1", since)
	if err != nil {
		t.Fatalf("finding events: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 in-window events, got %d", len(events))
	}
	if events[0].Value != 2 || events[1].Value != 3 {
		t.Errorf("expected ascending order by completed_at, got %+v", events)
	}
}

func TestCompletionRepository_SumValues(t *testing.T) {
	db := testutil.NewTestDatabase(t)
	completions := repository.NewCompletionRepository(db)
	ctx := context.Background()

	windowStart := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	windowEnd := windowStart.AddDate(0, 0, 7)

	seed := []struct {
		taskID      string
		subjectID   string
		value       float64
		completedAt time.Time
	}{
		{"task-1", "subject-1", 10, windowStart.Add(time.Hour)},
		{"task-1", "subject-2", 20, windowStart.Add(2 * time.Hour)},
		{"task-2", "subject-1", 5, windowStart.Add(3 * time.Hour)},
		{"task-1", "subject-1", 99, windowStart.Add(-time.Hour)}, // before window
		{"task-1", "subject-1", 99, windowEnd},                   // at upper bound, excluded
		{"task-3", "subject-1", 99, windowStart.Add(time.Hour)},  // untracked task
	}
	for i, row := range seed {
		if _, err := completions.Create(ctx, models.CompletionEvent{
			TaskID: row.taskID, SubjectID: row.subjectID, Value: row.value, CompletedAt: row.completedAt,
		}); err != nil {
			t.Fatalf("seeding event %d: %v", i, err)
		}
	}

	total, err := completions.SumValues(ctx, []string{"task-1", "task-2"}, []string{"subject-1", "subject-2"}, windowStart, windowEnd)
	if err != nil {
		t.Fatalf("summing values: %v", err)
	}
	if total != 35 {
		t.Errorf("expected 35, got %v", total)
	}

	// A zero upper bound means unbounded.
	unbounded, err := completions.SumValues(ctx, []string{"task-1"}, []string{"subject-1"}, windowStart, time.Time{})
	if err != nil {
		t.Fatalf("summing unbounded: %v", err)
	}
	if unbounded != 109 {
		t.Errorf("expected 109, got %v", unbounded)
	}

	// Empty id sets sum to zero without touching the database.
	empty, err := completions.SumValues(ctx, nil, []string{"subject-1"}, windowStart, windowEnd)
	if err != nil {
		t.Fatalf("summing empty set: %v", err)
	}
	if empty != 0 {
		t.Errorf("expected 0 for empty set, got %v", empty)
	}
}
