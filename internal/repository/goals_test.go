package repository_test

import (
	"context"
	"testing"

	"github.com/ahmetrasit/rubyroutines-sub003/internal/models"
	"github.com/ahmetrasit/rubyroutines-sub003/internal/repository"
	"github.com/ahmetrasit/rubyroutines-sub003/internal/testutil"
)

func TestGoalRepository_MembersRoundTrip(t *testing.T) {
	db := testutil.NewTestDatabase(t)
	goals := repository.NewGoalRepository(db)
	ctx := context.Background()

	created, err := goals.Create(ctx, models.Goal{
		OwnerUserID: "user-1",
		Name:        "Weekly practice",
		Target:      100,
		Unit:        "minutes",
		Period:      models.Recurrence{Kind: models.RecurrenceWeekly, AnchorWeekday: 1},
		Scope:       models.GoalScopeGroup,
		SubjectIDs:  []string{"subject-1", "subject-2"},
		TaskIDs:     []string{"task-1"},
		Streak:      true,
	})
	if err != nil {
		t.Fatalf("creating goal: %v", err)
	}

	found, err := goals.FindByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("finding goal: %v", err)
	}
	if len(found.SubjectIDs) != 2 || len(found.TaskIDs) != 1 {
		t.Errorf("expected members to round trip, got %+v", found)
	}
	if found.Period.Kind != models.RecurrenceWeekly || found.Period.AnchorWeekday != 1 {
		t.Errorf("expected weekly period, got %+v", found.Period)
	}
	if !found.Streak {
		t.Error("expected streak flag to persist")
	}
}

func TestGoalRepository_UpdateReplacesMembers(t *testing.T) {
	db := testutil.NewTestDatabase(t)
	goals := repository.NewGoalRepository(db)
	ctx := context.Background()

	created, err := goals.Create(ctx, models.Goal{
		OwnerUserID: "user-1",
		Name:        "Practice",
		Target:      50,
		Period:      models.Recurrence{Kind: models.RecurrenceDaily},
		Scope:       models.GoalScopeGroup,
		SubjectIDs:  []string{"subject-1"},
		TaskIDs:     []string{"task-1"},
	})
	if err != nil {
		t.Fatalf("creating goal: %v", err)
	}

	created.SubjectIDs = []string{"subject-2", "subject-3"}
	created.TaskIDs = []string{"task-2"}
	if err := goals.Update(ctx, created); err != nil {
		t.Fatalf("updating goal: %v", err)
	}

	found, err := goals.FindByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("finding goal: %v", err)
	}
	if len(found.SubjectIDs) != 2 || found.TaskIDs[0] != "task-2" {
		t.Errorf("expected replaced members, got %+v", found)
	}
}

func TestGoalRepository_FindByTrackedTask(t *testing.T) {
	db := testutil.NewTestDatabase(t)
	goals := repository.NewGoalRepository(db)
	ctx := context.Background()

	tracking, err := goals.Create(ctx, models.Goal{
		OwnerUserID: "user-1",
		Name:        "Tracking",
		Target:      10,
		Period:      models.Recurrence{Kind: models.RecurrenceDaily},
		Scope:       models.GoalScopeIndividual,
		SubjectIDs:  []string{"subject-1"},
		TaskIDs:     []string{"task-1"},
	})
	if err != nil {
		t.Fatalf("creating goal: %v", err)
	}
	if _, err := goals.Create(ctx, models.Goal{
		OwnerUserID: "user-1",
		Name:        "Other",
		Target:      10,
		Period:      models.Recurrence{Kind: models.RecurrenceDaily},
		Scope:       models.GoalScopeIndividual,
		SubjectIDs:  []string{"subject-1"},
		TaskIDs:     []string{"task-2"},
	}); err != nil {
		t.Fatalf("creating unrelated goal: %v", err)
	}
	archived, err := goals.Create(ctx, models.Goal{
		OwnerUserID: "user-1",
		Name:        "Archived",
		Target:      10,
		Period:      models.Recurrence{Kind: models.RecurrenceDaily},
		Scope:       models.GoalScopeIndividual,
		SubjectIDs:  []string{"subject-1"},
		TaskIDs:     []string{"task-1"},
	})
	if err != nil {
		t.Fatalf("creating archived goal: %v", err)
	}
	if err := goals.Archive(ctx, archived.ID); err != nil {
		t.Fatalf("archiving goal: %v", err)
	}

	found, err := goals.FindByTrackedTask(ctx, "task-1")
	if err != nil {
		t.Fatalf("finding by tracked task: %v", err)
	}
	if len(found) != 1 || found[0].ID != tracking.ID {
		t.Errorf("expected only the active tracking goal, got %+v", found)
	}
}
