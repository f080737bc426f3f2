package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/ahmetrasit/rubyroutines-sub003/internal/models"
)

func (fixture *engineFixture) mustGoal(t *testing.T, goal models.Goal) models.Goal {
	t.Helper()
	if goal.OwnerUserID == "" {
		goal.OwnerUserID = ownerUserID
	}
	created, err := fixture.goals.Create(context.Background(), goal)
	if err != nil {
		t.Fatalf("creating goal: %v", err)
	}
	return created
}

func (fixture *engineFixture) mustComplete(t *testing.T, taskID, subjectID string, value float64, now time.Time) {
	t.Helper()
	_, err := fixture.service.Complete(context.Background(), teacherViewer(), taskID, subjectID, &value, now)
	if err != nil {
		t.Fatalf("completing %s for %s: %v", taskID, subjectID, err)
	}
}

func TestGoalService_RoleScopeAggregation(t *testing.T) {
	fixture := newEngineFixture(t)
	ctx := context.Background()

	routine := fixture.mustRoutine(t, models.Routine{
		Name:       "Practice",
		Recurrence: models.Recurrence{Kind: models.RecurrenceDaily},
	})
	task := fixture.mustTask(t, models.Task{RoutineID: routine.ID, Name: "Minutes", Type: models.TaskUnboundedProgress, Unit: "minutes"})

	ada := fixture.mustSubject(t, "Ada")
	ben := fixture.mustSubject(t, "Ben")
	cem := fixture.mustSubject(t, "Cem")

	fixture.mustComplete(t, task.ID, ada.ID, 20, serviceNow)
	fixture.mustComplete(t, task.ID, ben.ID, 35, serviceNow)
	fixture.mustComplete(t, task.ID, cem.ID, 10, serviceNow)

	goal := fixture.mustGoal(t, models.Goal{
		Name:    "Class practice",
		Target:  100,
		Period:  models.Recurrence{Kind: models.RecurrenceDaily},
		Scope:   models.GoalScopeRole,
		TaskIDs: []string{task.ID},
	})

	progress, err := fixture.goalService.ComputeProgress(ctx, goal, teacherViewer(), serviceNow)
	if err != nil {
		t.Fatalf("computing progress: %v", err)
	}
	if progress.Current != 65 {
		t.Errorf("expected current 65, got %v", progress.Current)
	}
	if progress.Percentage != 65 {
		t.Errorf("expected 65%%, got %v", progress.Percentage)
	}
	if progress.Achieved {
		t.Error("expected goal not achieved at 65/100")
	}
}

func TestGoalService_ZeroTargetTriviallyAchieved(t *testing.T) {
	fixture := newEngineFixture(t)

	goal := fixture.mustGoal(t, models.Goal{
		Name:   "Participation",
		Target: 0,
		Period: models.Recurrence{Kind: models.RecurrenceDaily},
		Scope:  models.GoalScopeRole,
	})

	progress, err := fixture.goalService.ComputeProgress(context.Background(), goal, teacherViewer(), serviceNow)
	if err != nil {
		t.Fatalf("computing progress: %v", err)
	}
	if !progress.Achieved {
		t.Error("zero-target goal must be achieved")
	}
	if progress.Percentage != 100 {
		t.Errorf("expected 100%%, got %v", progress.Percentage)
	}
}

func TestGoalService_GroupDelta(t *testing.T) {
	fixture := newEngineFixture(t)
	ctx := context.Background()

	routine := fixture.mustRoutine(t, models.Routine{
		Name:       "Practice",
		Recurrence: models.Recurrence{Kind: models.RecurrenceDaily},
	})
	task := fixture.mustTask(t, models.Task{RoutineID: routine.ID, Name: "Minutes", Type: models.TaskUnboundedProgress, Unit: "minutes"})

	ada := fixture.mustSubject(t, "Ada")
	ben := fixture.mustSubject(t, "Ben")

	goal := fixture.mustGoal(t, models.Goal{
		Name:       "Pair practice",
		Target:     200,
		Period:     models.Recurrence{Kind: models.RecurrenceDaily},
		Scope:      models.GoalScopeGroup,
		SubjectIDs: []string{ada.ID, ben.ID},
		TaskIDs:    []string{task.ID},
	})

	fixture.mustComplete(t, task.ID, ada.ID, 40, serviceNow)
	before, err := fixture.goalService.ComputeProgress(ctx, goal, teacherViewer(), serviceNow)
	if err != nil {
		t.Fatalf("computing progress: %v", err)
	}

	// One member's contribution moves the group total by exactly its value.
	fixture.mustComplete(t, task.ID, ben.ID, 17.5, serviceNow)
	after, err := fixture.goalService.ComputeProgress(ctx, goal, teacherViewer(), serviceNow)
	if err != nil {
		t.Fatalf("recomputing progress: %v", err)
	}
	if delta := after.Current - before.Current; delta != 17.5 {
		t.Errorf("expected delta 17.5, got %v", delta)
	}
}

func TestGoalService_IndividualScopeCountsOneSubject(t *testing.T) {
	fixture := newEngineFixture(t)
	ctx := context.Background()

	routine := fixture.mustRoutine(t, models.Routine{
		Name:       "Practice",
		Recurrence: models.Recurrence{Kind: models.RecurrenceDaily},
	})
	task := fixture.mustTask(t, models.Task{RoutineID: routine.ID, Name: "Minutes", Type: models.TaskUnboundedProgress, Unit: "minutes"})

	ada := fixture.mustSubject(t, "Ada")
	ben := fixture.mustSubject(t, "Ben")

	fixture.mustComplete(t, task.ID, ada.ID, 30, serviceNow)
	fixture.mustComplete(t, task.ID, ben.ID, 99, serviceNow)

	goal := fixture.mustGoal(t, models.Goal{
		Name:       "Ada's practice",
		Target:     60,
		Period:     models.Recurrence{Kind: models.RecurrenceDaily},
		Scope:      models.GoalScopeIndividual,
		SubjectIDs: []string{ada.ID},
		TaskIDs:    []string{task.ID},
	})

	progress, err := fixture.goalService.ComputeProgress(ctx, goal, teacherViewer(), serviceNow)
	if err != nil {
		t.Fatalf("computing progress: %v", err)
	}
	if progress.Current != 30 {
		t.Errorf("expected only Ada's 30 to count, got %v", progress.Current)
	}
}

func TestGoalService_RestrictedTasksExcludedForNonTeachers(t *testing.T) {
	fixture := newEngineFixture(t)
	ctx := context.Background()

	routine := fixture.mustRoutine(t, models.Routine{
		Name:        "Intervention plan",
		TeacherOnly: true,
		Recurrence:  models.Recurrence{Kind: models.RecurrenceDaily},
	})
	task := fixture.mustTask(t, models.Task{RoutineID: routine.ID, Name: "Minutes", Type: models.TaskUnboundedProgress, Unit: "minutes"})

	ada := fixture.mustSubject(t, "Ada")
	fixture.mustComplete(t, task.ID, ada.ID, 50, serviceNow)

	goal := fixture.mustGoal(t, models.Goal{
		Name:       "Support time",
		Target:     100,
		Period:     models.Recurrence{Kind: models.RecurrenceDaily},
		Scope:      models.GoalScopeIndividual,
		SubjectIDs: []string{ada.ID},
		TaskIDs:    []string{task.ID},
	})

	guardian := models.Viewer{UserID: ownerUserID, Role: models.RoleGuardian}
	progress, err := fixture.goalService.ComputeProgress(ctx, goal, guardian, serviceNow)
	if err != nil {
		t.Fatalf("computing guardian progress: %v", err)
	}
	if progress.Current != 0 {
		t.Errorf("restricted completions leaked into guardian aggregate: %v", progress.Current)
	}

	teacherProgress, err := fixture.goalService.ComputeProgress(ctx, goal, teacherViewer(), serviceNow)
	if err != nil {
		t.Fatalf("computing teacher progress: %v", err)
	}
	if teacherProgress.Current != 50 {
		t.Errorf("expected teacher to see 50, got %v", teacherProgress.Current)
	}
}

func TestGoalService_MalformedGoalDegrades(t *testing.T) {
	fixture := newEngineFixture(t)
	ctx := context.Background()

	tests := []struct {
		name string
		goal models.Goal
	}{
		{
			name: "individual goal without subjects",
			goal: models.Goal{
				Name:   "Nobody's goal",
				Target: 10,
				Period: models.Recurrence{Kind: models.RecurrenceDaily},
				Scope:  models.GoalScopeIndividual,
			},
		},
		{
			name: "unresolvable period",
			goal: models.Goal{
				Name:   "Broken window",
				Target: 10,
				Period: models.Recurrence{Kind: models.RecurrenceWeekly, AnchorWeekday: 9},
				Scope:  models.GoalScopeRole,
			},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			goal := fixture.mustGoal(t, test.goal)
			progress, err := fixture.goalService.ComputeProgress(ctx, goal, teacherViewer(), serviceNow)
			if err != nil {
				t.Fatalf("malformed goal must degrade, not fail: %v", err)
			}
			if progress.Current != 0 || progress.Achieved {
				t.Errorf("expected zero progress, got %+v", progress)
			}
		})
	}
}

func TestGoalService_Streak(t *testing.T) {
	fixture := newEngineFixture(t)
	ctx := context.Background()

	routine := fixture.mustRoutine(t, models.Routine{
		Name:       "Practice",
		Recurrence: models.Recurrence{Kind: models.RecurrenceDaily},
	})
	task := fixture.mustTask(t, models.Task{RoutineID: routine.ID, Name: "Minutes", Type: models.TaskUnboundedProgress, Unit: "minutes"})

	ada := fixture.mustSubject(t, "Ada")

	// Target hit today and on each of the three prior days, missed before that.
	for daysBack := 0; daysBack <= 3; daysBack++ {
		fixture.mustComplete(t, task.ID, ada.ID, 20, serviceNow.AddDate(0, 0, -daysBack))
	}

	goal := fixture.mustGoal(t, models.Goal{
		Name:       "Daily practice",
		Target:     20,
		Period:     models.Recurrence{Kind: models.RecurrenceDaily},
		Scope:      models.GoalScopeIndividual,
		SubjectIDs: []string{ada.ID},
		TaskIDs:    []string{task.ID},
		Streak:     true,
	})

	progress, err := fixture.goalService.ComputeProgress(ctx, goal, teacherViewer(), serviceNow)
	if err != nil {
		t.Fatalf("computing progress: %v", err)
	}
	if !progress.Achieved {
		t.Error("expected today's window achieved")
	}
	if progress.Streak != 3 {
		t.Errorf("expected a 3-window streak, got %d", progress.Streak)
	}
}
