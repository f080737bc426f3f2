package services

import "github.com/ahmetrasit/rubyroutines-sub003/internal/models"

// RoutineVisibleTo is the single visibility predicate applied at every read
// boundary: list, get-by-id, and goal aggregation input alike. A restricted
// routine is visible only to the teacher role.
func RoutineVisibleTo(routine models.Routine, viewer models.Viewer) bool {
	if !routine.TeacherOnly {
		return true
	}
	return viewer.Role == models.RoleTeacher
}

// VisibleRoutines filters a routine list down to what viewer may see.
func VisibleRoutines(routines []models.Routine, viewer models.Viewer) []models.Routine {
	visible := make([]models.Routine, 0, len(routines))
	for _, routine := range routines {
		if RoutineVisibleTo(routine, viewer) {
			visible = append(visible, routine)
		}
	}
	return visible
}

// VisibleTasks filters tasks by the visibility of their owning routine.
// Tasks have no restriction flag of their own; they inherit the routine's.
func VisibleTasks(tasks []models.Task, routinesByID map[string]models.Routine, viewer models.Viewer) []models.Task {
	visible := make([]models.Task, 0, len(tasks))
	for _, task := range tasks {
		routine, ok := routinesByID[task.RoutineID]
		if !ok {
			continue
		}
		if RoutineVisibleTo(routine, viewer) {
			visible = append(visible, task)
		}
	}
	return visible
}
