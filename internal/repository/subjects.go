package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/ahmetrasit/rubyroutines-sub003/internal/models"
	"github.com/google/uuid"
)

// SubjectAssignments is the result shape of the batched grid read: one
// subject plus the active routines assigned to it, their tasks, and the
// subject's recent completion events. Callers filter events to per-routine
// windows themselves.
type SubjectAssignments struct {
	Subject  models.Subject
	Routines []models.Routine
	Tasks    []models.Task
	Events   []models.CompletionEvent
}

type SubjectRepository interface {
	FindByID(ctx context.Context, id string) (models.Subject, error)
	FindByOwner(ctx context.Context, ownerUserID string) ([]models.Subject, error)
	Create(ctx context.Context, subject models.Subject) (models.Subject, error)
	Update(ctx context.Context, subject models.Subject) error
	Archive(ctx context.Context, id string) error
	FindBatchWithAssignments(ctx context.Context, ids []string, since time.Time) ([]SubjectAssignments, error)
}

type SQLiteSubjectRepository struct {
	database *sql.DB
}

func NewSubjectRepository(database *sql.DB) *SQLiteSubjectRepository {
	return &SQLiteSubjectRepository{database: database}
}

func (repository *SQLiteSubjectRepository) FindByID(ctx context.Context, id string) (models.Subject, error) {
	var subject models.Subject
	err := repository.database.QueryRowContext(ctx,
		`SELECT id, owner_user_id, name, archived, created_at, updated_at
		FROM subjects WHERE id = ?`, id,
	).Scan(&subject.ID, &subject.OwnerUserID, &subject.Name, &subject.Archived, &subject.CreatedAt, &subject.UpdatedAt)
	if err != nil {
		return models.Subject{}, fmt.Errorf("finding subject by id: %w", err)
	}
	return subject, nil
}

func (repository *SQLiteSubjectRepository) FindByOwner(ctx context.Context, ownerUserID string) ([]models.Subject, error) {
	rows, err := repository.database.QueryContext(ctx,
		`SELECT id, owner_user_id, name, archived, created_at, updated_at
		FROM subjects WHERE owner_user_id = ? AND archived = 0
		ORDER BY name ASC`, ownerUserID,
	)
	if err != nil {
		return nil, fmt.Errorf("finding subjects by owner: %w", err)
	}
	defer rows.Close()

	return scanSubjects(rows)
}

func (repository *SQLiteSubjectRepository) Create(ctx context.Context, subject models.Subject) (models.Subject, error) {
	if subject.ID == "" {
		subject.ID = uuid.New().String()
	}
	now := time.Now()
	subject.CreatedAt = now
	subject.UpdatedAt = now

	_, err := repository.database.ExecContext(ctx,
		`INSERT INTO subjects (id, owner_user_id, name, archived, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		subject.ID, subject.OwnerUserID, subject.Name, subject.Archived, subject.CreatedAt, subject.UpdatedAt,
	)
	if err != nil {
		return models.Subject{}, fmt.Errorf("creating subject: %w", err)
	}
	return subject, nil
}

func (repository *SQLiteSubjectRepository) Update(ctx context.Context, subject models.Subject) error {
	subject.UpdatedAt = time.Now()
	_, err := repository.database.ExecContext(ctx,
		`UPDATE subjects SET name = ?, archived = ?, updated_at = ? WHERE id = ?`,
		subject.Name, subject.Archived, subject.UpdatedAt, subject.ID,
	)
	if err != nil {
		return fmt.Errorf("updating subject: %w", err)
	}
	return nil
}

func (repository *SQLiteSubjectRepository) Archive(ctx context.Context, id string) error {
	_, err := repository.database.ExecContext(ctx,
		`UPDATE subjects SET archived = 1, updated_at = ? WHERE id = ?`, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("archiving subject: %w", err)
	}
	return nil
}

// FindBatchWithAssignments loads everything a multi-subject grid needs in a
// fixed number of set queries keyed by all subject ids at once, instead of
// one round trip per subject.
func (repository *SQLiteSubjectRepository) FindBatchWithAssignments(ctx context.Context, ids []string, since time.Time) ([]SubjectAssignments, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(ids)-1) + "?"
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	subjectRows, err := repository.database.QueryContext(ctx,
		`SELECT id, owner_user_id, name, archived, created_at, updated_at
		FROM subjects WHERE id IN (`+placeholders+`)`, args...,
	)
	if err != nil {
		return nil, fmt.Errorf("batch loading subjects: %w", err)
	}
	defer subjectRows.Close()

	subjects, err := scanSubjects(subjectRows)
	if err != nil {
		return nil, err
	}

	routineRows, err := repository.database.QueryContext(ctx,
		`SELECT rs.subject_id,
			r.id, r.owner_user_id, r.name, r.recurrence_kind, r.anchor_weekday, r.anchor_day,
			r.custom_window_start, r.teacher_only, r.archived, r.created_at, r.updated_at
		FROM routine_subjects rs
		JOIN routines r ON r.id = rs.routine_id
		WHERE rs.subject_id IN (`+placeholders+`) AND r.archived = 0
		ORDER BY r.name ASC`, args...,
	)
	if err != nil {
		return nil, fmt.Errorf("batch loading routines: %w", err)
	}
	defer routineRows.Close()

	routinesBySubject := make(map[string][]models.Routine)
	routineIDs := make(map[string]bool)
	for routineRows.Next() {
		var subjectID string
		var routine models.Routine
		if err := routineRows.Scan(
			&subjectID,
			&routine.ID, &routine.OwnerUserID, &routine.Name, &routine.Recurrence.Kind,
			&routine.Recurrence.AnchorWeekday, &routine.Recurrence.AnchorDay,
			&routine.Recurrence.CustomStart, &routine.TeacherOnly, &routine.Archived,
			&routine.CreatedAt, &routine.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning batch routine: %w", err)
		}
		routinesBySubject[subjectID] = append(routinesBySubject[subjectID], routine)
		routineIDs[routine.ID] = true
	}
	if err := routineRows.Err(); err != nil {
		return nil, fmt.Errorf("iterating batch routines: %w", err)
	}

	tasksByRoutine := make(map[string][]models.Task)
	if len(routineIDs) > 0 {
		var routineArgs []interface{}
		for id := range routineIDs {
			routineArgs = append(routineArgs, id)
		}
		routinePlaceholders := strings.Repeat("?,", len(routineArgs)-1) + "?"
		taskRows, err := repository.database.QueryContext(ctx,
			`SELECT id, routine_id, name, task_type, unit, bound, position, archived, created_at, updated_at
			FROM tasks WHERE routine_id IN (`+routinePlaceholders+`) AND archived = 0
			ORDER BY position ASC, name ASC`, routineArgs...,
		)
		if err != nil {
			return nil, fmt.Errorf("batch loading tasks: %w", err)
		}
		defer taskRows.Close()

		tasks, err := scanTasks(taskRows)
		if err != nil {
			return nil, err
		}
		for _, task := range tasks {
			tasksByRoutine[task.RoutineID] = append(tasksByRoutine[task.RoutineID], task)
		}
	}

	eventArgs := append([]interface{}{}, args...)
	eventArgs = append(eventArgs, since)
	eventRows, err := repository.database.QueryContext(ctx,
		`SELECT id, task_id, subject_id, value, recorded_by_user_id, completed_at, created_at
		FROM completion_events
		WHERE subject_id IN (`+placeholders+`) AND completed_at >= ?
		ORDER BY completed_at ASC`, eventArgs...,
	)
	if err != nil {
		return nil, fmt.Errorf("batch loading completion events: %w", err)
	}
	defer eventRows.Close()

	eventsBySubject := make(map[string][]models.CompletionEvent)
	for eventRows.Next() {
		var event models.CompletionEvent
		if err := eventRows.Scan(
			&event.ID, &event.TaskID, &event.SubjectID, &event.Value,
			&event.RecordedByUserID, &event.CompletedAt, &event.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning batch completion event: %w", err)
		}
		eventsBySubject[event.SubjectID] = append(eventsBySubject[event.SubjectID], event)
	}
	if err := eventRows.Err(); err != nil {
		return nil, fmt.Errorf("iterating batch completion events: %w", err)
	}

	result := make([]SubjectAssignments, 0, len(subjects))
	for _, subject := range subjects {
		assignments := SubjectAssignments{
			Subject:  subject,
			Routines: routinesBySubject[subject.ID],
			Events:   eventsBySubject[subject.ID],
		}
		for _, routine := range assignments.Routines {
			assignments.Tasks = append(assignments.Tasks, tasksByRoutine[routine.ID]...)
		}
		result = append(result, assignments)
	}
	return result, nil
}

func scanSubjects(rows *sql.Rows) ([]models.Subject, error) {
	var subjects []models.Subject
	for rows.Next() {
		var subject models.Subject
		if err := rows.Scan(&subject.ID, &subject.OwnerUserID, &subject.Name, &subject.Archived, &subject.CreatedAt, &subject.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning subject: %w", err)
		}
		subjects = append(subjects, subject)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating subjects: %w", err)
	}
	return subjects, nil
}
