package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ahmetrasit/rubyroutines-sub003/internal/models"
	"github.com/google/uuid"
)

type RoutineFilter struct {
	OwnerUserID     *string
	IncludeArchived bool
}

type RoutineRepository interface {
	FindByID(ctx context.Context, id string) (models.Routine, error)
	FindAll(ctx context.Context, filter RoutineFilter) ([]models.Routine, error)
	Create(ctx context.Context, routine models.Routine) (models.Routine, error)
	Update(ctx context.Context, routine models.Routine) error
	Archive(ctx context.Context, id string) error
	SetAssignedSubjects(ctx context.Context, routineID string, subjectIDs []string) error
	GetAssignedSubjects(ctx context.Context, routineID string) ([]string, error)
}

type SQLiteRoutineRepository struct {
	database *sql.DB
}

func NewRoutineRepository(database *sql.DB) *SQLiteRoutineRepository {
	return &SQLiteRoutineRepository{database: database}
}

const routineColumns = `id, owner_user_id, name, recurrence_kind, anchor_weekday, anchor_day,
	custom_window_start, teacher_only, archived, created_at, updated_at`

func (repository *SQLiteRoutineRepository) FindByID(ctx context.Context, id string) (models.Routine, error) {
	row := repository.database.QueryRowContext(ctx,
		`SELECT `+routineColumns+` FROM routines WHERE id = ?`, id,
	)
	routine, err := scanRoutineRow(row)
	if err != nil {
		return models.Routine{}, fmt.Errorf("finding routine by id: %w", err)
	}
	return routine, nil
}

func (repository *SQLiteRoutineRepository) FindAll(ctx context.Context, filter RoutineFilter) ([]models.Routine, error) {
	query := `SELECT ` + routineColumns + ` FROM routines WHERE 1=1`
	var args []interface{}

	if filter.OwnerUserID != nil {
		query += " AND owner_user_id = ?"
		args = append(args, *filter.OwnerUserID)
	}
	if !filter.IncludeArchived {
		query += " AND archived = 0"
	}
	query += " ORDER BY name ASC"

	rows, err := repository.database.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("finding routines: %w", err)
	}
	defer rows.Close()

	var routines []models.Routine
	for rows.Next() {
		routine, err := scanRoutineRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning routine: %w", err)
		}
		routines = append(routines, routine)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating routines: %w", err)
	}
	return routines, nil
}

func (repository *SQLiteRoutineRepository) Create(ctx context.Context, routine models.Routine) (models.Routine, error) {
	if routine.ID == "" {
		routine.ID = uuid.New().String()
	}
	now := time.Now()
	routine.CreatedAt = now
	routine.UpdatedAt = now
	if routine.Recurrence.Kind == "" {
		routine.Recurrence.Kind = models.RecurrenceDaily
	}

	_, err := repository.database.ExecContext(ctx,
		`INSERT INTO routines (`+routineColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		routine.ID, routine.OwnerUserID, routine.Name, routine.Recurrence.Kind,
		routine.Recurrence.AnchorWeekday, routine.Recurrence.AnchorDay,
		routine.Recurrence.CustomStart, routine.TeacherOnly, routine.Archived,
		routine.CreatedAt, routine.UpdatedAt,
	)
	if err != nil {
		return models.Routine{}, fmt.Errorf("creating routine: %w", err)
	}
	return routine, nil
}

func (repository *SQLiteRoutineRepository) Update(ctx context.Context, routine models.Routine) error {
	routine.UpdatedAt = time.Now()
	_, err := repository.database.ExecContext(ctx,
		`UPDATE routines SET name = ?, recurrence_kind = ?, anchor_weekday = ?, anchor_day = ?,
			custom_window_start = ?, teacher_only = ?, archived = ?, updated_at = ?
		WHERE id = ?`,
		routine.Name, routine.Recurrence.Kind, routine.Recurrence.AnchorWeekday,
		routine.Recurrence.AnchorDay, routine.Recurrence.CustomStart,
		routine.TeacherOnly, routine.Archived, routine.UpdatedAt, routine.ID,
	)
	if err != nil {
		return fmt.Errorf("updating routine: %w", err)
	}
	return nil
}

// Archive soft-archives a routine and cascades to its tasks: both drop out
// of active views while their completion history stays queryable.
func (repository *SQLiteRoutineRepository) Archive(ctx context.Context, id string) error {
	now := time.Now()
	if _, err := repository.database.ExecContext(ctx,
		`UPDATE routines SET archived = 1, updated_at = ? WHERE id = ?`, now, id,
	); err != nil {
		return fmt.Errorf("archiving routine: %w", err)
	}
	if _, err := repository.database.ExecContext(ctx,
		`UPDATE tasks SET archived = 1, updated_at = ? WHERE routine_id = ?`, now, id,
	); err != nil {
		return fmt.Errorf("archiving routine tasks: %w", err)
	}
	return nil
}

func (repository *SQLiteRoutineRepository) SetAssignedSubjects(ctx context.Context, routineID string, subjectIDs []string) error {
	if _, err := repository.database.ExecContext(ctx,
		`DELETE FROM routine_subjects WHERE routine_id = ?`, routineID,
	); err != nil {
		return fmt.Errorf("clearing routine subjects: %w", err)
	}
	for _, subjectID := range subjectIDs {
		if _, err := repository.database.ExecContext(ctx,
			`INSERT INTO routine_subjects (routine_id, subject_id) VALUES (?, ?)`, routineID, subjectID,
		); err != nil {
			return fmt.Errorf("assigning subject %s: %w", subjectID, err)
		}
	}
	return nil
}

func (repository *SQLiteRoutineRepository) GetAssignedSubjects(ctx context.Context, routineID string) ([]string, error) {
	rows, err := repository.database.QueryContext(ctx,
		`SELECT subject_id FROM routine_subjects WHERE routine_id = ?`, routineID,
	)
	if err != nil {
		return nil, fmt.Errorf("getting assigned subjects: %w", err)
	}
	defer rows.Close()

	var subjectIDs []string
	for rows.Next() {
		var subjectID string
		if err := rows.Scan(&subjectID); err != nil {
			return nil, fmt.Errorf("scanning assigned subject: %w", err)
		}
		subjectIDs = append(subjectIDs, subjectID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating assigned subjects: %w", err)
	}
	return subjectIDs, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRoutineRow(row rowScanner) (models.Routine, error) {
	var routine models.Routine
	err := row.Scan(
		&routine.ID, &routine.OwnerUserID, &routine.Name, &routine.Recurrence.Kind,
		&routine.Recurrence.AnchorWeekday, &routine.Recurrence.AnchorDay,
		&routine.Recurrence.CustomStart, &routine.TeacherOnly, &routine.Archived,
		&routine.CreatedAt, &routine.UpdatedAt,
	)
	return routine, err
}
