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

type TaskRepository interface {
	FindByID(ctx context.Context, id string) (models.Task, error)
	FindByIDs(ctx context.Context, ids []string) ([]models.Task, error)
	FindByRoutine(ctx context.Context, routineID string) ([]models.Task, error)
	Create(ctx context.Context, task models.Task) (models.Task, error)
	Update(ctx context.Context, task models.Task) error
	Archive(ctx context.Context, id string) error
}

type SQLiteTaskRepository struct {
	database *sql.DB
}

func NewTaskRepository(database *sql.DB) *SQLiteTaskRepository {
	return &SQLiteTaskRepository{database: database}
}

const taskColumns = `id, routine_id, name, task_type, unit, bound, position, archived, created_at, updated_at`

func (repository *SQLiteTaskRepository) FindByID(ctx context.Context, id string) (models.Task, error) {
	var task models.Task
	err := repository.database.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id,
	).Scan(
		&task.ID, &task.RoutineID, &task.Name, &task.Type, &task.Unit,
		&task.Bound, &task.Position, &task.Archived, &task.CreatedAt, &task.UpdatedAt,
	)
	if err != nil {
		return models.Task{}, fmt.Errorf("finding task by id: %w", err)
	}
	return task, nil
}

func (repository *SQLiteTaskRepository) FindByIDs(ctx context.Context, ids []string) ([]models.Task, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := strings.Repeat("?,", len(ids)-1) + "?"
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := repository.database.QueryContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id IN (`+placeholders+`)`, args...,
	)
	if err != nil {
		return nil, fmt.Errorf("finding tasks by ids: %w", err)
	}
	defer rows.Close()

	return scanTasks(rows)
}

func (repository *SQLiteTaskRepository) FindByRoutine(ctx context.Context, routineID string) ([]models.Task, error) {
	rows, err := repository.database.QueryContext(ctx,
		`SELECT `+taskColumns+` FROM tasks
		WHERE routine_id = ? AND archived = 0
		ORDER BY position ASC, name ASC`, routineID,
	)
	if err != nil {
		return nil, fmt.Errorf("finding tasks by routine: %w", err)
	}
	defer rows.Close()

	return scanTasks(rows)
}

func (repository *SQLiteTaskRepository) Create(ctx context.Context, task models.Task) (models.Task, error) {
	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	now := time.Now()
	task.CreatedAt = now
	task.UpdatedAt = now

	_, err := repository.database.ExecContext(ctx,
		`INSERT INTO tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		task.ID, task.RoutineID, task.Name, task.Type, task.Unit,
		task.Bound, task.Position, task.Archived, task.CreatedAt, task.UpdatedAt,
	)
	if err != nil {
		return models.Task{}, fmt.Errorf("creating task: %w", err)
	}
	return task, nil
}

func (repository *SQLiteTaskRepository) Update(ctx context.Context, task models.Task) error {
	task.UpdatedAt = time.Now()
	_, err := repository.database.ExecContext(ctx,
		`UPDATE tasks SET name = ?, task_type = ?, unit = ?, bound = ?, position = ?, archived = ?, updated_at = ?
		WHERE id = ?`,
		task.Name, task.Type, task.Unit, task.Bound, task.Position, task.Archived, task.UpdatedAt, task.ID,
	)
	if err != nil {
		return fmt.Errorf("updating task: %w", err)
	}
	return nil
}

func (repository *SQLiteTaskRepository) Archive(ctx context.Context, id string) error {
	_, err := repository.database.ExecContext(ctx,
		`UPDATE tasks SET archived = 1, updated_at = ? WHERE id = ?`, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("archiving task: %w", err)
	}
	return nil
}

func scanTasks(rows *sql.Rows) ([]models.Task, error) {
	var tasks []models.Task
	for rows.Next() {
		var task models.Task
		if err := rows.Scan(
			&task.ID, &task.RoutineID, &task.Name, &task.Type, &task.Unit,
			&task.Bound, &task.Position, &task.Archived, &task.CreatedAt, &task.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning task: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tasks: %w", err)
	}
	return tasks, nil
}
