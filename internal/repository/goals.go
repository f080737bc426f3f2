package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ahmetrasit/rubyroutines-sub003/internal/models"
	"github.com/google/uuid"
)

type GoalFilter struct {
	OwnerUserID     *string
	IncludeArchived bool
}

type GoalRepository interface {
	FindByID(ctx context.Context, id string) (models.Goal, error)
	FindAll(ctx context.Context, filter GoalFilter) ([]models.Goal, error)
	FindByTrackedTask(ctx context.Context, taskID string) ([]models.Goal, error)
	Create(ctx context.Context, goal models.Goal) (models.Goal, error)
	Update(ctx context.Context, goal models.Goal) error
	Archive(ctx context.Context, id string) error
}

type SQLiteGoalRepository struct {
	database *sql.DB
}

func NewGoalRepository(database *sql.DB) *SQLiteGoalRepository {
	return &SQLiteGoalRepository{database: database}
}

const goalColumns = `id, owner_user_id, name, target, unit, period_kind, anchor_weekday, anchor_day,
	custom_window_start, scope, streak, archived, created_at, updated_at`

func (repository *SQLiteGoalRepository) FindByID(ctx context.Context, id string) (models.Goal, error) {
	row := repository.database.QueryRowContext(ctx,
		`SELECT `+goalColumns+` FROM goals WHERE id = ?`, id,
	)
	goal, err := scanGoalRow(row)
	if err != nil {
		return models.Goal{}, fmt.Errorf("finding goal by id: %w", err)
	}
	if err := repository.loadMembers(ctx, &goal); err != nil {
		return models.Goal{}, err
	}
	return goal, nil
}

func (repository *SQLiteGoalRepository) FindAll(ctx context.Context, filter GoalFilter) ([]models.Goal, error) {
	query := `SELECT ` + goalColumns + ` FROM goals WHERE 1=1`
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
		return nil, fmt.Errorf("finding goals: %w", err)
	}
	defer rows.Close()

	goals, err := scanGoals(rows)
	if err != nil {
		return nil, err
	}
	for i := range goals {
		if err := repository.loadMembers(ctx, &goals[i]); err != nil {
			return nil, err
		}
	}
	return goals, nil
}

// FindByTrackedTask returns active goals that track the given task. The
// caller narrows further by subject membership.
func (repository *SQLiteGoalRepository) FindByTrackedTask(ctx context.Context, taskID string) ([]models.Goal, error) {
	rows, err := repository.database.QueryContext(ctx,
		`SELECT `+goalColumns+` FROM goals
		WHERE archived = 0 AND id IN (SELECT goal_id FROM goal_tasks WHERE task_id = ?)
		ORDER BY name ASC`, taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("finding goals by tracked task: %w", err)
	}
	defer rows.Close()

	goals, err := scanGoals(rows)
	if err != nil {
		return nil, err
	}
	for i := range goals {
		if err := repository.loadMembers(ctx, &goals[i]); err != nil {
			return nil, err
		}
	}
	return goals, nil
}

func (repository *SQLiteGoalRepository) Create(ctx context.Context, goal models.Goal) (models.Goal, error) {
	if goal.ID == "" {
		goal.ID = uuid.New().String()
	}
	now := time.Now()
	goal.CreatedAt = now
	goal.UpdatedAt = now
	if goal.Scope == "" {
		goal.Scope = models.GoalScopeIndividual
	}

	_, err := repository.database.ExecContext(ctx,
		`INSERT INTO goals (`+goalColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		goal.ID, goal.OwnerUserID, goal.Name, goal.Target, goal.Unit,
		goal.Period.Kind, goal.Period.AnchorWeekday, goal.Period.AnchorDay,
		goal.Period.CustomStart, goal.Scope, goal.Streak, goal.Archived,
		goal.CreatedAt, goal.UpdatedAt,
	)
	if err != nil {
		return models.Goal{}, fmt.Errorf("creating goal: %w", err)
	}

	if err := repository.saveMembers(ctx, goal); err != nil {
		return models.Goal{}, err
	}
	return goal, nil
}

func (repository *SQLiteGoalRepository) Update(ctx context.Context, goal models.Goal) error {
	goal.UpdatedAt = time.Now()
	_, err := repository.database.ExecContext(ctx,
		`UPDATE goals SET name = ?, target = ?, unit = ?, period_kind = ?, anchor_weekday = ?,
			anchor_day = ?, custom_window_start = ?, scope = ?, streak = ?, archived = ?, updated_at = ?
		WHERE id = ?`,
		goal.Name, goal.Target, goal.Unit, goal.Period.Kind, goal.Period.AnchorWeekday,
		goal.Period.AnchorDay, goal.Period.CustomStart, goal.Scope, goal.Streak,
		goal.Archived, goal.UpdatedAt, goal.ID,
	)
	if err != nil {
		return fmt.Errorf("updating goal: %w", err)
	}

	if _, err := repository.database.ExecContext(ctx, `DELETE FROM goal_subjects WHERE goal_id = ?`, goal.ID); err != nil {
		return fmt.Errorf("clearing goal subjects: %w", err)
	}
	if _, err := repository.database.ExecContext(ctx, `DELETE FROM goal_tasks WHERE goal_id = ?`, goal.ID); err != nil {
		return fmt.Errorf("clearing goal tasks: %w", err)
	}
	return repository.saveMembers(ctx, goal)
}

func (repository *SQLiteGoalRepository) Archive(ctx context.Context, id string) error {
	_, err := repository.database.ExecContext(ctx,
		`UPDATE goals SET archived = 1, updated_at = ? WHERE id = ?`, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("archiving goal: %w", err)
	}
	return nil
}

func (repository *SQLiteGoalRepository) saveMembers(ctx context.Context, goal models.Goal) error {
	for _, subjectID := range goal.SubjectIDs {
		if _, err := repository.database.ExecContext(ctx,
			`INSERT INTO goal_subjects (goal_id, subject_id) VALUES (?, ?)`, goal.ID, subjectID,
		); err != nil {
			return fmt.Errorf("adding goal subject %s: %w", subjectID, err)
		}
	}
	for _, taskID := range goal.TaskIDs {
		if _, err := repository.database.ExecContext(ctx,
			`INSERT INTO goal_tasks (goal_id, task_id) VALUES (?, ?)`, goal.ID, taskID,
		); err != nil {
			return fmt.Errorf("adding goal task %s: %w", taskID, err)
		}
	}
	return nil
}

func (repository *SQLiteGoalRepository) loadMembers(ctx context.Context, goal *models.Goal) error {
	subjectRows, err := repository.database.QueryContext(ctx,
		`SELECT subject_id FROM goal_subjects WHERE goal_id = ?`, goal.ID,
	)
	if err != nil {
		return fmt.Errorf("loading goal subjects: %w", err)
	}
	defer subjectRows.Close()
	for subjectRows.Next() {
		var subjectID string
		if err := subjectRows.Scan(&subjectID); err != nil {
			return fmt.Errorf("scanning goal subject: %w", err)
		}
		goal.SubjectIDs = append(goal.SubjectIDs, subjectID)
	}
	if err := subjectRows.Err(); err != nil {
		return fmt.Errorf("iterating goal subjects: %w", err)
	}

	taskRows, err := repository.database.QueryContext(ctx,
		`SELECT task_id FROM goal_tasks WHERE goal_id = ?`, goal.ID,
	)
	if err != nil {
		return fmt.Errorf("loading goal tasks: %w", err)
	}
	defer taskRows.Close()
	for taskRows.Next() {
		var taskID string
		if err := taskRows.Scan(&taskID); err != nil {
			return fmt.Errorf("scanning goal task: %w", err)
		}
		goal.TaskIDs = append(goal.TaskIDs, taskID)
	}
	if err := taskRows.Err(); err != nil {
		return fmt.Errorf("iterating goal tasks: %w", err)
	}
	return nil
}

func scanGoals(rows *sql.Rows) ([]models.Goal, error) {
	var goals []models.Goal
	for rows.Next() {
		goal, err := scanGoalRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning goal: %w", err)
		}
		goals = append(goals, goal)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating goals: %w", err)
	}
	return goals, nil
}

func scanGoalRow(row rowScanner) (models.Goal, error) {
	var goal models.Goal
	err := row.Scan(
		&goal.ID, &goal.OwnerUserID, &goal.Name, &goal.Target, &goal.Unit,
		&goal.Period.Kind, &goal.Period.AnchorWeekday, &goal.Period.AnchorDay,
		&goal.Period.CustomStart, &goal.Scope, &goal.Streak, &goal.Archived,
		&goal.CreatedAt, &goal.UpdatedAt,
	)
	return goal, err
}
