package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ahmetrasit/rubyroutines-sub003/internal/models"
	"github.com/google/uuid"
)

// ErrNotFound is returned by lookups that matched no row.
var ErrNotFound = errors.New("not found")

// CompletionRepository is the append/delete-only completion history.
// Events are never updated in place: a completion inserts one row, an undo
// deletes one row, and both are single atomic statements.
type CompletionRepository interface {
	Create(ctx context.Context, event models.CompletionEvent) (models.CompletionEvent, error)
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (models.CompletionEvent, error)
	FindForSubjectTask(ctx context.Context, taskID, subjectID string, since time.Time) ([]models.CompletionEvent, error)
	SumValues(ctx context.Context, taskIDs, subjectIDs []string, from, to time.Time) (float64, error)
}

type SQLiteCompletionRepository struct {
	database *sql.DB
}

func NewCompletionRepository(database *sql.DB) *SQLiteCompletionRepository {
	return &SQLiteCompletionRepository{database: database}
}

const completionColumns = `id, task_id, subject_id, value, recorded_by_user_id, completed_at, created_at`

func (repository *SQLiteCompletionRepository) Create(ctx context.Context, event models.CompletionEvent) (models.CompletionEvent, error) {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	event.CreatedAt = time.Now()
	if event.CompletedAt.IsZero() {
		event.CompletedAt = event.CreatedAt
	}

	_, err := repository.database.ExecContext(ctx,
		`INSERT INTO completion_events (`+completionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		event.ID, event.TaskID, event.SubjectID, event.Value,
		event.RecordedByUserID, event.CompletedAt, event.CreatedAt,
	)
	if err != nil {
		return models.CompletionEvent{}, fmt.Errorf("creating completion event: %w", err)
	}
	return event, nil
}

func (repository *SQLiteCompletionRepository) Delete(ctx context.Context, id string) error {
	result, err := repository.database.ExecContext(ctx,
		`DELETE FROM completion_events WHERE id = ?`, id,
	)
	if err != nil {
		return fmt.Errorf("deleting completion event: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking deleted completion event: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("deleting completion event %s: %w", id, ErrNotFound)
	}
	return nil
}

func (repository *SQLiteCompletionRepository) FindByID(ctx context.Context, id string) (models.CompletionEvent, error) {
	var event models.CompletionEvent
	err := repository.database.QueryRowContext(ctx,
		`SELECT `+completionColumns+` FROM completion_events WHERE id = ?`, id,
	).Scan(
		&event.ID, &event.TaskID, &event.SubjectID, &event.Value,
		&event.RecordedByUserID, &event.CompletedAt, &event.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return models.CompletionEvent{}, fmt.Errorf("finding completion event %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return models.CompletionEvent{}, fmt.Errorf("finding completion event: %w", err)
	}
	return event, nil
}

func (repository *SQLiteCompletionRepository) FindForSubjectTask(ctx context.Context, taskID, subjectID string, since time.Time) ([]models.CompletionEvent, error) {
	rows, err := repository.database.QueryContext(ctx,
		`SELECT `+completionColumns+` FROM completion_events
		WHERE task_id = ? AND subject_id = ? AND completed_at >= ?
		ORDER BY completed_at ASC`,
		taskID, subjectID, since,
	)
	if err != nil {
		return nil, fmt.Errorf("finding completion events: %w", err)
	}
	defer rows.Close()

	var events []models.CompletionEvent
	for rows.Next() {
		var event models.CompletionEvent
		if err := rows.Scan(
			&event.ID, &event.TaskID, &event.SubjectID, &event.Value,
			&event.RecordedByUserID, &event.CompletedAt, &event.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning completion event: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating completion events: %w", err)
	}
	return events, nil
}

// SumValues totals completion values for any of taskIDs by any of
// subjectIDs inside [from, to). A zero "to" means no upper bound.
func (repository *SQLiteCompletionRepository) SumValues(ctx context.Context, taskIDs, subjectIDs []string, from, to time.Time) (float64, error) {
	if len(taskIDs) == 0 || len(subjectIDs) == 0 {
		return 0, nil
	}

	taskPlaceholders := strings.Repeat("?,", len(taskIDs)-1) + "?"
	subjectPlaceholders := strings.Repeat("?,", len(subjectIDs)-1) + "?"

	query := `SELECT COALESCE(SUM(value), 0) FROM completion_events
		WHERE task_id IN (` + taskPlaceholders + `)
		AND subject_id IN (` + subjectPlaceholders + `)
		AND completed_at >= ?`

	var args []interface{}
	for _, id := range taskIDs {
		args = append(args, id)
	}
	for _, id := range subjectIDs {
		args = append(args, id)
	}
	args = append(args, from)

	if !to.IsZero() {
		query += ` AND completed_at < ?`
		args = append(args, to)
	}

	var total float64
	if err := repository.database.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("summing completion values: %w", err)
	}
	return total, nil
}
