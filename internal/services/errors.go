package services

import "errors"

// Engine error taxonomy. Handlers map these to specific error kinds in the
// response body; the kind is part of the contract, not a display detail.
var (
	ErrInvalidRecurrencePolicy = errors.New("invalid recurrence policy")
	ErrInvalidValue            = errors.New("completion value must be positive")
	ErrMissingValue            = errors.New("completion value is required")
	ErrTaskAlreadyDone         = errors.New("task is already done in the current window")
	ErrCounterExhausted        = errors.New("counter is already at its bound")
	ErrAccessDenied            = errors.New("acting role may not complete for this subject")
	ErrCompletionNotFound      = errors.New("completion event not found")
	ErrWindowClosed            = errors.New("completion predates the current window")
	ErrUnknownTaskType         = errors.New("unknown task type")
	ErrCellPending             = errors.New("cell has an operation in flight")
)

// ErrorKind returns the stable wire identifier for an engine error, or
// "internal" for anything outside the taxonomy.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRecurrencePolicy):
		return "invalid_recurrence_policy"
	case errors.Is(err, ErrInvalidValue):
		return "invalid_value"
	case errors.Is(err, ErrMissingValue):
		return "missing_value"
	case errors.Is(err, ErrTaskAlreadyDone):
		return "task_already_done"
	case errors.Is(err, ErrCounterExhausted):
		return "counter_exhausted"
	case errors.Is(err, ErrAccessDenied):
		return "access_denied"
	case errors.Is(err, ErrCompletionNotFound):
		return "completion_not_found"
	case errors.Is(err, ErrWindowClosed):
		return "window_closed"
	case errors.Is(err, ErrUnknownTaskType):
		return "unknown_task_type"
	case errors.Is(err, ErrCellPending):
		return "cell_pending"
	default:
		return "internal"
	}
}
