package models

import "time"

type Role string

const (
	RoleTeacher  Role = "teacher"
	RoleGuardian Role = "guardian"
	RoleKiosk    Role = "kiosk"
)

type TaskType string

const (
	TaskOneShot           TaskType = "one_shot"
	TaskBoundedCounter    TaskType = "bounded_counter"
	TaskUnboundedProgress TaskType = "unbounded_progress"
)

type TaskStatus string

const (
	TaskStatusPending TaskStatus = "pending"
	TaskStatusDone    TaskStatus = "done"
)

type RecurrenceKind string

const (
	RecurrenceDaily   RecurrenceKind = "daily"
	RecurrenceWeekly  RecurrenceKind = "weekly"
	RecurrenceMonthly RecurrenceKind = "monthly"
	RecurrenceCustom  RecurrenceKind = "custom"
)

type GoalScope string

const (
	GoalScopeIndividual GoalScope = "individual"
	GoalScopeGroup      GoalScope = "group"
	GoalScopeRole       GoalScope = "role"
)

// Recurrence describes when a routine or goal window resets. AnchorWeekday
// is only meaningful for weekly recurrence (0 = Sunday), AnchorDay for
// monthly, and CustomStart for custom windows supplied by the caller.
type Recurrence struct {
	Kind          RecurrenceKind
	AnchorWeekday int
	AnchorDay     int
	CustomStart   *time.Time
}

// Subject is the child or student a completion is attributed to.
type Subject struct {
	ID          string
	OwnerUserID string
	Name        string
	Archived    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Routine struct {
	ID          string
	OwnerUserID string
	Name        string
	Recurrence  Recurrence

	// TeacherOnly hides the routine and its tasks from every viewer role
	// except the teacher.
	TeacherOnly bool

	Archived  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Task struct {
	ID        string
	RoutineID string
	Name      string
	Type      TaskType
	Unit      string

	// Bound is the completion count at which a bounded counter task is
	// done. Zero for the other task types.
	Bound int

	Position  int
	Archived  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CompletionEvent is an immutable record of one completion action. History
// is append/delete only: an undo deletes the event, nothing is ever edited
// in place.
type CompletionEvent struct {
	ID               string
	TaskID           string
	SubjectID        string
	Value            float64
	RecordedByUserID string
	CompletedAt      time.Time
	CreatedAt        time.Time
}

type Goal struct {
	ID          string
	OwnerUserID string
	Name        string
	Target      float64
	Unit        string
	Period      Recurrence
	Scope       GoalScope

	// SubjectIDs are the contributing subjects. For individual scope the
	// first entry is the one subject; for role scope the set is resolved
	// at aggregation time from the owner instead.
	SubjectIDs []string

	// TaskIDs are the tracked tasks whose completion values count.
	TaskIDs []string

	Streak    bool
	Archived  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Viewer is an already-resolved identity handed in by the auth boundary.
// The engine never resolves credentials; it only applies role rules.
type Viewer struct {
	UserID string
	Role   Role

	// SubjectID is set for kiosk viewers: the one subject whose profile
	// the kiosk is allowed to act on.
	SubjectID string
}

type APIToken struct {
	ID        string
	Name      string
	TokenHash string
	UserID    string
	Role      Role
	SubjectID string
	ExpiresAt *time.Time
	CreatedAt time.Time
}
