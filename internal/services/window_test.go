package services

import (
	"errors"
	"testing"
	"time"

	"github.com/ahmetrasit/rubyroutines-sub003/internal/models"
)

func TestWindowStart_Daily(t *testing.T) {
	reference := time.Date(2025, 3, 12, 15, 42, 7, 0, time.UTC)

	start, err := WindowStart(models.Recurrence{Kind: models.RecurrenceDaily}, reference)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC)
	if !start.Equal(want) {
		t.Errorf("expected %v, got %v", want, start)
	}
}

func TestWindowStart_Weekly(t *testing.T) {
	tests := []struct {
		name          string
		anchorWeekday int
		reference     time.Time
		want          time.Time
	}{
		{
			// Monday anchor, reference Wednesday of the same week.
			name:          "midweek reference",
			anchorWeekday: 1,
			reference:     time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC), // Wednesday
			want:          time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),  // that Monday
		},
		{
			name:          "reference on anchor day counts as window start",
			anchorWeekday: 1,
			reference:     time.Date(2025, 3, 10, 23, 59, 0, 0, time.UTC), // Monday
			want:          time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		},
		{
			name:          "anchor later in week wraps to previous week",
			anchorWeekday: 5,
			reference:     time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC), // Wednesday
			want:          time.Date(2025, 3, 7, 0, 0, 0, 0, time.UTC),   // previous Friday
		},
		{
			name:          "sunday anchor",
			anchorWeekday: 0,
			reference:     time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC),
			want:          time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			recurrence := models.Recurrence{Kind: models.RecurrenceWeekly, AnchorWeekday: test.anchorWeekday}
			start, err := WindowStart(recurrence, test.reference)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !start.Equal(test.want) {
				t.Errorf("expected %v, got %v", test.want, start)
			}
		})
	}
}

func TestWindowStart_Monthly(t *testing.T) {
	tests := []struct {
		name      string
		anchorDay int
		reference time.Time
		want      time.Time
	}{
		{
			name:      "after anchor in same month",
			anchorDay: 5,
			reference: time.Date(2025, 3, 20, 10, 0, 0, 0, time.UTC),
			want:      time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "before anchor falls back to previous month",
			anchorDay: 15,
			reference: time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC),
			want:      time.Date(2025, 2, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "on anchor day",
			anchorDay: 15,
			reference: time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC),
			want:      time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "anchor 31 clamps to end of short month",
			anchorDay: 31,
			reference: time.Date(2025, 5, 15, 10, 0, 0, 0, time.UTC),
			want:      time.Date(2025, 4, 30, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "anchor 31 clamps to february",
			anchorDay: 31,
			reference: time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC),
			want:      time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			recurrence := models.Recurrence{Kind: models.RecurrenceMonthly, AnchorDay: test.anchorDay}
			start, err := WindowStart(recurrence, test.reference)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !start.Equal(test.want) {
				t.Errorf("expected %v, got %v", test.want, start)
			}
		})
	}
}

func TestWindowStart_Custom(t *testing.T) {
	customStart := time.Date(2025, 3, 3, 9, 30, 0, 0, time.UTC)
	reference := time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC)

	start, err := WindowStart(models.Recurrence{Kind: models.RecurrenceCustom, CustomStart: &customStart}, reference)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !start.Equal(customStart) {
		t.Errorf("expected pass-through of %v, got %v", customStart, start)
	}
}

func TestWindowStart_InvalidPolicies(t *testing.T) {
	reference := time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		recurrence models.Recurrence
	}{
		{"weekday too high", models.Recurrence{Kind: models.RecurrenceWeekly, AnchorWeekday: 7}},
		{"weekday negative", models.Recurrence{Kind: models.RecurrenceWeekly, AnchorWeekday: -1}},
		{"month day zero", models.Recurrence{Kind: models.RecurrenceMonthly, AnchorDay: 0}},
		{"month day too high", models.Recurrence{Kind: models.RecurrenceMonthly, AnchorDay: 32}},
		{"custom without start", models.Recurrence{Kind: models.RecurrenceCustom}},
		{"unknown kind", models.Recurrence{Kind: "yearly"}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := WindowStart(test.recurrence, reference)
			if !errors.Is(err, ErrInvalidRecurrencePolicy) {
				t.Errorf("expected ErrInvalidRecurrencePolicy, got %v", err)
			}
		})
	}
}

func TestWindowStart_Idempotent(t *testing.T) {
	recurrence := models.Recurrence{Kind: models.RecurrenceWeekly, AnchorWeekday: 1}
	reference := time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC)

	first, err := WindowStart(recurrence, reference)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := WindowStart(recurrence, reference)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !first.Equal(second) {
		t.Errorf("expected identical results, got %v and %v", first, second)
	}
}

func TestPreviousWindowStart(t *testing.T) {
	tests := []struct {
		name       string
		recurrence models.Recurrence
		start      time.Time
		want       time.Time
	}{
		{
			name:       "daily",
			recurrence: models.Recurrence{Kind: models.RecurrenceDaily},
			start:      time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC),
			want:       time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC),
		},
		{
			name:       "weekly",
			recurrence: models.Recurrence{Kind: models.RecurrenceWeekly, AnchorWeekday: 1},
			start:      time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
			want:       time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC),
		},
		{
			name:       "monthly clamp",
			recurrence: models.Recurrence{Kind: models.RecurrenceMonthly, AnchorDay: 31},
			start:      time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC),
			want:       time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			previous, err := PreviousWindowStart(test.recurrence, test.start)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !previous.Equal(test.want) {
				t.Errorf("expected %v, got %v", test.want, previous)
			}
		})
	}
}

func TestPreviousWindowStart_CustomUnsupported(t *testing.T) {
	customStart := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	_, err := PreviousWindowStart(models.Recurrence{Kind: models.RecurrenceCustom, CustomStart: &customStart}, customStart)
	if !errors.Is(err, ErrInvalidRecurrencePolicy) {
		t.Errorf("expected ErrInvalidRecurrencePolicy, got %v", err)
	}
}

func TestNextWindowStart_MonthlyClamp(t *testing.T) {
	recurrence := models.Recurrence{Kind: models.RecurrenceMonthly, AnchorDay: 31}
	start := time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)

	next, err := NextWindowStart(recurrence, start)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2025, 4, 30, 0, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("expected %v, got %v", want, next)
	}
}
