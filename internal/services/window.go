package services

import (
	"fmt"
	"time"

	"github.com/ahmetrasit/rubyroutines-sub003/internal/models"
)

// WindowStart computes the start boundary of the recurrence window that
// contains reference. It is a pure function of its inputs: "now" is always
// threaded in by the caller, never read from a global clock.
func WindowStart(recurrence models.Recurrence, reference time.Time) (time.Time, error) {
	switch recurrence.Kind {
	case models.RecurrenceDaily:
		return dayStart(reference), nil

	case models.RecurrenceWeekly:
		if recurrence.AnchorWeekday < 0 || recurrence.AnchorWeekday > 6 {
			return time.Time{}, fmt.Errorf("%w: weekday anchor %d out of range", ErrInvalidRecurrencePolicy, recurrence.AnchorWeekday)
		}
		daysBack := (int(reference.Weekday()) - recurrence.AnchorWeekday + 7) % 7
		return dayStart(reference.AddDate(0, 0, -daysBack)), nil

	case models.RecurrenceMonthly:
		if recurrence.AnchorDay < 1 || recurrence.AnchorDay > 31 {
			return time.Time{}, fmt.Errorf("%w: day-of-month anchor %d out of range", ErrInvalidRecurrencePolicy, recurrence.AnchorDay)
		}
		anchor := monthlyAnchor(reference.Year(), reference.Month(), recurrence.AnchorDay, reference.Location())
		if anchor.After(dayStart(reference)) {
			previous := reference.AddDate(0, 0, -reference.Day())
			anchor = monthlyAnchor(previous.Year(), previous.Month(), recurrence.AnchorDay, reference.Location())
		}
		return anchor, nil

	case models.RecurrenceCustom:
		if recurrence.CustomStart == nil {
			return time.Time{}, fmt.Errorf("%w: custom recurrence without a window start", ErrInvalidRecurrencePolicy)
		}
		return *recurrence.CustomStart, nil

	default:
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidRecurrencePolicy, recurrence.Kind)
	}
}

// PreviousWindowStart computes the start of the window immediately before
// the one starting at start. Used by streak scanning. Custom windows have no
// derivable predecessor.
func PreviousWindowStart(recurrence models.Recurrence, start time.Time) (time.Time, error) {
	switch recurrence.Kind {
	case models.RecurrenceDaily:
		return start.AddDate(0, 0, -1), nil

	case models.RecurrenceWeekly:
		return start.AddDate(0, 0, -7), nil

	case models.RecurrenceMonthly:
		if recurrence.AnchorDay < 1 || recurrence.AnchorDay > 31 {
			return time.Time{}, fmt.Errorf("%w: day-of-month anchor %d out of range", ErrInvalidRecurrencePolicy, recurrence.AnchorDay)
		}
		previous := start.AddDate(0, 0, -start.Day())
		return monthlyAnchor(previous.Year(), previous.Month(), recurrence.AnchorDay, start.Location()), nil

	default:
		return time.Time{}, fmt.Errorf("%w: no previous window for %q", ErrInvalidRecurrencePolicy, recurrence.Kind)
	}
}

// NextWindowStart computes the start of the window immediately after the
// one starting at start, i.e. the next reset boundary.
func NextWindowStart(recurrence models.Recurrence, start time.Time) (time.Time, error) {
	switch recurrence.Kind {
	case models.RecurrenceDaily:
		return start.AddDate(0, 0, 1), nil

	case models.RecurrenceWeekly:
		return start.AddDate(0, 0, 7), nil

	case models.RecurrenceMonthly:
		if recurrence.AnchorDay < 1 || recurrence.AnchorDay > 31 {
			return time.Time{}, fmt.Errorf("%w: day-of-month anchor %d out of range", ErrInvalidRecurrencePolicy, recurrence.AnchorDay)
		}
		firstOfNext := time.Date(start.Year(), start.Month()+1, 1, 0, 0, 0, 0, start.Location())
		return monthlyAnchor(firstOfNext.Year(), firstOfNext.Month(), recurrence.AnchorDay, start.Location()), nil

	default:
		return time.Time{}, fmt.Errorf("%w: no next window for %q", ErrInvalidRecurrencePolicy, recurrence.Kind)
	}
}

func dayStart(instant time.Time) time.Time {
	return time.Date(instant.Year(), instant.Month(), instant.Day(), 0, 0, 0, 0, instant.Location())
}

// monthlyAnchor clamps the anchor day to the last day of short months, so a
// day-31 anchor resolves to April 30 rather than rolling into May.
func monthlyAnchor(year int, month time.Month, anchorDay int, location *time.Location) time.Time {
	lastDay := time.Date(year, month+1, 0, 0, 0, 0, 0, location).Day()
	day := anchorDay
	if day > lastDay {
		day = lastDay
	}
	return time.Date(year, month, day, 0, 0, 0, 0, location)
}
