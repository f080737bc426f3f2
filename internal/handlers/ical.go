package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/ahmetrasit/rubyroutines-sub003/internal/models"
	"github.com/ahmetrasit/rubyroutines-sub003/internal/repository"
	"github.com/ahmetrasit/rubyroutines-sub003/internal/services"
	ical "github.com/arran4/golang-ical"
)

// ICalHandler exports upcoming reset boundaries of each routine as a
// calendar feed, so a classroom display or phone calendar can show when
// windows roll over. Token-gated; only teacher tokens see restricted
// routines, same predicate as everywhere else.
type ICalHandler struct {
	routineRepo repository.RoutineRepository
	tokenRepo   repository.APITokenRepository
}

func NewICalHandler(routineRepo repository.RoutineRepository, tokenRepo repository.APITokenRepository) *ICalHandler {
	return &ICalHandler{routineRepo: routineRepo, tokenRepo: tokenRepo}
}

func (handler *ICalHandler) Feed(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tokenString := r.URL.Query().Get("token")
	if tokenString == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	token, err := handler.tokenRepo.FindByTokenHash(ctx, repository.HashToken(tokenString))
	if err != nil || (token.ExpiresAt != nil && token.ExpiresAt.Before(time.Now())) {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	viewer := models.Viewer{UserID: token.UserID, Role: token.Role, SubjectID: token.SubjectID}

	routines, err := handler.routineRepo.FindAll(ctx, repository.RoutineFilter{OwnerUserID: &token.UserID})
	if err != nil {
		slog.Error("finding routines for ical", "error", err)
		http.Error(w, "Error", http.StatusInternalServerError)
		return
	}

	now := time.Now()
	calendar := ical.NewCalendar()
	calendar.SetMethod(ical.MethodPublish)
	calendar.SetProductId("-//rubyroutines//reset schedule//EN")

	for _, routine := range services.VisibleRoutines(routines, viewer) {
		windowStart, err := services.WindowStart(routine.Recurrence, now)
		if err != nil {
			slog.Warn("skipping routine with unresolvable window", "routine", routine.ID, "error", err)
			continue
		}

		// Custom windows have no derivable next boundary; show the
		// current window only.
		nextStart, nextErr := services.NextWindowStart(routine.Recurrence, windowStart)

		event := calendar.AddEvent(routine.ID + "@rubyroutines")
		event.SetSummary(routine.Name + " window")
		event.SetStartAt(windowStart)
		if nextErr == nil {
			event.SetEndAt(nextStart)
		}
		event.SetDtStampTime(now)
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename=rubyroutines.ics")
	if _, err := w.Write([]byte(calendar.Serialize())); err != nil {
		slog.Error("writing ical feed", "error", err)
	}
}
