package handlers

import (
	"net/http"
	"strconv"

	"github.com/ahmetrasit/rubyroutines-sub003/internal/services"
)

// InvalidationHandler lets UI caches poll the in-process invalidation
// stream with a cursor. What clients do with the signal is their concern.
type InvalidationHandler struct {
	sink *services.MemoryInvalidationSink
}

func NewInvalidationHandler(sink *services.MemoryInvalidationSink) *InvalidationHandler {
	return &InvalidationHandler{sink: sink}
}

func (handler *InvalidationHandler) List(w http.ResponseWriter, r *http.Request) {
	cursor := 0
	if since := r.URL.Query().Get("since"); since != "" {
		parsed, err := strconv.Atoi(since)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "since must be an integer cursor"})
			return
		}
		cursor = parsed
	}

	entries, next := handler.sink.Since(cursor)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"invalidations": entries,
		"cursor":        next,
	})
}
