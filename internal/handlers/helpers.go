package handlers

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"

	"github.com/ahmetrasit/rubyroutines-sub003/internal/services"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeEngineError surfaces the specific error kind to the caller. The kind
// is part of the contract: a rejected completion must say "counter already
// at maximum", not just "failed".
func writeEngineError(w http.ResponseWriter, err error) {
	kind := services.ErrorKind(err)
	writeJSON(w, statusForKind(kind), map[string]string{
		"error": kind,
		"detail": err.Error(),
	})
}

func statusForKind(kind string) int {
	switch kind {
	case "invalid_value", "missing_value", "invalid_recurrence_policy", "unknown_task_type":
		return http.StatusBadRequest
	case "access_denied":
		return http.StatusForbidden
	case "completion_not_found":
		return http.StatusNotFound
	case "task_already_done", "counter_exhausted", "window_closed", "cell_pending":
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func generateToken() string {
	bytes := make([]byte, 32)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}
