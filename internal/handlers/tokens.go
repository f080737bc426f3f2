package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/ahmetrasit/rubyroutines-sub003/internal/middleware"
	"github.com/ahmetrasit/rubyroutines-sub003/internal/models"
	"github.com/ahmetrasit/rubyroutines-sub003/internal/repository"
	"github.com/go-chi/chi/v5"
)

type TokenHandler struct {
	tokenRepo repository.APITokenRepository
}

func NewTokenHandler(tokenRepo repository.APITokenRepository) *TokenHandler {
	return &TokenHandler{tokenRepo: tokenRepo}
}

// Create mints a role-bearing token. Only teachers can mint, and the raw
// token is returned exactly once.
func (handler *TokenHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	viewer := middleware.GetViewer(ctx)

	var request struct {
		Name      string `json:"name"`
		Role      string `json:"role"`
		SubjectID string `json:"subject_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if request.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	role := models.Role(request.Role)
	switch role {
	case models.RoleTeacher, models.RoleGuardian:
	case models.RoleKiosk:
		if request.SubjectID == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "kiosk tokens require a subject_id"})
			return
		}
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown role"})
		return
	}

	rawToken := generateToken()
	token, err := handler.tokenRepo.Create(ctx, models.APIToken{
		Name:      request.Name,
		TokenHash: repository.HashToken(rawToken),
		UserID:    viewer.UserID,
		Role:      role,
		SubjectID: request.SubjectID,
	})
	if err != nil {
		slog.Error("creating token", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create token"})
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"id":    token.ID,
		"name":  token.Name,
		"role":  token.Role,
		"token": rawToken,
	})
}

func (handler *TokenHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := handler.tokenRepo.Delete(ctx, chi.URLParam(r, "id")); err != nil {
		slog.Error("deleting token", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete token"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
