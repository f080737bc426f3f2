package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/ahmetrasit/rubyroutines-sub003/internal/middleware"
	"github.com/ahmetrasit/rubyroutines-sub003/internal/models"
	"github.com/ahmetrasit/rubyroutines-sub003/internal/repository"
	"github.com/gorilla/securecookie"
)

// SessionHandler exchanges an API token for a signed session cookie so
// browser and kiosk clients do not hold the raw token past login. Identity
// resolution itself stays with the external auth collaborator that minted
// the token.
type SessionHandler struct {
	tokenRepo repository.APITokenRepository
	codec     *securecookie.SecureCookie
}

func NewSessionHandler(tokenRepo repository.APITokenRepository, codec *securecookie.SecureCookie) *SessionHandler {
	return &SessionHandler{tokenRepo: tokenRepo, codec: codec}
}

func (handler *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var request struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil || request.Token == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "token is required"})
		return
	}

	token, err := handler.tokenRepo.FindByTokenHash(ctx, repository.HashToken(request.Token))
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid token"})
		return
	}
	if token.ExpiresAt != nil && token.ExpiresAt.Before(time.Now()) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "token expired"})
		return
	}

	viewer := models.Viewer{UserID: token.UserID, Role: token.Role, SubjectID: token.SubjectID}
	encoded, err := middleware.EncodeSession(handler.codec, viewer)
	if err != nil {
		slog.Error("encoding session", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create session"})
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    encoded,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusCreated, map[string]string{
		"user_id":    viewer.UserID,
		"role":       string(viewer.Role),
		"subject_id": viewer.SubjectID,
	})
}

func (handler *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:   middleware.SessionCookieName,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
	w.WriteHeader(http.StatusNoContent)
}
