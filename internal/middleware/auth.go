package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/ahmetrasit/rubyroutines-sub003/internal/models"
	"github.com/ahmetrasit/rubyroutines-sub003/internal/repository"
	"github.com/gorilla/securecookie"
)

type contextKey string

const ViewerContextKey contextKey = "viewer"

const SessionCookieName = "rubyroutines_session"

// sessionPayload is what the signed session cookie carries: the viewer
// identity the auth collaborator resolved when the session was created.
type sessionPayload struct {
	UserID    string `json:"user_id"`
	Role      string `json:"role"`
	SubjectID string `json:"subject_id"`
}

// NewSessionCodec builds the securecookie codec used for viewer sessions.
func NewSessionCodec(secret string) *securecookie.SecureCookie {
	codec := securecookie.New([]byte(secret), nil)
	codec.SetSerializer(securecookie.JSONEncoder{})
	return codec
}

// EncodeSession signs a viewer into a session cookie value.
func EncodeSession(codec *securecookie.SecureCookie, viewer models.Viewer) (string, error) {
	return codec.Encode(SessionCookieName, sessionPayload{
		UserID:    viewer.UserID,
		Role:      string(viewer.Role),
		SubjectID: viewer.SubjectID,
	})
}

// RequireViewer resolves the viewer from either a Bearer API token or the
// signed session cookie. The engine itself never sees credentials, only the
// resolved viewer.
func RequireViewer(tokenRepo repository.APITokenRepository, codec *securecookie.SecureCookie) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if viewer, ok := viewerFromToken(r, tokenRepo); ok {
				next.ServeHTTP(w, r.WithContext(withViewer(r.Context(), viewer)))
				return
			}
			if viewer, ok := viewerFromSession(r, codec); ok {
				next.ServeHTTP(w, r.WithContext(withViewer(r.Context(), viewer)))
				return
			}
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
		})
	}
}

// RequireTeacher gates privileged routes on the teacher role.
func RequireTeacher(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		viewer := GetViewer(r.Context())
		if viewer.Role != models.RoleTeacher {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func viewerFromToken(r *http.Request, tokenRepo repository.APITokenRepository) (models.Viewer, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return models.Viewer{}, false
	}

	tokenString := strings.TrimPrefix(authHeader, "Bearer ")
	token, err := tokenRepo.FindByTokenHash(r.Context(), repository.HashToken(tokenString))
	if err != nil {
		return models.Viewer{}, false
	}
	if token.ExpiresAt != nil && token.ExpiresAt.Before(time.Now()) {
		return models.Viewer{}, false
	}

	return models.Viewer{
		UserID:    token.UserID,
		Role:      token.Role,
		SubjectID: token.SubjectID,
	}, true
}

func viewerFromSession(r *http.Request, codec *securecookie.SecureCookie) (models.Viewer, bool) {
	if codec == nil {
		return models.Viewer{}, false
	}
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return models.Viewer{}, false
	}

	var payload sessionPayload
	if err := codec.Decode(SessionCookieName, cookie.Value, &payload); err != nil {
		return models.Viewer{}, false
	}
	return models.Viewer{
		UserID:    payload.UserID,
		Role:      models.Role(payload.Role),
		SubjectID: payload.SubjectID,
	}, true
}

func withViewer(ctx context.Context, viewer models.Viewer) context.Context {
	return context.WithValue(ctx, ViewerContextKey, viewer)
}

func GetViewer(ctx context.Context) models.Viewer {
	viewer, _ := ctx.Value(ViewerContextKey).(models.Viewer)
	return viewer
}
