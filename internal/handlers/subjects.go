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

type SubjectHandler struct {
	subjectRepo repository.SubjectRepository
}

func NewSubjectHandler(subjectRepo repository.SubjectRepository) *SubjectHandler {
	return &SubjectHandler{subjectRepo: subjectRepo}
}

func (handler *SubjectHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	viewer := middleware.GetViewer(ctx)

	subjects, err := handler.subjectRepo.FindByOwner(ctx, viewer.UserID)
	if err != nil {
		slog.Error("finding subjects", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load subjects"})
		return
	}
	writeJSON(w, http.StatusOK, subjects)
}

func (handler *SubjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	subject, err := handler.subjectRepo.FindByID(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "subject not found"})
		return
	}
	writeJSON(w, http.StatusOK, subject)
}

func (handler *SubjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	viewer := middleware.GetViewer(ctx)

	var request struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if request.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	subject, err := handler.subjectRepo.Create(ctx, models.Subject{
		OwnerUserID: viewer.UserID,
		Name:        request.Name,
	})
	if err != nil {
		slog.Error("creating subject", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create subject"})
		return
	}
	writeJSON(w, http.StatusCreated, subject)
}

func (handler *SubjectHandler) Archive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := handler.subjectRepo.Archive(ctx, chi.URLParam(r, "id")); err != nil {
		slog.Error("archiving subject", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to archive subject"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
