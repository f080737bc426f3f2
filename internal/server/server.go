package server

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/ahmetrasit/rubyroutines-sub003/internal/config"
	"github.com/ahmetrasit/rubyroutines-sub003/internal/handlers"
	"github.com/ahmetrasit/rubyroutines-sub003/internal/middleware"
	"github.com/ahmetrasit/rubyroutines-sub003/internal/repository"
	"github.com/ahmetrasit/rubyroutines-sub003/internal/services"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

type Server struct {
	router *chi.Mux
	config config.Config
}

func New(database *sql.DB, cfg config.Config, sink *services.MemoryInvalidationSink) *Server {
	subjectRepo := repository.NewSubjectRepository(database)
	routineRepo := repository.NewRoutineRepository(database)
	taskRepo := repository.NewTaskRepository(database)
	completionRepo := repository.NewCompletionRepository(database)
	goalRepo := repository.NewGoalRepository(database)
	tokenRepo := repository.NewAPITokenRepository(database)

	goalService := services.NewGoalService(goalRepo, subjectRepo, taskRepo, routineRepo, completionRepo, cfg.StreakLookback)
	completionService := services.NewCompletionService(taskRepo, routineRepo, subjectRepo, completionRepo, goalService, sink)

	sessionCodec := middleware.NewSessionCodec(cfg.SessionSecret)

	subjectHandler := handlers.NewSubjectHandler(subjectRepo)
	routineHandler := handlers.NewRoutineHandler(routineRepo, taskRepo)
	goalHandler := handlers.NewGoalHandler(goalRepo, goalService)
	checkinHandler := handlers.NewCheckinHandler(completionService, subjectRepo)
	sessionHandler := handlers.NewSessionHandler(tokenRepo, sessionCodec)
	tokenHandler := handlers.NewTokenHandler(tokenRepo)
	invalidationHandler := handlers.NewInvalidationHandler(sink)
	icalHandler := handlers.NewICalHandler(routineRepo, tokenRepo)

	router := chi.NewRouter()

	router.Use(chimiddleware.Logger)
	router.Use(chimiddleware.Recoverer)
	router.Use(chimiddleware.Compress(5))

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	router.Post("/session", sessionHandler.Create)
	router.Delete("/session", sessionHandler.Delete)

	router.Get("/ical", icalHandler.Feed)

	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireViewer(tokenRepo, sessionCodec))

		r.Get("/api/routines", routineHandler.List)
		r.Get("/api/routines/{id}", routineHandler.Get)

		r.Get("/api/subjects", subjectHandler.List)
		r.Get("/api/subjects/{id}", subjectHandler.Get)

		r.Get("/api/goals", goalHandler.List)
		r.Get("/api/goals/{id}", goalHandler.Get)
		r.Get("/api/goals/{id}/progress", goalHandler.Progress)

		r.Get("/api/checkin", checkinHandler.Grid)
		r.Post("/api/checkin/complete", checkinHandler.Complete)
		r.Post("/api/checkin/undo", checkinHandler.Undo)

		r.Get("/api/invalidations", invalidationHandler.List)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireTeacher)

			r.Post("/api/routines", routineHandler.Create)
			r.Post("/api/routines/{id}/archive", routineHandler.Archive)
			r.Post("/api/routines/{id}/subjects", routineHandler.AssignSubjects)
			r.Post("/api/routines/{id}/tasks", routineHandler.CreateTask)
			r.Post("/api/routines/{id}/tasks/{taskID}/archive", routineHandler.ArchiveTask)

			r.Post("/api/subjects", subjectHandler.Create)
			r.Post("/api/subjects/{id}/archive", subjectHandler.Archive)

			r.Post("/api/goals", goalHandler.Create)
			r.Post("/api/goals/{id}/archive", goalHandler.Archive)

			r.Post("/api/tokens", tokenHandler.Create)
			r.Delete("/api/tokens/{id}", tokenHandler.Delete)
		})
	})

	return &Server{
		router: router,
		config: cfg,
	}
}

func (server *Server) Handler() http.Handler {
	return server.router
}

func (server *Server) Start() error {
	address := ":" + server.config.Port
	slog.Info("starting server", "address", address)
	return http.ListenAndServe(address, server.router)
}
