package main

import (
	"log/slog"
	"os"

	"github.com/ahmetrasit/rubyroutines-sub003/internal/config"
	"github.com/ahmetrasit/rubyroutines-sub003/internal/database"
	"github.com/ahmetrasit/rubyroutines-sub003/internal/server"
	"github.com/ahmetrasit/rubyroutines-sub003/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	db, err := database.Open(cfg.DatabasePath)
	if err != nil {
		slog.Error("opening database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		slog.Error("running migrations", "error", err)
		os.Exit(1)
	}

	sink := services.NewMemoryInvalidationSink()

	srv := server.New(db, cfg, sink)
	if err := srv.Start(); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}
