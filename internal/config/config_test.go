package config_test

import (
	"testing"

	"github.com/ahmetrasit/rubyroutines-sub003/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SESSION_SECRET", "test-secret")
	t.Setenv("DATABASE_PATH", "")
	t.Setenv("PORT", "")
	t.Setenv("STREAK_LOOKBACK", "")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DatabasePath != "./data/rubyroutines.db" {
		t.Errorf("unexpected database path: %s", cfg.DatabasePath)
	}
	if cfg.Port != "8080" {
		t.Errorf("unexpected port: %s", cfg.Port)
	}
	if cfg.StreakLookback != 12 {
		t.Errorf("unexpected streak lookback: %d", cfg.StreakLookback)
	}
}

func TestLoad_RequiresSessionSecret(t *testing.T) {
	t.Setenv("SESSION_SECRET", "")

	if _, err := config.Load(); err == nil {
		t.Error("expected error without SESSION_SECRET")
	}
}

func TestLoad_RejectsBadStreakLookback(t *testing.T) {
	t.Setenv("SESSION_SECRET", "test-secret")

	for _, value := range []string{"abc", "0", "-3"} {
		t.Setenv("STREAK_LOOKBACK", value)
		if _, err := config.Load(); err == nil {
			t.Errorf("expected error for STREAK_LOOKBACK=%q", value)
		}
	}
}
