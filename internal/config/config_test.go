package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ORDER_CUTOFF_HOUR", "")
	cfg := Load()
	if cfg.Port != "8082" {
		t.Fatalf("expected default port 8082, got %s", cfg.Port)
	}
	if cfg.CutoffHour != 15 {
		t.Fatalf("expected default cutoff hour 15, got %d", cfg.CutoffHour)
	}
}

func TestLoadCutoffHourFromEnv(t *testing.T) {
	t.Setenv("ORDER_CUTOFF_HOUR", "12")
	cfg := Load()
	if cfg.CutoffHour != 12 {
		t.Fatalf("expected cutoff hour 12, got %d", cfg.CutoffHour)
	}
}

func TestLoadCutoffHourInvalidFallsBack(t *testing.T) {
	t.Setenv("ORDER_CUTOFF_HOUR", "noon")
	cfg := Load()
	if cfg.CutoffHour != 15 {
		t.Fatalf("expected fallback cutoff hour 15, got %d", cfg.CutoffHour)
	}
}
