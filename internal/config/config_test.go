package config

import "testing"

func clearEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"PORT", "ALLOWED_ORIGIN", "DATABASE_URL",
		"REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB",
		"DEFAULT_HOTEL_ID", "RECOMMENDATION_TTL_SECONDS",
		"AUTH_SECRET", "ACCESS_TOKEN_TTL_MINUTES", "MANAGER_PIN",
	}
	for _, key := range keys {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port 8080, got %s", cfg.Port)
	}
	if cfg.HotelID != "main-hotel" {
		t.Fatalf("expected default hotel id, got %s", cfg.HotelID)
	}
	if cfg.RecommendationTTLSeconds != 30 {
		t.Fatalf("expected default recommendation TTL 30, got %d", cfg.RecommendationTTLSeconds)
	}
	if cfg.AccessTokenTTLMinutes != 480 {
		t.Fatalf("expected default token TTL 480, got %d", cfg.AccessTokenTTLMinutes)
	}
	if cfg.DatabaseURL != "" || cfg.RedisAddr != "" {
		t.Fatalf("expected empty backing-store config by default")
	}
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("DEFAULT_HOTEL_ID", "beach-resort")
	t.Setenv("RECOMMENDATION_TTL_SECONDS", "120")
	t.Setenv("ACCESS_TOKEN_TTL_MINUTES", "60")
	t.Setenv("AUTH_SECRET", "  secret-with-padding  ")
	t.Setenv("MANAGER_PIN", " 274951 ")

	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected port override, got %s", cfg.Port)
	}
	if cfg.HotelID != "beach-resort" {
		t.Fatalf("expected hotel id override, got %s", cfg.HotelID)
	}
	if cfg.RecommendationTTLSeconds != 120 {
		t.Fatalf("expected TTL override 120, got %d", cfg.RecommendationTTLSeconds)
	}
	if cfg.AccessTokenTTLMinutes != 60 {
		t.Fatalf("expected token TTL override 60, got %d", cfg.AccessTokenTTLMinutes)
	}
	if cfg.AuthSecret != "secret-with-padding" {
		t.Fatalf("expected trimmed auth secret, got %q", cfg.AuthSecret)
	}
	if cfg.ManagerPIN != "274951" {
		t.Fatalf("expected trimmed manager PIN, got %q", cfg.ManagerPIN)
	}
}

func TestLoadInvalidNumbersFallBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("RECOMMENDATION_TTL_SECONDS", "not-a-number")
	t.Setenv("ACCESS_TOKEN_TTL_MINUTES", "-5")

	cfg := Load()
	if cfg.RecommendationTTLSeconds != 30 {
		t.Fatalf("expected fallback TTL 30, got %d", cfg.RecommendationTTLSeconds)
	}
	if cfg.AccessTokenTTLMinutes != 480 {
		t.Fatalf("expected fallback token TTL 480, got %d", cfg.AccessTokenTTLMinutes)
	}
}

func TestAddress(t *testing.T) {
	cfg := Config{Port: "8081"}
	if got := cfg.Address(); got != ":8081" {
		t.Fatalf("expected :8081, got %s", got)
	}
}
