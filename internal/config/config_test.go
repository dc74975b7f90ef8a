package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, key := range []string{"HTTP_ADDR", "CART_STORAGE", "VAT_RATE", "CART_TTL_HOURS", "CORS_ORIGINS", "APP_URL"} {
		t.Setenv(key, "")
	}
	cfg := FromEnv()
	if cfg.HTTPAddr != ":8080" || cfg.CartStorage != CartStoragePostgres || cfg.VATRate != 20 {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.CartTTL != 30*24*time.Hour {
		t.Fatalf("unexpected ttl %v", cfg.CartTTL)
	}
	if len(cfg.CORSAllowedOrigins) != 1 || cfg.CORSAllowedOrigins[0] != "http://localhost:3000" {
		t.Fatalf("unexpected origins %v", cfg.CORSAllowedOrigins)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("CART_STORAGE", "Redis")
	t.Setenv("VAT_RATE", "5")
	t.Setenv("PERSIST_TIMEOUT_MS", "250")
	t.Setenv("CORS_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("APP_URL", "https://gallery.example/")
	t.Setenv("CART_CACHE_SIZE", "not-a-number")

	cfg := FromEnv()
	if cfg.CartStorage != CartStorageRedis || cfg.VATRate != 5 {
		t.Fatalf("unexpected overrides %+v", cfg)
	}
	if cfg.PersistTimeout != 250*time.Millisecond {
		t.Fatalf("unexpected persist timeout %v", cfg.PersistTimeout)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected origins %v", cfg.CORSAllowedOrigins)
	}
	if cfg.AppURL != "https://gallery.example" {
		t.Fatalf("expected trailing slash trimmed, got %s", cfg.AppURL)
	}
	if cfg.CartCacheSize != 1024 {
		t.Fatalf("expected invalid int to fall back, got %d", cfg.CartCacheSize)
	}
}

func TestLoadReadsDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(path, []byte("STRIPE_SECRET_KEY=sk_test_dotenv\n"), 0o600); err != nil {
		t.Fatalf("write env: %v", err)
	}
	t.Setenv("STRIPE_SECRET_KEY", "")
	os.Unsetenv("STRIPE_SECRET_KEY")

	cfg := Load(path)
	if cfg.StripeSecretKey != "sk_test_dotenv" {
		t.Fatalf("expected key from .env, got %q", cfg.StripeSecretKey)
	}
}
