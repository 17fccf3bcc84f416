package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Port != "8081" {
		t.Errorf("port: got %q, want %q", cfg.Port, "8081")
	}
	if cfg.SweepInterval != 5*time.Minute {
		t.Errorf("sweep interval: got %v, want 5m", cfg.SweepInterval)
	}
	if cfg.AccessTokenTTL != 15*time.Minute {
		t.Errorf("access ttl: got %v, want 15m", cfg.AccessTokenTTL)
	}
	if cfg.Storage.MaxUploadBytes != 10<<20 {
		t.Errorf("max upload bytes: got %d", cfg.Storage.MaxUploadBytes)
	}
	if cfg.Location != time.UTC {
		t.Errorf("location: got %v, want UTC", cfg.Location)
	}
	if cfg.SMTP.Enabled() {
		t.Error("smtp should be disabled without a host")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("PORT", "9090")
	t.Setenv("SWEEP_INTERVAL", "30s")
	t.Setenv("BUSINESS_TIMEZONE", "Europe/Rome")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("SMTP_HOST", "smtp.example.com")
	t.Setenv("SMTP_PORT", "2525")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Port != "9090" {
		t.Errorf("port: got %q", cfg.Port)
	}
	if cfg.SweepInterval != 30*time.Second {
		t.Errorf("sweep interval: got %v", cfg.SweepInterval)
	}
	if cfg.Location.String() != "Europe/Rome" {
		t.Errorf("location: got %v", cfg.Location)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example" {
		t.Errorf("cors origins: got %v", cfg.CORSOrigins)
	}
	if !cfg.SMTP.Enabled() || cfg.SMTP.Port != 2525 {
		t.Errorf("smtp: got %+v", cfg.SMTP)
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "admin_email: owner@bakery.example\noutbox_batch_size: 50\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.AdminEmail != "owner@bakery.example" {
		t.Errorf("admin email: got %q", cfg.AdminEmail)
	}
	if cfg.OutboxBatchSize != 50 {
		t.Errorf("batch size: got %d", cfg.OutboxBatchSize)
	}
}

func TestLoadRejectsUnknownTimezone(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("BUSINESS_TIMEZONE", "Mars/Olympus")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown timezone")
	}
}
