package config

import (
	"os"
	"path/filepath"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"CONFIG_FILE", "DATABASE_URL", "JWT_SECRET", "JWT_EXPIRY_HOURS",
		"GOOGLE_CLIENT_ID", "GOOGLE_CLIENT_SECRET", "GOOGLE_REDIRECT_URI", "DRIVE_FOLDER_ID",
		"GOOGLE_AUTH_URL", "GOOGLE_TOKEN_URL", "GOOGLE_API_BASE_URL",
		"FRONTEND_ORIGIN", "STORAGE_PATH", "HOST", "PORT", "LOG_LEVEL", "LOG_FORMAT",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.DatabaseURL != DefaultDatabaseURL {
		t.Errorf("DatabaseURL = %q, want %q", cfg.DatabaseURL, DefaultDatabaseURL)
	}
	if cfg.JWTExpiryHours != 24 {
		t.Errorf("JWTExpiryHours = %d, want 24", cfg.JWTExpiryHours)
	}
	if cfg.FrontendOrigin != DefaultFrontendOrigin {
		t.Errorf("FrontendOrigin = %q", cfg.FrontendOrigin)
	}
	if cfg.Addr() != "127.0.0.1:8080" {
		t.Errorf("Addr() = %q", cfg.Addr())
	}
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() should fail without JWT_SECRET")
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "dataroom.yaml")
	content := `
database_url: file.db
jwt_secret: from-file
jwt_expiry_hours: 2
google:
  client_id: file-client
  drive_folder_id: folder-1
frontend_origin: https://app.example.com/
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("JWT_SECRET", "from-env")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.JWTSecret != "from-env" {
		t.Errorf("JWTSecret = %q, want env value", cfg.JWTSecret)
	}
	if cfg.DatabaseURL != "file.db" || cfg.JWTExpiryHours != 2 {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.Google.ClientID != "file-client" || cfg.Google.DriveFolderID != "folder-1" {
		t.Errorf("google values not applied: %+v", cfg.Google)
	}
	if cfg.FrontendOrigin != "https://app.example.com" {
		t.Errorf("FrontendOrigin should be trimmed, got %q", cfg.FrontendOrigin)
	}

	origins := cfg.AllowedOrigins()
	if len(origins) != 3 || origins[0] != "https://app.example.com" {
		t.Errorf("AllowedOrigins() = %v", origins)
	}
}

func TestLoad_InvalidExpiry(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_EXPIRY_HOURS", "soon")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for non-numeric JWT_EXPIRY_HOURS")
	}
}
