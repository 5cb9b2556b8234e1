package riverbend

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadEnv_ServiceDiscoveryFile(t *testing.T) {
	dir := t.TempDir()

	discovery := filepath.Join(dir, "services.yaml")
	if err := os.WriteFile(discovery, []byte("session_service:\n  - https://stack.riverbend.dev/api\n"), 0o600); err != nil {
		t.Fatalf("write discovery file: %v", err)
	}
	tokenFile := filepath.Join(dir, "token")
	if err := os.WriteFile(tokenFile, []byte("tok-123\n"), 0o600); err != nil {
		t.Fatalf("write token file: %v", err)
	}

	t.Setenv("RIVERBEND_SERVICE_DISCOVERY", discovery)
	t.Setenv("RIVERBEND_URL", "")
	t.Setenv("RIVERBEND_TOKEN", tokenFile)
	t.Setenv("DEFAULT_CA_PATH", "")

	env, err := LoadEnv()
	if err != nil {
		t.Fatalf("LoadEnv: %v", err)
	}
	if env.Services.SessionService != "https://stack.riverbend.dev/api" {
		t.Fatalf("session service=%q", env.Services.SessionService)
	}
	if env.Token != "tok-123" {
		t.Fatalf("token=%q, want trimmed file contents", env.Token)
	}
}

func TestLoadEnv_URLFallback(t *testing.T) {
	dir := t.TempDir()
	tokenFile := filepath.Join(dir, "token")
	if err := os.WriteFile(tokenFile, []byte("tok"), 0o600); err != nil {
		t.Fatalf("write token file: %v", err)
	}

	t.Setenv("RIVERBEND_SERVICE_DISCOVERY", "")
	t.Setenv("RIVERBEND_URL", "stack.riverbend.dev")
	t.Setenv("RIVERBEND_TOKEN", tokenFile)

	env, err := LoadEnv()
	if err != nil {
		t.Fatalf("LoadEnv: %v", err)
	}
	if env.Services.SessionService != "https://stack.riverbend.dev/api" {
		t.Fatalf("session service=%q", env.Services.SessionService)
	}
}

func TestLoadEnv_MissingConfigFails(t *testing.T) {
	t.Setenv("RIVERBEND_SERVICE_DISCOVERY", "")
	t.Setenv("RIVERBEND_URL", "")
	t.Setenv("RIVERBEND_TOKEN", "")

	if _, err := LoadEnv(); err == nil {
		t.Fatal("expected error with no service configuration")
	}
}

func TestLoadServicesFromDiscoveryFile_MissingKey(t *testing.T) {
	dir := t.TempDir()
	discovery := filepath.Join(dir, "services.yaml")
	if err := os.WriteFile(discovery, []byte("other_service:\n  - https://x\n"), 0o600); err != nil {
		t.Fatalf("write discovery file: %v", err)
	}

	if _, err := loadServicesFromDiscoveryFile(discovery); err == nil {
		t.Fatal("expected error for missing session_service")
	}
}
