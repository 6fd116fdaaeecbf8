package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, dir, payload string) string {
	t.Helper()
	path := filepath.Join(dir, "lenspeer.json")
	if err := os.WriteFile(path, []byte(payload), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `{
  "lens": {"auth_token": "token-1"},
  "outreach": {"message": "gm {handle}"}
}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Lens.BaseURL != "https://api-v2.lens.dev" {
		t.Fatalf("unexpected base url: %s", cfg.Lens.BaseURL)
	}
	if cfg.Lens.PageSize != 10 {
		t.Fatalf("unexpected page size: %d", cfg.Lens.PageSize)
	}
	if cfg.Storage.Contacts.Driver != "memory" {
		t.Fatalf("unexpected storage driver: %s", cfg.Storage.Contacts.Driver)
	}
	if cfg.Events.Driver != "none" {
		t.Fatalf("unexpected events driver: %s", cfg.Events.Driver)
	}
	if cfg.Outreach.ReplayMode != "undelivered" {
		t.Fatalf("unexpected replay mode: %s", cfg.Outreach.ReplayMode)
	}
	if cfg.Outreach.CycleDelay() != 600*time.Second {
		t.Fatalf("unexpected cycle delay: %s", cfg.Outreach.CycleDelay())
	}
	if cfg.Outreach.SendPace() != 2*time.Second {
		t.Fatalf("unexpected send pace: %s", cfg.Outreach.SendPace())
	}
	if cfg.Outreach.FetchRetries != 3 {
		t.Fatalf("unexpected fetch retries: %d", cfg.Outreach.FetchRetries)
	}
}

func TestLoadRequiresAuthToken(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `{
  "outreach": {"message": "gm"}
}`)

	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for missing auth token")
	}
}

func TestLoadRequiresMessage(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `{
  "lens": {"auth_token": "token-1"}
}`)

	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for missing message template")
	}
}

func TestLoadResolvesMessageFileRelativeToConfig(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "message.txt"), []byte("gm {handle}\n"), 0o600); err != nil {
		t.Fatalf("write message file: %v", err)
	}
	path := writeConfig(t, dir, `{
  "lens": {"auth_token": "token-1"},
  "outreach": {"message_file": "message.txt"}
}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Outreach.Message != "gm {handle}" {
		t.Fatalf("unexpected message: %q", cfg.Outreach.Message)
	}
}

func TestResolveAuthTokenPrefersInlineValue(t *testing.T) {
	t.Setenv("LENSPEER_TEST_TOKEN", "env-token")

	cfg := Config{}
	cfg.Lens.AuthToken = "inline-token"
	cfg.Lens.AuthTokenEnv = "LENSPEER_TEST_TOKEN"
	if got := cfg.ResolveAuthToken(); got != "inline-token" {
		t.Fatalf("inline token must win, got %q", got)
	}

	cfg.Lens.AuthToken = ""
	if got := cfg.ResolveAuthToken(); got != "env-token" {
		t.Fatalf("expected env token, got %q", got)
	}
}

func TestValidateRejectsUnknownDrivers(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `{
  "lens": {"auth_token": "token-1"},
  "outreach": {"message": "gm"},
  "storage": {"contacts": {"driver": "sqlite"}}
}`)

	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for unsupported storage driver")
	}
}

func TestValidateRejectsUnknownReplayMode(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `{
  "lens": {"auth_token": "token-1"},
  "outreach": {"message": "gm", "replay_mode": "everything"}
}`)

	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for unsupported replay mode")
	}
}
