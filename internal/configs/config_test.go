package configs

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	lerrors "github.com/PolarWolf314/lastwill/internal/errors"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
[user]
id = "alice@example.com"

[storage]
data_dir = "/srv/lastwill"
`)

	config, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if config.User.ID != "alice@example.com" {
		t.Errorf("Expected user id alice@example.com, got %q", config.User.ID)
	}
	if config.User.KeyDerivation != KeyDerivationHKDF {
		t.Errorf("Expected default key derivation hkdf, got %q", config.User.KeyDerivation)
	}
	if config.Switch.GracePeriod.Duration != 14*24*time.Hour {
		t.Errorf("Expected default grace period 336h, got %s", config.Switch.GracePeriod)
	}
	if config.Switch.PollInterval.Duration != 5*time.Second {
		t.Errorf("Expected default poll interval 5s, got %s", config.Switch.PollInterval)
	}
	if config.Storage.SplitDepth != 1 || config.Storage.Compression != "zstd" {
		t.Errorf("Unexpected storage defaults: %+v", config.Storage)
	}
	if config.Server.Addr != ":8000" {
		t.Errorf("Expected default addr :8000, got %q", config.Server.Addr)
	}
}

func TestLoad_FullFile(t *testing.T) {
	path := writeConfig(t, `
[user]
id = "alice"
key_derivation = "legacy"

[nominee]
email = "bob@example.com"

[switch]
grace_period = "90m"
poll_interval = "1m"
notify_timeout = "10s"
claim_timeout = "5m"

[storage]
data_dir = "/srv/lastwill"
split_depth = 3
compression = "lz4"

[server]
addr = "127.0.0.1:9000"
public_url = "https://will.example.com"

[smtp]
host = "smtp.example.com"
port = 465
username = "alice"
from = "alice@example.com"
`)

	config, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if config.Switch.GracePeriod.Duration != 90*time.Minute {
		t.Errorf("Expected grace period 90m, got %s", config.Switch.GracePeriod)
	}
	if config.Storage.SplitDepth != 3 || config.Storage.Compression != "lz4" {
		t.Errorf("Unexpected storage: %+v", config.Storage)
	}
	if !config.SMTP.Enabled() || config.SMTP.Port != 465 {
		t.Errorf("Unexpected smtp: %+v", config.SMTP)
	}
	if config.SMTP.PasswordEnv != "LASTWILL_SMTP_PASSWORD" {
		t.Errorf("Expected default smtp password env, got %q", config.SMTP.PasswordEnv)
	}
}

func TestLoad_Errors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); !errors.Is(err, lerrors.ErrConfigNotFound) {
		t.Errorf("Expected ErrConfigNotFound, got %v", err)
	}

	tests := map[string]string{
		"malformed":       "[user\nid = ",
		"unknown key":     "[user]\nid = \"a\"\ncolour = \"blue\"\n",
		"missing user":    "[storage]\ndata_dir = \"/x\"\n",
		"bad duration":    "[user]\nid = \"a\"\n[switch]\ngrace_period = \"two weeks\"\n",
		"zero grace":      "[user]\nid = \"a\"\n[switch]\ngrace_period = \"0s\"\n",
		"deep split":      "[user]\nid = \"a\"\n[storage]\nsplit_depth = 9\n",
		"bad compression": "[user]\nid = \"a\"\n[storage]\ncompression = \"gzip\"\n",
		"bad derivation":  "[user]\nid = \"a\"\nkey_derivation = \"xor\"\n",
		"bad nominee":     "[user]\nid = \"a\"\n[nominee]\nemail = \"not-an-email\"\n",
		"smtp no port":    "[user]\nid = \"a\"\n[smtp]\nhost = \"smtp.example.com\"\nfrom = \"a@example.com\"\n",
		"bad recipient":   "[user]\nid = \"a\"\n[seal]\nage_recipient = \"age1nope\"\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, content)); !errors.Is(err, lerrors.ErrInvalidConfig) {
				t.Errorf("Expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lastwill", "config.toml")
	config := Default()
	config.User.ID = "alice@example.com"
	config.Nominee.Email = "bob@example.com"
	config.Switch.GracePeriod = Duration{48 * time.Hour}
	config.Storage.DataDir = "/srv/lastwill"

	if err := Save(path, config); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), `grace_period = "48h0m0s"`) {
		t.Errorf("Durations should be written as strings:\n%s", data)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Switch.GracePeriod.Duration != 48*time.Hour || loaded.Nominee.Email != "bob@example.com" {
		t.Errorf("Round trip lost data: %+v", loaded)
	}
}

func TestPath(t *testing.T) {
	t.Setenv(EnvConfig, "/etc/lastwill.toml")

	if got, _ := Path("/explicit.toml"); got != "/explicit.toml" {
		t.Errorf("Expected explicit override, got %q", got)
	}
	if got, _ := Path(""); got != "/etc/lastwill.toml" {
		t.Errorf("Expected env override, got %q", got)
	}

	t.Setenv(EnvConfig, "")
	t.Setenv("XDG_CONFIG_HOME", "/cfg")
	got, err := Path("")
	if err != nil {
		t.Fatalf("Path failed: %v", err)
	}
	if got != filepath.Join("/cfg", "lastwill", "config.toml") {
		t.Errorf("Expected XDG config path, got %q", got)
	}
}

func TestDefaultDataDir(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/data")
	if got := DefaultDataDir(); got != filepath.Join("/data", "lastwill") {
		t.Errorf("Expected /data/lastwill, got %q", got)
	}
}
