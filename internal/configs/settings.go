package configs

import (
	"os"
	"path/filepath"
	"strings"
)

// Settings holds the absolute paths of every file lastwill keeps.
type Settings struct {
	DataDir       string `json:"data_dir"`
	HeartbeatPath string `json:"heartbeat"`
	FlagPath      string `json:"flag"`
	MapDir        string `json:"map_dir"`
	StorageDir    string `json:"storage_dir"`
	ReleaseDir    string `json:"release_dir"`
	WorkDir       string `json:"work_dir"`
	AuditPath     string `json:"audit_log"`
}

// NewSettings derives the state layout from a data directory. A leading
// "~/" is expanded to the home directory.
func NewSettings(dataDir string) Settings {
	if rest, ok := strings.CutPrefix(dataDir, "~/"); ok {
		if home, err := os.UserHomeDir(); err == nil {
			dataDir = filepath.Join(home, rest)
		}
	}
	if abs, err := filepath.Abs(dataDir); err == nil {
		dataDir = abs
	}
	return Settings{
		DataDir:       dataDir,
		HeartbeatPath: filepath.Join(dataDir, "last_seen.txt"),
		FlagPath:      filepath.Join(dataDir, "retrieval_done.flag"),
		MapDir:        filepath.Join(dataDir, "wills"),
		StorageDir:    filepath.Join(dataDir, "secure_storage"),
		ReleaseDir:    filepath.Join(dataDir, "released"),
		WorkDir:       filepath.Join(dataDir, "work"),
		AuditPath:     filepath.Join(dataDir, "audit.jsonl"),
	}
}

// Settings returns the state layout for this configuration.
func (c *Config) Settings() Settings {
	return NewSettings(c.Storage.DataDir)
}

// Ensure creates the data directories with owner-only permissions.
func (s Settings) Ensure() error {
	for _, dir := range []string{s.DataDir, s.MapDir, s.StorageDir, s.ReleaseDir, s.WorkDir} {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return err
		}
	}
	return nil
}
