package configs

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewSettings(t *testing.T) {
	s := NewSettings("/srv/lastwill")

	want := map[string]string{
		s.HeartbeatPath: "/srv/lastwill/last_seen.txt",
		s.FlagPath:      "/srv/lastwill/retrieval_done.flag",
		s.MapDir:        "/srv/lastwill/wills",
		s.StorageDir:    "/srv/lastwill/secure_storage",
		s.ReleaseDir:    "/srv/lastwill/released",
		s.WorkDir:       "/srv/lastwill/work",
		s.AuditPath:     "/srv/lastwill/audit.jsonl",
	}
	for got, expected := range want {
		if got != filepath.FromSlash(expected) {
			t.Errorf("Expected %s, got %s", expected, got)
		}
	}
}

func TestNewSettings_ExpandsHomeAndRelative(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	if got := NewSettings("~/will").DataDir; got != filepath.Join(home, "will") {
		t.Errorf("Expected home expansion, got %q", got)
	}
	if got := NewSettings("relative").DataDir; !filepath.IsAbs(got) {
		t.Errorf("Expected absolute data dir, got %q", got)
	}
}

func TestSettingsEnsure(t *testing.T) {
	s := NewSettings(filepath.Join(t.TempDir(), "data"))
	if err := s.Ensure(); err != nil {
		t.Fatalf("Ensure failed: %v", err)
	}
	for _, dir := range []string{s.DataDir, s.MapDir, s.StorageDir, s.ReleaseDir, s.WorkDir} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Errorf("Expected directory %s", dir)
			continue
		}
		if info.Mode().Perm() != 0700 {
			t.Errorf("Expected %s to be 0700, got %o", dir, info.Mode().Perm())
		}
	}
}
