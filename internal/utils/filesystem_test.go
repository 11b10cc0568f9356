package utils

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func TestWriteFileAtomic_ReplacesContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "last_seen.txt")

	if err := WriteFileAtomic(path, []byte("first"), 0600); err != nil {
		t.Fatalf("first write failed: %v", err)
	}
	if err := WriteFileAtomic(path, []byte("second"), 0600); err != nil {
		t.Fatalf("second write failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if string(data) != "second" {
		t.Errorf("expected %q, got %q", "second", data)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat failed: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("expected mode 0600, got %o", info.Mode().Perm())
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir failed: %v", err)
	}
	for _, entry := range entries {
		if strings.Contains(entry.Name(), ".tmp-") {
			t.Errorf("temporary file left behind: %s", entry.Name())
		}
	}
}

func TestWriteFileAtomic_MissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "file")
	if err := WriteFileAtomic(path, []byte("x"), 0600); err == nil {
		t.Fatal("expected error for missing parent directory")
	}
}

func TestCreateExclusive_OnlyOneWinner(t *testing.T) {
	path := filepath.Join(t.TempDir(), "retrieval_done.flag")

	const workers = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	created := 0

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := CreateExclusive(path, []byte("executed"), 0600)
			if err != nil {
				t.Errorf("CreateExclusive failed: %v", err)
				return
			}
			if ok {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if created != 1 {
		t.Fatalf("expected exactly one creator, got %d", created)
	}
}

func TestFileExistsAndRemoveIfExists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "marker")

	exists, err := FileExists(path)
	if err != nil || exists {
		t.Fatalf("expected missing file, got exists=%t err=%v", exists, err)
	}
	if err := RemoveIfExists(path); err != nil {
		t.Fatalf("RemoveIfExists on missing file failed: %v", err)
	}

	if err := os.WriteFile(path, []byte("x"), 0600); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	exists, err = FileExists(path)
	if err != nil || !exists {
		t.Fatalf("expected existing file, got exists=%t err=%v", exists, err)
	}
	if err := RemoveIfExists(path); err != nil {
		t.Fatalf("RemoveIfExists failed: %v", err)
	}
	if exists, _ := FileExists(path); exists {
		t.Error("file should be gone")
	}
}
