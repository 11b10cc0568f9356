package audit

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestLog_CreatesFile(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "audit.jsonl")

	Log(logPath, Entry{User: "alice", Operation: "store", Source: "/home/alice/will.zip"})

	info, err := os.Stat(logPath)
	if err != nil {
		t.Fatalf("Audit log file was not created: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("Audit log mode = %o, want 0600", info.Mode().Perm())
	}
}

func TestLog_AppendsEntries(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "audit.jsonl")

	Log(logPath, Entry{User: "alice", Operation: "store"})
	Log(logPath, Entry{User: "alice", Operation: "ping"})
	Log(logPath, Entry{User: "alice", Operation: "release", Status: "EXECUTED"})

	entries, err := ReadEntries(logPath)
	if err != nil {
		t.Fatalf("ReadEntries failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(entries))
	}
	for i, op := range []string{"store", "ping", "release"} {
		if entries[i].Operation != op {
			t.Errorf("entries[%d].Operation = %q, want %q", i, entries[i].Operation, op)
		}
	}
}

func TestLog_ConcurrentAppendsStayLineAtomic(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "audit.jsonl")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			Log(logPath, Entry{User: "alice", Operation: "status", Message: strings.Repeat("x", 200)})
		}()
	}
	wg.Wait()

	entries, err := ReadEntries(logPath)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 20 {
		t.Errorf("Expected 20 entries, got %d", len(entries))
	}
}

func TestLog_TimestampFormat(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "audit.jsonl")
	Log(logPath, Entry{User: "alice", Operation: "ping"})

	entries, err := ReadEntries(logPath)
	if err != nil || len(entries) != 1 {
		t.Fatalf("ReadEntries = %v, %v", entries, err)
	}
	ts := entries[0].Timestamp
	if _, err := time.Parse("2006-01-02T15:04:05.000000Z", ts); err != nil {
		t.Errorf("Timestamp %q has unexpected format: %v", ts, err)
	}
}

func TestLog_OmitsEmptyFields(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "audit.jsonl")
	Log(logPath, Entry{User: "alice", Operation: "ping"})

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("Failed to read audit log: %v", err)
	}
	line := strings.TrimSpace(string(data))

	var raw map[string]any
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		t.Fatalf("Entry is not valid JSON: %v", err)
	}
	for _, field := range []string{"source", "output", "blake3", "fragments", "map", "locator"} {
		if _, ok := raw[field]; ok {
			t.Errorf("Empty %s field should be omitted", field)
		}
	}
}

func TestLog_EmptyPath(t *testing.T) {
	// Should silently do nothing.
	Log("", Entry{User: "alice", Operation: "ping"})
}

func TestLog_UnwritablePath(t *testing.T) {
	// Best effort: a missing directory must not panic.
	Log(filepath.Join(t.TempDir(), "missing", "audit.jsonl"), Entry{Operation: "ping"})
}

func TestLogWithUser(t *testing.T) {
	entry := LogWithUser("store", "alice@example.com")
	if entry.Operation != "store" || entry.User != "alice@example.com" {
		t.Errorf("LogWithUser() = %+v", entry)
	}
}

func TestDigest(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	b := filepath.Join(dir, "b")
	if err := os.WriteFile(a, []byte("estate"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(b, []byte("estate"), 0600); err != nil {
		t.Fatal(err)
	}

	da, err := Digest(a)
	if err != nil {
		t.Fatalf("Digest failed: %v", err)
	}
	db, _ := Digest(b)
	if da != db {
		t.Error("identical files produced different digests")
	}
	if len(da) != 64 {
		t.Errorf("digest length = %d, want 64 hex characters", len(da))
	}

	if err := os.WriteFile(b, []byte("estatE"), 0600); err != nil {
		t.Fatal(err)
	}
	if db, _ = Digest(b); da == db {
		t.Error("different files produced the same digest")
	}

	if _, err := Digest(filepath.Join(dir, "missing")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestParseEntries_ValidData(t *testing.T) {
	data := []byte(`{"ts":"2024-01-15T10:30:00.123456Z","user":"alice@example.com","op":"store"}
{"ts":"2024-01-15T10:35:00.456789Z","user":"alice@example.com","op":"release","status":"EXECUTED"}
`)

	entries, err := ParseEntries(data)
	if err != nil {
		t.Fatalf("ParseEntries failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}
	if entries[1].Status != "EXECUTED" {
		t.Errorf("Expected status EXECUTED, got %s", entries[1].Status)
	}
}

func TestParseEntries_SkipsMalformedLines(t *testing.T) {
	data := []byte(`{"ts":"2024-01-15T10:30:00.123456Z","user":"alice","op":"store"}
this is not valid json
{"ts":"2024-01-15T10:35:00.456789Z","user":"alice","op":"ping"}
`)

	entries, err := ParseEntries(data)
	if err != nil {
		t.Fatalf("ParseEntries failed: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("Expected 2 entries (skipping malformed), got %d", len(entries))
	}
}

func TestParseEntries_EmptyData(t *testing.T) {
	entries, err := ParseEntries(nil)
	if err != nil {
		t.Fatalf("ParseEntries failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected 0 entries, got %d", len(entries))
	}
}

func TestReadEntries_MissingLog(t *testing.T) {
	entries, err := ReadEntries(filepath.Join(t.TempDir(), "audit.jsonl"))
	if err != nil || entries != nil {
		t.Errorf("ReadEntries() = %v, %v; want nil, nil", entries, err)
	}
}

func TestFilter(t *testing.T) {
	entries := []Entry{
		{Operation: "ping"}, {Operation: "store"}, {Operation: "ping"}, {Operation: "ping"},
	}
	if got := Filter(entries, "ping", 0); len(got) != 3 {
		t.Errorf("Filter(ping) returned %d entries, want 3", len(got))
	}
	if got := Filter(entries, "", 2); len(got) != 2 || got[1].Operation != "ping" {
		t.Errorf("Filter(limit 2) = %+v", got)
	}
}
