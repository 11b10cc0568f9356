package audit

import (
	"encoding/hex"
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/zeebo/blake3"

	"github.com/PolarWolf314/lastwill/internal/utils"
)

// Entry represents a single audit log entry.
type Entry struct {
	Timestamp string `json:"ts"`   // RFC3339 with microseconds.
	User      string `json:"user"` // Identifier of the will's owner.
	Host      string `json:"host,omitempty"`
	Operation string `json:"op"` // Operation name.

	// Optional fields depending on operation.
	Source    string `json:"source,omitempty"`    // For store.
	Output    string `json:"output,omitempty"`    // For retrieve/release.
	Digest    string `json:"blake3,omitempty"`    // For store/retrieve/release.
	Fragments int    `json:"fragments,omitempty"` // For store/retrieve/purge.
	MapPath   string `json:"map,omitempty"`       // For store/purge.
	Removed   int    `json:"removed,omitempty"`   // For purge/clean.
	Status    string `json:"status,omitempty"`    // For release.
	Locator   string `json:"locator,omitempty"`   // For release.
	Message   string `json:"message,omitempty"`   // For failures.
}

// Log appends an entry to the audit log at path.
// If logging fails, it does not return an error.
// Operations should not fail just because audit logging failed.
func Log(path string, entry Entry) {
	if path == "" {
		return
	}
	if entry.Timestamp == "" {
		entry.Timestamp = time.Now().UTC().Format("2006-01-02T15:04:05.000000Z")
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return
	}
	defer f.Close()

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}

	// One write per entry keeps concurrent appends line-atomic.
	_, _ = f.Write(append(data, '\n'))
}

// LogWithUser is a convenience function that populates the user fields.
func LogWithUser(op, userID string) Entry {
	entry := Entry{Operation: op, User: userID}
	if host, err := utils.GetHostname(); err == nil {
		entry.Host = host
	}
	return entry
}

// Digest returns the BLAKE3 hex digest of the file at path.
func Digest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := blake3.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// ReadEntries reads all entries from the audit log at path.
// Returns an empty slice if the log doesn't exist.
func ReadEntries(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return ParseEntries(data)
}

// ParseEntries parses JSON Lines data into audit entries.
// Malformed lines are silently skipped.
func ParseEntries(data []byte) ([]Entry, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var entries []Entry
	start := 0

	for i := 0; i <= len(data); i++ {
		if i == len(data) || data[i] == '\n' {
			line := data[start:i]
			start = i + 1

			if len(line) == 0 {
				continue
			}

			var entry Entry
			if err := json.Unmarshal(line, &entry); err != nil {
				continue
			}
			entries = append(entries, entry)
		}
	}

	return entries, nil
}

// Filter returns the entries matching op, or all entries when op is empty.
// At most limit entries are returned, newest last; limit <= 0 means all.
func Filter(entries []Entry, op string, limit int) []Entry {
	var out []Entry
	for _, e := range entries {
		if op == "" || e.Operation == op {
			out = append(out, e)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}
