package workflows

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PolarWolf314/lastwill/internal/audit"
	lerrors "github.com/PolarWolf314/lastwill/internal/errors"
	"github.com/PolarWolf314/lastwill/internal/utils"
)

// auditTimeLayout is the timestamp format audit.Log writes.
const auditTimeLayout = "2006-01-02T15:04:05.000000Z"

// LogOptions configures the log workflow.
type LogOptions struct {
	Common

	// Limit is the maximum number of entries to return. 0 means no limit.
	Limit int

	// Reverse orders entries from most recent to oldest when true.
	Reverse bool

	// User filters entries by user identifier.
	User string

	// Operations filters entries by operation types (comma-separated).
	Operations string

	// Since filters entries after this date (YYYY-MM-DD format).
	Since string

	// Until filters entries before this date (YYYY-MM-DD format).
	Until string
}

// LogResult contains the outcome of a log operation.
type LogResult struct {
	// Entries are the filtered audit log entries.
	Entries []audit.Entry

	// TotalEntriesBeforeFilter is the count of entries before filtering.
	TotalEntriesBeforeFilter int
}

// Log reads and filters the audit log.
//
// Returns ErrNoAuditLog if no audit log exists.
// Returns ErrInvalidDateFormat if the date format is invalid.
func Log(ctx context.Context, opts LogOptions) (*LogResult, error) {
	e, err := loadEnv(opts.Common)
	if err != nil {
		return nil, err
	}

	logPath := e.settings.AuditPath
	exists, err := utils.FileExists(logPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", lerrors.ErrIO, err)
	}
	if !exists {
		return nil, fmt.Errorf("%w at %s", lerrors.ErrNoAuditLog, logPath)
	}

	entries, err := audit.ReadEntries(logPath)
	if err != nil {
		return nil, fmt.Errorf("reading audit log: %w", err)
	}

	result := &LogResult{
		TotalEntriesBeforeFilter: len(entries),
	}

	if len(entries) == 0 {
		result.Entries = entries
		return result, nil
	}

	// Apply filters.
	filtered := entries

	if opts.User != "" {
		filtered = filterByUser(filtered, opts.User)
	}

	if opts.Operations != "" {
		ops := strings.Split(opts.Operations, ",")
		for i := range ops {
			ops[i] = strings.TrimSpace(ops[i])
		}
		filtered = filterByOperations(filtered, ops)
	}

	var since, until time.Time
	if opts.Since != "" {
		since, err = time.Parse("2006-01-02", opts.Since)
		if err != nil {
			return nil, fmt.Errorf("%w: --since date format invalid, use YYYY-MM-DD", lerrors.ErrInvalidDateFormat)
		}
	}
	if opts.Until != "" {
		until, err = time.Parse("2006-01-02", opts.Until)
		if err != nil {
			return nil, fmt.Errorf("%w: --until date format invalid, use YYYY-MM-DD", lerrors.ErrInvalidDateFormat)
		}
		// Include the entire day.
		until = until.Add(24*time.Hour - time.Nanosecond)
	}
	if !since.IsZero() || !until.IsZero() {
		filtered = filterBetween(filtered, since, until)
	}

	if opts.Reverse {
		for i, j := 0, len(filtered)-1; i < j; i, j = i+1, j-1 {
			filtered[i], filtered[j] = filtered[j], filtered[i]
		}
	}

	if opts.Limit > 0 && len(filtered) > opts.Limit {
		if opts.Reverse {
			// When reversed, limit takes first N (most recent).
			filtered = filtered[:opts.Limit]
		} else {
			// When not reversed, limit takes last N (most recent).
			filtered = filtered[len(filtered)-opts.Limit:]
		}
	}

	result.Entries = filtered
	return result, nil
}

// filterByUser filters entries by user identifier (case-insensitive).
func filterByUser(entries []audit.Entry, user string) []audit.Entry {
	var result []audit.Entry
	for _, e := range entries {
		if strings.EqualFold(e.User, user) {
			result = append(result, e)
		}
	}
	return result
}

// filterByOperations filters entries by operation types.
func filterByOperations(entries []audit.Entry, ops []string) []audit.Entry {
	opSet := make(map[string]bool)
	for _, op := range ops {
		opSet[strings.ToLower(op)] = true
	}

	var result []audit.Entry
	for _, e := range entries {
		if opSet[strings.ToLower(e.Operation)] {
			result = append(result, e)
		}
	}
	return result
}

// filterBetween keeps entries stamped within [since, until]. A zero
// bound is open. Entries with unreadable timestamps are dropped.
func filterBetween(entries []audit.Entry, since, until time.Time) []audit.Entry {
	var result []audit.Entry
	for _, e := range entries {
		t, ok := entryTime(e.Timestamp)
		if !ok {
			continue
		}
		if !since.IsZero() && t.Before(since) {
			continue
		}
		if !until.IsZero() && t.After(until) {
			continue
		}
		result = append(result, e)
	}
	return result
}

func entryTime(ts string) (time.Time, bool) {
	t, err := time.Parse(auditTimeLayout, ts)
	if err != nil {
		t, err = time.Parse(time.RFC3339, ts)
	}
	return t, err == nil
}

// FormatDate formats a timestamp string to YYYY-MM-DD format.
func FormatDate(ts string) string {
	return formatEntryTime(ts, "2006-01-02")
}

// FormatDateTime formats a timestamp string to YYYY-MM-DD HH:MM:SS format.
func FormatDateTime(ts string) string {
	return formatEntryTime(ts, "2006-01-02 15:04:05")
}

func formatEntryTime(ts, layout string) string {
	t, ok := entryTime(ts)
	if !ok {
		if len(ts) >= len(layout) {
			return ts[:len(layout)]
		}
		return ts
	}
	return t.Format(layout)
}

// FormatDetails formats the details for a log entry in verbose format.
func FormatDetails(e audit.Entry) string {
	switch e.Operation {
	case "store":
		return fmt.Sprintf("%s, %d fragments, blake3 %s", e.Source, e.Fragments, shortDigest(e.Digest))
	case "retrieve":
		return fmt.Sprintf("%s, %d fragments, blake3 %s", e.Output, e.Fragments, shortDigest(e.Digest))
	case "release":
		if e.Locator != "" {
			return fmt.Sprintf("%s (%s)", e.Locator, e.Status)
		}
		return e.Status
	case "purge":
		return fmt.Sprintf("%s, removed %d fragments", e.MapPath, e.Removed)
	case "clean":
		return fmt.Sprintf("removed %d entries", e.Removed)
	default:
		return e.Message
	}
}

// FormatDetailsOneline formats the details for a log entry in oneline format.
func FormatDetailsOneline(e audit.Entry) string {
	switch e.Operation {
	case "store", "retrieve":
		return fmt.Sprintf("%d fragments", e.Fragments)
	case "release":
		return e.Status
	case "purge", "clean":
		return fmt.Sprintf("removed %d", e.Removed)
	default:
		return ""
	}
}

func shortDigest(d string) string {
	if len(d) > 12 {
		return d[:12]
	}
	if d == "" {
		return "-"
	}
	return d
}
