// Package audit records what happened to a will.
//
// Every significant operation (store, retrieve, release, purge, etc.) is
// appended to an audit log in the data directory. The log is the owner's
// and the nominee's record of when the will was stored, when the switch
// fired and which package was handed out.
//
// # Log Format
//
// The audit log is stored as JSON Lines (one JSON object per line) at:
//
//	<data_dir>/audit.jsonl
//
// Each entry contains:
//   - Timestamp (RFC3339 with microseconds, UTC)
//   - User identifier and host
//   - Operation name
//   - Operation-specific details (files, fragment counts, digests, etc.)
//
// Digests are BLAKE3 hex of the file contents, so a nominee can confirm
// the released package is byte-identical to what the owner stored.
//
// # Usage
//
//	entry := audit.LogWithUser("store", userID)
//	entry.Source = path
//	entry.Digest, _ = audit.Digest(path)
//	audit.Log(settings.AuditPath, entry)
//
// # Failure Handling
//
// Audit logging is best-effort. If logging fails (permissions, disk full,
// etc.), the operation continues without error. Operations should never
// fail just because audit logging failed.
//
// # Reading Logs
//
// Use ReadEntries() to parse the audit log for display or analysis.
// Malformed entries are silently skipped to handle partial writes.
package audit
