// Package workflows provides high-level orchestration for lastwill commands.
//
// Workflows coordinate the configs, vault, liveness and audit packages to
// implement complete user-facing features. Each workflow handles a single
// command's business logic, independent of CLI concerns like flag parsing,
// spinners, and output formatting.
//
// The cmd/ package should be a thin layer that:
//   - Parses command-line flags and arguments
//   - Calls the appropriate workflow function
//   - Formats the result for display
//
// Workflows handle everything else:
//   - Loading and validating configuration
//   - Deriving the user key
//   - Performing the core operation
//   - Recording audit trail entries
//
// # Available Workflows
//
//   - Init: Writes a configuration and records the first heartbeat
//   - Store: Splits, encrypts and hides a will
//   - Retrieve: Reassembles the latest will on demand
//   - Ping: Records that the owner is alive
//   - Status: Evaluates the dead man's switch once
//   - Watch: Evaluates the switch until it fires
//   - Serve: Runs the HTTP service, optionally with a watcher
//   - Purge: Deletes stored wills
//   - Log: Reads the audit trail
//   - Doctor: Checks the state directory for problems
//   - Clean: Removes orphaned fragments and abandoned work files
//
// # Error Handling
//
// Workflows return typed errors from the internal/errors package, so the
// CLI layer can pick a message without string matching:
//
//	result, err := workflows.Retrieve(ctx, opts)
//	if errors.Is(err, lerrors.ErrMapNotFound) {
//	    // Suggest running store first
//	}
//
// # Context Usage
//
// All workflow functions accept a context.Context as their first parameter.
package workflows
