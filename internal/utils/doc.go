// Package utils provides shared utility functions for lastwill.
//
// # Filesystem Utilities
//
//   - WriteFileAtomic: replaces a file so readers never see a partial write
//   - CreateExclusive: creates a file only if it does not already exist
//   - FileExists, RemoveIfExists
//
// # System Utilities
//
//   - GetHostname
//
// # String Utilities
//
//   - SanitizeIdentifier: makes a user identifier safe to embed in file names
//   - FormatPaths: formats file paths for human-readable output
//
// # Terminal Utilities
//
//   - ReadPassphrase: prompts for a passphrase without echo
//   - IsTerminal: checks if stdin is a terminal
package utils
