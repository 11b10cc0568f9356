// Package errors provides typed error values for lastwill.
//
// Using sentinel errors allows callers to handle specific error conditions
// programmatically with errors.Is() rather than string matching.
//
// # Error Categories
//
// Errors are grouped by the component that raises them:
//
//   - Storage errors: files that cannot be read or written (ErrIO)
//   - Crypto errors: bad key material or failed authentication (ErrCipher)
//   - Fragment errors: malformed or incomplete fragment sets (ErrSplit, ErrMerge)
//   - Will errors: missing or empty fragment maps (ErrRetrieval, ErrMapNotFound)
//   - Switch errors: trigger flag inconsistencies and delivery (ErrState, ErrClaimHeld, ErrNotifyFailed)
//   - Configuration errors (ErrConfigNotFound, ErrInvalidConfig)
//   - Workflow errors (ErrAlreadyInitialized, ErrNoAuditLog, ErrInvalidDateFormat)
//
// # Usage
//
// Wrap a sentinel with the detail of what failed:
//
//	return fmt.Errorf("%w: fragment %s: %v", errors.ErrMerge, name, err)
//
// Handle errors in the CLI layer:
//
//	if errors.Is(err, lerrors.ErrCipher) {
//	    // wrong passphrase or tampered fragment
//	}
package errors
