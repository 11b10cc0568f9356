package errors

import "errors"

// Storage errors indicate the underlying files could not be accessed.
var (
	// ErrIO indicates a source was unreadable or a destination unwritable.
	ErrIO = errors.New("storage unreadable or unwritable")
)

// Cryptographic errors indicate failures while sealing or opening fragments.
var (
	// ErrCipher indicates invalid key material or a fragment that failed
	// authentication (wrong key or tampered ciphertext).
	ErrCipher = errors.New("cipher failure")
)

// Fragment errors indicate malformed or incomplete fragment sets.
var (
	// ErrSplit indicates the source could not be partitioned into fragments.
	ErrSplit = errors.New("failed to split file")

	// ErrMerge indicates the fragment set could not be reassembled.
	ErrMerge = errors.New("failed to merge fragments")
)

// Will errors indicate problems with the persisted fragment map.
var (
	// ErrRetrieval indicates the fragment map is missing, empty or inconsistent.
	ErrRetrieval = errors.New("fragment map unavailable")

	// ErrMapNotFound indicates no fragment map has been persisted for the user.
	ErrMapNotFound = errors.New("no fragment map found")
)

// Switch errors indicate problems with the dead man's switch state.
var (
	// ErrState indicates the trigger flag or heartbeat is inconsistent.
	ErrState = errors.New("inconsistent switch state")

	// ErrClaimHeld indicates another process is executing the retrieval protocol.
	ErrClaimHeld = errors.New("retrieval protocol is already running")

	// ErrNotifyFailed indicates the nominee could not be notified.
	ErrNotifyFailed = errors.New("failed to notify nominee")
)

// Configuration errors.
var (
	// ErrConfigNotFound indicates no configuration file exists at the given path.
	ErrConfigNotFound = errors.New("configuration not found")

	// ErrInvalidConfig indicates the configuration is malformed or incomplete.
	ErrInvalidConfig = errors.New("configuration is invalid")
)

// Workflow errors.
var (
	// ErrAlreadyInitialized indicates a configuration already exists.
	ErrAlreadyInitialized = errors.New("lastwill is already initialized")

	// ErrNoAuditLog indicates the audit log does not exist yet.
	ErrNoAuditLog = errors.New("no audit log found")

	// ErrInvalidDateFormat indicates a date argument is not YYYY-MM-DD.
	ErrInvalidDateFormat = errors.New("invalid date format")
)
