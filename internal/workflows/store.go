package workflows

import (
	"context"
	"fmt"

	"github.com/PolarWolf314/lastwill/internal/audit"
	lerrors "github.com/PolarWolf314/lastwill/internal/errors"
	"github.com/PolarWolf314/lastwill/internal/utils"
	"github.com/PolarWolf314/lastwill/internal/vault"
)

// StoreOptions configures the store workflow.
type StoreOptions struct {
	Common

	// SourcePath is the will to protect.
	SourcePath string

	// Passphrase is asked for when the passphrase variable is unset.
	Passphrase PassphraseFunc
}

// StoreResult contains the outcome of a store operation.
type StoreResult struct {
	Will *vault.Will

	// Digest is the BLAKE3 digest of the source, for later verification.
	Digest string
}

// Store splits, encrypts and hides the source file, then persists the
// fragment map as the user's latest will. The source itself is left in
// place; removing it is the owner's decision.
//
// Returns ErrSplit if the source is missing or empty.
func Store(ctx context.Context, opts StoreOptions) (*StoreResult, error) {
	e, err := loadEnv(opts.Common)
	if err != nil {
		return nil, err
	}
	if ok, err := utils.FileExists(opts.SourcePath); err != nil || !ok {
		return nil, fmt.Errorf("%w: %s does not exist", lerrors.ErrSplit, opts.SourcePath)
	}
	if err := e.settings.Ensure(); err != nil {
		return nil, fmt.Errorf("%w: %v", lerrors.ErrIO, err)
	}

	key, err := e.key(opts.Passphrase)
	if err != nil {
		return nil, err
	}
	v, err := e.vault()
	if err != nil {
		return nil, err
	}

	digest, err := audit.Digest(opts.SourcePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", lerrors.ErrIO, err)
	}
	will, err := v.Store(ctx, opts.SourcePath, e.userID(), key)
	if err != nil {
		return nil, err
	}
	e.log.Infof("Stored %s as %d fragments", opts.SourcePath, len(will.Fragments))

	entry := audit.LogWithUser("store", e.userID())
	entry.Source = will.Source
	entry.Digest = digest
	entry.Fragments = len(will.Fragments)
	entry.MapPath = will.MapPath
	audit.Log(e.settings.AuditPath, entry)

	return &StoreResult{Will: will, Digest: digest}, nil
}
