package workflows

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/PolarWolf314/lastwill/internal/audit"
	lerrors "github.com/PolarWolf314/lastwill/internal/errors"
	"github.com/PolarWolf314/lastwill/internal/utils"
)

// RetrieveOptions configures the retrieve workflow.
type RetrieveOptions struct {
	Common

	// OutputPath receives the reassembled will.
	OutputPath string

	// Force overwrites an existing output file.
	Force bool

	Passphrase PassphraseFunc
}

// RetrieveResult contains the outcome of a retrieve operation.
type RetrieveResult struct {
	OutputPath string
	MapPath    string
	Fragments  int
	Digest     string
}

// Retrieve reassembles the user's latest will on demand. Unlike a switch
// release it writes no trigger flag and notifies nobody.
//
// Returns ErrMapNotFound if nothing has been stored.
// Returns ErrCipher if the key does not open the fragments.
func Retrieve(ctx context.Context, opts RetrieveOptions) (*RetrieveResult, error) {
	e, err := loadEnv(opts.Common)
	if err != nil {
		return nil, err
	}
	if opts.OutputPath == "" {
		return nil, fmt.Errorf("%w: an output path is required", lerrors.ErrIO)
	}
	if !opts.Force {
		if exists, _ := utils.FileExists(opts.OutputPath); exists {
			return nil, fmt.Errorf("%w: %s already exists", lerrors.ErrIO, opts.OutputPath)
		}
	}
	if dir := filepath.Dir(opts.OutputPath); dir != "" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("%w: %v", lerrors.ErrIO, err)
		}
	}

	v, err := e.vault()
	if err != nil {
		return nil, err
	}
	mapFile, m, err := v.Maps().Latest(e.userID())
	if err != nil {
		return nil, err
	}
	key, err := e.key(opts.Passphrase)
	if err != nil {
		return nil, err
	}
	if err := v.Retrieve(ctx, m, opts.OutputPath, key); err != nil {
		return nil, err
	}
	e.log.Infof("Reassembled %d fragments into %s", len(m), opts.OutputPath)

	result := &RetrieveResult{
		OutputPath: opts.OutputPath,
		MapPath:    mapFile.Path,
		Fragments:  len(m),
	}
	result.Digest, _ = audit.Digest(opts.OutputPath)

	entry := audit.LogWithUser("retrieve", e.userID())
	entry.Output = opts.OutputPath
	entry.Digest = result.Digest
	entry.Fragments = result.Fragments
	entry.MapPath = result.MapPath
	audit.Log(e.settings.AuditPath, entry)

	return result, nil
}
