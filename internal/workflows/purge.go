package workflows

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/PolarWolf314/lastwill/internal/audit"
	lerrors "github.com/PolarWolf314/lastwill/internal/errors"
)

// PurgeOptions configures the purge workflow.
type PurgeOptions struct {
	Common

	// All purges every stored will of the user, not just the latest.
	All bool

	// DryRun reports what would be removed without removing it.
	DryRun bool
}

// PurgeResult contains the outcome of a purge operation.
type PurgeResult struct {
	Maps      []string
	Fragments int
	DryRun    bool
}

// Purge deletes stored wills: the encrypted fragments first, then the map
// that names them, so an interrupted purge never leaves a map pointing at
// nothing without also leaving its fragments.
//
// Returns ErrMapNotFound if the user has nothing stored.
func Purge(ctx context.Context, opts PurgeOptions) (*PurgeResult, error) {
	e, err := loadEnv(opts.Common)
	if err != nil {
		return nil, err
	}
	v, err := e.vault()
	if err != nil {
		return nil, err
	}

	files, err := v.Maps().List(e.userID())
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w for user %q", lerrors.ErrMapNotFound, e.userID())
	}
	if !opts.All {
		files = files[len(files)-1:]
	}

	result := &PurgeResult{DryRun: opts.DryRun}
	var errs []error
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		m, err := v.Maps().Load(f.Path)
		if err != nil && !errors.Is(err, lerrors.ErrRetrieval) {
			errs = append(errs, err)
			continue
		}
		result.Maps = append(result.Maps, f.Path)
		result.Fragments += len(m)
		if opts.DryRun {
			continue
		}
		// A corrupt map names nothing we can remove; drop the map itself.
		if err := v.Purge(m); err != nil {
			errs = append(errs, err)
			continue
		}
		if err := os.Remove(f.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, fmt.Errorf("%w: removing %s: %v", lerrors.ErrIO, f.Path, err))
			continue
		}
		e.log.Infof("Purged %s (%d fragments)", f.Path, len(m))

		entry := audit.LogWithUser("purge", e.userID())
		entry.MapPath = f.Path
		entry.Removed = len(m)
		audit.Log(e.settings.AuditPath, entry)
	}
	if err := errors.Join(errs...); err != nil {
		return result, err
	}
	return result, nil
}
