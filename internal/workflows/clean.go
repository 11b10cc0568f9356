package workflows

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/PolarWolf314/lastwill/internal/audit"
	lerrors "github.com/PolarWolf314/lastwill/internal/errors"
	"github.com/PolarWolf314/lastwill/internal/vault"
)

// staleWorkAge is how old a work entry must be before clean treats it as
// abandoned rather than belonging to a running store or retrieve.
const staleWorkAge = time.Hour

// OrphanKind classifies what clean found.
type OrphanKind string

const (
	// OrphanFragment is an encrypted fragment no map references.
	OrphanFragment OrphanKind = "fragment"
	// OrphanWork is a leftover entry in the work directory.
	OrphanWork OrphanKind = "work"
)

// OrphanEntry represents a file or directory clean would remove.
type OrphanEntry struct {
	Kind OrphanKind

	// FilePath is the absolute path of the orphan.
	FilePath string

	// RelativePath is the path relative to the data directory.
	RelativePath string
}

// CleanOptions configures the clean workflow.
type CleanOptions struct {
	Common

	// DryRun previews what would be removed without making changes.
	DryRun bool

	// Force skips the confirmation prompt (handled by caller).
	Force bool
}

// CleanResult contains the outcome of a clean operation.
type CleanResult struct {
	// Orphans is the list of orphaned entries found.
	Orphans []OrphanEntry

	// RemovedCount is the number of entries removed (0 if dry-run).
	RemovedCount int

	// DryRun indicates whether this was a dry-run.
	DryRun bool
}

// Clean removes state no will depends on.
//
// Orphans are encrypted fragments referenced by no map of any user, and
// work directory entries older than an hour. Fragments go stray when a
// store is killed between sealing and saving its map; work entries when a
// store or retrieve is killed before its cleanup runs. Corrupt maps make
// fragment ownership unknowable, so clean refuses to run with ErrRetrieval
// rather than delete fragments a damaged map might still name.
func Clean(ctx context.Context, opts CleanOptions) (*CleanResult, error) {
	e, err := loadEnv(opts.Common)
	if err != nil {
		return nil, err
	}
	v, err := e.vault()
	if err != nil {
		return nil, err
	}

	orphans, err := findOrphanedFragments(v)
	if err != nil {
		return nil, fmt.Errorf("finding orphaned fragments: %w", err)
	}
	leftovers, err := findWorkLeftovers(e.settings.WorkDir, e.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("finding work leftovers: %w", err)
	}
	orphans = append(orphans, leftovers...)
	for i := range orphans {
		orphans[i].RelativePath, _ = filepath.Rel(e.settings.DataDir, orphans[i].FilePath)
	}

	result := &CleanResult{
		Orphans: orphans,
		DryRun:  opts.DryRun,
	}
	if len(orphans) == 0 || opts.DryRun {
		return result, nil
	}

	for _, orphan := range orphans {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := os.RemoveAll(orphan.FilePath); err != nil {
			return nil, fmt.Errorf("%w: removing %s: %v", lerrors.ErrIO, orphan.FilePath, err)
		}
		e.log.Debugf("Removed %s", orphan.FilePath)
		result.RemovedCount++
	}

	entry := audit.LogWithUser("clean", e.userID())
	entry.Removed = result.RemovedCount
	audit.Log(e.settings.AuditPath, entry)

	return result, nil
}

// findOrphanedFragments lists stored fragments that no map references.
func findOrphanedFragments(v *vault.Vault) ([]OrphanEntry, error) {
	referenced, err := referencedFragments(v.Maps())
	if err != nil {
		return nil, err
	}
	stored, err := v.Stored()
	if err != nil {
		return nil, err
	}

	var orphans []OrphanEntry
	for _, path := range stored {
		if !referenced[absPath(path)] {
			orphans = append(orphans, OrphanEntry{Kind: OrphanFragment, FilePath: path})
		}
	}
	return orphans, nil
}

func referencedFragments(maps vault.MapStore) (map[string]bool, error) {
	files, err := maps.All()
	if err != nil {
		return nil, err
	}
	referenced := make(map[string]bool)
	for _, f := range files {
		m, err := maps.Load(f.Path)
		if err != nil {
			return nil, err
		}
		for _, path := range m {
			referenced[absPath(path)] = true
		}
	}
	return referenced, nil
}

// findWorkLeftovers lists work directory entries last modified before
// now minus staleWorkAge.
func findWorkLeftovers(workDir string, now time.Time) ([]OrphanEntry, error) {
	entries, err := os.ReadDir(workDir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading work directory: %v", lerrors.ErrIO, err)
	}

	var orphans []OrphanEntry
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if now.Sub(info.ModTime()) < staleWorkAge {
			continue
		}
		orphans = append(orphans, OrphanEntry{
			Kind:     OrphanWork,
			FilePath: filepath.Join(workDir, entry.Name()),
		})
	}
	return orphans, nil
}

func absPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}
