package vault

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"

	"github.com/PolarWolf314/lastwill/internal/cipher"
	lerrors "github.com/PolarWolf314/lastwill/internal/errors"
	logger "github.com/PolarWolf314/lastwill/internal/logging"
	"github.com/PolarWolf314/lastwill/internal/shard"
)

const (
	obfuscatedPrefix = "sys_"
	obfuscatedExt    = ".dat"
	maxNameAttempts  = 8
)

// Layout names the directories a Vault works in.
type Layout struct {
	// StorageDir holds the encrypted fragments.
	StorageDir string
	// MapDir holds the persisted fragment maps.
	MapDir string
	// WorkDir holds short-lived private directories for plaintext fragments.
	WorkDir string
}

// Options configures a Vault.
type Options struct {
	Layout      Layout
	Depth       int
	Compression cipher.CompressionTag
	Logger      logger.Logger
}

// Will is the outcome of a successful Store.
type Will struct {
	UserID    string
	Source    string
	MapPath   string
	Freshness int64
	Fragments FragmentMap
	// Replaced is the number of fragments removed from an earlier map that
	// this will superseded.
	Replaced int
}

// Vault stores and restores wills.
type Vault struct {
	opts Options
	maps MapStore
}

// New returns a Vault, creating its directories if needed.
func New(opts Options) (*Vault, error) {
	if opts.Depth < 0 || opts.Depth > shard.MaxDepth {
		return nil, fmt.Errorf("%w: split depth %d outside [0, %d]", lerrors.ErrSplit, opts.Depth, shard.MaxDepth)
	}
	l := opts.Layout
	if l.StorageDir == "" || l.MapDir == "" || l.WorkDir == "" {
		return nil, fmt.Errorf("%w: vault layout is incomplete", lerrors.ErrInvalidConfig)
	}
	for _, dir := range []string{l.StorageDir, l.MapDir, l.WorkDir} {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("%w: creating %s: %v", lerrors.ErrIO, dir, err)
		}
	}
	return &Vault{opts: opts, maps: MapStore{Dir: l.MapDir}}, nil
}

// Maps returns the store holding this vault's fragment maps.
func (v *Vault) Maps() MapStore {
	return v.maps
}

// Store fragments, encrypts and hides sourcePath, then persists its map.
// On failure nothing is left behind: no plaintext, no encrypted fragment
// and no map.
func (v *Vault) Store(ctx context.Context, sourcePath, userID string, key cipher.Key) (*Will, error) {
	c, err := cipher.New(key, cipher.WithCompression(v.opts.Compression))
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", lerrors.ErrSplit, err)
	}

	work, err := os.MkdirTemp(v.opts.Layout.WorkDir, "store-*")
	if err != nil {
		return nil, fmt.Errorf("%w: creating work directory: %v", lerrors.ErrIO, err)
	}
	defer os.RemoveAll(work)

	fragments, err := shard.Split(sourcePath, work, v.opts.Depth)
	if err != nil {
		return nil, err
	}
	v.opts.Logger.Debugf("Split %s into %d fragments", sourcePath, len(fragments))

	m := make(FragmentMap, len(fragments))
	used := make(map[string]bool, len(fragments))
	rollback := func() {
		for _, path := range m {
			os.Remove(path)
		}
	}

	for _, f := range fragments {
		if err := ctx.Err(); err != nil {
			rollback()
			return nil, err
		}
		name, err := v.obfuscatedName(used)
		if err != nil {
			rollback()
			return nil, err
		}
		path := filepath.Join(v.opts.Layout.StorageDir, name)
		if err := c.EncryptFile(f.Path, path); err != nil {
			rollback()
			return nil, fmt.Errorf("encrypting %s: %w", f.Name, err)
		}
		m[f.Name] = path
		os.Remove(f.Path)
		v.opts.Logger.Debugf("Sealed %s as %s", f.Name, name)
	}

	freshness, previous := v.freshness(userID, info.ModTime().Unix(), m)
	mapPath, err := v.maps.Save(userID, freshness, m)
	if err != nil {
		rollback()
		return nil, err
	}

	will := &Will{
		UserID:    userID,
		Source:    sourcePath,
		MapPath:   mapPath,
		Freshness: freshness,
		Fragments: m,
	}
	if len(previous) > 0 {
		if err := v.Purge(previous); err != nil {
			v.opts.Logger.Warnf("Failed to remove fragments of the replaced map: %v", err)
		}
		will.Replaced = len(previous)
	}
	return will, nil
}

// freshness picks the map slot for m. A map already stored in the same
// second replaces only a store of the same source, returned as previous;
// a different source moves m to the next free second.
func (v *Vault) freshness(userID string, stamp int64, m FragmentMap) (int64, FragmentMap) {
	prefix, _ := mapPrefix(m)
	for {
		path := filepath.Join(v.maps.Dir, FileName(userID, stamp))
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return stamp, nil
		}
		existing, err := v.maps.Load(path)
		if err == nil {
			if p, _ := mapPrefix(existing); p == prefix {
				return stamp, existing
			}
		}
		v.opts.Logger.Warnf("Another will is stored under %s; keeping it and storing this one one second later", filepath.Base(path))
		stamp++
	}
}

// Retrieve decrypts every fragment in m and merges them into outputPath.
// The map must name the fragments of exactly one source.
func (v *Vault) Retrieve(ctx context.Context, m FragmentMap, outputPath string, key cipher.Key) error {
	if len(m) == 0 {
		return fmt.Errorf("%w: fragment map is empty", lerrors.ErrRetrieval)
	}
	prefix, err := mapPrefix(m)
	if err != nil {
		return err
	}
	c, err := cipher.New(key, cipher.WithCompression(v.opts.Compression))
	if err != nil {
		return err
	}

	restore, err := os.MkdirTemp(v.opts.Layout.WorkDir, "restore-*")
	if err != nil {
		return fmt.Errorf("%w: creating restore directory: %v", lerrors.ErrIO, err)
	}
	defer os.RemoveAll(restore)

	for _, name := range m.Names() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := c.DecryptFile(m[name], filepath.Join(restore, name)); err != nil {
			return fmt.Errorf("decrypting %s: %w", name, err)
		}
	}

	n, err := shard.Merge(filepath.Join(restore, prefix), outputPath)
	if err != nil {
		return err
	}
	v.opts.Logger.Debugf("Merged %d fragments into %s", n, outputPath)
	return nil
}

// Purge removes the encrypted fragments of m. Only files inside the
// storage directory are touched; fragments already gone are ignored.
func (v *Vault) Purge(m FragmentMap) error {
	storage, err := filepath.Abs(v.opts.Layout.StorageDir)
	if err != nil {
		return fmt.Errorf("%w: %v", lerrors.ErrIO, err)
	}

	var errs []error
	for _, name := range m.Names() {
		path, err := filepath.Abs(m[name])
		if err != nil || filepath.Dir(path) != storage {
			errs = append(errs, fmt.Errorf("%s: %s is outside the storage directory", name, m[name]))
			continue
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, fmt.Errorf("%w: removing %s: %v", lerrors.ErrIO, name, err))
		}
	}
	return errors.Join(errs...)
}

// Stored lists the encrypted fragment files in the storage directory,
// whichever map they belong to.
func (v *Vault) Stored() ([]string, error) {
	dir := v.opts.Layout.StorageDir
	matches, err := doublestar.Glob(os.DirFS(dir), obfuscatedPrefix+"*"+obfuscatedExt)
	if err != nil {
		return nil, fmt.Errorf("%w: listing fragments: %v", lerrors.ErrIO, err)
	}
	paths := make([]string, len(matches))
	for i, m := range matches {
		paths[i] = filepath.Join(dir, m)
	}
	sort.Strings(paths)
	return paths, nil
}

func (v *Vault) obfuscatedName(used map[string]bool) (string, error) {
	for range maxNameAttempts {
		name := obfuscatedPrefix + strings.ReplaceAll(uuid.NewString(), "-", "") + obfuscatedExt
		if used[name] {
			continue
		}
		if _, err := os.Lstat(filepath.Join(v.opts.Layout.StorageDir, name)); !errors.Is(err, os.ErrNotExist) {
			continue
		}
		used[name] = true
		return name, nil
	}
	return "", fmt.Errorf("%w: could not allocate a unique fragment name", lerrors.ErrIO)
}

func mapPrefix(m FragmentMap) (string, error) {
	var prefix string
	for _, name := range m.Names() {
		p := shard.PrefixOf(name)
		if p == "" {
			return "", fmt.Errorf("%w: %q is not a fragment name", lerrors.ErrRetrieval, name)
		}
		if prefix != "" && p != prefix {
			return "", fmt.Errorf("%w: map mixes fragments of %q and %q", lerrors.ErrRetrieval, prefix, p)
		}
		prefix = p
	}
	return prefix, nil
}
