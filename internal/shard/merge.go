package shard

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	lerrors "github.com/PolarWolf314/lastwill/internal/errors"
	"github.com/PolarWolf314/lastwill/internal/utils"
)

// Discover returns the fragment file names under prefix ordered by
// ordinal. prefix may include a directory. Names that merely resemble
// fragments of another prefix are ignored.
func Discover(prefix string) ([]string, error) {
	dir, base := filepath.Split(prefix)
	if dir == "" {
		dir = "."
	}
	if base == "" {
		return nil, fmt.Errorf("%w: empty prefix", lerrors.ErrMerge)
	}

	matches, err := doublestar.Glob(os.DirFS(dir), escapeMeta(base)+shardTag+"*"+extension)
	if err != nil {
		return nil, fmt.Errorf("%w: listing fragments of %s: %v", lerrors.ErrMerge, prefix, err)
	}

	type entry struct {
		name  string
		index int
	}
	var found []entry
	for _, m := range matches {
		p, index, ok := ParseName(m)
		if !ok || p != base {
			continue
		}
		found = append(found, entry{name: m, index: index})
	}
	if len(found) == 0 {
		return nil, fmt.Errorf("%w: no fragments match %s", lerrors.ErrMerge, prefix)
	}

	sort.Slice(found, func(i, j int) bool { return found[i].index < found[j].index })
	names := make([]string, len(found))
	for i, e := range found {
		if e.index != i {
			if i > 0 && found[i-1].index == e.index {
				return nil, fmt.Errorf("%w: duplicate fragment ordinal %d", lerrors.ErrMerge, e.index)
			}
			return nil, fmt.Errorf("%w: missing fragment ordinal %d", lerrors.ErrMerge, i)
		}
		names[i] = filepath.Join(dir, e.name)
	}
	return names, nil
}

// Merge concatenates the fragments of prefix into outputPath and returns
// the number of fragments merged. The output appears atomically; on
// failure nothing is left at outputPath.
func Merge(prefix, outputPath string) (int, error) {
	names, err := Discover(prefix)
	if err != nil {
		return 0, err
	}

	dir := filepath.Dir(outputPath)
	out, err := os.CreateTemp(dir, "."+filepath.Base(outputPath)+".tmp-*")
	if err != nil {
		return 0, fmt.Errorf("%w: creating output: %v", lerrors.ErrMerge, err)
	}
	temporaryPath := out.Name()
	fail := func(err error) (int, error) {
		out.Close()
		os.Remove(temporaryPath)
		return 0, fmt.Errorf("%w: %v", lerrors.ErrMerge, err)
	}

	for _, name := range names {
		if err := appendFile(out, name); err != nil {
			return fail(err)
		}
	}
	if err := out.Sync(); err != nil {
		return fail(fmt.Errorf("syncing output: %w", err))
	}
	if err := out.Close(); err != nil {
		os.Remove(temporaryPath)
		return 0, fmt.Errorf("%w: closing output: %v", lerrors.ErrMerge, err)
	}
	if err := os.Rename(temporaryPath, outputPath); err != nil {
		os.Remove(temporaryPath)
		return 0, fmt.Errorf("%w: moving output into place: %v", lerrors.ErrMerge, err)
	}
	utils.SyncDir(dir)
	return len(names), nil
}

func appendFile(dst io.Writer, path string) error {
	in, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", filepath.Base(path), err)
	}
	defer in.Close()
	if _, err := io.Copy(dst, in); err != nil {
		return fmt.Errorf("copying %s: %w", filepath.Base(path), err)
	}
	return nil
}

func escapeMeta(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '{', '}', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
