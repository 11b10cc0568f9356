package shard

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	lerrors "github.com/PolarWolf314/lastwill/internal/errors"
)

const (
	// MinSplitLength is the shortest range that is divided further.
	MinSplitLength = 128

	// MaxDepth bounds the recursion; 3^8 fragments is already excessive.
	MaxDepth = 8

	fanOut = 3
)

// Fragment is one contiguous byte range of a source file written to disk.
type Fragment struct {
	Index  int
	Name   string
	Path   string
	Offset int64
	Length int64
}

// Plan computes the fragment ranges for a source of the given size without
// touching the file system.
func Plan(size int64, depth int) []Fragment {
	var out []Fragment
	var walk func(offset, length int64, depth int)
	walk = func(offset, length int64, depth int) {
		if depth == 0 || length < MinSplitLength {
			out = append(out, Fragment{Index: len(out), Offset: offset, Length: length})
			return
		}
		part := length / fanOut
		for i := int64(0); i < fanOut-1; i++ {
			walk(offset+i*part, part, depth-1)
		}
		walk(offset+(fanOut-1)*part, length-(fanOut-1)*part, depth-1)
	}
	walk(0, size, depth)
	return out
}

// Split writes the fragments of sourcePath into workDir and returns them in
// ordinal order. workDir must exist. On failure every fragment already
// written is removed.
func Split(sourcePath, workDir string, depth int) ([]Fragment, error) {
	if depth < 0 || depth > MaxDepth {
		return nil, fmt.Errorf("%w: depth %d outside [0, %d]", lerrors.ErrSplit, depth, MaxDepth)
	}

	source, err := os.Open(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %v", lerrors.ErrSplit, sourcePath, err)
	}
	defer source.Close()

	info, err := source.Stat()
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", lerrors.ErrSplit, sourcePath, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", lerrors.ErrSplit, sourcePath)
	}
	if info.Size() == 0 {
		return nil, fmt.Errorf("%w: %s is empty", lerrors.ErrSplit, sourcePath)
	}

	fragments := Plan(info.Size(), depth)
	if len(fragments) == 0 {
		return nil, fmt.Errorf("%w: no fragments produced for %s", lerrors.ErrSplit, sourcePath)
	}

	prefix := Prefix(sourcePath)
	for i := range fragments {
		fragments[i].Name = FragmentName(prefix, fragments[i].Index)
		fragments[i].Path = filepath.Join(workDir, fragments[i].Name)
		if err := writeFragment(source, fragments[i]); err != nil {
			Remove(fragments[:i+1])
			return nil, fmt.Errorf("%w: %v", lerrors.ErrSplit, err)
		}
	}
	return fragments, nil
}

// Remove deletes the files of the given fragments, ignoring missing ones.
func Remove(fragments []Fragment) {
	for _, f := range fragments {
		if f.Path != "" {
			os.Remove(f.Path)
		}
	}
}

func writeFragment(source io.ReaderAt, f Fragment) error {
	out, err := os.OpenFile(f.Path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("creating %s: %w", f.Name, err)
	}
	n, err := io.Copy(out, io.NewSectionReader(source, f.Offset, f.Length))
	if err != nil {
		out.Close()
		return fmt.Errorf("writing %s: %w", f.Name, err)
	}
	if n != f.Length {
		out.Close()
		return fmt.Errorf("writing %s: source changed during split (%d of %d bytes)", f.Name, n, f.Length)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", f.Name, err)
	}
	return nil
}
