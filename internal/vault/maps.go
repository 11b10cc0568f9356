package vault

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	lerrors "github.com/PolarWolf314/lastwill/internal/errors"
	"github.com/PolarWolf314/lastwill/internal/utils"
)

// FragmentMap maps logical fragment names to obfuscated storage paths.
type FragmentMap map[string]string

// Names returns the logical names in lexical order, which for fragments of
// one prefix is also ordinal order.
func (m FragmentMap) Names() []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MapStore persists fragment maps as JSON files in Dir.
type MapStore struct {
	Dir string
}

// MapFile describes one persisted fragment map.
type MapFile struct {
	Path      string
	UserID    string
	Freshness int64
}

// FileName returns the map file name for a user and freshness stamp.
func FileName(userID string, freshness int64) string {
	return fmt.Sprintf("map_%s_%d.json", utils.SanitizeIdentifier(userID), freshness)
}

// Save writes m atomically and returns its path. A map with the same user
// and freshness is replaced.
func (s MapStore) Save(userID string, freshness int64, m FragmentMap) (string, error) {
	if len(m) == 0 {
		return "", fmt.Errorf("%w: refusing to save an empty fragment map", lerrors.ErrRetrieval)
	}
	data, err := json.MarshalIndent(m, "", "    ")
	if err != nil {
		return "", fmt.Errorf("encoding fragment map: %w", err)
	}
	if err := os.MkdirAll(s.Dir, 0700); err != nil {
		return "", fmt.Errorf("%w: creating map directory: %v", lerrors.ErrIO, err)
	}
	path := filepath.Join(s.Dir, FileName(userID, freshness))
	if err := utils.WriteFileAtomic(path, append(data, '\n'), 0600); err != nil {
		return "", fmt.Errorf("%w: %v", lerrors.ErrIO, err)
	}
	return path, nil
}

// Load reads a fragment map from path.
func (s MapStore) Load(path string) (FragmentMap, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", lerrors.ErrMapNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", lerrors.ErrIO, path, err)
	}
	var m FragmentMap
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %s is not a valid fragment map: %v", lerrors.ErrRetrieval, path, err)
	}
	return m, nil
}

// List returns the persisted maps of userID, oldest first.
func (s MapStore) List(userID string) ([]MapFile, error) {
	name := utils.SanitizeIdentifier(userID)
	all, err := s.glob("map_" + name + "_*.json")
	if err != nil {
		return nil, err
	}
	// The pattern also matches users whose name extends this one.
	var files []MapFile
	for _, f := range all {
		if f.UserID == name {
			files = append(files, f)
		}
	}
	return files, nil
}

// All returns every persisted map regardless of owner, oldest first.
func (s MapStore) All() ([]MapFile, error) {
	return s.glob("map_*.json")
}

func (s MapStore) glob(pattern string) ([]MapFile, error) {
	if _, err := os.Stat(s.Dir); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}

	matches, err := doublestar.Glob(os.DirFS(s.Dir), pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: listing maps: %v", lerrors.ErrIO, err)
	}

	var files []MapFile
	for _, m := range matches {
		stem := strings.TrimSuffix(strings.TrimPrefix(m, "map_"), ".json")
		i := strings.LastIndex(stem, "_")
		if i <= 0 {
			continue
		}
		freshness, err := strconv.ParseInt(stem[i+1:], 10, 64)
		if err != nil {
			continue
		}
		files = append(files, MapFile{
			Path:      filepath.Join(s.Dir, m),
			UserID:    stem[:i],
			Freshness: freshness,
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Freshness < files[j].Freshness })
	return files, nil
}

// Latest loads the freshest map of userID. It returns ErrMapNotFound when
// the user has none.
func (s MapStore) Latest(userID string) (MapFile, FragmentMap, error) {
	files, err := s.List(userID)
	if err != nil {
		return MapFile{}, nil, err
	}
	if len(files) == 0 {
		return MapFile{}, nil, fmt.Errorf("%w for user %q in %s", lerrors.ErrMapNotFound, userID, s.Dir)
	}
	latest := files[len(files)-1]
	m, err := s.Load(latest.Path)
	if err != nil {
		return MapFile{}, nil, err
	}
	return latest, m, nil
}
