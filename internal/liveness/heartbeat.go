package liveness

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	lerrors "github.com/PolarWolf314/lastwill/internal/errors"
	"github.com/PolarWolf314/lastwill/internal/utils"
)

// Zone-less layouts written by earlier versions. They are read as local time.
var legacyLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// errNoHeartbeat is returned by readHeartbeat when no ping was ever recorded.
var errNoHeartbeat = errors.New("no heartbeat recorded")

// ParseHeartbeat parses the content of a heartbeat file.
func ParseHeartbeat(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	for _, layout := range legacyLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unreadable heartbeat %q", lerrors.ErrState, s)
}

func writeHeartbeat(path string, t time.Time) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("%w: %v", lerrors.ErrIO, err)
	}
	data := []byte(t.Format(time.RFC3339Nano) + "\n")
	if err := utils.WriteFileAtomic(path, data, 0600); err != nil {
		return fmt.Errorf("%w: recording heartbeat: %v", lerrors.ErrIO, err)
	}
	return nil
}

func readHeartbeat(path string) (time.Time, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return time.Time{}, errNoHeartbeat
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: reading heartbeat: %v", lerrors.ErrIO, err)
	}
	return ParseHeartbeat(string(data))
}
