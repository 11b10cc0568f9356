package liveness

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	lerrors "github.com/PolarWolf314/lastwill/internal/errors"
	"github.com/PolarWolf314/lastwill/internal/utils"
	"github.com/gofrs/flock"
)

// ClaimRecord describes the process holding the claim. The advisory lock
// on the claim file is what excludes other processes; the record only
// tells a human who holds it.
type ClaimRecord struct {
	PID        int       `json:"pid"`
	Host       string    `json:"host"`
	AcquiredAt time.Time `json:"acquired_at"`
}

// claim takes the cross-process claim lock. The kernel drops the lock when
// its holder exits, so a crashed release never blocks the next one. The
// claim file itself is never removed: another process may already have it
// open and be waiting on the same inode.
func (m *Monitor) claim() (release func(), err error) {
	path := m.opts.Paths.ClaimPath()
	lock := flock.New(path, flock.SetPermissions(0600))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("%w: taking claim lock: %v", lerrors.ErrIO, err)
	}
	if !locked {
		return nil, claimHeldError(path)
	}

	host, _ := utils.GetHostname()
	data, err := json.Marshal(ClaimRecord{PID: os.Getpid(), Host: host, AcquiredAt: m.opts.Clock.Now()})
	if err == nil {
		// Written in place: replacing the file would detach it from the lock.
		err = os.WriteFile(path, data, 0600)
	}
	if err != nil {
		m.opts.Logger.Warnf("Failed to record claim holder: %v", err)
	}

	return func() {
		if err := os.Truncate(path, 0); err != nil {
			m.opts.Logger.Warnf("Failed to clear claim record: %v", err)
		}
		if err := lock.Unlock(); err != nil {
			m.opts.Logger.Warnf("Failed to release claim lock: %v", err)
		}
	}, nil
}

// ProbeClaim reports whether another process holds the claim at path,
// and who it is when the holder recorded itself. It never creates the
// claim file.
func ProbeClaim(path string) (held bool, rec ClaimRecord, err error) {
	if ok, err := utils.FileExists(path); err != nil || !ok {
		return false, ClaimRecord{}, err
	}
	lock := flock.New(path)
	locked, err := lock.TryLock()
	if err != nil {
		return false, ClaimRecord{}, fmt.Errorf("%w: probing claim lock: %v", lerrors.ErrIO, err)
	}
	if locked {
		return false, ClaimRecord{}, lock.Unlock()
	}
	rec, _ = readClaim(path)
	return true, rec, nil
}

func claimHeldError(path string) error {
	rec, err := readClaim(path)
	if err != nil || rec.AcquiredAt.IsZero() {
		return lerrors.ErrClaimHeld
	}
	return fmt.Errorf("%w (pid %d since %s)", lerrors.ErrClaimHeld, rec.PID, rec.AcquiredAt.Format(time.RFC3339))
}

func readClaim(path string) (ClaimRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ClaimRecord{}, err
	}
	var rec ClaimRecord
	if len(data) == 0 {
		return rec, errors.New("claim holder not recorded")
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		return ClaimRecord{}, err
	}
	return rec, nil
}
